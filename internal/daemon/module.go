// Package daemon composes the bridge daemon with fx.
package daemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/matheus3301/wabridge/internal/api"
	"github.com/matheus3301/wabridge/internal/bus"
	"github.com/matheus3301/wabridge/internal/config"
	"github.com/matheus3301/wabridge/internal/dispatch"
	"github.com/matheus3301/wabridge/internal/lifecycle"
	"github.com/matheus3301/wabridge/internal/lock"
	"github.com/matheus3301/wabridge/internal/logging"
	"github.com/matheus3301/wabridge/internal/session"
	"github.com/matheus3301/wabridge/internal/status"
	"github.com/matheus3301/wabridge/internal/store"
	intsync "github.com/matheus3301/wabridge/internal/sync"
	"github.com/matheus3301/wabridge/internal/wa"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	BaseDir     string // empty = session.BaseDir()
	SocketPath  string // optional override for testing; empty = use default
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Provide(
			provideConfig,
			provideLayout,
			provideLogger,
			provideQueue,
			status.New,
			provideLock,
			provideStore,
			provideAdapter,
			provideEngine,
			provideCoordinator,
			provideManager,
			provideLoop,
			provideSessionService,
			provideMessageService,
			api.NewContactService,
			api.NewChatService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func baseDir(p Params) string {
	if p.BaseDir != "" {
		return p.BaseDir
	}
	return session.BaseDir()
}

func provideConfig(p Params) (*config.Config, error) {
	return config.Load(session.ConfigPath(baseDir(p)))
}

func provideLayout(p Params) (session.Layout, error) {
	return session.NewLayout(baseDir(p), p.SessionName)
}

func provideLogger(layout session.Layout, cfg *config.Config) (*zap.Logger, error) {
	if err := layout.Ensure(); err != nil {
		return nil, err
	}
	return logging.New(layout.LogPath(), layout.Name, cfg.Bridge.LogLevel)
}

func provideQueue() *bus.Queue {
	return bus.New(bus.DefaultSize)
}

func provideLock(layout session.Layout, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring session lock", zap.String("path", layout.LockPath()))
	l, err := lock.Acquire(layout.LockPath())
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

// provideStore takes the lock so that no second daemon touches the database.
func provideStore(layout session.Layout, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	path := layout.StoreDBPath()
	db, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	if err := db.Prepare(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("store initialized", zap.String("path", path))
	return db, nil
}

func provideAdapter(layout session.Layout, cfg *config.Config, _ *lock.Lock, q *bus.Queue, logger *zap.Logger) (*wa.Adapter, error) {
	return wa.NewAdapter(context.Background(), wa.Options{
		DBPath:     layout.AuthDBPath(),
		DeviceName: cfg.Bridge.DeviceName,
	}, q, logger.Named("wa"))
}

func provideEngine(db *store.DB, cfg *config.Config, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(db, cfg.Bridge.CheckpointThreshold, logger.Named("sync"))
}

func provideCoordinator(db *store.DB, engine *intsync.Engine, s *status.Session, logger *zap.Logger) *intsync.Coordinator {
	return intsync.NewCoordinator(db, engine, s, logger.Named("history"))
}

func provideManager(adapter *wa.Adapter, s *status.Session, engine *intsync.Engine, cfg *config.Config, logger *zap.Logger) *lifecycle.Manager {
	return lifecycle.NewManager(adapter, s, engine, lifecycle.Config{
		RestartDelay:   cfg.Bridge.RestartDelay,
		ReconnectDelay: cfg.Bridge.ReconnectDelay,
	}, logger.Named("lifecycle"))
}

func provideLoop(q *bus.Queue, m *lifecycle.Manager, engine *intsync.Engine, coord *intsync.Coordinator, logger *zap.Logger) *dispatch.Loop {
	return dispatch.NewLoop(q, m, engine, coord, logger.Named("dispatch"))
}

func provideSessionService(layout session.Layout, m *lifecycle.Manager, coord *intsync.Coordinator, adapter *wa.Adapter, db *store.DB, logger *zap.Logger) *api.SessionService {
	return api.NewSessionService(layout.Name, m, coord, adapter, db, logger.Named("api"))
}

func provideMessageService(m *lifecycle.Manager, db *store.DB) *api.MessageService {
	return api.NewMessageService(m, db)
}

type lifecycleDeps struct {
	fx.In

	Config  *config.Config
	Server  *Server
	Lock    *lock.Lock
	DB      *store.DB
	Adapter *wa.Adapter
	Manager *lifecycle.Manager
	Queue   *bus.Queue
	Loop    *dispatch.Loop
	Logger  *zap.Logger
}

func registerLifecycle(lc fx.Lifecycle, d lifecycleDeps) {
	loopCtx, stopLoop := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go d.Loop.Run(loopCtx)

			go func() {
				if err := d.Server.Start(); err != nil {
					d.Logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			switch {
			case !d.Config.Bridge.ShouldAutoStart():
				d.Logger.Info("auto start disabled, waiting for Start")
			case !d.Adapter.HasCredentials(ctx):
				d.Logger.Info("no credentials found, waiting for Start to pair")
			default:
				go func() {
					if err := d.Manager.Start(context.Background()); err != nil && !errors.Is(err, lifecycle.ErrSuperseded) {
						d.Logger.Error("auto start failed", zap.Error(err))
					}
				}()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			d.Server.Stop(ctx)
			d.Manager.Stop()

			stopLoop()
			d.Queue.Close()
			select {
			case <-d.Loop.Done():
			case <-ctx.Done():
				d.Logger.Warn("dispatch loop did not stop in time")
			}

			var errs []error
			if err := d.Adapter.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close auth store: %w", err))
			}
			if err := d.DB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close store: %w", err))
			}
			if err := d.Lock.Release(); err != nil {
				d.Logger.Warn("error releasing lock", zap.Error(err))
			}
			d.Logger.Info("daemon stopped")
			_ = d.Logger.Sync()
			return errors.Join(errs...)
		},
	})
}
