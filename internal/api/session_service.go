package api

import (
	"context"
	"errors"
	"time"

	"github.com/matheus3301/wabridge/internal/lifecycle"
	"github.com/matheus3301/wabridge/internal/status"
	"github.com/matheus3301/wabridge/internal/store"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// Controller is the lifecycle surface the services drive.
type Controller interface {
	Status() status.Snapshot
	Start(ctx context.Context) error
	Logout(ctx context.Context) error
	Send(ctx context.Context, to, text string) lifecycle.SendResult
}

// SyncInfo reports bulk history progress.
type SyncInfo interface {
	LastSync(ctx context.Context) (time.Time, error)
}

// Account reports the paired account.
type Account interface {
	PhoneNumber(ctx context.Context) string
}

const sessionServiceName = packageName + ".SessionService"

// SessionServer is the server API for the session service.
type SessionServer interface {
	GetStatus(context.Context, *GetStatusRequest) (*GetStatusResponse, error)
	Start(context.Context, *StartRequest) (*StartResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
}

// SessionService reports and controls the connection.
type SessionService struct {
	sessionName string
	startedAt   time.Time
	ctl         Controller
	sync        SyncInfo
	account     Account
	db          *store.DB
	logger      *zap.Logger
}

// NewSessionService creates a new session service. sync and account may be nil.
func NewSessionService(sessionName string, ctl Controller, sync SyncInfo, account Account, db *store.DB, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		sessionName: sessionName,
		startedAt:   time.Now(),
		ctl:         ctl,
		sync:        sync,
		account:     account,
		db:          db,
		logger:      logger,
	}
}

var sessionServiceDesc = grpc.ServiceDesc{
	ServiceName: sessionServiceName,
	HandlerType: (*SessionServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(sessionServiceName, "GetStatus", SessionServer.GetStatus),
		unary(sessionServiceName, "Start", SessionServer.Start),
		unary(sessionServiceName, "Logout", SessionServer.Logout),
	},
}

// RegisterSessionService registers s on r.
func RegisterSessionService(r grpc.ServiceRegistrar, s SessionServer) {
	r.RegisterService(&sessionServiceDesc, s)
}

func (s *SessionService) GetStatus(ctx context.Context, _ *GetStatusRequest) (*GetStatusResponse, error) {
	snap := s.ctl.Status()
	resp := &GetStatusResponse{
		Session:          s.sessionName,
		Status:           string(snap.Status),
		Error:            snap.Error,
		PairingChallenge: snap.PairingChallenge,
		SyncInProgress:   snap.SyncInProgress,
		UptimeMs:         time.Since(s.startedAt).Milliseconds(),
	}

	if s.account != nil {
		resp.Phone = s.account.PhoneNumber(ctx)
	}
	if s.sync != nil {
		if last, err := s.sync.LastSync(ctx); err != nil {
			s.logger.Warn("failed to read last sync", zap.Error(err))
		} else if !last.IsZero() {
			resp.LastSync = last.UTC().Format(time.RFC3339)
		}
	}
	if s.db != nil {
		counts, err := s.db.Counts(ctx)
		if err != nil {
			return nil, grpcstatus.Errorf(codes.Internal, "count records: %v", err)
		}
		resp.Counts = Counts(counts)
	}
	return resp, nil
}

func (s *SessionService) Start(ctx context.Context, _ *StartRequest) (*StartResponse, error) {
	err := s.ctl.Start(ctx)
	switch {
	case errors.Is(err, lifecycle.ErrSuperseded):
		return nil, grpcstatus.Error(codes.Aborted, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, grpcstatus.FromContextError(err).Err()
	case err != nil:
		return nil, grpcstatus.Errorf(codes.Unavailable, "start: %v", err)
	}

	snap := s.ctl.Status()
	resp := &StartResponse{Success: true, Status: string(snap.Status)}
	if snap.PairingChallenge != "" {
		resp.Message = "scan the pairing code to link this device"
	}
	return resp, nil
}

func (s *SessionService) Logout(ctx context.Context, _ *LogoutRequest) (*LogoutResponse, error) {
	if err := s.ctl.Logout(ctx); err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "logout: %v", err)
	}
	return &LogoutResponse{Success: true, Message: "logged out"}, nil
}
