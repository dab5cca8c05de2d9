package status

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialState(t *testing.T) {
	snap := New().Snapshot()
	assert.Equal(t, Snapshot{Status: Disconnected}, snap)
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Disconnected, Connecting},
		{Disconnected, Disconnected},
		{Connecting, Connecting},
		{Connecting, Connected},
		{Connecting, Disconnected},
		{Connected, Connecting},
		{Connected, Disconnected},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			s := New()
			walkTo(t, s, tt.from)
			require.NoError(t, s.Transition(tt.to))
			assert.Equal(t, tt.to, s.Current())
		})
	}
}

func TestInvalidTransition(t *testing.T) {
	s := New()
	assert.Error(t, s.Transition(Connected))
	assert.Equal(t, Disconnected, s.Current(), "state changed on invalid transition")
}

func TestResetClearsErrorAndChallenge(t *testing.T) {
	s := New()
	walkTo(t, s, Connecting)
	s.SetError("boom")
	s.SetPairingChallenge("2@abc")

	s.Reset()

	assert.Equal(t, Snapshot{Status: Disconnected}, s.Snapshot())
}

func TestResetKeepsSyncFlag(t *testing.T) {
	s := New()
	require.True(t, s.TryBeginSync())

	s.Reset()

	assert.True(t, s.SyncInProgress(), "only the holder clears the flag")
	s.EndSync()
	assert.False(t, s.SyncInProgress())
}

func TestSyncFlagIsSingleFlight(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	var admitted atomic.Int32
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.TryBeginSync() {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load())
	assert.True(t, s.Snapshot().SyncInProgress)
	s.EndSync()
	assert.False(t, s.SyncInProgress())
	assert.True(t, s.TryBeginSync(), "flag should be available after EndSync")
}

func walkTo(t *testing.T, s *Session, target State) {
	t.Helper()
	paths := map[State][]State{
		Disconnected: {},
		Connecting:   {Connecting},
		Connected:    {Connecting, Connected},
	}
	for _, st := range paths[target] {
		require.NoError(t, s.Transition(st), "walkTo(%s)", target)
	}
}
