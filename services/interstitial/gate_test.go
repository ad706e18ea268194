package interstitial

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestGate() (*Gate, *fakeClock) {
	clock := newFakeClock()
	gate := NewGate(NewMemoryStore(clock), Config{Countdown: 5 * time.Second, InitialDelay: 3 * time.Second}, clock)
	return gate, clock
}

func TestIssueStartsCountdown(t *testing.T) {
	gate, clock := newTestGate()
	ctx := context.Background()

	state, err := gate.Issue(ctx, ActionView, "droit-civil-i")
	require.NoError(t, err)
	assert.Equal(t, 5, state.RemainingSeconds)
	assert.False(t, state.Dismissible)
	assert.Equal(t, "Fermeture dans 5s", state.Message)

	clock.Advance(2500 * time.Millisecond)
	state, err = gate.State(ctx, state.Ticket)
	require.NoError(t, err)
	assert.Equal(t, 3, state.RemainingSeconds)
	assert.Equal(t, "Fermeture dans 3s", state.Message)

	clock.Advance(2500 * time.Millisecond)
	state, err = gate.State(ctx, state.Ticket)
	require.NoError(t, err)
	assert.Zero(t, state.RemainingSeconds)
	assert.True(t, state.Dismissible)
}

func TestDismissRefusedBeforeCountdown(t *testing.T) {
	gate, clock := newTestGate()
	ctx := context.Background()

	state, err := gate.Issue(ctx, ActionDownload, "abc")
	require.NoError(t, err)

	var runs int32
	action := func(Ticket) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}

	clock.Advance(4999 * time.Millisecond)
	err = gate.Dismiss(ctx, state.Ticket, action)
	require.ErrorIs(t, err, ErrNotReady)
	var notReady *NotReadyError
	require.True(t, errors.As(err, &notReady))
	assert.Equal(t, 1, notReady.Remaining)
	assert.Zero(t, atomic.LoadInt32(&runs))

	clock.Advance(time.Millisecond)
	require.NoError(t, gate.Dismiss(ctx, state.Ticket, action))
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))

	err = gate.Dismiss(ctx, state.Ticket, action)
	assert.ErrorIs(t, err, ErrTicketGone)
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
}

func TestConcurrentDismissRunsActionOnce(t *testing.T) {
	gate, clock := newTestGate()
	ctx := context.Background()

	state, err := gate.Issue(ctx, ActionView, "abc")
	require.NoError(t, err)
	clock.Advance(10 * time.Second)

	var runs, gone int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := gate.Dismiss(ctx, state.Ticket, func(t Ticket) error {
				atomic.AddInt32(&runs, 1)
				return nil
			})
			if errors.Is(err, ErrTicketGone) {
				atomic.AddInt32(&gone, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), runs)
	assert.Equal(t, int32(15), gone)
}

func TestDismissPassesTicket(t *testing.T) {
	gate, clock := newTestGate()
	ctx := context.Background()

	state, err := gate.Issue(ctx, ActionDownload, "physique-quantique")
	require.NoError(t, err)
	clock.Advance(5 * time.Second)

	var got Ticket
	require.NoError(t, gate.Dismiss(ctx, state.Ticket, func(t Ticket) error {
		got = t
		return nil
	}))
	assert.Equal(t, ActionDownload, got.Action)
	assert.Equal(t, "physique-quantique", got.Target)
}

func TestExpiredTicketIsGone(t *testing.T) {
	clock := newFakeClock()
	gate := NewGate(NewMemoryStore(clock), Config{Countdown: 5 * time.Second, TicketTTL: time.Minute}, clock)
	ctx := context.Background()

	state, err := gate.Issue(ctx, ActionView, "abc")
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	_, err = gate.State(ctx, state.Ticket)
	assert.ErrorIs(t, err, ErrTicketGone)
}

func TestIssueRejectsUnknownAction(t *testing.T) {
	gate, _ := newTestGate()
	_, err := gate.Issue(context.Background(), Action("print"), "abc")
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestSchedule(t *testing.T) {
	gate, _ := newTestGate()
	assert.Equal(t, Schedule{InitialDelaySeconds: 3, CountdownSeconds: 5}, gate.Schedule())
}
