// Package interstitial gates document views and downloads behind a short
// countdown. A ticket is issued per intent and can be dismissed, exactly
// once, when its countdown has elapsed.
package interstitial

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Action is the deferred user intent
type Action string

const (
	ActionView     Action = "view"
	ActionDownload Action = "download"
)

func (a Action) IsValid() bool {
	return a == ActionView || a == ActionDownload
}

var (
	ErrInvalidAction = errors.New("invalid interstitial action")
	// ErrTicketGone covers unknown, expired and already consumed tickets
	ErrTicketGone = errors.New("interstitial ticket gone")
	ErrNotReady   = errors.New("interstitial countdown still running")
)

// NotReadyError carries the seconds left before a dismiss is accepted
type NotReadyError struct {
	Remaining int
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("%s: %ds remaining", ErrNotReady, e.Remaining)
}

func (e *NotReadyError) Is(target error) bool {
	return target == ErrNotReady
}

// Ticket is one pending intent
type Ticket struct {
	ID       string    `json:"id"`
	Action   Action    `json:"action"`
	Target   string    `json:"target"`
	IssuedAt time.Time `json:"issued_at"`
	ReadyAt  time.Time `json:"ready_at"`
}

// State is the countdown as shown to the client
type State struct {
	Ticket           string `json:"ticket"`
	Action           Action `json:"action"`
	RemainingSeconds int    `json:"remaining_seconds"`
	Dismissible      bool   `json:"dismissible"`
	Message          string `json:"message"`
}

// Schedule is the delayed-ad timing exposed to clients
type Schedule struct {
	InitialDelaySeconds int `json:"initial_delay_seconds"`
	CountdownSeconds    int `json:"countdown_seconds"`
}

// Store persists tickets. Take must remove and return a ticket atomically.
type Store interface {
	Save(ctx context.Context, t Ticket, ttl time.Duration) error
	Get(ctx context.Context, id string) (Ticket, error)
	Take(ctx context.Context, id string) (Ticket, error)
}

// Clock is injectable for tests
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Config tunes the gate
type Config struct {
	Countdown    time.Duration
	InitialDelay time.Duration
	// TicketTTL bounds how long an undismissed ticket lives
	TicketTTL time.Duration
}

type Gate struct {
	store Store
	clock Clock
	cfg   Config
}

func NewGate(store Store, cfg Config, clock Clock) *Gate {
	if cfg.Countdown <= 0 {
		cfg.Countdown = 5 * time.Second
	}
	if cfg.InitialDelay < 0 {
		cfg.InitialDelay = 0
	}
	if cfg.TicketTTL <= cfg.Countdown {
		cfg.TicketTTL = cfg.Countdown + 10*time.Minute
	}
	if clock == nil {
		clock = systemClock{}
	}
	return &Gate{store: store, clock: clock, cfg: cfg}
}

func (g *Gate) Schedule() Schedule {
	return Schedule{
		InitialDelaySeconds: int(g.cfg.InitialDelay / time.Second),
		CountdownSeconds:    int(g.cfg.Countdown / time.Second),
	}
}

// Issue starts a countdown for action on target
func (g *Gate) Issue(ctx context.Context, action Action, target string) (State, error) {
	if !action.IsValid() {
		return State{}, ErrInvalidAction
	}

	now := g.clock.Now()
	t := Ticket{
		ID:       uuid.NewString(),
		Action:   action,
		Target:   target,
		IssuedAt: now,
		ReadyAt:  now.Add(g.cfg.Countdown),
	}
	if err := g.store.Save(ctx, t, g.cfg.TicketTTL); err != nil {
		return State{}, fmt.Errorf("failed to save ticket: %w", err)
	}
	return g.stateOf(t, now), nil
}

// State reports the countdown of a ticket without consuming it
func (g *Gate) State(ctx context.Context, id string) (State, error) {
	t, err := g.store.Get(ctx, id)
	if err != nil {
		return State{}, err
	}
	return g.stateOf(t, g.clock.Now()), nil
}

// Dismiss consumes the ticket once its countdown is over and runs action
// with it. Concurrent or repeated dismissals get ErrTicketGone, so action
// runs at most once per ticket.
func (g *Gate) Dismiss(ctx context.Context, id string, action func(Ticket) error) error {
	t, err := g.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if remaining := remainingSeconds(t, g.clock.Now()); remaining > 0 {
		return &NotReadyError{Remaining: remaining}
	}

	t, err = g.store.Take(ctx, id)
	if err != nil {
		return err
	}
	return action(t)
}

func (g *Gate) stateOf(t Ticket, now time.Time) State {
	remaining := remainingSeconds(t, now)
	s := State{
		Ticket:           t.ID,
		Action:           t.Action,
		RemainingSeconds: remaining,
		Dismissible:      remaining == 0,
	}
	if remaining > 0 {
		s.Message = fmt.Sprintf("Fermeture dans %ds", remaining)
	} else {
		s.Message = "Fermer"
	}
	return s
}

func remainingSeconds(t Ticket, now time.Time) int {
	left := t.ReadyAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}
