// Package identity keeps the signed-in user, the session and the admin flag
// of a client process in one place, and reacts to auth-state events emitted
// by a Provider.
package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/CANDRY15/flashprint/utils/logger"
)

// Event is an auth-state change emitted by a Provider
type Event string

const (
	EventInitialSession Event = "INITIAL_SESSION"
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
	EventUserUpdated    Event = "USER_UPDATED"
)

const adminRole = "admin"

type User struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
}

type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Listener receives auth-state changes. session is nil when signed out.
type Listener func(event Event, session *Session)

// Provider is the authentication backend
type Provider interface {
	// OnAuthStateChange registers l and returns a function that removes it
	OnAuthStateChange(l Listener) (unsubscribe func())
	GetSession(ctx context.Context) (*Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password, redirectTo string) error
	SignOut(ctx context.Context) error
}

// RoleChecker answers has_role
type RoleChecker interface {
	HasRole(ctx context.Context, userID uint, role string) (bool, error)
}

// Notifier shows a short message to the user
type Notifier interface {
	Notify(title, description string, isError bool)
}

// Navigator moves the client to another route
type Navigator interface {
	Navigate(path string)
}

// State is a snapshot of the identity
type State struct {
	User    *User    `json:"user"`
	Session *Session `json:"session"`
	IsAdmin bool     `json:"is_admin"`
	Loading bool     `json:"loading"`
}

// SignUpResult carries the registration outcome; a failure is a value, not
// a returned error
type SignUpResult struct {
	Err error
}

// adminEffect is what a transition does to the admin flag
type adminEffect int

const (
	adminRefresh adminEffect = iota
	adminKeep
	adminClear
)

type transition struct {
	keepSession bool
	admin       adminEffect
}

var transitions = map[Event]transition{
	EventInitialSession: {keepSession: true, admin: adminRefresh},
	EventSignedIn:       {keepSession: true, admin: adminRefresh},
	EventTokenRefreshed: {keepSession: true, admin: adminRefresh},
	EventUserUpdated:    {keepSession: true, admin: adminKeep},
	EventSignedOut:      {keepSession: false, admin: adminClear},
}

type roleLookup struct {
	generation uint64
	userID     uint
}

// Context is the process-scoped identity. Build it once with New and share
// the pointer.
type Context struct {
	provider  Provider
	roles     RoleChecker
	notifier  Notifier
	navigator Navigator
	log       *logger.Logger

	siteOrigin string

	mu         sync.Mutex
	state      State
	generation uint64

	lookups     chan roleLookup
	done        chan struct{}
	wg          sync.WaitGroup
	unsubscribe func()
	startOnce   sync.Once
	closeOnce   sync.Once
}

// Option configures a Context
type Option func(*Context)

// WithSiteOrigin sets the origin used for the sign-up redirect
func WithSiteOrigin(origin string) Option {
	return func(c *Context) {
		c.siteOrigin = strings.TrimRight(origin, "/")
	}
}

func New(provider Provider, roles RoleChecker, notifier Notifier, navigator Navigator, log *logger.Logger, opts ...Option) *Context {
	c := &Context{
		provider:  provider,
		roles:     roles,
		notifier:  notifier,
		navigator: navigator,
		log:       log,
		state:     State{Loading: true},
		lookups:   make(chan roleLookup, 16),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start subscribes to auth-state changes, then loads the current session.
// Subscribing first means an event fired during the fetch is not missed.
func (c *Context) Start(ctx context.Context) error {
	var err error
	c.startOnce.Do(func() {
		c.wg.Add(1)
		go c.resolveRoles()

		c.unsubscribe = c.provider.OnAuthStateChange(c.apply)

		var session *Session
		session, err = c.provider.GetSession(ctx)
		if err != nil {
			c.log.Warn("failed to load session", "error", err)
			c.mu.Lock()
			c.state.Loading = false
			c.mu.Unlock()
			return
		}
		c.apply(EventInitialSession, session)
	})
	return err
}

// apply runs one row of the transition table. User and session change
// synchronously; the role lookup is published for the resolver goroutine.
func (c *Context) apply(event Event, session *Session) {
	tr, ok := transitions[event]
	if !ok {
		c.log.Debug("ignoring auth event", "event", event)
		return
	}

	c.mu.Lock()
	if !tr.keepSession {
		session = nil
	}
	c.state.Session = session
	c.state.User = nil
	if session != nil {
		u := session.User
		c.state.User = &u
	}
	c.state.Loading = false

	var lookup *roleLookup
	switch {
	case tr.admin == adminClear || session == nil:
		c.generation++
		c.state.IsAdmin = false
	case tr.admin == adminRefresh:
		c.generation++
		lookup = &roleLookup{generation: c.generation, userID: session.User.ID}
	}
	c.mu.Unlock()

	if lookup != nil {
		c.publish(*lookup)
	}
}

func (c *Context) publish(l roleLookup) {
	select {
	case c.lookups <- l:
	case <-c.done:
	}
}

func (c *Context) resolveRoles() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case l := <-c.lookups:
			c.resolve(l)
		}
	}
}

func (c *Context) resolve(l roleLookup) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	isAdmin, err := c.roles.HasRole(ctx, l.userID, adminRole)
	if err != nil {
		c.log.Warn("admin role check failed", "user_id", l.userID, "error", err)
		isAdmin = false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if l.generation != c.generation {
		return
	}
	c.state.IsAdmin = isAdmin
}

// SignIn authenticates with email and password
func (c *Context) SignIn(ctx context.Context, email, password string) error {
	if _, err := c.provider.SignInWithPassword(ctx, email, password); err != nil {
		c.notifier.Notify("Erreur de connexion", err.Error(), true)
		return err
	}

	c.notifier.Notify("Connexion réussie", "Bienvenue !", false)
	c.navigator.Navigate("/")
	return nil
}

// SignUp registers an account with a redirect to the site root
func (c *Context) SignUp(ctx context.Context, email, password string) SignUpResult {
	err := c.provider.SignUp(ctx, email, password, c.siteOrigin+"/")
	if err != nil {
		c.notifier.Notify("Erreur d'inscription", err.Error(), true)
		return SignUpResult{Err: err}
	}

	c.notifier.Notify("Inscription réussie", "Vous pouvez maintenant vous connecter.", false)
	return SignUpResult{}
}

// SignOut ends the session. The admin flag is cleared before it returns,
// whatever the provider's event delivery does.
func (c *Context) SignOut(ctx context.Context) error {
	if err := c.provider.SignOut(ctx); err != nil {
		c.notifier.Notify("Erreur de déconnexion", err.Error(), true)
		return err
	}

	c.mu.Lock()
	c.generation++
	c.state.IsAdmin = false
	c.mu.Unlock()

	c.notifier.Notify("Déconnexion réussie", "À bientôt !", false)
	c.navigator.Navigate("/")
	return nil
}

// Snapshot returns a copy of the current state
func (c *Context) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	if s.Session != nil {
		sess := *s.Session
		s.Session = &sess
	}
	return s
}

// ErrNotSignedIn is returned by helpers that need a session
var ErrNotSignedIn = errors.New("not signed in")

// AccessToken returns the current bearer token
func (c *Context) AccessToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Session == nil {
		return "", ErrNotSignedIn
	}
	return c.state.Session.AccessToken, nil
}

// Close unsubscribes from the provider and stops the role resolver
func (c *Context) Close() {
	c.closeOnce.Do(func() {
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
		close(c.done)
		c.wg.Wait()
	})
}
