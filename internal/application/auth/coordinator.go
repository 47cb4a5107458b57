// Package auth owns the application-wide session state: who is logged in
// and whether that is known yet.
package auth

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/alchemorsel/client/internal/domain/user"
	"github.com/alchemorsel/client/internal/infrastructure/session"
	apperrors "github.com/alchemorsel/client/pkg/errors"
)

// TokenStore is the part of the session store the coordinator needs
type TokenStore interface {
	SetToken(ctx context.Context, token string) error
	Token(ctx context.Context) string
}

// IdentityFetcher resolves the identity behind the current token
type IdentityFetcher interface {
	CurrentUser(ctx context.Context) (*user.User, error)
}

// State is a snapshot of the session state
type State struct {
	Identity        *user.User
	IsSessionLoaded bool
}

// Decision is what a protected view should do with the current state
type Decision int

const (
	// DecisionLoading means the identity is not known yet
	DecisionLoading Decision = iota
	// DecisionRedirectLogin means there is no identity
	DecisionRedirectLogin
	// DecisionAllow means a user is logged in
	DecisionAllow
)

// String implements fmt.Stringer
func (d Decision) String() string {
	switch d {
	case DecisionLoading:
		return "loading"
	case DecisionRedirectLogin:
		return "redirect-login"
	case DecisionAllow:
		return "allow"
	default:
		return "unknown"
	}
}

// Coordinator keeps the current identity in step with the session token
type Coordinator struct {
	tokens   TokenStore
	identity IdentityFetcher
	logger   *zap.Logger

	mu    sync.RWMutex
	state State
	// generation changes on Logout and when the session ends so a fetch
	// started before either cannot restore the identity afterwards.
	generation uint64
}

// NewCoordinator creates a coordinator in the "not loaded" state. Call
// Initialize once at startup.
func NewCoordinator(tokens TokenStore, identity IdentityFetcher, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		tokens:   tokens,
		identity: identity,
		logger:   logger.Named("auth"),
	}
}

// Initialize loads the identity when a token is already stored. Without a
// token the session is marked loaded and anonymous with no network call.
func (c *Coordinator) Initialize(ctx context.Context) {
	if c.tokens.Token(ctx) != "" {
		c.FetchCurrentIdentity(ctx, nil)
		return
	}
	c.mu.Lock()
	c.state = State{IsSessionLoaded: true}
	c.mu.Unlock()
}

// Login stores token and loads the identity it belongs to. It returns once
// the identity fetch has settled; onSuccess runs only if it succeeded. A
// failed fetch is not an error: the session is then loaded and anonymous.
func (c *Coordinator) Login(ctx context.Context, token string, onSuccess func(*user.User)) error {
	if token == "" {
		return apperrors.NewInvalidArgumentError("Token is required for login")
	}
	if err := c.tokens.SetToken(ctx, token); err != nil {
		return err
	}
	c.FetchCurrentIdentity(ctx, onSuccess)
	return nil
}

// Logout forgets the identity and marks the session as not loaded. The
// stored token is left alone; clearing it is a separate step.
func (c *Coordinator) Logout() {
	c.mu.Lock()
	c.state = State{}
	c.generation++
	c.mu.Unlock()
}

// FetchCurrentIdentity asks the API who the token belongs to. Any failure
// degrades to an anonymous, loaded session and the identity returned is nil.
func (c *Coordinator) FetchCurrentIdentity(ctx context.Context, onSuccess func(*user.User)) *user.User {
	c.mu.RLock()
	generation := c.generation
	c.mu.RUnlock()

	identity, err := c.identity.CurrentUser(ctx)

	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		c.logger.Debug("Discarding identity fetched for an ended session")
		return nil
	}
	if err != nil {
		c.state = State{IsSessionLoaded: true}
		c.mu.Unlock()
		c.logger.Info("Identity fetch failed, continuing anonymously", zap.String("reason", apperrors.Message(err)))
		return nil
	}
	c.state = State{Identity: identity, IsSessionLoaded: true}
	c.mu.Unlock()

	if onSuccess != nil {
		onSuccess(identity)
	}
	return identity
}

// UpdateIdentity replaces the identity, e.g. after a profile edit
func (c *Coordinator) UpdateIdentity(u *user.User) {
	c.mu.Lock()
	c.state.Identity = u
	c.mu.Unlock()
}

// HandleSessionEnded reacts to the session store ending the session: the
// identity is dropped and the session is known to be anonymous.
func (c *Coordinator) HandleSessionEnded(event session.SessionEnded) {
	c.mu.Lock()
	c.state = State{IsSessionLoaded: true}
	c.generation++
	c.mu.Unlock()
	c.logger.Debug("Session ended", zap.String("reason", string(event.Reason)))
}

// State returns a snapshot of the session state
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Identity returns the logged-in user, nil when anonymous or not loaded
func (c *Coordinator) Identity() *user.User {
	return c.State().Identity
}

// IsSessionLoaded reports whether the identity is known
func (c *Coordinator) IsSessionLoaded() bool {
	return c.State().IsSessionLoaded
}

// Guard decides what a protected view should do
func (c *Coordinator) Guard() Decision {
	state := c.State()
	switch {
	case !state.IsSessionLoaded:
		return DecisionLoading
	case state.Identity == nil:
		return DecisionRedirectLogin
	default:
		return DecisionAllow
	}
}
