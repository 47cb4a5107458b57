// Package session holds the current bearer token. The token is persisted in
// durable storage and cached in memory; both are updated under one lock so
// they never disagree outside of a store operation.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alchemorsel/client/internal/ports/outbound"
	apperrors "github.com/alchemorsel/client/pkg/errors"
)

// TokenKey is the durable storage key of the bearer token.
const TokenKey = "accessToken"

// Store is the single source of truth for the current bearer token.
type Store struct {
	storage outbound.KeyValueStore
	logger  *zap.Logger
	events  *dispatcher
	now     func() time.Time

	mu     sync.Mutex
	cached string
	// evicted is a token whose durable entry could not be deleted. It is
	// never served again, even if storage still returns it.
	evicted string
}

// NewStore creates a session store over durable storage. Nothing is read
// until the first Token call.
func NewStore(storage outbound.KeyValueStore, logger *zap.Logger) *Store {
	return &Store{
		storage: storage,
		logger:  logger,
		events:  newDispatcher(),
		now:     time.Now,
	}
}

// SetToken persists token and caches it. An empty token is rejected with
// CodeInvalidArgument and leaves the stored token untouched.
func (s *Store) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return apperrors.NewInvalidArgumentError("Token cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Set(ctx, TokenKey, token); err != nil {
		return apperrors.NewStorageError("persist session token", err)
	}
	s.cached = token
	s.evicted = ""
	return nil
}

// Token returns the current token, or "" when there is no session. Storage
// read failures are logged and reported as "no session".
func (s *Store) Token(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadLocked(ctx)
}

// HasToken reports whether a session token is present
func (s *Store) HasToken(ctx context.Context) bool {
	return s.Token(ctx) != ""
}

func (s *Store) loadLocked(ctx context.Context) string {
	if s.cached != "" {
		return s.cached
	}
	value, found, err := s.storage.Get(ctx, TokenKey)
	if err != nil {
		s.logger.Warn("Failed to read session token", zap.Error(err))
		return ""
	}
	if !found {
		return ""
	}
	if value == s.evicted {
		if err := s.storage.Delete(ctx, TokenKey); err == nil {
			s.evicted = ""
		}
		return ""
	}
	s.cached = value
	return s.cached
}

// ClearToken removes the token from durable storage and the cache. It never
// navigates; subscribers receive SessionEnded if a session was active.
func (s *Store) ClearToken(ctx context.Context) error {
	s.mu.Lock()
	hadToken := s.loadLocked(ctx) != ""
	if err := s.storage.Delete(ctx, TokenKey); err != nil {
		s.mu.Unlock()
		return apperrors.NewStorageError("clear session token", err)
	}
	s.cached = ""
	s.evicted = ""
	s.mu.Unlock()

	if hadToken {
		s.publish(ReasonCleared)
	}
	return nil
}

// Evict ends the session after an authorization failure. It never fails:
// when the durable entry cannot be deleted the token is remembered as
// evicted and no longer served. Only the call that ended the session
// returns true and publishes SessionEnded, so concurrent evictions are
// observed once.
func (s *Store) Evict(ctx context.Context, reason EndReason) bool {
	// The request that triggered the eviction may already be cancelled.
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	token := s.loadLocked(ctx)
	if token == "" {
		s.mu.Unlock()
		return false
	}
	err := s.storage.Delete(ctx, TokenKey)
	s.cached = ""
	if err != nil {
		s.evicted = token
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Failed to delete evicted session token", zap.String("reason", string(reason)), zap.Error(err))
	}

	s.logger.Info("Session evicted", zap.String("reason", string(reason)))
	s.publish(reason)
	return true
}

// Invalidate drops the cached token so the next read goes to durable
// storage. Used when another process changed the storage.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.cached = ""
	s.mu.Unlock()
}

// Subscribe registers h for SessionEnded events and returns a function that
// removes it.
func (s *Store) Subscribe(h Handler) (unsubscribe func()) {
	return s.events.subscribe(h)
}

// Info inspects the current token's claims.
func (s *Store) Info(ctx context.Context) (*TokenInfo, error) {
	token := s.Token(ctx)
	if token == "" {
		return nil, apperrors.NewInvalidArgumentError("No active session")
	}
	return Inspect(token)
}

func (s *Store) publish(reason EndReason) {
	s.events.dispatch(SessionEnded{Reason: reason, OccurredAt: s.now()})
}
