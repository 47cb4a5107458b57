package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"

	"github.com/alchemorsel/client/internal/infrastructure/persistence/memory"
	apperrors "github.com/alchemorsel/client/pkg/errors"
	"github.com/alchemorsel/client/test/testutils"
)

type StoreTestSuite struct {
	suite.Suite
	ctx     context.Context
	backing *memory.Store
	store   *Store
}

func (s *StoreTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.backing = memory.NewStore()
	s.store = NewStore(s.backing, zaptest.NewLogger(s.T()))
}

func (s *StoreTestSuite) TestSetToken_ThenToken_ReturnsIt() {
	s.Require().NoError(s.store.SetToken(s.ctx, "abc123"))

	s.Equal("abc123", s.store.Token(s.ctx))

	persisted, found, err := s.backing.Get(s.ctx, TokenKey)
	s.Require().NoError(err)
	s.True(found)
	s.Equal("abc123", persisted)
}

func (s *StoreTestSuite) TestToken_LoadsFromDurableStorage() {
	s.Require().NoError(s.backing.Set(s.ctx, TokenKey, "xyz"))

	s.Equal("xyz", s.store.Token(s.ctx))
	s.True(s.store.HasToken(s.ctx))
}

func (s *StoreTestSuite) TestToken_EmptyStorage_ReturnsEmpty() {
	s.Empty(s.store.Token(s.ctx))
	s.False(s.store.HasToken(s.ctx))
}

func (s *StoreTestSuite) TestToken_IsCachedAfterFirstRead() {
	counting := testutils.NewCountingStore(s.backing)
	store := NewStore(counting, zaptest.NewLogger(s.T()))
	s.Require().NoError(s.backing.Set(s.ctx, TokenKey, "xyz"))

	for i := 0; i < 5; i++ {
		s.Equal("xyz", store.Token(s.ctx))
	}
	s.Equal(1, counting.Gets())
}

func (s *StoreTestSuite) TestClearToken_RemovesDurableEntry() {
	s.Require().NoError(s.store.SetToken(s.ctx, "abc123"))

	s.Require().NoError(s.store.ClearToken(s.ctx))

	s.Empty(s.store.Token(s.ctx))
	_, found, err := s.backing.Get(s.ctx, TokenKey)
	s.Require().NoError(err)
	s.False(found)
}

func (s *StoreTestSuite) TestClearToken_WithoutSession_IsNoop() {
	var events int32
	s.store.Subscribe(func(SessionEnded) { atomic.AddInt32(&events, 1) })

	s.Require().NoError(s.store.ClearToken(s.ctx))

	s.Zero(atomic.LoadInt32(&events))
}

func (s *StoreTestSuite) TestClearToken_PublishesClearedEvent() {
	var got []SessionEnded
	s.store.Subscribe(func(e SessionEnded) { got = append(got, e) })
	s.Require().NoError(s.store.SetToken(s.ctx, "abc123"))

	s.Require().NoError(s.store.ClearToken(s.ctx))

	s.Require().Len(got, 1)
	s.Equal(ReasonCleared, got[0].Reason)
	s.Equal("session.ended", got[0].EventName())
	s.False(got[0].OccurredAt.IsZero())
}

func (s *StoreTestSuite) TestSetToken_Empty_IsRejected() {
	s.Require().NoError(s.store.SetToken(s.ctx, "abc123"))

	err := s.store.SetToken(s.ctx, "")

	s.Require().Error(err)
	s.True(apperrors.Is(err, apperrors.CodeInvalidArgument))
	s.Equal("abc123", s.store.Token(s.ctx))
}

func (s *StoreTestSuite) TestEvict_RemovesTokenAndPublishesOnce() {
	var got []SessionEnded
	s.store.Subscribe(func(e SessionEnded) { got = append(got, e) })
	s.Require().NoError(s.store.SetToken(s.ctx, "abc123"))

	s.True(s.store.Evict(s.ctx, ReasonUnauthorized))
	s.False(s.store.Evict(s.ctx, ReasonUnauthorized))

	s.Empty(s.store.Token(s.ctx))
	s.Require().Len(got, 1)
	s.Equal(ReasonUnauthorized, got[0].Reason)
}

func (s *StoreTestSuite) TestEvict_CancelledContext_StillEvicts() {
	s.Require().NoError(s.store.SetToken(s.ctx, "abc123"))
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	s.True(s.store.Evict(ctx, ReasonUnauthorized))
	s.Empty(s.store.Token(s.ctx))
}

func (s *StoreTestSuite) TestEvict_Concurrent_PublishesExactlyOnce() {
	var events int32
	s.store.Subscribe(func(SessionEnded) { atomic.AddInt32(&events, 1) })
	s.Require().NoError(s.store.SetToken(s.ctx, "abc123"))

	var (
		wg      sync.WaitGroup
		winners int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.store.Evict(s.ctx, ReasonUnauthorized) {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), atomic.LoadInt32(&winners))
	s.Equal(int32(1), atomic.LoadInt32(&events))
	s.Empty(s.store.Token(s.ctx))
}

func (s *StoreTestSuite) TestSubscribe_UnsubscribeStopsDelivery() {
	var events int32
	unsubscribe := s.store.Subscribe(func(SessionEnded) { atomic.AddInt32(&events, 1) })
	unsubscribe()
	unsubscribe()

	s.Require().NoError(s.store.SetToken(s.ctx, "abc123"))
	s.store.Evict(s.ctx, ReasonUnauthorized)

	s.Zero(atomic.LoadInt32(&events))
}

func (s *StoreTestSuite) TestInvalidate_RereadsDurableStorage() {
	s.Require().NoError(s.store.SetToken(s.ctx, "first"))
	s.Require().NoError(s.backing.Set(s.ctx, TokenKey, "second"))

	s.Equal("first", s.store.Token(s.ctx))
	s.store.Invalidate()
	s.Equal("second", s.store.Token(s.ctx))
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func TestStore_StorageReadFailure_ReportsNoSession(t *testing.T) {
	backing := new(testutils.MockKeyValueStore)
	backing.On("Get", mock.Anything, TokenKey).Return("", false, errors.New("disk unavailable"))
	store := NewStore(backing, zaptest.NewLogger(t))

	assert.Empty(t, store.Token(context.Background()))
	backing.AssertExpectations(t)
}

func TestStore_SetToken_StorageFailure_KeepsPreviousToken(t *testing.T) {
	backing := new(testutils.MockKeyValueStore)
	backing.On("Set", mock.Anything, TokenKey, "first").Return(nil).Once()
	backing.On("Set", mock.Anything, TokenKey, "second").Return(errors.New("read-only")).Once()
	store := NewStore(backing, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, store.SetToken(ctx, "first"))
	err := store.SetToken(ctx, "second")

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeStorage))
	assert.Equal(t, "first", store.Token(ctx))
}

func TestStore_Evict_StorageFailure_StopsServingToken(t *testing.T) {
	backing := new(testutils.MockKeyValueStore)
	backing.On("Set", mock.Anything, TokenKey, "abc123").Return(nil).Once()
	backing.On("Delete", mock.Anything, TokenKey).Return(errors.New("locked"))
	backing.On("Get", mock.Anything, TokenKey).Return("abc123", true, nil)
	store := NewStore(backing, zaptest.NewLogger(t))
	ctx := context.Background()
	require.NoError(t, store.SetToken(ctx, "abc123"))
	var events int
	store.Subscribe(func(SessionEnded) { events++ })

	var ended bool
	assert.NotPanics(t, func() { ended = store.Evict(ctx, ReasonUnauthorized) })
	assert.True(t, ended)
	assert.Equal(t, 1, events)

	assert.Empty(t, store.Token(ctx))
	store.Invalidate()
	assert.Empty(t, store.Token(ctx))
	assert.False(t, store.Evict(ctx, ReasonUnauthorized))
	assert.Equal(t, 1, events)
}

func TestStore_Evict_StorageFailure_NewTokenIsServed(t *testing.T) {
	backing := new(testutils.MockKeyValueStore)
	backing.On("Set", mock.Anything, TokenKey, "abc123").Return(nil).Once()
	backing.On("Delete", mock.Anything, TokenKey).Return(errors.New("locked"))
	backing.On("Get", mock.Anything, TokenKey).Return("fresh456", true, nil)
	store := NewStore(backing, zaptest.NewLogger(t))
	ctx := context.Background()
	require.NoError(t, store.SetToken(ctx, "abc123"))

	store.Evict(ctx, ReasonUnauthorized)

	assert.Equal(t, "fresh456", store.Token(ctx))
}

func TestStore_ClearToken_StorageFailure_ReturnsError(t *testing.T) {
	backing := new(testutils.MockKeyValueStore)
	backing.On("Set", mock.Anything, TokenKey, "abc123").Return(nil)
	backing.On("Delete", mock.Anything, TokenKey).Return(errors.New("locked"))
	store := NewStore(backing, zaptest.NewLogger(t))
	ctx := context.Background()
	require.NoError(t, store.SetToken(ctx, "abc123"))

	err := store.ClearToken(ctx)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeStorage))
	assert.Equal(t, "abc123", store.Token(ctx))
}

func TestInspect(t *testing.T) {
	expires := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": expires.Unix(),
	}).SignedString([]byte("any-secret"))
	require.NoError(t, err)

	t.Run("JWT", func(t *testing.T) {
		info, err := Inspect(signed)
		require.NoError(t, err)
		assert.Equal(t, "user-1", info.Subject)
		require.NotNil(t, info.ExpiresAt)
		assert.True(t, expires.Equal(*info.ExpiresAt))
		assert.False(t, info.Expired(time.Now()))
		assert.True(t, info.Expired(expires.Add(time.Minute)))
	})

	t.Run("OpaqueToken", func(t *testing.T) {
		_, err := Inspect("abc123")
		assert.Error(t, err)
	})

	t.Run("StoreInfo_NoSession", func(t *testing.T) {
		store := NewStore(memory.NewStore(), zaptest.NewLogger(t))
		_, err := store.Info(context.Background())
		assert.True(t, apperrors.Is(err, apperrors.CodeInvalidArgument))
	})
}
