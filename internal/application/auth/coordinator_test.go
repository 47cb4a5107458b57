package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	userapp "github.com/alchemorsel/client/internal/application/user"
	"github.com/alchemorsel/client/internal/domain/user"
	"github.com/alchemorsel/client/internal/infrastructure/config"
	"github.com/alchemorsel/client/internal/infrastructure/http/gateway"
	"github.com/alchemorsel/client/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/client/internal/infrastructure/session"
	"github.com/alchemorsel/client/internal/infrastructure/validation"
	apperrors "github.com/alchemorsel/client/pkg/errors"
	"github.com/alchemorsel/client/test/testutils"
)

type CoordinatorTestSuite struct {
	suite.Suite
	ctx         context.Context
	api         *testutils.FakeAPI
	storage     *memory.Store
	sessions    *session.Store
	coordinator *Coordinator
}

func (s *CoordinatorTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.api = testutils.NewFakeAPI(s.T())
	s.storage = memory.NewStore()
	s.rebuild()
}

// rebuild simulates a process start over the same durable storage
func (s *CoordinatorTestSuite) rebuild() {
	s.sessions = session.NewStore(s.storage, zap.NewNop())
	factory, err := gateway.NewFactory(config.APIConfig{BaseURL: s.api.URL()}, s.sessions, zap.NewNop())
	s.Require().NoError(err)
	users := userapp.NewService(factory, validation.New(), zap.NewNop())
	s.coordinator = NewCoordinator(s.sessions, users, zap.NewNop())
	s.sessions.Subscribe(s.coordinator.HandleSessionEnded)
}

func (s *CoordinatorTestSuite) TestLogin_LoadsIdentity() {
	account := s.api.AddUser("ana@example.com", "secret1")
	token := s.api.IssueToken("ana@example.com")

	var called *user.User
	err := s.coordinator.Login(s.ctx, token, func(u *user.User) { called = u })

	s.Require().NoError(err)
	s.Require().NotNil(called)
	s.Equal(account.ID, called.ID)
	s.Equal(token, s.sessions.Token(s.ctx))
	s.Equal(State{Identity: called, IsSessionLoaded: true}, s.coordinator.State())
	s.Equal(DecisionAllow, s.coordinator.Guard())
}

func (s *CoordinatorTestSuite) TestLogin_RejectedToken_EndsAnonymous() {
	var called bool
	err := s.coordinator.Login(s.ctx, "abc123", func(*user.User) { called = true })

	s.Require().NoError(err)
	s.False(called)
	s.Empty(s.sessions.Token(s.ctx))
	s.Nil(s.coordinator.Identity())
	s.True(s.coordinator.IsSessionLoaded())
	s.Equal(DecisionRedirectLogin, s.coordinator.Guard())
}

func (s *CoordinatorTestSuite) TestLogin_EmptyToken() {
	err := s.coordinator.Login(s.ctx, "", nil)

	s.True(apperrors.Is(err, apperrors.CodeInvalidArgument))
	s.Empty(s.api.Requests())
	s.Equal(DecisionLoading, s.coordinator.Guard())
}

func (s *CoordinatorTestSuite) TestInitialize_WithoutToken_NoNetwork() {
	s.coordinator.Initialize(s.ctx)

	s.Empty(s.api.Requests())
	s.Equal(State{IsSessionLoaded: true}, s.coordinator.State())
}

func (s *CoordinatorTestSuite) TestInitialize_WithStoredToken_RestoresIdentity() {
	account := s.api.AddUser("ana@example.com", "secret1")
	s.Require().NoError(s.sessions.SetToken(s.ctx, s.api.IssueToken("ana@example.com")))
	s.rebuild()

	s.coordinator.Initialize(s.ctx)

	s.Require().NotNil(s.coordinator.Identity())
	s.Equal(account.ID, s.coordinator.Identity().ID)
	s.Equal(1, s.api.CountRequests("GET", "/users/me"))
}

func (s *CoordinatorTestSuite) TestLogout_KeepsToken() {
	s.api.AddUser("ana@example.com", "secret1")
	token := s.api.IssueToken("ana@example.com")
	s.Require().NoError(s.coordinator.Login(s.ctx, token, nil))

	s.coordinator.Logout()

	s.Equal(State{}, s.coordinator.State())
	s.Equal(token, s.sessions.Token(s.ctx))
	s.Equal(DecisionLoading, s.coordinator.Guard())
}

func (s *CoordinatorTestSuite) TestSessionEnded_DropsIdentity() {
	s.api.AddUser("ana@example.com", "secret1")
	s.Require().NoError(s.coordinator.Login(s.ctx, s.api.IssueToken("ana@example.com"), nil))

	s.Require().NoError(s.sessions.ClearToken(s.ctx))

	s.Equal(DecisionRedirectLogin, s.coordinator.Guard())
}

func (s *CoordinatorTestSuite) TestUpdateIdentity() {
	s.api.AddUser("ana@example.com", "secret1")
	s.Require().NoError(s.coordinator.Login(s.ctx, s.api.IssueToken("ana@example.com"), nil))

	s.coordinator.UpdateIdentity(&user.User{ID: "x", Name: "Renamed"})

	s.Equal("Renamed", s.coordinator.Identity().Name)
	s.True(s.coordinator.IsSessionLoaded())
}

func TestCoordinatorTestSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorTestSuite))
}

type mockIdentityFetcher struct {
	mock.Mock
}

func (m *mockIdentityFetcher) CurrentUser(ctx context.Context) (*user.User, error) {
	args := m.Called(ctx)
	u, _ := args.Get(0).(*user.User)
	return u, args.Error(1)
}

func TestFetchCurrentIdentity_DiscardedAfterLogout(t *testing.T) {
	sessions := session.NewStore(memory.NewStore(), zap.NewNop())
	require.NoError(t, sessions.SetToken(context.Background(), "abc123"))

	fetcher := new(mockIdentityFetcher)
	var coordinator *Coordinator
	fetcher.On("CurrentUser", mock.Anything).
		Run(func(mock.Arguments) { coordinator.Logout() }).
		Return(&user.User{ID: "u1"}, nil)
	coordinator = NewCoordinator(sessions, fetcher, zap.NewNop())

	var called bool
	got := coordinator.FetchCurrentIdentity(context.Background(), func(*user.User) { called = true })

	assert.Nil(t, got)
	assert.False(t, called)
	assert.Equal(t, State{}, coordinator.State())
}

func TestFetchCurrentIdentity_DiscardedAfterEviction(t *testing.T) {
	ctx := context.Background()
	sessions := session.NewStore(memory.NewStore(), zap.NewNop())
	require.NoError(t, sessions.SetToken(ctx, "abc123"))

	fetcher := new(mockIdentityFetcher)
	fetcher.On("CurrentUser", mock.Anything).
		Run(func(mock.Arguments) { sessions.Evict(ctx, session.ReasonUnauthorized) }).
		Return(&user.User{ID: "u1"}, nil)
	coordinator := NewCoordinator(sessions, fetcher, zap.NewNop())
	sessions.Subscribe(coordinator.HandleSessionEnded)

	var called bool
	got := coordinator.FetchCurrentIdentity(ctx, func(*user.User) { called = true })

	assert.Nil(t, got)
	assert.False(t, called)
	assert.Empty(t, sessions.Token(ctx))
	assert.Nil(t, coordinator.Identity())
	assert.Equal(t, State{IsSessionLoaded: true}, coordinator.State())
	assert.Equal(t, DecisionRedirectLogin, coordinator.Guard())
}

func TestFetchCurrentIdentity_FailureIsNotFatal(t *testing.T) {
	sessions := session.NewStore(memory.NewStore(), zap.NewNop())
	fetcher := new(mockIdentityFetcher)
	fetcher.On("CurrentUser", mock.Anything).Return(nil, errors.New("boom"))
	coordinator := NewCoordinator(sessions, fetcher, zap.NewNop())

	assert.Nil(t, coordinator.FetchCurrentIdentity(context.Background(), nil))
	assert.Equal(t, State{IsSessionLoaded: true}, coordinator.State())
	fetcher.AssertExpectations(t)
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "loading", DecisionLoading.String())
	assert.Equal(t, "redirect-login", DecisionRedirectLogin.String())
	assert.Equal(t, "allow", DecisionAllow.String())
}
