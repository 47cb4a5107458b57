package dayplan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/alchemorsel/client/internal/domain/dayplan"
	"github.com/alchemorsel/client/internal/domain/user"
	"github.com/alchemorsel/client/internal/infrastructure/config"
	"github.com/alchemorsel/client/internal/infrastructure/http/gateway"
	"github.com/alchemorsel/client/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/client/internal/infrastructure/session"
	"github.com/alchemorsel/client/internal/infrastructure/validation"
	apperrors "github.com/alchemorsel/client/pkg/errors"
	"github.com/alchemorsel/client/test/testutils"
)

type DayPlanServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	api     *testutils.FakeAPI
	account user.User
	service *Service
}

func (s *DayPlanServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.api = testutils.NewFakeAPI(s.T())
	sessions := session.NewStore(memory.NewStore(), zap.NewNop())

	s.account = s.api.AddUser("ana@example.com", "secret1")
	s.Require().NoError(sessions.SetToken(s.ctx, s.api.IssueToken("ana@example.com")))

	factory, err := gateway.NewFactory(config.APIConfig{BaseURL: s.api.URL()}, sessions, zap.NewNop())
	s.Require().NoError(err)
	s.service = NewService(factory, validation.New(), zap.NewNop())
}

func (s *DayPlanServiceTestSuite) TestCreateAndList() {
	plan, err := s.service.Create(s.ctx, dayplan.CreateRequest{
		StartDate:       "2026-10-19",
		UserPreferences: s.api.Factory.Preferences(),
		UserID:          s.account.ID,
	})
	s.Require().NoError(err)
	s.Equal("2026-10-19", plan.Date)
	s.Len(plan.AllMeals(), 3)

	plans, err := s.service.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(plans, 1)
	s.Equal(plan.ID, plans[0].ID)
}

func (s *DayPlanServiceTestSuite) TestCreate_MissingPreferences_SendsNothing() {
	_, err := s.service.Create(s.ctx, dayplan.CreateRequest{
		StartDate:       "2026-10-19",
		UserPreferences: dayplan.Preferences{Objective: "maintain"},
	})

	s.True(apperrors.Is(err, apperrors.CodeValidationFailed))
	s.Zero(s.api.CountRequests("POST", "/dayPlan"))
}

func (s *DayPlanServiceTestSuite) TestGet_MatchesDirectAndNestedIDs() {
	direct := s.api.AddDayPlan(s.account.ID, s.api.Factory.DayPlan("2026-10-20"), false)
	wrapped := s.api.AddDayPlan(s.account.ID, s.api.Factory.DayPlan("2026-10-21"), true)

	got, err := s.service.Get(s.ctx, direct.ID)
	s.Require().NoError(err)
	s.Equal("2026-10-20", got.Date)

	byOuter, err := s.service.Get(s.ctx, wrapped.ID)
	s.Require().NoError(err)
	s.Equal("2026-10-21", byOuter.Date)

	byInner, err := s.service.Get(s.ctx, wrapped.DailyMealPlan.ID)
	s.Require().NoError(err)
	s.Equal(wrapped.DailyMealPlan.ID, byInner.ID)
}

func (s *DayPlanServiceTestSuite) TestGet_NotFound() {
	_, err := s.service.Get(s.ctx, "missing")
	s.True(apperrors.Is(err, apperrors.CodeNotFound))
	s.Equal("Plan not found", apperrors.Message(err))

	_, err = s.service.Get(s.ctx, "")
	s.True(apperrors.Is(err, apperrors.CodeInvalidArgument))
}

func TestDayPlanServiceTestSuite(t *testing.T) {
	suite.Run(t, new(DayPlanServiceTestSuite))
}
