// Package dayplan provides the daily meal-plan use cases
package dayplan

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/alchemorsel/client/internal/domain/dayplan"
	"github.com/alchemorsel/client/internal/infrastructure/http/gateway"
	"github.com/alchemorsel/client/internal/infrastructure/validation"
	"github.com/alchemorsel/client/internal/ports/inbound"
	apperrors "github.com/alchemorsel/client/pkg/errors"
)

// Service implements the day-plan use cases. Every call needs a session.
type Service struct {
	auth      *gateway.Gateway
	validator *validation.Validator
	logger    *zap.Logger
}

// NewService creates a new day-plan service
func NewService(gateways *gateway.Factory, validator *validation.Validator, logger *zap.Logger) *Service {
	return &Service{
		auth:      gateways.Authenticated(),
		validator: validator,
		logger:    logger.Named("dayplan-service"),
	}
}

// Create asks the API to build a plan starting at req.StartDate
func (s *Service) Create(ctx context.Context, req dayplan.CreateRequest) (*dayplan.DayPlan, error) {
	req.StartDate = strings.TrimSpace(req.StartDate)
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	var plan dayplan.DayPlan
	if err := s.auth.Post(ctx, "/dayPlan", req, &plan); err != nil {
		return nil, err
	}
	s.logger.Info("Day plan created", zap.String("start_date", req.StartDate), zap.String("plan_id", plan.Unwrap().ID))
	return plan.Unwrap(), nil
}

// List returns the current user's plans as the API stores them
func (s *Service) List(ctx context.Context) ([]dayplan.DayPlan, error) {
	var raw json.RawMessage
	if err := s.auth.Get(ctx, "/userDayPlans", &raw); err != nil {
		return nil, err
	}

	result := gjson.ParseBytes(raw)
	if !result.IsArray() {
		return []dayplan.DayPlan{}, nil
	}
	var plans []dayplan.DayPlan
	if err := json.Unmarshal([]byte(result.Raw), &plans); err != nil {
		return nil, apperrors.NewAppError(apperrors.CodeAPIError, gateway.MessageBadPayload, "").WithCause(err)
	}
	return plans, nil
}

// Get finds a plan by its id or the id of its nested daily plan. The API
// has no single-plan endpoint, so the list is fetched and searched.
func (s *Service) Get(ctx context.Context, id string) (*dayplan.DayPlan, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewInvalidArgumentError("Plan ID is required")
	}

	plans, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range plans {
		if plans[i].HasID(id) {
			return plans[i].Unwrap(), nil
		}
	}
	return nil, apperrors.NewNotFoundError("Plan")
}

var _ inbound.DayPlanService = (*Service)(nil)
