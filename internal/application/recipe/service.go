// Package recipe provides the recipe browsing, favorite and generation use
// cases
package recipe

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/alchemorsel/client/internal/domain/recipe"
	"github.com/alchemorsel/client/internal/infrastructure/http/gateway"
	"github.com/alchemorsel/client/internal/infrastructure/validation"
	"github.com/alchemorsel/client/internal/ports/inbound"
	apperrors "github.com/alchemorsel/client/pkg/errors"
)

// Service implements the recipe use cases
type Service struct {
	public    *gateway.Gateway
	auth      *gateway.Gateway
	generated *GeneratedStore
	validator *validation.Validator
	logger    *zap.Logger
}

// NewService creates a new recipe service
func NewService(
	gateways *gateway.Factory,
	generated *GeneratedStore,
	validator *validation.Validator,
	logger *zap.Logger,
) *Service {
	return &Service{
		public:    gateways.Public(),
		auth:      gateways.Authenticated(),
		generated: generated,
		validator: validator,
		logger:    logger.Named("recipe-service"),
	}
}

// List returns all public recipes
func (s *Service) List(ctx context.Context) ([]recipe.Recipe, error) {
	return s.list(ctx, s.public, "/recipes")
}

// Get returns one recipe
func (s *Service) Get(ctx context.Context, id string) (*recipe.Recipe, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewInvalidArgumentError("Recipe ID is required")
	}
	var r recipe.Recipe
	if err := s.public.Get(ctx, "/recipes/"+url.PathEscape(id), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Search filters the public recipes by name, phrase or ingredient
func (s *Service) Search(ctx context.Context, query string) ([]recipe.Recipe, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	matches := make([]recipe.Recipe, 0, len(all))
	for _, r := range all {
		if r.Matches(query) {
			matches = append(matches, r)
		}
	}
	return matches, nil
}

// ToggleFavorite flips the favorite flag of a recipe for the current user
func (s *Service) ToggleFavorite(ctx context.Context, id string) (*recipe.Recipe, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewInvalidArgumentError("Recipe ID is required")
	}
	var r recipe.Recipe
	if err := s.auth.Put(ctx, "/recipes/"+url.PathEscape(id)+"/favorite", nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Favorites returns the current user's favorite recipes
func (s *Service) Favorites(ctx context.Context) ([]recipe.Recipe, error) {
	return s.list(ctx, s.auth, "/recipes/favorites")
}

// UserGenerated returns the recipes the API generated for the current user
func (s *Service) UserGenerated(ctx context.Context) ([]recipe.Recipe, error) {
	return s.list(ctx, s.auth, "/recipes/user/generated")
}

// Generate asks the API for recipes using ingredients and keeps the result
// locally. Blank ingredients are dropped; at least one is required.
func (s *Service) Generate(ctx context.Context, ingredients []string) ([]recipe.Recipe, error) {
	req := recipe.GenerationRequest{Ingredients: make([]string, 0, len(ingredients))}
	for _, ingredient := range ingredients {
		if trimmed := strings.TrimSpace(ingredient); trimmed != "" {
			req.Ingredients = append(req.Ingredients, trimmed)
		}
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	var result recipe.GenerationResult
	if err := s.auth.Post(ctx, "/chat", req, &result); err != nil {
		return nil, err
	}
	recipes := result.All()

	if s.generated != nil {
		if err := s.generated.Save(ctx, recipes); err != nil {
			s.logger.Warn("Failed to keep generated recipes locally", zap.Error(err))
		}
	}
	s.logger.Info("Recipes generated", zap.Int("count", len(recipes)), zap.Strings("ingredients", req.Ingredients))
	return recipes, nil
}

// Generated returns the recipes generated on this device
func (s *Service) Generated(ctx context.Context) []recipe.Recipe {
	if s.generated == nil {
		return []recipe.Recipe{}
	}
	return s.generated.List(ctx)
}

// list decodes a recipe list. A non-array body reads as empty, except an
// object wrapping the list in "recipes".
func (s *Service) list(ctx context.Context, gw *gateway.Gateway, path string) ([]recipe.Recipe, error) {
	var raw json.RawMessage
	if err := gw.Get(ctx, path, &raw); err != nil {
		return nil, err
	}

	result := gjson.ParseBytes(raw)
	if result.IsObject() {
		result = result.Get("recipes")
	}
	if !result.IsArray() {
		s.logger.Debug("Recipe list response is not an array", zap.String("path", path))
		return []recipe.Recipe{}, nil
	}

	var recipes []recipe.Recipe
	if err := json.Unmarshal([]byte(result.Raw), &recipes); err != nil {
		return nil, apperrors.NewAppError(apperrors.CodeAPIError, gateway.MessageBadPayload, "").WithCause(err)
	}
	return recipes, nil
}

var _ inbound.RecipeService = (*Service)(nil)
