// Package inbound defines the use cases the application exposes to driving
// adapters such as the CLI.
package inbound

import (
	"context"
	"io"

	"github.com/alchemorsel/client/internal/domain/dayplan"
	"github.com/alchemorsel/client/internal/domain/recipe"
	"github.com/alchemorsel/client/internal/domain/user"
)

// UserService covers accounts and profiles
type UserService interface {
	Register(ctx context.Context, reg user.Registration) (*user.User, error)
	Login(ctx context.Context, creds user.Credentials) (string, error)
	CurrentUser(ctx context.Context) (*user.User, error)
	Edit(ctx context.Context, id string, update user.ProfileUpdate) (*user.User, error)
	Delete(ctx context.Context, id string) error
	UploadAvatar(ctx context.Context, fileName string, content io.Reader) (*user.AvatarUpload, error)
}

// RecipeService covers browsing, favorites and generation
type RecipeService interface {
	List(ctx context.Context) ([]recipe.Recipe, error)
	Get(ctx context.Context, id string) (*recipe.Recipe, error)
	Search(ctx context.Context, query string) ([]recipe.Recipe, error)
	ToggleFavorite(ctx context.Context, id string) (*recipe.Recipe, error)
	Favorites(ctx context.Context) ([]recipe.Recipe, error)
	UserGenerated(ctx context.Context) ([]recipe.Recipe, error)
	Generate(ctx context.Context, ingredients []string) ([]recipe.Recipe, error)
	Generated(ctx context.Context) []recipe.Recipe
}

// DayPlanService covers daily meal plans
type DayPlanService interface {
	Create(ctx context.Context, req dayplan.CreateRequest) (*dayplan.DayPlan, error)
	List(ctx context.Context) ([]dayplan.DayPlan, error)
	Get(ctx context.Context, id string) (*dayplan.DayPlan, error)
}
