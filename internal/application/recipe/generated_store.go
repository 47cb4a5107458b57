package recipe

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/alchemorsel/client/internal/domain/recipe"
	"github.com/alchemorsel/client/internal/ports/outbound"
	apperrors "github.com/alchemorsel/client/pkg/errors"
)

// GeneratedKey is the storage key of the locally kept generated recipes
const GeneratedKey = "userGeneratedRecipes"

// GeneratedStore keeps the recipes generated on this device so they can be
// browsed offline. Stored as a JSON array under GeneratedKey.
type GeneratedStore struct {
	storage outbound.KeyValueStore
	logger  *zap.Logger
	mu      sync.Mutex
}

// NewGeneratedStore creates a store over durable storage
func NewGeneratedStore(storage outbound.KeyValueStore, logger *zap.Logger) *GeneratedStore {
	return &GeneratedStore{storage: storage, logger: logger}
}

// Save appends the recipes whose id is not stored yet
func (g *GeneratedStore) Save(ctx context.Context, recipes []recipe.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	existing := g.loadLocked(ctx)
	seen := make(map[string]bool, len(existing))
	for _, r := range existing {
		seen[r.ID] = true
	}
	for _, r := range recipes {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		existing = append(existing, r)
	}
	return g.storeLocked(ctx, existing)
}

// List returns the stored recipes. Unreadable data reads as empty.
func (g *GeneratedStore) List(ctx context.Context) []recipe.Recipe {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loadLocked(ctx)
}

// Remove deletes the recipe with id
func (g *GeneratedStore) Remove(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	existing := g.loadLocked(ctx)
	kept := existing[:0]
	for _, r := range existing {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	return g.storeLocked(ctx, kept)
}

// Clear removes every stored recipe
func (g *GeneratedStore) Clear(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.storage.Delete(ctx, GeneratedKey); err != nil {
		return apperrors.NewStorageError("clear generated recipes", err)
	}
	return nil
}

func (g *GeneratedStore) loadLocked(ctx context.Context) []recipe.Recipe {
	raw, found, err := g.storage.Get(ctx, GeneratedKey)
	if err != nil {
		g.logger.Warn("Failed to read generated recipes", zap.Error(err))
		return []recipe.Recipe{}
	}
	if !found || raw == "" {
		return []recipe.Recipe{}
	}

	var recipes []recipe.Recipe
	if err := json.Unmarshal([]byte(raw), &recipes); err != nil {
		g.logger.Warn("Stored generated recipes are corrupt, ignoring them", zap.Error(err))
		return []recipe.Recipe{}
	}
	return recipes
}

func (g *GeneratedStore) storeLocked(ctx context.Context, recipes []recipe.Recipe) error {
	data, err := json.Marshal(recipes)
	if err != nil {
		return apperrors.Wrap(err, "Failed to encode generated recipes")
	}
	if err := g.storage.Set(ctx, GeneratedKey, string(data)); err != nil {
		return apperrors.NewStorageError("save generated recipes", err)
	}
	return nil
}
