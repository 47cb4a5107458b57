// Package recipe contains the recipe payloads exchanged with the remote API.
package recipe

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Recipe as returned by the recipe and generation endpoints
type Recipe struct {
	ID              string `json:"_id"`
	Name            string `json:"name"`
	Phrase          string `json:"phrase,omitempty"`
	PreparationTime Text   `json:"preparationTime,omitempty"`
	People          Text   `json:"people,omitempty"`
	Ingredients     []Text `json:"ingredients,omitempty"`
	Steps           []Text `json:"steps,omitempty"`
	URLImage        string `json:"urlImage,omitempty"`
	IsFavorite      bool   `json:"isFavorite,omitempty"`
}

// Matches reports whether query occurs in the name, phrase or any
// ingredient, case-insensitively. An empty query matches everything.
func (r Recipe) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(r.Name), q) || strings.Contains(strings.ToLower(r.Phrase), q) {
		return true
	}
	for _, ingredient := range r.Ingredients {
		if strings.Contains(strings.ToLower(string(ingredient)), q) {
			return true
		}
	}
	return false
}

// GenerationRequest is the body of POST /chat
type GenerationRequest struct {
	Ingredients []string `json:"ingredients" validate:"required,min=1,dive,notblank"`
}

// GenerationResult is the response of POST /chat. Older API versions fill
// Recipes instead of CreatedRecipes.
type GenerationResult struct {
	CreatedRecipes []Recipe `json:"createdRecipes,omitempty"`
	Recipes        []Recipe `json:"recipes,omitempty"`
}

// All returns the generated recipes from whichever field is populated.
func (g GenerationResult) All() []Recipe {
	if len(g.CreatedRecipes) > 0 {
		return g.CreatedRecipes
	}
	return g.Recipes
}

// Text is a display value the API sends as a string, a number, or an object
// with a name. Objects without a name keep their raw JSON.
type Text string

// UnmarshalJSON implements json.Unmarshaler
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*t = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case data[0] == '{':
		var named struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &named); err == nil && named.Name != "" {
			*t = Text(named.Name)
			return nil
		}
		*t = Text(data)
	default:
		*t = Text(data)
	}
	return nil
}

// String implements fmt.Stringer
func (t Text) String() string {
	return string(t)
}
