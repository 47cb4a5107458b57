// Package dayplan contains the daily meal-plan payloads exchanged with the
// remote API.
package dayplan

import "github.com/alchemorsel/client/internal/domain/recipe"

// DayPlan is one generated daily meal plan. List responses sometimes wrap
// the plan in DailyMealPlan.
type DayPlan struct {
	ID            string   `json:"_id"`
	Date          string   `json:"date,omitempty"`
	Meals         []Meal   `json:"meals,omitempty"`
	DailyMealPlan *DayPlan `json:"dailyMealPlan,omitempty"`
}

// Unwrap returns the nested plan when present, otherwise p itself.
func (p *DayPlan) Unwrap() *DayPlan {
	if p.DailyMealPlan != nil {
		return p.DailyMealPlan
	}
	return p
}

// HasID reports whether id names this plan or its nested plan.
func (p *DayPlan) HasID(id string) bool {
	if p.ID == id {
		return true
	}
	return p.DailyMealPlan != nil && p.DailyMealPlan.ID == id
}

// AllMeals returns the meals of the plan or of its nested plan.
func (p *DayPlan) AllMeals() []Meal {
	if len(p.Meals) > 0 {
		return p.Meals
	}
	if p.DailyMealPlan != nil {
		return p.DailyMealPlan.Meals
	}
	return nil
}

// Meal is a slot in a day plan
type Meal struct {
	Time   recipe.Text    `json:"time,omitempty"`
	Meal   recipe.Text    `json:"meal,omitempty"`
	Recipe *recipe.Recipe `json:"recipe,omitempty"`
}

// Preferences drive plan generation
type Preferences struct {
	Objective string `json:"objetive" validate:"required"`
	Ability   string `json:"ability" validate:"required"`
	TypeDiet  string `json:"typeDiet" validate:"required"`
	Allergies string `json:"alergic,omitempty"`
}

// CreateRequest is the body of POST /dayPlan
type CreateRequest struct {
	StartDate       string      `json:"startDate" validate:"required"`
	UserPreferences Preferences `json:"userPreferences" validate:"required"`
	UserID          string      `json:"userId,omitempty"`
}
