package testutils

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/alchemorsel/client/internal/domain/dayplan"
	"github.com/alchemorsel/client/internal/domain/recipe"
	"github.com/alchemorsel/client/internal/domain/user"
)

// Factory builds realistic test payloads from a seeded faker so runs are
// reproducible.
type Factory struct {
	faker *gofakeit.Faker
}

// NewFactory creates a factory with the given seed
func NewFactory(seed int64) *Factory {
	return &Factory{faker: gofakeit.New(seed)}
}

// ID returns a Mongo-style 24 character hex id
func (f *Factory) ID() string {
	return strings.ToLower(f.faker.DigitN(8) + f.faker.HexUint64()[2:])[:24]
}

// Registration returns a valid sign-up payload
func (f *Factory) Registration() user.Registration {
	return user.Registration{
		Name:      f.faker.Name(),
		Email:     f.faker.Email(),
		Password:  f.faker.Password(true, true, true, false, false, 12),
		Gender:    f.faker.RandomString([]string{"male", "female"}),
		Weight:    float64(f.faker.IntRange(50, 110)),
		Height:    float64(f.faker.IntRange(150, 200)),
		Objective: f.faker.RandomString([]string{"lose weight", "gain muscle", "maintain"}),
		Ability:   f.faker.RandomString([]string{"beginner", "intermediate", "expert"}),
		TypeDiet:  f.faker.RandomString([]string{"omnivore", "vegetarian", "vegan"}),
	}
}

// User returns a user as the API would return it
func (f *Factory) User() user.User {
	reg := f.Registration()
	return user.User{
		ID:        f.ID(),
		Name:      reg.Name,
		Email:     reg.Email,
		Gender:    reg.Gender,
		Weight:    reg.Weight,
		Height:    reg.Height,
		Objective: reg.Objective,
		Ability:   reg.Ability,
		TypeDiet:  reg.TypeDiet,
	}
}

// Recipe returns a recipe with a few ingredients and steps
func (f *Factory) Recipe() recipe.Recipe {
	ingredients := make([]recipe.Text, f.faker.IntRange(2, 5))
	for i := range ingredients {
		ingredients[i] = recipe.Text(f.faker.Vegetable())
	}
	steps := make([]recipe.Text, f.faker.IntRange(2, 4))
	for i := range steps {
		steps[i] = recipe.Text(f.faker.Sentence(6))
	}
	return recipe.Recipe{
		ID:              f.ID(),
		Name:            f.faker.Dinner(),
		Phrase:          f.faker.Sentence(5),
		PreparationTime: recipe.Text(fmt.Sprintf("%d min", f.faker.IntRange(10, 90))),
		People:          recipe.Text(fmt.Sprintf("%d", f.faker.IntRange(1, 6))),
		Ingredients:     ingredients,
		Steps:           steps,
		URLImage:        f.faker.URL(),
	}
}

// Recipes returns n recipes
func (f *Factory) Recipes(n int) []recipe.Recipe {
	out := make([]recipe.Recipe, n)
	for i := range out {
		out[i] = f.Recipe()
	}
	return out
}

// DayPlan returns a plan with breakfast, lunch and dinner for date
func (f *Factory) DayPlan(date string) dayplan.DayPlan {
	meals := make([]dayplan.Meal, 0, 3)
	for _, slot := range []string{"breakfast", "lunch", "dinner"} {
		r := f.Recipe()
		meals = append(meals, dayplan.Meal{Time: recipe.Text(slot), Meal: recipe.Text(r.Name), Recipe: &r})
	}
	return dayplan.DayPlan{ID: f.ID(), Date: date, Meals: meals}
}

// Preferences returns valid plan preferences
func (f *Factory) Preferences() dayplan.Preferences {
	reg := f.Registration()
	return dayplan.Preferences{
		Objective: reg.Objective,
		Ability:   reg.Ability,
		TypeDiet:  reg.TypeDiet,
	}
}
