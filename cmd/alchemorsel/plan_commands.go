package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/alchemorsel/client/internal/domain/dayplan"
)

func (c *cli) plansCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Create and browse daily meal plans",
	}

	var req dayplan.CreateRequest
	create := &cobra.Command{
		Use:   "create",
		Short: "Generate a daily meal plan",
		Args:  cobra.NoArgs,
		RunE: c.runE(func(cmd *cobra.Command, _ []string, d deps) error {
			ctx := cmd.Context()
			identity, err := requireIdentity(ctx, d)
			if err != nil {
				return err
			}
			req.UserID = identity.ID
			fillPreferences(&req.UserPreferences, identity.Objective, identity.Ability, identity.TypeDiet, identity.Allergies)

			plan, err := d.Plans.Create(ctx, req)
			if err != nil {
				return err
			}
			printPlan(cmd.OutOrStdout(), plan)
			return nil
		}),
	}
	f := create.Flags()
	f.StringVar(&req.StartDate, "start-date", time.Now().Format(time.DateOnly), "first day of the plan (YYYY-MM-DD)")
	f.StringVar(&req.UserPreferences.Objective, "objective", "", "dietary objective (defaults to your profile)")
	f.StringVar(&req.UserPreferences.Ability, "ability", "", "cooking ability (defaults to your profile)")
	f.StringVar(&req.UserPreferences.TypeDiet, "diet", "", "diet type (defaults to your profile)")
	f.StringVar(&req.UserPreferences.Allergies, "allergies", "", "allergies (defaults to your profile)")

	cmd.AddCommand(
		create,
		&cobra.Command{
			Use:   "list",
			Short: "List your meal plans",
			Args:  cobra.NoArgs,
			RunE: c.runE(func(cmd *cobra.Command, _ []string, d deps) error {
				plans, err := d.Plans.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(plans) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No meal plans yet")
					return nil
				}
				for i := range plans {
					plan := plans[i].Unwrap()
					fmt.Fprintf(cmd.OutOrStdout(), "%-26s %s  %d meals\n", plan.ID, plan.Date, len(plans[i].AllMeals()))
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show one meal plan",
			Args:  cobra.ExactArgs(1),
			RunE: c.runE(func(cmd *cobra.Command, args []string, d deps) error {
				plan, err := d.Plans.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printPlan(cmd.OutOrStdout(), plan)
				return nil
			}),
		},
	)
	return cmd
}

// fillPreferences uses the profile values for preferences not given as flags
func fillPreferences(p *dayplan.Preferences, objective, ability, diet, allergies string) {
	if p.Objective == "" {
		p.Objective = objective
	}
	if p.Ability == "" {
		p.Ability = ability
	}
	if p.TypeDiet == "" {
		p.TypeDiet = diet
	}
	if p.Allergies == "" {
		p.Allergies = allergies
	}
}

func printPlan(w io.Writer, plan *dayplan.DayPlan) {
	fmt.Fprintf(w, "Plan %s", plan.ID)
	if plan.Date != "" {
		fmt.Fprintf(w, " for %s", plan.Date)
	}
	fmt.Fprintln(w)
	for _, meal := range plan.AllMeals() {
		name := meal.Meal.String()
		if meal.Recipe != nil {
			name = displayName(meal.Recipe)
		}
		fmt.Fprintf(w, "  %-10s %s\n", meal.Time, name)
	}
}
