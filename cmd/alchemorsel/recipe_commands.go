package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alchemorsel/client/internal/domain/recipe"
)

func (c *cli) recipesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recipes",
		Short: "Browse recipes and favorites",
	}

	var asJSON bool
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print full JSON instead of a summary")
	render := func(w io.Writer, recipes []recipe.Recipe) error {
		if asJSON {
			return printJSON(w, recipes)
		}
		printRecipeList(w, recipes)
		return nil
	}

	var local bool
	generated := &cobra.Command{
		Use:   "generated",
		Short: "List recipes generated for you",
		Args:  cobra.NoArgs,
		RunE: c.runE(func(cmd *cobra.Command, _ []string, d deps) error {
			if local {
				return render(cmd.OutOrStdout(), d.Recipes.Generated(cmd.Context()))
			}
			recipes, err := d.Recipes.UserGenerated(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), recipes)
		}),
	}
	generated.Flags().BoolVar(&local, "local", false, "list the recipes generated on this device")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all recipes",
			Args:  cobra.NoArgs,
			RunE: c.runE(func(cmd *cobra.Command, _ []string, d deps) error {
				recipes, err := d.Recipes.List(cmd.Context())
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), recipes)
			}),
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show one recipe",
			Args:  cobra.ExactArgs(1),
			RunE: c.runE(func(cmd *cobra.Command, args []string, d deps) error {
				r, err := d.Recipes.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), r)
				}
				printRecipe(cmd.OutOrStdout(), r)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "search <query>",
			Short: "Search recipes by name, phrase or ingredient",
			Args:  cobra.MinimumNArgs(1),
			RunE: c.runE(func(cmd *cobra.Command, args []string, d deps) error {
				recipes, err := d.Recipes.Search(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), recipes)
			}),
		},
		&cobra.Command{
			Use:   "favorite <id>",
			Short: "Toggle a recipe as favorite",
			Args:  cobra.ExactArgs(1),
			RunE: c.runE(func(cmd *cobra.Command, args []string, d deps) error {
				r, err := d.Recipes.ToggleFavorite(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				state := "removed from"
				if r.IsFavorite {
					state = "added to"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s favorites\n", displayName(r), state)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "favorites",
			Short: "List your favorite recipes",
			Args:  cobra.NoArgs,
			RunE: c.runE(func(cmd *cobra.Command, _ []string, d deps) error {
				recipes, err := d.Recipes.Favorites(cmd.Context())
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), recipes)
			}),
		},
		generated,
	)
	return cmd
}

func (c *cli) generateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "generate <ingredient>...",
		Short: "Generate recipes from ingredients",
		Long:  "Generate recipes from ingredients. Ingredients may be separate arguments or comma separated.",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.runE(func(cmd *cobra.Command, args []string, d deps) error {
			var ingredients []string
			for _, arg := range args {
				ingredients = append(ingredients, strings.Split(arg, ",")...)
			}
			recipes, err := d.Recipes.Generate(cmd.Context(), ingredients)
			if err != nil {
				return err
			}
			for i := range recipes {
				printRecipe(cmd.OutOrStdout(), &recipes[i])
			}
			return nil
		}),
	}
}

func displayName(r *recipe.Recipe) string {
	if r.Name == "" {
		return "Recipe " + r.ID
	}
	return r.Name
}

func printRecipeList(w io.Writer, recipes []recipe.Recipe) {
	if len(recipes) == 0 {
		fmt.Fprintln(w, "No recipes found")
		return
	}
	for i := range recipes {
		r := &recipes[i]
		star := " "
		if r.IsFavorite {
			star = "*"
		}
		fmt.Fprintf(w, "%s %-26s %s\n", star, r.ID, displayName(r))
	}
}

func printRecipe(w io.Writer, r *recipe.Recipe) {
	fmt.Fprintf(w, "%s (%s)\n", displayName(r), r.ID)
	if r.Phrase != "" {
		fmt.Fprintf(w, "  %s\n", r.Phrase)
	}
	if r.PreparationTime != "" {
		fmt.Fprintf(w, "  Preparation: %s\n", r.PreparationTime)
	}
	if r.People != "" {
		fmt.Fprintf(w, "  Serves: %s\n", r.People)
	}
	if len(r.Ingredients) > 0 {
		fmt.Fprintln(w, "  Ingredients:")
		for _, ingredient := range r.Ingredients {
			fmt.Fprintf(w, "    - %s\n", ingredient)
		}
	}
	if len(r.Steps) > 0 {
		fmt.Fprintln(w, "  Steps:")
		for i, step := range r.Steps {
			fmt.Fprintf(w, "    %d. %s\n", i+1, step)
		}
	}
}
