package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alchemorsel/client/internal/domain/user"
	apperrors "github.com/alchemorsel/client/pkg/errors"
	"github.com/alchemorsel/client/pkg/healthcheck"
)

func (c *cli) profileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage your account",
	}

	var update user.ProfileUpdate
	edit := &cobra.Command{
		Use:   "edit",
		Short: "Update profile fields",
		Args:  cobra.NoArgs,
		RunE: c.runE(func(cmd *cobra.Command, _ []string, d deps) error {
			ctx := cmd.Context()
			identity, err := requireIdentity(ctx, d)
			if err != nil {
				return err
			}
			if update == (user.ProfileUpdate{}) {
				return apperrors.NewInvalidArgumentError("Nothing to update, pass at least one field")
			}
			updated, err := d.Users.Edit(ctx, identity.ID, update)
			if err != nil {
				return err
			}
			d.Coordinator.UpdateIdentity(updated)
			return printJSON(cmd.OutOrStdout(), updated)
		}),
	}
	f := edit.Flags()
	f.StringVar(&update.Name, "name", "", "display name")
	f.StringVar(&update.Email, "email", "", "account email")
	f.StringVar(&update.Gender, "gender", "", "gender")
	f.Float64Var(&update.Weight, "weight", 0, "weight in kg")
	f.Float64Var(&update.Height, "height", 0, "height in cm")
	f.StringVar(&update.Objective, "objective", "", "dietary objective")
	f.StringVar(&update.Ability, "ability", "", "cooking ability")
	f.StringVar(&update.TypeDiet, "diet", "", "diet type")
	f.StringVar(&update.Allergies, "allergies", "", "allergies")

	var confirmed bool
	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete your account and log out",
		Args:  cobra.NoArgs,
		RunE: c.runE(func(cmd *cobra.Command, _ []string, d deps) error {
			if !confirmed {
				return apperrors.NewInvalidArgumentError("Account deletion needs --yes")
			}
			ctx := cmd.Context()
			identity, err := requireIdentity(ctx, d)
			if err != nil {
				return err
			}
			if err := d.Users.Delete(ctx, identity.ID); err != nil {
				return err
			}
			if err := d.Sessions.ClearToken(ctx); err != nil {
				return err
			}
			d.Coordinator.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Account deleted")
			return nil
		}),
	}
	deleteCmd.Flags().BoolVar(&confirmed, "yes", false, "confirm the deletion")

	avatar := &cobra.Command{
		Use:   "avatar <image>",
		Short: "Upload a profile picture",
		Args:  cobra.ExactArgs(1),
		RunE: c.runE(func(cmd *cobra.Command, args []string, d deps) error {
			file, err := os.Open(args[0])
			if err != nil {
				return apperrors.NewInvalidArgumentError(fmt.Sprintf("Cannot read %s", args[0])).WithCause(err)
			}
			defer file.Close()

			upload, err := d.Users.UploadAvatar(cmd.Context(), filepath.Base(args[0]), file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Avatar uploaded: %s\n", upload.ImageURL())
			return nil
		}),
	}

	cmd.AddCommand(edit, deleteCmd, avatar)
	return cmd
}

func (c *cli) healthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the API and local storage are reachable",
		Args:  cobra.NoArgs,
		RunE: c.runE(func(cmd *cobra.Command, _ []string, d deps) error {
			response := d.Health.Check(cmd.Context())
			for _, check := range response.Checks {
				line := fmt.Sprintf("%-8s %s", check.Name, check.Status)
				if check.Message != "" {
					line += ": " + check.Message
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			if response.Status != healthcheck.StatusHealthy {
				return apperrors.NewAppError(apperrors.CodeServiceUnavailable, "Health check failed for "+d.Gateways.BaseURL(), "")
			}
			return nil
		}),
	}
}
