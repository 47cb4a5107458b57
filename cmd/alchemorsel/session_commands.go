package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alchemorsel/client/internal/application/auth"
	"github.com/alchemorsel/client/internal/domain/user"
	apperrors "github.com/alchemorsel/client/pkg/errors"
)

// NotLoggedInMessage is returned by commands that need a logged-in user
const NotLoggedInMessage = `You are not logged in, run "alchemorsel login"`

// requireIdentity loads the identity behind the stored token
func requireIdentity(ctx context.Context, d deps) (*user.User, error) {
	d.Coordinator.Initialize(ctx)
	if d.Coordinator.Guard() != auth.DecisionAllow {
		return nil, apperrors.NewAppError(apperrors.CodeUnauthorized, NotLoggedInMessage, "")
	}
	return d.Coordinator.Identity(), nil
}

func (c *cli) loginCommand() *cobra.Command {
	var creds user.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Args:  cobra.NoArgs,
		RunE: c.runE(func(cmd *cobra.Command, _ []string, d deps) error {
			ctx := cmd.Context()
			token, err := d.Users.Login(ctx, creds)
			if err != nil {
				return err
			}

			var identity *user.User
			if err := d.Coordinator.Login(ctx, token, func(u *user.User) { identity = u }); err != nil {
				return err
			}
			if identity == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Logged in, but the profile could not be loaded")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s <%s>\n", identity.Name, identity.Email)
			return nil
		}),
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password")
	return cmd
}

func (c *cli) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: c.runE(func(cmd *cobra.Command, _ []string, d deps) error {
			if err := d.Sessions.ClearToken(cmd.Context()); err != nil {
				return err
			}
			d.Coordinator.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		}),
	}
}

func (c *cli) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: c.runE(func(cmd *cobra.Command, _ []string, d deps) error {
			identity, err := requireIdentity(cmd.Context(), d)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), identity)
		}),
	}
}

func (c *cli) tokenCommand() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect the stored session token",
		Args:  cobra.NoArgs,
		RunE: c.runE(func(cmd *cobra.Command, _ []string, d deps) error {
			ctx := cmd.Context()
			if raw {
				token := d.Sessions.Token(ctx)
				if token == "" {
					return apperrors.NewAppError(apperrors.CodeUnauthorized, NotLoggedInMessage, "")
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			}

			info, err := d.Sessions.Info(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "subject: %s\n", info.Subject)
			if info.IssuedAt != nil {
				fmt.Fprintf(out, "issued:  %s\n", info.IssuedAt.Format(time.RFC3339))
			}
			if info.ExpiresAt != nil {
				state := "valid"
				if info.Expired(time.Now()) {
					state = "expired"
				}
				fmt.Fprintf(out, "expires: %s (%s)\n", info.ExpiresAt.Format(time.RFC3339), state)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the token itself")
	return cmd
}

func (c *cli) registerCommand() *cobra.Command {
	var reg user.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: c.runE(func(cmd *cobra.Command, _ []string, d deps) error {
			created, err := d.Users.Register(cmd.Context(), reg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account created for %s, you can now log in\n", created.Email)
			return nil
		}),
	}
	f := cmd.Flags()
	f.StringVar(&reg.Name, "name", "", "display name")
	f.StringVar(&reg.Email, "email", "", "account email")
	f.StringVar(&reg.Password, "password", "", "account password")
	f.StringVar(&reg.Gender, "gender", "", "gender")
	f.Float64Var(&reg.Weight, "weight", 0, "weight in kg")
	f.Float64Var(&reg.Height, "height", 0, "height in cm")
	f.StringVar(&reg.Objective, "objective", "", "dietary objective")
	f.StringVar(&reg.Ability, "ability", "", "cooking ability")
	f.StringVar(&reg.TypeDiet, "diet", "", "diet type")
	f.StringVar(&reg.Allergies, "allergies", "", "allergies")
	return cmd
}
