// Package main provides the alchemorsel command line client.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	apperrors "github.com/alchemorsel/client/pkg/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), apperrors.Message(err))
		stop()
		os.Exit(1)
	}
}

// cli carries the persistent flags shared by every command
type cli struct {
	configPath  string
	metricsFile string
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "alchemorsel",
		Short:         "Command line client for the Alchemorsel recipe API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&c.metricsFile, "metrics-file", "", "write API request metrics to this file after the command")

	root.AddCommand(
		c.loginCommand(),
		c.logoutCommand(),
		c.whoamiCommand(),
		c.tokenCommand(),
		c.registerCommand(),
		c.recipesCommand(),
		c.generateCommand(),
		c.plansCommand(),
		c.profileCommand(),
		c.healthCommand(),
	)
	return root
}

// runE adapts fn into a cobra RunE that builds the dependency graph first
func (c *cli) runE(fn func(cmd *cobra.Command, args []string, d deps) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), c.configPath, cmd.ErrOrStderr(), func(_ context.Context, d deps) error {
			return writeMetrics(d, c.metricsFile, fn(cmd, args, d))
		})
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
