// Package cli implements economyctl, the operator command line for the
// economy. Commands run against the same store and rules as the API server.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"cardvault-api/internal/app"
	"cardvault-api/internal/config"

	"github.com/spf13/cobra"
)

// Builder opens the economy a command runs against.
type Builder func() (*app.App, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "json" | "text"

	build Builder
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command, building the economy from the
// environment.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(func() (*app.App, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		return app.Build(cfg)
	})
}

// NewRootCommandWith creates the root command over a custom builder.
func NewRootCommandWith(build Builder) *cobra.Command {
	opts := &RootOptions{build: build}

	cmd := &cobra.Command{
		Use:   "economyctl",
		Short: "Operate the collectible economy",
		Long:  "Administrative commands for the collectible economy: sweeps, grants and inspection.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newSweepCommand(opts))
	cmd.AddCommand(newGrantCommand(opts))
	cmd.AddCommand(newBoardCommand(opts))
	cmd.AddCommand(newDiscoveriesCommand(opts))
	cmd.AddCommand(newStatsCommand(opts))

	return cmd
}

// withApp builds the economy, runs fn and closes it.
func (o *RootOptions) withApp(fn func(a *app.App) error) error {
	a, err := o.build()
	if err != nil {
		return fmt.Errorf("failed to open economy: %w", err)
	}
	defer a.Close()
	return fn(a)
}

func (o *RootOptions) wantJSON() bool {
	return o.Format == "json"
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
