// Package cli implements scorectl, the operator tool for the pending score
// queue, the leaderboard and prize payouts.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/1prspctv/memory-match-madness/internal/config"
	"github.com/1prspctv/memory-match-madness/internal/logging"
	"github.com/1prspctv/memory-match-madness/internal/services"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	open Opener
}

// Opener builds the score service for a command.
type Opener func(cfg *config.Config) (*services.ScoreService, error)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for scorectl.
func NewRootCommand() *cobra.Command {
	return newRootCommand(func(cfg *config.Config) (*services.ScoreService, error) {
		return services.NewScoreService(cfg, services.Dependencies{})
	})
}

func newRootCommand(open Opener) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "scorectl",
		Short: "scorectl - Memory Match Madness score tooling",
		Long:  "Inspect and drain the pending score queue, read leaderboards and run prize payouts.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewCountCommand(opts))
	cmd.AddCommand(NewEnqueueCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewTopCommand(opts))
	cmd.AddCommand(NewPayoutCommand(opts))

	return cmd
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

// openService loads configuration and builds the service. Logs go to
// errOut so they never mix with command output.
func (o *RootOptions) openService(errOut io.Writer) (*services.ScoreService, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}

	level := logging.LevelError
	if o.Verbose {
		level = logging.LevelDebug
	}
	logging.Init(errOut, level)

	svc, err := o.open(cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open score service", err)
	}
	return svc, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
