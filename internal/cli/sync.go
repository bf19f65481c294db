package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass now",
		Long: `Run one sync pass over the pending queue and wait for it. Records
attempted less than the minimum retry interval ago are skipped.
Exits 1 when any record failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := rootOpts.openService(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer svc.Close()

			f := rootOpts.formatter(cmd)
			result, err := svc.Scheduler.SyncNow(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "sync", err)
			}

			err = f.Success(result, func(w io.Writer) {
				fmt.Fprintf(w, "Synced: %d  Failed: %d  Pending: %d  (%s)\n",
					result.Synced, result.Failed, result.Pending, result.Duration)
				for _, e := range result.Errors {
					fmt.Fprintf(w, "  %s\n", e)
				}
			})
			if err != nil {
				return err
			}

			if !result.Success() {
				return NewExitError(ExitFailure, fmt.Sprintf("%d score(s) failed to sync", result.Failed))
			}
			return nil
		},
	}
}
