package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewPayoutCommand creates the payout command.
func NewPayoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "payout",
		Short: "Submit each board's top score to the prize ledger",
		Long: `Submit the top score of every destination board to the prize ledger.
Exits 1 when any board failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := rootOpts.openService(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer svc.Close()

			result, err := svc.Payout.Run(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "payout", err)
			}

			failed := 0
			for _, r := range result.Results {
				if r.Error != "" {
					failed++
				}
			}

			err = rootOpts.formatter(cmd).Success(result, func(w io.Writer) {
				fmt.Fprintln(w, result.Message)
				for _, r := range result.Results {
					if r.Error != "" {
						fmt.Fprintf(w, "  %-8s failed: %s\n", r.Board, r.Error)
						continue
					}
					fmt.Fprintf(w, "  %-8s %d by %s tx %s\n", r.Board, r.Score, r.Wallet, r.TxHash)
				}
			})
			if err != nil {
				return err
			}
			if failed > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d board(s) failed", failed))
			}
			return nil
		},
	}
}
