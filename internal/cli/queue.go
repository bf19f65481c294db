package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/1prspctv/memory-match-madness/internal/models"
	"github.com/1prspctv/memory-match-madness/internal/sync/queue"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scores waiting to sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := rootOpts.openService(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer svc.Close()

			records, err := svc.Pending()
			if err != nil {
				return WrapExitError(ExitCommandError, "list pending scores", err)
			}
			if records == nil {
				records = []*models.PendingScore{}
			}

			return rootOpts.formatter(cmd).Success(records, func(w io.Writer) {
				if len(records) == 0 {
					fmt.Fprintln(w, "No pending scores.")
					return
				}
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tWALLET\tSCORE\tATTEMPTS\tLAST ATTEMPT\tENQUEUED")
				for _, r := range records {
					last := "-"
					if r.LastAttemptAt != nil {
						last = r.LastAttemptAt.Format(time.RFC3339)
					}
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
						r.ID, r.SubmitterIdentity, r.Score, r.AttemptCount, last, r.EnqueuedAt.Format(time.RFC3339))
				}
				tw.Flush()
			})
		},
	}
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of scores waiting to sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := rootOpts.openService(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer svc.Close()

			count, err := svc.Queue.Count()
			if err != nil {
				return WrapExitError(ExitCommandError, "count pending scores", err)
			}

			return rootOpts.formatter(cmd).Success(map[string]int{"count": count}, func(w io.Writer) {
				fmt.Fprintln(w, count)
			})
		},
	}
}

// NewEnqueueCommand creates the enqueue command.
func NewEnqueueCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		name string
		meta []string
	)

	cmd := &cobra.Command{
		Use:   "enqueue <wallet> <score>",
		Short: "Queue a score by hand",
		Long: `Queue a score by hand, for example to replay a score recovered from a
client log. The score is synced by the next sync pass.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return WrapExitError(ExitCommandError, "score must be an integer", err)
			}
			metadata, err := parseMetadata(meta)
			if err != nil {
				return err
			}

			svc, err := rootOpts.openService(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer svc.Close()

			var opts []queue.EnqueueOption
			if name != "" {
				opts = append(opts, queue.WithPlayerName(name))
			}
			record, err := svc.Queue.Enqueue(args[0], score, metadata, opts...)
			if err != nil {
				return WrapExitError(ExitCommandError, "enqueue score", err)
			}

			return rootOpts.formatter(cmd).Success(record, func(w io.Writer) {
				fmt.Fprintf(w, "Queued %s (score %d)\n", record.ID, record.Score)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "player display name")
	cmd.Flags().StringArrayVar(&meta, "meta", nil, "metadata as key=value (repeatable)")
	return cmd
}

// parseMetadata turns key=value pairs into metadata. Integer values are
// stored as numbers.
func parseMetadata(pairs []string) (models.Metadata, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	metadata := make(models.Metadata, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid metadata %q: want key=value", pair))
		}
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			metadata[key] = n
		} else {
			metadata[key] = value
		}
	}
	return metadata, nil
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every pending score",
		Long: `Delete every pending score from the local queue. Scores that have not
reached the leaderboard are lost. Requires --yes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return NewExitError(ExitCommandError, "refusing to clear the queue without --yes")
			}

			svc, err := rootOpts.openService(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer svc.Close()

			count, err := svc.Queue.Count()
			if err != nil {
				return WrapExitError(ExitCommandError, "count pending scores", err)
			}
			if err := svc.Queue.Clear(); err != nil {
				return WrapExitError(ExitCommandError, "clear queue", err)
			}

			return rootOpts.formatter(cmd).Success(map[string]int{"cleared": count}, func(w io.Writer) {
				fmt.Fprintf(w, "Cleared %d pending score(s)\n", count)
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting unsynced scores")
	return cmd
}
