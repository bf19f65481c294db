package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/1prspctv/memory-match-madness/internal/models"
)

// NewTopCommand creates the top command.
func NewTopCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		limit  int
		player string
	)

	cmd := &cobra.Command{
		Use:   "top <game>",
		Short: "Show a leaderboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := rootOpts.openService(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer svc.Close()

			gameID := args[0]
			scores, err := svc.TopScores(cmd.Context(), gameID, limit)
			if err != nil {
				return WrapExitError(ExitCommandError, "read leaderboard", err)
			}
			if scores == nil {
				scores = []models.TopScore{}
			}

			data := map[string]interface{}{"game_id": gameID, "scores": scores}
			rank, ranked := 0, false
			if player != "" {
				rank, ranked, err = svc.PlayerRank(cmd.Context(), gameID, player)
				if err != nil {
					return WrapExitError(ExitCommandError, "read player rank", err)
				}
				if ranked {
					data["player_rank"] = rank
				}
			}

			return rootOpts.formatter(cmd).Success(data, func(w io.Writer) {
				if len(scores) == 0 {
					fmt.Fprintf(w, "No scores on %s.\n", gameID)
				} else {
					tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "RANK\tWALLET\tNAME\tSCORE")
					for _, s := range scores {
						fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", s.Rank, s.SubmitterIdentity, s.PlayerName, s.Score)
					}
					tw.Flush()
				}
				switch {
				case player == "":
				case ranked:
					fmt.Fprintf(w, "%s is ranked #%d\n", player, rank)
				default:
					fmt.Fprintf(w, "%s is not ranked\n", player)
				}
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of rows")
	cmd.Flags().StringVar(&player, "player", "", "also show this wallet's rank")
	return cmd
}
