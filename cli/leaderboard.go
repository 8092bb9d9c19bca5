package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cppla/fitquest/gamification"
	"github.com/cppla/fitquest/models"
)

func init() {
	rootCmd.AddCommand(leaderboardCmd)
}

var leaderboardCmd = &cobra.Command{
	Use:     "leaderboard",
	Aliases: []string{"top"},
	Short:   "Print the current top users by points",
	RunE:    runLeaderboard,
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	svc := gamification.NewService(newStore(cfg, db), nil)
	rows, err := svc.Leaderboard(cmd.Context())
	if err != nil {
		return err
	}
	return printLeaderboard(cmd.OutOrStdout(), rows)
}

func printLeaderboard(out io.Writer, rows []models.LeaderboardEntry) error {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No points recorded yet.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tUSER\tPOINTS\tLEVEL")
	for _, r := range rows {
		name := r.Username
		if name == "" {
			name = fmt.Sprintf("#%d", r.UserID)
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\n", r.Rank, name, r.TotalPoints, r.Level)
	}
	return w.Flush()
}
