package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ftahirops/xwake/model"
	"github.com/ftahirops/xwake/util"
)

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions [SESSION_ID]",
	Short: "List stored sessions, or the alarm episodes of one session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		if db == nil {
			return fmt.Errorf("no database configured (use --db or XWAKE_DATABASE_URL)")
		}
		defer db.Close(context.Background())

		if len(args) == 1 {
			return listEpisodes(cmd.Context(), db, args[0])
		}

		sessions, err := db.ListSessions(cmd.Context(), sessionsLimit)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTARTED\tDURATION\tFRAMES\tBLINKS\tALERTS\tDROWSY")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%.1f%%\n",
				s.ID,
				humanize.Time(s.StartedAt),
				util.Clock(s.Duration()),
				humanize.Comma(int64(s.TotalFrames)),
				s.BlinkCount,
				s.AlertCount,
				s.DrowsinessPct,
			)
		}
		return w.Flush()
	},
}

type episodeLister interface {
	Episodes(ctx context.Context, sessionID string) ([]model.Episode, error)
}

func listEpisodes(ctx context.Context, db episodeLister, id string) error {
	episodes, err := db.Episodes(ctx, id)
	if err != nil {
		return err
	}
	if len(episodes) == 0 {
		fmt.Printf("No alarm episodes for session %s.\n", id)
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EPISODE\tSTART\tDURATION\tFRAMES\tMIN EAR")
	for _, ep := range episodes {
		dur := fmt.Sprintf("%.1fs", ep.Duration)
		if ep.EndTime.IsZero() {
			dur = "open"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.3f\n",
			ep.ID, ep.StartTime.Format("2006-01-02 15:04:05"), dur, ep.Frames, ep.MinEAR)
	}
	return w.Flush()
}

func init() {
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "Maximum number of sessions to list")
	rootCmd.AddCommand(sessionsCmd)
}
