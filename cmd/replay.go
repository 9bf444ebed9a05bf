package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ftahirops/xwake/engine"
	"github.com/ftahirops/xwake/internal/log"
	"github.com/ftahirops/xwake/model"
)

var (
	replayMD     bool
	replaySave   bool
	replayAlerts bool
	replayFrom   int
)

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Re-run detection over a recorded frame file",
	Long: `replay feeds a recording (from --record, or any frame JSON lines) through a
fresh session using the current thresholds, then prints the session
summary. Use it to tune --threshold and --frames offline.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReplay(cmd.Context(), args[0])
	},
}

func init() {
	f := replayCmd.Flags()
	f.BoolVar(&replayMD, "md", false, "Print the summary as Markdown")
	f.BoolVar(&replaySave, "save", false, "Store the replayed session in the database")
	f.BoolVar(&replayAlerts, "alerts", false, "Deliver alarms to the configured sinks")
	f.IntVar(&replayFrom, "from", 0, "Start at frame index N")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	player, err := engine.NewPlayer(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("load recording: %w", err)
	}
	if player.Len() == 0 {
		return fmt.Errorf("%s: no frames", path)
	}
	player.Seek(replayFrom)

	sopts := []engine.Option{engine.WithHistorySize(cfg.HistorySize)}
	var notifier *engine.Notifier
	if replayAlerts {
		notifier = engine.NewNotifier(alertConfig())
		sopts = append(sopts, engine.WithDispatcher(notifier))
	}
	sess, err := engine.Begin(cfg.Detection, sopts...)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions64(int64(player.Len()-player.Index()),
		progressbar.OptionSetDescription("replaying"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	tracker := engine.NewEpisodeTracker(0)
	var episodes []model.Episode
	runErr := engine.Pump(ctx, player, sess, func(r model.Reading) {
		if ep := tracker.Process(r); ep != nil {
			episodes = append(episodes, *ep)
		}
		_ = bar.Add(1)
	})
	_ = bar.Finish()
	if ep := tracker.Flush(sess.Last()); ep != nil {
		episodes = append(episodes, *ep)
	}
	sum := sess.End()

	if notifier != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := notifier.Close(closeCtx); err != nil {
			log.Warn("pending alarm deliveries abandoned", "err", err)
		}
		cancel()
	}
	if runErr != nil {
		return runErr
	}

	if replaySave {
		if err := saveReplay(ctx, sum, episodes); err != nil {
			return err
		}
	}

	if replayMD {
		fmt.Println(renderSummaryMarkdown(sum, episodes))
		return nil
	}
	renderSummaryCLI(os.Stdout, sum, sum.Config)
	for _, ep := range episodes {
		fmt.Printf(" %s%s%s  %s  %.1fs  %d frames  min EAR %.3f\n",
			FBRed, ep.ID, R, ep.StartTime.Format("15:04:05.000"), ep.Duration, ep.Frames, ep.MinEAR)
	}
	return nil
}

func saveReplay(ctx context.Context, sum model.SessionSummary, episodes []model.Episode) error {
	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("--save requires --db or XWAKE_DATABASE_URL")
	}
	defer db.Close(context.Background())

	if err := db.SaveSession(ctx, sum); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	for _, ep := range episodes {
		if err := db.SaveEpisode(ctx, ep); err != nil {
			return fmt.Errorf("store episode %s: %w", ep.ID, err)
		}
	}
	log.Info("replayed session stored", "session", sum.ID, "episodes", len(episodes))
	return nil
}
