package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ftahirops/xwake/engine"
	"github.com/ftahirops/xwake/feed"
	"github.com/ftahirops/xwake/model"
)

var (
	watchCount int
	watchEvery time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print live readings as plain text",
	Long: `watch runs a session over the frame source and prints one line per
interval, plus a line for every level change. Alarms are always printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd.Context())
	},
}

func init() {
	watchCmd.Flags().IntVarP(&watchCount, "count", "n", 0, "Stop after N printed lines (0 = until the source ends)")
	watchCmd.Flags().DurationVar(&watchEvery, "every", time.Second, "Minimum stream time between periodic lines")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	src, err := feed.Open(ctx, cfg.Source)
	if err != nil {
		return err
	}
	defer src.Close()

	p, err := newPipeline(ctx, true)
	if err != nil {
		return err
	}
	tracker := engine.NewEpisodeTracker(100)

	fmt.Printf(" %s%s xwake watch v%s %s  session %s%s%s  EAR < %.2f for %d frames\n\n",
		B, BBlu+FBWht, Version, R, B, shortSession(p.session.ID), R,
		cfg.Detection.EARThreshold, cfg.Detection.ConsecutiveFrames)

	var (
		printed   int
		lastPrint time.Time
		lastLevel = model.AlertLevel(-1)
	)
	runErr := engine.Pump(ctx, src, p.ticker, func(r model.Reading) {
		p.publish(r)
		if ep := tracker.Process(r); ep != nil {
			p.saveEpisode(*ep)
		}

		periodic := r.Timestamp.Sub(lastPrint) >= watchEvery
		if !periodic && r.Level == lastLevel && r.Alarm == nil {
			return
		}
		lastPrint = r.Timestamp
		lastLevel = r.Level
		fmt.Println(watchLine(r, cfg.Detection))

		printed++
		if watchCount > 0 && printed >= watchCount {
			cancel()
		}
	})
	if ep := tracker.Flush(p.session.Last()); ep != nil {
		p.saveEpisode(*ep)
	}
	sum := p.finish()
	if runErr != nil && runErr != context.Canceled {
		return runErr
	}
	printSummary(sum, cfg.Detection)
	return nil
}

func watchLine(r model.Reading, det model.DetectionConfig) string {
	line := fmt.Sprintf(" %s%s%s %s EAR %s  %s %3.0f%%  blinks %s  alerts %d  %s%.1f fps%s",
		D, r.Timestamp.Format("15:04:05.000"), R,
		levelTag(r.Level), earText(r, det.EARThreshold),
		bar(r.ProgressPct, 10), r.ProgressPct,
		humanize.Comma(int64(r.BlinkCount)), r.AlertCount,
		D, r.FPS, R)
	if r.Alarm != nil {
		line += fmt.Sprintf("  %s%s!! DROWSINESS ALERT%s", B, FBRed, R)
	}
	return line
}
