package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ftahirops/xwake/engine"
	"github.com/ftahirops/xwake/feed"
	"github.com/ftahirops/xwake/web"
)

var daemonInterval time.Duration

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run headless, logging readings and alarm episodes",
	Long: `daemon monitors the frame source without a terminal UI. It appends a
rolling summary to <datadir>/current.jsonl, alarm episodes to
<datadir>/episodes.jsonl, and stores the session summary in the database
when --db is set. Enable --web to expose the live stream.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(cmd.Context())
	},
}

func init() {
	daemonCmd.Flags().DurationVar(&daemonInterval, "interval", time.Second, "Rolling summary interval")
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(ctx context.Context) error {
	src, err := feed.Open(ctx, cfg.Source)
	if err != nil {
		return err
	}
	defer src.Close()

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close(context.Background())
	}

	prom := engine.NewMetrics()
	dc := engine.DaemonConfig{
		DataDir:         cfg.DataDir,
		Detection:       cfg.Detection,
		History:         cfg.HistorySize,
		SummaryInterval: daemonInterval,
		Alerts:          alertConfig(),
		Metrics:         engine.NewMetricsStore(),
		Prom:            prom,
	}
	if db != nil {
		dc.Sink = db
	}

	if cfg.RecordPath != "" {
		f, err := os.Create(cfg.RecordPath)
		if err != nil {
			return fmt.Errorf("create recording: %w", err)
		}
		defer f.Close()
		dc.Record = f
	}

	if cfg.Web.Enabled {
		srv := web.NewServer(cfg.Web.Addr, cfg.HistorySize, prom)
		srv.StartAsync()
		defer srv.Shutdown()
		dc.OnReading = srv.Publish
	}

	return engine.RunDaemon(ctx, dc, src)
}
