package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ftahirops/xwake/config"
	"github.com/ftahirops/xwake/internal/log"
	"github.com/ftahirops/xwake/store"
)

// Version is set at build time via ldflags.
var Version = "0.1.0"

// Options holds flags shared by every command. Flags that were set
// explicitly override the config file and environment.
type Options struct {
	ConfigPath string
	LogLevel   string
	DBURL      string
	Source     string
	RecordPath string
	DataDir    string
	Threshold  float64
	Frames     int
	Web        bool
	WebAddr    string
}

var (
	opts Options
	// cfg is the resolved configuration for the running command.
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "xwake",
	Short: "Drowsiness detection from eye landmarks",
	Long: `xwake reads per-frame eye landmarks (JSON lines or a WebSocket feed),
computes the eye aspect ratio, and raises an alarm when the eyes stay
closed for too many consecutive frames.

Without a subcommand it opens the interactive dashboard.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := resolveConfig(cmd); err != nil {
			return err
		}
		if ownsTerminal(cmd) {
			if err := os.MkdirAll(cfg.DataDir, 0700); err == nil {
				if err := log.InitFile(cfg.LogLevel, filepath.Join(cfg.DataDir, "xwake.log")); err == nil {
					return nil
				}
			}
		}
		log.Init(cfg.LogLevel)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMonitor(cmd.Context())
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.ConfigPath, "config", "", "Config file (default: ~/.config/xwake/config.yaml)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&opts.DBURL, "db", "", "PostgreSQL connection string for session history")
	pf.StringVarP(&opts.Source, "source", "s", "", "Frame source: file, - for stdin, or ws:// URL")
	pf.StringVar(&opts.RecordPath, "record", "", "Record frames and readings to FILE for replay")
	pf.StringVar(&opts.DataDir, "datadir", "", "Data directory for logs and episodes")
	pf.Float64Var(&opts.Threshold, "threshold", 0, "EAR threshold, 0.1 to 0.4 (default 0.25)")
	pf.IntVar(&opts.Frames, "frames", 0, "Consecutive closed frames before alarm (default 20)")
	pf.BoolVar(&opts.Web, "web", false, "Serve the HTTP/WebSocket export")
	pf.StringVar(&opts.WebAddr, "web-addr", "", "Web export listen address")

	rootCmd.SetVersionTemplate(`xwake v{{.Version}}` + "\n")
}

// ownsTerminal reports whether cmd is the bare dashboard, which draws on
// the terminal and so logs to a file instead.
func ownsTerminal(cmd *cobra.Command) bool {
	return !cmd.HasParent()
}

// resolveConfig layers defaults, the config file, the environment, and
// explicit flags into cfg.
func resolveConfig(cmd *cobra.Command) error {
	if opts.ConfigPath != "" {
		c, err := config.LoadFrom(opts.ConfigPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
	} else {
		cfg = config.Load()
	}
	config.ApplyEnv(&cfg)

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.LogLevel
	}
	if flags.Changed("db") {
		cfg.Database.URL = opts.DBURL
	}
	if flags.Changed("source") {
		cfg.Source = opts.Source
	}
	if flags.Changed("record") {
		cfg.RecordPath = opts.RecordPath
	}
	if flags.Changed("datadir") {
		cfg.DataDir = opts.DataDir
	}
	if flags.Changed("threshold") {
		cfg.Detection.EARThreshold = opts.Threshold
	}
	if flags.Changed("frames") {
		cfg.Detection.ConsecutiveFrames = opts.Frames
	}
	if flags.Changed("web") {
		cfg.Web.Enabled = opts.Web
	}
	if flags.Changed("web-addr") {
		cfg.Web.Addr = opts.WebAddr
		cfg.Web.Enabled = true
	}
	return nil
}

// openStore connects to the session database, or returns nil when none is
// configured.
func openStore(ctx context.Context) (*store.Store, error) {
	if cfg.Database.URL == "" {
		return nil, nil
	}
	db, err := store.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Run executes the root command with a context cancelled by SIGINT/SIGTERM.
func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
