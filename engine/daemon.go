package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ftahirops/xwake/internal/log"
	"github.com/ftahirops/xwake/model"
)

// SessionSink persists finished sessions and alarm episodes.
type SessionSink interface {
	SaveSession(ctx context.Context, s model.SessionSummary) error
	SaveEpisode(ctx context.Context, e model.Episode) error
}

// DaemonConfig holds daemon-specific configuration.
type DaemonConfig struct {
	DataDir         string
	Detection       model.DetectionConfig
	History         int
	SummaryInterval time.Duration
	Alerts          AlertConfig
	Metrics         *MetricsStore
	Prom            *Metrics
	Sink            SessionSink
	Record          io.Writer
	// OnReading is called after every tick, e.g. to feed the web hub.
	OnReading func(model.Reading)
}

// compactSummary is a minimal per-interval record for the rolling log.
type compactSummary struct {
	Timestamp     time.Time `json:"ts"`
	Session       string    `json:"session"`
	Level         string    `json:"level"`
	EAR           float64   `json:"ear"`
	Counter       int       `json:"counter"`
	Blinks        uint64    `json:"blinks"`
	Alerts        uint64    `json:"alerts"`
	Frames        uint64    `json:"frames"`
	FPS           float64   `json:"fps"`
	DrowsinessPct float64   `json:"drowsy_pct"`
	Face          bool      `json:"face"`
}

// RunDaemon runs a headless monitoring session over src, writing a rolling
// summary and the episode log to DataDir. SIGINT/SIGTERM or ctx end it.
func RunDaemon(ctx context.Context, cfg DaemonConfig, src Source) error {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pidPath := filepath.Join(cfg.DataDir, "daemon.pid")
	if err := os.WriteFile(pidPath, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0600); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []NotifierOption{}
	if cfg.Prom != nil {
		opts = append(opts, WithErrorHandler(cfg.Prom.DispatchFailed))
	}
	notifier := NewNotifier(cfg.Alerts, opts...)

	sess, err := Begin(cfg.Detection, WithDispatcher(notifier), WithHistorySize(cfg.History))
	if err != nil {
		_ = notifier.Close(context.Background())
		return err
	}

	var ticker Ticker = sess
	if cfg.Metrics != nil || cfg.Prom != nil {
		ticker = NewInstrumentedTicker(ticker, cfg.Metrics, cfg.Prom)
	}
	if cfg.Record != nil {
		ticker = NewRecorder(ticker, cfg.Record)
	}

	interval := cfg.SummaryInterval
	if interval <= 0 {
		interval = time.Second
	}
	tracker := NewEpisodeTracker(100)
	episodeWriter := NewEpisodeLogWriter(filepath.Join(cfg.DataDir, "episodes.jsonl"))
	summaryPath := filepath.Join(cfg.DataDir, "current.jsonl")

	log.Info("xwake daemon started",
		"pid", os.Getpid(), "session", sess.ID, "datadir", cfg.DataDir,
		"threshold", cfg.Detection.EARThreshold, "frames", cfg.Detection.ConsecutiveFrames,
		"alerts", notifier.Enabled())

	saveEpisode := func(ctx context.Context, ep *model.Episode) {
		if ep == nil {
			return
		}
		if err := episodeWriter.Write(*ep); err != nil {
			log.Error("write episode", "err", err)
		}
		log.Info("alarm episode closed", "id", ep.ID, "duration_sec", ep.Duration, "frames", ep.Frames, "min_ear", ep.MinEAR)
		if cfg.Sink != nil {
			if err := cfg.Sink.SaveEpisode(ctx, *ep); err != nil {
				log.Error("store episode", "err", err)
			}
		}
	}

	var lastSummary time.Time
	runErr := Pump(ctx, src, ticker, func(r model.Reading) {
		if r.Alarm != nil {
			log.Warn("drowsiness alarm", "session", r.SessionID, "seq", r.Seq, "ear", r.EAR, "alerts", r.AlertCount)
		}
		saveEpisode(ctx, tracker.Process(r))
		if r.Timestamp.Sub(lastSummary) >= interval {
			lastSummary = r.Timestamp
			writeSummaryLine(summaryPath, summarize(r))
		}
		if cfg.OnReading != nil {
			cfg.OnReading(r)
		}
	})
	if runErr == context.Canceled {
		runErr = nil
	}

	// ctx is usually cancelled by now; shutdown writes get their own deadline.
	flushCtx, cancelFlush := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelFlush()

	summary := sess.End()
	saveEpisode(flushCtx, tracker.Flush(sess.Last()))
	log.Info("xwake daemon shutting down",
		"frames", summary.TotalFrames, "blinks", summary.BlinkCount, "alerts", summary.AlertCount)

	if cfg.Sink != nil {
		if err := cfg.Sink.SaveSession(flushCtx, summary); err != nil {
			log.Error("store session", "err", err)
		}
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := notifier.Close(closeCtx); err != nil {
		log.Warn("pending alarm deliveries abandoned", "err", err)
	}
	return runErr
}

func summarize(r model.Reading) compactSummary {
	return compactSummary{
		Timestamp:     r.Timestamp,
		Session:       r.SessionID,
		Level:         r.Level.String(),
		EAR:           r.EAR,
		Counter:       r.Counter,
		Blinks:        r.BlinkCount,
		Alerts:        r.AlertCount,
		Frames:        r.TotalFrames,
		FPS:           r.FPS,
		DrowsinessPct: r.DrowsinessPct,
		Face:          r.HasFace,
	}
}

// writeSummaryLine appends a compact JSON line to the summary file.
// Rotates at 10MB.
func writeSummaryLine(path string, s compactSummary) {
	if info, err := os.Stat(path); err == nil && info.Size() > 10*1024*1024 {
		_ = os.Rename(path, path+".old")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_ = json.NewEncoder(f).Encode(s)
}
