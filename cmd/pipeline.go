package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ftahirops/xwake/engine"
	"github.com/ftahirops/xwake/internal/log"
	"github.com/ftahirops/xwake/model"
	"github.com/ftahirops/xwake/store"
	"github.com/ftahirops/xwake/web"
)

func alertConfig() engine.AlertConfig {
	a := cfg.Alerts
	return engine.AlertConfig{
		Webhook:     a.Webhook,
		Command:     a.Command,
		SoundFile:   a.SoundFile,
		SoundPlayer: a.SoundPlayer,
		MQTTBroker:  a.MQTTBroker,
		MQTTTopic:   a.MQTTTopic,
	}
}

// pipeline is one live session plus everything hanging off it: alarm
// notifier, metrics, optional web export, store and recording.
type pipeline struct {
	session  *engine.Session
	ticker   engine.Ticker
	notifier *engine.Notifier
	metrics  *engine.Metrics
	server   *web.Server
	db       *store.Store
	record   *os.File
	episodes *engine.EpisodeLogWriter
}

// newPipeline wires a session from cfg. withWeb starts the web export when
// it is enabled in the config.
func newPipeline(ctx context.Context, withWeb bool) (*pipeline, error) {
	p := &pipeline{metrics: engine.NewMetrics()}

	db, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	p.db = db

	p.notifier = engine.NewNotifier(alertConfig(), engine.WithErrorHandler(p.metrics.DispatchFailed))

	sess, err := engine.Begin(cfg.Detection,
		engine.WithDispatcher(p.notifier),
		engine.WithHistorySize(cfg.HistorySize))
	if err != nil {
		p.close(nil)
		return nil, err
	}
	p.session = sess
	p.ticker = engine.NewInstrumentedTicker(sess, nil, p.metrics)

	if cfg.RecordPath != "" {
		f, err := os.Create(cfg.RecordPath)
		if err != nil {
			p.close(nil)
			return nil, fmt.Errorf("create recording: %w", err)
		}
		p.record = f
		p.ticker = engine.NewRecorder(p.ticker, f)
	}

	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			log.Warn("create data dir", "dir", cfg.DataDir, "err", err)
		} else {
			p.episodes = engine.NewEpisodeLogWriter(filepath.Join(cfg.DataDir, "episodes.jsonl"))
		}
	}

	if withWeb && cfg.Web.Enabled {
		p.server = web.NewServer(cfg.Web.Addr, cfg.HistorySize, p.metrics)
		p.server.StartAsync()
	}

	log.Info("session started", "session", sess.ID,
		"threshold", cfg.Detection.EARThreshold, "frames", cfg.Detection.ConsecutiveFrames,
		"alerts", p.notifier.Enabled(), "source", cfg.Source)
	return p, nil
}

// publish forwards a reading to the web export, if any.
func (p *pipeline) publish(r model.Reading) {
	if p.server != nil {
		p.server.Publish(r)
	}
}

// saveEpisode writes a closed alarm episode to the episode log and store.
func (p *pipeline) saveEpisode(ep model.Episode) {
	log.Info("alarm episode closed", "id", ep.ID, "duration_sec", ep.Duration, "frames", ep.Frames)
	if p.episodes != nil {
		if err := p.episodes.Write(ep); err != nil {
			log.Error("write episode", "err", err)
		}
	}
	if p.db != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := p.db.SaveEpisode(ctx, ep); err != nil {
			log.Error("store episode", "err", err)
		}
	}
}

// finish ends the session, persists the summary, and releases resources.
func (p *pipeline) finish() model.SessionSummary {
	sum := p.session.End()
	p.close(&sum)
	return sum
}

func (p *pipeline) close(sum *model.SessionSummary) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if p.db != nil {
		if sum != nil {
			if err := p.db.SaveSession(ctx, *sum); err != nil {
				log.Error("store session", "err", err)
			}
		}
		p.db.Close(ctx)
	}
	if p.notifier != nil {
		if err := p.notifier.Close(ctx); err != nil {
			log.Warn("pending alarm deliveries abandoned", "err", err)
		}
		st := p.notifier.Stats()
		log.Debug("notifier stats", "delivered", st.Delivered, "failed", st.Failed, "dropped", st.Dropped)
	}
	if p.server != nil {
		if err := p.server.Shutdown(); err != nil {
			log.Warn("web shutdown", "err", err)
		}
	}
	if p.record != nil {
		_ = p.record.Close()
	}
}
