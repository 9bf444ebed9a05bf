package cmd

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ftahirops/xwake/engine"
	"github.com/ftahirops/xwake/feed"
	"github.com/ftahirops/xwake/internal/log"
	"github.com/ftahirops/xwake/model"
	"github.com/ftahirops/xwake/ui"
)

// runMonitor opens the interactive dashboard over the configured source.
func runMonitor(ctx context.Context) error {
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

	readings := make(chan model.Reading, 64)
	pumpDone := make(chan error, 1)
	go func() {
		defer close(readings)
		pumpDone <- engine.Pump(ctx, src, p.ticker, func(r model.Reading) {
			p.publish(r)
			select {
			case readings <- r:
			case <-ctx.Done():
			}
		})
	}()

	popts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if cfg.Source == "-" {
		// Frames come in on stdin, so keys must come from the terminal.
		popts = append(popts, tea.WithInputTTY())
	}
	m := ui.NewModel(p.session, readings, cfg.DataDir, p.saveEpisode)
	final, runErr := tea.NewProgram(m, popts...).Run()

	cancel()
	if err := <-pumpDone; err != nil && err != context.Canceled {
		log.Warn("frame source ended with error", "err", err)
	}
	if n := src.Skipped(); n > 0 {
		log.Warn("malformed frames skipped", "count", n)
	}

	// Quitting mid-alarm leaves the episode open; close it before the
	// session ends so it reaches the log and the store.
	if fm, ok := final.(ui.Model); ok {
		fm.FlushEpisode()
	} else {
		m.FlushEpisode()
	}

	sum := p.finish()
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("dashboard: %w", runErr)
	}
	printSummary(sum, cfg.Detection)
	return nil
}
