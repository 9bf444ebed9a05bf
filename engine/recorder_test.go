package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/ftahirops/xwake/model"
)

func TestRecorderRoundTrip(t *testing.T) {
	s, err := Begin(testCfg, WithClock(fixedClock))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	rec := NewRecorder(s, &buf)
	if rec.Base() != s {
		t.Fatal("Base() should return the wrapped session")
	}

	var want []float64
	for n := 0; n < 25; n++ {
		ear := 0.3
		if n >= 3 {
			ear = 0.1
		}
		r := rec.Tick(frameAt(t0, n, ear))
		want = append(want, r.EAR)
	}
	if got := strings.Count(buf.String(), "\n"); got != 25 {
		t.Fatalf("recorded %d lines, want 25", got)
	}

	p, err := NewPlayer(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if p.Len() != 25 {
		t.Fatalf("player has %d frames, want 25", p.Len())
	}

	replay, err := Begin(testCfg, WithClock(fixedClock))
	if err != nil {
		t.Fatal(err)
	}
	i := 0
	err = Pump(context.Background(), p, replay, func(r model.Reading) {
		if r.EAR != want[i] {
			t.Errorf("frame %d: EAR %v, want %v", i, r.EAR, want[i])
		}
		i++
	})
	if err != nil {
		t.Fatalf("Pump: %v", err)
	}
	if i != 25 {
		t.Fatalf("replayed %d frames", i)
	}
	sum, orig := replay.Summary(), s.Summary()
	if sum.TotalFrames != orig.TotalFrames || sum.DrowsyFrames != orig.DrowsyFrames ||
		sum.AlertCount != orig.AlertCount || sum.BlinkCount != orig.BlinkCount {
		t.Fatalf("replayed summary differs:\n got %+v\nwant %+v", sum, orig)
	}
	if !sum.StartedAt.Equal(orig.StartedAt) || sum.Duration() != orig.Duration() {
		t.Fatalf("replayed timing differs: %v/%v vs %v/%v", sum.StartedAt, sum.Duration(), orig.StartedAt, orig.Duration())
	}
	if orig.AlertCount != 1 {
		t.Fatalf("alerts = %d, want 1", orig.AlertCount)
	}
}

func TestPlayerAcceptsRawFramesAndSkipsGarbage(t *testing.T) {
	input := strings.Join([]string{
		`{"ts":"2026-03-01T08:00:00Z","face":{"left":[[0,0],[10,3],[20,3],[30,0],[20,-3],[10,-3]],"right":[[0,0],[10,3],[20,3],[30,0],[20,-3],[10,-3]],"bbox":[0,0,100,100]}}`,
		`not json`,
		``,
		`{"frame":{"ts":"2026-03-01T08:00:01Z"}}`,
		`{"face":{"left":"oops"}}`,
	}, "\n")
	p, err := NewPlayer(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if p.Len() != 2 {
		t.Fatalf("Len = %d, want 2", p.Len())
	}

	f, err := p.Next(context.Background())
	if err != nil || !f.HasFace() {
		t.Fatalf("first frame: %+v, %v", f, err)
	}
	f, err = p.Next(context.Background())
	if err != nil || f.HasFace() {
		t.Fatalf("second frame: %+v, %v", f, err)
	}
	if _, err := p.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("after end: err = %v, want io.EOF", err)
	}

	p.Seek(-5)
	if p.Index() != 0 {
		t.Fatalf("Seek(-5) index = %d", p.Index())
	}
	p.Seek(99)
	if p.Index() != 2 {
		t.Fatalf("Seek(99) index = %d", p.Index())
	}
}

func TestPumpStopsOnCancel(t *testing.T) {
	s, err := Begin(testCfg)
	if err != nil {
		t.Fatal(err)
	}
	src := &sliceSource{}
	for n := 0; n < 100; n++ {
		src.frames = append(src.frames, frameAt(t0, n, 0.3))
	}
	ctx, cancel := context.WithCancel(context.Background())
	count := 0
	err = Pump(ctx, src, s, func(model.Reading) {
		count++
		if count == 10 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if count != 10 {
		t.Fatalf("processed %d frames after cancel", count)
	}
}
