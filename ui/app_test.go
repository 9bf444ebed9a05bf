package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ftahirops/xwake/engine"
	"github.com/ftahirops/xwake/model"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func eye(ear float64) model.EyePoints {
	h := ear * 15
	return model.EyePoints{{X: 0}, {X: 10, Y: h}, {X: 20, Y: h}, {X: 30}, {X: 20, Y: -h}, {X: 10, Y: -h}}
}

func frame(n int, ear float64) model.Frame {
	return model.Frame{
		Timestamp: t0.Add(time.Duration(n) * time.Second / 30),
		Face:      &model.Observation{Left: eye(ear), Right: eye(ear)},
	}
}

func newTestModel(t *testing.T, frames int) (Model, *engine.Session) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	sess, err := engine.Begin(model.DetectionConfig{EARThreshold: 0.25, ConsecutiveFrames: frames},
		engine.WithClock(func() time.Time { return t0 }))
	if err != nil {
		t.Fatal(err)
	}
	m := NewModel(sess, make(chan model.Reading), "", nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model), sess
}

func feed(m Model, r model.Reading) Model {
	next, _ := m.Update(readingMsg(r))
	return next.(Model)
}

func TestViewWaitsForFirstFrame(t *testing.T) {
	m, _ := newTestModel(t, 5)
	if got := m.View(); !strings.Contains(got, "Waiting for first frame") {
		t.Fatalf("view = %q", got)
	}
	next, _ := m.Update(streamEndMsg{})
	if got := next.(Model).View(); !strings.Contains(got, "ended before the first frame") {
		t.Fatalf("view after end = %q", got)
	}
}

func TestViewShowsAlarm(t *testing.T) {
	m, sess := newTestModel(t, 5)
	for n := 0; n < 3; n++ {
		m = feed(m, sess.Tick(frame(n, 0.3)))
	}
	if got := m.View(); !strings.Contains(got, "AWAKE") {
		t.Fatalf("open eyes should show AWAKE")
	}
	for n := 3; n < 9; n++ {
		m = feed(m, sess.Tick(frame(n, 0.1)))
	}
	view := m.View()
	if !strings.Contains(view, "DROWSINESS ALERT") {
		t.Fatalf("alarm not shown:\n%s", view)
	}
	if m.tracker.Active() == nil {
		t.Fatal("episode should be open")
	}
}

func TestEpisodeCallbackAndPages(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	sess, err := engine.Begin(model.DetectionConfig{EARThreshold: 0.25, ConsecutiveFrames: 2},
		engine.WithClock(func() time.Time { return t0 }))
	if err != nil {
		t.Fatal(err)
	}
	var got []model.Episode
	var m tea.Model = NewModel(sess, make(chan model.Reading), "", func(ep model.Episode) { got = append(got, ep) })
	m, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	ears := []float64{0.1, 0.1, 0.1, 0.3, 0.1, 0.1}
	for n, ear := range ears {
		m, _ = m.Update(readingMsg(sess.Tick(frame(n, ear))))
	}
	if len(got) != 1 {
		t.Fatalf("closed episodes = %d, want 1", len(got))
	}
	// Stream end flushes the open second alarm.
	m, _ = m.Update(streamEndMsg{})
	if len(got) != 2 {
		t.Fatalf("after stream end: %d episodes, want 2", len(got))
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	if m.(Model).page != PageEpisodes {
		t.Fatal("'e' should open the episodes page")
	}
	if view := m.View(); !strings.Contains(view, "SOURCE ENDED") {
		t.Fatalf("status bar missing SOURCE ENDED:\n%s", view)
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.(Model).page != PageOverview {
		t.Fatal("tab should wrap back to overview")
	}
}

func TestPauseFreezesDisplay(t *testing.T) {
	m, sess := newTestModel(t, 5)
	m = feed(m, sess.Tick(frame(0, 0.3)))
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	m = next.(Model)
	m = feed(m, sess.Tick(frame(1, 0.1)))
	if m.last.Seq != 1 {
		t.Fatalf("paused display advanced to seq %d", m.last.Seq)
	}
	if sess.Last().Seq != 2 {
		t.Fatal("readings must still be processed while paused")
	}
}

func TestPageByName(t *testing.T) {
	cases := map[string]Page{
		"overview": PageOverview,
		"Episodes": PageEpisodes,
		"":         PageOverview,
		"bogus":    PageOverview,
	}
	for name, want := range cases {
		if got := pageByName(name); got != want {
			t.Errorf("pageByName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestQuitMidAlarmFlushesEpisode(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	sess, err := engine.Begin(model.DetectionConfig{EARThreshold: 0.25, ConsecutiveFrames: 2},
		engine.WithClock(func() time.Time { return t0 }))
	if err != nil {
		t.Fatal(err)
	}
	var got []model.Episode
	var m tea.Model = NewModel(sess, make(chan model.Reading), "", func(ep model.Episode) { got = append(got, ep) })
	for n := 0; n < 4; n++ {
		m, _ = m.Update(readingMsg(sess.Tick(frame(n, 0.1))))
	}
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if len(got) != 0 {
		t.Fatalf("episode closed before the flush: %+v", got)
	}

	m.(Model).FlushEpisode()
	if len(got) != 1 || got[0].Active || got[0].Frames != 3 {
		t.Fatalf("flushed episodes = %+v", got)
	}
	m.(Model).FlushEpisode()
	if len(got) != 1 {
		t.Fatalf("second flush added an episode: %d", len(got))
	}
}
