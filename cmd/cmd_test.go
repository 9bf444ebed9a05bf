package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/ftahirops/xwake/model"
)

func TestResolveConfigFlagsOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XWAKE_CONSECUTIVE_FRAMES", "30")
	t.Setenv("XWAKE_EAR_THRESHOLD", "0.2")
	t.Cleanup(func() { opts = Options{} })

	if err := rootCmd.ParseFlags([]string{"--threshold", "0.3", "--web-addr", "127.0.0.1:9999"}); err != nil {
		t.Fatal(err)
	}
	if err := resolveConfig(rootCmd); err != nil {
		t.Fatal(err)
	}
	if cfg.Detection.EARThreshold != 0.3 {
		t.Errorf("flag should beat env: threshold = %v", cfg.Detection.EARThreshold)
	}
	if cfg.Detection.ConsecutiveFrames != 30 {
		t.Errorf("env should beat default: frames = %d", cfg.Detection.ConsecutiveFrames)
	}
	if !cfg.Web.Enabled || cfg.Web.Addr != "127.0.0.1:9999" {
		t.Errorf("--web-addr should enable the web export: %+v", cfg.Web)
	}
}

func TestWatchLine(t *testing.T) {
	det := model.DetectionConfig{EARThreshold: 0.25, ConsecutiveFrames: 20}
	r := model.Reading{
		Timestamp:   time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		HasFace:     true,
		EARValid:    true,
		EAR:         0.12,
		Counter:     20,
		ProgressPct: 100,
		Level:       model.LevelAlarm,
		AlarmActive: true,
		BlinkCount:  1234,
		AlertCount:  1,
		Alarm:       &model.AlarmRaised{},
	}
	line := watchLine(r, det)
	for _, want := range []string{"ALARM", "0.120", "1,234", "DROWSINESS ALERT"} {
		if !strings.Contains(line, want) {
			t.Errorf("watch line missing %q: %q", want, line)
		}
	}

	r = model.Reading{Level: model.LevelIdle}
	if line := watchLine(r, det); !strings.Contains(line, "no face") || strings.Contains(line, "ALERT") {
		t.Errorf("no-face line = %q", line)
	}
}

func TestSummaryRendering(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	sum := model.SessionSummary{
		ID:            "0123456789abcdef",
		StartedAt:     start,
		EndedAt:       start.Add(90 * time.Second),
		Config:        model.DetectionConfig{EARThreshold: 0.25, ConsecutiveFrames: 20},
		TotalFrames:   2700,
		FaceFrames:    2700,
		DrowsyFrames:  270,
		BlinkCount:    31,
		AlertCount:    2,
		DrowsinessPct: 10,
		FacePct:       100,
		AvgFPS:        30,
	}
	var buf bytes.Buffer
	renderSummaryCLI(&buf, sum, sum.Config)
	out := buf.String()
	for _, want := range []string{"SESSION 01234567", "00:01:30", "2,700", "10.0%", "100.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("CLI summary missing %q", want)
		}
	}

	md := renderSummaryMarkdown(sum, []model.Episode{{ID: "01234567-1", StartTime: start, Duration: 2.5, Frames: 75, MinEAR: 0.08}})
	for _, want := range []string{"| Alerts | 2 |", "## Alarm episodes", "| 01234567-1 | 08:00:00 | 2.5s | 75 | 0.080 |"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestWorstStatus(t *testing.T) {
	cases := []struct {
		name   string
		checks []CheckResult
		want   CheckStatus
	}{
		{"empty", nil, CheckOK},
		{"skip_ignored", []CheckResult{{Status: CheckSkip}, {Status: CheckOK}}, CheckOK},
		{"warn", []CheckResult{{Status: CheckOK}, {Status: CheckWarn}}, CheckWarn},
		{"crit_wins", []CheckResult{{Status: CheckCrit}, {Status: CheckWarn}}, CheckCrit},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := worstStatus(c.checks); got != c.want {
				t.Fatalf("worstStatus = %v, want %v", got, c.want)
			}
		})
	}
}

func TestOwnsTerminal(t *testing.T) {
	if !ownsTerminal(rootCmd) {
		t.Error("the bare dashboard should log to a file")
	}
	for _, c := range []*cobra.Command{watchCmd, daemonCmd, resetCmd} {
		if ownsTerminal(c) {
			t.Errorf("%s should log to stderr", c.Name())
		}
	}
}

// reset's own flags must not shadow the persistent --db URL.
func TestResetKeepsDatabaseURL(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XWAKE_DATABASE_URL", "postgres://xwake@db:5432/xwake")
	t.Cleanup(func() {
		opts = Options{}
		resetTables, resetFiles, resetYes = false, false, false
	})

	if err := resetCmd.ParseFlags([]string{"--tables", "-y"}); err != nil {
		t.Fatal(err)
	}
	if err := resolveConfig(resetCmd); err != nil {
		t.Fatal(err)
	}
	if cfg.Database.URL != "postgres://xwake@db:5432/xwake" {
		t.Fatalf("database URL = %q, want the env value", cfg.Database.URL)
	}
	tables, files, err := resetTargets(cfg.Database.URL)
	if err != nil || !tables || files {
		t.Fatalf("resetTargets = %v, %v, %v; want tables only", tables, files, err)
	}
}

func TestResetTargets(t *testing.T) {
	t.Cleanup(func() { resetTables, resetFiles = false, false })
	cases := []struct {
		name                  string
		tablesFlag, filesFlag bool
		db                    string
		wantTables, wantFiles bool
		wantErr               bool
	}{
		{"default_with_db", false, false, "postgres://x", true, true, false},
		{"default_without_db", false, false, "", false, true, false},
		{"tables_without_db", true, false, "", false, false, true},
		{"both_without_db", true, true, "", false, true, false},
		{"files_only", false, true, "postgres://x", false, true, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			resetTables, resetFiles = c.tablesFlag, c.filesFlag
			tables, files, err := resetTargets(c.db)
			if (err != nil) != c.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, c.wantErr)
			}
			if tables != c.wantTables || files != c.wantFiles {
				t.Fatalf("got tables=%v files=%v, want %v/%v", tables, files, c.wantTables, c.wantFiles)
			}
		})
	}
}
