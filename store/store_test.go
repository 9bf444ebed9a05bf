package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ftahirops/xwake/model"
)

// TestStoreIntegration runs against a real Postgres container. It needs Docker.
func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("testcontainers panicked: %v", r)
			}
		}()
		cli, err := testcontainers.NewDockerClientWithOpts(ctx)
		if err != nil {
			return err
		}
		defer cli.Close()
		_, err = cli.Ping(ctx)
		return err
	}()
	if err != nil {
		t.Skipf("Docker not available: %v", err)
	}

	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("xwake_test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
		testcontainers.WithLogger(noopLogger{}),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("Failed to terminate container: %v", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	s, err := New(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect to store: %v", err)
	}
	defer s.Close(ctx)

	start := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	sum := model.SessionSummary{
		ID:            "sess-1",
		StartedAt:     start,
		EndedAt:       start.Add(time.Minute),
		Config:        model.DetectionConfig{EARThreshold: 0.25, ConsecutiveFrames: 20},
		TotalFrames:   1800,
		DrowsyFrames:  90,
		FaceFrames:    1750,
		BlinkCount:    14,
		AlertCount:    2,
		DrowsinessPct: 5,
		AvgFPS:        30,
	}

	t.Run("SaveSessionUpsert", func(t *testing.T) {
		if err := s.SaveSession(ctx, sum); err != nil {
			t.Fatalf("SaveSession: %v", err)
		}
		sum.AlertCount = 3
		if err := s.SaveSession(ctx, sum); err != nil {
			t.Fatalf("SaveSession (update): %v", err)
		}
		list, err := s.ListSessions(ctx, 10)
		if err != nil {
			t.Fatalf("ListSessions: %v", err)
		}
		if len(list) != 1 {
			t.Fatalf("expected 1 session, got %d", len(list))
		}
		if list[0].AlertCount != 3 || list[0].TotalFrames != 1800 {
			t.Errorf("unexpected session row: %+v", list[0])
		}
		if want := float64(1750) / 1800 * 100; list[0].FacePct != want {
			t.Errorf("face pct = %v, want %v", list[0].FacePct, want)
		}
		if list[0].Config.ConsecutiveFrames != 20 {
			t.Errorf("config not round-tripped: %+v", list[0].Config)
		}
	})

	t.Run("SaveEpisode", func(t *testing.T) {
		ep := model.Episode{
			ID:        "sess-1-1",
			SessionID: "sess-1",
			StartTime: start.Add(10 * time.Second),
			EndTime:   start.Add(13 * time.Second),
			Duration:  3,
			Frames:    90,
			MinEAR:    0.12,
		}
		if err := s.SaveEpisode(ctx, ep); err != nil {
			t.Fatalf("SaveEpisode: %v", err)
		}
		if err := s.SaveEpisode(ctx, ep); err != nil {
			t.Fatalf("SaveEpisode (duplicate): %v", err)
		}
		eps, err := s.Episodes(ctx, "sess-1")
		if err != nil {
			t.Fatalf("Episodes: %v", err)
		}
		if len(eps) != 1 {
			t.Fatalf("expected 1 episode, got %d", len(eps))
		}
		if eps[0].Frames != 90 || !eps[0].EndTime.Equal(ep.EndTime) {
			t.Errorf("unexpected episode: %+v", eps[0])
		}
	})
}

type noopLogger struct{}

func (n noopLogger) Printf(format string, v ...interface{}) {}
