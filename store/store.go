package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ftahirops/xwake/model"
	"github.com/ftahirops/xwake/util"
)

// Store persists session summaries and alarm episodes in PostgreSQL.
// A single connection is shared, so calls are serialized.
type Store struct {
	mu   sync.Mutex
	conn *pgx.Conn
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

// initSchema creates the tables if they don't exist.
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			ended_at TIMESTAMPTZ NOT NULL,
			ear_threshold DOUBLE PRECISION NOT NULL,
			consecutive_frames INT NOT NULL,
			total_frames BIGINT NOT NULL,
			drowsy_frames BIGINT NOT NULL,
			face_frames BIGINT NOT NULL,
			blink_count BIGINT NOT NULL,
			alert_count BIGINT NOT NULL,
			drowsiness_pct DOUBLE PRECISION NOT NULL,
			avg_fps DOUBLE PRECISION NOT NULL,
			saved_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS alarm_episodes (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ,
			duration_sec DOUBLE PRECISION NOT NULL,
			frames BIGINT NOT NULL,
			min_ear DOUBLE PRECISION NOT NULL
		);
		CREATE INDEX IF NOT EXISTS alarm_episodes_session_id_idx ON alarm_episodes (session_id);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.Close(ctx)
}

// SaveSession upserts a session summary. Saving the same session twice
// keeps the latest totals.
func (s *Store) SaveSession(ctx context.Context, sum model.SessionSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.conn.Exec(ctx, `
		INSERT INTO sessions (id, started_at, ended_at, ear_threshold, consecutive_frames,
			total_frames, drowsy_frames, face_frames, blink_count, alert_count, drowsiness_pct, avg_fps)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			ended_at = EXCLUDED.ended_at,
			total_frames = EXCLUDED.total_frames,
			drowsy_frames = EXCLUDED.drowsy_frames,
			face_frames = EXCLUDED.face_frames,
			blink_count = EXCLUDED.blink_count,
			alert_count = EXCLUDED.alert_count,
			drowsiness_pct = EXCLUDED.drowsiness_pct,
			avg_fps = EXCLUDED.avg_fps,
			saved_at = NOW()
	`, sum.ID, sum.StartedAt, sum.EndedAt, sum.Config.EARThreshold, sum.Config.ConsecutiveFrames,
		int64(sum.TotalFrames), int64(sum.DrowsyFrames), int64(sum.FaceFrames),
		int64(sum.BlinkCount), int64(sum.AlertCount), sum.DrowsinessPct, sum.AvgFPS)
	if err != nil {
		return fmt.Errorf("save session %s: %w", sum.ID, err)
	}
	return nil
}

// SaveEpisode inserts a completed alarm episode.
func (s *Store) SaveEpisode(ctx context.Context, e model.Episode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var end *time.Time
	if !e.EndTime.IsZero() {
		end = &e.EndTime
	}
	_, err := s.conn.Exec(ctx, `
		INSERT INTO alarm_episodes (id, session_id, start_time, end_time, duration_sec, frames, min_ear)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, e.ID, e.SessionID, e.StartTime, end, e.Duration, int64(e.Frames), e.MinEAR)
	if err != nil {
		return fmt.Errorf("save episode %s: %w", e.ID, err)
	}
	return nil
}

// ListSessions returns the most recent sessions, newest first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]model.SessionSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.conn.Query(ctx, `
		SELECT id, started_at, ended_at, ear_threshold, consecutive_frames,
			total_frames, drowsy_frames, face_frames, blink_count, alert_count, drowsiness_pct, avg_fps
		FROM sessions ORDER BY started_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SessionSummary
	for rows.Next() {
		var sum model.SessionSummary
		var total, drowsy, faces, blinks, alerts int64
		if err := rows.Scan(&sum.ID, &sum.StartedAt, &sum.EndedAt,
			&sum.Config.EARThreshold, &sum.Config.ConsecutiveFrames,
			&total, &drowsy, &faces, &blinks, &alerts, &sum.DrowsinessPct, &sum.AvgFPS); err != nil {
			return nil, err
		}
		sum.TotalFrames = uint64(total)
		sum.DrowsyFrames = uint64(drowsy)
		sum.FaceFrames = uint64(faces)
		sum.BlinkCount = uint64(blinks)
		sum.AlertCount = uint64(alerts)
		sum.FacePct = util.Pct(sum.FaceFrames, sum.TotalFrames)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Episodes returns the alarm episodes of one session in start order.
func (s *Store) Episodes(ctx context.Context, sessionID string) ([]model.Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.conn.Query(ctx, `
		SELECT id, session_id, start_time, end_time, duration_sec, frames, min_ear
		FROM alarm_episodes WHERE session_id = $1 ORDER BY start_time ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Episode
	for rows.Next() {
		var e model.Episode
		var end *time.Time
		var frames int64
		if err := rows.Scan(&e.ID, &e.SessionID, &e.StartTime, &end, &e.Duration, &frames, &e.MinEAR); err != nil {
			return nil, err
		}
		if end != nil {
			e.EndTime = *end
		}
		e.Frames = uint64(frames)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Reset drops all application tables.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.conn.Exec(ctx, `
		DROP TABLE IF EXISTS alarm_episodes CASCADE;
		DROP TABLE IF EXISTS sessions CASCADE;
	`)
	return err
}
