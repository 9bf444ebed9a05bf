package engine

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/ftahirops/xwake/model"
)

// EpisodeTracker turns the reading stream into alarm episodes.
type EpisodeTracker struct {
	mu sync.Mutex

	active    *model.Episode
	completed []model.Episode
	limit     int
}

// NewEpisodeTracker creates a tracker that keeps the last limit completed
// episodes in memory (0 = unlimited).
func NewEpisodeTracker(limit int) *EpisodeTracker {
	return &EpisodeTracker{limit: limit}
}

// Process is called every tick. It returns the episode that closed on this
// tick, or nil.
func (d *EpisodeTracker) Process(r model.Reading) *model.Episode {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active != nil {
		if r.AlarmActive {
			d.active.Frames++
			if r.EARValid && r.EAR < d.active.MinEAR {
				d.active.MinEAR = r.EAR
			}
			return nil
		}
		d.active.Active = false
		d.active.EndTime = r.Timestamp
		d.active.Duration = r.Timestamp.Sub(d.active.StartTime).Seconds()
		done := *d.active
		d.completed = append(d.completed, done)
		if d.limit > 0 && len(d.completed) > d.limit {
			d.completed = d.completed[len(d.completed)-d.limit:]
		}
		d.active = nil
		return &done
	}

	if r.Alarm != nil {
		d.active = &model.Episode{
			ID:        episodeID(r.SessionID, r.AlertCount),
			SessionID: r.SessionID,
			StartTime: r.Timestamp,
			Frames:    1,
			MinEAR:    r.EAR,
			Active:    true,
		}
	}
	return nil
}

// Flush closes an open episode at the last reading's time, used when a
// session ends mid-alarm.
func (d *EpisodeTracker) Flush(last model.Reading) *model.Episode {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == nil {
		return nil
	}
	d.active.Active = false
	d.active.EndTime = last.Timestamp
	d.active.Duration = last.Timestamp.Sub(d.active.StartTime).Seconds()
	done := *d.active
	d.completed = append(d.completed, done)
	d.active = nil
	return &done
}

// Active returns a copy of the open episode, or nil.
func (d *EpisodeTracker) Active() *model.Episode {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == nil {
		return nil
	}
	cpy := *d.active
	return &cpy
}

// All returns the open episode (if any) and completed episodes, newest first.
func (d *EpisodeTracker) All() (active *model.Episode, completed []model.Episode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	completed = make([]model.Episode, len(d.completed))
	for i, e := range d.completed {
		completed[len(d.completed)-1-i] = e
	}
	if d.active != nil {
		cpy := *d.active
		active = &cpy
	}
	return active, completed
}

// Load adds externally loaded episodes (e.g., from the daemon log).
func (d *EpisodeTracker) Load(episodes []model.Episode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.completed = append(episodes, d.completed...)
}

// episodeID names the n-th alarm of a session. The full session ID keeps
// IDs unique across sessions in the store.
func episodeID(session string, n uint64) string {
	return fmt.Sprintf("%s-%d", session, n)
}

// EpisodeLogWriter appends episodes to a JSONL file.
type EpisodeLogWriter struct {
	path string
	mu   sync.Mutex
}

// NewEpisodeLogWriter creates a writer for the given path.
func NewEpisodeLogWriter(path string) *EpisodeLogWriter {
	return &EpisodeLogWriter{path: path}
}

// Write appends an episode to the log file.
func (w *EpisodeLogWriter) Write(e model.Episode) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(e)
}

// ReadEpisodeLog reads all episodes from a JSONL file. A missing file is
// not an error.
func ReadEpisodeLog(path string) ([]model.Episode, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var episodes []model.Episode
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e model.Episode
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue // skip malformed lines
		}
		episodes = append(episodes, e)
	}
	return episodes, scanner.Err()
}
