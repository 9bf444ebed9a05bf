package ui

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ftahirops/xwake/engine"
	"github.com/ftahirops/xwake/model"
)

// Page identifies the current screen.
type Page int

const (
	PageOverview Page = iota
	PageEpisodes
	pageCount
)

var pageNames = []string{"Overview", "Episodes"}

type tickMsg time.Time

// readingMsg carries one reading from the pump goroutine.
type readingMsg model.Reading

// FlushEpisode closes an alarm episode still open at the session's last
// reading and hands it to the episode callback. It is a no-op when no
// episode is open, so it is safe to call again after the stream ended.
func (m Model) FlushEpisode() {
	if m.session == nil {
		return
	}
	if ep := m.tracker.Flush(m.session.Last()); ep != nil && m.onEpisode != nil {
		m.onEpisode(*ep)
	}
}

// streamEndMsg is sent once the reading channel is closed.
type streamEndMsg struct{}

// saveConfirmMsg is sent after a save completes.
type saveConfirmMsg struct {
	path string
	err  error
}

// Model is the bubbletea model.
type Model struct {
	session   *engine.Session
	readings  <-chan model.Reading
	tracker   *engine.EpisodeTracker
	onEpisode func(model.Episode)
	width     int
	height    int

	// Data
	last  *model.Reading
	ended bool

	// Navigation
	page     Page
	showHelp bool
	scroll   int

	// Display freeze; readings are still consumed while paused.
	paused bool

	// Save / status feedback
	saveMsg     string
	saveMsgTime time.Time

	// Episodes page state
	epSelected int
}

// NewModel creates a new TUI model. Readings arrive on readings; the
// channel is closed when the frame source ends. onEpisode, if set, is
// called for every alarm episode that closes.
func NewModel(sess *engine.Session, readings <-chan model.Reading, dataDir string, onEpisode func(model.Episode)) Model {
	tracker := engine.NewEpisodeTracker(200)

	// Load daemon episodes if available
	if dataDir != "" {
		episodes, err := engine.ReadEpisodeLog(filepath.Join(dataDir, "episodes.jsonl"))
		if err == nil && len(episodes) > 0 {
			tracker.Load(episodes)
		}
	}

	return Model{
		session:   sess,
		readings:  readings,
		tracker:   tracker,
		onEpisode: onEpisode,
		page:      loadDefaultPage(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), waitForReading(m.readings))
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitForReading(ch <-chan model.Reading) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return streamEndMsg{}
		}
		return readingMsg(r)
	}
}

// saveSummary writes the session summary and latest reading to a JSON file.
func saveSummary(sum model.SessionSummary, last *model.Reading) tea.Cmd {
	return func() tea.Msg {
		ts := time.Now().Format("20060102-150405")
		path := fmt.Sprintf("xwake-session-%s.json", ts)

		data := map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"summary":   sum,
			"last":      last,
		}

		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return saveConfirmMsg{err: err}
		}
		defer f.Close()

		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data); err != nil {
			return saveConfirmMsg{err: err}
		}
		return saveConfirmMsg{path: path}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "?":
			m.showHelp = true
		case "a":
			m.paused = !m.paused
		case "tab":
			m.page = (m.page + 1) % pageCount
			m.scroll = 0
		case "0", "b", "esc":
			m.page = PageOverview
			m.scroll = 0
		case "1", "e":
			m.page = PageEpisodes
			m.scroll = 0
		case "j", "down":
			if m.page == PageEpisodes {
				m.epSelected++
				_, completed := m.tracker.All()
				if m.epSelected >= len(completed) {
					m.epSelected = len(completed) - 1
				}
				if m.epSelected < 0 {
					m.epSelected = 0
				}
			} else {
				m.scroll++
			}
		case "k", "up":
			if m.page == PageEpisodes {
				if m.epSelected > 0 {
					m.epSelected--
				}
			} else if m.scroll > 0 {
				m.scroll--
			}
		case "S":
			if m.session != nil {
				return m, saveSummary(m.session.Summary(), m.last)
			}
		case "ctrl+d":
			if err := saveDefaultPage(m.page); err != nil {
				m.saveMsg = "Save default failed: " + err.Error()
			} else {
				m.saveMsg = "Default page: " + pageNames[m.page]
			}
			m.saveMsgTime = time.Now()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		return m, tick()

	case readingMsg:
		r := model.Reading(msg)
		if ep := m.tracker.Process(r); ep != nil && m.onEpisode != nil {
			m.onEpisode(*ep)
		}
		if !m.paused || m.last == nil {
			m.last = &r
		}
		return m, waitForReading(m.readings)

	case streamEndMsg:
		m.ended = true
		m.FlushEpisode()
		return m, nil

	case saveConfirmMsg:
		if msg.err != nil {
			m.saveMsg = "Save failed: " + msg.err.Error()
		} else {
			m.saveMsg = "Saved: " + msg.path
		}
		m.saveMsgTime = time.Now()
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if m.showHelp {
		return m.renderHelp()
	}
	if m.width == 0 {
		return "Loading..."
	}
	if m.last == nil {
		if m.ended {
			return "Frame source ended before the first frame. Press q to quit."
		}
		return "Waiting for first frame..."
	}

	var content string
	switch m.page {
	case PageOverview:
		var hist *engine.History
		var cfg model.DetectionConfig
		if m.session != nil {
			hist = m.session.History
			cfg = m.session.Config()
		}
		content = renderOverview(m.last, cfg, hist, m.tracker.Active(), m.width, m.height)
	case PageEpisodes:
		active, completed := m.tracker.All()
		content = renderEpisodesPage(active, completed, m.epSelected, m.width, m.height)
	}

	content = m.injectClock(content)

	lines := strings.Split(content, "\n")
	scroll := m.scroll
	if scroll >= len(lines) {
		scroll = len(lines) - 1
	}
	if scroll > 0 {
		lines = lines[scroll:]
	}
	maxLines := m.height - 2
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	content = strings.Join(lines, "\n")

	return content + "\n" + m.renderStatusBar()
}

func (m Model) renderStatusBar() string {
	var parts []string
	for i, name := range pageNames {
		label := fmt.Sprintf("%d:%s", i, name)
		if Page(i) == m.page {
			parts = append(parts, selectedStyle.Render(label))
		} else {
			parts = append(parts, dimStyle.Render(label))
		}
	}
	left := strings.Join(parts, " ")

	var state string
	switch {
	case m.ended:
		state = orangeStyle.Render("SOURCE ENDED")
	case m.paused:
		state = warnStyle.Render("PAUSED")
	default:
		state = okStyle.Render("LIVE")
	}

	msg := ""
	if m.saveMsg != "" && time.Since(m.saveMsgTime) < 5*time.Second {
		msg = "  " + valueStyle.Render(m.saveMsg)
	}
	help := helpStyle.Render("  ?:help  a:pause  S:save  q:quit")
	return left + "  " + state + msg + help
}

func (m Model) renderHelp() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("xwake - Drowsiness Monitor"))
	sb.WriteString("\n\n")
	sb.WriteString(headerStyle.Render("Navigation"))
	sb.WriteString("\n")
	sb.WriteString("  0 / b     Overview (default)\n")
	sb.WriteString("  1 / e     Alarm episodes\n")
	sb.WriteString("  Tab       Next page\n")
	sb.WriteString("  j/k       Scroll / select episode\n")
	sb.WriteString("\n")
	sb.WriteString(headerStyle.Render("Controls"))
	sb.WriteString("\n")
	sb.WriteString("  a         Freeze / resume the display\n")
	sb.WriteString("  S         Save session summary to JSON file\n")
	sb.WriteString("  Ctrl+D    Set current page as default\n")
	sb.WriteString("  ?         Toggle this help\n")
	sb.WriteString("  q/Ctrl+C  Quit\n")
	sb.WriteString("\n")
	sb.WriteString(headerStyle.Render("Levels"))
	sb.WriteString("\n")
	sb.WriteString("  IDLE      Eyes open\n")
	sb.WriteString("  RISING    Eyes closed, not yet long enough to alarm\n")
	sb.WriteString("  ALARM     Eyes closed for the configured number of frames\n")
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("Press any key to close"))
	return sb.String()
}

// injectClock overlays the wall clock on the top-right of the first content line.
func (m Model) injectClock(content string) string {
	if m.width < 40 {
		return content
	}

	clock := dimStyle.Render(time.Now().Format("15:04:05"))
	clockW := lipgloss.Width(clock)

	lines := strings.Split(content, "\n")
	firstLine := lines[0]
	lineW := lipgloss.Width(firstLine)
	gap := m.width - lineW - clockW
	if gap < 2 {
		return strings.Repeat(" ", max(0, m.width-clockW)) + clock + "\n" + content
	}
	lines[0] = firstLine + strings.Repeat(" ", gap) + clock
	return strings.Join(lines, "\n")
}
