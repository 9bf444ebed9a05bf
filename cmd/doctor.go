package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ftahirops/xwake/config"
	"github.com/ftahirops/xwake/engine"
)

// CheckStatus represents the severity of a doctor check result.
type CheckStatus int

const (
	CheckOK   CheckStatus = 0
	CheckWarn CheckStatus = 1
	CheckCrit CheckStatus = 2
	CheckSkip CheckStatus = 3
)

func (s CheckStatus) String() string {
	switch s {
	case CheckOK:
		return "OK"
	case CheckWarn:
		return "WARN"
	case CheckCrit:
		return "CRIT"
	case CheckSkip:
		return "SKIP"
	}
	return "UNKNOWN"
}

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Category string      `json:"category"`
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Detail   string      `json:"detail"`
	Advice   string      `json:"advice,omitempty"`
}

// DoctorReport holds the full health check output.
type DoctorReport struct {
	Timestamp   time.Time     `json:"timestamp"`
	Hostname    string        `json:"hostname"`
	Checks      []CheckResult `json:"checks"`
	WorstStatus CheckStatus   `json:"worst_status"`
}

// ExitCodeError signals a non-zero exit code without calling os.Exit directly.
type ExitCodeError struct{ Code int }

func (e ExitCodeError) Error() string { return fmt.Sprintf("exit %d", e.Code) }

var (
	doctorJSON bool
	doctorMD   bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, alert sinks and integrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDoctor(cmd.Context())
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "Output JSON")
	doctorCmd.Flags().BoolVar(&doctorMD, "md", false, "Output Markdown")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(ctx context.Context) error {
	hostname, _ := os.Hostname()
	report := DoctorReport{
		Timestamp: time.Now(),
		Hostname:  hostname,
	}

	report.Checks = append(report.Checks, checkConfig()...)
	report.Checks = append(report.Checks, checkSource()...)
	report.Checks = append(report.Checks, checkDataDir()...)
	report.Checks = append(report.Checks, checkAlerts()...)
	report.Checks = append(report.Checks, checkDatabase(ctx)...)
	report.Checks = append(report.Checks, checkDaemon()...)
	report.WorstStatus = worstStatus(report.Checks)

	switch {
	case doctorJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	case doctorMD:
		fmt.Println(renderDoctorMarkdown(report))
	default:
		renderDoctorCLI(report)
	}

	if report.WorstStatus == CheckCrit {
		return ExitCodeError{Code: 2}
	}
	if report.WorstStatus == CheckWarn {
		return ExitCodeError{Code: 1}
	}
	return nil
}

func worstStatus(checks []CheckResult) CheckStatus {
	worst := CheckOK
	for _, c := range checks {
		if c.Status < CheckSkip && c.Status > worst {
			worst = c.Status
		}
	}
	return worst
}

func checkConfig() []CheckResult {
	var out []CheckResult
	path := opts.ConfigPath
	if path == "" {
		path = config.Path()
	}
	if _, err := os.Stat(path); err != nil {
		out = append(out, CheckResult{Category: "Config", Name: "Config file", Status: CheckSkip,
			Detail: "not found, using defaults", Advice: "create " + path + " to persist settings"})
	} else {
		out = append(out, CheckResult{Category: "Config", Name: "Config file", Status: CheckOK, Detail: path})
	}

	det := cfg.Detection
	if err := engine.ValidateConfig(det); err != nil {
		out = append(out, CheckResult{Category: "Config", Name: "Detection", Status: CheckCrit,
			Detail: err.Error(), Advice: "threshold must be 0.1-0.4 and frames at least 1"})
	} else {
		out = append(out, CheckResult{Category: "Config", Name: "Detection", Status: CheckOK,
			Detail: fmt.Sprintf("EAR < %.2f for %d frames", det.EARThreshold, det.ConsecutiveFrames)})
	}
	return out
}

func checkSource() []CheckResult {
	src := cfg.Source
	r := CheckResult{Category: "Input", Name: "Frame source", Detail: src}
	switch {
	case src == "-":
		r.Status = CheckOK
		r.Detail = "stdin"
	case strings.HasPrefix(src, "ws://") || strings.HasPrefix(src, "wss://"):
		u, err := url.Parse(src)
		if err != nil || u.Host == "" {
			r.Status = CheckCrit
			r.Detail = fmt.Sprintf("invalid URL %q", src)
			break
		}
		r.Status = dialStatus(u.Host, defaultPort(u.Scheme))
		if r.Status != CheckOK {
			r.Advice = "landmark publisher is not reachable"
		}
	default:
		if _, err := os.Stat(src); err != nil {
			r.Status = CheckCrit
			r.Detail = err.Error()
		} else {
			r.Status = CheckOK
		}
	}
	return []CheckResult{r}
}

func checkDataDir() []CheckResult {
	dir := cfg.DataDir
	r := CheckResult{Category: "Storage", Name: "Data dir", Detail: dir}
	if err := os.MkdirAll(dir, 0700); err != nil {
		r.Status = CheckCrit
		r.Detail = err.Error()
		return []CheckResult{r}
	}
	probe := filepath.Join(dir, ".doctor")
	if err := os.WriteFile(probe, nil, 0600); err != nil {
		r.Status = CheckCrit
		r.Detail = "not writable: " + err.Error()
		return []CheckResult{r}
	}
	os.Remove(probe)
	r.Status = CheckOK
	return []CheckResult{r}
}

func checkAlerts() []CheckResult {
	a := cfg.Alerts
	var out []CheckResult
	if a.Webhook == "" && a.Command == "" && a.SoundFile == "" && a.MQTTBroker == "" {
		return []CheckResult{{Category: "Alerts", Name: "Sinks", Status: CheckWarn,
			Detail: "no alert destination configured", Advice: "set alerts.sound_file, webhook, command or mqtt_broker"}}
	}

	if a.Webhook != "" {
		r := CheckResult{Category: "Alerts", Name: "Webhook", Status: CheckOK, Detail: a.Webhook}
		if err := engine.ValidateWebhookURL(a.Webhook); err != nil {
			r.Status = CheckCrit
			r.Detail = err.Error()
		}
		out = append(out, r)
	}
	if a.Command != "" {
		out = append(out, CheckResult{Category: "Alerts", Name: "Command", Status: CheckOK, Detail: a.Command})
	}
	if a.SoundFile != "" {
		r := CheckResult{Category: "Alerts", Name: "Sound file", Status: CheckOK, Detail: a.SoundFile}
		if _, err := os.Stat(a.SoundFile); err != nil {
			r.Status = CheckCrit
			r.Detail = err.Error()
		}
		out = append(out, r)

		player := "aplay"
		if f := strings.Fields(a.SoundPlayer); len(f) > 0 {
			player = f[0]
		}
		pr := CheckResult{Category: "Alerts", Name: "Sound player", Status: CheckOK}
		if path, err := exec.LookPath(player); err != nil {
			pr.Status = CheckCrit
			pr.Detail = player + " not found in PATH"
			pr.Advice = "install it or set alerts.sound_player"
		} else {
			pr.Detail = path
		}
		out = append(out, pr)
	}
	if a.MQTTBroker != "" {
		host := a.MQTTBroker
		if u, err := url.Parse(host); err == nil && u.Host != "" {
			host = u.Host
		}
		r := CheckResult{Category: "Alerts", Name: "MQTT broker", Detail: host, Status: dialStatus(host, "1883")}
		if r.Status != CheckOK {
			r.Advice = "broker unreachable, alarms will fail over MQTT"
		}
		out = append(out, r)
	}
	return out
}

func checkDatabase(ctx context.Context) []CheckResult {
	if cfg.Database.URL == "" {
		return []CheckResult{{Category: "Storage", Name: "Database", Status: CheckSkip, Detail: "not configured"}}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	db, err := openStore(ctx)
	if err != nil {
		return []CheckResult{{Category: "Storage", Name: "Database", Status: CheckCrit, Detail: err.Error()}}
	}
	defer db.Close(context.Background())
	sessions, err := db.ListSessions(ctx, 1)
	if err != nil {
		return []CheckResult{{Category: "Storage", Name: "Database", Status: CheckWarn, Detail: err.Error()}}
	}
	detail := "connected, no sessions yet"
	if len(sessions) > 0 {
		detail = "connected, last session " + sessions[0].StartedAt.Format("2006-01-02 15:04")
	}
	return []CheckResult{{Category: "Storage", Name: "Database", Status: CheckOK, Detail: detail}}
}

func checkDaemon() []CheckResult {
	pidPath := filepath.Join(cfg.DataDir, "daemon.pid")
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return []CheckResult{{Category: "Daemon", Name: "Daemon", Status: CheckSkip, Detail: "not running"}}
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return []CheckResult{{Category: "Daemon", Name: "Daemon", Status: CheckWarn,
			Detail: "unreadable pid file", Advice: "remove " + pidPath}}
	}
	if err := syscall.Kill(pid, 0); err != nil && !errors.Is(err, syscall.EPERM) {
		return []CheckResult{{Category: "Daemon", Name: "Daemon", Status: CheckWarn,
			Detail: fmt.Sprintf("stale pid file (pid %d)", pid), Advice: "remove " + pidPath}}
	}
	return []CheckResult{{Category: "Daemon", Name: "Daemon", Status: CheckOK, Detail: fmt.Sprintf("running (pid %d)", pid)}}
}

func dialStatus(host, port string) CheckStatus {
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, port)
	}
	conn, err := net.DialTimeout("tcp", host, 2*time.Second)
	if err != nil {
		return CheckWarn
	}
	conn.Close()
	return CheckOK
}

func defaultPort(scheme string) string {
	if scheme == "wss" {
		return "443"
	}
	return "80"
}

func renderDoctorCLI(report DoctorReport) {
	ts := report.Timestamp.Format("2006-01-02 15:04:05")
	fmt.Printf("\n %s%s xwake doctor v%s %s  %s%s%s  %s%s%s\n\n",
		B, BBlu+FBWht, Version, R,
		B, report.Hostname, R,
		D, ts, R)

	const nameW = 16

	lastCategory := ""
	for _, c := range report.Checks {
		if c.Category != lastCategory {
			fmt.Println(titleLine(c.Category))
			lastCategory = c.Category
		}

		var icon string
		switch c.Status {
		case CheckOK:
			icon = fmt.Sprintf("%s✓%s", FBGrn, R)
		case CheckWarn:
			icon = fmt.Sprintf("%s⚠%s", FBYel, R)
		case CheckCrit:
			icon = fmt.Sprintf("%s%s✗%s", B, FBRed, R)
		case CheckSkip:
			icon = fmt.Sprintf("%s○%s", D, R)
		}

		name := c.Name
		if len(name) > nameW {
			name = name[:nameW]
		}
		fmt.Printf(" %s %s%s%s  %s\n", icon, B, name+strings.Repeat(" ", nameW-len(name)), R, c.Detail)
		if c.Advice != "" {
			fmt.Printf("%s%s→ %s%s\n", strings.Repeat(" ", nameW+5), D, c.Advice, R)
		}
	}

	fmt.Println()
	fmt.Println(hr())
	switch report.WorstStatus {
	case CheckOK:
		fmt.Printf(" %s%s✓ All checks passed%s\n", B, FBGrn, R)
	case CheckWarn:
		fmt.Printf(" %s%s⚠ Some warnings detected%s\n", B, FBYel, R)
	case CheckCrit:
		fmt.Printf(" %s%s✗ Critical issues found%s\n", B, FBRed, R)
	}
	fmt.Println()
}

func renderDoctorMarkdown(report DoctorReport) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# xwake Doctor Report: %s\n\n", report.Hostname))
	sb.WriteString(fmt.Sprintf("**Timestamp:** %s\n\n", report.Timestamp.Format(time.RFC3339)))

	sb.WriteString("| Status | Category | Check | Detail | Advice |\n")
	sb.WriteString("|--------|----------|-------|--------|--------|\n")
	for _, c := range report.Checks {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			c.Status, c.Category, c.Name, c.Detail, c.Advice))
	}

	sb.WriteString(fmt.Sprintf("\n**Overall:** %s\n", report.WorstStatus))
	return sb.String()
}
