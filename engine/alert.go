package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ftahirops/xwake/internal/log"
	"github.com/ftahirops/xwake/model"
)

// AlertConfig defines alert destinations.
type AlertConfig struct {
	Webhook     string
	Command     string
	SoundFile   string
	SoundPlayer string
	MQTTBroker  string
	MQTTTopic   string
	MQTTClient  string
	QueueSize   int
}

// Dispatcher receives alarm events. Dispatch must return immediately.
type Dispatcher interface {
	Dispatch(evt model.AlarmRaised)
}

// Sink delivers one alarm event to a single destination.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, evt model.AlarmRaised) error
}

// NotifierStats counts notifier outcomes.
type NotifierStats struct {
	Delivered uint64
	Failed    uint64
	Dropped   uint64
}

// Notifier is the asynchronous alarm dispatcher. Events go through a
// bounded queue drained by a single worker; a full queue drops the event.
type Notifier struct {
	sinks   []Sink
	queue   chan model.AlarmRaised
	done    chan struct{}
	timeout time.Duration
	onError func(error)

	mu     sync.RWMutex
	closed bool

	delivered atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithErrorHandler registers a callback for delivery failures. It runs on
// the notifier worker.
func WithErrorHandler(fn func(error)) NotifierOption {
	return func(n *Notifier) { n.onError = fn }
}

// WithSinks adds sinks beyond those built from AlertConfig.
func WithSinks(sinks ...Sink) NotifierOption {
	return func(n *Notifier) { n.sinks = append(n.sinks, sinks...) }
}

// WithDeliveryTimeout bounds each sink delivery.
func WithDeliveryTimeout(d time.Duration) NotifierOption {
	return func(n *Notifier) { n.timeout = d }
}

// NewNotifier creates a notifier and starts its worker.
func NewNotifier(cfg AlertConfig, opts ...NotifierOption) *Notifier {
	size := cfg.QueueSize
	if size <= 0 {
		size = 16
	}
	n := &Notifier{
		queue:   make(chan model.AlarmRaised, size),
		done:    make(chan struct{}),
		timeout: 5 * time.Second,
	}
	if cfg.Webhook != "" {
		n.sinks = append(n.sinks, newWebhookSink(cfg.Webhook))
	}
	if cfg.Command != "" {
		n.sinks = append(n.sinks, &commandSink{command: cfg.Command})
	}
	if cfg.SoundFile != "" {
		n.sinks = append(n.sinks, &soundSink{file: cfg.SoundFile, player: cfg.SoundPlayer})
	}
	if cfg.MQTTBroker != "" {
		n.sinks = append(n.sinks, newMQTTSink(cfg.MQTTBroker, cfg.MQTTTopic, cfg.MQTTClient))
	}
	for _, o := range opts {
		o(n)
	}
	go n.run()
	return n
}

// Enabled returns true if any alert destination is configured.
func (n *Notifier) Enabled() bool {
	return len(n.sinks) > 0
}

// Dispatch queues an alarm event without blocking.
func (n *Notifier) Dispatch(evt model.AlarmRaised) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		n.dropped.Add(1)
		return
	}
	select {
	case n.queue <- evt:
	default:
		n.dropped.Add(1)
		log.Warn("alarm dispatch queue full, event dropped", "seq", evt.Seq)
	}
}

// Close stops accepting events and waits for queued deliveries until ctx
// expires. Deliveries still running after that are abandoned.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()

	select {
	case <-n.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns delivery counters.
func (n *Notifier) Stats() NotifierStats {
	return NotifierStats{
		Delivered: n.delivered.Load(),
		Failed:    n.failed.Load(),
		Dropped:   n.dropped.Load(),
	}
}

func (n *Notifier) run() {
	defer close(n.done)
	for evt := range n.queue {
		for _, s := range n.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
			err := s.Deliver(ctx, evt)
			cancel()
			if err != nil {
				n.failed.Add(1)
				derr := &DispatchError{Sink: s.Name(), Err: err}
				log.Error("alarm notification failed", "sink", s.Name(), "err", err)
				if n.onError != nil {
					n.onError(derr)
				}
				continue
			}
			n.delivered.Add(1)
		}
	}
}

func alarmPayload(evt model.AlarmRaised) ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"event":   "drowsiness_alarm",
		"payload": evt,
		"ts":      evt.Timestamp.Format(time.RFC3339),
	})
}

// webhookSink POSTs the alarm as JSON.
type webhookSink struct {
	url    string
	client *http.Client
}

func newWebhookSink(u string) *webhookSink {
	return &webhookSink{url: u, client: &http.Client{Timeout: 5 * time.Second}}
}

func (s *webhookSink) Name() string { return "webhook" }

func (s *webhookSink) Deliver(ctx context.Context, evt model.AlarmRaised) error {
	if err := ValidateWebhookURL(s.url); err != nil {
		return err
	}
	data, err := alarmPayload(evt)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}

// ValidateWebhookURL checks that the webhook URL uses http/https and does not
// target loopback, private, link-local, or cloud metadata endpoints.
func ValidateWebhookURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("webhook URL must use http or https scheme, got %q", scheme)
	}
	host := strings.ToLower(u.Hostname())
	switch host {
	case "", "localhost", "metadata.google.internal":
		return fmt.Errorf("webhook URL host %q is blocked", host)
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return fmt.Errorf("webhook URL host %q is blocked", host)
		}
	}
	return nil
}

// commandSink runs a shell command with the alarm in its environment.
type commandSink struct {
	command string
}

func (s *commandSink) Name() string { return "command" }

func (s *commandSink) Deliver(ctx context.Context, evt model.AlarmRaised) error {
	data, err := alarmPayload(evt)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, "sh", "-c", s.command)
	cmd.Env = append(os.Environ(), "XWAKE_EVENT=drowsiness_alarm", "XWAKE_PAYLOAD="+string(data))
	return cmd.Run()
}

// soundSink plays a WAV file through an external player. xwake never
// decodes audio itself.
type soundSink struct {
	file   string
	player string
}

func (s *soundSink) Name() string { return "sound" }

func (s *soundSink) Deliver(ctx context.Context, _ model.AlarmRaised) error {
	if _, err := os.Stat(s.file); err != nil {
		return fmt.Errorf("alarm sound %s: %w", s.file, err)
	}
	player := s.player
	if player == "" {
		player = "aplay"
	}
	args := strings.Fields(player)
	args = append(args, s.file)
	return exec.CommandContext(ctx, args[0], args[1:]...).Run()
}
