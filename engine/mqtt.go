package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ftahirops/xwake/internal/log"
	"github.com/ftahirops/xwake/model"
)

// mqttSink publishes alarms to an MQTT topic. The broker connection is
// opened lazily on the notifier worker so session start never waits on it.
type mqttSink struct {
	broker string
	topic  string

	mu     sync.Mutex
	client mqtt.Client
}

func newMQTTSink(broker, topic, clientID string) *mqttSink {
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	if topic == "" {
		topic = "xwake/alarms"
	}
	if clientID == "" {
		clientID = fmt.Sprintf("xwake-%d", time.Now().UnixNano())
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		log.Warn("mqtt connection lost, will auto-reconnect", "broker", broker, "err", err)
	}

	return &mqttSink{
		broker: broker,
		topic:  topic,
		client: mqtt.NewClient(opts),
	}
}

func (s *mqttSink) Name() string { return "mqtt" }

func (s *mqttSink) Deliver(ctx context.Context, evt model.AlarmRaised) error {
	if err := s.connect(ctx); err != nil {
		return err
	}
	payload, err := alarmPayload(evt)
	if err != nil {
		return err
	}
	token := s.client.Publish(s.topic, 1, false, payload)
	if !token.WaitTimeout(timeoutFrom(ctx, 2*time.Second)) {
		return fmt.Errorf("mqtt publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish failed: %w", err)
	}
	return nil
}

func (s *mqttSink) connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client.IsConnected() {
		return nil
	}
	token := s.client.Connect()
	if !token.WaitTimeout(timeoutFrom(ctx, 5*time.Second)) {
		return fmt.Errorf("mqtt connection timeout: %s", s.broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}
	log.Info("mqtt connection established", "broker", s.broker, "topic", s.topic)
	return nil
}

func timeoutFrom(ctx context.Context, def time.Duration) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
		return time.Millisecond
	}
	return def
}
