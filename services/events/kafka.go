package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"browsergate/logger"
)

// kafkaMessage is the wire shape published for every lifecycle/scaling
// event, mirroring the ToKafkaMessage pattern the teacher uses for test
// plan messages (models/testplan.TestSuiteConfig.ToKafkaMessage).
type kafkaMessage struct {
	Type      string         `json:"type"`
	BrowserID string         `json:"browser_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	At        time.Time      `json:"at"`
	Reason    string         `json:"reason,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

func (p Payload) toMessage(eventType string) (kafka.Message, error) {
	data, err := json.Marshal(kafkaMessage{
		Type:      eventType,
		BrowserID: p.BrowserID,
		SessionID: p.SessionID,
		At:        p.At,
		Reason:    p.Reason,
		Details:   p.Details,
	})
	if err != nil {
		return kafka.Message{}, err
	}
	key := p.BrowserID
	if key == "" {
		key = p.SessionID
	}
	return kafka.Message{Key: []byte(key), Value: data}, nil
}

// KafkaObserver publishes every Observer callback to a Kafka topic as
// a JSON message, for external consumers (dashboards, billing, SIEM).
type KafkaObserver struct {
	NopObserver
	writer *kafka.Writer
}

// NewKafkaObserver builds an observer that publishes to the given
// brokers/topic. Publishing is fire-and-forget from the pool's
// perspective: the writer is Async, so a broker outage never blocks
// acquire or release, and delivery failures are not reported back here.
func NewKafkaObserver(brokers []string, topic string) *KafkaObserver {
	return &KafkaObserver{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
			Async:        true,
		},
	}
}

// Close flushes and closes the underlying Kafka writer.
func (k *KafkaObserver) Close() error { return k.writer.Close() }

func (k *KafkaObserver) publish(eventType string, p Payload) {
	msg, err := p.toMessage(eventType)
	if err != nil {
		logger.Warn("failed to marshal event for kafka", zap.String("type", eventType), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		logger.Warn("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}

func (k *KafkaObserver) OnBrowserCreated(p Payload)   { k.publish("browser:created", p) }
func (k *KafkaObserver) OnBrowserAcquired(p Payload)  { k.publish("browser:acquired", p) }
func (k *KafkaObserver) OnBrowserReleased(p Payload)  { k.publish("browser:released", p) }
func (k *KafkaObserver) OnBrowserRemoved(p Payload)   { k.publish("browser:removed", p) }
func (k *KafkaObserver) OnBrowserRestarted(p Payload) { k.publish("browser:restarted", p) }
func (k *KafkaObserver) OnBrowserRecycled(p Payload)  { k.publish("browser:recycled", p) }
func (k *KafkaObserver) OnPoolScaled(p Payload)       { k.publish("pool:scaled", p) }
func (k *KafkaObserver) OnPoolAlert(p Payload)        { k.publish("pool:alert", p) }

var _ Observer = (*KafkaObserver)(nil)
