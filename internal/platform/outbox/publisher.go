package outbox

import (
	"fmt"

	"github.com/IBM/sarama"
)

// Publisher sends an outbox message's payload to its topic. SaramaPublisher
// is the production implementation; the reconciler depends on the
// interface so tests can substitute a fake.
type Publisher interface {
	Publish(topic, key string, payload []byte) error
}

// SaramaPublisher publishes via a sarama.SyncProducer with all-replica
// acks and bounded producer-level retries.
type SaramaPublisher struct {
	producer sarama.SyncProducer
}

// NewSaramaPublisher constructs a SyncProducer against brokers with
// all-replica acks and bounded retries.
func NewSaramaPublisher(brokers []string) (*SaramaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}
	return &SaramaPublisher{producer: producer}, nil
}

func (p *SaramaPublisher) Publish(topic, key string, payload []byte) error {
	_, _, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
	})
	return err
}

func (p *SaramaPublisher) Close() error {
	return p.producer.Close()
}
