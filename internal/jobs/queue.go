package jobs

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"nurseconnect-registration/internal/client"
	"nurseconnect-registration/internal/config"
)

// Queue accepts jobs for later execution.
type Queue interface {
	Enqueue(ctx context.Context, env *Envelope) error
}

type Topics struct {
	DirectoryUpsert string
	ExchangeNotify  string
	Retry           string
}

// NewTopics derives topic names from the configured prefix, e.g.
// "nurseconnect.directory-upsert".
func NewTopics(cfg *config.Config) Topics {
	prefix := cfg.Kafka.TopicPrefix
	return Topics{
		DirectoryUpsert: prefix + ".directory-upsert",
		ExchangeNotify:  prefix + ".exchange-notify",
		Retry:           prefix + ".retry",
	}
}

// ForTask returns the topic a task is consumed from.
func (t Topics) ForTask(task string) (string, error) {
	switch task {
	case TaskDirectoryUpsert:
		return t.DirectoryUpsert, nil
	case TaskExchangeNotify:
		return t.ExchangeNotify, nil
	default:
		return "", fmt.Errorf("unknown task %q", task)
	}
}

// Producer is satisfied by *client.KafkaProducer.
type Producer interface {
	ProduceMessage(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

var _ Producer = (*client.KafkaProducer)(nil)

// KafkaQueue publishes jobs keyed by MSISDN so one registrant's jobs keep
// their order within a partition. Jobs not yet due go to the retry topic.
type KafkaQueue struct {
	producer Producer
	topics   Topics
	now      func() time.Time
}

func NewKafkaQueue(producer Producer, topics Topics) *KafkaQueue {
	return &KafkaQueue{producer: producer, topics: topics, now: time.Now}
}

func (q *KafkaQueue) Enqueue(ctx context.Context, env *Envelope) error {
	topic, err := q.topics.ForTask(env.Task)
	if err != nil {
		return err
	}
	if env.NotBefore.After(q.now()) {
		topic = q.topics.Retry
	}

	value, err := env.Marshal()
	if err != nil {
		return err
	}

	headers := map[string]string{
		"task":    env.Task,
		"attempt": strconv.Itoa(env.Attempt),
	}
	if err := q.producer.ProduceMessage(ctx, topic, []byte(env.Payload.MSISDN), value, headers); err != nil {
		return fmt.Errorf("failed to enqueue %s job %s: %w", env.Task, env.ID, err)
	}
	return nil
}
