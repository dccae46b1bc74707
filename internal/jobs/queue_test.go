package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nurseconnect-registration/internal/config"
)

type produced struct {
	topic   string
	key     string
	value   []byte
	headers map[string]string
}

type fakeProducer struct {
	msgs []produced
}

func (f *fakeProducer) ProduceMessage(ctx context.Context, topic string, key, value []byte, headers map[string]string) error {
	f.msgs = append(f.msgs, produced{topic: topic, key: string(key), value: value, headers: headers})
	return nil
}

func TestKafkaQueueRouting(t *testing.T) {
	cfg := &config.Config{Kafka: config.KafkaConfig{TopicPrefix: "nurseconnect"}}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prod := &fakeProducer{}
	q := NewKafkaQueue(prod, NewTopics(cfg))
	q.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, &Envelope{ID: "1", Task: TaskDirectoryUpsert, Payload: *testPayload()}))
	require.NoError(t, q.Enqueue(ctx, &Envelope{ID: "2", Task: TaskExchangeNotify, Payload: *testPayload()}))
	require.NoError(t, q.Enqueue(ctx, &Envelope{ID: "3", Task: TaskExchangeNotify, Attempt: 2, NotBefore: now.Add(time.Minute), Payload: *testPayload()}))

	require.Len(t, prod.msgs, 3)
	assert.Equal(t, "nurseconnect.directory-upsert", prod.msgs[0].topic)
	assert.Equal(t, "nurseconnect.exchange-notify", prod.msgs[1].topic)
	assert.Equal(t, "nurseconnect.retry", prod.msgs[2].topic)
	assert.Equal(t, "+27820001001", prod.msgs[0].key)
	assert.Equal(t, "2", prod.msgs[2].headers["attempt"])

	env, err := UnmarshalEnvelope(prod.msgs[2].value)
	require.NoError(t, err)
	assert.Equal(t, TaskExchangeNotify, env.Task)
	assert.Equal(t, 2, env.Attempt)
	assert.True(t, env.NotBefore.Equal(now.Add(time.Minute)))
}

func TestKafkaQueueUnknownTask(t *testing.T) {
	q := NewKafkaQueue(&fakeProducer{}, Topics{})
	assert.Error(t, q.Enqueue(context.Background(), &Envelope{Task: "nope"}))
}

func TestUnmarshalEnvelopeRejectsMissingTask(t *testing.T) {
	_, err := UnmarshalEnvelope([]byte(`{"id":"1"}`))
	assert.Error(t, err)
	_, err = UnmarshalEnvelope([]byte(`not json`))
	assert.Error(t, err)
}
