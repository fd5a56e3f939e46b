package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/config"
)

type corpusNotice struct {
	Reason string   `json:"reason"`
	Skills []string `json:"skills"`
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[corpusNotice]([]byte(`{"reason":"updated","skills":["python-data"]}`))
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Reason)
	assert.Equal(t, []string{"python-data"}, got.Skills)

	_, err = DecodeJSON[corpusNotice]([]byte(`not json`))
	assert.ErrorContains(t, err, "decoding kafka message")
}

func TestWithGroupID(t *testing.T) {
	rc := kafka.ReaderConfig{GroupID: "shared"}
	WithGroupID("replica-1")(&rc)
	assert.Equal(t, "replica-1", rc.GroupID)
}

func TestEncodeEvents(t *testing.T) {
	msgs, err := encodeEvents([]Event{{Key: "k", Value: corpusNotice{Reason: "r"}}})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "k", string(msgs[0].Key))
	assert.JSONEq(t, `{"reason":"r","skills":null}`, string(msgs[0].Value))

	_, err = encodeEvents([]Event{{Key: "bad", Value: make(chan int)}})
	assert.Error(t, err)
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, nextBackoff(minFetchBackoff))
	assert.Equal(t, maxFetchBackoff, nextBackoff(4*time.Second))
	assert.Equal(t, maxFetchBackoff, nextBackoff(maxFetchBackoff))
}

func TestProducerOptions(t *testing.T) {
	p := NewProducer(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, "injection-events",
		WithLeaderAck(), WithBatchTimeout(time.Second))
	defer p.Close()
	assert.Equal(t, kafka.RequireOne, p.writer.RequiredAcks)
	assert.Equal(t, time.Second, p.writer.BatchTimeout)
	assert.Equal(t, "injection-events", p.writer.Topic)

	assert.NoError(t, p.PublishBatch(context.Background(), nil))
}
