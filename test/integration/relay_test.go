//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainauth "github.com/NordCoder/Vidhub/internal/domain/auth"
	"github.com/NordCoder/Vidhub/internal/repository/kafka"
)

func TestProducer_PublishesSessionEvent(t *testing.T) {
	cfg := LoadCfg()
	WaitTCP(t, "kafka", cfg.KafkaBootstrap, 30*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	topic := "it.session." + Unique()
	require.NoError(t, kafka.EnsureTopic(ctx, []string{cfg.KafkaBootstrap}, kafka.TopicSpec{Name: topic, MaxWait: 20 * time.Second}, zap.NewNop()))

	prod := kafka.NewProducer([]string{cfg.KafkaBootstrap}, topic, zap.NewNop())
	defer func() { _ = prod.Close() }()

	ev := domainauth.SessionEvent{Key: uuid.NewString(), Kind: domainauth.EventRotated, UserID: uuid.NewString(), At: time.Now().UTC()}
	require.NoError(t, prod.PublishJSON(ctx, ev.UserID, ev))

	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{cfg.KafkaBootstrap},
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer r.Close()

	msg, err := r.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, ev.UserID, string(msg.Key))

	var got domainauth.SessionEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, ev.Key, got.Key)
	assert.Equal(t, domainauth.EventRotated, got.Kind)
}
