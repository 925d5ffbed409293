package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainauth "github.com/NordCoder/Vidhub/internal/domain/auth"
	"github.com/NordCoder/Vidhub/internal/domain/outbox"
	"github.com/NordCoder/Vidhub/internal/obs/retry"
)

type fakeRepo struct {
	mu       sync.Mutex
	enqueued []outbox.Message
	pending  []outbox.Message
	done     []string
	pickErr  error
}

func (f *fakeRepo) Enqueue(_ context.Context, m outbox.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, m)
	return nil
}

func (f *fakeRepo) PickBatch(context.Context, int, time.Duration) ([]outbox.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pickErr != nil {
		return nil, f.pickErr
	}
	out := f.pending
	f.pending = nil
	return out, nil
}

func (f *fakeRepo) MarkSuccess(_ context.Context, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.done = append(f.done, keys...)
	return nil
}

type fakePublisher struct {
	keys []string
	vals []any
	err  error
}

func (p *fakePublisher) PublishJSON(_ context.Context, key string, v any) error {
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	p.vals = append(p.vals, v)
	return nil
}

func once() retry.Policy { return retry.Policy{Name: "test", Attempts: 1} }

func TestRecorder_EnqueuesSessionEvent(t *testing.T) {
	repo := &fakeRepo{}
	rec := NewRecorder(repo)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, rec.Record(context.Background(), domainauth.SessionEvent{
		Kind: domainauth.EventLogin, UserID: "u-1", At: at,
	}))

	require.Len(t, repo.enqueued, 1)
	m := repo.enqueued[0]
	assert.Equal(t, outbox.KindSessionEvent, m.Kind)
	assert.NotEmpty(t, m.IdempotencyKey)

	var e domainauth.SessionEvent
	require.NoError(t, json.Unmarshal(m.Data, &e))
	assert.Equal(t, m.IdempotencyKey, e.Key)
	assert.Equal(t, domainauth.EventLogin, e.Kind)
	assert.Equal(t, "u-1", e.UserID)
	assert.True(t, at.Equal(e.At))
}

func TestGlobalHandler_PublishesByUser(t *testing.T) {
	pub := &fakePublisher{}
	h, err := MakeGlobalHandler(pub, once())(outbox.KindSessionEvent)
	require.NoError(t, err)

	data, _ := json.Marshal(domainauth.SessionEvent{Key: "k1", Kind: domainauth.EventLogout, UserID: "u-9"})
	require.NoError(t, h(context.Background(), data))
	assert.Equal(t, []string{"u-9"}, pub.keys)

	assert.Error(t, h(context.Background(), []byte("{")))

	_, err = MakeGlobalHandler(pub, once())(outbox.Kind(42))
	assert.Error(t, err)
}

func TestRunner_TickMarksOnlyDelivered(t *testing.T) {
	good, _ := json.Marshal(domainauth.SessionEvent{Key: "ok", Kind: domainauth.EventLogin, UserID: "u-1"})
	repo := &fakeRepo{pending: []outbox.Message{
		{IdempotencyKey: "ok", Kind: outbox.KindSessionEvent, Data: good},
		{IdempotencyKey: "bad-kind", Kind: outbox.Kind(99), Data: good},
		{IdempotencyKey: "bad-data", Kind: outbox.KindSessionEvent, Data: []byte("nope")},
	}}
	pub := &fakePublisher{}
	r := NewRunner(zap.NewNop(), repo, MakeGlobalHandler(pub, once()), RunnerConfig{})

	r.tick(context.Background())

	assert.Equal(t, []string{"ok"}, repo.done)
	assert.Equal(t, []string{"u-1"}, pub.keys)
}

func TestRunner_PickErrorKeepsRunning(t *testing.T) {
	repo := &fakeRepo{pickErr: errors.New("db down")}
	r := NewRunner(zap.NewNop(), repo, MakeGlobalHandler(&fakePublisher{}, once()), RunnerConfig{WaitTime: 5 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	r.Run(ctx)

	assert.Empty(t, repo.done)
}
