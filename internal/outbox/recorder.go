package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	domainauth "github.com/NordCoder/Vidhub/internal/domain/auth"
	"github.com/NordCoder/Vidhub/internal/domain/outbox"
)

var _ domainauth.EventSink = (*Recorder)(nil)

// Recorder writes session events into the outbox table. When ctx carries a transaction
// the insert commits or rolls back together with the credential change.
type Recorder struct {
	repo outbox.Repository
}

func NewRecorder(repo outbox.Repository) *Recorder {
	return &Recorder{repo: repo}
}

func (r *Recorder) Record(ctx context.Context, e domainauth.SessionEvent) error {
	if e.Key == "" {
		e.Key = uuid.NewString()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal session event: %w", err)
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	return r.repo.Enqueue(ctx, outbox.Message{
		IdempotencyKey: e.Key,
		Kind:           outbox.KindSessionEvent,
		Data:           data,
		Traceparent:    carrier.Get("traceparent"),
		Tracestate:     carrier.Get("tracestate"),
		Baggage:        carrier.Get("baggage"),
	})
}
