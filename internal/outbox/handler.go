package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"

	domainauth "github.com/NordCoder/Vidhub/internal/domain/auth"
	"github.com/NordCoder/Vidhub/internal/domain/outbox"
	"github.com/NordCoder/Vidhub/internal/obs/retry"
)

// Publisher is the broker side of the relay.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

var (
	outboxHandlerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_handler_latency_seconds",
		Help:    "Latency of outbox handlers including retries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	outboxHandlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_handler_errors_total",
		Help: "Errors in outbox handlers after retries.",
	}, []string{"kind"})
)

func instrument(kind string, h outbox.KindHandler, pol retry.Policy) outbox.KindHandler {
	tr := otel.Tracer("outbox.handler")
	if pol.Name == "" {
		pol.Name = "outbox_" + kind
	}
	return func(ctx context.Context, data []byte) error {
		ctx, span := tr.Start(ctx, "outbox.handle "+kind)
		defer span.End()

		start := time.Now()
		err := retry.Do(ctx, func() error { return h(ctx, data) }, pol)
		outboxHandlerLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			outboxHandlerErrors.WithLabelValues(kind).Inc()
		}
		return err
	}
}

// MakeGlobalHandler routes outbox kinds to their publishers. Session events are keyed by
// user id so one user's events keep their order on the topic.
func MakeGlobalHandler(pub Publisher, pol retry.Policy) outbox.GlobalHandler {
	return func(kind outbox.Kind) (outbox.KindHandler, error) {
		switch kind {
		case outbox.KindSessionEvent:
			base := func(ctx context.Context, data []byte) error {
				var e domainauth.SessionEvent
				if err := json.Unmarshal(data, &e); err != nil {
					return fmt.Errorf("unmarshal session event: %w", err)
				}
				return pub.PublishJSON(ctx, e.UserID, e)
			}
			return instrument("session_event", base, pol), nil
		default:
			return nil, fmt.Errorf("unsupported outbox kind: %d", kind)
		}
	}
}
