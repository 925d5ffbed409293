package auth

import (
	"context"
	"time"
)

type EventKind string

const (
	EventLogin         EventKind = "login"
	EventRotated       EventKind = "refresh_rotated"
	EventReuseDetected EventKind = "refresh_reuse_detected"
	EventLogout        EventKind = "logout"
	EventRegistered    EventKind = "registered"
)

type SessionEvent struct {
	Key    string    `json:"key"`
	Kind   EventKind `json:"kind"`
	UserID string    `json:"user_id"`
	At     time.Time `json:"at"`
}

// EventSink records session events. Implementations must join the transaction carried by ctx
// when there is one.
type EventSink interface {
	Record(ctx context.Context, e SessionEvent) error
}

type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type NopEvents struct{}

func (NopEvents) Record(context.Context, SessionEvent) error { return nil }

// NoTx runs fn directly, for stores without multi-statement transactions.
type NoTx struct{}

func (NoTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
