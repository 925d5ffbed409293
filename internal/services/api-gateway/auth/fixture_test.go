package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/NordCoder/Vidhub/internal/auth"
	domainauth "github.com/NordCoder/Vidhub/internal/domain/auth"
	"github.com/NordCoder/Vidhub/internal/domain/user"
	"github.com/NordCoder/Vidhub/internal/repository/memory"
)

const (
	aliceID       = "3f1c2b9e-6a7d-4d1e-9a51-2f0c8b7d6e10"
	alicePassword = "correct-pw"
)

type eventLog struct {
	mu     sync.Mutex
	events []domainauth.SessionEvent
}

func (l *eventLog) Record(_ context.Context, e domainauth.SessionEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) kinds() []domainauth.EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domainauth.EventKind, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Kind)
	}
	return out
}

// unavailableRepo fails every call the way a timed out store does.
type unavailableRepo struct{ user.Repo }

func (unavailableRepo) GetByHandleOrEmail(context.Context, string, string) (*user.User, error) {
	return nil, user.ErrUnavailable
}

func (unavailableRepo) GetByID(context.Context, string) (*user.User, error) {
	return nil, user.ErrUnavailable
}

// brokenTx fails the way the postgres transactor does when the server drops: at begin,
// or at commit after fn already ran.
type brokenTx struct{ atCommit bool }

func (b brokenTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	refused := errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
	if !b.atCommit {
		return fmt.Errorf("begin tx: %w: %v", user.ErrUnavailable, refused)
	}
	if err := fn(ctx); err != nil {
		return fmt.Errorf("tx: %w", err)
	}
	return fmt.Errorf("commit tx: %w: %v", user.ErrUnavailable, refused)
}

type fixture struct {
	uc     *Usecase
	users  *memory.UserRepo
	codec  *auth.Codec
	events *eventLog
}

func newCodec(t *testing.T) *auth.Codec {
	t.Helper()
	c, err := auth.NewCodec(auth.Config{
		Access:  auth.KeyConfig{Secret: []byte("access-secret-for-tests"), TTL: 15 * time.Minute},
		Refresh: auth.KeyConfig{Secret: []byte("refresh-secret-for-tests"), TTL: 24 * time.Hour},
		Issuer:  "vidhub-test",
	})
	require.NoError(t, err)
	return c
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := memory.NewUserRepo()
	hash, err := user.HashPassword(alicePassword, bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), &user.User{
		ID:           aliceID,
		UserName:     "alice",
		Email:        "alice@example.com",
		FullName:     "Alice",
		PasswordHash: hash,
	}))

	codec := newCodec(t)
	events := &eventLog{}
	return &fixture{
		uc: NewUsecase(Deps{
			Users:  users,
			Codec:  codec,
			Events: events,
			Logger: zap.NewNop(),
		}),
		users:  users,
		codec:  codec,
		events: events,
	}
}

// withTx returns a usecase over the same store and codec that runs writes through tx.
func (f *fixture) withTx(tx domainauth.Transactor) *Usecase {
	return NewUsecase(Deps{Users: f.users, Codec: f.codec, Tx: tx, Events: f.events, Logger: zap.NewNop()})
}

func (f *fixture) storedHash(t *testing.T) string {
	t.Helper()
	u, err := f.users.GetByID(context.Background(), aliceID)
	require.NoError(t, err)
	return u.RefreshTokenHash
}
