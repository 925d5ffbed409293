package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Vidhub/internal/domain/user"
)

func TestPoolConfig_OverlaysNonZero(t *testing.T) {
	pcfg, err := poolConfig(Config{
		DSN:             "postgres://u:p@localhost:5432/vidhub?pool_max_conns=7",
		MinConns:        2,
		MaxConnLifetime: time.Minute,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(7), pcfg.MaxConns)
	assert.Equal(t, int32(2), pcfg.MinConns)
	assert.Equal(t, time.Minute, pcfg.MaxConnLifetime)
}

func TestPoolConfig_BadDSN(t *testing.T) {
	_, err := poolConfig(Config{DSN: "postgres://%zz"})
	assert.Error(t, err)
}

func TestMapErr(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", pgx.ErrNoRows, user.ErrNotFound},
		{"unique", &pgconn.PgError{Code: pgUniqueViolation}, user.ErrAlreadyExists},
		{"bad uuid", &pgconn.PgError{Code: pgInvalidTextRepr}, user.ErrNotFound},
		{"timeout", context.DeadlineExceeded, user.ErrUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, mapErr("op", tc.in), tc.want)
		})
	}

	assert.NoError(t, mapErr("op", nil))
	other := errors.New("syntax")
	err := mapErr("op", other)
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, user.ErrUnavailable)
}
