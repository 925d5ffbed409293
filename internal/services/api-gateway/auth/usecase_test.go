package auth

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Vidhub/internal/auth"
	domainauth "github.com/NordCoder/Vidhub/internal/domain/auth"
	"github.com/NordCoder/Vidhub/internal/services/api-gateway/httpx"
)

func TestSignIn_IssuesVerifiablePair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, pair, err := f.uc.SignIn(ctx, "alice", "", alicePassword)
	require.NoError(t, err)
	assert.Equal(t, aliceID, u.ID)
	assert.Empty(t, u.PasswordHash)
	assert.Empty(t, u.RefreshTokenHash)

	access, err := f.codec.Verify(domainauth.KindAccess, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, aliceID, access.Subject)

	refresh, err := f.codec.Verify(domainauth.KindRefresh, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, aliceID, refresh.Subject)

	assert.Equal(t, auth.HashToken(pair.RefreshToken), f.storedHash(t))
	assert.Equal(t, []domainauth.EventKind{domainauth.EventLogin}, f.events.kinds())
}

func TestSignIn_ByEmailCaseInsensitive(t *testing.T) {
	f := newFixture(t)

	u, _, err := f.uc.SignIn(context.Background(), "", "  Alice@Example.com ", alicePassword)
	require.NoError(t, err)
	assert.Equal(t, aliceID, u.ID)
}

func TestSignIn_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.uc.SignIn(ctx, "bob", "", alicePassword)
	assert.ErrorIs(t, err, domainauth.ErrNotFound)

	_, _, err = f.uc.SignIn(ctx, "alice", "", "wrong")
	assert.ErrorIs(t, err, domainauth.ErrUnauthorized)
	assert.Empty(t, f.storedHash(t))

	_, _, err = f.uc.SignIn(ctx, "", "", alicePassword)
	assert.ErrorIs(t, err, domainauth.ErrBadRequest)

	_, _, err = f.uc.SignIn(ctx, "alice", "", "")
	assert.ErrorIs(t, err, domainauth.ErrBadRequest)
}

func TestSignIn_SecondLoginReplacesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, first, err := f.uc.SignIn(ctx, "alice", "", alicePassword)
	require.NoError(t, err)
	_, second, err := f.uc.SignIn(ctx, "alice", "", alicePassword)
	require.NoError(t, err)

	_, err = f.uc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, domainauth.ErrUnauthorized)

	_, err = f.uc.Refresh(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

func TestRefresh_SingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, pair, err := f.uc.SignIn(ctx, "alice", "", alicePassword)
	require.NoError(t, err)

	next, err := f.uc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)
	assert.Equal(t, auth.HashToken(next.RefreshToken), f.storedHash(t))

	_, err = f.uc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, domainauth.ErrUnauthorized)
	assert.ErrorIs(t, err, domainauth.ErrTokenReuse)

	assert.Equal(t, auth.HashToken(next.RefreshToken), f.storedHash(t), "failed rotation must not touch the stored token")
	assert.Equal(t, []domainauth.EventKind{
		domainauth.EventLogin, domainauth.EventRotated, domainauth.EventReuseDetected,
	}, f.events.kinds())
}

func TestRefresh_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.Refresh(ctx, "")
	assert.ErrorIs(t, err, domainauth.ErrUnauthorized)

	_, err = f.uc.Refresh(ctx, "not-a-token")
	assert.ErrorIs(t, err, domainauth.ErrInvalidToken)

	_, pair, err := f.uc.SignIn(ctx, "alice", "", alicePassword)
	require.NoError(t, err)

	_, err = f.uc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, domainauth.ErrInvalidToken)

	ghost, _, err := f.codec.Issue(domainauth.KindRefresh, "ghost")
	require.NoError(t, err)
	_, err = f.uc.Refresh(ctx, ghost)
	assert.ErrorIs(t, err, domainauth.ErrInvalidToken)

	assert.Equal(t, auth.HashToken(pair.RefreshToken), f.storedHash(t))
}

func TestRefresh_ConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, pair, err := f.uc.SignIn(ctx, "alice", "", alicePassword)
	require.NoError(t, err)

	const n = 12
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
		reused  int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next, err := f.uc.Refresh(ctx, pair.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, next.RefreshToken)
			case assert.ErrorIs(t, err, domainauth.ErrTokenReuse):
				reused++
			}
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, n-1, reused)
	assert.Equal(t, auth.HashToken(winners[0]), f.storedHash(t))
}

func TestLogout_KillsRefreshNotAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, pair, err := f.uc.SignIn(ctx, "alice", "", alicePassword)
	require.NoError(t, err)

	require.NoError(t, f.uc.Logout(ctx, aliceID))
	assert.Empty(t, f.storedHash(t))

	_, err = f.uc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, domainauth.ErrUnauthorized)

	u, err := f.uc.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, aliceID, u.ID)

	assert.ErrorIs(t, f.uc.Logout(ctx, "ghost"), domainauth.ErrNotFound)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, domainauth.ErrUnauthorized)

	_, pair, err := f.uc.SignIn(ctx, "alice", "", alicePassword)
	require.NoError(t, err)

	_, err = f.uc.Authenticate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, domainauth.ErrInvalidToken)

	ghost, _, err := f.codec.Issue(domainauth.KindAccess, "ghost")
	require.NoError(t, err)
	_, err = f.uc.Authenticate(ctx, ghost)
	assert.ErrorIs(t, err, domainauth.ErrUnknownIdentity)
}

func TestStoreUnavailableIsTransient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, pair, err := f.uc.SignIn(ctx, "alice", "", alicePassword)
	require.NoError(t, err)

	uc := NewUsecase(Deps{Users: unavailableRepo{f.users}, Codec: f.codec, Logger: zap.NewNop()})

	_, _, err = uc.SignIn(ctx, "alice", "", alicePassword)
	assert.ErrorIs(t, err, domainauth.ErrTransient)

	_, err = uc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, domainauth.ErrTransient)

	_, err = uc.Authenticate(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, domainauth.ErrTransient)

	assert.Equal(t, auth.HashToken(pair.RefreshToken), f.storedHash(t))
}

func TestTxFailureIsTransient(t *testing.T) {
	for name, tx := range map[string]brokenTx{
		"begin":  {},
		"commit": {atCommit: true},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			_, pair, err := f.uc.SignIn(ctx, "alice", "", alicePassword)
			require.NoError(t, err)

			uc := f.withTx(tx)

			_, err = uc.Refresh(ctx, pair.RefreshToken)
			assert.ErrorIs(t, err, domainauth.ErrTransient)
			assert.Equal(t, 503, httpx.StatusOf(err))

			_, _, err = uc.SignIn(ctx, "alice", "", alicePassword)
			assert.ErrorIs(t, err, domainauth.ErrTransient)
			assert.Equal(t, 503, httpx.StatusOf(err))

			err = uc.Logout(ctx, aliceID)
			assert.ErrorIs(t, err, domainauth.ErrTransient)
			assert.Equal(t, 503, httpx.StatusOf(err))
		})
	}
}

func TestTxFailureKeepsReuseClass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, pair, err := f.uc.SignIn(ctx, "alice", "", alicePassword)
	require.NoError(t, err)
	_, err = f.uc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	_, err = f.withTx(brokenTx{atCommit: true}).Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, domainauth.ErrTokenReuse)
	assert.Equal(t, 401, httpx.StatusOf(err))
}
