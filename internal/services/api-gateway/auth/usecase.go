package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/NordCoder/Vidhub/internal/auth"
	domainauth "github.com/NordCoder/Vidhub/internal/domain/auth"
	"github.com/NordCoder/Vidhub/internal/domain/user"
)

var (
	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_logins_total",
		Help: "Login attempts by result.",
	}, []string{"result"})
	rotationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_refresh_rotations_total",
		Help: "Refresh token rotations by result.",
	}, []string{"result"})
	logoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_logouts_total",
		Help: "Completed logouts.",
	})
)

// TokenCodec signs and verifies access and refresh tokens.
type TokenCodec interface {
	Issue(kind domainauth.TokenKind, userID string) (string, time.Time, error)
	Verify(kind domainauth.TokenKind, token string) (*domainauth.Claims, error)
}

var _ TokenCodec = (*auth.Codec)(nil)

type Deps struct {
	Users  user.Repo
	Codec  TokenCodec
	Tx     domainauth.Transactor
	Events domainauth.EventSink
	Logger *zap.Logger
	Now    func() time.Time
}

// Usecase issues, rotates and terminates sessions. A user has at most one live refresh
// token; logging in again replaces it.
type Usecase struct {
	users  user.Repo
	codec  TokenCodec
	tx     domainauth.Transactor
	events domainauth.EventSink
	log    *zap.Logger
	now    func() time.Time
}

func NewUsecase(d Deps) *Usecase {
	if d.Tx == nil {
		d.Tx = domainauth.NoTx{}
	}
	if d.Events == nil {
		d.Events = domainauth.NopEvents{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Usecase{
		users:  d.Users,
		codec:  d.Codec,
		tx:     d.Tx,
		events: d.Events,
		log:    d.Logger.With(zap.String("component", "auth.usecase")),
		now:    d.Now,
	}
}

// SignIn verifies the password of the user matching userName or email and starts a new
// session.
func (u *Usecase) SignIn(ctx context.Context, userName, email, password string) (*user.User, domainauth.TokenPair, error) {
	userName, email = user.NormalizeUserName(userName), user.NormalizeEmail(email)
	if (userName == "" && email == "") || strings.TrimSpace(password) == "" {
		return nil, domainauth.TokenPair{}, domainauth.BadRequest("user name or email and password are required")
	}

	rec, err := u.users.GetByHandleOrEmail(ctx, userName, email)
	if err != nil {
		loginsTotal.WithLabelValues("unknown_user").Inc()
		return nil, domainauth.TokenPair{}, storeErr(err, domainauth.ErrUserNotFound)
	}
	if !rec.CheckPassword(password) {
		loginsTotal.WithLabelValues("bad_password").Inc()
		u.log.Info("login rejected", zap.String("user_id", rec.ID))
		return nil, domainauth.TokenPair{}, domainauth.ErrInvalidCredentials
	}

	pair, err := u.issuePair(rec.ID)
	if err != nil {
		return nil, domainauth.TokenPair{}, err
	}

	err = u.inTx(ctx, func(ctx context.Context) error {
		if err := u.users.SetRefreshToken(ctx, rec.ID, auth.HashToken(pair.RefreshToken)); err != nil {
			return storeErr(err, domainauth.ErrUserNotFound)
		}
		return u.record(ctx, domainauth.EventLogin, rec.ID)
	})
	if err != nil {
		loginsTotal.WithLabelValues("error").Inc()
		return nil, domainauth.TokenPair{}, err
	}

	loginsTotal.WithLabelValues("ok").Inc()
	u.log.Info("user logged in", zap.String("user_id", rec.ID))
	return rec.Public(), pair, nil
}

// Refresh exchanges a live refresh token for a new pair. The presented token is dead
// afterwards whether or not the caller receives the response.
func (u *Usecase) Refresh(ctx context.Context, presented string) (domainauth.TokenPair, error) {
	if presented == "" {
		rotationsTotal.WithLabelValues("missing").Inc()
		return domainauth.TokenPair{}, domainauth.ErrMissingCredential
	}

	claims, err := u.codec.Verify(domainauth.KindRefresh, presented)
	if err != nil {
		rotationsTotal.WithLabelValues("invalid").Inc()
		return domainauth.TokenPair{}, err
	}
	if _, err := u.users.GetByID(ctx, claims.Subject); err != nil {
		rotationsTotal.WithLabelValues("invalid").Inc()
		return domainauth.TokenPair{}, storeErr(err, domainauth.ErrTokenInvalid)
	}

	pair, err := u.issuePair(claims.Subject)
	if err != nil {
		return domainauth.TokenPair{}, err
	}

	err = u.inTx(ctx, func(ctx context.Context) error {
		err := u.users.RotateRefreshToken(ctx, claims.Subject,
			auth.HashToken(presented), auth.HashToken(pair.RefreshToken))
		if errors.Is(err, user.ErrStaleRefreshToken) {
			return domainauth.ErrTokenReuse
		}
		if err != nil {
			return storeErr(err, domainauth.ErrTokenInvalid)
		}
		return u.record(ctx, domainauth.EventRotated, claims.Subject)
	})
	if errors.Is(err, domainauth.ErrTokenReuse) {
		rotationsTotal.WithLabelValues("reuse").Inc()
		u.log.Warn("refresh token reuse detected",
			zap.String("user_id", claims.Subject), zap.String("jti", claims.ID))
		if rerr := u.record(ctx, domainauth.EventReuseDetected, claims.Subject); rerr != nil {
			u.log.Error("record reuse event", zap.Error(rerr))
		}
		return domainauth.TokenPair{}, err
	}
	if err != nil {
		rotationsTotal.WithLabelValues("error").Inc()
		return domainauth.TokenPair{}, err
	}

	rotationsTotal.WithLabelValues("ok").Inc()
	return pair, nil
}

// Logout drops the stored refresh token. Access tokens already issued stay valid until
// they expire.
func (u *Usecase) Logout(ctx context.Context, userID string) error {
	err := u.inTx(ctx, func(ctx context.Context) error {
		if err := u.users.ClearRefreshToken(ctx, userID); err != nil {
			return storeErr(err, domainauth.ErrUserNotFound)
		}
		return u.record(ctx, domainauth.EventLogout, userID)
	})
	if err != nil {
		return err
	}
	logoutsTotal.Inc()
	u.log.Info("user logged out", zap.String("user_id", userID))
	return nil
}

// Authenticate resolves an access token to its user. Nothing stored is compared or
// written.
func (u *Usecase) Authenticate(ctx context.Context, accessToken string) (*user.User, error) {
	if accessToken == "" {
		return nil, domainauth.ErrMissingCredential
	}
	claims, err := u.codec.Verify(domainauth.KindAccess, accessToken)
	if err != nil {
		return nil, err
	}
	rec, err := u.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, storeErr(err, domainauth.ErrUnknownIdentity)
	}
	return rec.Public(), nil
}

// inTx runs fn in a store transaction. Failures to begin or commit are classified like
// any other store failure.
func (u *Usecase) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return storeErr(u.tx.WithTx(ctx, fn), nil)
}

func (u *Usecase) issuePair(userID string) (domainauth.TokenPair, error) {
	access, accessExp, err := u.codec.Issue(domainauth.KindAccess, userID)
	if err != nil {
		return domainauth.TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, refreshExp, err := u.codec.Issue(domainauth.KindRefresh, userID)
	if err != nil {
		return domainauth.TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return domainauth.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (u *Usecase) record(ctx context.Context, kind domainauth.EventKind, userID string) error {
	if err := u.events.Record(ctx, domainauth.SessionEvent{Kind: kind, UserID: userID, At: u.now()}); err != nil {
		return storeErr(err, nil)
	}
	return nil
}

// storeErr maps credential store failures onto the session error classes. notFound is
// returned for a missing user.
func storeErr(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, user.ErrNotFound) && notFound != nil:
		return notFound
	case errors.Is(err, user.ErrUnavailable):
		return domainauth.ErrStoreUnavailable
	default:
		return err
	}
}
