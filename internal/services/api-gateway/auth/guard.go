package auth

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/NordCoder/Vidhub/internal/domain/user"
	"github.com/NordCoder/Vidhub/internal/obs"
	"github.com/NordCoder/Vidhub/internal/services/api-gateway/httpx"
)

var guardRejections = promauto.NewCounter(prometheus.CounterOpts{
	Name: "auth_guard_rejections_total",
	Help: "Requests rejected by the access guard.",
})

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*user.User, error)
}

type ctxKey struct{}

func WithCurrentUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// CurrentUser is the only way downstream handlers learn who is calling.
func CurrentUser(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*user.User)
	return u, ok && u != nil
}

// Guard admits requests carrying a valid access token, taken from the accessToken
// cookie first and the Authorization header second.
func Guard(a Authenticator, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := cookieValue(r, AccessCookie)
			if token == "" {
				token = bearer(r)
			}

			u, err := a.Authenticate(r.Context(), token)
			if err != nil {
				guardRejections.Inc()
				obs.FromContext(r.Context(), log).Debug("guard rejected request", zap.Error(err))
				httpx.WriteError(w, r, log, err)
				return
			}

			ctx := WithCurrentUser(r.Context(), u)
			ctx = obs.IntoContext(ctx, obs.FromContext(ctx, log).With(zap.String("user_id", u.ID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
