package auth

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	domainauth "github.com/NordCoder/Vidhub/internal/domain/auth"
	"github.com/NordCoder/Vidhub/internal/domain/user"
	"github.com/NordCoder/Vidhub/internal/services/api-gateway/httpx"
)

type Sessions interface {
	SignIn(ctx context.Context, userName, email, password string) (*user.User, domainauth.TokenPair, error)
	Refresh(ctx context.Context, presented string) (domainauth.TokenPair, error)
	Logout(ctx context.Context, userID string) error
}

var _ Sessions = (*Usecase)(nil)

type Controller struct {
	sessions Sessions
	cookies  CookieConfig
	log      *zap.Logger
}

func NewController(s Sessions, cookies CookieConfig, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{sessions: s, cookies: cookies, log: log.With(zap.String("component", "auth.controller"))}
}

// Routes mounts the session endpoints. guard protects logout.
func (c *Controller) Routes(mux *http.ServeMux, prefix string, guard func(http.Handler) http.Handler) {
	mux.HandleFunc("POST "+prefix+"/login", c.Login)
	mux.HandleFunc("POST "+prefix+"/refresh-token", c.RefreshToken)
	mux.Handle("POST "+prefix+"/logout", guard(http.HandlerFunc(c.Logout)))
}

type loginRequest struct {
	UserName string `json:"userName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User *user.User `json:"user,omitempty"`
	domainauth.TokenPair
}

func (c *Controller) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, c.log, err)
		return
	}

	u, pair, err := c.sessions.SignIn(r.Context(), req.UserName, req.Email, req.Password)
	if err != nil {
		httpx.WriteError(w, r, c.log, err)
		return
	}

	c.cookies.SetSession(w, pair)
	httpx.WriteJSON(w, http.StatusOK, sessionResponse{User: u, TokenPair: pair}, "User logged in successfully")
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (c *Controller) RefreshToken(w http.ResponseWriter, r *http.Request) {
	presented := cookieValue(r, RefreshCookie)
	if presented == "" {
		var req refreshRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, r, c.log, err)
			return
		}
		presented = req.RefreshToken
	}

	pair, err := c.sessions.Refresh(r.Context(), presented)
	if err != nil {
		if !errors.Is(err, domainauth.ErrTransient) {
			c.cookies.ClearSession(w)
		}
		httpx.WriteError(w, r, c.log, err)
		return
	}

	c.cookies.SetSession(w, pair)
	httpx.WriteJSON(w, http.StatusOK, sessionResponse{TokenPair: pair}, "Access token refreshed")
}

func (c *Controller) Logout(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		httpx.WriteError(w, r, c.log, domainauth.ErrMissingCredential)
		return
	}
	if err := c.sessions.Logout(r.Context(), u.ID); err != nil {
		httpx.WriteError(w, r, c.log, err)
		return
	}

	c.cookies.ClearSession(w)
	httpx.WriteJSON(w, http.StatusOK, struct{}{}, "User logged out")
}
