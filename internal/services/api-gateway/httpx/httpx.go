// Package httpx holds the JSON envelope shared by gateway handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	domainauth "github.com/NordCoder/Vidhub/internal/domain/auth"
	"github.com/NordCoder/Vidhub/internal/obs"
)

// Envelope is the body of every gateway response.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func WriteJSON(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// StatusOf maps an error class to its HTTP status.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, domainauth.ErrUnauthorized), errors.Is(err, domainauth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, domainauth.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainauth.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domainauth.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domainauth.ErrTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err with its class status. Unclassified errors are logged and
// reported without detail.
func WriteError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		obs.FromContext(r.Context(), log).Error("request failed", zap.Error(err))
	}
	WriteJSON(w, status, nil, domainauth.Reason(err))
}

// DecodeJSON reads an optional JSON body. An empty body leaves dest untouched.
func DecodeJSON(r *http.Request, dest any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	err := json.NewDecoder(r.Body).Decode(dest)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return domainauth.BadRequest("malformed JSON body")
	}
	return nil
}
