package auth

import (
	"errors"
	"time"
)

// Error classes. Every error returned by the session core unwraps to exactly one of them,
// the transport layer maps classes to status codes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrNotFound     = errors.New("not found")
	ErrTransient    = errors.New("temporarily unavailable")
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("conflict")
)

// Error is a specific failure with a stable, human readable reason.
type Error struct {
	Class  error
	Reason string
}

func (e *Error) Error() string { return e.Reason }

func (e *Error) Unwrap() error { return e.Class }

func newErr(class error, reason string) *Error { return &Error{Class: class, Reason: reason} }

var (
	ErrMissingCredential  = newErr(ErrUnauthorized, "unauthorized request")
	ErrInvalidCredentials = newErr(ErrUnauthorized, "invalid user credential")
	ErrTokenReuse         = newErr(ErrUnauthorized, "refresh token is expired or used")
	ErrUserNotFound       = newErr(ErrNotFound, "user not found")
	ErrTokenInvalid       = newErr(ErrInvalidToken, "invalid token")
	ErrTokenExpired       = newErr(ErrInvalidToken, "token expired")
	ErrUnknownIdentity    = newErr(ErrInvalidToken, "invalid access token")
	ErrStoreUnavailable   = newErr(ErrTransient, "credential store unavailable, retry later")
	ErrMediaUnavailable   = newErr(ErrTransient, "media host unavailable, retry later")
)

// BadRequest builds a validation failure.
func BadRequest(reason string) error { return newErr(ErrBadRequest, reason) }

// Conflict builds a uniqueness failure.
func Conflict(reason string) error { return newErr(ErrConflict, reason) }

// Reason returns the message safe to show to a client.
func Reason(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return "something went wrong"
}

type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Claims is the verified content of a token.
type Claims struct {
	Kind      TokenKind
	Subject   string // user id
	ID        string // jti
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
