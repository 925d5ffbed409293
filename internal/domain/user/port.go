package user

import (
	"context"
	"errors"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrAlreadyExists     = errors.New("user name or email already taken")
	ErrStaleRefreshToken = errors.New("stored refresh token does not match")
	ErrUnavailable       = errors.New("user store unavailable")
)

// Repo is the credential store. Every call is bounded by the implementation's timeout;
// timeouts and connection failures are reported as ErrUnavailable.
type Repo interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	// GetByHandleOrEmail matches user name or email, empty arguments are ignored.
	GetByHandleOrEmail(ctx context.Context, userName, email string) (*User, error)
	// Update persists profile, media and password fields. Refresh state is never touched.
	Update(ctx context.Context, u *User) error

	SetRefreshToken(ctx context.Context, id, tokenHash string) error
	ClearRefreshToken(ctx context.Context, id string) error
	// RotateRefreshToken replaces prevHash with nextHash in one conditional write and
	// returns ErrStaleRefreshToken when the stored value is not prevHash.
	RotateRefreshToken(ctx context.Context, id, prevHash, nextHash string) error
}
