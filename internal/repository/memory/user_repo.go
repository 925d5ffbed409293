// Package memory keeps users in process memory. It is safe for concurrent use and meant for
// tests and single-instance development runs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/NordCoder/Vidhub/internal/domain/user"
)

var _ user.Repo = (*UserRepo)(nil)

type UserRepo struct {
	mu      sync.RWMutex
	byID    map[string]*user.User
	byName  map[string]string
	byEmail map[string]string
	now     func() time.Time
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:    make(map[string]*user.User),
		byName:  make(map[string]string),
		byEmail: make(map[string]string),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *UserRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[u.ID]; ok {
		return user.ErrAlreadyExists
	}
	if _, ok := r.byName[u.UserName]; ok {
		return user.ErrAlreadyExists
	}
	if _, ok := r.byEmail[u.Email]; ok {
		return user.ErrAlreadyExists
	}
	now := r.now()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	r.byID[u.ID] = &cp
	r.byName[u.UserName] = u.ID
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) GetByHandleOrEmail(_ context.Context, userName, email string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := "", false
	if userName != "" {
		id, ok = r.byName[userName]
	}
	if !ok && email != "" {
		id, ok = r.byEmail[email]
	}
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *UserRepo) Update(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[u.ID]
	if !ok {
		return user.ErrNotFound
	}
	if owner, taken := r.byEmail[u.Email]; taken && owner != u.ID {
		return user.ErrAlreadyExists
	}
	delete(r.byEmail, cur.Email)
	r.byEmail[u.Email] = u.ID

	cur.Email = u.Email
	cur.FullName = u.FullName
	cur.Avatar = u.Avatar
	cur.CoverImage = u.CoverImage
	cur.PasswordHash = u.PasswordHash
	cur.UpdatedAt = r.now()
	u.UpdatedAt = cur.UpdatedAt
	return nil
}

func (r *UserRepo) SetRefreshToken(_ context.Context, id, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return user.ErrNotFound
	}
	u.RefreshTokenHash = tokenHash
	u.UpdatedAt = r.now()
	return nil
}

func (r *UserRepo) ClearRefreshToken(ctx context.Context, id string) error {
	return r.SetRefreshToken(ctx, id, "")
}

func (r *UserRepo) RotateRefreshToken(_ context.Context, id, prevHash, nextHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok || prevHash == "" || u.RefreshTokenHash != prevHash {
		return user.ErrStaleRefreshToken
	}
	u.RefreshTokenHash = nextHash
	u.UpdatedAt = r.now()
	return nil
}
