package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/Vidhub/internal/domain/user"
)

var _ user.Repo = (*UserRepo)(nil)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, user_name, email, full_name, avatar, cover_image, password_hash,
       COALESCE(refresh_token_hash, ''), created_at, updated_at`

const (
	qUserInsert = `
INSERT INTO users (id, user_name, email, full_name, avatar, cover_image, password_hash)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at, updated_at;`

	qUserByID = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1;`

	qUserByHandleOrEmail = `
SELECT ` + userColumns + `
FROM users
WHERE ($1 <> '' AND user_name = $1) OR ($2 <> '' AND email = $2)
ORDER BY (user_name = $1) DESC
LIMIT 1;`

	qUserUpdate = `
UPDATE users
SET email         = $2,
    full_name     = $3,
    avatar        = $4,
    cover_image   = $5,
    password_hash = $6,
    updated_at    = NOW()
WHERE id = $1
RETURNING updated_at;`

	qUserSetRefresh = `
UPDATE users SET refresh_token_hash = NULLIF($2, ''), updated_at = NOW() WHERE id = $1;`

	qUserRotateRefresh = `
UPDATE users
SET refresh_token_hash = $3, updated_at = NOW()
WHERE id = $1 AND refresh_token_hash IS NOT NULL AND refresh_token_hash = $2;`
)

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	err := r.db.execQueryer(ctx).QueryRow(ctx, qUserInsert,
		u.ID, u.UserName, u.Email, u.FullName, u.Avatar, u.CoverImage, u.PasswordHash,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	return mapErr("user insert", err)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, qUserByID, id), &u); err != nil {
		return nil, mapErr("user by id", err)
	}
	return &u, nil
}

func (r *UserRepo) GetByHandleOrEmail(ctx context.Context, userName, email string) (*user.User, error) {
	if userName == "" && email == "" {
		return nil, user.ErrNotFound
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, qUserByHandleOrEmail, userName, email), &u); err != nil {
		return nil, mapErr("user by handle or email", err)
	}
	return &u, nil
}

func (r *UserRepo) Update(ctx context.Context, u *user.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	err := r.db.execQueryer(ctx).QueryRow(ctx, qUserUpdate,
		u.ID, u.Email, u.FullName, u.Avatar, u.CoverImage, u.PasswordHash,
	).Scan(&u.UpdatedAt)
	return mapErr("user update", err)
}

func (r *UserRepo) SetRefreshToken(ctx context.Context, id, tokenHash string) error {
	return r.setRefresh(ctx, id, tokenHash)
}

func (r *UserRepo) ClearRefreshToken(ctx context.Context, id string) error {
	return r.setRefresh(ctx, id, "")
}

func (r *UserRepo) setRefresh(ctx context.Context, id, tokenHash string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qUserSetRefresh, id, tokenHash)
	if err != nil {
		return mapErr("user set refresh", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepo) RotateRefreshToken(ctx context.Context, id, prevHash, nextHash string) error {
	if prevHash == "" || nextHash == "" {
		return user.ErrStaleRefreshToken
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qUserRotateRefresh, id, prevHash, nextHash)
	if err != nil {
		return mapErr("user rotate refresh", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrStaleRefreshToken
	}
	return nil
}

func scanUser(row pgx.Row, out *user.User) error {
	return row.Scan(
		&out.ID, &out.UserName, &out.Email, &out.FullName, &out.Avatar, &out.CoverImage,
		&out.PasswordHash, &out.RefreshTokenHash, &out.CreatedAt, &out.UpdatedAt,
	)
}
