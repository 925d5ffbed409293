// Package redis stores users as hashes with secondary index keys for user name and email.
// Writes that have to check and mutate together run as Lua scripts.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/NordCoder/Vidhub/internal/domain/user"
)

type Config struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	Prefix    string        `mapstructure:"prefix"`
	OpTimeout time.Duration `mapstructure:"op_timeout"`
}

const (
	fID          = "id"
	fUserName    = "user_name"
	fEmail       = "email"
	fFullName    = "full_name"
	fAvatar      = "avatar"
	fCoverImage  = "cover_image"
	fPassword    = "password_hash"
	fRefreshHash = "refresh_token_hash"
	fCreatedAt   = "created_at"
	fUpdatedAt   = "updated_at"
)

// KEYS: user, handle index, email index. ARGV: id, then field/value pairs.
var createLua = goredis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 or redis.call("EXISTS", KEYS[2]) == 1 or redis.call("EXISTS", KEYS[3]) == 1 then
  return 0
end
redis.call("SET", KEYS[2], ARGV[1])
redis.call("SET", KEYS[3], ARGV[1])
redis.call("HSET", KEYS[1], unpack(ARGV, 2))
return 1
`)

// KEYS: user, new email index. ARGV: id, email index prefix, new email, then field/value pairs.
var updateLua = goredis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
local owner = redis.call("GET", KEYS[2])
if owner and owner ~= ARGV[1] then
  return -1
end
local old = redis.call("HGET", KEYS[1], "email")
if old and old ~= ARGV[3] then
  redis.call("DEL", ARGV[2] .. old)
end
redis.call("SET", KEYS[2], ARGV[1])
redis.call("HSET", KEYS[1], unpack(ARGV, 4))
return 1
`)

// KEYS: user. ARGV: hash, updated_at.
var setRefreshLua = goredis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "refresh_token_hash", ARGV[1], "updated_at", ARGV[2])
return 1
`)

// KEYS: user. ARGV: expected hash, next hash, updated_at.
var rotateRefreshLua = goredis.NewScript(`
if ARGV[1] == "" then
  return 0
end
local cur = redis.call("HGET", KEYS[1], "refresh_token_hash")
if not cur or cur ~= ARGV[1] then
  return 0
end
redis.call("HSET", KEYS[1], "refresh_token_hash", ARGV[2], "updated_at", ARGV[3])
return 1
`)

var _ user.Repo = (*UserRepo)(nil)

type UserRepo struct {
	rdb       goredis.UniversalClient
	prefix    string
	opTimeout time.Duration
	now       func() time.Time
}

func NewClient(cfg Config) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewUserRepo(rdb goredis.UniversalClient, cfg Config) *UserRepo {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "vidhub"
	}
	return &UserRepo{
		rdb:       rdb,
		prefix:    prefix,
		opTimeout: cfg.OpTimeout,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (r *UserRepo) userKey(id string) string     { return r.prefix + ":user:" + id }
func (r *UserRepo) handleKey(name string) string { return r.prefix + ":user:handle:" + name }
func (r *UserRepo) emailPrefix() string          { return r.prefix + ":user:email:" }
func (r *UserRepo) emailKey(email string) string { return r.emailPrefix() + email }

func (r *UserRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.opTimeout)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, user.ErrUnavailable, err)
}

func stamp(t time.Time) string { return t.Format(time.RFC3339Nano) }

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	now := r.now()
	args := []any{
		u.ID,
		fID, u.ID,
		fUserName, u.UserName,
		fEmail, u.Email,
		fFullName, u.FullName,
		fAvatar, u.Avatar,
		fCoverImage, u.CoverImage,
		fPassword, u.PasswordHash,
		fRefreshHash, u.RefreshTokenHash,
		fCreatedAt, stamp(now),
		fUpdatedAt, stamp(now),
	}
	keys := []string{r.userKey(u.ID), r.handleKey(u.UserName), r.emailKey(u.Email)}
	res, err := createLua.Run(ctx, r.rdb, keys, args...).Int()
	if err != nil {
		return unavailable("create user", err)
	}
	if res == 0 {
		return user.ErrAlreadyExists
	}
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.load(ctx, id)
}

func (r *UserRepo) GetByHandleOrEmail(ctx context.Context, userName, email string) (*user.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var candidates []string
	if userName != "" {
		candidates = append(candidates, r.handleKey(userName))
	}
	if email != "" {
		candidates = append(candidates, r.emailKey(email))
	}
	for _, key := range candidates {
		id, err := r.rdb.Get(ctx, key).Result()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			return nil, unavailable("lookup user", err)
		}
		return r.load(ctx, id)
	}
	return nil, user.ErrNotFound
}

func (r *UserRepo) load(ctx context.Context, id string) (*user.User, error) {
	m, err := r.rdb.HGetAll(ctx, r.userKey(id)).Result()
	if err != nil {
		return nil, unavailable("load user", err)
	}
	if len(m) == 0 {
		return nil, user.ErrNotFound
	}
	u := &user.User{
		ID:               m[fID],
		UserName:         m[fUserName],
		Email:            m[fEmail],
		FullName:         m[fFullName],
		Avatar:           m[fAvatar],
		CoverImage:       m[fCoverImage],
		PasswordHash:     m[fPassword],
		RefreshTokenHash: m[fRefreshHash],
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, m[fCreatedAt])
	u.UpdatedAt, _ = time.Parse(time.RFC3339Nano, m[fUpdatedAt])
	return u, nil
}

func (r *UserRepo) Update(ctx context.Context, u *user.User) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	now := r.now()
	args := []any{
		u.ID, r.emailPrefix(), u.Email,
		fEmail, u.Email,
		fFullName, u.FullName,
		fAvatar, u.Avatar,
		fCoverImage, u.CoverImage,
		fPassword, u.PasswordHash,
		fUpdatedAt, stamp(now),
	}
	res, err := updateLua.Run(ctx, r.rdb, []string{r.userKey(u.ID), r.emailKey(u.Email)}, args...).Int()
	if err != nil {
		return unavailable("update user", err)
	}
	switch res {
	case 0:
		return user.ErrNotFound
	case -1:
		return user.ErrAlreadyExists
	}
	u.UpdatedAt = now
	return nil
}

func (r *UserRepo) SetRefreshToken(ctx context.Context, id, tokenHash string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := setRefreshLua.Run(ctx, r.rdb, []string{r.userKey(id)}, tokenHash, stamp(r.now())).Int()
	if err != nil {
		return unavailable("set refresh token", err)
	}
	if res == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepo) ClearRefreshToken(ctx context.Context, id string) error {
	return r.SetRefreshToken(ctx, id, "")
}

func (r *UserRepo) RotateRefreshToken(ctx context.Context, id, prevHash, nextHash string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := rotateRefreshLua.Run(ctx, r.rdb, []string{r.userKey(id)}, prevHash, nextHash, stamp(r.now())).Int()
	if err != nil {
		return unavailable("rotate refresh token", err)
	}
	if res == 0 {
		return user.ErrStaleRefreshToken
	}
	return nil
}
