package account

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainauth "github.com/NordCoder/Vidhub/internal/domain/auth"
	"github.com/NordCoder/Vidhub/internal/domain/media"
	"github.com/NordCoder/Vidhub/internal/domain/user"
)

type Deps struct {
	Users      user.Repo
	Media      media.Uploader
	Events     domainauth.EventSink
	Logger     *zap.Logger
	BcryptCost int
	NewID      func() string
	Now        func() time.Time
}

type Usecase struct {
	users  user.Repo
	media  media.Uploader
	events domainauth.EventSink
	log    *zap.Logger
	cost   int
	newID  func() string
	now    func() time.Time
}

func NewUsecase(d Deps) *Usecase {
	if d.Events == nil {
		d.Events = domainauth.NopEvents{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Usecase{
		users:  d.Users,
		media:  d.Media,
		events: d.Events,
		log:    d.Logger.With(zap.String("component", "account.usecase")),
		cost:   d.BcryptCost,
		newID:  d.NewID,
		now:    d.Now,
	}
}

type RegisterInput struct {
	FullName   string
	Email      string
	UserName   string
	Password   string
	Avatar     *media.File
	CoverImage *media.File
}

func (u *Usecase) Register(ctx context.Context, in RegisterInput) (*user.User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = user.NormalizeEmail(in.Email)
	in.UserName = user.NormalizeUserName(in.UserName)
	if in.FullName == "" || in.Email == "" || in.UserName == "" || strings.TrimSpace(in.Password) == "" {
		return nil, domainauth.BadRequest("all fields are required")
	}
	if in.Avatar == nil {
		return nil, domainauth.BadRequest("avatar is required")
	}

	_, err := u.users.GetByHandleOrEmail(ctx, in.UserName, in.Email)
	switch {
	case err == nil:
		return nil, domainauth.Conflict("user name or email is already registered")
	case !errors.Is(err, user.ErrNotFound):
		return nil, storeErr(err)
	}

	rec := &user.User{
		ID:       u.newID(),
		UserName: in.UserName,
		Email:    in.Email,
		FullName: in.FullName,
	}
	if rec.PasswordHash, err = user.HashPassword(in.Password, u.cost); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var uploaded []string
	key, url, err := u.upload(ctx, "avatars", rec.ID, in.Avatar)
	if err != nil {
		return nil, err
	}
	rec.Avatar, uploaded = url, append(uploaded, key)
	if in.CoverImage != nil {
		key, url, err := u.upload(ctx, "covers", rec.ID, in.CoverImage)
		if err != nil {
			u.discard(ctx, uploaded...)
			return nil, err
		}
		rec.CoverImage, uploaded = url, append(uploaded, key)
	}

	if err := u.users.Create(ctx, rec); err != nil {
		u.discard(ctx, uploaded...)
		if errors.Is(err, user.ErrAlreadyExists) {
			return nil, domainauth.Conflict("user name or email is already registered")
		}
		return nil, storeErr(err)
	}

	if err := u.events.Record(ctx, domainauth.SessionEvent{
		Kind: domainauth.EventRegistered, UserID: rec.ID, At: u.now(),
	}); err != nil {
		u.log.Error("record registration event", zap.String("user_id", rec.ID), zap.Error(err))
	}
	u.log.Info("user registered", zap.String("user_id", rec.ID))
	return rec.Public(), nil
}

func (u *Usecase) Get(ctx context.Context, userID string) (*user.User, error) {
	rec, err := u.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	return rec.Public(), nil
}

// ChangePassword replaces the password after checking the old one. The live session is
// left as it is.
func (u *Usecase) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || strings.TrimSpace(newPassword) == "" {
		return domainauth.BadRequest("old and new password are required")
	}
	rec, err := u.users.GetByID(ctx, userID)
	if err != nil {
		return storeErr(err)
	}
	if !rec.CheckPassword(oldPassword) {
		return domainauth.BadRequest("invalid old password")
	}
	if rec.PasswordHash, err = user.HashPassword(newPassword, u.cost); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := u.users.Update(ctx, rec); err != nil {
		return storeErr(err)
	}
	u.log.Info("password changed", zap.String("user_id", userID))
	return nil
}

func (u *Usecase) UpdateProfile(ctx context.Context, userID, fullName, email string) (*user.User, error) {
	fullName, email = strings.TrimSpace(fullName), user.NormalizeEmail(email)
	if fullName == "" || email == "" {
		return nil, domainauth.BadRequest("all fields are required")
	}
	rec, err := u.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	rec.FullName, rec.Email = fullName, email
	if err := u.users.Update(ctx, rec); err != nil {
		if errors.Is(err, user.ErrAlreadyExists) {
			return nil, domainauth.Conflict("email is already registered")
		}
		return nil, storeErr(err)
	}
	return rec.Public(), nil
}

func (u *Usecase) UpdateAvatar(ctx context.Context, userID string, f *media.File) (*user.User, error) {
	if f == nil {
		return nil, domainauth.BadRequest("avatar file is missing")
	}
	return u.replaceImage(ctx, userID, "avatars", f, func(rec *user.User, url string) { rec.Avatar = url })
}

func (u *Usecase) UpdateCoverImage(ctx context.Context, userID string, f *media.File) (*user.User, error) {
	if f == nil {
		return nil, domainauth.BadRequest("cover image file is missing")
	}
	return u.replaceImage(ctx, userID, "covers", f, func(rec *user.User, url string) { rec.CoverImage = url })
}

func (u *Usecase) replaceImage(ctx context.Context, userID, folder string, f *media.File, set func(*user.User, string)) (*user.User, error) {
	rec, err := u.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	key, url, err := u.upload(ctx, folder, userID, f)
	if err != nil {
		return nil, err
	}
	set(rec, url)
	if err := u.users.Update(ctx, rec); err != nil {
		u.discard(ctx, key)
		return nil, storeErr(err)
	}
	return rec.Public(), nil
}

func (u *Usecase) upload(ctx context.Context, folder, userID string, f *media.File) (key, url string, err error) {
	key = path.Join(folder, userID, u.newID()+strings.ToLower(path.Ext(f.Name)))
	url, err = u.media.Upload(ctx, key, *f)
	if err != nil {
		u.log.Error("media upload failed", zap.String("key", key), zap.Error(err))
		return "", "", domainauth.ErrMediaUnavailable
	}
	return key, url, nil
}

// discard removes objects that no stored user points at. It outlives a cancelled request.
func (u *Usecase) discard(ctx context.Context, keys ...string) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := u.media.Delete(ctx, key); err != nil {
			u.log.Warn("orphaned media object", zap.String("key", key), zap.Error(err))
		}
	}
}

func storeErr(err error) error {
	switch {
	case errors.Is(err, user.ErrNotFound):
		return domainauth.ErrUserNotFound
	case errors.Is(err, user.ErrUnavailable):
		return domainauth.ErrStoreUnavailable
	default:
		return err
	}
}
