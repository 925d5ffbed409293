package account

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/NordCoder/Vidhub/internal/domain/auth"
	"github.com/NordCoder/Vidhub/internal/domain/media"
	"github.com/NordCoder/Vidhub/internal/domain/user"
	"github.com/NordCoder/Vidhub/internal/repository/memory"
)

type fakeUploader struct {
	mu         sync.Mutex
	keys       []string
	deleted    []string
	err        error
	failPrefix string
}

func (f *fakeUploader) Upload(_ context.Context, key string, file media.File) (string, error) {
	if f.err != nil || (f.failPrefix != "" && strings.HasPrefix(key, f.failPrefix)) {
		return "", errors.New("s3 down")
	}
	_, _ = io.Copy(io.Discard, file.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return "https://cdn.test/" + key, nil
}

func (f *fakeUploader) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

// racingRepo hides existing users from the pre-check, like a concurrent registration
// that commits between the check and the insert.
type racingRepo struct {
	user.Repo
	createErr error
}

func (r racingRepo) GetByHandleOrEmail(context.Context, string, string) (*user.User, error) {
	return nil, user.ErrNotFound
}

func (r racingRepo) Create(context.Context, *user.User) error { return r.createErr }

func png(name string) *media.File {
	return &media.File{Name: name, ContentType: "image/png", Size: 3, Body: strings.NewReader("png")}
}

func newUsecase(t *testing.T) (*Usecase, *memory.UserRepo, *fakeUploader) {
	t.Helper()
	users := memory.NewUserRepo()
	up := &fakeUploader{}
	ids := 0
	uc := NewUsecase(Deps{
		Users:      users,
		Media:      up,
		Logger:     zap.NewNop(),
		BcryptCost: bcrypt.MinCost,
		NewID: func() string {
			ids++
			return "id-" + strconv.Itoa(ids)
		},
	})
	return uc, users, up
}

func validInput() RegisterInput {
	return RegisterInput{
		FullName: "Alice",
		Email:    "Alice@Example.com",
		UserName: "Alice",
		Password: "correct-pw",
		Avatar:   png("me.PNG"),
	}
}

func TestRegister(t *testing.T) {
	uc, users, up := newUsecase(t)
	ctx := context.Background()

	u, err := uc.Register(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, "alice", u.UserName)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Empty(t, u.PasswordHash)
	assert.Equal(t, "https://cdn.test/avatars/id-1/id-2.png", u.Avatar)
	assert.Empty(t, u.CoverImage)
	assert.Len(t, up.keys, 1)
	assert.Empty(t, up.deleted)

	stored, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, stored.CheckPassword("correct-pw"))
	assert.Empty(t, stored.RefreshTokenHash)
}

func TestRegister_WithCover(t *testing.T) {
	uc, _, up := newUsecase(t)
	in := validInput()
	in.CoverImage = png("cover.jpg")

	u, err := uc.Register(context.Background(), in)
	require.NoError(t, err)
	assert.NotEmpty(t, u.CoverImage)
	assert.Len(t, up.keys, 2)
}

func TestRegister_Validation(t *testing.T) {
	uc, _, up := newUsecase(t)
	ctx := context.Background()

	in := validInput()
	in.FullName = "  "
	_, err := uc.Register(ctx, in)
	assert.ErrorIs(t, err, domainauth.ErrBadRequest)

	in = validInput()
	in.Avatar = nil
	_, err = uc.Register(ctx, in)
	assert.ErrorIs(t, err, domainauth.ErrBadRequest)
	assert.Empty(t, up.keys)
}

func TestRegister_Duplicate(t *testing.T) {
	uc, _, up := newUsecase(t)
	ctx := context.Background()
	_, err := uc.Register(ctx, validInput())
	require.NoError(t, err)

	in := validInput()
	in.UserName = "someone-else"
	_, err = uc.Register(ctx, in)
	assert.ErrorIs(t, err, domainauth.ErrConflict)
	assert.Len(t, up.keys, 1, "no upload for a rejected registration")
}

func TestRegister_MediaDown(t *testing.T) {
	uc, users, up := newUsecase(t)
	up.err = errors.New("s3 down")

	_, err := uc.Register(context.Background(), validInput())
	assert.ErrorIs(t, err, domainauth.ErrTransient)

	_, err = users.GetByHandleOrEmail(context.Background(), "alice", "")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestChangePassword(t *testing.T) {
	uc, users, _ := newUsecase(t)
	ctx := context.Background()
	u, err := uc.Register(ctx, validInput())
	require.NoError(t, err)
	require.NoError(t, users.SetRefreshToken(ctx, u.ID, "live"))

	err = uc.ChangePassword(ctx, u.ID, "wrong", "new-pw")
	assert.ErrorIs(t, err, domainauth.ErrBadRequest)
	assert.Equal(t, "invalid old password", domainauth.Reason(err))

	require.NoError(t, uc.ChangePassword(ctx, u.ID, "correct-pw", "new-pw"))
	stored, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, stored.CheckPassword("new-pw"))
	assert.False(t, stored.CheckPassword("correct-pw"))
	assert.Equal(t, "live", stored.RefreshTokenHash)

	assert.ErrorIs(t, uc.ChangePassword(ctx, u.ID, "new-pw", ""), domainauth.ErrBadRequest)
}

func TestUpdateProfile(t *testing.T) {
	uc, _, _ := newUsecase(t)
	ctx := context.Background()
	alice, err := uc.Register(ctx, validInput())
	require.NoError(t, err)

	bobIn := validInput()
	bobIn.UserName, bobIn.Email = "bob", "bob@example.com"
	_, err = uc.Register(ctx, bobIn)
	require.NoError(t, err)

	_, err = uc.UpdateProfile(ctx, alice.ID, "Alice", "bob@example.com")
	assert.ErrorIs(t, err, domainauth.ErrConflict)

	_, err = uc.UpdateProfile(ctx, alice.ID, "", "x@example.com")
	assert.ErrorIs(t, err, domainauth.ErrBadRequest)

	updated, err := uc.UpdateProfile(ctx, alice.ID, "Alice Cooper", "Cooper@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice Cooper", updated.FullName)
	assert.Equal(t, "cooper@example.com", updated.Email)

	_, err = uc.UpdateProfile(ctx, "ghost", "A", "a@example.com")
	assert.ErrorIs(t, err, domainauth.ErrNotFound)
}

func TestUpdateImages(t *testing.T) {
	uc, _, up := newUsecase(t)
	ctx := context.Background()
	u, err := uc.Register(ctx, validInput())
	require.NoError(t, err)

	_, err = uc.UpdateAvatar(ctx, u.ID, nil)
	assert.ErrorIs(t, err, domainauth.ErrBadRequest)

	withAvatar, err := uc.UpdateAvatar(ctx, u.ID, png("new.png"))
	require.NoError(t, err)
	assert.NotEqual(t, u.Avatar, withAvatar.Avatar)

	withCover, err := uc.UpdateCoverImage(ctx, u.ID, png("cover.png"))
	require.NoError(t, err)
	assert.Contains(t, withCover.CoverImage, "/covers/"+u.ID+"/")
	assert.Equal(t, withAvatar.Avatar, withCover.Avatar)
	assert.Len(t, up.keys, 3)
}

func TestRegister_CreateFailureRemovesUploads(t *testing.T) {
	cases := []struct {
		name      string
		createErr error
		want      error
	}{
		{"lost duplicate race", user.ErrAlreadyExists, domainauth.ErrConflict},
		{"store down", user.ErrUnavailable, domainauth.ErrTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			up := &fakeUploader{}
			uc := NewUsecase(Deps{
				Users:      racingRepo{Repo: memory.NewUserRepo(), createErr: tc.createErr},
				Media:      up,
				BcryptCost: bcrypt.MinCost,
			})
			in := validInput()
			in.CoverImage = png("cover.jpg")

			_, err := uc.Register(context.Background(), in)
			assert.ErrorIs(t, err, tc.want)
			require.Len(t, up.keys, 2)
			assert.ElementsMatch(t, up.keys, up.deleted)
		})
	}
}

func TestRegister_CoverFailureRemovesAvatar(t *testing.T) {
	uc, users, up := newUsecase(t)
	up.failPrefix = "covers/"
	in := validInput()
	in.CoverImage = png("cover.jpg")

	_, err := uc.Register(context.Background(), in)
	assert.ErrorIs(t, err, domainauth.ErrTransient)
	assert.Equal(t, up.keys, up.deleted)
	require.Len(t, up.deleted, 1)
	assert.Contains(t, up.deleted[0], "avatars/")

	_, err = users.GetByHandleOrEmail(context.Background(), "alice", "")
	assert.ErrorIs(t, err, user.ErrNotFound)
}
