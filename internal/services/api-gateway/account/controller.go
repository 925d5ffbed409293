package account

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"go.uber.org/zap"

	domainauth "github.com/NordCoder/Vidhub/internal/domain/auth"
	"github.com/NordCoder/Vidhub/internal/domain/media"
	"github.com/NordCoder/Vidhub/internal/domain/user"
	"github.com/NordCoder/Vidhub/internal/services/api-gateway/auth"
	"github.com/NordCoder/Vidhub/internal/services/api-gateway/httpx"
)

const maxMultipartMemory = 32 << 20

type Controller struct {
	uc  *Usecase
	log *zap.Logger
}

func NewController(uc *Usecase, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{uc: uc, log: log.With(zap.String("component", "account.controller"))}
}

// Routes mounts registration and the guarded profile endpoints.
func (c *Controller) Routes(mux *http.ServeMux, prefix string, guard func(http.Handler) http.Handler) {
	mux.HandleFunc("POST "+prefix+"/register", c.Register)
	mux.Handle("GET "+prefix+"/get-user", guard(http.HandlerFunc(c.CurrentUser)))
	mux.Handle("PATCH "+prefix+"/update-password", guard(http.HandlerFunc(c.ChangePassword)))
	mux.Handle("PATCH "+prefix+"/user-profile-update", guard(http.HandlerFunc(c.UpdateProfile)))
	mux.Handle("PATCH "+prefix+"/avatar-update", guard(http.HandlerFunc(c.UpdateAvatar)))
	mux.Handle("PATCH "+prefix+"/coverImage-update", guard(http.HandlerFunc(c.UpdateCoverImage)))
}

func (c *Controller) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		httpx.WriteError(w, r, c.log, domainauth.BadRequest("multipart form expected"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	avatar, err := formFile(r, "avatar")
	if err != nil {
		httpx.WriteError(w, r, c.log, err)
		return
	}
	defer closeFile(avatar)
	cover, err := formFile(r, "coverImage")
	if err != nil {
		httpx.WriteError(w, r, c.log, err)
		return
	}
	defer closeFile(cover)

	u, err := c.uc.Register(r.Context(), RegisterInput{
		FullName:   r.FormValue("fullName"),
		Email:      r.FormValue("email"),
		UserName:   r.FormValue("userName"),
		Password:   r.FormValue("password"),
		Avatar:     avatar,
		CoverImage: cover,
	})
	if err != nil {
		httpx.WriteError(w, r, c.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, u, "User created successfully")
}

func (c *Controller) CurrentUser(w http.ResponseWriter, r *http.Request) {
	u, ok := current(w, r, c.log)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u, "Current user fetched successfully")
}

type passwordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (c *Controller) ChangePassword(w http.ResponseWriter, r *http.Request) {
	u, ok := current(w, r, c.log)
	if !ok {
		return
	}
	var req passwordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, c.log, err)
		return
	}
	if err := c.uc.ChangePassword(r.Context(), u.ID, req.OldPassword, req.NewPassword); err != nil {
		httpx.WriteError(w, r, c.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, struct{}{}, "Password changed successfully")
}

type profileRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

func (c *Controller) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	u, ok := current(w, r, c.log)
	if !ok {
		return
	}
	var req profileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, c.log, err)
		return
	}
	updated, err := c.uc.UpdateProfile(r.Context(), u.ID, req.FullName, req.Email)
	if err != nil {
		httpx.WriteError(w, r, c.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, updated, "Account details updated successfully")
}

func (c *Controller) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	c.updateImage(w, r, "avatar", c.uc.UpdateAvatar, "Avatar updated successfully")
}

func (c *Controller) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	c.updateImage(w, r, "coverImage", c.uc.UpdateCoverImage, "Cover image updated successfully")
}

type imageUpdate func(ctx context.Context, userID string, f *media.File) (*user.User, error)

func (c *Controller) updateImage(w http.ResponseWriter, r *http.Request, field string, update imageUpdate, msg string) {
	u, ok := current(w, r, c.log)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		httpx.WriteError(w, r, c.log, domainauth.BadRequest("multipart form expected"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	f, err := formFile(r, field)
	if err != nil {
		httpx.WriteError(w, r, c.log, err)
		return
	}
	defer closeFile(f)
	updated, err := update(r.Context(), u.ID, f)
	if err != nil {
		httpx.WriteError(w, r, c.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, updated, msg)
}

func current(w http.ResponseWriter, r *http.Request, log *zap.Logger) (*user.User, bool) {
	u, ok := auth.CurrentUser(r.Context())
	if !ok {
		httpx.WriteError(w, r, log, domainauth.ErrMissingCredential)
	}
	return u, ok
}

// formFile returns nil when the part is absent.
func formFile(r *http.Request, name string) (*media.File, error) {
	file, hdr, err := r.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, domainauth.BadRequest("cannot read " + name + " file")
	}
	return toMedia(file, hdr), nil
}

func toMedia(file multipart.File, hdr *multipart.FileHeader) *media.File {
	return &media.File{
		Name:        hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Size:        hdr.Size,
		Body:        file,
	}
}

func closeFile(f *media.File) {
	if f == nil {
		return
	}
	if c, ok := f.Body.(io.Closer); ok {
		_ = c.Close()
	}
}
