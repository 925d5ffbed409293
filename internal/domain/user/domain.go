package user

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID               string    `json:"_id"`
	UserName         string    `json:"userName"`
	Email            string    `json:"email"`
	FullName         string    `json:"fullName"`
	Avatar           string    `json:"avatar"`
	CoverImage       string    `json:"coverImage"`
	PasswordHash     string    `json:"-"`
	RefreshTokenHash string    `json:"-"` // empty when no session is live
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Public returns a copy without password and refresh state.
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.PasswordHash = ""
	cp.RefreshTokenHash = ""
	return &cp
}

func (u *User) CheckPassword(password string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func NormalizeUserName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
