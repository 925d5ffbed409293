package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	domainauth "github.com/NordCoder/Vidhub/internal/domain/auth"
)

type KeyConfig struct {
	Secret []byte
	TTL    time.Duration
}

type Config struct {
	Access  KeyConfig
	Refresh KeyConfig
	Issuer  string
	Now     func() time.Time
}

// Codec issues and verifies the two token kinds. Each kind has its own secret and audience,
// so a token of one kind never verifies as the other.
type Codec struct {
	keys   map[domainauth.TokenKind]KeyConfig
	issuer string
	now    func() time.Time
}

type claims struct {
	jwt.RegisteredClaims
}

func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Access.Secret) == 0 || len(cfg.Refresh.Secret) == 0 {
		return nil, errors.New("access and refresh secrets are required")
	}
	if string(cfg.Access.Secret) == string(cfg.Refresh.Secret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.Access.TTL <= 0 || cfg.Refresh.TTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Codec{
		keys: map[domainauth.TokenKind]KeyConfig{
			domainauth.KindAccess:  cfg.Access,
			domainauth.KindRefresh: cfg.Refresh,
		},
		issuer: cfg.Issuer,
		now:    cfg.Now,
	}, nil
}

func (c *Codec) TTL(kind domainauth.TokenKind) time.Duration {
	return c.keys[kind].TTL
}

// Issue signs a token of the given kind with the kind's default lifetime.
func (c *Codec) Issue(kind domainauth.TokenKind, userID string) (string, time.Time, error) {
	key, ok := c.keys[kind]
	if !ok {
		return "", time.Time{}, fmt.Errorf("unknown token kind %q", kind)
	}
	return c.IssueWithTTL(kind, userID, key.TTL)
}

func (c *Codec) IssueWithTTL(kind domainauth.TokenKind, userID string, ttl time.Duration) (string, time.Time, error) {
	key, ok := c.keys[kind]
	if !ok {
		return "", time.Time{}, fmt.Errorf("unknown token kind %q", kind)
	}
	if userID == "" {
		return "", time.Time{}, errors.New("user id is required")
	}
	now := c.now()
	exp := now.Add(ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{string(kind)},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	})
	signed, err := tok.SignedString(key.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, exp, nil
}

// Verify checks signature, audience and expiry. Failures are ErrTokenExpired or
// ErrTokenInvalid, nothing from a rejected token is returned.
func (c *Codec) Verify(kind domainauth.TokenKind, token string) (*domainauth.Claims, error) {
	key, ok := c.keys[kind]
	if !ok || token == "" {
		return nil, domainauth.ErrTokenInvalid
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(string(kind)),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	var cl claims
	parsed, err := jwt.NewParser(opts...).ParseWithClaims(token, &cl, func(*jwt.Token) (interface{}, error) {
		return key.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domainauth.ErrTokenExpired
		}
		return nil, domainauth.ErrTokenInvalid
	}
	if !parsed.Valid || cl.Subject == "" || cl.ExpiresAt == nil {
		return nil, domainauth.ErrTokenInvalid
	}

	out := &domainauth.Claims{
		Kind:      kind,
		Subject:   cl.Subject,
		ID:        cl.ID,
		ExpiresAt: cl.ExpiresAt.Time,
	}
	if cl.IssuedAt != nil {
		out.IssuedAt = cl.IssuedAt.Time
	}
	return out, nil
}

// HashToken is the form a refresh token is stored in.
func HashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(h[:])
}
