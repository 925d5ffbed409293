package api_gateway_config

import (
	"net/http"
	"time"

	"github.com/NordCoder/Vidhub/internal/auth"
	"github.com/NordCoder/Vidhub/internal/obs"
	pg "github.com/NordCoder/Vidhub/internal/repository/postgres"
	redisrepo "github.com/NordCoder/Vidhub/internal/repository/redis"
	s3repo "github.com/NordCoder/Vidhub/internal/repository/s3"
	sessions "github.com/NordCoder/Vidhub/internal/services/api-gateway/auth"
)

const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

func (s Server) HTTPServer(h http.Handler) *http.Server {
	return &http.Server{
		Addr:         s.HTTPAddr,
		Handler:      h,
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}
}

// Store selects the credential store backend.
type Store struct {
	Driver string `mapstructure:"driver"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Auth holds both signing secrets. They must be set and must differ.
type Auth struct {
	AccessSecret  string                `mapstructure:"access_secret"`
	RefreshSecret string                `mapstructure:"refresh_secret"`
	AccessTTL     time.Duration         `mapstructure:"access_ttl"`
	RefreshTTL    time.Duration         `mapstructure:"refresh_ttl"`
	Issuer        string                `mapstructure:"issuer"`
	BcryptCost    int                   `mapstructure:"bcrypt_cost"`
	Cookie        sessions.CookieConfig `mapstructure:"cookie"`
}

type Config struct {
	App    App              `mapstructure:"app"`
	Server Server           `mapstructure:"server"`
	Store  Store            `mapstructure:"store"`
	DB     pg.Config        `mapstructure:"db"`
	Redis  redisrepo.Config `mapstructure:"redis"`
	S3     s3repo.Config    `mapstructure:"s3"`
	OTEL   OTEL             `mapstructure:"otel"`
	Log    Log              `mapstructure:"log"`
	Auth   Auth             `mapstructure:"auth"`
}

func (c *Config) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      c.OTEL.Enable,
		Endpoint:    c.OTEL.OTLPEndpoint,
		ServiceName: c.OTEL.ServiceName,
		SampleRatio: c.OTEL.SampleRatio,
		Env:         c.App.Env,
		Version:     c.App.Version,
	}
}

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		App:    "vidhub/" + c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}

func (c *Config) AsCodecConfig() auth.Config {
	return auth.Config{
		Access:  auth.KeyConfig{Secret: []byte(c.Auth.AccessSecret), TTL: c.Auth.AccessTTL},
		Refresh: auth.KeyConfig{Secret: []byte(c.Auth.RefreshSecret), TTL: c.Auth.RefreshTTL},
		Issuer:  c.Auth.Issuer,
	}
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
