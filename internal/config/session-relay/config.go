package session_relay_config

import (
	"github.com/NordCoder/Vidhub/internal/obs"
	"github.com/NordCoder/Vidhub/internal/outbox"
	pginfra "github.com/NordCoder/Vidhub/internal/repository/postgres"
)

type Kafka struct {
	Brokers           []string `mapstructure:"brokers"`
	Topic             string   `mapstructure:"topic"`
	Partitions        int      `mapstructure:"partitions"`
	ReplicationFactor int      `mapstructure:"replication_factor"`
}

type Server struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type Config struct {
	DB       pginfra.Config      `mapstructure:"db"`
	Kafka    Kafka               `mapstructure:"kafka"`
	Outbox   outbox.RunnerConfig `mapstructure:"outbox"`
	OTEL     obs.OTELConfig      `mapstructure:"otel"`
	Server   Server              `mapstructure:"server"`
	LogLevel string              `mapstructure:"log_level"`
}
