package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/NordCoder/Vidhub/internal/config/session-relay"
	"github.com/NordCoder/Vidhub/internal/obs"
	"github.com/NordCoder/Vidhub/internal/obs/retry"
	"github.com/NordCoder/Vidhub/internal/outbox"
	"github.com/NordCoder/Vidhub/internal/repository/kafka"
	pg "github.com/NordCoder/Vidhub/internal/repository/postgres"
)

func main() {
	configPath := flag.String("config", os.Getenv("SESSION_RELAY_CONFIG"), "path to yaml config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	l, err := obs.NewLogger(obs.LogConfig{Level: cfg.LogLevel, App: "session-relay"})
	if err != nil {
		panic(err)
	}
	defer func() { _ = l.Sync() }()

	root, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otel, err := obs.SetupOTel(root, &cfg.OTEL)
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otel.Shutdown(context.Background()) }()

	db, err := pg.NewDB(root, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	metricsSrv := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, db.Ping, l)

	if err := kafka.EnsureTopic(root, cfg.Kafka.Brokers, kafka.TopicSpec{
		Name:              cfg.Kafka.Topic,
		NumPartitions:     cfg.Kafka.Partitions,
		ReplicationFactor: cfg.Kafka.ReplicationFactor,
	}, l); err != nil {
		l.Warn("ensure topic", zap.Error(err))
	}

	prod := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, l)
	defer func() { _ = prod.Close() }()

	dispatch := outbox.MakeGlobalHandler(prod, retry.DefaultKafkaPolicy(l))
	runner := outbox.NewRunner(l, pg.NewOutboxRepo(db), dispatch, cfg.Outbox)

	l.Info("session-relay started",
		zap.String("topic", cfg.Kafka.Topic),
		zap.Int("workers", cfg.Outbox.Workers),
	)
	runner.Run(root)

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Warn("metrics shutdown", zap.Error(err))
	}
	l.Info("session-relay stopped")
}
