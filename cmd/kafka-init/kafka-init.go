package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/Vidhub/internal/obs"
	"github.com/NordCoder/Vidhub/internal/repository/kafka"
)

func main() {
	brokers := flag.String("brokers", envOr("KAFKA_BROKERS", "kafka:9092"), "comma separated broker list")
	topics := flag.String("topics", envOr("KAFKA_TOPICS", "vidhub.session.events"), "comma separated topics to create")
	partitions := flag.Int("partitions", 3, "partitions per topic")
	rf := flag.Int("rf", 1, "replication factor")
	timeout := flag.Duration("timeout", time.Minute, "overall deadline")
	flag.Parse()

	l, err := obs.NewLogger(obs.LogConfig{Level: "info", App: "kafka-init"})
	if err != nil {
		panic(err)
	}
	defer func() { _ = l.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	bl := splitList(*brokers)
	for _, t := range splitList(*topics) {
		spec := kafka.TopicSpec{
			Name:              t,
			NumPartitions:     *partitions,
			ReplicationFactor: *rf,
			MaxWait:           30 * time.Second,
		}
		if err := kafka.EnsureTopic(ctx, bl, spec, l); err != nil {
			l.Fatal("ensure topic", zap.String("topic", t), zap.Error(err))
		}
	}
	l.Info("kafka-init ok")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
