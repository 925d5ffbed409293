package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/NordCoder/Vidhub/internal/obs"
	"github.com/NordCoder/Vidhub/migrations"
)

func main() {
	command := flag.String("cmd", "up", "goose command: up, down, status, reset, version")
	dsn := flag.String("dsn", os.Getenv("DB_DSN"), "postgres connection string")
	timeout := flag.Duration("timeout", 2*time.Minute, "deadline for the whole run")
	flag.Parse()

	l, err := obs.NewLogger(obs.LogConfig{Level: "info", App: "migrator"})
	if err != nil {
		panic(err)
	}
	defer func() { _ = l.Sync() }()

	if *dsn == "" {
		l.Fatal("no dsn: set -dsn or DB_DSN")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(zap.NewStdLog(l))
	if err := goose.SetDialect("postgres"); err != nil {
		l.Fatal("set dialect", zap.Error(err))
	}
	db, err := goose.OpenDBWithDriver("pgx", *dsn)
	if err != nil {
		l.Fatal("open db", zap.Error(err))
	}
	defer db.Close()

	if err := goose.RunContext(ctx, *command, db, "."); err != nil {
		l.Fatal("migrate", zap.String("cmd", *command), zap.Error(err))
	}
	l.Info("migrations applied", zap.String("cmd", *command))
}
