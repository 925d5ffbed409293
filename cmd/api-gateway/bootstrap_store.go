package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	config "github.com/NordCoder/Vidhub/internal/config/api-gateway"
	domainauth "github.com/NordCoder/Vidhub/internal/domain/auth"
	"github.com/NordCoder/Vidhub/internal/domain/user"
	"github.com/NordCoder/Vidhub/internal/outbox"
	"github.com/NordCoder/Vidhub/internal/repository/memory"
	pg "github.com/NordCoder/Vidhub/internal/repository/postgres"
	redisrepo "github.com/NordCoder/Vidhub/internal/repository/redis"
)

// store is the credential store plus what the session core needs around it.
type store struct {
	users  user.Repo
	tx     domainauth.Transactor
	events domainauth.EventSink
	health func(context.Context) error
	close  func()
}

func initStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store, error) {
	log := logger.With(zap.String("store", cfg.Store.Driver))

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := pg.NewDB(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		log.Info("credential store ready")
		return &store{
			users:  pg.NewUserRepo(db),
			tx:     pg.NewTransactor(db, logger),
			events: outbox.NewRecorder(pg.NewOutboxRepo(db)),
			health: db.Ping,
			close:  db.Close,
		}, nil

	case config.DriverRedis:
		rdb := redisrepo.NewClient(cfg.Redis)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		log.Info("credential store ready", zap.String("addr", cfg.Redis.Addr))
		return &store{
			users:  redisrepo.NewUserRepo(rdb, cfg.Redis),
			tx:     domainauth.NoTx{},
			events: domainauth.NopEvents{},
			health: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			close:  func() { _ = rdb.Close() },
		}, nil

	case config.DriverMemory:
		log.Warn("in-memory credential store, sessions are lost on restart")
		return &store{
			users:  memory.NewUserRepo(),
			tx:     domainauth.NoTx{},
			events: domainauth.NopEvents{},
			health: func(context.Context) error { return nil },
			close:  func() {},
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
