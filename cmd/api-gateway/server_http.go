package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/NordCoder/Vidhub/internal/auth"
	config "github.com/NordCoder/Vidhub/internal/config/api-gateway"
	"github.com/NordCoder/Vidhub/internal/domain/media"
	"github.com/NordCoder/Vidhub/internal/obs"
	"github.com/NordCoder/Vidhub/internal/services/api-gateway/account"
	sessions "github.com/NordCoder/Vidhub/internal/services/api-gateway/auth"
)

const usersPrefix = "/api/v1/users"

func buildHTTPServer(cfg *config.Config, logger *zap.Logger, st *store, uploader media.Uploader) (*http.Server, error) {
	codec, err := auth.NewCodec(cfg.AsCodecConfig())
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}

	sessionUC := sessions.NewUsecase(sessions.Deps{
		Users:  st.users,
		Codec:  codec,
		Tx:     st.tx,
		Events: st.events,
		Logger: logger,
	})
	accountUC := account.NewUsecase(account.Deps{
		Users:      st.users,
		Media:      uploader,
		Events:     st.events,
		Logger:     logger,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	guard := sessions.Guard(sessionUC, logger)

	mux := http.NewServeMux()
	sessions.NewController(sessionUC, cfg.Auth.Cookie, logger).Routes(mux, usersPrefix, guard)
	account.NewController(accountUC, logger).Routes(mux, usersPrefix, guard)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", obs.HealthHandler(st.health))

	handler := obs.HTTPMetrics(obs.RouteSpanName(mux))
	handler = obs.AccessLog(logger, handler)
	handler = obs.HTTPHandler(handler, "api-gateway")

	return cfg.Server.HTTPServer(handler), nil
}

func serveHTTP(srv *http.Server, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", srv.Addr))
	return srv.ListenAndServe()
}
