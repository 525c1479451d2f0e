package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/punchamoorthee/loanops/internal/api"
	"github.com/punchamoorthee/loanops/internal/client"
	"github.com/punchamoorthee/loanops/internal/config"
	"github.com/punchamoorthee/loanops/internal/service"
	"github.com/punchamoorthee/loanops/internal/store"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("svc", "loan-service").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("configuration error")
	}
	if cfg.Env == "development" {
		logger = logger.Level(zerolog.DebugLevel)
	}

	var loanStore store.LoanStore
	switch cfg.StoreBackend {
	case "bolt":
		bs, err := store.NewBoltStore(cfg.BoltPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("unable to open bolt store")
		}
		defer bs.Close()
		loanStore = bs
	default:
		dbPool, err := pgxpool.New(context.Background(), cfg.DBSource)
		if err != nil {
			logger.Fatal().Err(err).Msg("unable to connect to database")
		}
		defer dbPool.Close()
		loanStore = store.NewPostgresStoreWithPool(dbPool)
	}

	// Every collaborator call is bounded by this timeout; expiry is
	// classified as dependency-unavailable by the clients.
	httpClient := &http.Client{Timeout: cfg.ClientTimeout}
	users := client.NewUserClient(cfg.UserServiceURL, httpClient)
	books := client.NewBookClient(cfg.BookServiceURL, httpClient)

	svc := service.NewLoanService(users, books, loanStore, logger)
	handler := api.NewHandler(svc, logger)

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go service.NewSweeper(svc, cfg.SweepInterval, logger).Run(sweepCtx)

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	handler.Register(r.PathPrefix("/api/v1").Subrouter())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	logger.Info().Str("port", cfg.Port).Str("store", cfg.StoreBackend).Msg("loan service starting")
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}
