package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"galleryflow/agents"
	"galleryflow/artworks"
	"galleryflow/auth"
	"galleryflow/chain"
	"galleryflow/config"
	"galleryflow/content"
	"galleryflow/custody"
	"galleryflow/db"
	"galleryflow/idempotency"
	"galleryflow/payment"
	"galleryflow/purchase"
	"galleryflow/workflow"
)

func main() {
	configPath := os.Getenv("GALLERYFLOW_CONFIG")
	if configPath == "" {
		configPath = "configs/api.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Log.Level)
	slog.SetDefault(log)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		log.Error("bootstrap database pool", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	custodyClient := custody.NewClient(cfg.Custody.BaseURL, cfg.Custody.APIKey, cfg.Custody.Timeout)
	chainClient := chain.NewClient(cfg.Chain.BaseURL, cfg.Chain.Timeout)
	publisher := content.NewFSPublisher(cfg.Site.Root)
	engine := workflow.NewEngine(log)
	keys := idempotency.NewStore(pool)

	authService := auth.NewService(auth.NewRepository(pool), cfg.Auth.JWTSecret)

	agentService := agents.NewService(
		agents.NewRepository(pool), custodyClient, keys, publisher, engine,
		agents.Config{
			Network:        cfg.Custody.Network,
			TreasuryHandle: cfg.Treasury.Handle,
			FundAmount:     cfg.Treasury.FundAmount,
		}, log)

	artworkService := artworks.NewService(
		artworks.NewRepository(pool), agents.NewRepository(pool), keys, publisher, engine, log)

	paymentService := payment.NewService(payment.NewClaimRepository(pool), chainClient, log)

	purchaseService := purchase.NewService(
		purchase.NewRepository(pool), artworks.NewRepository(pool),
		paymentService, custodyClient, artworkService, engine,
		purchase.Config{
			GalleryHandle: cfg.Gallery.Handle,
			ContractRef:   cfg.Gallery.ContractRef,
			Method:        cfg.Gallery.Method,
		}, log)

	srv := &server{
		auth:      authService,
		agents:    agentService,
		artworks:  artworkService,
		purchases: purchaseService,
		log:       log,
	}

	mux := http.NewServeMux()
	srv.routes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	log.Info("api listening", "addr", cfg.API.Addr())
	if err := http.ListenAndServe(cfg.API.Addr(), mux); err != nil {
		log.Error("serve", "err", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
