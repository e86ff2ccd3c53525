package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	x402 "github.com/x402pay/paygate"
	"github.com/x402pay/paygate/config"
	"github.com/x402pay/paygate/ginx402"
	"github.com/x402pay/paygate/logger"
	"github.com/x402pay/paygate/metrics"
	"github.com/x402pay/paygate/storage"
	"github.com/x402pay/paygate/storage/memory"
	"github.com/x402pay/paygate/storage/migrations"
	"github.com/x402pay/paygate/storage/postgres"
	"github.com/x402pay/paygate/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "paygate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.NewZapLogger(cfg.LogLevel)
	if z, ok := log.(*logger.ZapLogger); ok {
		defer func() { _ = z.Sync() }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := metrics.NewPrometheusRecorder(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	gate, err := x402.New(cfg,
		x402.WithLogger(log),
		x402.WithMetrics(recorder),
		x402.WithStore(store),
	)
	if err != nil {
		return err
	}
	defer gate.Close()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": x402.Version})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler(reg)))

	paid := router.Group("/api", ginx402.Middleware(gate, cfg.DefaultPrice))
	premium := func(c *gin.Context) {
		p, _ := ginx402.Payment(c)
		c.JSON(http.StatusOK, gin.H{
			"message":  "premium content unlocked",
			"price":    utils.FormatMinorUnits(utils.NormalizePrice(cfg.DefaultPrice)),
			"payer":    p.From,
			"network":  p.Network,
			"verified": p.VerifiedBy,
		})
	}
	paid.GET("/premium", premium)
	paid.OPTIONS("/premium", func(*gin.Context) {})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Timeout*2 + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", map[string]any{
			"port":     cfg.Port,
			"networks": cfg.Networks,
			"price":    cfg.DefaultPrice,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server exited", nil)
	return nil
}

// openStore connects the audit store. Without DATABASE_URL records are kept
// in memory for the life of the process.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (storage.PaymentRecordStore, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, payment records are kept in memory", nil)
		return memory.NewPaymentRecordStore(), func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return postgres.NewPaymentRecordStore(pool), pool.Close, nil
}
