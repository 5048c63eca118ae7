package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-shop-api/internal/config"
	"github.com/ariefcatur/go-shop-api/internal/inventory"
	kafkax "github.com/ariefcatur/go-shop-api/internal/kafka"
	"github.com/ariefcatur/go-shop-api/internal/logging"
	"github.com/ariefcatur/go-shop-api/internal/metrics"
	"github.com/ariefcatur/go-shop-api/internal/orders"
	"github.com/ariefcatur/go-shop-api/internal/payment"
	"github.com/ariefcatur/go-shop-api/internal/postgres"
	"github.com/ariefcatur/go-shop-api/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	service := cfg.ServiceName + "-reconciler"
	log := logging.MustNew(service, cfg.Env)
	defer func() { _ = log.Sync() }()

	if cfg.GatewaySecretKey == "" {
		log.Fatal("GATEWAY_SECRET_KEY is required to look up invoices")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	gw := payment.NewClient(cfg.GatewayURL, cfg.GatewaySecretKey, cfg.GatewayTimeout, m, log)
	rec := inventory.NewReconciler(&orders.Repo{DB: db}, gw, redisx.NewDedup(rdb, service), m, log,
		cfg.StaleOrderAfter, cfg.ReconcilerWorkers)

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ReconcilerGroup, orders.TopicOrderInvoiceFailed, cfg.ReconcilerWorkers, log)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("consumer started",
			zap.String("group", cfg.ReconcilerGroup),
			zap.String("topic", orders.TopicOrderInvoiceFailed),
			zap.Int("workers", cfg.ReconcilerWorkers))
		return cons.Start(gctx, rec.HandleInvoiceFailed)
	})
	g.Go(func() error {
		return rec.Run(gctx, cfg.SweepInterval)
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("reconciler exited", zap.Error(err))
	}
	log.Info("reconciler stopped")
}

