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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-shop-api/internal/auth"
	"github.com/ariefcatur/go-shop-api/internal/cart"
	"github.com/ariefcatur/go-shop-api/internal/catalog"
	"github.com/ariefcatur/go-shop-api/internal/config"
	"github.com/ariefcatur/go-shop-api/internal/httpx"
	"github.com/ariefcatur/go-shop-api/internal/inventory"
	kafkax "github.com/ariefcatur/go-shop-api/internal/kafka"
	"github.com/ariefcatur/go-shop-api/internal/logging"
	"github.com/ariefcatur/go-shop-api/internal/memory"
	"github.com/ariefcatur/go-shop-api/internal/metrics"
	"github.com/ariefcatur/go-shop-api/internal/orders"
	"github.com/ariefcatur/go-shop-api/internal/payment"
	"github.com/ariefcatur/go-shop-api/internal/postgres"
	"github.com/ariefcatur/go-shop-api/internal/redisx"
	"github.com/ariefcatur/go-shop-api/internal/users"
)

// stores is everything that differs between the postgres and memory run modes.
type stores struct {
	catalog   catalog.Repository
	carts     cart.Repository
	orders    orders.Store
	users     users.Repository
	locker    orders.Locker
	revoked   auth.RevocationStore
	dedup     inventory.Deduper
	events    orders.Publisher
	closeFunc func()
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := logging.MustNew(cfg.ServiceName, cfg.Env)
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	if len(cfg.JWTSecret) == 0 {
		log.Fatal("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("open stores", zap.String("store", cfg.Store), zap.Error(err))
	}
	defer st.closeFunc()

	gw, sandbox := newGateway(cfg, m, log)

	authSvc := auth.NewService(st.users, auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL, cfg.ServiceName), st.revoked, log)
	if created, err := authSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatal("bootstrap admin", zap.Error(err))
	} else if created {
		log.Info("admin account ensured", zap.String("email", cfg.AdminEmail))
	}

	orderSvc := orders.NewService(st.orders, st.carts, gw, st.locker, st.events, m, log, orders.Config{
		ServiceName:    cfg.ServiceName,
		LockTTL:        cfg.CheckoutLockTTL,
		GatewayTimeout: cfg.GatewayTimeout,
		SuccessURL:     cfg.InvoiceSuccessURL,
		FailureURL:     cfg.InvoiceFailureURL,
	})
	reconciler := inventory.NewReconciler(st.orders, gw, st.dedup, m, log.Named("reconciler"), cfg.StaleOrderAfter, cfg.ReconcilerWorkers)

	router := httpx.NewRouter(httpx.Deps{
		Auth:     authSvc,
		Users:    users.NewService(st.users),
		Catalog:  catalog.NewService(st.catalog),
		Carts:    cart.NewService(st.carts),
		Orders:   orderSvc,
		Sandbox:  sandbox,
		Metrics:  m,
		Gatherer: reg,
		Log:      log,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return reconciler.Run(gctx, cfg.SweepInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		log.Error("api exited", zap.Error(err))
	}
}

func openStores(ctx context.Context, cfg config.Config, log *zap.Logger) (*stores, error) {
	if cfg.Store == "memory" {
		db := memory.New()
		log.Warn("using in-memory stores, data is lost on exit")
		return &stores{
			catalog:   db.Catalog(),
			carts:     db.Carts(),
			orders:    db.Orders(),
			users:     db.Users(),
			locker:    memory.NewLocker(),
			revoked:   auth.NewMemoryRevocations(),
			dedup:     memory.NewDedup(),
			events:    kafkax.Discard{Log: log},
			closeFunc: func() {},
		}, nil
	}

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := postgres.Connect(cctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	rdb := redisx.New(cfg.RedisAddr)
	if err := rdb.Ping(cctx).Err(); err != nil {
		pool.Close()
		return nil, err
	}

	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start()

	return &stores{
		catalog: &catalog.Repo{DB: pool},
		carts:   &cart.Repo{DB: pool},
		orders:  &orders.Repo{DB: pool},
		users:   &users.Repo{DB: pool},
		locker:  redisx.NewLocker(rdb),
		revoked: auth.NewRedisRevocations(rdb),
		dedup:   redisx.NewDedup(rdb, cfg.ServiceName),
		events:  prod,
		closeFunc: func() {
			prod.Close()
			prod.WaitClosed()
			_ = rdb.Close()
			pool.Close()
		},
	}, nil
}

// newGateway talks to the real provider when a secret key is configured. Otherwise
// it returns the sandbox too, so the router can serve its invoice URLs.
func newGateway(cfg config.Config, m *metrics.Metrics, log *zap.Logger) (payment.Gateway, *payment.Sandbox) {
	if cfg.GatewaySecretKey == "" {
		log.Warn("GATEWAY_SECRET_KEY not set, using the sandbox payment gateway")
		sb := payment.NewSandbox("http://localhost" + cfg.HTTPAddr + "/sandbox")
		return sb, sb
	}
	return payment.NewClient(cfg.GatewayURL, cfg.GatewaySecretKey, cfg.GatewayTimeout, m, log), nil
}
