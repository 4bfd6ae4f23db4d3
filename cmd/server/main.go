package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/plug-checkout/internal/adapter/handler"
	"github.com/rl1809/plug-checkout/internal/adapter/mock"
	"github.com/rl1809/plug-checkout/internal/adapter/storage"
	"github.com/rl1809/plug-checkout/internal/config"
	"github.com/rl1809/plug-checkout/internal/core/domain"
	"github.com/rl1809/plug-checkout/internal/core/service"
	"github.com/rl1809/plug-checkout/internal/latency"
	"github.com/rl1809/plug-checkout/internal/logger"
	"github.com/rl1809/plug-checkout/internal/port"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

type backends struct {
	cache  port.CacheRepository
	prefs  port.PreferenceRepository
	orders port.OrdersAPI
	repo   port.OrderRepository
	close  []func() error
}

func openBackends(ctx context.Context, cfg config.Config, sim latency.Simulator, log *zap.Logger) (*backends, error) {
	b := &backends{}
	memory := mock.NewMemoryStore()

	switch cfg.Store {
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
		adapter := storage.NewRedisAdapter(rdb)
		b.cache, b.prefs = adapter, adapter
		b.close = append(b.close, rdb.Close)
	default:
		b.cache, b.prefs = memory, memory
	}

	switch cfg.OrdersBackend {
	case config.OrdersBackendMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		b.close = append(b.close, db.Close)

		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("ping mysql: %w", err)
		}
		log.Info("connected to mysql")

		adapter := storage.NewMySQLAdapter(db)
		if err := adapter.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		if cfg.SeedMySQL {
			if err := adapter.SeedCatalog(ctx, mock.SeedPastItems(), mock.SeedPastOrders()); err != nil {
				return nil, err
			}
			log.Info("seeded past orders catalog")
		}
		b.orders, b.repo = adapter, adapter
	default:
		b.orders, b.repo = mock.NewOrdersAPI(sim), memory
	}
	return b, nil
}

func (b *backends) Close(log *zap.Logger) {
	for i := len(b.close) - 1; i >= 0; i-- {
		if err := b.close[i](); err != nil {
			log.Warn("close backend", zap.Error(err))
		}
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sim := latency.Simulator{Factor: cfg.LatencyFactor}

	b, err := openBackends(ctx, cfg, sim, log)
	if err != nil {
		return err
	}
	defer b.Close(log)

	scheduler := service.NewScheduler(cfg.TickResolution, log)

	checkoutCfg := service.DefaultCheckoutConfig()
	checkoutCfg.ProcessingDelay = cfg.ProcessingDelay
	checkoutCfg.Tracking.Interval = cfg.DeliveryInterval
	checkoutCfg.QueueSize = cfg.QueueSize
	checkoutCfg.Promo = domain.PromoRule{Codes: cfg.PromoCodes, Rate: cfg.PromoRate}
	checkout := service.NewCheckoutService(checkoutCfg, b.cache, scheduler, log)

	roadsideCfg := service.DefaultRoadsideConfig()
	roadsideCfg.Profile.Interval = cfg.TechnicianInterval
	roadsideAPI := mock.NewRoadsideAPI(sim, rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)))
	roadside := service.NewRoadsideService(roadsideCfg, roadsideAPI, scheduler, log)

	orders := service.NewOrdersService(b.orders, checkout, log)
	prefs := service.NewPreferenceService(b.prefs, log)

	mode, err := prefs.LastUsedMode(ctx, "")
	if err != nil {
		log.Warn("read last used mode", zap.Error(err))
	} else {
		log.Info("last used mode", zap.String("mode", string(mode)))
	}

	// Order recorders drain the placed-order queue until Shutdown closes it.
	var recorders errgroup.Group
	recorder := service.NewOrderRecorder(b.repo, log)
	for i := 0; i < cfg.Workers; i++ {
		recorders.Go(func() error {
			recorder.Run(i, checkout.GetOrderQueue())
			return nil
		})
	}
	log.Info("started order recorders", zap.Int("workers", cfg.Workers))

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(handler.LoggingInterceptor(log)))
	handler.NewGRPCHandler(checkout).Register(grpcServer)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	httpHandler := handler.NewHTTPHandler(checkout, orders, roadside, prefs,
		handler.WithLogger(log),
		handler.WithDevTools(cfg.DevTools),
	)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpHandler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		log.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP shutdown", zap.Error(err))
		}
		log.Info("HTTP server stopped")

		healthServer.Shutdown()
		grpcServer.GracefulStop()
		log.Info("gRPC server stopped")
		return nil
	})

	err = g.Wait()

	checkout.Shutdown()
	recorders.Wait()
	log.Info("order recorders stopped")

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
