package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/rl1809/coffee-pos/internal/adapter/handler"
	"github.com/rl1809/coffee-pos/internal/adapter/rest"
	"github.com/rl1809/coffee-pos/internal/adapter/storage"
	"github.com/rl1809/coffee-pos/internal/config"
	"github.com/rl1809/coffee-pos/internal/core/service"
	"github.com/rl1809/coffee-pos/internal/port"
	"github.com/rl1809/coffee-pos/internal/telemetry"
)

const serviceName = "coffee-pos"

func main() {
	cfg := config.Load()

	logger := telemetry.NewLogger(cfg.LogLevel)
	log := logger.WithFields(logrus.Fields{
		"service": serviceName,
		"env":     cfg.AppEnv,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, serviceName, cfg.TerminalID)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	if tp != nil {
		log.Infof("tracing to %s", cfg.OTLPEndpoint)
	}

	// Initialize backend
	backend, closeBackend, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Fatalf("failed to open backend: %v", err)
	}

	// Initialize checkout lock
	lock, closeLock, err := openLock(ctx, cfg, log)
	if err != nil {
		log.Fatalf("failed to open checkout lock: %v", err)
	}

	// Initialize service
	pos := service.NewPOSService(cfg.TerminalID, backend, lock, log, cfg.CheckoutMaxConcurrent)

	healthReporter := handler.NewHealthReporter()
	pos.OnCatalogStatus(healthReporter.CatalogStatus)

	loadCtx, loadCancel := context.WithTimeout(ctx, cfg.BackendTimeout)
	if err := pos.Refresh(loadCtx); err != nil {
		log.WithError(err).Warn("initial load incomplete, terminal starts degraded")
	}
	loadCancel()

	// Initialize gRPC server
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthReporter.Register(grpcServer)
	reflection.Register(grpcServer)

	grpcAddr := fmt.Sprintf(":%d", cfg.GRPCPort)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	go func() {
		log.Infof("gRPC server listening on %s", grpcAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Errorf("gRPC server error: %v", err)
		}
	}()

	// Initialize HTTP server
	router := mux.NewRouter()
	router.Use(otelmux.Middleware(serviceName))
	handler.NewHTTPHandler(pos, log).Routes(router)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infof("HTTP server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Errorf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Info("HTTP server stopped")

	healthReporter.Shutdown()
	grpcServer.GracefulStop()
	log.Info("gRPC server stopped")

	closeLock()
	closeBackend()
	if tp != nil {
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Errorf("tracer shutdown: %v", err)
		}
	}
	log.Info("connections closed")
}

func openBackend(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (port.BackendRepository, func(), error) {
	switch cfg.BackendMode {
	case config.BackendREST:
		log.Infof("using REST backend at %s", cfg.BackendURL)
		return rest.NewClient(cfg.BackendURL, cfg.BackendTimeout), func() {}, nil

	case config.BackendMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping mysql: %w", err)
		}
		log.Info("connected to mysql")
		return storage.NewMySQLAdapter(db), func() { db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend mode %q", cfg.BackendMode)
	}
}

func openLock(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (port.CheckoutLock, func(), error) {
	if cfg.RedisAddr == "" {
		log.Info("using in-process checkout lock")
		return storage.NewLocalLock(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 10,
	})
	adapter := storage.NewRedisAdapter(rdb, cfg.CheckoutLockTTL)
	if err := adapter.Ping(ctx); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	log.Info("connected to redis")
	return adapter, func() { rdb.Close() }, nil
}
