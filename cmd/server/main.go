package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Krimson/posture-emulator/internal/batch"
	"github.com/Krimson/posture-emulator/internal/config"
	"github.com/Krimson/posture-emulator/internal/health"
	"github.com/Krimson/posture-emulator/internal/logger"
	"github.com/Krimson/posture-emulator/internal/server"
	"github.com/Krimson/posture-emulator/internal/session"
	"github.com/Krimson/posture-emulator/internal/websocket"

	_ "github.com/Krimson/posture-emulator/docs" // Swagger docs
)

// @title Posture Emulator API
// @version 1.0
// @description Генерация синтетических рядов смены позы пациента.
// @description Сессии хранятся в Redis до сохранения в PostgreSQL.

// @host localhost:8080
// @BasePath /
// @schemes http

const (
	streamMaxLen    = 10000
	shutdownTimeout = 30 * time.Second
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, "posture-server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := serve(cfg, log); err != nil {
		log.Error("server failed", zap.Error(err))
		os.Exit(1)
	}
	log.Info("server stopped")
}

func serve(cfg *config.ServerConfig, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis: кэш сессий и stream сетки
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
	}
	log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

	repo, err := session.NewPostgresRepositoryFromDSN(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer repo.Close()
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}
	log.Info("connected to postgres")

	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	batcher := batch.NewBatcher(batch.Config{
		MaxSamples: cfg.BatchMaxSamples,
		MaxSpan:    cfg.BatchMaxSpan,
	}, batch.MultiSink{
		batch.NewRedisStreamSink(rdb, cfg.StreamName, streamMaxLen),
		batch.NewLogSink(log),
		hub,
	}, log)
	defer batcher.Stop()

	manager := session.NewManager(
		session.NewRedisStore(rdb, cfg.SessionTTL),
		repo,
		log,
		session.WithPublisher(batcher),
		session.WithNotifier(hub),
	)

	healthServer := health.NewHealthServer()
	healthServer.AddChecker("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthServer.AddChecker("postgres", repo.Ping)

	// HTTP
	router := mux.NewRouter()
	session.NewHTTPHandler(manager, log).RegisterRoutes(router)
	router.HandleFunc("/ws", hub.HandleWebSocket)
	router.Handle("/ws/sessions/{id}/replay", websocket.NewReplayHandler(manager, cfg.ReplayInterval, log))
	router.Handle("/healthz", healthServer).Methods(http.MethodGet)
	router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	httpServer := &http.Server{
		Addr:        ":" + cfg.HTTPPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// gRPC
	grpcServer := grpc.NewServer()
	server.RegisterPostureServiceServer(grpcServer, server.NewPostureServer(manager, log))
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	address := ":" + cfg.GRPCPort
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", address, err)
	}

	healthServer.SetServingStatus("")
	healthServer.SetServingStatus(server.ServiceName)

	serverErrChan := make(chan error, 2)
	go func() {
		log.Info("grpc server listening", zap.String("addr", address))
		if err := grpcServer.Serve(listener); err != nil {
			serverErrChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()
	go func() {
		log.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	var serveErr error
	select {
	case serveErr = <-serverErrChan:
		log.Error("server error", zap.Error(serveErr))
	case <-ctx.Done():
		log.Info("received shutdown signal, starting graceful shutdown")
	}

	healthServer.SetNotServingStatus("")
	healthServer.SetNotServingStatus(server.ServiceName)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		log.Warn("graceful shutdown timeout, forcing stop")
		grpcServer.Stop()
	}

	// Остаток сетки уходит в sink до закрытия Redis
	batcher.Stop()
	log.Info("graceful shutdown completed")

	return serveErr
}
