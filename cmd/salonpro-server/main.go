package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"salonpro/internal/app"
	"salonpro/internal/config"
	"salonpro/internal/events"
	"salonpro/internal/telemetry"
	grpcTransport "salonpro/internal/transport/grpc"
)

const serviceName = "salonpro-server"

func main() {
	log := app.NewLogger(os.Stdout, "info", serviceName)
	slog.SetDefault(log)

	cfg, err := config.Load("")
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = app.NewLogger(os.Stdout, cfg.LogLevel, serviceName)
	slog.SetDefault(log)

	log.Info("starting", slog.String("grpc_addr", cfg.GRPCAddr()), slog.String("log_level", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TracingConfig{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSampleRatio,
	})
	if err != nil {
		log.Error("tracing setup failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("tracing shutdown failed", slog.Any("err", err))
		}
	}()

	st, err := app.OpenStore(ctx, cfg, log, true)
	if err != nil {
		args := append([]any{slog.Any("err", err)}, app.DatabaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database open failed", args...)
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	svcs, err := app.NewServices(st, cfg)
	if err != nil {
		log.Error("service wiring failed", slog.Any("err", err))
		os.Exit(1)
	}

	metrics := telemetry.NewMetrics()
	readyChecks := []telemetry.ReadyCheck{{Name: "store", Check: st.Ping}}

	interceptors := []grpc.UnaryServerInterceptor{
		grpcTransport.RequestIDInterceptor(),
		grpcTransport.DefaultTimeoutInterceptor(cfg.GRPCRequestTimeout),
		metrics.UnaryServerInterceptor(),
	}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("redis url invalid", slog.Any("err", err))
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()

		limiter := grpcTransport.NewRateLimiter(grpcTransport.NewRedisCounter(rdb), cfg.RateLimit, cfg.RateLimitWindow, cfg.RateLimitFailOpen, log)
		interceptors = append(interceptors, limiter.UnaryServerInterceptor())
		readyChecks = append(readyChecks, telemetry.ReadyCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
		log.Info("rate limiting enabled", slog.Int("limit", cfg.RateLimit), slog.Duration("window", cfg.RateLimitWindow))
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors...),
	)
	grpcTransport.RegisterSalonServiceServer(grpcServer, grpcTransport.NewSalonServer(
		svcs.Scheduling,
		svcs.Queries,
		svcs.Analytics,
		st,
		log,
	))

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr()))
		os.Exit(1)
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()
	log.Info("grpc server started", slog.String("grpc_addr", cfg.GRPCAddr()))

	var opsServer *http.Server
	if cfg.MetricsAddr != "" {
		opsServer = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           telemetry.NewOpsMux(metrics, readyChecks...),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
		log.Info("ops server started", slog.String("metrics_addr", cfg.MetricsAddr))
	}

	relay := events.NewRelay(st, log.With(slog.String("component", "outbox.relay")), events.RelayConfig{
		Brokers:   cfg.KafkaBrokers,
		Topic:     cfg.KafkaTopic,
		PollEvery: cfg.KafkaPollInterval,
		BatchSize: cfg.KafkaBatchSize,
		OnBatch:   metrics.ObserveOutbox,
	})
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		relay.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("server stopped with error", slog.Any("err", err))
		}
		stop()
	}

	shutdown(log, grpcServer, opsServer, cfg.ShutdownTimeout)
	<-relayDone
}

func shutdown(log *slog.Logger, s *grpc.Server, ops *http.Server, timeout time.Duration) {
	log.Info("shutting down", slog.Duration("timeout", timeout))

	if ops != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := ops.Shutdown(ctx); err != nil {
			log.Warn("ops server shutdown failed", slog.Any("err", err))
		}
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-timer.C:
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
	}
}
