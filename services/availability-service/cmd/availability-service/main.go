package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/meetsync/libs/config"
	"github.com/md-rashed-zaman/meetsync/libs/db"
	"github.com/md-rashed-zaman/meetsync/libs/grpcx"
	"github.com/md-rashed-zaman/meetsync/libs/httpx"
	"github.com/md-rashed-zaman/meetsync/libs/kafkax"
	otelx "github.com/md-rashed-zaman/meetsync/libs/otel"
	"github.com/md-rashed-zaman/meetsync/libs/runtime"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/cache"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/consumer"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/handlers"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/inbox"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/outbox"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "availability-service")
	port, err := config.Port("PORT", "8086")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9086")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	maxConns := intSetting(logger, "DB_MAX_CONNS", 10)
	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns:         int32(maxConns),
		ApplicationName:  service,
		StatementTimeout: durationSetting(logger, "DB_STATEMENT_TIMEOUT", 5*time.Second),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	ruleRepo := storage.NewRuleRepository(pool)
	outboxRepo := outbox.NewRepository()
	store := storage.NewStore(pool, ruleRepo, outboxRepo)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}

	brokers := config.String("KAFKA_BROKERS", "")
	if brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	limitPerMinute := intSetting(logger, "RATE_LIMIT_PER_MINUTE", 120)
	var heatmaps cache.HeatmapCache = cache.Nop{}
	var rateLimitMW httpx.Middleware
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       intSetting(logger, "REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()

		ttl := durationSetting(logger, "HEATMAP_CACHE_TTL", 5*time.Minute)
		heatmaps = cache.NewRedisHeatmapCache(rdb, ttl)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: cache.ReadyCheck(rdb)})

		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl:availability"))
		rateLimitMW = rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
		logger.Info("heatmap cache and rate limiting enabled (redis)", "redis_addr", addr, "ttl", ttl.String(), "per_minute", limitPerMinute)
	} else {
		rateLimitMW = httpx.NewRateLimiter(limitPerMinute, time.Minute).Middleware()
		logger.Info("rate limiting enabled (in-memory); heatmap cache disabled", "per_minute", limitPerMinute)
	}

	pollEvery := durationSetting(logger, "OUTBOX_POLL_INTERVAL", 2*time.Second)
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: pollEvery,
		BatchSize: intSetting(logger, "OUTBOX_BATCH_SIZE", 50),
		Retention: durationSetting(logger, "OUTBOX_RETENTION", 72*time.Hour),
	})
	go outboxPublisher.Run(ctx)

	if topic := config.String("KAFKA_CONSUME_TOPIC", consumer.TopicParticipantRemoved); topic != "" && brokers != "" {
		inboxRepo := inbox.NewRepository(pool)
		go inboxRepo.RunJanitor(ctx, logger, durationSetting(logger, "INBOX_RETENTION", 7*24*time.Hour), time.Hour)
		eventConsumer := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers:     brokers,
			GroupID:     config.String("KAFKA_GROUP_ID", service),
			Topic:       topic,
			MaxAttempts: intSetting(logger, "KAFKA_MAX_ATTEMPTS", 5),
		}, consumer.ParticipantRemovedHandler(logger, store, heatmaps))
		go eventConsumer.Run(ctx)
	}

	grpcServer := grpcx.NewServer(logger)
	go func() {
		if err := grpcServer.Serve(ctx, ":"+grpcPort); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()
	grpcServer.SetServing(service, true)

	availabilityHandler := handlers.NewAvailabilityHandler(store, heatmaps, logger, intSetting(logger, "MAX_RANGE_DAYS", 62))

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	availabilityHandler.Register(mux)

	requestTimeout := durationSetting(logger, "REQUEST_TIMEOUT", 10*time.Second)
	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS"),
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(int64(intSetting(logger, "REQUEST_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(requestTimeout),
		rateLimitMW,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "availability")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	_ = runtime.Shutdown(logger, durationSetting(logger, "SHUTDOWN_TIMEOUT", 10*time.Second),
		runtime.ShutdownStep{Name: "grpc health", Fn: func(context.Context) error {
			grpcServer.SetServing(service, false)
			return nil
		}},
		runtime.ShutdownStep{Name: "http server", Fn: srv.Shutdown},
		runtime.ShutdownStep{Name: "otel", Fn: otelShutdown},
	)
	logger.Info("http server stopped")
}

// intSetting reads an integer setting, logging and falling back on a malformed value.
func intSetting(logger *slog.Logger, key string, fallback int) int {
	v, err := config.Int(key, fallback)
	if err != nil {
		logger.Error("invalid integer setting; using default", "key", key, "err", err)
		return fallback
	}
	return v
}

func durationSetting(logger *slog.Logger, key string, fallback time.Duration) time.Duration {
	v, err := config.Duration(key, fallback)
	if err != nil {
		logger.Error("invalid duration setting; using default", "key", key, "err", err)
		return fallback
	}
	return v
}
