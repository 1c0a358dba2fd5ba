// Command server runs the custos fraud and audit service: the HTTP API,
// the Kafka audit ingest consumer, and the security finding publisher.
//
// With no environment set it boots self-contained on in-memory stores,
// which is the development mode. Postgres, Redis, and Kafka each activate
// when their connection settings are present.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tokenhandler "custos/internal/accesstoken/handler"
	tokenmetrics "custos/internal/accesstoken/metrics"
	tokensvc "custos/internal/accesstoken/service"
	"custos/internal/audit"
	auditconsumer "custos/internal/audit/consumer"
	audithandler "custos/internal/audit/handler"
	auditmetrics "custos/internal/audit/metrics"
	auditsvc "custos/internal/audit/service"
	auditmem "custos/internal/audit/store/memory"
	auditpg "custos/internal/audit/store/postgres"
	"custos/internal/directory"
	dirmem "custos/internal/directory/store/memory"
	dirpg "custos/internal/directory/store/postgres"
	fraudhandler "custos/internal/fraud/handler"
	fraudmetrics "custos/internal/fraud/metrics"
	fraudpub "custos/internal/fraud/publisher"
	fraudsvc "custos/internal/fraud/service"
	guardhandler "custos/internal/guard/handler"
	guardmetrics "custos/internal/guard/metrics"
	guardsvc "custos/internal/guard/service"
	healthhandler "custos/internal/health/handler"
	healthsvc "custos/internal/health/service"
	httpapi "custos/internal/http"
	"custos/internal/platform/config"
	"custos/internal/platform/httpserver"
	"custos/internal/platform/kafka"
	kafkaconsumer "custos/internal/platform/kafka/consumer"
	"custos/internal/platform/logger"
	"custos/internal/platform/postgres"
	redisplatform "custos/internal/platform/redis"
	"custos/internal/ratelimit"
	ratelimitmetrics "custos/internal/ratelimit/metrics"
	ratelimitmw "custos/internal/ratelimit/middleware"
	ratelimitsvc "custos/internal/ratelimit/service"
	ratelimitmem "custos/internal/ratelimit/store/memory"
	ratelimitredis "custos/internal/ratelimit/store/redis"
	riskhandler "custos/internal/risk/handler"
	riskmetrics "custos/internal/risk/metrics"
	risksvc "custos/internal/risk/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration:", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		auditStore audit.Store
		dirStore   directory.Store
		db         *sql.DB
	)
	if cfg.Postgres.DSN != "" {
		var err error
		db, err = postgres.Open(cfg.Postgres)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := postgres.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		pool, err := postgres.OpenPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("open pgx pool: %w", err)
		}
		defer pool.Close()
		auditStore = auditpg.New(db)
		dirStore = dirpg.New(pool)
		log.Info("using postgres stores")
	} else {
		auditStore = auditmem.New()
		dirStore = dirmem.New()
		log.Warn("POSTGRES_DSN not set, using in-memory stores")
	}

	redisClient, err := redisplatform.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info("redis connected")
	}

	fraudMetrics := fraudmetrics.New()

	auditService, err := auditsvc.New(auditStore,
		auditsvc.WithLogger(log),
		auditsvc.WithMetrics(auditmetrics.New()),
	)
	if err != nil {
		return fmt.Errorf("audit service: %w", err)
	}

	riskService, err := risksvc.New(dirStore, auditStore,
		risksvc.WithLogger(log),
		risksvc.WithMetrics(riskmetrics.New()),
		risksvc.WithCheckTimeout(cfg.Detection.CheckTimeout),
	)
	if err != nil {
		return fmt.Errorf("risk service: %w", err)
	}

	var (
		findingPublisher *fraudpub.Publisher
		ingestConsumer   *kafkaconsumer.Consumer
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		defer producer.Close()

		if err := kafka.EnsureTopics(ctx, producer, cfg.Kafka.IngestTopic, cfg.Kafka.FindingTopic); err != nil {
			return fmt.Errorf("ensure topics: %w", err)
		}

		findingPublisher, err = fraudpub.New(producer, cfg.Kafka.FindingTopic,
			fraudpub.WithLogger(log),
			fraudpub.WithMetrics(fraudMetrics),
			fraudpub.WithCapacity(cfg.Detection.FindingBuffer),
		)
		if err != nil {
			return fmt.Errorf("finding publisher: %w", err)
		}

		groupClient, err := kafka.NewGroupConsumer(cfg.Kafka)
		if err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		consumerRouter := auditconsumer.NewRouter(log)
		consumerRouter.Register(cfg.Kafka.IngestTopic, auditconsumer.NewIngestHandler(auditService, log))
		ingestConsumer = kafkaconsumer.New(groupClient, consumerRouter, log)
		log.Info("kafka wired",
			"ingest_topic", cfg.Kafka.IngestTopic,
			"finding_topic", cfg.Kafka.FindingTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
	} else {
		log.Warn("KAFKA_BROKERS not set, ingest consumer and finding publisher disabled")
	}

	fraudConfig := fraudsvc.DefaultConfig()
	fraudConfig.CheckTimeout = cfg.Detection.CheckTimeout
	fraudOpts := []fraudsvc.Option{
		fraudsvc.WithLogger(log),
		fraudsvc.WithMetrics(fraudMetrics),
		fraudsvc.WithConfig(fraudConfig),
		fraudsvc.WithRecorder(auditService),
	}
	if findingPublisher != nil {
		fraudOpts = append(fraudOpts, fraudsvc.WithFindingSink(findingPublisher))
	}
	fraudService, err := fraudsvc.New(auditStore, riskService, fraudOpts...)
	if err != nil {
		return fmt.Errorf("fraud service: %w", err)
	}

	tokenService, err := tokensvc.New([]byte(cfg.Tokens.Secret),
		tokensvc.WithLogger(log),
		tokensvc.WithMetrics(tokenmetrics.New()),
		tokensvc.WithTTL(cfg.Tokens.TTL),
		tokensvc.WithRecorder(auditService),
	)
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}

	guardConfig := guardsvc.DefaultConfig()
	guardConfig.CheckTimeout = cfg.Detection.CheckTimeout
	guardService, err := guardsvc.New(auditStore, riskService, dirStore,
		guardsvc.WithLogger(log),
		guardsvc.WithMetrics(guardmetrics.New()),
		guardsvc.WithConfig(guardConfig),
		guardsvc.WithRecorder(auditService),
	)
	if err != nil {
		return fmt.Errorf("guard service: %w", err)
	}

	healthOpts := []healthsvc.Option{healthsvc.WithLogger(log)}
	if db != nil {
		healthOpts = append(healthOpts, healthsvc.WithDatabase(db))
	}
	if redisClient != nil {
		healthOpts = append(healthOpts, healthsvc.WithCache(redisClient))
	}
	healthService, err := healthsvc.New(auditStore, healthOpts...)
	if err != nil {
		return fmt.Errorf("health service: %w", err)
	}

	var rlPrimary ratelimitsvc.Store
	if redisClient != nil {
		rlPrimary = ratelimitredis.New(redisClient.Client)
	}
	limiter, err := ratelimitsvc.New(rlPrimary, ratelimitmem.New(),
		ratelimitsvc.WithLogger(log),
		ratelimitsvc.WithMetrics(ratelimitmetrics.New()),
		ratelimitsvc.WithConfig(ratelimit.Config{
			Read:      ratelimit.Limit{Requests: cfg.RateLimit.ReadRequests, Window: cfg.RateLimit.Window},
			Write:     ratelimit.Limit{Requests: cfg.RateLimit.WriteRequests, Window: cfg.RateLimit.Window},
			Detection: ratelimit.Limit{Requests: cfg.RateLimit.DetectionRequests, Window: cfg.RateLimit.Window},
			Token:     ratelimit.Limit{Requests: cfg.RateLimit.TokenRequests, Window: cfg.RateLimit.Window},
		}),
	)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	router := httpapi.NewRouter(httpapi.Handlers{
		Audit:  audithandler.New(auditService, log),
		Risk:   riskhandler.New(riskService, log),
		Fraud:  fraudhandler.New(fraudService, log),
		Tokens: tokenhandler.New(tokenService, log),
		Guard:  guardhandler.New(guardService, log),
		Health: healthhandler.New(healthService, log),
	}, ratelimitmw.New(limiter, log, ratelimitmw.WithDisabled(cfg.RateLimit.Disabled)),
		cfg.Admin.TokenHash, log)

	srv := httpserver.New(cfg.Server.Addr, router)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("custos listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	if ingestConsumer != nil {
		go func() {
			if err := ingestConsumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("ingest consumer stopped", "error", err)
			}
		}()
	}

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	if ingestConsumer != nil {
		ingestConsumer.Close()
	}
	if findingPublisher != nil {
		if err := findingPublisher.Close(shutdownCtx); err != nil {
			log.Warn("finding publisher closed with loss", "error", err)
		}
	}

	log.Info("shutdown complete")
	return nil
}
