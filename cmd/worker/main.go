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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"action-critic/internal/cache"
	"action-critic/internal/config"
	"action-critic/internal/critic"
	"action-critic/internal/decoder"
	"action-critic/internal/inference"
	"action-critic/internal/messaging"
	"action-critic/internal/model"
	"action-critic/internal/repository"
	"action-critic/internal/service"
	"action-critic/internal/telemetry"
	"action-critic/internal/worker"
	"action-critic/migrations"
	"action-critic/pkg/migration"
)

const rabbitConnectAttempts = 5

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: could not load .env file: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Fatal: %v\n", err)
		os.Exit(1)
	}
	initLogger(cfg)
	log.Info().Msg("evaluation worker starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go startMetricsServer(cfg.MetricsPort)

	log.Info().Str("dsn", cfg.MaskedDSN()).Msg("connecting to database")
	dbPool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create database pool")
	}
	defer dbPool.Close()
	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	migrator := migration.NewMigrator(migration.Config{
		MigrationsPath: ".",
		MigrationsFS:   migrations.FS,
	}, dbPool)
	if err := migrator.Up(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	conn, err := connectRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer conn.Close()

	channel, err := conn.Channel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open RabbitMQ channel")
	}
	defer channel.Close()

	publisher, err := messaging.NewAMQPResultPublisher(channel, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create result publisher")
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build inference engine")
	}

	recorder := telemetry.NewRecorder(log.Logger, prometheus.DefaultRegisterer)
	judge := critic.New(engine, recorder, log.Logger)
	judge.Initialize(ctx)
	defer judge.Close()

	evalService := service.NewEvaluationService(
		decoder.New(log.Logger),
		judge,
		buildCache(cfg),
		meanCombiner,
		log.Logger,
	)
	resultRepo := repository.NewPgEvaluationResultRepository(dbPool, log.Logger)
	taskHandler := worker.NewTaskHandler(evalService, resultRepo, publisher, log.Logger)

	consumer := messaging.NewTaskConsumer(conn, taskHandler, log.Logger)
	if err := consumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start task consumer")
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")
	consumer.Stop()
}

func initLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if !cfg.Production() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// connectRabbitMQ retries the initial connection; the broker often comes
// up after the worker in compose environments.
func connectRabbitMQ(url string) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	for attempt := 1; attempt <= rabbitConnectAttempts; attempt++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		delay := time.Duration(attempt) * 2 * time.Second
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("RabbitMQ connection failed")
		time.Sleep(delay)
	}
	return nil, fmt.Errorf("connect to RabbitMQ after %d attempts: %w", rabbitConnectAttempts, err)
}

func startMetricsServer(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info().Str("port", port).Msg("metrics server starting")
	if err := http.ListenAndServe(":"+port, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("metrics server failed")
	}
}

func buildEngine(cfg *config.Config) (inference.Engine, error) {
	switch cfg.EngineBackend {
	case "native":
		return inference.NewHTTPEngine(inference.HTTPEngineConfig{
			BaseURL: cfg.EngineBaseURL,
			Timeout: cfg.EngineTimeout,
		}, log.Logger)
	case "openai":
		return inference.NewOpenAIEngine(inference.OpenAIEngineConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		}, log.Logger)
	default:
		return nil, fmt.Errorf("unknown engine backend %q", cfg.EngineBackend)
	}
}

func buildCache(cfg *config.Config) cache.EvaluationCache {
	if cfg.RedisAddr == "" {
		log.Info().Msg("redis address not set, evaluation cache disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	return cache.NewRedisCache(client, cfg.CacheTTL, log.Logger)
}

// meanCombiner mirrors the server's total-score policy so both surfaces
// rank identically.
func meanCombiner(sa model.ScoredAction) float64 {
	return (sa.SkillScore + sa.ConsequenceScore + sa.ContextScore + sa.LocationScore + sa.SpecificityScore) / 5
}
