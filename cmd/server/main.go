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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	ginprometheus "github.com/zsais/go-gin-prometheus"

	"action-critic/internal/cache"
	"action-critic/internal/config"
	"action-critic/internal/critic"
	"action-critic/internal/decoder"
	"action-critic/internal/handler"
	"action-critic/internal/inference"
	"action-critic/internal/model"
	"action-critic/internal/repository"
	"action-critic/internal/service"
	"action-critic/internal/telemetry"
	"action-critic/migrations"
	"action-critic/pkg/migration"
)

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	engine, err := buildEngine(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build inference engine")
	}

	recorder := telemetry.NewRecorder(log.Logger, prometheus.DefaultRegisterer)
	judge := critic.New(engine, recorder, log.Logger)
	judge.Initialize(ctx)
	defer judge.Close()

	evalCache := buildCache(cfg)
	evalService := service.NewEvaluationService(
		decoder.New(log.Logger),
		judge,
		evalCache,
		meanCombiner,
		log.Logger,
	)
	resultRepo := repository.NewPgEvaluationResultRepository(dbPool, log.Logger)

	router := buildRouter(cfg, evalService, resultRepo)
	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
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

func buildRouter(cfg *config.Config, evalService *service.EvaluationService, resultRepo repository.EvaluationResultRepository) *gin.Engine {
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handler.RequestLogger(log.Logger))
	router.Use(cors.Default())

	prom := ginprometheus.NewPrometheus("action_critic_http")
	prom.Use(router)

	handler.New(evalService, resultRepo, log.Logger).RegisterRoutes(router)
	return router
}

// meanCombiner is this deployment's total-score policy: the unweighted
// mean of the five sub-scores. The core treats the combination as an
// injected policy; swap this out to change the ranking behavior.
func meanCombiner(sa model.ScoredAction) float64 {
	return (sa.SkillScore + sa.ConsequenceScore + sa.ContextScore + sa.LocationScore + sa.SpecificityScore) / 5
}
