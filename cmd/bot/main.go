// Package main is the entry point for the transaction queue console bot.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"queuebot/internal/api"
	"queuebot/internal/bot"
	"queuebot/internal/config"
	"queuebot/internal/live"
	"queuebot/internal/ops"
	"queuebot/internal/pkg/db"
	"queuebot/internal/queue"
	"queuebot/internal/repository"
	"queuebot/internal/session"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Failed to read .env file")
	}

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := api.NewClient(&cfg.API)

	var (
		audit   queue.AuditRecorder = repository.NopAudit{}
		auditDB ops.AuditLister
		health  ops.HealthChecker
	)
	if cfg.Database.Enabled {
		pool, err := db.NewPool(ctx, &cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer pool.Close()

		repo := repository.NewAuditRepository(pool.Pool)
		audit, auditDB, health = repo, repo, pool
	}

	var views repository.ViewStateStore = repository.NewMemoryViewStateStore()
	if cfg.Redis.Enabled {
		rdb, err := db.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		defer rdb.Close()

		views = repository.NewRedisViewStateStore(rdb, cfg.Redis.ViewTTL)
	}

	subscriber := live.NewSubscriber(&cfg.WebSocket, cfg.API.Token)
	subscriber.OnStatus(func(s live.Status) {
		log.Info().Str("status", string(s)).Msg("Live channel status changed")
	})

	sessions := session.NewManager(session.Deps{
		Lister:   client,
		Actioner: client,
		Audit:    audit,
		Hub:      subscriber,
		Views:    views,
		PageSize: cfg.API.PageSize,
	})

	telegramBot, err := bot.New(&bot.Dependencies{
		Config:   cfg,
		Sessions: sessions,
		Live:     subscriber,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.WebSocket.URL != "" {
		g.Go(func() error {
			err := subscriber.Run(gctx)
			if errors.Is(err, live.ErrReconnectExhausted) {
				log.Error().Err(err).Msg("Live updates stopped, the console keeps serving REST data")
				return nil
			}
			return err
		})
	} else {
		log.Warn().Msg("websocket.url not set, live updates disabled")
	}

	if cfg.Ops.Enabled {
		router := ops.NewRouter(ops.Deps{
			Live:     subscriber,
			Sessions: sessions,
			Audit:    auditDB,
			Database: health,
		})
		g.Go(func() error {
			return ops.Run(gctx, cfg.Ops.Addr, router)
		})
	}

	g.Go(func() error {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		telegramBot.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Console stopped with error")
		return
	}
	log.Info().Msg("Bot stopped gracefully")
}
