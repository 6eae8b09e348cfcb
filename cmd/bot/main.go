// Package main contains the entrypoint for the Telegram bot application.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/joho/godotenv"

	"github.com/mvoronin/relobot/internal/bot"
	"github.com/mvoronin/relobot/internal/bot/handlers"
	"github.com/mvoronin/relobot/internal/bot/tasks"
	"github.com/mvoronin/relobot/internal/config"
	"github.com/mvoronin/relobot/internal/database"
	"github.com/mvoronin/relobot/internal/llm"
	"github.com/mvoronin/relobot/internal/logger"
	"github.com/mvoronin/relobot/internal/pipeline"
	"github.com/mvoronin/relobot/internal/telegram"
	"github.com/mvoronin/relobot/internal/texts"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components, handles graceful
// shutdown, and returns an exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	// A missing .env file is fine; config falls back to BOT_* variables
	// already present in the environment.
	_ = godotenv.Load()

	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	catalog, err := texts.Load()
	if err != nil {
		log.Error("Failed to load message catalog", "error", err)
		return 1
	}

	model := llm.NewClient(llm.Options{
		ConnectTimeout: cfg.LLM.ConnectTimeout,
		RequestTimeout: cfg.LLM.RequestTimeout,
		MaxAttempts:    cfg.LLM.MaxAttempts,
		RetryBaseDelay: cfg.LLM.RetryBaseDelay,
		RetryMaxDelay:  cfg.LLM.RetryMaxDelay,
		Logger:         log,
	})

	cache := pipeline.NewCountryCache(store, cfg.Cache.TTL, pipeline.QualityConfig{
		MinAnswerLength:  cfg.Cache.MinAnswerLength,
		MinListMarkers:   cfg.Cache.MinListMarkers,
		MinTopicKeywords: cfg.Cache.MinTopicKeywords,
	}, log)

	limiter := pipeline.NewLimiter(store, pipeline.LimitsConfig{
		ChatDaily:           cfg.Limits.ChatDaily,
		CountryDaily:        cfg.Limits.CountryDaily,
		BoostedChatDaily:    cfg.Limits.BoostedChatDaily,
		BoostedCountryDaily: cfg.Limits.BoostedCountryDaily,
		BoostDays:           cfg.Limits.BoostDays,
	}, log)

	p := pipeline.New(pipeline.Options{
		Model: model,
		Retrieval: llm.Endpoint{
			URL:         cfg.LLM.Retrieval.URL,
			Token:       cfg.LLM.Retrieval.Token,
			Model:       cfg.LLM.Retrieval.Model,
			Temperature: cfg.LLM.Retrieval.Temperature,
		},
		Assist: llm.Endpoint{
			URL:         cfg.LLM.Assist.URL,
			Token:       cfg.LLM.Assist.Token,
			Model:       cfg.LLM.Assist.Model,
			Temperature: cfg.LLM.Assist.Temperature,
		},
		Cache:             cache,
		Limiter:           limiter,
		MaxUserTextLen:    cfg.History.MaxUserTextLength,
		MaxHistoryItemLen: cfg.History.MaxHistoryItemSize,
		Logger:            log,
	})

	if removed, err := p.SweepCache(ctx); err != nil {
		log.Warn("Startup cache sweep failed", "error", err)
	} else if removed > 0 {
		log.Info("Startup cache sweep removed expired entries", "removed", removed)
	}

	hDeps := handlers.HandlerDeps{
		Logger:   log,
		Config:   cfg,
		Store:    store,
		Pipeline: p,
		Texts:    catalog,
		Sessions: handlers.NewSessions(),
	}
	tDeps := tasks.TaskDeps{
		Logger:   log,
		Store:    store,
		Pipeline: p,
		Config:   cfg,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewMessageHandler(hDeps)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	me, err := tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", me.ID, "bot_username", me.Username)

	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}
	app := bot.NewBot(log, cfg, db, store, p, tg, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
