// Package main is the entry point for the spreadsheet spending Telegram bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitlab.com/yelinaung/sheet-spend-bot/internal/bot"
	"gitlab.com/yelinaung/sheet-spend-bot/internal/config"
	"gitlab.com/yelinaung/sheet-spend-bot/internal/database"
	"gitlab.com/yelinaung/sheet-spend-bot/internal/engine"
	"gitlab.com/yelinaung/sheet-spend-bot/internal/logger"
	"gitlab.com/yelinaung/sheet-spend-bot/internal/repository"
	"gitlab.com/yelinaung/sheet-spend-bot/internal/sheets"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("sheet-spend-bot %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.SetLevel(cfg.LogLevel)
	logger.InitHashSalt()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	logger.Log.Info().Msg("Database initialized successfully")

	sheetsClient := sheets.NewClient(cfg.SheetsAPIBaseURL, cfg.SheetsAPIToken, 10*time.Second)

	queue := engine.NewQueue(sheetsClient, cfg.EntryQueueSize)
	go queue.Run(ctx)

	eng := engine.New(
		repository.NewSessionRepository(pool),
		repository.NewCategoryRepository(pool),
		sheetsClient,
		queue,
	)

	telegramBot, err := bot.New(cfg, eng)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create bot")
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Log.Info().Msg("Shutting down...")
		cancel()
	}()

	telegramBot.Start(ctx)
}
