package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"talentpassport/internal/config"
	"talentpassport/internal/database"
	"talentpassport/internal/leveling"
	"talentpassport/internal/logging"
	"talentpassport/internal/repository"
	"talentpassport/internal/risk"
	"talentpassport/internal/scoring"
	"talentpassport/internal/services"

	"go.uber.org/zap"
)

func main() {
	// Bootstrap logger with defaults; configuration is not loaded yet.
	log, err := logging.Init("logs", logging.DefaultRotation())
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	cfg, err := config.Load(".", log)
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Re-initialize logging with the configured directory and rotation.
	configured, err := logging.Init(cfg.Logging.Directory, logging.Rotation{
		MaxSizeMB:  cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		log.Fatal("Failed to reinitialize logger", zap.Error(err))
	}
	log = configured
	defer log.Sync()

	scoringCfg, err := scoring.Load(cfg.Scoring.File)
	if err != nil {
		log.Fatal("Failed to load scoring tunables", zap.Error(err))
	}

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}

	engine := risk.NewEngine(scoringCfg.Risk)
	ladder := leveling.NewLadder(scoringCfg.Leveling)

	attempts := repository.NewAttemptRepo(db)
	progress := repository.NewSkillProgressRepo(db)
	xpEvents := repository.NewXPEventRepo(db)

	notifier := services.NewNotifier(log)
	passport := services.NewPassportService(log, engine, ladder, attempts, progress, xpEvents, notifier)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recalculator := services.NewRecalculator(log, cfg.Recalculator.Interval, cfg.Recalculator.StaleAfter, progress, passport)
	recalculator.Start(ctx)

	log.Info("Talent passport core running")
	<-ctx.Done()
	log.Info("Shutting down")
}
