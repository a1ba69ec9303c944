package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"cryptopulse/config"
	"cryptopulse/logger"
	"cryptopulse/notifier"
	"cryptopulse/pipeline"
	"cryptopulse/processor"
	"cryptopulse/reader/coinmarketcap"
	"cryptopulse/report"
	"cryptopulse/store"
	"cryptopulse/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Cryptopulse.Name,
		"version": cfg.Cryptopulse.Version,
	}).Info("starting cryptopulse")

	if cfg.Storage.S3.Enabled {
		logger.InitCloudWatch(cfg.Storage.S3.Region, "")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(cfg.Storage.SQLitePath())
	if err != nil {
		log.WithError(err).Error("failed to open snapshot store")
		os.Exit(1)
	}
	defer st.Close()

	var archiver pipeline.Archiver
	if cfg.Archive.Enabled {
		a, err := writer.NewArchiver(cfg)
		if err != nil {
			log.WithError(err).Error("failed to create archiver")
			os.Exit(1)
		}
		archiver = a
	} else {
		log.WithComponent("main").Info("archive disabled; raw snapshots will not be written")
	}

	tg := notifier.NewTelegram(cfg.Telegram)
	if !cfg.Telegram.Enabled {
		log.WithComponent("main").Info("telegram disabled; reports will not be delivered")
	}

	runner := pipeline.NewRunner(
		coinmarketcap.NewClient(cfg.Provider),
		st,
		archiver,
		processor.NewAnalyzer(),
		report.NewReporter(10),
		tg,
		cfg.Provider.TopN,
		cfg.Cycle.Interval(),
		pipeline.NewClock(),
	)

	if err := runner.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start runner")
		os.Exit(1)
	}

	log.Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

	log.Info("starting graceful shutdown")
	cancel()
	runner.Stop()

	log.Info("cryptopulse stopped")
}
