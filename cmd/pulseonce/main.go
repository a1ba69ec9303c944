// pulseonce runs a single fetch-analyze cycle and prints the report to
// stdout. With -send the report is also delivered to Telegram. Nothing
// is persisted; it is a dry run of the pipeline for ad-hoc checks.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"cryptopulse/config"
	"cryptopulse/logger"
	"cryptopulse/notifier"
	"cryptopulse/processor"
	"cryptopulse/reader/coinmarketcap"
	"cryptopulse/report"
)

func main() {
	log := logger.GetLogger()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	send := flag.Bool("send", false, "Deliver the report to Telegram instead of only printing it")
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

	ctx := context.Background()

	client := coinmarketcap.NewClient(cfg.Provider)
	snapshot, err := client.Fetch(ctx, cfg.Provider.TopN)
	if err != nil {
		log.WithError(err).Error("fetch failed")
		os.Exit(1)
	}
	if len(snapshot) == 0 {
		log.Warn("provider returned empty snapshot")
		os.Exit(0)
	}

	analyzer := processor.NewAnalyzer()
	results := analyzer.Analyze(snapshot)

	reporter := report.NewReporter(10)
	alerts := reporter.Alerts(snapshot)
	text := reporter.BuildReport(snapshot, results, snapshot[0].FetchedAt)
	if alerts != "" {
		fmt.Println(alerts)
		fmt.Println()
	}
	fmt.Println(text)

	if !*send {
		return
	}

	tg := notifier.NewTelegram(cfg.Telegram)
	if alerts != "" {
		if err := tg.SendMessage(ctx, alerts); err != nil {
			log.WithError(err).Warn("alert delivery failed")
		}
	}
	chart, err := reporter.RenderChart(snapshot, results)
	if err != nil {
		log.WithError(err).Warn("chart rendering failed, sending text only")
		chart = nil
	}
	if err := tg.SendReport(ctx, text, chart); err != nil {
		log.WithError(err).Error("report delivery failed")
		os.Exit(1)
	}
	log.Info("report delivered")
}
