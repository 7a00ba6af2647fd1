package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"BlockScreener/internal/annotation"
	"BlockScreener/internal/api"
	"BlockScreener/internal/collector"
	"BlockScreener/internal/config"
	"BlockScreener/internal/history"
	"BlockScreener/internal/logger"
	"BlockScreener/internal/notifier"
	"BlockScreener/internal/recorder"
	"BlockScreener/internal/scheduler"
	"BlockScreener/internal/snapshot"
	"BlockScreener/internal/strategy"
	"BlockScreener/internal/universe"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := logger.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		log.Fatal().Err(err).Msg("setup logger")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	log.Info().Str("block", cfg.Block).Msg("BlockScreener starting...")
	loc := cfg.Location()

	// Universe
	u, err := universe.LoadFile(cfg.UniverseFile)
	if err != nil {
		log.Fatal().Err(err).Msg("load universe")
	}
	members, err := u.MembersOf(cfg.Block)
	if err != nil {
		log.Fatal().Err(err).Strs("blocks", u.Blocks()).Msg("resolve block")
	}
	log.Info().Int("members", len(members)).Msg("universe loaded")

	// Annotations
	notes, err := annotation.Open(cfg.Annotations.File)
	if err != nil {
		log.Fatal().Err(err).Msg("load annotations")
	}

	// Data provider
	provider, err := collector.NewProvider(cfg.DataSource.Provider, cfg.DataSource.Fallback, collector.ClientOptions{
		Proxy:      cfg.Proxy,
		Timeout:    cfg.DataSource.Timeout,
		Retries:    cfg.DataSource.Retries,
		RatePerSec: cfg.DataSource.RateLimitPerSec,
	}, loc)
	if err != nil {
		log.Fatal().Err(err).Msg("init data provider")
	}
	log.Info().Str("provider", provider.Name()).Msg("data source ready")

	cache := history.NewCache(provider, cfg.Fetch.HistoryDepth, history.WithLocation(loc))
	fetcher := collector.NewBatchFetcher(provider, cache, collector.BatchOptions{
		QuoteChunkSize:   cfg.Fetch.QuoteChunkSize,
		HistoryBatchSize: cfg.Fetch.HistoryBatchSize,
		MaxWorkers:       cfg.Fetch.MaxWorkers,
		TaskTimeout:      cfg.Fetch.TaskTimeout,
	})
	col := collector.NewCollector(u, cfg.Block, fetcher, notes, strategy.Windows{
		MA:        cfg.Metrics.MAWindow,
		Volume:    cfg.Metrics.VolumeWindow,
		Amplitude: cfg.Metrics.AmplitudeWindow,
	}, cfg.Metrics.MomentumCycles)

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var tn *notifier.TelegramNotifier
	var alerts scheduler.Notifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		alerts = tn
	}

	pub := snapshot.NewPublisher()
	sched := scheduler.New(col, pub, rec, alerts, cache, scheduler.Options{
		Interval:        cfg.Refresh.Interval,
		MaintenanceCron: cfg.Refresh.MaintenanceCron,
		AlertAfter:      cfg.Refresh.AlertAfter,
		TopN:            cfg.Telegram.TopN,
	})
	if err := sched.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("start scheduler")
	}
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if cfg.HTTP.Addr != "" {
		srv := api.NewServer(sched, pub, notes, rec)
		go func() {
			if err := srv.Run(ctx, cfg.HTTP.Addr); err != nil {
				log.Error().Err(err).Msg("http server")
				cancel()
			}
		}()
	}

	log.Info().Msg("BlockScreener is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping...")
}
