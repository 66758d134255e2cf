package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/xaenox/watt-guardian/internal/api"
	"github.com/xaenox/watt-guardian/internal/assistant"
	"github.com/xaenox/watt-guardian/internal/bot"
	"github.com/xaenox/watt-guardian/internal/classifier"
	"github.com/xaenox/watt-guardian/internal/models"
	"github.com/xaenox/watt-guardian/internal/mqtt"
	"github.com/xaenox/watt-guardian/internal/observability"
	"github.com/xaenox/watt-guardian/internal/random"
	"github.com/xaenox/watt-guardian/internal/simulation"
	"github.com/xaenox/watt-guardian/internal/storage"
	"github.com/xaenox/watt-guardian/internal/telemetry"
	"github.com/xaenox/watt-guardian/pkg/config"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	bootLogger, _ := zap.NewProduction()
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		bootLogger.Fatal("Failed to load config", zap.Error(err), zap.String("path", *configPath))
	}

	logger := bootLogger
	if cfg.Log.Development {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	// Telemetry sinks
	var sinks []telemetry.Sink
	if cfg.Database.Enabled {
		logger.Info("Archiving telemetry to PostgreSQL")
		archive, err := storage.NewPostgresArchive(storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			logger.Fatal("Failed to initialize archive", zap.Error(err))
		}
		defer archive.Close()
		sinks = append(sinks, archive)
	}
	if cfg.MQTT.Enabled {
		logger.Info("Publishing telemetry to MQTT", zap.String("broker", cfg.MQTT.Broker))
		client, err := mqtt.NewClient(mqtt.ClientConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to connect to MQTT", zap.Error(err))
		}
		defer client.Close()
		sinks = append(sinks, mqtt.NewPublisher(client, mqtt.PublisherConfig{TopicPrefix: cfg.MQTT.TopicPrefix}))
	}
	dispatcher := telemetry.NewDispatcher(telemetry.DispatcherConfig{
		Buffer: cfg.Telemetry.Buffer,
		OnDrop: metrics.TelemetryDropped,
	}, logger, sinks...)

	// Simulation
	src := random.NewTimeSeeded()
	var notifications []models.Notification
	if cfg.Simulation.SeedNotifications {
		notifications = simulation.DefaultNotifications(time.Now())
	}
	engine := simulation.New(simulation.Config{
		SampleHours:          cfg.Simulation.SampleHours,
		Retention:            cfg.Simulation.Retention,
		HighPowerThresholdKW: cfg.Simulation.HighPowerThresholdKW,
		HighPowerProbability: cfg.Simulation.HighPowerProbability,
		BudgetAlertRatio:     cfg.Simulation.BudgetAlertRatio,
		EnergyRate:           cfg.Budget.EnergyRate,
		DailyBudgetKWh:       cfg.Budget.DailyKWh,
	}, simulation.DefaultAppliances(src), notifications,
		simulation.WithRandom(src),
		simulation.WithPublisher(dispatcher),
		simulation.WithMetrics(metrics),
		simulation.WithLogger(logger),
	)
	scheduler := simulation.NewScheduler(engine, simulation.SchedulerConfig{
		StartupDelay:    cfg.Simulation.StartupDelay,
		TickInterval:    cfg.Simulation.TickInterval,
		RefreshInterval: cfg.Simulation.RefreshInterval,
	}, logger)

	// Assistant
	responderOpts := []assistant.Option{assistant.WithLogger(logger)}
	if cfg.OpenAI.APIKey != "" {
		logger.Info("Using OpenAI fallback for unmatched questions", zap.String("model", cfg.OpenAI.Model))
		responderOpts = append(responderOpts, assistant.WithFallback(classifier.NewGPTFallback(
			cfg.OpenAI.APIKey,
			cfg.OpenAI.Model,
			cfg.OpenAI.MaxTokens,
			cfg.OpenAI.Temperature,
			logger,
		)))
	}
	conversations := storage.NewMemoryStorage(cfg.Chat.MaxMessages)
	defer conversations.Close()
	chat := assistant.NewService(engine, assistant.NewResponder(responderOpts...), conversations, metrics, logger)

	var wg sync.WaitGroup
	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	run(func() { dispatcher.Run(ctx) })
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}
	pruners := map[string]func(time.Time) int{"conversations": conversations.PruneIdle}

	server := api.NewServer(engine, chat, reg, logger)
	serverErr := make(chan error, 1)
	run(func() { serverErr <- server.Start(cfg.HTTP.Addr) })

	if cfg.Telegram.Token != "" {
		b, err := bot.New(cfg.Telegram.Token, engine, chat, bot.RateConfig{
			MessagesPerSecond: cfg.Telegram.MessagesPerSecond,
			Burst:             cfg.Telegram.Burst,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create bot", zap.Error(err))
		}
		pruners["chat rate limiters"] = b.PruneLimiters
		run(func() {
			if err := b.Start(ctx); err != nil {
				logger.Error("Bot error", zap.Error(err))
			}
		})
	}

	run(func() { pruneIdle(ctx, cfg.Chat.IdleTTL, pruners, logger) })

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	scheduler.Stop()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	wg.Wait()
	logger.Info("Stopped",
		zap.Uint64("telemetry_dropped", dispatcher.Dropped()))
}

// pruneIdle periodically evicts per-chat state idle for longer than ttl.
func pruneIdle(ctx context.Context, ttl time.Duration, pruners map[string]func(time.Time) int, logger *zap.Logger) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for name, prune := range pruners {
				if n := prune(now.Add(-ttl)); n > 0 {
					logger.Info("Pruned idle entries", zap.String("kind", name), zap.Int("count", n))
				}
			}
		}
	}
}
