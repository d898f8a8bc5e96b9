package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/susu3304/hinkalibot/internal/api"
	"github.com/susu3304/hinkalibot/internal/bot"
	"github.com/susu3304/hinkalibot/internal/commands"
	"github.com/susu3304/hinkalibot/internal/config"
	"github.com/susu3304/hinkalibot/internal/db"
	"github.com/susu3304/hinkalibot/internal/idempotency"
	"github.com/susu3304/hinkalibot/internal/infra/memory"
	"github.com/susu3304/hinkalibot/internal/infra/sqlite"
	"github.com/susu3304/hinkalibot/internal/logging"
	"github.com/susu3304/hinkalibot/internal/order"
	"github.com/susu3304/hinkalibot/internal/reminder"
	"github.com/susu3304/hinkalibot/internal/surface"
	"github.com/susu3304/hinkalibot/internal/telegram"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// "hinkalibot token [subject]" prints a bearer token for /api/session.
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := printToken(cfg, os.Args[2:]); err != nil {
			logger.Fatal("issue api token", zap.Error(err))
		}
		return
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("hinkalibot stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer closeStore()

	dedup, closeDedup, err := openDedup(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDedup()

	ctl := order.NewController(store, order.WithDiscount(cfg.DiscountPercent))
	surfaces := surface.NewTracker()
	apiServer := api.New(cfg.WebBind, ctl, []byte(cfg.APIJWTSecret), logger)

	var sender reminder.Sender
	var stopTransport func()
	// Runs once the API listener is bound.
	registerWebhook := func() error { return nil }
	switch cfg.Transport {
	case config.TransportTelegram:
		botAPI, err := telegram.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			return err
		}
		handler := telegram.NewHandler(botAPI, ctl, surfaces, dedup, logger, cfg.WarningTTL)
		tg := telegram.NewBot(botAPI, handler, logger)
		if url := cfg.WebhookURL(); url != "" {
			apiServer.Mount(cfg.WebhookPath(), tg.Webhook())
			registerWebhook = func() error { return tg.SetWebhook(url) }
		} else if err := tg.StartPolling(); err != nil {
			return err
		}
		sender, stopTransport = handler, tg.Stop
	case config.TransportDiscord:
		orders := commands.NewOrders(ctl, surfaces, logger, cfg.WarningTTL)
		discordBot, err := bot.New(cfg.DiscordToken, orders, dedup, logger)
		if err != nil {
			return err
		}
		if err := discordBot.Start(); err != nil {
			return err
		}
		sender = discordBot
		stopTransport = func() {
			if err := discordBot.Stop(); err != nil {
				logger.Warn("close discord session", zap.Error(err))
			}
		}
	}
	defer stopTransport()

	worker := reminder.NewWorker(ctl, sender, cfg.ReminderInterval, logger)
	worker.Start()
	defer worker.Stop()

	// Start API server
	if err := apiServer.Start(); err != nil {
		return err
	}
	if err := registerWebhook(); err != nil {
		return err
	}

	// Wait for signal to stop
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return apiServer.Shutdown(shutdownCtx)
}

func printToken(cfg *config.Config, args []string) error {
	if cfg.APIJWTSecret == "" {
		return fmt.Errorf("API_JWT_SECRET is not set")
	}
	subject := "dashboard"
	if len(args) > 0 {
		subject = args[0]
	}
	token, err := api.NewToken([]byte(cfg.APIJWTSecret), subject, cfg.APITokenTTL)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

// openStore picks the last-organizer backend from DATABASE_URL.
func openStore(ctx context.Context, url string) (order.LastOrganizerStore, func(), error) {
	switch {
	case url == "":
		return memory.NewStateRepo(), func() {}, nil
	case strings.HasPrefix(url, "sqlite:"):
		repo, err := sqlite.NewStateRepo(strings.TrimPrefix(url, "sqlite:"))
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		return repo, func() { repo.Close() }, nil
	default:
		database, err := db.New(ctx, url)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.RunMigrations(ctx); err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return database, database.Close, nil
	}
}

func openDedup(ctx context.Context, cfg *config.Config) (idempotency.Store, func(), error) {
	if cfg.RedisURL == "" {
		return idempotency.NewMemoryStore(cfg.DedupTTL), func() {}, nil
	}
	store, err := idempotency.NewRedisStoreFromURL(ctx, cfg.RedisURL, cfg.DedupTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return store, func() { store.Close() }, nil
}
