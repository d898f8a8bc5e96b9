package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const updateTimeout = 15 * time.Second

// Bot drives a Handler from long polling or a webhook.
type Bot struct {
	api     *tgbotapi.BotAPI
	handler *Handler
	logger  *zap.Logger
	polling bool
}

func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	api.Debug = false
	return api, nil
}

func NewBot(api *tgbotapi.BotAPI, handler *Handler, logger *zap.Logger) *Bot {
	return &Bot{api: api, handler: handler, logger: logger}
}

// StartPolling drops any webhook and consumes getUpdates in the background.
func (b *Bot) StartPolling() error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)
	b.polling = true
	go func() {
		for update := range updates {
			ctx, cancel := context.WithTimeout(context.Background(), updateTimeout)
			b.handler.HandleUpdate(ctx, update)
			cancel()
		}
	}()
	b.logger.Info("telegram polling started", zap.String("bot", b.api.Self.UserName))
	return nil
}

// SetWebhook points Telegram at url; updates then arrive through Webhook().
func (b *Bot) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("build webhook: %w", err)
	}
	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	b.logger.Info("telegram webhook set", zap.String("bot", b.api.Self.UserName))
	return nil
}

func (b *Bot) Webhook() http.Handler {
	return b.handler
}

func (b *Bot) Stop() {
	if b.polling {
		b.api.StopReceivingUpdates()
		return
	}
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		b.logger.Warn("delete webhook", zap.Error(err))
	}
}

// ServeHTTP accepts webhook deliveries.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.logger.Warn("decode webhook update", zap.Error(err))
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), updateTimeout)
	defer cancel()
	h.HandleUpdate(ctx, update)
	w.WriteHeader(http.StatusOK)
}
