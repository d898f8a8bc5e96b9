package reminder

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/susu3304/hinkalibot/internal/order"
)

// Sender posts plain text to a chat. Implemented by the chat adapters.
type Sender interface {
	SendText(ctx context.Context, chatID, text string) error
	Mention(p order.Participant) string
}

type snapshotter interface {
	Snapshot() order.View
}

// Worker periodically reminds unpaid participants while payment collection runs.
type Worker struct {
	orders   snapshotter
	sender   Sender
	logger   *zap.Logger
	interval time.Duration
	stopChan chan struct{}
	ticker   *time.Ticker
}

func NewWorker(orders snapshotter, sender Sender, interval time.Duration, logger *zap.Logger) *Worker {
	return &Worker{
		orders:   orders,
		sender:   sender,
		logger:   logger,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (w *Worker) Start() {
	if w == nil || w.interval <= 0 {
		return
	}
	w.ticker = time.NewTicker(w.interval)
	go w.loop()
}

func (w *Worker) Stop() {
	if w == nil || w.ticker == nil {
		return
	}
	close(w.stopChan)
	w.ticker.Stop()
}

func (w *Worker) loop() {
	ctx := context.Background()
	for {
		select {
		case <-w.ticker.C:
			w.Tick(ctx)
		case <-w.stopChan:
			return
		}
	}
}

// Tick sends one reminder if there is anybody left to remind.
func (w *Worker) Tick(ctx context.Context) {
	v := w.orders.Snapshot()
	if !v.Open || !v.PaymentsStarted || v.PaymentMessage == nil {
		return
	}
	unpaid := v.Unpaid()
	if len(unpaid) == 0 {
		return
	}
	msg := Message(unpaid, w.sender.Mention)
	if err := w.sendWithRetry(ctx, v.PaymentMessage.ChatID, msg); err != nil {
		w.logger.Warn("reminder: send failed",
			zap.String("session_id", v.ID),
			zap.String("chat_id", v.PaymentMessage.ChatID),
			zap.Error(err))
		return
	}
	w.logger.Debug("reminder: sent", zap.String("session_id", v.ID), zap.Int("unpaid", len(unpaid)))
}

// Message renders the reminder text.
func Message(unpaid []order.Participant, mention func(order.Participant) string) string {
	names := make([]string, 0, len(unpaid))
	for _, p := range unpaid {
		names = append(names, mention(p))
	}
	return "Ещё не оплатили: " + strings.Join(names, ", ") + "\n\n※ автоматическое напоминание"
}

func (w *Worker) sendWithRetry(ctx context.Context, chatID, content string) error {
	const attemptTimeout = 12 * time.Second
	const maxAttempts = 2

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		err := w.sender.SendText(sendCtx, chatID, content)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTemporaryOrTimeout(err) {
			return err
		}
		time.Sleep(time.Duration(300+rand.Intn(500)) * time.Millisecond)
	}
	return lastErr
}

func isTemporaryOrTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}
