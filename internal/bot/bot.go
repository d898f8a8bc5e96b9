package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/susu3304/hinkalibot/internal/commands"
	"github.com/susu3304/hinkalibot/internal/idempotency"
	"github.com/susu3304/hinkalibot/internal/order"
)

type Bot struct {
	session *discordgo.Session
	orders  *commands.Orders
	dedup   idempotency.Store
	logger  *zap.Logger
}

func New(token string, orders *commands.Orders, dedup idempotency.Store, logger *zap.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	bot := &Bot{
		session: session,
		orders:  orders,
		dedup:   dedup,
		logger:  logger,
	}

	// Register event handlers
	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onGuildCreate)
	session.AddHandler(bot.onInteractionCreate)

	session.Identify.Intents = discordgo.IntentsGuilds

	return bot, nil
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	b.logger.Info("discord bot is running")
	return nil
}

func (b *Bot) Stop() error {
	return b.session.Close()
}

// SendText posts a plain message; used by the payment reminder.
func (b *Bot) SendText(ctx context.Context, channelID, text string) error {
	_, err := b.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	return err
}

func (b *Bot) Mention(p order.Participant) string {
	return commands.Mention(p)
}
