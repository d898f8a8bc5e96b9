package bot

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/susu3304/hinkalibot/internal/commands"
	"github.com/susu3304/hinkalibot/internal/idempotency"
)

const handlerTimeout = 15 * time.Second

func (b *Bot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord connected", zap.String("user", event.User.Username))

	// Register commands for all guilds
	for _, guild := range event.Guilds {
		if err := b.registerGuildCommands(guild.ID); err != nil {
			b.logger.Error("register commands", zap.String("guild_id", guild.ID), zap.Error(err))
		}
	}
}

func (b *Bot) onGuildCreate(s *discordgo.Session, event *discordgo.GuildCreate) {
	b.logger.Info("guild available, ensuring commands", zap.String("guild", event.Name), zap.String("guild_id", event.ID))
	if err := b.registerGuildCommands(event.ID); err != nil {
		b.logger.Error("register commands", zap.String("guild_id", event.ID), zap.Error(err))
	}
}

func (b *Bot) registerGuildCommands(guildID string) error {
	cmds := commands.GetCommands()
	// Delete existing commands and register new ones
	_, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, guildID, cmds)
	if err != nil {
		return err
	}

	b.logger.Info("registered application commands", zap.String("guild_id", guildID))
	return nil
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	b.dispatch(ctx, s, i)
}

func (b *Bot) dispatch(ctx context.Context, s commands.Session, i *discordgo.InteractionCreate) {
	seen, err := b.dedup.Seen(ctx, idempotency.Key("discord", i.ID))
	if err != nil {
		b.logger.Warn("dedup lookup failed, handling anyway", zap.String("interaction_id", i.ID), zap.Error(err))
	} else if seen {
		b.logger.Debug("duplicate interaction skipped", zap.String("interaction_id", i.ID))
		return
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleApplicationCommand(ctx, s, i)
	case discordgo.InteractionMessageComponent:
		commands.HandleComponent(s, i, b.orders)
	}
}

func (b *Bot) handleApplicationCommand(ctx context.Context, s commands.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()

	switch data.Name {
	case "hinkali":
		commands.HandleHinkali(ctx, s, i, b.orders)
	case "organizer":
		commands.HandleOrganizer(ctx, s, i, b.orders)
	case "pay":
		commands.HandlePay(ctx, s, i, b.orders)
	case "finish":
		commands.HandleFinish(ctx, s, i, b.orders)
	}
}
