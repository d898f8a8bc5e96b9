package commands

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/susu3304/hinkalibot/internal/order"
)

// participantOf returns who triggered the interaction; guild members carry their nickname.
func participantOf(i *discordgo.InteractionCreate) (order.Participant, bool) {
	if i.Member != nil && i.Member.User != nil {
		name := i.Member.Nick
		if name == "" {
			name = i.Member.User.Username
		}
		return order.Participant{ID: i.Member.User.ID, Name: name}, true
	}
	if i.User != nil {
		return order.Participant{ID: i.User.ID, Name: i.User.Username}, true
	}
	return order.Participant{}, false
}

func Mention(p order.Participant) string {
	return fmt.Sprintf("<@%s>", p.ID)
}

func mentions(ps []order.Participant) string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, Mention(p))
	}
	return strings.Join(out, ", ")
}

func messageURL(guildID string, ref order.MessageRef) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, ref.ChatID, ref.MessageID)
}
