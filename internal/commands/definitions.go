package commands

import "github.com/bwmarrin/discordgo"

func GetCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:         "hinkali",
			Description:  "Начать общий заказ хинкали",
			DMPermission: boolPtr(false),
		},
		{
			Name:         "organizer",
			Description:  "Случайно выбрать, кто оформляет заказ",
			DMPermission: boolPtr(false),
		},
		{
			Name:         "pay",
			Description:  "Начать сбор оплаты",
			DMPermission: boolPtr(false),
		},
		{
			Name:         "finish",
			Description:  "Закрыть заказ",
			DMPermission: boolPtr(false),
		},
	}
}

func boolPtr(b bool) *bool {
	return &b
}
