package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/susu3304/hinkalibot/internal/controls"
	"github.com/susu3304/hinkalibot/internal/order"
)

// orderKeyboard renders one row per item, "-4 -2 -1 ВК +1 +2 +4", and the discount toggle.
func orderKeyboard(v order.View, catalog *order.Catalog) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, item := range catalog.Types() {
		var row []tgbotapi.InlineKeyboardButton
		labelled := false
		for _, step := range order.Steps {
			if step > 0 && !labelled {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(string(item), controls.OrderData(item, 0)))
				labelled = true
			}
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(controls.StepLabel(step), controls.OrderData(item, step)))
		}
		if !labelled {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(string(item), controls.OrderData(item, 0)))
		}
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(controls.DiscountLabel(v.Discount), controls.DiscountData(v.Discount.Next())),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func paymentKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(controls.PaidLabel, controls.PaymentData(order.StatusPaid)),
		tgbotapi.NewInlineKeyboardButtonData(controls.UnpaidLabel, controls.PaymentData(order.StatusUnpaid)),
	))
}

func emptyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
}

// pointerKeyboard links to a message of a supergroup.
func pointerKeyboard(text string, ref order.MessageRef) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonURL(text, messageLink(ref)),
	))
}

func messageLink(ref order.MessageRef) string {
	return fmt.Sprintf("https://t.me/c/%s/%s", strings.TrimPrefix(ref.ChatID, "-100"), ref.MessageID)
}
