package commands

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/susu3304/hinkalibot/internal/controls"
	"github.com/susu3304/hinkalibot/internal/order"
	"github.com/susu3304/hinkalibot/internal/surface"
)

const (
	StartText        = "Начните заказывать"
	alreadyOpenText  = "Заказ уже в процессе.\nЗакончите его командой /finish"
	notOpenText      = "Заказ не начат. Начните его командой /hinkali"
	noOrdersText     = "Никто ничего не заказывал!"
	organizerText    = "Святым рандомом заказывающим назначается:\n"
	arrivedText      = "Заказ приехал!\n"
	notOrganizerText = "Завершить заказ может только организатор"
	paymentsOpenText = "Сбор оплаты уже идёт"
)

// Discord allows five buttons per row and five rows per message; the last
// row holds the discount toggle.
var (
	discordSteps = []int{-2, -1, 1, 2, 4}
	maxItemRows  = 4
)

// Orders is what the order commands share.
type Orders struct {
	ctl        *order.Controller
	surfaces   *surface.Tracker
	logger     *zap.Logger
	warningTTL time.Duration
}

func NewOrders(ctl *order.Controller, surfaces *surface.Tracker, logger *zap.Logger, warningTTL time.Duration) *Orders {
	return &Orders{ctl: ctl, surfaces: surfaces, logger: logger, warningTTL: warningTTL}
}

func HandleHinkali(ctx context.Context, s Session, i *discordgo.InteractionCreate, o *Orders) {
	v, err := o.ctl.Open()
	if errors.Is(err, order.ErrAlreadyOpen) {
		data := &discordgo.InteractionResponseData{Content: alreadyOpenText}
		if v.OrderMessage != nil {
			data.Components = []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label: "Ссылка на заказ",
						Style: discordgo.LinkButton,
						URL:   messageURL(i.GuildID, *v.OrderMessage),
					},
				}},
			}
		}
		if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: data,
		}); err != nil {
			o.logger.Warn("hinkali: respond", zap.Error(err))
		}
		return
	}

	msg, err := s.ChannelMessageSendComplex(i.ChannelID, &discordgo.MessageSend{
		Content:    StartText,
		Components: orderComponents(v, o.ctl.Catalog()),
	}, discordgo.WithContext(ctx))
	if err != nil {
		o.logger.Error("hinkali: send order message", zap.String("channel_id", i.ChannelID), zap.Error(err))
		_ = respondEphemeral(s, i, "Не удалось отправить заказ, попробуйте ещё раз")
		return
	}
	ref := order.MessageRef{ChatID: msg.ChannelID, MessageID: msg.ID}
	if err := o.ctl.AttachOrderMessage(ref); err != nil {
		o.logger.Warn("hinkali: attach order message", zap.Error(err))
	}
	o.surfaces.Changed(ref.ChatID, ref.MessageID, controls.Signature(StartText, v.Discount))
	o.logger.Info("session opened", zap.String("session_id", v.ID), zap.Int("discount", v.Discount.Percent))
	_ = respondEphemeral(s, i, "Заказ открыт")
}

func HandleOrganizer(ctx context.Context, s Session, i *discordgo.InteractionCreate, o *Orders) {
	v, err := o.ctl.ChooseOrganizer(ctx)
	switch {
	case errors.Is(err, order.ErrNoOrders):
		respondWarning(s, i, noOrdersText, o.warningTTL, o.logger)
		return
	case errors.Is(err, order.ErrInvalidState):
		_ = respondEphemeral(s, i, notOpenText)
		return
	case err != nil:
		o.logger.Error("organizer: choose", zap.Error(err))
		_ = respondEphemeral(s, i, "Не удалось выбрать организатора")
		return
	}
	if err := respondText(s, i, organizerText+Mention(*v.Organizer)); err != nil {
		o.logger.Warn("organizer: respond", zap.Error(err))
	}
	refreshSurfaces(ctx, s, o, v)
}

func HandlePay(ctx context.Context, s Session, i *discordgo.InteractionCreate, o *Orders) {
	v, err := o.ctl.StartPaymentCollection()
	if err != nil {
		_ = respondEphemeral(s, i, notOpenText)
		return
	}
	if v.PaymentMessage != nil {
		_ = respondEphemeral(s, i, paymentsOpenText)
		return
	}
	msg, err := s.ChannelMessageSendComplex(i.ChannelID, &discordgo.MessageSend{
		Content:    v.PaymentReport,
		Components: paymentComponents(),
	}, discordgo.WithContext(ctx))
	if err != nil {
		o.logger.Error("pay: send payment message", zap.String("channel_id", i.ChannelID), zap.Error(err))
		_ = respondEphemeral(s, i, "Не удалось начать сбор оплаты")
		return
	}
	ref := order.MessageRef{ChatID: msg.ChannelID, MessageID: msg.ID}
	switch err := o.ctl.AttachPaymentMessage(ref); {
	case errors.Is(err, order.ErrPaymentMessageAttached):
		// A concurrent /pay posted first; keep only that message.
		if err := s.ChannelMessageDelete(msg.ChannelID, msg.ID, discordgo.WithContext(ctx)); err != nil {
			o.logger.Warn("pay: delete duplicate payment message", zap.String("message_id", msg.ID), zap.Error(err))
		}
		_ = respondEphemeral(s, i, paymentsOpenText)
		return
	case err != nil:
		o.logger.Warn("pay: attach payment message", zap.Error(err))
		_ = respondEphemeral(s, i, notOpenText)
		return
	}
	o.surfaces.Changed(ref.ChatID, ref.MessageID, v.PaymentReport)
	_ = respondEphemeral(s, i, "Сбор оплаты начат")
}

func HandleFinish(ctx context.Context, s Session, i *discordgo.InteractionCreate, o *Orders) {
	p, _ := participantOf(i)
	final, err := o.ctl.Finalize(ctx, p.ID)
	switch {
	case errors.Is(err, order.ErrInvalidState):
		_ = respondEphemeral(s, i, notOpenText)
		return
	case errors.Is(err, order.ErrUnauthorized):
		_ = respondEphemeral(s, i, notOrganizerText)
		return
	case err != nil:
		// The session is closed already; only the organizer rotation is lost.
		o.logger.Error("finish: persist organizer", zap.String("session_id", final.ID), zap.Error(err))
	}

	for _, ref := range []*order.MessageRef{final.OrderMessage, final.PaymentMessage} {
		if ref == nil {
			continue
		}
		o.surfaces.Forget(ref.ChatID, ref.MessageID)
		if _, err := s.ChannelMessageEditComplex(&discordgo.MessageEdit{
			ID:         ref.MessageID,
			Channel:    ref.ChatID,
			Components: []discordgo.MessageComponent{},
		}, discordgo.WithContext(ctx)); err != nil {
			o.logger.Debug("finish: remove buttons", zap.String("message_id", ref.MessageID), zap.Error(err))
		}
	}

	o.logger.Info("session finished", zap.String("session_id", final.ID), zap.Int("participants", len(final.Participants)))
	if len(final.Participants) == 0 {
		_ = respondText(s, i, "Заказ закрыт")
		return
	}
	_ = respondText(s, i, arrivedText+mentions(final.Participants))
}

// HandleComponent applies a button press and updates the pressed message in place.
func HandleComponent(s Session, i *discordgo.InteractionCreate, o *Orders) {
	act, err := controls.Parse(i.MessageComponentData().CustomID)
	if err != nil {
		o.logger.Debug("component: ignored", zap.Error(err))
		_ = acknowledge(s, i)
		return
	}
	p, ok := participantOf(i)
	if !ok {
		_ = acknowledge(s, i)
		return
	}

	var v order.View
	switch act.Kind {
	case controls.KindOrder:
		v, err = o.ctl.ApplyOrderDelta(p, act.Item, act.Delta)
	case controls.KindDiscount:
		v, err = o.ctl.SetDiscount(act.Percent)
	case controls.KindPayment:
		v, err = o.ctl.MarkPayment(p.ID, act.Status)
	}
	switch {
	case errors.Is(err, order.ErrInvalidState):
		_ = respondEphemeral(s, i, notOpenText)
		return
	case err != nil:
		_ = acknowledge(s, i)
		return
	case !v.Open:
		_ = acknowledge(s, i)
		return
	}

	chatID, messageID := i.ChannelID, ""
	if i.Message != nil {
		chatID, messageID = i.Message.ChannelID, i.Message.ID
	}

	var content, sig string
	var components []discordgo.MessageComponent
	if act.Kind == controls.KindPayment {
		content = v.PaymentReport
		sig = content
		components = paymentComponents()
	} else {
		content = v.OrderReport
		if act.Kind == controls.KindDiscount && !v.HasOrders() && i.Message != nil {
			content = i.Message.Content
		}
		sig = controls.Signature(content, v.Discount)
		components = orderComponents(v, o.ctl.Catalog())
	}

	if !o.surfaces.Changed(chatID, messageID, sig) {
		_ = acknowledge(s, i)
		return
	}
	if err := updateMessage(s, i, content, components); err != nil {
		o.logger.Warn("component: update message", zap.String("message_id", messageID), zap.Error(err))
	}
}

// refreshSurfaces re-renders both order surfaces after a change made by a command.
func refreshSurfaces(ctx context.Context, s Session, o *Orders, v order.View) {
	if ref := v.OrderMessage; ref != nil && v.HasOrders() {
		if o.surfaces.Changed(ref.ChatID, ref.MessageID, controls.Signature(v.OrderReport, v.Discount)) {
			edit := &discordgo.MessageEdit{
				ID:         ref.MessageID,
				Channel:    ref.ChatID,
				Content:    &v.OrderReport,
				Components: orderComponents(v, o.ctl.Catalog()),
			}
			if _, err := s.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
				o.logger.Warn("refresh order message", zap.Error(err))
			}
		}
	}
	if ref := v.PaymentMessage; ref != nil {
		if o.surfaces.Changed(ref.ChatID, ref.MessageID, v.PaymentReport) {
			edit := &discordgo.MessageEdit{
				ID:         ref.MessageID,
				Channel:    ref.ChatID,
				Content:    &v.PaymentReport,
				Components: paymentComponents(),
			}
			if _, err := s.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
				o.logger.Warn("refresh payment message", zap.Error(err))
			}
		}
	}
}

func orderComponents(v order.View, catalog *order.Catalog) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	for n, item := range catalog.Types() {
		if n == maxItemRows {
			break
		}
		buttons := make([]discordgo.MessageComponent, 0, len(discordSteps))
		for _, step := range discordSteps {
			style := discordgo.PrimaryButton
			if step < 0 {
				style = discordgo.SecondaryButton
			}
			buttons = append(buttons, discordgo.Button{
				Label:    string(item) + " " + controls.StepLabel(step),
				Style:    style,
				CustomID: controls.OrderData(item, step),
			})
		}
		rows = append(rows, discordgo.ActionsRow{Components: buttons})
	}
	rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{
			Label:    controls.DiscountLabel(v.Discount),
			Style:    discordgo.SecondaryButton,
			CustomID: controls.DiscountData(v.Discount.Next()),
		},
	}})
	return rows
}

func paymentComponents() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: controls.PaidLabel, Style: discordgo.SuccessButton, CustomID: controls.PaymentData(order.StatusPaid)},
			discordgo.Button{Label: controls.UnpaidLabel, Style: discordgo.DangerButton, CustomID: controls.PaymentData(order.StatusUnpaid)},
		}},
	}
}
