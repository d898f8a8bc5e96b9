package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/susu3304/hinkalibot/internal/controls"
	"github.com/susu3304/hinkalibot/internal/idempotency"
	"github.com/susu3304/hinkalibot/internal/order"
	"github.com/susu3304/hinkalibot/internal/surface"
)

const (
	startText        = "Начните заказывать"
	alreadyOpenText  = "Заказ уже в процессе.\nЗакончите его командой /finish"
	noOrdersText     = "Никто ничего не заказывал!"
	organizerText    = "Святым рандомом заказывающим назначается:\n"
	arrivedText      = "Заказ приехал!\n"
	notOrganizerText = "Завершить заказ может только организатор"
	notOpenText      = "Заказ не начат"
	paymentsOpenText = "Сбор оплаты уже идёт"
	aliveText        = "I'm alive!"
)

// botAPI is the part of *tgbotapi.BotAPI the handler talks to.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Handler struct {
	bot        botAPI
	ctl        *order.Controller
	surfaces   *surface.Tracker
	dedup      idempotency.Store
	logger     *zap.Logger
	warningTTL time.Duration
}

func NewHandler(bot botAPI, ctl *order.Controller, surfaces *surface.Tracker, dedup idempotency.Store, logger *zap.Logger, warningTTL time.Duration) *Handler {
	return &Handler{
		bot:        bot,
		ctl:        ctl,
		surfaces:   surfaces,
		dedup:      dedup,
		logger:     logger,
		warningTTL: warningTTL,
	}
}

// HandleUpdate routes one update from polling or the webhook.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if h.duplicate(ctx, "cb:"+update.CallbackQuery.ID) {
			return
		}
		h.onCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		if h.duplicate(ctx, "upd:"+strconv.Itoa(update.UpdateID)) {
			return
		}
		h.onMessage(ctx, update.Message)
	}
}

func (h *Handler) duplicate(ctx context.Context, id string) bool {
	seen, err := h.dedup.Seen(ctx, idempotency.Key("telegram", id))
	if err != nil {
		h.logger.Warn("dedup lookup failed, handling anyway", zap.String("id", id), zap.Error(err))
		return false
	}
	if seen {
		h.logger.Debug("duplicate update skipped", zap.String("id", id))
	}
	return seen
}

func (h *Handler) onMessage(ctx context.Context, m *tgbotapi.Message) {
	if !m.IsCommand() || m.Chat == nil {
		return
	}
	if m.Chat.IsPrivate() {
		if m.Command() == "start" {
			h.send(tgbotapi.NewMessage(m.Chat.ID, aliveText))
		}
		return
	}
	if !m.Chat.IsGroup() && !m.Chat.IsSuperGroup() {
		return
	}
	switch m.Command() {
	case "hinkali":
		h.startOrder(m)
	case "organizer":
		h.chooseOrganizer(ctx, m)
	case "pay":
		h.startPayments(m)
	case "finish":
		h.finish(ctx, m)
	}
}

func (h *Handler) startOrder(m *tgbotapi.Message) {
	v, err := h.ctl.Open()
	if errors.Is(err, order.ErrAlreadyOpen) {
		msg := tgbotapi.NewMessage(m.Chat.ID, alreadyOpenText)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if v.OrderMessage != nil {
			msg.ReplyMarkup = pointerKeyboard("Ссылка на заказ", *v.OrderMessage)
		}
		h.send(msg)
		return
	}

	msg := tgbotapi.NewMessage(m.Chat.ID, startText)
	msg.ReplyMarkup = orderKeyboard(v, h.ctl.Catalog())
	sent, err := h.bot.Send(msg)
	if err != nil {
		h.logger.Error("send order message", zap.Int64("chat_id", m.Chat.ID), zap.Error(err))
		return
	}
	ref := refOf(sent, m.Chat.ID)
	if err := h.ctl.AttachOrderMessage(ref); err != nil {
		h.logger.Warn("attach order message", zap.Error(err))
	}
	h.surfaces.Changed(ref.ChatID, ref.MessageID, controls.Signature(startText, v.Discount))
	h.logger.Info("session opened", zap.String("session_id", v.ID), zap.Int("discount", v.Discount.Percent))
}

func (h *Handler) chooseOrganizer(ctx context.Context, m *tgbotapi.Message) {
	v, err := h.ctl.ChooseOrganizer(ctx)
	switch {
	case errors.Is(err, order.ErrNoOrders):
		h.warn(m, noOrdersText)
		return
	case errors.Is(err, order.ErrInvalidState):
		h.warn(m, notOpenText)
		return
	case err != nil:
		h.logger.Error("choose organizer", zap.Error(err))
		return
	}
	msg := tgbotapi.NewMessage(m.Chat.ID, organizerText+h.Mention(*v.Organizer))
	msg.ParseMode = tgbotapi.ModeMarkdown
	h.send(msg)
	h.refresh(v)
}

func (h *Handler) startPayments(m *tgbotapi.Message) {
	v, err := h.ctl.StartPaymentCollection()
	if err != nil {
		h.warn(m, notOpenText)
		return
	}
	if v.PaymentMessage != nil {
		msg := tgbotapi.NewMessage(m.Chat.ID, paymentsOpenText)
		msg.ReplyMarkup = pointerKeyboard("Ссылка на оплату", *v.PaymentMessage)
		h.send(msg)
		return
	}
	msg := tgbotapi.NewMessage(m.Chat.ID, v.PaymentReport)
	msg.ReplyMarkup = paymentKeyboard()
	sent, err := h.bot.Send(msg)
	if err != nil {
		h.logger.Error("send payment message", zap.Int64("chat_id", m.Chat.ID), zap.Error(err))
		return
	}
	ref := refOf(sent, m.Chat.ID)
	switch err := h.ctl.AttachPaymentMessage(ref); {
	case errors.Is(err, order.ErrPaymentMessageAttached):
		// A concurrent /pay posted first; drop ours and point at theirs.
		h.request(tgbotapi.NewDeleteMessage(m.Chat.ID, sent.MessageID))
		if cur := h.ctl.Snapshot().PaymentMessage; cur != nil {
			msg := tgbotapi.NewMessage(m.Chat.ID, paymentsOpenText)
			msg.ReplyMarkup = pointerKeyboard("Ссылка на оплату", *cur)
			h.send(msg)
		}
		return
	case err != nil:
		h.logger.Warn("attach payment message", zap.Error(err))
		return
	}
	h.surfaces.Changed(ref.ChatID, ref.MessageID, v.PaymentReport)
}

func (h *Handler) finish(ctx context.Context, m *tgbotapi.Message) {
	if m.From == nil {
		return
	}
	final, err := h.ctl.Finalize(ctx, participantOf(m.From).ID)
	switch {
	case errors.Is(err, order.ErrInvalidState):
		return
	case errors.Is(err, order.ErrUnauthorized):
		reply := tgbotapi.NewMessage(m.Chat.ID, notOrganizerText)
		reply.ReplyToMessageID = m.MessageID
		h.send(reply)
		return
	case err != nil:
		h.logger.Error("persist organizer", zap.String("session_id", final.ID), zap.Error(err))
	}

	for _, ref := range []*order.MessageRef{final.OrderMessage, final.PaymentMessage} {
		if ref == nil {
			continue
		}
		h.surfaces.Forget(ref.ChatID, ref.MessageID)
		chatID, messageID, err := parseRef(*ref)
		if err != nil {
			h.logger.Warn("bad message ref", zap.Error(err))
			continue
		}
		if _, err := h.bot.Request(tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, emptyKeyboard())); err != nil {
			h.logger.Debug("remove keyboard", zap.String("message_id", ref.MessageID), zap.Error(err))
		}
	}

	h.logger.Info("session finished", zap.String("session_id", final.ID), zap.Int("participants", len(final.Participants)))
	if len(final.Participants) == 0 {
		return
	}
	names := make([]string, 0, len(final.Participants))
	for _, p := range final.Participants {
		names = append(names, h.Mention(p))
	}
	msg := tgbotapi.NewMessage(m.Chat.ID, arrivedText+strings.Join(names, ", "))
	msg.ParseMode = tgbotapi.ModeMarkdown
	h.send(msg)
}

func (h *Handler) onCallback(_ context.Context, cq *tgbotapi.CallbackQuery) {
	notice := ""
	defer func() {
		if _, err := h.bot.Request(tgbotapi.NewCallback(cq.ID, notice)); err != nil {
			h.logger.Debug("answer callback", zap.Error(err))
		}
	}()

	act, err := controls.Parse(cq.Data)
	if err != nil || cq.From == nil || cq.Message == nil || cq.Message.Chat == nil {
		return
	}
	p := participantOf(cq.From)

	var v order.View
	switch act.Kind {
	case controls.KindOrder:
		v, err = h.ctl.ApplyOrderDelta(p, act.Item, act.Delta)
	case controls.KindDiscount:
		v, err = h.ctl.SetDiscount(act.Percent)
	case controls.KindPayment:
		v, err = h.ctl.MarkPayment(p.ID, act.Status)
	}
	if errors.Is(err, order.ErrInvalidState) {
		notice = notOpenText
		return
	}
	if err != nil || !v.Open {
		return
	}

	chatID, messageID := cq.Message.Chat.ID, cq.Message.MessageID
	ref := refOf(*cq.Message, chatID)

	var edit tgbotapi.Chattable
	switch {
	case act.Kind == controls.KindPayment:
		if !h.surfaces.Changed(ref.ChatID, ref.MessageID, v.PaymentReport) {
			return
		}
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, v.PaymentReport, paymentKeyboard())
	case act.Kind == controls.KindDiscount && !v.HasOrders():
		if !h.surfaces.Changed(ref.ChatID, ref.MessageID, controls.Signature(cq.Message.Text, v.Discount)) {
			return
		}
		edit = tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, orderKeyboard(v, h.ctl.Catalog()))
	default:
		if !h.surfaces.Changed(ref.ChatID, ref.MessageID, controls.Signature(v.OrderReport, v.Discount)) {
			return
		}
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, v.OrderReport, orderKeyboard(v, h.ctl.Catalog()))
	}
	if _, err := h.bot.Request(edit); err != nil {
		h.logger.Warn("edit message", zap.Int("message_id", messageID), zap.Error(err))
	}
}

// refresh re-renders both surfaces after a command changed the session.
func (h *Handler) refresh(v order.View) {
	if ref := v.OrderMessage; ref != nil && v.HasOrders() &&
		h.surfaces.Changed(ref.ChatID, ref.MessageID, controls.Signature(v.OrderReport, v.Discount)) {
		if chatID, messageID, err := parseRef(*ref); err == nil {
			h.request(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, v.OrderReport, orderKeyboard(v, h.ctl.Catalog())))
		}
	}
	if ref := v.PaymentMessage; ref != nil && h.surfaces.Changed(ref.ChatID, ref.MessageID, v.PaymentReport) {
		if chatID, messageID, err := parseRef(*ref); err == nil {
			h.request(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, v.PaymentReport, paymentKeyboard()))
		}
	}
}

// warn replies and deletes the reply after warningTTL.
func (h *Handler) warn(m *tgbotapi.Message, text string) {
	reply := tgbotapi.NewMessage(m.Chat.ID, text)
	reply.ReplyToMessageID = m.MessageID
	sent, err := h.bot.Send(reply)
	if err != nil {
		h.logger.Debug("send warning", zap.Error(err))
		return
	}
	chatID, messageID := m.Chat.ID, sent.MessageID
	time.AfterFunc(h.warningTTL, func() {
		h.request(tgbotapi.NewDeleteMessage(chatID, messageID))
	})
}

func (h *Handler) send(c tgbotapi.Chattable) {
	if _, err := h.bot.Send(c); err != nil {
		h.logger.Warn("send message", zap.Error(err))
	}
}

func (h *Handler) request(c tgbotapi.Chattable) {
	if _, err := h.bot.Request(c); err != nil {
		h.logger.Warn("telegram request", zap.Error(err))
	}
}

// SendText posts a Markdown message; used by the payment reminder.
func (h *Handler) SendText(_ context.Context, chatID, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("parse chat id %q: %w", chatID, err)
	}
	msg := tgbotapi.NewMessage(id, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err = h.bot.Send(msg)
	return err
}

// Mention links the participant's name to their profile.
func (h *Handler) Mention(p order.Participant) string {
	return fmt.Sprintf("[%s](tg://user?id=%s)", tgbotapi.EscapeText(tgbotapi.ModeMarkdown, p.Name), p.ID)
}

func participantOf(u *tgbotapi.User) order.Participant {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return order.Participant{ID: strconv.FormatInt(u.ID, 10), Name: name}
}

func refOf(m tgbotapi.Message, chatID int64) order.MessageRef {
	if m.Chat != nil {
		chatID = m.Chat.ID
	}
	return order.MessageRef{ChatID: strconv.FormatInt(chatID, 10), MessageID: strconv.Itoa(m.MessageID)}
}

func parseRef(ref order.MessageRef) (int64, int, error) {
	chatID, err := strconv.ParseInt(ref.ChatID, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse chat id %q: %w", ref.ChatID, err)
	}
	messageID, err := strconv.Atoi(ref.MessageID)
	if err != nil {
		return 0, 0, fmt.Errorf("parse message id %q: %w", ref.MessageID, err)
	}
	return chatID, messageID, nil
}
