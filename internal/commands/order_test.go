package commands

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/susu3304/hinkalibot/internal/controls"
	"github.com/susu3304/hinkalibot/internal/infra/memory"
	"github.com/susu3304/hinkalibot/internal/order"
	"github.com/susu3304/hinkalibot/internal/surface"
)

type fakeSession struct {
	mu        sync.Mutex
	nextID    int
	responses []*discordgo.InteractionResponse
	sent      []*discordgo.MessageSend
	edits     []*discordgo.MessageEdit
	deleted   int
	removed   []string
	// afterSend runs outside the lock once a message has been recorded.
	afterSend func(*discordgo.MessageSend)
}

func (f *fakeSession) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeSession) InteractionResponseDelete(_ *discordgo.Interaction, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted++
	return nil
}

func (f *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	f.nextID++
	f.sent = append(f.sent, data)
	msg := &discordgo.Message{ID: fmt.Sprintf("m%d", f.nextID), ChannelID: channelID, Content: data.Content}
	hook := f.afterSend
	f.mu.Unlock()
	if hook != nil {
		hook(data)
	}
	return msg, nil
}

func (f *fakeSession) ChannelMessageDelete(_, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, messageID)
	return nil
}

func (f *fakeSession) ChannelMessageEditComplex(m *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, m)
	return &discordgo.Message{ID: m.ID, ChannelID: m.Channel}, nil
}

func (f *fakeSession) lastResponse() *discordgo.InteractionResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.responses[len(f.responses)-1]
}

func newOrders(t *testing.T) *Orders {
	t.Helper()
	ctl := order.NewController(memory.NewStateRepo(),
		order.WithRand(rand.New(rand.NewSource(7))),
		order.WithClock(func() time.Time { return time.Date(2024, 5, 14, 12, 0, 0, 0, time.UTC) }))
	return NewOrders(ctl, surface.NewTracker(), zap.NewNop(), 10*time.Millisecond)
}

func member(id, name string) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: id, Username: name}}
}

func command(userID, name string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:        "cmd-" + userID,
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "g1",
		ChannelID: "c1",
		Member:    member(userID, name),
	}}
}

func press(userID, name, customID string, msg *discordgo.Message) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:        "btn-" + userID + customID,
		Type:      discordgo.InteractionMessageComponent,
		GuildID:   "g1",
		ChannelID: "c1",
		Member:    member(userID, name),
		Message:   msg,
		Data:      discordgo.MessageComponentInteractionData{CustomID: customID, ComponentType: discordgo.ButtonComponent},
	}}
}

func TestHinkaliOpensOnce(t *testing.T) {
	ctx := context.Background()
	o := newOrders(t)
	s := &fakeSession{}

	HandleHinkali(ctx, s, command("1", "ann"), o)
	require.Len(t, s.sent, 1)
	assert.Equal(t, StartText, s.sent[0].Content)
	assert.Len(t, s.sent[0].Components, 5)

	v := o.ctl.Snapshot()
	require.NotNil(t, v.OrderMessage)
	assert.Equal(t, order.MessageRef{ChatID: "c1", MessageID: "m1"}, *v.OrderMessage)

	HandleHinkali(ctx, s, command("2", "ben"), o)
	require.Len(t, s.sent, 1)
	resp := s.lastResponse()
	assert.Equal(t, alreadyOpenText, resp.Data.Content)
	require.Len(t, resp.Data.Components, 1)
	link := resp.Data.Components[0].(discordgo.ActionsRow).Components[0].(discordgo.Button)
	assert.Equal(t, "https://discord.com/channels/g1/c1/m1", link.URL)
}

func TestComponentUpdatesOrder(t *testing.T) {
	ctx := context.Background()
	o := newOrders(t)
	s := &fakeSession{}
	HandleHinkali(ctx, s, command("1", "ann"), o)
	msg := &discordgo.Message{ID: "m1", ChannelID: "c1", Content: StartText}

	HandleComponent(s, press("1", "ann", controls.OrderData("ВК", 2), msg), o)
	resp := s.lastResponse()
	assert.Equal(t, discordgo.InteractionResponseUpdateMessage, resp.Type)
	assert.Contains(t, resp.Data.Content, "ann (70 ₽): 2 ВК")

	// The item label button changes nothing, so nothing is edited.
	HandleComponent(s, press("1", "ann", controls.OrderData("ВК", 0), msg), o)
	assert.Equal(t, discordgo.InteractionResponseDeferredMessageUpdate, s.lastResponse().Type)

	HandleComponent(s, press("1", "ann", controls.DiscountData(0), msg), o)
	resp = s.lastResponse()
	assert.Equal(t, discordgo.InteractionResponseUpdateMessage, resp.Type)
	assert.Contains(t, resp.Data.Content, "ann (100 ₽): 2 ВК")
}

func TestDiscountWithoutOrdersKeepsText(t *testing.T) {
	ctx := context.Background()
	o := newOrders(t)
	s := &fakeSession{}
	HandleHinkali(ctx, s, command("1", "ann"), o)
	msg := &discordgo.Message{ID: "m1", ChannelID: "c1", Content: StartText}

	HandleComponent(s, press("1", "ann", controls.DiscountData(0), msg), o)
	resp := s.lastResponse()
	assert.Equal(t, discordgo.InteractionResponseUpdateMessage, resp.Type)
	assert.Equal(t, StartText, resp.Data.Content)
	discount := resp.Data.Components[4].(discordgo.ActionsRow).Components[0].(discordgo.Button)
	assert.Equal(t, "❌ Скидки нет", discount.Label)
	assert.Equal(t, controls.DiscountData(30), discount.CustomID)
}

func TestComponentWithoutSession(t *testing.T) {
	o := newOrders(t)
	s := &fakeSession{}
	HandleComponent(s, press("1", "ann", controls.OrderData("ВК", 1), &discordgo.Message{ID: "old", ChannelID: "c1"}), o)
	resp := s.lastResponse()
	assert.Equal(t, notOpenText, resp.Data.Content)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, resp.Data.Flags)
}

func TestOrganizerWithoutOrders(t *testing.T) {
	ctx := context.Background()
	o := newOrders(t)
	s := &fakeSession{}
	HandleHinkali(ctx, s, command("1", "ann"), o)

	HandleOrganizer(ctx, s, command("1", "ann"), o)
	assert.Equal(t, noOrdersText, s.lastResponse().Data.Content)
	assert.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.deleted == 1
	}, time.Second, 5*time.Millisecond)
}

func TestFullFlow(t *testing.T) {
	ctx := context.Background()
	o := newOrders(t)
	s := &fakeSession{}
	HandleHinkali(ctx, s, command("1", "ann"), o)
	orderMsg := &discordgo.Message{ID: "m1", ChannelID: "c1", Content: StartText}
	HandleComponent(s, press("1", "ann", controls.OrderData("ВК", 1), orderMsg), o)
	HandleComponent(s, press("2", "ben", controls.OrderData("ЖК", 1), orderMsg), o)

	HandleOrganizer(ctx, s, command("1", "ann"), o)
	org := o.ctl.Snapshot().Organizer
	require.NotNil(t, org)
	assert.Equal(t, organizerText+"<@"+org.ID+">", s.lastResponse().Data.Content)
	require.NotEmpty(t, s.edits)
	assert.Contains(t, *s.edits[len(s.edits)-1].Content, "Организатор: "+org.Name)

	HandlePay(ctx, s, command("1", "ann"), o)
	require.Len(t, s.sent, 2)
	assert.Contains(t, s.sent[1].Content, "Оплата:")
	payMsg := &discordgo.Message{ID: "m2", ChannelID: "c1", Content: s.sent[1].Content}

	HandlePay(ctx, s, command("2", "ben"), o)
	assert.Equal(t, paymentsOpenText, s.lastResponse().Data.Content)

	other := "1"
	if org.ID == "1" {
		other = "2"
	}
	HandleComponent(s, press(other, "x", controls.PaymentData(order.StatusPaid), payMsg), o)
	assert.Contains(t, s.lastResponse().Data.Content, "✅")

	HandleFinish(ctx, s, command(other, "x"), o)
	assert.Equal(t, notOrganizerText, s.lastResponse().Data.Content)

	HandleFinish(ctx, s, command(org.ID, org.Name), o)
	assert.Equal(t, arrivedText+"<@1>, <@2>", s.lastResponse().Data.Content)
	assert.False(t, o.ctl.Snapshot().Open)

	last := s.edits[len(s.edits)-2:]
	for _, e := range last {
		assert.Empty(t, e.Components)
	}
}

func TestForgedItemIsAcknowledged(t *testing.T) {
	ctx := context.Background()
	o := newOrders(t)
	s := &fakeSession{}
	HandleHinkali(ctx, s, command("1", "ann"), o)
	msg := &discordgo.Message{ID: "m1", ChannelID: "c1", Content: StartText}

	HandleComponent(s, press("1", "ann", "hin:Pizza:1000", msg), o)
	assert.Equal(t, discordgo.InteractionResponseDeferredMessageUpdate, s.lastResponse().Type)
	assert.False(t, o.ctl.Snapshot().HasOrders())
}

func TestConcurrentPayKeepsOneMessage(t *testing.T) {
	ctx := context.Background()
	o := newOrders(t)
	s := &fakeSession{}
	HandleHinkali(ctx, s, command("1", "ann"), o)
	HandleComponent(s, press("1", "ann", controls.OrderData("ВК", 1), &discordgo.Message{ID: "m1", ChannelID: "c1"}), o)

	s.afterSend = func(data *discordgo.MessageSend) {
		if strings.HasPrefix(data.Content, "Оплата:") {
			require.NoError(t, o.ctl.AttachPaymentMessage(order.MessageRef{ChatID: "c1", MessageID: "winner"}))
		}
	}
	HandlePay(ctx, s, command("2", "ben"), o)

	assert.Equal(t, "winner", o.ctl.Snapshot().PaymentMessage.MessageID)
	assert.Equal(t, []string{"m2"}, s.removed)
	assert.Equal(t, paymentsOpenText, s.lastResponse().Data.Content)
}
