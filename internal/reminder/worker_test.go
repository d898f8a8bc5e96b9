package reminder

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/susu3304/hinkalibot/internal/infra/memory"
	"github.com/susu3304/hinkalibot/internal/order"
)

type sent struct {
	chatID string
	text   string
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []sent
	errs []error
}

func (f *fakeSender) SendText(_ context.Context, chatID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return err
		}
	}
	f.msgs = append(f.msgs, sent{chatID: chatID, text: text})
	return nil
}

func (f *fakeSender) Mention(p order.Participant) string { return "@" + p.Name }

func newController(t *testing.T) *order.Controller {
	t.Helper()
	return order.NewController(memory.NewStateRepo(), order.WithRand(rand.New(rand.NewSource(1))))
}

func TestTickRemindsUnpaid(t *testing.T) {
	ctl := newController(t)
	ctl.Open()
	ctl.ApplyOrderDelta(order.Participant{ID: "1", Name: "Ann"}, "ВК", 1)
	ctl.ApplyOrderDelta(order.Participant{ID: "2", Name: "Ben"}, "ВК", 1)
	ctl.StartPaymentCollection()
	require.NoError(t, ctl.AttachPaymentMessage(order.MessageRef{ChatID: "chat", MessageID: "9"}))
	ctl.MarkPayment("1", order.StatusPaid)

	sender := &fakeSender{}
	w := NewWorker(ctl, sender, time.Minute, zap.NewNop())
	w.Tick(context.Background())

	require.Len(t, sender.msgs, 1)
	assert.Equal(t, "chat", sender.msgs[0].chatID)
	assert.Contains(t, sender.msgs[0].text, "Ещё не оплатили: @Ben")
}

func TestTickSilentWhenNothingToRemind(t *testing.T) {
	ctl := newController(t)
	sender := &fakeSender{}
	w := NewWorker(ctl, sender, time.Minute, zap.NewNop())

	w.Tick(context.Background()) // closed
	ctl.Open()
	ctl.ApplyOrderDelta(order.Participant{ID: "1", Name: "Ann"}, "ВК", 1)
	w.Tick(context.Background()) // collection not started

	ctl.StartPaymentCollection()
	require.NoError(t, ctl.AttachPaymentMessage(order.MessageRef{ChatID: "chat", MessageID: "9"}))
	ctl.MarkPayment("1", order.StatusPaid)
	w.Tick(context.Background()) // everyone paid

	assert.Empty(t, sender.msgs)
}

func TestTickRetriesTimeouts(t *testing.T) {
	ctl := newController(t)
	ctl.Open()
	ctl.ApplyOrderDelta(order.Participant{ID: "1", Name: "Ann"}, "ВК", 1)
	ctl.StartPaymentCollection()
	require.NoError(t, ctl.AttachPaymentMessage(order.MessageRef{ChatID: "chat", MessageID: "9"}))

	sender := &fakeSender{errs: []error{context.DeadlineExceeded}}
	NewWorker(ctl, sender, time.Minute, zap.NewNop()).Tick(context.Background())
	assert.Len(t, sender.msgs, 1)

	sender = &fakeSender{errs: []error{errors.New("forbidden")}}
	NewWorker(ctl, sender, time.Minute, zap.NewNop()).Tick(context.Background())
	assert.Empty(t, sender.msgs)
}

func TestStartDisabled(t *testing.T) {
	w := NewWorker(newController(t), &fakeSender{}, 0, zap.NewNop())
	w.Start()
	w.Stop()
}
