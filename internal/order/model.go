package order

import "time"

// MessageRef points at a message rendered by a transport. The core never
// interprets it.
type MessageRef struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
}

// Session is the single order-collection cycle from open to finalize.
type Session struct {
	ID              string
	Open            bool
	OpenedAt        time.Time
	Ledger          *OrderLedger
	Discount        DiscountPolicy
	Payments        *PaymentLedger
	PaymentsStarted bool
	Organizer       *Participant
	OrderMessage    *MessageRef
	PaymentMessage  *MessageRef
}

func closedSession(discountValue int) Session {
	return Session{
		Ledger:   NewOrderLedger(),
		Discount: NewDiscountPolicy(discountValue),
		Payments: NewPaymentLedger(),
	}
}

// clone deep-copies everything a renderer may read.
func (s Session) clone() Session {
	c := s
	c.Ledger = s.Ledger.Clone()
	c.Payments = s.Payments.Clone()
	if s.Organizer != nil {
		org := *s.Organizer
		c.Organizer = &org
	}
	if s.OrderMessage != nil {
		ref := *s.OrderMessage
		c.OrderMessage = &ref
	}
	if s.PaymentMessage != nil {
		ref := *s.PaymentMessage
		c.PaymentMessage = &ref
	}
	return c
}

// View is a rendered snapshot handed back to transports after every event.
type View struct {
	Session
	OrderReport   string
	PaymentReport string
}

func (v View) HasOrders() bool {
	return v.Ledger != nil && v.Ledger.Len() > 0
}

func (v View) OrganizerID() string {
	if v.Organizer == nil {
		return ""
	}
	return v.Organizer.ID
}

// Unpaid lists participants, excluding the organizer, who have not paid yet.
func (v View) Unpaid() []Participant {
	if v.Ledger == nil || v.Payments == nil {
		return nil
	}
	var out []Participant
	for _, line := range v.Payments.Report(v.Ledger.Participants(), v.OrganizerID()).Lines {
		if !line.Paid {
			out = append(out, line.Participant)
		}
	}
	return out
}

// Final is what a successful finalize leaves behind for the transport.
type Final struct {
	View
	Participants []Participant
}
