package order

type PaymentStatus string

const (
	StatusPaid   PaymentStatus = "paid"
	StatusUnpaid PaymentStatus = "unpaid"
)

// PaymentLedger is the set of participants who said they paid.
type PaymentLedger struct {
	paid map[string]struct{}
}

func NewPaymentLedger() *PaymentLedger {
	return &PaymentLedger{paid: make(map[string]struct{})}
}

func (p *PaymentLedger) MarkPaid(id string) {
	p.paid[id] = struct{}{}
}

func (p *PaymentLedger) MarkUnpaid(id string) {
	delete(p.paid, id)
}

func (p *PaymentLedger) Mark(id string, status PaymentStatus) {
	if status == StatusPaid {
		p.MarkPaid(id)
		return
	}
	p.MarkUnpaid(id)
}

func (p *PaymentLedger) IsPaid(id string) bool {
	_, ok := p.paid[id]
	return ok
}

type PaymentLine struct {
	Participant Participant
	Paid        bool
}

type PaymentReport struct {
	Organizer *Participant
	Lines     []PaymentLine
}

// Report lists every participant except the organizer with a paid mark.
// The organizer collects the money, so it is returned separately.
func (p *PaymentLedger) Report(participants []Participant, organizerID string) PaymentReport {
	var r PaymentReport
	for _, part := range participants {
		if organizerID != "" && part.ID == organizerID {
			org := part
			r.Organizer = &org
			continue
		}
		r.Lines = append(r.Lines, PaymentLine{Participant: part, Paid: p.IsPaid(part.ID)})
	}
	return r
}

func (p *PaymentLedger) Clone() *PaymentLedger {
	c := NewPaymentLedger()
	for id := range p.paid {
		c.paid[id] = struct{}{}
	}
	return c
}

// IDs returns the paid ids in no particular order.
func (p *PaymentLedger) IDs() []string {
	out := make([]string, 0, len(p.paid))
	for id := range p.paid {
		out = append(out, id)
	}
	return out
}
