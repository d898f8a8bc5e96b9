package order

import "github.com/shopspring/decimal"

type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OrderLedger holds positive per-item quantities for every participant.
// A participant either has at least one positive entry or is absent.
type OrderLedger struct {
	names  map[string]string
	orders map[string]map[ItemType]int
	seq    []string // first-order order, for stable reports
}

func NewOrderLedger() *OrderLedger {
	return &OrderLedger{
		names:  make(map[string]string),
		orders: make(map[string]map[ItemType]int),
	}
}

// ApplyDelta adds delta to the participant's quantity of item and prunes the
// entry (and the participant) when nothing positive remains. It returns the
// participant's new total quantity and whether the participant was removed.
func (l *OrderLedger) ApplyDelta(p Participant, item ItemType, delta int) (int, bool) {
	if _, ok := l.names[p.ID]; !ok {
		l.names[p.ID] = p.Name
		l.orders[p.ID] = make(map[ItemType]int)
		l.seq = append(l.seq, p.ID)
	}
	items := l.orders[p.ID]
	qty := items[item] + delta
	if qty <= 0 {
		delete(items, item)
	} else {
		items[item] = qty
	}
	if len(items) == 0 {
		l.remove(p.ID)
		return 0, true
	}
	total := 0
	for _, q := range items {
		total += q
	}
	return total, false
}

func (l *OrderLedger) remove(id string) {
	delete(l.orders, id)
	delete(l.names, id)
	for i, v := range l.seq {
		if v == id {
			l.seq = append(l.seq[:i], l.seq[i+1:]...)
			break
		}
	}
}

func (l *OrderLedger) Len() int { return len(l.orders) }

func (l *OrderLedger) Has(id string) bool {
	_, ok := l.orders[id]
	return ok
}

func (l *OrderLedger) Quantity(id string, item ItemType) int {
	return l.orders[id][item]
}

func (l *OrderLedger) Name(id string) string { return l.names[id] }

// Participants returns participants in the order they first ordered.
func (l *OrderLedger) Participants() []Participant {
	out := make([]Participant, 0, len(l.seq))
	for _, id := range l.seq {
		out = append(out, Participant{ID: id, Name: l.names[id]})
	}
	return out
}

// IDs returns participant ids in first-order order.
func (l *OrderLedger) IDs() []string {
	return append([]string(nil), l.seq...)
}

// Items returns a copy of the participant's item map.
func (l *OrderLedger) Items(id string) map[ItemType]int {
	src := l.orders[id]
	if src == nil {
		return nil
	}
	out := make(map[ItemType]int, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// TotalCost is sum(qty*price) * (100-discount) / 100 for one participant.
func (l *OrderLedger) TotalCost(id string, discount int, catalog *Catalog) decimal.Decimal {
	sum := decimal.Zero
	for item, qty := range l.orders[id] {
		sum = sum.Add(catalog.Price(item).Mul(decimal.NewFromInt(int64(qty))))
	}
	return applyDiscount(sum, discount)
}

func applyDiscount(sum decimal.Decimal, discount int) decimal.Decimal {
	factor := decimal.NewFromInt(int64(100 - discount))
	return sum.Mul(factor).Div(decimal.NewFromInt(100))
}

// AggregateByItemType sums quantities per item across all participants.
func (l *OrderLedger) AggregateByItemType() map[ItemType]int {
	out := make(map[ItemType]int)
	for _, items := range l.orders {
		for item, qty := range items {
			out[item] += qty
		}
	}
	return out
}

// Clone returns a deep copy safe to read without the controller lock.
func (l *OrderLedger) Clone() *OrderLedger {
	c := NewOrderLedger()
	for id, name := range l.names {
		c.names[id] = name
	}
	for id := range l.orders {
		c.orders[id] = l.Items(id)
	}
	c.seq = append(c.seq, l.seq...)
	return c
}
