package order

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	NothingOrdered = "Ещё ничего не заказано"
	currency       = "₽"
)

// RenderOrder renders the running order of a session.
func RenderOrder(s Session, catalog *Catalog) string {
	if s.Ledger == nil || s.Ledger.Len() == 0 {
		return NothingOrdered
	}
	lines := []string{"Заказ:"}
	total := decimal.Zero
	for _, p := range s.Ledger.Participants() {
		cost := s.Ledger.TotalCost(p.ID, s.Discount.Percent, catalog)
		total = total.Add(cost)
		lines = append(lines, fmt.Sprintf("%s (%s %s): %s", p.Name, FormatMoney(cost), currency,
			formatItems(s.Ledger.Items(p.ID), catalog)))
	}
	lines = append(lines, "", "Всего заказ: "+formatItems(s.Ledger.AggregateByItemType(), catalog))
	lines = append(lines, fmt.Sprintf("Итого: %s %s", FormatMoney(total), currency))
	if s.Organizer != nil {
		lines = append(lines, "Организатор: "+s.Organizer.Name)
	}
	return strings.Join(lines, "\n")
}

// RenderPayments renders who has paid. The organizer is listed without a mark.
func RenderPayments(s Session) string {
	if s.Ledger == nil || s.Ledger.Len() == 0 {
		return NothingOrdered
	}
	report := s.Payments.Report(s.Ledger.Participants(), organizerID(s))
	lines := []string{"Оплата:"}
	if report.Organizer != nil {
		lines = append(lines, "Организатор: "+report.Organizer.Name)
	}
	for _, l := range report.Lines {
		mark := "❌"
		if l.Paid {
			mark = "✅"
		}
		lines = append(lines, mark+" "+l.Participant.Name)
	}
	return strings.Join(lines, "\n")
}

// FormatMoney drops trailing zeros: 108.50 -> "108.5", 70.00 -> "70".
func FormatMoney(d decimal.Decimal) string {
	return d.String()
}

// formatItems renders "2 ВК, 1 ЖК" in catalog order, skipping zero counts.
func formatItems(items map[ItemType]int, catalog *Catalog) string {
	var parts []string
	for _, t := range catalog.Types() {
		if qty := items[t]; qty > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", qty, t))
		}
	}
	// Items outside the catalog still show up, after the known ones.
	var unknown []string
	for t, qty := range items {
		if !catalog.Has(t) && qty > 0 {
			unknown = append(unknown, string(t))
		}
	}
	sort.Strings(unknown)
	for _, t := range unknown {
		parts = append(parts, fmt.Sprintf("%d %s", items[ItemType(t)], t))
	}
	return strings.Join(parts, ", ")
}

func organizerID(s Session) string {
	if s.Organizer == nil {
		return ""
	}
	return s.Organizer.ID
}
