package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/susu3304/hinkalibot/internal/order"
)

type participantResponse struct {
	ID    string                 `json:"id"`
	Name  string                 `json:"name"`
	Items map[order.ItemType]int `json:"items"`
	Cost  decimal.Decimal        `json:"cost"`
	Paid  bool                   `json:"paid"`
}

type sessionResponse struct {
	Open            bool                   `json:"open"`
	SessionID       string                 `json:"session_id,omitempty"`
	OpenedAt        *time.Time             `json:"opened_at,omitempty"`
	Discount        int                    `json:"discount"`
	Participants    []participantResponse  `json:"participants"`
	Totals          map[order.ItemType]int `json:"totals"`
	Total           decimal.Decimal        `json:"total"`
	Organizer       *order.Participant     `json:"organizer,omitempty"`
	PaymentsStarted bool                   `json:"payments_started"`
	Paid            []string               `json:"paid"`
	OrderReport     string                 `json:"order_report,omitempty"`
	PaymentReport   string                 `json:"payment_report,omitempty"`
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	v := a.orders.Snapshot()
	catalog := a.orders.Catalog()

	resp := sessionResponse{
		Open:            v.Open,
		SessionID:       v.ID,
		Discount:        v.Discount.Percent,
		Participants:    []participantResponse{},
		Totals:          map[order.ItemType]int{},
		Total:           decimal.Zero,
		Organizer:       v.Organizer,
		PaymentsStarted: v.PaymentsStarted,
		Paid:            []string{},
		OrderReport:     v.OrderReport,
		PaymentReport:   v.PaymentReport,
	}
	if !v.OpenedAt.IsZero() {
		opened := v.OpenedAt
		resp.OpenedAt = &opened
	}
	if v.Ledger != nil {
		for _, p := range v.Ledger.Participants() {
			cost := v.Ledger.TotalCost(p.ID, v.Discount.Percent, catalog)
			resp.Total = resp.Total.Add(cost)
			resp.Participants = append(resp.Participants, participantResponse{
				ID:    p.ID,
				Name:  p.Name,
				Items: v.Ledger.Items(p.ID),
				Cost:  cost,
				Paid:  v.Payments != nil && v.Payments.IsPaid(p.ID),
			})
		}
		resp.Totals = v.Ledger.AggregateByItemType()
	}
	if v.Payments != nil {
		resp.Paid = append(resp.Paid, v.Payments.IDs()...)
		sort.Strings(resp.Paid)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		a.logger.Warn("encode session", zap.Error(err))
	}
}
