// Package controls encodes the button payloads shared by the chat adapters.
//
// Payload formats:
//
//	hin:<item>:<delta>   change a quantity (delta 0 is the item label button)
//	discount:<percent>   set the discount to percent
//	pay:paid|unpaid      acknowledge or retract a payment
package controls

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/susu3304/hinkalibot/internal/order"
)

type Kind int

const (
	KindOrder Kind = iota + 1
	KindDiscount
	KindPayment
)

var ErrMalformed = errors.New("controls: malformed payload")

// Action is a decoded button press.
type Action struct {
	Kind    Kind
	Item    order.ItemType
	Delta   int
	Percent int
	Status  order.PaymentStatus
}

func OrderData(item order.ItemType, delta int) string {
	return fmt.Sprintf("hin:%s:%d", item, delta)
}

func DiscountData(percent int) string {
	return fmt.Sprintf("discount:%d", percent)
}

func PaymentData(status order.PaymentStatus) string {
	return "pay:" + string(status)
}

func Parse(data string) (Action, error) {
	parts := strings.Split(data, ":")
	switch parts[0] {
	case "hin":
		if len(parts) != 3 || parts[1] == "" {
			return Action{}, fmt.Errorf("%w: %q", ErrMalformed, data)
		}
		delta, err := strconv.Atoi(parts[2])
		if err != nil {
			return Action{}, fmt.Errorf("%w: %q", ErrMalformed, data)
		}
		return Action{Kind: KindOrder, Item: order.ItemType(parts[1]), Delta: delta}, nil
	case "discount":
		if len(parts) != 2 {
			return Action{}, fmt.Errorf("%w: %q", ErrMalformed, data)
		}
		percent, err := strconv.Atoi(parts[1])
		if err != nil {
			return Action{}, fmt.Errorf("%w: %q", ErrMalformed, data)
		}
		return Action{Kind: KindDiscount, Percent: percent}, nil
	case "pay":
		if len(parts) != 2 {
			return Action{}, fmt.Errorf("%w: %q", ErrMalformed, data)
		}
		status := order.PaymentStatus(parts[1])
		if status != order.StatusPaid && status != order.StatusUnpaid {
			return Action{}, fmt.Errorf("%w: %q", ErrMalformed, data)
		}
		return Action{Kind: KindPayment, Status: status}, nil
	}
	return Action{}, fmt.Errorf("%w: %q", ErrMalformed, data)
}

// StepLabel renders a quantity button, e.g. "+2".
func StepLabel(delta int) string {
	return fmt.Sprintf("%+d", delta)
}

// DiscountLabel is the text of the discount toggle for the current state.
func DiscountLabel(d order.DiscountPolicy) string {
	if d.Percent != 0 {
		return fmt.Sprintf("✅ Скидка %d%%", d.Percent)
	}
	return "❌ Скидки нет"
}

const (
	PaidLabel   = "✅ Оплатил"
	UnpaidLabel = "❌ Не оплатил"
)

// Signature identifies everything a rendered order surface shows, so an
// unchanged report with a flipped discount button still counts as a change.
func Signature(text string, d order.DiscountPolicy) string {
	return text + "\x00" + strconv.Itoa(d.Percent)
}
