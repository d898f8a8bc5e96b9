package order

import "time"

// DefaultDiscountPercent is the weekday lunch discount of the dumpling place.
const DefaultDiscountPercent = 30

// DiscountPolicy is the chat-wide percentage taken off every order.
type DiscountPolicy struct {
	Percent int
	value   int
}

func NewDiscountPolicy(value int) DiscountPolicy {
	return DiscountPolicy{value: value}
}

// DefaultForWeekday returns value on Monday through Thursday and 0 otherwise.
func DefaultForWeekday(date time.Time, value int) int {
	switch date.Weekday() {
	case time.Monday, time.Tuesday, time.Wednesday, time.Thursday:
		return value
	}
	return 0
}

func (d *DiscountPolicy) Reset(now time.Time) {
	d.Percent = DefaultForWeekday(now, d.value)
}

// Set accepts any integer; the keyboards only ever offer 0 and the configured value.
func (d *DiscountPolicy) Set(percent int) {
	d.Percent = percent
}

// Toggle flips between no discount and the configured value.
func (d *DiscountPolicy) Toggle() {
	if d.Percent != 0 {
		d.Percent = 0
		return
	}
	d.Percent = d.value
}

// Next is the value a toggle control should switch to.
func (d DiscountPolicy) Next() int {
	d.Toggle()
	return d.Percent
}
