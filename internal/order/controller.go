package order

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LastOrganizerStore remembers who organized the previous session.
type LastOrganizerStore interface {
	LastOrganizer(ctx context.Context) (string, bool, error)
	SetLastOrganizer(ctx context.Context, userID string) error
}

// Controller owns the one active session. Every mutation runs under mu;
// rendering and storage calls happen outside of it.
type Controller struct {
	mu   sync.Mutex
	sess Session
	rng  *rand.Rand

	catalog       *Catalog
	discountValue int
	store         LastOrganizerStore
	now           func() time.Time
}

type Option func(*Controller)

func WithCatalog(c *Catalog) Option { return func(ctl *Controller) { ctl.catalog = c } }

func WithClock(now func() time.Time) Option { return func(ctl *Controller) { ctl.now = now } }

func WithRand(rng *rand.Rand) Option { return func(ctl *Controller) { ctl.rng = rng } }

// WithDiscount sets the nonzero weekday discount offered by the toggle.
func WithDiscount(percent int) Option {
	return func(ctl *Controller) { ctl.discountValue = percent }
}

func NewController(store LastOrganizerStore, opts ...Option) *Controller {
	c := &Controller{
		catalog:       DefaultCatalog(),
		discountValue: DefaultDiscountPercent,
		store:         store,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	c.sess = closedSession(c.discountValue)
	return c
}

func (c *Controller) Catalog() *Catalog { return c.catalog }

// Open starts a session. When one is already running it returns its view
// together with ErrAlreadyOpen.
func (c *Controller) Open() (View, error) {
	c.mu.Lock()
	if c.sess.Open {
		snap := c.sess.clone()
		c.mu.Unlock()
		return c.render(snap), ErrAlreadyOpen
	}
	now := c.now()
	c.sess = closedSession(c.discountValue)
	c.sess.ID = uuid.NewString()
	c.sess.Open = true
	c.sess.OpenedAt = now
	c.sess.Discount.Reset(now)
	snap := c.sess.clone()
	c.mu.Unlock()
	return c.render(snap), nil
}

func (c *Controller) AttachOrderMessage(ref MessageRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.sess.Open {
		return ErrInvalidState
	}
	c.sess.OrderMessage = &ref
	return nil
}

func (c *Controller) AttachPaymentMessage(ref MessageRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.sess.Open || !c.sess.PaymentsStarted {
		return ErrInvalidState
	}
	if c.sess.PaymentMessage != nil {
		return ErrPaymentMessageAttached
	}
	c.sess.PaymentMessage = &ref
	return nil
}

// ApplyOrderDelta changes one participant's quantity. An organizer whose
// last order is removed stops being the organizer.
func (c *Controller) ApplyOrderDelta(p Participant, item ItemType, delta int) (View, error) {
	if !c.catalog.Has(item) {
		return View{}, fmt.Errorf("%w: %q", ErrUnknownItem, item)
	}
	return c.mutate(true, func(s *Session) error {
		_, removed := s.Ledger.ApplyDelta(p, item, delta)
		if removed && s.Organizer != nil && s.Organizer.ID == p.ID {
			s.Organizer = nil
		}
		return nil
	})
}

// SetDiscount works in either state; it only shows up in reports while open.
func (c *Controller) SetDiscount(percent int) (View, error) {
	return c.mutate(false, func(s *Session) error {
		s.Discount.Set(percent)
		return nil
	})
}

func (c *Controller) StartPaymentCollection() (View, error) {
	return c.mutate(true, func(s *Session) error {
		s.PaymentsStarted = true
		return nil
	})
}

func (c *Controller) MarkPayment(userID string, status PaymentStatus) (View, error) {
	return c.mutate(true, func(s *Session) error {
		if !s.PaymentsStarted {
			return ErrPaymentsNotStarted
		}
		s.Payments.Mark(userID, status)
		return nil
	})
}

// ChooseOrganizer assigns a random participant, avoiding whoever organized
// the previous session when possible.
func (c *Controller) ChooseOrganizer(ctx context.Context) (View, error) {
	var last string
	if c.store != nil {
		id, ok, err := c.store.LastOrganizer(ctx)
		if err != nil {
			return View{}, fmt.Errorf("load last organizer: %w", err)
		}
		if ok {
			last = id
		}
	}
	return c.mutate(true, func(s *Session) error {
		if s.Ledger.Len() == 0 {
			return ErrNoOrders
		}
		id, err := ChooseOrganizer(s.Ledger.IDs(), last, c.rng)
		if err != nil {
			return err
		}
		s.Organizer = &Participant{ID: id, Name: s.Ledger.Name(id)}
		return nil
	})
}

// Finalize closes the session. With an organizer assigned only that
// organizer, still holding an order, may do it.
func (c *Controller) Finalize(ctx context.Context, requesterID string) (Final, error) {
	c.mu.Lock()
	if !c.sess.Open {
		c.mu.Unlock()
		return Final{}, ErrInvalidState
	}
	if org := c.sess.Organizer; org != nil {
		if requesterID != org.ID || !c.sess.Ledger.Has(requesterID) {
			c.mu.Unlock()
			return Final{}, ErrUnauthorized
		}
	}
	snap := c.sess.clone()
	snap.Open = false
	c.sess = closedSession(c.discountValue)
	c.mu.Unlock()

	final := Final{View: c.render(snap), Participants: snap.Ledger.Participants()}
	if snap.Organizer != nil && c.store != nil {
		if err := c.store.SetLastOrganizer(ctx, snap.Organizer.ID); err != nil {
			return final, fmt.Errorf("save last organizer: %w", err)
		}
	}
	return final, nil
}

// Snapshot returns the current view without changing anything.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	snap := c.sess.clone()
	c.mu.Unlock()
	return c.render(snap)
}

func (c *Controller) mutate(requireOpen bool, fn func(*Session) error) (View, error) {
	c.mu.Lock()
	if requireOpen && !c.sess.Open {
		c.mu.Unlock()
		return View{}, ErrInvalidState
	}
	err := fn(&c.sess)
	snap := c.sess.clone()
	c.mu.Unlock()
	return c.render(snap), err
}

func (c *Controller) render(s Session) View {
	v := View{Session: s}
	if !s.Open && s.ID == "" {
		return v
	}
	v.OrderReport = RenderOrder(s, c.catalog)
	if s.PaymentsStarted {
		v.PaymentReport = RenderPayments(s)
	}
	return v
}
