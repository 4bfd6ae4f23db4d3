package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/plug-checkout/internal/apperr"
	"github.com/rl1809/plug-checkout/internal/core/domain"
)

// Session is one checkout wizard. Exactly one step is current at any time.
type Session struct {
	ID string

	mu               sync.Mutex
	step             domain.Step
	cart             *domain.Cart
	deliveryForm     domain.DeliveryForm
	delivery         *domain.DeliveryDetails
	deliveryErrors   domain.FieldErrors
	tipPercent       int
	methodID         string
	promoCode        string
	processing       bool
	cancelProcessing context.CancelFunc
	order            *domain.Order
	tracker          *domain.Tracker
	createdAt        time.Time
	updatedAt        time.Time
}

// SessionView is a consistent copy of a session taken under its lock.
type SessionView struct {
	ID              string
	Step            domain.Step
	Lines           []domain.CartLine
	DeliveryForm    domain.DeliveryForm
	Delivery        *domain.DeliveryDetails
	DeliveryErrors  domain.FieldErrors
	TipPercent      int
	PaymentMethodID string
	PromoCode       string
	Processing      bool
	Pricing         domain.PricingSummary
	Order           *domain.Order
	Tracking        *domain.TrackingSnapshot
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:         id,
		step:       domain.StepCart,
		cart:       domain.NewCart(),
		tipPercent: domain.DefaultTipPercent,
		deliveryForm: domain.DeliveryForm{
			RequestedTime: domain.RequestedTimeASAP,
		},
		createdAt: now,
		updatedAt: now,
	}
}

// Tick advances the delivery tracker. It is called by the Scheduler.
func (s *Session) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tracker == nil {
		return true
	}
	s.tracker.Advance()
	return s.tracker.Done()
}

// transition must be called with mu held.
func (s *Session) transition(ev domain.WizardEvent) error {
	next, ok := domain.NextStep(s.step, ev)
	if !ok {
		return fmt.Errorf("%s from %s: %w", ev, s.step, apperr.ErrInvalidTransition)
	}
	s.step = next
	return nil
}

// requireStep must be called with mu held.
func (s *Session) requireStep(action string, steps ...domain.Step) error {
	for _, st := range steps {
		if s.step == st {
			return nil
		}
	}
	return fmt.Errorf("%s in step %s: %w", action, s.step, apperr.ErrInvalidTransition)
}

// discount must be called with mu held.
func (s *Session) discount(promo domain.PromoRule) decimal.Decimal {
	if s.promoCode == "" {
		return decimal.Zero
	}
	return promo.Discount(s.cart.Subtotal())
}

// view must be called with mu held.
func (s *Session) view(cfg CheckoutConfig) SessionView {
	lines := s.cart.Lines()
	v := SessionView{
		ID:              s.ID,
		Step:            s.step,
		Lines:           lines,
		DeliveryForm:    s.deliveryForm,
		TipPercent:      s.tipPercent,
		PaymentMethodID: s.methodID,
		PromoCode:       s.promoCode,
		Processing:      s.processing,
		Pricing:         domain.Summarize(lines, cfg.Fees, s.tipPercent, s.discount(cfg.Promo)),
		CreatedAt:       s.createdAt,
		UpdatedAt:       s.updatedAt,
	}
	if s.delivery != nil {
		d := *s.delivery
		v.Delivery = &d
	}
	if len(s.deliveryErrors) > 0 {
		v.DeliveryErrors = make(domain.FieldErrors, len(s.deliveryErrors))
		for k, msg := range s.deliveryErrors {
			v.DeliveryErrors[k] = msg
		}
	}
	if s.order != nil {
		o := *s.order
		v.Order = &o
		// The cart is emptied once the order is placed; price the order itself.
		if s.step == domain.StepTracking {
			v.Pricing = o.Pricing
		}
	}
	if s.tracker != nil {
		snap := s.tracker.Snapshot()
		v.Tracking = &snap
	}
	return v
}
