package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/plug-checkout/internal/apperr"
	"github.com/rl1809/plug-checkout/internal/core/domain"
	"github.com/rl1809/plug-checkout/internal/latency"
	"github.com/rl1809/plug-checkout/internal/port"
)

type CheckoutConfig struct {
	Fees            domain.FeeSchedule
	Promo           domain.PromoRule
	PaymentMethods  []domain.PaymentMethod
	ProcessingDelay time.Duration
	Tracking        domain.TrackingProfile
	QueueSize       int
}

func DefaultCheckoutConfig() CheckoutConfig {
	return CheckoutConfig{
		Fees:            domain.DefaultFeeSchedule(),
		Promo:           domain.DefaultPromoRule(),
		PaymentMethods:  domain.DefaultPaymentMethods(),
		ProcessingDelay: 2 * time.Second,
		Tracking:        domain.DeliveryProfile(),
		QueueSize:       1000,
	}
}

// CheckoutService owns every checkout wizard. Each session is guarded by its
// own mutex; the session map has a separate lock.
type CheckoutService struct {
	cfg       CheckoutConfig
	cache     port.CacheRepository
	scheduler *Scheduler
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session

	queueMu    sync.RWMutex
	queueOpen  bool
	orderQueue chan domain.Order
}

func NewCheckoutService(cfg CheckoutConfig, cache port.CacheRepository, scheduler *Scheduler, logger *zap.Logger) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	return &CheckoutService{
		cfg:        cfg,
		cache:      cache,
		scheduler:  scheduler,
		logger:     logger,
		now:        time.Now,
		sessions:   make(map[string]*Session),
		queueOpen:  true,
		orderQueue: make(chan domain.Order, cfg.QueueSize),
	}
}

func (s *CheckoutService) Config() CheckoutConfig { return s.cfg }

func (s *CheckoutService) OpenSession(ctx context.Context) (SessionView, error) {
	sess := newSession(uuid.NewString(), s.now())

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Info("checkout session opened", zap.String("session_id", sess.ID))

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view(s.cfg), nil
}

func (s *CheckoutService) Session(ctx context.Context, id string) (SessionView, error) {
	sess, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view(s.cfg), nil
}

// Sessions lists every session, oldest first. Only the dev tools endpoint uses it.
func (s *CheckoutService) Sessions(ctx context.Context) []SessionView {
	s.mu.RLock()
	all := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.mu.RUnlock()

	views := make([]SessionView, 0, len(all))
	for _, sess := range all {
		sess.mu.Lock()
		views = append(views, sess.view(s.cfg))
		sess.mu.Unlock()
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].CreatedAt.Equal(views[j].CreatedAt) {
			return views[i].ID < views[j].ID
		}
		return views[i].CreatedAt.Before(views[j].CreatedAt)
	})
	return views
}

func (s *CheckoutService) AddLine(ctx context.Context, id string, item domain.MenuItem, quantity int, options []domain.OptionChoice, addOns []domain.AddOn) (SessionView, error) {
	return s.mutate(id, func(sess *Session) error {
		if err := sess.requireStep("add line", domain.StepCart); err != nil {
			return err
		}
		sess.cart.AddLine(item, quantity, options, addOns)
		return nil
	})
}

// RequireCart fails unless the session exists and is on the cart step.
func (s *CheckoutService) RequireCart(ctx context.Context, id string) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.requireStep("add past items", domain.StepCart)
}

// AddPastItems puts previously ordered items into the cart, one of each.
func (s *CheckoutService) AddPastItems(ctx context.Context, id string, items []domain.PastItem) (SessionView, error) {
	return s.mutate(id, func(sess *Session) error {
		if err := sess.requireStep("add past items", domain.StepCart); err != nil {
			return err
		}
		for _, it := range items {
			sess.cart.AddLine(it.MenuItem(), 1, nil, nil)
		}
		return nil
	})
}

// UpdateQuantity clamps to 1. An unknown line id is a no-op.
func (s *CheckoutService) UpdateQuantity(ctx context.Context, id, lineID string, quantity int) (SessionView, error) {
	return s.mutate(id, func(sess *Session) error {
		if err := sess.requireStep("update quantity", domain.StepCart); err != nil {
			return err
		}
		sess.cart.UpdateQuantity(lineID, quantity)
		return nil
	})
}

func (s *CheckoutService) RemoveLine(ctx context.Context, id, lineID string) (SessionView, error) {
	return s.mutate(id, func(sess *Session) error {
		if err := sess.requireStep("remove line", domain.StepCart); err != nil {
			return err
		}
		sess.cart.RemoveLine(lineID)
		return nil
	})
}

func (s *CheckoutService) SetTip(ctx context.Context, id string, percent int) (SessionView, error) {
	return s.mutate(id, func(sess *Session) error {
		if err := sess.requireStep("set tip", domain.StepCart, domain.StepReview, domain.StepPayment); err != nil {
			return err
		}
		if !domain.ValidTipPercent(percent) {
			return apperr.NewValidation("tip_percent", fmt.Sprintf("Tip must be one of %v", domain.TipPercentages))
		}
		sess.tipPercent = percent
		return nil
	})
}

// Checkout leaves the cart step. The delivery form is pre-filled from the last
// submitted details, if any.
func (s *CheckoutService) Checkout(ctx context.Context, id string) (SessionView, error) {
	return s.mutate(id, func(sess *Session) error {
		if err := sess.requireStep("checkout", domain.StepCart); err != nil {
			return err
		}
		if sess.cart.IsEmpty() {
			return apperr.ErrEmptyCart
		}
		if err := sess.transition(domain.EventCheckout); err != nil {
			return err
		}
		if sess.delivery != nil {
			sess.deliveryForm = sess.delivery.Form()
		}
		sess.deliveryErrors = nil
		return nil
	})
}

// SubmitDelivery validates the form. On failure the session stays on the
// delivery step with the field errors recorded.
func (s *CheckoutService) SubmitDelivery(ctx context.Context, id string, form domain.DeliveryForm) (SessionView, error) {
	return s.mutate(id, func(sess *Session) error {
		if err := sess.requireStep("submit delivery", domain.StepDeliveryDetails); err != nil {
			return err
		}
		sess.deliveryForm = form

		details, errs := form.Details()
		if len(errs) > 0 {
			sess.deliveryErrors = errs
			return apperr.NewValidationFields(errs)
		}
		if err := sess.transition(domain.EventContinue); err != nil {
			return err
		}
		sess.delivery = &details
		sess.deliveryErrors = nil
		return nil
	})
}

func (s *CheckoutService) Edit(ctx context.Context, id string) (SessionView, error) {
	return s.mutate(id, func(sess *Session) error {
		if err := sess.transition(domain.EventEdit); err != nil {
			return err
		}
		if sess.delivery != nil {
			sess.deliveryForm = sess.delivery.Form()
		}
		return nil
	})
}

func (s *CheckoutService) ContinueReview(ctx context.Context, id string) (SessionView, error) {
	return s.mutate(id, func(sess *Session) error {
		if err := sess.requireStep("continue review", domain.StepReview); err != nil {
			return err
		}
		return sess.transition(domain.EventContinue)
	})
}

func (s *CheckoutService) Review(ctx context.Context, id string) (domain.OrderReview, error) {
	sess, err := s.get(id)
	if err != nil {
		return domain.OrderReview{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.requireStep("review", domain.StepReview, domain.StepPayment); err != nil {
		return domain.OrderReview{}, err
	}
	return domain.Review(sess.cart.Lines(), *sess.delivery, s.cfg.Fees, sess.tipPercent, sess.discount(s.cfg.Promo)), nil
}

func (s *CheckoutService) SelectMethod(ctx context.Context, id, methodID string) (SessionView, error) {
	return s.mutate(id, func(sess *Session) error {
		if err := sess.requireStep("select payment method", domain.StepPayment); err != nil {
			return err
		}
		if _, ok := domain.FindPaymentMethod(s.cfg.PaymentMethods, methodID); !ok {
			return apperr.NewValidation(domain.FieldPaymentMethod, domain.ErrMsgPaymentMethodUnknown)
		}
		sess.methodID = methodID
		return nil
	})
}

// ApplyPromo is idempotent. An invalid code leaves any applied code in place.
func (s *CheckoutService) ApplyPromo(ctx context.Context, id, code string) (SessionView, error) {
	return s.mutate(id, func(sess *Session) error {
		if err := sess.requireStep("apply promo", domain.StepPayment); err != nil {
			return err
		}
		if !s.cfg.Promo.Match(code) {
			return apperr.NewValidation(domain.FieldPromoCode, domain.ErrMsgPromoInvalid)
		}
		sess.promoCode = strings.ToUpper(strings.TrimSpace(code))
		return nil
	})
}

// PlaceOrder simulates payment processing and enters tracking. requestID, when
// set, makes any repeat of the same request fail with apperr.ErrDuplicateRequest,
// so clients send a fresh id per attempt.
// Closing the session while processing cancels the order.
func (s *CheckoutService) PlaceOrder(ctx context.Context, id, requestID string) (SessionView, error) {
	sess, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}

	if requestID != "" && s.cache != nil {
		idempotencyKey := fmt.Sprintf("checkout:place:%s:%s", id, requestID)
		ok, err := s.cache.SetIdempotency(ctx, idempotencyKey)
		if err != nil {
			return SessionView{}, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return SessionView{}, apperr.ErrDuplicateRequest
		}
	}

	sess.mu.Lock()
	if err := sess.requireStep("place order", domain.StepPayment); err != nil {
		sess.mu.Unlock()
		return SessionView{}, err
	}
	if sess.processing {
		sess.mu.Unlock()
		return SessionView{}, apperr.ErrOrderProcessing
	}
	if sess.methodID == "" {
		sess.mu.Unlock()
		return SessionView{}, apperr.NewValidation(domain.FieldPaymentMethod, domain.ErrMsgPaymentMethodRequired)
	}

	procCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	sess.processing = true
	sess.cancelProcessing = cancel
	sess.mu.Unlock()

	s.logger.Info("processing payment", zap.String("session_id", id), zap.Duration("delay", s.cfg.ProcessingDelay))
	waitErr := latency.SleepOrDone(procCtx, s.cfg.ProcessingDelay)

	sess.mu.Lock()
	sess.processing = false
	sess.cancelProcessing = nil

	if sess.step != domain.StepPayment {
		sess.mu.Unlock()
		s.logger.Info("order canceled during processing", zap.String("session_id", id))
		return SessionView{}, fmt.Errorf("order canceled: %w", apperr.ErrInvalidTransition)
	}
	if waitErr != nil {
		sess.mu.Unlock()
		return SessionView{}, fmt.Errorf("process payment: %w", waitErr)
	}

	now := s.now()
	lines := sess.cart.Lines()
	order := domain.Order{
		ID:              uuid.NewString(),
		SessionID:       id,
		Lines:           lines,
		Delivery:        *sess.delivery,
		Pricing:         domain.Summarize(lines, s.cfg.Fees, sess.tipPercent, sess.discount(s.cfg.Promo)),
		PaymentMethodID: sess.methodID,
		PromoCode:       sess.promoCode,
		Status:          domain.OrderStatusConfirmed,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := sess.transition(domain.EventPlaceOrder); err != nil {
		sess.mu.Unlock()
		return SessionView{}, err
	}
	sess.order = &order
	sess.cart.Clear()
	sess.tracker = domain.NewTracker(s.cfg.Tracking)
	sess.updatedAt = now
	if s.scheduler != nil {
		s.scheduler.Register(trackingJobID(id), s.cfg.Tracking.Interval, sess)
	}
	view := sess.view(s.cfg)
	sess.mu.Unlock()

	s.logger.Info("order placed",
		zap.String("session_id", id),
		zap.String("order_id", order.ID),
		zap.String("total", order.Pricing.Total.StringFixed(2)),
	)
	s.enqueue(ctx, order)

	return view, nil
}

// Close is accepted from every open step. The cart survives unless an order
// was placed; in-flight processing and tracking stop.
func (s *CheckoutService) Close(ctx context.Context, id string) (SessionView, error) {
	return s.mutate(id, func(sess *Session) error {
		if err := sess.transition(domain.EventClose); err != nil {
			return err
		}
		if sess.cancelProcessing != nil {
			sess.cancelProcessing()
		}
		if sess.tracker != nil {
			if s.scheduler != nil {
				s.scheduler.Unregister(trackingJobID(sess.ID))
			}
			sess.tracker = nil
		}
		return nil
	})
}

// Reopen shows the wizard again on the cart step. After a placed order the
// delivery and payment choices start over.
func (s *CheckoutService) Reopen(ctx context.Context, id string) (SessionView, error) {
	return s.mutate(id, func(sess *Session) error {
		if err := sess.transition(domain.EventOpen); err != nil {
			return err
		}
		if sess.order != nil {
			sess.order = nil
			sess.delivery = nil
			sess.deliveryForm = domain.DeliveryForm{RequestedTime: domain.RequestedTimeASAP}
			sess.methodID = ""
			sess.promoCode = ""
			sess.tipPercent = domain.DefaultTipPercent
		}
		sess.deliveryErrors = nil
		return nil
	})
}

func (s *CheckoutService) Tracking(ctx context.Context, id string) (domain.TrackingSnapshot, error) {
	sess, err := s.get(id)
	if err != nil {
		return domain.TrackingSnapshot{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.tracker == nil {
		return domain.TrackingSnapshot{}, fmt.Errorf("tracking for session %s: %w", id, apperr.ErrNotFound)
	}
	return sess.tracker.Snapshot(), nil
}

// GetOrderQueue exposes placed orders to the recording workers.
func (s *CheckoutService) GetOrderQueue() <-chan domain.Order {
	return s.orderQueue
}

// Shutdown closes the order queue. PlaceOrder calls after it skip recording.
func (s *CheckoutService) Shutdown() {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	if s.queueOpen {
		s.queueOpen = false
		close(s.orderQueue)
	}
}

func (s *CheckoutService) enqueue(ctx context.Context, order domain.Order) {
	s.queueMu.RLock()
	defer s.queueMu.RUnlock()

	if !s.queueOpen {
		s.logger.Warn("order queue closed, order not recorded", zap.String("order_id", order.ID))
		return
	}
	select {
	case s.orderQueue <- order:
	case <-ctx.Done():
		s.logger.Warn("order not recorded", zap.String("order_id", order.ID), zap.Error(ctx.Err()))
	}
}

func (s *CheckoutService) get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}
	return sess, nil
}

// mutate runs fn under the session lock and returns the resulting view.
func (s *CheckoutService) mutate(id string, fn func(sess *Session) error) (SessionView, error) {
	sess, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := fn(sess); err != nil {
		return SessionView{}, err
	}
	sess.updatedAt = s.now()
	return sess.view(s.cfg), nil
}

func trackingJobID(sessionID string) string {
	return "order:" + sessionID
}
