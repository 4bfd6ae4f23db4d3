package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/rl1809/plug-checkout/internal/apperr"
	"github.com/rl1809/plug-checkout/internal/core/domain"
)

// Mock CacheRepository
type mockCacheRepo struct {
	idempotencySet map[string]bool
	mu             sync.Mutex
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{idempotencySet: make(map[string]bool)}
}

func (m *mockCacheRepo) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.idempotencySet[key] {
		return false, nil
	}
	m.idempotencySet[key] = true
	return true, nil
}

var burger = domain.MenuItem{
	ID:           "item_burger",
	Name:         "Classic Burger",
	BasePrice:    decimal.RequireFromString("7.99"),
	RestaurantID: "rest_1",
}

var validForm = domain.DeliveryForm{
	Address:       "123 Main St",
	Phone:         "5551234567",
	RequestedTime: domain.RequestedTimeASAP,
}

func newTestCheckout(t *testing.T, delay time.Duration) (*CheckoutService, *Scheduler) {
	t.Helper()

	cfg := DefaultCheckoutConfig()
	cfg.ProcessingDelay = delay
	cfg.Tracking.Interval = time.Second

	scheduler := NewScheduler(time.Second, zaptest.NewLogger(t))
	svc := NewCheckoutService(cfg, newMockCacheRepo(), scheduler, zaptest.NewLogger(t))

	go func() {
		for range svc.GetOrderQueue() {
		}
	}()
	t.Cleanup(svc.Shutdown)

	return svc, scheduler
}

// walkToPayment opens a session with two burgers and stops on the payment step.
func walkToPayment(t *testing.T, svc *CheckoutService) string {
	t.Helper()
	ctx := context.Background()

	view, err := svc.OpenSession(ctx)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	id := view.ID

	if _, err := svc.AddLine(ctx, id, burger, 2, nil, nil); err != nil {
		t.Fatalf("add line: %v", err)
	}
	if _, err := svc.Checkout(ctx, id); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if _, err := svc.SubmitDelivery(ctx, id, validForm); err != nil {
		t.Fatalf("submit delivery: %v", err)
	}
	view, err = svc.ContinueReview(ctx, id)
	if err != nil {
		t.Fatalf("continue review: %v", err)
	}
	if view.Step != domain.StepPayment {
		t.Fatalf("expected payment step, got %s", view.Step)
	}
	return id
}

func TestCheckout_EndToEnd(t *testing.T) {
	svc, scheduler := newTestCheckout(t, 0)
	ctx := context.Background()

	id := walkToPayment(t, svc)

	if _, err := svc.SelectMethod(ctx, id, "pm_1"); err != nil {
		t.Fatalf("select method: %v", err)
	}
	view, err := svc.PlaceOrder(ctx, id, "req-1")
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	if view.Step != domain.StepTracking {
		t.Errorf("expected tracking step, got %s", view.Step)
	}
	if view.Order == nil {
		t.Fatal("expected an order")
	}
	if !view.Order.Pricing.Total.Equal(decimal.RequireFromString("22.6454")) {
		t.Errorf("expected total 22.6454, got %s", view.Order.Pricing.Total)
	}
	if got := view.Order.Pricing.Rounded().Total.StringFixed(2); got != "22.65" {
		t.Errorf("expected display total 22.65, got %s", got)
	}
	if len(view.Lines) != 0 {
		t.Errorf("expected cart cleared after order, got %d lines", len(view.Lines))
	}
	if len(view.Order.Lines) != 1 || view.Order.Lines[0].Quantity != 2 {
		t.Errorf("expected order to keep the placed line, got %+v", view.Order.Lines)
	}

	last := -1
	for i := 0; i < 10; i++ {
		scheduler.Step()
		snap, err := svc.Tracking(ctx, id)
		if err != nil {
			t.Fatalf("tracking: %v", err)
		}
		if snap.Index < last {
			t.Fatalf("tracking index went back from %d to %d", last, snap.Index)
		}
		last = snap.Index
	}
	if last != 4 {
		t.Errorf("expected tracking to stop at 4, got %d", last)
	}
	if scheduler.Active() != 0 {
		t.Errorf("expected finished tracker to be unregistered, got %d active", scheduler.Active())
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	svc, _ := newTestCheckout(t, 0)
	ctx := context.Background()

	view, _ := svc.OpenSession(ctx)
	_, err := svc.Checkout(ctx, view.ID)
	if !errors.Is(err, apperr.ErrEmptyCart) {
		t.Errorf("expected ErrEmptyCart, got: %v", err)
	}

	view, _ = svc.Session(ctx, view.ID)
	if view.Step != domain.StepCart {
		t.Errorf("expected to stay on cart, got %s", view.Step)
	}
}

func TestCheckout_InvalidPhoneKeepsStep(t *testing.T) {
	tests := []struct {
		phone   string
		wantErr string
	}{
		{phone: "555-123-4567", wantErr: domain.ErrMsgPhoneInvalid},
		{phone: "12345", wantErr: domain.ErrMsgPhoneInvalid},
		{phone: "", wantErr: domain.ErrMsgPhoneRequired},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			svc, _ := newTestCheckout(t, 0)
			ctx := context.Background()

			view, _ := svc.OpenSession(ctx)
			svc.AddLine(ctx, view.ID, burger, 1, nil, nil)
			svc.Checkout(ctx, view.ID)

			form := validForm
			form.Phone = tt.phone
			_, err := svc.SubmitDelivery(ctx, view.ID, form)

			verr, ok := apperr.AsValidation(err)
			if !ok {
				t.Fatalf("expected validation error, got: %v", err)
			}
			if verr.Fields[domain.FieldPhone] != tt.wantErr {
				t.Errorf("expected phone error %q, got %q", tt.wantErr, verr.Fields[domain.FieldPhone])
			}

			view, _ = svc.Session(ctx, view.ID)
			if view.Step != domain.StepDeliveryDetails {
				t.Errorf("expected to stay on delivery details, got %s", view.Step)
			}
			if _, ok := view.DeliveryErrors[domain.FieldPhone]; !ok {
				t.Error("expected phone error to be recorded on the session")
			}
			if view.DeliveryForm.Phone != tt.phone {
				t.Errorf("expected entered phone to be kept, got %q", view.DeliveryForm.Phone)
			}
		})
	}
}

func TestCheckout_EditPrefillsForm(t *testing.T) {
	svc, _ := newTestCheckout(t, 0)
	ctx := context.Background()

	view, _ := svc.OpenSession(ctx)
	svc.AddLine(ctx, view.ID, burger, 1, nil, nil)
	svc.Checkout(ctx, view.ID)
	svc.SubmitDelivery(ctx, view.ID, validForm)

	view, err := svc.Edit(ctx, view.ID)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if view.Step != domain.StepDeliveryDetails {
		t.Errorf("expected delivery details, got %s", view.Step)
	}
	if view.DeliveryForm != validForm {
		t.Errorf("expected form prefilled with %+v, got %+v", validForm, view.DeliveryForm)
	}
	if len(view.Lines) != 1 {
		t.Errorf("expected cart to survive edit, got %d lines", len(view.Lines))
	}
}

func TestCheckout_PromoDiscount(t *testing.T) {
	for _, code := range []string{"PLUG50", "plug10", " Plug50 "} {
		t.Run(code, func(t *testing.T) {
			svc, _ := newTestCheckout(t, 0)
			ctx := context.Background()
			id := walkToPayment(t, svc)

			view, err := svc.ApplyPromo(ctx, id, code)
			if err != nil {
				t.Fatalf("apply promo: %v", err)
			}

			want := view.Pricing.Subtotal.Mul(decimal.RequireFromString("0.10"))
			if !view.Pricing.Discount.Equal(want) {
				t.Errorf("expected discount %s, got %s", want, view.Pricing.Discount)
			}

			again, err := svc.ApplyPromo(ctx, id, code)
			if err != nil {
				t.Fatalf("apply promo twice: %v", err)
			}
			if !again.Pricing.Total.Equal(view.Pricing.Total) {
				t.Errorf("expected applying twice to be idempotent, got %s then %s", view.Pricing.Total, again.Pricing.Total)
			}
		})
	}
}

func TestCheckout_InvalidPromo(t *testing.T) {
	svc, _ := newTestCheckout(t, 0)
	ctx := context.Background()
	id := walkToPayment(t, svc)

	_, err := svc.ApplyPromo(ctx, id, "FREEFOOD")
	verr, ok := apperr.AsValidation(err)
	if !ok {
		t.Fatalf("expected validation error, got: %v", err)
	}
	if verr.Fields[domain.FieldPromoCode] != "Invalid promo code" {
		t.Errorf("unexpected message: %q", verr.Fields[domain.FieldPromoCode])
	}
}

func TestCheckout_PlaceOrderRequiresMethod(t *testing.T) {
	svc, _ := newTestCheckout(t, 0)
	ctx := context.Background()
	id := walkToPayment(t, svc)

	_, err := svc.PlaceOrder(ctx, id, "")
	verr, ok := apperr.AsValidation(err)
	if !ok {
		t.Fatalf("expected validation error, got: %v", err)
	}
	if verr.Fields[domain.FieldPaymentMethod] != "Please select a payment method" {
		t.Errorf("unexpected message: %q", verr.Fields[domain.FieldPaymentMethod])
	}

	view, _ := svc.Session(ctx, id)
	if view.Step != domain.StepPayment {
		t.Errorf("expected to stay on payment, got %s", view.Step)
	}
}

func TestCheckout_UnknownPaymentMethod(t *testing.T) {
	svc, _ := newTestCheckout(t, 0)
	id := walkToPayment(t, svc)

	_, err := svc.SelectMethod(context.Background(), id, "pm_9")
	if _, ok := apperr.AsValidation(err); !ok {
		t.Errorf("expected validation error, got: %v", err)
	}
}

func TestCheckout_DuplicateRequest(t *testing.T) {
	svc, _ := newTestCheckout(t, 0)
	ctx := context.Background()
	id := walkToPayment(t, svc)
	svc.SelectMethod(ctx, id, "pm_2")

	if _, err := svc.PlaceOrder(ctx, id, "req-1"); err != nil {
		t.Fatalf("first place order failed: %v", err)
	}

	_, err := svc.PlaceOrder(ctx, id, "req-1")
	if !errors.Is(err, apperr.ErrDuplicateRequest) {
		t.Errorf("expected ErrDuplicateRequest, got: %v", err)
	}
}

func TestCheckout_InvalidTransitions(t *testing.T) {
	svc, _ := newTestCheckout(t, 0)
	ctx := context.Background()

	view, _ := svc.OpenSession(ctx)
	id := view.ID
	svc.AddLine(ctx, id, burger, 1, nil, nil)

	if _, err := svc.ContinueReview(ctx, id); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Errorf("continue review from cart: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.Edit(ctx, id); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Errorf("edit from cart: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.Reopen(ctx, id); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Errorf("open from cart: expected ErrInvalidTransition, got %v", err)
	}

	svc.Checkout(ctx, id)
	if _, err := svc.AddLine(ctx, id, burger, 1, nil, nil); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Errorf("add line on delivery details: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.SetTip(ctx, id, 20); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Errorf("set tip on delivery details: expected ErrInvalidTransition, got %v", err)
	}

	view, _ = svc.Session(ctx, id)
	if view.Step != domain.StepDeliveryDetails {
		t.Errorf("expected rejected events to leave the step, got %s", view.Step)
	}
	if len(view.Lines) != 1 || view.Lines[0].Quantity != 1 {
		t.Errorf("expected cart untouched, got %+v", view.Lines)
	}
}

func TestCheckout_UnknownSession(t *testing.T) {
	svc, _ := newTestCheckout(t, 0)

	_, err := svc.Session(context.Background(), "missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestCheckout_CartEditing(t *testing.T) {
	svc, _ := newTestCheckout(t, 0)
	ctx := context.Background()

	view, _ := svc.OpenSession(ctx)
	id := view.ID
	view, _ = svc.AddLine(ctx, id, burger, 1, nil, nil)
	lineID := view.Lines[0].ID

	view, _ = svc.AddLine(ctx, id, burger, 2, nil, nil)
	if len(view.Lines) != 1 || view.Lines[0].Quantity != 3 {
		t.Fatalf("expected identical lines to merge into quantity 3, got %+v", view.Lines)
	}

	view, _ = svc.UpdateQuantity(ctx, id, lineID, 0)
	if view.Lines[0].Quantity != 1 {
		t.Errorf("expected quantity clamped to 1, got %d", view.Lines[0].Quantity)
	}

	view, err := svc.UpdateQuantity(ctx, id, "unknown", 5)
	if err != nil {
		t.Errorf("expected unknown line to be a no-op, got %v", err)
	}
	if view.Lines[0].Quantity != 1 {
		t.Errorf("expected quantity unchanged, got %d", view.Lines[0].Quantity)
	}

	view, _ = svc.RemoveLine(ctx, id, lineID)
	if len(view.Lines) != 0 {
		t.Errorf("expected empty cart, got %d lines", len(view.Lines))
	}
}

func TestCheckout_SetTip(t *testing.T) {
	svc, _ := newTestCheckout(t, 0)
	ctx := context.Background()

	view, _ := svc.OpenSession(ctx)
	if view.TipPercent != 15 {
		t.Errorf("expected default tip 15, got %d", view.TipPercent)
	}

	view, _ = svc.AddLine(ctx, view.ID, burger, 2, nil, nil)
	view, err := svc.SetTip(ctx, view.ID, 20)
	if err != nil {
		t.Fatalf("set tip: %v", err)
	}
	if !view.Pricing.Tip.Equal(decimal.RequireFromString("3.196")) {
		t.Errorf("expected tip 3.196, got %s", view.Pricing.Tip)
	}

	if _, err := svc.SetTip(ctx, view.ID, 17); err == nil {
		t.Error("expected 17% to be rejected")
	}
}

func TestCheckout_CloseDuringProcessing(t *testing.T) {
	svc, _ := newTestCheckout(t, time.Hour)
	ctx := context.Background()
	id := walkToPayment(t, svc)
	svc.SelectMethod(ctx, id, "pm_1")

	done := make(chan error, 1)
	go func() {
		_, err := svc.PlaceOrder(ctx, id, "req-1")
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		view, _ := svc.Session(ctx, id)
		if view.Processing {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("order never started processing")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := svc.Close(ctx, id); err != nil {
		t.Fatalf("close: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, apperr.ErrInvalidTransition) {
			t.Errorf("expected canceled order, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("place order did not return after close")
	}

	view, err := svc.Reopen(ctx, id)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if view.Step != domain.StepCart {
		t.Errorf("expected cart step, got %s", view.Step)
	}
	if len(view.Lines) != 1 {
		t.Errorf("expected cart preserved after cancel, got %d lines", len(view.Lines))
	}
	if view.Order != nil {
		t.Error("expected no order")
	}
}

func TestCheckout_CloseStopsTracking(t *testing.T) {
	svc, scheduler := newTestCheckout(t, 0)
	ctx := context.Background()
	id := walkToPayment(t, svc)
	svc.SelectMethod(ctx, id, "pm_1")
	svc.PlaceOrder(ctx, id, "")

	if scheduler.Active() != 1 {
		t.Fatalf("expected tracker registered, got %d", scheduler.Active())
	}

	view, err := svc.Close(ctx, id)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if view.Step != domain.StepClosed {
		t.Errorf("expected closed, got %s", view.Step)
	}
	if scheduler.Active() != 0 {
		t.Errorf("expected tracker unregistered, got %d", scheduler.Active())
	}
	if _, err := svc.Tracking(ctx, id); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected no tracking after close, got %v", err)
	}
	if _, err := svc.Close(ctx, id); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Errorf("expected closing twice to fail, got %v", err)
	}

	view, _ = svc.Reopen(ctx, id)
	if len(view.Lines) != 0 {
		t.Errorf("expected cart emptied by the placed order, got %d lines", len(view.Lines))
	}
	if view.PaymentMethodID != "" || view.Delivery != nil {
		t.Error("expected payment and delivery choices to reset after an order")
	}
}

func TestCheckout_ConcurrentPlaceOrder(t *testing.T) {
	svc, _ := newTestCheckout(t, 50*time.Millisecond)
	ctx := context.Background()
	id := walkToPayment(t, svc)
	svc.SelectMethod(ctx, id, "pm_1")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.PlaceOrder(ctx, id, ""); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if success != 1 {
		t.Errorf("expected exactly 1 placed order, got %d", success)
	}
}

func TestCheckout_Sessions(t *testing.T) {
	svc, _ := newTestCheckout(t, 0)
	ctx := context.Background()

	svc.OpenSession(ctx)
	svc.OpenSession(ctx)

	if got := len(svc.Sessions(ctx)); got != 2 {
		t.Errorf("expected 2 sessions, got %d", got)
	}
}
