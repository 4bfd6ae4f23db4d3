package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rl1809/plug-checkout/internal/adapter/mock"
	"github.com/rl1809/plug-checkout/internal/core/domain"
	"github.com/rl1809/plug-checkout/internal/core/service"
	"github.com/rl1809/plug-checkout/internal/latency"
)

type testDeps struct {
	checkout *service.CheckoutService
	orders   *service.OrdersService
	roadside *service.RoadsideService
	prefs    *service.PreferenceService
	store    *mock.MemoryStore
}

func newTestDeps(t *testing.T) testDeps {
	t.Helper()
	logger := zaptest.NewLogger(t)

	cfg := service.DefaultCheckoutConfig()
	cfg.ProcessingDelay = 0
	cfg.Tracking.Interval = time.Second

	store := mock.NewMemoryStore()
	scheduler := service.NewScheduler(time.Second, logger)
	checkout := service.NewCheckoutService(cfg, store, scheduler, logger)
	go func() {
		for range checkout.GetOrderQueue() {
		}
	}()
	t.Cleanup(checkout.Shutdown)

	rcfg := service.DefaultRoadsideConfig()
	rcfg.Profile.Interval = time.Second

	return testDeps{
		checkout: checkout,
		orders:   service.NewOrdersService(mock.NewOrdersAPI(latency.None), checkout, logger),
		roadside: service.NewRoadsideService(rcfg, mock.NewRoadsideAPI(latency.None, rand.New(rand.NewPCG(1, 2))), scheduler, logger),
		prefs:    service.NewPreferenceService(store, logger),
		store:    store,
	}
}

func newTestRoutes(t *testing.T, opts ...HTTPHandlerOption) http.Handler {
	t.Helper()
	d := newTestDeps(t)
	opts = append([]HTTPHandlerOption{WithLogger(zaptest.NewLogger(t))}, opts...)
	return NewHTTPHandler(d.checkout, d.orders, d.roadside, d.prefs, opts...).Routes()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

var burgerLine = AddLineRequest{
	Item: MenuItemRequest{
		ID:           "item_burger",
		Name:         "Classic Burger",
		BasePrice:    decimal.RequireFromString("7.99"),
		RestaurantID: "rest_1",
	},
	Quantity: 2,
}

var validDelivery = DeliveryRequest{
	Address:       "123 Main St",
	Phone:         "5551234567",
	RequestedTime: string(domain.RequestedTimeASAP),
}

func openSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	sess := decodeBody[SessionResponse](t, rec)
	assert.Equal(t, string(domain.StepCart), sess.Step)
	assert.Equal(t, 15, sess.TipPercent)
	return sess.ID
}

func TestHTTP_CheckoutFlow(t *testing.T) {
	h := newTestRoutes(t)
	id := openSession(t, h)
	base := "/api/sessions/" + id

	rec := do(t, h, http.MethodPost, base+"/lines", burgerLine)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sess := decodeBody[SessionResponse](t, rec)
	require.Len(t, sess.Lines, 1)
	assert.Equal(t, "15.98", sess.Lines[0].LineTotal)
	assert.Equal(t, "15.98", sess.Pricing.Subtotal)

	steps := []struct {
		path string
		body any
		want domain.Step
	}{
		{path: "/checkout", want: domain.StepDeliveryDetails},
		{path: "/delivery", body: validDelivery, want: domain.StepReview},
		{path: "/review/continue", want: domain.StepPayment},
		{path: "/payment/method", body: PaymentMethodRequest{PaymentMethodID: "pm_1"}, want: domain.StepPayment},
		{path: "/payment/place", body: PlaceOrderRequest{RequestID: "req-1"}, want: domain.StepTracking},
	}
	for _, s := range steps {
		rec = do(t, h, http.MethodPost, base+s.path, s.body)
		require.Equal(t, http.StatusOK, rec.Code, "%s: %s", s.path, rec.Body.String())
		sess = decodeBody[SessionResponse](t, rec)
		assert.Equal(t, string(s.want), sess.Step, s.path)
	}

	require.NotNil(t, sess.Order)
	assert.Equal(t, "22.65", sess.Order.Pricing.Total)
	assert.Equal(t, string(domain.OrderStatusConfirmed), sess.Order.Status)
	assert.Empty(t, sess.Lines)
	require.NotNil(t, sess.Tracking)
	assert.Equal(t, 0, sess.Tracking.Index)

	rec = do(t, h, http.MethodPost, base+"/payment/place", PlaceOrderRequest{RequestID: "req-1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_request", decodeBody[ErrorResponse](t, rec).Error.Kind)

	rec = do(t, h, http.MethodGet, base+"/tracking", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tr := decodeBody[TrackingResponse](t, rec)
	assert.Equal(t, "delivery", tr.Profile)
	assert.False(t, tr.Done)
}

func TestHTTP_Errors(t *testing.T) {
	h := newTestRoutes(t)
	id := openSession(t, h)
	base := "/api/sessions/" + id

	rec := do(t, h, http.MethodPost, base+"/checkout", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "empty_cart", body.Error.Kind)
	assert.Equal(t, msgEmptyCart, body.Error.Message)

	rec = do(t, h, http.MethodPost, base+"/review/continue", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decodeBody[ErrorResponse](t, rec).Error.Kind)

	rec = do(t, h, http.MethodGet, "/api/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodPost, base+"/lines", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rec = do(t, h, http.MethodPost, base+"/tip", TipRequest{TipPercent: 17})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeBody[ErrorResponse](t, rec).Error.Fields, "tip_percent")

	rec = do(t, h, http.MethodGet, base+"/tracking", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTP_InvalidDelivery(t *testing.T) {
	h := newTestRoutes(t)
	id := openSession(t, h)
	base := "/api/sessions/" + id

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, base+"/lines", burgerLine).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, base+"/checkout", nil).Code)

	bad := validDelivery
	bad.Phone = "555-1234"
	rec := do(t, h, http.MethodPost, base+"/delivery", bad)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "validation", body.Error.Kind)
	assert.Equal(t, domain.ErrMsgPhoneInvalid, body.Error.Fields[domain.FieldPhone])

	rec = do(t, h, http.MethodGet, base, nil)
	sess := decodeBody[SessionResponse](t, rec)
	assert.Equal(t, string(domain.StepDeliveryDetails), sess.Step)
	assert.Equal(t, "555-1234", sess.DeliveryForm.Phone)
	assert.Equal(t, domain.ErrMsgPhoneInvalid, sess.DeliveryErrors[domain.FieldPhone])
}

func TestHTTP_LineEditing(t *testing.T) {
	h := newTestRoutes(t)
	id := openSession(t, h)
	base := "/api/sessions/" + id

	sess := decodeBody[SessionResponse](t, do(t, h, http.MethodPost, base+"/lines", burgerLine))
	lineID := sess.Lines[0].ID

	rec := do(t, h, http.MethodPatch, base+"/lines/"+lineID, QuantityRequest{Quantity: 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sess = decodeBody[SessionResponse](t, rec)
	assert.Equal(t, 3, sess.Lines[0].Quantity)

	rec = do(t, h, http.MethodDelete, base+"/lines/"+lineID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[SessionResponse](t, rec).Lines)
}

func TestHTTP_AddLineClampsQuantity(t *testing.T) {
	h := newTestRoutes(t)
	id := openSession(t, h)

	for _, qty := range []int{0, -3} {
		line := burgerLine
		line.Item.ID = fmt.Sprintf("item_qty_%d", qty)
		line.Quantity = qty

		rec := do(t, h, http.MethodPost, "/api/sessions/"+id+"/lines", line)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	sess := decodeBody[SessionResponse](t, do(t, h, http.MethodGet, "/api/sessions/"+id, nil))
	require.Len(t, sess.Lines, 2)
	for _, l := range sess.Lines {
		assert.Equal(t, 1, l.Quantity)
	}
	assert.Equal(t, "15.98", sess.Pricing.Subtotal)
}

func TestHTTP_DebugSessionsGated(t *testing.T) {
	h := newTestRoutes(t)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/debug/sessions", nil).Code)

	h = newTestRoutes(t, WithDevTools(true))
	openSession(t, h)
	rec := do(t, h, http.MethodGet, "/debug/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]SessionResponse](t, rec), 1)
}

func TestHTTP_Orders(t *testing.T) {
	h := newTestRoutes(t)
	id := openSession(t, h)

	rec := do(t, h, http.MethodGet, "/api/orders/past-items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	groups := decodeBody[[]PastItemGroupResponse](t, rec)
	require.Len(t, groups, 4)
	assert.Equal(t, "2.99", groups[0].DeliveryFee)

	rec = do(t, h, http.MethodPost, "/api/orders/items/item_003/cart", SessionRef{SessionID: id})
	require.Equal(t, http.StatusOK, rec.Code)
	add := decodeBody[AddToCartResponse](t, rec)
	assert.False(t, add.Success)
	assert.Equal(t, domain.ErrMsgItemUnavailable, add.Message)
	assert.Nil(t, add.Session)

	rec = do(t, h, http.MethodPost, "/api/orders/past-orders/order_001/reorder", SessionRef{SessionID: id})
	require.Equal(t, http.StatusOK, rec.Code)
	preview := decodeBody[ReorderResponse](t, rec)
	assert.True(t, preview.Success)
	assert.Len(t, preview.Available, 3)
	assert.Zero(t, preview.Added)

	rec = do(t, h, http.MethodPost, "/api/orders/past-orders/order_001/reorder?proceed=true", SessionRef{SessionID: id})
	require.Equal(t, http.StatusOK, rec.Code)
	done := decodeBody[ReorderResponse](t, rec)
	assert.Equal(t, 3, done.Added)
	require.NotNil(t, done.Session)
	assert.Len(t, done.Session.Lines, 3)

	rec = do(t, h, http.MethodPost, "/api/orders/items/item_999/cart", SessionRef{SessionID: id})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTP_Roadside(t *testing.T) {
	h := newTestRoutes(t)

	rec := do(t, h, http.MethodGet, "/api/roadside/services", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeBody[[]ServiceResponse](t, rec))

	rec = do(t, h, http.MethodGet, "/api/roadside/services/tow/estimate?input=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "99.99", decodeBody[EstimateResponse](t, rec).EstimatedCost)

	rec = do(t, h, http.MethodPost, "/api/roadside/bookings", BookRequest{
		UserID:        "user_1",
		ServiceID:     "tow",
		Input:         "10",
		PaymentMethod: "pm_1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	view := decodeBody[BookingViewResponse](t, rec)
	require.NotNil(t, view.Booking.InputValue)
	assert.Equal(t, "10", *view.Booking.InputValue)
	assert.Equal(t, "99.99", view.Booking.EstimatedCost)
	assert.NotEmpty(t, view.Technician.ID)

	bookingPath := "/api/roadside/bookings/" + view.Booking.BookingID
	rec = do(t, h, http.MethodGet, bookingPath+"/location", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, view.Technician.ID, decodeBody[LocationResponse](t, rec).TechnicianID)

	rec = do(t, h, http.MethodPost, bookingPath+"/rate", RateRequest{Rating: 6})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodPost, bookingPath+"/rate", RateRequest{Rating: 5, Feedback: "quick"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/roadside/history?user_id=user_1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]BookingResponse](t, rec), 1)

	rec = do(t, h, http.MethodPost, bookingPath+"/cancel", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTP_Preferences(t *testing.T) {
	h := newTestRoutes(t)

	rec := do(t, h, http.MethodGet, "/api/preferences/mode?device_id=phone", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(domain.DefaultMode), decodeBody[ModeResponse](t, rec).Mode)

	rec = do(t, h, http.MethodPut, "/api/preferences/mode", ModeRequest{DeviceID: "phone", Mode: "Roadside"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(domain.ModeRoadside), decodeBody[ModeResponse](t, rec).Mode)

	rec = do(t, h, http.MethodGet, "/api/preferences/mode?device_id=phone", nil)
	assert.Equal(t, string(domain.ModeRoadside), decodeBody[ModeResponse](t, rec).Mode)

	rec = do(t, h, http.MethodPut, "/api/preferences/mode", ModeRequest{DeviceID: "phone", Mode: "boat"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHTTP_HealthAndRequestID(t *testing.T) {
	h := newTestRoutes(t)

	rec := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "abc")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc", rr.Header().Get("X-Request-Id"))
}
