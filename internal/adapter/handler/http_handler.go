package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/rl1809/plug-checkout/internal/core/domain"
	"github.com/rl1809/plug-checkout/internal/core/service"
)

type HTTPHandler struct {
	checkout *service.CheckoutService
	orders   *service.OrdersService
	roadside *service.RoadsideService
	prefs    *service.PreferenceService
	logger   *zap.Logger
	devTools bool
}

type HTTPHandlerOption func(*HTTPHandler)

// WithDevTools exposes /debug/sessions.
func WithDevTools(enabled bool) HTTPHandlerOption {
	return func(h *HTTPHandler) { h.devTools = enabled }
}

func WithLogger(logger *zap.Logger) HTTPHandlerOption {
	return func(h *HTTPHandler) { h.logger = logger }
}

func NewHTTPHandler(
	checkout *service.CheckoutService,
	orders *service.OrdersService,
	roadside *service.RoadsideService,
	prefs *service.PreferenceService,
	opts ...HTTPHandlerOption,
) *HTTPHandler {
	h := &HTTPHandler{
		checkout: checkout,
		orders:   orders,
		roadside: roadside,
		prefs:    prefs,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HTTPHandler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/sessions", h.OpenSession)
	mux.HandleFunc("GET /api/sessions/{id}", h.GetSession)
	mux.HandleFunc("POST /api/sessions/{id}/lines", h.AddLine)
	mux.HandleFunc("PATCH /api/sessions/{id}/lines/{lineId}", h.UpdateQuantity)
	mux.HandleFunc("DELETE /api/sessions/{id}/lines/{lineId}", h.RemoveLine)
	mux.HandleFunc("POST /api/sessions/{id}/tip", h.SetTip)
	mux.HandleFunc("POST /api/sessions/{id}/checkout", h.Checkout)
	mux.HandleFunc("POST /api/sessions/{id}/delivery", h.SubmitDelivery)
	mux.HandleFunc("POST /api/sessions/{id}/edit", h.Edit)
	mux.HandleFunc("GET /api/sessions/{id}/review", h.Review)
	mux.HandleFunc("POST /api/sessions/{id}/review/continue", h.ContinueReview)
	mux.HandleFunc("GET /api/payment-methods", h.PaymentMethods)
	mux.HandleFunc("POST /api/sessions/{id}/payment/method", h.SelectMethod)
	mux.HandleFunc("POST /api/sessions/{id}/payment/promo", h.ApplyPromo)
	mux.HandleFunc("POST /api/sessions/{id}/payment/place", h.PlaceOrder)
	mux.HandleFunc("POST /api/sessions/{id}/close", h.Close)
	mux.HandleFunc("POST /api/sessions/{id}/open", h.Reopen)
	mux.HandleFunc("GET /api/sessions/{id}/tracking", h.Tracking)

	mux.HandleFunc("GET /api/orders/past-items", h.PastItems)
	mux.HandleFunc("GET /api/orders/past-orders", h.PastOrders)
	mux.HandleFunc("GET /api/orders/history", h.OrderHistory)
	mux.HandleFunc("POST /api/orders/past-orders/{id}/reorder", h.Reorder)
	mux.HandleFunc("POST /api/orders/items/{id}/cart", h.AddPastItemToCart)

	mux.HandleFunc("GET /api/roadside/services", h.RoadsideServices)
	mux.HandleFunc("GET /api/roadside/services/{id}/estimate", h.Estimate)
	mux.HandleFunc("POST /api/roadside/bookings", h.Book)
	mux.HandleFunc("GET /api/roadside/bookings/{id}", h.Booking)
	mux.HandleFunc("GET /api/roadside/bookings/{id}/location", h.TechnicianLocation)
	mux.HandleFunc("POST /api/roadside/bookings/{id}/cancel", h.CancelBooking)
	mux.HandleFunc("POST /api/roadside/bookings/{id}/rate", h.RateBooking)
	mux.HandleFunc("GET /api/roadside/history", h.RoadsideHistory)

	mux.HandleFunc("GET /api/preferences/mode", h.GetMode)
	mux.HandleFunc("PUT /api/preferences/mode", h.SwitchMode)

	if h.devTools {
		mux.HandleFunc("GET /debug/sessions", h.DebugSessions)
	}
	mux.HandleFunc("GET /health", h.HealthCheck)

	return Recover(h.logger, Logging(h.logger, mux))
}

// Checkout wizard

func (h *HTTPHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.checkout.OpenSession(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSession(view))
}

func (h *HTTPHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.respondSession(w, r)(h.checkout.Session(r.Context(), r.PathValue("id")))
}

func (h *HTTPHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	var req AddLineRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Item.ID == "" {
		writeBadRequest(w, "item id is required")
		return
	}
	item, options, addOns := req.toDomain()
	h.respondSession(w, r)(h.checkout.AddLine(r.Context(), r.PathValue("id"), item, req.Quantity, options, addOns))
}

func (h *HTTPHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req QuantityRequest
	if !decode(w, r, &req) {
		return
	}
	h.respondSession(w, r)(h.checkout.UpdateQuantity(r.Context(), r.PathValue("id"), r.PathValue("lineId"), req.Quantity))
}

func (h *HTTPHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	h.respondSession(w, r)(h.checkout.RemoveLine(r.Context(), r.PathValue("id"), r.PathValue("lineId")))
}

func (h *HTTPHandler) SetTip(w http.ResponseWriter, r *http.Request) {
	var req TipRequest
	if !decode(w, r, &req) {
		return
	}
	h.respondSession(w, r)(h.checkout.SetTip(r.Context(), r.PathValue("id"), req.TipPercent))
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	h.respondSession(w, r)(h.checkout.Checkout(r.Context(), r.PathValue("id")))
}

func (h *HTTPHandler) SubmitDelivery(w http.ResponseWriter, r *http.Request) {
	var req DeliveryRequest
	if !decode(w, r, &req) {
		return
	}
	h.respondSession(w, r)(h.checkout.SubmitDelivery(r.Context(), r.PathValue("id"), req.toDomain()))
}

func (h *HTTPHandler) Edit(w http.ResponseWriter, r *http.Request) {
	h.respondSession(w, r)(h.checkout.Edit(r.Context(), r.PathValue("id")))
}

func (h *HTTPHandler) Review(w http.ResponseWriter, r *http.Request) {
	review, err := h.checkout.Review(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newReview(review))
}

func (h *HTTPHandler) ContinueReview(w http.ResponseWriter, r *http.Request) {
	h.respondSession(w, r)(h.checkout.ContinueReview(r.Context(), r.PathValue("id")))
}

func (h *HTTPHandler) PaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods := h.checkout.Config().PaymentMethods
	resp := make([]PaymentMethodResponse, len(methods))
	for i, m := range methods {
		resp[i] = PaymentMethodResponse{ID: m.ID, Brand: m.Brand, Last4: m.Last4, Expiry: m.Expiry}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) SelectMethod(w http.ResponseWriter, r *http.Request) {
	var req PaymentMethodRequest
	if !decode(w, r, &req) {
		return
	}
	h.respondSession(w, r)(h.checkout.SelectMethod(r.Context(), r.PathValue("id"), req.PaymentMethodID))
}

func (h *HTTPHandler) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	var req PromoRequest
	if !decode(w, r, &req) {
		return
	}
	h.respondSession(w, r)(h.checkout.ApplyPromo(r.Context(), r.PathValue("id"), req.Code))
}

func (h *HTTPHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if !decode(w, r, &req) {
		return
	}
	if req.RequestID == "" {
		req.RequestID = r.Header.Get("Idempotency-Key")
	}
	if req.RequestID == "" {
		writeBadRequest(w, "request_id is required")
		return
	}
	h.respondSession(w, r)(h.checkout.PlaceOrder(r.Context(), r.PathValue("id"), req.RequestID))
}

func (h *HTTPHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.respondSession(w, r)(h.checkout.Close(r.Context(), r.PathValue("id")))
}

func (h *HTTPHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	h.respondSession(w, r)(h.checkout.Reopen(r.Context(), r.PathValue("id")))
}

func (h *HTTPHandler) Tracking(w http.ResponseWriter, r *http.Request) {
	snap, err := h.checkout.Tracking(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTracking(snap))
}

func (h *HTTPHandler) DebugSessions(w http.ResponseWriter, r *http.Request) {
	views := h.checkout.Sessions(r.Context())
	resp := make([]SessionResponse, len(views))
	for i, v := range views {
		resp[i] = newSession(v)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Orders

func (h *HTTPHandler) PastItems(w http.ResponseWriter, r *http.Request) {
	groups, err := h.orders.FetchPastItems(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPastItemGroups(groups))
}

func (h *HTTPHandler) PastOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.FetchPastOrders(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPastOrders(orders))
}

func (h *HTTPHandler) OrderHistory(w http.ResponseWriter, r *http.Request) {
	hist, err := h.orders.History(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{
		Items:  newPastItemGroups(hist.Items),
		Orders: newPastOrders(hist.Orders),
	})
}

func (h *HTTPHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req SessionRef
	if !decode(w, r, &req) {
		return
	}
	proceed, _ := strconv.ParseBool(r.URL.Query().Get("proceed"))

	out, err := h.orders.Reorder(r.Context(), req.SessionID, r.PathValue("id"), proceed)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := ReorderResponse{
		Success:     out.Result.Success,
		Available:   newPastItems(out.Result.Available),
		Unavailable: newPastItems(out.Result.Unavailable),
		Added:       out.Added,
	}
	if out.Session != nil {
		s := newSession(*out.Session)
		resp.Session = &s
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) AddPastItemToCart(w http.ResponseWriter, r *http.Request) {
	var req SessionRef
	if !decode(w, r, &req) {
		return
	}
	out, err := h.orders.AddPastItemToCart(r.Context(), req.SessionID, r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := AddToCartResponse{Success: out.Result.Success, Message: out.Result.Message}
	if out.Session != nil {
		s := newSession(*out.Session)
		resp.Session = &s
	}
	writeJSON(w, http.StatusOK, resp)
}

// Roadside

func (h *HTTPHandler) RoadsideServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.roadside.FetchServices(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newServices(services))
}

func (h *HTTPHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	cost, err := h.roadside.Estimate(r.Context(), id, r.URL.Query().Get("input"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, EstimateResponse{ServiceID: id, EstimatedCost: money(cost)})
}

func (h *HTTPHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req BookRequest
	if !decode(w, r, &req) {
		return
	}
	view, err := h.roadside.Book(r.Context(), service.BookingInput{
		UserID:        req.UserID,
		ServiceID:     req.ServiceID,
		Input:         req.Input,
		PaymentMethod: req.PaymentMethod,
		Location:      domain.LatLng{Lat: req.Location.Lat, Lng: req.Location.Lng},
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newBookingView(view))
}

func (h *HTTPHandler) Booking(w http.ResponseWriter, r *http.Request) {
	view, err := h.roadside.Booking(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBookingView(view))
}

func (h *HTTPHandler) TechnicianLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := h.roadside.Location(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LocationResponse{
		TechnicianID: loc.TechnicianID,
		Location:     LatLngDTO{Lat: loc.Location.Lat, Lng: loc.Location.Lng},
		Timestamp:    loc.Timestamp,
	})
}

func (h *HTTPHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	if err := h.roadside.Cancel(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *HTTPHandler) RateBooking(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.roadside.Rate(r.Context(), r.PathValue("id"), req.Rating, req.Feedback); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *HTTPHandler) RoadsideHistory(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.roadside.History(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBookings(bookings))
}

// Preferences

func (h *HTTPHandler) GetMode(w http.ResponseWriter, r *http.Request) {
	device := r.URL.Query().Get("device_id")
	mode, err := h.prefs.LastUsedMode(r.Context(), device)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ModeResponse{DeviceID: device, Mode: string(mode)})
}

func (h *HTTPHandler) SwitchMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if !decode(w, r, &req) {
		return
	}
	mode, err := h.prefs.SwitchMode(r.Context(), req.DeviceID, req.Mode)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ModeResponse{DeviceID: req.DeviceID, Mode: string(mode)})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondSession writes either the session snapshot or the error.
func (h *HTTPHandler) respondSession(w http.ResponseWriter, r *http.Request) func(service.SessionView, error) {
	return func(view service.SessionView, err error) {
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newSession(view))
	}
}

// decode reads a JSON body. An empty body is accepted as the zero value.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
