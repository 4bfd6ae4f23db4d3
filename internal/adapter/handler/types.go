package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/plug-checkout/internal/core/domain"
	"github.com/rl1809/plug-checkout/internal/core/service"
)

// Money leaves the API as a string rounded to cents.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type MenuItemRequest struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	BasePrice    decimal.Decimal `json:"base_price"`
	RestaurantID string          `json:"restaurant_id"`
}

type OptionDTO struct {
	GroupID    string          `json:"group_id"`
	ChoiceID   string          `json:"choice_id"`
	Label      string          `json:"label"`
	PriceDelta decimal.Decimal `json:"price_delta"`
}

type AddOnDTO struct {
	ID         string          `json:"id"`
	Label      string          `json:"label"`
	PriceDelta decimal.Decimal `json:"price_delta"`
}

type AddLineRequest struct {
	Item     MenuItemRequest `json:"item"`
	Quantity int             `json:"quantity"`
	Options  []OptionDTO     `json:"options"`
	AddOns   []AddOnDTO      `json:"add_ons"`
}

func (r AddLineRequest) toDomain() (domain.MenuItem, []domain.OptionChoice, []domain.AddOn) {
	item := domain.MenuItem{
		ID:           r.Item.ID,
		Name:         r.Item.Name,
		BasePrice:    r.Item.BasePrice,
		RestaurantID: r.Item.RestaurantID,
	}
	options := make([]domain.OptionChoice, len(r.Options))
	for i, o := range r.Options {
		options[i] = domain.OptionChoice{GroupID: o.GroupID, ChoiceID: o.ChoiceID, Label: o.Label, PriceDelta: o.PriceDelta}
	}
	addOns := make([]domain.AddOn, len(r.AddOns))
	for i, a := range r.AddOns {
		addOns[i] = domain.AddOn{ID: a.ID, Label: a.Label, PriceDelta: a.PriceDelta}
	}
	return item, options, addOns
}

type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

type TipRequest struct {
	TipPercent int `json:"tip_percent"`
}

type DeliveryRequest struct {
	Address       string `json:"address"`
	Phone         string `json:"phone"`
	Instructions  string `json:"instructions"`
	RequestedTime string `json:"requested_time"`
}

func (r DeliveryRequest) toDomain() domain.DeliveryForm {
	return domain.DeliveryForm{
		Address:       r.Address,
		Phone:         r.Phone,
		Instructions:  r.Instructions,
		RequestedTime: domain.RequestedTime(r.RequestedTime),
	}
}

type PaymentMethodRequest struct {
	PaymentMethodID string `json:"payment_method_id"`
}

type PromoRequest struct {
	Code string `json:"code"`
}

type PlaceOrderRequest struct {
	RequestID string `json:"request_id"`
}

type LineResponse struct {
	ID        string      `json:"id"`
	ItemID    string      `json:"item_id"`
	Name      string      `json:"name"`
	Quantity  int         `json:"quantity"`
	UnitPrice string      `json:"unit_price"`
	LineTotal string      `json:"line_total"`
	Options   []OptionDTO `json:"options,omitempty"`
	AddOns    []AddOnDTO  `json:"add_ons,omitempty"`
}

type PricingResponse struct {
	Subtotal    string `json:"subtotal"`
	Tax         string `json:"tax"`
	DeliveryFee string `json:"delivery_fee"`
	TipPercent  int    `json:"tip_percent"`
	Tip         string `json:"tip"`
	Discount    string `json:"discount"`
	Total       string `json:"total"`
}

type DeliveryResponse struct {
	Address       string `json:"address"`
	Phone         string `json:"phone"`
	Instructions  string `json:"instructions,omitempty"`
	RequestedTime string `json:"requested_time"`
}

type LatLngDTO struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type TrackingResponse struct {
	Profile    string    `json:"profile"`
	Index      int       `json:"index"`
	Stage      string    `json:"stage"`
	Stages     []string  `json:"stages"`
	ETAMinutes int       `json:"eta_minutes"`
	Progress   float64   `json:"progress"`
	Position   LatLngDTO `json:"position"`
	Done       bool      `json:"done"`
}

type OrderResponse struct {
	ID              string           `json:"id"`
	Status          string           `json:"status"`
	Lines           []LineResponse   `json:"lines"`
	Delivery        DeliveryResponse `json:"delivery"`
	Pricing         PricingResponse  `json:"pricing"`
	PaymentMethodID string           `json:"payment_method_id"`
	PromoCode       string           `json:"promo_code,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

type SessionResponse struct {
	ID              string            `json:"id"`
	Step            string            `json:"step"`
	Lines           []LineResponse    `json:"lines"`
	DeliveryForm    DeliveryResponse  `json:"delivery_form"`
	Delivery        *DeliveryResponse `json:"delivery,omitempty"`
	DeliveryErrors  map[string]string `json:"delivery_errors,omitempty"`
	TipPercent      int               `json:"tip_percent"`
	PaymentMethodID string            `json:"payment_method_id,omitempty"`
	PromoCode       string            `json:"promo_code,omitempty"`
	Processing      bool              `json:"processing"`
	Pricing         PricingResponse   `json:"pricing"`
	Order           *OrderResponse    `json:"order,omitempty"`
	Tracking        *TrackingResponse `json:"tracking,omitempty"`
}

type ReviewResponse struct {
	Lines    []LineResponse   `json:"lines"`
	Delivery DeliveryResponse `json:"delivery"`
	Pricing  PricingResponse  `json:"pricing"`
}

func newLines(lines []domain.CartLine) []LineResponse {
	out := make([]LineResponse, len(lines))
	for i, l := range lines {
		out[i] = LineResponse{
			ID:        l.ID,
			ItemID:    l.ItemID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: money(l.UnitPrice),
			LineTotal: money(l.LineTotal()),
		}
		for _, o := range l.Options {
			out[i].Options = append(out[i].Options, OptionDTO{GroupID: o.GroupID, ChoiceID: o.ChoiceID, Label: o.Label, PriceDelta: o.PriceDelta})
		}
		for _, a := range l.AddOns {
			out[i].AddOns = append(out[i].AddOns, AddOnDTO{ID: a.ID, Label: a.Label, PriceDelta: a.PriceDelta})
		}
	}
	return out
}

func newPricing(p domain.PricingSummary) PricingResponse {
	return PricingResponse{
		Subtotal:    money(p.Subtotal),
		Tax:         money(p.Tax),
		DeliveryFee: money(p.DeliveryFee),
		TipPercent:  p.TipPercent,
		Tip:         money(p.Tip),
		Discount:    money(p.Discount),
		Total:       money(p.Total),
	}
}

func newDelivery(d domain.DeliveryDetails) DeliveryResponse {
	return DeliveryResponse{
		Address:       d.Address,
		Phone:         d.Phone,
		Instructions:  d.Instructions,
		RequestedTime: string(d.RequestedTime),
	}
}

func newTracking(s domain.TrackingSnapshot) *TrackingResponse {
	return &TrackingResponse{
		Profile:    s.Profile,
		Index:      s.Index,
		Stage:      s.Stage,
		Stages:     s.Stages,
		ETAMinutes: s.ETAMinutes,
		Progress:   s.Progress,
		Position:   LatLngDTO{Lat: s.Position.Lat, Lng: s.Position.Lng},
		Done:       s.Done,
	}
}

func newOrder(o domain.Order) *OrderResponse {
	return &OrderResponse{
		ID:              o.ID,
		Status:          string(o.Status),
		Lines:           newLines(o.Lines),
		Delivery:        newDelivery(o.Delivery),
		Pricing:         newPricing(o.Pricing),
		PaymentMethodID: o.PaymentMethodID,
		PromoCode:       o.PromoCode,
		CreatedAt:       o.CreatedAt,
	}
}

func newSession(v service.SessionView) SessionResponse {
	resp := SessionResponse{
		ID:              v.ID,
		Step:            string(v.Step),
		Lines:           newLines(v.Lines),
		DeliveryForm:    newDelivery(domain.DeliveryDetails(v.DeliveryForm)),
		DeliveryErrors:  v.DeliveryErrors,
		TipPercent:      v.TipPercent,
		PaymentMethodID: v.PaymentMethodID,
		PromoCode:       v.PromoCode,
		Processing:      v.Processing,
		Pricing:         newPricing(v.Pricing),
	}
	if v.Delivery != nil {
		d := newDelivery(*v.Delivery)
		resp.Delivery = &d
	}
	if v.Order != nil {
		resp.Order = newOrder(*v.Order)
	}
	if v.Tracking != nil {
		resp.Tracking = newTracking(*v.Tracking)
	}
	return resp
}

func newReview(r domain.OrderReview) ReviewResponse {
	return ReviewResponse{
		Lines:    newLines(r.Lines),
		Delivery: newDelivery(r.Delivery),
		Pricing:  newPricing(r.Pricing),
	}
}

type PaymentMethodResponse struct {
	ID     string `json:"id"`
	Brand  string `json:"brand"`
	Last4  string `json:"last4"`
	Expiry string `json:"expiry"`
}

// Orders

type SessionRef struct {
	SessionID string `json:"session_id"`
}

type PastItemResponse struct {
	ItemID         string `json:"item_id"`
	Name           string `json:"name"`
	ImageURL       string `json:"image_url"`
	Price          string `json:"price"`
	IsAvailable    bool   `json:"is_available"`
	RestaurantID   string `json:"restaurant_id"`
	RestaurantName string `json:"restaurant_name"`
}

type PastItemGroupResponse struct {
	RestaurantID    string             `json:"restaurant_id"`
	RestaurantName  string             `json:"restaurant_name"`
	RestaurantLogo  string             `json:"restaurant_logo"`
	DeliveryFee     string             `json:"delivery_fee"`
	DeliveryMinutes int                `json:"delivery_minutes"`
	Items           []PastItemResponse `json:"items"`
}

type PastOrderResponse struct {
	OrderID        string             `json:"order_id"`
	RestaurantID   string             `json:"restaurant_id"`
	RestaurantName string             `json:"restaurant_name"`
	OrderDate      time.Time          `json:"order_date"`
	TotalPrice     string             `json:"total_price"`
	ItemCount      int                `json:"item_count"`
	ItemSummary    string             `json:"item_summary"`
	ReorderAction  string             `json:"reorder_action"`
	Items          []PastItemResponse `json:"items"`
}

type AddToCartResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Session *SessionResponse `json:"session,omitempty"`
}

type ReorderResponse struct {
	Success     bool               `json:"success"`
	Available   []PastItemResponse `json:"available"`
	Unavailable []PastItemResponse `json:"unavailable"`
	Added       int                `json:"added"`
	Session     *SessionResponse   `json:"session,omitempty"`
}

type HistoryResponse struct {
	Items  []PastItemGroupResponse `json:"items"`
	Orders []PastOrderResponse     `json:"orders"`
}

func newPastItems(items []domain.PastItem) []PastItemResponse {
	out := make([]PastItemResponse, len(items))
	for i, it := range items {
		out[i] = PastItemResponse{
			ItemID:         it.ItemID,
			Name:           it.Name,
			ImageURL:       it.ImageURL,
			Price:          money(it.Price),
			IsAvailable:    it.IsAvailable,
			RestaurantID:   it.RestaurantID,
			RestaurantName: it.RestaurantName,
		}
	}
	return out
}

func newPastItemGroups(groups []domain.PastItemGroup) []PastItemGroupResponse {
	out := make([]PastItemGroupResponse, len(groups))
	for i, g := range groups {
		out[i] = PastItemGroupResponse{
			RestaurantID:    g.RestaurantID,
			RestaurantName:  g.RestaurantName,
			RestaurantLogo:  g.RestaurantLogoURL,
			DeliveryFee:     money(g.DeliveryInfo.Fee),
			DeliveryMinutes: g.DeliveryInfo.Minutes,
			Items:           newPastItems(g.Items),
		}
	}
	return out
}

func newPastOrders(orders []domain.PastOrder) []PastOrderResponse {
	out := make([]PastOrderResponse, len(orders))
	for i, o := range orders {
		out[i] = PastOrderResponse{
			OrderID:        o.OrderID,
			RestaurantID:   o.RestaurantID,
			RestaurantName: o.RestaurantName,
			OrderDate:      o.OrderDate,
			TotalPrice:     money(o.TotalPrice),
			ItemCount:      o.ItemCount,
			ItemSummary:    o.ItemSummary,
			ReorderAction:  string(o.ReorderAction),
			Items:          newPastItems(o.Items),
		}
	}
	return out
}

// Roadside

type ServiceResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	IconURI       string `json:"icon_uri"`
	BasePrice     string `json:"base_price"`
	VariablePrice string `json:"variable_price"`
	PriceLabel    string `json:"price_label"`
	ETA           string `json:"eta"`
	Description   string `json:"description"`
	RequiresInput bool   `json:"requires_input"`
	InputType     string `json:"input_type"`
	InputLabel    string `json:"input_label,omitempty"`
}

type EstimateResponse struct {
	ServiceID     string `json:"service_id"`
	EstimatedCost string `json:"estimated_cost"`
}

type BookRequest struct {
	UserID        string    `json:"user_id"`
	ServiceID     string    `json:"service_id"`
	Input         string    `json:"input"`
	PaymentMethod string    `json:"payment_method"`
	Location      LatLngDTO `json:"location"`
}

type RateRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

type BookingResponse struct {
	BookingID     string    `json:"booking_id"`
	UserID        string    `json:"user_id"`
	ServiceID     string    `json:"service_id"`
	TechnicianID  string    `json:"technician_id"`
	ServiceType   string    `json:"service_type"`
	InputValue    *string   `json:"input_value,omitempty"`
	EstimatedCost string    `json:"estimated_cost"`
	PaymentMethod string    `json:"payment_method"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	ETA           string    `json:"eta"`
}

type TechnicianResponse struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	PhotoURL string    `json:"photo_url"`
	Vehicle  string    `json:"vehicle"`
	Phone    string    `json:"phone"`
	Rating   float64   `json:"rating"`
	Location LatLngDTO `json:"location"`
}

type BookingViewResponse struct {
	Booking    BookingResponse    `json:"booking"`
	Technician TechnicianResponse `json:"technician"`
	Tracking   *TrackingResponse  `json:"tracking,omitempty"`
}

type LocationResponse struct {
	TechnicianID string    `json:"technician_id"`
	Location     LatLngDTO `json:"location"`
	Timestamp    time.Time `json:"timestamp"`
}

func newServices(services []domain.ServiceOption) []ServiceResponse {
	out := make([]ServiceResponse, len(services))
	for i, s := range services {
		out[i] = ServiceResponse{
			ID:            s.ID,
			Name:          s.Name,
			IconURI:       s.IconURI,
			BasePrice:     money(s.BasePrice),
			VariablePrice: money(s.VariablePrice),
			PriceLabel:    s.PriceLabel(),
			ETA:           s.ETA,
			Description:   s.Description,
			RequiresInput: s.RequiresInput,
			InputType:     string(s.InputType),
		}
		if s.RequiresInput {
			out[i].InputLabel = s.InputType.Label()
		}
	}
	return out
}

func newBooking(b domain.ServiceBooking) BookingResponse {
	resp := BookingResponse{
		BookingID:     b.BookingID,
		UserID:        b.UserID,
		ServiceID:     b.ServiceID,
		TechnicianID:  b.TechnicianID,
		ServiceType:   b.ServiceType,
		EstimatedCost: money(b.EstimatedCost),
		PaymentMethod: b.PaymentMethod,
		Status:        string(b.Status),
		Timestamp:     b.Timestamp,
		ETA:           b.ETA,
	}
	if b.InputValue != nil {
		v := b.InputValue.String()
		resp.InputValue = &v
	}
	return resp
}

func newBookings(bookings []domain.ServiceBooking) []BookingResponse {
	out := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		out[i] = newBooking(b)
	}
	return out
}

func newBookingView(v service.BookingView) BookingViewResponse {
	t := v.Technician
	resp := BookingViewResponse{
		Booking: newBooking(v.Booking),
		Technician: TechnicianResponse{
			ID:       t.ID,
			Name:     t.Name,
			PhotoURL: t.PhotoURL,
			Vehicle:  t.Vehicle,
			Phone:    t.Phone,
			Rating:   t.Rating,
			Location: LatLngDTO{Lat: t.Location.Lat, Lng: t.Location.Lng},
		},
	}
	if v.Tracking != nil {
		resp.Tracking = newTracking(*v.Tracking)
	}
	return resp
}

// Preferences

type ModeRequest struct {
	DeviceID string `json:"device_id"`
	Mode     string `json:"mode"`
}

type ModeResponse struct {
	DeviceID string `json:"device_id,omitempty"`
	Mode     string `json:"mode"`
}

type ErrorBody struct {
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
