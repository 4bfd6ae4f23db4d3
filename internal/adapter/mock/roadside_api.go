package mock

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/plug-checkout/internal/apperr"
	"github.com/rl1809/plug-checkout/internal/core/domain"
	"github.com/rl1809/plug-checkout/internal/latency"
)

const (
	fetchServicesDelay     = 800 * time.Millisecond
	bookServiceDelay       = 1500 * time.Millisecond
	technicianInfoDelay    = 500 * time.Millisecond
	bookingStatusDelay     = 300 * time.Millisecond
	technicianLocDelay     = 200 * time.Millisecond
	updateBookingDelay     = 500 * time.Millisecond
	cancelBookingDelay     = 800 * time.Millisecond
	serviceHistoryDelay    = 600 * time.Millisecond
	rateServiceDelay       = 500 * time.Millisecond
	technicianJitterDegree = 0.01
)

// DemoUserID owns the seeded history entry.
const DemoUserID = "demo-user"

type RoadsideAPI struct {
	latency     latency.Simulator
	services    []domain.ServiceOption
	technicians []domain.TechnicianInfo
	now         func() time.Time

	mu       sync.Mutex
	rng      *rand.Rand
	bookings map[string]domain.ServiceBooking
	ratings  map[string]int
}

func NewRoadsideAPI(sim latency.Simulator, rng *rand.Rand) *RoadsideAPI {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	a := &RoadsideAPI{
		latency:     sim,
		services:    SeedServiceOptions(),
		technicians: SeedTechnicians(),
		now:         time.Now,
		rng:         rng,
		bookings:    make(map[string]domain.ServiceBooking),
		ratings:     make(map[string]int),
	}

	a.bookings["RS1234567"] = domain.ServiceBooking{
		BookingID:     "RS1234567",
		UserID:        DemoUserID,
		ServiceID:     "tow",
		TechnicianID:  "tech_001",
		ServiceType:   "Tow Service",
		EstimatedCost: decimal.RequireFromString("89.99"),
		PaymentMethod: "Visa •••• 4242",
		Status:        domain.BookingCompleted,
		Timestamp:     a.now().Add(-24 * time.Hour),
		ETA:           "0 min",
	}
	return a
}

func (a *RoadsideAPI) FetchServices(ctx context.Context) ([]domain.ServiceOption, error) {
	if err := a.latency.Wait(ctx, fetchServicesDelay); err != nil {
		return nil, err
	}
	out := make([]domain.ServiceOption, len(a.services))
	copy(out, a.services)
	return out, nil
}

func (a *RoadsideAPI) BookService(ctx context.Context, req domain.BookingRequest) (domain.ServiceBooking, error) {
	if err := a.latency.Wait(ctx, bookServiceDelay); err != nil {
		return domain.ServiceBooking{}, err
	}

	var service *domain.ServiceOption
	for i := range a.services {
		if a.services[i].ID == req.ServiceID {
			service = &a.services[i]
			break
		}
	}
	if service == nil {
		return domain.ServiceBooking{}, fmt.Errorf("service %s: %w", req.ServiceID, apperr.ErrNotFound)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	tech := a.technicians[a.rng.IntN(len(a.technicians))]
	now := a.now()
	id := fmt.Sprintf("RS%d", now.UnixMilli())
	for _, exists := a.bookings[id]; exists; _, exists = a.bookings[id] {
		now = now.Add(time.Millisecond)
		id = fmt.Sprintf("RS%d", now.UnixMilli())
	}

	booking := domain.ServiceBooking{
		BookingID:     id,
		UserID:        req.UserID,
		ServiceID:     req.ServiceID,
		TechnicianID:  tech.ID,
		ServiceType:   service.Name,
		InputValue:    req.InputValue,
		EstimatedCost: req.EstimatedCost,
		PaymentMethod: req.PaymentMethod,
		Status:        domain.BookingRequested,
		Timestamp:     now,
		ETA:           service.ETA,
	}
	a.bookings[id] = booking
	return booking, nil
}

func (a *RoadsideAPI) GetTechnicianInfo(ctx context.Context, technicianID string) (domain.TechnicianInfo, error) {
	if err := a.latency.Wait(ctx, technicianInfoDelay); err != nil {
		return domain.TechnicianInfo{}, err
	}
	for _, t := range a.technicians {
		if t.ID == technicianID {
			return t, nil
		}
	}
	return domain.TechnicianInfo{}, fmt.Errorf("technician %s: %w", technicianID, apperr.ErrNotFound)
}

func (a *RoadsideAPI) GetBookingStatus(ctx context.Context, bookingID string) (domain.ServiceBooking, error) {
	if err := a.latency.Wait(ctx, bookingStatusDelay); err != nil {
		return domain.ServiceBooking{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.bookings[bookingID]
	if !ok {
		return domain.ServiceBooking{}, fmt.Errorf("booking %s: %w", bookingID, apperr.ErrNotFound)
	}
	return b, nil
}

// GetTechnicianLocation jitters around the technician's base location.
func (a *RoadsideAPI) GetTechnicianLocation(ctx context.Context, technicianID string) (domain.LocationUpdate, error) {
	if err := a.latency.Wait(ctx, technicianLocDelay); err != nil {
		return domain.LocationUpdate{}, err
	}

	var base *domain.TechnicianInfo
	for i := range a.technicians {
		if a.technicians[i].ID == technicianID {
			base = &a.technicians[i]
			break
		}
	}
	if base == nil {
		return domain.LocationUpdate{}, fmt.Errorf("technician %s: %w", technicianID, apperr.ErrNotFound)
	}

	a.mu.Lock()
	dLat := (a.rng.Float64() - 0.5) * technicianJitterDegree
	dLng := (a.rng.Float64() - 0.5) * technicianJitterDegree
	a.mu.Unlock()

	return domain.LocationUpdate{
		TechnicianID: technicianID,
		Location:     domain.LatLng{Lat: base.Location.Lat + dLat, Lng: base.Location.Lng + dLng},
		Timestamp:    a.now(),
	}, nil
}

func (a *RoadsideAPI) UpdateBookingStatus(ctx context.Context, bookingID string, status domain.BookingStatus) (domain.ServiceBooking, error) {
	if err := a.latency.Wait(ctx, updateBookingDelay); err != nil {
		return domain.ServiceBooking{}, err
	}
	if !status.Valid() {
		return domain.ServiceBooking{}, apperr.NewValidation("status", fmt.Sprintf("unknown booking status %q", status))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.bookings[bookingID]
	if !ok {
		return domain.ServiceBooking{}, fmt.Errorf("booking %s: %w", bookingID, apperr.ErrNotFound)
	}
	b.Status = status
	b.Timestamp = a.now()
	if status == domain.BookingCompleted {
		b.ETA = "0 min"
	}
	a.bookings[bookingID] = b
	return b, nil
}

func (a *RoadsideAPI) CancelBooking(ctx context.Context, bookingID string) error {
	if err := a.latency.Wait(ctx, cancelBookingDelay); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.bookings[bookingID]
	if !ok {
		return fmt.Errorf("booking %s: %w", bookingID, apperr.ErrNotFound)
	}
	b.Status = domain.BookingCancelled
	b.Timestamp = a.now()
	a.bookings[bookingID] = b
	return nil
}

func (a *RoadsideAPI) GetServiceHistory(ctx context.Context, userID string) ([]domain.ServiceBooking, error) {
	if err := a.latency.Wait(ctx, serviceHistoryDelay); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	var out []domain.ServiceBooking
	for _, b := range a.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (a *RoadsideAPI) RateService(ctx context.Context, bookingID string, rating int, feedback string) error {
	if err := a.latency.Wait(ctx, rateServiceDelay); err != nil {
		return err
	}
	if !domain.ValidRating(rating) {
		return apperr.NewValidation(domain.FieldRating, domain.ErrMsgRatingRange)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.bookings[bookingID]; !ok {
		return fmt.Errorf("booking %s: %w", bookingID, apperr.ErrNotFound)
	}
	a.ratings[bookingID] = rating
	return nil
}

// Rating returns the rating recorded for a booking.
func (a *RoadsideAPI) Rating(bookingID string) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.ratings[bookingID]
	return r, ok
}
