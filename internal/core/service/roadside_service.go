package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/plug-checkout/internal/apperr"
	"github.com/rl1809/plug-checkout/internal/core/domain"
	"github.com/rl1809/plug-checkout/internal/port"
)

type RoadsideConfig struct {
	Profile       domain.TrackingProfile
	StatusTimeout time.Duration
}

func DefaultRoadsideConfig() RoadsideConfig {
	return RoadsideConfig{
		Profile:       domain.TechnicianProfile(),
		StatusTimeout: 3 * time.Second,
	}
}

type BookingInput struct {
	UserID        string
	ServiceID     string
	Input         string
	PaymentMethod string
	Location      domain.LatLng
}

type BookingView struct {
	Booking    domain.ServiceBooking
	Technician domain.TechnicianInfo
	Tracking   *domain.TrackingSnapshot
}

// RoadsideService books roadside help and simulates the technician's progress.
type RoadsideService struct {
	cfg       RoadsideConfig
	api       port.RoadsideAPI
	scheduler *Scheduler
	logger    *zap.Logger

	mu       sync.Mutex
	services []domain.ServiceOption
	jobs     map[string]*technicianJob
}

func NewRoadsideService(cfg RoadsideConfig, api port.RoadsideAPI, scheduler *Scheduler, logger *zap.Logger) *RoadsideService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StatusTimeout <= 0 {
		cfg.StatusTimeout = 3 * time.Second
	}
	return &RoadsideService{
		cfg:       cfg,
		api:       api,
		scheduler: scheduler,
		logger:    logger,
		jobs:      make(map[string]*technicianJob),
	}
}

// FetchServices loads the catalog once and serves it from memory afterwards.
func (s *RoadsideService) FetchServices(ctx context.Context) ([]domain.ServiceOption, error) {
	s.mu.Lock()
	cached := s.services
	s.mu.Unlock()
	if cached != nil {
		return append([]domain.ServiceOption(nil), cached...), nil
	}

	services, err := s.api.FetchServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch roadside services: %w", err)
	}

	s.mu.Lock()
	s.services = services
	s.mu.Unlock()
	return append([]domain.ServiceOption(nil), services...), nil
}

func (s *RoadsideService) service(ctx context.Context, serviceID string) (domain.ServiceOption, error) {
	services, err := s.FetchServices(ctx)
	if err != nil {
		return domain.ServiceOption{}, err
	}
	for _, svc := range services {
		if svc.ID == serviceID {
			return svc, nil
		}
	}
	return domain.ServiceOption{}, fmt.Errorf("service %s: %w", serviceID, apperr.ErrNotFound)
}

// Estimate validates the raw input and returns the expected cost.
func (s *RoadsideService) Estimate(ctx context.Context, serviceID, input string) (decimal.Decimal, error) {
	svc, err := s.service(ctx, serviceID)
	if err != nil {
		return decimal.Zero, err
	}
	v, errs := svc.ValidateInput(input)
	if len(errs) > 0 {
		return decimal.Zero, apperr.NewValidationFields(errs)
	}
	return svc.EstimateCost(v), nil
}

func (s *RoadsideService) Book(ctx context.Context, in BookingInput) (BookingView, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return BookingView{}, apperr.NewValidation("user_id", "User is required")
	}
	if strings.TrimSpace(in.PaymentMethod) == "" {
		return BookingView{}, apperr.NewValidation(domain.FieldPaymentMethod, domain.ErrMsgPaymentMethodRequired)
	}

	svc, err := s.service(ctx, in.ServiceID)
	if err != nil {
		return BookingView{}, err
	}
	v, errs := svc.ValidateInput(in.Input)
	if len(errs) > 0 {
		return BookingView{}, apperr.NewValidationFields(errs)
	}

	req := domain.BookingRequest{
		UserID:        in.UserID,
		ServiceID:     svc.ID,
		EstimatedCost: svc.EstimateCost(v),
		PaymentMethod: in.PaymentMethod,
		UserLocation:  in.Location,
	}
	if svc.RequiresInput {
		req.InputValue = &v
	}

	booking, err := s.api.BookService(ctx, req)
	if err != nil {
		return BookingView{}, fmt.Errorf("book %s: %w", svc.ID, err)
	}
	tech, err := s.api.GetTechnicianInfo(ctx, booking.TechnicianID)
	if err != nil {
		return BookingView{}, fmt.Errorf("technician for %s: %w", booking.BookingID, err)
	}

	job := newTechnicianJob(booking.BookingID, s.cfg.Profile, s.api, s.cfg.StatusTimeout, s.logger)
	go job.run()

	s.mu.Lock()
	s.jobs[booking.BookingID] = job
	s.mu.Unlock()
	if s.scheduler != nil {
		s.scheduler.Register(technicianJobID(booking.BookingID), s.cfg.Profile.Interval, job)
	}

	s.logger.Info("roadside service booked",
		zap.String("booking_id", booking.BookingID),
		zap.String("service_id", svc.ID),
		zap.String("technician_id", tech.ID),
		zap.String("estimated_cost", req.EstimatedCost.StringFixed(2)),
	)

	snap := job.snapshot()
	return BookingView{Booking: booking, Technician: tech, Tracking: &snap}, nil
}

func (s *RoadsideService) Booking(ctx context.Context, bookingID string) (BookingView, error) {
	booking, err := s.api.GetBookingStatus(ctx, bookingID)
	if err != nil {
		return BookingView{}, fmt.Errorf("booking status: %w", err)
	}
	tech, err := s.api.GetTechnicianInfo(ctx, booking.TechnicianID)
	if err != nil {
		return BookingView{}, fmt.Errorf("technician for %s: %w", bookingID, err)
	}

	view := BookingView{Booking: booking, Technician: tech}
	s.mu.Lock()
	job, ok := s.jobs[bookingID]
	s.mu.Unlock()
	if ok {
		snap := job.snapshot()
		view.Tracking = &snap
	}
	return view, nil
}

func (s *RoadsideService) Location(ctx context.Context, bookingID string) (domain.LocationUpdate, error) {
	booking, err := s.api.GetBookingStatus(ctx, bookingID)
	if err != nil {
		return domain.LocationUpdate{}, fmt.Errorf("booking status: %w", err)
	}
	loc, err := s.api.GetTechnicianLocation(ctx, booking.TechnicianID)
	if err != nil {
		return domain.LocationUpdate{}, fmt.Errorf("technician location: %w", err)
	}
	return loc, nil
}

// Cancel stops the technician simulation before marking the booking cancelled.
func (s *RoadsideService) Cancel(ctx context.Context, bookingID string) error {
	s.mu.Lock()
	job, ok := s.jobs[bookingID]
	s.mu.Unlock()
	if ok {
		job.cancel()
		if s.scheduler != nil {
			s.scheduler.Unregister(technicianJobID(bookingID))
		}
	}

	if err := s.api.CancelBooking(ctx, bookingID); err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}
	s.logger.Info("roadside booking cancelled", zap.String("booking_id", bookingID))
	return nil
}

func (s *RoadsideService) Rate(ctx context.Context, bookingID string, rating int, feedback string) error {
	if !domain.ValidRating(rating) {
		return apperr.NewValidation(domain.FieldRating, domain.ErrMsgRatingRange)
	}
	if err := s.api.RateService(ctx, bookingID, rating, strings.TrimSpace(feedback)); err != nil {
		return fmt.Errorf("rate booking: %w", err)
	}
	return nil
}

// History returns the user's bookings, newest first.
func (s *RoadsideService) History(ctx context.Context, userID string) ([]domain.ServiceBooking, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperr.NewValidation("user_id", "User is required")
	}
	history, err := s.api.GetServiceHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service history: %w", err)
	}
	return history, nil
}

func technicianJobID(bookingID string) string {
	return "roadside:" + bookingID
}

// technicianJob mirrors every tracker advance into the booking status. Tick
// only advances the tracker and queues the status; a per-booking worker sends
// the updates in order so a slow backend never holds up the scheduler.
type technicianJob struct {
	bookingID string
	api       port.RoadsideAPI
	timeout   time.Duration
	logger    *zap.Logger

	mu        sync.Mutex
	tracker   *domain.Tracker
	cancelled bool
	updates   chan domain.BookingStatus
	closed    bool

	// sending is held for the duration of one UpdateBookingStatus call.
	sending sync.Mutex
	done    chan struct{}
}

func newTechnicianJob(bookingID string, profile domain.TrackingProfile, api port.RoadsideAPI, timeout time.Duration, logger *zap.Logger) *technicianJob {
	return &technicianJob{
		bookingID: bookingID,
		api:       api,
		timeout:   timeout,
		logger:    logger,
		tracker:   domain.NewTracker(profile),
		// One slot per advance, so Tick never blocks on a send.
		updates: make(chan domain.BookingStatus, profile.Terminal()+1),
		done:    make(chan struct{}),
	}
}

func (j *technicianJob) Tick() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cancelled || j.closed {
		return true
	}
	if !j.tracker.Advance() {
		j.closeUpdates()
		return true
	}

	j.updates <- domain.BookingStatusAt(j.tracker.Index())
	if j.tracker.Done() {
		j.closeUpdates()
		return true
	}
	return false
}

// closeUpdates must be called with mu held.
func (j *technicianJob) closeUpdates() {
	if !j.closed {
		j.closed = true
		close(j.updates)
	}
}

// run sends queued statuses until the job finishes or is cancelled.
func (j *technicianJob) run() {
	defer close(j.done)

	for status := range j.updates {
		j.sending.Lock()
		if j.isCancelled() {
			j.sending.Unlock()
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		_, err := j.api.UpdateBookingStatus(ctx, j.bookingID, status)
		cancel()
		j.sending.Unlock()

		if err != nil {
			j.logger.Warn("failed to update booking status",
				zap.String("booking_id", j.bookingID),
				zap.String("status", string(status)),
				zap.Error(err),
			)
		}
	}
}

func (j *technicianJob) isCancelled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cancelled
}

// cancel stops further updates and waits out one already in flight, so a
// cancellation written afterwards is never overwritten.
func (j *technicianJob) cancel() {
	j.mu.Lock()
	j.cancelled = true
	j.closeUpdates()
	j.mu.Unlock()

	j.sending.Lock()
	j.sending.Unlock()
}

func (j *technicianJob) snapshot() domain.TrackingSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.tracker.Snapshot()
}
