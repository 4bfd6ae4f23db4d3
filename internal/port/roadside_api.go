package port

import (
	"context"

	"github.com/rl1809/plug-checkout/internal/core/domain"
)

// RoadsideAPI is the roadside assistance backend: fetch, book, cancel, rate.
type RoadsideAPI interface {
	FetchServices(ctx context.Context) ([]domain.ServiceOption, error)

	BookService(ctx context.Context, req domain.BookingRequest) (domain.ServiceBooking, error)

	GetTechnicianInfo(ctx context.Context, technicianID string) (domain.TechnicianInfo, error)

	GetBookingStatus(ctx context.Context, bookingID string) (domain.ServiceBooking, error)

	GetTechnicianLocation(ctx context.Context, technicianID string) (domain.LocationUpdate, error)

	UpdateBookingStatus(ctx context.Context, bookingID string, status domain.BookingStatus) (domain.ServiceBooking, error)

	CancelBooking(ctx context.Context, bookingID string) error

	// GetServiceHistory returns the user's bookings, newest first
	GetServiceHistory(ctx context.Context, userID string) ([]domain.ServiceBooking, error)

	RateService(ctx context.Context, bookingID string, rating int, feedback string) error
}
