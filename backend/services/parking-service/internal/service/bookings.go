package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"parkflow/backend/services/parking-service/internal/models"
	"parkflow/backend/services/parking-service/internal/repository"
)

// BookingStore persists ancillary service bookings and reads the service catalog.
type BookingStore interface {
	CatalogEntry(ctx context.Context, tenantID, id int64) (*models.CatalogService, error)
	Get(ctx context.Context, tenantID, id int64) (*models.ServiceBooking, error)
	ListByTenant(ctx context.Context, tenantID int64, from, to time.Time) ([]models.ServiceBooking, error)
	Create(ctx context.Context, b *models.ServiceBooking) error
	Update(ctx context.Context, b *models.ServiceBooking) error
	Delete(ctx context.Context, tenantID, id int64) error
}

// BookingInput describes a new ancillary service booking.
type BookingInput struct {
	Plate                 string
	CatalogServiceID      *int64
	ScheduledAt           time.Time
	Deposit               *int64
	CustomValue           *int64
	CustomDurationMinutes *int64
}

// BookingPatch changes a booking. Nil fields are left untouched.
type BookingPatch struct {
	ScheduledAt           *time.Time
	Deposit               *int64
	CustomValue           *int64
	CustomDurationMinutes *int64
	Finished              *bool
}

// BookingView is a booking with its derived amounts.
type BookingView struct {
	*models.ServiceBooking
	FinalValue           int64  `json:"final_value"`
	FinalDurationMinutes *int64 `json:"final_duration_minutes,omitempty"`
	PendingBalance       int64  `json:"pending_balance"`
}

func newBookingView(b *models.ServiceBooking) *BookingView {
	return &BookingView{
		ServiceBooking:       b,
		FinalValue:           b.FinalValue(),
		FinalDurationMinutes: b.FinalDurationMinutes(),
		PendingBalance:       b.PendingBalance(),
	}
}

// ScheduleService books an ancillary service for a vehicle of tenantID.
func (s *SessionsService) ScheduleService(ctx context.Context, tenantID, operatorID int64, input BookingInput) (*BookingView, error) {
	plate, err := NormalizePlate(input.Plate)
	if err != nil {
		return nil, err
	}
	if input.ScheduledAt.IsZero() {
		return nil, bookingInvalid("scheduled_at is required")
	}
	if input.CatalogServiceID == nil && input.CustomValue == nil {
		return nil, bookingInvalid("either catalog_service_id or custom_value is required")
	}
	if err := checkBookingAmounts(input.Deposit, input.CustomValue, input.CustomDurationMinutes); err != nil {
		return nil, err
	}

	booking := &models.ServiceBooking{
		TenantID:              tenantID,
		Plate:                 plate,
		CatalogServiceID:      input.CatalogServiceID,
		CustomValue:           input.CustomValue,
		CustomDurationMinutes: input.CustomDurationMinutes,
		ScheduledAt:           input.ScheduledAt.UTC(),
		Deposit:               input.Deposit,
		CreatedBy:             operatorID,
	}
	if input.CatalogServiceID != nil {
		entry, err := s.bookings.CatalogEntry(ctx, tenantID, *input.CatalogServiceID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCatalogServiceNotFound
		}
		if err != nil {
			return nil, err
		}
		value, duration := entry.Value, entry.DurationMinutes
		booking.ServiceName = entry.Name
		booking.CatalogValue = &value
		booking.CatalogDurationMinutes = &duration
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}
	s.logger.Info("service booked",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("tenant_id", tenantID),
		zap.String("plate", plate),
		zap.Int64("final_value", booking.FinalValue()),
	)
	return newBookingView(booking), nil
}

// ListServiceBookings returns the tenant's bookings scheduled within window. A zero window
// lists every booking.
func (s *SessionsService) ListServiceBookings(ctx context.Context, tenantID int64, window Window) ([]*BookingView, error) {
	if !window.IsZero() && (window.From.IsZero() || window.To.IsZero() || !window.From.Before(window.To)) {
		return nil, ErrInvalidWindow
	}
	bookings, err := s.bookings.ListByTenant(ctx, tenantID, window.From, window.To)
	if err != nil {
		return nil, err
	}
	views := make([]*BookingView, 0, len(bookings))
	for i := range bookings {
		views = append(views, newBookingView(&bookings[i]))
	}
	return views, nil
}

// UpdateServiceBooking applies patch to the tenant's booking. Finishing a booking settles
// it in full and clears the deposit; finished bookings no longer change.
func (s *SessionsService) UpdateServiceBooking(ctx context.Context, tenantID, id int64, patch BookingPatch) (*BookingView, error) {
	if err := checkBookingAmounts(patch.Deposit, patch.CustomValue, patch.CustomDurationMinutes); err != nil {
		return nil, err
	}
	if patch.ScheduledAt != nil && patch.ScheduledAt.IsZero() {
		return nil, bookingInvalid("scheduled_at must not be empty")
	}

	booking, err := s.bookings.Get(ctx, tenantID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	if booking.Finished {
		return nil, ErrBookingFinished
	}

	if patch.ScheduledAt != nil {
		booking.ScheduledAt = patch.ScheduledAt.UTC()
	}
	if patch.Deposit != nil {
		booking.Deposit = patch.Deposit
	}
	if patch.CustomValue != nil {
		booking.CustomValue = patch.CustomValue
	}
	if patch.CustomDurationMinutes != nil {
		booking.CustomDurationMinutes = patch.CustomDurationMinutes
	}
	if patch.Finished != nil && *patch.Finished {
		var cleared int64
		booking.Finished = true
		booking.PaidInFull = true
		booking.Deposit = &cleared
	}

	if err := s.bookings.Update(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	s.logger.Info("service booking updated",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("tenant_id", tenantID),
		zap.Bool("finished", booking.Finished),
		zap.Int64("pending_balance", booking.PendingBalance()),
	)
	return newBookingView(booking), nil
}

// CancelServiceBooking deletes the tenant's booking.
func (s *SessionsService) CancelServiceBooking(ctx context.Context, tenantID, id int64) error {
	if err := s.bookings.Delete(ctx, tenantID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrBookingNotFound
		}
		return err
	}
	s.logger.Info("service booking cancelled", zap.Int64("booking_id", id), zap.Int64("tenant_id", tenantID))
	return nil
}

func checkBookingAmounts(deposit, value, duration *int64) error {
	if deposit != nil && *deposit < 0 {
		return bookingInvalid("deposit must not be negative")
	}
	if value != nil && *value < 0 {
		return bookingInvalid("custom_value must not be negative")
	}
	if duration != nil && *duration < 0 {
		return bookingInvalid("custom_duration_minutes must not be negative")
	}
	return nil
}

func bookingInvalid(message string) *Error {
	return &Error{Kind: KindValidation, Code: ErrInvalidBooking.Code, Message: message}
}
