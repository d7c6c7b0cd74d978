package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"parkflow/backend/services/parking-service/internal/service"
)

// BookingsService schedules ancillary services such as washing.
type BookingsService interface {
	ScheduleService(ctx context.Context, tenantID, operatorID int64, input service.BookingInput) (*service.BookingView, error)
	ListServiceBookings(ctx context.Context, tenantID int64, window service.Window) ([]*service.BookingView, error)
	UpdateServiceBooking(ctx context.Context, tenantID, id int64, patch service.BookingPatch) (*service.BookingView, error)
	CancelServiceBooking(ctx context.Context, tenantID, id int64) error
	OperatorResolver
}

// BookingsHandlers serves /parking/service-bookings endpoints.
type BookingsHandlers struct {
	svc    BookingsService
	logger *zap.Logger
}

// NewBookingsHandlers builds handlers.
func NewBookingsHandlers(svc BookingsService, logger *zap.Logger) *BookingsHandlers {
	return &BookingsHandlers{svc: svc, logger: logger}
}

type bookingRequest struct {
	Plate                 string    `json:"plate"`
	CatalogServiceID      *int64    `json:"catalog_service_id"`
	ScheduledAt           time.Time `json:"scheduled_at"`
	Deposit               *int64    `json:"deposit"`
	CustomValue           *int64    `json:"custom_value"`
	CustomDurationMinutes *int64    `json:"custom_duration_minutes"`
}

type bookingPatchRequest struct {
	ScheduledAt           *time.Time `json:"scheduled_at"`
	Deposit               *int64     `json:"deposit"`
	CustomValue           *int64     `json:"custom_value"`
	CustomDurationMinutes *int64     `json:"custom_duration_minutes"`
	Finished              *bool      `json:"finished"`
}

// List handles GET /parking/service-bookings.
func (h *BookingsHandlers) List(w http.ResponseWriter, r *http.Request) {
	op, ok := operator(w, r, h.svc, h.logger)
	if !ok {
		return
	}
	window, err := parseWindow(r)
	if err != nil {
		writeBadRequest(w, service.ErrInvalidWindow.Code, err.Error())
		return
	}

	bookings, err := h.svc.ListServiceBookings(r.Context(), op.TenantID, window)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service_bookings": bookings,
	})
}

// Create handles POST /parking/service-bookings.
func (h *BookingsHandlers) Create(w http.ResponseWriter, r *http.Request) {
	op, ok := operator(w, r, h.svc, h.logger)
	if !ok {
		return
	}
	var req bookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid_payload", err.Error())
		return
	}

	booking, err := h.svc.ScheduleService(r.Context(), op.TenantID, op.ID, service.BookingInput{
		Plate:                 req.Plate,
		CatalogServiceID:      req.CatalogServiceID,
		ScheduledAt:           req.ScheduledAt,
		Deposit:               req.Deposit,
		CustomValue:           req.CustomValue,
		CustomDurationMinutes: req.CustomDurationMinutes,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

// Update handles PUT /parking/service-bookings/update?id=.
func (h *BookingsHandlers) Update(w http.ResponseWriter, r *http.Request) {
	op, ok := operator(w, r, h.svc, h.logger)
	if !ok {
		return
	}
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	var req bookingPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid_payload", err.Error())
		return
	}

	booking, err := h.svc.UpdateServiceBooking(r.Context(), op.TenantID, id, service.BookingPatch{
		ScheduledAt:           req.ScheduledAt,
		Deposit:               req.Deposit,
		CustomValue:           req.CustomValue,
		CustomDurationMinutes: req.CustomDurationMinutes,
		Finished:              req.Finished,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// Cancel handles DELETE /parking/service-bookings/remove?id=.
func (h *BookingsHandlers) Cancel(w http.ResponseWriter, r *http.Request) {
	op, ok := operator(w, r, h.svc, h.logger)
	if !ok {
		return
	}
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	if err := h.svc.CancelServiceBooking(r.Context(), op.TenantID, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func bookingID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, service.ErrInvalidBooking.Code, "id must be a positive integer")
		return 0, false
	}
	return id, true
}
