package service

import (
	"errors"
	"fmt"
)

// Kind classifies failures for the transport layer.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindForbidden     Kind = "forbidden"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindConfiguration Kind = "configuration"
	KindRetryable     Kind = "retryable"
	KindInternal      Kind = "internal"
)

// Error is a classified service failure. Two errors match under errors.Is when their
// codes are equal.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// wrap returns a copy of e carrying cause.
func (e *Error) wrap(cause error) *Error {
	out := *e
	out.Err = cause
	return &out
}

var (
	ErrInvalidPlate           = &Error{Kind: KindValidation, Code: "invalid_plate", Message: "plate is required"}
	ErrInvalidAmount          = &Error{Kind: KindValidation, Code: "invalid_amount", Message: "amount paid must not be negative"}
	ErrInvalidWindow          = &Error{Kind: KindValidation, Code: "invalid_window", Message: "window start must be before window end"}
	ErrInvalidFrequentClient  = &Error{Kind: KindValidation, Code: "invalid_frequent_client", Message: "invalid frequent client"}
	ErrInvalidTariffInput     = &Error{Kind: KindValidation, Code: "invalid_tariff_input", Message: "invalid tariff parameters"}
	ErrInvalidBooking         = &Error{Kind: KindValidation, Code: "invalid_service_booking", Message: "invalid service booking"}
	ErrPlateExempt            = &Error{Kind: KindValidation, Code: "plate_exempt", Message: "plate is registered as a non-billable frequent client"}
	ErrOperatorNotFound       = &Error{Kind: KindForbidden, Code: "operator_not_found", Message: "operator not found"}
	ErrOperatorInactive       = &Error{Kind: KindForbidden, Code: "operator_inactive", Message: "operator or tenant is not allowed to operate"}
	ErrNoActiveSession        = &Error{Kind: KindNotFound, Code: "no_active_session", Message: "plate has no open session"}
	ErrFrequentClientNotFound = &Error{Kind: KindNotFound, Code: "frequent_client_not_found", Message: "frequent client not found"}
	ErrBookingNotFound        = &Error{Kind: KindNotFound, Code: "service_booking_not_found", Message: "service booking not found"}
	ErrCatalogServiceNotFound = &Error{Kind: KindNotFound, Code: "catalog_service_not_found", Message: "catalog service not found"}
	ErrPlateAlreadyActive     = &Error{Kind: KindConflict, Code: "plate_already_active", Message: "plate already has an open session"}
	ErrFrequentClientExists   = &Error{Kind: KindConflict, Code: "frequent_client_exists", Message: "plate is already registered as a frequent client"}
	ErrBookingFinished        = &Error{Kind: KindConflict, Code: "service_booking_finished", Message: "service booking is already finished"}
	ErrTariffNotConfigured    = &Error{Kind: KindConfiguration, Code: "tariff_not_configured", Message: "tenant has no tariff parameters"}
	ErrInvalidTariff          = &Error{Kind: KindConfiguration, Code: "invalid_tariff", Message: "tenant tariff parameters are invalid"}
	ErrRetryableConflict      = &Error{Kind: KindRetryable, Code: "retryable_conflict", Message: "concurrent update on plate, retry the request"}
)

// KindOf returns the kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
