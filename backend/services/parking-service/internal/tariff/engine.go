// Package tariff prices a parking stay from its elapsed minutes and the tenant schedule.
package tariff

import (
	"errors"
	"fmt"

	"parkflow/backend/services/parking-service/internal/models"
)

var (
	// ErrInvalidInterval means the schedule has a non-positive billing interval.
	ErrInvalidInterval = errors.New("tariff: interval minutes must be positive")
	// ErrNegativeAmount means an amount in the schedule is below zero.
	ErrNegativeAmount = errors.New("tariff: amounts must not be negative")
	// ErrNegativeElapsed means the caller passed a negative duration.
	ErrNegativeElapsed = errors.New("tariff: elapsed minutes must not be negative")
)

// Validate checks the structural rules every schedule must satisfy before pricing.
func Validate(p models.TariffParameters) error {
	if p.IntervalMinutes <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidInterval, p.IntervalMinutes)
	}
	if p.AmountPerInterval < 0 {
		return ErrNegativeAmount
	}
	if p.MinimumAmount != nil && *p.MinimumAmount < 0 {
		return ErrNegativeAmount
	}
	if p.MinimumMinutes != nil && *p.MinimumMinutes < 0 {
		return fmt.Errorf("tariff: minimum minutes must not be negative, got %d", *p.MinimumMinutes)
	}
	return nil
}

// ComputeFee returns the fee for a stay of elapsedMinutes.
//
// Below the minimum threshold the flat minimum amount applies (zero when only the
// threshold is configured). Otherwise the stay is rounded up to whole intervals, with at
// least one interval charged.
func ComputeFee(elapsedMinutes int64, p models.TariffParameters) (int64, error) {
	if err := Validate(p); err != nil {
		return 0, err
	}
	if elapsedMinutes < 0 {
		return 0, ErrNegativeElapsed
	}

	if p.MinimumMinutes != nil && elapsedMinutes < *p.MinimumMinutes {
		if p.MinimumAmount == nil {
			return 0, nil
		}
		return *p.MinimumAmount, nil
	}

	intervals := (elapsedMinutes + p.IntervalMinutes - 1) / p.IntervalMinutes
	if intervals < 1 {
		intervals = 1
	}
	return intervals * p.AmountPerInterval, nil
}
