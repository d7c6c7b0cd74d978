package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"parkflow/backend/services/parking-service/internal/models"
	"parkflow/backend/services/parking-service/internal/repository"
	"parkflow/backend/services/parking-service/internal/tariff"
)

// TariffStore persists tenant schedules.
type TariffStore interface {
	Get(ctx context.Context, tenantID int64) (*models.TariffParameters, error)
	Upsert(ctx context.Context, p *models.TariffParameters) error
}

// FrequentClientStore persists frequent client registrations.
type FrequentClientStore interface {
	ListByTenant(ctx context.Context, tenantID int64) ([]models.FrequentClient, error)
	Create(ctx context.Context, c *models.FrequentClient) error
	DeleteByPlate(ctx context.Context, tenantID int64, plate string) error
}

// GetTariff returns the tenant schedule.
func (s *SessionsService) GetTariff(ctx context.Context, tenantID int64) (*models.TariffParameters, error) {
	params, err := s.tariffs.Get(ctx, tenantID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTariffNotConfigured
	}
	return params, err
}

// SetTariff validates and stores the tenant schedule.
func (s *SessionsService) SetTariff(ctx context.Context, params models.TariffParameters) (*models.TariffParameters, error) {
	if err := tariff.Validate(params); err != nil {
		return nil, &Error{Kind: KindValidation, Code: ErrInvalidTariffInput.Code, Message: err.Error()}
	}
	if err := s.tariffs.Upsert(ctx, &params); err != nil {
		return nil, err
	}
	s.logger.Info("tariff updated",
		zap.Int64("tenant_id", params.TenantID),
		zap.Int64("amount_per_interval", params.AmountPerInterval),
		zap.Int64("interval_minutes", params.IntervalMinutes),
	)
	return &params, nil
}

// ListFrequentClients returns the tenant registry.
func (s *SessionsService) ListFrequentClients(ctx context.Context, tenantID int64) ([]models.FrequentClient, error) {
	return s.clients.ListByTenant(ctx, tenantID)
}

// RegisterFrequentClient adds a plate to the tenant registry. Plates are unique across
// tenants.
func (s *SessionsService) RegisterFrequentClient(ctx context.Context, client models.FrequentClient) (*models.FrequentClient, error) {
	plate, err := NormalizePlate(client.Plate)
	if err != nil {
		return nil, err
	}
	client.Plate = plate
	client.ClientName = strings.TrimSpace(client.ClientName)
	client.BillingMode = models.BillingMode(strings.ToUpper(string(client.BillingMode)))
	if !client.BillingMode.Valid() {
		return nil, &Error{Kind: KindValidation, Code: ErrInvalidFrequentClient.Code, Message: "billing mode must be DAILY, WEEKLY or MONTHLY"}
	}
	if client.FlatAmount < 0 {
		return nil, &Error{Kind: KindValidation, Code: ErrInvalidFrequentClient.Code, Message: "flat amount must not be negative"}
	}

	if err := s.clients.Create(ctx, &client); err != nil {
		if errors.Is(err, repository.ErrDuplicatePlate) {
			return nil, ErrFrequentClientExists
		}
		return nil, err
	}
	s.logger.Info("frequent client registered",
		zap.Int64("tenant_id", client.TenantID),
		zap.String("plate", client.Plate),
		zap.Bool("billable", client.Billable),
	)
	return &client, nil
}

// RemoveFrequentClient drops plate from the tenant registry.
func (s *SessionsService) RemoveFrequentClient(ctx context.Context, tenantID int64, plate string) error {
	plate, err := NormalizePlate(plate)
	if err != nil {
		return err
	}
	if err := s.clients.DeleteByPlate(ctx, tenantID, plate); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrFrequentClientNotFound
		}
		return err
	}
	s.logger.Info("frequent client removed", zap.Int64("tenant_id", tenantID), zap.String("plate", plate))
	return nil
}
