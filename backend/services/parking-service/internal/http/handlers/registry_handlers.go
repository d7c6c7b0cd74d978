package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"parkflow/backend/services/parking-service/internal/models"
)

// RegistryService manages tariffs and frequent clients.
type RegistryService interface {
	GetTariff(ctx context.Context, tenantID int64) (*models.TariffParameters, error)
	SetTariff(ctx context.Context, params models.TariffParameters) (*models.TariffParameters, error)
	ListFrequentClients(ctx context.Context, tenantID int64) ([]models.FrequentClient, error)
	RegisterFrequentClient(ctx context.Context, client models.FrequentClient) (*models.FrequentClient, error)
	RemoveFrequentClient(ctx context.Context, tenantID int64, plate string) error
	OperatorResolver
}

// RegistryHandlers serves tariff and frequent client endpoints.
type RegistryHandlers struct {
	svc    RegistryService
	logger *zap.Logger
}

// NewRegistryHandlers builds handlers.
func NewRegistryHandlers(svc RegistryService, logger *zap.Logger) *RegistryHandlers {
	return &RegistryHandlers{svc: svc, logger: logger}
}

type tariffRequest struct {
	AmountPerInterval int64  `json:"amount_per_interval"`
	IntervalMinutes   int64  `json:"interval_minutes"`
	MinimumAmount     *int64 `json:"minimum_amount"`
	MinimumMinutes    *int64 `json:"minimum_minutes"`
}

type frequentClientRequest struct {
	Plate       string `json:"plate"`
	ClientName  string `json:"client_name"`
	BillingMode string `json:"billing_mode"`
	FlatAmount  int64  `json:"flat_amount"`
	Billable    *bool  `json:"billable"`
}

// GetTariff handles GET /parking/tariff.
func (h *RegistryHandlers) GetTariff(w http.ResponseWriter, r *http.Request) {
	op, ok := operator(w, r, h.svc, h.logger)
	if !ok {
		return
	}
	params, err := h.svc.GetTariff(r.Context(), op.TenantID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, params)
}

// PutTariff handles PUT /parking/tariff.
func (h *RegistryHandlers) PutTariff(w http.ResponseWriter, r *http.Request) {
	op, ok := operator(w, r, h.svc, h.logger)
	if !ok {
		return
	}
	var req tariffRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid_payload", err.Error())
		return
	}

	params, err := h.svc.SetTariff(r.Context(), models.TariffParameters{
		TenantID:          op.TenantID,
		AmountPerInterval: req.AmountPerInterval,
		IntervalMinutes:   req.IntervalMinutes,
		MinimumAmount:     req.MinimumAmount,
		MinimumMinutes:    req.MinimumMinutes,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, params)
}

// ListFrequentClients handles GET /parking/frequent-clients.
func (h *RegistryHandlers) ListFrequentClients(w http.ResponseWriter, r *http.Request) {
	op, ok := operator(w, r, h.svc, h.logger)
	if !ok {
		return
	}
	clients, err := h.svc.ListFrequentClients(r.Context(), op.TenantID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"frequent_clients": clients,
	})
}

// CreateFrequentClient handles POST /parking/frequent-clients.
func (h *RegistryHandlers) CreateFrequentClient(w http.ResponseWriter, r *http.Request) {
	op, ok := operator(w, r, h.svc, h.logger)
	if !ok {
		return
	}
	var req frequentClientRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid_payload", err.Error())
		return
	}
	if req.Billable == nil {
		writeBadRequest(w, "invalid_payload", "billable is required")
		return
	}

	client, err := h.svc.RegisterFrequentClient(r.Context(), models.FrequentClient{
		TenantID:    op.TenantID,
		Plate:       req.Plate,
		ClientName:  req.ClientName,
		BillingMode: models.BillingMode(req.BillingMode),
		FlatAmount:  req.FlatAmount,
		Billable:    *req.Billable,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, client)
}

// RemoveFrequentClient handles DELETE /parking/frequent-clients/remove?plate=.
func (h *RegistryHandlers) RemoveFrequentClient(w http.ResponseWriter, r *http.Request) {
	op, ok := operator(w, r, h.svc, h.logger)
	if !ok {
		return
	}
	if err := h.svc.RemoveFrequentClient(r.Context(), op.TenantID, r.URL.Query().Get("plate")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
