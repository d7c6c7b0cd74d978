package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	redisstore "parkflow/backend/services/parking-service/internal/redis"
	"parkflow/backend/services/parking-service/internal/service"
)

// SessionsService is the lifecycle surface used by the handlers.
type SessionsService interface {
	OpenSession(ctx context.Context, plate string, operatorID int64) (*service.OpenResult, error)
	CloseSession(ctx context.Context, input service.CloseInput) (*service.CloseResult, error)
	GetOpenSessionsForTenant(ctx context.Context, tenantID int64, window service.Window) (*service.OpenSessionsView, error)
	GetClosedSessionsForTenant(ctx context.Context, tenantID int64, window service.Window) (*service.ClosedSessionsView, error)
	LookupActive(ctx context.Context, plate string) (*redisstore.ActiveSession, error)
	OperatorResolver
}

// SessionsHandlers serves /parking/sessions endpoints.
type SessionsHandlers struct {
	svc    SessionsService
	logger *zap.Logger
}

// NewSessionsHandlers builds handlers.
func NewSessionsHandlers(svc SessionsService, logger *zap.Logger) *SessionsHandlers {
	return &SessionsHandlers{svc: svc, logger: logger}
}

type openRequest struct {
	Plate string `json:"plate"`
}

type closeRequest struct {
	Plate      string `json:"plate"`
	AmountPaid int64  `json:"amount_paid"`
}

// Open handles POST /parking/sessions/open.
func (h *SessionsHandlers) Open(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	var req openRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid_payload", err.Error())
		return
	}

	result, err := h.svc.OpenSession(r.Context(), req.Plate, c.OperatorID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// Close handles POST /parking/sessions/close.
func (h *SessionsHandlers) Close(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	var req closeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid_payload", err.Error())
		return
	}

	result, err := h.svc.CloseSession(r.Context(), service.CloseInput{
		Plate:      req.Plate,
		OperatorID: c.OperatorID,
		AmountPaid: req.AmountPaid,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListOpen handles GET /parking/sessions/open.
func (h *SessionsHandlers) ListOpen(w http.ResponseWriter, r *http.Request) {
	op, ok := operator(w, r, h.svc, h.logger)
	if !ok {
		return
	}
	window, err := parseWindow(r)
	if err != nil {
		writeBadRequest(w, service.ErrInvalidWindow.Code, err.Error())
		return
	}

	view, err := h.svc.GetOpenSessionsForTenant(r.Context(), op.TenantID, window)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ListClosed handles GET /parking/sessions/closed.
func (h *SessionsHandlers) ListClosed(w http.ResponseWriter, r *http.Request) {
	op, ok := operator(w, r, h.svc, h.logger)
	if !ok {
		return
	}
	window, err := parseWindow(r)
	if err != nil {
		writeBadRequest(w, service.ErrInvalidWindow.Code, err.Error())
		return
	}

	view, err := h.svc.GetClosedSessionsForTenant(r.Context(), op.TenantID, window)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Active handles GET /parking/sessions/active?plate=. Plates are unique across tenants,
// so any active operator may look one up.
func (h *SessionsHandlers) Active(w http.ResponseWriter, r *http.Request) {
	if _, ok := operator(w, r, h.svc, h.logger); !ok {
		return
	}
	session, err := h.svc.LookupActive(r.Context(), r.URL.Query().Get("plate"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}
