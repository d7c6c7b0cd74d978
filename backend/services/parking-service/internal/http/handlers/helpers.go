package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"parkflow/backend/services/parking-service/internal/http/middleware"
	"parkflow/backend/services/parking-service/internal/models"
	"parkflow/backend/services/parking-service/internal/service"
)

const maxBodyBytes = 64 << 10

type errorBody struct {
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, kind service.Kind, code, message string) {
	writeJSON(w, status, map[string]errorBody{
		"error": {Kind: string(kind), Code: code, Message: message},
	})
}

func statusForKind(kind service.Kind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	case service.KindConfiguration:
		return http.StatusUnprocessableEntity
	case service.KindRetryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError maps classified errors to their status. Unclassified errors are
// logged and hidden behind a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, service.KindInternal, "internal", "internal server error")
		return
	}
	if svcErr.Kind == service.KindRetryable {
		w.Header().Set("Retry-After", "1")
		logger.Warn("request hit contention", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, statusForKind(svcErr.Kind), svcErr.Kind, svcErr.Code, svcErr.Message)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	writeError(w, http.StatusBadRequest, service.KindValidation, code, message)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

// claims returns the token claims; Auth guarantees them on protected routes.
func claims(w http.ResponseWriter, r *http.Request) (*middleware.Claims, bool) {
	c, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing_token", "missing authorization")
		return nil, false
	}
	return c, true
}

// OperatorResolver loads the operator a token speaks for.
type OperatorResolver interface {
	Operator(ctx context.Context, operatorID int64) (*models.Operator, error)
}

// operator resolves the calling operator. Its row is the only source of the tenant.
func operator(w http.ResponseWriter, r *http.Request, resolver OperatorResolver, logger *zap.Logger) (*models.Operator, bool) {
	c, ok := claims(w, r)
	if !ok {
		return nil, false
	}
	op, err := resolver.Operator(r.Context(), c.OperatorID)
	if err != nil {
		writeServiceError(w, r, logger, err)
		return nil, false
	}
	return op, true
}

func parseWindow(r *http.Request) (service.Window, error) {
	var (
		window service.Window
		err    error
	)
	if raw := r.URL.Query().Get("from"); raw != "" {
		if window.From, err = time.Parse(time.RFC3339, raw); err != nil {
			return service.Window{}, fmt.Errorf("from: %w", err)
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if window.To, err = time.Parse(time.RFC3339, raw); err != nil {
			return service.Window{}, fmt.Errorf("to: %w", err)
		}
	}
	return window, nil
}
