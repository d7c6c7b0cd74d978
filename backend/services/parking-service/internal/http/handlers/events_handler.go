package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

// EventStreamer serves a tenant's live session feed.
type EventStreamer interface {
	Serve(w http.ResponseWriter, r *http.Request, tenantID int64)
}

// NewEventsHandler returns GET /parking/events/ws handler.
func NewEventsHandler(streamer EventStreamer, resolver OperatorResolver, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		op, ok := operator(w, r, resolver, logger)
		if !ok {
			return
		}
		streamer.Serve(w, r, op.TenantID)
	}
}
