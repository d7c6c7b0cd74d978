package httpserver

import (
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap"

	"parkflow/backend/services/parking-service/internal/http/handlers"
	"parkflow/backend/services/parking-service/internal/http/middleware"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	Sessions *handlers.SessionsHandlers
	Registry *handlers.RegistryHandlers
	Bookings *handlers.BookingsHandlers
	Events   http.HandlerFunc
	Health   http.HandlerFunc
	Tokens   *middleware.TokenService
	Logger   *zap.Logger
}

// NewRouter wires HTTP routes with middleware.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/health", method(http.MethodGet, deps.Health))

	scoped := func(scope string, handler http.HandlerFunc) http.Handler {
		return middleware.Chain(handler, middleware.Auth(deps.Tokens, false), middleware.RequireScope(scope))
	}

	mux.Handle("/parking/sessions/open", methods(map[string]http.Handler{
		http.MethodGet:  scoped(middleware.ScopeRead, deps.Sessions.ListOpen),
		http.MethodPost: scoped(middleware.ScopeWrite, deps.Sessions.Open),
	}))
	mux.Handle("/parking/sessions/close", method(http.MethodPost, scoped(middleware.ScopeWrite, deps.Sessions.Close)))
	mux.Handle("/parking/sessions/closed", method(http.MethodGet, scoped(middleware.ScopeRead, deps.Sessions.ListClosed)))
	mux.Handle("/parking/sessions/active", method(http.MethodGet, scoped(middleware.ScopeRead, deps.Sessions.Active)))

	mux.Handle("/parking/tariff", methods(map[string]http.Handler{
		http.MethodGet: scoped(middleware.ScopeRead, deps.Registry.GetTariff),
		http.MethodPut: scoped(middleware.ScopeAdmin, deps.Registry.PutTariff),
	}))
	mux.Handle("/parking/frequent-clients", methods(map[string]http.Handler{
		http.MethodGet:  scoped(middleware.ScopeRead, deps.Registry.ListFrequentClients),
		http.MethodPost: scoped(middleware.ScopeAdmin, deps.Registry.CreateFrequentClient),
	}))
	mux.Handle("/parking/frequent-clients/remove", method(http.MethodDelete, scoped(middleware.ScopeAdmin, deps.Registry.RemoveFrequentClient)))

	mux.Handle("/parking/service-bookings", methods(map[string]http.Handler{
		http.MethodGet:  scoped(middleware.ScopeRead, deps.Bookings.List),
		http.MethodPost: scoped(middleware.ScopeWrite, deps.Bookings.Create),
	}))
	mux.Handle("/parking/service-bookings/update", method(http.MethodPut, scoped(middleware.ScopeWrite, deps.Bookings.Update)))
	mux.Handle("/parking/service-bookings/remove", method(http.MethodDelete, scoped(middleware.ScopeWrite, deps.Bookings.Cancel)))

	if deps.Events != nil {
		mux.Handle("/parking/events/ws", method(http.MethodGet, middleware.Chain(
			deps.Events,
			middleware.Auth(deps.Tokens, true),
			middleware.RequireScope(middleware.ScopeRead),
		)))
	}

	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.Logging(deps.Logger),
		middleware.Recovery(deps.Logger),
	)
}

func method(expected string, handler http.Handler) http.Handler {
	return methods(map[string]http.Handler{expected: handler})
}

func methods(byMethod map[string]http.Handler) http.Handler {
	allowed := make([]string, 0, len(byMethod))
	for m := range byMethod {
		allowed = append(allowed, m)
	}
	sort.Strings(allowed)
	allow := strings.Join(allowed, ", ")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler, ok := byMethod[r.Method]
		if !ok {
			w.Header().Set("Allow", allow)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
