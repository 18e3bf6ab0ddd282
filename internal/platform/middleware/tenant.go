package middleware

import (
	"log/slog"
	"net/http"

	id "caseflow/pkg/domain"
	"caseflow/pkg/requestcontext"
)

// TenantHeader carries the court district on every API request.
const TenantHeader = "X-Court-District"

// RequireTenant resolves the court district header into the request context.
// Requests without a valid district never reach a handler; tenant scoping is
// not optional anywhere in the engine.
func RequireTenant(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenant, err := id.ParseTenantID(r.Header.Get(TenantHeader))
			if err != nil {
				logger.WarnContext(r.Context(), "missing or invalid court district header",
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":"validation","message":"X-Court-District header is required"}`))
				return
			}
			ctx := requestcontext.WithTenant(r.Context(), tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
