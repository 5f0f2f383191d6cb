package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/planora/core-service/internal/transport"
)

// RecoveryMiddleware converts panics into a 500 envelope when headers have
// not been sent yet; when they have, the panic is only logged.
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	response := transport.NewResponseWriter(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						"error", err,
						"method", r.Method,
						"url", r.URL.String(),
						"stack", string(debug.Stack()))

					response.WithCode(w, http.StatusInternalServerError, "ASYNC_HANDLER_ERROR", "Internal server error", nil)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
