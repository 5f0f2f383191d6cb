package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/planora/core-service/internal/transport"
)

const DefaultRouteTimeout = 10 * time.Second

// Timeout races each handler against a per-route deadline. On expiry a 504
// ROUTE_TIMEOUT envelope is written and any later writes from the handler
// are discarded; the handler itself is not interrupted, it observes the
// cancelled request context and winds down on its own.
func Timeout(d time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	if d <= 0 {
		d = DefaultRouteTimeout
	}
	response := transport.NewResponseWriter(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			tw := &timeoutWriter{w: w}
			done := make(chan struct{})

			go func() {
				defer close(done)
				defer func() {
					if p := recover(); p != nil {
						logger.Error("panic in timed route",
							"error", p,
							"method", r.Method,
							"url", r.URL.String(),
							"stack", string(debug.Stack()))
						if tw.claim() {
							response.WithCode(w, http.StatusInternalServerError, "ASYNC_HANDLER_ERROR", "Internal server error", nil)
						}
					}
				}()
				next.ServeHTTP(tw, r.WithContext(ctx))
			}()

			select {
			case <-done:
			case <-ctx.Done():
				if tw.claim() {
					response.WithCode(w, http.StatusGatewayTimeout, "ROUTE_TIMEOUT", "Route handler timeout", nil)
				} else {
					// Headers already went out; nothing can be corrected now.
					logger.Error("route deadline exceeded after response started",
						"method", r.Method,
						"url", r.URL.String(),
						"timeout", d.String())
				}
			}
		})
	}
}

// timeoutWriter serializes access to the underlying ResponseWriter between
// the handler goroutine and the timeout path. Whoever claims it first owns
// the response; everything after is dropped.
type timeoutWriter struct {
	mu           sync.Mutex
	w            http.ResponseWriter
	handlerWrote bool
	finished     bool
}

// claim hands ownership of the response to the error path. It reports
// false when the handler already started writing; afterwards every write
// coming through the wrapper is dropped.
func (tw *timeoutWriter) claim() bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.handlerWrote || tw.finished {
		return false
	}
	tw.finished = true
	return true
}

func (tw *timeoutWriter) Header() http.Header {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.finished {
		return make(http.Header)
	}
	return tw.w.Header()
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.finished {
		return
	}
	tw.handlerWrote = true
	tw.w.WriteHeader(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.finished {
		return len(b), nil
	}
	tw.handlerWrote = true
	return tw.w.Write(b)
}
