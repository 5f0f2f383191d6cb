package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	errors "github.com/planora/core-service/internal"
	"github.com/planora/core-service/pkg/logger"
)

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger   *slog.Logger
	Response *ResponseWriter
	verbose  bool
}

// NewBaseHandler creates a base handler with logger. verboseErrors controls
// whether internal error details reach the client (development builds only).
func NewBaseHandler(lg *slog.Logger, verboseErrors bool) *BaseHandler {
	if lg == nil {
		lg = logger.L()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{
		Logger:   lg,
		Response: NewResponseWriter(lg),
		verbose:  verboseErrors,
	}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// HandleError maps an error to an envelope. AppErrors keep their status and
// code; anything else becomes a 500 INTERNAL_ERROR with details withheld
// unless verbose errors are enabled.
func (h *BaseHandler) HandleError(w http.ResponseWriter, err error) {
	if appErr, ok := errors.IsAppError(err); ok {
		h.Logger.Error("request failed",
			"status", appErr.StatusCode,
			"code", appErr.Code,
			"message", appErr.Message)
		h.Response.WithCode(w, appErr.StatusCode, string(appErr.Code), appErr.Message, appErr.Details)
		return
	}

	h.Logger.Error("unexpected error", "error", err)
	message := "Internal server error"
	if h.verbose && err != nil {
		message = err.Error()
	}
	h.Response.WithCode(w, http.StatusInternalServerError, string(errors.ErrCodeInternal), message, nil)
}
