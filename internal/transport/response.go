package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Response is the uniform envelope every endpoint returns: success flag,
// message or error, ISO-8601 timestamp, and optional code/data/errors/meta.
type Response struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Error     string      `json:"error,omitempty"`
	Code      string      `json:"code,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Errors    interface{} `json:"errors,omitempty"`
	Meta      *Meta       `json:"meta,omitempty"`
}

type Meta struct {
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"hasNext"`
	HasPrev bool `json:"hasPrev"`
}

func NewPagination(page, limit, total int) *Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return &Pagination{
		Page:    page,
		Limit:   limit,
		Total:   total,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	}
}

// ResponseWriter builds and writes envelopes. All convenience variants go
// through the same two builders, success and failure.
type ResponseWriter struct {
	Logger *slog.Logger
}

func NewResponseWriter(logger *slog.Logger) *ResponseWriter {
	return &ResponseWriter{Logger: logger}
}

func (rw *ResponseWriter) write(w http.ResponseWriter, status int, resp *Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil && rw.Logger != nil {
		rw.Logger.Error("failed to encode response envelope", "error", err)
	}
}

func (rw *ResponseWriter) success(w http.ResponseWriter, status int, message string, data interface{}, meta *Meta) {
	rw.write(w, status, &Response{
		Success:   true,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Data:      data,
		Meta:      meta,
	})
}

func (rw *ResponseWriter) failure(w http.ResponseWriter, status int, code, message string, errs interface{}) {
	rw.write(w, status, &Response{
		Success:   false,
		Error:     message,
		Code:      code,
		Timestamp: time.Now().UTC(),
		Errors:    errs,
	})
}

func (rw *ResponseWriter) OK(w http.ResponseWriter, message string, data interface{}) {
	rw.success(w, http.StatusOK, message, data, nil)
}

func (rw *ResponseWriter) Created(w http.ResponseWriter, message string, data interface{}) {
	rw.success(w, http.StatusCreated, message, data, nil)
}

func (rw *ResponseWriter) NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func (rw *ResponseWriter) Paginated(w http.ResponseWriter, message string, data interface{}, pagination *Pagination) {
	rw.success(w, http.StatusOK, message, data, &Meta{Pagination: pagination})
}

func (rw *ResponseWriter) ValidationFailed(w http.ResponseWriter, message string, errs interface{}) {
	rw.failure(w, http.StatusBadRequest, "VALIDATION_ERROR", message, errs)
}

func (rw *ResponseWriter) BadRequest(w http.ResponseWriter, message string) {
	rw.failure(w, http.StatusBadRequest, "BAD_REQUEST", message, nil)
}

func (rw *ResponseWriter) NotFound(w http.ResponseWriter, message string) {
	rw.failure(w, http.StatusNotFound, "NOT_FOUND", message, nil)
}

func (rw *ResponseWriter) Unauthorized(w http.ResponseWriter, message string) {
	rw.failure(w, http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

func (rw *ResponseWriter) Forbidden(w http.ResponseWriter, message string) {
	rw.failure(w, http.StatusForbidden, "FORBIDDEN", message, nil)
}

func (rw *ResponseWriter) Conflict(w http.ResponseWriter, message string) {
	rw.failure(w, http.StatusConflict, "CONFLICT", message, nil)
}

func (rw *ResponseWriter) Internal(w http.ResponseWriter, message string) {
	rw.failure(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", message, nil)
}

func (rw *ResponseWriter) TooManyRequests(w http.ResponseWriter, message string) {
	rw.failure(w, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", message, nil)
}

func (rw *ResponseWriter) Unavailable(w http.ResponseWriter, message string) {
	rw.failure(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", message, nil)
}

// WithCode writes a failure envelope with an explicit status and code,
// for callers that map their own error taxonomy.
func (rw *ResponseWriter) WithCode(w http.ResponseWriter, status int, code, message string, errs interface{}) {
	rw.failure(w, status, code, message, errs)
}
