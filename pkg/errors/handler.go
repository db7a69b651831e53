package errors

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// GenericMessage is shown for any failure that is not an AppError.
const GenericMessage = "Something went wrong."

// LoginPath is where unauthenticated page navigations are sent.
const LoginPath = "/auth/login"

// ErrorResponse represents the JSON error response format
type ErrorResponse struct {
	Error     bool        `json:"error"`
	Type      string      `json:"type"`
	Message   string      `json:"message"`
	Code      string      `json:"code,omitempty"`
	Fields    FieldErrors `json:"fields,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// PageRenderer draws the themed full-page error view.
type PageRenderer interface {
	RenderError(w http.ResponseWriter, r *http.Request, status int, message string)
}

// ErrorHandler handles errors and sends appropriate HTTP responses
type ErrorHandler struct {
	logger *zap.Logger
	pages  PageRenderer
	debug  bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *zap.Logger, pages PageRenderer, debug bool) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
		pages:  pages,
		debug:  debug,
	}
}

type responseKind int

const (
	kindPage responseKind = iota
	kindFragment
	kindJSON
	kindPlain
)

func kindOf(r *http.Request) responseKind {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return kindJSON
	}
	if r.Header.Get("HX-Request") == "true" {
		return kindFragment
	}
	return kindPage
}

// Handle processes an error and sends a response shaped for the caller:
// a page, an htmx fragment, or JSON.
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	h.handle(w, r, err, kindOf(r))
}

// HandleJSON always answers with a JSON body.
func (h *ErrorHandler) HandleJSON(w http.ResponseWriter, r *http.Request, err error) {
	h.handle(w, r, err, kindJSON)
}

// HandlePlain always answers with a text/plain body, whatever the caller
// asked for. Used ahead of routing, where no page or fragment applies.
func (h *ErrorHandler) HandlePlain(w http.ResponseWriter, r *http.Request, err error) {
	h.handle(w, r, err, kindPlain)
}

func (h *ErrorHandler) handle(w http.ResponseWriter, r *http.Request, err error, kind responseKind) {
	if err == nil {
		return
	}

	status, response := h.describe(r, err)

	if appErr := GetAppError(err); appErr != nil && appErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(appErr.RetryAfter))
	}

	switch kind {
	case kindJSON:
		h.sendJSON(w, status, response)
	case kindPlain:
		http.Error(w, response.Message, status)
	case kindFragment:
		if status == http.StatusUnauthorized {
			w.Header().Set("HX-Redirect", LoginPath)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, `<div class="error" role="alert">%s</div>`, html.EscapeString(response.Message))
	default:
		if status == http.StatusUnauthorized {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		if h.pages == nil {
			http.Error(w, response.Message, status)
			return
		}
		h.pages.RenderError(w, r, status, response.Message)
	}
}

func (h *ErrorHandler) describe(r *http.Request, err error) (int, ErrorResponse) {
	requestID := r.Header.Get("X-Request-ID")

	appErr := GetAppError(err)
	if appErr == nil {
		h.logger.Error("Unhandled error",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID),
		)
		message := GenericMessage
		if h.debug {
			message = err.Error()
		}
		return http.StatusInternalServerError, ErrorResponse{
			Error:     true,
			Type:      string(ErrorTypeInternal),
			Message:   message,
			RequestID: requestID,
		}
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	h.logError(r, appErr, status)

	message := appErr.Message
	if status >= 500 && !h.debug {
		message = GenericMessage
	}
	return status, ErrorResponse{
		Error:     true,
		Type:      string(appErr.Type),
		Message:   message,
		Code:      appErr.Code,
		Fields:    appErr.Fields,
		RequestID: requestID,
	}
}

// logError logs an application error with appropriate level
func (h *ErrorHandler) logError(r *http.Request, err *AppError, status int) {
	fields := []zap.Field{
		zap.String("error_type", string(err.Type)),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("request_id", r.Header.Get("X-Request-ID")),
	}

	if err.Code != "" {
		fields = append(fields, zap.String("error_code", err.Code))
	}
	if err.Cause != nil {
		fields = append(fields, zap.Error(err.Cause))
	}
	if len(err.Fields) > 0 {
		fields = append(fields, zap.Any("fields", err.Fields))
	}

	switch {
	case status >= 500:
		h.logger.Error(err.Message, fields...)
	case status >= 400:
		h.logger.Warn(err.Message, fields...)
	default:
		h.logger.Info(err.Message, fields...)
	}
}

// sendJSON sends a JSON response
func (h *ErrorHandler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode error response", zap.Error(err))
	}
}

// Middleware returns an HTTP middleware that converts panics into a 500
func (h *ErrorHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.Handle(w, r, fmt.Errorf("panic: %v", rec))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
