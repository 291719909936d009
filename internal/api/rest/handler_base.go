package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domainErrors "github.com/davidleathers/outreach-compliance-backend/internal/domain/errors"
)

// ResponseEnvelope wraps every JSON response
type ResponseEnvelope struct {
	Success bool           `json:"success"`
	Data    interface{}    `json:"data,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
	Meta    ResponseMeta   `json:"meta"`
}

// ErrorResponse is the error half of the envelope
type ErrorResponse struct {
	Code     string                 `json:"code"`
	Message  string                 `json:"message"`
	Fields   map[string][]string    `json:"fields,omitempty"`
	TraceID  string                 `json:"trace_id,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ResponseMeta carries request correlation data
type ResponseMeta struct {
	RequestID    string    `json:"request_id"`
	Timestamp    time.Time `json:"timestamp"`
	Version      string    `json:"version"`
	ResponseTime int64     `json:"response_time_ms"`
}

// ValidationError reports per-field problems with a decoded request
type ValidationError struct {
	Message string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// HandlerFunc is the shape of every API handler: it returns the response
// payload or an error to be rendered into the envelope.
type HandlerFunc func(ctx context.Context, r *http.Request) (interface{}, error)

// BaseHandler holds what every handler group needs
type BaseHandler struct {
	validator    *validator.Validate
	tracer       trace.Tracer
	logger       *slog.Logger
	version      string
	maxBodyBytes int64
}

// NewBaseHandler creates the shared handler state
func NewBaseHandler(logger *slog.Logger, version string, maxBodyBytes int64) *BaseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BaseHandler{
		validator:    validator.New(validator.WithRequiredStructEnabled()),
		tracer:       otel.Tracer("api.rest"),
		logger:       logger,
		version:      version,
		maxBodyBytes: maxBodyBytes,
	}
}

// WrapHandler turns a HandlerFunc into an http.HandlerFunc that traces the
// call and renders the envelope with the given success status.
func (b *BaseHandler) WrapHandler(method, pattern string, status int, handler HandlerFunc) http.HandlerFunc {
	spanName := method + " " + pattern
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := b.tracer.Start(r.Context(), spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", method),
				attribute.String("http.route", pattern),
			))
		defer span.End()

		data, err := handler(ctx, r.WithContext(ctx))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			b.writeError(ctx, w, err, start)
			return
		}

		span.SetAttributes(attribute.Int("http.status_code", status))
		b.writeSuccess(ctx, w, status, data, start)
	}
}

// ParseAndValidate decodes a JSON body into dst and runs struct validation
func (b *BaseHandler) ParseAndValidate(r *http.Request, dst interface{}) error {
	if err := b.decodeJSON(r, dst); err != nil {
		return err
	}
	if err := b.validator.Struct(dst); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func (b *BaseHandler) decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return &ValidationError{Message: "request body is required"}
	}

	body := io.Reader(r.Body)
	if b.maxBodyBytes > 0 {
		body = io.LimitReader(r.Body, b.maxBodyBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return &ValidationError{Message: "could not read request body"}
	}
	if b.maxBodyBytes > 0 && int64(len(data)) > b.maxBodyBytes {
		return domainErrors.NewValidationError("REQUEST_TOO_LARGE",
			fmt.Sprintf("request body exceeds %d bytes", b.maxBodyBytes))
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return &ValidationError{Message: "request body is required"}
	}

	if err := json.Unmarshal(data, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return &ValidationError{
				Message: "invalid request body",
				Fields:  map[string][]string{typeErr.Field: {fmt.Sprintf("must be a %s", jsonTypeName(typeErr.Type.Kind().String()))}},
			}
		}
		return &ValidationError{Message: "invalid JSON in request body"}
	}
	return nil
}

func jsonTypeName(kind string) string {
	switch kind {
	case "string":
		return "string"
	case "bool":
		return "boolean"
	case "slice", "array":
		return "list"
	case "map", "struct", "ptr":
		return "object"
	default:
		return "number"
	}
}

// formatValidationError converts validator errors into field messages
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return &ValidationError{Message: err.Error()}
	}

	fields := make(map[string][]string)
	for _, fe := range validationErrors {
		field := toSnakeCase(fe.Field())
		fields[field] = append(fields[field], validationMessage(fe))
	}

	return &ValidationError{
		Message: "request validation failed",
		Fields:  fields,
	}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	case "required_without":
		return fmt.Sprintf("is required when %s is not provided", toSnakeCase(fe.Param()))
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (b *BaseHandler) writeSuccess(ctx context.Context, w http.ResponseWriter, status int, data interface{}, start time.Time) {
	writeJSON(w, status, ResponseEnvelope{
		Success: true,
		Data:    data,
		Meta:    b.meta(ctx, start),
	})
}

func (b *BaseHandler) writeError(ctx context.Context, w http.ResponseWriter, err error, start time.Time) {
	status, body := b.mapError(ctx, err)
	writeJSON(w, status, ResponseEnvelope{
		Success: false,
		Error:   body,
		Meta:    b.meta(ctx, start),
	})
}

func (b *BaseHandler) meta(ctx context.Context, start time.Time) ResponseMeta {
	return ResponseMeta{
		RequestID:    RequestIDFromContext(ctx),
		Timestamp:    time.Now().UTC(),
		Version:      b.version,
		ResponseTime: time.Since(start).Milliseconds(),
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeEnvelopeError renders an error outside of a wrapped handler, for
// middleware rejections.
func writeEnvelopeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, ResponseEnvelope{
		Success: false,
		Error: &ErrorResponse{
			Code:    code,
			Message: message,
			TraceID: traceID(r.Context()),
		},
		Meta: ResponseMeta{
			RequestID: RequestIDFromContext(r.Context()),
			Timestamp: time.Now().UTC(),
		},
	})
}
