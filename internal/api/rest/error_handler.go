package rest

import (
	"context"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	domainErrors "github.com/davidleathers/outreach-compliance-backend/internal/domain/errors"
)

// mapError converts an error into a status code and envelope body. Internal
// causes never reach the client.
func (b *BaseHandler) mapError(ctx context.Context, err error) (int, *ErrorResponse) {
	resp := &ErrorResponse{TraceID: traceID(ctx)}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		resp.Code = "VALIDATION_ERROR"
		resp.Message = validationErr.Message
		resp.Fields = validationErr.Fields
		return http.StatusBadRequest, resp
	}

	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		status := appErr.StatusCode
		if status == 0 {
			status = http.StatusInternalServerError
		}
		resp.Code = appErr.Code
		resp.Message = appErr.Message
		if status >= http.StatusInternalServerError {
			b.logger.ErrorContext(ctx, "request failed",
				"code", appErr.Code,
				"error", err.Error())
		} else {
			resp.Metadata = appErr.Details
		}
		return status, resp
	}

	switch {
	case errors.Is(err, context.Canceled):
		resp.Code = "REQUEST_CANCELED"
		resp.Message = "request was canceled"
		return http.StatusRequestTimeout, resp
	case errors.Is(err, context.DeadlineExceeded):
		resp.Code = "REQUEST_TIMEOUT"
		resp.Message = "request timed out"
		return http.StatusGatewayTimeout, resp
	}

	b.logger.ErrorContext(ctx, "unhandled error", "error", err.Error())
	resp.Code = "INTERNAL_ERROR"
	resp.Message = "an internal error occurred"
	return http.StatusInternalServerError, resp
}

func traceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
