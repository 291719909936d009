package rest

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

//go:embed openapi.yaml
var openAPIDocument []byte

// ContractValidator checks requests against the embedded OpenAPI document
type ContractValidator struct {
	doc    *openapi3.T
	router routers.Router
}

// NewContractValidator loads and validates the embedded document
func NewContractValidator() (*ContractValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPIDocument)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build OpenAPI router: %w", err)
	}

	return &ContractValidator{doc: doc, router: router}, nil
}

// Document returns the parsed OpenAPI document
func (v *ContractValidator) Document() *openapi3.T {
	return v.doc
}

// ValidateRequest checks r against its documented operation. Requests for
// undocumented routes return routers.ErrPathNotFound or ErrMethodNotAllowed.
func (v *ContractValidator) ValidateRequest(ctx context.Context, r *http.Request) error {
	route, pathParams, err := v.router.FindRoute(r)
	if err != nil {
		return err
	}

	input := &openapi3filter.RequestValidationInput{
		Request:    r,
		PathParams: pathParams,
		Route:      route,
		Options: &openapi3filter.Options{
			MultiError: true,
		},
	}
	return openapi3filter.ValidateRequest(ctx, input)
}

// ContractValidationConfig selects which requests are checked
type ContractValidationConfig struct {
	SkipPaths []string
}

// DefaultContractValidationConfig skips operational endpoints
func DefaultContractValidationConfig() ContractValidationConfig {
	return ContractValidationConfig{
		SkipPaths: []string{"/health", "/ready", "/metrics", "/api/v1/openapi"},
	}
}

// ContractValidationMiddleware rejects requests that violate the contract.
// Undocumented routes pass through so the mux can answer 404 or 405.
func ContractValidationMiddleware(validator *ContractValidator, config ContractValidationConfig, logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, p) {
					next.ServeHTTP(w, r)
					return
				}
			}

			err := validator.ValidateRequest(r.Context(), r)
			switch {
			case err == nil:
			case errors.Is(err, routers.ErrPathNotFound), errors.Is(err, routers.ErrMethodNotAllowed):
			default:
				logger.WarnContext(r.Context(), "contract violation",
					"method", r.Method,
					"path", r.URL.Path,
					"error", err.Error())
				writeEnvelopeError(w, r, http.StatusBadRequest,
					"CONTRACT_VIOLATION", contractMessage(err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func contractMessage(err error) string {
	var multi openapi3.MultiError
	if errors.As(err, &multi) && len(multi) > 0 {
		err = multi[0]
	}
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Parameter != nil {
			return fmt.Sprintf("invalid parameter %s", reqErr.Parameter.Name)
		}
		if reqErr.RequestBody != nil {
			return "request body does not match the API contract"
		}
	}
	return "request does not match the API contract"
}
