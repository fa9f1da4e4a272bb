package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/recipeatlas/recipeatlas/internal/core/db"
	"github.com/recipeatlas/recipeatlas/internal/rules"
	"github.com/recipeatlas/recipeatlas/internal/types"
	"github.com/recipeatlas/recipeatlas/internal/validation"
)

// Error codes of the API envelope.
const (
	CodeRuleInvalid     = "RULE_INVALID"
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeTimeout         = "TIMEOUT"
	CodeInternal        = "INTERNAL_ERROR"
)

// InvalidRulesError rejects a rule config with every problem found.
type InvalidRulesError struct {
	Errors []string
}

func (e *InvalidRulesError) Error() string {
	return "invalid rule config: " + strings.Join(e.Errors, "; ")
}

// classify maps an error to an HTTP status, an envelope code and details.
//
// Rule problems are 422, malformed requests 400, missing rows 404.
// Everything else is a storage or internal failure.
func classify(err error) (int, string, map[string]any) {
	var invalidRules *InvalidRulesError
	var ruleErr *rules.ValidationError
	var reqErr *validation.RequestValidationError

	switch {
	case errors.As(err, &invalidRules):
		return http.StatusUnprocessableEntity, CodeRuleInvalid, map[string]any{"errors": invalidRules.Errors}
	case errors.As(err, &ruleErr):
		return http.StatusUnprocessableEntity, CodeRuleInvalid, map[string]any{"path": ruleErr.Path}
	case errors.Is(err, types.ErrUnknownField):
		return http.StatusUnprocessableEntity, CodeRuleInvalid, nil
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, CodeValidationError, reqErr.Details()
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound, CodeNotFound, nil
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout, nil
	default:
		return http.StatusInternalServerError, CodeInternal, nil
	}
}
