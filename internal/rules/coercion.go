// internal/rules/coercion.go
package rules

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/recipeatlas/recipeatlas/internal/types"
)

/*
 * Condition value coercion.
 *
 * Rule configs arrive as decoded JSON (float64, string, []any) or as Go
 * literals written by callers (int, []string). Coercion normalises them
 * before they enter a predicate:
 *   - numbers: every integer and float kind widens to float64; NaN and
 *     infinities are rejected
 *   - text: strings only, no number-to-string conversion (ids are opaque)
 *   - lists: []any, []string, []float64, []int, each element coerced
 *
 * Strict mode: numeric strings such as "30" are not numbers. An admin form
 * that sends strings for cookTime gets a validation error rather than a
 * silently different comparison.
 */

// coerceNumber converts v to float64 if it is a finite number.
func coerceNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// coerceText accepts non-empty strings.
func coerceText(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// coerceScalar coerces v according to the field kind.
func coerceScalar(v any, kind fieldKind) (any, bool) {
	if kind == fieldNumeric {
		return coerceNumber(v)
	}
	return coerceText(v)
}

// coerceList converts an array value into []any with every element coerced.
func coerceList(v any, kind fieldKind) ([]any, bool) {
	var raw []any
	switch vv := v.(type) {
	case []any:
		raw = vv
	case []string:
		raw = make([]any, len(vv))
		for i, s := range vv {
			raw[i] = s
		}
	case []float64:
		raw = make([]any, len(vv))
		for i, f := range vv {
			raw[i] = f
		}
	case []int:
		raw = make([]any, len(vv))
		for i, n := range vv {
			raw[i] = n
		}
	default:
		return nil, false
	}

	out := make([]any, 0, len(raw))
	for _, elem := range raw {
		c, ok := coerceScalar(elem, kind)
		if !ok {
			return nil, false
		}
		out = append(out, c)
	}
	return out, true
}

// parameterPrefix marks a condition value bound from RuleContext ("$cuisineId").
const parameterPrefix = "$"

// parameterName returns the context field a value refers to, if any.
func parameterName(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || !strings.HasPrefix(s, parameterPrefix) {
		return "", false
	}
	name := strings.TrimPrefix(s, parameterPrefix)
	switch name {
	case types.FieldCuisineID, types.FieldLocationID, types.FieldTagID:
		return name, true
	}
	return "", false
}

// bindValue substitutes a $parameter value from the context.
// Non-parameter values are returned unchanged.
func bindValue(v any, rctx types.RuleContext) (any, error) {
	name, ok := parameterName(v)
	if !ok {
		return v, nil
	}
	bound, ok := rctx.Lookup(name)
	if !ok {
		return nil, types.ErrUnboundParameter
	}
	return bound, nil
}
