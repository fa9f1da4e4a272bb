// internal/rules/operators.go
package rules

import (
	"github.com/recipeatlas/recipeatlas/internal/types"
)

/*
 * Field registry and comparison logic.
 *
 * Every condition field belongs to one kind, and the kind decides which
 * operators are legal:
 *   - tag:     eq only (membership within one taxonomy)
 *   - numeric: eq, neq, lt, lte, gt, gte, in
 *   - text:    eq, neq, in
 *
 * Comparison helpers implement the same operators over in-memory values for
 * Evaluate. Numeric comparison handles int/float mixing because recipe
 * attributes are ints while compiled values are float64.
 */

type fieldKind int

const (
	fieldUnknown fieldKind = iota
	fieldTag
	fieldNumeric
	fieldText
)

// conditionFields maps condition field names to their kind.
var conditionFields = map[string]fieldKind{
	types.FieldTag:        fieldTag,
	types.FieldCookTime:   fieldNumeric,
	types.FieldPrepTime:   fieldNumeric,
	types.FieldServings:   fieldNumeric,
	types.FieldCuisineID:  fieldText,
	types.FieldLocationID: fieldText,
	types.FieldDifficulty: fieldText,
}

// autoFields lists the fields an auto rule may match on.
var autoFields = map[string]bool{
	types.FieldCuisineID:  true,
	types.FieldLocationID: true,
	types.FieldTagID:      true,
	types.FieldDifficulty: true,
}

// KnownConditionField reports whether name may appear in a condition.
func KnownConditionField(name string) bool {
	_, ok := conditionFields[name]
	return ok
}

// operatorAllowed reports whether op is legal for the field kind.
func operatorAllowed(kind fieldKind, op types.Operator) bool {
	switch kind {
	case fieldTag:
		return op == types.OpEq
	case fieldNumeric:
		switch op {
		case types.OpEq, types.OpNeq, types.OpLt, types.OpLte, types.OpGt, types.OpGte, types.OpIn:
			return true
		}
	case fieldText:
		switch op {
		case types.OpEq, types.OpNeq, types.OpIn:
			return true
		}
	}
	return false
}

// isRangeOperator reports whether op needs a numeric operand.
func isRangeOperator(op types.Operator) bool {
	switch op {
	case types.OpLt, types.OpLte, types.OpGt, types.OpGte:
		return true
	}
	return false
}

// compareValues applies a comparison leaf operator to value and target.
func compareValues(op CompareOp, value, target any) bool {
	switch op {
	case CmpNot:
		return !compareEqual(value, target)
	case CmpLt:
		c, ok := compareNumeric(value, target)
		return ok && c < 0
	case CmpLte:
		c, ok := compareNumeric(value, target)
		return ok && c <= 0
	case CmpGt:
		c, ok := compareNumeric(value, target)
		return ok && c > 0
	case CmpGte:
		c, ok := compareNumeric(value, target)
		return ok && c >= 0
	case CmpIn:
		return compareIn(value, target)
	case CmpNotIn:
		return !compareIn(value, target)
	default:
		return false
	}
}

// compareEqual performs equality comparison with numeric type coercion.
func compareEqual(a, b any) bool {
	na, oka := coerceNumber(a)
	nb, okb := coerceNumber(b)
	if oka && okb {
		return na == nb
	}
	if oka != okb {
		return false
	}
	sa, oka := a.(string)
	sb, okb := b.(string)
	return oka && okb && sa == sb
}

// compareNumeric performs three-way numeric comparison (-1/0/1).
// The second result is false for non-numeric operands.
func compareNumeric(a, b any) (int, bool) {
	na, oka := coerceNumber(a)
	nb, okb := coerceNumber(b)
	if !oka || !okb {
		return 0, false
	}
	switch {
	case na < nb:
		return -1, true
	case na > nb:
		return 1, true
	default:
		return 0, true
	}
}

// compareIn checks if value exists in set using equality semantics.
func compareIn(value, set any) bool {
	list, ok := set.([]any)
	if !ok {
		return false
	}
	for _, elem := range list {
		if compareEqual(value, elem) {
			return true
		}
	}
	return false
}
