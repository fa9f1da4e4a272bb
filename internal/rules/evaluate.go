// internal/rules/evaluate.go
package rules

import (
	"github.com/recipeatlas/recipeatlas/internal/types"
)

/*
 * In-memory predicate evaluation.
 *
 * Evaluate is the reference semantics of a Predicate over a single recipe.
 * The SQL translation in internal/core/db must agree with it; tests there
 * cross-check both against the same fixtures.
 *
 * Semantics:
 *   - Empty matches every recipe
 *   - And with no children matches, Or with no children does not (the
 *     compiler never emits either, but hand-built trees may)
 *   - Not negates its single child
 *   - Equals on tagId matches tag membership in any taxonomy
 *   - HasTag matches a tag with both the given type and id
 *   - Fields the recipe does not carry never match
 *
 * Short-circuit: And stops at the first false child, Or at the first true.
 */

// Evaluate reports whether recipe r satisfies p.
func Evaluate(p Predicate, r types.Recipe) bool {
	switch p.Kind {
	case KindEmpty:
		return true
	case KindAnd:
		for _, child := range p.Children {
			if !Evaluate(child, r) {
				return false
			}
		}
		return true
	case KindOr:
		for _, child := range p.Children {
			if Evaluate(child, r) {
				return true
			}
		}
		return false
	case KindNot:
		if len(p.Children) != 1 {
			return false
		}
		return !Evaluate(p.Children[0], r)
	case KindEquals:
		if p.Field == types.FieldTagID {
			id, ok := p.Value.(string)
			return ok && r.HasTag("", id)
		}
		v, ok := r.Attr(p.Field)
		return ok && compareEqual(v, p.Value)
	case KindCompare:
		v, ok := r.Attr(p.Field)
		return ok && compareValues(p.Op, v, p.Value)
	case KindHasTag:
		id, ok := p.Value.(string)
		return ok && r.HasTag(p.TagType, id)
	default:
		return false
	}
}

// Filter returns the recipes that satisfy p, preserving order.
func Filter(p Predicate, recipes []types.Recipe) []types.Recipe {
	out := make([]types.Recipe, 0, len(recipes))
	for _, r := range recipes {
		if Evaluate(p, r) {
			out = append(out, r)
		}
	}
	return out
}
