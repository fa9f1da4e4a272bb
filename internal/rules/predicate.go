// internal/rules/predicate.go
package rules

import (
	"encoding/json"

	"github.com/recipeatlas/recipeatlas/internal/types"
)

/*
 * Backend-agnostic predicate tree.
 *
 * A Predicate is the compiler's output: AND/OR/NOT combinators over three
 * leaf kinds. Storage layers translate it one-to-one into their own query
 * language (see internal/core/db/where.go for SQL).
 *
 * JSON shape:
 *   Empty    {}
 *   And      {"AND": [...]}
 *   Or       {"OR": [...]}
 *   Not      {"NOT": {...}}
 *   Equals   {"cuisineId": "c1"}
 *   Compare  {"cookTime": {"lte": 30}}
 *   HasTag   {"tags": {"some": {"tag": {"type": "crowd", "id": "t1"}}}}
 *
 * Empty is an explicit variant rather than a zero-length combinator. The
 * compiler never emits And/Or without children, so "matches everything" and
 * "matches nothing" cannot be confused, and a leaf whose value is 0 or ""
 * is still a leaf.
 */

// Kind discriminates Predicate variants.
type Kind int

const (
	KindEmpty Kind = iota
	KindAnd
	KindOr
	KindNot
	KindEquals
	KindCompare
	KindHasTag
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	case KindNot:
		return "not"
	case KindEquals:
		return "equals"
	case KindCompare:
		return "compare"
	case KindHasTag:
		return "has_tag"
	default:
		return "unknown"
	}
}

// CompareOp is the operator of a comparison leaf.
type CompareOp string

const (
	CmpNot   CompareOp = "not"
	CmpLt    CompareOp = "lt"
	CmpLte   CompareOp = "lte"
	CmpGt    CompareOp = "gt"
	CmpGte   CompareOp = "gte"
	CmpIn    CompareOp = "in"
	CmpNotIn CompareOp = "notIn"
)

// Predicate is one node of a compiled rule.
type Predicate struct {
	Kind     Kind
	Children []Predicate   // And, Or; Not holds exactly one child
	Field    string        // Equals, Compare
	Op       CompareOp     // Compare
	Value    any           // Equals, Compare; tag id for HasTag
	TagType  types.TagType // HasTag
}

// Empty returns the predicate that constrains nothing.
func Empty() Predicate {
	return Predicate{Kind: KindEmpty}
}

// And conjoins children.
func And(children ...Predicate) Predicate {
	return Predicate{Kind: KindAnd, Children: children}
}

// Or disjoins children.
func Or(children ...Predicate) Predicate {
	return Predicate{Kind: KindOr, Children: children}
}

// Not negates p.
func Not(p Predicate) Predicate {
	return Predicate{Kind: KindNot, Children: []Predicate{p}}
}

// Equals matches records whose field equals value.
func Equals(field string, value any) Predicate {
	return Predicate{Kind: KindEquals, Field: field, Value: value}
}

// Compare applies op to field and value.
func Compare(field string, op CompareOp, value any) Predicate {
	return Predicate{Kind: KindCompare, Field: field, Op: op, Value: value}
}

// HasTag matches records with at least one tag of type t and the given id.
func HasTag(t types.TagType, id string) Predicate {
	return Predicate{Kind: KindHasTag, TagType: t, Value: id}
}

// IsEmpty reports whether p constrains nothing.
func (p Predicate) IsEmpty() bool {
	return p.Kind == KindEmpty
}

// Tree renders p as plain maps and slices in the documented JSON shape.
// Values are limited to string, float64, bool and []any so the result can be
// handed to any JSON-like encoder (structpb included).
func (p Predicate) Tree() map[string]any {
	switch p.Kind {
	case KindAnd:
		return map[string]any{"AND": childTrees(p.Children)}
	case KindOr:
		return map[string]any{"OR": childTrees(p.Children)}
	case KindNot:
		if len(p.Children) == 0 {
			return map[string]any{}
		}
		return map[string]any{"NOT": p.Children[0].Tree()}
	case KindEquals:
		return map[string]any{p.Field: plainValue(p.Value)}
	case KindCompare:
		return map[string]any{p.Field: map[string]any{string(p.Op): plainValue(p.Value)}}
	case KindHasTag:
		return map[string]any{
			"tags": map[string]any{
				"some": map[string]any{
					"tag": map[string]any{
						"type": string(p.TagType),
						"id":   p.Value,
					},
				},
			},
		}
	default:
		return map[string]any{}
	}
}

// MarshalJSON implements json.Marshaler using Tree.
func (p Predicate) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Tree())
}

func childTrees(children []Predicate) []any {
	out := make([]any, len(children))
	for i, c := range children {
		out[i] = c.Tree()
	}
	return out
}

// plainValue widens numbers to float64 and string slices to []any.
func plainValue(v any) any {
	if n, ok := coerceNumber(v); ok {
		return n
	}
	switch vv := v.(type) {
	case []any:
		out := make([]any, len(vv))
		for i, e := range vv {
			out[i] = plainValue(e)
		}
		return out
	case []string:
		out := make([]any, len(vv))
		for i, e := range vv {
			out[i] = e
		}
		return out
	}
	return v
}
