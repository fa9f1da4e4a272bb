package db

import (
	"fmt"
	"math"

	sq "github.com/Masterminds/squirrel"

	"github.com/recipeatlas/recipeatlas/internal/rules"
	"github.com/recipeatlas/recipeatlas/internal/types"
)

/*
 * Predicate to SQL translation.
 *
 * Every Predicate node maps one-to-one onto a squirrel Sqlizer over the
 * recipes table aliased as r:
 *   Equals / Compare   column predicate (camelCase field -> snake_case column)
 *   in / notIn         IN / NOT IN; empty lists render (1=0) / (1=1)
 *   HasTag             EXISTS over recipe_tags + tags filtered by type and id
 *   Equals tagId       EXISTS over recipe_tags by tag id, any taxonomy
 *   Not                NOT (...)
 *   And / Or           conjunction / disjunction
 *   Empty              no clause (nil)
 *
 * Semantics match rules.Evaluate; store tests cross-check the two.
 * Fields without a column are rejected so predicate input can never name an
 * arbitrary column.
 */

// columns maps predicate fields onto recipe columns.
var columns = map[string]string{
	types.FieldID:         "r.id",
	types.FieldCuisineID:  "r.cuisine_id",
	types.FieldLocationID: "r.location_id",
	types.FieldDifficulty: "r.difficulty",
	types.FieldCookTime:   "r.cook_time",
	types.FieldPrepTime:   "r.prep_time",
	types.FieldServings:   "r.servings",
}

const tagExistsByType = "EXISTS (SELECT 1 FROM recipe_tags rt JOIN tags t ON t.id = rt.tag_id " +
	"WHERE rt.recipe_id = r.id AND t.type = ? AND t.id = ?)"

const tagExistsByID = "EXISTS (SELECT 1 FROM recipe_tags rt WHERE rt.recipe_id = r.id AND rt.tag_id = ?)"

// WhereClause translates p into a WHERE condition. Empty yields nil.
func WhereClause(p rules.Predicate) (sq.Sqlizer, error) {
	if p.IsEmpty() {
		return nil, nil
	}
	return toSQL(p)
}

func toSQL(p rules.Predicate) (sq.Sqlizer, error) {
	switch p.Kind {
	case rules.KindEmpty:
		return sq.Expr("1=1"), nil

	case rules.KindAnd, rules.KindOr:
		parts := make([]sq.Sqlizer, 0, len(p.Children))
		for _, child := range p.Children {
			s, err := toSQL(child)
			if err != nil {
				return nil, err
			}
			parts = append(parts, s)
		}
		if p.Kind == rules.KindAnd {
			return sq.And(parts), nil
		}
		return sq.Or(parts), nil

	case rules.KindNot:
		if len(p.Children) != 1 {
			return nil, fmt.Errorf("not node has %d children, want 1", len(p.Children))
		}
		inner, err := toSQL(p.Children[0])
		if err != nil {
			return nil, err
		}
		query, args, err := inner.ToSql()
		if err != nil {
			return nil, err
		}
		return sq.Expr("NOT ("+query+")", args...), nil

	case rules.KindHasTag:
		return sq.Expr(tagExistsByType, string(p.TagType), p.Value), nil

	case rules.KindEquals:
		if p.Field == types.FieldTagID {
			return sq.Expr(tagExistsByID, p.Value), nil
		}
		col, value, err := operand(p.Field, p.Value)
		if err != nil {
			return nil, err
		}
		return sq.Eq{col: value}, nil

	case rules.KindCompare:
		col, value, err := operand(p.Field, p.Value)
		if err != nil {
			return nil, err
		}
		switch p.Op {
		case rules.CmpNot:
			return sq.NotEq{col: value}, nil
		case rules.CmpLt:
			return sq.Lt{col: value}, nil
		case rules.CmpLte:
			return sq.LtOrEq{col: value}, nil
		case rules.CmpGt:
			return sq.Gt{col: value}, nil
		case rules.CmpGte:
			return sq.GtOrEq{col: value}, nil
		case rules.CmpIn:
			return sq.Eq{col: value}, nil
		case rules.CmpNotIn:
			return sq.NotEq{col: value}, nil
		}
		return nil, fmt.Errorf("unsupported compare operator %q", p.Op)
	}
	return nil, fmt.Errorf("unsupported predicate kind %v", p.Kind)
}

// operand resolves the column and converts the value for binding.
// Integral floats bind as integers so PostgreSQL accepts them against
// INTEGER columns; a fractional operand casts the column instead.
func operand(field string, value any) (string, any, error) {
	col, ok := columns[field]
	if !ok {
		return "", nil, fmt.Errorf("%w: %q has no column", types.ErrUnknownField, field)
	}

	fractional := false
	convert := func(v any) any {
		f, ok := v.(float64)
		if !ok {
			return v
		}
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		fractional = true
		return f
	}

	var bound any
	if list, ok := value.([]any); ok {
		out := make([]any, len(list))
		for i, v := range list {
			out[i] = convert(v)
		}
		bound = out
	} else {
		bound = convert(value)
	}

	if fractional {
		col = "CAST(" + col + " AS DOUBLE PRECISION)"
	}
	return col, bound, nil
}
