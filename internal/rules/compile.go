// internal/rules/compile.go
package rules

import (
	"fmt"

	"github.com/recipeatlas/recipeatlas/internal/types"
)

/*
 * Rule compilation.
 *
 * Compiles types.RuleConfig plus types.RuleContext into a Predicate.
 *
 * Auto mode: a single equality leaf {field: value}; no group logic.
 *
 * Custom mode:
 *   1. Translate each condition of each group, in input order
 *   2. Drop groups with no surviving conditions (blank rows are dropped)
 *   3. Combine a group's leaves with its own logic (AND / OR)
 *   4. Conjoin all group predicates: groups always AND with each other
 *   5. Exclude conditions are OR'd and wrapped in NOT
 *   6. ExcludedRecipeIDs adds {id: {notIn: [...]}}
 *   7. Nothing left to predicate yields Empty
 *
 * Malformed non-empty conditions are hard errors. Only blank conditions and
 * empty groups are skipped, so a typo in an admin form never widens a
 * collection to every recipe.
 *
 * Determinism: groups, conditions and excluded ids keep input order, and no
 * step sorts or deduplicates, so identical inputs give identical trees.
 */

// ValidationError reports a malformed rule element.
// Path locates it ("groups[1].conditions[0]", "exclude[2]", "mode").
type ValidationError struct {
	Path   string
	Detail string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := e.Err.Error()
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Path == "" {
		return msg
	}
	return e.Path + ": " + msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(path string, err error, detail string) *ValidationError {
	return &ValidationError{Path: path, Err: err, Detail: detail}
}

// CompileRulePredicate translates a rule config into a predicate.
// Returns *ValidationError for malformed configs.
func CompileRulePredicate(cfg types.RuleConfig, rctx types.RuleContext) (Predicate, error) {
	switch cfg.Mode {
	case types.ModeAuto:
		return compileAuto(cfg, rctx)
	case types.ModeCustom:
		return compileCustom(cfg, rctx)
	default:
		return Predicate{}, invalid("mode", types.ErrInvalidMode, fmt.Sprintf("got %q", cfg.Mode))
	}
}

// compileAuto emits {field: value}. An empty value is taken from context.
func compileAuto(cfg types.RuleConfig, rctx types.RuleContext) (Predicate, error) {
	if cfg.Field == "" {
		return Predicate{}, invalid("field", types.ErrMissingField, "")
	}
	value := cfg.Value
	if value == "" {
		bound, ok := rctx.Lookup(cfg.Field)
		if !ok {
			return Predicate{}, invalid("value", types.ErrMissingValue, "")
		}
		value = bound
	}
	return Equals(cfg.Field, value), nil
}

func compileCustom(cfg types.RuleConfig, rctx types.RuleContext) (Predicate, error) {
	parts := make([]Predicate, 0, len(cfg.Groups)+2)

	for gi, group := range cfg.Groups {
		path := fmt.Sprintf("groups[%d]", gi)
		if group.Logic != types.LogicAnd && group.Logic != types.LogicOr {
			return Predicate{}, invalid(path, types.ErrInvalidLogic, fmt.Sprintf("got %q", group.Logic))
		}

		leaves, err := translateConditions(path+".conditions", group.Conditions, rctx)
		if err != nil {
			return Predicate{}, err
		}
		if len(leaves) == 0 {
			continue
		}

		if group.Logic == types.LogicOr {
			parts = append(parts, Or(leaves...))
		} else {
			parts = append(parts, And(leaves...))
		}
	}

	excludes, err := translateConditions("exclude", cfg.Exclude, rctx)
	if err != nil {
		return Predicate{}, err
	}
	if len(excludes) > 0 {
		parts = append(parts, Not(Or(excludes...)))
	}

	if ids := excludedIDs(rctx.ExcludedRecipeIDs); len(ids) > 0 {
		parts = append(parts, Compare(types.FieldID, CmpNotIn, ids))
	}

	if len(parts) == 0 {
		return Empty(), nil
	}
	return And(parts...), nil
}

// translateConditions compiles non-blank conditions in order.
func translateConditions(path string, conds []types.Condition, rctx types.RuleContext) ([]Predicate, error) {
	leaves := make([]Predicate, 0, len(conds))
	for i, cond := range conds {
		if cond.IsBlank() {
			continue
		}
		leaf, err := translateCondition(fmt.Sprintf("%s[%d]", path, i), cond, rctx)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, leaf)
	}
	return leaves, nil
}

// translateCondition compiles one condition into a leaf.
// Checks run first so compile and ValidateRuleConfig reject the same inputs.
func translateCondition(path string, cond types.Condition, rctx types.RuleContext) (Predicate, error) {
	if problems := checkCondition(path, cond); len(problems) > 0 {
		return Predicate{}, problems[0]
	}

	value, err := bindValue(cond.Value, rctx)
	if err != nil {
		return Predicate{}, invalid(path, err, fmt.Sprintf("value %v", cond.Value))
	}

	kind := conditionFields[cond.Field]
	if kind == fieldTag {
		id, ok := coerceText(value)
		if !ok {
			return Predicate{}, invalid(path, types.ErrInvalidValue, "tag value must be a non-empty string")
		}
		return HasTag(cond.TagType, id), nil
	}

	switch op := cond.Operator; {
	case op == types.OpIn:
		list, ok := coerceList(value, kind)
		if !ok {
			return Predicate{}, invalid(path, types.ErrInvalidValue, "in requires an array")
		}
		return Compare(cond.Field, CmpIn, list), nil
	case op == types.OpEq || op == types.OpNeq:
		v, ok := coerceScalar(value, kind)
		if !ok {
			return Predicate{}, invalid(path, types.ErrInvalidValue, fmt.Sprintf("value %v", value))
		}
		if op == types.OpNeq {
			return Compare(cond.Field, CmpNot, v), nil
		}
		return Equals(cond.Field, v), nil
	default:
		n, ok := coerceNumber(value)
		if !ok {
			return Predicate{}, invalid(path, types.ErrInvalidValue, "range operators require a number")
		}
		return Compare(cond.Field, CompareOp(op), n), nil
	}
}

// checkCondition returns every problem with a non-blank condition.
// $parameter values are accepted for text and tag fields; binding happens at
// compile time against the context.
func checkCondition(path string, cond types.Condition) []*ValidationError {
	kind, ok := conditionFields[cond.Field]
	if !ok {
		return []*ValidationError{invalid(path, types.ErrUnknownField, fmt.Sprintf("field %q", cond.Field))}
	}

	var problems []*ValidationError

	if kind == fieldTag {
		switch {
		case cond.TagType == "":
			problems = append(problems, invalid(path, types.ErrMissingTagType, ""))
		case !cond.TagType.Valid():
			problems = append(problems, invalid(path, types.ErrInvalidTagType, fmt.Sprintf("got %q", cond.TagType)))
		}
		if cond.Operator != types.OpEq {
			problems = append(problems, invalid(path, types.ErrInvalidOperator, fmt.Sprintf("tag supports eq, got %q", cond.Operator)))
		}
		if _, isParam := parameterName(cond.Value); !isParam {
			if _, ok := coerceText(cond.Value); !ok {
				problems = append(problems, invalid(path, types.ErrInvalidValue, "tag value must be a non-empty string"))
			}
		}
		return problems
	}

	if !operatorAllowed(kind, cond.Operator) {
		return append(problems, invalid(path, types.ErrInvalidOperator, fmt.Sprintf("%q does not support %q", cond.Field, cond.Operator)))
	}

	switch {
	case cond.Operator == types.OpIn:
		if _, ok := coerceList(cond.Value, kind); !ok {
			problems = append(problems, invalid(path, types.ErrInvalidValue, "in requires an array"))
		}
	case isRangeOperator(cond.Operator) || kind == fieldNumeric:
		if _, ok := coerceNumber(cond.Value); !ok {
			problems = append(problems, invalid(path, types.ErrInvalidValue, fmt.Sprintf("%q requires a number", cond.Field)))
		}
	default:
		if _, isParam := parameterName(cond.Value); !isParam {
			if _, ok := coerceText(cond.Value); !ok {
				problems = append(problems, invalid(path, types.ErrInvalidValue, fmt.Sprintf("%q requires a string", cond.Field)))
			}
		}
	}
	return problems
}

// excludedIDs drops empty ids and widens to []any, preserving order.
func excludedIDs(ids []string) []any {
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}
