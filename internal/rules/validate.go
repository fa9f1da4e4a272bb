// internal/rules/validate.go
package rules

import (
	"fmt"

	"github.com/recipeatlas/recipeatlas/internal/types"
)

// ValidationResult is the outcome of ValidateRuleConfig.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ValidateRuleConfig checks a rule config without compiling it.
// Every problem is collected so an admin form can show them all at once.
// It never fails; a nil-safe result is always returned.
func ValidateRuleConfig(cfg types.RuleConfig) ValidationResult {
	problems := collectProblems(cfg)
	return newResult(problems)
}

func newResult(problems []*ValidationError) ValidationResult {
	res := ValidationResult{Valid: len(problems) == 0, Errors: make([]string, 0, len(problems))}
	for _, p := range problems {
		res.Errors = append(res.Errors, p.Error())
	}
	return res
}

func collectProblems(cfg types.RuleConfig) []*ValidationError {
	switch cfg.Mode {
	case types.ModeAuto:
		return checkAuto(cfg)
	case types.ModeCustom:
		return checkCustom(cfg)
	default:
		return []*ValidationError{invalid("mode", types.ErrInvalidMode, fmt.Sprintf("got %q", cfg.Mode))}
	}
}

// checkAuto requires a known auto field. An empty value is allowed because
// it is bound from the collection's context at compile time.
func checkAuto(cfg types.RuleConfig) []*ValidationError {
	if cfg.Field == "" {
		return []*ValidationError{invalid("field", types.ErrMissingField, "")}
	}
	if !autoFields[cfg.Field] {
		return []*ValidationError{invalid("field", types.ErrUnknownField, fmt.Sprintf("auto rules match cuisineId, locationId, tagId or difficulty, got %q", cfg.Field))}
	}
	return nil
}

func checkCustom(cfg types.RuleConfig) []*ValidationError {
	var problems []*ValidationError
	for gi, group := range cfg.Groups {
		path := fmt.Sprintf("groups[%d]", gi)
		if group.Logic != types.LogicAnd && group.Logic != types.LogicOr {
			problems = append(problems, invalid(path, types.ErrInvalidLogic, fmt.Sprintf("got %q", group.Logic)))
		}
		problems = append(problems, checkConditions(path+".conditions", group.Conditions)...)
	}
	problems = append(problems, checkConditions("exclude", cfg.Exclude)...)
	return problems
}

func checkConditions(path string, conds []types.Condition) []*ValidationError {
	var problems []*ValidationError
	for i, cond := range conds {
		if cond.IsBlank() {
			continue
		}
		problems = append(problems, checkCondition(fmt.Sprintf("%s[%d]", path, i), cond)...)
	}
	return problems
}
