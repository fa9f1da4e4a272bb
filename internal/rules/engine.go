// internal/rules/engine.go
package rules

import "github.com/recipeatlas/recipeatlas/internal/types"

/*
 * Engine is the entry point the service layers share.
 *
 * CompileRulePredicate and ValidateRuleConfig are pure and unbounded. Engine
 * checks Limits first and then delegates, so oversized configs fail before
 * any compilation work.
 */

// Engine applies size limits in front of the pure compiler and validator.
// Safe for concurrent use; it holds no mutable state.
type Engine struct {
	limits Limits
}

// NewEngine creates a rules engine with the given limits.
func NewEngine(limits Limits) *Engine {
	return &Engine{limits: limits}
}

// Limits returns the configured limits.
func (e *Engine) Limits() Limits {
	return e.limits
}

// Compile checks limits, then compiles. The first limit violation is returned
// as *ValidationError.
func (e *Engine) Compile(cfg types.RuleConfig, rctx types.RuleContext) (Predicate, error) {
	if problems := e.limits.Check(cfg); len(problems) > 0 {
		return Predicate{}, problems[0]
	}
	return CompileRulePredicate(cfg, rctx)
}

// Validate reports structural problems and limit violations together.
func (e *Engine) Validate(cfg types.RuleConfig) ValidationResult {
	problems := collectProblems(cfg)
	problems = append(problems, e.limits.Check(cfg)...)
	return newResult(problems)
}
