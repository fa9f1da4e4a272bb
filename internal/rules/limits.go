// internal/rules/limits.go
package rules

import (
	"fmt"

	"github.com/recipeatlas/recipeatlas/internal/types"
)

/*
 * Resource limits for rule configs.
 *
 * Compilation cost is linear in groups x conditions, and both are admin
 * input. The pure compiler does not bound them; Engine checks these limits
 * before compiling so every entry point (HTTP, gRPC, CLI) applies the same
 * policy. A zero limit means unbounded.
 */

// Default limits; configurable through internal/core/config.
const (
	DefaultMaxGroups             = 32
	DefaultMaxConditionsPerGroup = 32
	DefaultMaxExcludeConditions  = 32
	DefaultMaxInValues           = 64
)

// Limits bounds the size of a custom rule config.
type Limits struct {
	MaxGroups             int
	MaxConditionsPerGroup int
	MaxExcludeConditions  int
	MaxInValues           int
}

// DefaultLimits returns the default rule size limits.
func DefaultLimits() Limits {
	return Limits{
		MaxGroups:             DefaultMaxGroups,
		MaxConditionsPerGroup: DefaultMaxConditionsPerGroup,
		MaxExcludeConditions:  DefaultMaxExcludeConditions,
		MaxInValues:           DefaultMaxInValues,
	}
}

// Check returns every limit the config exceeds. Auto configs always pass.
func (l Limits) Check(cfg types.RuleConfig) []*ValidationError {
	if cfg.Mode != types.ModeCustom {
		return nil
	}

	var problems []*ValidationError
	if exceeds(len(cfg.Groups), l.MaxGroups) {
		problems = append(problems, invalid("groups", types.ErrTooManyGroups, fmt.Sprintf("%d > %d", len(cfg.Groups), l.MaxGroups)))
	}
	for gi, group := range cfg.Groups {
		path := fmt.Sprintf("groups[%d]", gi)
		if exceeds(len(group.Conditions), l.MaxConditionsPerGroup) {
			problems = append(problems, invalid(path, types.ErrTooManyConditions, fmt.Sprintf("%d > %d", len(group.Conditions), l.MaxConditionsPerGroup)))
		}
		problems = append(problems, l.checkInValues(path+".conditions", group.Conditions)...)
	}
	if exceeds(len(cfg.Exclude), l.MaxExcludeConditions) {
		problems = append(problems, invalid("exclude", types.ErrTooManyExcludes, fmt.Sprintf("%d > %d", len(cfg.Exclude), l.MaxExcludeConditions)))
	}
	problems = append(problems, l.checkInValues("exclude", cfg.Exclude)...)
	return problems
}

func (l Limits) checkInValues(path string, conds []types.Condition) []*ValidationError {
	var problems []*ValidationError
	for i, cond := range conds {
		if cond.Operator != types.OpIn {
			continue
		}
		n := listLen(cond.Value)
		if exceeds(n, l.MaxInValues) {
			problems = append(problems, invalid(fmt.Sprintf("%s[%d]", path, i), types.ErrTooManyInValues, fmt.Sprintf("%d > %d", n, l.MaxInValues)))
		}
	}
	return problems
}

func exceeds(n, limit int) bool {
	return limit > 0 && n > limit
}

func listLen(v any) int {
	switch vv := v.(type) {
	case []any:
		return len(vv)
	case []string:
		return len(vv)
	case []float64:
		return len(vv)
	case []int:
		return len(vv)
	}
	return 0
}
