package types

import "errors"

// Sentinel errors for rule compilation and validation.
var (
	// ErrInvalidMode indicates a rule config mode other than auto or custom.
	ErrInvalidMode = errors.New("rule mode must be \"auto\" or \"custom\"")

	// ErrInvalidLogic indicates a group logic other than AND or OR.
	ErrInvalidLogic = errors.New("group logic must be \"AND\" or \"OR\"")

	// ErrUnknownField indicates a condition field the engine does not know.
	ErrUnknownField = errors.New("unknown field")

	// ErrInvalidOperator indicates an unknown or incompatible operator.
	ErrInvalidOperator = errors.New("invalid operator for field type")

	// ErrMissingTagType indicates a tag condition without tagType.
	ErrMissingTagType = errors.New("tag condition requires tagType")

	// ErrInvalidTagType indicates a tagType outside the five taxonomies.
	ErrInvalidTagType = errors.New("unknown tagType")

	// ErrInvalidValue indicates a value whose type does not fit the operator.
	ErrInvalidValue = errors.New("invalid value for operator")

	// ErrMissingField indicates an auto rule without a field.
	ErrMissingField = errors.New("auto rule requires field")

	// ErrMissingValue indicates an auto rule with no value and nothing in context.
	ErrMissingValue = errors.New("auto rule requires value")

	// ErrUnboundParameter indicates a $parameter value absent from context.
	ErrUnboundParameter = errors.New("parameter not bound in context")

	// ErrTooManyGroups indicates a custom rule exceeds Limits.MaxGroups.
	ErrTooManyGroups = errors.New("rule has too many groups")

	// ErrTooManyConditions indicates a group exceeds Limits.MaxConditionsPerGroup.
	ErrTooManyConditions = errors.New("group has too many conditions")

	// ErrTooManyExcludes indicates the exclude list exceeds Limits.MaxExcludeConditions.
	ErrTooManyExcludes = errors.New("exclude list has too many conditions")

	// ErrTooManyInValues indicates an in operator exceeds Limits.MaxInValues.
	ErrTooManyInValues = errors.New("in operator has too many values")
)
