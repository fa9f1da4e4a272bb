// internal/types/rules.go
package types

/*
 * Domain types for collection rules.
 *
 * Provides RuleConfig, Group, Condition and RuleContext used by
 * internal/rules for compilation and validation. RuleConfig is the shape an
 * administrator authors and the storage layer persists as JSON; it is a
 * discriminated union on Mode.
 *
 * Key types:
 *   - RuleConfig: auto (single equality) or custom (groups + excludes)
 *   - Group: conditions combined by the group's Logic
 *   - Condition: one field/operator/value check, TagType scopes tag fields
 *   - RuleContext: ambient ids and excluded recipes supplied by the caller
 *
 * Go has no sum types, so the union is a flat struct keyed on Mode. Fields
 * of the other variant are ignored by the compiler and flagged by the
 * validator only when they make the config ambiguous.
 */

// Mode discriminates RuleConfig variants.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeCustom Mode = "custom"
)

// Logic combines the conditions of one group.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Operator is the comparison a condition applies.
type Operator string

const (
	OpEq  Operator = "eq"
	OpNeq Operator = "neq"
	OpLt  Operator = "lt"
	OpLte Operator = "lte"
	OpGt  Operator = "gt"
	OpGte Operator = "gte"
	OpIn  Operator = "in"
)

// TagType names one of the five tag taxonomies.
type TagType string

const (
	TagScene    TagType = "scene"
	TagMethod   TagType = "method"
	TagTaste    TagType = "taste"
	TagCrowd    TagType = "crowd"
	TagOccasion TagType = "occasion"
)

// TagTypes lists the known taxonomies in display order.
var TagTypes = []TagType{TagScene, TagMethod, TagTaste, TagCrowd, TagOccasion}

// Valid reports whether t is one of the known taxonomies.
func (t TagType) Valid() bool {
	for _, known := range TagTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Field names accepted in conditions and auto rules.
const (
	FieldTag        = "tag"
	FieldTagID      = "tagId"
	FieldCookTime   = "cookTime"
	FieldPrepTime   = "prepTime"
	FieldServings   = "servings"
	FieldCuisineID  = "cuisineId"
	FieldLocationID = "locationId"
	FieldDifficulty = "difficulty"
	FieldID         = "id"
)

// Condition is a single check inside a group or the exclude list.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
	TagType  TagType  `json:"tagType,omitempty"`
}

// IsBlank reports whether the condition is an unfilled row (nothing set).
// Blank rows are dropped; partially filled rows are validated.
func (c Condition) IsBlank() bool {
	return c.Field == "" && c.Operator == "" && c.Value == nil && c.TagType == ""
}

// Group combines its conditions with Logic.
type Group struct {
	Logic      Logic       `json:"logic"`
	Conditions []Condition `json:"conditions"`
}

// RuleConfig is the persisted rule definition of a collection.
type RuleConfig struct {
	Mode Mode `json:"mode"`

	// auto
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`

	// custom
	Groups  []Group     `json:"groups,omitempty"`
	Exclude []Condition `json:"exclude,omitempty"`
}

// RuleContext carries values the compiler may bind into a rule.
type RuleContext struct {
	CuisineID         string   `json:"cuisineId,omitempty"`
	LocationID        string   `json:"locationId,omitempty"`
	TagID             string   `json:"tagId,omitempty"`
	ExcludedRecipeIDs []string `json:"excludedRecipeIds,omitempty"`
}

// Lookup returns the context value bound to a field name.
func (c RuleContext) Lookup(field string) (string, bool) {
	var v string
	switch field {
	case FieldCuisineID:
		v = c.CuisineID
	case FieldLocationID:
		v = c.LocationID
	case FieldTagID:
		v = c.TagID
	}
	return v, v != ""
}
