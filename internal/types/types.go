// Package types provides domain models shared across recipeatlas components.
//
// Zero-dependency design: types.go, rules.go and errors.go use only the
// standard library so the rule engine can be embedded without pulling in the
// storage stack. ID utilities in ids.go import uuid.
package types

import "time"

// RecipeID represents a UUIDv7 recipe identifier.
type RecipeID string

// TagID represents a UUIDv7 tag identifier.
type TagID string

// CollectionID represents a UUIDv7 collection identifier.
type CollectionID string

// RecipeStatus is the publication state of a recipe.
// Only published recipes count toward collection qualification.
type RecipeStatus string

const (
	RecipeDraft     RecipeStatus = "draft"
	RecipePending   RecipeStatus = "pending"
	RecipePublished RecipeStatus = "published"
)

// Valid reports whether s is a known status.
func (s RecipeStatus) Valid() bool {
	switch s {
	case RecipeDraft, RecipePending, RecipePublished:
		return true
	}
	return false
}

// TagRef is a tag attached to a recipe.
type TagRef struct {
	ID   TagID   `json:"id" db:"id"`
	Type TagType `json:"type" db:"type"`
}

// Tag is a taxonomy entry.
type Tag struct {
	ID   TagID   `json:"id" db:"id"`
	Name string  `json:"name" db:"name"`
	Slug string  `json:"slug" db:"slug"`
	Type TagType `json:"type" db:"type"`
}

// Recipe is the subset of a recipe record that collection rules match on.
type Recipe struct {
	ID         RecipeID     `json:"id" db:"id"`
	Title      string       `json:"title" db:"title"`
	Slug       string       `json:"slug" db:"slug"`
	Status     RecipeStatus `json:"status" db:"status"`
	CuisineID  string       `json:"cuisineId,omitempty" db:"cuisine_id"`
	LocationID string       `json:"locationId,omitempty" db:"location_id"`
	Difficulty string       `json:"difficulty,omitempty" db:"difficulty"`
	CookTime   int          `json:"cookTime" db:"cook_time"`
	PrepTime   int          `json:"prepTime" db:"prep_time"`
	Servings   int          `json:"servings" db:"servings"`
	Tags       []TagRef     `json:"tags,omitempty" db:"-"`
	CreatedAt  time.Time    `json:"createdAt" db:"created_at"`
}

// Attr returns the value of a rule field on the recipe.
// The second result is false for fields the recipe does not carry.
func (r Recipe) Attr(field string) (any, bool) {
	switch field {
	case FieldID:
		return string(r.ID), true
	case FieldCuisineID:
		return r.CuisineID, true
	case FieldLocationID:
		return r.LocationID, true
	case FieldDifficulty:
		return r.Difficulty, true
	case FieldCookTime:
		return r.CookTime, true
	case FieldPrepTime:
		return r.PrepTime, true
	case FieldServings:
		return r.Servings, true
	default:
		return nil, false
	}
}

// HasTag reports whether the recipe carries tag id within taxonomy t.
// An empty t matches any taxonomy.
func (r Recipe) HasTag(t TagType, id string) bool {
	for _, tag := range r.Tags {
		if string(tag.ID) == id && (t == "" || tag.Type == t) {
			return true
		}
	}
	return false
}
