package types

import (
	"time"

	"github.com/google/uuid"
)

// NewRecipeID generates a UUIDv7 recipe identifier.
// Time-ordered IDs keep sequential inserts clustered in B-tree pages.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewRecipeID() RecipeID {
	return RecipeID(uuid.Must(uuid.NewV7()).String())
}

// NewTagID generates a UUIDv7 tag identifier.
func NewTagID() TagID {
	return TagID(uuid.Must(uuid.NewV7()).String())
}

// NewCollectionID generates a UUIDv7 collection identifier.
func NewCollectionID() CollectionID {
	return CollectionID(uuid.Must(uuid.NewV7()).String())
}

// ParseCollectionID validates and converts a string to CollectionID.
// Rejects malformed UUIDs before they reach a query.
func ParseCollectionID(s string) (CollectionID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return CollectionID(s), nil
}

// IDTime extracts the timestamp embedded in a UUIDv7 ID.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func IDTime(id string) time.Time {
	u, err := uuid.Parse(id)
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
