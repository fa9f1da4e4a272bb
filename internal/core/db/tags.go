package db

import (
	"context"
	"fmt"

	"github.com/recipeatlas/recipeatlas/internal/types"
)

// CreateTag inserts a taxonomy entry, assigning an ID when empty.
func (s *Store) CreateTag(ctx context.Context, t *types.Tag) error {
	if !t.Type.Valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidTagType, t.Type)
	}
	if t.ID == "" {
		t.ID = types.NewTagID()
	}
	if _, err := s.queries.Exec(ctx, "create-tag", t.ID, t.Name, t.Slug, t.Type); err != nil {
		return fmt.Errorf("insert tag: %w", err)
	}
	return nil
}

// GetTag returns one tag.
func (s *Store) GetTag(ctx context.Context, id types.TagID) (*types.Tag, error) {
	var t types.Tag
	if err := s.queries.Get(ctx, "get-tag", &t, id); err != nil {
		return nil, notFound(err, "tag "+string(id))
	}
	return &t, nil
}

// ListTags returns the tags of one taxonomy, or all tags when t is empty.
func (s *Store) ListTags(ctx context.Context, t types.TagType) ([]types.Tag, error) {
	tags := []types.Tag{}
	var err error
	if t == "" {
		err = s.queries.Select(ctx, "list-tags", &tags)
	} else {
		err = s.queries.Select(ctx, "list-tags-by-type", &tags, t)
	}
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}
