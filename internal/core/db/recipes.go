package db

import (
	"context"
	"fmt"
	"time"

	"github.com/recipeatlas/recipeatlas/internal/types"
)

// CreateRecipe inserts r and attaches r.Tags. A missing ID, status or
// creation time is filled in.
func (s *Store) CreateRecipe(ctx context.Context, r *types.Recipe) (err error) {
	defer observe("create_recipe", time.Now(), &err)

	if r.ID == "" {
		r.ID = types.NewRecipeID()
	}
	if r.Status == "" {
		r.Status = types.RecipeDraft
	}
	if !r.Status.Valid() {
		return fmt.Errorf("invalid recipe status %q", r.Status)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err = s.queries.Exec(ctx, "create-recipe",
		r.ID, r.Title, r.Slug, r.Status, r.CuisineID, r.LocationID, r.Difficulty,
		r.CookTime, r.PrepTime, r.Servings, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert recipe: %w", err)
	}

	for _, tag := range r.Tags {
		if err := s.AttachTag(ctx, r.ID, tag.ID); err != nil {
			return err
		}
	}
	return nil
}

// AttachTag links a tag to a recipe.
func (s *Store) AttachTag(ctx context.Context, recipeID types.RecipeID, tagID types.TagID) error {
	if _, err := s.queries.Exec(ctx, "attach-tag", recipeID, tagID); err != nil {
		return fmt.Errorf("attach tag %s to recipe %s: %w", tagID, recipeID, err)
	}
	return nil
}

// SetRecipeStatus moves a recipe through draft/pending/published.
func (s *Store) SetRecipeStatus(ctx context.Context, id types.RecipeID, status types.RecipeStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid recipe status %q", status)
	}
	res, err := s.queries.Exec(ctx, "update-recipe-status", status, id)
	if err != nil {
		return fmt.Errorf("update recipe status: %w", err)
	}
	return requireRow(res, "recipe "+string(id))
}

// GetRecipe returns a recipe with its tags.
func (s *Store) GetRecipe(ctx context.Context, id types.RecipeID) (*types.Recipe, error) {
	var r types.Recipe
	if err := s.queries.Get(ctx, "get-recipe", &r, id); err != nil {
		return nil, notFound(err, "recipe "+string(id))
	}
	if err := s.queries.Select(ctx, "list-recipe-tags", &r.Tags, id); err != nil {
		return nil, fmt.Errorf("load recipe tags: %w", err)
	}
	return &r, nil
}
