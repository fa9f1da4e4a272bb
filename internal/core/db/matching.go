package db

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/recipeatlas/recipeatlas/internal/rules"
	"github.com/recipeatlas/recipeatlas/internal/types"
)

const recipeColumns = "r.id, r.title, r.slug, r.status, r.cuisine_id, r.location_id, r.difficulty, " +
	"r.cook_time, r.prep_time, r.servings, r.created_at"

// matching applies the predicate and an optional status filter.
func matching(b sq.SelectBuilder, p rules.Predicate, status types.RecipeStatus) (sq.SelectBuilder, error) {
	where, err := WhereClause(p)
	if err != nil {
		return b, err
	}
	if where != nil {
		b = b.Where(where)
	}
	if status != "" {
		b = b.Where(sq.Eq{"r.status": string(status)})
	}
	return b, nil
}

// CountMatching counts recipes satisfying p. An empty status counts every
// status; qualification passes RecipePublished.
func (s *Store) CountMatching(ctx context.Context, p rules.Predicate, status types.RecipeStatus) (n int, err error) {
	defer observe("count_matching", time.Now(), &err)

	b, err := matching(s.sb.Select("COUNT(*)").From("recipes r"), p, status)
	if err != nil {
		return 0, err
	}
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}
	if err := s.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count matching recipes: %w", err)
	}
	return n, nil
}

// ListMatching returns a page of recipes satisfying p, newest first, with
// their tags loaded. limit <= 0 means no limit.
func (s *Store) ListMatching(ctx context.Context, p rules.Predicate, status types.RecipeStatus, limit, offset int) (out []types.Recipe, err error) {
	defer observe("list_matching", time.Now(), &err)

	b, err := matching(s.sb.Select(recipeColumns).From("recipes r"), p, status)
	if err != nil {
		return nil, err
	}
	b = b.OrderBy("r.created_at DESC", "r.id")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	if offset > 0 {
		b = b.Offset(uint64(offset))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}
	out = []types.Recipe{}
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list matching recipes: %w", err)
	}
	if err := s.loadTags(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListRecipes returns the newest recipes of any status with tags; used for
// in-memory preview. limit <= 0 means no limit.
func (s *Store) ListRecipes(ctx context.Context, limit int) ([]types.Recipe, error) {
	return s.ListMatching(ctx, rules.Empty(), "", limit, 0)
}

// loadTags fills Tags for a page of recipes with one query.
func (s *Store) loadTags(ctx context.Context, recipes []types.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}
	ids := make([]string, len(recipes))
	index := make(map[types.RecipeID]int, len(recipes))
	for i, r := range recipes {
		ids[i] = string(r.ID)
		index[r.ID] = i
	}

	query, args, err := s.sb.
		Select("rt.recipe_id", "t.id", "t.type").
		From("recipe_tags rt").
		Join("tags t ON t.id = rt.tag_id").
		Where(sq.Eq{"rt.recipe_id": ids}).
		OrderBy("t.type", "t.id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build tag query: %w", err)
	}

	var rows []struct {
		RecipeID types.RecipeID `db:"recipe_id"`
		types.TagRef
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	for _, row := range rows {
		i := index[row.RecipeID]
		recipes[i].Tags = append(recipes[i].Tags, row.TagRef)
	}
	return nil
}
