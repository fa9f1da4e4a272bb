package db

import (
	"errors"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipeatlas/recipeatlas/internal/rules"
	"github.com/recipeatlas/recipeatlas/internal/types"
)

func TestWhereClause_Empty(t *testing.T) {
	where, err := WhereClause(rules.Empty())
	require.NoError(t, err)
	assert.Nil(t, where)
}

func TestWhereClause_Rendering(t *testing.T) {
	tests := []struct {
		name     string
		pred     rules.Predicate
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "equals",
			pred:     rules.Equals("cuisineId", "sichuan"),
			wantSQL:  "r.cuisine_id = ?",
			wantArgs: []any{"sichuan"},
		},
		{
			name:     "integral float binds as integer",
			pred:     rules.Compare("cookTime", rules.CmpLte, float64(30)),
			wantSQL:  "r.cook_time <= ?",
			wantArgs: []any{int64(30)},
		},
		{
			name:     "fractional casts column",
			pred:     rules.Compare("servings", rules.CmpGt, 1.5),
			wantSQL:  "CAST(r.servings AS DOUBLE PRECISION) > ?",
			wantArgs: []any{1.5},
		},
		{
			name:     "not in",
			pred:     rules.Compare("id", rules.CmpNotIn, []any{"r1", "r2"}),
			wantSQL:  "r.id NOT IN (?,?)",
			wantArgs: []any{"r1", "r2"},
		},
		{
			name:     "tag",
			pred:     rules.HasTag(types.TagCrowd, "t1"),
			wantSQL:  tagExistsByType,
			wantArgs: []any{"crowd", "t1"},
		},
		{
			name:     "not",
			pred:     rules.Not(rules.Or(rules.Equals("difficulty", "hard"))),
			wantSQL:  "NOT ((r.difficulty = ?))",
			wantArgs: []any{"hard"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, err := WhereClause(tt.pred)
			require.NoError(t, err)
			query, args, err := where.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestWhereClause_PostgresPlaceholders(t *testing.T) {
	where, err := WhereClause(rules.And(
		rules.Equals("cuisineId", "sichuan"),
		rules.HasTag(types.TagTaste, "spicy"),
	))
	require.NoError(t, err)

	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select("COUNT(*)").From("recipes r").Where(where).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "r.cuisine_id = $1")
	assert.Contains(t, query, "t.type = $2 AND t.id = $3")
	assert.Len(t, args, 3)
}

func TestWhereClause_RejectsUnknownField(t *testing.T) {
	_, err := WhereClause(rules.And(rules.Compare("title; DROP TABLE recipes", rules.CmpLt, float64(1))))
	assert.True(t, errors.Is(err, types.ErrUnknownField))

	_, err = WhereClause(rules.Predicate{Kind: rules.KindNot})
	assert.Error(t, err)
}
