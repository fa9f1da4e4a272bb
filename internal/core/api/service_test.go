package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipeatlas/recipeatlas/internal/core/db"
	"github.com/recipeatlas/recipeatlas/internal/qualification"
	"github.com/recipeatlas/recipeatlas/internal/rules"
	"github.com/recipeatlas/recipeatlas/internal/types"
)

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) *CollectionService {
	t.Helper()
	conn, err := db.Open("sqlite::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = db.MigrateUp(conn)
	require.NoError(t, err)

	store, err := db.NewStore(conn)
	require.NoError(t, err)
	svc, err := NewCollectionService(store, NewRuleService(rules.NewEngine(rules.DefaultLimits()), qualification.DefaultThresholds()))
	require.NoError(t, err)
	svc.now = func() time.Time { return fixedNow }

	seedCatalogue(t, store)
	return svc
}

// seedCatalogue: four sichuan recipes in mixed states and one thai.
func seedCatalogue(t *testing.T, store *db.Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.CreateTag(ctx, &types.Tag{ID: "spicy", Name: "Spicy", Slug: "spicy", Type: types.TagTaste}))

	spicy := []types.TagRef{{ID: "spicy", Type: types.TagTaste}}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recipes := []types.Recipe{
		{ID: "ra", Title: "Dan dan noodles", Slug: "dan-dan", Status: types.RecipePublished, CuisineID: "sichuan", CookTime: 20, Tags: spicy},
		{ID: "rb", Title: "Twice cooked pork", Slug: "twice-cooked", Status: types.RecipePublished, CuisineID: "sichuan", CookTime: 45},
		{ID: "rc", Title: "Chili wontons", Slug: "chili-wontons", Status: types.RecipePending, CuisineID: "sichuan", CookTime: 15, Tags: spicy},
		{ID: "rd", Title: "Som tam", Slug: "som-tam", Status: types.RecipePublished, CuisineID: "thai", CookTime: 10, Tags: spicy},
		{ID: "re", Title: "Fish fragrant eggplant", Slug: "yuxiang", Status: types.RecipeDraft, CuisineID: "sichuan", CookTime: 25},
	}
	for i := range recipes {
		recipes[i].CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.CreateRecipe(ctx, &recipes[i]))
	}
}

func spicyQuickRules() types.RuleConfig {
	return types.RuleConfig{
		Mode: types.ModeCustom,
		Groups: []types.Group{{
			Logic: types.LogicAnd,
			Conditions: []types.Condition{
				{Field: "tag", Operator: types.OpEq, Value: "spicy", TagType: types.TagTaste},
				{Field: "cookTime", Operator: types.OpLte, Value: float64(30)},
			},
		}},
	}
}

func recipeIDs(recipes []types.Recipe) []string {
	out := make([]string, len(recipes))
	for i, r := range recipes {
		out[i] = string(r.ID)
	}
	return out
}

func TestNewCollectionService_NilArgs(t *testing.T) {
	_, err := NewCollectionService(nil, NewRuleService(nil, qualification.DefaultThresholds()))
	assert.Error(t, err)
}

func TestCollectionService_CreateRejectsInvalidRules(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	c := &db.Collection{
		Name: "Broken",
		Slug: "broken",
		Rules: types.RuleConfig{
			Mode: types.ModeCustom,
			Groups: []types.Group{{
				Logic: "XOR",
				Conditions: []types.Condition{
					{Field: "calories", Operator: types.OpEq, Value: float64(1)},
				},
			}},
		},
	}
	err := svc.Create(ctx, c)
	var invalid *InvalidRulesError
	require.True(t, errors.As(err, &invalid))
	assert.Len(t, invalid.Errors, 2)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCollectionService_CreateRejectsUnboundParameter(t *testing.T) {
	svc := newTestService(t)

	c := &db.Collection{
		Name: "Local",
		Slug: "local",
		Rules: types.RuleConfig{
			Mode: types.ModeCustom,
			Groups: []types.Group{{
				Logic:      types.LogicAnd,
				Conditions: []types.Condition{{Field: "locationId", Operator: types.OpEq, Value: "$locationId"}},
			}},
		},
	}
	err := svc.Create(context.Background(), c)
	assert.True(t, errors.Is(err, types.ErrUnboundParameter))
}

func TestCollectionService_RequalifyAuto(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	c := &db.Collection{
		Name:        "Sichuan classics",
		Slug:        "sichuan-classics",
		Rules:       types.RuleConfig{Mode: types.ModeAuto, Field: "cuisineId"},
		CuisineID:   "sichuan",
		TargetCount: 4,
		MinRequired: 2,
	}
	require.NoError(t, svc.Create(ctx, c))
	assert.Equal(t, qualification.StatusUnqualified, c.QualifiedStatus)

	got, err := svc.Requalify(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.PublishedCount)
	assert.Equal(t, 1, got.PendingCount)
	assert.Equal(t, 50, got.Progress)
	assert.Equal(t, qualification.StatusQualified, got.QualifiedStatus)

	stored, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, qualification.StatusQualified, stored.QualifiedStatus)
	require.NotNil(t, stored.LastQualifiedAt)
	assert.True(t, fixedNow.Equal(*stored.LastQualifiedAt))
}

func TestCollectionService_RequalifyCustomNear(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	c := &db.Collection{Name: "Spicy and quick", Slug: "spicy-quick", Rules: spicyQuickRules(), TargetCount: 2, MinRequired: 3}
	require.NoError(t, svc.Create(ctx, c))

	got, err := svc.Requalify(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.PublishedCount)
	assert.Equal(t, 1, got.PendingCount)
	assert.Equal(t, 100, got.Progress)
	assert.Equal(t, qualification.StatusNear, got.QualifiedStatus)
}

func TestCollectionService_UpdateRulesAndExclusions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	c := &db.Collection{Name: "Spicy and quick", Slug: "spicy-quick", Rules: spicyQuickRules(), TargetCount: 10, MinRequired: 1}
	require.NoError(t, svc.Create(ctx, c))

	updated, err := svc.UpdateRules(ctx, c.ID, spicyQuickRules(), []string{"rd"})
	require.NoError(t, err)
	assert.Equal(t, []string{"rd"}, updated.ExcludedRecipeIDs)

	recipes, total, err := svc.Recipes(ctx, c.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, []string{"ra"}, recipeIDs(recipes))

	// nil keeps the current exclusions
	updated, err = svc.UpdateRules(ctx, c.ID, types.RuleConfig{Mode: types.ModeCustom}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"rd"}, updated.ExcludedRecipeIDs)

	recipes, total, err = svc.Recipes(ctx, c.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, []string{"rb", "ra"}, recipeIDs(recipes))

	_, err = svc.UpdateRules(ctx, c.ID, types.RuleConfig{Mode: "bogus"}, nil)
	var invalid *InvalidRulesError
	assert.True(t, errors.As(err, &invalid))
}

func TestCollectionService_NotFound(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	missing := types.NewCollectionID()

	_, err := svc.Get(ctx, missing)
	assert.True(t, errors.Is(err, db.ErrNotFound))
	_, err = svc.Requalify(ctx, missing)
	assert.True(t, errors.Is(err, db.ErrNotFound))
	_, err = svc.UpdateRules(ctx, missing, spicyQuickRules(), nil)
	assert.True(t, errors.Is(err, db.ErrNotFound))
	_, _, err = svc.Recipes(ctx, missing, 10, 0)
	assert.True(t, errors.Is(err, db.ErrNotFound))
	assert.True(t, errors.Is(svc.Delete(ctx, missing), db.ErrNotFound))
}

func TestCollectionService_RequalifyAll(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, c := range []*db.Collection{
		{Name: "Sichuan", Slug: "sichuan", Rules: types.RuleConfig{Mode: types.ModeAuto, Field: "cuisineId"}, CuisineID: "sichuan", TargetCount: 2, MinRequired: 2},
		{Name: "Spicy", Slug: "spicy", Rules: spicyQuickRules(), TargetCount: 10, MinRequired: 5},
	} {
		require.NoError(t, svc.Create(ctx, c))
	}

	got, err := svc.RequalifyAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, qualification.StatusQualified, got[0].QualifiedStatus)
	assert.Equal(t, qualification.StatusUnqualified, got[1].QualifiedStatus)
	assert.Equal(t, 20, got[1].Progress)
}

func TestCollectionService_Preview(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	res, err := svc.Preview(ctx, spicyQuickRules(), types.RuleContext{}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ra", "rc", "rd"}, recipeIDs(res.Matches))
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, 2, res.Published)

	// Only the two newest recipes (re, rd) are loaded.
	svc.previewLimit = 2
	res, err = svc.Preview(ctx, spicyQuickRules(), types.RuleContext{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"rd"}, recipeIDs(res.Matches))
	assert.Equal(t, 1, res.Count)

	inline := []types.Recipe{{ID: "x1", Status: types.RecipePublished, CookTime: 5, Tags: []types.TagRef{{ID: "spicy", Type: types.TagTaste}}}}
	res, err = svc.Preview(ctx, spicyQuickRules(), types.RuleContext{}, inline)
	require.NoError(t, err)
	assert.Equal(t, []string{"x1"}, recipeIDs(res.Matches))

	_, err = svc.Preview(ctx, types.RuleConfig{Mode: "bogus"}, types.RuleContext{}, inline)
	var verr *rules.ValidationError
	assert.True(t, errors.As(err, &verr))
}
