// internal/rules/evaluate_test.go
package rules

import (
	"testing"

	"github.com/recipeatlas/recipeatlas/internal/types"
)

func fixtureRecipes() []types.Recipe {
	return []types.Recipe{
		{
			ID: "r1", Title: "Steamed fish", CuisineID: "cantonese", Difficulty: "easy",
			CookTime: 20, PrepTime: 10, Servings: 2,
			Tags: []types.TagRef{{ID: "light", Type: types.TagTaste}, {ID: "fitness", Type: types.TagCrowd}},
		},
		{
			ID: "r2", Title: "Mapo tofu", CuisineID: "sichuan", Difficulty: "medium",
			CookTime: 25, PrepTime: 15, Servings: 3,
			Tags: []types.TagRef{{ID: "spicy", Type: types.TagTaste}, {ID: "dinner", Type: types.TagScene}},
		},
		{
			ID: "r3", Title: "Braised pork", CuisineID: "hunan", Difficulty: "hard",
			CookTime: 90, PrepTime: 20, Servings: 4,
			Tags: []types.TagRef{{ID: "light", Type: types.TagScene}, {ID: "dinner", Type: types.TagScene}},
		},
		{
			ID: "r4", Title: "Cucumber salad", CuisineID: "sichuan", Difficulty: "easy",
			CookTime: 0, PrepTime: 5, Servings: 2,
		},
	}
}

func ids(recipes []types.Recipe) []string {
	out := make([]string, len(recipes))
	for i, r := range recipes {
		out[i] = string(r.ID)
	}
	return out
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name string
		pred Predicate
		want []string
	}{
		{"empty matches all", Empty(), []string{"r1", "r2", "r3", "r4"}},
		{"equals text", Equals("cuisineId", "sichuan"), []string{"r2", "r4"}},
		{"equals zero", Equals("cookTime", float64(0)), []string{"r4"}},
		{"not equal", Compare("difficulty", CmpNot, "easy"), []string{"r2", "r3"}},
		{"lte", Compare("cookTime", CmpLte, float64(25)), []string{"r1", "r2", "r4"}},
		{"gt", Compare("servings", CmpGt, float64(2)), []string{"r2", "r3"}},
		{"in", Compare("cuisineId", CmpIn, []any{"hunan", "cantonese"}), []string{"r1", "r3"}},
		{"not in ids", Compare("id", CmpNotIn, []any{"r1", "r4"}), []string{"r2", "r3"}},
		{"tag scoped to taxonomy", HasTag(types.TagTaste, "light"), []string{"r1"}},
		{"same tag id other taxonomy", HasTag(types.TagScene, "light"), []string{"r3"}},
		{"tagId any taxonomy", Equals("tagId", "light"), []string{"r1", "r3"}},
		{"unknown field never matches", Equals("calories", float64(100)), []string{}},
		{
			"or inside and",
			And(
				Or(HasTag(types.TagTaste, "spicy"), HasTag(types.TagScene, "dinner")),
				Compare("cookTime", CmpLte, float64(30)),
			),
			[]string{"r2"},
		},
		{
			"exclude",
			And(Not(Or(HasTag(types.TagTaste, "spicy"), Equals("difficulty", "hard")))),
			[]string{"r1", "r4"},
		},
		{"empty or matches nothing", Or(), []string{}},
		{"empty and matches all", And(), []string{"r1", "r2", "r3", "r4"}},
	}

	recipes := fixtureRecipes()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Filter(tt.pred, recipes))
			if len(got) != len(tt.want) {
				t.Fatalf("Filter() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Filter() = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestEvaluate_CompiledRule(t *testing.T) {
	cfg := types.RuleConfig{
		Mode: types.ModeCustom,
		Groups: []types.Group{
			{Logic: types.LogicOr, Conditions: []types.Condition{
				tagCond(types.TagCrowd, "fitness"),
				tagCond(types.TagTaste, "light"),
				{Field: "cuisineId", Operator: types.OpEq, Value: "$cuisineId"},
			}},
		},
		Exclude: []types.Condition{{Field: "prepTime", Operator: types.OpLt, Value: 6}},
	}
	rctx := types.RuleContext{CuisineID: "sichuan", ExcludedRecipeIDs: []string{"r1"}}

	pred, err := NewEngine(DefaultLimits()).Compile(cfg, rctx)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	got := ids(Filter(pred, fixtureRecipes()))
	if len(got) != 1 || got[0] != "r2" {
		t.Errorf("Filter() = %v, want [r2]", got)
	}
}
