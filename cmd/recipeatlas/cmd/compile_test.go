package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipeatlas/recipeatlas/internal/types"
)

func TestParseRuleDocument(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		path     string
		wantMode types.Mode
		wantCtx  types.RuleContext
		wantErr  bool
	}{
		{
			name:     "bare config",
			doc:      `{"mode":"auto","field":"cuisineId","value":"sichuan"}`,
			wantMode: types.ModeAuto,
		},
		{
			name:     "request form",
			doc:      `{"rules":{"mode":"auto","field":"cuisineId"},"context":{"cuisineId":"hunan"}}`,
			wantMode: types.ModeAuto,
			wantCtx:  types.RuleContext{CuisineID: "hunan"},
		},
		{
			name:     "collection export by path",
			doc:      `{"collections":[{"name":"x"},{"rules":{"mode":"custom"},"tagId":"t9","excludedRecipeIds":["r1","r2"]}]}`,
			path:     "collections.1",
			wantMode: types.ModeCustom,
			wantCtx:  types.RuleContext{TagID: "t9", ExcludedRecipeIDs: []string{"r1", "r2"}},
		},
		{name: "missing path", doc: `{"a":1}`, path: "b", wantErr: true},
		{name: "not json", doc: `{`, wantErr: true},
		{name: "not an object", doc: `{"rules":[1]}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, rctx, err := parseRuleDocument([]byte(tt.doc), tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, cfg.Mode)
			assert.Equal(t, tt.wantCtx, rctx)
		})
	}
}

func TestCompileCommand(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.DisableCache = true
	homedir.Reset()

	file := filepath.Join(home, "rule.json")
	doc := `{"rules":{"mode":"custom","groups":[{"logic":"AND","conditions":[` +
		`{"field":"cookTime","operator":"lte","value":30},` +
		`{"field":"cuisineId","operator":"eq","value":"$cuisineId"}]}]}}`
	require.NoError(t, os.WriteFile(file, []byte(doc), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"compile", "--file", file, "--dialect", "postgres", "--cuisine-id", "sichuan"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "r.cook_time <= $1")
	assert.Contains(t, out.String(), "r.cuisine_id = $2")
	assert.Contains(t, out.String(), `"sichuan"`)
}
