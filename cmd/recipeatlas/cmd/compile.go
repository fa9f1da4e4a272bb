package cmd

import (
	"fmt"
	"io"
	"os"

	sq "github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/recipeatlas/recipeatlas/internal/core/api"
	"github.com/recipeatlas/recipeatlas/internal/core/db"
	"github.com/recipeatlas/recipeatlas/internal/qualification"
	"github.com/recipeatlas/recipeatlas/internal/rules"
	"github.com/recipeatlas/recipeatlas/internal/types"
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a rule config and print its predicate and SQL",
	Long: `Compile reads a rule document and prints the compiled predicate together
with the WHERE clause it executes as.

The document is either a bare rule config or {"rules": ..., "context": ...}.
--path selects a sub-document first, e.g. a collection export:

  recipeatlas compile --file export.json --path 'collections.0'`,
	Args: cobra.NoArgs,
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().StringP("file", "f", "-", "rule document (- for stdin)")
	compileCmd.Flags().String("path", "", "gjson path of the rule document inside the file")
	compileCmd.Flags().String("dialect", "sqlite", "placeholder style of the printed SQL (sqlite, postgres)")
	compileCmd.Flags().String("cuisine-id", "", "bind $cuisineId")
	compileCmd.Flags().String("location-id", "", "bind $locationId")
	compileCmd.Flags().String("tag-id", "", "bind $tagId")
}

type compileOutput struct {
	Predicate rules.Predicate `json:"predicate"`
	Where     string          `json:"where,omitempty"`
	Args      []any           `json:"args,omitempty"`
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	file, _ := cmd.Flags().GetString("file")
	path, _ := cmd.Flags().GetString("path")
	dialect, _ := cmd.Flags().GetString("dialect")
	if dialect != "sqlite" && dialect != "postgres" {
		return fmt.Errorf("unknown dialect %q", dialect)
	}

	data, err := readInput(cmd, file)
	if err != nil {
		return err
	}
	ruleCfg, rctx, err := parseRuleDocument(data, path)
	if err != nil {
		return err
	}
	for flag, dst := range map[string]*string{
		"cuisine-id":  &rctx.CuisineID,
		"location-id": &rctx.LocationID,
		"tag-id":      &rctx.TagID,
	} {
		if cmd.Flags().Changed(flag) {
			*dst, _ = cmd.Flags().GetString(flag)
		}
	}

	ruleService := api.NewRuleService(rules.NewEngine(cfg.Rules.Limits()), qualification.DefaultThresholds())
	p, err := ruleService.Compile(ruleCfg, rctx)
	if err != nil {
		return err
	}

	out := compileOutput{Predicate: p}
	where, err := db.WhereClause(p)
	if err != nil {
		return err
	}
	if where != nil {
		if out.Where, out.Args, err = where.ToSql(); err != nil {
			return err
		}
		if dialect == "postgres" {
			if out.Where, err = sq.Dollar.ReplacePlaceholders(out.Where); err != nil {
				return err
			}
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func readInput(cmd *cobra.Command, file string) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	return data, nil
}

// parseRuleDocument extracts a rule config and optional context from data.
func parseRuleDocument(data []byte, path string) (types.RuleConfig, types.RuleContext, error) {
	var ruleCfg types.RuleConfig
	var rctx types.RuleContext

	if !gjson.ValidBytes(data) {
		return ruleCfg, rctx, fmt.Errorf("input is not valid JSON")
	}
	doc := gjson.ParseBytes(data)
	if path != "" {
		doc = doc.Get(path)
		if !doc.Exists() {
			return ruleCfg, rctx, fmt.Errorf("path %q not found", path)
		}
	}

	rulesDoc := doc
	if r := doc.Get("rules"); r.Exists() {
		rulesDoc = r
		if c := doc.Get("context"); c.Exists() {
			if err := json.Unmarshal([]byte(c.Raw), &rctx); err != nil {
				return ruleCfg, rctx, fmt.Errorf("decode context: %w", err)
			}
		}
		// collection exports carry the context inline
		for field, dst := range map[string]*string{
			types.FieldCuisineID:  &rctx.CuisineID,
			types.FieldLocationID: &rctx.LocationID,
			types.FieldTagID:      &rctx.TagID,
		} {
			if v := doc.Get(field); v.Type == gjson.String && *dst == "" {
				*dst = v.String()
			}
		}
		if ids := doc.Get("excludedRecipeIds"); ids.IsArray() && len(rctx.ExcludedRecipeIDs) == 0 {
			for _, id := range ids.Array() {
				rctx.ExcludedRecipeIDs = append(rctx.ExcludedRecipeIDs, id.String())
			}
		}
	}
	if !rulesDoc.IsObject() {
		return ruleCfg, rctx, fmt.Errorf("rule document must be an object")
	}
	if err := json.Unmarshal([]byte(rulesDoc.Raw), &ruleCfg); err != nil {
		return ruleCfg, rctx, fmt.Errorf("decode rules: %w", err)
	}
	return ruleCfg, rctx, nil
}
