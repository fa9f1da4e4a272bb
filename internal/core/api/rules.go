package api

import (
	"time"

	"github.com/recipeatlas/recipeatlas/internal/metrics"
	"github.com/recipeatlas/recipeatlas/internal/qualification"
	"github.com/recipeatlas/recipeatlas/internal/rules"
	"github.com/recipeatlas/recipeatlas/internal/types"
)

// RuleService exposes the stateless rule and qualification operations.
// Both the HTTP handlers and the gRPC RuleService delegate here so limits,
// thresholds and metrics are applied the same way on every transport.
type RuleService struct {
	engine     *rules.Engine
	thresholds qualification.Thresholds
}

// NewRuleService creates a rule service.
func NewRuleService(engine *rules.Engine, thresholds qualification.Thresholds) *RuleService {
	if engine == nil {
		engine = rules.NewEngine(rules.DefaultLimits())
	}
	return &RuleService{engine: engine, thresholds: thresholds}
}

// PreviewResult is the in-memory outcome of a draft rule.
type PreviewResult struct {
	Predicate rules.Predicate `json:"predicate"`
	Matches   []types.Recipe  `json:"matches"`
	Count     int             `json:"count"`
	Published int             `json:"published"`
}

// Compile compiles cfg against rctx with limits applied.
func (s *RuleService) Compile(cfg types.RuleConfig, rctx types.RuleContext) (rules.Predicate, error) {
	start := time.Now()
	p, err := s.engine.Compile(cfg, rctx)
	metrics.RecordCompile(string(cfg.Mode), time.Since(start), err)
	return p, err
}

// Validate reports every structural and limit problem of cfg.
func (s *RuleService) Validate(cfg types.RuleConfig) rules.ValidationResult {
	res := s.engine.Validate(cfg)
	metrics.RecordValidation(res.Valid)
	return res
}

// Qualify classifies counts with the configured thresholds.
func (s *RuleService) Qualify(publishedCount, targetCount, minRequired int) qualification.Result {
	res := s.thresholds.Evaluate(publishedCount, targetCount, minRequired)
	metrics.RecordQualification(string(res.Status))
	return res
}

// Preview evaluates a draft rule over recipes without touching storage.
func (s *RuleService) Preview(cfg types.RuleConfig, rctx types.RuleContext, recipes []types.Recipe) (*PreviewResult, error) {
	p, err := s.Compile(cfg, rctx)
	if err != nil {
		return nil, err
	}
	matches := rules.Filter(p, recipes)
	published := 0
	for _, r := range matches {
		if r.Status == types.RecipePublished {
			published++
		}
	}
	return &PreviewResult{Predicate: p, Matches: matches, Count: len(matches), Published: published}, nil
}
