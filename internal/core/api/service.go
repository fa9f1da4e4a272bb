// Package api provides the collection service and its HTTP surface.
package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/recipeatlas/recipeatlas/internal/core/db"
	"github.com/recipeatlas/recipeatlas/internal/logging"
	"github.com/recipeatlas/recipeatlas/internal/rules"
	"github.com/recipeatlas/recipeatlas/internal/types"
)

// CollectionService orchestrates the store, the rule engine and the
// qualification thresholds. It owns no state beyond its dependencies.
type CollectionService struct {
	store *db.Store
	rules *RuleService
	now   func() time.Time

	// previewLimit bounds the stored recipes a preview evaluates.
	previewLimit int
}

// DefaultPreviewLimit is how many of the newest stored recipes a preview
// without inline recipes evaluates.
const DefaultPreviewLimit = 1000

// NewCollectionService creates service instance with dependencies.
func NewCollectionService(store *db.Store, ruleService *RuleService) (*CollectionService, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if ruleService == nil {
		return nil, fmt.Errorf("ruleService cannot be nil")
	}
	return &CollectionService{
		store:        store,
		rules:        ruleService,
		now:          time.Now,
		previewLimit: DefaultPreviewLimit,
	}, nil
}

// Rules returns the stateless rule service.
func (s *CollectionService) Rules() *RuleService {
	return s.rules
}

// checkRules rejects cfg with every validation problem, then compiles it
// against rctx so unbound parameters are caught before anything is stored.
func (s *CollectionService) checkRules(cfg types.RuleConfig, rctx types.RuleContext) error {
	if res := s.rules.Validate(cfg); !res.Valid {
		return &InvalidRulesError{Errors: res.Errors}
	}
	if _, err := s.rules.Compile(cfg, rctx); err != nil {
		return err
	}
	return nil
}

// Create stores a new collection after validating its rules.
func (s *CollectionService) Create(ctx context.Context, c *db.Collection) error {
	if err := s.checkRules(c.Rules, c.RuleContext()); err != nil {
		return err
	}
	if err := s.store.CreateCollection(ctx, c); err != nil {
		return err
	}
	logging.Ctx(ctx).Info().
		Str("collection_id", string(c.ID)).
		Str("mode", string(c.Rules.Mode)).
		Msg("Collection created")
	return nil
}

// Get returns one collection.
func (s *CollectionService) Get(ctx context.Context, id types.CollectionID) (*db.Collection, error) {
	return s.store.GetCollection(ctx, id)
}

// List returns every collection.
func (s *CollectionService) List(ctx context.Context) ([]*db.Collection, error) {
	return s.store.ListCollections(ctx)
}

// UpdateRules replaces a collection's rules. A nil excluded keeps the
// current exclusions.
func (s *CollectionService) UpdateRules(ctx context.Context, id types.CollectionID, cfg types.RuleConfig, excluded []string) (*db.Collection, error) {
	c, err := s.store.GetCollection(ctx, id)
	if err != nil {
		return nil, err
	}
	if excluded != nil {
		c.ExcludedRecipeIDs = excluded
	}
	if err := s.checkRules(cfg, c.RuleContext()); err != nil {
		return nil, err
	}
	if err := s.store.UpdateCollectionRules(ctx, id, cfg, c.ExcludedRecipeIDs); err != nil {
		return nil, err
	}
	return s.store.GetCollection(ctx, id)
}

// Delete removes a collection.
func (s *CollectionService) Delete(ctx context.Context, id types.CollectionID) error {
	return s.store.DeleteCollection(ctx, id)
}

// compile compiles a stored collection's rules against its own context.
func (s *CollectionService) compile(c *db.Collection) (rules.Predicate, error) {
	return s.rules.Compile(c.Rules, c.RuleContext())
}

// Requalify recomputes and persists the qualification snapshot of one
// collection. Only published recipes count toward progress; pending
// matches are recorded alongside.
func (s *CollectionService) Requalify(ctx context.Context, id types.CollectionID) (*db.Collection, error) {
	c, err := s.store.GetCollection(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.requalify(ctx, c)
}

func (s *CollectionService) requalify(ctx context.Context, c *db.Collection) (*db.Collection, error) {
	p, err := s.compile(c)
	if err != nil {
		return nil, fmt.Errorf("compile rules of collection %s: %w", c.ID, err)
	}
	published, err := s.store.CountMatching(ctx, p, types.RecipePublished)
	if err != nil {
		return nil, err
	}
	pending, err := s.store.CountMatching(ctx, p, types.RecipePending)
	if err != nil {
		return nil, err
	}

	res := s.rules.Qualify(published, c.TargetCount, c.MinRequired)
	at := s.now().UTC()
	if err := s.store.SaveQualification(ctx, c.ID, res, pending, at); err != nil {
		return nil, err
	}

	c.PublishedCount = res.PublishedCount
	c.PendingCount = pending
	c.Progress = res.Progress
	c.QualifiedStatus = res.Status
	c.LastQualifiedAt = &at
	c.UpdatedAt = at
	return c, nil
}

// RequalifyAll recomputes every collection. A failing collection is
// logged and skipped; the failures are returned joined.
func (s *CollectionService) RequalifyAll(ctx context.Context) ([]*db.Collection, error) {
	collections, err := s.store.ListCollections(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*db.Collection, 0, len(collections))
	var errs []error
	for _, c := range collections {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		updated, err := s.requalify(ctx, c)
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Str("collection_id", string(c.ID)).Msg("Requalification failed")
			errs = append(errs, err)
			continue
		}
		logging.Ctx(ctx).Info().
			Str("collection_id", string(c.ID)).
			Int("published", updated.PublishedCount).
			Int("progress", updated.Progress).
			Str("status", string(updated.QualifiedStatus)).
			Msg("Collection requalified")
		out = append(out, updated)
	}
	return out, errors.Join(errs...)
}

// Recipes returns a page of published recipes matching a collection and
// the total number of matches.
func (s *CollectionService) Recipes(ctx context.Context, id types.CollectionID, limit, offset int) ([]types.Recipe, int, error) {
	c, err := s.store.GetCollection(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	p, err := s.compile(c)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.CountMatching(ctx, p, types.RecipePublished)
	if err != nil {
		return nil, 0, err
	}
	recipes, err := s.store.ListMatching(ctx, p, types.RecipePublished, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return recipes, total, nil
}

// Preview evaluates a draft rule in memory. With recipes nil the newest
// previewLimit stored recipes are used.
func (s *CollectionService) Preview(ctx context.Context, cfg types.RuleConfig, rctx types.RuleContext, recipes []types.Recipe) (*PreviewResult, error) {
	if recipes == nil {
		var err error
		if recipes, err = s.store.ListRecipes(ctx, s.previewLimit); err != nil {
			return nil, err
		}
	}
	return s.rules.Preview(cfg, rctx, recipes)
}
