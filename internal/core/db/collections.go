package db

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/recipeatlas/recipeatlas/internal/qualification"
	"github.com/recipeatlas/recipeatlas/internal/types"
)

// Collection is a curated recipe list defined by a rule config.
// The qualification fields hold the last computed snapshot.
type Collection struct {
	ID                types.CollectionID   `json:"id"`
	Name              string               `json:"name"`
	Slug              string               `json:"slug"`
	Description       string               `json:"description"`
	Rules             types.RuleConfig     `json:"rules"`
	CuisineID         string               `json:"cuisineId,omitempty"`
	LocationID        string               `json:"locationId,omitempty"`
	TagID             string               `json:"tagId,omitempty"`
	ExcludedRecipeIDs []string             `json:"excludedRecipeIds"`
	TargetCount       int                  `json:"targetCount"`
	MinRequired       int                  `json:"minRequired"`
	PublishedCount    int                  `json:"publishedCount"`
	PendingCount      int                  `json:"pendingCount"`
	Progress          int                  `json:"progress"`
	QualifiedStatus   qualification.Status `json:"qualifiedStatus"`
	LastQualifiedAt   *time.Time           `json:"lastQualifiedAt,omitempty"`
	CreatedAt         time.Time            `json:"createdAt"`
	UpdatedAt         time.Time            `json:"updatedAt"`
}

// RuleContext returns the values the collection's rules may bind.
func (c *Collection) RuleContext() types.RuleContext {
	return types.RuleContext{
		CuisineID:         c.CuisineID,
		LocationID:        c.LocationID,
		TagID:             c.TagID,
		ExcludedRecipeIDs: c.ExcludedRecipeIDs,
	}
}

// collectionRow is the storage shape: rules and exclusions as JSON text.
type collectionRow struct {
	ID                string     `db:"id"`
	Name              string     `db:"name"`
	Slug              string     `db:"slug"`
	Description       string     `db:"description"`
	Rules             string     `db:"rules"`
	CuisineID         string     `db:"cuisine_id"`
	LocationID        string     `db:"location_id"`
	TagID             string     `db:"tag_id"`
	ExcludedRecipeIDs string     `db:"excluded_recipe_ids"`
	TargetCount       int        `db:"target_count"`
	MinRequired       int        `db:"min_required"`
	PublishedCount    int        `db:"published_count"`
	PendingCount      int        `db:"pending_count"`
	Progress          int        `db:"progress"`
	QualifiedStatus   string     `db:"qualified_status"`
	LastQualifiedAt   *time.Time `db:"last_qualified_at"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

func (r collectionRow) toCollection() (*Collection, error) {
	c := &Collection{
		ID:              types.CollectionID(r.ID),
		Name:            r.Name,
		Slug:            r.Slug,
		Description:     r.Description,
		CuisineID:       r.CuisineID,
		LocationID:      r.LocationID,
		TagID:           r.TagID,
		TargetCount:     r.TargetCount,
		MinRequired:     r.MinRequired,
		PublishedCount:  r.PublishedCount,
		PendingCount:    r.PendingCount,
		Progress:        r.Progress,
		QualifiedStatus: qualification.Status(r.QualifiedStatus),
		LastQualifiedAt: r.LastQualifiedAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(r.Rules), &c.Rules); err != nil {
		return nil, fmt.Errorf("decode rules of collection %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.ExcludedRecipeIDs), &c.ExcludedRecipeIDs); err != nil {
		return nil, fmt.Errorf("decode excluded recipes of collection %s: %w", r.ID, err)
	}
	if c.ExcludedRecipeIDs == nil {
		c.ExcludedRecipeIDs = []string{}
	}
	return c, nil
}

func encodeRules(cfg types.RuleConfig, excluded []string) (string, string, error) {
	rules, err := json.Marshal(cfg)
	if err != nil {
		return "", "", fmt.Errorf("encode rules: %w", err)
	}
	if excluded == nil {
		excluded = []string{}
	}
	ids, err := json.Marshal(excluded)
	if err != nil {
		return "", "", fmt.Errorf("encode excluded recipes: %w", err)
	}
	return string(rules), string(ids), nil
}

// CreateCollection inserts c. ID, timestamps and the initial status are
// filled in.
func (s *Store) CreateCollection(ctx context.Context, c *Collection) (err error) {
	defer observe("create_collection", time.Now(), &err)

	if c.ID == "" {
		c.ID = types.NewCollectionID()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.QualifiedStatus == "" {
		c.QualifiedStatus = qualification.StatusUnqualified
	}
	if c.ExcludedRecipeIDs == nil {
		c.ExcludedRecipeIDs = []string{}
	}

	rules, excluded, err := encodeRules(c.Rules, c.ExcludedRecipeIDs)
	if err != nil {
		return err
	}

	_, err = s.queries.Exec(ctx, "create-collection",
		c.ID, c.Name, c.Slug, c.Description, rules, c.CuisineID, c.LocationID, c.TagID,
		excluded, c.TargetCount, c.MinRequired, c.QualifiedStatus, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert collection: %w", err)
	}
	return nil
}

// GetCollection returns one collection.
func (s *Store) GetCollection(ctx context.Context, id types.CollectionID) (c *Collection, err error) {
	defer observe("get_collection", time.Now(), &err)

	var row collectionRow
	if err := s.queries.Get(ctx, "get-collection", &row, id); err != nil {
		return nil, notFound(err, "collection "+string(id))
	}
	return row.toCollection()
}

// ListCollections returns every collection in creation order.
func (s *Store) ListCollections(ctx context.Context) (out []*Collection, err error) {
	defer observe("list_collections", time.Now(), &err)

	var rows []collectionRow
	if err := s.queries.Select(ctx, "list-collections", &rows); err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	out = make([]*Collection, 0, len(rows))
	for _, row := range rows {
		c, err := row.toCollection()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// UpdateCollectionRules replaces the rule config and excluded recipes.
// The stored qualification snapshot is left until the next requalify.
func (s *Store) UpdateCollectionRules(ctx context.Context, id types.CollectionID, cfg types.RuleConfig, excluded []string) (err error) {
	defer observe("update_collection_rules", time.Now(), &err)

	rules, ids, err := encodeRules(cfg, excluded)
	if err != nil {
		return err
	}
	res, err := s.queries.Exec(ctx, "update-collection-rules", rules, ids, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update collection rules: %w", err)
	}
	return requireRow(res, "collection "+string(id))
}

// DeleteCollection removes a collection.
func (s *Store) DeleteCollection(ctx context.Context, id types.CollectionID) (err error) {
	defer observe("delete_collection", time.Now(), &err)

	res, err := s.queries.Exec(ctx, "delete-collection", id)
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return requireRow(res, "collection "+string(id))
}

// SaveQualification persists a computed snapshot.
func (s *Store) SaveQualification(ctx context.Context, id types.CollectionID, res qualification.Result, pending int, at time.Time) (err error) {
	defer observe("save_qualification", time.Now(), &err)

	at = at.UTC()
	result, err := s.queries.Exec(ctx, "save-qualification",
		res.PublishedCount, pending, res.Progress, res.Status, at, at, id,
	)
	if err != nil {
		return fmt.Errorf("save qualification: %w", err)
	}
	return requireRow(result, "collection "+string(id))
}
