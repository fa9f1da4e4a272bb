package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/recipeatlas/recipeatlas/internal/core/db"
	"github.com/recipeatlas/recipeatlas/internal/rules"
	"github.com/recipeatlas/recipeatlas/internal/types"
)

// maxPageSize caps /collections/{id}/recipes pages.
const maxPageSize = 500

// Handler serves the admin API.
type Handler struct {
	collections *CollectionService
}

// NewHandler creates the HTTP handlers over a collection service.
func NewHandler(collections *CollectionService) *Handler {
	return &Handler{collections: collections}
}

type ruleRequest struct {
	Rules   *types.RuleConfig `json:"rules" validate:"required"`
	Context types.RuleContext `json:"context"`
}

type previewRequest struct {
	Rules   *types.RuleConfig `json:"rules" validate:"required"`
	Context types.RuleContext `json:"context"`
	Recipes []types.Recipe    `json:"recipes"`
}

type qualificationRequest struct {
	PublishedCount *int `json:"publishedCount" validate:"required"`
	TargetCount    *int `json:"targetCount" validate:"required"`
	MinRequired    *int `json:"minRequired" validate:"required"`
}

type createCollectionRequest struct {
	Name              string            `json:"name" validate:"required,max=200"`
	Slug              string            `json:"slug" validate:"required,slug,max=200"`
	Description       string            `json:"description" validate:"max=2000"`
	Rules             *types.RuleConfig `json:"rules" validate:"required"`
	CuisineID         string            `json:"cuisineId"`
	LocationID        string            `json:"locationId"`
	TagID             string            `json:"tagId"`
	ExcludedRecipeIDs []string          `json:"excludedRecipeIds" validate:"omitempty,dive,required"`
	TargetCount       int               `json:"targetCount" validate:"gte=0"`
	MinRequired       int               `json:"minRequired" validate:"gte=0"`
}

type updateRulesRequest struct {
	Rules             *types.RuleConfig `json:"rules" validate:"required"`
	ExcludedRecipeIDs []string          `json:"excludedRecipeIds" validate:"omitempty,dive,required"`
}

// compileResponse carries the predicate and, when it constrains anything,
// the SQL it executes as.
type compileResponse struct {
	Predicate rules.Predicate `json:"predicate"`
	Where     string          `json:"where,omitempty"`
	Args      []any           `json:"args,omitempty"`
}

type recipesResponse struct {
	Recipes []types.Recipe `json:"recipes"`
	Total   int            `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

// ValidateRules handles POST /rules/validate. Invalid configs are a
// successful response with valid=false.
func (h *Handler) ValidateRules(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, h.collections.Rules().Validate(*req.Rules))
}

// CompileRules handles POST /rules/compile.
func (h *Handler) CompileRules(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	p, err := h.collections.Rules().Compile(*req.Rules, req.Context)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := compileResponse{Predicate: p}
	where, err := db.WhereClause(p)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if where != nil {
		if resp.Where, resp.Args, err = where.ToSql(); err != nil {
			respondError(w, r, err)
			return
		}
	}
	respondOK(w, r, http.StatusOK, resp)
}

// PreviewRules handles POST /rules/preview.
func (h *Handler) PreviewRules(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	res, err := h.collections.Preview(r.Context(), *req.Rules, req.Context, req.Recipes)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, res)
}

// Qualification handles POST /qualification.
func (h *Handler) Qualification(w http.ResponseWriter, r *http.Request) {
	var req qualificationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	res := h.collections.Rules().Qualify(*req.PublishedCount, *req.TargetCount, *req.MinRequired)
	respondOK(w, r, http.StatusOK, res)
}

// ListCollections handles GET /collections.
func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	list, err := h.collections.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, list)
}

// CreateCollection handles POST /collections.
func (h *Handler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	c := &db.Collection{
		Name:              req.Name,
		Slug:              req.Slug,
		Description:       req.Description,
		Rules:             *req.Rules,
		CuisineID:         req.CuisineID,
		LocationID:        req.LocationID,
		TagID:             req.TagID,
		ExcludedRecipeIDs: req.ExcludedRecipeIDs,
		TargetCount:       req.TargetCount,
		MinRequired:       req.MinRequired,
	}
	if err := h.collections.Create(r.Context(), c); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusCreated, c)
}

// collectionID parses the {id} URL parameter.
func collectionID(r *http.Request) (types.CollectionID, error) {
	id, err := types.ParseCollectionID(chi.URLParam(r, "id"))
	if err != nil {
		return "", badRequest("id", "uuid", "id must be a UUID")
	}
	return id, nil
}

// GetCollection handles GET /collections/{id}.
func (h *Handler) GetCollection(w http.ResponseWriter, r *http.Request) {
	id, err := collectionID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	c, err := h.collections.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, c)
}

// DeleteCollection handles DELETE /collections/{id}.
func (h *Handler) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	id, err := collectionID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.collections.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, map[string]string{"id": string(id)})
}

// UpdateRules handles PUT /collections/{id}/rules.
func (h *Handler) UpdateRules(w http.ResponseWriter, r *http.Request) {
	id, err := collectionID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req updateRulesRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	c, err := h.collections.UpdateRules(r.Context(), id, *req.Rules, req.ExcludedRecipeIDs)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, c)
}

// Requalify handles POST /collections/{id}/requalify.
func (h *Handler) Requalify(w http.ResponseWriter, r *http.Request) {
	id, err := collectionID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	c, err := h.collections.Requalify(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, c)
}

// CollectionRecipes handles GET /collections/{id}/recipes?limit=&offset=.
func (h *Handler) CollectionRecipes(w http.ResponseWriter, r *http.Request) {
	id, err := collectionID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	limit, err := getIntParam(r, "limit", 50)
	if err != nil {
		respondError(w, r, err)
		return
	}
	offset, err := getIntParam(r, "offset", 0)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if limit == 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	recipes, total, err := h.collections.Recipes(r.Context(), id, limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, r, http.StatusOK, recipesResponse{Recipes: recipes, Total: total, Limit: limit, Offset: offset})
}

// Health handles GET /healthz by pinging the database.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.collections.store.DB().PingContext(r.Context()); err != nil {
		respondJSON(w, r, http.StatusServiceUnavailable, &Response{
			Status: "error",
			Error:  &APIError{Code: "UNAVAILABLE", Message: "database unreachable"},
		})
		return
	}
	respondOK(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
