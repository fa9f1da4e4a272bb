package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// envelope mirrors Response with raw data for per-test decoding.
type envelope struct {
	Status   string          `json:"status"`
	Data     json.RawMessage `json:"data"`
	Metadata Metadata        `json:"metadata"`
	Error    *APIError       `json:"error"`
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(NewHandler(newTestService(t)), 5*time.Second)
}

func do(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func TestRouter_Healthz(t *testing.T) {
	h := newTestRouter(t)
	w, env := do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", env.Status)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, w.Header().Get("X-Request-ID"), env.Metadata.RequestID)
}

func TestRouter_RequestIDIsEchoed(t *testing.T) {
	h := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
}

func TestRouter_Metrics(t *testing.T) {
	h := newTestRouter(t)
	do(t, h, http.MethodPost, "/api/v1/qualification", map[string]any{"publishedCount": 1, "targetCount": 2, "minRequired": 3})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "recipeatlas_")
}

func TestHandler_CompileRules(t *testing.T) {
	h := newTestRouter(t)

	w, env := do(t, h, http.MethodPost, "/api/v1/rules/compile", map[string]any{
		"rules":   map[string]any{"mode": "auto", "field": "cuisineId"},
		"context": map[string]any{"cuisineId": "sichuan"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got struct {
		Predicate map[string]any `json:"predicate"`
		Where     string         `json:"where"`
		Args      []any          `json:"args"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, map[string]any{"cuisineId": "sichuan"}, got.Predicate)
	assert.Equal(t, "r.cuisine_id = ?", got.Where)
	assert.Equal(t, []any{"sichuan"}, got.Args)
}

func TestHandler_CompileRulesEmpty(t *testing.T) {
	h := newTestRouter(t)

	w, env := do(t, h, http.MethodPost, "/api/v1/rules/compile", map[string]any{
		"rules": map[string]any{"mode": "custom"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"predicate":{}}`, string(env.Data))
}

func TestHandler_Errors(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"compile invalid rule", http.MethodPost, "/api/v1/rules/compile",
			map[string]any{"rules": map[string]any{"mode": "custom", "groups": []any{
				map[string]any{"logic": "AND", "conditions": []any{map[string]any{"field": "cookTime", "operator": "lte", "value": "30"}}},
			}}},
			http.StatusUnprocessableEntity, CodeRuleInvalid},
		{"compile auto rule on unknown field", http.MethodPost, "/api/v1/rules/compile",
			map[string]any{"rules": map[string]any{"mode": "auto", "field": "calories", "value": "x"}},
			http.StatusUnprocessableEntity, CodeRuleInvalid},
		{"missing rules", http.MethodPost, "/api/v1/rules/compile", map[string]any{}, http.StatusBadRequest, CodeValidationError},
		{"malformed json", http.MethodPost, "/api/v1/rules/compile", "{not json", http.StatusBadRequest, CodeValidationError},
		{"unknown member", http.MethodPost, "/api/v1/rules/validate", map[string]any{"rules": map[string]any{"mode": "auto"}, "extra": 1}, http.StatusBadRequest, CodeValidationError},
		{"qualification missing counts", http.MethodPost, "/api/v1/qualification", map[string]any{"publishedCount": 1}, http.StatusBadRequest, CodeValidationError},
		{"bad collection id", http.MethodGet, "/api/v1/collections/not-a-uuid", nil, http.StatusBadRequest, CodeValidationError},
		{"missing collection", http.MethodGet, "/api/v1/collections/01890a5d-ac96-774b-bcce-b302099a8057", nil, http.StatusNotFound, CodeNotFound},
		{"bad limit", http.MethodGet, "/api/v1/collections/01890a5d-ac96-774b-bcce-b302099a8057/recipes?limit=-1", nil, http.StatusBadRequest, CodeValidationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, "error", env.Status)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
		})
	}
}

func TestHandler_ValidateRules(t *testing.T) {
	h := newTestRouter(t)

	w, env := do(t, h, http.MethodPost, "/api/v1/rules/validate", map[string]any{
		"rules": map[string]any{"mode": "custom", "groups": []any{
			map[string]any{"logic": "NOR", "conditions": []any{}},
		}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Valid  bool     `json:"valid"`
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.False(t, got.Valid)
	require.Len(t, got.Errors, 1)
	assert.Contains(t, got.Errors[0], "groups[0]")
}

func TestHandler_Qualification(t *testing.T) {
	h := newTestRouter(t)

	w, env := do(t, h, http.MethodPost, "/api/v1/qualification", map[string]any{
		"publishedCount": 45, "targetCount": 60, "minRequired": 60,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"publishedCount":45,"targetCount":60,"minRequired":60,"progress":75,"status":"UNQUALIFIED"}`, string(env.Data))
}

func TestHandler_PreviewRules(t *testing.T) {
	h := newTestRouter(t)

	w, env := do(t, h, http.MethodPost, "/api/v1/rules/preview", map[string]any{
		"rules": map[string]any{"mode": "auto", "field": "cuisineId", "value": "thai"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got PreviewResult
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, 1, got.Count)
	assert.Equal(t, []string{"rd"}, recipeIDs(got.Matches))
}

func TestHandler_CollectionLifecycle(t *testing.T) {
	h := newTestRouter(t)

	w, env := do(t, h, http.MethodPost, "/api/v1/collections", map[string]any{
		"name":        "Spicy and quick",
		"slug":        "spicy-and-quick",
		"rules":       spicyQuickRules(),
		"targetCount": 2,
		"minRequired": 2,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID              string `json:"id"`
		QualifiedStatus string `json:"qualifiedStatus"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "UNQUALIFIED", created.QualifiedStatus)
	base := "/api/v1/collections/" + created.ID

	w, env = do(t, h, http.MethodPost, base+"/requalify", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var requalified struct {
		PublishedCount  int    `json:"publishedCount"`
		Progress        int    `json:"progress"`
		QualifiedStatus string `json:"qualifiedStatus"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &requalified))
	assert.Equal(t, 2, requalified.PublishedCount)
	assert.Equal(t, 100, requalified.Progress)
	assert.Equal(t, "QUALIFIED", requalified.QualifiedStatus)

	w, env = do(t, h, http.MethodGet, base+"/recipes?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page recipesResponse
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.Limit)
	assert.Equal(t, []string{"rd"}, recipeIDs(page.Recipes))

	w, _ = do(t, h, http.MethodPut, base+"/rules", map[string]any{
		"rules":             spicyQuickRules(),
		"excludedRecipeIds": []string{"rd"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, env = do(t, h, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched struct {
		ExcludedRecipeIDs []string `json:"excludedRecipeIds"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &fetched))
	assert.Equal(t, []string{"rd"}, fetched.ExcludedRecipeIDs)

	w, env = do(t, h, http.MethodGet, "/api/v1/collections", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)

	w, _ = do(t, h, http.MethodDelete, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, h, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_CreateCollectionValidation(t *testing.T) {
	h := newTestRouter(t)

	w, env := do(t, h, http.MethodPost, "/api/v1/collections", map[string]any{
		"name":        "",
		"slug":        "Not A Slug",
		"rules":       map[string]any{"mode": "auto", "field": "cuisineId"},
		"targetCount": -1,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	fields, ok := env.Error.Details["fields"].([]any)
	require.True(t, ok)
	assert.Len(t, fields, 3)

	w, env = do(t, h, http.MethodPost, "/api/v1/collections", map[string]any{
		"name":  "Bad rules",
		"slug":  "bad-rules",
		"rules": map[string]any{"mode": "custom", "groups": []any{map[string]any{"logic": "XOR"}}},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, CodeRuleInvalid, env.Error.Code)
	assert.Len(t, env.Error.Details["errors"], 1)
}

func TestSanitizeLogValue(t *testing.T) {
	if got := sanitizeLogValue("a\nb\x7f"); got != `a\x0ab\x7f` {
		t.Errorf("sanitizeLogValue = %q, want %q", got, `a\x0ab\x7f`)
	}
}
