package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snacktrack/tastekit/core"
	"github.com/snacktrack/tastekit/store/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()
	st := memory.New()
	engine, err := New(Options{Store: st})
	require.NoError(t, err)
	return Router(engine, nil), st
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestMetricsExposed(t *testing.T) {
	r, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecommendValidation(t *testing.T) {
	r, _ := newTestRouter(t)
	tests := []struct {
		name string
		body interface{}
	}{
		{"missing user_id", map[string]interface{}{"top_n": 5}},
		{"top_n too large", map[string]interface{}{"user_id": "u1", "top_n": 51}},
		{"top_n negative", map[string]interface{}{"user_id": "u1", "top_n": -3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/recommend", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

// A brand-new user still gets recommendations: the knowledge scorer
// works without any personal history.
func TestRecommendColdStartUser(t *testing.T) {
	r, st := newTestRouter(t)
	st.AddRecipe(&core.Recipe{ID: "hot", Title: "Pad Thai", Calories: 700})
	st.AddRecipe(&core.Recipe{ID: "lukewarm", Title: "Ramen", Calories: 650})

	w := doJSON(t, r, http.MethodPost, "/recommend", map[string]interface{}{"user_id": "newcomer"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp RecommendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "newcomer", resp.UserID)
	assert.True(t, resp.IsColdStart)
	assert.Equal(t, "v1", resp.ModelVersion)
	require.NotEmpty(t, resp.Recommendations)
	for _, rec := range resp.Recommendations {
		assert.Equal(t, "hybrid", rec.Source)
	}
}

// With no recipes at all, every scorer is empty and the popular
// fallback serves an empty list rather than an error.
func TestRecommendEmptyCatalog(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodPost, "/recommend", map[string]interface{}{"user_id": "newcomer"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp RecommendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.IsColdStart)
	assert.Empty(t, resp.Recommendations)
}

func TestRecommendExcludeHonored(t *testing.T) {
	r, st := newTestRouter(t)
	st.AddRecipe(&core.Recipe{ID: "hot", Title: "Pad Thai"})
	st.AddRecipe(&core.Recipe{ID: "other", Title: "Ramen"})

	w := doJSON(t, r, http.MethodPost, "/recommend", map[string]interface{}{
		"user_id":            "newcomer",
		"exclude_recipe_ids": []string{"hot"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp RecommendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	for _, rec := range resp.Recommendations {
		assert.NotEqual(t, "hot", rec.RecipeID)
	}
}

func TestTrainRoundTrip(t *testing.T) {
	r, st := newTestRouter(t)
	st.AddRecipe(&core.Recipe{ID: "r1", Title: "Curry", IngredientVector: []float64{1, 0}})
	for i := 0; i < 6; i++ {
		st.AddInteraction(core.Interaction{UserID: "u1", RecipeID: "r1", Type: core.InteractionCook})
	}

	w := doJSON(t, r, http.MethodPost, "/train", map[string]interface{}{"user_id": "u1"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp TrainResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 6, resp.InteractionCount)
	assert.False(t, resp.IsColdStart)
	assert.Equal(t, "Model retrained with 6 interactions. Maturity: early.", resp.Message)

	// After training the user owns a normalized preference vector.
	profile, err := st.TasteProfile(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.InDelta(t, 1.0, profile.PreferenceVector[0], 1e-9)
}

func TestTrainNoInteractions(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodPost, "/train", map[string]interface{}{"user_id": "ghost"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp TrainResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.IsColdStart)
	assert.Equal(t, "No interactions found. Profile initialized as cold start.", resp.Message)
}

// downStore fails every profile and training read the way an unreachable
// database would.
type downStore struct{ core.Store }

func (downStore) TasteProfile(ctx context.Context, userID string) (*core.TasteProfile, error) {
	return nil, fmt.Errorf("taste profile: %w", core.ErrStoreUnavailable)
}

func (downStore) TrainingInteractions(ctx context.Context, userID string, limit int) ([]core.TrainingInteraction, error) {
	return nil, fmt.Errorf("training interactions: %w", core.ErrStoreUnavailable)
}

func TestStoreOutageMapsTo503(t *testing.T) {
	engine, err := New(Options{Store: downStore{}})
	require.NoError(t, err)
	r := Router(engine, nil)

	w := doJSON(t, r, http.MethodPost, "/recommend", map[string]interface{}{"user_id": "u1"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doJSON(t, r, http.MethodPost, "/train", map[string]interface{}{"user_id": "u1"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRequestIDPropagated(t *testing.T) {
	r, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "fixed-id", w.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
