package hybrid

import (
	"context"
	"math"
	"testing"

	"github.com/snacktrack/tastekit/core"
	"github.com/snacktrack/tastekit/store/memory"
)

func TestTrainerNoInteractions(t *testing.T) {
	st := memory.New()
	tr := &Trainer{Store: st, ColdStartThreshold: core.DefaultColdStartThreshold}

	got, err := tr.Train(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if got.Message != "No interactions found. Profile initialized as cold start." {
		t.Errorf("message = %q", got.Message)
	}
	if !got.ColdStart || got.InteractionCount != 0 {
		t.Errorf("result = %+v", got)
	}

	// The profile row must exist afterwards.
	profile, err := st.TasteProfile(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if profile == nil || !profile.ColdStart || profile.InteractionCount != 0 {
		t.Errorf("persisted profile = %+v", profile)
	}
	if profile.LastTrainedAt.IsZero() {
		t.Error("LastTrainedAt not set")
	}
}

// A retrain that finds no interactions must not wipe a previously
// trained vector: only cold_start, count and timestamp are rewritten.
func TestTrainerNoInteractionsKeepsTrainedVector(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	trained := &core.TasteProfile{
		UserID:           "u1",
		PreferenceVector: []float64{0.6, 0.8},
		InteractionCount: 9,
	}
	if err := st.UpsertTasteProfile(ctx, trained); err != nil {
		t.Fatal(err)
	}
	tr := &Trainer{Store: st, ColdStartThreshold: core.DefaultColdStartThreshold}

	got, err := tr.Train(ctx, "u1")
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if !got.ColdStart {
		t.Errorf("result = %+v, want cold start", got)
	}

	profile, err := st.TasteProfile(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !profile.ColdStart || profile.InteractionCount != 0 {
		t.Errorf("persisted profile = %+v", profile)
	}
	want := []float64{0.6, 0.8}
	if len(profile.PreferenceVector) != len(want) {
		t.Fatalf("preference vector wiped: %v", profile.PreferenceVector)
	}
	for i, w := range want {
		if profile.PreferenceVector[i] != w {
			t.Errorf("vector[%d] = %v, want %v", i, profile.PreferenceVector[i], w)
		}
	}
}

func TestTrainerBuildsUnitPreferenceVector(t *testing.T) {
	st := memory.New()
	st.AddRecipe(&core.Recipe{ID: "r1", IngredientVector: []float64{1, 0, 0}})
	st.AddRecipe(&core.Recipe{ID: "r2", IngredientVector: []float64{0, 1, 0}})
	st.AddInteraction(core.Interaction{UserID: "u1", RecipeID: "r1", Type: core.InteractionCook})
	st.AddInteraction(core.Interaction{UserID: "u1", RecipeID: "r2", Type: core.InteractionView})
	tr := &Trainer{Store: st, ColdStartThreshold: core.DefaultColdStartThreshold}

	got, err := tr.Train(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if got.InteractionCount != 2 || !got.ColdStart {
		t.Errorf("result = %+v", got)
	}
	if got.Message != "Model retrained with 2 interactions. Maturity: cold_start." {
		t.Errorf("message = %q", got.Message)
	}

	profile, err := st.TasteProfile(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if profile == nil || len(profile.PreferenceVector) != 3 {
		t.Fatalf("profile = %+v", profile)
	}

	// cook 5.0 vs view 1.0, then unit-normalized: direction (5, 1, 0)/|(5,1,0)|
	norm := math.Sqrt(26)
	want := []float64{5 / norm, 1 / norm, 0}
	for i, w := range want {
		if math.Abs(profile.PreferenceVector[i]-w) > 1e-9 {
			t.Errorf("vector[%d] = %v, want %v", i, profile.PreferenceVector[i], w)
		}
	}
}

// Negative interactions push the preference away from a recipe but
// still grow the denominator.
func TestTrainerNegativeInteraction(t *testing.T) {
	st := memory.New()
	st.AddRecipe(&core.Recipe{ID: "liked", IngredientVector: []float64{1, 0}})
	st.AddRecipe(&core.Recipe{ID: "rejected", IngredientVector: []float64{0, 1}})
	st.AddInteraction(core.Interaction{UserID: "u1", RecipeID: "liked", Type: core.InteractionCook})
	st.AddInteraction(core.Interaction{UserID: "u1", RecipeID: "rejected", Type: core.InteractionSwapReject})
	tr := &Trainer{Store: st}

	if _, err := tr.Train(context.Background(), "u1"); err != nil {
		t.Fatalf("Train: %v", err)
	}
	profile, err := st.TasteProfile(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if profile.PreferenceVector[0] <= 0 {
		t.Errorf("liked dimension = %v, want positive", profile.PreferenceVector[0])
	}
	if profile.PreferenceVector[1] >= 0 {
		t.Errorf("rejected dimension = %v, want negative", profile.PreferenceVector[1])
	}
}

func TestTrainerRatingScalesWeight(t *testing.T) {
	build := func(rating float64) []float64 {
		st := memory.New()
		st.AddRecipe(&core.Recipe{ID: "rated", IngredientVector: []float64{1, 1}})
		st.AddRecipe(&core.Recipe{ID: "other", IngredientVector: []float64{0, 1}})
		st.AddInteraction(core.Interaction{UserID: "u1", RecipeID: "rated", Type: core.InteractionRate, Value: rating})
		st.AddInteraction(core.Interaction{UserID: "u1", RecipeID: "other", Type: core.InteractionView})
		tr := &Trainer{Store: st}
		if _, err := tr.Train(context.Background(), "u1"); err != nil {
			t.Fatalf("Train: %v", err)
		}
		p, err := st.TasteProfile(context.Background(), "u1")
		if err != nil {
			t.Fatal(err)
		}
		return p.PreferenceVector
	}

	low := build(1)
	high := build(5)
	if high[0] <= low[0] {
		t.Errorf("5-star vector %v should lean harder into the rated recipe than 1-star %v", high, low)
	}
}

func TestTrainerMaturityTransition(t *testing.T) {
	st := memory.New()
	st.AddRecipe(&core.Recipe{ID: "r1", IngredientVector: []float64{1, 0}})
	for i := 0; i < 25; i++ {
		st.AddInteraction(core.Interaction{UserID: "u1", RecipeID: "r1", Type: core.InteractionView})
	}
	tr := &Trainer{Store: st, ColdStartThreshold: core.DefaultColdStartThreshold}

	got, err := tr.Train(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if got.ColdStart {
		t.Error("25 interactions flagged cold start")
	}
	if got.Message != "Model retrained with 25 interactions. Maturity: mature." {
		t.Errorf("message = %q", got.Message)
	}

	profile, _ := st.TasteProfile(context.Background(), "u1")
	mature := core.WeightsFor(core.StageMature)
	if profile.ContentWeight != mature.Content || profile.CollabWeight != mature.Collaborative {
		t.Errorf("legacy weights = %v/%v, want %v/%v",
			profile.ContentWeight, profile.CollabWeight, mature.Content, mature.Collaborative)
	}
}

// Retraining twice on the same history is idempotent.
func TestTrainerIdempotent(t *testing.T) {
	st := memory.New()
	st.AddRecipe(&core.Recipe{ID: "r1", IngredientVector: []float64{0.3, 0.7}})
	st.AddInteraction(core.Interaction{UserID: "u1", RecipeID: "r1", Type: core.InteractionLog})
	tr := &Trainer{Store: st}

	if _, err := tr.Train(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}
	first, _ := st.TasteProfile(context.Background(), "u1")
	if _, err := tr.Train(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}
	second, _ := st.TasteProfile(context.Background(), "u1")

	for i := range first.PreferenceVector {
		if first.PreferenceVector[i] != second.PreferenceVector[i] {
			t.Errorf("vector[%d] drifted: %v -> %v", i, first.PreferenceVector[i], second.PreferenceVector[i])
		}
	}
}
