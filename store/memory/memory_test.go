package memory

import (
	"context"
	"testing"
	"time"

	"github.com/snacktrack/tastekit/core"
)

func TestTasteProfileRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	got, err := s.TasteProfile(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("missing profile = %+v, want nil", got)
	}

	in := &core.TasteProfile{UserID: "u1", InteractionCount: 4, PreferenceVector: []float64{1, 0}}
	if err := s.UpsertTasteProfile(ctx, in); err != nil {
		t.Fatal(err)
	}
	got, err = s.TasteProfile(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.InteractionCount != 4 {
		t.Fatalf("profile = %+v", got)
	}

	// Returned copy must not alias the stored profile.
	got.InteractionCount = 999
	again, _ := s.TasteProfile(ctx, "u1")
	if again.InteractionCount != 4 {
		t.Error("stored profile mutated through returned copy")
	}
}

func TestUpsertNilVectorKeepsTrainedVector(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.UpsertTasteProfile(ctx, &core.TasteProfile{
		UserID: "u1", PreferenceVector: []float64{0.6, 0.8}, InteractionCount: 9,
	}); err != nil {
		t.Fatal(err)
	}

	// Cold-start rewrite carries no vector; the trained one must survive.
	if err := s.UpsertTasteProfile(ctx, &core.TasteProfile{UserID: "u1", ColdStart: true}); err != nil {
		t.Fatal(err)
	}
	got, err := s.TasteProfile(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.ColdStart || got.InteractionCount != 0 {
		t.Errorf("profile = %+v", got)
	}
	if len(got.PreferenceVector) != 2 || got.PreferenceVector[0] != 0.6 || got.PreferenceVector[1] != 0.8 {
		t.Errorf("preference vector = %v, want [0.6 0.8]", got.PreferenceVector)
	}
}

func TestRecentInteractionsOrderedAndLimited(t *testing.T) {
	s := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s.AddInteraction(core.Interaction{
			UserID: "u1", RecipeID: "r", Type: core.InteractionView,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}

	got, err := s.RecentInteractions(context.Background(), "u1", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.After(got[i-1].CreatedAt) {
			t.Error("not newest-first")
		}
	}
}

func TestRecentRecipesFreshnessAndExclude(t *testing.T) {
	s := New()
	s.AddRecipe(&core.Recipe{ID: "old"})
	s.AddRecipe(&core.Recipe{ID: "mid"})
	s.AddRecipe(&core.Recipe{ID: "new"})

	got, err := s.RecentRecipes(context.Background(), 2, []string{"mid"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "new" || got[1].ID != "old" {
		t.Fatalf("got %v", ids(got))
	}
}

func TestNearestRecipesRanksBySimilarity(t *testing.T) {
	s := New()
	s.AddRecipe(&core.Recipe{ID: "aligned", Title: "A", IngredientVector: []float64{1, 0}})
	s.AddRecipe(&core.Recipe{ID: "orthogonal", Title: "B", IngredientVector: []float64{0, 1}})
	s.AddRecipe(&core.Recipe{ID: "unembedded", Title: "C"})

	got, err := s.NearestRecipes(context.Background(), core.VectorIngredient, []float64{1, 0}, 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2 (unembedded skipped)", len(got))
	}
	if got[0].RecipeID != "aligned" || got[0].Similarity != 1.0 {
		t.Errorf("top = %+v", got[0])
	}
}

func TestLikedRecipesPositiveOnly(t *testing.T) {
	s := New()
	s.AddRecipe(&core.Recipe{ID: "good"})
	s.AddRecipe(&core.Recipe{ID: "bad"})
	s.AddInteraction(core.Interaction{UserID: "u1", RecipeID: "good", Type: core.InteractionRate, Value: 5})
	s.AddInteraction(core.Interaction{UserID: "u1", RecipeID: "bad", Type: core.InteractionSwapReject, Value: -1})

	got, err := s.LikedRecipes(context.Background(), "u1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "good" {
		t.Fatalf("got %v", ids(got))
	}
}

func TestPopularRecipesCountsAllUsers(t *testing.T) {
	s := New()
	s.AddRecipe(&core.Recipe{ID: "hot", Title: "H"})
	s.AddRecipe(&core.Recipe{ID: "cold", Title: "C"})
	s.AddInteraction(core.Interaction{UserID: "a", RecipeID: "hot", Type: core.InteractionCook})
	s.AddInteraction(core.Interaction{UserID: "b", RecipeID: "hot", Type: core.InteractionView})

	got, err := s.PopularRecipes(context.Background(), nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2 (zero-interaction recipes included)", len(got))
	}
	if got[0].RecipeID != "hot" || got[0].Interactions != 2 {
		t.Errorf("top = %+v", got[0])
	}
	if got[1].Interactions != 0 {
		t.Errorf("cold = %+v", got[1])
	}
}

// The collaborative matrix cell is the raw sum of interaction values,
// not the type-weighted score used by the trainer.
func TestInteractionSumsRawValues(t *testing.T) {
	s := New()
	s.AddInteraction(core.Interaction{UserID: "u1", RecipeID: "r1", Type: core.InteractionCook, Value: 2})
	s.AddInteraction(core.Interaction{UserID: "u1", RecipeID: "r1", Type: core.InteractionRate, Value: 4})
	s.AddInteraction(core.Interaction{UserID: "other", RecipeID: "r1", Value: 1})

	got, err := s.InteractionSums(context.Background(), []string{"u1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d cells, want 1", len(got))
	}
	if got[0].Score != 6 {
		t.Errorf("cell = %v, want raw value sum 6", got[0].Score)
	}
}

func TestMealLogsJoinRecipe(t *testing.T) {
	s := New()
	s.AddRecipe(&core.Recipe{ID: "r1", Title: "Curry"})
	s.AddMealLog(core.MealLog{UserID: "u1", RecipeID: "r1", MealType: core.MealDinner, LoggedAt: time.Now()})
	s.AddMealLog(core.MealLog{UserID: "u1", RecipeID: "deleted", MealType: core.MealLunch, LoggedAt: time.Now()})

	got, err := s.RecentMealLogs(context.Background(), "u1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d logs", len(got))
	}
	var joined, dangling int
	for _, l := range got {
		if l.Recipe != nil {
			joined++
		} else {
			dangling++
		}
	}
	if joined != 1 || dangling != 1 {
		t.Errorf("joined=%d dangling=%d", joined, dangling)
	}
}

func ids(rs []*core.Recipe) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
