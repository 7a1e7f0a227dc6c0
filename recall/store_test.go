package recall

import (
	"context"

	"github.com/snacktrack/tastekit/core"
)

// fakeStore is a canned-data core.Store for scorer tests. Each field
// maps to one read method; zero value means "no data".
type fakeStore struct {
	profile       *core.TasteProfile
	interactions  []core.Interaction
	training      []core.TrainingInteraction
	liked         []*core.Recipe
	mealLogs      []core.MealLog
	recent        []*core.Recipe
	nearest       map[core.VectorColumn][]core.VectorMatch
	coUsers       []string
	sums          []core.InteractionSum
	titles        map[string]string
	allergens     []string
	dietary       *core.DietaryPreference
	popular       []core.PopularRecipe
	err           error
	upserted      []*core.TasteProfile
	nearestCalled map[core.VectorColumn]int
}

func (f *fakeStore) TasteProfile(ctx context.Context, userID string) (*core.TasteProfile, error) {
	return f.profile, f.err
}

func (f *fakeStore) UpsertTasteProfile(ctx context.Context, p *core.TasteProfile) error {
	f.upserted = append(f.upserted, p)
	return f.err
}

func (f *fakeStore) RecentInteractions(ctx context.Context, userID string, limit int) ([]core.Interaction, error) {
	return f.interactions, f.err
}

func (f *fakeStore) TrainingInteractions(ctx context.Context, userID string, limit int) ([]core.TrainingInteraction, error) {
	return f.training, f.err
}

func (f *fakeStore) LikedRecipes(ctx context.Context, userID string, limit int) ([]*core.Recipe, error) {
	return f.liked, f.err
}

func (f *fakeStore) RecentMealLogs(ctx context.Context, userID string, limit int) ([]core.MealLog, error) {
	return f.mealLogs, f.err
}

func (f *fakeStore) RecentRecipes(ctx context.Context, limit int, exclude []string) ([]*core.Recipe, error) {
	if f.err != nil {
		return nil, f.err
	}
	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	out := make([]*core.Recipe, 0, len(f.recent))
	for _, r := range f.recent {
		if _, ok := skip[r.ID]; ok {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) NearestRecipes(ctx context.Context, column core.VectorColumn, query []float64, k int, exclude []string) ([]core.VectorMatch, error) {
	if f.nearestCalled == nil {
		f.nearestCalled = make(map[core.VectorColumn]int)
	}
	f.nearestCalled[column]++
	return f.nearest[column], f.err
}

func (f *fakeStore) CoInteractingUsers(ctx context.Context, userID string, recipeIDs []string, limit int) ([]string, error) {
	return f.coUsers, f.err
}

func (f *fakeStore) InteractionSums(ctx context.Context, userIDs []string) ([]core.InteractionSum, error) {
	return f.sums, f.err
}

func (f *fakeStore) RecipeTitles(ctx context.Context, ids []string) (map[string]string, error) {
	return f.titles, f.err
}

func (f *fakeStore) UserAllergens(ctx context.Context, userID string) ([]string, error) {
	return f.allergens, f.err
}

func (f *fakeStore) DietaryPreference(ctx context.Context, userID string) (*core.DietaryPreference, error) {
	return f.dietary, f.err
}

func (f *fakeStore) PopularRecipes(ctx context.Context, exclude []string, limit int) ([]core.PopularRecipe, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := f.popular
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ core.Store = (*fakeStore)(nil)
