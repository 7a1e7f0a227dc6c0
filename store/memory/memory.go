// Package memory 提供 core.Store 的内存实现，用于测试与原型验证。
//
// 语义与 store/postgres 对齐：倒序排序、limit 截断、"无数据返回空"。
// 所有方法并发安全。
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/snacktrack/tastekit/core"
	"github.com/snacktrack/tastekit/pkg/vec"
)

// Store 是全内存的 core.Store 实现。零值可用。
type Store struct {
	mu sync.RWMutex

	profiles     map[string]*core.TasteProfile
	recipes      map[string]*core.Recipe
	recipeOrder  []string // 入库顺序，越靠后越新鲜
	interactions []core.Interaction
	mealLogs     []core.MealLog
	allergens    map[string][]string
	dietary      map[string]*core.DietaryPreference
}

// New 返回空 Store。
func New() *Store {
	return &Store{
		profiles:  make(map[string]*core.TasteProfile),
		recipes:   make(map[string]*core.Recipe),
		allergens: make(map[string][]string),
		dietary:   make(map[string]*core.DietaryPreference),
	}
}

// AddRecipe 入库一道菜谱；后入库的视为更新鲜。
func (s *Store) AddRecipe(r *core.Recipe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recipes[r.ID]; !ok {
		s.recipeOrder = append(s.recipeOrder, r.ID)
	}
	s.recipes[r.ID] = r
}

// AddInteraction 追加一条交互记录。
func (s *Store) AddInteraction(it core.Interaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interactions = append(s.interactions, it)
}

// AddMealLog 追加一条用餐记录。
func (s *Store) AddMealLog(l core.MealLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mealLogs = append(s.mealLogs, l)
}

// SetAllergens 设置用户过敏原申报。
func (s *Store) SetAllergens(userID string, allergens []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allergens[userID] = allergens
}

// SetDietaryPreference 设置用户饮食偏好。
func (s *Store) SetDietaryPreference(p *core.DietaryPreference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dietary[p.UserID] = p
}

func (s *Store) TasteProfile(ctx context.Context, userID string) (*core.TasteProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *Store) UpsertTasteProfile(ctx context.Context, profile *core.TasteProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *profile
	// 空向量不覆盖已训练的向量，口径与 postgres 的 COALESCE 更新一致
	if len(cp.PreferenceVector) == 0 {
		if old, ok := s.profiles[profile.UserID]; ok {
			cp.PreferenceVector = old.PreferenceVector
		}
	}
	s.profiles[profile.UserID] = &cp
	return nil
}

func (s *Store) RecentInteractions(ctx context.Context, userID string, limit int) ([]core.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Interaction, 0, limit)
	for _, it := range s.interactions {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return truncate(out, limit), nil
}

func (s *Store) TrainingInteractions(ctx context.Context, userID string, limit int) ([]core.TrainingInteraction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]core.Interaction, 0)
	for _, it := range s.interactions {
		if it.UserID != userID {
			continue
		}
		r, ok := s.recipes[it.RecipeID]
		if !ok || len(r.IngredientVector) == 0 {
			continue
		}
		matched = append(matched, it)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	matched = truncate(matched, limit)

	out := make([]core.TrainingInteraction, 0, len(matched))
	for _, it := range matched {
		out = append(out, core.TrainingInteraction{
			RecipeID:         it.RecipeID,
			Type:             it.Type,
			Value:            it.Value,
			IngredientVector: s.recipes[it.RecipeID].IngredientVector,
		})
	}
	return out, nil
}

func (s *Store) LikedRecipes(ctx context.Context, userID string, limit int) ([]*core.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	liked := make([]core.Interaction, 0)
	for _, it := range s.interactions {
		if it.UserID == userID && it.Value > 0 {
			liked = append(liked, it)
		}
	}
	sort.SliceStable(liked, func(i, j int) bool { return liked[i].CreatedAt.After(liked[j].CreatedAt) })

	seen := make(map[string]struct{})
	out := make([]*core.Recipe, 0, limit)
	for _, it := range liked {
		if _, ok := seen[it.RecipeID]; ok {
			continue
		}
		seen[it.RecipeID] = struct{}{}
		if r, ok := s.recipes[it.RecipeID]; ok {
			out = append(out, r)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *Store) RecentMealLogs(ctx context.Context, userID string, limit int) ([]core.MealLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.MealLog, 0, limit)
	for _, l := range s.mealLogs {
		if l.UserID != userID {
			continue
		}
		if r, ok := s.recipes[l.RecipeID]; ok {
			l.Recipe = r
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LoggedAt.After(out[j].LoggedAt) })
	return truncate(out, limit), nil
}

func (s *Store) RecentRecipes(ctx context.Context, limit int, exclude []string) ([]*core.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	skip := toSet(exclude)
	out := make([]*core.Recipe, 0, limit)
	for i := len(s.recipeOrder) - 1; i >= 0 && len(out) < limit; i-- {
		id := s.recipeOrder[i]
		if _, ok := skip[id]; ok {
			continue
		}
		out = append(out, s.recipes[id])
	}
	return out, nil
}

func (s *Store) NearestRecipes(ctx context.Context, column core.VectorColumn, query []float64, k int, exclude []string) ([]core.VectorMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	skip := toSet(exclude)
	matches := make([]core.VectorMatch, 0)
	for _, id := range s.recipeOrder {
		if _, ok := skip[id]; ok {
			continue
		}
		r := s.recipes[id]
		var v []float64
		switch column {
		case core.VectorIngredient:
			v = r.IngredientVector
		case core.VectorNutrition:
			v = r.NutritionVector
		}
		if len(v) == 0 {
			continue
		}
		matches = append(matches, core.VectorMatch{
			RecipeID:   id,
			Title:      r.Title,
			Similarity: vec.CosineGuarded(query, v),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	return truncate(matches, k), nil
}

func (s *Store) CoInteractingUsers(ctx context.Context, userID string, recipeIDs []string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := toSet(recipeIDs)
	seen := make(map[string]struct{})
	out := make([]string, 0, limit)
	for _, it := range s.interactions {
		if it.UserID == userID {
			continue
		}
		if _, ok := wanted[it.RecipeID]; !ok {
			continue
		}
		if _, ok := seen[it.UserID]; ok {
			continue
		}
		seen[it.UserID] = struct{}{}
		out = append(out, it.UserID)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) InteractionSums(ctx context.Context, userIDs []string) ([]core.InteractionSum, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := toSet(userIDs)
	type key struct{ user, recipe string }
	sums := make(map[key]float64)
	order := make([]key, 0)
	for _, it := range s.interactions {
		if _, ok := wanted[it.UserID]; !ok {
			continue
		}
		k := key{it.UserID, it.RecipeID}
		if _, ok := sums[k]; !ok {
			order = append(order, k)
		}
		sums[k] += it.Value
	}
	out := make([]core.InteractionSum, 0, len(order))
	for _, k := range order {
		out = append(out, core.InteractionSum{UserID: k.user, RecipeID: k.recipe, Score: sums[k]})
	}
	return out, nil
}

func (s *Store) RecipeTitles(ctx context.Context, ids []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if r, ok := s.recipes[id]; ok {
			out[id] = r.Title
		}
	}
	return out, nil
}

func (s *Store) UserAllergens(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw := s.allergens[userID]
	out := make([]string, len(raw))
	for i, a := range raw {
		out[i] = strings.ToLower(a)
	}
	return out, nil
}

func (s *Store) DietaryPreference(ctx context.Context, userID string) (*core.DietaryPreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.dietary[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *Store) PopularRecipes(ctx context.Context, exclude []string, limit int) ([]core.PopularRecipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	skip := toSet(exclude)
	counts := make(map[string]int, len(s.recipes))
	for _, it := range s.interactions {
		counts[it.RecipeID]++
	}
	out := make([]core.PopularRecipe, 0, len(s.recipeOrder))
	for _, id := range s.recipeOrder {
		if _, ok := skip[id]; ok {
			continue
		}
		out = append(out, core.PopularRecipe{
			RecipeID:     id,
			Title:        s.recipes[id].Title,
			Interactions: counts[id],
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Interactions > out[j].Interactions })
	return truncate(out, limit), nil
}

var _ core.Store = (*Store)(nil)

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func truncate[T any](in []T, limit int) []T {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	return in
}

