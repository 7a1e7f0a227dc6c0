package recall

import (
	"context"
	"fmt"
	"sort"

	"github.com/snacktrack/tastekit/core"
)

// 成分向量与营养向量相似度的混合比。
const (
	ingredientBlend = 0.7
	nutritionBlend  = 0.3
)

// Content 是内容相似打分源：用画像偏好向量对菜谱向量做余弦最近邻。
//
// 无偏好向量（未训练）时返回空结果，这是冷启动信号而非错误。
// 成分向量取 2×limit 近邻、营养向量取 limit 近邻，按 0.7/0.3 混合；
// 只出现在一侧的候选只计该侧贡献。
type Content struct {
	Store core.Store
}

func (c *Content) Name() core.ScoreSource { return core.SourceContent }

func (c *Content) Score(ctx context.Context, req Request) ([]core.ScoredRecipe, error) {
	profile, err := c.Store.TasteProfile(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("content: taste profile: %w", err)
	}
	if profile == nil || len(profile.PreferenceVector) == 0 {
		return nil, nil
	}
	pref := profile.PreferenceVector

	byIngredient, err := c.Store.NearestRecipes(ctx, core.VectorIngredient, pref, req.Limit*2, req.Exclude)
	if err != nil {
		return nil, fmt.Errorf("content: ingredient knn: %w", err)
	}
	byNutrition, err := c.Store.NearestRecipes(ctx, core.VectorNutrition, pref, req.Limit, req.Exclude)
	if err != nil {
		return nil, fmt.Errorf("content: nutrition knn: %w", err)
	}

	merged := make(map[string]*core.ScoredRecipe, len(byIngredient)+len(byNutrition))
	order := make([]string, 0, len(byIngredient)+len(byNutrition))
	for _, m := range byIngredient {
		merged[m.RecipeID] = &core.ScoredRecipe{
			RecipeID: m.RecipeID,
			Title:    m.Title,
			Score:    m.Similarity * ingredientBlend,
			Source:   core.SourceContent,
		}
		order = append(order, m.RecipeID)
	}
	for _, m := range byNutrition {
		if existing, ok := merged[m.RecipeID]; ok {
			existing.Score += m.Similarity * nutritionBlend
			continue
		}
		merged[m.RecipeID] = &core.ScoredRecipe{
			RecipeID: m.RecipeID,
			Title:    m.Title,
			Score:    m.Similarity * nutritionBlend,
			Source:   core.SourceContent,
		}
		order = append(order, m.RecipeID)
	}

	out := make([]core.ScoredRecipe, 0, len(order))
	for _, id := range order {
		out = append(out, *merged[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}
