package recall

import (
	"context"
	"fmt"
	"sort"

	"github.com/snacktrack/tastekit/core"
	"github.com/snacktrack/tastekit/pkg/vec"
)

const (
	// maxRecentInteractions 是相似度计算参考的目标用户交互条数上限。
	maxRecentInteractions = 200
	// maxSimilarUsers 是参与矩阵的相似用户数上限。
	maxSimilarUsers = 50
)

// Collaborative 是用户协同打分源（User-CF）。
//
// 算法流程：
//  1. 目标用户最近交互 → 找有共同菜谱的相似用户（≤50）
//  2. 现场构建 用户×菜谱 的交互值求和稠密矩阵（请求作用域，用完即弃）
//  3. 目标行与每个其他行做余弦相似度，负相似度不贡献
//  4. 加权汇总：score[recipe] = Σ similarity × 该用户的分值
//  5. 目标用户已碰过的菜谱、调用方排除集 → 清零后排序
//
// 冷启动用户直接返回空（门控口径见画像的冷启动判定）。
type Collaborative struct {
	Store              core.Store
	ColdStartThreshold int
}

func (c *Collaborative) Name() core.ScoreSource { return core.SourceCollaborative }

func (c *Collaborative) Score(ctx context.Context, req Request) ([]core.ScoredRecipe, error) {
	profile, err := c.Store.TasteProfile(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("collaborative: taste profile: %w", err)
	}
	if profile.IsColdStart(c.ColdStartThreshold) {
		return nil, nil
	}

	interactions, err := c.Store.RecentInteractions(ctx, req.UserID, maxRecentInteractions)
	if err != nil {
		return nil, fmt.Errorf("collaborative: interactions: %w", err)
	}
	if len(interactions) == 0 {
		return nil, nil
	}

	touched := make(map[string]struct{}, len(interactions))
	touchedIDs := make([]string, 0, len(interactions))
	for _, it := range interactions {
		if _, ok := touched[it.RecipeID]; !ok {
			touched[it.RecipeID] = struct{}{}
			touchedIDs = append(touchedIDs, it.RecipeID)
		}
	}

	similarUsers, err := c.Store.CoInteractingUsers(ctx, req.UserID, touchedIDs, maxSimilarUsers)
	if err != nil {
		return nil, fmt.Errorf("collaborative: co-interacting users: %w", err)
	}
	if len(similarUsers) == 0 {
		return nil, nil
	}

	allUsers := append([]string{req.UserID}, similarUsers...)
	sums, err := c.Store.InteractionSums(ctx, allUsers)
	if err != nil {
		return nil, fmt.Errorf("collaborative: interaction sums: %w", err)
	}

	// 菜谱索引（排序保证行内布局稳定）
	recipeSet := make(map[string]struct{}, len(sums))
	for _, s := range sums {
		recipeSet[s.RecipeID] = struct{}{}
	}
	recipeIDs := make([]string, 0, len(recipeSet))
	for id := range recipeSet {
		recipeIDs = append(recipeIDs, id)
	}
	sort.Strings(recipeIDs)
	recipeIdx := make(map[string]int, len(recipeIDs))
	for i, id := range recipeIDs {
		recipeIdx[id] = i
	}

	// 用户×菜谱 稠密矩阵，请求作用域
	userIdx := make(map[string]int, len(allUsers))
	for i, id := range allUsers {
		userIdx[id] = i
	}
	matrix := make([][]float64, len(allUsers))
	for i := range matrix {
		matrix[i] = make([]float64, len(recipeIDs))
	}
	for _, s := range sums {
		ui, uok := userIdx[s.UserID]
		ri, rok := recipeIdx[s.RecipeID]
		if uok && rok {
			matrix[ui][ri] = s.Score
		}
	}
	if len(matrix) < 2 {
		return nil, nil
	}

	// 目标行 vs 其他行；只累计正相似度的贡献
	weighted := make([]float64, len(recipeIDs))
	for i := 1; i < len(matrix); i++ {
		sim := vec.CosineGuarded(matrix[0], matrix[i])
		if sim <= 0 {
			continue
		}
		for j, v := range matrix[i] {
			weighted[j] += sim * v
		}
	}

	// 已交互与排除集清零
	for id := range touched {
		if i, ok := recipeIdx[id]; ok {
			weighted[i] = 0
		}
	}
	for _, id := range req.Exclude {
		if i, ok := recipeIdx[id]; ok {
			weighted[i] = 0
		}
	}

	type candidate struct {
		id    string
		score float64
	}
	candidates := make([]candidate, 0, len(recipeIDs))
	for i, id := range recipeIDs {
		if weighted[i] > 0 {
			candidates = append(candidates, candidate{id, weighted[i]})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > req.Limit {
		candidates = candidates[:req.Limit]
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	ids := make([]string, len(candidates))
	for i, cand := range candidates {
		ids[i] = cand.id
	}
	titles, err := c.Store.RecipeTitles(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("collaborative: recipe titles: %w", err)
	}

	out := make([]core.ScoredRecipe, 0, len(candidates))
	for _, cand := range candidates {
		title, ok := titles[cand.id]
		if !ok {
			title = "Unknown"
		}
		out = append(out, core.ScoredRecipe{
			RecipeID: cand.id,
			Title:    title,
			Score:    cand.score,
			Source:   core.SourceCollaborative,
		})
	}
	return out, nil
}
