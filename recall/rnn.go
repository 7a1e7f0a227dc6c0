package recall

import (
	"context"
	"fmt"
	"sort"

	"github.com/snacktrack/tastekit/core"
	"github.com/snacktrack/tastekit/model"
	"github.com/snacktrack/tastekit/pkg/vec"
)

// maxMealHistory 是输入序列取的餐食日志条数上限。
const maxMealHistory = 30

// minMealHistory 是序列建模要求的最少日志条数，不足直接返回空。
const minMealHistory = 3

// Sequence 是餐食序列打分源。
//
// 用户最近的餐食日志按时间正序喂给 GRU，得到下一餐的偏好向量，
// 再用该向量对近期候选做余弦相似度排序。每个时间步的输入是
// 32 维菜谱嵌入拼 7 维时间特征；菜谱缺失嵌入时退化为四个宏量
// 营养素构成的稀疏代理向量。
type Sequence struct {
	Store  core.Store
	Params *model.GRUParams
}

func (s *Sequence) Name() core.ScoreSource { return core.SourceRNN }

func (s *Sequence) Score(ctx context.Context, req Request) ([]core.ScoredRecipe, error) {
	logs, err := s.Store.RecentMealLogs(ctx, req.UserID, maxMealHistory)
	if err != nil {
		return nil, fmt.Errorf("sequence: meal logs: %w", err)
	}
	if len(logs) < minMealHistory {
		return nil, nil
	}

	// 日志按最近在前返回，这里倒序还原成时间正序
	sequence := make([][]float64, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		log := logs[i]
		emb := recipeEmbedding(log.Recipe)
		tf := model.TimeFeatures(log.LoggedAt, log.MealType)
		x := make([]float64, 0, model.GRUInputDim)
		x = append(x, emb...)
		x = append(x, tf...)
		sequence = append(sequence, x)
	}

	predicted := s.Params.Forward(sequence)

	candidates, err := s.Store.RecentRecipes(ctx, req.Limit*3, req.Exclude)
	if err != nil {
		return nil, fmt.Errorf("sequence: candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	out := make([]core.ScoredRecipe, 0, len(candidates))
	for i := range candidates {
		emb := recipeEmbedding(candidates[i])
		out = append(out, core.ScoredRecipe{
			RecipeID: candidates[i].ID,
			Title:    candidates[i].Title,
			Score:    vec.CosineGuarded(predicted, emb),
			Source:   core.SourceRNN,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}

// recipeEmbedding 返回菜谱的 32 维嵌入。没有成分向量时用宏量营养素
// 构造代理向量；菜谱本身缺失（日志悬挂引用）时给全零。
func recipeEmbedding(r *core.Recipe) []float64 {
	if r == nil {
		return make([]float64, model.GRUOutputDim)
	}
	if len(r.IngredientVector) > 0 {
		return vec.Fit(r.IngredientVector, model.GRUOutputDim)
	}
	emb := make([]float64, model.GRUOutputDim)
	emb[0] = r.Calories / 1000.0
	emb[1] = r.ProteinG / 100.0
	emb[2] = r.CarbsG / 200.0
	emb[3] = r.FatG / 100.0
	return emb
}
