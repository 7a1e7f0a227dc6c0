package recall

import (
	"context"
	"fmt"
	"sort"

	"github.com/snacktrack/tastekit/core"
	"github.com/snacktrack/tastekit/model"
	"github.com/snacktrack/tastekit/pkg/vec"
)

// maxLikedRecipes 是构造用户隐向量时取的近期喜欢菜谱数上限。
const maxLikedRecipes = 50

// Latent 是变分编码器隐空间打分源。
//
// 用户向量取其喜欢菜谱编码后的均值；候选与用户都经同一编码器
// 映射到 32 维隐空间，按余弦相似度排序。两次编码各自拟合一份
// 特征统计：用户侧只看喜欢集合，候选侧看 候选∪喜欢 的并集。
type Latent struct {
	Store  core.Store
	Params *model.VAEParams
}

func (l *Latent) Name() core.ScoreSource { return core.SourceVAE }

func (l *Latent) Score(ctx context.Context, req Request) ([]core.ScoredRecipe, error) {
	liked, err := l.Store.LikedRecipes(ctx, req.UserID, maxLikedRecipes)
	if err != nil {
		return nil, fmt.Errorf("latent: liked recipes: %w", err)
	}
	if len(liked) == 0 {
		return nil, nil
	}

	userStats := model.FitStats(liked)
	embeddings := make([][]float64, len(liked))
	for i := range liked {
		embeddings[i] = l.Params.Embed(model.RecipeFeatures(liked[i]), userStats)
	}
	userVec := vec.Mean(embeddings)

	candidates, err := l.Store.RecentRecipes(ctx, req.Limit*3, req.Exclude)
	if err != nil {
		return nil, fmt.Errorf("latent: candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	// 候选侧统计要覆盖候选和喜欢集合的并集，保证归一口径一致
	combined := make([]*core.Recipe, 0, len(candidates)+len(liked))
	combined = append(combined, candidates...)
	combined = append(combined, liked...)
	candStats := model.FitStats(combined)

	out := make([]core.ScoredRecipe, 0, len(candidates))
	for i := range candidates {
		emb := l.Params.Embed(model.RecipeFeatures(candidates[i]), candStats)
		out = append(out, core.ScoredRecipe{
			RecipeID: candidates[i].ID,
			Title:    candidates[i].Title,
			Score:    vec.Cosine(userVec, emb),
			Source:   core.SourceVAE,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}
