// Package hybrid 实现多源分数的成熟度加权混合与画像训练。
package hybrid

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/snacktrack/tastekit/core"
	"github.com/snacktrack/tastekit/pkg/metrics"
	"github.com/snacktrack/tastekit/recall"
)

// candidateMultiplier：每个源取最终条数的 2 倍候选，给混合留出重排空间。
const candidateMultiplier = 2

// Blender 把各打分源的候选按用户成熟度加权混合成最终推荐。
//
// 混合流程：
//  1. 读画像定成熟度阶段，查权重表
//  2. 并发收集各源候选（单源失败降级为空，见 recall.Fanout）
//  3. 全部为空 → 兜底热门，ColdStart 恒置 true
//  4. 源内 min-max 归一（区间退化时全记 1.0），跨源加权合并
//  5. 同一菜谱多源命中则分数累加、标题保留首次出现的
type Blender struct {
	Store              core.Store
	Fanout             *recall.Fanout
	Fallback           recall.Source
	ColdStartThreshold int
	// ModelsDegraded：VAE/GRU 权重走了随机初始化兜底。只影响响应标记，
	// 不改变混合逻辑。
	ModelsDegraded bool
	Logger         *zap.Logger
}

// Recommend 返回 topN 条混合推荐，exclude 集合在各源内部剔除。
func (b *Blender) Recommend(ctx context.Context, userID string, topN int, exclude []string) (*core.RankedList, error) {
	profile, err := b.Store.TasteProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("hybrid: taste profile: %w", err)
	}

	coldFlag := profile == nil || profile.ColdStart
	interactionCount := 0
	if profile != nil {
		interactionCount = profile.InteractionCount
	}
	maturity := core.Maturity(interactionCount, coldFlag, b.ColdStartThreshold)
	weights := core.WeightsFor(maturity)

	req := recall.Request{UserID: userID, Limit: topN * candidateMultiplier, Exclude: exclude}
	bySource := b.Fanout.Collect(ctx, req)

	total := 0
	for _, recs := range bySource {
		total += len(recs)
	}
	if total == 0 {
		return b.fallbackPopular(ctx, userID, topN, exclude, maturity)
	}

	// 按源声明顺序合并，保证"标题取首次出现"的结果可复现
	combined := make(map[string]*core.ScoredRecipe, total)
	order := make([]string, 0, total)
	for _, src := range b.Fanout.Sources {
		recs := bySource[src.Name()]
		w := weights.ForSource(src.Name())
		if w <= 0 || len(recs) == 0 {
			continue
		}
		for _, rec := range normalize(recs) {
			if existing, ok := combined[rec.RecipeID]; ok {
				existing.Score += w * rec.Score
				continue
			}
			combined[rec.RecipeID] = &core.ScoredRecipe{
				RecipeID: rec.RecipeID,
				Title:    rec.Title,
				Score:    w * rec.Score,
				Source:   core.SourceHybrid,
			}
			order = append(order, rec.RecipeID)
		}
	}

	merged := make([]core.ScoredRecipe, 0, len(order))
	for _, id := range order {
		merged = append(merged, *combined[id])
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > topN {
		merged = merged[:topN]
	}

	if b.Logger != nil {
		b.Logger.Debug("hybrid blend served",
			zap.String("user_id", userID),
			zap.String("maturity", string(maturity)),
			zap.Int("candidates", total),
			zap.Int("returned", len(merged)))
	}
	metrics.RecommendationsServed.WithLabelValues(string(maturity), strconv.FormatBool(false)).Inc()

	return &core.RankedList{
		UserID:    userID,
		Recipes:   merged,
		ColdStart: coldFlag,
		Degraded:  b.ModelsDegraded,
	}, nil
}

// fallbackPopular：个性化召回全军覆没时的热门兜底。兜底列表无法体现
// 个性化，ColdStart 恒置 true 提示客户端引导用户补交互。
func (b *Blender) fallbackPopular(ctx context.Context, userID string, topN int, exclude []string, maturity core.MaturityStage) (*core.RankedList, error) {
	recs, err := b.Fallback.Score(ctx, recall.Request{UserID: userID, Limit: topN, Exclude: exclude})
	if err != nil {
		return nil, fmt.Errorf("hybrid: popular fallback: %w", err)
	}
	if b.Logger != nil {
		b.Logger.Info("all scorers empty, serving popular fallback",
			zap.String("user_id", userID),
			zap.String("maturity", string(maturity)))
	}
	metrics.RecommendationsServed.WithLabelValues(string(maturity), strconv.FormatBool(true)).Inc()

	return &core.RankedList{
		UserID:    userID,
		Recipes:   recs,
		ColdStart: true,
		Degraded:  b.ModelsDegraded,
	}, nil
}

// normalize 把单个源的分数 min-max 归一到 [0,1]；所有分数相同时全记 1.0，
// 该源对每个候选的贡献一视同仁。
func normalize(recs []core.ScoredRecipe) []core.ScoredRecipe {
	min, max := recs[0].Score, recs[0].Score
	for _, r := range recs[1:] {
		if r.Score < min {
			min = r.Score
		}
		if r.Score > max {
			max = r.Score
		}
	}

	out := make([]core.ScoredRecipe, len(recs))
	copy(out, recs)
	span := max - min
	for i := range out {
		if span > 0 {
			out[i].Score = (out[i].Score - min) / span
		} else {
			out[i].Score = 1.0
		}
	}
	return out
}
