package recall

import (
	"context"
	"fmt"

	"github.com/snacktrack/tastekit/core"
)

// Popular 是全站热门兜底源：按交互量排序、归一到 [0,1]。
// 个性化召回全部落空时由混排器启用。
type Popular struct {
	Store core.Store
}

func (p *Popular) Name() core.ScoreSource { return core.SourcePopular }

func (p *Popular) Score(ctx context.Context, req Request) ([]core.ScoredRecipe, error) {
	rows, err := p.Store.PopularRecipes(ctx, req.Exclude, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("popular: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	max := rows[0].Interactions
	for _, r := range rows {
		if r.Interactions > max {
			max = r.Interactions
		}
	}
	if max <= 0 {
		max = 1
	}

	out := make([]core.ScoredRecipe, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.ScoredRecipe{
			RecipeID: r.RecipeID,
			Title:    r.Title,
			Score:    float64(r.Interactions) / float64(max),
			Source:   core.SourcePopular,
		})
	}
	return out, nil
}
