package recall

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/snacktrack/tastekit/core"
	"github.com/snacktrack/tastekit/pkg/metrics"
)

// Fanout 并发执行多个打分源并按源归集结果。
//
// 失败语义：单个源超时或出错只损失该源的贡献（记日志、打点、置空），
// 绝不中断其他源，也绝不让整个请求失败。
type Fanout struct {
	Sources []Source
	Timeout time.Duration // 每个源的超时时间；0 表示不限制
	Logger  *zap.Logger
}

// Collect 并发调用全部源，返回 源 → 有序候选 的映射。
// 空切片也会出现在映射里，便于上层统一遍历。
func (f *Fanout) Collect(ctx context.Context, req Request) map[core.ScoreSource][]core.ScoredRecipe {
	results := make(map[core.ScoreSource][]core.ScoredRecipe, len(f.Sources))
	if len(f.Sources) == 0 {
		return results
	}

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)

	for _, src := range f.Sources {
		s := src
		eg.Go(func() error {
			scoreCtx := egCtx
			if f.Timeout > 0 {
				var cancel context.CancelFunc
				scoreCtx, cancel = context.WithTimeout(egCtx, f.Timeout)
				defer cancel()
			}

			start := time.Now()
			recs, err := s.Score(scoreCtx, req)
			metrics.ScorerDuration.WithLabelValues(string(s.Name())).Observe(time.Since(start).Seconds())

			if err != nil {
				// 超时或存储故障：该源降级为空贡献，不中断其他源
				if f.Logger != nil {
					f.Logger.Warn("scorer degraded to empty",
						zap.String("source", string(s.Name())),
						zap.String("user_id", req.UserID),
						zap.Error(err))
				}
				metrics.ScorerFailures.WithLabelValues(string(s.Name())).Inc()
				recs = nil
			}
			if len(recs) == 0 {
				metrics.ScorerEmptyResults.WithLabelValues(string(s.Name())).Inc()
			}

			mu.Lock()
			results[s.Name()] = recs
			mu.Unlock()
			return nil
		})
	}

	// 源内部错误都已吞掉，Wait 只会因 ctx 取消返回
	_ = eg.Wait()
	return results
}
