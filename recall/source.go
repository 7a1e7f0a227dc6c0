// Package recall 实现五个打分源与它们的并发 fan-out。
//
// 每个 Source 是一个无状态策略单元：读存储、算分、返回有序候选。
// "没有数据" 一律返回空结果（冷启动信号），不是错误；
// 存储故障返回错误，由 Fanout 降级为该源的空贡献。
package recall

import (
	"context"

	"github.com/snacktrack/tastekit/core"
)

// Request 承载一次打分调用的参数，贯穿所有 Source 透传。
type Request struct {
	UserID  string
	Limit   int
	Exclude []string
}

// Source 表示一个可并发 fan-out 的打分源（knowledge/content/collab/vae/rnn）。
type Source interface {
	Name() core.ScoreSource
	Score(ctx context.Context, req Request) ([]core.ScoredRecipe, error)
}
