// Package service 把打分源、混排器、训练器装配成对外的推荐引擎。
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/snacktrack/tastekit/core"
	"github.com/snacktrack/tastekit/hybrid"
	"github.com/snacktrack/tastekit/model"
	"github.com/snacktrack/tastekit/pkg/rule"
	"github.com/snacktrack/tastekit/recall"
)

// ModelVersion 随推荐响应返回，客户端据此区分打分逻辑版本。
const ModelVersion = "v1"

// Options 是引擎装配参数。
type Options struct {
	Store              core.Store
	ColdStartThreshold int
	ScorerTimeout      time.Duration
	VAEWeightsPath     string
	GRUWeightsPath     string
	// Rules 是作用于知识源的 CEL 候选过滤表达式，可为空。
	Rules []string
	// DietConstraints 为 nil 时用内置约束表。
	DietConstraints map[core.DietType]recall.DietConstraint
	Logger          *zap.Logger
}

// Engine 是推荐服务的门面：Recommend 出推荐，Train 重训画像。
type Engine struct {
	blender *hybrid.Blender
	trainer *hybrid.Trainer
	logger  *zap.Logger
}

// New 装配完整引擎。模型权重文件缺失时自动退到随机初始化并在
// 响应里标记 degraded。
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("service: store is required")
	}
	if opts.ColdStartThreshold <= 0 {
		opts.ColdStartThreshold = core.DefaultColdStartThreshold
	}

	vaeParams, err := model.LoadVAEParams(opts.VAEWeightsPath)
	if err != nil {
		return nil, fmt.Errorf("service: vae weights: %w", err)
	}
	gruParams, err := model.LoadGRUParams(opts.GRUWeightsPath)
	if err != nil {
		return nil, fmt.Errorf("service: gru weights: %w", err)
	}
	if opts.Logger != nil && (vaeParams.Degraded || gruParams.Degraded) {
		opts.Logger.Warn("model weights missing, using random fallback",
			zap.Bool("vae_degraded", vaeParams.Degraded),
			zap.Bool("gru_degraded", gruParams.Degraded))
	}

	var rules *rule.Set
	if len(opts.Rules) > 0 {
		rules, err = rule.Compile(opts.Rules)
		if err != nil {
			return nil, fmt.Errorf("service: candidate rules: %w", err)
		}
	}

	sources := []recall.Source{
		&recall.Content{Store: opts.Store},
		&recall.Knowledge{Store: opts.Store, Constraints: opts.DietConstraints, Rules: rules},
		&recall.Collaborative{Store: opts.Store, ColdStartThreshold: opts.ColdStartThreshold},
		&recall.Latent{Store: opts.Store, Params: vaeParams},
		&recall.Sequence{Store: opts.Store, Params: gruParams},
	}

	blender := &hybrid.Blender{
		Store: opts.Store,
		Fanout: &recall.Fanout{
			Sources: sources,
			Timeout: opts.ScorerTimeout,
			Logger:  opts.Logger,
		},
		Fallback:           &recall.Popular{Store: opts.Store},
		ColdStartThreshold: opts.ColdStartThreshold,
		ModelsDegraded:     vaeParams.Degraded || gruParams.Degraded,
		Logger:             opts.Logger,
	}
	trainer := &hybrid.Trainer{
		Store:              opts.Store,
		ColdStartThreshold: opts.ColdStartThreshold,
		Logger:             opts.Logger,
	}

	return &Engine{blender: blender, trainer: trainer, logger: opts.Logger}, nil
}

// Recommend 返回 topN 条混合推荐。
func (e *Engine) Recommend(ctx context.Context, userID string, topN int, exclude []string) (*core.RankedList, error) {
	return e.blender.Recommend(ctx, userID, topN, exclude)
}

// Train 重训指定用户的偏好向量。
func (e *Engine) Train(ctx context.Context, userID string) (*hybrid.TrainResult, error) {
	return e.trainer.Train(ctx, userID)
}
