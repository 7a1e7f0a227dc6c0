// Package metrics 定义服务级 Prometheus 指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecommendationsServed 按成熟度阶段统计推荐响应数；fallback=true 表示走了兜底热门。
	RecommendationsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastekit_recommendations_served_total",
			Help: "Total recommendation responses served",
		},
		[]string{"maturity", "fallback"},
	)

	// ScorerDuration 是单个打分源的耗时分布。
	ScorerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "tastekit_scorer_duration_seconds",
			Help: "Duration of a single scorer invocation",
		},
		[]string{"source"},
	)

	// ScorerFailures 统计被降级为空贡献的源调用（超时或存储故障）。
	ScorerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastekit_scorer_failures_total",
			Help: "Scorer invocations degraded to empty due to error or timeout",
		},
		[]string{"source"},
	)

	// ScorerEmptyResults 统计返回空结果的源调用（含合法的数据不足）。
	ScorerEmptyResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastekit_scorer_empty_results_total",
			Help: "Scorer invocations that produced no candidates",
		},
		[]string{"source"},
	)

	// TrainingRuns 按结果统计训练请求。
	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastekit_training_runs_total",
			Help: "Total user model training runs",
		},
		[]string{"outcome"},
	)
)
