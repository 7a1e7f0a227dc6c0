// Package tastekit 是一个混合菜谱推荐引擎（Taste Kit）。
//
// 设计要点：
// - Source-first: 五路打分源（content / collaborative / knowledge / vae / rnn）
//   并发召回，按用户成熟度加权混合（Recall → Blend → Rank）
// - 冷启动分层: cold_start / early / mature 三档权重表，全部落空走热门兜底
// - Source 可扩展: 实现 recall.Source 即可插拔新的打分源
package tastekit

import (
	"github.com/snacktrack/tastekit/core"
	"github.com/snacktrack/tastekit/recall"
)

// 轻量 facade：便于用户直接 import "tastekit" 使用核心抽象。
type Store = core.Store
type ScoredRecipe = core.ScoredRecipe
type RankedList = core.RankedList
type Source = recall.Source

const (
	SourceContent       = core.SourceContent
	SourceCollaborative = core.SourceCollaborative
	SourceKnowledge     = core.SourceKnowledge
	SourceVAE           = core.SourceVAE
	SourceRNN           = core.SourceRNN
	SourceHybrid        = core.SourceHybrid
	SourcePopular       = core.SourcePopular
)
