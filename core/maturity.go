package core

// MaturityStage 是用户成熟度阶段，决定五个打分源的混合权重。
type MaturityStage string

const (
	StageColdStart MaturityStage = "cold_start"
	StageEarly     MaturityStage = "early"
	StageMature    MaturityStage = "mature"
)

// DefaultColdStartThreshold 是冷启动交互数阈值的默认值。
const DefaultColdStartThreshold = 5

// earlyStageLimit：交互数达到 20 进入 mature。
const earlyStageLimit = 20

// BlendWeights 是一个成熟度阶段下五个打分源的固定权重。
type BlendWeights struct {
	Knowledge     float64
	Content       float64
	Collaborative float64
	VAE           float64
	RNN           float64
}

// ForSource 按来源取权重；hybrid/popular 不参与混合，返回 0。
func (w BlendWeights) ForSource(src ScoreSource) float64 {
	switch src {
	case SourceKnowledge:
		return w.Knowledge
	case SourceContent:
		return w.Content
	case SourceCollaborative:
		return w.Collaborative
	case SourceVAE:
		return w.VAE
	case SourceRNN:
		return w.RNN
	default:
		return 0
	}
}

// modelWeights 是成熟度 → 混合权重的固定表。
// 冷启动重知识规则与内容，成熟用户重协同与行为模型。
var modelWeights = map[MaturityStage]BlendWeights{
	StageColdStart: {Knowledge: 0.50, Content: 0.30, Collaborative: 0.00, VAE: 0.10, RNN: 0.10},
	StageEarly:     {Knowledge: 0.25, Content: 0.30, Collaborative: 0.15, VAE: 0.15, RNN: 0.15},
	StageMature:    {Knowledge: 0.15, Content: 0.20, Collaborative: 0.25, VAE: 0.20, RNN: 0.20},
}

// Maturity 按 §冷启动判定 划分阶段：cold_start → early（<20）→ mature。
func Maturity(interactionCount int, coldStart bool, threshold int) MaturityStage {
	if threshold <= 0 {
		threshold = DefaultColdStartThreshold
	}
	if coldStart || interactionCount < threshold {
		return StageColdStart
	}
	if interactionCount < earlyStageLimit {
		return StageEarly
	}
	return StageMature
}

// WeightsFor 返回某成熟度阶段的混合权重。
func WeightsFor(stage MaturityStage) BlendWeights {
	return modelWeights[stage]
}

// interactionWeights 是交互类型 → 训练权重的固定表。
// rate 的权重要再乘以评分值；swap_reject 是负反馈。
var interactionWeights = map[InteractionType]float64{
	InteractionCook:       5.0,
	InteractionRate:       1.0,
	InteractionView:       1.0,
	InteractionSwapAccept: 3.0,
	InteractionSwapReject: -2.0,
	InteractionLog:        4.0,
}

// InteractionWeight 返回一条交互的训练权重，超出 [-10,10] 的裁剪到边界。
func InteractionWeight(typ InteractionType, value float64) float64 {
	w, ok := interactionWeights[typ]
	if !ok {
		w = 1.0
	}
	if typ == InteractionRate {
		w *= value
	}
	if w > 10 {
		w = 10
	}
	if w < -10 {
		w = -10
	}
	return w
}
