package core

// ScoreSource 标记一条候选分数来自哪个打分源，用于 explain / 观测。
type ScoreSource string

const (
	SourceContent       ScoreSource = "content"
	SourceCollaborative ScoreSource = "collaborative"
	SourceKnowledge     ScoreSource = "knowledge"
	SourceVAE           ScoreSource = "vae"
	SourceRNN           ScoreSource = "rnn"
	SourceHybrid        ScoreSource = "hybrid"
	SourcePopular       ScoreSource = "popular"
)

// ScoredRecipe 是推荐链路中的瞬态承载结构：一次请求内产生并消费，从不落盘。
type ScoredRecipe struct {
	RecipeID string
	Title    string
	Score    float64
	Source   ScoreSource
}

// RankedList 是一次推荐调用的最终输出。
// ColdStart 在走兜底热门时恒为 true，否则取画像的冷启动判定。
type RankedList struct {
	UserID     string
	Recipes    []ScoredRecipe
	ColdStart  bool
	Degraded   bool // 模型权重走了随机兜底时为 true
}
