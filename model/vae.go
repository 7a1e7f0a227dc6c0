package model

import (
	"math"
	"math/rand"

	"github.com/snacktrack/tastekit/core"
	"github.com/snacktrack/tastekit/pkg/vec"
)

const (
	// FeatureDim 是原始菜谱特征维度：7 项营养 + 时长 + 份数 + 3 个饮食标签位。
	FeatureDim = 12
	// LatentDim 是潜空间维度。
	LatentDim = 32
)

// VAEParams 是潜变量编码器的不可变参数包。
// 线性编码器把 12 维原始特征映射到 32 维均值向量（即菜谱 embedding）；
// 解码器只在离线训练里用，推理路径仅保留形状。
type VAEParams struct {
	EncoderMuW     [][]float64 `json:"encoder_mu_w"`     // (12, 32)
	EncoderMuB     []float64   `json:"encoder_mu_b"`     // (32,)
	EncoderLogvarW [][]float64 `json:"encoder_logvar_w"` // (12, 32)
	EncoderLogvarB []float64   `json:"encoder_logvar_b"` // (32,)
	DecoderW       [][]float64 `json:"decoder_w"`        // (32, 12)
	DecoderB       []float64   `json:"decoder_b"`        // (12,)

	// Degraded 为 true 表示走了随机兜底，分数可复现但无语义。
	Degraded bool `json:"-"`
}

// LoadVAEParams 加载训练导出的编码器权重；path 为空或文件不存在时
// 返回固定种子的随机兜底参数。
func LoadVAEParams(path string) (*VAEParams, error) {
	if path == "" {
		return FallbackVAEParams(), nil
	}
	p := &VAEParams{}
	if err := loadWeightsFile(path, p); err != nil {
		if core.IsNotFound(err) {
			return FallbackVAEParams(), nil
		}
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// FallbackVAEParams 返回固定种子的随机初始化参数包。
func FallbackVAEParams() *VAEParams {
	rng := rand.New(rand.NewSource(FallbackSeed))
	return &VAEParams{
		EncoderMuW:     randMatrix(rng, FeatureDim, LatentDim),
		EncoderMuB:     zeros(LatentDim),
		EncoderLogvarW: randMatrix(rng, FeatureDim, LatentDim),
		EncoderLogvarB: zeros(LatentDim),
		DecoderW:       randMatrix(rng, LatentDim, FeatureDim),
		DecoderB:       zeros(FeatureDim),
		Degraded:       true,
	}
}

func (p *VAEParams) validate() error {
	if err := checkShape("encoder_mu_w", p.EncoderMuW, FeatureDim, LatentDim); err != nil {
		return err
	}
	if err := checkLen("encoder_mu_b", p.EncoderMuB, LatentDim); err != nil {
		return err
	}
	if err := checkShape("encoder_logvar_w", p.EncoderLogvarW, FeatureDim, LatentDim); err != nil {
		return err
	}
	if err := checkLen("encoder_logvar_b", p.EncoderLogvarB, LatentDim); err != nil {
		return err
	}
	if err := checkShape("decoder_w", p.DecoderW, LatentDim, FeatureDim); err != nil {
		return err
	}
	return checkLen("decoder_b", p.DecoderB, FeatureDim)
}

// Embed 把标准化后的特征映射为潜空间均值向量（确定性 embedding）。
// stats 是本次调用内拟合的归一化统计量，显式传入。
func (p *VAEParams) Embed(features []float64, stats FeatureStats) []float64 {
	normalized := stats.Normalize(features)
	return addVec(matVec(normalized, p.EncoderMuW), p.EncoderMuB)
}

// RecipeFeatures 从菜谱快照抽取 12 维原始特征。
// 时长缺失按 30 分钟、份数缺失按 4 份兜底。
func RecipeFeatures(r *core.Recipe) []float64 {
	ready := r.ReadyInMinutes
	if ready == 0 {
		ready = 30
	}
	servings := r.Servings
	if servings == 0 {
		servings = 4
	}
	flag := func(label string) float64 {
		if r.HasLabel(label) {
			return 1.0
		}
		return 0.0
	}
	return []float64{
		r.Calories,
		r.ProteinG,
		r.CarbsG,
		r.FatG,
		r.SodiumMg,
		r.FiberG,
		r.SugarG,
		ready,
		servings,
		flag("vegetarian"),
		flag("vegan"),
		flag("gluten free"),
	}
}

// FeatureStats 是调用范围内的特征归一化统计量。
// 每次打分调用对当前候选集合现算一份，用完即弃，绝不跨请求缓存。
type FeatureStats struct {
	Means []float64
	Stds  []float64
}

// FitStats 对一组菜谱拟合逐维均值/标准差；标准差为 0 的维度置 1。
// 空集合返回恒等统计量（均值 0、标准差 1）。
func FitStats(recipes []*core.Recipe) FeatureStats {
	stats := FeatureStats{Means: zeros(FeatureDim), Stds: make([]float64, FeatureDim)}
	for i := range stats.Stds {
		stats.Stds[i] = 1.0
	}
	if len(recipes) == 0 {
		return stats
	}
	features := make([][]float64, len(recipes))
	for i, r := range recipes {
		features[i] = RecipeFeatures(r)
	}
	stats.Means = vec.Mean(features)
	n := float64(len(features))
	for d := 0; d < FeatureDim; d++ {
		var sq float64
		for _, f := range features {
			diff := f[d] - stats.Means[d]
			sq += diff * diff
		}
		variance := sq / n
		if variance > 0 {
			stats.Stds[d] = math.Sqrt(variance)
		} else {
			stats.Stds[d] = 1.0
		}
	}
	return stats
}

// Normalize 按统计量标准化特征向量。
func (s FeatureStats) Normalize(features []float64) []float64 {
	out := make([]float64, len(features))
	for i, f := range features {
		mean, std := 0.0, 1.0
		if i < len(s.Means) {
			mean = s.Means[i]
		}
		if i < len(s.Stds) {
			std = s.Stds[i]
		}
		out[i] = (f - mean) / (std + vec.Epsilon)
	}
	return out
}
