package model

import (
	"math"
	"math/rand"
	"time"

	"github.com/snacktrack/tastekit/core"
)

const (
	// GRUInputDim = 32 维菜谱 embedding + 7 维时间编码。
	GRUInputDim = 39
	// GRUHiddenDim 是隐状态维度。
	GRUHiddenDim = 64
	// GRUOutputDim 是预测偏好向量维度（回到菜谱 embedding 空间）。
	GRUOutputDim = 32
	// TimeFeatureDim 是周期时间编码维度。
	TimeFeatureDim = 7
)

// GRUParams 是序列模型的不可变参数包：单层门控循环单元 + 线性输出投影。
type GRUParams struct {
	Wz [][]float64 `json:"wz"` // (39, 64) 更新门
	Uz [][]float64 `json:"uz"` // (64, 64)
	Bz []float64   `json:"bz"` // (64,)
	Wr [][]float64 `json:"wr"` // (39, 64) 重置门
	Ur [][]float64 `json:"ur"` // (64, 64)
	Br []float64   `json:"br"` // (64,)
	Wh [][]float64 `json:"wh"` // (39, 64) 候选态
	Uh [][]float64 `json:"uh"` // (64, 64)
	Bh []float64   `json:"bh"` // (64,)
	Wo [][]float64 `json:"wo"` // (64, 32) 输出投影
	Bo []float64   `json:"bo"` // (32,)

	Degraded bool `json:"-"`
}

// LoadGRUParams 加载训练导出的序列模型权重；缺失时走固定种子随机兜底。
func LoadGRUParams(path string) (*GRUParams, error) {
	if path == "" {
		return FallbackGRUParams(), nil
	}
	p := &GRUParams{}
	if err := loadWeightsFile(path, p); err != nil {
		if core.IsNotFound(err) {
			return FallbackGRUParams(), nil
		}
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// FallbackGRUParams 返回固定种子的随机初始化参数包。
func FallbackGRUParams() *GRUParams {
	rng := rand.New(rand.NewSource(FallbackSeed))
	return &GRUParams{
		Wz:       randMatrix(rng, GRUInputDim, GRUHiddenDim),
		Uz:       randMatrix(rng, GRUHiddenDim, GRUHiddenDim),
		Bz:       zeros(GRUHiddenDim),
		Wr:       randMatrix(rng, GRUInputDim, GRUHiddenDim),
		Ur:       randMatrix(rng, GRUHiddenDim, GRUHiddenDim),
		Br:       zeros(GRUHiddenDim),
		Wh:       randMatrix(rng, GRUInputDim, GRUHiddenDim),
		Uh:       randMatrix(rng, GRUHiddenDim, GRUHiddenDim),
		Bh:       zeros(GRUHiddenDim),
		Wo:       randMatrix(rng, GRUHiddenDim, GRUOutputDim),
		Bo:       zeros(GRUOutputDim),
		Degraded: true,
	}
}

func (p *GRUParams) validate() error {
	gates := []struct {
		name string
		w    [][]float64
		u    [][]float64
		b    []float64
	}{
		{"z", p.Wz, p.Uz, p.Bz},
		{"r", p.Wr, p.Ur, p.Br},
		{"h", p.Wh, p.Uh, p.Bh},
	}
	for _, g := range gates {
		if err := checkShape("w"+g.name, g.w, GRUInputDim, GRUHiddenDim); err != nil {
			return err
		}
		if err := checkShape("u"+g.name, g.u, GRUHiddenDim, GRUHiddenDim); err != nil {
			return err
		}
		if err := checkLen("b"+g.name, g.b, GRUHiddenDim); err != nil {
			return err
		}
	}
	if err := checkShape("wo", p.Wo, GRUHiddenDim, GRUOutputDim); err != nil {
		return err
	}
	return checkLen("bo", p.Bo, GRUOutputDim)
}

// sigmoid 带 [-20,20] 裁剪，避免溢出。
func sigmoid(x float64) float64 {
	if x > 20 {
		x = 20
	}
	if x < -20 {
		x = -20
	}
	return 1.0 / (1.0 + math.Exp(-x))
}

// Step 执行单步门控循环：z/r 门 → 候选态 → 插值更新。
func (p *GRUParams) Step(x, hPrev []float64) []float64 {
	z := addVec(addVec(matVec(x, p.Wz), matVec(hPrev, p.Uz)), p.Bz)
	r := addVec(addVec(matVec(x, p.Wr), matVec(hPrev, p.Ur)), p.Br)
	for i := range z {
		z[i] = sigmoid(z[i])
	}
	for i := range r {
		r[i] = sigmoid(r[i])
	}

	gated := make([]float64, len(hPrev))
	for i := range gated {
		gated[i] = r[i] * hPrev[i]
	}
	h := addVec(addVec(matVec(x, p.Wh), matVec(gated, p.Uh)), p.Bh)
	for i := range h {
		h[i] = math.Tanh(h[i])
	}

	out := make([]float64, GRUHiddenDim)
	for i := range out {
		out[i] = (1-z[i])*hPrev[i] + z[i]*h[i]
	}
	return out
}

// Forward 从零隐状态按时间先后消费整个序列，最终隐状态线性投影为
// 32 维预测偏好向量。
func (p *GRUParams) Forward(sequence [][]float64) []float64 {
	h := zeros(GRUHiddenDim)
	for _, x := range sequence {
		h = p.Step(x, h)
	}
	return addVec(matVec(h, p.Wo), p.Bo)
}

// TimeFeatures 生成 7 维周期时间编码：
// 周几 sin/cos（周期 7）、小时 sin/cos（周期 24）、餐次 sin/cos（周期 4）、
// 餐次序号归一（÷3）。
func TimeFeatures(at time.Time, meal core.MealType) []float64 {
	day := float64(int(at.Weekday()+6) % 7) // Monday=0，与训练侧口径一致
	hour := float64(at.Hour())
	idx := float64(meal.Index())
	return []float64{
		math.Sin(2 * math.Pi * day / 7),
		math.Cos(2 * math.Pi * day / 7),
		math.Sin(2 * math.Pi * hour / 24),
		math.Cos(2 * math.Pi * hour / 24),
		math.Sin(2 * math.Pi * idx / 4),
		math.Cos(2 * math.Pi * idx / 4),
		idx / 3.0,
	}
}
