// Package vec 提供推荐链路用到的稠密向量基础运算。
// 全部是纯函数，不持有状态。
package vec

import "math"

// Epsilon 是余弦相似度的零模保护项。
const Epsilon = 1e-8

// Dot 计算点积，双方长度不一致时按较短一侧截断。
func Dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// Norm 计算 L2 模。
func Norm(a []float64) float64 {
	var sum float64
	for _, v := range a {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Normalize 返回单位化后的新向量；零模时原样拷贝返回。
func Normalize(a []float64) []float64 {
	out := make([]float64, len(a))
	copy(out, a)
	n := Norm(a)
	if n == 0 {
		return out
	}
	for i := range out {
		out[i] /= n
	}
	return out
}

// Cosine 计算余弦相似度，分母加 Epsilon 防止零模除零。
func Cosine(a, b []float64) float64 {
	return Dot(a, b) / (Norm(a)*Norm(b) + Epsilon)
}

// CosineGuarded 计算余弦相似度，任一侧零模时直接返回 0。
// 序列模型打分用这种口径（零模表示缺失数据，不是相似度 0 的近似）。
func CosineGuarded(a, b []float64) float64 {
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return Dot(a, b) / (na * nb)
}

// Fit 把向量 pad/truncate 到固定维度 dim：超长截断，不足补零。
// 存量向量维度与模型维度不符时统一走这里（见数据模型不变式）。
func Fit(a []float64, dim int) []float64 {
	out := make([]float64, dim)
	copy(out, a)
	return out
}

// Mean 计算一组同维向量的逐维均值；空集返回 nil。
func Mean(vectors [][]float64) []float64 {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	out := make([]float64, dim)
	for _, v := range vectors {
		for i := 0; i < dim && i < len(v); i++ {
			out[i] += v[i]
		}
	}
	for i := range out {
		out[i] /= float64(len(vectors))
	}
	return out
}
