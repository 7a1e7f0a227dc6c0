// Package model 持有两套推理用参数：潜变量编码器（VAE 风格）与序列模型（GRU 风格）。
//
// 设计要点：
//   - 参数包在启动时构建一次，之后不可变；归一化统计量是调用内的显式值，
//     绝不挂在参数对象上（消除并发请求间的隐式串扰）
//   - 权重文件缺失时走固定种子的伪随机兜底：可复现但无语义，
//     参数包以 Degraded 标记告知调用方
package model

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"

	"github.com/snacktrack/tastekit/core"
)

// FallbackSeed 是随机兜底参数的固定种子。
const FallbackSeed = 42

// fallbackScale 是兜底权重的缩放系数。
const fallbackScale = 0.1

// randMatrix 生成 rows×cols 的正态随机矩阵（调用方传入已播种的 rng）。
func randMatrix(rng *rand.Rand, rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
		for j := range m[i] {
			m[i][j] = rng.NormFloat64() * fallbackScale
		}
	}
	return m
}

// zeros 生成全零向量。
func zeros(n int) []float64 {
	return make([]float64, n)
}

// matVec 计算行向量 x 与矩阵 w（rows×cols, rows=len(x)）的乘积，返回 cols 维。
// x 超出矩阵行数的部分忽略，不足按零处理。
func matVec(x []float64, w [][]float64) []float64 {
	if len(w) == 0 {
		return nil
	}
	cols := len(w[0])
	out := make([]float64, cols)
	for i, xi := range x {
		if i >= len(w) {
			break
		}
		if xi == 0 {
			continue
		}
		row := w[i]
		for j := 0; j < cols && j < len(row); j++ {
			out[j] += xi * row[j]
		}
	}
	return out
}

// addVec 逐维相加，按较短一侧截断。
func addVec(a, b []float64) []float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = a[i] + b[i]
	}
	return out
}

// loadWeightsFile 读取 JSON 权重文件并反序列化到 dst。
// 文件不存在返回 core.ErrWeightsNotFound，调用方据此走随机兜底；
// 其余错误（权限、损坏）原样上抛。
func loadWeightsFile(path string, dst any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("read weights %s: %w", path, core.ErrWeightsNotFound)
	}
	if err != nil {
		return fmt.Errorf("read weights %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parse weights %s: %w", path, err)
	}
	return nil
}

// checkShape 校验矩阵形状，训练导出的权重与架构不一致时尽早失败。
func checkShape(name string, m [][]float64, rows, cols int) error {
	if len(m) != rows {
		return fmt.Errorf("weights %s: got %d rows, want %d", name, len(m), rows)
	}
	for i, row := range m {
		if len(row) != cols {
			return fmt.Errorf("weights %s: row %d has %d cols, want %d", name, i, len(row), cols)
		}
	}
	return nil
}

func checkLen(name string, v []float64, n int) error {
	if len(v) != n {
		return fmt.Errorf("weights %s: got len %d, want %d", name, len(v), n)
	}
	return nil
}
