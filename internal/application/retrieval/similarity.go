package retrieval

import (
	"github.com/viterin/vek/vek32"
)

// CosineSimilarity 计算 dot(a,b)/(|a|·|b|)，任一向量模为 0 时返回 0。
// 调用方需保证两向量等长。
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	na := float64(vek32.Norm(a))
	nb := float64(vek32.Norm(b))
	if na == 0 || nb == 0 {
		return 0
	}
	return float64(vek32.Dot(a, b)) / (na * nb)
}
