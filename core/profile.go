package core

import "time"

// TasteProfile 是用户口味画像：偏好向量 + 训练聚合信息。
//
// 设计要点：
//   - PreferenceVector 由 Trainer 从加权交互历史重建，单位化；nil 表示尚未训练
//   - InteractionCount 是训练时落盘的聚合值，不随交互写入实时增长
//   - ContentWeight / CollabWeight 是历史遗留字段，由成熟度权重表取代，
//     训练时仍回写以兼容旧读取方
type TasteProfile struct {
	UserID           string
	PreferenceVector []float64
	InteractionCount int
	ColdStart        bool
	ContentWeight    float64
	CollabWeight     float64
	LastTrainedAt    time.Time
}

// IsColdStart 是冷启动判定的唯一入口：显式标记 或 交互数低于阈值。
// 所有成熟度判定都必须走这里，避免各处口径漂移。
func (p *TasteProfile) IsColdStart(threshold int) bool {
	if p == nil {
		return true
	}
	return p.ColdStart || p.InteractionCount < threshold
}
