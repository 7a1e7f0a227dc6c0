package hybrid

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/snacktrack/tastekit/core"
	"github.com/snacktrack/tastekit/pkg/metrics"
	"github.com/snacktrack/tastekit/pkg/vec"
)

// maxTrainingInteractions 是一次训练回看的交互条数上限。
const maxTrainingInteractions = 500

// TrainResult 是一次训练调用的输出。
type TrainResult struct {
	UserID           string
	InteractionCount int
	ColdStart        bool
	Message          string
}

// Trainer 从加权交互历史重建用户偏好向量。
//
// 偏好向量 = Σ(权重 × 菜谱成分向量) / Σ|权重|，再单位化。
// 分母取绝对值和：负向交互（swap_reject）把向量推离该菜谱，
// 但不会让分母变小甚至为负。
type Trainer struct {
	Store              core.Store
	ColdStartThreshold int
	Logger             *zap.Logger
}

// Train 重训 userID 的偏好向量并落盘画像。交互为零时也要写出
// 冷启动画像，保证画像行存在。
func (t *Trainer) Train(ctx context.Context, userID string) (*TrainResult, error) {
	interactions, err := t.Store.TrainingInteractions(ctx, userID, maxTrainingInteractions)
	if err != nil {
		return nil, fmt.Errorf("trainer: interactions: %w", err)
	}

	count := len(interactions)
	coldStart := count < t.threshold()

	if count == 0 {
		profile := &core.TasteProfile{
			UserID:           userID,
			ColdStart:        true,
			InteractionCount: 0,
			LastTrainedAt:    time.Now(),
		}
		if err := t.Store.UpsertTasteProfile(ctx, profile); err != nil {
			return nil, fmt.Errorf("trainer: upsert cold profile: %w", err)
		}
		metrics.TrainingRuns.WithLabelValues("cold_start").Inc()
		return &TrainResult{
			UserID:    userID,
			ColdStart: true,
			Message:   "No interactions found. Profile initialized as cold start.",
		}, nil
	}

	var (
		dim         int
		accumulated []float64
		totalWeight float64
		used        int
	)
	for _, it := range interactions {
		if len(it.IngredientVector) == 0 {
			continue
		}
		if accumulated == nil {
			dim = len(it.IngredientVector)
			accumulated = make([]float64, dim)
		}
		w := core.InteractionWeight(it.Type, it.Value)
		v := vec.Fit(it.IngredientVector, dim)
		for i := range accumulated {
			accumulated[i] += w * v[i]
		}
		totalWeight += abs(w)
		used++
	}
	if used == 0 {
		metrics.TrainingRuns.WithLabelValues("no_vectors").Inc()
		return &TrainResult{
			UserID:           userID,
			InteractionCount: count,
			ColdStart:        true,
			Message:          "No recipe vectors available for training.",
		}, nil
	}

	if totalWeight == 0 {
		totalWeight = 1.0
	}
	for i := range accumulated {
		accumulated[i] /= totalWeight
	}
	preference := vec.Normalize(accumulated)

	maturity := core.Maturity(count, coldStart, t.threshold())
	weights := core.WeightsFor(maturity)

	profile := &core.TasteProfile{
		UserID:           userID,
		PreferenceVector: preference,
		InteractionCount: count,
		ColdStart:        coldStart,
		ContentWeight:    weights.Content,
		CollabWeight:     weights.Collaborative,
		LastTrainedAt:    time.Now(),
	}
	if err := t.Store.UpsertTasteProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("trainer: upsert profile: %w", err)
	}

	if t.Logger != nil {
		t.Logger.Info("user model retrained",
			zap.String("user_id", userID),
			zap.Int("interaction_count", count),
			zap.String("maturity", string(maturity)))
	}
	metrics.TrainingRuns.WithLabelValues("retrained").Inc()

	return &TrainResult{
		UserID:           userID,
		InteractionCount: count,
		ColdStart:        coldStart,
		Message:          fmt.Sprintf("Model retrained with %d interactions. Maturity: %s.", count, maturity),
	}, nil
}

func (t *Trainer) threshold() int {
	if t.ColdStartThreshold > 0 {
		return t.ColdStartThreshold
	}
	return core.DefaultColdStartThreshold
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
