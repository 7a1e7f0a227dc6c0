package service

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/snacktrack/tastekit/core"
)

// RecommendRequest 是 POST /recommend 的请求体。
type RecommendRequest struct {
	UserID           string   `json:"user_id" binding:"required"`
	TopN             int      `json:"top_n"`
	ExcludeRecipeIDs []string `json:"exclude_recipe_ids"`
}

// RecipeScore 是响应里的一条推荐。
type RecipeScore struct {
	RecipeID string  `json:"recipe_id"`
	Title    string  `json:"title"`
	Score    float64 `json:"score"`
	Source   string  `json:"source"`
}

// RecommendResponse 是 POST /recommend 的响应体。
type RecommendResponse struct {
	UserID          string        `json:"user_id"`
	Recommendations []RecipeScore `json:"recommendations"`
	IsColdStart     bool          `json:"is_cold_start"`
	ModelVersion    string        `json:"model_version"`
	Degraded        bool          `json:"degraded,omitempty"`
}

// TrainRequest 是 POST /train 的请求体。
type TrainRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// TrainResponse 是 POST /train 的响应体。
type TrainResponse struct {
	UserID           string `json:"user_id"`
	InteractionCount int    `json:"interaction_count"`
	IsColdStart      bool   `json:"is_cold_start"`
	Message          string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

const (
	defaultTopN = 10
	maxTopN     = 50
)

// Router 构建 HTTP 路由。
func Router(engine *Engine, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID())

	r.POST("/recommend", handleRecommend(engine, logger))
	r.POST("/train", handleTrain(engine, logger))
	r.GET("/health", handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

// requestID 给每个请求挂 uuid，贯穿日志与响应头。
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func handleRecommend(engine *Engine, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RecommendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		if req.TopN == 0 {
			req.TopN = defaultTopN
		}
		if req.TopN < 1 || req.TopN > maxTopN {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "top_n must be between 1 and 50"})
			return
		}

		ranked, err := engine.Recommend(c.Request.Context(), req.UserID, req.TopN, req.ExcludeRecipeIDs)
		if err != nil {
			if logger != nil {
				logger.Error("recommend failed",
					zap.String("request_id", c.GetString("request_id")),
					zap.String("user_id", req.UserID),
					zap.Error(err))
			}
			c.JSON(errorStatus(err), errorResponse{Error: "recommendation engine unavailable"})
			return
		}
		c.JSON(http.StatusOK, toRecommendResponse(ranked))
	}
}

func handleTrain(engine *Engine, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TrainRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}

		result, err := engine.Train(c.Request.Context(), req.UserID)
		if err != nil {
			if logger != nil {
				logger.Error("train failed",
					zap.String("request_id", c.GetString("request_id")),
					zap.String("user_id", req.UserID),
					zap.Error(err))
			}
			c.JSON(errorStatus(err), errorResponse{Error: "training unavailable"})
			return
		}
		c.JSON(http.StatusOK, TrainResponse{
			UserID:           result.UserID,
			InteractionCount: result.InteractionCount,
			IsColdStart:      result.ColdStart,
			Message:          result.Message,
		})
	}
}

// errorStatus：存储不可用映射 503，其余内部错误 500。
func errorStatus(err error) int {
	if core.IsUnavailable(err) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "tastekit"})
}

func toRecommendResponse(ranked *core.RankedList) RecommendResponse {
	recs := make([]RecipeScore, len(ranked.Recipes))
	for i, r := range ranked.Recipes {
		recs[i] = RecipeScore{
			RecipeID: r.RecipeID,
			Title:    r.Title,
			Score:    r.Score,
			Source:   string(r.Source),
		}
	}
	return RecommendResponse{
		UserID:          ranked.UserID,
		Recommendations: recs,
		IsColdStart:     ranked.ColdStart,
		ModelVersion:    ModelVersion,
		Degraded:        ranked.Degraded,
	}
}
