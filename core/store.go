package core

import "context"

// VectorColumn 指定最近邻检索所用的菜谱向量列。
type VectorColumn string

const (
	VectorIngredient VectorColumn = "ingredient_vector"
	VectorNutrition  VectorColumn = "nutrition_vector"
)

// VectorMatch 是一条最近邻检索结果，Similarity = 1 - 余弦距离。
type VectorMatch struct {
	RecipeID   string
	Title      string
	Similarity float64
}

// PopularRecipe 是兜底热门排序的一行：菜谱与其历史交互总数。
type PopularRecipe struct {
	RecipeID     string
	Title        string
	Interactions int
}

// TrainingInteraction 是训练用交互：已 JOIN 出菜谱的成分向量。
// 向量为 nil 的交互不会出现在结果里（由实现过滤）。
type TrainingInteraction struct {
	RecipeID         string
	Type             InteractionType
	Value            float64
	IngredientVector []float64
}

// InteractionSum 是 (用户, 菜谱) 的交互值求和，协同矩阵的一个单元。
type InteractionSum struct {
	UserID   string
	RecipeID string
	Score    float64
}

// Store 是存储的领域接口。
//
// 设计原则（与存储实现解耦）：
//   - 接口定义在领域层（core），由基础设施层（store/...）实现
//   - 除 UpsertTasteProfile 外全部只读
//   - "没有数据" 返回空结果而非错误；存储不可用才返回错误
//
// 实现：
//   - store/postgres.Store：生产实现，pgvector 提供余弦最近邻
//   - store/memory.Store：测试/原型实现
//   - store/rediscache.Store：画像读缓存装饰器
type Store interface {
	// TasteProfile 按用户取口味画像；不存在返回 (nil, nil)。
	TasteProfile(ctx context.Context, userID string) (*TasteProfile, error)

	// UpsertTasteProfile 写入/更新画像。必须是单条原子写，last-writer-wins。
	UpsertTasteProfile(ctx context.Context, profile *TasteProfile) error

	// RecentInteractions 按时间倒序取最近 limit 条交互。
	RecentInteractions(ctx context.Context, userID string, limit int) ([]Interaction, error)

	// TrainingInteractions 按时间倒序取最近 limit 条、且菜谱带成分向量的交互。
	TrainingInteractions(ctx context.Context, userID string, limit int) ([]TrainingInteraction, error)

	// LikedRecipes 取用户正向交互（value > 0）过的菜谱，按交互时间倒序。
	LikedRecipes(ctx context.Context, userID string, limit int) ([]*Recipe, error)

	// RecentMealLogs 按记录时间倒序取最近 limit 条用餐记录（LEFT JOIN 菜谱）。
	RecentMealLogs(ctx context.Context, userID string, limit int) ([]MealLog, error)

	// RecentRecipes 按入库新鲜度取候选菜谱，排除 exclude 集合。
	RecentRecipes(ctx context.Context, limit int, exclude []string) ([]*Recipe, error)

	// NearestRecipes 对指定向量列做余弦最近邻检索，返回 k 条，排除 exclude。
	NearestRecipes(ctx context.Context, column VectorColumn, query []float64, k int, exclude []string) ([]VectorMatch, error)

	// CoInteractingUsers 找出与给定菜谱集合有过交互的其他用户（最多 limit 个）。
	CoInteractingUsers(ctx context.Context, userID string, recipeIDs []string, limit int) ([]string, error)

	// InteractionSums 取一批用户的 (用户, 菜谱) 交互值求和，构建协同矩阵用。
	InteractionSums(ctx context.Context, userIDs []string) ([]InteractionSum, error)

	// RecipeTitles 批量取菜谱标题。
	RecipeTitles(ctx context.Context, ids []string) (map[string]string, error)

	// UserAllergens 取用户申报的过敏原（小写归一）。
	UserAllergens(ctx context.Context, userID string) ([]string, error)

	// DietaryPreference 取用户饮食偏好；未设置返回 (nil, nil)。
	DietaryPreference(ctx context.Context, userID string) (*DietaryPreference, error)

	// PopularRecipes 按交互总数降序取热门菜谱（LEFT JOIN，零交互也计入）。
	PopularRecipes(ctx context.Context, exclude []string, limit int) ([]PopularRecipe, error)
}
