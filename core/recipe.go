package core

import "time"

// MealType 是餐次类型（breakfast / lunch / dinner / snack）。
// 营养打分按餐次分配热量占比，序列模型按餐次做周期编码。
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// Index 返回餐次的序号（breakfast=0, lunch=1, dinner=2, snack=3）。
// 未知餐次按 lunch 处理。
func (m MealType) Index() int {
	switch m {
	case MealBreakfast:
		return 0
	case MealLunch:
		return 1
	case MealDinner:
		return 2
	case MealSnack:
		return 3
	default:
		return 1
	}
}

// Recipe 是一次打分调用里的菜谱快照：营养事实、标签、过敏原、双嵌入向量。
// 由存储层提供，打分过程中不可变。
type Recipe struct {
	ID    string
	Title string

	// 营养事实（来源数据可能缺失，0 表示缺失，计算点按 §营养打分 规则兜底）
	Calories float64
	ProteinG float64
	CarbsG   float64
	FatG     float64
	FiberG   float64
	SugarG   float64
	SodiumMg float64

	ReadyInMinutes float64
	Servings       float64

	// DietLabels 如 "vegetarian" / "vegan" / "gluten free"
	DietLabels []string
	// Allergens 如 "dairy" / "eggs" / "gluten"
	Allergens []string

	// IngredientVector / NutritionVector 是固定维度的嵌入向量；
	// nil 表示该菜谱尚未生成向量。维度不符时由打分方 pad/truncate。
	IngredientVector []float64
	NutritionVector  []float64

	CachedAt time.Time
}

// HasLabel 判断菜谱是否带某个饮食标签（大小写不敏感由调用方保证归一）。
func (r *Recipe) HasLabel(label string) bool {
	for _, l := range r.DietLabels {
		if l == label {
			return true
		}
	}
	return false
}

// InteractionType 是用户-菜谱交互类型。
type InteractionType string

const (
	InteractionCook       InteractionType = "cook"
	InteractionRate       InteractionType = "rate"
	InteractionView       InteractionType = "view"
	InteractionSwapAccept InteractionType = "swap_accept"
	InteractionSwapReject InteractionType = "swap_reject"
	InteractionLog        InteractionType = "log"
)

// Interaction 是一条只追加的交互记录。
// Value 在 type=rate 时是评分值，其余类型仅作参考。
type Interaction struct {
	UserID    string
	RecipeID  string
	Type      InteractionType
	Value     float64
	CreatedAt time.Time
}

// MealLog 是一条用餐记录，序列模型的输入单元。
type MealLog struct {
	UserID   string
	RecipeID string
	MealType MealType
	LoggedAt time.Time

	// Recipe 是 LEFT JOIN 带出的菜谱快照；菜谱已删除时为 nil，
	// 序列模型退化为 4 维特征代理。
	Recipe *Recipe
}

// DietType 是饮食类型标签。
type DietType string

const (
	DietVegetarian    DietType = "vegetarian"
	DietVegan         DietType = "vegan"
	DietKeto          DietType = "keto"
	DietMediterranean DietType = "mediterranean"
	DietPaleo         DietType = "paleo"
)

// DietaryPreference 是用户申报的营养目标与饮食类型，可缺省。
type DietaryPreference struct {
	UserID        string
	CalorieTarget float64
	ProteinG      float64
	CarbsG        float64
	FatG          float64
	DietType      DietType // 空串表示无饮食约束
}
