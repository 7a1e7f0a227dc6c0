package recall

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/snacktrack/tastekit/core"
	"github.com/snacktrack/tastekit/pkg/rule"
)

// 基于 USDA/WHO 标准的每日参考摄入量。
type intakeRange struct {
	Min, Max, Default float64
}

var dailyReferenceIntakes = map[string]intakeRange{
	"calories":  {1200, 3500, 2000},
	"protein_g": {46, 200, 50},
	"carbs_g":   {130, 400, 275},
	"fat_g":     {44, 150, 78},
	"fiber_g":   {25, 50, 28},
	"sodium_mg": {500, 2300, 2300},
	"sugar_g":   {0, 50, 50},
}

// mealDistribution 是餐次 → 热量占比的指导表。
var mealDistribution = map[core.MealType]float64{
	core.MealBreakfast: 0.25,
	core.MealLunch:     0.35,
	core.MealDinner:    0.35,
	core.MealSnack:     0.05,
}

// defaultMealRatio：未知餐次按 0.3 处理。
const defaultMealRatio = 0.3

// 营养密度目标：每 100 kcal 的克数，达到即满分。
const (
	fiberDensityTarget   = 3.0
	proteinDensityTarget = 8.0
)

// 四个子分的权重；不可计算的子分连同权重一起剔除后再归一。
const (
	calorieWeight = 0.30
	macroWeight   = 0.25
	dietWeight    = 0.25
	densityWeight = 0.20
)

// DietConstraint 是一种饮食类型的约束：排除的过敏原/食材类别、偏好标签。
type DietConstraint struct {
	ExcludedAllergens   []string `yaml:"excluded_allergens"`
	ExcludedIngredients []string `yaml:"excluded_ingredients"`
	PreferredLabels     []string `yaml:"preferred_labels"`
}

// DefaultDietConstraints 返回内置的饮食约束表（可被配置覆盖）。
func DefaultDietConstraints() map[core.DietType]DietConstraint {
	return map[core.DietType]DietConstraint{
		core.DietVegetarian: {
			ExcludedIngredients: []string{"meat", "poultry", "fish", "seafood"},
			PreferredLabels:     []string{"vegetarian", "lacto-vegetarian", "ovo-vegetarian"},
		},
		core.DietVegan: {
			ExcludedAllergens:   []string{"dairy", "eggs"},
			ExcludedIngredients: []string{"meat", "poultry", "fish", "seafood", "honey", "gelatin"},
			PreferredLabels:     []string{"vegan"},
		},
		core.DietKeto: {
			PreferredLabels: []string{"ketogenic"},
		},
		core.DietMediterranean: {
			PreferredLabels: []string{"mediterranean"},
		},
		core.DietPaleo: {
			ExcludedAllergens:   []string{"dairy", "gluten"},
			ExcludedIngredients: []string{"grains", "legumes", "refined sugar"},
			PreferredLabels:     []string{"paleo"},
		},
	}
}

// NutritionScorer 按营养指南给单个菜谱打 [0,1] 分。纯函数，无状态。
type NutritionScorer struct {
	CalorieTarget float64
	ProteinTarget float64
	CarbTarget    float64
	FatTarget     float64
	DietType      core.DietType
	Constraints   map[core.DietType]DietConstraint
}

// NewNutritionScorer 依据用户饮食偏好构建打分器，缺省目标取参考摄入表。
func NewNutritionScorer(prefs *core.DietaryPreference, constraints map[core.DietType]DietConstraint) *NutritionScorer {
	if constraints == nil {
		constraints = DefaultDietConstraints()
	}
	s := &NutritionScorer{
		CalorieTarget: dailyReferenceIntakes["calories"].Default,
		ProteinTarget: dailyReferenceIntakes["protein_g"].Default,
		CarbTarget:    dailyReferenceIntakes["carbs_g"].Default,
		FatTarget:     dailyReferenceIntakes["fat_g"].Default,
		Constraints:   constraints,
	}
	if prefs != nil {
		if prefs.CalorieTarget > 0 {
			s.CalorieTarget = prefs.CalorieTarget
		}
		if prefs.ProteinG > 0 {
			s.ProteinTarget = prefs.ProteinG
		}
		if prefs.CarbsG > 0 {
			s.CarbTarget = prefs.CarbsG
		}
		if prefs.FatG > 0 {
			s.FatTarget = prefs.FatG
		}
		s.DietType = prefs.DietType
	}
	return s
}

// falloff：比值为 1 时满分，每偏离一个单位衰减 0.5，下限 0。
func falloff(ratio float64) float64 {
	score := 1.0 - abs(1.0-ratio)*0.5
	if score < 0 {
		return 0
	}
	return score
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// Score 给菜谱打 [0,1] 分：热量贴合、宏量均衡、饮食兼容、营养密度
// 的加权平均，只对可计算的子分归一。
// 饮食兼容子分为 0（排除性过敏原命中）时整体硬归零，这是安全门。
func (s *NutritionScorer) Score(recipe *core.Recipe, meal core.MealType) float64 {
	ratio, ok := mealDistribution[meal]
	if !ok {
		ratio = defaultMealRatio
	}

	type subScore struct {
		value  float64
		weight float64
	}
	var scores []subScore

	// 1. 热量贴合：菜谱无热量数据时不计入
	targetCalories := s.CalorieTarget * ratio
	if targetCalories > 0 && recipe.Calories > 0 {
		scores = append(scores, subScore{falloff(recipe.Calories / targetCalories), calorieWeight})
	}

	// 2. 宏量均衡
	scores = append(scores, subScore{s.scoreMacros(recipe, ratio), macroWeight})

	// 3. 饮食兼容（含硬性归零）
	diet := s.scoreDietCompatibility(recipe)
	if diet == 0 && s.DietType != "" {
		return 0
	}
	scores = append(scores, subScore{diet, dietWeight})

	// 4. 营养密度
	scores = append(scores, subScore{s.scoreNutrientDensity(recipe), densityWeight})

	var totalWeight, weightedSum float64
	for _, sc := range scores {
		totalWeight += sc.weight
		weightedSum += sc.value * sc.weight
	}
	if totalWeight == 0 {
		return 0.5
	}
	return weightedSum / totalWeight
}

func (s *NutritionScorer) scoreMacros(recipe *core.Recipe, mealRatio float64) float64 {
	targets := []struct {
		actual float64
		target float64
	}{
		{recipe.ProteinG, s.ProteinTarget * mealRatio},
		{recipe.CarbsG, s.CarbTarget * mealRatio},
		{recipe.FatG, s.FatTarget * mealRatio},
	}
	var sum float64
	var n int
	for _, t := range targets {
		if t.target > 0 {
			sum += falloff(t.actual / t.target)
			n++
		}
	}
	if n == 0 {
		return 0.5
	}
	return sum / float64(n)
}

// scoreDietCompatibility：命中偏好标签 1.0；有饮食类型但未标注 0.3；
// 无饮食约束 0.8；命中类型排除的过敏原硬性 0.0。
func (s *NutritionScorer) scoreDietCompatibility(recipe *core.Recipe) float64 {
	if s.DietType == "" {
		return 0.8
	}
	constraint := s.Constraints[s.DietType]

	recipeAllergens := lowerSet(recipe.Allergens)
	for _, a := range constraint.ExcludedAllergens {
		if _, ok := recipeAllergens[strings.ToLower(a)]; ok {
			return 0.0
		}
	}

	recipeLabels := lowerSet(recipe.DietLabels)
	for _, l := range constraint.PreferredLabels {
		if _, ok := recipeLabels[strings.ToLower(l)]; ok {
			return 1.0
		}
	}
	if len(constraint.PreferredLabels) > 0 {
		return 0.3
	}
	return 0.8
}

func (s *NutritionScorer) scoreNutrientDensity(recipe *core.Recipe) float64 {
	if recipe.Calories <= 0 {
		return 0.5
	}
	fiberScore := capAt1(recipe.FiberG / recipe.Calories * 100 / fiberDensityTarget)
	proteinScore := capAt1(recipe.ProteinG / recipe.Calories * 100 / proteinDensityTarget)
	return (fiberScore + proteinScore) / 2
}

func capAt1(x float64) float64 {
	if x > 1 {
		return 1
	}
	return x
}

func lowerSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[strings.ToLower(it)] = struct{}{}
	}
	return set
}

// Knowledge 是知识规则打分源：候选取最新入库的 5×limit 条，
// 先做过敏原安全过滤（整条剔除，不是降权），再按营养指南打分排序。
type Knowledge struct {
	Store       core.Store
	MealType    core.MealType
	Constraints map[core.DietType]DietConstraint

	// Rules 是可选的 CEL 候选过滤规则（配置驱动），不命中的候选直接剔除。
	Rules *rule.Set
}

func (k *Knowledge) Name() core.ScoreSource { return core.SourceKnowledge }

func (k *Knowledge) Score(ctx context.Context, req Request) ([]core.ScoredRecipe, error) {
	prefs, err := k.Store.DietaryPreference(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("knowledge: dietary preference: %w", err)
	}
	allergens, err := k.Store.UserAllergens(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("knowledge: user allergens: %w", err)
	}
	userAllergens := lowerSet(allergens)

	meal := k.MealType
	if meal == "" {
		meal = core.MealLunch
	}
	scorer := NewNutritionScorer(prefs, k.Constraints)

	candidates, err := k.Store.RecentRecipes(ctx, req.Limit*5, req.Exclude)
	if err != nil {
		return nil, fmt.Errorf("knowledge: candidates: %w", err)
	}

	scored := make([]core.ScoredRecipe, 0, len(candidates))
	for _, recipe := range candidates {
		// 安全门：候选过敏原与用户申报过敏原相交，整条剔除
		if intersects(lowerSet(recipe.Allergens), userAllergens) {
			continue
		}
		if k.Rules != nil {
			ok, err := k.Rules.Match(recipe)
			if err != nil || !ok {
				continue
			}
		}
		scored = append(scored, core.ScoredRecipe{
			RecipeID: recipe.ID,
			Title:    recipe.Title,
			Score:    scorer.Score(recipe, meal),
			Source:   core.SourceKnowledge,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > req.Limit {
		scored = scored[:req.Limit]
	}
	return scored, nil
}

func intersects(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}
