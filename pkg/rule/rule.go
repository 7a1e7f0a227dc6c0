// Package rule 用 CEL (Common Expression Language) 实现配置驱动的候选过滤规则。
//
// 表达式对 recipe 求布尔值，全部命中才保留候选。
//
// 示例：
//   - `recipe.calories < 800.0` → 只保留 800 kcal 以下的候选
//   - `recipe.sodium_mg <= 2300.0 && recipe.sugar_g < 30.0` → 低钠低糖
//   - `"vegan" in recipe.diet_labels` → 只保留纯素标签
package rule

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/snacktrack/tastekit/core"
)

// Set 是一组编译后的规则，线程安全、可跨请求复用。
type Set struct {
	programs []cel.Program
}

// Compile 编译一组 CEL 表达式；任何一条编译失败立即返回错误（启动时尽早暴露）。
func Compile(exprs []string) (*Set, error) {
	if len(exprs) == 0 {
		return &Set{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("recipe", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("rule: init env: %w", err)
	}

	set := &Set{programs: make([]cel.Program, 0, len(exprs))}
	for _, expr := range exprs {
		if expr == "" {
			continue
		}
		ast, issues := env.Compile(expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("rule: compile %q: %w", expr, issues.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("rule: program %q: %w", expr, err)
		}
		set.programs = append(set.programs, prg)
	}
	return set, nil
}

// Match 判断菜谱是否满足全部规则。空规则集恒为 true。
// 求值出错按不命中处理并返回错误，由调用方决定是否剔除。
func (s *Set) Match(recipe *core.Recipe) (bool, error) {
	if s == nil || len(s.programs) == 0 {
		return true, nil
	}
	input := map[string]any{"recipe": recipeActivation(recipe)}
	for _, prg := range s.programs {
		out, _, err := prg.Eval(input)
		if err != nil {
			return false, fmt.Errorf("rule: eval: %w", err)
		}
		ok, isBool := out.Value().(bool)
		if !isBool {
			return false, fmt.Errorf("rule: expression did not evaluate to bool, got %T", out.Value())
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// recipeActivation 把菜谱快照展开成表达式可见的字段。
func recipeActivation(r *core.Recipe) map[string]any {
	return map[string]any{
		"id":               r.ID,
		"title":            r.Title,
		"calories":         r.Calories,
		"protein_g":        r.ProteinG,
		"carbs_g":          r.CarbsG,
		"fat_g":            r.FatG,
		"fiber_g":          r.FiberG,
		"sugar_g":          r.SugarG,
		"sodium_mg":        r.SodiumMg,
		"ready_in_minutes": r.ReadyInMinutes,
		"servings":         r.Servings,
		"diet_labels":      r.DietLabels,
		"allergens":        r.Allergens,
	}
}
