package postgres

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/snacktrack/tastekit/core"
)

// recipeColumns 生成菜谱的 SELECT 列清单，与 recipeScanDest 顺序严格对应。
func recipeColumns(alias string) string {
	cols := []string{
		"COALESCE(id, '')", "COALESCE(title, '')",
		"COALESCE(calories, 0)", "COALESCE(protein_g, 0)", "COALESCE(carbs_g, 0)",
		"COALESCE(fat_g, 0)", "COALESCE(fiber_g, 0)", "COALESCE(sugar_g, 0)",
		"COALESCE(sodium_mg, 0)", "COALESCE(ready_in_minutes, 0)", "COALESCE(servings, 0)",
		"diet_labels", "allergens",
		"ingredient_vector::text", "nutrition_vector::text", "cached_at",
	}
	qualified := make([]string, len(cols))
	for i, c := range cols {
		if strings.HasPrefix(c, "COALESCE(") {
			qualified[i] = "COALESCE(" + alias + "." + strings.TrimSuffix(strings.TrimPrefix(c, "COALESCE("), ")") + ")"
		} else {
			qualified[i] = alias + "." + c
		}
	}
	return strings.Join(qualified, ", ")
}

type recipeRow struct {
	labels     pq.StringArray
	allergens  pq.StringArray
	ingredient sql.NullString
	nutrition  sql.NullString
	cachedAt   sql.NullTime
}

// recipeScanDest 返回菜谱、原始列承载、配套的 Scan 目标切片。
// Scan 成功后必须调用 raw.apply(r) 回填派生字段。
func recipeScanDest() (*core.Recipe, *recipeRow, []interface{}) {
	r := &core.Recipe{}
	raw := &recipeRow{}
	dest := []interface{}{
		&r.ID, &r.Title,
		&r.Calories, &r.ProteinG, &r.CarbsG,
		&r.FatG, &r.FiberG, &r.SugarG,
		&r.SodiumMg, &r.ReadyInMinutes, &r.Servings,
		&raw.labels, &raw.allergens,
		&raw.ingredient, &raw.nutrition, &raw.cachedAt,
	}
	return r, raw, dest
}

func (raw *recipeRow) apply(r *core.Recipe) error {
	r.DietLabels = raw.labels
	r.Allergens = raw.allergens
	if raw.ingredient.Valid {
		v, err := parseVector(raw.ingredient.String)
		if err != nil {
			return err
		}
		r.IngredientVector = v
	}
	if raw.nutrition.Valid {
		v, err := parseVector(raw.nutrition.String)
		if err != nil {
			return err
		}
		r.NutritionVector = v
	}
	if raw.cachedAt.Valid {
		r.CachedAt = raw.cachedAt.Time
	}
	return nil
}

func scanRecipes(rows *sql.Rows, op string) ([]*core.Recipe, error) {
	var out []*core.Recipe
	for rows.Next() {
		r, raw, dest := recipeScanDest()
		if err := rows.Scan(dest...); err != nil {
			return nil, unavailable(op, err)
		}
		if err := raw.apply(r); err != nil {
			return nil, fmt.Errorf("postgres: %s: %w", op, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}
	return out, nil
}

// parseVector 解析 pgvector 的文本形式 "[0.1,0.2,...]"。
func parseVector(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("malformed vector literal %q", s)
	}
	body := strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	if body == "" {
		return nil, nil
	}
	parts := strings.Split(body, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("malformed vector element %q: %w", p, err)
		}
		out[i] = f
	}
	return out, nil
}

// formatVector 生成 pgvector 的文本字面量。
func formatVector(v []float64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}
