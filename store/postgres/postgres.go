// Package postgres 是 core.Store 的生产实现，最近邻检索由 pgvector 提供。
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/snacktrack/tastekit/core"
)

// Store 基于 database/sql + lib/pq 实现 core.Store。
type Store struct {
	db *sql.DB
}

// Open 建立连接池并做一次连通性探测。
func Open(ctx context.Context, dsn string, maxOpen, maxIdle int) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, unavailable("ping", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB 包装既有连接，测试注入用。
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

// Close 关闭连接池。
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) TasteProfile(ctx context.Context, userID string) (*core.TasteProfile, error) {
	const q = `
		SELECT user_id, preference_vector::text, interaction_count, cold_start,
		       COALESCE(content_weight, 0), COALESCE(collab_weight, 0), last_trained_at
		FROM user_taste_profiles
		WHERE user_id = $1`

	var (
		p       core.TasteProfile
		vecText sql.NullString
		trained sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, q, userID).Scan(
		&p.UserID, &vecText, &p.InteractionCount, &p.ColdStart,
		&p.ContentWeight, &p.CollabWeight, &trained,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("taste profile", err)
	}
	if vecText.Valid {
		p.PreferenceVector, err = parseVector(vecText.String)
		if err != nil {
			return nil, fmt.Errorf("postgres: taste profile: %w", err)
		}
	}
	if trained.Valid {
		p.LastTrainedAt = trained.Time
	}
	return &p, nil
}

func (s *Store) UpsertTasteProfile(ctx context.Context, profile *core.TasteProfile) error {
	const q = `
		INSERT INTO user_taste_profiles (
			user_id, preference_vector, interaction_count,
			cold_start, content_weight, collab_weight, last_trained_at
		)
		VALUES ($1, $2::vector, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			preference_vector = COALESCE(EXCLUDED.preference_vector, user_taste_profiles.preference_vector),
			interaction_count = EXCLUDED.interaction_count,
			cold_start = EXCLUDED.cold_start,
			content_weight = EXCLUDED.content_weight,
			collab_weight = EXCLUDED.collab_weight,
			last_trained_at = NOW()`

	var vecArg interface{}
	if len(profile.PreferenceVector) > 0 {
		vecArg = formatVector(profile.PreferenceVector)
	}
	_, err := s.db.ExecContext(ctx, q,
		profile.UserID, vecArg, profile.InteractionCount,
		profile.ColdStart, profile.ContentWeight, profile.CollabWeight,
	)
	if err != nil {
		return unavailable("upsert taste profile", err)
	}
	return nil
}

func (s *Store) RecentInteractions(ctx context.Context, userID string, limit int) ([]core.Interaction, error) {
	const q = `
		SELECT user_id, recipe_id, interaction_type,
		       COALESCE(interaction_value, 0), created_at
		FROM user_interactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, unavailable("recent interactions", err)
	}
	defer rows.Close()

	var out []core.Interaction
	for rows.Next() {
		var it core.Interaction
		if err := rows.Scan(&it.UserID, &it.RecipeID, &it.Type, &it.Value, &it.CreatedAt); err != nil {
			return nil, unavailable("recent interactions", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) TrainingInteractions(ctx context.Context, userID string, limit int) ([]core.TrainingInteraction, error) {
	const q = `
		SELECT ui.recipe_id, ui.interaction_type,
		       COALESCE(ui.interaction_value, 0), r.ingredient_vector::text
		FROM user_interactions ui
		JOIN recipes r ON r.id = ui.recipe_id
		WHERE ui.user_id = $1 AND r.ingredient_vector IS NOT NULL
		ORDER BY ui.created_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, unavailable("training interactions", err)
	}
	defer rows.Close()

	var out []core.TrainingInteraction
	for rows.Next() {
		var (
			it      core.TrainingInteraction
			vecText string
		)
		if err := rows.Scan(&it.RecipeID, &it.Type, &it.Value, &vecText); err != nil {
			return nil, unavailable("training interactions", err)
		}
		if it.IngredientVector, err = parseVector(vecText); err != nil {
			return nil, fmt.Errorf("postgres: training interactions: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) LikedRecipes(ctx context.Context, userID string, limit int) ([]*core.Recipe, error) {
	q := `
		SELECT ` + recipeColumns("r") + `
		FROM user_interactions ui
		JOIN recipes r ON r.id = ui.recipe_id
		WHERE ui.user_id = $1 AND ui.interaction_value > 0
		ORDER BY ui.created_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, unavailable("liked recipes", err)
	}
	defer rows.Close()
	return scanRecipes(rows, "liked recipes")
}

func (s *Store) RecentMealLogs(ctx context.Context, userID string, limit int) ([]core.MealLog, error) {
	q := `
		SELECT ml.user_id, ml.recipe_id, ml.meal_type, ml.logged_at,
		       r.id, ` + recipeColumns("r") + `
		FROM meal_logs ml
		LEFT JOIN recipes r ON r.id = ml.recipe_id
		WHERE ml.user_id = $1
		ORDER BY ml.logged_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, unavailable("meal logs", err)
	}
	defer rows.Close()

	var out []core.MealLog
	for rows.Next() {
		var (
			l        core.MealLog
			joinedID sql.NullString
		)
		r, raw, dest := recipeScanDest()
		args := append([]interface{}{&l.UserID, &l.RecipeID, &l.MealType, &l.LoggedAt, &joinedID}, dest...)
		if err := rows.Scan(args...); err != nil {
			return nil, unavailable("meal logs", err)
		}
		if joinedID.Valid {
			if err := raw.apply(r); err != nil {
				return nil, fmt.Errorf("postgres: meal logs: %w", err)
			}
			l.Recipe = r
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) RecentRecipes(ctx context.Context, limit int, exclude []string) ([]*core.Recipe, error) {
	q := `
		SELECT ` + recipeColumns("r") + `
		FROM recipes r
		WHERE NOT (r.id = ANY($1))
		ORDER BY r.cached_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, q, pq.Array(stringArray(exclude)), limit)
	if err != nil {
		return nil, unavailable("recent recipes", err)
	}
	defer rows.Close()
	return scanRecipes(rows, "recent recipes")
}

func (s *Store) NearestRecipes(ctx context.Context, column core.VectorColumn, query []float64, k int, exclude []string) ([]core.VectorMatch, error) {
	col, ok := vectorColumns[column]
	if !ok {
		return nil, fmt.Errorf("postgres: unknown vector column %q", column)
	}
	// 列名来自白名单，qualifier 固定，无注入面
	q := fmt.Sprintf(`
		SELECT r.id, r.title, 1 - (r.%s <=> $1::vector)
		FROM recipes r
		WHERE r.%s IS NOT NULL AND NOT (r.id = ANY($2))
		ORDER BY r.%s <=> $1::vector ASC
		LIMIT $3`, col, col, col)

	rows, err := s.db.QueryContext(ctx, q, formatVector(query), pq.Array(stringArray(exclude)), k)
	if err != nil {
		return nil, unavailable("nearest recipes", err)
	}
	defer rows.Close()

	var out []core.VectorMatch
	for rows.Next() {
		var m core.VectorMatch
		if err := rows.Scan(&m.RecipeID, &m.Title, &m.Similarity); err != nil {
			return nil, unavailable("nearest recipes", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) CoInteractingUsers(ctx context.Context, userID string, recipeIDs []string, limit int) ([]string, error) {
	const q = `
		SELECT DISTINCT ui.user_id
		FROM user_interactions ui
		WHERE ui.recipe_id = ANY($1) AND ui.user_id != $2
		LIMIT $3`

	rows, err := s.db.QueryContext(ctx, q, pq.Array(stringArray(recipeIDs)), userID, limit)
	if err != nil {
		return nil, unavailable("co-interacting users", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, unavailable("co-interacting users", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) InteractionSums(ctx context.Context, userIDs []string) ([]core.InteractionSum, error) {
	const q = `
		SELECT user_id, recipe_id, SUM(COALESCE(interaction_value, 0))
		FROM user_interactions
		WHERE user_id = ANY($1)
		GROUP BY user_id, recipe_id`

	rows, err := s.db.QueryContext(ctx, q, pq.Array(stringArray(userIDs)))
	if err != nil {
		return nil, unavailable("interaction sums", err)
	}
	defer rows.Close()

	var out []core.InteractionSum
	for rows.Next() {
		var sum core.InteractionSum
		if err := rows.Scan(&sum.UserID, &sum.RecipeID, &sum.Score); err != nil {
			return nil, unavailable("interaction sums", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *Store) RecipeTitles(ctx context.Context, ids []string) (map[string]string, error) {
	const q = `SELECT id, title FROM recipes WHERE id = ANY($1)`

	rows, err := s.db.QueryContext(ctx, q, pq.Array(stringArray(ids)))
	if err != nil {
		return nil, unavailable("recipe titles", err)
	}
	defer rows.Close()

	out := make(map[string]string, len(ids))
	for rows.Next() {
		var id, title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, unavailable("recipe titles", err)
		}
		out[id] = title
	}
	return out, rows.Err()
}

func (s *Store) UserAllergens(ctx context.Context, userID string) ([]string, error) {
	const q = `SELECT LOWER(allergen_type) FROM user_allergens WHERE user_id = $1`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, unavailable("user allergens", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, unavailable("user allergens", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) DietaryPreference(ctx context.Context, userID string) (*core.DietaryPreference, error) {
	const q = `
		SELECT user_id, COALESCE(calorie_target, 0), COALESCE(protein_target_g, 0),
		       COALESCE(carb_target_g, 0), COALESCE(fat_target_g, 0),
		       COALESCE(diet_type, '')
		FROM dietary_preferences
		WHERE user_id = $1`

	var p core.DietaryPreference
	err := s.db.QueryRowContext(ctx, q, userID).Scan(
		&p.UserID, &p.CalorieTarget, &p.ProteinG, &p.CarbsG, &p.FatG, &p.DietType,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("dietary preference", err)
	}
	return &p, nil
}

func (s *Store) PopularRecipes(ctx context.Context, exclude []string, limit int) ([]core.PopularRecipe, error) {
	const q = `
		SELECT r.id, r.title, COUNT(ui.recipe_id)
		FROM recipes r
		LEFT JOIN user_interactions ui ON ui.recipe_id = r.id
		WHERE NOT (r.id = ANY($1))
		GROUP BY r.id, r.title
		ORDER BY COUNT(ui.recipe_id) DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, q, pq.Array(stringArray(exclude)), limit)
	if err != nil {
		return nil, unavailable("popular recipes", err)
	}
	defer rows.Close()

	var out []core.PopularRecipe
	for rows.Next() {
		var p core.PopularRecipe
		if err := rows.Scan(&p.RecipeID, &p.Title, &p.Interactions); err != nil {
			return nil, unavailable("popular recipes", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

var _ core.Store = (*Store)(nil)

var vectorColumns = map[core.VectorColumn]string{
	core.VectorIngredient: "ingredient_vector",
	core.VectorNutrition:  "nutrition_vector",
}

// unavailable 把驱动/连接层错误标成 core.ErrStoreUnavailable，
// 上层据此与"数据不存在"（返回 nil, nil）分级处理。
func unavailable(op string, err error) error {
	return fmt.Errorf("postgres: %s: %w", op, errors.Join(core.ErrStoreUnavailable, err))
}

// stringArray 把 nil 统一成空数组，ANY('{}') 恒为假。
func stringArray(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
