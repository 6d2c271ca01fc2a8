package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deppfellow/formula-lab/internal/database"
	"github.com/deppfellow/formula-lab/internal/model"
)

const ingredientColumns = `id, name, inci_name, description, recommended_max_percentage,
	solubility, phase, function, is_premium, is_professional, created_at, updated_at`

// MaxIngredientPageSize caps IngredientFilter.Limit.
const MaxIngredientPageSize = 100

type IngredientRepository struct {
	baseRepository
}

func NewIngredientRepository(db *database.Database) *IngredientRepository {
	return &IngredientRepository{baseRepository: newBase(db)}
}

func scanIngredient(row rowScanner) (*model.Ingredient, error) {
	var i model.Ingredient
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.INCIName,
		&i.Description,
		&i.RecommendedMaxPercentage,
		&i.Solubility,
		&i.Phase,
		&i.Function,
		&i.IsPremium,
		&i.IsProfessional,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// visibilityClause hides what plan may not see.
func visibilityClause(plan model.SubscriptionType) []string {
	var where []string
	if !plan.CanSeePremium() {
		where = append(where, "NOT is_premium")
	}
	if !plan.CanSeeProfessional() {
		where = append(where, "NOT is_professional")
	}
	return where
}

func whereSQL(where []string) string {
	if len(where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(where, " AND ")
}

// List returns one page of ingredients ordered by id.
func (r *IngredientRepository) List(ctx context.Context, f model.IngredientFilter) ([]model.Ingredient, error) {
	where := visibilityClause(f.Plan)
	var args []any

	if f.Search != "" {
		where = append(where, "(LOWER(name) LIKE ? OR LOWER(inci_name) LIKE ?)")
		pattern := "%" + strings.ToLower(f.Search) + "%"
		args = append(args, pattern, pattern)
	}
	if f.Phase != "" {
		where = append(where, "phase = ?")
		args = append(args, f.Phase)
	}
	if f.Function != "" {
		where = append(where, "function = ?")
		args = append(args, f.Function)
	}

	limit := f.Limit
	if limit <= 0 || limit > MaxIngredientPageSize {
		limit = MaxIngredientPageSize
	}
	skip := max(f.Skip, 0)
	args = append(args, limit, skip)

	query := r.rebind(`SELECT ` + ingredientColumns + ` FROM ingredients` + whereSQL(where) + ` ORDER BY id LIMIT ? OFFSET ?`)
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	defer rows.Close()

	items := make([]model.Ingredient, 0, limit)
	for rows.Next() {
		i, err := scanIngredient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ingredient: %w", err)
		}
		items = append(items, *i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ingredients: %w", err)
	}

	return items, nil
}

// GetByID wraps sql.ErrNoRows when no ingredient matches.
func (r *IngredientRepository) GetByID(ctx context.Context, id int64) (*model.Ingredient, error) {
	row := r.q.QueryRowContext(ctx, r.rebind(`SELECT `+ingredientColumns+` FROM ingredients WHERE id = ?`), id)
	i, err := scanIngredient(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get ingredient by id=%d: %w", id, err)
	}
	return i, nil
}

// Functions lists the distinct non-empty functions visible on plan.
func (r *IngredientRepository) Functions(ctx context.Context, plan model.SubscriptionType) ([]string, error) {
	return r.distinct(ctx, "function", plan)
}

// Phases lists the distinct non-empty phases visible on plan.
func (r *IngredientRepository) Phases(ctx context.Context, plan model.SubscriptionType) ([]string, error) {
	return r.distinct(ctx, "phase", plan)
}

func (r *IngredientRepository) distinct(ctx context.Context, column string, plan model.SubscriptionType) ([]string, error) {
	where := append([]string{column + " IS NOT NULL", column + " <> ''"}, visibilityClause(plan)...)
	query := `SELECT DISTINCT ` + column + ` FROM ingredients` + whereSQL(where) + ` ORDER BY ` + column

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredient %s values: %w", column, err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient %s: %w", column, err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// Create inserts i and fills in its id and creation time.
func (r *IngredientRepository) Create(ctx context.Context, i *model.Ingredient) (*model.Ingredient, error) {
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now().UTC()
	}

	query := r.rebind(`INSERT INTO ingredients (
		name, inci_name, description, recommended_max_percentage, solubility,
		phase, function, is_premium, is_professional, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	err := r.q.QueryRowContext(ctx, query,
		i.Name,
		i.INCIName,
		i.Description,
		i.RecommendedMaxPercentage,
		i.Solubility,
		i.Phase,
		i.Function,
		i.IsPremium,
		i.IsProfessional,
		i.CreatedAt,
	).Scan(&i.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create ingredient name=%s: %w", i.Name, err)
	}

	return i, nil
}

func (r *IngredientRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM ingredients`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count ingredients: %w", err)
	}
	return n, nil
}
