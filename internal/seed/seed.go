// Package seed populates a fresh data store with demo users and sample
// ingredients.
//
// Seeding is idempotent: the schema is migrated first and each table is only
// filled while it is empty, so running it against a seeded store is a no-op.
// A table is counted and filled in one transaction, so a failed run leaves
// it empty for the next one.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/deppfellow/formula-lab/internal/database"
	"github.com/deppfellow/formula-lab/internal/lib/utils"
	"github.com/deppfellow/formula-lab/internal/model"
	"github.com/deppfellow/formula-lab/internal/repository"
	"github.com/rs/zerolog"
)

// DemoPassword is the password of every seeded user.
const DemoPassword = "password"

//go:embed data/ingredients.json
var ingredientsJSON []byte

// Result counts the rows a run inserted.
type Result struct {
	Users       int
	Ingredients int
}

type Seeder struct {
	db         *database.Database
	repos      *repository.Repositories
	logger     *zerolog.Logger
	bcryptCost int
	now        func() time.Time
}

func New(db *database.Database, logger *zerolog.Logger, bcryptCost int) *Seeder {
	return &Seeder{
		db:         db,
		repos:      repository.New(db),
		logger:     logger,
		bcryptCost: bcryptCost,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run migrates the schema, then seeds every empty table.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	if err := database.Migrate(ctx, s.db, s.logger); err != nil {
		return nil, fmt.Errorf("migrating before seed: %w", err)
	}

	result := &Result{}
	var err error

	if result.Users, err = s.seedUsers(ctx); err != nil {
		return result, err
	}
	if result.Ingredients, err = s.seedIngredients(ctx); err != nil {
		return result, err
	}

	s.logger.Info().
		Int("users", result.Users).
		Int("ingredients", result.Ingredients).
		Msg("database seeding completed")

	return result, nil
}

// DemoUsers returns one user per subscription plan.
func DemoUsers(now time.Time) []model.User {
	return []model.User{
		{
			FirstName:             "Admin",
			LastName:              "User",
			Email:                 "admin@example.com",
			IsActive:              true,
			IsVerified:            true,
			SubscriptionType:      model.SubscriptionProfessional,
			SubscriptionExpiresAt: utils.Ptr(now.AddDate(0, 0, 365)),
		},
		{
			FirstName:             "Premium",
			LastName:              "User",
			Email:                 "premium@example.com",
			IsActive:              true,
			IsVerified:            true,
			SubscriptionType:      model.SubscriptionPremium,
			SubscriptionExpiresAt: utils.Ptr(now.AddDate(0, 0, 30)),
		},
		{
			FirstName:        "Free",
			LastName:         "User",
			Email:            "free@example.com",
			IsActive:         true,
			IsVerified:       true,
			SubscriptionType: model.SubscriptionFree,
		},
	}
}

// Ingredients returns the sample ingredient catalogue.
func Ingredients() ([]model.Ingredient, error) {
	var items []model.Ingredient
	if err := json.Unmarshal(ingredientsJSON, &items); err != nil {
		return nil, fmt.Errorf("decoding sample ingredients: %w", err)
	}
	return items, nil
}

// inTx runs fill against repositories bound to a single transaction.
func (s *Seeder) inTx(ctx context.Context, table string, fill func(*repository.Repositories) (int, error)) (int, error) {
	tx, err := s.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seeding %s: %w", table, err)
	}
	defer tx.Rollback()

	n, err := fill(s.repos.WithTx(tx))
	if err != nil {
		return 0, fmt.Errorf("seeding %s: %w", table, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seeding %s: commit: %w", table, err)
	}
	return n, nil
}

func (s *Seeder) seedUsers(ctx context.Context) (int, error) {
	hash, err := utils.HashPassword(DemoPassword, s.bcryptCost)
	if err != nil {
		return 0, fmt.Errorf("hashing demo password: %w", err)
	}

	return s.inTx(ctx, "users", func(repos *repository.Repositories) (int, error) {
		count, err := repos.Users.Count(ctx)
		if err != nil {
			return 0, err
		}
		if count > 0 {
			s.logger.Info().Int64("count", count).Msg("users already exist, skipping")
			return 0, nil
		}

		users := DemoUsers(s.now())
		for i := range users {
			users[i].HashedPassword = hash
			if _, err := repos.Users.Create(ctx, &users[i]); err != nil {
				return 0, fmt.Errorf("creating %s: %w", users[i].Email, err)
			}
		}

		s.logger.Info().Int("count", len(users)).Msg("users added")
		return len(users), nil
	})
}

func (s *Seeder) seedIngredients(ctx context.Context) (int, error) {
	items, err := Ingredients()
	if err != nil {
		return 0, err
	}

	return s.inTx(ctx, "ingredients", func(repos *repository.Repositories) (int, error) {
		count, err := repos.Ingredients.Count(ctx)
		if err != nil {
			return 0, err
		}
		if count > 0 {
			s.logger.Info().Int64("count", count).Msg("ingredients already exist, skipping")
			return 0, nil
		}

		for i := range items {
			if _, err := repos.Ingredients.Create(ctx, &items[i]); err != nil {
				return 0, fmt.Errorf("creating %s: %w", items[i].Name, err)
			}
		}

		s.logger.Info().Int("count", len(items)).Msg("ingredients added")
		return len(items), nil
	})
}
