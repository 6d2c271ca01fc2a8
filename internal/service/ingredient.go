package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/deppfellow/formula-lab/internal/errs"
	"github.com/deppfellow/formula-lab/internal/model"
	"github.com/deppfellow/formula-lab/internal/server"
)

type ingredientStore interface {
	List(ctx context.Context, f model.IngredientFilter) ([]model.Ingredient, error)
	GetByID(ctx context.Context, id int64) (*model.Ingredient, error)
	Functions(ctx context.Context, plan model.SubscriptionType) ([]string, error)
	Phases(ctx context.Context, plan model.SubscriptionType) ([]string, error)
}

// IngredientService scopes the ingredient database to the caller's plan.
// Free users see neither premium nor professional ingredients, premium users
// see premium ones, professional users see everything.
type IngredientService struct {
	server      *server.Server
	ingredients ingredientStore
}

func NewIngredientService(s *server.Server, ingredients ingredientStore) *IngredientService {
	return &IngredientService{server: s, ingredients: ingredients}
}

func (s *IngredientService) List(ctx context.Context, plan model.SubscriptionType, q *model.ListIngredientsQuery) ([]model.Ingredient, error) {
	items, err := s.ingredients.List(ctx, q.Filter(plan))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Ingredient{}
	}
	return items, nil
}

func (s *IngredientService) Functions(ctx context.Context, plan model.SubscriptionType) ([]string, error) {
	return nonNil(s.ingredients.Functions(ctx, plan))
}

func (s *IngredientService) Phases(ctx context.Context, plan model.SubscriptionType) ([]string, error) {
	return nonNil(s.ingredients.Phases(ctx, plan))
}

// Get returns 404 for a missing ingredient and 403 for one above the plan.
func (s *IngredientService) Get(ctx context.Context, plan model.SubscriptionType, id int64) (*model.Ingredient, error) {
	ingredient, err := s.ingredients.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NewNotFoundError("Ingredient not found", false, nil)
	}
	if err != nil {
		return nil, err
	}

	if !ingredient.VisibleTo(plan) {
		required := "premium"
		if ingredient.IsProfessional {
			required = "professional"
		}
		return nil, errs.NewForbiddenError("This ingredient requires a "+required+" subscription", true)
	}

	return ingredient, nil
}

func nonNil(values []string, err error) ([]string, error) {
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}
