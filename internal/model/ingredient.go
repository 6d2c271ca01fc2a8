package model

import "github.com/shopspring/decimal"

type Ingredient struct {
	Base
	Name                     string              `json:"name" db:"name"`
	INCIName                 string              `json:"inci_name" db:"inci_name"`
	Description              *string             `json:"description" db:"description"`
	RecommendedMaxPercentage decimal.NullDecimal `json:"recommended_max_percentage" db:"recommended_max_percentage"`
	Solubility               *string             `json:"solubility" db:"solubility"`
	Phase                    *string             `json:"phase" db:"phase"`
	Function                 *string             `json:"function" db:"function"`
	IsPremium                bool                `json:"is_premium" db:"is_premium"`
	IsProfessional           bool                `json:"is_professional" db:"is_professional"`
}

// VisibleTo reports whether a user on plan may see the ingredient.
func (i *Ingredient) VisibleTo(plan SubscriptionType) bool {
	if i.IsProfessional && !plan.CanSeeProfessional() {
		return false
	}
	if i.IsPremium && !plan.CanSeePremium() {
		return false
	}
	return true
}

// IngredientFilter narrows an ingredient listing.
type IngredientFilter struct {
	Skip     int
	Limit    int
	Search   string
	Phase    string
	Function string

	// Plan hides premium or professional ingredients it cannot see.
	Plan SubscriptionType
}

type ListIngredientsQuery struct {
	Skip     int    `query:"skip" validate:"min=0"`
	Limit    int    `query:"limit" validate:"min=0,max=100"`
	Search   string `query:"search" validate:"max=100"`
	Phase    string `query:"phase"`
	Function string `query:"function"`
}

func (q *ListIngredientsQuery) Validate() error {
	if q.Limit == 0 {
		q.Limit = 100
	}
	return validate.Struct(q)
}

// Filter narrows the query to what plan may see.
func (q *ListIngredientsQuery) Filter(plan SubscriptionType) IngredientFilter {
	return IngredientFilter{
		Skip:     q.Skip,
		Limit:    q.Limit,
		Search:   q.Search,
		Phase:    q.Phase,
		Function: q.Function,
		Plan:     plan,
	}
}

type GetIngredientPayload struct {
	ID int64 `param:"id" validate:"required,min=1"`
}

func (p *GetIngredientPayload) Validate() error {
	return validate.Struct(p)
}
