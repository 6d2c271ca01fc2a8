package repository

import (
	"database/sql"

	"github.com/deppfellow/formula-lab/internal/database"
	"github.com/deppfellow/formula-lab/internal/server"
)

// Repositories groups every repository for injection into the services.
type Repositories struct {
	Users       *UserRepository
	Ingredients *IngredientRepository
}

// NewRepositories builds the repositories on top of the server's database.
func NewRepositories(s *server.Server) *Repositories {
	return New(s.DB)
}

// New builds the repositories on top of db.
func New(db *database.Database) *Repositories {
	return &Repositories{
		Users:       NewUserRepository(db),
		Ingredients: NewIngredientRepository(db),
	}
}

// WithTx returns copies of the repositories that run every query inside tx.
func (r *Repositories) WithTx(tx *sql.Tx) *Repositories {
	return &Repositories{
		Users:       &UserRepository{baseRepository: r.Users.withQuerier(tx)},
		Ingredients: &IngredientRepository{baseRepository: r.Ingredients.withQuerier(tx)},
	}
}
