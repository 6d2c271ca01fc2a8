package service

import (
	"github.com/deppfellow/formula-lab/internal/lib/job"
	"github.com/deppfellow/formula-lab/internal/repository"
	"github.com/deppfellow/formula-lab/internal/server"
)

type Services struct {
	Auth        *AuthService
	Ingredients *IngredientService
	Job         *job.JobService
}

func NewServices(s *server.Server, repos *repository.Repositories) *Services {
	return &Services{
		Auth:        NewAuthService(s, repos.Users),
		Ingredients: NewIngredientService(s, repos.Ingredients),
		Job:         s.Job,
	}
}
