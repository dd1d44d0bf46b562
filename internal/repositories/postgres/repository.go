package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/sestra24/recruitment-service/internal/repositories"
)

type gormRepository struct {
	db *gorm.DB

	question    *questionRepository
	application *applicationRepository
	answer      *answerRepository
}

// NewRepository builds the postgres-backed Repository aggregate.
func NewRepository(db *gorm.DB) repositories.Repository {
	return newGormRepository(db)
}

func newGormRepository(db *gorm.DB) *gormRepository {
	return &gormRepository{
		db:          db,
		question:    &questionRepository{db: db},
		application: &applicationRepository{db: db},
		answer:      &answerRepository{db: db},
	}
}

func (r *gormRepository) Question() repositories.QuestionRepository {
	return r.question
}

func (r *gormRepository) Application() repositories.ApplicationRepository {
	return r.application
}

func (r *gormRepository) Answer() repositories.AnswerRepository {
	return r.answer
}

func (r *gormRepository) WithTx(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newGormRepository(tx))
	})
}
