package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/sestra24/recruitment-service/internal/models"
)

type questionRepository struct {
	db *gorm.DB
}

func (r *questionRepository) GetOrdered(ctx context.Context) ([]*models.TestQuestion, error) {
	var questions []*models.TestQuestion
	if err := r.db.WithContext(ctx).
		Order("order_index ASC").
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	return questions, nil
}

func (r *questionRepository) GetByID(ctx context.Context, id string) (*models.TestQuestion, error) {
	var question models.TestQuestion
	if err := r.db.WithContext(ctx).First(&question, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *questionRepository) CreateBatch(ctx context.Context, questions []*models.TestQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&questions).Error; err != nil {
		return fmt.Errorf("failed to create questions: %w", err)
	}
	return nil
}

func (r *questionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.TestQuestion{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}
