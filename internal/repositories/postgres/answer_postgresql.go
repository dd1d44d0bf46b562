package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/sestra24/recruitment-service/internal/models"
)

type answerRepository struct {
	db *gorm.DB
}

func (r *answerRepository) CreateBatch(ctx context.Context, answers []*models.TestAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&answers).Error; err != nil {
		return fmt.Errorf("failed to create answers: %w", err)
	}
	return nil
}

func (r *answerRepository) GetByApplication(ctx context.Context, applicationID string) ([]*models.TestAnswer, error) {
	var answers []*models.TestAnswer
	if err := r.db.WithContext(ctx).
		Preload("Question").
		Where("application_id = ?", applicationID).
		Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("failed to get answers: %w", err)
	}
	return answers, nil
}
