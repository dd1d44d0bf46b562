package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/sestra24/recruitment-service/internal/models"
	"github.com/sestra24/recruitment-service/internal/repositories"
)

type applicationRepository struct {
	db *gorm.DB
}

// sortColumns whitelists ORDER BY targets. Order takes a raw SQL expression,
// so the query parameter must never reach it unchecked.
var sortColumns = map[string]struct{}{
	"created_at": {},
	"full_name":  {},
	"status":     {},
}

func sortClause(filters repositories.ApplicationFilters) string {
	sortBy := filters.SortBy
	if _, ok := sortColumns[sortBy]; !ok {
		sortBy = "created_at"
	}
	sortOrder := filters.SortOrder
	if sortOrder != "asc" {
		sortOrder = "desc"
	}
	return sortBy + " " + sortOrder
}

func (r *applicationRepository) Create(ctx context.Context, app *models.NurseApplication) error {
	if err := r.db.WithContext(ctx).Create(app).Error; err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

func (r *applicationRepository) Update(ctx context.Context, app *models.NurseApplication) error {
	if err := r.db.WithContext(ctx).Save(app).Error; err != nil {
		return fmt.Errorf("failed to update application: %w", err)
	}
	return nil
}

// UpdateFields applies a partial update; only the supplied columns change.
func (r *applicationRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.NurseApplication{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update application fields: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id string) (*models.NurseApplication, error) {
	var app models.NurseApplication
	if err := r.db.WithContext(ctx).First(&app, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) GetByUserID(ctx context.Context, userID string) (*models.NurseApplication, error) {
	var app models.NurseApplication
	if err := r.db.WithContext(ctx).First(&app, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) List(ctx context.Context, filters repositories.ApplicationFilters) ([]*models.NurseApplication, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.NurseApplication{})

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.City != nil {
		query = query.Where("city = ?", *filters.City)
	}
	if filters.Step != nil {
		query = query.Where("current_step = ?", *filters.Step)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count applications: %w", err)
	}

	query = query.Order(sortClause(filters))

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var apps []*models.NurseApplication
	if err := query.Find(&apps).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list applications: %w", err)
	}

	return apps, total, nil
}
