package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/sestra24/recruitment-service/internal/models"
)

// Repository aggregates the per-entity repositories backing the recruitment
// funnel. WithTx returns a Repository whose operations run inside fn's
// transaction; the callback error aborts it.
type Repository interface {
	Question() QuestionRepository
	Application() ApplicationRepository
	Answer() AnswerRepository

	WithTx(ctx context.Context, fn func(Repository) error) error
}

// QuestionRepository provides read access to the qualification-test question
// bank plus the batch create used by the admin import.
type QuestionRepository interface {
	GetOrdered(ctx context.Context) ([]*models.TestQuestion, error)
	GetByID(ctx context.Context, id string) (*models.TestQuestion, error)
	CreateBatch(ctx context.Context, questions []*models.TestQuestion) error
	Count(ctx context.Context) (int64, error)
}

type ApplicationRepository interface {
	Create(ctx context.Context, app *models.NurseApplication) error
	Update(ctx context.Context, app *models.NurseApplication) error
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error
	GetByID(ctx context.Context, id string) (*models.NurseApplication, error)
	GetByUserID(ctx context.Context, userID string) (*models.NurseApplication, error)
	List(ctx context.Context, filters ApplicationFilters) ([]*models.NurseApplication, int64, error)
}

type AnswerRepository interface {
	CreateBatch(ctx context.Context, answers []*models.TestAnswer) error
	GetByApplication(ctx context.Context, applicationID string) ([]*models.TestAnswer, error)
}

// ===== SHARED FILTER STRUCTS =====

type ApplicationFilters struct {
	Status    *models.ApplicationStatus `json:"status"`
	City      *string                   `json:"city"`
	Step      *int                      `json:"step"`
	DateFrom  *time.Time                `json:"date_from"`
	DateTo    *time.Time                `json:"date_to"`
	Limit     int                       `json:"limit"`
	Offset    int                       `json:"offset"`
	SortBy    string                    `json:"sort_by"`    // "created_at", "full_name", "status"
	SortOrder string                    `json:"sort_order"` // "asc", "desc"
}

// IsNotFoundError reports whether err is the storage layer's missing-record
// condition.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
