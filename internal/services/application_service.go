package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/google/uuid"

	"github.com/sestra24/recruitment-service/internal/events"
	"github.com/sestra24/recruitment-service/internal/models"
	"github.com/sestra24/recruitment-service/internal/repositories"
	"github.com/sestra24/recruitment-service/internal/utils"
)

// ApplicationService is the wizard controller: it owns the candidate's
// application record, merges step payloads into it and moves the step counter
// forward. Backward moves are a UI concern and are never persisted.
type ApplicationService interface {
	GetOrCreate(ctx context.Context, userID, email string) (*models.NurseApplication, error)
	CompleteQuestionnaire(ctx context.Context, userID string, req *QuestionnaireRequest) (*models.NurseApplication, error)
	CompleteDocuments(ctx context.Context, userID string, req *DocumentsRequest) (*models.NurseApplication, error)

	// Admin operations
	List(ctx context.Context, filters repositories.ApplicationFilters) ([]*models.NurseApplication, int64, error)
	VerifyDocuments(ctx context.Context, applicationID string) error
	ScheduleInterview(ctx context.Context, applicationID string, at time.Time, notes *string) error
	Activate(ctx context.Context, applicationID string) error
	Reject(ctx context.Context, applicationID string, notes *string) error
}

type QuestionnaireRequest struct {
	FullName             string   `json:"full_name" validate:"required,min=2,max=100"`
	Phone                string   `json:"phone" validate:"required,ua_phone"`
	Email                string   `json:"email" validate:"required,email"`
	City                 string   `json:"city" validate:"required,nurse_city"`
	Districts            []string `json:"districts"`
	HasTransport         bool     `json:"has_transport"`
	ExperienceYears      int      `json:"experience_years" validate:"min=0,max=50"`
	Specializations      []string `json:"specializations" validate:"required,min=1,dive,nurse_specialization"`
	NightShiftsAvailable bool     `json:"night_shifts_available"`
}

type DocumentsRequest struct {
	DiplomaURL     string `json:"diploma_url" validate:"required"`
	MedicalBookURL string `json:"medical_book_url" validate:"required"`
	PassportURL    string `json:"passport_url" validate:"required"`
	PhotoURL       string `json:"photo_url" validate:"required"`
}

type applicationService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    utils.Logger
	validator *utils.Validator
}

func NewApplicationService(
	repo repositories.Repository,
	publisher events.EventPublisher,
	logger utils.Logger,
	validator *utils.Validator,
) ApplicationService {
	return &applicationService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

// GetOrCreate returns the user's persisted application, or an unsaved draft
// seeded with the auth email. The draft is only written once the
// questionnaire step completes.
func (s *applicationService) GetOrCreate(ctx context.Context, userID, email string) (*models.NurseApplication, error) {
	app, err := s.repo.Application().GetByUserID(ctx, userID)
	if err == nil {
		return app, nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}

	return &models.NurseApplication{
		UserID:      userID,
		Email:       email,
		CurrentStep: models.StepQuestionnaire,
		Status:      models.StatusNew,
	}, nil
}

// CompleteQuestionnaire merges the step-1 payload and advances the wizard to
// the documents step. A first submission creates the record seeded at step 2.
func (s *applicationService) CompleteQuestionnaire(ctx context.Context, userID string, req *QuestionnaireRequest) (*models.NurseApplication, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	districts, err := marshalStrings(req.Districts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode districts: %w", err)
	}
	specializations, err := marshalStrings(req.Specializations)
	if err != nil {
		return nil, fmt.Errorf("failed to encode specializations: %w", err)
	}

	app, err := s.repo.Application().GetByUserID(ctx, userID)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to load application: %w", err)
		}

		app = &models.NurseApplication{
			ID:                   uuid.NewString(),
			UserID:               userID,
			FullName:             req.FullName,
			Phone:                req.Phone,
			Email:                req.Email,
			City:                 req.City,
			Districts:            districts,
			HasTransport:         req.HasTransport,
			ExperienceYears:      req.ExperienceYears,
			Specializations:      specializations,
			NightShiftsAvailable: req.NightShiftsAvailable,
			CurrentStep:          models.StepDocuments,
			Status:               models.StatusNew,
		}
		if err := s.repo.Application().Create(ctx, app); err != nil {
			// A concurrent first submit can slip in between the lookup miss
			// and the insert; the unique index on user_id catches it.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, ErrApplicationExists
			}
			return nil, err
		}

		s.publish(ctx, events.NewApplicationEvent(events.EventApplicationCreated, events.StepCompletedEvent{
			ApplicationID: app.ID,
			UserID:        userID,
			Step:          models.StepQuestionnaire,
			NextStep:      models.StepDocuments,
		}))

		s.logger.Info("Application created", "application_id", app.ID, "user_id", userID)
		return app, nil
	}

	if app.Status.IsTerminal() {
		return nil, ErrApplicationTerminal
	}

	// The step counter never moves backward through a re-submission.
	nextStep := app.CurrentStep
	if nextStep < models.StepDocuments {
		nextStep = models.StepDocuments
	}

	fields := map[string]interface{}{
		"full_name":              req.FullName,
		"phone":                  req.Phone,
		"email":                  req.Email,
		"city":                   req.City,
		"districts":              districts,
		"has_transport":          req.HasTransport,
		"experience_years":       req.ExperienceYears,
		"specializations":        specializations,
		"night_shifts_available": req.NightShiftsAvailable,
		"current_step":           nextStep,
	}
	if err := s.repo.Application().UpdateFields(ctx, app.ID, fields); err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewApplicationEvent(events.EventApplicationStepCompleted, events.StepCompletedEvent{
		ApplicationID: app.ID,
		UserID:        userID,
		Step:          models.StepQuestionnaire,
		NextStep:      nextStep,
	}))

	return s.repo.Application().GetByID(ctx, app.ID)
}

// CompleteDocuments records the four document references and advances the
// wizard to the test step. Status stays untouched; verification is a separate
// reviewer action.
func (s *applicationService) CompleteDocuments(ctx context.Context, userID string, req *DocumentsRequest) (*models.NurseApplication, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	app, err := s.repo.Application().GetByUserID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("failed to load application: %w", err)
	}
	if app.Status.IsTerminal() {
		return nil, ErrApplicationTerminal
	}
	if app.CurrentStep < models.StepDocuments {
		return nil, ErrStepNotReached
	}

	nextStep := app.CurrentStep
	if nextStep < models.StepTest {
		nextStep = models.StepTest
	}

	fields := map[string]interface{}{
		"diploma_url":            req.DiplomaURL,
		"medical_book_url":       req.MedicalBookURL,
		"passport_url":           req.PassportURL,
		"photo_url":              req.PhotoURL,
		"documents_submitted_at": time.Now(),
		"current_step":           nextStep,
	}
	if err := s.repo.Application().UpdateFields(ctx, app.ID, fields); err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewApplicationEvent(events.EventApplicationStepCompleted, events.StepCompletedEvent{
		ApplicationID: app.ID,
		UserID:        userID,
		Step:          models.StepDocuments,
		NextStep:      nextStep,
	}))

	return s.repo.Application().GetByID(ctx, app.ID)
}

// ===== ADMIN OPERATIONS =====

func (s *applicationService) List(ctx context.Context, filters repositories.ApplicationFilters) ([]*models.NurseApplication, int64, error) {
	return s.repo.Application().List(ctx, filters)
}

func (s *applicationService) VerifyDocuments(ctx context.Context, applicationID string) error {
	return s.transition(ctx, applicationID, models.StatusDocumentsVerified, nil)
}

func (s *applicationService) ScheduleInterview(ctx context.Context, applicationID string, at time.Time, notes *string) error {
	fields := map[string]interface{}{
		"interview_scheduled_at": at,
	}
	if notes != nil {
		fields["interview_notes"] = *notes
	}
	return s.transition(ctx, applicationID, models.StatusInterview, fields)
}

func (s *applicationService) Activate(ctx context.Context, applicationID string) error {
	return s.transition(ctx, applicationID, models.StatusActivated, nil)
}

func (s *applicationService) Reject(ctx context.Context, applicationID string, notes *string) error {
	var fields map[string]interface{}
	if notes != nil {
		fields = map[string]interface{}{"interview_notes": *notes}
	}
	return s.transition(ctx, applicationID, models.StatusRejected, fields)
}

// transition applies a status-machine-checked change plus extra fields.
func (s *applicationService) transition(ctx context.Context, applicationID string, next models.ApplicationStatus, extra map[string]interface{}) error {
	app, err := s.repo.Application().GetByID(ctx, applicationID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrApplicationNotFound
		}
		return fmt.Errorf("failed to load application: %w", err)
	}

	if !app.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, app.Status, next)
	}

	fields := map[string]interface{}{"status": next}
	for k, v := range extra {
		fields[k] = v
	}
	if err := s.repo.Application().UpdateFields(ctx, applicationID, fields); err != nil {
		return err
	}

	s.publish(ctx, events.NewApplicationEvent(events.EventApplicationStatusChanged, events.StatusChangedEvent{
		ApplicationID: applicationID,
		UserID:        app.UserID,
		From:          app.Status,
		To:            next,
	}))

	s.logger.Info("Application status changed",
		"application_id", applicationID,
		"from", app.Status,
		"to", next)

	return nil
}

func marshalStrings(values []string) (datatypes.JSON, error) {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func (s *applicationService) publish(ctx context.Context, event *events.ApplicationEvent) {
	if err := s.publisher.PublishApplicationEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event", "event_type", event.Type, "error", err)
	}
}
