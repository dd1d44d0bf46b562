package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sestra24/recruitment-service/internal/cache"
	"github.com/sestra24/recruitment-service/internal/models"
	"github.com/sestra24/recruitment-service/internal/repositories"
	"github.com/sestra24/recruitment-service/internal/utils"
)

// ===== IN-MEMORY REPOSITORY =====

// fakeRepository backs the service tests with map storage so session flows
// can run end to end without postgres.
type fakeRepository struct {
	mu           sync.Mutex
	questions    []*models.TestQuestion
	applications map[string]*models.NurseApplication // by id
	answers      []*models.TestAnswer

	failUpdates    bool
	missUserLookup bool // GetByUserID misses even when a row exists
	txErr          error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		applications: make(map[string]*models.NurseApplication),
	}
}

func (f *fakeRepository) Question() repositories.QuestionRepository       { return (*fakeQuestionRepo)(f) }
func (f *fakeRepository) Application() repositories.ApplicationRepository { return (*fakeAppRepo)(f) }
func (f *fakeRepository) Answer() repositories.AnswerRepository           { return (*fakeAnswerRepo)(f) }

func (f *fakeRepository) WithTx(ctx context.Context, fn func(repositories.Repository) error) error {
	if f.txErr != nil {
		return f.txErr
	}
	return fn(f)
}

type fakeQuestionRepo fakeRepository

func (f *fakeQuestionRepo) GetOrdered(ctx context.Context) ([]*models.TestQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.TestQuestion, len(f.questions))
	copy(out, f.questions)
	return out, nil
}

func (f *fakeQuestionRepo) GetByID(ctx context.Context, id string) (*models.TestQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.questions {
		if q.ID == id {
			return q, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeQuestionRepo) CreateBatch(ctx context.Context, questions []*models.TestQuestion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions = append(f.questions, questions...)
	return nil
}

func (f *fakeQuestionRepo) Count(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.questions)), nil
}

type fakeAppRepo fakeRepository

func (f *fakeAppRepo) Create(ctx context.Context, app *models.NurseApplication) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.applications {
		if existing.UserID == app.UserID {
			return fmt.Errorf("failed to create application: %w", gorm.ErrDuplicatedKey)
		}
	}
	f.applications[app.ID] = app
	return nil
}

func (f *fakeAppRepo) Update(ctx context.Context, app *models.NurseApplication) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.applications[app.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.applications[app.ID] = app
	return nil
}

func (f *fakeAppRepo) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdates {
		return fmt.Errorf("storage unavailable")
	}
	app, ok := f.applications[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	applyApplicationFields(app, fields)
	return nil
}

func (f *fakeAppRepo) GetByID(ctx context.Context, id string) (*models.NurseApplication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	app, ok := f.applications[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *app
	return &clone, nil
}

func (f *fakeAppRepo) GetByUserID(ctx context.Context, userID string) (*models.NurseApplication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missUserLookup {
		return nil, gorm.ErrRecordNotFound
	}
	for _, app := range f.applications {
		if app.UserID == userID {
			clone := *app
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAppRepo) List(ctx context.Context, filters repositories.ApplicationFilters) ([]*models.NurseApplication, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.NurseApplication
	for _, app := range f.applications {
		if filters.Status != nil && app.Status != *filters.Status {
			continue
		}
		if filters.City != nil && app.City != *filters.City {
			continue
		}
		clone := *app
		out = append(out, &clone)
	}
	return out, int64(len(out)), nil
}

type fakeAnswerRepo fakeRepository

func (f *fakeAnswerRepo) CreateBatch(ctx context.Context, answers []*models.TestAnswer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, answers...)
	return nil
}

func (f *fakeAnswerRepo) GetByApplication(ctx context.Context, applicationID string) ([]*models.TestAnswer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.TestAnswer
	for _, a := range f.answers {
		if a.ApplicationID == applicationID {
			out = append(out, a)
		}
	}
	return out, nil
}

func applyApplicationFields(app *models.NurseApplication, fields map[string]interface{}) {
	for key, value := range fields {
		switch key {
		case "full_name":
			app.FullName = value.(string)
		case "phone":
			app.Phone = value.(string)
		case "email":
			app.Email = value.(string)
		case "city":
			app.City = value.(string)
		case "districts":
			app.Districts = value.(datatypes.JSON)
		case "has_transport":
			app.HasTransport = value.(bool)
		case "experience_years":
			app.ExperienceYears = value.(int)
		case "specializations":
			app.Specializations = value.(datatypes.JSON)
		case "night_shifts_available":
			app.NightShiftsAvailable = value.(bool)
		case "diploma_url":
			app.DiplomaURL = stringPtrOrNil(value)
		case "medical_book_url":
			app.MedicalBookURL = stringPtrOrNil(value)
		case "passport_url":
			app.PassportURL = stringPtrOrNil(value)
		case "photo_url":
			app.PhotoURL = stringPtrOrNil(value)
		case "documents_submitted_at":
			t := value.(time.Time)
			app.DocumentsSubmittedAt = &t
		case "test_started_at":
			t := value.(time.Time)
			app.TestStartedAt = &t
		case "test_completed_at":
			t := value.(time.Time)
			app.TestCompletedAt = &t
		case "test_score":
			score := value.(int)
			app.TestScore = &score
		case "test_passed":
			passed := value.(bool)
			app.TestPassed = &passed
		case "interview_scheduled_at":
			t := value.(time.Time)
			app.InterviewScheduledAt = &t
		case "interview_notes":
			notes := value.(string)
			app.InterviewNotes = &notes
		case "current_step":
			app.CurrentStep = value.(int)
		case "status":
			app.Status = value.(models.ApplicationStatus)
		}
	}
}

func stringPtrOrNil(value interface{}) *string {
	if value == nil {
		return nil
	}
	s := value.(string)
	return &s
}

// ===== IN-MEMORY CACHE =====

type fakeCacheEntry struct {
	raw       []byte
	expiresAt time.Time
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]fakeCacheEntry
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]fakeCacheEntry)}
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = fakeCacheEntry{raw: raw, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(entry.raw, dest)
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *fakeCache) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	entry, exists := c.entries[key]
	if exists && time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		exists = false
	}
	c.mu.Unlock()
	if exists {
		return false, nil
	}
	return true, c.Set(ctx, key, value, ttl)
}

func (c *fakeCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return 0, nil
	}
	return time.Until(entry.expiresAt), nil
}

// ===== SHARED FIXTURES =====

func newTestLogger() utils.Logger {
	return utils.NewDefaultLogger()
}

// questionFixture builds an ordered bank of n questions with options A/B/C;
// the correct answer is always "A".
func questionFixture(n int) []*models.TestQuestion {
	questions := make([]*models.TestQuestion, n)
	for i := 0; i < n; i++ {
		options, _ := models.NewQuestionOptions([]string{"A", "B", "C"})
		questions[i] = &models.TestQuestion{
			ID:            fmt.Sprintf("q%d", i+1),
			QuestionText:  fmt.Sprintf("Question %d", i+1),
			Options:       options,
			CorrectAnswer: "A",
			QuestionType:  models.QuestionSingleChoice,
			OrderIndex:    i,
		}
	}
	return questions
}

func applicationFixture(userID string, step int, status models.ApplicationStatus) *models.NurseApplication {
	return &models.NurseApplication{
		ID:          "app-" + userID,
		UserID:      userID,
		FullName:    "Олена Коваленко",
		Phone:       "+380501234567",
		Email:       userID + "@example.com",
		City:        "Київ",
		CurrentStep: step,
		Status:      status,
	}
}
