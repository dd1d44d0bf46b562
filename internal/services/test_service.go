package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sestra24/recruitment-service/internal/cache"
	"github.com/sestra24/recruitment-service/internal/events"
	"github.com/sestra24/recruitment-service/internal/models"
	"github.com/sestra24/recruitment-service/internal/repositories"
	"github.com/sestra24/recruitment-service/internal/utils"
)

const (
	questionCacheKey = "nurse_test_questions:v1"
	questionCacheTTL = 10 * time.Minute

	// RetestLockTTL is how long a failed candidate waits before a new attempt.
	RetestLockTTL = 24 * time.Hour
)

func retestLockKey(applicationID string) string {
	return "retest_lock:" + applicationID
}

// TestService orchestrates qualification-test sessions against the backend:
// step gating, the retest lock, question loading and result persistence.
type TestService interface {
	StartTest(ctx context.Context, userID string) (*TestStateResponse, error)
	SelectAnswer(ctx context.Context, userID, questionID, value string) error
	Advance(ctx context.Context, userID string, delta int) (*TestStateResponse, error)
	SubmitTest(ctx context.Context, userID string) (*TestResultResponse, error)
	TimeRemaining(ctx context.Context, userID string) (int, error)
	CloseSession(userID string)
}

// QuestionView is a question as shown to the candidate: no correct answer.
type QuestionView struct {
	ID           string   `json:"id"`
	QuestionText string   `json:"question_text"`
	Options      []string `json:"options"`
	IsCaseStudy  bool     `json:"is_case_study"`
	OrderIndex   int      `json:"order_index"`
}

type TestStateResponse struct {
	ApplicationID string         `json:"application_id"`
	Questions     []QuestionView `json:"questions"`
	Cursor        int            `json:"cursor"`
	AnsweredCount int            `json:"answered_count"`
	TimeRemaining int            `json:"time_remaining"`
}

type TestResultResponse struct {
	ApplicationID string `json:"application_id"`
	Score         int    `json:"score"`
	Passed        bool   `json:"passed"`
	TimedOut      bool   `json:"timed_out"`
	// PersistError is set when the result could not be saved; the in-memory
	// outcome stands and the save can be retried by the backend.
	PersistError string `json:"persist_error,omitempty"`
}

type testService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	publisher events.EventPublisher
	logger    utils.Logger
	validator *utils.Validator

	mu       sync.Mutex
	sessions map[string]*TestSession // keyed by user id
}

func NewTestService(
	repo repositories.Repository,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	logger utils.Logger,
	validator *utils.Validator,
) TestService {
	return &testService{
		repo:      repo,
		cache:     cacheService,
		publisher: publisher,
		logger:    logger,
		validator: validator,
		sessions:  make(map[string]*TestSession),
	}
}

// StartTest begins (or resumes) the candidate's timed attempt. The wizard must
// already be at the test step; a candidate rejected by a previous attempt is
// held back until the retest lock expires.
func (s *testService) StartTest(ctx context.Context, userID string) (*TestStateResponse, error) {
	app, err := s.getApplication(ctx, userID)
	if err != nil {
		return nil, err
	}

	if app.CurrentStep < models.StepTest {
		return nil, ErrStepNotReached
	}
	if app.TestPassed != nil && *app.TestPassed {
		return nil, ErrTestAlreadySubmitted
	}
	if app.Status == models.StatusActivated {
		return nil, ErrApplicationTerminal
	}
	if app.Status == models.StatusRejected {
		remaining, err := s.retestLockRemaining(ctx, app.ID)
		if err != nil {
			s.logger.Warn("Retest lock lookup failed, refusing attempt", "application_id", app.ID, "error", err)
			return nil, ErrRetestLocked
		}
		if remaining > 0 {
			return nil, &RetestLockedError{RetryAfter: remaining}
		}
	}

	// Resume an in-flight session instead of restarting the countdown.
	s.mu.Lock()
	if existing, ok := s.sessions[userID]; ok && existing.Result() == nil && existing.TimeRemaining() > 0 {
		s.mu.Unlock()
		return s.buildState(existing), nil
	}
	s.mu.Unlock()

	questions, err := s.loadQuestions(ctx)
	if err != nil {
		return nil, err
	}

	session, err := NewTestSession(app.ID, questions, TestDuration, func(result *TestResult) {
		// Forced timeout: persistence runs detached from any request context.
		if err := s.persistResult(context.Background(), app.ID, userID, result); err != nil {
			s.logger.Error("Failed to persist timed-out test result",
				"application_id", app.ID, "error", err)
		}
	})
	if err != nil {
		return nil, err
	}

	if err := session.Start(); err != nil {
		return nil, err
	}

	if err := s.repo.Application().UpdateFields(ctx, app.ID, map[string]interface{}{
		"test_started_at": time.Now(),
	}); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to record test start: %w", err)
	}

	s.mu.Lock()
	if old, ok := s.sessions[userID]; ok {
		old.Close()
	}
	s.sessions[userID] = session
	s.mu.Unlock()

	s.logger.Info("Test attempt started",
		"application_id", app.ID,
		"user_id", userID,
		"questions", len(questions))

	return s.buildState(session), nil
}

func (s *testService) SelectAnswer(ctx context.Context, userID, questionID, value string) error {
	session, err := s.session(userID)
	if err != nil {
		return err
	}
	return session.SelectAnswer(questionID, value)
}

func (s *testService) Advance(ctx context.Context, userID string, delta int) (*TestStateResponse, error) {
	session, err := s.session(userID)
	if err != nil {
		return nil, err
	}
	if _, err := session.Advance(delta); err != nil {
		return nil, err
	}
	return s.buildState(session), nil
}

// SubmitTest commits the attempt. Submitting an already-terminal session is a
// no-op returning the existing result, which resolves the manual/timeout race.
func (s *testService) SubmitTest(ctx context.Context, userID string) (*TestResultResponse, error) {
	session, err := s.session(userID)
	if err != nil {
		return nil, err
	}

	result, err := session.Submit()
	if err != nil {
		if errors.Is(err, ErrTestAlreadySubmitted) && result != nil {
			return buildResultResponse(session.ApplicationID(), result, ""), nil
		}
		return nil, err
	}

	persistMsg := ""
	if err := s.persistResult(ctx, session.ApplicationID(), userID, result); err != nil {
		// The candidate keeps their result; persistence is retriable.
		s.logger.Error("Failed to persist test result",
			"application_id", session.ApplicationID(), "error", err)
		persistMsg = "result could not be saved, it will be retried"
	}

	return buildResultResponse(session.ApplicationID(), result, persistMsg), nil
}

func (s *testService) TimeRemaining(ctx context.Context, userID string) (int, error) {
	session, err := s.session(userID)
	if err != nil {
		return 0, err
	}
	return session.TimeRemaining(), nil
}

// CloseSession cancels the countdown of an abandoned session, if any.
func (s *testService) CloseSession(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[userID]; ok {
		session.Close()
		delete(s.sessions, userID)
	}
}

// ===== HELPERS =====

func (s *testService) getApplication(ctx context.Context, userID string) (*models.NurseApplication, error) {
	app, err := s.repo.Application().GetByUserID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

func (s *testService) session(userID string) (*TestSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[userID]
	if !ok {
		return nil, ErrTestSessionNotFound
	}
	return session, nil
}

func (s *testService) loadQuestions(ctx context.Context) ([]*models.TestQuestion, error) {
	var questions []*models.TestQuestion
	if err := s.cache.Get(ctx, questionCacheKey, &questions); err == nil && len(questions) > 0 {
		return questions, nil
	}

	questions, err := s.repo.Question().GetOrdered(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuestionsUnavailable, err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	if err := s.cache.Set(ctx, questionCacheKey, questions, questionCacheTTL); err != nil {
		s.logger.Warn("Failed to cache question set", "error", err)
	}

	return questions, nil
}

// retestLockRemaining reports how long the candidate's lock still holds;
// zero means no lock.
func (s *testService) retestLockRemaining(ctx context.Context, applicationID string) (time.Duration, error) {
	var locked bool
	err := s.cache.Get(ctx, retestLockKey(applicationID), &locked)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return 0, nil
		}
		return 0, err
	}
	if !locked {
		return 0, nil
	}

	remaining, err := s.cache.TTL(ctx, retestLockKey(applicationID))
	if err != nil {
		return 0, err
	}
	if remaining <= 0 {
		// Key present but expiry unreadable; hold the full window.
		remaining = RetestLockTTL
	}
	return remaining, nil
}

// persistResult writes the answer batch and the application outcome in one
// transaction, then publishes the lifecycle events. A failed attempt arms the
// 24h retest lock.
func (s *testService) persistResult(ctx context.Context, applicationID, userID string, result *TestResult) error {
	answers := make([]*models.TestAnswer, len(result.Answers))
	for i, a := range result.Answers {
		answers[i] = &models.TestAnswer{
			ID:             uuid.NewString(),
			ApplicationID:  applicationID,
			QuestionID:     a.QuestionID,
			SelectedAnswer: a.Selected,
			IsCorrect:      a.Correct,
			AnsweredAt:     result.SubmittedAt,
		}
	}

	status := models.StatusRejected
	fields := map[string]interface{}{
		"test_completed_at": result.SubmittedAt,
		"test_score":        result.Score,
		"test_passed":       result.Passed,
	}
	if result.Passed {
		status = models.StatusTestPassed
		fields["current_step"] = models.StepInterview
	}
	fields["status"] = status

	err := s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		if err := tx.Answer().CreateBatch(ctx, answers); err != nil {
			return err
		}
		return tx.Application().UpdateFields(ctx, applicationID, fields)
	})
	if err != nil {
		return fmt.Errorf("failed to persist test result: %w", err)
	}

	if !result.Passed {
		if _, lockErr := s.cache.SetNX(ctx, retestLockKey(applicationID), true, RetestLockTTL); lockErr != nil {
			s.logger.Warn("Failed to arm retest lock", "application_id", applicationID, "error", lockErr)
		}
	}

	s.publish(ctx, events.NewApplicationEvent(events.EventTestSubmitted, events.TestSubmittedEvent{
		ApplicationID: applicationID,
		Score:         result.Score,
		Passed:        result.Passed,
		TimedOut:      result.TimedOut,
	}))
	s.publish(ctx, events.NewApplicationEvent(events.EventApplicationStatusChanged, events.StatusChangedEvent{
		ApplicationID: applicationID,
		UserID:        userID,
		To:            status,
	}))

	s.logger.Info("Test result persisted",
		"application_id", applicationID,
		"score", result.Score,
		"passed", result.Passed,
		"timed_out", result.TimedOut)

	return nil
}

func (s *testService) publish(ctx context.Context, event *events.ApplicationEvent) {
	if err := s.publisher.PublishApplicationEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event", "event_type", event.Type, "error", err)
	}
}

func (s *testService) buildState(session *TestSession) *TestStateResponse {
	views := make([]QuestionView, 0, session.QuestionCount())
	for _, q := range session.questions {
		options, err := q.OptionValues()
		if err != nil {
			s.logger.Warn("Question has malformed options", "question_id", q.ID, "error", err)
		}
		views = append(views, QuestionView{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			Options:      options,
			IsCaseStudy:  q.IsCaseStudy,
			OrderIndex:   q.OrderIndex,
		})
	}

	return &TestStateResponse{
		ApplicationID: session.ApplicationID(),
		Questions:     views,
		Cursor:        session.Cursor(),
		AnsweredCount: session.AnsweredCount(),
		TimeRemaining: session.TimeRemaining(),
	}
}

func buildResultResponse(applicationID string, result *TestResult, persistMsg string) *TestResultResponse {
	return &TestResultResponse{
		ApplicationID: applicationID,
		Score:         result.Score,
		Passed:        result.Passed,
		TimedOut:      result.TimedOut,
		PersistError:  persistMsg,
	}
}
