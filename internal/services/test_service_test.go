package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sestra24/recruitment-service/internal/events"
	"github.com/sestra24/recruitment-service/internal/models"
	"github.com/sestra24/recruitment-service/internal/utils"
)

type testServiceFixture struct {
	repo      *fakeRepository
	cache     *fakeCache
	publisher *events.MockEventPublisher
	svc       *testService
}

func newTestServiceFixture(t *testing.T) *testServiceFixture {
	t.Helper()
	repo := newFakeRepository()
	cacheService := newFakeCache()
	publisher := events.NewMockEventPublisher(slog.Default())

	svc := NewTestService(repo, cacheService, publisher, newTestLogger(), utils.NewValidator()).(*testService)
	return &testServiceFixture{
		repo:      repo,
		cache:     cacheService,
		publisher: publisher,
		svc:       svc,
	}
}

func TestStartTest_StepGate(t *testing.T) {
	f := newTestServiceFixture(t)
	f.repo.questions = questionFixture(5)
	app := applicationFixture("user-1", models.StepDocuments, models.StatusNew)
	require.NoError(t, f.repo.Application().Create(context.Background(), app))

	_, err := f.svc.StartTest(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrStepNotReached)
}

func TestStartTest_NoApplication(t *testing.T) {
	f := newTestServiceFixture(t)

	_, err := f.svc.StartTest(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrApplicationNotFound)
}

func TestStartTest_AlreadyPassed(t *testing.T) {
	f := newTestServiceFixture(t)
	app := applicationFixture("user-1", models.StepInterview, models.StatusTestPassed)
	passed := true
	app.TestPassed = &passed
	require.NoError(t, f.repo.Application().Create(context.Background(), app))

	_, err := f.svc.StartTest(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrTestAlreadySubmitted)
}

func TestStartTest_RetestLock(t *testing.T) {
	f := newTestServiceFixture(t)
	f.repo.questions = questionFixture(5)
	app := applicationFixture("user-1", models.StepTest, models.StatusRejected)
	failed := false
	app.TestPassed = &failed
	require.NoError(t, f.repo.Application().Create(context.Background(), app))

	_, err := f.cache.SetNX(context.Background(), retestLockKey(app.ID), true, RetestLockTTL)
	require.NoError(t, err)

	_, err = f.svc.StartTest(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrRetestLocked)

	var locked *RetestLockedError
	require.ErrorAs(t, err, &locked)
	assert.Greater(t, locked.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, locked.RetryAfter, RetestLockTTL)
}

func TestStartTest_RecordsStartAndServesQuestions(t *testing.T) {
	f := newTestServiceFixture(t)
	f.repo.questions = questionFixture(5)
	app := applicationFixture("user-1", models.StepTest, models.StatusNew)
	require.NoError(t, f.repo.Application().Create(context.Background(), app))

	state, err := f.svc.StartTest(context.Background(), "user-1")
	require.NoError(t, err)
	defer f.svc.CloseSession("user-1")

	assert.Equal(t, app.ID, state.ApplicationID)
	assert.Len(t, state.Questions, 5)
	assert.Equal(t, 0, state.Cursor)
	assert.Greater(t, state.TimeRemaining, 0)

	// The candidate view never carries the correct answer.
	for _, q := range state.Questions {
		assert.NotEmpty(t, q.Options)
	}

	stored, err := f.repo.Application().GetByID(context.Background(), app.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.TestStartedAt)
}

func TestStartTest_ResumesInFlightSession(t *testing.T) {
	f := newTestServiceFixture(t)
	f.repo.questions = questionFixture(3)
	app := applicationFixture("user-1", models.StepTest, models.StatusNew)
	require.NoError(t, f.repo.Application().Create(context.Background(), app))

	_, err := f.svc.StartTest(context.Background(), "user-1")
	require.NoError(t, err)
	defer f.svc.CloseSession("user-1")

	require.NoError(t, f.svc.SelectAnswer(context.Background(), "user-1", "q1", "A"))

	state, err := f.svc.StartTest(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, state.AnsweredCount, "resume must not reset collected answers")
}

func TestSubmitTest_FullFlowPassed(t *testing.T) {
	f := newTestServiceFixture(t)
	f.repo.questions = questionFixture(5)
	app := applicationFixture("user-1", models.StepTest, models.StatusNew)
	require.NoError(t, f.repo.Application().Create(context.Background(), app))

	_, err := f.svc.StartTest(context.Background(), "user-1")
	require.NoError(t, err)

	// 4 of 5 correct: 80%.
	for i := 1; i <= 4; i++ {
		require.NoError(t, f.svc.SelectAnswer(context.Background(), "user-1", questionID(i), "A"))
	}
	require.NoError(t, f.svc.SelectAnswer(context.Background(), "user-1", "q5", "B"))

	result, err := f.svc.SubmitTest(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 80, result.Score)
	assert.True(t, result.Passed)
	assert.False(t, result.TimedOut)
	assert.Empty(t, result.PersistError)

	stored, err := f.repo.Application().GetByID(context.Background(), app.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.TestScore)
	assert.Equal(t, 80, *stored.TestScore)
	require.NotNil(t, stored.TestPassed)
	assert.True(t, *stored.TestPassed)
	assert.NotNil(t, stored.TestCompletedAt)
	assert.Equal(t, models.StatusTestPassed, stored.Status)
	assert.Equal(t, models.StepInterview, stored.CurrentStep)

	answers, err := f.repo.Answer().GetByApplication(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Len(t, answers, 5)

	published := f.publisher.GetPublishedEvents()
	types := make([]events.EventType, len(published))
	for i, e := range published {
		types[i] = e.Type
	}
	assert.Contains(t, types, events.EventTestSubmitted)
	assert.Contains(t, types, events.EventApplicationStatusChanged)
}

func TestSubmitTest_FailureRejectsAndArmsRetestLock(t *testing.T) {
	f := newTestServiceFixture(t)
	f.repo.questions = questionFixture(5)
	app := applicationFixture("user-1", models.StepTest, models.StatusNew)
	require.NoError(t, f.repo.Application().Create(context.Background(), app))

	_, err := f.svc.StartTest(context.Background(), "user-1")
	require.NoError(t, err)

	// 2 of 5 correct: 40%.
	require.NoError(t, f.svc.SelectAnswer(context.Background(), "user-1", "q1", "A"))
	require.NoError(t, f.svc.SelectAnswer(context.Background(), "user-1", "q2", "A"))

	result, err := f.svc.SubmitTest(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 40, result.Score)
	assert.False(t, result.Passed)

	stored, err := f.repo.Application().GetByID(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, stored.Status)
	assert.Equal(t, models.StepTest, stored.CurrentStep, "a failed attempt must not advance the wizard")

	var locked bool
	require.NoError(t, f.cache.Get(context.Background(), retestLockKey(app.ID), &locked))
	assert.True(t, locked)

	// The lock holds the candidate back from an immediate new attempt.
	f.svc.CloseSession("user-1")
	_, err = f.svc.StartTest(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrRetestLocked)
}

func TestSubmitTest_SecondSubmitIsNoOp(t *testing.T) {
	f := newTestServiceFixture(t)
	f.repo.questions = questionFixture(2)
	app := applicationFixture("user-1", models.StepTest, models.StatusNew)
	require.NoError(t, f.repo.Application().Create(context.Background(), app))

	_, err := f.svc.StartTest(context.Background(), "user-1")
	require.NoError(t, err)
	require.NoError(t, f.svc.SelectAnswer(context.Background(), "user-1", "q1", "A"))
	require.NoError(t, f.svc.SelectAnswer(context.Background(), "user-1", "q2", "A"))

	first, err := f.svc.SubmitTest(context.Background(), "user-1")
	require.NoError(t, err)

	second, err := f.svc.SubmitTest(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Passed, second.Passed)

	// Only the first submission writes the answer batch.
	answers, err := f.repo.Answer().GetByApplication(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Len(t, answers, 2)
}

func TestSubmitTest_PersistFailureKeepsResult(t *testing.T) {
	f := newTestServiceFixture(t)
	f.repo.questions = questionFixture(2)
	app := applicationFixture("user-1", models.StepTest, models.StatusNew)
	require.NoError(t, f.repo.Application().Create(context.Background(), app))

	_, err := f.svc.StartTest(context.Background(), "user-1")
	require.NoError(t, err)
	require.NoError(t, f.svc.SelectAnswer(context.Background(), "user-1", "q1", "A"))

	f.repo.failUpdates = true
	result, err := f.svc.SubmitTest(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 50, result.Score)
	assert.NotEmpty(t, result.PersistError)
}

func TestTimeout_PersistsRejection(t *testing.T) {
	f := newTestServiceFixture(t)
	f.repo.questions = questionFixture(2)
	app := applicationFixture("user-1", models.StepTest, models.StatusNew)
	require.NoError(t, f.repo.Application().Create(context.Background(), app))

	// Wire a short-countdown session through the same expiry path StartTest uses.
	session, err := NewTestSession(app.ID, f.repo.questions, 20*time.Millisecond, func(result *TestResult) {
		if err := f.svc.persistResult(context.Background(), app.ID, "user-1", result); err != nil {
			t.Errorf("persist timed-out result: %v", err)
		}
	})
	require.NoError(t, err)
	require.NoError(t, session.Start())
	f.svc.mu.Lock()
	f.svc.sessions["user-1"] = session
	f.svc.mu.Unlock()

	assert.Eventually(t, func() bool {
		stored, err := f.repo.Application().GetByID(context.Background(), app.ID)
		return err == nil && stored.TestCompletedAt != nil
	}, time.Second, 5*time.Millisecond)

	stored, err := f.repo.Application().GetByID(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, stored.Status)
	require.NotNil(t, stored.TestScore)
	assert.Equal(t, 0, *stored.TestScore)

	// A submit racing the expired timer sees the recorded result.
	result, err := f.svc.SubmitTest(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, result.TimedOut)
}

func TestLoadQuestions_CacheRoundTrip(t *testing.T) {
	f := newTestServiceFixture(t)
	f.repo.questions = questionFixture(3)

	first, err := f.svc.loadQuestions(context.Background())
	require.NoError(t, err)
	assert.Len(t, first, 3)

	// Later loads are served from the cache even if the bank changes.
	f.repo.questions = questionFixture(7)
	second, err := f.svc.loadQuestions(context.Background())
	require.NoError(t, err)
	assert.Len(t, second, 3)
}

func TestLoadQuestions_EmptyBank(t *testing.T) {
	f := newTestServiceFixture(t)

	_, err := f.svc.loadQuestions(context.Background())
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestSessionOps_WithoutSession(t *testing.T) {
	f := newTestServiceFixture(t)

	assert.ErrorIs(t, f.svc.SelectAnswer(context.Background(), "user-1", "q1", "A"), ErrTestSessionNotFound)
	_, err := f.svc.Advance(context.Background(), "user-1", 1)
	assert.ErrorIs(t, err, ErrTestSessionNotFound)
	_, err = f.svc.SubmitTest(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrTestSessionNotFound)
	_, err = f.svc.TimeRemaining(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrTestSessionNotFound)
}
