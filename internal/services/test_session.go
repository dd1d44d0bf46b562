package services

import (
	"math"
	"sync"
	"time"

	"github.com/sestra24/recruitment-service/internal/models"
)

const (
	// PassingScore is the fixed percentage threshold for the qualification test.
	PassingScore = 70
	// TestDuration is the hard time limit for one attempt.
	TestDuration = 10 * time.Minute
)

type sessionState int

const (
	sessionReady sessionState = iota
	sessionInProgress
	sessionSubmitted
	sessionClosed
)

// SessionAnswer is one graded answer of a finished attempt.
type SessionAnswer struct {
	QuestionID string
	Selected   string
	Correct    bool
}

// TestResult is the immutable outcome of one attempt.
type TestResult struct {
	Score       int
	Passed      bool
	TimedOut    bool
	Answers     []SessionAnswer
	SubmittedAt time.Time
}

// TestSession owns the in-memory state of one timed attempt: the question
// cursor, the collected answers and the countdown. It is safe for concurrent
// use; the manual-submit / forced-timeout race is resolved first-writer-wins.
type TestSession struct {
	mu sync.Mutex

	applicationID string
	questions     []*models.TestQuestion
	duration      time.Duration

	state     sessionState
	answers   map[string]string
	cursor    int
	startedAt time.Time
	deadline  time.Time
	timer     *time.Timer
	result    *TestResult

	// onExpire receives the result when the countdown forces submission.
	// Called outside the session lock.
	onExpire func(*TestResult)
}

// NewTestSession creates a session over a non-empty, ordered question set.
func NewTestSession(applicationID string, questions []*models.TestQuestion, duration time.Duration, onExpire func(*TestResult)) (*TestSession, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	if duration <= 0 {
		duration = TestDuration
	}
	return &TestSession{
		applicationID: applicationID,
		questions:     questions,
		duration:      duration,
		answers:       make(map[string]string, len(questions)),
		onExpire:      onExpire,
	}, nil
}

func (s *TestSession) ApplicationID() string {
	return s.applicationID
}

// Start arms the countdown and moves the session to in-progress.
func (s *TestSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case sessionInProgress:
		return ErrTestAlreadyStarted
	case sessionSubmitted:
		return ErrTestAlreadySubmitted
	case sessionClosed:
		return ErrTestClosed
	}

	s.startedAt = time.Now()
	s.deadline = s.startedAt.Add(s.duration)
	s.state = sessionInProgress
	s.timer = time.AfterFunc(s.duration, s.expire)
	return nil
}

// SelectAnswer records or overwrites the candidate's choice for one question.
// Values outside the question's option set are rejected.
func (s *TestSession) SelectAnswer(questionID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireInProgress(); err != nil {
		return err
	}

	question := s.findQuestion(questionID)
	if question == nil {
		return ErrUnknownQuestion
	}
	if !question.HasOption(value) {
		return ErrAnswerNotInOptions
	}

	s.answers[questionID] = value
	return nil
}

// Advance moves the question cursor by delta, clamped to the question range.
func (s *TestSession) Advance(delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireInProgress(); err != nil {
		return s.cursor, err
	}

	next := s.cursor + delta
	if next < 0 {
		next = 0
	}
	if max := len(s.questions) - 1; next > max {
		next = max
	}
	s.cursor = next
	return s.cursor, nil
}

// Submit grades the attempt and makes the session terminal. Only the first
// invocation (manual or forced) commits; later calls get the existing result
// together with ErrTestAlreadySubmitted.
func (s *TestSession) Submit() (*TestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case sessionReady:
		return nil, ErrTestNotStarted
	case sessionSubmitted:
		return s.result, ErrTestAlreadySubmitted
	case sessionClosed:
		return nil, ErrTestClosed
	}

	return s.finalize(false), nil
}

// expire is the countdown callback; it submits at most once.
func (s *TestSession) expire() {
	s.mu.Lock()
	if s.state != sessionInProgress {
		s.mu.Unlock()
		return
	}
	result := s.finalize(true)
	hook := s.onExpire
	s.mu.Unlock()

	if hook != nil {
		hook(result)
	}
}

// finalize grades every question and stops the countdown. Caller holds the lock.
func (s *TestSession) finalize(timedOut bool) *TestResult {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	correct := 0
	answers := make([]SessionAnswer, len(s.questions))
	for i, q := range s.questions {
		selected := s.answers[q.ID] // empty string when unanswered
		isCorrect := selected == q.CorrectAnswer
		if isCorrect {
			correct++
		}
		answers[i] = SessionAnswer{
			QuestionID: q.ID,
			Selected:   selected,
			Correct:    isCorrect,
		}
	}

	score := int(math.Round(float64(correct) / float64(len(s.questions)) * 100))
	s.result = &TestResult{
		Score:       score,
		Passed:      score >= PassingScore,
		TimedOut:    timedOut,
		Answers:     answers,
		SubmittedAt: time.Now(),
	}
	s.state = sessionSubmitted
	return s.result
}

// Close cancels the countdown without producing a result. Safe on any state;
// a submitted session keeps its result.
func (s *TestSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.state == sessionInProgress || s.state == sessionReady {
		s.state = sessionClosed
	}
}

// TimeRemaining returns whole seconds left on the countdown. A session that
// has not started reports the full duration; a terminal session reports zero.
func (s *TestSession) TimeRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case sessionReady:
		return int(s.duration.Seconds())
	case sessionInProgress:
		remaining := time.Until(s.deadline)
		if remaining < 0 {
			return 0
		}
		return int(remaining.Seconds())
	default:
		return 0
	}
}

// Result returns the terminal outcome, or nil while the attempt is open.
func (s *TestSession) Result() *TestResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

func (s *TestSession) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *TestSession) QuestionCount() int {
	return len(s.questions)
}

// AnsweredCount returns how many questions currently have a recorded answer.
func (s *TestSession) AnsweredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

// SelectedAnswer returns the recorded choice for a question, if any.
func (s *TestSession) SelectedAnswer(questionID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.answers[questionID]
	return value, ok
}

func (s *TestSession) requireInProgress() error {
	switch s.state {
	case sessionReady:
		return ErrTestNotStarted
	case sessionSubmitted:
		return ErrTestAlreadySubmitted
	case sessionClosed:
		return ErrTestClosed
	}
	return nil
}

func (s *TestSession) findQuestion(id string) *models.TestQuestion {
	for _, q := range s.questions {
		if q.ID == id {
			return q
		}
	}
	return nil
}
