package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/sestra24/recruitment-service/internal/models"
)

type EventType string

const (
	EventApplicationCreated       EventType = "application.created"
	EventApplicationStepCompleted EventType = "application.step_completed"
	EventApplicationStatusChanged EventType = "application.status_changed"
	EventTestSubmitted            EventType = "test.submitted"
)

// ApplicationEvent is the versioned envelope published for every recruitment
// lifecycle change.
type ApplicationEvent struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

type StepCompletedEvent struct {
	ApplicationID string `json:"application_id"`
	UserID        string `json:"user_id"`
	Step          int    `json:"step"`
	NextStep      int    `json:"next_step"`
}

type StatusChangedEvent struct {
	ApplicationID string                   `json:"application_id"`
	UserID        string                   `json:"user_id"`
	From          models.ApplicationStatus `json:"from"`
	To            models.ApplicationStatus `json:"to"`
}

type TestSubmittedEvent struct {
	ApplicationID string `json:"application_id"`
	Score         int    `json:"score"`
	Passed        bool   `json:"passed"`
	TimedOut      bool   `json:"timed_out"`
}

// NewApplicationEvent wraps a payload in the standard envelope.
func NewApplicationEvent(eventType EventType, data interface{}) *ApplicationEvent {
	return &ApplicationEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    "recruitment-service",
		Version:   "1.0",
		Timestamp: time.Now(),
		Data:      data,
	}
}
