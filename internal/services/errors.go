package services

import (
	"errors"
	"fmt"
	"time"

	apperrors "github.com/sestra24/recruitment-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Application / wizard errors
	ErrApplicationNotFound     = errors.New("application not found")
	ErrApplicationExists       = errors.New("application already exists for this user")
	ErrApplicationTerminal     = errors.New("application is in a terminal status")
	ErrInvalidStep             = errors.New("invalid wizard step")
	ErrStepNotReached          = errors.New("wizard has not reached this step yet")
	ErrDocumentsIncomplete     = errors.New("all four documents must be uploaded")
	ErrInvalidStatusTransition = errors.New("invalid application status transition")

	// Test errors
	ErrQuestionsUnavailable  = errors.New("test questions could not be loaded")
	ErrNoQuestions           = errors.New("question set is empty")
	ErrTestNotStarted        = errors.New("test has not been started")
	ErrTestAlreadyStarted    = errors.New("test already started")
	ErrTestAlreadySubmitted  = errors.New("test already submitted")
	ErrTestClosed            = errors.New("test session closed")
	ErrTestSessionNotFound   = errors.New("no active test session")
	ErrUnknownQuestion       = errors.New("question is not part of this test")
	ErrAnswerNotInOptions    = errors.New("selected value is not one of the question's options")
	ErrRetestLocked          = errors.New("retest is locked for 24 hours after a failed attempt")

	// Document errors
	ErrFileTooLarge    = errors.New("file exceeds the 10MB limit")
	ErrFileTypeInvalid = errors.New("file type must be PDF, JPG or PNG")
	ErrUnknownDocument = errors.New("unknown document kind")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

// RetestLockedError wraps ErrRetestLocked with the remaining wait so the
// transport layer can tell the candidate when to come back.
type RetestLockedError struct {
	RetryAfter time.Duration
}

func (e *RetestLockedError) Error() string {
	return fmt.Sprintf("retest is locked, retry in %s", e.RetryAfter.Round(time.Second))
}

func (e *RetestLockedError) Unwrap() error { return ErrRetestLocked }

// ===== ERROR HELPERS =====

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrApplicationNotFound) ||
		errors.Is(err, ErrTestSessionNotFound)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}

// IsConflict checks if error represents a resource conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrApplicationExists) ||
		errors.Is(err, ErrTestAlreadyStarted) ||
		errors.Is(err, ErrTestAlreadySubmitted) ||
		errors.Is(err, ErrRetestLocked)
}
