package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionCaseStudy    QuestionType = "case_study"
)

// TestQuestion is one item of the nurse qualification test. The question set
// is read-only at attempt time; rows are created through the admin import.
type TestQuestion struct {
	ID            string         `json:"id" gorm:"primaryKey;size:36"`
	QuestionText  string         `json:"question_text" gorm:"type:text;not null" validate:"required,min=1"`
	Options       datatypes.JSON `json:"options" gorm:"type:jsonb;not null"`
	CorrectAnswer string         `json:"correct_answer" gorm:"not null;size:500" validate:"required"`
	IsCaseStudy   bool           `json:"is_case_study" gorm:"default:false"`
	QuestionType  QuestionType   `json:"question_type" gorm:"default:single_choice;size:30"`
	OrderIndex    int            `json:"order_index" gorm:"not null;uniqueIndex"`
	CreatedAt     time.Time      `json:"created_at"`
}

func (TestQuestion) TableName() string {
	return "nurse_test_questions"
}

// OptionValues decodes the stored JSON option list.
func (q *TestQuestion) OptionValues() ([]string, error) {
	var options []string
	if err := json.Unmarshal(q.Options, &options); err != nil {
		return nil, err
	}
	return options, nil
}

// HasOption reports whether value is one of the question's options.
func (q *TestQuestion) HasOption(value string) bool {
	options, err := q.OptionValues()
	if err != nil {
		return false
	}
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}

// NewQuestionOptions encodes an option list for storage.
func NewQuestionOptions(options []string) (datatypes.JSON, error) {
	raw, err := json.Marshal(options)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
