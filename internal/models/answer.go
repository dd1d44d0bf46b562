package models

import "time"

// TestAnswer is a candidate's recorded choice for one question of one test
// attempt. Rows are created in a single batch at submission time and are never
// updated afterwards. SelectedAnswer is empty when the countdown expired
// before the candidate answered the question.
type TestAnswer struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	ApplicationID  string    `json:"application_id" gorm:"not null;size:36;index"`
	QuestionID     string    `json:"question_id" gorm:"not null;size:36;index"`
	SelectedAnswer string    `json:"selected_answer" gorm:"size:500"`
	IsCorrect      bool      `json:"is_correct" gorm:"not null"`
	AnsweredAt     time.Time `json:"answered_at"`

	// Relations
	Question TestQuestion `json:"question" gorm:"foreignKey:QuestionID"`
}

func (TestAnswer) TableName() string {
	return "nurse_test_answers"
}
