package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ApplicationStatus string

const (
	StatusNew               ApplicationStatus = "new"
	StatusDocumentsVerified ApplicationStatus = "documents_verified"
	StatusTestPassed        ApplicationStatus = "test_passed"
	StatusInterview         ApplicationStatus = "interview"
	StatusActivated         ApplicationStatus = "activated"
	StatusRejected          ApplicationStatus = "rejected"
)

// statusRank orders the forward path of the application state machine.
// Rejected sits outside the ranking: it is absorbing.
var statusRank = map[ApplicationStatus]int{
	StatusNew:               0,
	StatusDocumentsVerified: 1,
	StatusTestPassed:        2,
	StatusInterview:         3,
	StatusActivated:         4,
}

// CanTransitionTo reports whether the status machine permits moving to next.
// Transitions are forward-monotonic; any non-terminal status may move to
// rejected, and nothing leaves rejected or activated.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	if s == StatusRejected || s == StatusActivated {
		return false
	}
	if next == StatusRejected {
		return true
	}
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

func (s ApplicationStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusActivated
}

type Specialization string

const (
	SpecInjections     Specialization = "injections"
	SpecIVs            Specialization = "ivs"
	SpecWoundCare      Specialization = "wound_care"
	SpecElderlyCare    Specialization = "elderly_care"
	SpecPediatric      Specialization = "pediatric"
	SpecPostoperative  Specialization = "postoperative"
	SpecPalliative     Specialization = "palliative"
	SpecRehabilitation Specialization = "rehabilitation"
)

var Specializations = []Specialization{
	SpecInjections,
	SpecIVs,
	SpecWoundCare,
	SpecElderlyCare,
	SpecPediatric,
	SpecPostoperative,
	SpecPalliative,
	SpecRehabilitation,
}

// Cities a candidate may apply from.
var Cities = []string{
	"Київ",
	"Харків",
	"Одеса",
	"Дніпро",
	"Запоріжжя",
	"Львів",
	"Вінниця",
	"Полтава",
}

// Wizard steps of the recruitment funnel.
const (
	StepQuestionnaire = 1
	StepDocuments     = 2
	StepTest          = 3
	StepInterview     = 4
)

// NurseApplication is the long-lived record for one candidate. One row per
// user_id; the wizard merges step payloads into it as the candidate advances.
type NurseApplication struct {
	ID     string `json:"id" gorm:"primaryKey;size:36"`
	UserID string `json:"user_id" gorm:"uniqueIndex;not null;size:255"`

	// Questionnaire
	FullName             string         `json:"full_name" gorm:"not null;size:100"`
	Phone                string         `json:"phone" gorm:"not null;size:20"`
	PhoneVerified        bool           `json:"phone_verified" gorm:"default:false"`
	Email                string         `json:"email" gorm:"not null;size:255"`
	City                 string         `json:"city" gorm:"not null;size:100"`
	Districts            datatypes.JSON `json:"districts" gorm:"type:jsonb"`
	HasTransport         bool           `json:"has_transport" gorm:"default:false"`
	ExperienceYears      int            `json:"experience_years" gorm:"default:0"`
	Specializations      datatypes.JSON `json:"specializations" gorm:"type:jsonb"`
	NightShiftsAvailable bool           `json:"night_shifts_available" gorm:"default:false"`

	// Documents
	DiplomaURL           *string    `json:"diploma_url" gorm:"size:500"`
	MedicalBookURL       *string    `json:"medical_book_url" gorm:"size:500"`
	PassportURL          *string    `json:"passport_url" gorm:"size:500"`
	PhotoURL             *string    `json:"photo_url" gorm:"size:500"`
	DocumentsSubmittedAt *time.Time `json:"documents_submitted_at"`

	// Qualification test
	TestStartedAt   *time.Time `json:"test_started_at"`
	TestCompletedAt *time.Time `json:"test_completed_at"`
	TestScore       *int       `json:"test_score"`
	TestPassed      *bool      `json:"test_passed"`

	// Interview
	InterviewScheduledAt *time.Time `json:"interview_scheduled_at"`
	InterviewNotes       *string    `json:"interview_notes" gorm:"type:text"`

	CurrentStep int               `json:"current_step" gorm:"default:1"`
	Status      ApplicationStatus `json:"status" gorm:"default:new;index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (NurseApplication) TableName() string {
	return "nurse_applications"
}

// SpecializationValues decodes the stored specialization list.
func (a *NurseApplication) SpecializationValues() []Specialization {
	var specs []Specialization
	if len(a.Specializations) == 0 {
		return specs
	}
	_ = json.Unmarshal(a.Specializations, &specs)
	return specs
}

// DistrictValues decodes the stored district list.
func (a *NurseApplication) DistrictValues() []string {
	var districts []string
	if len(a.Districts) == 0 {
		return districts
	}
	_ = json.Unmarshal(a.Districts, &districts)
	return districts
}

// DocumentsComplete reports whether all four document references are present.
func (a *NurseApplication) DocumentsComplete() bool {
	for _, u := range []*string{a.DiplomaURL, a.MedicalBookURL, a.PassportURL, a.PhotoURL} {
		if u == nil || *u == "" {
			return false
		}
	}
	return true
}

// DocumentKind names one of the four uploadable documents.
type DocumentKind string

const (
	DocumentDiploma     DocumentKind = "diploma"
	DocumentMedicalBook DocumentKind = "medical_book"
	DocumentPassport    DocumentKind = "passport"
	DocumentPhoto       DocumentKind = "photo"
)

var DocumentKinds = []DocumentKind{
	DocumentDiploma,
	DocumentMedicalBook,
	DocumentPassport,
	DocumentPhoto,
}

func (k DocumentKind) Valid() bool {
	for _, dk := range DocumentKinds {
		if dk == k {
			return true
		}
	}
	return false
}
