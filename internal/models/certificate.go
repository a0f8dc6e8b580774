package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CertificateType string

const (
	TypeStudent CertificateType = "student"
	TypeTrainer CertificateType = "trainer"
	TypeTrainee CertificateType = "trainee"
)

type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionGenerated SubmissionStatus = "generated"
	SubmissionFailed    SubmissionStatus = "failed"
)

// Submission is a normalized form intake record. Immutable after creation
// except for the status transition once a certificate is derived from it.
type Submission struct {
	ID              uint             `json:"id" gorm:"primaryKey"`
	CertificateType CertificateType  `json:"certificate_type" gorm:"not null;size:20;index" validate:"required,oneof=student trainer trainee"`
	FullName        string           `json:"full_name" gorm:"not null;size:255" validate:"required,min=2,max=255"`
	Email           string           `json:"email" gorm:"not null;size:255;index" validate:"required,email"`
	Phone           *string          `json:"phone" gorm:"size:30"`
	CourseName      string           `json:"course_name" gorm:"size:255"`
	BatchInitials   string           `json:"batch_initials" gorm:"size:50"`
	BatchName       *string          `json:"batch_name" gorm:"size:255"`
	StartDate       *time.Time       `json:"start_date"`
	EndDate         *time.Time       `json:"end_date"`
	GPA             *float64         `json:"gpa" validate:"omitempty,min=0,max=10"`
	AttendancePct   *float64         `json:"attendance_percentage" validate:"omitempty,min=0,max=100"`
	AssessmentScore *float64         `json:"assessment_score" validate:"omitempty,min=0,max=100"`
	TrainingHours   *float64         `json:"training_hours"`
	TrainingType    *string          `json:"training_type" gorm:"size:100"`
	Status          SubmissionStatus `json:"status" gorm:"default:pending;size:20;index"`

	// Free-form fields keyed by normalized field name.
	ExtraFields datatypes.JSONMap `json:"extra_fields,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Submission) TableName() string {
	return "form_submissions"
}

// Certificate is the issued artifact's metadata. RefNo and VerificationURL
// are immutable once issued; VerificationCount only ever grows.
type Certificate struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	RefNo           string          `json:"ref_no" gorm:"uniqueIndex;not null;size:100"`
	VerificationURL string          `json:"verification_url" gorm:"uniqueIndex;not null;size:500"`
	CertificateType CertificateType `json:"certificate_type" gorm:"not null;size:20;index"`

	HolderName string     `json:"holder_name" gorm:"not null;size:255;index"`
	Course     string     `json:"course" gorm:"size:255"`
	Batch      string     `json:"batch" gorm:"size:50"`
	StartDate  *time.Time `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
	GPA        *float64   `json:"gpa"`
	IssueDate  time.Time  `json:"issue_date" gorm:"not null"`

	TemplateFile string `json:"template_file" gorm:"size:255"`
	PDFPath      string `json:"pdf_path" gorm:"size:500"`
	ImagePath    string `json:"image_path" gorm:"size:500"`

	IsActive          bool       `json:"is_active" gorm:"default:true;index"`
	VerificationCount int64      `json:"verification_count" gorm:"default:0"`
	LastVerifiedAt    *time.Time `json:"last_verified_at"`

	// Nullable ownership until claimed.
	UserID       *uint `json:"user_id" gorm:"index"`
	SubmissionID uint  `json:"submission_id" gorm:"uniqueIndex"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Certificate) TableName() string {
	return "certificates"
}

type VerificationStatus string

const (
	VerificationSuccess  VerificationStatus = "success"
	VerificationNotFound VerificationStatus = "not_found"
)

// VerificationLog is an append-only audit row, one per verification attempt.
type VerificationLog struct {
	ID            uint               `json:"id" gorm:"primaryKey"`
	CertificateID *uint              `json:"certificate_id" gorm:"index"`
	RefNo         string             `json:"ref_no" gorm:"not null;size:100;index"`
	IPAddress     *string            `json:"ip_address" gorm:"size:45"`
	UserAgent     *string            `json:"user_agent" gorm:"size:500"`
	Status        VerificationStatus `json:"status" gorm:"not null;size:20"`
	CreatedAt     time.Time          `json:"created_at"`
}

func (VerificationLog) TableName() string {
	return "verification_logs"
}
