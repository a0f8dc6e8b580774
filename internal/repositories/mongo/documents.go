package mongo

import (
	"time"

	"github.com/SURE-Trust/certificate-service/internal/models"
)

// The mongo backend keeps its own document shapes so the gorm models stay
// free of bson concerns. Numeric ids come from the counters collection to
// preserve the uint-id contract of the repository interfaces.

type submissionDoc struct {
	ID              uint                    `bson:"_id"`
	CertificateType models.CertificateType  `bson:"certificate_type"`
	FullName        string                  `bson:"full_name"`
	Email           string                  `bson:"email"`
	Phone           *string                 `bson:"phone,omitempty"`
	CourseName      string                  `bson:"course_name"`
	BatchInitials   string                  `bson:"batch_initials"`
	BatchName       *string                 `bson:"batch_name,omitempty"`
	StartDate       *time.Time              `bson:"start_date,omitempty"`
	EndDate         *time.Time              `bson:"end_date,omitempty"`
	GPA             *float64                `bson:"gpa,omitempty"`
	AttendancePct   *float64                `bson:"attendance_percentage,omitempty"`
	AssessmentScore *float64                `bson:"assessment_score,omitempty"`
	TrainingHours   *float64                `bson:"training_hours,omitempty"`
	TrainingType    *string                 `bson:"training_type,omitempty"`
	Status          models.SubmissionStatus `bson:"status"`
	ExtraFields     map[string]interface{}  `bson:"extra_fields,omitempty"`
	CreatedAt       time.Time               `bson:"created_at"`
	UpdatedAt       time.Time               `bson:"updated_at"`
}

type certificateDoc struct {
	ID                uint                   `bson:"_id"`
	RefNo             string                 `bson:"ref_no"`
	VerificationURL   string                 `bson:"verification_url"`
	CertificateType   models.CertificateType `bson:"certificate_type"`
	HolderName        string                 `bson:"holder_name"`
	Course            string                 `bson:"course"`
	Batch             string                 `bson:"batch"`
	StartDate         *time.Time             `bson:"start_date,omitempty"`
	EndDate           *time.Time             `bson:"end_date,omitempty"`
	GPA               *float64               `bson:"gpa,omitempty"`
	IssueDate         time.Time              `bson:"issue_date"`
	TemplateFile      string                 `bson:"template_file"`
	PDFPath           string                 `bson:"pdf_path"`
	ImagePath         string                 `bson:"image_path"`
	IsActive          bool                   `bson:"is_active"`
	VerificationCount int64                  `bson:"verification_count"`
	LastVerifiedAt    *time.Time             `bson:"last_verified_at,omitempty"`
	UserID            *uint                  `bson:"user_id,omitempty"`
	SubmissionID      uint                   `bson:"submission_id"`
	CreatedAt         time.Time              `bson:"created_at"`
	UpdatedAt         time.Time              `bson:"updated_at"`
	DeletedAt         *time.Time             `bson:"deleted_at,omitempty"`
}

type verificationLogDoc struct {
	ID            uint                      `bson:"_id"`
	CertificateID *uint                     `bson:"certificate_id,omitempty"`
	RefNo         string                    `bson:"ref_no"`
	IPAddress     *string                   `bson:"ip_address,omitempty"`
	UserAgent     *string                   `bson:"user_agent,omitempty"`
	Status        models.VerificationStatus `bson:"status"`
	CreatedAt     time.Time                 `bson:"created_at"`
}

func toCertificateDoc(c *models.Certificate) *certificateDoc {
	return &certificateDoc{
		ID:                c.ID,
		RefNo:             c.RefNo,
		VerificationURL:   c.VerificationURL,
		CertificateType:   c.CertificateType,
		HolderName:        c.HolderName,
		Course:            c.Course,
		Batch:             c.Batch,
		StartDate:         c.StartDate,
		EndDate:           c.EndDate,
		GPA:               c.GPA,
		IssueDate:         c.IssueDate,
		TemplateFile:      c.TemplateFile,
		PDFPath:           c.PDFPath,
		ImagePath:         c.ImagePath,
		IsActive:          c.IsActive,
		VerificationCount: c.VerificationCount,
		LastVerifiedAt:    c.LastVerifiedAt,
		UserID:            c.UserID,
		SubmissionID:      c.SubmissionID,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func (d *certificateDoc) toModel() *models.Certificate {
	return &models.Certificate{
		ID:                d.ID,
		RefNo:             d.RefNo,
		VerificationURL:   d.VerificationURL,
		CertificateType:   d.CertificateType,
		HolderName:        d.HolderName,
		Course:            d.Course,
		Batch:             d.Batch,
		StartDate:         d.StartDate,
		EndDate:           d.EndDate,
		GPA:               d.GPA,
		IssueDate:         d.IssueDate,
		TemplateFile:      d.TemplateFile,
		PDFPath:           d.PDFPath,
		ImagePath:         d.ImagePath,
		IsActive:          d.IsActive,
		VerificationCount: d.VerificationCount,
		LastVerifiedAt:    d.LastVerifiedAt,
		UserID:            d.UserID,
		SubmissionID:      d.SubmissionID,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

func toSubmissionDoc(s *models.Submission) *submissionDoc {
	return &submissionDoc{
		ID:              s.ID,
		CertificateType: s.CertificateType,
		FullName:        s.FullName,
		Email:           s.Email,
		Phone:           s.Phone,
		CourseName:      s.CourseName,
		BatchInitials:   s.BatchInitials,
		BatchName:       s.BatchName,
		StartDate:       s.StartDate,
		EndDate:         s.EndDate,
		GPA:             s.GPA,
		AttendancePct:   s.AttendancePct,
		AssessmentScore: s.AssessmentScore,
		TrainingHours:   s.TrainingHours,
		TrainingType:    s.TrainingType,
		Status:          s.Status,
		ExtraFields:     s.ExtraFields,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func (d *submissionDoc) toModel() *models.Submission {
	return &models.Submission{
		ID:              d.ID,
		CertificateType: d.CertificateType,
		FullName:        d.FullName,
		Email:           d.Email,
		Phone:           d.Phone,
		CourseName:      d.CourseName,
		BatchInitials:   d.BatchInitials,
		BatchName:       d.BatchName,
		StartDate:       d.StartDate,
		EndDate:         d.EndDate,
		GPA:             d.GPA,
		AttendancePct:   d.AttendancePct,
		AssessmentScore: d.AssessmentScore,
		TrainingHours:   d.TrainingHours,
		TrainingType:    d.TrainingType,
		Status:          d.Status,
		ExtraFields:     d.ExtraFields,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func toVerificationLogDoc(v *models.VerificationLog) *verificationLogDoc {
	return &verificationLogDoc{
		ID:            v.ID,
		CertificateID: v.CertificateID,
		RefNo:         v.RefNo,
		IPAddress:     v.IPAddress,
		UserAgent:     v.UserAgent,
		Status:        v.Status,
		CreatedAt:     v.CreatedAt,
	}
}

func (d *verificationLogDoc) toModel() *models.VerificationLog {
	return &models.VerificationLog{
		ID:            d.ID,
		CertificateID: d.CertificateID,
		RefNo:         d.RefNo,
		IPAddress:     d.IPAddress,
		UserAgent:     d.UserAgent,
		Status:        d.Status,
		CreatedAt:     d.CreatedAt,
	}
}
