package validator

import (
	"fmt"

	"github.com/SURE-Trust/certificate-service/internal/models"
)

// BusinessValidator enforces the per-type required-field lists for
// certificate submissions. This is the single canonical schema; form-side
// question titles are reconciled by field normalization before validation.
type BusinessValidator struct {
	requiredByType map[models.CertificateType][]string
}

func NewBusinessValidator() *BusinessValidator {
	return &BusinessValidator{
		requiredByType: map[models.CertificateType][]string{
			models.TypeStudent: {
				"full_name", "email_address", "course_name",
				"batch_initials", "start_date", "end_date", "gpa",
			},
			models.TypeTrainer: {
				"full_name", "email_address", "course_name",
				"batch_initials", "training_hours", "start_date", "end_date",
			},
			models.TypeTrainee: {
				"full_name", "email_address", "course_name",
				"batch_initials", "training_type", "training_hours",
				"start_date", "end_date",
			},
		},
	}
}

// RequiredFields returns the canonical required-field list for a type.
func (bv *BusinessValidator) RequiredFields(t models.CertificateType) []string {
	return bv.requiredByType[t]
}

// ValidateSubmissionFields checks a normalized field map against the list
// for its certificate type. Unknown types fail outright.
func (bv *BusinessValidator) ValidateSubmissionFields(t models.CertificateType, fields map[string]any) ValidationErrors {
	required, ok := bv.requiredByType[t]
	if !ok {
		return ValidationErrors{{
			Field:   "certificate_type",
			Message: fmt.Sprintf("unknown certificate type %q", t),
		}}
	}

	var errs ValidationErrors
	for _, field := range required {
		v, present := fields[field]
		if !present || isEmptyValue(v) {
			errs = append(errs, FieldError{Field: field, Message: "is required"})
		}
	}
	return errs
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	default:
		return false
	}
}
