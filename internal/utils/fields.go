package utils

import (
	"strings"
	"unicode"
)

// fieldAliases maps canonical field names to the form-side question titles
// seen in the wild. Matching is case-insensitive on trimmed keys; the first
// non-empty alias wins.
var fieldAliases = map[string][]string{
	"timestamp":             {"Timestamp"},
	"full_name":             {"FULL NAME", "Full Name", "Name"},
	"email_address":         {"Email Address", "Email address", "Email"},
	"title":                 {"Title"},
	"phone":                 {"Phone Number", "Phone"},
	"date_of_birth":         {"DATE OF BIRTH", "Date of Birth"},
	"gender":                {"GENDER", "Gender"},
	"course_name":           {"Course/Domain", "Course Name", "Course"},
	"course_domain":         {"Course Domain"},
	"batch_initials":        {"Batch"},
	"batch_name":            {"Batch Name"},
	"gpa":                   {"GPA"},
	"attendance_percentage": {"Attendance Percentage", "Attendance %"},
	"assessment_score":      {"Assessment Score"},
	"certificate_type":      {"Choose Your Role", "Role"},
	"start_date":            {"Start Date", "Course Start Date"},
	"end_date":              {"End Date", "Course End Date"},
	"training_start_date":   {"Training Start Date"},
	"training_end_date":     {"Training End Date"},
	"training_hours":        {"Training Hours"},
	"training_type":         {"Training Type"},
	"organization":          {"Organization"},
	"position":              {"Position", "Designation"},
}

// NormalizeFieldName maps a free-text form question title to its canonical
// field name. Unknown titles fall back to the documented rule: lowercase,
// runs of non-alphanumerics collapsed to a single underscore.
func NormalizeFieldName(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	for canonical, aliases := range fieldAliases {
		if trimmed == canonical {
			return canonical
		}
		for _, alias := range aliases {
			if trimmed == strings.ToLower(strings.TrimSpace(alias)) {
				return canonical
			}
		}
	}
	return fallbackFieldName(trimmed)
}

func fallbackFieldName(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// NormalizeEmail lowercases and trims an address so lookups and the unique
// index agree on one canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeFields rewrites a raw form payload so every key is canonical.
// When both a raw and a canonical key carry a value, the existing canonical
// value is kept.
func NormalizeFields(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		norm := NormalizeFieldName(k)
		if _, taken := out[norm]; taken && norm != strings.TrimSpace(k) {
			continue
		}
		out[norm] = v
	}
	return out
}
