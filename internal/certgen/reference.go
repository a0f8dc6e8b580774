package certgen

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// NewRefNo derives a human-readable reference code from submission metadata:
// TYPE_COURSE_BATCH_YEAR_SUFFIX, where the course is clipped to four
// sanitized characters and the suffix is time-derived. Uniqueness against
// the store is the caller's job; on collision, call again for a fresh
// suffix.
func NewRefNo(certType, courseName, batch string, now time.Time) string {
	t := strings.ToUpper(strings.TrimSpace(certType))
	if t == "" {
		t = "COMPLETION"
	}

	course := clip(sanitize(courseName), 4)
	if course == "" {
		course = "GEN"
	}

	b := sanitize(batch)
	if b == "" {
		b = "GEN"
	}

	suffix := now.UnixMilli() % 10000
	return fmt.Sprintf("%s_%s_%s_%d_%04d", t, course, b, now.Year(), suffix)
}

// VerificationURL joins the configured base path with a reference code.
// The base is expected to end with a slash.
func VerificationURL(base, refNo string) string {
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + refNo
}

// sanitize strips everything but letters and digits and uppercases the rest.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
