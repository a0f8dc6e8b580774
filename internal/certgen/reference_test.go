package certgen

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestNewRefNo(t *testing.T) {
	now := time.Date(2024, 7, 15, 10, 30, 0, 0, time.UTC)

	refNo := NewRefNo("student", "Python Programming", "G28", now)

	pattern := regexp.MustCompile(`^STUDENT_[A-Z0-9]{1,4}_G28_2024_\d{4}$`)
	if !pattern.MatchString(refNo) {
		t.Errorf("refNo %q does not match expected pattern", refNo)
	}
	if !strings.HasPrefix(refNo, "STUDENT_PYTH_") {
		t.Errorf("refNo %q: course prefix should be PYTH", refNo)
	}
}

func TestNewRefNoFallbacks(t *testing.T) {
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		certType   string
		course     string
		batch      string
		wantPrefix string
	}{
		{name: "empty type", certType: "", course: "Java", batch: "G12", wantPrefix: "COMPLETION_JAVA_G12_2025_"},
		{name: "empty course", certType: "trainer", course: "", batch: "G7", wantPrefix: "TRAINER_GEN_G7_2025_"},
		{name: "empty batch", certType: "trainee", course: "VLSI", batch: "", wantPrefix: "TRAINEE_VLSI_GEN_2025_"},
		{name: "punctuation stripped", certType: "student", course: "C++ & Go!", batch: "g-28", wantPrefix: "STUDENT_CGO_G28_2025_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewRefNo(tt.certType, tt.course, tt.batch, now)
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("NewRefNo = %q, want prefix %q", got, tt.wantPrefix)
			}
		})
	}
}

func TestVerificationURL(t *testing.T) {
	got := VerificationURL("https://certificates.suretrust.org/verify/", "STUDENT_PYTH_G28_2024_0042")
	want := "https://certificates.suretrust.org/verify/STUDENT_PYTH_G28_2024_0042"
	if got != want {
		t.Errorf("VerificationURL = %q, want %q", got, want)
	}

	// Missing trailing slash is tolerated.
	if got := VerificationURL("https://example.org/verify", "X"); got != "https://example.org/verify/X" {
		t.Errorf("VerificationURL without slash = %q", got)
	}
}
