package certgen

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveTemplate(t *testing.T) {
	tests := []struct {
		name   string
		course string
		want   string
	}{
		{name: "python course", course: "Python Programming", want: "G28 Python.jpg"},
		{name: "java lowercase", course: "core java", want: "G12 Java.jpg"},
		{name: "cloud computing full phrase", course: "Cloud Computing", want: "CC.jpg"},
		{name: "vlsi", course: "VLSI Design", want: "G10 VLSI.jpg"},
		{name: "testing keyword", course: "Software Testing & Tools", want: "ST&T.jpg"},
		{name: "batch code", course: "G28 cohort", want: "G28 Python.jpg"},
		{name: "unknown course", course: "Basket Weaving", want: DefaultTemplate},
		{name: "empty course", course: "", want: DefaultTemplate},
		{name: "whitespace only", course: "   ", want: DefaultTemplate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveTemplate(tt.course)
			if got.Filename != tt.want {
				t.Errorf("ResolveTemplate(%q) = %q, want %q", tt.course, got.Filename, tt.want)
			}
			if got.Exists {
				t.Errorf("ResolveTemplate(%q).Exists = true before CheckExists", tt.course)
			}

			// Pure function: repeated calls agree.
			if again := ResolveTemplate(tt.course); again != got {
				t.Errorf("ResolveTemplate(%q) not deterministic: %v vs %v", tt.course, got, again)
			}
		})
	}
}

func TestCheckExists(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "G28 Python.jpg"), []byte("jpg"), 0o644); err != nil {
		t.Fatal(err)
	}

	found := CheckExists(ResolveTemplate("Python"), dir)
	if !found.Exists {
		t.Error("expected Exists=true for template present on disk")
	}

	missing := CheckExists(ResolveTemplate("Robotics"), dir)
	if missing.Exists {
		t.Error("expected Exists=false for absent template")
	}
}
