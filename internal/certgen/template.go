package certgen

import (
	"os"
	"path/filepath"
	"strings"
)

// TemplateInfo describes the background asset chosen for a certificate.
// Exists is false until CheckExists confirms the file on disk; callers must
// not assume the asset is present just because a keyword matched.
type TemplateInfo struct {
	Filename string
	Keyword  string
	Exists   bool
}

// DefaultTemplate is returned when no keyword matches or the course is empty.
const DefaultTemplate = "CC.jpg"

type templateRule struct {
	keyword  string
	filename string
}

// templateRules is scanned in order; the first keyword contained in the
// course string wins. Specific phrases sort before their abbreviations so
// "CLOUD COMPUTING" is not shadowed by a stray "CC" substring match.
var templateRules = []templateRule{
	{"PYTHON", "G28 Python.jpg"},
	{"JAVA", "G12 Java.jpg"},
	{"SQL", "G12 SQL.jpg"},

	{"CLOUD COMPUTING", "CC.jpg"},
	{"DATA STRUCTURES", "DSA.jpg"},
	{"ALGORITHMS", "DSA.jpg"},
	{"DSA", "DSA.jpg"},
	{"ROBOTICS", "ROBOTICS.jpg"},
	{"ANDROID", "AAD.jpg"},
	{"AAD", "AAD.jpg"},
	{"AUTOCAD", "Autocad.jpg"},
	{"SAP FICO", "SAP FICO.jpg"},
	{"FICO", "SAP FICO.jpg"},
	{"SOFTWARE TESTING", "ST&T.jpg"},
	{"ST&T", "ST&T.jpg"},
	{"TESTING", "ST&T.jpg"},

	{"VLSI", "G10 VLSI.jpg"},
	{"CYBER SECURITY", "G6 CS.jpg"},
	{"COMPUTER SCIENCE", "G6 CS.jpg"},
	{"EMBEDDED SYSTEMS", "G7 ES.jpg"},
	{"EMBEDDED", "G7 ES.jpg"},
	{"DATA SCIENCE", "G8 DS.jpg"},

	{"G28", "G28 Python.jpg"},
	{"G16", "G16 VLSI.jpg"},
	{"G15", "G15 VLSI.jpg"},
	{"G14", "G14 VLSI.jpg"},
	{"G13", "G13 VLSI.jpg"},
	{"G12", "G12 Java.jpg"},
	{"G10", "G10 VLSI.jpg"},
	{"G8", "G8 DS.jpg"},
	{"G7", "G7 ES.jpg"},
	{"G6", "G6 CS.jpg"},
	{"CC", "CC.jpg"},
	{"CS", "G6 CS.jpg"},
	{"ES", "G7 ES.jpg"},
	{"DS", "G8 DS.jpg"},
	{"DATA", "G8 DS.jpg"},
}

// ResolveTemplate maps a free-text course/domain name to a template asset.
// Pure function: same input always yields the same TemplateInfo, and the
// Exists flag is always false here.
func ResolveTemplate(courseName string) TemplateInfo {
	upper := strings.ToUpper(strings.TrimSpace(courseName))
	if upper == "" {
		return TemplateInfo{Filename: DefaultTemplate, Keyword: "DEFAULT"}
	}

	for _, rule := range templateRules {
		if strings.Contains(upper, rule.keyword) {
			return TemplateInfo{Filename: rule.filename, Keyword: rule.keyword}
		}
	}

	return TemplateInfo{Filename: DefaultTemplate, Keyword: "DEFAULT"}
}

// CheckExists stats the template file under dir and returns a copy of info
// with the Exists flag settled.
func CheckExists(info TemplateInfo, dir string) TemplateInfo {
	if dir == "" {
		return info
	}
	if _, err := os.Stat(filepath.Join(dir, info.Filename)); err == nil {
		info.Exists = true
	}
	return info
}
