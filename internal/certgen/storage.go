package certgen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ArtifactStore persists rendered certificates under the two-directory
// layout: <root>/PDF/<code>.pdf and <root>/IMG/<code>.svg.
type ArtifactStore struct {
	root string
}

func NewArtifactStore(root string) (*ArtifactStore, error) {
	for _, sub := range []string{"PDF", "IMG"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create artifact dir %s: %w", sub, err)
		}
	}
	return &ArtifactStore{root: root}, nil
}

// Save writes both artifacts and returns their relative paths. On any write
// failure it removes whatever was written so a half-generated certificate
// never looks valid on disk.
func (s *ArtifactStore) Save(refNo string, pdf, svg []byte) (pdfPath, imgPath string, err error) {
	pdfPath = filepath.Join("PDF", refNo+".pdf")
	imgPath = filepath.Join("IMG", refNo+".svg")

	if err = os.WriteFile(filepath.Join(s.root, pdfPath), pdf, 0o644); err != nil {
		return "", "", fmt.Errorf("write pdf artifact: %w", err)
	}
	if err = os.WriteFile(filepath.Join(s.root, imgPath), svg, 0o644); err != nil {
		s.Remove(refNo)
		return "", "", fmt.Errorf("write image artifact: %w", err)
	}
	return pdfPath, imgPath, nil
}

// Remove deletes both artifacts for a reference code, ignoring files that
// are already gone.
func (s *ArtifactStore) Remove(refNo string) {
	os.Remove(filepath.Join(s.root, "PDF", refNo+".pdf"))
	os.Remove(filepath.Join(s.root, "IMG", refNo+".svg"))
}

// Open returns the absolute path of a stored artifact given its relative
// path, refusing anything that escapes the artifact root.
func (s *ArtifactStore) Open(relPath string) (string, error) {
	clean := filepath.Clean(relPath)
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("artifact path escapes store root: %s", relPath)
	}
	abs := filepath.Join(s.root, clean)
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("artifact not found: %w", err)
	}
	return abs, nil
}
