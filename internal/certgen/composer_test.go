package certgen

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testDocument() Document {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return Document{
		HolderName:      "Asha Rao",
		CourseName:      "Python Programming",
		CertificateType: "student",
		RefNo:           "STUDENT_PYTH_G28_2024_0042",
		VerificationURL: "https://certificates.suretrust.org/verify/STUDENT_PYTH_G28_2024_0042",
		StartDate:       &start,
		EndDate:         &end,
		GPA:             "8.5",
		Template:        TemplateInfo{Filename: "G28 Python.jpg", Keyword: "PYTHON"},
	}
}

func TestComposePDFMissingTemplate(t *testing.T) {
	c := NewComposer(t.TempDir())

	out, err := c.ComposePDF(testDocument())
	if err != nil {
		t.Fatalf("ComposePDF: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Errorf("output does not start with %%PDF header")
	}
}

func TestComposePDFQRFailureDegrades(t *testing.T) {
	c := NewComposer(t.TempDir())
	c.encodeQR = func(string) ([]byte, error) {
		return nil, errors.New("encoder down")
	}

	out, err := c.ComposePDF(testDocument())
	if err != nil {
		t.Fatalf("ComposePDF should not fail on QR error, got: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Errorf("degraded output is not a PDF")
	}
}

func TestComposePDFMissingDates(t *testing.T) {
	c := NewComposer(t.TempDir())
	d := testDocument()
	d.StartDate = nil
	d.EndDate = nil

	if _, err := c.ComposePDF(d); err != nil {
		t.Fatalf("ComposePDF without dates: %v", err)
	}
}

func TestComposeSVG(t *testing.T) {
	d := testDocument()
	d.HolderName = `Asha <Rao> & "Co"`

	out := string(ComposeSVG(d))
	if !bytes.Contains([]byte(out), []byte("Asha &lt;Rao&gt; &amp; &quot;Co&quot;")) {
		t.Error("holder name not XML-escaped in SVG output")
	}
	if !bytes.Contains([]byte(out), []byte(d.RefNo)) {
		t.Error("reference number missing from SVG output")
	}
}

func TestArtifactStore(t *testing.T) {
	root := t.TempDir()
	store, err := NewArtifactStore(root)
	if err != nil {
		t.Fatalf("NewArtifactStore: %v", err)
	}

	pdfPath, imgPath, err := store.Save("REF_1", []byte("%PDF-1.4"), []byte("<svg/>"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if pdfPath != filepath.Join("PDF", "REF_1.pdf") {
		t.Errorf("pdfPath = %q", pdfPath)
	}
	if _, err := os.Stat(filepath.Join(root, imgPath)); err != nil {
		t.Errorf("image artifact missing: %v", err)
	}

	store.Remove("REF_1")
	if _, err := os.Stat(filepath.Join(root, pdfPath)); !os.IsNotExist(err) {
		t.Error("pdf artifact still present after Remove")
	}

	if _, err := store.Open("../outside"); err == nil {
		t.Error("Open accepted a path escaping the store root")
	}
}
