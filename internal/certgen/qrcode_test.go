package certgen

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncodeQRDeterministic(t *testing.T) {
	const url = "https://certificates.suretrust.org/verify/STUDENT_PYTH_G28_2024_0042"

	first, err := EncodeQR(url)
	if err != nil {
		t.Fatalf("EncodeQR: %v", err)
	}
	second, err := EncodeQR(url)
	if err != nil {
		t.Fatalf("EncodeQR: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Error("EncodeQR output differs between runs for identical input")
	}
	if !bytes.HasPrefix(first, []byte("\x89PNG")) {
		t.Error("EncodeQR output is not a PNG")
	}
}

func TestEncodeQRDataURL(t *testing.T) {
	got, err := EncodeQRDataURL("https://example.org/verify/X")
	if err != nil {
		t.Fatalf("EncodeQRDataURL: %v", err)
	}
	if !strings.HasPrefix(got, "data:image/png;base64,") {
		t.Errorf("unexpected data URL prefix: %.40s", got)
	}
}
