package certgen

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// qrImageSize is the rendered PNG edge in pixels. The PDF scales it down to
// the footer box, so it only needs enough pixels to stay crisp in print.
const qrImageSize = 256

// EncodeQR renders a verification URL as a PNG at high error correction.
// Output is byte-identical for identical input.
func EncodeQR(verificationURL string) ([]byte, error) {
	png, err := qrcode.Encode(verificationURL, qrcode.High, qrImageSize)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	return png, nil
}

// EncodeQRDataURL returns the same PNG as a base64 data URL for embedding in
// HTML responses and emails.
func EncodeQRDataURL(verificationURL string) (string, error) {
	png, err := EncodeQR(verificationURL)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
