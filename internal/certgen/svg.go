package certgen

import (
	"fmt"
	"strings"
)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// ComposeSVG renders the lightweight shareable image counterpart of the
// PDF. SVG is plain text, so it is templated directly rather than drawn
// through a raster library.
func ComposeSVG(d Document) []byte {
	holder := d.HolderName
	if holder == "" {
		holder = "Certificate Holder"
	}
	course := d.CourseName
	if course == "" {
		course = "Unknown Course"
	}

	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="842" height="595" viewBox="0 0 842 595">`)
	b.WriteString(`<rect width="842" height="595" fill="#fdfdfa"/>`)
	b.WriteString(`<rect x="20" y="20" width="802" height="555" fill="none" stroke="#2c3e50" stroke-width="3"/>`)
	b.WriteString(`<rect x="30" y="30" width="782" height="535" fill="none" stroke="#2c3e50" stroke-width="1"/>`)
	fmt.Fprintf(&b, `<text x="421" y="120" text-anchor="middle" font-family="serif" font-size="36" font-weight="bold">SURE Trust</text>`)
	fmt.Fprintf(&b, `<text x="421" y="160" text-anchor="middle" font-family="serif" font-size="16">(Skill Upgradation for Rural - Youth Empowerment)</text>`)
	fmt.Fprintf(&b, `<text x="421" y="200" text-anchor="middle" font-family="serif" font-size="20">Certificate of Completion</text>`)
	fmt.Fprintf(&b, `<text x="421" y="280" text-anchor="middle" font-family="serif" font-size="34" font-weight="bold">%s</text>`, xmlEscaper.Replace(holder))
	fmt.Fprintf(&b, `<text x="421" y="330" text-anchor="middle" font-family="serif" font-size="18">%s</text>`, xmlEscaper.Replace(course))
	fmt.Fprintf(&b, `<text x="421" y="530" text-anchor="middle" font-family="sans-serif" font-size="12" fill="#333">Reference No: %s</text>`, xmlEscaper.Replace(d.RefNo))
	fmt.Fprintf(&b, `<text x="421" y="550" text-anchor="middle" font-family="sans-serif" font-size="10" fill="#333">Verify at: %s</text>`, xmlEscaper.Replace(d.VerificationURL))
	b.WriteString(`</svg>`)
	return []byte(b.String())
}
