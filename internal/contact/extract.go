// Package contact resolves agent contact details, caching results per
// agent and locality.
package contact

import (
	"regexp"
	"strings"

	"github.com/sells-group/shortsale-cli/internal/model"
)

// Go's regexp has no lookbehind, so digit boundaries are matched
// explicitly and the number itself captured in group 1.
var (
	phoneRe = regexp.MustCompile(`(?:^|[^0-9])(\(\d{3}\)\s*\d{3}[-.\s]\d{4}|\d{3}[-.\s]\d{3}[-.\s]\d{4})(?:[^0-9]|$)`)
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

	// Scraped pages frequently yield asset filenames that look like
	// addresses (logo@2x.png and the like).
	imageExtRe = regexp.MustCompile(`(?i)\.(?:png|jpe?g|gif|svg|webp)$`)

	nonDigitRe = regexp.MustCompile(`\D`)
)

// NormalizePhone reduces raw input to digits and formats ten-digit US
// numbers as xxx-xxx-xxxx. Anything else returns "".
func NormalizePhone(raw string) string {
	digits := nonDigitRe.ReplaceAllString(raw, "")
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return ""
	}
	return digits[0:3] + "-" + digits[3:6] + "-" + digits[6:]
}

// ExtractPhone returns the first normalized phone number found in text,
// or "" when none matches.
func ExtractPhone(text string) string {
	m := phoneRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return NormalizePhone(m[1])
}

// ExtractEmail returns the first plausible email address found in text,
// discarding image filenames. Returns "" when none matches.
func ExtractEmail(text string) string {
	for _, m := range emailRe.FindAllString(text, 10) {
		if imageExtRe.MatchString(m) {
			continue
		}
		return strings.TrimSpace(m)
	}
	return ""
}

// Extract pulls the first phone and email out of a page of text.
func Extract(text string) model.Contact {
	return model.Contact{
		Phone: ExtractPhone(text),
		Email: ExtractEmail(text),
	}
}
