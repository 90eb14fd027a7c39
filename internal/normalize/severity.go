package normalize

import (
	"strings"
	"unicode"

	"github.com/mr1hm/go-disaster-monitor/internal/models"
)

// Severity maps a raw severity, urgency or priority string onto the
// three-level scale. Matching is case-insensitive; unknown values are Low.
func Severity(s string) models.Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical", "high":
		return models.SeverityHigh
	case "medium":
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// TitleCase turns "building_collapse" into "Building Collapse". Only the first
// letter of each word is touched.
func TitleCase(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	out := []rune(s)
	atWordStart := true
	for i, r := range out {
		isWord := unicode.IsLetter(r) || unicode.IsDigit(r)
		if isWord && atWordStart {
			out[i] = unicode.ToUpper(r)
		}
		atWordStart = !isWord
	}
	return string(out)
}
