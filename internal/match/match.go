// Package match selects the keyword a transcript triggers.
package match

import (
	"strings"

	"child-speech-pipeline-service/internal/models"
)

// Match scans candidates in registration order and returns the last record
// whose keyword text is contained in the transcript. Last match wins:
// parents may register overlapping keywords, and the most recently
// registered one takes precedence. The transcript is compared exactly as
// returned by the recognizer, with no case or whitespace normalization.
func Match(transcript string, candidates []models.KeywordRecord) (models.KeywordRecord, bool) {
	var found models.KeywordRecord
	ok := false
	for _, c := range candidates {
		if c.Keyword == "" {
			continue
		}
		if strings.Contains(transcript, c.Keyword) {
			found = c
			ok = true
		}
	}
	return found, ok
}
