package match

import (
	"testing"

	"child-speech-pipeline-service/internal/models"
)

func kw(id int64, text string) models.KeywordRecord {
	return models.KeywordRecord{ID: id, ParentID: 1, Keyword: text, AudioPath: "/clips/k.mp3"}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		candidates []models.KeywordRecord
		wantID     int64
		wantOK     bool
	}{
		{
			name:       "single match",
			transcript: "hello world please respond",
			candidates: []models.KeywordRecord{kw(1, "respond")},
			wantID:     1,
			wantOK:     true,
		},
		{
			name:       "last match wins on overlap",
			transcript: "hi there friend",
			candidates: []models.KeywordRecord{kw(1, "hi"), kw(2, "hi there")},
			wantID:     2,
			wantOK:     true,
		},
		{
			name:       "last match wins regardless of length",
			transcript: "hi there friend",
			candidates: []models.KeywordRecord{kw(1, "hi there"), kw(2, "hi")},
			wantID:     2,
			wantOK:     true,
		},
		{
			name:       "no candidates",
			transcript: "anything",
			candidates: nil,
			wantOK:     false,
		},
		{
			name:       "no substring match",
			transcript: "good morning",
			candidates: []models.KeywordRecord{kw(1, "night"), kw(2, "evening")},
			wantOK:     false,
		},
		{
			name:       "case is not normalized",
			transcript: "Hello",
			candidates: []models.KeywordRecord{kw(1, "hello")},
			wantOK:     false,
		},
		{
			name:       "whitespace is preserved",
			transcript: "say  please",
			candidates: []models.KeywordRecord{kw(1, "say please")},
			wantOK:     false,
		},
		{
			name:       "later non-matching candidate does not shadow earlier match",
			transcript: "tell me a story",
			candidates: []models.KeywordRecord{kw(1, "story"), kw(2, "song")},
			wantID:     1,
			wantOK:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Match(tt.transcript, tt.candidates)
			if ok != tt.wantOK {
				t.Fatalf("Match ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.ID != tt.wantID {
				t.Errorf("Match returned keyword id %d, want %d", got.ID, tt.wantID)
			}
		})
	}
}
