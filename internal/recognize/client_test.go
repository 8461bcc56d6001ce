package recognize

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	return New(url, "test-key", "zh-TW", 44100, 5*time.Second)
}

func TestTranscribe_FirstQualifyingRecordWins(t *testing.T) {
	body := `{"result":[]}
{"result":[{"alternative":[{"transcript":"hello world please respond","confidence":0.92}],"final":true}],"result_index":0}
{"result":[{"alternative":[{"transcript":"should never be reached"}]}]}
`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "audio/x-flac; rate=44100" {
			t.Errorf("unexpected content type %q", ct)
		}
		if got := r.URL.Query().Get("lang"); got != "zh-TW" {
			t.Errorf("unexpected lang %q", got)
		}
		w.Write([]byte(body))
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).Transcribe(context.Background(), []byte("flac"))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if got != "hello world please respond" {
		t.Errorf("transcript = %q, want later record's first alternative", got)
	}
}

func TestTranscribe_SkipsBlankLinesAndEmptyResults(t *testing.T) {
	body := "\n\n{\"result\":[]}\n\n{\"result\":[{\"alternative\":[{\"transcript\":\"late\"}]}]}\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).Transcribe(context.Background(), nil)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if got != "late" {
		t.Errorf("transcript = %q, want %q", got, "late")
	}
}

func TestTranscribe_NoSpeechIsNotAnError(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"only empty results", "{\"result\":[]}\n{\"result\":[]}\n"},
		{"only blank lines", "\n\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := newTestClient(srv.URL).Transcribe(context.Background(), nil)
			if err != nil {
				t.Fatalf("expected no error for silence, got %v", err)
			}
			if got != "" {
				t.Errorf("expected empty transcript, got %q", got)
			}
		})
	}
}

func TestTranscribe_MalformedRecordIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{\"result\":[]}\nnot-json\n"))
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).Transcribe(context.Background(), nil); err == nil {
		t.Fatal("expected error for malformed record")
	}
}

func TestTranscribe_NonSuccessStatusIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).Transcribe(context.Background(), nil); err == nil {
		t.Fatal("expected error for non-success status")
	}
}

func TestTranscribe_TimeoutIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(srv.URL, "", "zh-TW", 44100, 50*time.Millisecond)
	if _, err := c.Transcribe(context.Background(), nil); err == nil {
		t.Fatal("expected error for timeout")
	}
}

func TestTranscribe_EmptyAlternativeSkipped(t *testing.T) {
	body := "{\"result\":[{\"alternative\":[]}]}\n{\"result\":[{\"alternative\":[{\"transcript\":\"ok\"}]}]}\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).Transcribe(context.Background(), nil)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if got != "ok" {
		t.Errorf("transcript = %q, want %q", got, "ok")
	}
}
