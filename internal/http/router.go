// Package http provides the child- and parent-facing HTTP API.
// Session resolution is an external collaborator consumed through the
// ChildSessions and ParentSessions interfaces.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"child-speech-pipeline-service/internal/app"
	"child-speech-pipeline-service/internal/models"
	"child-speech-pipeline-service/internal/notify"
	"child-speech-pipeline-service/internal/pipeline"
	"child-speech-pipeline-service/internal/store"
)

// maxUploadBytes bounds one voice recording upload.
const maxUploadBytes = 16 << 20

// SpeechPipeline ingests one recording and returns the synchronous
// transcript/match result.
type SpeechPipeline interface {
	Process(ctx context.Context, child models.Child, audio []byte) (pipeline.Result, error)
}

// Store is the persistence surface the HTTP layer consumes.
type Store interface {
	CreateKeyword(ctx context.Context, parentID int64, keyword, audioPath string) (int64, error)
	DeleteKeyword(ctx context.Context, id, parentID int64) error
	RecordingsForChild(ctx context.Context, childID int64, limit int) ([]models.Recording, error)
	ParentsOfChild(ctx context.Context, childID int64) ([]int64, error)
}

// ChildSessions resolves the authenticated child of a request.
type ChildSessions interface {
	CurrentChild(r *http.Request) (models.Child, error)
}

// ParentSessions resolves the authenticated parent of a request.
type ParentSessions interface {
	CurrentParent(r *http.Request) (models.Parent, error)
}

type server struct {
	app            *app.Application
	pipeline       SpeechPipeline
	store          Store
	hub            *notify.Hub
	childSessions  ChildSessions
	parentSessions ParentSessions
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(
	application *app.Application,
	p SpeechPipeline,
	st Store,
	hub *notify.Hub,
	childSessions ChildSessions,
	parentSessions ParentSessions,
) http.Handler {
	s := &server{
		app:            application,
		pipeline:       p,
		store:          st,
		hub:            hub,
		childSessions:  childSessions,
		parentSessions: parentSessions,
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/child/me", s.handleChildMe)
		r.Post("/child/speech", s.handleChildSpeech)

		r.Get("/parents/stream", s.handleParentStream)
		r.Post("/parents/keywords", s.handleCreateKeyword)
		r.Delete("/parents/keywords/{keywordID}", s.handleDeleteKeyword)
		r.Get("/parents/children/{childID}/recordings", s.handleChildRecordings)
	})

	return r
}

type matchPayload struct {
	KeywordID int64  `json:"keywordId"`
	Keyword   string `json:"keyword"`
	AudioData string `json:"audioData,omitempty"`
}

type speechResponse struct {
	Transcript string        `json:"transcript,omitempty"`
	Match      *matchPayload `json:"match,omitempty"`
}

func (s *server) handleChildMe(w http.ResponseWriter, r *http.Request) {
	child, err := s.childSessions.CurrentChild(r)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": child.Name})
}

func (s *server) handleChildSpeech(w http.ResponseWriter, r *http.Request) {
	child, err := s.childSessions.CurrentChild(r)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, _, err := r.FormFile("data")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing audio field 'data'"})
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable audio upload"})
		return
	}

	res, err := s.pipeline.Process(r.Context(), child, audio)
	if err != nil {
		s.app.Logger.Error().Err(err).Int64("childId", child.ID).Msg("Speech ingestion failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "processing failed"})
		return
	}

	resp := speechResponse{Transcript: res.Transcript}
	if res.Match != nil {
		resp.Match = &matchPayload{
			KeywordID: res.Match.KeywordID,
			Keyword:   res.Match.Keyword,
			AudioData: res.Match.AudioData,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type createKeywordRequest struct {
	Keyword   string `json:"keyword"`
	AudioPath string `json:"audioPath"`
}

func (s *server) handleCreateKeyword(w http.ResponseWriter, r *http.Request) {
	parent, err := s.parentSessions.CurrentParent(r)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var req createKeywordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Keyword == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "keyword must not be empty"})
		return
	}

	id, err := s.store.CreateKeyword(r.Context(), parent.ID, req.Keyword, req.AudioPath)
	if err != nil {
		s.app.Logger.Error().Err(err).Int64("parentId", parent.ID).Msg("Keyword create failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "keyword create failed"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *server) handleDeleteKeyword(w http.ResponseWriter, r *http.Request) {
	parent, err := s.parentSessions.CurrentParent(r)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "keywordID"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch err := s.store.DeleteKeyword(r.Context(), id, parent.ID); {
	case errors.Is(err, store.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
	case err != nil:
		s.app.Logger.Error().Err(err).Int64("keywordId", id).Msg("Keyword delete failed")
		w.WriteHeader(http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

type recordingPayload struct {
	ID         int64  `json:"id"`
	Transcript string `json:"transcript"`
	RecordedAt string `json:"recordedAt"`
}

func (s *server) handleChildRecordings(w http.ResponseWriter, r *http.Request) {
	parent, err := s.parentSessions.CurrentParent(r)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	childID, err := strconv.ParseInt(chi.URLParam(r, "childID"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	parents, err := s.store.ParentsOfChild(r.Context(), childID)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	linked := false
	for _, pid := range parents {
		if pid == parent.ID {
			linked = true
			break
		}
	}
	if !linked {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	recs, err := s.store.RecordingsForChild(r.Context(), childID, 100)
	if err != nil {
		s.app.Logger.Error().Err(err).Int64("childId", childID).Msg("Recording listing failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	payload := make([]recordingPayload, 0, len(recs))
	for _, rec := range recs {
		payload = append(payload, recordingPayload{
			ID:         rec.ID,
			Transcript: rec.Transcript,
			RecordedAt: rec.RecordedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
