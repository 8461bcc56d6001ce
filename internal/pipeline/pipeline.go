// Package pipeline orchestrates the ingestion of one voice recording:
// transcode, transcribe, keyword match, persist, notify. The transcript
// and match are returned synchronously; persistence and notification run
// on a detached goroutine after the reply.
package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"child-speech-pipeline-service/internal/match"
	"child-speech-pipeline-service/internal/models"
	"child-speech-pipeline-service/internal/notify"
	"child-speech-pipeline-service/internal/observability/logging"
	"child-speech-pipeline-service/internal/observability/metrics"
	"child-speech-pipeline-service/internal/transcode"
	"child-speech-pipeline-service/internal/workspace"
)

const (
	rawName  = "raw.ogg"
	flacName = "audio.flac"
)

// Workspace is the scoped temp storage for one run.
type Workspace interface {
	Join(name string) string
	WriteFile(name string, data []byte) (string, error)
	Release() error
}

// WorkspaceManager hands out workspaces.
type WorkspaceManager interface {
	Acquire() (Workspace, error)
}

// Transcoder converts audio between formats via the external codec.
type Transcoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string, f transcode.Format) error
}

// Recognizer obtains a transcript. Empty transcript with nil error means
// no recognizable speech.
type Recognizer interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Store is the persistence surface the pipeline consumes.
type Store interface {
	ParentsOfChild(ctx context.Context, childID int64) ([]int64, error)
	KeywordsForParents(ctx context.Context, parentIDs []int64) ([]models.KeywordRecord, error)
	SaveRecording(ctx context.Context, rec models.Recording) (int64, error)
}

// Notifier fans out an event to parent sessions.
type Notifier interface {
	Notify(ctx context.Context, parentIDs []int64, event string)
}

// EventPublisher publishes best-effort recording events.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Match is the keyword payload of a synchronous reply.
type Match struct {
	KeywordID int64
	Keyword   string
	AudioData string // data URI of the response clip; empty if unreadable
}

// Result is what the ingesting caller receives synchronously. A zero
// Result (empty transcript) means no recognizable speech.
type Result struct {
	Transcript string
	Match      *Match
}

// Deps wires the pipeline's collaborators.
type Deps struct {
	Workspaces WorkspaceManager
	Transcoder Transcoder
	Recognizer Recognizer
	Store      Store
	Notifier   Notifier
	Publisher  EventPublisher
	UploadDir  string
}

// Pipeline runs one instance per process; individual recordings are
// processed concurrently with no shared state beyond the notifier hub.
type Pipeline struct {
	deps    Deps
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

// New constructs a Pipeline.
func New(d Deps) *Pipeline {
	return &Pipeline{
		deps:    d,
		metrics: metrics.DefaultMetrics,
	}
}

// FSWorkspaces adapts a concrete workspace.Manager to WorkspaceManager.
func FSWorkspaces(m *workspace.Manager) WorkspaceManager {
	return fsWorkspaces{m: m}
}

type fsWorkspaces struct {
	m *workspace.Manager
}

func (f fsWorkspaces) Acquire() (Workspace, error) {
	return f.m.Acquire()
}

// Process ingests one recording. It returns once the transcript and
// keyword match are known; re-encoding, persistence and notification
// continue on a detached goroutine. A disconnecting caller does not
// abort the run: the context is detached from request cancellation.
func (p *Pipeline) Process(ctx context.Context, child models.Child, audio []byte) (Result, error) {
	ctx = context.WithoutCancel(ctx)
	recordedAt := time.Now().UTC()
	runID := uuid.NewString()
	logger := logging.WithRecording(runID, child.ID)

	p.metrics.RecordingsTotal.Inc()

	ws, err := p.deps.Workspaces.Acquire()
	if err != nil {
		p.metrics.RecordStageFailure(string(StageWorkspace))
		return Result{}, stageErr(StageWorkspace, err)
	}

	// The workspace is released on every exit path: here for the
	// synchronous phase, or by the detached tail once ownership moves.
	detached := false
	defer func() {
		if !detached {
			if err := ws.Release(); err != nil {
				logger.Error().Err(err).Msg("Workspace release failed")
			}
		}
	}()

	rawPath, err := ws.WriteFile(rawName, audio)
	if err != nil {
		p.metrics.RecordStageFailure(string(StageWorkspace))
		return Result{}, stageErr(StageWorkspace, err)
	}

	flacPath := ws.Join(flacName)
	start := time.Now()
	if err := p.deps.Transcoder.Transcode(ctx, rawPath, flacPath, transcode.FormatFLAC); err != nil {
		p.metrics.RecordStageFailure(string(StageTranscode))
		logger.Error().Err(err).Str("stage", string(StageTranscode)).Msg("Pipeline failed")
		return Result{}, stageErr(StageTranscode, err)
	}
	p.metrics.RecordTranscode(string(transcode.FormatFLAC), time.Since(start))

	flacBytes, err := os.ReadFile(flacPath)
	if err != nil {
		p.metrics.RecordStageFailure(string(StageTranscode))
		return Result{}, stageErr(StageTranscode, err)
	}

	start = time.Now()
	transcript, err := p.deps.Recognizer.Transcribe(ctx, flacBytes)
	if err != nil {
		p.metrics.RecordStageFailure(string(StageRecognize))
		logger.Error().Err(err).Str("stage", string(StageRecognize)).Msg("Pipeline failed")
		return Result{}, stageErr(StageRecognize, err)
	}
	p.metrics.RecognitionDuration.Observe(time.Since(start).Seconds())

	if transcript == "" {
		// Normal terminal outcome. The raw upload dies with the
		// workspace; the store and notifier are never touched.
		p.metrics.NoSpeechTotal.Inc()
		logger.Info().Msg("No recognizable speech")
		return Result{}, nil
	}

	logger.Info().Str("transcript", transcript).Msg("Transcript ready")

	parentIDs, err := p.deps.Store.ParentsOfChild(ctx, child.ID)
	if err != nil {
		p.metrics.RecordStageFailure(string(StageMatch))
		return Result{}, stageErr(StageMatch, err)
	}
	keywords, err := p.deps.Store.KeywordsForParents(ctx, parentIDs)
	if err != nil {
		p.metrics.RecordStageFailure(string(StageMatch))
		return Result{}, stageErr(StageMatch, err)
	}

	result := Result{Transcript: transcript}
	if kw, ok := match.Match(transcript, keywords); ok {
		p.metrics.MatchesTotal.Inc()
		result.Match = &Match{KeywordID: kw.ID, Keyword: kw.Keyword}
		if data, err := os.ReadFile(kw.AudioPath); err != nil {
			// Best-effort: the match stands, the clip field is omitted.
			logger.Warn().Err(err).Int64("keywordId", kw.ID).Msg("Keyword clip unreadable")
		} else {
			result.Match.AudioData = dataURI(kw.AudioPath, data)
		}
		logger.Info().Int64("keywordId", kw.ID).Str("keyword", kw.Keyword).Msg("Keyword matched")
	}

	// Respond fast: transcription latency is what the caller waits on.
	// Storage re-encode, persistence and notification happen off the
	// critical path; their errors terminate in logging only.
	detached = true
	p.wg.Add(1)
	go p.finish(ws, logger, child, parentIDs, transcript, result.Match, recordedAt)

	return result, nil
}

// finish runs the asynchronous tail of a pipeline: re-encode the storage
// copy, persist the recording, publish the event, notify the parents.
// Errors here terminate in logging; the caller's reply is long gone.
func (p *Pipeline) finish(ws Workspace, logger zerolog.Logger, child models.Child, parentIDs []int64, transcript string, m *Match, recordedAt time.Time) {
	defer p.wg.Done()
	defer func() {
		if err := ws.Release(); err != nil {
			logger.Error().Err(err).Msg("Workspace release failed")
		}
	}()

	ctx := context.Background()

	if err := os.MkdirAll(p.deps.UploadDir, 0o755); err != nil {
		p.metrics.PersistFailures.Inc()
		logger.Error().Err(err).Str("stage", string(StagePersist)).Msg("Upload dir unavailable, recording lost")
		return
	}

	storagePath := filepath.Join(p.deps.UploadDir, uuid.NewString()+".mp3")
	start := time.Now()
	if err := p.deps.Transcoder.Transcode(ctx, ws.Join(rawName), storagePath, transcode.FormatMP3); err != nil {
		p.metrics.PersistFailures.Inc()
		logger.Error().Err(err).Str("stage", string(StagePersist)).Msg("Storage re-encode failed, recording lost")
		return
	}
	p.metrics.RecordTranscode(string(transcode.FormatMP3), time.Since(start))

	rec := models.Recording{
		ChildID:     child.ID,
		Transcript:  transcript,
		StoragePath: storagePath,
		RecordedAt:  recordedAt,
	}
	id, err := p.deps.Store.SaveRecording(ctx, rec)
	if err != nil {
		// The storage copy may now be orphaned on disk. Accepted and
		// logged; there is no transactional guarantee here.
		p.metrics.PersistFailures.Inc()
		logger.Error().
			Err(err).
			Str("stage", string(StagePersist)).
			Str("storagePath", storagePath).
			Msg("Persist failed, recording lost, no notification sent")
		return
	}

	event := models.RecordingEvent{
		EventType:   "recording.persisted",
		RecordingID: id,
		ChildID:     child.ID,
		Timestamp:   time.Now().UnixMilli(),
	}
	if m != nil {
		event.KeywordID = m.KeywordID
	}
	if err := p.deps.Publisher.Publish(ctx, strconv.FormatInt(child.ID, 10), event); err != nil {
		logger.Warn().Err(err).Msg("Recording event not published")
	}

	p.deps.Notifier.Notify(ctx, parentIDs, notify.EventRecordingUpdated)

	logger.Info().
		Int64("recordingId", id).
		Str("storagePath", storagePath).
		Ints64("parentIds", parentIDs).
		Msg("Recording persisted")
}

// clipMediaTypes covers the formats keyword clips are stored in. The
// system mime table is not guaranteed to know audio extensions.
var clipMediaTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".wav":  "audio/wav",
}

func dataURI(path string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(path))
	mediaType := clipMediaTypes[ext]
	if mediaType == "" {
		mediaType = mime.TypeByExtension(ext)
	}
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	return fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(data))
}

// Wait blocks until all detached tails have finished. Used by graceful
// shutdown and tests.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}
