// Package transcode invokes the external ffmpeg binary to convert uploaded
// audio into the formats required downstream: FLAC at a fixed sample rate
// for the recognition service, MP3 for permanent storage.
package transcode

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Format is a transcode target.
type Format string

const (
	// FormatFLAC is the lossless interchange format sent to the recognizer.
	FormatFLAC Format = "flac"
	// FormatMP3 is the distributable format kept in permanent storage.
	FormatMP3 Format = "mp3"
)

// Transcoder runs the codec binary once per target format.
// A failed invocation is fatal for the current recording and is never
// retried; re-upload is the correction path.
type Transcoder struct {
	binPath      string
	sampleRateHz int
	timeout      time.Duration
}

// New returns a Transcoder. binPath must be the absolute path of the codec
// binary; it is not resolved against PATH.
func New(binPath string, sampleRateHz int, timeout time.Duration) *Transcoder {
	return &Transcoder{
		binPath:      binPath,
		sampleRateHz: sampleRateHz,
		timeout:      timeout,
	}
}

// Transcode converts inputPath into outputPath in the given format.
// Success means zero exit code and a readable output file. Context expiry
// kills the subprocess and surfaces as the same fatal error.
func (t *Transcoder) Transcode(ctx context.Context, inputPath, outputPath string, f Format) error {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	args := []string{"-y", "-i", inputPath}
	if f == FormatFLAC {
		// The recognition service requires 44.1 kHz input.
		args = append(args, "-ar", strconv.Itoa(t.sampleRateHz))
	}
	args = append(args, outputPath)

	start := time.Now()
	cmd := exec.CommandContext(ctx, t.binPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("codec %s run (%s): %w: %s",
			t.binPath, f, err, strings.TrimSpace(stderr.String()))
	}
	if _, err := os.Stat(outputPath); err != nil {
		return fmt.Errorf("codec produced no %s output: %w", f, err)
	}

	log.Debug().
		Str("format", string(f)).
		Str("output", outputPath).
		Dur("duration", time.Since(start)).
		Msg("Transcode completed")
	return nil
}
