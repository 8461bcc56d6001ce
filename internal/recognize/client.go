// Package recognize sends transcoded audio to the external speech
// recognition endpoint and extracts the best transcript from its
// newline-delimited JSON response.
package recognize

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxRecordSize bounds a single response record. The recognizer emits
// short JSON lines; anything larger is a protocol violation.
const maxRecordSize = 1 << 20

// Client talks to a speech-api style recognizer over plain HTTP.
// One request is made per recording; failures are never retried.
type Client struct {
	endpoint     string
	apiKey       string
	language     string
	sampleRateHz int
	httpClient   *http.Client
}

// New returns a recognition client. timeout bounds the whole request;
// expiry is treated identically to a non-success status.
func New(endpoint, apiKey, language string, sampleRateHz int, timeout time.Duration) *Client {
	return &Client{
		endpoint:     endpoint,
		apiKey:       apiKey,
		language:     language,
		sampleRateHz: sampleRateHz,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// record mirrors one line of the recognizer response.
type record struct {
	Result []struct {
		Alternative []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternative"`
	} `json:"result"`
}

// Transcribe posts the encoded audio and returns the transcript of the
// first response record carrying a non-empty result. An empty return with
// a nil error means no recognizable speech, which is a normal outcome.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("recognizer endpoint: %w", err)
	}
	q := u.Query()
	q.Set("output", "json")
	q.Set("lang", c.language)
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("build recognizer request: %w", err)
	}
	req.Header.Set("Content-Type", fmt.Sprintf("audio/x-flac; rate=%d", c.sampleRateHz))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("recognizer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("recognizer responded with status %d", resp.StatusCode)
	}

	// The body is a sequence of newline-delimited JSON records. Scan them
	// lazily and short-circuit on the first qualifying record.
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return "", fmt.Errorf("decode recognizer record: %w", err)
		}
		if len(rec.Result) == 0 {
			continue
		}
		alts := rec.Result[0].Alternative
		if len(alts) == 0 {
			continue
		}
		return alts[0].Transcript, nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read recognizer response: %w", err)
	}

	// No record qualified: silence or unintelligible audio.
	return "", nil
}
