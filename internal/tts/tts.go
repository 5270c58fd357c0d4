// Package tts turns narration sentences into audio clips.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hyobinnSeo/VoiceSync/internal/playable"
	"github.com/hyobinnSeo/VoiceSync/internal/segment"
	"github.com/hyobinnSeo/VoiceSync/internal/worker"
)

// MaxAudioBytes caps a single synthesized clip.
const MaxAudioBytes = 16 << 20

var ErrEmptyAudio = errors.New("speech service returned no audio")

// Synthesizer produces audio for one sentence.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, speed float64) (segment.Payload, error)
}

// Request is the body sent to the speech service.
type Request struct {
	Text  string  `json:"text"`
	Voice string  `json:"voice,omitempty"`
	Speed float64 `json:"speed,omitempty"`
}

// Client calls an HTTP speech service that answers with raw audio bytes.
type Client struct {
	URL   string
	Voice string
	HTTP  *http.Client
}

// NewClient returns a client for url.
func NewClient(url, voice string, timeout time.Duration) *Client {
	return &Client{URL: url, Voice: voice, HTTP: &http.Client{Timeout: timeout}}
}

// Synthesize posts text and returns the audio it gets back.
func (c *Client) Synthesize(ctx context.Context, text string, speed float64) (segment.Payload, error) {
	body, err := json.Marshal(Request{Text: text, Voice: c.Voice, Speed: speed})
	if err != nil {
		return segment.Payload{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return segment.Payload{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/*")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return segment.Payload{}, fmt.Errorf("speech request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxAudioBytes+1))
	if err != nil {
		return segment.Payload{}, fmt.Errorf("read speech response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return segment.Payload{}, fmt.Errorf("speech service status %d: %s", resp.StatusCode, strings.TrimSpace(string(data[:min(len(data), 200)])))
	}
	if len(data) > MaxAudioBytes {
		return segment.Payload{}, fmt.Errorf("speech clip exceeds %d bytes", MaxAudioBytes)
	}
	if len(data) == 0 {
		return segment.Payload{}, ErrEmptyAudio
	}

	mimeType := "audio/mpeg"
	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil && strings.HasPrefix(mt, "audio/") {
		mimeType = mt
	}
	return segment.Payload{Data: data, MimeType: mimeType}, nil
}

// SynthesizeAll fills in audio for normalized entries that have no payload
// yet, running requests on the pool. Only the first playable.MaxSegments
// entries are considered since the builder keeps no more than that. Entries
// that fail keep an empty payload and are later dropped as unplayable. It
// returns how many clips were produced.
func SynthesizeAll(ctx context.Context, pool *worker.Dispatcher, s Synthesizer, entries []segment.Entry, speed float64, log logrus.FieldLogger) int {
	var targets []int
	for i, e := range entries[:min(len(entries), playable.MaxSegments)] {
		if e.Audio.Empty() {
			targets = append(targets, i)
		}
	}
	if len(targets) == 0 {
		return 0
	}

	clips := make([]segment.Payload, len(targets))
	jobs := make([]worker.Job, len(targets))
	for j, i := range targets {
		text := entries[i].Text
		jobs[j] = worker.Func{
			Name: fmt.Sprintf("tts-%d", i),
			Fn: func(ctx context.Context) error {
				p, err := s.Synthesize(ctx, text, speed)
				clips[j] = p
				return err
			},
		}
	}

	produced := 0
	for j, err := range pool.RunAll(ctx, jobs) {
		if err != nil {
			log.WithError(err).WithField("sentence", targets[j]).Warn("speech synthesis failed")
			continue
		}
		entries[targets[j]].Audio = clips[j]
		produced++
	}
	return produced
}
