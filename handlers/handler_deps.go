package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/hyobinnSeo/VoiceSync/internal/aiclient"
	"github.com/hyobinnSeo/VoiceSync/internal/cache"
	"github.com/hyobinnSeo/VoiceSync/internal/db"
	"github.com/hyobinnSeo/VoiceSync/internal/fetch"
	"github.com/hyobinnSeo/VoiceSync/internal/ffmpeg"
	"github.com/hyobinnSeo/VoiceSync/internal/session"
	"github.com/hyobinnSeo/VoiceSync/internal/storage"
	"github.com/hyobinnSeo/VoiceSync/internal/tts"
	"github.com/hyobinnSeo/VoiceSync/internal/worker"
)

// Transcriber defines the operation handlers expect from the AI client.
type Transcriber interface {
	Transcribe(ctx context.Context, req aiclient.TranscribeRequest) (*aiclient.Transcript, error)
}

// VideoResolver turns a link into a playable video.
type VideoResolver interface {
	Resolve(ctx context.Context, link string) (*fetch.Video, error)
}

// MediaProber reads metadata of a local video file.
type MediaProber interface {
	Probe(ctx context.Context, path string) (*ffmpeg.Metadata, error)
}

// ApplicationHandler holds shared dependencies for handlers. AIClient,
// Synthesizer, Mirror and Prober are optional.
type ApplicationHandler struct {
	Resolver       VideoResolver
	Prober         MediaProber
	Store          db.Store
	Sessions       *session.Registry
	AIClient       Transcriber
	Synthesizer    tts.Synthesizer
	Pool           *worker.Dispatcher
	Cache          cache.TranscriptCache
	Mirror         storage.Mirror
	Logger         logrus.FieldLogger
	UploadDir      string
	MaxUploadBytes int64
	HTTPClient     *http.Client

	validate *validator.Validate
}

// NewApplicationHandler fills in defaults for the optional dependencies.
func NewApplicationHandler(h ApplicationHandler) *ApplicationHandler {
	if h.Logger == nil {
		quiet := logrus.New()
		quiet.SetOutput(io.Discard)
		h.Logger = quiet
	}
	if h.Cache == nil {
		h.Cache = cache.Nop{}
	}
	if h.HTTPClient == nil {
		// No overall timeout: proxied streams can run for the length of a video.
		h.HTTPClient = &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: 30 * time.Second,
		}}
	}
	if h.UploadDir == "" {
		h.UploadDir = "uploads"
	}
	if h.MaxUploadBytes <= 0 {
		h.MaxUploadBytes = 200 << 20
	}
	h.validate = validator.New()
	return &h
}
