package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hyobinnSeo/VoiceSync/internal/aiclient"
	"github.com/hyobinnSeo/VoiceSync/internal/db"
	"github.com/hyobinnSeo/VoiceSync/internal/segment"
	"github.com/hyobinnSeo/VoiceSync/internal/tts"
	"github.com/hyobinnSeo/VoiceSync/utils"
)

// NarrationRequest asks for a video to be narrated in another language.
// SpeakingRate overrides the rate suggested by the transcript.
type NarrationRequest struct {
	TargetLanguage string  `json:"target_language" validate:"required,min=2,max=16"`
	SpeakingRate   float64 `json:"speaking_rate,omitempty" validate:"omitempty,gt=0,lte=4"`
}

// NarrationResult describes the session built for a narration.
type NarrationResult struct {
	SessionResult
	Cached      bool `json:"cached"`
	Synthesized int  `json:"synthesized"`
}

// NarrationResponse wraps a NarrationResult.
type NarrationResponse struct {
	Status string          `json:"status" example:"success"`
	Data   NarrationResult `json:"data"`
}

// CreateNarration godoc
// @Summary Narrate a video
// @Description Transcribes and translates the video, synthesizes speech for each sentence and opens a playback session.
// @Tags narration
// @Accept json
// @Produce json
// @Param videoId path string true "Video ID"
// @Param request body NarrationRequest true "Narration options"
// @Success 201 {object} NarrationResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 502 {object} utils.ErrorResponse "Transcription failed"
// @Failure 503 {object} utils.ErrorResponse "Narration not configured"
// @Router /videos/{videoId}/narration [post]
func (h *ApplicationHandler) CreateNarration(c *fiber.Ctx) error {
	if h.AIClient == nil {
		return utils.RespondWithError(c, fiber.StatusServiceUnavailable, "Narration is not configured on this server.")
	}
	id, err := uuid.Parse(c.Params("videoId"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid video ID format")
	}
	payload := new(NarrationRequest)
	if err := c.BodyParser(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}
	payload.TargetLanguage = utils.SanitizeInput(payload.TargetLanguage)
	if err := h.validate.Struct(payload); err != nil {
		return utils.RespondWithValidationError(c, err)
	}

	ctx := c.UserContext()
	log := h.Logger.WithFields(logrus.Fields{"video_id": id, "language": payload.TargetLanguage})

	video, err := h.Store.GetVideo(ctx, id)
	if errors.Is(err, db.ErrVideoNotFound) {
		return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("Video with ID %s not found", id))
	}
	if err != nil {
		log.WithError(err).Error("Error loading video")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not load video")
	}

	transcript, cached, err := h.Cache.Get(ctx, id.String(), payload.TargetLanguage)
	if err != nil {
		log.WithError(err).Warn("Transcript cache read failed")
		cached = false
	}
	if !cached {
		transcript, err = h.AIClient.Transcribe(ctx, aiclient.TranscribeRequest{
			VideoID:        id.String(),
			VideoURL:       firstNonEmpty(video.DirectURL, video.SourceURL, video.StreamURL),
			TargetLanguage: payload.TargetLanguage,
		})
		if err != nil {
			log.WithError(err).Error("Transcription failed")
			return utils.RespondWithError(c, fiber.StatusBadGateway, "Transcription failed")
		}
		if err := h.Cache.Put(ctx, id.String(), payload.TargetLanguage, transcript); err != nil {
			log.WithError(err).Warn("Transcript cache write failed")
		}
	}

	rate := payload.SpeakingRate
	if rate <= 0 {
		rate = transcript.SpeakingRate
	}

	speech := segment.Normalize(transcript.Speech)
	subtitles, _ := segment.NormalizeMode(transcript.Subtitles, segment.Subtitles)

	// Clips are synthesized at natural speed; the speaking rate is applied at playback.
	synthesized := 0
	if h.Synthesizer != nil && h.Pool != nil {
		synthesized = tts.SynthesizeAll(ctx, h.Pool, h.Synthesizer, speech, 1, log)
	}

	result := h.startSession(id.String(), speech, subtitles, rate)
	log.WithFields(logrus.Fields{
		"session":     result.Session.ID,
		"cached":      cached,
		"synthesized": synthesized,
	}).Info("Narration session created")
	return utils.RespondWithJSON(c, fiber.StatusCreated, NarrationResult{
		SessionResult: result,
		Cached:        cached,
		Synthesized:   synthesized,
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
