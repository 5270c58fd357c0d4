package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/hyobinnSeo/VoiceSync/internal/segment"
	"github.com/hyobinnSeo/VoiceSync/internal/session"
	"github.com/hyobinnSeo/VoiceSync/utils"
)

// CreateSessionRequest carries an already produced speech and subtitle batch.
type CreateSessionRequest struct {
	VideoID      string        `json:"video_id,omitempty" validate:"omitempty,uuid"`
	Speech       []segment.Raw `json:"speech"`
	Subtitles    []segment.Raw `json:"subtitles"`
	SpeakingRate float64       `json:"speaking_rate,omitempty" validate:"omitempty,gt=0,lte=4"`
}

// SessionResult is a new session and what was kept of its batch.
type SessionResult struct {
	Session session.State  `json:"session"`
	Report  session.Report `json:"report"`
}

// SessionResponse wraps a SessionResult.
type SessionResponse struct {
	Status string        `json:"status" example:"success"`
	Data   SessionResult `json:"data"`
}

// EventsRequest is a batch of player events, applied in order.
type EventsRequest struct {
	Events []session.Event `json:"events" validate:"required,min=1,max=256,dive"`
}

// EventsResponse wraps the commands produced by an events batch.
type EventsResponse struct {
	Status string         `json:"status" example:"success"`
	Data   session.Result `json:"data"`
}

// StateResponse wraps a session description.
type StateResponse struct {
	Status string        `json:"status" example:"success"`
	Data   session.State `json:"data"`
}

// startSession registers a session for normalized tracks. Empty tracks give
// an idle session; the report says what was kept.
func (h *ApplicationHandler) startSession(videoID string, speech, subtitles []segment.Entry, rate float64) SessionResult {
	s, report := session.New(speech, subtitles, session.Options{
		VideoID:      videoID,
		SpeakingRate: rate,
		Logger:       h.Logger,
	})
	h.Sessions.Add(s)
	return SessionResult{Session: s.State(), Report: report}
}

// CreateSession godoc
// @Summary Open a playback session
// @Description Builds speech and subtitle timelines from an upstream batch.
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body CreateSessionRequest true "Speech and subtitle batch"
// @Success 201 {object} SessionResponse
// @Failure 400 {object} utils.ErrorResponse
// @Router /sessions [post]
func (h *ApplicationHandler) CreateSession(c *fiber.Ctx) error {
	payload := new(CreateSessionRequest)
	if err := c.BodyParser(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}
	if err := h.validate.Struct(payload); err != nil {
		return utils.RespondWithValidationError(c, err)
	}
	subtitles, _ := segment.NormalizeMode(payload.Subtitles, segment.Subtitles)
	result := h.startSession(payload.VideoID, segment.Normalize(payload.Speech), subtitles, payload.SpeakingRate)
	return utils.RespondWithJSON(c, fiber.StatusCreated, result)
}

// GetSession godoc
// @Summary Describe a session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} StateResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /sessions/{id} [get]
func (h *ApplicationHandler) GetSession(c *fiber.Ctx) error {
	s, err := h.Sessions.Get(c.Params("id"))
	if err != nil {
		return h.sessionError(c, err)
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, s.State())
}

// DeleteSession godoc
// @Summary Close a session
// @Description Stops and releases every clip of the session.
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} utils.ErrorResponse
// @Router /sessions/{id} [delete]
func (h *ApplicationHandler) DeleteSession(c *fiber.Ctx) error {
	if err := h.Sessions.Delete(c.Params("id")); err != nil {
		return h.sessionError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PostEvents godoc
// @Summary Report player events
// @Description Applies clock and audio events in order and returns the audio commands the player must run.
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body EventsRequest true "Events"
// @Success 200 {object} EventsResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 410 {object} utils.ErrorResponse "Session closed"
// @Router /sessions/{id}/events [post]
func (h *ApplicationHandler) PostEvents(c *fiber.Ctx) error {
	s, err := h.Sessions.Get(c.Params("id"))
	if err != nil {
		return h.sessionError(c, err)
	}
	payload := new(EventsRequest)
	if err := c.BodyParser(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}
	if err := h.validate.Struct(payload); err != nil {
		return utils.RespondWithValidationError(c, err)
	}
	result, err := s.Apply(payload.Events)
	if err != nil {
		return h.sessionError(c, err)
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, result)
}

// GetSessionAudio godoc
// @Summary Fetch a narration clip
// @Description Returns the clip bytes, or redirects when the clip is hosted elsewhere.
// @Tags sessions
// @Produce audio/mpeg
// @Param id path string true "Session ID"
// @Param index path int true "Speech segment index"
// @Success 200 {file} binary
// @Success 302
// @Failure 404 {object} utils.ErrorResponse
// @Router /sessions/{id}/audio/{index} [get]
func (h *ApplicationHandler) GetSessionAudio(c *fiber.Ctx) error {
	s, err := h.Sessions.Get(c.Params("id"))
	if err != nil {
		return h.sessionError(c, err)
	}
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid segment index")
	}
	payload, err := s.Audio(index)
	if errors.Is(err, session.ErrSegmentNotFound) {
		return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("Segment %d not found", index))
	}
	if err != nil {
		return h.sessionError(c, err)
	}

	if len(payload.Data) == 0 && strings.HasPrefix(strings.ToLower(payload.URL), "data:") {
		if decoded, ok := decodeDataURL(payload.URL); ok {
			payload = decoded
		}
	}
	if len(payload.Data) > 0 {
		c.Set(fiber.HeaderContentType, payload.MimeType)
		c.Set(fiber.HeaderCacheControl, "private, max-age=3600")
		return c.Send(payload.Data)
	}
	if payload.URL != "" {
		return c.Redirect(payload.URL, fiber.StatusFound)
	}
	return utils.RespondWithError(c, fiber.StatusNotFound, "Segment has no audio")
}

func (h *ApplicationHandler) sessionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return utils.RespondWithError(c, fiber.StatusNotFound, "Session not found")
	case errors.Is(err, session.ErrClosed):
		return utils.RespondWithError(c, fiber.StatusGone, "Session closed")
	case errors.Is(err, session.ErrSegmentNotFound), errors.Is(err, session.ErrInvalidEvent):
		return utils.RespondWithError(c, fiber.StatusBadRequest, err.Error())
	default:
		h.Logger.WithError(err).Error("Session request failed")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Session request failed")
	}
}

// decodeDataURL unpacks a base64 data URL into bytes and mime type.
func decodeDataURL(raw string) (segment.Payload, bool) {
	meta, data, ok := strings.Cut(raw[len("data:"):], ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return segment.Payload{}, false
	}
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil || len(decoded) == 0 {
		return segment.Payload{}, false
	}
	mime := strings.TrimSuffix(meta, ";base64")
	if mime == "" {
		mime = "audio/mpeg"
	}
	return segment.Payload{Data: decoded, MimeType: mime}, true
}
