package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hyobinnSeo/VoiceSync/internal/db"
	"github.com/hyobinnSeo/VoiceSync/internal/fetch"
	"github.com/hyobinnSeo/VoiceSync/models"
	"github.com/hyobinnSeo/VoiceSync/utils"
)

// DownloadRequest asks for a link to be resolved. AudioOption is recorded but
// does not change format selection.
type DownloadRequest struct {
	URL         string `json:"url" validate:"required,url"`
	AudioOption string `json:"audio_option,omitempty"`
}

// VideoResponse wraps a video description.
type VideoResponse struct {
	Status string           `json:"status" example:"success"`
	Data   models.VideoInfo `json:"data"`
}

// DownloadVideo godoc
// @Summary Resolve a reel link
// @Description Extracts metadata for an Instagram reel, picks the best playable format and returns a proxied stream URL.
// @Tags videos
// @Accept json
// @Produce json
// @Param request body DownloadRequest true "Link to resolve"
// @Success 200 {object} VideoResponse
// @Failure 400 {object} utils.ErrorResponse "Missing or unsupported link"
// @Failure 404 {object} utils.ErrorResponse "No playable format"
// @Failure 500 {object} utils.ErrorResponse
// @Router /videos/download [post]
func (h *ApplicationHandler) DownloadVideo(c *fiber.Ctx) error {
	payload := new(DownloadRequest)
	if err := c.BodyParser(payload); err != nil {
		h.Logger.Errorf("Error parsing download payload: %v", err)
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}
	payload.URL = utils.SanitizeInput(payload.URL)
	if err := h.validate.Struct(payload); err != nil {
		return utils.RespondWithValidationError(c, err)
	}

	log := h.Logger.WithField("url", payload.URL)
	if payload.AudioOption != "" {
		log = log.WithField("audio_option", payload.AudioOption)
	}
	log.Info("Received request to resolve video link")

	ctx := c.UserContext()
	resolved, err := h.Resolver.Resolve(ctx, payload.URL)
	switch {
	case errors.Is(err, fetch.ErrUnsupportedURL):
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Only Instagram reel links are supported.")
	case errors.Is(err, fetch.ErrNoPlayableFormat):
		return utils.RespondWithError(c, fiber.StatusNotFound, "No playable video was found.")
	case err != nil:
		log.WithError(err).Error("Error resolving video link")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Failed to fetch video information. Please check the link.")
	}

	video := &models.Video{
		ID:        uuid.New(),
		Origin:    models.OriginLink,
		Title:     resolved.Info.Title,
		SourceURL: resolved.SourceURL,
		StreamURL: fetch.StreamURL(StreamPath, resolved),
		DirectURL: resolved.Format.URL,
		Filename:  resolved.Filename,
		Thumbnail: resolved.Info.Thumbnail,
		Uploader:  resolved.Info.Uploader,
		Duration:  resolved.Info.Duration,
		Height:    resolved.Format.Height,
		HasAudio:  resolved.Format.HasAudio(),
		Codec:     resolved.Format.VCodec,
		FileSize:  resolved.Format.Filesize,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.SaveVideo(ctx, video); err != nil {
		log.WithError(err).Error("Error saving video record")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not save video record")
	}

	log.WithFields(logrus.Fields{"video_id": video.ID, "format": resolved.Format.FormatID}).Info("Video resolved")
	return utils.RespondWithJSON(c, fiber.StatusOK, video.Info())
}

// GetVideo godoc
// @Summary Get a video
// @Tags videos
// @Produce json
// @Param videoId path string true "Video ID"
// @Success 200 {object} VideoResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /videos/{videoId} [get]
func (h *ApplicationHandler) GetVideo(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("videoId"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid video ID format")
	}
	video, err := h.Store.GetVideo(c.UserContext(), id)
	if errors.Is(err, db.ErrVideoNotFound) {
		return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("Video with ID %s not found", id))
	}
	if err != nil {
		h.Logger.WithError(err).WithField("video_id", id).Error("Error loading video")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not load video")
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, video.Info())
}

var passthroughHeaders = []string{
	fiber.HeaderContentType,
	fiber.HeaderAcceptRanges,
	fiber.HeaderContentRange,
}

// ProxyStream godoc
// @Summary Stream a remote video
// @Description Streams the upstream file with the headers its CDN requires, forwarding Range requests.
// @Tags videos
// @Produce octet-stream
// @Param url query string true "Upstream media URL"
// @Param filename query string false "Name for Content-Disposition"
// @Param source query string false "Original page link"
// @Success 200 {file} binary
// @Success 206 {file} binary
// @Failure 400 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /proxy-stream [get]
func (h *ApplicationHandler) ProxyStream(c *fiber.Ctx) error {
	target := c.Query("url")
	if target == "" {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "A stream URL is required.")
	}
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "The stream URL must be an absolute http(s) URL.")
	}
	filename := c.Query("filename", "video.mp4")

	req, err := http.NewRequestWithContext(c.UserContext(), http.MethodGet, target, nil)
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Invalid stream URL")
	}
	for k, v := range fetch.ProxyHeaders(target, c.Query("source")) {
		req.Header.Set(k, v)
	}
	if r := c.Get(fiber.HeaderRange); r != "" {
		req.Header.Set(fiber.HeaderRange, r)
	}

	resp, err := h.HTTPClient.Do(req)
	if err != nil {
		h.Logger.WithError(err).WithField("host", u.Host).Error("Error contacting stream upstream")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Stream processing failed.")
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		h.Logger.WithFields(logrus.Fields{"host": u.Host, "status": resp.StatusCode}).Warn("Stream upstream refused request")
		return utils.RespondWithError(c, resp.StatusCode, "Could not fetch the video.")
	}

	c.Status(resp.StatusCode)
	for _, name := range passthroughHeaders {
		if v := resp.Header.Get(name); v != "" {
			c.Set(name, v)
		}
	}
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="%s"`, url.PathEscape(filename)))
	// fasthttp closes the body once the stream is written.
	return c.SendStream(resp.Body, int(resp.ContentLength))
}
