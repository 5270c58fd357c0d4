package handlers

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hyobinnSeo/VoiceSync/models"
	"github.com/hyobinnSeo/VoiceSync/utils"
)

// UploadVideo godoc
// @Summary Upload a video file
// @Description Stores a local video, probes it with ffprobe and optionally mirrors it to Supabase Storage.
// @Tags videos
// @Accept multipart/form-data
// @Produce json
// @Param video formData file true "Video file"
// @Success 201 {object} VideoResponse
// @Failure 400 {object} utils.ErrorResponse "Missing file or not a video"
// @Failure 413 {object} utils.ErrorResponse "File too large"
// @Failure 500 {object} utils.ErrorResponse
// @Router /videos/upload [post]
func (h *ApplicationHandler) UploadVideo(c *fiber.Ctx) error {
	file, err := c.FormFile("video")
	if err != nil {
		h.Logger.Errorf("Error getting file from request: %v", err)
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Please upload a video file.")
	}
	if file.Size > h.MaxUploadBytes {
		return utils.RespondWithError(c, fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("Video files are limited to %d MB.", h.MaxUploadBytes>>20))
	}
	contentType := file.Header.Get(fiber.HeaderContentType)
	if !strings.HasPrefix(contentType, "video/") {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Only video files can be uploaded.")
	}

	if err := os.MkdirAll(h.UploadDir, 0o755); err != nil {
		h.Logger.WithError(err).Error("Error creating upload directory")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not store the upload")
	}

	id := uuid.New()
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext == "" {
		ext = ".mp4"
	}
	stored := id.String() + ext
	dest := filepath.Join(h.UploadDir, stored)
	if err := c.SaveFile(file, dest); err != nil {
		h.Logger.WithError(err).Error("Error saving uploaded file")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not store the upload")
	}

	log := h.Logger.WithFields(logrus.Fields{"video_id": id, "original_name": file.Filename, "size": file.Size})

	title := strings.TrimSuffix(filepath.Base(file.Filename), filepath.Ext(file.Filename))
	if title == "" || title == "." {
		title = "My video"
	}
	streamURL := "/uploads/" + url.PathEscape(stored)
	video := &models.Video{
		ID:          id,
		Origin:      models.OriginUpload,
		Title:       title,
		StreamURL:   streamURL,
		DirectURL:   streamURL,
		StoragePath: stored,
		Filename:    stored,
		Uploader:    "User upload",
		FileSize:    file.Size,
		CreatedAt:   time.Now().UTC(),
	}

	ctx := c.UserContext()
	if h.Prober != nil {
		md, err := h.Prober.Probe(ctx, dest)
		if err != nil {
			log.WithError(err).Warn("ffprobe failed; continuing without metadata")
		} else {
			video.Duration = md.Duration.Seconds()
			video.HasAudio = md.HasAudio
			video.Codec = md.VideoCodec
			video.Height = md.Height
		}
	}

	if h.Mirror != nil {
		if err := h.mirror(c, dest, stored, contentType); err != nil {
			log.WithError(err).Warn("Storage mirror failed; serving the local copy only")
		}
	}

	if err := h.Store.SaveVideo(ctx, video); err != nil {
		log.WithError(err).Error("Error saving video record")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not save video record")
	}

	log.Info("Video uploaded")
	return utils.RespondWithJSON(c, fiber.StatusCreated, video.Info())
}

func (h *ApplicationHandler) mirror(c *fiber.Ctx, localPath, objectPath, contentType string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return h.Mirror.Upload(c.UserContext(), objectPath, contentType, f)
}
