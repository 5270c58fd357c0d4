package models

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/hyobinnSeo/VoiceSync/internal/timecode"
)

// Video origins.
const (
	OriginLink   = "link"
	OriginUpload = "upload"
)

// Video is a resolved or uploaded video as stored in the videos table.
type Video struct {
	ID          uuid.UUID `json:"id"`
	Origin      string    `json:"origin"`
	Title       string    `json:"title"`
	SourceURL   string    `json:"source_url,omitempty"`
	StreamURL   string    `json:"stream_url"`
	DirectURL   string    `json:"direct_url,omitempty"`
	StoragePath string    `json:"storage_path,omitempty"`
	Filename    string    `json:"filename"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	Uploader    string    `json:"uploader,omitempty"`
	Duration    float64   `json:"duration"`
	Height      int       `json:"height,omitempty"`
	HasAudio    bool      `json:"has_audio"`
	Codec       string    `json:"codec,omitempty"`
	FileSize    int64     `json:"file_size,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// VideoInfo is the API view of a Video.
type VideoInfo struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Thumbnail     string    `json:"thumbnail,omitempty"`
	Duration      float64   `json:"duration"`
	DurationLabel string    `json:"duration_label"`
	Uploader      string    `json:"uploader,omitempty"`
	Quality       string    `json:"quality,omitempty"`
	HasAudio      bool      `json:"has_audio"`
	Codec         string    `json:"codec"`
	StreamURL     string    `json:"stream_url"`
	DirectURL     string    `json:"direct_url,omitempty"`
	Filename      string    `json:"filename"`
	Filesize      int64     `json:"filesize,omitempty"`
	FilesizeLabel string    `json:"filesize_label,omitempty"`
}

// Info builds the API view.
func (v *Video) Info() VideoInfo {
	info := VideoInfo{
		ID:            v.ID,
		Title:         v.Title,
		Thumbnail:     v.Thumbnail,
		Duration:      v.Duration,
		DurationLabel: timecode.FormatShort(v.Duration),
		Uploader:      v.Uploader,
		HasAudio:      v.HasAudio,
		Codec:         v.Codec,
		StreamURL:     v.StreamURL,
		DirectURL:     v.DirectURL,
		Filename:      v.Filename,
		Filesize:      v.FileSize,
	}
	if info.Codec == "" {
		info.Codec = "unknown"
	}
	if v.Height > 0 {
		info.Quality = fmt.Sprintf("%dp", v.Height)
	}
	if v.FileSize > 0 {
		info.FilesizeLabel = humanize.Bytes(uint64(v.FileSize))
	}
	return info
}
