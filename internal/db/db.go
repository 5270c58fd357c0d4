// Package db persists video records.
package db

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hyobinnSeo/VoiceSync/models"
)

// VideosTable is the table holding video records in every backend.
const VideosTable = "videos"

var ErrVideoNotFound = errors.New("video not found")

// Store saves and loads video records.
type Store interface {
	SaveVideo(ctx context.Context, v *models.Video) error
	GetVideo(ctx context.Context, id uuid.UUID) (*models.Video, error)
	Close() error
}
