package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	postgrest "github.com/supabase-community/postgrest-go"

	"github.com/hyobinnSeo/VoiceSync/models"
)

// PostgrestStore keeps videos in Supabase through its REST interface.
// postgrest-go has no context support, so ctx is only checked up front.
type PostgrestStore struct {
	client *postgrest.Client
	log    logrus.FieldLogger
}

// NewPostgrestStore connects to the PostgREST endpoint of a Supabase project.
func NewPostgrestStore(supabaseURL, serviceKey string, log logrus.FieldLogger) (*PostgrestStore, error) {
	if supabaseURL == "" || serviceKey == "" {
		return nil, fmt.Errorf("supabase url and service key are required")
	}
	client := postgrest.NewClient(strings.TrimRight(supabaseURL, "/")+"/rest/v1", "", map[string]string{
		"apikey":        serviceKey,
		"Authorization": "Bearer " + serviceKey,
	})
	if client.ClientError != nil {
		return nil, fmt.Errorf("failed to initialize PostgREST client: %w", client.ClientError)
	}
	log.Info("PostgREST video store initialized")
	return &PostgrestStore{client: client, log: log}, nil
}

// SaveVideo upserts v by id.
func (s *PostgrestStore) SaveVideo(ctx context.Context, v *models.Video) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var results []models.Video
	_, err := s.client.From(VideosTable).Insert(v, true, "id", "representation", "").ExecuteTo(&results)
	if err != nil {
		return fmt.Errorf("failed to save video %s: %w", v.ID, err)
	}
	if len(results) == 0 {
		return fmt.Errorf("no record returned after saving video %s", v.ID)
	}
	s.log.WithField("video_id", v.ID).Debug("video saved")
	return nil
}

// GetVideo loads a video by id.
func (s *PostgrestStore) GetVideo(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var results []models.Video
	_, err := s.client.From(VideosTable).Select("*", "", false).Eq("id", id.String()).ExecuteTo(&results)
	if err != nil {
		return nil, fmt.Errorf("failed to load video %s: %w", id, err)
	}
	if len(results) == 0 {
		return nil, ErrVideoNotFound
	}
	return &results[0], nil
}

// Close is a no-op; the REST client holds no connection.
func (s *PostgrestStore) Close() error { return nil }
