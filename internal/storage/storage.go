// Package storage mirrors uploaded videos to remote object storage.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	storage_go "github.com/supabase-community/storage-go"
	supa "github.com/supabase-community/supabase-go"
)

// Mirror copies a local upload to remote storage.
type Mirror interface {
	Upload(ctx context.Context, path, contentType string, data io.Reader) error
}

// SupabaseMirror uploads into a Supabase Storage bucket.
type SupabaseMirror struct {
	client *supa.Client
	bucket string
	log    logrus.FieldLogger
}

// NewSupabaseMirror constructs a Supabase client for bucket.
func NewSupabaseMirror(url, key, bucket string, log logrus.FieldLogger) (*SupabaseMirror, error) {
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("error initializing Supabase client: %w", err)
	}
	log.WithField("bucket", bucket).Info("Supabase storage mirror initialized")
	return &SupabaseMirror{client: client, bucket: bucket, log: log}, nil
}

// Upload stores data at path, replacing any existing object. The storage
// client takes no context, so ctx is only checked before the call.
func (m *SupabaseMirror) Upload(ctx context.Context, path, contentType string, data io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	upsert := true
	_, err := m.client.Storage.UploadFile(m.bucket, path, data, storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return fmt.Errorf("upload %s to bucket %s: %w", path, m.bucket, err)
	}
	m.log.WithFields(logrus.Fields{"bucket": m.bucket, "path": path}).Info("upload mirrored")
	return nil
}
