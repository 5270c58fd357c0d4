package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestUploadHonorsCanceledContext(t *testing.T) {
	m := &SupabaseMirror{bucket: "videos"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Upload(ctx, "a.mp4", "video/mp4", strings.NewReader("data"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Upload error = %v, want context.Canceled", err)
	}
}
