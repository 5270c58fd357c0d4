package aiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/hyobinnSeo/VoiceSync/internal/segment"
)

// TranscribeMethod is the full gRPC method name of the transcription RPC.
const TranscribeMethod = "/aiservice.AIService/TranscribeVideo"

// TranscribeRequest asks the AI service to transcribe and translate a video.
type TranscribeRequest struct {
	VideoID        string `json:"video_id"`
	VideoURL       string `json:"video_url"`
	TargetLanguage string `json:"target_language"`
}

// Transcript is the AI service's answer: translated sentences to narrate and
// subtitles in the original language. Times may be seconds or timecodes.
type Transcript struct {
	Language     string        `json:"language"`
	SpeakingRate float64       `json:"speaking_rate"`
	Speech       []segment.Raw `json:"speech"`
	Subtitles    []segment.Raw `json:"subtitles"`
}

// AIClient wraps the gRPC connection to the AI service. Messages travel as
// google.protobuf.Struct so no generated stubs are needed.
type AIClient struct {
	conn    *grpc.ClientConn
	timeout time.Duration
	log     logrus.FieldLogger
}

// NewAIClient creates a client for serverAddr. The connection is established lazily.
func NewAIClient(serverAddr string, timeout time.Duration, log logrus.FieldLogger) (*AIClient, error) {
	conn, err := grpc.NewClient(serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial AI service %s: %w", serverAddr, err)
	}
	log.WithField("addr", serverAddr).Info("AI service client ready")
	return &AIClient{conn: conn, timeout: timeout, log: log}, nil
}

// Close closes the gRPC connection.
func (c *AIClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Transcribe calls the transcription RPC.
func (c *AIClient) Transcribe(ctx context.Context, req TranscribeRequest) (*Transcript, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	in, err := structpb.NewStruct(map[string]any{
		"video_id":        req.VideoID,
		"video_url":       req.VideoURL,
		"target_language": req.TargetLanguage,
	})
	if err != nil {
		return nil, fmt.Errorf("encode transcribe request: %w", err)
	}
	out := &structpb.Struct{}

	start := time.Now()
	if err := c.conn.Invoke(ctx, TranscribeMethod, in, out); err != nil {
		c.log.WithError(err).WithField("video_id", req.VideoID).Error("TranscribeVideo RPC failed")
		return nil, fmt.Errorf("transcribe %s: %w", req.VideoID, err)
	}

	t, err := DecodeTranscript(out)
	if err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{
		"video_id":  req.VideoID,
		"speech":    len(t.Speech),
		"subtitles": len(t.Subtitles),
		"elapsed":   time.Since(start).String(),
	}).Info("transcript received")
	return t, nil
}

// DecodeTranscript maps a Struct response onto a Transcript.
func DecodeTranscript(msg *structpb.Struct) (*Transcript, error) {
	raw, err := protojson.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal transcript: %w", err)
	}
	var t Transcript
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	return &t, nil
}
