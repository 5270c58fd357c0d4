package aiclient

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/hyobinnSeo/VoiceSync/internal/segment"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func transcriptStruct(t *testing.T) *structpb.Struct {
	t.Helper()
	msg, err := structpb.NewStruct(map[string]any{
		"language":      "ko",
		"speaking_rate": 1.25,
		"speech": []any{
			map[string]any{"start": "00:00:01", "end": 2.5, "text": "hello", "audioPayload": "SUQz"},
		},
		"subtitles": []any{
			map[string]any{"start": 0, "end": "00:00:01,500", "text": "annyeong"},
		},
	})
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	return msg
}

func TestDecodeTranscript(t *testing.T) {
	tr, err := DecodeTranscript(transcriptStruct(t))
	if err != nil {
		t.Fatalf("DecodeTranscript: %v", err)
	}
	if tr.Language != "ko" || tr.SpeakingRate != 1.25 {
		t.Errorf("transcript = %+v", tr)
	}
	if len(tr.Speech) != 1 || tr.Speech[0].Start.Raw() != "00:00:01" || tr.Speech[0].Payload().Empty() {
		t.Errorf("speech = %+v", tr.Speech)
	}
	if len(tr.Subtitles) != 1 || tr.Subtitles[0].Text != "annyeong" {
		t.Errorf("subtitles = %+v", tr.Subtitles)
	}
}

func TestDecodeTranscriptKeepsGoodEntries(t *testing.T) {
	msg, err := structpb.NewStruct(map[string]any{
		"speech": []any{
			map[string]any{"start": 0, "end": 1, "text": "good", "audioPayload": "https://x.example/a.mp3"},
			map[string]any{"start": true, "end": 2, "text": "bad"},
			map[string]any{"start": 2, "end": 3, "text": []any{"not", "text"}},
		},
	})
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	tr, err := DecodeTranscript(msg)
	if err != nil {
		t.Fatalf("DecodeTranscript: %v", err)
	}
	if len(tr.Speech) != 3 {
		t.Fatalf("decoded %d speech entries, want 3", len(tr.Speech))
	}
	kept, report := segment.NormalizeMode(tr.Speech, segment.Speech)
	if len(kept) != 1 || kept[0].Text != "good" {
		t.Errorf("kept = %+v", kept)
	}
	if report.Malformed != 1 || report.EmptyText != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestTranscribeOverGRPC(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	var gotMethod, gotLanguage string
	srv := grpc.NewServer(grpc.UnknownServiceHandler(func(_ any, stream grpc.ServerStream) error {
		gotMethod, _ = grpc.MethodFromServerStream(stream)
		in := &structpb.Struct{}
		if err := stream.RecvMsg(in); err != nil {
			return err
		}
		gotLanguage = in.GetFields()["target_language"].GetStringValue()
		return stream.SendMsg(transcriptStruct(t))
	}))
	go srv.Serve(lis)
	defer srv.Stop()

	c, err := NewAIClient(lis.Addr().String(), 5*time.Second, quietLogger())
	if err != nil {
		t.Fatalf("NewAIClient: %v", err)
	}
	defer c.Close()

	tr, err := c.Transcribe(context.Background(), TranscribeRequest{VideoID: "v1", TargetLanguage: "en"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if gotMethod != TranscribeMethod || gotLanguage != "en" {
		t.Errorf("server saw method=%q language=%q", gotMethod, gotLanguage)
	}
	if len(tr.Speech) != 1 {
		t.Errorf("speech = %+v", tr.Speech)
	}
}
