package playable

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hyobinnSeo/VoiceSync/internal/segment"
)

type stubHandle struct {
	calls []string
}

func (h *stubHandle) Reset() { h.calls = append(h.calls, "reset") }
func (h *stubHandle) Play(done func(error)) { h.calls = append(h.calls, "play"); done(nil) }
func (h *stubHandle) Pause() { h.calls = append(h.calls, "pause") }
func (h *stubHandle) Paused() bool { return true }
func (h *stubHandle) SetPlaybackRate(float64) {}
func (h *stubHandle) OnEnded(func()) {}
func (h *stubHandle) Release() { h.calls = append(h.calls, "release") }

func entry(start float64, text string, audio bool) segment.Entry {
	e := segment.Entry{TimedEntry: segment.TimedEntry{Start: start, End: start + 1, Text: text}}
	if audio {
		e.Audio = segment.Payload{Data: []byte("x"), MimeType: "audio/mpeg"}
	}
	return e
}

func TestBuildSpeechDropsUnplayable(t *testing.T) {
	entries := []segment.Entry{entry(0, "a", true), entry(1, "b", false), entry(2, "c", true), entry(3, "d", true)}
	var opened []int
	segments, report := BuildSpeech(entries, func(index int, e segment.Entry) (AudioHandle, error) {
		opened = append(opened, index)
		if e.Text == "d" {
			return nil, errors.New("bad codec")
		}
		return &stubHandle{}, nil
	})
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(segments))
	}
	if segments[0].Text != "a" || segments[1].Text != "c" {
		t.Errorf("kept %q, %q", segments[0].Text, segments[1].Text)
	}
	for i, s := range segments {
		if s.Index != i || s.HasPlayed || s.Audio == nil {
			t.Errorf("segment %d = %+v", i, s)
		}
	}
	if report.Unplayable != 1 || report.OpenFailed != 1 || report.Kept != 2 {
		t.Errorf("report = %+v", report)
	}
	if fmt.Sprint(opened) != "[0 1 2]" {
		t.Errorf("factory indexes = %v", opened)
	}
}

func TestBuildTruncatesAtBudget(t *testing.T) {
	entries := make([]segment.Entry, MaxSegments+25)
	for i := range entries {
		entries[i] = entry(float64(i), fmt.Sprintf("s%d", i), true)
	}
	speech, report := BuildSpeech(entries, func(int, segment.Entry) (AudioHandle, error) {
		return &stubHandle{}, nil
	})
	if len(speech) != MaxSegments || report.Truncated != 25 {
		t.Errorf("speech len=%d truncated=%d", len(speech), report.Truncated)
	}

	subs, report := BuildSubtitles(entries)
	if len(subs) != MaxSegments || report.Truncated != 25 {
		t.Errorf("subtitles len=%d truncated=%d", len(subs), report.Truncated)
	}
	if subs[10].Audio != nil || subs[10].Index != 10 {
		t.Errorf("subtitle segment = %+v", subs[10])
	}
}

func TestReleaseStopsHandles(t *testing.T) {
	h := &stubHandle{}
	Release([]*Segment{{Audio: h}, {}, nil})
	if fmt.Sprint(h.calls) != "[pause reset release]" {
		t.Errorf("calls = %v", h.calls)
	}
}
