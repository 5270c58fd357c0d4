package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyobinnSeo/VoiceSync/internal/segment"
	"github.com/hyobinnSeo/VoiceSync/internal/session"
	"github.com/hyobinnSeo/VoiceSync/internal/timecode"
)

func rawSpeech(start, end float64, text string) segment.Raw {
	return segment.Raw{
		Start:        timecode.Seconds(start),
		End:          timecode.Seconds(end),
		Text:         text,
		AudioPayload: "YQ==",
	}
}

func TestRunReplayAutoplay(t *testing.T) {
	speech := []segment.Raw{rawSpeech(0, 1, "one"), rawSpeech(1, 2, "two")}
	events := []session.Event{session.At(session.EventPlay, 0.05), session.At(session.EventPosition, 1.0)}

	rows, report, err := runReplay(speech, nil, events, 1, true)
	if err != nil {
		t.Fatalf("runReplay: %v", err)
	}
	if report.Speech.Kept != 2 {
		t.Fatalf("kept = %d, want 2", report.Speech.Kept)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4: %+v", len(rows), rows)
	}
	if !strings.Contains(rows[0].Commands, "0:play#") || rows[0].Active != 0 {
		t.Errorf("first row = %+v", rows[0])
	}
	if !strings.HasPrefix(rows[1].Event, "audio_started seg 0") {
		t.Errorf("second row event = %q", rows[1].Event)
	}
	if !strings.Contains(rows[2].Commands, "1:play#") || rows[2].Active != 1 {
		t.Errorf("third row = %+v", rows[2])
	}
	if !strings.HasPrefix(rows[3].Event, "audio_started seg 1") {
		t.Errorf("fourth row event = %q", rows[3].Event)
	}
	for i, r := range rows {
		if r.Step != i+1 {
			t.Errorf("row %d step = %d", i, r.Step)
		}
	}
}

func TestRunReplayWithoutAutoplay(t *testing.T) {
	speech := []segment.Raw{rawSpeech(0, 1, "one")}
	events := []session.Event{session.At(session.EventPlay, 0.05)}

	rows, _, err := runReplay(speech, nil, events, 1, false)
	if err != nil {
		t.Fatalf("runReplay: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
}

func TestRunReplaySubtitles(t *testing.T) {
	speech := []segment.Raw{rawSpeech(0, 1, "one")}
	subtitles := []segment.Raw{
		{Start: timecode.String("00:00:00,000"), End: timecode.String("00:00:02,000"), Text: "hello"},
		{Start: timecode.String("00:00:02,000"), Text: "world"},
	}
	events := []session.Event{session.At(session.EventSubtitlePosition, 0.5)}

	rows, report, err := runReplay(speech, subtitles, events, 1, true)
	if err != nil {
		t.Fatalf("runReplay: %v", err)
	}
	if report.Subtitles.Kept != 2 {
		t.Errorf("subtitles kept = %d, want 2", report.Subtitles.Kept)
	}
	if len(rows) != 1 || rows[0].Visible != "0" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestReplayCommand(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}
	speech := write("speech.json", `[{"start":0,"end":1,"text":"one","audioPayload":"YQ=="}]`)
	events := write("events.json", `[{"type":"play","position":0.05}]`)

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"replay", "--speech", speech, "--events", events})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	text := out.String()
	for _, want := range []string{"speech kept 1", "Step", "audio_started seg 0"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestReplayCommandMissingFile(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"replay", "--speech", filepath.Join(t.TempDir(), "nope.json"), "--events", "x.json"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRenderTable(t *testing.T) {
	got := renderTable([]string{"A", "B"}, [][]string{{"1"}, {"2", "3"}}, []columnAlignment{alignRight})
	for _, want := range []string{"A", "B", "1", "3"} {
		if !strings.Contains(got, want) {
			t.Errorf("table missing %q:\n%s", want, got)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("empty headers should render nothing")
	}
}
