package playable

import (
	"errors"

	"github.com/hyobinnSeo/VoiceSync/internal/segment"
)

// MaxSegments bounds how many entries a single batch may hand to a timeline.
const MaxSegments = 200

// ErrStartRejected is wrapped by handles whose playback start was refused,
// for example by an autoplay policy. The start may be retried later.
var ErrStartRejected = errors.New("playback start rejected")

// AudioHandle is the transport surface of one speech clip. Play completes
// asynchronously: done receives nil once audio is running, or an error
// wrapping ErrStartRejected.
type AudioHandle interface {
	Reset()
	Play(done func(error))
	Pause()
	Paused() bool
	SetPlaybackRate(rate float64)
	OnEnded(fn func())
	Release()
}

// HandleFactory opens an audio handle for the entry at index.
type HandleFactory func(index int, entry segment.Entry) (AudioHandle, error)

// Segment is a normalized entry prepared for playback. Audio is nil for subtitles.
type Segment struct {
	segment.TimedEntry
	Index     int
	HasPlayed bool
	Audio     AudioHandle
}

// Report describes what a build kept and why entries were left out.
type Report struct {
	Kept       int `json:"kept"`
	Unplayable int `json:"unplayable"`
	OpenFailed int `json:"open_failed"`
	Truncated  int `json:"truncated"`
}

// BuildSpeech pairs every entry with an audio handle. Entries without a
// payload, or whose handle cannot be opened, are dropped; output stops at
// MaxSegments.
func BuildSpeech(entries []segment.Entry, open HandleFactory) ([]*Segment, Report) {
	var report Report
	out := make([]*Segment, 0, min(len(entries), MaxSegments))
	for i, e := range entries {
		if len(out) == MaxSegments {
			report.Truncated = len(entries) - i
			break
		}
		if e.Audio.Empty() {
			report.Unplayable++
			continue
		}
		handle, err := open(len(out), e)
		if err != nil || handle == nil {
			report.OpenFailed++
			continue
		}
		out = append(out, &Segment{TimedEntry: e.TimedEntry, Index: len(out), Audio: handle})
	}
	report.Kept = len(out)
	return out, report
}

// BuildSubtitles keeps every entry as a text-only segment, up to MaxSegments.
func BuildSubtitles(entries []segment.Entry) ([]*Segment, Report) {
	var report Report
	n := min(len(entries), MaxSegments)
	out := make([]*Segment, n)
	for i := range n {
		out[i] = &Segment{TimedEntry: entries[i].TimedEntry, Index: i}
	}
	report.Kept = n
	report.Truncated = len(entries) - n
	return out, report
}

// Release stops every handle and frees it. It runs synchronously so no clip
// keeps playing after the segments are dropped.
func Release(segments []*Segment) {
	for _, s := range segments {
		if s == nil || s.Audio == nil {
			continue
		}
		s.Audio.Pause()
		s.Audio.Reset()
		s.Audio.Release()
	}
}
