// Package segment turns untrusted, time-stamped transcript entries into a
// sorted sequence of well-formed timed entries.
package segment

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/hyobinnSeo/VoiceSync/internal/timecode"
)

const (
	// MinDuration is the floor applied to zero-width or inverted ranges.
	MinDuration = 0.4
	// TrailingCueWidth is the width given to a final subtitle cue that has no end.
	TrailingCueWidth = 2.0
)

// TimedEntry is a piece of text bound to a [Start, End) window in seconds.
type TimedEntry struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Bounds returns the entry window.
func (e TimedEntry) Bounds() (float64, float64) {
	return e.Start, e.End
}

// Payload is the audio attached to a speech entry, either inline or by URL.
type Payload struct {
	Data     []byte `json:"-"`
	URL      string `json:"url,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// Empty reports whether there is nothing to play.
func (p Payload) Empty() bool {
	return len(p.Data) == 0 && strings.TrimSpace(p.URL) == ""
}

// Raw is one entry as received from the transcription or synthesis collaborators.
type Raw struct {
	Start         timecode.Value `json:"start"`
	End           timecode.Value `json:"end"`
	Text          string         `json:"text"`
	AudioPayload  string         `json:"audioPayload,omitempty"`
	AudioMimeType string         `json:"audioMimeType,omitempty"`

	// Audio is set directly by in-process producers such as the synthesis client.
	Audio Payload `json:"-"`
}

// UnmarshalJSON decodes an entry leniently. Fields of the wrong JSON type are
// left empty and a non-object entry decodes to the zero Raw, so normalization
// drops the entry instead of the whole batch failing to decode.
func (r *Raw) UnmarshalJSON(data []byte) error {
	var fields struct {
		Start         timecode.Value  `json:"start"`
		End           timecode.Value  `json:"end"`
		Text          json.RawMessage `json:"text"`
		AudioPayload  json.RawMessage `json:"audioPayload"`
		AudioMimeType json.RawMessage `json:"audioMimeType"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			*r = Raw{}
			return nil
		}
		return err
	}
	*r = Raw{
		Start:         fields.Start,
		End:           fields.End,
		Text:          looseString(fields.Text),
		AudioPayload:  looseString(fields.AudioPayload),
		AudioMimeType: looseString(fields.AudioMimeType),
	}
	return nil
}

func looseString(data json.RawMessage) string {
	var s string
	if len(data) == 0 || data[0] != '"' || json.Unmarshal(data, &s) != nil {
		return ""
	}
	return s
}

// Payload resolves the audio carried by the entry. AudioPayload holds either a
// URL (http, https, data or a rooted path) or base64 encoded bytes.
func (r Raw) Payload() Payload {
	if !r.Audio.Empty() {
		p := r.Audio
		if p.MimeType == "" {
			p.MimeType = r.AudioMimeType
		}
		return p
	}
	value := strings.TrimSpace(r.AudioPayload)
	if value == "" {
		return Payload{}
	}
	if isURL(value) {
		return Payload{URL: value, MimeType: r.AudioMimeType}
	}
	data, err := base64.StdEncoding.DecodeString(value)
	if err != nil || len(data) == 0 {
		return Payload{}
	}
	mime := r.AudioMimeType
	if mime == "" {
		mime = "audio/mpeg"
	}
	return Payload{Data: data, MimeType: mime}
}

func isURL(value string) bool {
	lower := strings.ToLower(value)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "data:") ||
		strings.HasPrefix(value, "/")
}

// Entry is a normalized entry together with its audio and its position in the input.
type Entry struct {
	TimedEntry
	Audio  Payload `json:"-"`
	Source int     `json:"source"`
}

// Report counts what normalization dropped or repaired.
type Report struct {
	Received  int
	Kept      int
	EmptyText int
	Malformed int
	Repaired  int
	Inferred  int
}

// Mode selects how a missing end time is treated.
type Mode int

const (
	// Speech entries need both ends; a missing end drops the entry.
	Speech Mode = iota
	// Subtitles infer a missing end from the following cue.
	Subtitles
)

// Normalize cleans raw speech entries. See NormalizeMode.
func Normalize(raw []Raw) []Entry {
	entries, _ := NormalizeMode(raw, Speech)
	return entries
}

// NormalizeMode drops entries with blank text or unparseable times, clamps
// starts to zero, repairs ranges that do not move forward, and stable-sorts by
// start. An empty result means there is nothing to synchronize.
func NormalizeMode(raw []Raw, mode Mode) ([]Entry, Report) {
	report := Report{Received: len(raw)}
	entries := make([]Entry, 0, len(raw))
	missingEnd := make(map[int]bool)

	for i, r := range raw {
		text := strings.TrimSpace(r.Text)
		if text == "" {
			report.EmptyText++
			continue
		}
		start, err := timecode.ParseValue(r.Start)
		if err != nil {
			report.Malformed++
			continue
		}
		var end float64
		if mode == Subtitles && !r.End.Present() {
			missingEnd[i] = true
		} else {
			end, err = timecode.ParseValue(r.End)
			if err != nil {
				report.Malformed++
				continue
			}
		}
		if start < 0 {
			start = 0
		}
		entries = append(entries, Entry{
			TimedEntry: TimedEntry{Start: start, End: end, Text: text},
			Audio:      r.Payload(),
			Source:     i,
		})
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].Start < entries[b].Start
	})

	for i := range entries {
		e := &entries[i]
		if missingEnd[e.Source] {
			e.End = inferEnd(entries, i)
			report.Inferred++
		} else if e.End <= e.Start {
			e.End = e.Start + MinDuration
			report.Repaired++
		}
		// At large magnitudes the added width can round away.
		if e.End <= e.Start {
			e.End = math.Nextafter(e.Start, math.Inf(1))
		}
	}

	report.Kept = len(entries)
	return entries, report
}

func inferEnd(entries []Entry, i int) float64 {
	start := entries[i].Start
	for _, next := range entries[i+1:] {
		if next.Start > start {
			return next.Start
		}
	}
	if i == len(entries)-1 {
		return start + TrailingCueWidth
	}
	return start + MinDuration
}

// Raws converts normalized entries back into raw input form.
func Raws(entries []Entry) []Raw {
	out := make([]Raw, len(entries))
	for i, e := range entries {
		out[i] = Raw{
			Start: timecode.Seconds(e.Start),
			End:   timecode.Seconds(e.End),
			Text:  e.Text,
			Audio: e.Audio,
		}
	}
	return out
}
