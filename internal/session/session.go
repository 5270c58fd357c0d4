// Package session hosts timelines for remote players. A player reports its
// clock and audio events; the session answers with the audio commands to apply.
package session

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hyobinnSeo/VoiceSync/internal/playable"
	"github.com/hyobinnSeo/VoiceSync/internal/segment"
	"github.com/hyobinnSeo/VoiceSync/internal/timeline"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSegmentNotFound = errors.New("segment not found")
	ErrClosed          = errors.New("session closed")
	ErrInvalidEvent    = errors.New("invalid event")
)

// EventType names a player event.
type EventType string

// Narration clock events drive the speech engine; subtitle events come from
// the original track's clock; audio events report on a segment's clip.
const (
	EventPosition         EventType = "position"
	EventPlay             EventType = "play"
	EventPause            EventType = "pause"
	EventSeeked           EventType = "seeked"
	EventRateChange       EventType = "ratechange"
	EventEnded            EventType = "ended"
	EventSubtitlePosition EventType = "subtitle_position"
	EventSubtitleSeeked   EventType = "subtitle_seeked"
	EventAudioStarted     EventType = "audio_started"
	EventAudioRejected    EventType = "audio_rejected"
	EventAudioEnded       EventType = "audio_ended"
)

// Event is one report from the player.
type Event struct {
	Type     EventType `json:"type" validate:"required"`
	Position *float64  `json:"position,omitempty"`
	Rate     float64   `json:"rate,omitempty"`
	Segment  int       `json:"segment,omitempty"`
	Attempt  uint64    `json:"attempt,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

// At is a helper for building position-carrying events.
func At(t EventType, position float64) Event {
	return Event{Type: t, Position: &position}
}

// Result is the answer to a batch of events.
type Result struct {
	Commands  []Command           `json:"commands"`
	Subtitles timeline.Visibility `json:"subtitles"`
	Engine    timeline.Snapshot   `json:"engine"`
	Notices   []string            `json:"notices,omitempty"`
}

// Line is a timed text entry as exposed to clients.
type Line struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// State describes a session for clients.
type State struct {
	ID        string            `json:"id"`
	VideoID   string            `json:"video_id,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Speech    []Line            `json:"speech"`
	Subtitles []Line            `json:"subtitles"`
	Engine    timeline.Snapshot `json:"engine"`
	Visible   []int             `json:"visible_subtitles"`
}

// Report summarizes how a session's batch was built.
type Report struct {
	Speech    playable.Report `json:"speech"`
	Subtitles playable.Report `json:"subtitles"`
}

// Options configures a new session.
type Options struct {
	VideoID      string
	SpeakingRate float64
	Logger       logrus.FieldLogger
	Now          func() time.Time
}

// Session owns the timelines of one narrated video. All methods are safe for
// concurrent use; the mutex serializes every engine callback.
type Session struct {
	ID        string
	VideoID   string
	CreatedAt time.Time

	mu        sync.Mutex
	log       logrus.FieldLogger
	now       func() time.Time
	lastSeen  time.Time
	closed    bool
	narration *reportedClock
	original  *reportedClock
	engine    *timeline.Engine
	subtitles *timeline.Subtitles
	handles   []*remoteHandle
	audio     []segment.Payload
	lines     []*playable.Segment
	out       *outbox
	visible   timeline.Visibility
	notices   []string
}

// New builds the speech and subtitle timelines and loads them.
func New(speech, subtitles []segment.Entry, opts Options) (*Session, Report) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		quiet := logrus.New()
		quiet.SetOutput(io.Discard)
		log = quiet
	}

	s := &Session{
		ID:        uuid.NewString(),
		VideoID:   opts.VideoID,
		now:       opts.Now,
		narration: &reportedClock{rate: 1},
		original:  &reportedClock{rate: 1},
		subtitles: timeline.NewSubtitles(),
		out:       &outbox{},
	}
	s.CreatedAt = s.now()
	s.lastSeen = s.CreatedAt
	s.log = log.WithFields(logrus.Fields{"session": s.ID, "video_id": s.VideoID})

	var report Report
	var segments []*playable.Segment
	segments, report.Speech = playable.BuildSpeech(speech, func(index int, e segment.Entry) (playable.AudioHandle, error) {
		h := newRemoteHandle(index, s.out)
		s.handles = append(s.handles, h)
		s.audio = append(s.audio, e.Audio)
		return h, nil
	})
	s.lines, report.Subtitles = playable.BuildSubtitles(subtitles)

	s.engine = timeline.NewEngine(s.narration, s.log)
	s.engine.OnStartRejected = func(index int, err error) {
		s.notices = append(s.notices, fmt.Sprintf("Narration clip %d was blocked by the player; press play to retry.", index+1))
	}
	s.engine.Load(segments, opts.SpeakingRate)
	s.subtitles.Load(s.lines)
	s.visible = s.subtitles.Update(s.original.position, true)

	switch {
	case len(speech) == 0 && len(subtitles) == 0:
		s.notices = append(s.notices, "Nothing to synchronize.")
	case report.Speech.Kept == 0 && len(speech) > 0:
		s.notices = append(s.notices, "No narration clip could be played.")
	}
	s.log.WithFields(logrus.Fields{
		"speech":    report.Speech.Kept,
		"subtitles": report.Subtitles.Kept,
		"dropped":   report.Speech.Unplayable + report.Speech.OpenFailed,
	}).Info("session created")
	return s, report
}

// Apply processes events in order and returns the commands they produced.
// The whole batch is validated first so a bad event applies nothing.
func (s *Session) Apply(events []Event) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Result{}, ErrClosed
	}
	for i, ev := range events {
		if err := s.validate(ev); err != nil {
			return Result{}, fmt.Errorf("event %d: %w", i, err)
		}
	}
	s.lastSeen = s.now()

	scroll := timeline.None
	subtitlesChanged := false
	for _, ev := range events {
		if vis, ok := s.apply(ev); ok {
			if vis.ScrollTo != timeline.None {
				scroll = vis.ScrollTo
			}
			subtitlesChanged = subtitlesChanged || vis.Changed
			s.visible = vis
		}
	}

	vis := s.visible
	vis.ScrollTo = scroll
	vis.Changed = subtitlesChanged
	res := Result{
		Commands:  s.out.drain(),
		Subtitles: vis,
		Engine:    s.engine.Snapshot(),
		Notices:   s.notices,
	}
	s.notices = nil
	return res, nil
}

func (s *Session) validate(ev Event) error {
	switch ev.Type {
	case EventPosition, EventSeeked, EventSubtitlePosition, EventSubtitleSeeked:
		if ev.Position == nil {
			return fmt.Errorf("%w: %s needs a position", ErrInvalidEvent, ev.Type)
		}
	case EventPlay, EventPause, EventEnded:
	case EventRateChange:
		if ev.Rate <= 0 || math.IsInf(ev.Rate, 0) || math.IsNaN(ev.Rate) {
			return fmt.Errorf("%w: rate %v", ErrInvalidEvent, ev.Rate)
		}
	case EventAudioStarted, EventAudioRejected, EventAudioEnded:
		if ev.Segment < 0 || ev.Segment >= len(s.handles) {
			return fmt.Errorf("%w: segment %d", ErrSegmentNotFound, ev.Segment)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, ev.Type)
	}
	if ev.Position != nil && (math.IsNaN(*ev.Position) || math.IsInf(*ev.Position, 0)) {
		return fmt.Errorf("%w: position %v", ErrInvalidEvent, *ev.Position)
	}
	return nil
}

// apply runs one event and reports the subtitle pass it triggered, if any.
func (s *Session) apply(ev Event) (timeline.Visibility, bool) {
	if ev.Position != nil {
		switch ev.Type {
		case EventSubtitlePosition, EventSubtitleSeeked:
			s.original.position = *ev.Position
		default:
			s.narration.position = *ev.Position
		}
	}

	switch ev.Type {
	case EventPosition:
		s.engine.OnPositionUpdate(s.narration.position)
	case EventPlay:
		s.narration.playing = true
		s.engine.OnPlay()
	case EventPause:
		s.narration.playing = false
		s.engine.OnPause()
	case EventSeeked:
		s.engine.OnSeeked()
	case EventRateChange:
		s.narration.rate = ev.Rate
		s.engine.OnRateChange(ev.Rate)
	case EventEnded:
		s.narration.playing = false
		s.engine.OnEnded()
	case EventAudioStarted:
		s.handles[ev.Segment].started(ev.Attempt)
	case EventAudioRejected:
		s.handles[ev.Segment].rejected(ev.Attempt, ev.Reason)
	case EventAudioEnded:
		s.handles[ev.Segment].finished()
	case EventSubtitlePosition:
		return s.subtitles.Update(s.original.position, false), true
	case EventSubtitleSeeked:
		return s.subtitles.Update(s.original.position, true), true
	}
	return timeline.Visibility{}, false
}

// State returns a description of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	speech := s.engine.Segments()
	st := State{
		ID:        s.ID,
		VideoID:   s.VideoID,
		CreatedAt: s.CreatedAt,
		Speech:    make([]Line, len(speech)),
		Subtitles: make([]Line, len(s.lines)),
		Engine:    s.engine.Snapshot(),
		Visible:   s.subtitles.Visible(),
	}
	for i, seg := range speech {
		st.Speech[i] = lineOf(seg)
	}
	for i, seg := range s.lines {
		st.Subtitles[i] = lineOf(seg)
	}
	return st
}

func lineOf(seg *playable.Segment) Line {
	return Line{Index: seg.Index, Start: seg.Start, End: seg.End, Text: seg.Text}
}

// Audio returns the payload of a speech segment.
func (s *Session) Audio(index int) (segment.Payload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return segment.Payload{}, ErrClosed
	}
	if index < 0 || index >= len(s.audio) {
		return segment.Payload{}, fmt.Errorf("%w: %d", ErrSegmentNotFound, index)
	}
	return s.audio[index], nil
}

// Close stops and releases every clip. It is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.engine.Clear()
	s.subtitles.Clear()
	s.closed = true
	s.log.Debug("session closed")
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}
