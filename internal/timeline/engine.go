package timeline

import (
	"io"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/hyobinnSeo/VoiceSync/internal/playable"
)

// Clock is the video element driving a timeline.
type Clock interface {
	CurrentPosition() float64
	IsPlaying() bool
	CurrentRate() float64
}

// State is the engine lifecycle state.
type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// Snapshot is a copy of the engine session state.
type Snapshot struct {
	State          string  `json:"state"`
	ActiveIndex    int     `json:"active_index"`
	Playing        bool    `json:"playing"`
	LastPosition   float64 `json:"last_position"`
	RateMultiplier float64 `json:"rate_multiplier"`
	Played         []bool  `json:"played"`
}

// Engine plays at most one speech segment at a time, chosen from the clock
// position. It has no goroutines of its own and is not safe for concurrent
// use: every callback must be serialized by the caller.
type Engine struct {
	clock Clock
	log   logrus.FieldLogger

	segments     []*playable.Segment
	attempts     []uint64
	generation   uint64
	state        State
	active       int
	playing      bool
	lastPosition float64
	multiplier   float64

	// OnStartRejected is told about every refused start, for advisory messages.
	OnStartRejected func(index int, err error)
}

// NewEngine returns an idle engine bound to clock.
func NewEngine(clock Clock, log logrus.FieldLogger) *Engine {
	if log == nil {
		quiet := logrus.New()
		quiet.SetOutput(io.Discard)
		log = quiet
	}
	return &Engine{clock: clock, log: log, active: None, multiplier: 1}
}

// Load replaces the timeline. speakingRate scales the clock rate for every
// clip of the batch; non-positive values mean 1. An empty timeline leaves the
// engine idle.
func (e *Engine) Load(segments []*playable.Segment, speakingRate float64) {
	e.Clear()
	if len(segments) == 0 {
		return
	}
	if speakingRate <= 0 || math.IsNaN(speakingRate) || math.IsInf(speakingRate, 0) {
		speakingRate = 1
	}
	e.segments = segments
	e.attempts = make([]uint64, len(segments))
	e.multiplier = speakingRate
	e.playing = e.clock.IsPlaying()
	e.lastPosition = e.clock.CurrentPosition()
	e.state = Active

	gen := e.generation
	for i, s := range segments {
		s.HasPlayed = false
		s.Audio.OnEnded(func() { e.clipEnded(gen, i) })
	}
	e.applyRate(e.clock.CurrentRate())
	e.log.WithFields(logrus.Fields{"segments": len(segments), "speaking_rate": speakingRate}).Debug("timeline loaded")
}

// Clear stops and releases every clip and returns the engine to idle.
func (e *Engine) Clear() {
	playable.Release(e.segments)
	e.segments = nil
	e.attempts = nil
	e.generation++
	e.state = Idle
	e.active = None
	e.playing = false
	e.multiplier = 1
	e.lastPosition = 0
}

// State reports whether a timeline is loaded.
func (e *Engine) State() State {
	return e.state
}

// ActiveIndex returns the playing segment, or None.
func (e *Engine) ActiveIndex() int {
	return e.active
}

// Segments returns the loaded timeline.
func (e *Engine) Segments() []*playable.Segment {
	return e.segments
}

// Snapshot copies the current session state.
func (e *Engine) Snapshot() Snapshot {
	played := make([]bool, len(e.segments))
	for i, s := range e.segments {
		played[i] = s.HasPlayed
	}
	return Snapshot{
		State:          e.state.String(),
		ActiveIndex:    e.active,
		Playing:        e.playing,
		LastPosition:   e.lastPosition,
		RateMultiplier: e.multiplier,
		Played:         played,
	}
}

// OnPositionUpdate is the primary tick, fired continuously as the clock advances.
func (e *Engine) OnPositionUpdate(pos float64) {
	if e.state != Active || math.IsNaN(pos) {
		return
	}
	defer func() { e.lastPosition = pos }()

	rewound := pos+Tolerance < e.lastPosition
	jumped := pos-Tolerance > e.lastPosition+Tolerance
	switch {
	case rewound:
		for _, s := range e.segments {
			if s.Start+Tolerance >= pos {
				s.HasPlayed = false
			}
		}
	case jumped:
		for _, s := range e.segments {
			if s.End+Tolerance < pos {
				s.HasPlayed = true
			}
		}
	}
	if (rewound || jumped) && e.active != None && !Contains(e.segments[e.active], pos) {
		e.stop(e.active)
		e.active = None
	}

	if !e.playing {
		if e.active != None && !e.segments[e.active].Audio.Paused() {
			e.segments[e.active].Audio.Pause()
		}
		return
	}

	candidate := None
	for i, s := range Window(e.segments, pos) {
		if !s.HasPlayed {
			candidate = i
			break
		}
	}

	switch {
	case candidate == None && e.active == None:
	case candidate == None || candidate == e.active:
		current := e.segments[e.active]
		current.HasPlayed = true
		if current.Audio.Paused() {
			e.play(e.active)
		}
	default:
		e.start(candidate, pos)
	}
}

// OnPlay marks the clock as running and re-evaluates at its position.
func (e *Engine) OnPlay() {
	e.playing = true
	e.OnPositionUpdate(e.clock.CurrentPosition())
}

// OnPause marks the clock as stopped; the active clip is paused, not reset.
func (e *Engine) OnPause() {
	e.playing = false
	e.OnPositionUpdate(e.clock.CurrentPosition())
}

// OnSeeked handles an explicit seek. The active clip is stopped at once and
// every clip rewound without touching HasPlayed, so no stale audio outlives
// the seek. The active clip survives only if the new position is inside it,
// in which case the following tick restarts it.
func (e *Engine) OnSeeked() {
	if e.state != Active {
		return
	}
	pos := e.clock.CurrentPosition()
	if e.active != None {
		e.stop(e.active)
		if !Contains(e.segments[e.active], pos) {
			e.active = None
		}
	}
	for _, s := range e.segments {
		s.Audio.Reset()
	}
	e.log.WithField("position", pos).Debug("seek")
	e.OnPositionUpdate(pos)
}

// OnRateChange propagates the clock rate, scaled by the speaking rate, to
// every clip so later clips start at the right speed.
func (e *Engine) OnRateChange(rate float64) {
	e.applyRate(rate)
}

// OnEnded stops everything at the end of media.
func (e *Engine) OnEnded() {
	for i := range e.segments {
		e.stop(i)
	}
	e.active = None
	e.playing = false
	e.lastPosition = e.clock.CurrentPosition()
}

func (e *Engine) applyRate(rate float64) {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		e.log.WithField("rate", rate).Debug("ignoring playback rate")
		return
	}
	for _, s := range e.segments {
		s.Audio.SetPlaybackRate(rate * e.multiplier)
	}
}

func (e *Engine) start(i int, pos float64) {
	if e.active != None {
		e.stop(e.active)
	}
	s := e.segments[i]
	s.Audio.Reset()
	s.HasPlayed = true
	e.active = i
	e.log.WithFields(logrus.Fields{"segment": i, "position": pos}).Debug("segment start")
	e.play(i)
}

func (e *Engine) play(i int) {
	e.attempts[i]++
	attempt, gen := e.attempts[i], e.generation
	e.segments[i].Audio.Play(func(err error) {
		if err != nil {
			e.startFailed(gen, i, attempt, err)
		}
	})
}

// stop pauses and rewinds a clip and invalidates any start still in flight.
func (e *Engine) stop(i int) {
	s := e.segments[i]
	s.Audio.Pause()
	s.Audio.Reset()
	e.attempts[i]++
}

func (e *Engine) startFailed(gen uint64, i int, attempt uint64, err error) {
	if gen != e.generation || e.attempts[i] != attempt {
		return
	}
	e.segments[i].HasPlayed = false
	if e.active == i {
		e.active = None
	}
	e.log.WithError(err).WithField("segment", i).Warn("segment start rejected")
	if e.OnStartRejected != nil {
		e.OnStartRejected(i, err)
	}
}

func (e *Engine) clipEnded(gen uint64, i int) {
	if gen != e.generation {
		return
	}
	if e.active == i {
		e.active = None
	}
}
