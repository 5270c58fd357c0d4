package session

import (
	"fmt"

	"github.com/hyobinnSeo/VoiceSync/internal/playable"
)

// Command operations sent to the player.
const (
	OpReset   = "reset"
	OpPlay    = "play"
	OpPause   = "pause"
	OpRate    = "rate"
	OpRelease = "release"
)

// Command is one instruction for the player's audio element of a segment.
// Play commands carry an attempt id the player echoes back in its
// started/rejected report.
type Command struct {
	Seq     uint64  `json:"seq"`
	Segment int     `json:"segment"`
	Op      string  `json:"op"`
	Rate    float64 `json:"rate,omitempty"`
	Attempt uint64  `json:"attempt,omitempty"`
}

type outbox struct {
	seq      uint64
	commands []Command
}

func (o *outbox) push(c Command) {
	o.seq++
	c.Seq = o.seq
	o.commands = append(o.commands, c)
}

func (o *outbox) drain() []Command {
	out := o.commands
	o.commands = nil
	if out == nil {
		out = []Command{}
	}
	return out
}

// reportedClock is the player's video element as last described by its events.
type reportedClock struct {
	position float64
	playing  bool
	rate     float64
}

func (c *reportedClock) CurrentPosition() float64 { return c.position }
func (c *reportedClock) IsPlaying() bool          { return c.playing }
func (c *reportedClock) CurrentRate() float64     { return c.rate }

// remoteHandle is an audio element living in the player. Every call becomes
// a command; Play completes when the player reports the outcome.
type remoteHandle struct {
	index    int
	out      *outbox
	paused   bool
	rate     float64
	released bool

	attempt uint64
	pending func(error)
	ended   func()
}

var _ playable.AudioHandle = (*remoteHandle)(nil)

func newRemoteHandle(index int, out *outbox) *remoteHandle {
	return &remoteHandle{index: index, out: out, paused: true}
}

func (h *remoteHandle) Reset() {
	h.send(Command{Op: OpReset})
}

func (h *remoteHandle) Play(done func(error)) {
	h.attempt++
	h.paused = false
	h.pending = done
	h.send(Command{Op: OpPlay, Attempt: h.attempt})
}

func (h *remoteHandle) Pause() {
	h.paused = true
	h.send(Command{Op: OpPause})
}

func (h *remoteHandle) Paused() bool {
	return h.paused
}

func (h *remoteHandle) SetPlaybackRate(rate float64) {
	if rate == h.rate {
		return
	}
	h.rate = rate
	h.send(Command{Op: OpRate, Rate: rate})
}

func (h *remoteHandle) OnEnded(fn func()) {
	h.ended = fn
}

func (h *remoteHandle) Release() {
	if h.released {
		return
	}
	h.send(Command{Op: OpRelease})
	h.released = true
	h.pending = nil
	h.ended = nil
}

func (h *remoteHandle) send(c Command) {
	if h.released {
		return
	}
	c.Segment = h.index
	h.out.push(c)
}

// started completes the play attempt the player confirmed.
func (h *remoteHandle) started(attempt uint64) {
	if done := h.take(attempt); done != nil {
		done(nil)
	}
}

// rejected completes the play attempt the player refused.
func (h *remoteHandle) rejected(attempt uint64, reason string) {
	done := h.take(attempt)
	if done == nil {
		return
	}
	h.paused = true
	if reason == "" {
		reason = "refused by player"
	}
	done(fmt.Errorf("segment %d: %w: %s", h.index, playable.ErrStartRejected, reason))
}

func (h *remoteHandle) finished() {
	h.paused = true
	if h.ended != nil {
		h.ended()
	}
}

func (h *remoteHandle) take(attempt uint64) func(error) {
	if attempt != h.attempt || h.pending == nil {
		return nil
	}
	done := h.pending
	h.pending = nil
	return done
}
