package timeline

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/hyobinnSeo/VoiceSync/internal/playable"
	"github.com/hyobinnSeo/VoiceSync/internal/segment"
)

type fakeClock struct {
	pos     float64
	playing bool
	rate    float64
}

func (c *fakeClock) CurrentPosition() float64 { return c.pos }
func (c *fakeClock) IsPlaying() bool          { return c.playing }
func (c *fakeClock) CurrentRate() float64     { return c.rate }

type recorder struct {
	calls []string
}

func (r *recorder) take() []string {
	calls := r.calls
	r.calls = nil
	return calls
}

type fakeHandle struct {
	id       int
	rec      *recorder
	paused   bool
	rate     float64
	ended    func()
	reject   error
	released bool
	plays    int
}

func (h *fakeHandle) log(op string) { h.rec.calls = append(h.rec.calls, fmt.Sprintf("%d:%s", h.id, op)) }

func (h *fakeHandle) Reset() { h.log("reset") }

func (h *fakeHandle) Play(done func(error)) {
	h.log("play")
	h.plays++
	if h.reject != nil {
		h.paused = true
		done(h.reject)
		return
	}
	h.paused = false
	done(nil)
}

func (h *fakeHandle) Pause() {
	h.paused = true
	h.log("pause")
}

func (h *fakeHandle) Paused() bool                { return h.paused }
func (h *fakeHandle) SetPlaybackRate(rate float64) { h.rate = rate }
func (h *fakeHandle) OnEnded(fn func())            { h.ended = fn }
func (h *fakeHandle) Release()                     { h.released = true }

func newTimeline(spans ...[2]float64) ([]*playable.Segment, []*fakeHandle, *recorder) {
	rec := &recorder{}
	segments := make([]*playable.Segment, len(spans))
	handles := make([]*fakeHandle, len(spans))
	for i, sp := range spans {
		handles[i] = &fakeHandle{id: i, rec: rec, paused: true}
		segments[i] = &playable.Segment{
			TimedEntry: segment.TimedEntry{Start: sp[0], End: sp[1], Text: fmt.Sprintf("s%d", i)},
			Index:      i,
			Audio:      handles[i],
		}
	}
	return segments, handles, rec
}

func activeCount(segments []*playable.Segment) int {
	n := 0
	for _, s := range segments {
		if !s.Audio.Paused() {
			n++
		}
	}
	return n
}

func TestEngineBoundaryHandoff(t *testing.T) {
	clock := &fakeClock{rate: 1}
	segments, _, rec := newTimeline([2]float64{0, 1}, [2]float64{1, 2})
	e := NewEngine(clock, nil)
	e.Load(segments, 1)

	e.OnPositionUpdate(0)
	if calls := rec.take(); len(calls) != 0 {
		t.Fatalf("paused clock started audio: %v", calls)
	}

	clock.pos, clock.playing = 0.05, true
	e.OnPlay()
	if e.ActiveIndex() != 0 {
		t.Fatalf("active = %d at 0.05, want 0", e.ActiveIndex())
	}
	if calls := rec.take(); !slices.Equal(calls, []string{"0:reset", "0:play"}) {
		t.Errorf("calls at 0.05 = %v", calls)
	}

	e.OnPositionUpdate(0.5)
	if calls := rec.take(); len(calls) != 0 {
		t.Errorf("calls at 0.5 = %v", calls)
	}

	e.OnPositionUpdate(1.0)
	if e.ActiveIndex() != 1 {
		t.Fatalf("active = %d at 1.0, want 1", e.ActiveIndex())
	}
	want := []string{"0:pause", "0:reset", "1:reset", "1:play"}
	if calls := rec.take(); !slices.Equal(calls, want) {
		t.Errorf("calls at 1.0 = %v, want %v", calls, want)
	}
	if n := activeCount(segments); n != 1 {
		t.Errorf("%d clips audible, want 1", n)
	}
}

func TestEngineForwardJumpSkipsPassedSegments(t *testing.T) {
	clock := &fakeClock{pos: 0.5, playing: true, rate: 1}
	segments, handles, _ := newTimeline([2]float64{1, 2}, [2]float64{3, 4}, [2]float64{12, 13})
	e := NewEngine(clock, nil)
	e.Load(segments, 1)

	e.OnPositionUpdate(0.5)
	e.OnPositionUpdate(10.0)

	for i, h := range handles {
		if h.plays != 0 {
			t.Errorf("segment %d played %d times", i, h.plays)
		}
	}
	if !segments[0].HasPlayed || !segments[1].HasPlayed {
		t.Errorf("passed segments not marked played: %v", e.Snapshot().Played)
	}
	if segments[2].HasPlayed {
		t.Errorf("upcoming segment marked played")
	}
	if e.ActiveIndex() != None {
		t.Errorf("active = %d, want none", e.ActiveIndex())
	}
}

func TestEngineSeekRestartsActiveSegment(t *testing.T) {
	clock := &fakeClock{playing: true, rate: 1}
	segments, handles, rec := newTimeline([2]float64{0, 1}, [2]float64{1, 2})
	e := NewEngine(clock, nil)
	e.Load(segments, 1)

	e.OnPositionUpdate(0)
	e.OnPositionUpdate(0.4)
	e.OnPositionUpdate(0.8)
	rec.take()

	clock.pos = 0.5
	e.OnSeeked()

	want := []string{"0:pause", "0:reset", "0:reset", "1:reset", "0:play"}
	if calls := rec.take(); !slices.Equal(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
	if e.ActiveIndex() != 0 || handles[0].Paused() {
		t.Errorf("segment 0 not restarted: active=%d paused=%v", e.ActiveIndex(), handles[0].Paused())
	}
}

func TestEngineSeekOutsideActiveStops(t *testing.T) {
	clock := &fakeClock{playing: true, rate: 1}
	segments, handles, _ := newTimeline([2]float64{0, 1}, [2]float64{5, 6})
	e := NewEngine(clock, nil)
	e.Load(segments, 1)
	e.OnPositionUpdate(0.2)

	clock.pos = 3
	e.OnSeeked()
	if e.ActiveIndex() != None || !handles[0].Paused() {
		t.Errorf("active = %d, paused = %v", e.ActiveIndex(), handles[0].Paused())
	}
	if !segments[0].HasPlayed {
		t.Errorf("forward seek should mark the passed segment played")
	}
}

func TestEngineRejectedStartRetries(t *testing.T) {
	clock := &fakeClock{playing: true, rate: 1}
	segments, handles, _ := newTimeline([2]float64{0, 1})
	handles[0].reject = fmt.Errorf("autoplay: %w", playable.ErrStartRejected)

	e := NewEngine(clock, nil)
	var rejected []int
	e.OnStartRejected = func(index int, err error) {
		if !errors.Is(err, playable.ErrStartRejected) {
			t.Errorf("err = %v", err)
		}
		rejected = append(rejected, index)
	}
	e.Load(segments, 1)

	e.OnPositionUpdate(0.2)
	if e.ActiveIndex() != None || segments[0].HasPlayed {
		t.Fatalf("after rejection active=%d played=%v", e.ActiveIndex(), segments[0].HasPlayed)
	}
	if !slices.Equal(rejected, []int{0}) {
		t.Errorf("rejected = %v", rejected)
	}

	handles[0].reject = nil
	e.OnPositionUpdate(0.3)
	if e.ActiveIndex() != 0 || !segments[0].HasPlayed || handles[0].plays != 2 {
		t.Errorf("retry: active=%d played=%v plays=%d", e.ActiveIndex(), segments[0].HasPlayed, handles[0].plays)
	}
}

func TestEngineStaleRejectionIgnored(t *testing.T) {
	clock := &fakeClock{playing: true, rate: 1}
	segments, _, rec := newTimeline([2]float64{0, 1}, [2]float64{1, 2})
	var pending func(error)
	async := &asyncHandle{fakeHandle: fakeHandle{id: 0, rec: rec, paused: true}, hold: &pending}
	segments[0].Audio = async

	e := NewEngine(clock, nil)
	e.Load(segments, 1)
	e.OnPositionUpdate(0.5)
	e.OnPositionUpdate(1.0)
	if e.ActiveIndex() != 1 {
		t.Fatalf("active = %d, want 1", e.ActiveIndex())
	}

	pending(playable.ErrStartRejected)
	if e.ActiveIndex() != 1 || !segments[0].HasPlayed {
		t.Errorf("late rejection changed state: active=%d played=%v", e.ActiveIndex(), segments[0].HasPlayed)
	}
}

type asyncHandle struct {
	fakeHandle
	hold *func(error)
}

func (h *asyncHandle) Play(done func(error)) {
	h.log("play")
	h.paused = false
	*h.hold = done
}

func TestEngineRewindReplays(t *testing.T) {
	clock := &fakeClock{playing: true, rate: 1}
	segments, handles, _ := newTimeline([2]float64{0, 1}, [2]float64{2, 3})
	e := NewEngine(clock, nil)
	e.Load(segments, 1)

	for _, pos := range []float64{0, 0.5, 1.0, 1.5, 2.0, 2.5} {
		e.OnPositionUpdate(pos)
	}
	if e.ActiveIndex() != 1 {
		t.Fatalf("active = %d, want 1", e.ActiveIndex())
	}

	e.OnPositionUpdate(0.2)
	if e.ActiveIndex() != None {
		t.Fatalf("rewind left active = %d", e.ActiveIndex())
	}
	if !handles[1].Paused() {
		t.Errorf("segment 1 still audible after rewind")
	}
	if segments[1].HasPlayed {
		t.Errorf("segment 1 should be replayable after rewind")
	}
	if !segments[0].HasPlayed {
		t.Errorf("segment 0 was already started before 0.2 and must not replay")
	}

	e.OnPositionUpdate(2.05)
	e.OnPositionUpdate(2.1)
	if e.ActiveIndex() != 1 || handles[1].plays != 2 {
		t.Errorf("replay: active=%d plays=%d", e.ActiveIndex(), handles[1].plays)
	}
}

func TestEnginePauseAndResume(t *testing.T) {
	clock := &fakeClock{playing: true, rate: 1}
	segments, handles, rec := newTimeline([2]float64{0, 2})
	e := NewEngine(clock, nil)
	e.Load(segments, 1)
	clock.pos = 0.5
	e.OnPositionUpdate(clock.pos)
	rec.take()

	clock.playing = false
	e.OnPause()
	if calls := rec.take(); !slices.Equal(calls, []string{"0:pause"}) {
		t.Errorf("pause calls = %v", calls)
	}
	if e.ActiveIndex() != 0 {
		t.Errorf("pause cleared active")
	}

	clock.playing = true
	e.OnPlay()
	if calls := rec.take(); !slices.Equal(calls, []string{"0:play"}) {
		t.Errorf("resume calls = %v", calls)
	}
	if handles[0].Paused() {
		t.Errorf("segment not resumed")
	}
}

func TestEngineRatePropagation(t *testing.T) {
	clock := &fakeClock{rate: 1.5}
	segments, handles, _ := newTimeline([2]float64{0, 1}, [2]float64{1, 2})
	speaking := 1.2
	e := NewEngine(clock, nil)
	e.Load(segments, speaking)
	for i, h := range handles {
		if h.rate != clock.rate*speaking {
			t.Errorf("handle %d rate = %v after load", i, h.rate)
		}
	}

	changed := 2.0
	e.OnRateChange(changed)
	e.OnRateChange(0)
	for i, h := range handles {
		if h.rate != changed*speaking {
			t.Errorf("handle %d rate = %v after change", i, h.rate)
		}
	}
}

func TestEngineClipEndedClearsActive(t *testing.T) {
	clock := &fakeClock{playing: true, rate: 1}
	segments, handles, _ := newTimeline([2]float64{0, 1}, [2]float64{3, 4})
	e := NewEngine(clock, nil)
	e.Load(segments, 1)
	e.OnPositionUpdate(0.1)

	handles[0].paused = true
	handles[0].ended()
	if e.ActiveIndex() != None {
		t.Errorf("active = %d after clip ended", e.ActiveIndex())
	}
	e.OnPositionUpdate(0.5)
	if handles[0].plays != 1 {
		t.Errorf("finished clip replayed: plays = %d", handles[0].plays)
	}
}

func TestEngineMediaEnded(t *testing.T) {
	clock := &fakeClock{playing: true, rate: 1}
	segments, handles, _ := newTimeline([2]float64{0, 1})
	e := NewEngine(clock, nil)
	e.Load(segments, 1)
	e.OnPositionUpdate(0.5)

	clock.pos, clock.playing = 1, false
	e.OnEnded()
	snap := e.Snapshot()
	if snap.ActiveIndex != None || snap.Playing || !handles[0].Paused() {
		t.Errorf("snapshot after end = %+v", snap)
	}
}

func TestEngineClearReleasesHandles(t *testing.T) {
	clock := &fakeClock{playing: true, rate: 1}
	segments, handles, _ := newTimeline([2]float64{0, 1})
	e := NewEngine(clock, nil)
	e.Load(segments, 1)
	e.OnPositionUpdate(0.5)
	ended := handles[0].ended

	next, _, _ := newTimeline([2]float64{0, 1})
	e.Load(next, 1)
	if !handles[0].released || !handles[0].Paused() {
		t.Errorf("old handle not released")
	}
	e.OnPositionUpdate(0.5)
	ended()
	if e.ActiveIndex() != 0 {
		t.Errorf("ended event from a released clip cleared the new timeline")
	}

	e.Load(next, 1.5)
	e.OnPositionUpdate(0.5)
	e.Clear()
	if e.State() != Idle || len(e.Segments()) != 0 {
		t.Errorf("clear left state %v with %d segments", e.State(), len(e.Segments()))
	}
	snap := e.Snapshot()
	if snap.ActiveIndex != None || snap.Playing || snap.RateMultiplier != 1 || snap.LastPosition != 0 {
		t.Errorf("snapshot after clear = %+v", snap)
	}
	e.OnPositionUpdate(0.5)
}

func TestEngineOverlapAtMostOneActive(t *testing.T) {
	clock := &fakeClock{playing: true, rate: 1}
	segments, _, _ := newTimeline([2]float64{0, 3}, [2]float64{1, 2}, [2]float64{1.5, 4})
	e := NewEngine(clock, nil)
	e.Load(segments, 1)
	for pos := 0.0; pos <= 4.5; pos += 0.05 {
		e.OnPositionUpdate(pos)
		if n := activeCount(segments); n > 1 {
			t.Fatalf("%d clips audible at %.2f", n, pos)
		}
	}
}

func TestEnginePausedTicksPauseOnce(t *testing.T) {
	clock := &fakeClock{pos: 0.05, playing: true, rate: 1}
	segments, _, rec := newTimeline([2]float64{0, 2})
	e := NewEngine(clock, nil)
	e.Load(segments, 1)
	e.OnPlay()
	rec.take()

	clock.playing = false
	e.OnPause()
	e.OnPositionUpdate(0.05)
	e.OnPositionUpdate(0.05)
	if calls := rec.take(); !slices.Equal(calls, []string{"0:pause"}) {
		t.Errorf("calls while paused = %v, want a single pause", calls)
	}

	clock.playing = true
	e.OnPlay()
	if calls := rec.take(); !slices.Equal(calls, []string{"0:play"}) {
		t.Errorf("calls on resume = %v", calls)
	}
}

// A later entry that starts inside a longer one takes over; the cut clip is
// not resumed once the later one finishes.
func TestEngineOverlapLaterEntryPreempts(t *testing.T) {
	clock := &fakeClock{playing: true, rate: 1}
	segments, handles, rec := newTimeline([2]float64{0, 3}, [2]float64{0.5, 1})
	e := NewEngine(clock, nil)
	e.Load(segments, 1)

	e.OnPositionUpdate(0.05)
	e.OnPositionUpdate(0.3)
	if e.ActiveIndex() != 0 {
		t.Fatalf("active = %d at 0.3, want 0", e.ActiveIndex())
	}
	e.OnPositionUpdate(0.45)
	if e.ActiveIndex() != 1 {
		t.Fatalf("active = %d at 0.45, want 1", e.ActiveIndex())
	}
	want := []string{"0:reset", "0:play", "0:pause", "0:reset", "1:reset", "1:play"}
	if calls := rec.take(); !slices.Equal(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}

	for _, pos := range []float64{0.55, 0.65, 0.75, 0.85, 0.95, 1.05, 1.15, 1.2} {
		e.OnPositionUpdate(pos)
	}
	if e.ActiveIndex() != 1 {
		t.Errorf("active = %d after window, want the clip to keep playing", e.ActiveIndex())
	}
	handles[1].ended()
	for _, pos := range []float64{1.3, 1.5, 1.7, 1.9, 2.1, 2.3, 2.5, 2.7, 2.9} {
		e.OnPositionUpdate(pos)
	}
	if e.ActiveIndex() != None || handles[0].plays != 1 {
		t.Errorf("active = %d, first clip plays = %d; want none and 1", e.ActiveIndex(), handles[0].plays)
	}
	if calls := rec.take(); len(calls) != 0 {
		t.Errorf("calls after preemption = %v", calls)
	}
}

func TestEngineEmptyTimelineIdles(t *testing.T) {
	clock := &fakeClock{playing: true, rate: 1}
	e := NewEngine(clock, nil)
	e.Load(nil, 1.5)
	if e.State() != Idle || e.ActiveIndex() != None {
		t.Fatalf("state = %v active = %d", e.State(), e.ActiveIndex())
	}
	e.OnPlay()
	e.OnPositionUpdate(1)
	e.OnSeeked()
	e.OnRateChange(2)
	e.OnEnded()
	if snap := e.Snapshot(); snap.State != Idle.String() || len(snap.Played) != 0 {
		t.Errorf("snapshot = %+v", snap)
	}
}
