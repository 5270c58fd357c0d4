package timeline

import (
	"slices"

	"github.com/hyobinnSeo/VoiceSync/internal/playable"
)

// Visibility is the result of one subtitle pass. ScrollTo is the entry that
// just became visible, or None.
type Visibility struct {
	Visible  []int `json:"visible"`
	ScrollTo int   `json:"scroll_to"`
	Forced   bool  `json:"forced"`
	Changed  bool  `json:"changed"`
}

// Subtitles tracks which text-only entries are on screen. Unlike Engine it
// allows any number of entries to be visible at once.
type Subtitles struct {
	entries  []*playable.Segment
	visible  []int
	scrolled int
}

// NewSubtitles returns an empty tracker.
func NewSubtitles() *Subtitles {
	return &Subtitles{scrolled: None}
}

// Load replaces the tracked entries and hides everything.
func (s *Subtitles) Load(entries []*playable.Segment) {
	s.entries = entries
	s.visible = nil
	s.scrolled = None
}

// Clear drops every entry.
func (s *Subtitles) Clear() {
	s.Load(nil)
}

// Len returns the number of tracked entries.
func (s *Subtitles) Len() int {
	return len(s.entries)
}

// Visible returns the indexes currently shown.
func (s *Subtitles) Visible() []int {
	return slices.Clone(s.visible)
}

// LastScrolled returns the most recent entry scrolled into view, or None.
func (s *Subtitles) LastScrolled() int {
	return s.scrolled
}

// Update recomputes visibility at pos. When nothing contains pos and force
// is set, the nearest upcoming entry is shown instead.
func (s *Subtitles) Update(pos float64, force bool) Visibility {
	var next []int
	for i := range Window(s.entries, pos) {
		next = append(next, i)
	}
	forced := false
	if len(next) == 0 && force {
		if i := Upcoming(s.entries, pos); i != None {
			next = []int{i}
			forced = true
		}
	}

	scroll := None
	for _, i := range next {
		if !slices.Contains(s.visible, i) {
			scroll = i
		}
	}
	if scroll != None {
		s.scrolled = scroll
	}
	changed := !slices.Equal(s.visible, next)
	s.visible = next
	return Visibility{Visible: slices.Clone(next), ScrollTo: scroll, Forced: forced, Changed: changed}
}
