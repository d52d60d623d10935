// internal/session/session.go
//
// Package session implements the manual selection mode: an operator-curated
// list of element references accumulated through pointer interaction,
// independent of heuristic detection. All state lives on the Session object,
// created on mode start and destroyed on close, never at process scope.
package session

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pagehound/pagehound/internal/detect"
	"github.com/pagehound/pagehound/pkg/types"
)

// Mode is the session's interaction mode. Selecting and excluding are
// mutually exclusive; activating one deactivates the other.
type Mode int

const (
	ModeIdle Mode = iota
	ModeSelecting
	ModeExcluding
)

// Event notifies the UI surface of a membership change.
type Event struct {
	Action  string
	Element types.SelectedElement
}

// Membership-change event actions.
const (
	EventSelected   = "elementSelected"
	EventDeselected = "elementDeselected"
	EventExcluded   = "elementExcluded"
	EventUnexcluded = "elementUnexcluded"
)

// Notifier receives membership-change events. May be nil.
type Notifier func(Event)

// Session holds the selection and exclusion sets for one page.
type Session struct {
	doc      *goquery.Document
	mode     Mode
	selected []types.SelectedElement
	excluded []types.SelectedElement
	notify   Notifier
}

// New creates a session over the given document.
func New(doc *goquery.Document, notify Notifier) *Session {
	return &Session{doc: doc, notify: notify}
}

// Mode returns the current interaction mode.
func (s *Session) Mode() Mode { return s.mode }

// StartSelection enters selecting mode, leaving exclusion mode if active.
func (s *Session) StartSelection() { s.mode = ModeSelecting }

// StopSelection returns to idle if currently selecting.
func (s *Session) StopSelection() {
	if s.mode == ModeSelecting {
		s.mode = ModeIdle
	}
}

// StartExclusion enters excluding mode, leaving selection mode if active.
func (s *Session) StartExclusion() { s.mode = ModeExcluding }

// StopExclusion returns to idle if currently excluding.
func (s *Session) StopExclusion() {
	if s.mode == ModeExcluding {
		s.mode = ModeIdle
	}
}

// Selected returns a copy of the selection set.
func (s *Session) Selected() []types.SelectedElement {
	return append([]types.SelectedElement(nil), s.selected...)
}

// Excluded returns a copy of the exclusion set.
func (s *Session) Excluded() []types.SelectedElement {
	return append([]types.SelectedElement(nil), s.excluded...)
}

// Hover highlights the element under the pointer with the marker class of
// the active mode. No-op when idle.
func (s *Session) Hover(el *goquery.Selection) {
	switch s.mode {
	case ModeSelecting:
		detect.HighlightElements(el, detect.SelectionHighlightClass)
	case ModeExcluding:
		detect.HighlightElements(el, detect.ExclusionHighlightClass)
	}
}

// Click toggles membership of the clicked element in the active mode's set,
// keyed by the element's structural selector: clicking an element already in
// the set removes it. Returns the emitted event, or nil when idle.
func (s *Session) Click(el *goquery.Selection) *Event {
	if s.mode == ModeIdle {
		return nil
	}

	entry := types.SelectedElement{
		Selector: StructuralSelector(el),
		Text:     strings.TrimSpace(el.Text()),
		Type:     TypeLabel(el),
	}

	var event Event
	switch s.mode {
	case ModeSelecting:
		if i := indexOf(s.selected, entry.Selector); i >= 0 {
			s.selected = append(s.selected[:i], s.selected[i+1:]...)
			el.RemoveClass(detect.SelectionHighlightClass)
			event = Event{Action: EventDeselected, Element: entry}
		} else {
			s.selected = append(s.selected, entry)
			detect.HighlightElements(el, detect.SelectionHighlightClass)
			event = Event{Action: EventSelected, Element: entry}
		}
	case ModeExcluding:
		if i := indexOf(s.excluded, entry.Selector); i >= 0 {
			s.excluded = append(s.excluded[:i], s.excluded[i+1:]...)
			el.RemoveClass(detect.ExclusionHighlightClass)
			event = Event{Action: EventUnexcluded, Element: entry}
		} else {
			s.excluded = append(s.excluded, entry)
			detect.HighlightElements(el, detect.ExclusionHighlightClass)
			event = Event{Action: EventExcluded, Element: entry}
		}
	}

	if s.notify != nil {
		s.notify(event)
	}
	return &event
}

// ManualDetect reports the structural selector of a single picked element,
// the one-shot "pick an element" flow.
func (s *Session) ManualDetect(el *goquery.Selection) string {
	return StructuralSelector(el)
}

// Close tears the session down: removes every highlight marker from the
// document, clears both sets and forces the mode back to idle.
func (s *Session) Close() {
	detect.ClearHighlights(s.doc)
	detect.ClearExclusionHighlights(s.doc)
	s.selected = nil
	s.excluded = nil
	s.mode = ModeIdle
}

func indexOf(set []types.SelectedElement, selector string) int {
	for i, el := range set {
		if el.Selector == selector {
			return i
		}
	}
	return -1
}
