package transcript

import "strings"

// Segment is one recognizer hypothesis within an Event.
type Segment struct {
	Text    string
	IsFinal bool
}

// Event is a single result callback from a recognizer. The recognizer may
// re-deliver a window of earlier segments; only Segments[ResumeIndex:] are new.
type Event struct {
	ResumeIndex int
	Segments    []Segment
}

// window returns the new suffix of the event, or nil when ResumeIndex is out of range.
func (e Event) window() []Segment {
	if e.ResumeIndex < 0 || e.ResumeIndex >= len(e.Segments) {
		return nil
	}
	return e.Segments[e.ResumeIndex:]
}

// HasNew reports whether the event carries any new segments. Applying an
// event without them changes nothing.
func (e Event) HasNew() bool { return len(e.window()) > 0 }

// Accumulator folds recognizer events into a growing transcript. Committed
// chunks are append-only until Reset. It is not safe for concurrent use;
// callers apply events from a single goroutine.
type Accumulator struct {
	committed     []string
	lastCommitted string
	joined        strings.Builder
	text          string
}

func New() *Accumulator {
	return &Accumulator{}
}

// Apply merges ev and returns the text to display.
//
// Within the event only the last final and the last interim segment count.
// A final equal to the previously committed chunk is dropped, since hosts
// re-deliver the same final across consecutive callbacks.
func (a *Accumulator) Apply(ev Event) string {
	segs := ev.window()
	if len(segs) == 0 {
		return a.text
	}

	var final, interim string
	for _, s := range segs {
		if s.IsFinal {
			final = s.Text
		} else {
			interim = s.Text
		}
	}

	if final != "" && final != a.lastCommitted {
		a.committed = append(a.committed, final)
		a.joined.WriteString(final)
		a.joined.WriteByte(' ')
		a.lastCommitted = final
		a.text = strings.TrimSpace(a.joined.String())
		return a.text
	}

	a.text = strings.TrimSpace(a.joined.String() + interim)
	return a.text
}

// Reset drops all committed chunks and the preview.
func (a *Accumulator) Reset() {
	a.committed = nil
	a.lastCommitted = ""
	a.joined.Reset()
	a.text = ""
}

// Text is the display text after the last Apply.
func (a *Accumulator) Text() string { return a.text }

// Committed returns a copy of the finalized chunks in commit order.
func (a *Accumulator) Committed() []string {
	out := make([]string, len(a.committed))
	copy(out, a.committed)
	return out
}

func (a *Accumulator) Len() int { return len(a.committed) }

// LastCommitted is the most recent final chunk, used for duplicate suppression.
func (a *Accumulator) LastCommitted() string { return a.lastCommitted }
