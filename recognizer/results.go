package recognizer

import (
	"encoding/json"
	"strings"

	"transcribe/transcript"
)

type deepgramMessage struct {
	Type         string `json:"type"`
	IsFinal      bool   `json:"is_final"`
	SpeechFinal  bool   `json:"speech_final"`
	FromFinalize bool   `json:"from_finalize"`
	Channel      struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

type update struct {
	Text         string
	IsFinal      bool
	FromFinalize bool
}

// parseMessage decodes one server message. ok is false for message types
// that carry no transcript (Metadata, SpeechStarted, UtteranceEnd).
func parseMessage(data []byte) (u update, ok bool, err error) {
	var msg deepgramMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return update{}, false, err
	}
	if msg.Type != "" && msg.Type != "Results" {
		return update{}, false, nil
	}
	text := ""
	if len(msg.Channel.Alternatives) > 0 {
		text = strings.TrimSpace(msg.Channel.Alternatives[0].Transcript)
	}
	return update{
		Text:         text,
		IsFinal:      msg.IsFinal || msg.SpeechFinal || msg.FromFinalize,
		FromFinalize: msg.FromFinalize,
	}, true, nil
}

// resultList mirrors a host recognizer result list: finals accumulate and
// the trailing interim is replaced by each new hypothesis.
type resultList struct {
	finals  []string
	interim string
}

// apply folds u into the list and returns the event to deliver. Empty
// finals are silence and produce no event.
func (r *resultList) apply(u update) (transcript.Event, bool) {
	resume := len(r.finals)
	if u.IsFinal {
		if u.Text == "" {
			if r.interim == "" {
				return transcript.Event{}, false
			}
			r.interim = ""
			return r.event(resume), true
		}
		r.finals = append(r.finals, u.Text)
		r.interim = ""
		return r.event(resume), true
	}
	if u.Text == r.interim {
		return transcript.Event{}, false
	}
	r.interim = u.Text
	return r.event(resume), true
}

func (r *resultList) event(resume int) transcript.Event {
	segs := make([]transcript.Segment, 0, len(r.finals)+1)
	for _, f := range r.finals {
		segs = append(segs, transcript.Segment{Text: f, IsFinal: true})
	}
	// Keep a trailing interim slot so a cleared preview still has a window.
	if resume == len(r.finals) || r.interim != "" {
		segs = append(segs, transcript.Segment{Text: r.interim})
	}
	return transcript.Event{ResumeIndex: resume, Segments: segs}
}
