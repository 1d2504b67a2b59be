package app

import (
	"transcribe/synth"
	"transcribe/transcript"
)

// Msg is a host notification routed to the owner loop. Each carries the
// recording session or utterance it belongs to so stale deliveries can be
// dropped.
type Msg interface{ appMsg() }

type ResultMsg struct {
	Session uint64
	Event   transcript.Event
}

type RecognitionErrorMsg struct {
	Session uint64
	Err     error
}

type RecognitionEndMsg struct {
	Session uint64
}

type VoicesChangedMsg struct {
	Voices []synth.Voice
}

type SpeechEndMsg struct {
	ID uint64
}

func (ResultMsg) appMsg()           {}
func (RecognitionErrorMsg) appMsg() {}
func (RecognitionEndMsg) appMsg()   {}
func (VoicesChangedMsg) appMsg()    {}
func (SpeechEndMsg) appMsg()        {}

// Cue names an audible recording cue.
type Cue int

const (
	CueStart Cue = iota
	CueEnd
	CueError
)
