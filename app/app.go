// Package app holds the transcribe component: the recording and playback
// state machines, the editable texts and the settings form. It is owned by
// a single goroutine; host callbacks are turned into Msgs and come back in
// through Handle.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"transcribe/clipboard"
	"transcribe/log"
	"transcribe/playback"
	"transcribe/recognizer"
	"transcribe/settings"
	"transcribe/synth"
	"transcribe/textfile"
	"transcribe/transcript"
)

var ErrNoClipboard = errors.New("clipboard not available")

type Options struct {
	Settings  settings.Settings
	ExportDir string
	Clipboard clipboard.Clipboard
	Cue       func(Cue)
}

type App struct {
	rec    recognizer.Recognizer
	syn    synth.Synthesizer
	player *playback.Controller
	acc    *transcript.Accumulator

	clip      clipboard.Clipboard
	exportDir string
	cue       func(Cue)

	settings   settings.Settings
	recording  bool
	session    uint64
	sessionID  string
	transcript string
	speakText  string
	status     string

	post func(Msg)
}

// New builds the component. rec and syn may be nil when the platform has
// no such capability.
func New(rec recognizer.Recognizer, syn synth.Synthesizer, opts Options) *App {
	s := opts.Settings
	if !settings.IsLanguage(s.Language) {
		s.Language = settings.DefaultLanguage
	}
	s.Rate = settings.ClampRate(s.Rate)
	s.Pitch = settings.ClampPitch(s.Pitch)
	return &App{
		rec:       rec,
		syn:       syn,
		player:    playback.New(syn),
		acc:       transcript.New(),
		clip:      opts.Clipboard,
		exportDir: opts.ExportDir,
		cue:       opts.Cue,
		settings:  s,
	}
}

// Mount attaches host callbacks; every notification is handed to post,
// which must deliver it to the goroutine that calls Handle.
func (a *App) Mount(post func(Msg)) {
	a.post = post
	if a.syn != nil {
		a.syn.OnEnd(func(id uint64) { post(SpeechEndMsg{ID: id}) })
		a.syn.OnVoicesChanged(func(v []synth.Voice) { post(VoicesChangedMsg{Voices: v}) })
		a.player.SetVoices(a.syn.Voices())
	}
	a.settings.Voice = settings.ResolveVoice(a.settings.Voice, a.player.Voices())
}

// Unmount detaches callbacks and stops any active session or utterance.
func (a *App) Unmount() {
	if a.rec != nil {
		a.bindRecognizer(nil, 0)
		if a.recording {
			a.rec.Stop()
			a.recording = false
		}
	}
	if a.syn != nil {
		a.syn.OnEnd(nil)
		a.syn.OnVoicesChanged(nil)
		a.player.Stop()
	}
	a.post = nil
}

func (a *App) bindRecognizer(post func(Msg), session uint64) {
	if post == nil {
		a.rec.OnResult(nil)
		a.rec.OnError(nil)
		a.rec.OnEnd(nil)
		return
	}
	a.rec.OnResult(func(ev transcript.Event) { post(ResultMsg{Session: session, Event: ev}) })
	a.rec.OnError(func(err error) { post(RecognitionErrorMsg{Session: session, Err: err}) })
	a.rec.OnEnd(func() { post(RecognitionEndMsg{Session: session}) })
}

func (a *App) CanRecord() bool { return a.rec != nil }
func (a *App) CanSpeak() bool  { return a.syn != nil }

func (a *App) Recording() bool { return a.recording }
func (a *App) Speaking() bool  { return a.player.State() == playback.Speaking }

func (a *App) Transcript() string { return a.transcript }
func (a *App) SpeakText() string  { return a.speakText }
func (a *App) Status() string     { return a.status }

// Committed is the finalized transcript buffer of the current session.
func (a *App) Committed() []string { return a.acc.Committed() }

func (a *App) Settings() settings.Settings { return a.settings }
func (a *App) Voices() []synth.Voice       { return a.player.Voices() }

func (a *App) RecognizerName() string {
	if a.rec == nil {
		return ""
	}
	return a.rec.Name()
}

func (a *App) playCue(c Cue) {
	if a.cue != nil {
		a.cue(c)
	}
}

// ToggleRecording stops an active session or starts a fresh one. Starting
// clears the transcript and the committed buffer; a failed start leaves
// both as they were.
func (a *App) ToggleRecording(ctx context.Context) error {
	if a.rec == nil {
		a.status = "Speech recognition is not available"
		return recognizer.ErrUnavailable
	}
	if a.recording {
		a.stopRecording()
		a.status = ""
		return nil
	}

	next := a.session + 1
	id := uuid.NewString()
	if a.post != nil {
		a.bindRecognizer(a.post, next)
	}
	if err := a.rec.Start(recognizer.WithSessionID(ctx, id), a.settings.Language); err != nil {
		if a.post != nil {
			a.bindRecognizer(a.post, a.session)
		}
		a.status = fmt.Sprintf("Could not start recording: %v", err)
		log.Errorf("recording start: %v", err)
		a.playCue(CueError)
		return fmt.Errorf("start recognition: %w", err)
	}
	a.acc.Reset()
	a.transcript = ""
	a.session = next
	a.sessionID = id
	a.recording = true
	a.status = ""
	a.playCue(CueStart)
	log.RecordingStart(a.sessionID, a.rec.Name(), a.settings.Language, "")
	return nil
}

func (a *App) stopRecording() {
	a.rec.Stop()
	a.recording = false
	a.playCue(CueEnd)
}

// Handle applies one host notification.
func (a *App) Handle(msg Msg) {
	switch m := msg.(type) {
	case ResultMsg:
		if m.Session != a.session {
			return
		}
		if !m.Event.HasNew() {
			return
		}
		a.transcript = a.acc.Apply(m.Event)
	case RecognitionErrorMsg:
		if m.Session != a.session {
			return
		}
		log.Errorf("recognition: %v", m.Err)
		a.status = fmt.Sprintf("Recognition error: %v", m.Err)
		a.playCue(CueError)
	case RecognitionEndMsg:
		if m.Session != a.session {
			return
		}
		if a.recording {
			a.recording = false
			a.playCue(CueEnd)
		}
		committed := a.acc.Committed()
		text := strings.Join(committed, " ")
		if text != "" {
			log.TranscriptionText(a.sessionID, text)
		}
		log.RecordingEnd(a.sessionID, len(committed), len(text))
	case VoicesChangedMsg:
		a.player.SetVoices(m.Voices)
		a.settings.Voice = settings.ResolveVoice(a.settings.Voice, m.Voices)
	case SpeechEndMsg:
		if a.player.HandleEnd(m.ID) {
			log.PlaybackEnd(m.ID, false)
		}
	}
}

// Speak plays the speak text, or stops playback when already speaking.
func (a *App) Speak(ctx context.Context) error {
	if a.syn == nil {
		a.status = "Speech synthesis is not available"
		return synth.ErrUnavailable
	}
	current := a.player.Current()
	st, err := a.player.Speak(ctx, a.speakText, a.settings.Voice, a.settings.Rate, a.settings.Pitch)
	if err != nil {
		a.status = fmt.Sprintf("Playback failed: %v", err)
		log.Errorf("playback: %v", err)
		return err
	}
	switch {
	case current != 0 && st == playback.Idle:
		log.PlaybackEnd(current, true)
	case st == playback.Speaking && a.player.Current() != current:
		a.status = ""
		log.PlaybackStart(a.player.Current(), a.settings.Voice, a.settings.Rate, a.settings.Pitch, len(a.speakText))
	}
	return nil
}

// EditTranscript replaces the displayed transcript. The committed buffer
// is left as is; the next recording starts from scratch anyway.
func (a *App) EditTranscript(s string) { a.transcript = s }

// ClearTranscript empties the displayed transcript only.
func (a *App) ClearTranscript() { a.transcript = "" }

func (a *App) EditSpeakText(s string) { a.speakText = s }
func (a *App) ClearSpeakText()        { a.speakText = "" }

// CopyTranscript puts the displayed transcript on the clipboard verbatim.
func (a *App) CopyTranscript() error {
	if a.clip == nil {
		a.status = "Clipboard is not available"
		return ErrNoClipboard
	}
	if err := a.clip.Copy(a.transcript); err != nil {
		a.status = fmt.Sprintf("Copy failed: %v", err)
		return err
	}
	a.status = "Copied to clipboard"
	return nil
}

// ExportTranscript writes the displayed transcript to dir, or to the
// configured export directory when dir is empty.
func (a *App) ExportTranscript(dir string) (string, error) {
	if dir == "" {
		dir = a.exportDir
	}
	path, err := textfile.Export(dir, a.transcript)
	log.FileOp("export", path, len(a.transcript), err)
	if err != nil {
		a.status = fmt.Sprintf("Export failed: %v", err)
		return "", err
	}
	a.status = "Saved " + path
	return path, nil
}

// ImportSpeakText replaces the speak text with the file's content. On
// failure the speak text is untouched and the status names the reason.
func (a *App) ImportSpeakText(path string) error {
	text, err := textfile.Import(path)
	log.FileOp("import", path, len(text), err)
	if err != nil {
		a.status = importStatus(err)
		return err
	}
	a.speakText = text
	a.status = "Loaded " + path
	return nil
}

func importStatus(err error) string {
	switch {
	case errors.Is(err, textfile.ErrNotFound):
		return "Import failed: file not found"
	case errors.Is(err, textfile.ErrPermission):
		return "Import failed: permission denied"
	case errors.Is(err, textfile.ErrNotText):
		return "Import failed: not a plain-text file"
	case errors.Is(err, textfile.ErrTooLarge):
		return "Import failed: file too large"
	}
	return fmt.Sprintf("Import failed: %v", err)
}

// SetLanguage selects the recognition language. An active session is
// stopped; the new language applies to the next recording.
func (a *App) SetLanguage(code string) error {
	if !settings.IsLanguage(code) {
		return fmt.Errorf("unsupported language %q", code)
	}
	if code == a.settings.Language {
		return nil
	}
	a.settings.Language = code
	if a.recording {
		a.stopRecording()
		a.status = "Language changed to " + settings.LanguageLabel(code) + ", recording stopped"
	}
	return nil
}

func (a *App) CycleLanguage(dir int) {
	_ = a.SetLanguage(settings.NextLanguage(a.settings.Language, dir))
}

func (a *App) CycleVoice(dir int) {
	a.settings.Voice = settings.NextVoice(a.settings.Voice, a.player.Voices(), dir)
}

func (a *App) StepRate(delta int) {
	a.settings.Rate = settings.Step(a.settings.Rate, delta)
}

func (a *App) StepPitch(delta int) {
	a.settings.Pitch = settings.Step(a.settings.Pitch, delta)
}
