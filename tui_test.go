package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"transcribe/app"
	"transcribe/clipboard"
	"transcribe/recognizer"
	"transcribe/settings"
	"transcribe/synth"
	"transcribe/transcript"
)

type tuiHarness struct {
	m    tuiModel
	a    *app.App
	rec  *recognizer.Fake
	syn  *synth.Fake
	clip *clipboard.Memory
	msgs chan app.Msg
}

func newTUIHarness(t *testing.T) *tuiHarness {
	t.Helper()
	h := &tuiHarness{
		rec:  recognizer.NewFake(),
		syn:  synth.NewFake(testVoices...),
		clip: &clipboard.Memory{},
		msgs: make(chan app.Msg, 64),
	}
	h.a = app.New(h.rec, h.syn, app.Options{
		Settings:  settings.Default(),
		ExportDir: t.TempDir(),
		Clipboard: h.clip,
	})
	h.a.Mount(func(m app.Msg) { h.msgs <- m })
	t.Cleanup(h.a.Unmount)
	h.m = newTUIModel(context.Background(), h.a)
	h.send(tea.WindowSizeMsg{Width: 80, Height: 30})
	return h
}

func (h *tuiHarness) send(msg tea.Msg) {
	next, _ := h.m.Update(msg)
	h.m = next.(tuiModel)
}

func (h *tuiHarness) key(t tea.KeyType) { h.send(tea.KeyMsg{Type: t}) }

func (h *tuiHarness) typeText(s string) {
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

// pump routes queued host messages through Update.
func (h *tuiHarness) pump() {
	for {
		select {
		case m := <-h.msgs:
			h.send(m)
		default:
			return
		}
	}
}

func TestTUIRecordFlow(t *testing.T) {
	h := newTUIHarness(t)

	h.key(tea.KeyCtrlR)
	if !h.a.Recording() || !h.rec.Active() {
		t.Fatal("ctrl+r did not start recording")
	}
	if !strings.Contains(h.m.View(), "REC") {
		t.Error("view missing recording indicator")
	}

	h.rec.Emit(transcript.Event{Segments: []transcript.Segment{{Text: "hello world", IsFinal: true}}})
	h.pump()
	if got := h.m.stt.Value(); got != "hello world" {
		t.Errorf("textarea = %q, want %q", got, "hello world")
	}

	h.key(tea.KeyCtrlY)
	if h.clip.Text != "hello world" {
		t.Errorf("clipboard = %q", h.clip.Text)
	}

	h.key(tea.KeyCtrlR)
	if h.a.Recording() {
		t.Error("second ctrl+r left recording on")
	}
}

func TestTUISpeakOnlyOnSpeakTab(t *testing.T) {
	h := newTUIHarness(t)
	h.a.EditSpeakText("read me")

	h.key(tea.KeyCtrlP)
	if len(h.syn.Spoken()) != 0 {
		t.Fatal("ctrl+p spoke from the transcription tab")
	}

	h.key(tea.KeyTab)
	if h.m.tab != tabTTS {
		t.Fatal("tab did not switch")
	}
	h.key(tea.KeyCtrlP)
	if !h.a.Speaking() {
		t.Fatal("ctrl+p did not start speaking")
	}
	if !strings.Contains(h.m.View(), "Speaking...") {
		t.Error("view missing speaking status")
	}

	h.key(tea.KeyCtrlR)
	if h.a.Recording() {
		t.Error("ctrl+r recorded from the speak tab")
	}
}

func TestTUITypingEditsText(t *testing.T) {
	h := newTUIHarness(t)
	h.typeText("draft")
	if got := h.a.Transcript(); got != "draft" {
		t.Errorf("transcript = %q", got)
	}

	h.key(tea.KeyTab)
	h.typeText("say this")
	if got := h.a.SpeakText(); got != "say this" {
		t.Errorf("speak text = %q", got)
	}

	h.key(tea.KeyCtrlL)
	if h.a.SpeakText() != "" || h.m.tts.Value() != "" {
		t.Error("ctrl+l did not clear the speak text")
	}
	if h.a.Transcript() != "draft" {
		t.Error("clearing the speak tab touched the transcript")
	}
}

func TestTUISettingsPanel(t *testing.T) {
	h := newTUIHarness(t)

	h.key(tea.KeyCtrlS)
	if !h.m.showSettings {
		t.Fatal("settings panel not shown")
	}
	if !strings.Contains(h.m.View(), "Rate      1.0x") {
		t.Errorf("view missing rate row:\n%s", h.m.View())
	}

	h.key(tea.KeyRight)
	if got := h.a.Settings().Language; got == settings.DefaultLanguage {
		t.Error("right on the language row did not change language")
	}

	h.key(tea.KeyDown)
	h.key(tea.KeyDown)
	h.key(tea.KeyRight)
	if got := h.a.Settings().Rate; got != 1.1 {
		t.Errorf("rate = %v, want 1.1", got)
	}

	h.key(tea.KeyDown)
	h.key(tea.KeyLeft)
	if got := h.a.Settings().Pitch; got != 0.9 {
		t.Errorf("pitch = %v, want 0.9", got)
	}

	h.key(tea.KeyDown)
	if h.m.settingsRow != rowLanguage {
		t.Errorf("row did not wrap, got %d", h.m.settingsRow)
	}
}

func TestTUIImportPrompt(t *testing.T) {
	h := newTUIHarness(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("imported words"), 0o644); err != nil {
		t.Fatal(err)
	}

	h.key(tea.KeyTab)
	h.key(tea.KeyCtrlO)
	if !h.m.importing {
		t.Fatal("ctrl+o did not open the prompt")
	}
	h.typeText(path)
	h.key(tea.KeyEnter)

	if h.m.importing {
		t.Error("prompt still open after enter")
	}
	if got := h.m.tts.Value(); got != "imported words" {
		t.Errorf("speak textarea = %q", got)
	}
}

func TestTUIImportPromptEscape(t *testing.T) {
	h := newTUIHarness(t)
	h.key(tea.KeyTab)
	h.key(tea.KeyCtrlO)
	h.typeText("ignored")
	h.key(tea.KeyEsc)
	if h.m.importing {
		t.Error("esc did not close the prompt")
	}
	if h.a.SpeakText() != "" {
		t.Errorf("speak text = %q", h.a.SpeakText())
	}
}

func TestTUIUnavailable(t *testing.T) {
	a := app.New(nil, nil, app.Options{Settings: settings.Default()})
	m := newTUIModel(context.Background(), a)
	view := m.View()
	if !strings.Contains(view, "Speech recognition is not available") {
		t.Errorf("view:\n%s", view)
	}
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	if next.(tuiModel).app.Recording() {
		t.Error("recording without a recognizer")
	}
}

func TestFormatMultiplier(t *testing.T) {
	for in, want := range map[float64]string{1: "1.0x", 0.5: "0.5x", 1.5: "1.5x", 2: "2.0x"} {
		if got := formatMultiplier(in); got != want {
			t.Errorf("formatMultiplier(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestTUIImportKeepsFileBytes(t *testing.T) {
	for _, content := range []string{"a\tb", "line1\r\nline2", "x\n"} {
		h := newTUIHarness(t)
		path := filepath.Join(t.TempDir(), "in.txt")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}

		h.key(tea.KeyTab)
		h.key(tea.KeyCtrlO)
		h.typeText(path)
		h.key(tea.KeyEnter)

		// Neither a non-key message nor cursor movement is an edit.
		h.send(struct{}{})
		h.send(tickMsg{})
		h.key(tea.KeyLeft)
		if got := h.a.SpeakText(); got != content {
			t.Errorf("speak text = %q, want file bytes %q", got, content)
		}
	}
}
