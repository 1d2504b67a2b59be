package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"transcribe/app"
	"transcribe/clipboard"
	"transcribe/settings"
)

func runScript(t *testing.T, script string) string {
	t.Helper()
	var out bytes.Buffer
	opts := app.Options{
		Settings:  settings.Default(),
		ExportDir: t.TempDir(),
		Clipboard: &clipboard.Memory{},
	}
	if code := runTestMode(context.Background(), opts, strings.NewReader(script), &out); code != 0 {
		t.Fatalf("exit code %d, output:\n%s", code, out.String())
	}
	return out.String()
}

func TestTestModeRecording(t *testing.T) {
	out := runScript(t, `
# record two finals with a revised interim in between
RECORD
SAY interim hello
PRINT
SAY final hello world
SAY final hello world
SAY interim and
PRINT
RECORD
PRINT
QUIT
`)
	for _, want := range []string{
		`transcript="hello"`,
		`transcript="hello world and"`,
		"recording=false",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestTestModeSayWhileIdle(t *testing.T) {
	out := runScript(t, "SAY final nobody listens\nPRINT\n")
	if !strings.Contains(out, "error: not recording") {
		t.Errorf("output:\n%s", out)
	}
	if !strings.Contains(out, `transcript=""`) {
		t.Errorf("idle SAY changed transcript:\n%s", out)
	}
}

func TestTestModeSpeak(t *testing.T) {
	out := runScript(t, "SPEAK read this\nPRINT\nFINISH\nSLEEP 10\nPRINT\n")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	var states []string
	for _, l := range lines {
		if strings.HasPrefix(l, "recording=") {
			states = append(states, l)
		}
	}
	if len(states) != 2 {
		t.Fatalf("want 2 state lines, got:\n%s", out)
	}
	if !strings.Contains(states[0], "speaking=true") {
		t.Errorf("first state = %s", states[0])
	}
	if !strings.Contains(states[1], "speaking=false") {
		t.Errorf("second state = %s", states[1])
	}
}

func TestTestModeImportExport(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.txt")
	if err := os.WriteFile(src, []byte("from disk"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := runScript(t, "IMPORT "+src+"\nRECORD\nSAY final kept\nEXPORT "+dir+"\nPRINT\n")
	if !strings.Contains(out, `speak="from disk"`) {
		t.Errorf("import not applied:\n%s", out)
	}
	if !strings.Contains(out, "exported "+dir) {
		t.Errorf("export not reported:\n%s", out)
	}
}

func TestTestModeUnknownCommand(t *testing.T) {
	if out := runScript(t, "JUMP\n"); !strings.Contains(out, `unknown command "JUMP"`) {
		t.Errorf("output:\n%s", out)
	}
}

func TestTestLoopAfterStop(t *testing.T) {
	l := newTestLoop()
	close(l.stopped)

	done := make(chan bool)
	go func() { done <- l.run(func() { t.Error("command ran without a loop") }) }()
	select {
	case ok := <-done:
		if ok {
			t.Error("run reported success after the loop stopped")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run blocked after the loop stopped")
	}

	for range 300 {
		l.post(app.RecognitionEndMsg{})
	}
}

func TestTestModeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	opts := app.Options{Settings: settings.Default(), ExportDir: t.TempDir()}
	code := runTestMode(ctx, opts, strings.NewReader(""), &out)
	if code != 0 && code != 130 {
		t.Errorf("exit code = %d", code)
	}
}
