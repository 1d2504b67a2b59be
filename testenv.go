package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"transcribe/app"
	"transcribe/recognizer"
	"transcribe/synth"
	"transcribe/transcript"
)

var testVoices = []synth.Voice{
	{ID: "en-us", Name: "English (America)", Lang: "en-US"},
	{ID: "fr-fr", Name: "French", Lang: "fr-FR"},
}

// testCommand runs on the owner loop; done is closed when it has.
type testCommand struct {
	run  func()
	done chan struct{}
}

// testLoop is the queue shared by host events and commands. stopped is
// closed once the owner loop has returned.
type testLoop struct {
	queue   chan any
	stopped chan struct{}
}

func newTestLoop() *testLoop {
	return &testLoop{queue: make(chan any, 256), stopped: make(chan struct{})}
}

func (l *testLoop) post(m app.Msg) {
	select {
	case l.queue <- m:
	case <-l.stopped:
	}
}

// run executes fn on the owner loop and waits for it. It reports false
// when the loop is gone.
func (l *testLoop) run(fn func()) bool {
	cmd := testCommand{run: fn, done: make(chan struct{})}
	select {
	case l.queue <- cmd:
	case <-l.stopped:
		return false
	}
	select {
	case <-cmd.done:
		return true
	case <-l.stopped:
		return false
	}
}

// runTestMode drives the component headlessly with fake host bindings.
// Commands are read from in, one per line:
//
//	RECORD | SAY final|interim <text> | FAIL <msg> | END | LANG <code>
//	SPEAK [text] | FINISH | EXPORT [dir] | IMPORT <path> | PRINT | SLEEP <ms> | QUIT
//
// Host events and commands share one queue, so a PRINT after a SAY always
// sees the result applied.
func runTestMode(ctx context.Context, opts app.Options, in io.Reader, out io.Writer) int {
	rec := recognizer.NewFake()
	syn := synth.NewFake(testVoices...)
	a := app.New(rec, syn, opts)

	loop := newTestLoop()
	a.Mount(loop.post)
	defer a.Unmount()
	defer close(loop.stopped)

	onLoop := func(fn func()) { loop.run(fn) }
	report := func(err error) {
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}

	quit := make(chan struct{})
	go func() {
		defer close(quit)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case <-loop.stopped:
				return
			default:
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			cmd, arg, _ := strings.Cut(line, " ")
			switch strings.ToUpper(cmd) {
			case "RECORD":
				onLoop(func() { report(a.ToggleRecording(ctx)) })
			case "SAY":
				kind, text, _ := strings.Cut(arg, " ")
				if !rec.Emit(transcript.Event{Segments: []transcript.Segment{{Text: text, IsFinal: kind == "final"}}}) {
					fmt.Fprintln(out, "error: not recording")
				}
			case "FAIL":
				if !rec.Fail(errors.New(arg)) {
					fmt.Fprintln(out, "error: not recording")
				}
			case "END":
				rec.End()
			case "LANG":
				onLoop(func() { report(a.SetLanguage(arg)) })
			case "SPEAK":
				onLoop(func() {
					if arg != "" {
						a.EditSpeakText(arg)
					}
					report(a.Speak(ctx))
				})
			case "FINISH":
				syn.Finish()
			case "EXPORT":
				onLoop(func() {
					path, err := a.ExportTranscript(arg)
					if err == nil {
						fmt.Fprintf(out, "exported %s\n", path)
					}
					report(err)
				})
			case "IMPORT":
				onLoop(func() { report(a.ImportSpeakText(arg)) })
			case "PRINT":
				onLoop(func() { printState(out, a) })
			case "SLEEP":
				if ms, err := strconv.Atoi(arg); err == nil {
					time.Sleep(time.Duration(ms) * time.Millisecond)
				}
			case "QUIT":
				return
			default:
				fmt.Fprintf(out, "error: unknown command %q\n", cmd)
			}
		}
	}()

	for {
		select {
		case ev := <-loop.queue:
			switch ev := ev.(type) {
			case app.Msg:
				a.Handle(ev)
			case testCommand:
				ev.run()
				close(ev.done)
			}
		case <-quit:
			return 0
		case <-ctx.Done():
			return 130
		}
	}
}

func printState(w io.Writer, a *app.App) {
	s := a.Settings()
	fmt.Fprintf(w, "recording=%v speaking=%v lang=%s voice=%s rate=%.1f pitch=%.1f\n",
		a.Recording(), a.Speaking(), s.Language, s.Voice, s.Rate, s.Pitch)
	fmt.Fprintf(w, "transcript=%q\n", a.Transcript())
	fmt.Fprintf(w, "speak=%q\n", a.SpeakText())
	if st := a.Status(); st != "" {
		fmt.Fprintf(w, "status=%q\n", st)
	}
}
