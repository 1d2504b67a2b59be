package synth

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-shellwords"
)

const (
	DefaultEspeakCommand = "espeak-ng"

	baseWPM   = 175 // espeak default speed, rate 1.0
	basePitch = 50  // espeak default pitch, pitch 1.0 (0-99 scale)
)

// Espeak speaks through an external espeak-compatible command. Text is
// written to the command's stdin; killing the process cancels playback.
type Espeak struct {
	cmd []string

	mu       sync.Mutex
	current  *exec.Cmd
	currID   uint64
	voices   []Voice
	onEnd    func(uint64)
	onVoices func([]Voice)
}

func NewEspeak(command string) (*Espeak, error) {
	if strings.TrimSpace(command) == "" {
		command = DefaultEspeakCommand
	}
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("tts command empty")
	}
	if _, err := exec.LookPath(args[0]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	e := &Espeak{cmd: args}
	if voices, err := e.listVoices(context.Background()); err == nil {
		e.voices = voices
	}
	return e, nil
}

func (e *Espeak) Name() string { return "espeak" }

func (e *Espeak) OnEnd(fn func(uint64)) {
	e.mu.Lock()
	e.onEnd = fn
	e.mu.Unlock()
}

func (e *Espeak) OnVoicesChanged(fn func([]Voice)) {
	e.mu.Lock()
	e.onVoices = fn
	e.mu.Unlock()
}

func (e *Espeak) Voices() []Voice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.voices)
}

func (e *Espeak) Speak(ctx context.Context, u Utterance) error {
	e.mu.Lock()
	if e.current != nil {
		e.mu.Unlock()
		return fmt.Errorf("utterance %d still playing", e.currID)
	}

	args := append(slices.Clone(e.cmd[1:]), speakArgs(u)...)
	cmd := exec.CommandContext(ctx, e.cmd[0], args...)
	cmd.Stdin = strings.NewReader(u.Text)
	if err := cmd.Start(); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("start tts: %w", err)
	}
	e.current = cmd
	e.currID = u.ID
	e.mu.Unlock()

	go func() {
		_ = cmd.Wait()
		e.mu.Lock()
		if e.current == cmd {
			e.current = nil
		}
		fn := e.onEnd
		e.mu.Unlock()
		if fn != nil {
			fn(u.ID)
		}
	}()
	return nil
}

// Cancel kills the playing utterance. Its end notification still fires
// once the process has exited.
func (e *Espeak) Cancel() {
	e.mu.Lock()
	cmd := e.current
	e.current = nil
	e.mu.Unlock()
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}

// Refresh re-enumerates voices and notifies when the list changed.
func (e *Espeak) Refresh(ctx context.Context) error {
	voices, err := e.listVoices(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	changed := !slices.Equal(e.voices, voices)
	if changed {
		e.voices = voices
	}
	fn := e.onVoices
	e.mu.Unlock()
	if changed && fn != nil {
		fn(slices.Clone(voices))
	}
	return nil
}

// Watch polls the voice list until ctx is done.
func (e *Espeak) Watch(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = e.Refresh(ctx)
		}
	}
}

func (e *Espeak) listVoices(ctx context.Context) ([]Voice, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	args := append(slices.Clone(e.cmd[1:]), "--voices")
	out, err := exec.CommandContext(ctx, e.cmd[0], args...).Output()
	if err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}
	return parseVoices(bytes.NewReader(out))
}

func speakArgs(u Utterance) []string {
	var args []string
	if u.Voice != nil && u.Voice.ID != "" {
		args = append(args, "-v", u.Voice.ID)
	}
	args = append(args,
		"-s", strconv.Itoa(wpm(u.Rate)),
		"-p", strconv.Itoa(pitch(u.Pitch)),
	)
	return args
}

func wpm(rate float64) int {
	if rate <= 0 {
		rate = 1
	}
	return int(math.Round(baseWPM * rate))
}

func pitch(p float64) int {
	if p <= 0 {
		p = 1
	}
	v := int(math.Round(basePitch * p))
	return min(max(v, 0), 99)
}

// parseVoices reads the table printed by `espeak-ng --voices`:
//
//	Pty Language       Age/Gender VoiceName          File          Other Languages
//	 5  en-us           --/M      English_(America)  gmw/en-US     (en 2)
func parseVoices(r io.Reader) ([]Voice, error) {
	var voices []Voice
	seen := map[string]bool{}
	scanner := bufio.NewScanner(r)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			first = false
			if strings.HasPrefix(strings.TrimSpace(line), "Pty") {
				continue
			}
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		lang := fields[1]
		if seen[lang] {
			continue
		}
		seen[lang] = true
		voices = append(voices, Voice{
			ID:   lang,
			Name: strings.ReplaceAll(fields[3], "_", " "),
			Lang: lang,
		})
	}
	return voices, scanner.Err()
}
