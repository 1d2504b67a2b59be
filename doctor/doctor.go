// Package doctor runs non-interactive environment checks for the -doctor flag.
package doctor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"transcribe/audio"
	"transcribe/clipboard"
	"transcribe/config"
	"transcribe/synth"
)

type Check struct {
	Name string
	Run  func() (detail string, err error)
	// Optional checks report WARN instead of FAIL.
	Optional bool
}

// Run executes checks in order and returns an exit code (0 = no failures).
func Run(w io.Writer, checks []Check) int {
	fmt.Fprintln(w, "transcribe doctor")
	fmt.Fprintln(w, "=================")

	failed := false
	for i, c := range checks {
		fmt.Fprintf(w, "\n[%d/%d] %s\n", i+1, len(checks), c.Name)
		detail, err := c.Run()
		switch {
		case err == nil:
			fmt.Fprintf(w, "  PASS: %s\n", detail)
		case c.Optional:
			fmt.Fprintf(w, "  WARN: %v\n", err)
		default:
			fmt.Fprintf(w, "  FAIL: %v\n", err)
			failed = true
		}
	}

	fmt.Fprintln(w)
	if failed {
		fmt.Fprintln(w, "Some checks failed. See details above.")
		return 1
	}
	fmt.Fprintln(w, "All checks passed!")
	return 0
}

// Checks builds the standard check list for cfg.
func Checks(cfg config.Config, logDir string) []Check {
	checks := []Check{
		{Name: "Log directory", Run: func() (string, error) { return checkWritable(logDir) }},
		{Name: "Export directory", Run: func() (string, error) { return checkWritable(cfg.ExportDir) }},
	}
	if cfg.Recognizer.Mode == config.ModeDeepgram {
		checks = append(checks,
			Check{Name: "Microphone", Run: checkMicrophone},
			Check{Name: "Deepgram credentials", Run: func() (string, error) {
				if cfg.Recognizer.Deepgram.APIKey == "" {
					return "", errors.New("DEEPGRAM_API_KEY is not set")
				}
				return "api key configured", nil
			}},
		)
	}
	if cfg.Synth.Mode == config.ModeEspeak {
		checks = append(checks, Check{Name: "Speech synthesis", Run: func() (string, error) {
			e, err := synth.NewEspeak(cfg.Synth.Command)
			if err != nil {
				return "", err
			}
			n := len(e.Voices())
			if n == 0 {
				return "", fmt.Errorf("%s lists no voices", cfg.Synth.Command)
			}
			return fmt.Sprintf("%d voices", n), nil
		}})
	}
	checks = append(checks, Check{Name: "Clipboard", Optional: true, Run: func() (string, error) {
		return checkClipboard(clipboard.System{})
	}})
	return checks
}

func checkWritable(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return "", fmt.Errorf("%s not writable: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	abs, _ := filepath.Abs(dir)
	return abs, nil
}

func checkMicrophone() (string, error) {
	ctx, err := audio.NewContext()
	if err != nil {
		return "", err
	}
	defer ctx.Close()
	devices, err := ctx.Devices()
	if err != nil {
		return "", err
	}
	if len(devices) == 0 {
		return "", errors.New("no capture devices found")
	}
	return fmt.Sprintf("%d capture devices", len(devices)), nil
}

func checkClipboard(c clipboard.Clipboard) (string, error) {
	const probe = "transcribe doctor"
	prev, _ := c.Read()
	if err := c.Copy(probe); err != nil {
		return "", err
	}
	defer c.Copy(prev)
	got, err := c.Read()
	if err != nil {
		return "", err
	}
	if got != probe {
		return "", fmt.Errorf("clipboard read back %q", got)
	}
	return "copy and read back ok", nil
}
