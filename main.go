package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"transcribe/app"
	"transcribe/audio"
	"transcribe/beep"
	"transcribe/clipboard"
	"transcribe/config"
	"transcribe/doctor"
	"transcribe/log"
	"transcribe/recognizer"
	"transcribe/settings"
	"transcribe/shutdown"
	"transcribe/synth"
)

var version = "dev"

func main() {
	configFlag := flag.String("config", "", "YAML config file")
	langFlag := flag.String("lang", "", "Recognition language (e.g. en-US, fr-FR)")
	recognizerFlag := flag.String("recognizer", "", "Speech recognizer: deepgram, fake or none")
	synthFlag := flag.String("synth", "", "Speech synthesizer: espeak, fake or none")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	setupFlag := flag.Bool("setup", false, "Select microphone device interactively")
	wavFlag := flag.String("wav", "", "Replay a PCM16 16kHz mono WAV file instead of the microphone")
	exportFlag := flag.String("export-dir", "", "Directory for exported transcripts")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	profileFlag := flag.String("profile", "", "Enable pprof profiling server (e.g., localhost:6060)")
	quietFlag := flag.Bool("quiet", false, "Disable recording cue sounds")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run environment checks and exit")
	testFlag := flag.Bool("test", false, "Test mode (headless, stdin-driven, fake host bindings)")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("transcribe %s\n", version)
		return
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	applyFlags(&cfg, flagOverrides{
		lang:       *langFlag,
		recognizer: *recognizerFlag,
		synth:      *synthFlag,
		device:     *deviceFlag,
		exportDir:  *exportFlag,
		quiet:      *quietFlag,
	})

	logDir := *logPathFlag
	if logDir == "" {
		logDir = cfg.LogPath
	}
	logPath, err := log.ResolveDir(logDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)

	if *doctorFlag {
		os.Exit(doctor.Run(os.Stdout, doctor.Checks(cfg, logPath)))
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	if crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *profileFlag != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", *profileFlag)
			if err := http.ListenAndServe(*profileFlag, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	opts := app.Options{
		Settings: settings.Settings{
			Language: cfg.Language,
			Voice:    cfg.Synth.Voice,
			Rate:     cfg.Synth.Rate,
			Pitch:    cfg.Synth.Pitch,
		},
		ExportDir: cfg.ExportDir,
		Clipboard: clipboard.System{},
		Cue:       playCue,
	}

	if *testFlag {
		beep.Disable()
		opts.Clipboard = &clipboard.Memory{}
		code := runTestMode(ctx, opts, os.Stdin, os.Stdout)
		stop()
		log.Close()
		os.Exit(code)
	}
	if !cfg.Beep {
		beep.Disable()
	}

	rec, closeAudio := buildRecognizer(cfg, *setupFlag, *wavFlag)
	defer closeAudio()
	syn := buildSynth(ctx, cfg)

	log.Infof("transcribe %s starting: recognizer=%s synth=%s lang=%s", version, cfg.Recognizer.Mode, cfg.Synth.Mode, cfg.Language)

	a := app.New(rec, syn, opts)
	if err := runTUI(ctx, a); err != nil {
		log.Errorf("TUI error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type flagOverrides struct {
	lang, recognizer, synth, device, exportDir string
	quiet                                      bool
}

func applyFlags(cfg *config.Config, f flagOverrides) {
	if f.lang != "" {
		if settings.IsLanguage(f.lang) {
			cfg.Language = f.lang
		} else {
			fmt.Fprintf(os.Stderr, "Warning: unsupported language %q, using %s\n", f.lang, cfg.Language)
		}
	}
	if f.recognizer != "" {
		cfg.Recognizer.Mode = f.recognizer
	}
	if f.synth != "" {
		cfg.Synth.Mode = f.synth
	}
	if f.device != "" {
		cfg.Recognizer.Device = f.device
	}
	if f.exportDir != "" {
		cfg.ExportDir = f.exportDir
	}
	if f.quiet {
		cfg.Beep = false
	}
}

// buildRecognizer returns nil when recognition is disabled or unavailable;
// the UI then shows recording as unavailable.
func buildRecognizer(cfg config.Config, setup bool, wavPath string) (recognizer.Recognizer, func()) {
	noop := func() {}
	switch cfg.Recognizer.Mode {
	case config.ModeNone:
		return nil, noop
	case config.ModeFake:
		return recognizer.NewFake(), noop
	case config.ModeDeepgram:
	default:
		fmt.Fprintf(os.Stderr, "Warning: unknown recognizer %q, recording disabled\n", cfg.Recognizer.Mode)
		return nil, noop
	}

	var actx audio.Context
	var err error
	if wavPath != "" {
		actx, err = audio.LoadFakeContext(wavPath, true)
	} else {
		actx, err = audio.NewContext()
	}
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: audio unavailable, recording disabled: %v\n", err)
		return nil, noop
	}

	var device *audio.DeviceInfo
	if setup && cfg.Recognizer.Device == "" {
		device, err = audio.SelectDevice(actx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: device selection failed: %v, using default device\n", err)
			device = nil
		}
	} else if device, err = audio.FindDevice(actx, cfg.Recognizer.Device); err != nil {
		log.Warnf("%v, using default device", err)
		fmt.Fprintf(os.Stderr, "Warning: %v, using default device\n", err)
	}

	dg, err := recognizer.NewDeepgram(recognizer.DeepgramConfig{
		APIKey:   cfg.Recognizer.Deepgram.APIKey,
		Endpoint: cfg.Recognizer.Deepgram.Endpoint,
		Model:    cfg.Recognizer.Deepgram.Model,
		Device:   device,
	}, actx)
	if err != nil {
		log.Warnf("recognizer unavailable: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: %v, recording disabled\n", err)
		actx.Close()
		return nil, noop
	}
	return dg, func() {
		dg.Close()
		actx.Close()
	}
}

func buildSynth(ctx context.Context, cfg config.Config) synth.Synthesizer {
	switch cfg.Synth.Mode {
	case config.ModeNone:
		return nil
	case config.ModeFake:
		return synth.NewFake(testVoices...)
	case config.ModeEspeak:
	default:
		fmt.Fprintf(os.Stderr, "Warning: unknown synth %q, playback disabled\n", cfg.Synth.Mode)
		return nil
	}
	e, err := synth.NewEspeak(cfg.Synth.Command)
	if err != nil {
		log.Warnf("synth unavailable: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: %v, playback disabled\n", err)
		return nil
	}
	if cfg.Synth.VoicePollMS > 0 {
		go e.Watch(ctx, time.Duration(cfg.Synth.VoicePollMS)*time.Millisecond)
	}
	return e
}

func playCue(c app.Cue) {
	switch c {
	case app.CueStart:
		beep.PlayStart()
	case app.CueEnd:
		beep.PlayEnd()
	case app.CueError:
		beep.PlayError()
	}
}
