package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	DiagnosticsFile = "diagnostics_log.txt"
	TranscriptsFile = "transcribe_log.txt"

	envLogPath = "TRANSCRIBE_LOG_PATH"
)

var (
	diagLog        zerolog.Logger
	diagFile       *os.File
	transcribeFile *os.File
	logMu          sync.Mutex
	logReady       atomic.Bool
	pid            int
	dir            string
)

// ResolveDir picks the log directory: the -logpath flag, then
// TRANSCRIBE_LOG_PATH, then the OS default. Relative paths are resolved
// against the working directory.
func ResolveDir(flagPath string) (string, error) {
	for _, p := range []string{flagPath, os.Getenv(envLogPath)} {
		if p == "" {
			continue
		}
		if filepath.IsAbs(p) {
			return p, nil
		}
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		return filepath.Join(wd, p), nil
	}
	return getDefaultDir()
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

// Init opens both log files under Dir. Until it succeeds every helper is a no-op.
func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error
	diagFile, err = os.OpenFile(filepath.Join(dir, DiagnosticsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	transcribeFile, err = os.OpenFile(filepath.Join(dir, TranscriptsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		diagFile = nil
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady.Store(true)
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	logReady.Store(false)
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if transcribeFile != nil {
		transcribeFile.Close()
		transcribeFile = nil
	}
}

func Info(msg string) {
	if logReady.Load() {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady.Load() {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady.Load() {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady.Load() {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady.Load() {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady.Load() {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// TranscriptionText appends one line to the transcript log. Newlines in
// text are flattened so each recording stays on one line.
func TranscriptionText(session, text string) {
	if !logReady.Load() {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	if transcribeFile == nil {
		return
	}
	flat := strings.Join(strings.Fields(text), " ")
	line := fmt.Sprintf("%s\t[%d]\t%s\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, session, flat)
	transcribeFile.WriteString(line)
}

type StreamMetricsData struct {
	SessionID    string
	ConnectMs    float64
	FinalizeMs   float64
	TotalMs      float64
	AudioS       float64
	SentChunks   int
	SentKB       float64
	RecvMessages int
	RecvFinal    int
	RecvInterim  int
	Dropped      int
}

func StreamMetrics(m StreamMetricsData) {
	if !logReady.Load() {
		return
	}
	diagLog.Info().
		Str("session", m.SessionID).
		Float64("connect_ms", m.ConnectMs).
		Float64("finalize_ms", m.FinalizeMs).
		Float64("total_ms", m.TotalMs).
		Float64("audio_s", m.AudioS).
		Int("sent_chunks", m.SentChunks).
		Float64("sent_kb", m.SentKB).
		Int("recv_messages", m.RecvMessages).
		Int("recv_final", m.RecvFinal).
		Int("recv_interim", m.RecvInterim).
		Int("dropped", m.Dropped).
		Msg("stream_transcription")
}

func RecordingStart(session, recognizer, lang, device string) {
	if !logReady.Load() {
		return
	}
	diagLog.Info().
		Str("session", session).
		Str("recognizer", recognizer).
		Str("lang", lang).
		Str("device", device).
		Msg("recording_start")
}

func RecordingEnd(session string, chunks, chars int) {
	if !logReady.Load() {
		return
	}
	diagLog.Info().
		Str("session", session).
		Int("chunks", chunks).
		Int("chars", chars).
		Msg("recording_end")
}

func PlaybackStart(id uint64, voice string, rate, pitch float64, chars int) {
	if !logReady.Load() {
		return
	}
	diagLog.Info().
		Uint64("utterance", id).
		Str("voice", voice).
		Float64("rate", rate).
		Float64("pitch", pitch).
		Int("chars", chars).
		Msg("playback_start")
}

func PlaybackEnd(id uint64, cancelled bool) {
	if !logReady.Load() {
		return
	}
	diagLog.Info().
		Uint64("utterance", id).
		Bool("cancelled", cancelled).
		Msg("playback_end")
}

func FileOp(op, path string, bytes int, err error) {
	if !logReady.Load() {
		return
	}
	ev := diagLog.Info()
	if err != nil {
		ev = diagLog.Warn().Err(err)
	}
	ev.Str("op", op).Str("path", path).Int("bytes", bytes).Msg("file")
}
