package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"transcribe/settings"
)

const (
	ModeDeepgram = "deepgram"
	ModeEspeak   = "espeak"
	ModeFake     = "fake"
	ModeNone     = "none"
)

type Config struct {
	Language   string           `yaml:"language"`
	ExportDir  string           `yaml:"export_dir"`
	LogPath    string           `yaml:"log_path"`
	Beep       bool             `yaml:"beep"`
	Recognizer RecognizerConfig `yaml:"recognizer"`
	Synth      SynthConfig      `yaml:"synth"`
}

type RecognizerConfig struct {
	Mode     string         `yaml:"mode"` // deepgram, fake, none
	Device   string         `yaml:"device"`
	Deepgram DeepgramConfig `yaml:"deepgram"`
}

type DeepgramConfig struct {
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
}

type SynthConfig struct {
	Mode        string  `yaml:"mode"` // espeak, fake, none
	Command     string  `yaml:"command"`
	Voice       string  `yaml:"voice"`
	Rate        float64 `yaml:"rate"`
	Pitch       float64 `yaml:"pitch"`
	VoicePollMS int     `yaml:"voice_poll_ms"`
}

func Default() Config {
	return Config{
		Language:  settings.DefaultLanguage,
		ExportDir: ".",
		Beep:      true,
		Recognizer: RecognizerConfig{
			Mode: ModeDeepgram,
			Deepgram: DeepgramConfig{
				Endpoint: "wss://api.deepgram.com/v1/listen",
				Model:    "nova-3",
			},
		},
		Synth: SynthConfig{
			Mode:        ModeEspeak,
			Command:     "espeak-ng",
			Rate:        settings.DefaultMultiplier,
			Pitch:       settings.DefaultMultiplier,
			VoicePollMS: 3000,
		},
	}
}

// LoadDotEnv loads KEY=value files into the environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads path (optional) over the defaults, applies TRANSCRIBE_*
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Language, "TRANSCRIBE_LANGUAGE")
	overrideString(&cfg.ExportDir, "TRANSCRIBE_EXPORT_DIR")
	overrideString(&cfg.LogPath, "TRANSCRIBE_LOG_PATH")
	overrideBool(&cfg.Beep, "TRANSCRIBE_BEEP")
	overrideString(&cfg.Recognizer.Mode, "TRANSCRIBE_RECOGNIZER_MODE")
	overrideString(&cfg.Recognizer.Device, "TRANSCRIBE_RECOGNIZER_DEVICE")
	overrideString(&cfg.Recognizer.Deepgram.APIKey, "DEEPGRAM_API_KEY")
	overrideString(&cfg.Recognizer.Deepgram.APIKey, "TRANSCRIBE_DEEPGRAM_API_KEY")
	overrideString(&cfg.Recognizer.Deepgram.Endpoint, "TRANSCRIBE_DEEPGRAM_ENDPOINT")
	overrideString(&cfg.Recognizer.Deepgram.Model, "TRANSCRIBE_DEEPGRAM_MODEL")
	overrideString(&cfg.Synth.Mode, "TRANSCRIBE_SYNTH_MODE")
	overrideString(&cfg.Synth.Command, "TRANSCRIBE_SYNTH_COMMAND")
	overrideString(&cfg.Synth.Voice, "TRANSCRIBE_SYNTH_VOICE")
	overrideFloat(&cfg.Synth.Rate, "TRANSCRIBE_SYNTH_RATE")
	overrideFloat(&cfg.Synth.Pitch, "TRANSCRIBE_SYNTH_PITCH")
	overrideInt(&cfg.Synth.VoicePollMS, "TRANSCRIBE_SYNTH_VOICE_POLL_MS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if !settings.IsLanguage(cfg.Language) {
		return fmt.Errorf("language %q is not supported", cfg.Language)
	}
	switch cfg.Recognizer.Mode {
	case ModeDeepgram, ModeFake, ModeNone:
	default:
		return fmt.Errorf("recognizer.mode must be deepgram, fake or none, got %q", cfg.Recognizer.Mode)
	}
	switch cfg.Synth.Mode {
	case ModeEspeak, ModeFake, ModeNone:
	default:
		return fmt.Errorf("synth.mode must be espeak, fake or none, got %q", cfg.Synth.Mode)
	}
	if cfg.Synth.Mode == ModeEspeak && strings.TrimSpace(cfg.Synth.Command) == "" {
		return errors.New("synth.command must not be empty")
	}
	for name, v := range map[string]float64{"synth.rate": cfg.Synth.Rate, "synth.pitch": cfg.Synth.Pitch} {
		if v < settings.MinMultiplier || v > settings.MaxMultiplier {
			return fmt.Errorf("%s must be between %.1f and %.1f", name, settings.MinMultiplier, settings.MaxMultiplier)
		}
	}
	if cfg.Synth.VoicePollMS < 0 {
		return errors.New("synth.voice_poll_ms must not be negative")
	}
	if strings.TrimSpace(cfg.ExportDir) == "" {
		return errors.New("export_dir must not be empty")
	}
	return nil
}
