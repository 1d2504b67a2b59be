package settings

import (
	"math"
	"testing"

	"transcribe/synth"
)

func TestClamp(t *testing.T) {
	for _, tt := range []struct {
		in, want float64
	}{
		{1, 1},
		{0.5, 0.5},
		{2, 2},
		{0.1, 0.5},
		{-3, 0.5},
		{2.01, 2},
		{9, 2},
		{1.26, 1.3},
		{1.24, 1.2},
		{0.7000000001, 0.7},
		{math.Inf(1), 2},
		{math.Inf(-1), 0.5},
		{math.NaN(), 1},
	} {
		if got := Clamp(tt.in); got != tt.want {
			t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStep(t *testing.T) {
	v := 1.0
	for range 3 {
		v = Step(v, 1)
	}
	if v != 1.3 {
		t.Errorf("three steps up from 1.0 = %v, want 1.3", v)
	}
	for range 20 {
		v = Step(v, -1)
	}
	if v != MinMultiplier {
		t.Errorf("stepping below range = %v, want %v", v, MinMultiplier)
	}
	for range 20 {
		v = Step(v, 1)
	}
	if v != MaxMultiplier {
		t.Errorf("stepping above range = %v, want %v", v, MaxMultiplier)
	}
}

func TestDefault(t *testing.T) {
	s := Default()
	if s.Language != "en-US" || s.Rate != 1 || s.Pitch != 1 || s.Voice != "" {
		t.Errorf("Default() = %+v", s)
	}
}

func TestNextLanguage(t *testing.T) {
	if got := NextLanguage("en-US", 1); got != "en-GB" {
		t.Errorf("next of en-US = %q", got)
	}
	if got := NextLanguage("en-US", -1); got != "zh-CN" {
		t.Errorf("prev of en-US = %q", got)
	}
	if got := NextLanguage("zh-CN", 1); got != "en-US" {
		t.Errorf("next of zh-CN = %q", got)
	}
	if got := NextLanguage("xx-XX", 1); got != "en-US" {
		t.Errorf("unknown = %q", got)
	}
	if LanguageLabel("ja-JP") != "Japanese" || LanguageLabel("xx") != "xx" {
		t.Error("LanguageLabel mismatch")
	}
	if len(Languages()) != 7 {
		t.Errorf("expected 7 languages, got %d", len(Languages()))
	}
}

func TestResolveVoice(t *testing.T) {
	voices := []synth.Voice{{ID: "a"}, {ID: "b"}}
	for _, tt := range []struct {
		selected string
		voices   []synth.Voice
		want     string
	}{
		{"", voices, "a"},
		{"b", voices, "b"},
		{"gone", voices, "a"},
		{"b", nil, ""},
	} {
		if got := ResolveVoice(tt.selected, tt.voices); got != tt.want {
			t.Errorf("ResolveVoice(%q, %d voices) = %q, want %q", tt.selected, len(tt.voices), got, tt.want)
		}
	}
}

func TestNextVoice(t *testing.T) {
	voices := []synth.Voice{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	if got := NextVoice("c", voices, 1); got != "a" {
		t.Errorf("wrap forward = %q", got)
	}
	if got := NextVoice("a", voices, -1); got != "c" {
		t.Errorf("wrap back = %q", got)
	}
	if got := NextVoice("zz", voices, 1); got != "a" {
		t.Errorf("unknown = %q", got)
	}
	if got := NextVoice("a", nil, 1); got != "" {
		t.Errorf("empty = %q", got)
	}
}
