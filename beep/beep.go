// Package beep plays short cue tones for recording start, stop and errors.
package beep

import (
	"math"
	"sync/atomic"
)

var disabled atomic.Bool

// Disable silences every cue for the rest of the process.
func Disable() { disabled.Store(true) }

func Disabled() bool { return disabled.Load() }

const (
	sampleRate = 44100

	// start: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// end: medium pitch, slightly longer
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	// error: low pitch double beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

// tick renders a decaying sine as mono PCM16.
func tick(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

func doubleBeep(freq, beepDur, gapDur, volume, decay float64) []int16 {
	b := tick(freq, beepDur, volume, decay)
	gap := make([]int16, int(sampleRate*gapDur))
	out := make([]int16, 0, len(b)*2+len(gap))
	out = append(out, b...)
	out = append(out, gap...)
	return append(out, b...)
}

var (
	startSamples = tick(startFreq, 0.2, startVolume, startDecay)
	endSamples   = tick(endFreq, 0.2, endVolume, endDecay)
	errorSamples = doubleBeep(errorFreq, 0.08, 0.05, errorVolume, errorDecay)
)

func PlayStart() { play(startSamples) }

func PlayEnd() { play(endSamples) }

func PlayError() { play(errorSamples) }

func play(samples []int16) {
	if disabled.Load() || len(samples) == 0 {
		return
	}
	go playSamples(samples)
}
