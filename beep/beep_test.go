package beep

import "testing"

func TestTickDecays(t *testing.T) {
	s := tick(1000, 0.1, 0.5, 40)
	if len(s) != sampleRate/10 {
		t.Fatalf("len = %d, want %d", len(s), sampleRate/10)
	}
	peak := func(part []int16) int16 {
		var m int16
		for _, v := range part {
			if v < 0 {
				v = -v
			}
			m = max(m, v)
		}
		return m
	}
	head, tail := peak(s[:len(s)/4]), peak(s[3*len(s)/4:])
	if head <= tail {
		t.Errorf("envelope does not decay: head=%d tail=%d", head, tail)
	}
	if head > 32767/2+1 {
		t.Errorf("peak %d exceeds volume", head)
	}
}

func TestDoubleBeepHasGap(t *testing.T) {
	b := tick(errorFreq, 0.08, errorVolume, errorDecay)
	d := doubleBeep(errorFreq, 0.08, 0.05, errorVolume, errorDecay)
	gap := int(sampleRate * 0.05)
	if len(d) != 2*len(b)+gap {
		t.Fatalf("len = %d", len(d))
	}
	for _, v := range d[len(b) : len(b)+gap] {
		if v != 0 {
			t.Fatal("gap is not silent")
		}
	}
}

func TestDisable(t *testing.T) {
	Disable()
	if !Disabled() {
		t.Fatal("Disable had no effect")
	}
	PlayStart()
	PlayEnd()
	PlayError()
}
