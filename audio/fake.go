package audio

import (
	"bytes"
	"os"
	"sync"
	"time"
)

const (
	fakeFrameSize = 1600 // 100ms at 16kHz
	bytesPerFrame = BitsPerSample / 8 * Channels
	wavHeaderSize = 44
)

// FakeContext serves captures that replay in-memory PCM16 mono audio.
type FakeContext struct {
	pcm      []byte
	realtime bool
}

func NewFakeContext(pcm []byte, realtime bool) *FakeContext {
	return &FakeContext{pcm: pcm, realtime: realtime}
}

// LoadFakeContext reads a PCM16 mono file; a leading RIFF header is skipped.
func LoadFakeContext(path string, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) > wavHeaderSize && bytes.HasPrefix(data, []byte("RIFF")) {
		data = data[wavHeaderSize:]
	}
	return NewFakeContext(data, realtime), nil
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return NewFakeCapture(f.pcm, f.realtime), nil
}

// FakeCapture feeds its PCM to the callback in fixed-size frames once
// started. In realtime mode frames are paced at the capture sample rate.
type FakeCapture struct {
	pcm      []byte
	realtime bool

	mu        sync.Mutex
	cb        DataCallback
	stopCh    chan struct{}
	done      chan struct{}
	drained   chan struct{}
	drainOnce sync.Once
}

func NewFakeCapture(pcm []byte, realtime bool) *FakeCapture {
	return &FakeCapture{pcm: pcm, realtime: realtime, drained: make(chan struct{})}
}

// Drained is closed once every byte of PCM has been delivered.
func (f *FakeCapture) Drained() <-chan struct{} { return f.drained }

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) callback() DataCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

func (f *FakeCapture) Start() error {
	f.mu.Lock()
	if f.stopCh != nil {
		f.mu.Unlock()
		return nil
	}
	f.stopCh = make(chan struct{})
	f.done = make(chan struct{})
	stop, done := f.stopCh, f.done
	f.mu.Unlock()

	interval := time.Duration(fakeFrameSize) * time.Second / SampleRate
	chunk := fakeFrameSize * bytesPerFrame

	go func() {
		defer close(done)
		for pos := 0; pos < len(f.pcm); {
			select {
			case <-stop:
				return
			default:
			}
			end := min(pos+chunk, len(f.pcm))
			if cb := f.callback(); cb != nil {
				buf := make([]byte, end-pos)
				copy(buf, f.pcm[pos:end])
				cb(buf, uint32(len(buf)/bytesPerFrame))
			}
			pos = end
			if f.realtime {
				select {
				case <-stop:
					return
				case <-time.After(interval):
				}
			}
		}
		f.drainOnce.Do(func() { close(f.drained) })
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	stop, done := f.stopCh, f.done
	f.stopCh = nil
	f.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (f *FakeCapture) Close() { f.Stop() }
