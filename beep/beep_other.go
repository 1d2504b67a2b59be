//go:build !linux

package beep

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	"transcribe/log"
)

var (
	ctxOnce  sync.Once
	malgoCtx *malgo.AllocatedContext
	playMu   sync.Mutex
)

func playSamples(samples []int16) {
	ctxOnce.Do(func() {
		var err error
		malgoCtx, err = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			log.Warnf("beep: malgo: %v", err)
		}
	})
	if malgoCtx == nil {
		return
	}
	playMu.Lock()
	defer playMu.Unlock()

	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	var mu sync.Mutex
	pos := 0
	done := make(chan struct{})
	var doneOnce sync.Once
	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, _ uint32) {
			mu.Lock()
			n := copy(out, data[pos:])
			pos += n
			finished := pos >= len(data)
			mu.Unlock()
			clear(out[n:])
			if finished {
				doneOnce.Do(func() { close(done) })
			}
		},
	}
	device, err := malgo.InitDevice(malgoCtx.Context, config, callbacks)
	if err != nil {
		log.Warnf("beep: device: %v", err)
		return
	}
	defer device.Uninit()
	if err := device.Start(); err != nil {
		log.Warnf("beep: start: %v", err)
		return
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
	_ = device.Stop()
}
