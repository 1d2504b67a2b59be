package audio

import (
	"fmt"
	"strings"
)

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16

	// BytesPerSecond of the capture format (PCM16 mono).
	BytesPerSecond = SampleRate * Channels * BitsPerSample / 8
)

var btKeywords = []string{
	"airpods", "bluetooth", "buds", "headset", "hands-free", "bose", "jabra",
	"sony wh-", "sony wf-", " bt ", " bt)", " bt]",
}

// IsBluetooth guesses from the device name whether capture goes over a
// low-bandwidth bluetooth profile.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DataCallback receives little-endian PCM16 frames from the capture thread.
type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

func DefaultConfig() CaptureConfig {
	return CaptureConfig{SampleRate: SampleRate, Channels: Channels}
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

// FindDevice looks a device up by name. A nil result means system default.
func FindDevice(ctx Context, name string) (*DeviceInfo, error) {
	if name == "" {
		return nil, nil
	}
	devices, err := ctx.Devices()
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if devices[i].Name == name {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("device not found: %s", name)
}
