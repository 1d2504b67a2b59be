package audio

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

// ErrCancelled is returned when the picker is dismissed with Ctrl+C or Esc.
var ErrCancelled = errors.New("device selection cancelled")

// SelectDevice shows an interactive picker on the terminal. A single
// device is returned without prompting.
func SelectDevice(ctx Context) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	switch len(devices) {
	case 0:
		return nil, errors.New("no capture devices found")
	case 1:
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	cursor := 0
	render := func() {
		fmt.Print("\r\x1b[J")
		fmt.Print("Select microphone (↑/↓, Enter to confirm):\r\n\r\n")
		for i, d := range devices {
			tag := ""
			if IsBluetooth(d.Name) {
				tag = " \x1b[33m[bluetooth, lower quality]\x1b[0m"
			}
			if i == cursor {
				fmt.Printf("  \x1b[1;36m▶ %s%s\x1b[0m\r\n", d.Name, tag)
			} else {
				fmt.Printf("    %s%s\r\n", d.Name, tag)
			}
		}
	}
	render()

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
		cursor, done, cancelled := pickerKey(buf[:n], cursor, len(devices))
		if cancelled {
			fmt.Print("\r\n")
			return nil, ErrCancelled
		}
		if done {
			fmt.Print("\r\n")
			return &devices[cursor], nil
		}
		fmt.Printf("\x1b[%dA", len(devices)+2)
		render()
	}
}

// pickerKey applies one keypress to the cursor.
func pickerKey(key []byte, cursor, n int) (next int, done, cancelled bool) {
	switch {
	case len(key) == 1 && key[0] == '\r':
		return cursor, true, false
	case len(key) == 1 && (key[0] == 3 || key[0] == 0x1b):
		return cursor, false, true
	case len(key) == 1 && key[0] == 'j', len(key) == 3 && key[0] == 0x1b && key[1] == '[' && key[2] == 'B':
		return min(cursor+1, n-1), false, false
	case len(key) == 1 && key[0] == 'k', len(key) == 3 && key[0] == 0x1b && key[1] == '[' && key[2] == 'A':
		return max(cursor-1, 0), false, false
	}
	return cursor, false, false
}
