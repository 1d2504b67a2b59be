// Package clipboard wraps the system clipboard.
package clipboard

import (
	"errors"
	"fmt"

	cb "github.com/atotto/clipboard"
)

// ErrUnsupported is returned when no clipboard utility is available.
var ErrUnsupported = errors.New("clipboard unsupported")

// Clipboard is satisfied by System and by test doubles.
type Clipboard interface {
	Copy(text string) error
	Read() (string, error)
}

type System struct{}

func (System) Copy(text string) error {
	if cb.Unsupported {
		return ErrUnsupported
	}
	if err := cb.WriteAll(text); err != nil {
		return fmt.Errorf("clipboard write: %w", err)
	}
	return nil
}

func (System) Read() (string, error) {
	if cb.Unsupported {
		return "", ErrUnsupported
	}
	s, err := cb.ReadAll()
	if err != nil {
		return "", fmt.Errorf("clipboard read: %w", err)
	}
	return s, nil
}

// Memory is an in-process clipboard.
type Memory struct {
	Text string
	Err  error
}

func (m *Memory) Copy(text string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Text = text
	return nil
}

func (m *Memory) Read() (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}
