package clipboard

import (
	"errors"
	"testing"
)

func TestMemory(t *testing.T) {
	var c Clipboard = &Memory{}
	if err := c.Copy("hello"); err != nil {
		t.Fatal(err)
	}
	got, err := c.Read()
	if err != nil || got != "hello" {
		t.Fatalf("Read = %q, %v", got, err)
	}

	boom := errors.New("locked")
	m := &Memory{Err: boom}
	if err := m.Copy("x"); !errors.Is(err, boom) {
		t.Errorf("Copy err = %v", err)
	}
	if m.Text != "" {
		t.Error("failed Copy stored text")
	}
}
