package service

import (
	"sync/atomic"
	"time"

	"bch-paywall/internal/core/ports"
)

// RuntimeModeSource implements ports.ModeSource with an atomically switchable
// mode. The boot value comes from configuration; the admin surface may flip
// it at runtime, and the next confirmation check observes the new mode.
type RuntimeModeSource struct {
	mode atomic.Value // ports.ConfirmationMode
}

func NewRuntimeModeSource(initial ports.ConfirmationMode) *RuntimeModeSource {
	s := &RuntimeModeSource{}
	s.mode.Store(initial)
	return s
}

// Mode returns the currently active confirmation mode.
func (s *RuntimeModeSource) Mode() ports.ConfirmationMode {
	return s.mode.Load().(ports.ConfirmationMode)
}

// SetMode switches the active confirmation mode.
func (s *RuntimeModeSource) SetMode(mode ports.ConfirmationMode) {
	s.mode.Store(mode)
}

// SystemClock implements ports.Clock with the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
