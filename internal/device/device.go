package device

import (
	"context"
	"fmt"

	"drc_online/internal/models"
)

// Device is the VNA collaborator boundary. The wire protocol (serial
// framing, scan/data commands) is owned by the driver behind this interface;
// the core only sees parsed sweeps.
type Device interface {
	// Connect opens the link and programs the sweep parameters.
	Connect(ctx context.Context, cfg models.SweepConfig) error
	// PollSweep performs one scan and returns the parsed sample.
	PollSweep(ctx context.Context) (models.SweepSample, error)
	// ListPorts enumerates candidate serial ports.
	ListPorts() []models.PortInfo
	// Close releases the link. Safe to call when not connected.
	Close() error
}

// Error is a device failure surfaced to the orchestrator. Transient errors
// skip a tick; fatal ones stop the sweep loop. Must never crash the
// orchestrator.
type Error struct {
	Message string
	Fatal   bool
}

func (e *Error) Error() string { return e.Message }

// Transient wraps a recoverable single-poll failure.
func Transient(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// FatalError wraps a failure that ends the sweep session.
func FatalError(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Fatal: true}
}
