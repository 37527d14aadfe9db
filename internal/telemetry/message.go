package telemetry

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoData is returned by Source.Next when a poll produced nothing.
	// It is the normal idle result and is never counted as an error.
	ErrNoData = errors.New("no telemetry data")

	// ErrClosed is returned once the host connection is gone.
	ErrClosed = errors.New("telemetry source closed")
)

// Message is one item delivered by the host.
// Implemented by DataRecord, DiscreteEvent, Opened, Closed and Exception.
type Message interface {
	message()
}

// DataRecord carries the raw payload of one registered definition.
type DataRecord struct {
	Tag     Tag
	Payload []byte
}

// DiscreteEvent is a client event raised inside the simulator.
type DiscreteEvent struct {
	ID uint32
}

// Opened signals that the host accepted the connection.
type Opened struct{}

// Closed signals that the host is shutting the connection down.
type Closed struct{}

// Exception reports a host-side protocol exception.
type Exception struct {
	Code uint32
}

func (DataRecord) message()    {}
func (DiscreteEvent) message() {}
func (Opened) message()        {}
func (Closed) message()        {}
func (Exception) message()     {}

// Source is the telemetry host as seen by a session.
//
// Connect establishes the connection (implementations may retry).
// Register requests delivery of the given definitions; failure is fatal to the
// session. Next blocks until the next message, returning ErrNoData when a poll
// produced nothing and ErrClosed once the connection is gone.
type Source interface {
	Connect(ctx context.Context) error
	Register(ctx context.Context, defs []Definition) error
	Next(ctx context.Context) (Message, error)
	Close() error
}

// DecodeError describes a payload that could not be decoded for its tag.
type DecodeError struct {
	Tag    Tag
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Tag, e.Reason)
}
