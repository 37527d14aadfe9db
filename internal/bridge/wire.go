// Package bridge carries telemetry between the simulator host and simpa.
//
// The bridge protocol is CBOR frames with integer keys over a length-prefixed
// TCP stream. A Client implements telemetry.Source; a Server plays a
// scripted feed for development and replay; discovery uses mDNS.
package bridge

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/jackwaller57/simpa/internal/telemetry"
)

// Kind identifies a frame.
type Kind uint8

const (
	KindSubscribe Kind = iota + 1 // client -> host: register definitions
	KindAck                       // host -> client: subscription accepted
	KindNack                      // host -> client: subscription rejected
	KindOpen
	KindQuit
	KindException
	KindData
	KindEvent
)

var kindNames = map[Kind]string{
	KindSubscribe: "subscribe",
	KindAck:       "ack",
	KindNack:      "nack",
	KindOpen:      "open",
	KindQuit:      "quit",
	KindException: "exception",
	KindData:      "data",
	KindEvent:     "event",
}

// String returns the kind name.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Frame is one bridge message.
type Frame struct {
	Kind        Kind                   `cbor:"1,keyasint"`
	Tag         uint32                 `cbor:"2,keyasint,omitempty"`
	EventID     uint32                 `cbor:"3,keyasint,omitempty"`
	Payload     []byte                 `cbor:"4,keyasint,omitempty"`
	Code        uint32                 `cbor:"5,keyasint,omitempty"`
	Definitions []telemetry.Definition `cbor:"6,keyasint,omitempty"`
	Message     string                 `cbor:"7,keyasint,omitempty"`
}

// ErrMalformedFrame marks a frame body that is not a valid bridge frame.
var ErrMalformedFrame = errors.New("malformed frame")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("bridge: CBOR encoder mode: %v", err))
	}

	// Lenient decoding so newer hosts can add fields.
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("bridge: CBOR decoder mode: %v", err))
	}
}

// EncodeFrame encodes f to CBOR.
func EncodeFrame(f Frame) ([]byte, error) {
	return encMode.Marshal(f)
}

// DecodeFrame decodes a CBOR frame body.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := decMode.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	if f.Kind == 0 {
		return Frame{}, fmt.Errorf("%w: missing kind", ErrMalformedFrame)
	}
	return f, nil
}

// FrameOf converts a telemetry message to its frame.
func FrameOf(msg telemetry.Message) Frame {
	switch m := msg.(type) {
	case telemetry.DataRecord:
		return Frame{Kind: KindData, Tag: uint32(m.Tag), Payload: m.Payload}
	case telemetry.DiscreteEvent:
		return Frame{Kind: KindEvent, EventID: m.ID}
	case telemetry.Opened:
		return Frame{Kind: KindOpen}
	case telemetry.Closed:
		return Frame{Kind: KindQuit}
	case telemetry.Exception:
		return Frame{Kind: KindException, Code: m.Code}
	}
	return Frame{}
}

// Telemetry converts a host frame to a telemetry message. Control frames
// (subscribe, ack, nack) are not messages.
func (f Frame) Telemetry() (telemetry.Message, bool) {
	switch f.Kind {
	case KindData:
		return telemetry.DataRecord{Tag: telemetry.Tag(f.Tag), Payload: f.Payload}, true
	case KindEvent:
		return telemetry.DiscreteEvent{ID: f.EventID}, true
	case KindOpen:
		return telemetry.Opened{}, true
	case KindQuit:
		return telemetry.Closed{}, true
	case KindException:
		return telemetry.Exception{Code: f.Code}, true
	}
	return nil, false
}

// Conn exchanges frames over a stream connection.
type Conn struct {
	nc      net.Conn
	reader  *FrameReader
	writer  *FrameWriter
	closeMu sync.Once
}

// NewConn wraps nc.
func NewConn(nc net.Conn) *Conn {
	return &Conn{nc: nc, reader: NewFrameReader(nc), writer: NewFrameWriter(nc)}
}

// Send encodes and writes f.
func (c *Conn) Send(f Frame) error {
	data, err := EncodeFrame(f)
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", f.Kind, err)
	}
	return c.writer.WriteFrame(data)
}

// Recv reads and decodes the next frame. io.EOF means the peer closed
// the connection cleanly.
func (c *Conn) Recv() (Frame, error) {
	data, err := c.reader.ReadFrame()
	if err != nil {
		return Frame{}, err
	}
	return DecodeFrame(data)
}

// NetConn returns the underlying connection.
func (c *Conn) NetConn() net.Conn { return c.nc }

// Close closes the connection. Safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeMu.Do(func() { err = c.nc.Close() })
	return err
}

var _ io.Closer = (*Conn)(nil)
