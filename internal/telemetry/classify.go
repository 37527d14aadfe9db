package telemetry

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Reading is a decoded, typed data record.
type Reading interface {
	reading()
}

// Altitude is the indicated altitude in feet.
type Altitude struct{ Feet float64 }

// SwitchKind names the cockpit switches that report on/off state.
type SwitchKind uint8

const (
	SwitchBeacon SwitchKind = iota + 1
	SwitchSeatbelt
	SwitchLandingLights
)

// String returns the switch name.
func (k SwitchKind) String() string {
	switch k {
	case SwitchBeacon:
		return "beacon"
	case SwitchSeatbelt:
		return "seatbelt"
	case SwitchLandingLights:
		return "landing_lights"
	default:
		return "unknown"
	}
}

// Switch is the raw state of a cockpit switch; 1 means on.
type Switch struct {
	Kind  SwitchKind
	Value int32
}

// On reports whether the switch is on.
func (s Switch) On() bool { return s.Value == 1 }

// ExitOpen is how far the main cabin door is open, in percent.
type ExitOpen struct{ Percent float64 }

// CameraState is the simulator's camera state code.
type CameraState struct{ Code int32 }

// CameraSubstate is the simulator's camera substate code.
type CameraSubstate struct{ Code int32 }

// Axis names one coordinate of the camera position.
type Axis uint8

const (
	AxisX Axis = iota + 1
	AxisY
	AxisZ
)

// String returns the axis letter.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "?"
	}
}

// CameraAxis is one coordinate of the external camera position.
type CameraAxis struct {
	Axis  Axis
	Value float64
}

// FrameTick is the per-frame heartbeat record. It carries no data.
type FrameTick struct{}

// BypassPin is the GSX bypass pin state from the primary or alternate variable.
type BypassPin struct {
	Alternate bool
	Value     int32
}

// Inserted reports whether the pin is inserted.
func (p BypassPin) Inserted() bool { return p.Value == 1 }

func (Altitude) reading()       {}
func (Switch) reading()         {}
func (ExitOpen) reading()       {}
func (CameraState) reading()    {}
func (CameraSubstate) reading() {}
func (CameraAxis) reading()     {}
func (FrameTick) reading()      {}
func (BypassPin) reading()      {}

// Classify decodes a data record into its typed reading.
//
// ok is false when the tag is unknown or the payload is malformed; err is set
// only in the malformed case so callers can log it. Neither case is fatal.
func Classify(rec DataRecord) (r Reading, ok bool, err error) {
	switch rec.Tag {
	case TagAltitude:
		v, err := decodeFloat(rec)
		if err != nil {
			return nil, false, err
		}
		return Altitude{Feet: v}, true, nil
	case TagBeacon, TagSeatbelt, TagLandingLights:
		v, err := decodeInt(rec)
		if err != nil {
			return nil, false, err
		}
		return Switch{Kind: switchKinds[rec.Tag], Value: v}, true, nil
	case TagExitOpen:
		v, err := decodeFloat(rec)
		if err != nil {
			return nil, false, err
		}
		return ExitOpen{Percent: v}, true, nil
	case TagCameraState:
		v, err := decodeInt(rec)
		if err != nil {
			return nil, false, err
		}
		return CameraState{Code: v}, true, nil
	case TagCameraSubstate:
		v, err := decodeInt(rec)
		if err != nil {
			return nil, false, err
		}
		return CameraSubstate{Code: v}, true, nil
	case TagCameraX, TagCameraY, TagCameraZ:
		v, err := decodeFloat(rec)
		if err != nil {
			return nil, false, err
		}
		return CameraAxis{Axis: axes[rec.Tag], Value: v}, true, nil
	case TagFrame:
		return FrameTick{}, true, nil
	case TagBypassPin, TagBypassPinAlt:
		v, err := decodeInt(rec)
		if err != nil {
			return nil, false, err
		}
		return BypassPin{Alternate: rec.Tag == TagBypassPinAlt, Value: v}, true, nil
	default:
		return nil, false, nil
	}
}

var switchKinds = map[Tag]SwitchKind{
	TagBeacon:        SwitchBeacon,
	TagSeatbelt:      SwitchSeatbelt,
	TagLandingLights: SwitchLandingLights,
}

var axes = map[Tag]Axis{
	TagCameraX: AxisX,
	TagCameraY: AxisY,
	TagCameraZ: AxisZ,
}

func decodeFloat(rec DataRecord) (float64, error) {
	if len(rec.Payload) < 8 {
		return 0, &DecodeError{Tag: rec.Tag, Reason: fmt.Sprintf("payload is %d bytes, need 8", len(rec.Payload))}
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(rec.Payload))
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &DecodeError{Tag: rec.Tag, Reason: "not a finite number"}
	}
	return v, nil
}

func decodeInt(rec DataRecord) (int32, error) {
	if len(rec.Payload) < 4 {
		return 0, &DecodeError{Tag: rec.Tag, Reason: fmt.Sprintf("payload is %d bytes, need 4", len(rec.Payload))}
	}
	return int32(binary.LittleEndian.Uint32(rec.Payload)), nil
}

// EncodeFloat returns the payload for a float64 record.
func EncodeFloat(v float64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	return b
}

// EncodeInt returns the payload for an int32 record.
func EncodeInt(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

// Record builds a data record for tag, encoding value with the tag's data type.
func Record(tag Tag, value float64) DataRecord {
	switch DataTypeOf(tag) {
	case DataTypeFloat64:
		return DataRecord{Tag: tag, Payload: EncodeFloat(value)}
	case DataTypeInt32:
		return DataRecord{Tag: tag, Payload: EncodeInt(int32(value))}
	default:
		return DataRecord{Tag: tag}
	}
}
