package telemetry

import "fmt"

// Tag identifies which simulation variable a data record carries.
type Tag uint32

const (
	TagAltitude Tag = iota
	TagBeacon
	TagSeatbelt
	TagExitOpen
	TagLandingLights
	TagCameraState
	TagCameraSubstate
	TagCameraX
	TagCameraY
	TagCameraZ
	TagFrame
	TagBypassPin
	TagBypassPinAlt
)

// EventToggleJetway is the client event id mapped to the TOGGLE_JETWAY sim event.
const EventToggleJetway uint32 = 3

// DataType is the wire type of a record payload.
type DataType uint8

const (
	DataTypeNone DataType = iota
	DataTypeFloat64
	DataTypeInt32
)

// String returns the data type name.
func (d DataType) String() string {
	switch d {
	case DataTypeFloat64:
		return "float64"
	case DataTypeInt32:
		return "int32"
	default:
		return "none"
	}
}

// Period is the delivery cadence requested for a definition.
type Period uint8

const (
	PeriodNever Period = iota
	PeriodSecond
	PeriodSimFrame
)

// Definition describes one telemetry field registered with the host.
type Definition struct {
	Tag      Tag      `cbor:"1,keyasint" json:"tag"`
	Variable string   `cbor:"2,keyasint" json:"variable"`
	Unit     string   `cbor:"3,keyasint" json:"unit"`
	Type     DataType `cbor:"4,keyasint" json:"type"`
	Period   Period   `cbor:"5,keyasint" json:"period"`
}

var definitions = []Definition{
	{TagAltitude, "PLANE ALTITUDE", "Feet", DataTypeFloat64, PeriodSecond},
	{TagBeacon, "LIGHT BEACON", "Bool", DataTypeInt32, PeriodSecond},
	{TagSeatbelt, "CABIN SEATBELTS ALERT SWITCH", "Bool", DataTypeInt32, PeriodSecond},
	{TagExitOpen, "EXIT OPEN:0", "Percent", DataTypeFloat64, PeriodSimFrame},
	{TagLandingLights, "LIGHT LANDING", "Bool", DataTypeInt32, PeriodSecond},
	// Camera state is defined but never requested; hosts push it on view changes.
	{TagCameraState, "CAMERA STATE", "Number", DataTypeInt32, PeriodNever},
	{TagCameraSubstate, "CAMERA SUBSTATE", "Number", DataTypeInt32, PeriodSecond},
	{TagCameraX, "L:P42_cp_x", "Number", DataTypeFloat64, PeriodSecond},
	{TagCameraY, "L:P42_cp_y", "Number", DataTypeFloat64, PeriodSecond},
	{TagCameraZ, "L:P42_cp_z", "Number", DataTypeFloat64, PeriodSecond},
	{TagBypassPin, "FSDT_GSX_BYPASS_PIN", "Bool", DataTypeInt32, PeriodSimFrame},
	{TagBypassPinAlt, "L:FSDT_GSX_BYPASS_PIN", "Bool", DataTypeInt32, PeriodSimFrame},
}

// Definitions returns the registration table in tag order.
// The returned slice is a copy.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// DataTypeOf returns the payload type carried under tag.
// Unknown tags and the frame tick report DataTypeNone.
func DataTypeOf(tag Tag) DataType {
	for _, d := range definitions {
		if d.Tag == tag {
			return d.Type
		}
	}
	return DataTypeNone
}

var tagNames = map[Tag]string{
	TagAltitude:       "altitude",
	TagBeacon:         "beacon",
	TagSeatbelt:       "seatbelt",
	TagExitOpen:       "exit_open",
	TagLandingLights:  "landing_lights",
	TagCameraState:    "camera_state",
	TagCameraSubstate: "camera_substate",
	TagCameraX:        "camera_x",
	TagCameraY:        "camera_y",
	TagCameraZ:        "camera_z",
	TagFrame:          "frame",
	TagBypassPin:      "gsx_bypass_pin",
	TagBypassPinAlt:   "gsx_bypass_pin_alt",
}

// String returns the short name used in logs and scenario files.
func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tag(%d)", uint32(t))
}

// ParseTag resolves a short tag name (as printed by String) to its Tag.
func ParseTag(name string) (Tag, error) {
	for tag, n := range tagNames {
		if n == name {
			return tag, nil
		}
	}
	return 0, fmt.Errorf("unknown telemetry tag %q", name)
}
