// Package telemetry defines the records delivered by the flight-simulation
// host and the classifier that turns them into typed readings.
//
// The host speaks in definition tags: each requested simulation variable is
// registered under a small integer tag, and every data record carries that tag
// plus a raw payload. The mapping used by simpa is fixed:
//
//	 0  PLANE ALTITUDE                 float64  feet
//	 1  LIGHT BEACON                   int32    bool
//	 2  CABIN SEATBELTS ALERT SWITCH   int32    bool
//	 3  EXIT OPEN:0                    float64  percent
//	 4  LIGHT LANDING                  int32    bool
//	 5  CAMERA STATE                   int32    code
//	 6  CAMERA SUBSTATE                int32    code
//	 7  L:P42_cp_x                     float64
//	 8  L:P42_cp_y                     float64
//	 9  L:P42_cp_z                     float64
//	10  frame tick                     (no payload)
//	11  FSDT_GSX_BYPASS_PIN            int32    bool
//	12  L:FSDT_GSX_BYPASS_PIN          int32    bool
//
// Messages and readings are closed variants: only types declared in this
// package satisfy Message and Reading, so a type switch over them is the
// complete set of cases.
package telemetry
