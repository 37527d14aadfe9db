package cabin

// Position is where the camera sits relative to the aircraft.
type Position string

const (
	PositionCockpit  Position = "cockpit"
	PositionExterior Position = "exterior"
)

// ViewType classifies the active camera.
// ViewUnset is only held until the first camera reading, so that reading
// always counts as a change.
type ViewType string

const (
	ViewUnset    ViewType = "unset"
	ViewInternal ViewType = "internal"
	ViewExternal ViewType = "external"
	ViewUnknown  ViewType = "unknown"
)

// Display is the view type as reported to the UI. ViewUnset reads as
// ViewUnknown.
func (v ViewType) Display() string {
	if v == ViewUnset {
		return string(ViewUnknown)
	}
	return string(v)
}

// CameraView is the classification of one camera state code.
type CameraView struct {
	Position Position
	ViewType ViewType
	Volume   float64
}

// Camera state codes reported by the host.
const (
	CameraCockpit  int32 = 0
	CameraExternal int32 = 1
	CameraFlyBy    int32 = 2
	CameraSpot     int32 = 3
	CameraTower    int32 = 4
	CameraRunway   int32 = 5
	CameraApproach int32 = 6
	CameraMap      int32 = 7
)

// ViewFor maps a camera state code to its view. Cabin audio plays at full
// volume only from the cockpit.
func ViewFor(code int32) CameraView {
	switch {
	case code == CameraCockpit:
		return CameraView{Position: PositionCockpit, ViewType: ViewInternal, Volume: 1.0}
	case code >= CameraExternal && code <= CameraMap:
		return CameraView{Position: PositionExterior, ViewType: ViewExternal, Volume: 0.0}
	default:
		return CameraView{Position: PositionExterior, ViewType: ViewUnknown, Volume: 0.0}
	}
}
