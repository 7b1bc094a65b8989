package spatialmath

import (
	"encoding/json"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
)

// OrientationType defines what orientation representations are known.
type OrientationType string

// The set of allowed representations for orientation.
const (
	NoOrientationType = OrientationType("")
	AxisAnglesType    = OrientationType("axis_angles")
	EulerAnglesType   = OrientationType("euler_angles")
	QuaternionType    = OrientationType("quaternion")
	EulerDegreesType  = OrientationType("euler_degrees")
)

// RawOrientation holds the underlying type of orientation, and the value.
type RawOrientation struct {
	Type  OrientationType `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

type quaternionJSON struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ParseOrientation will use the Type in RawOrientation to unmarshal the Value into the correct struct
// that implements Orientation.
func ParseOrientation(ro RawOrientation) (Orientation, error) {
	switch ro.Type {
	case NoOrientationType:
		return NewZeroOrientation(), nil
	case AxisAnglesType:
		var o R4AA
		if err := json.Unmarshal(ro.Value, &o); err != nil {
			return nil, err
		}
		return &o, nil
	case EulerAnglesType:
		var o EulerAngles
		if err := json.Unmarshal(ro.Value, &o); err != nil {
			return nil, err
		}
		return &o, nil
	case EulerDegreesType:
		var o EulerAngles
		if err := json.Unmarshal(ro.Value, &o); err != nil {
			return nil, err
		}
		return &EulerAngles{
			Roll:  degToRad(o.Roll),
			Pitch: degToRad(o.Pitch),
			Yaw:   degToRad(o.Yaw),
		}, nil
	case QuaternionType:
		var q quaternionJSON
		if err := json.Unmarshal(ro.Value, &q); err != nil {
			return nil, err
		}
		o := Quaternion(Normalize(quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}))
		return &o, nil
	default:
		return nil, errors.Errorf("orientation type %s not recognized", ro.Type)
	}
}

// OrientationMap encodes the orientation interface to something serializable and human readable.
func OrientationMap(o Orientation) (map[string]interface{}, error) {
	switch v := o.(type) {
	case *R4AA:
		return map[string]interface{}{"type": string(AxisAnglesType), "value": v}, nil
	case *EulerAngles:
		return map[string]interface{}{"type": string(EulerAnglesType), "value": v}, nil
	case *Quaternion:
		return map[string]interface{}{"type": string(QuaternionType), "value": quaternionJSON{
			W: v.Real, X: v.Imag, Y: v.Jmag, Z: v.Kmag,
		}}, nil
	default:
		return nil, errors.Errorf("do not know how to map Orientation type %T to json fields", o)
	}
}
