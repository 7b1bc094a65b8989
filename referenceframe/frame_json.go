package referenceframe

import (
	"github.com/golang/geo/r3"
	"go.viam.com/utils"

	spatial "go.viam.com/painter/spatialmath"
)

// Translation is the translation between two frames.
type Translation struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FrameConfig describes a static transform placing the child frame within its parent.
type FrameConfig struct {
	Parent      string                  `json:"parent"`
	Child       string                  `json:"child"`
	Translation Translation             `json:"translation"`
	Orientation *spatial.RawOrientation `json:"orientation,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *FrameConfig) Validate(path string) error {
	if cfg.Parent == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "parent")
	}
	if cfg.Child == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "child")
	}
	if _, err := cfg.Pose(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return nil
}

// Pose returns the pose of the child frame within the parent frame.
func (cfg *FrameConfig) Pose() (spatial.Pose, error) {
	pt := r3.Vector{X: cfg.Translation.X, Y: cfg.Translation.Y, Z: cfg.Translation.Z}
	if cfg.Orientation == nil {
		return spatial.NewPoseFromPoint(pt), nil
	}
	o, err := spatial.ParseOrientation(*cfg.Orientation)
	if err != nil {
		return nil, err
	}
	return spatial.NewPose(pt, o), nil
}

// AddFrames records every configured static frame in the buffer.
func (fb *FrameBuffer) AddFrames(cfgs []FrameConfig) error {
	for i := range cfgs {
		pose, err := cfgs[i].Pose()
		if err != nil {
			return err
		}
		if err := fb.SetTransform(cfgs[i].Parent, cfgs[i].Child, pose); err != nil {
			return err
		}
	}
	return nil
}
