package painter

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/painter/utils"
)

// ErrInvalidProjection is returned, wrapped, when a lens projection cannot be set up.
var ErrInvalidProjection = errors.New("invalid projection")

// ProjectionKind names a lens model mapping image pixels onto the unit sphere.
type ProjectionKind int

// The supported lens models.
const (
	// EquirectangularStereographic is the inverse stereographic projection.
	EquirectangularStereographic ProjectionKind = iota
	// PolarStereographic is the stereographic projection with a doubled plane.
	PolarStereographic
	// EqualArea is the inverse Lambert azimuthal equal-area projection.
	EqualArea
	// FlatPerspective is a pinhole camera looking down -z.
	FlatPerspective
)

var projectionKindNames = map[ProjectionKind]string{
	EquirectangularStereographic: "equirectangular_stereographic",
	PolarStereographic:           "polar_stereographic",
	EqualArea:                    "equal_area",
	FlatPerspective:              "flat",
}

func (k ProjectionKind) String() string {
	if name, ok := projectionKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseProjectionKind returns the kind with the given name.
func ParseProjectionKind(name string) (ProjectionKind, error) {
	for k, n := range projectionKindNames {
		if strings.EqualFold(n, name) {
			return k, nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidProjection, "unknown projection kind %q", name)
}

// MarshalJSON encodes the kind as its name.
func (k ProjectionKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a kind from its name.
func (k *ProjectionKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseProjectionKind(name)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Projection is a lens model with its parameters derived from the field of view.
type Projection struct {
	Kind ProjectionKind
	// MaxViewAngle is the full angular field of view in degrees.
	MaxViewAngle float64

	PlaneWidth float64
	// XMax and ZMax are only set for the stereographic and equal-area kinds.
	XMax, ZMax float64
	// ImagePlaneDistance is only set for the flat kind.
	ImagePlaneDistance float64
}

// NewProjection derives the parameters of a lens model. It fails when the field of view is
// outside (0, 360) degrees or the derived parameters are not finite. A flat perspective
// additionally needs a field of view under 180 degrees.
func NewProjection(kind ProjectionKind, maxViewAngle float64) (*Projection, error) {
	if !utils.IsFinite(maxViewAngle) || maxViewAngle <= 0 || maxViewAngle >= 360 {
		return nil, errors.Wrapf(ErrInvalidProjection, "max view angle must be in (0, 360) degrees, got %v", maxViewAngle)
	}
	p := &Projection{Kind: kind, MaxViewAngle: maxViewAngle}
	switch kind {
	case EquirectangularStereographic, PolarStereographic, EqualArea:
		half := utils.DegToRad((maxViewAngle - 180) / 2)
		p.XMax = math.Cos(half)
		p.ZMax = math.Sin(half)
		switch kind {
		case EquirectangularStereographic:
			p.PlaneWidth = p.XMax / (1 - p.ZMax)
		case PolarStereographic:
			p.PlaneWidth = 2 * p.XMax / (1 - p.ZMax)
		default:
			p.PlaneWidth = math.Sqrt(2/(1-p.ZMax)) * p.XMax
		}
	case FlatPerspective:
		if maxViewAngle >= 180 {
			return nil, errors.Wrapf(ErrInvalidProjection, "flat perspective cannot see %v degrees", maxViewAngle)
		}
		p.PlaneWidth = 2 * math.Sin(utils.DegToRad(maxViewAngle/2))
		p.ImagePlaneDistance = math.Cos(utils.DegToRad(maxViewAngle / 2))
	default:
		return nil, errors.Wrapf(ErrInvalidProjection, "unknown projection kind %d", int(kind))
	}
	if !utils.IsFinite(p.PlaneWidth, p.XMax, p.ZMax, p.ImagePlaneDistance) || p.PlaneWidth <= 0 {
		return nil, errors.Wrapf(ErrInvalidProjection, "%s at %v degrees has a degenerate plane width %v",
			kind, maxViewAngle, p.PlaneWidth)
	}
	return p, nil
}

// PixelMapper maps the pixel at (row, col) to a direction on the unit sphere. The boolean
// is false for pixels outside the lens circle, whose direction is meaningless.
type PixelMapper func(row, col int) (r3.Vector, bool)

// Mapper returns the pixel mapping for images of the given size. The projection kind is
// resolved here once so the per pixel work is branch free.
func (p *Projection) Mapper(height, width int) PixelMapper {
	h, w := float64(height), float64(width)
	offsets := func(row, col int) (float64, float64) {
		return float64(row)/h - 0.5, float64(col)/w - 0.5
	}
	inLens := func(fx, fy float64) bool {
		return math.Sqrt(fx*fx+fy*fy) <= 0.5
	}

	switch p.Kind {
	case EquirectangularStereographic, PolarStereographic:
		scale := p.PlaneWidth * 2
		if p.Kind == PolarStereographic {
			scale = p.PlaneWidth * 4
		}
		return func(row, col int) (r3.Vector, bool) {
			fx, fy := offsets(row, col)
			if !inLens(fx, fy) {
				return r3.Vector{}, false
			}
			xs, ys := fx*scale, fy*scale
			r2 := xs*xs + ys*ys
			return r3.Vector{X: 2 * xs, Y: 2 * ys, Z: -1 + r2}.Mul(1 / (1 + r2)), true
		}
	case EqualArea:
		scale := p.PlaneWidth * 2
		return func(row, col int) (r3.Vector, bool) {
			fx, fy := offsets(row, col)
			if !inLens(fx, fy) {
				return r3.Vector{}, false
			}
			xs, ys := fx*scale, fy*scale
			r2 := xs*xs + ys*ys
			s := math.Sqrt(math.Max(0, 1-r2/4))
			return r3.Vector{X: xs * s, Y: ys * s, Z: -1 + r2/2}, true
		}
	default:
		return func(row, col int) (r3.Vector, bool) {
			fx, fy := offsets(row, col)
			return r3.Vector{X: fx * p.PlaneWidth, Y: fy * p.PlaneWidth, Z: -p.ImagePlaneDistance}.Normalize(), true
		}
	}
}

// PixelToSphere maps a single pixel. Prefer Mapper when mapping a whole image.
func (p *Projection) PixelToSphere(row, col, height, width int) (r3.Vector, bool) {
	return p.Mapper(height, width)(row, col)
}
