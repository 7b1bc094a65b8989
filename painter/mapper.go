package painter

import (
	"context"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/painter/logging"
	"go.viam.com/painter/pointcloud"
	"go.viam.com/painter/referenceframe"
	"go.viam.com/painter/rimage"
)

// Transformer moves point clouds between frames. A cloud that cannot be moved within
// timeout yields an error wrapping referenceframe.ErrTransformUnavailable and the input
// is left untouched.
type Transformer interface {
	TryTransform(
		ctx context.Context,
		pc pointcloud.PointCloud,
		source, target string,
		timeout time.Duration,
	) (pointcloud.PointCloud, error)
}

// ImageInput is one camera image of a paint request.
type ImageInput struct {
	// Name identifies the image in diagnostics. It defaults to the frame name.
	Name string
	// Data and MimeType hold the encoded image. They are ignored when Image is set.
	Data     []byte
	MimeType string
	Image    *rimage.Image
	// Frame is the frame the camera looks out of.
	Frame        string
	Projection   ProjectionKind
	MaxViewAngle float64
	// Compress block-reduces the image by CompressionRatio before mapping.
	Compress         bool
	CompressionRatio int
}

func (in *ImageInput) name() string {
	if in.Name != "" {
		return in.Name
	}
	return in.Frame
}

// MappedImage holds the clouds built from one image.
type MappedImage struct {
	Index int
	Name  string
	// Flat has one point per pixel laid out on the z = 0 plane, offset along x by Index.
	Flat pointcloud.PointCloud
	// Lobed is the spherical cloud after the frame transform and before renormalization.
	Lobed pointcloud.PointCloud
	// Spherical is the unit sphere reference cloud in the target frame.
	Spherical pointcloud.PointCloud
	// Skipped is set when no transform was available, Lobed and Spherical are then empty.
	Skipped  bool
	Duration time.Duration
}

// sphereImage maps every kept pixel onto the unit sphere in the camera frame. Each point carries
// the pixel color and the image index as its value. The flat debug cloud is built alongside.
func sphereImage(img *rimage.Image, index int, mapper PixelMapper) (flat, sphere pointcloud.PointCloud, err error) {
	height, width := img.Height(), img.Width()
	flat = pointcloud.NewWithPrealloc(height * width)
	sphere = pointcloud.NewWithPrealloc(height * width)
	h, w := float64(height), float64(width)
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			c := img.GetXY(col, row).NRGBA()
			fx, fy := float64(row)/h-0.5, float64(col)/w-0.5
			if err := flat.Append(r3.Vector{X: fx + float64(index), Y: fy}, pointcloud.NewColoredData(c).SetValue(index)); err != nil {
				return nil, nil, err
			}
			dir, keep := mapper(row, col)
			if !keep {
				continue
			}
			if err := sphere.Append(dir, pointcloud.NewColoredData(c).SetValue(index)); err != nil {
				return nil, nil, err
			}
		}
	}
	return flat, sphere, nil
}

// Renormalize returns a copy of pc with every point pushed back onto the unit sphere.
// Points at the origin stay there.
func Renormalize(pc pointcloud.PointCloud) (pointcloud.PointCloud, error) {
	return pointcloud.Map(pc, func(p r3.Vector) r3.Vector {
		return p.Normalize()
	})
}

// MapImage builds the flat, lobed and spherical clouds of one decoded image and moves them
// into the target frame. An unavailable transform is logged and marks the result as skipped
// rather than failing, unless ctx itself is done.
func MapImage(
	ctx context.Context,
	index int,
	in *ImageInput,
	img *rimage.Image,
	targetFrame string,
	tf Transformer,
	timeout time.Duration,
	logger logging.Logger,
) (*MappedImage, error) {
	proj, err := NewProjection(in.Projection, in.MaxViewAngle)
	if err != nil {
		return nil, errors.Wrapf(err, "image %d (%s)", index, in.name())
	}
	flat, sphere, err := sphereImage(img, index, proj.Mapper(img.Height(), img.Width()))
	if err != nil {
		return nil, errors.Wrapf(err, "image %d (%s)", index, in.name())
	}
	out := &MappedImage{Index: index, Name: in.name(), Flat: flat}

	lobed, err := tf.TryTransform(ctx, sphere, in.Frame, targetFrame, timeout)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		if !errors.Is(err, referenceframe.ErrTransformUnavailable) {
			return nil, errors.Wrapf(err, "image %d (%s)", index, in.name())
		}
		logger.Warnw("no transform for image, leaving it out of the reference cloud",
			"image", out.Name, "source", in.Frame, "target", targetFrame, "error", err)
		out.Skipped = true
		out.Lobed = pointcloud.New()
		out.Spherical = pointcloud.New()
		return out, nil
	}
	out.Lobed = lobed
	if out.Spherical, err = Renormalize(lobed); err != nil {
		return nil, err
	}
	logger.Debugw("mapped image", "image", out.Name, "pixels", img.Height()*img.Width(), "kept", sphere.Size())
	return out, nil
}
