package painter

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/painter/logging"
	"go.viam.com/painter/pointcloud"
	"go.viam.com/painter/referenceframe"
)

// DepthInput is the range cloud of a paint request.
type DepthInput struct {
	Cloud pointcloud.PointCloud
	Frame string
}

// PreparedDepth holds the range points in the target frame and their unit directions.
// Points and Directions have the same length and correspond by index.
type PreparedDepth struct {
	Cloud      pointcloud.PointCloud
	Points     []r3.Vector
	Data       []pointcloud.Data
	Directions []r3.Vector
	// Projected is the direction cloud with the range intensities, for inspection.
	Projected pointcloud.PointCloud
	// Transformed is false when the cloud was used as given because no transform was available.
	Transformed bool
}

// Direction returns p scaled to unit length. The origin maps to itself.
func Direction(p r3.Vector) r3.Vector {
	n := p.Norm()
	if n == 0 {
		return r3.Vector{}
	}
	return r3.Vector{X: p.X / n, Y: p.Y / n, Z: p.Z / n}
}

// PreprocessDepth moves the range cloud into the target frame, falling back to the cloud as
// given when the transform is unavailable, optionally voxelizes it, and projects every point
// onto the unit sphere.
func PreprocessDepth(
	ctx context.Context,
	in DepthInput,
	targetFrame string,
	tf Transformer,
	cfg Config,
	logger logging.Logger,
) (*PreparedDepth, error) {
	if in.Cloud == nil {
		return nil, errors.New("no range cloud given")
	}
	out := &PreparedDepth{Cloud: in.Cloud}
	moved, err := tf.TryTransform(ctx, in.Cloud, in.Frame, targetFrame, cfg.TransformTimeout())
	switch {
	case err == nil:
		out.Cloud = moved
		out.Transformed = true
	case ctx.Err() != nil:
		return nil, err
	case errors.Is(err, referenceframe.ErrTransformUnavailable):
		logger.Warnw("no transform for range cloud, using it untransformed",
			"source", in.Frame, "target", targetFrame, "error", err)
	default:
		return nil, errors.Wrap(err, "transforming range cloud")
	}

	if cfg.VoxelizeDepth {
		if out.Cloud, err = pointcloud.VoxelDownsample(out.Cloud, cfg.DepthLeafSize); err != nil {
			return nil, errors.Wrap(err, "voxelizing range cloud")
		}
	}

	size := out.Cloud.Size()
	out.Points = make([]r3.Vector, 0, size)
	out.Data = make([]pointcloud.Data, 0, size)
	out.Directions = make([]r3.Vector, 0, size)
	out.Projected = pointcloud.NewWithPrealloc(size)
	var appendErr error
	out.Cloud.Iterate(0, 0, func(p r3.Vector, d pointcloud.Data) bool {
		dir := Direction(p)
		out.Points = append(out.Points, p)
		out.Data = append(out.Data, d)
		out.Directions = append(out.Directions, dir)
		var pd pointcloud.Data
		if d != nil && d.HasIntensity() {
			pd = pointcloud.NewIntensityData(d.Intensity())
		}
		appendErr = out.Projected.Append(dir, pd)
		return appendErr == nil
	})
	if appendErr != nil {
		return nil, appendErr
	}
	return out, nil
}
