// Package painter colors range scans with camera images. Images are mapped onto a unit sphere
// under a lens model, merged into one reference cloud, and every range point takes the
// distance weighted color of the reference points nearest to its direction.
package painter

import (
	"context"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"go.viam.com/painter/logging"
	"go.viam.com/painter/pointcloud"
	"go.viam.com/painter/rimage"
	"go.viam.com/painter/utils"
)

// Request is everything needed to paint one range cloud.
type Request struct {
	Depth       DepthInput
	TargetFrame string
	// Images are processed in this order, which decides the debug cloud offsets.
	Images []ImageInput
	Config Config
}

// Timings are informational stage durations of a request.
type Timings struct {
	DepthPreprocessing time.Duration
	Images             []time.Duration
	Voxelization       time.Duration
	Painting           time.Duration
	Total              time.Duration
}

// Response is the colorized cloud of a request along with the intermediate clouds.
type Response struct {
	RequestID string
	Cloud     pointcloud.PointCloud
	// Flat, Lobed, Spherical and Projected are debug clouds.
	Flat      pointcloud.PointCloud
	Lobed     pointcloud.PointCloud
	Spherical pointcloud.PointCloud
	Projected pointcloud.PointCloud
	// SkippedImages names the images left out for lack of a transform.
	SkippedImages []string
	Summary       Summary
	Timings       Timings
}

// Painter runs paint requests. It keeps no state between requests.
type Painter struct {
	tf     Transformer
	logger logging.Logger
	clock  clock.Clock
}

// New returns a Painter moving clouds with tf. A nil clk uses the wall clock.
func New(tf Transformer, logger logging.Logger, clk clock.Clock) *Painter {
	if clk == nil {
		clk = clock.New()
	}
	return &Painter{tf: tf, logger: logger, clock: clk}
}

// decodeImages decodes and compresses the request images. Any failure aborts the request.
func decodeImages(inputs []ImageInput) ([]*rimage.Image, error) {
	imgs := make([]*rimage.Image, len(inputs))
	for i := range inputs {
		in := &inputs[i]
		img := in.Image
		if img == nil {
			var err error
			if img, err = rimage.DecodeImage(in.Data, in.MimeType); err != nil {
				return nil, errors.Wrapf(err, "decoding image %d (%s)", i, in.name())
			}
		}
		if in.Compress {
			var err error
			if img, err = rimage.Downsample(img, in.CompressionRatio); err != nil {
				return nil, errors.Wrapf(err, "compressing image %d (%s)", i, in.name())
			}
		}
		imgs[i] = img
	}
	return imgs, nil
}

// Paint colors the range cloud of req. Unavailable transforms degrade the result with a
// warning. Undecodable images and invalid configuration fail the request.
func (p *Painter) Paint(ctx context.Context, req *Request) (*Response, error) {
	if err := req.Config.Validate("config"); err != nil {
		return nil, err
	}
	for i := range req.Images {
		if _, err := NewProjection(req.Images[i].Projection, req.Images[i].MaxViewAngle); err != nil {
			return nil, errors.Wrapf(err, "image %d (%s)", i, req.Images[i].name())
		}
	}

	resp := &Response{RequestID: uuid.NewString()}
	logger := p.logger.Sublogger(resp.RequestID)
	resolver, err := NewResolver(req.Config, logger)
	if err != nil {
		return nil, err
	}
	start := p.clock.Now()
	logger.Debugw("painting", "images", len(req.Images), "target", req.TargetFrame)

	imgs, err := decodeImages(req.Images)
	if err != nil {
		return nil, err
	}

	stageStart := p.clock.Now()
	depth, err := PreprocessDepth(ctx, req.Depth, req.TargetFrame, p.tf, req.Config, logger)
	if err != nil {
		return nil, err
	}
	resp.Timings.DepthPreprocessing = p.clock.Since(stageStart)
	resp.Projected = depth.Projected

	mapped := make([]*MappedImage, len(imgs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(utils.ParallelFactor)
	for i := range imgs {
		g.Go(func() error {
			imgStart := p.clock.Now()
			m, err := MapImage(gctx, i, &req.Images[i], imgs[i], req.TargetFrame, p.tf, req.Config.TransformTimeout(), logger)
			if err != nil {
				return err
			}
			m.Duration = p.clock.Since(imgStart)
			mapped[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	resp.Timings.Images = make([]time.Duration, len(mapped))
	for i, m := range mapped {
		resp.Timings.Images[i] = m.Duration
		if m.Skipped {
			resp.SkippedImages = append(resp.SkippedImages, m.Name)
		}
	}

	stageStart = p.clock.Now()
	comp, err := Assemble(mapped, req.Config)
	if err != nil {
		return nil, err
	}
	resp.Timings.Voxelization = p.clock.Since(stageStart)
	resp.Flat, resp.Lobed, resp.Spherical = comp.Flat, comp.Lobed, comp.Spherical
	if comp.Images == 0 && len(req.Images) > 0 {
		logger.Warn("no image could be placed in the target frame, every range point will be dropped")
	}

	stageStart = p.clock.Now()
	stopSlowLogger := utils.SlowLogger(ctx, p.clock, "still painting range points",
		"points", strconv.Itoa(len(depth.Points)), logger)
	res, err := resolver.Resolve(ctx, comp.Spherical, depth)
	stopSlowLogger()
	if err != nil {
		return nil, err
	}
	resp.Timings.Painting = p.clock.Since(stageStart)
	resp.Cloud = res.Cloud
	resp.Summary = res.Summary
	resp.Timings.Total = p.clock.Since(start)

	logger.Infow("painted range cloud",
		"points", resp.Cloud.Size(),
		"dropped", resp.Summary.Dropped,
		"uncovered", resp.Summary.Uncovered,
		"skipped_images", len(resp.SkippedImages),
		"total", resp.Timings.Total)
	return resp, nil
}
