package cli

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/gobag/rosbag"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"go.viam.com/painter/config"
	"go.viam.com/painter/logging"
	"go.viam.com/painter/painter"
	"go.viam.com/painter/pointcloud"
	"go.viam.com/painter/referenceframe"
	"go.viam.com/painter/ros"
	"go.viam.com/painter/utils"
)

// jobLoader reads the inputs of a job. The bag is opened at most once.
type jobLoader struct {
	job    *config.Job
	logger logging.Logger
	bag    *rosbag.RosBag
}

func (jl *jobLoader) openBag() (*rosbag.RosBag, error) {
	if jl.bag != nil {
		return jl.bag, nil
	}
	path := jl.job.ResolvePath(jl.job.Bag)
	stopSlowLogger := utils.SlowLogger(context.Background(), clock.New(), "still reading bag", "bag", path, jl.logger)
	defer stopSlowLogger()
	bag, err := ros.ReadBag(path)
	if err != nil {
		return nil, err
	}
	jl.bag = bag
	return bag, nil
}

func (jl *jobLoader) loadDepth() (painter.DepthInput, error) {
	src := jl.job.Depth
	if src.File != "" {
		pc, err := pointcloud.NewFromFile(jl.job.ResolvePath(src.File), jl.logger)
		if err != nil {
			return painter.DepthInput{}, err
		}
		return painter.DepthInput{Cloud: pc, Frame: src.Frame}, nil
	}

	bag, err := jl.openBag()
	if err != nil {
		return painter.DepthInput{}, err
	}
	var msg ros.PointCloud2Message
	if err := ros.LastMessageForTopic(bag, src.Topic, &msg); err != nil {
		return painter.DepthInput{}, errors.Wrapf(err, "reading range cloud from %s", src.Topic)
	}
	pc, skipped, err := msg.ToPointCloud()
	if err != nil {
		return painter.DepthInput{}, errors.Wrapf(err, "reading range cloud from %s", src.Topic)
	}
	if skipped > 0 {
		jl.logger.Warnw("skipped non-finite range points", "topic", src.Topic, "count", skipped)
	}
	return painter.DepthInput{Cloud: pc, Frame: lo.Ternary(src.Frame != "", src.Frame, msg.FrameID())}, nil
}

func (jl *jobLoader) loadImage(src config.ImageSource) (painter.ImageInput, error) {
	in := painter.ImageInput{
		Name:             src.Name,
		Frame:            src.Frame,
		Projection:       src.Projection,
		MaxViewAngle:     src.MaxViewAngle,
		Compress:         src.Compress,
		CompressionRatio: src.CompressionRatio,
	}
	if src.File != "" {
		data, err := os.ReadFile(jl.job.ResolvePath(src.File))
		if err != nil {
			return in, err
		}
		in.Data = data
		in.MimeType = utils.MimeTypeFromExtension(filepath.Ext(src.File))
		in.Name = lo.Ternary(in.Name != "", in.Name, filepath.Base(src.File))
		return in, nil
	}

	bag, err := jl.openBag()
	if err != nil {
		return in, err
	}
	var frameID string
	if src.MessageType == config.MessageTypeCompressedImage {
		var msg ros.CompressedImageMessage
		if err := ros.LastMessageForTopic(bag, src.Topic, &msg); err != nil {
			return in, errors.Wrapf(err, "reading image from %s", src.Topic)
		}
		in.Image, err = msg.ToImage()
		frameID = msg.FrameID()
	} else {
		var msg ros.ImageMessage
		if err := ros.LastMessageForTopic(bag, src.Topic, &msg); err != nil {
			return in, errors.Wrapf(err, "reading image from %s", src.Topic)
		}
		in.Image, err = msg.ToImage()
		frameID = msg.FrameID()
	}
	if err != nil {
		return in, errors.Wrapf(err, "decoding image from %s", src.Topic)
	}
	in.Frame = lo.Ternary(in.Frame != "", in.Frame, frameID)
	in.Name = lo.Ternary(in.Name != "", in.Name, src.Topic)
	return in, nil
}

// loadJob reads every input of job into a paint request and builds the static frame tree.
func loadJob(job *config.Job, logger logging.Logger) (*painter.Request, *referenceframe.FrameBuffer, error) {
	fb := referenceframe.NewFrameBuffer(nil)
	if err := fb.AddFrames(job.Frames); err != nil {
		return nil, nil, err
	}
	jl := &jobLoader{job: job, logger: logger}
	depth, err := jl.loadDepth()
	if err != nil {
		return nil, nil, err
	}
	req := &painter.Request{
		Depth:       depth,
		TargetFrame: job.TargetFrame,
		Config:      job.Painter,
	}
	for _, src := range job.Images {
		in, err := jl.loadImage(src)
		if err != nil {
			return nil, nil, err
		}
		req.Images = append(req.Images, in)
	}
	return req, fb, nil
}

// writeOutputs writes the painted cloud and every requested debug cloud.
func writeOutputs(job *config.Job, resp *painter.Response) error {
	for path, pc := range map[string]pointcloud.PointCloud{
		job.Output.Cloud:     resp.Cloud,
		job.Output.Flat:      resp.Flat,
		job.Output.Lobed:     resp.Lobed,
		job.Output.Spherical: resp.Spherical,
		job.Output.Projected: resp.Projected,
	} {
		if path == "" {
			continue
		}
		if err := writeCloud(pc, job.ResolvePath(path)); err != nil {
			return err
		}
	}
	return nil
}

// PaintAction is the corresponding Action for 'paint'.
func PaintAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("expected exactly one job file")
	}
	job, err := config.Read(c.Args().First())
	if err != nil {
		return err
	}
	logger := loggerFromContext(c, "painter")
	req, fb, err := loadJob(job, logger)
	if err != nil {
		return err
	}
	resp, err := painter.New(fb, logger, nil).Paint(c.Context, req)
	if err != nil {
		return err
	}
	if err := writeOutputs(job, resp); err != nil {
		return err
	}

	for _, name := range resp.SkippedImages {
		warningf(c.App.ErrWriter, "image %q was left out, no transform from its frame to %s", name, job.TargetFrame)
	}
	printf(c.App.Writer, "painted %d points (%d without coverage, %d dropped) into %s",
		resp.Cloud.Size(), resp.Summary.Uncovered, resp.Summary.Dropped, job.ResolvePath(job.Output.Cloud))
	printf(c.App.Writer, "nearest reference distance: median %.4f, max %.4f",
		resp.Summary.MedianNearest, resp.Summary.MaxNearest)
	printf(c.App.Writer, "timings: depth %s, images %v, voxelization %s, painting %s, total %s",
		resp.Timings.DepthPreprocessing.Round(time.Microsecond),
		lo.Map(resp.Timings.Images, func(d time.Duration, _ int) time.Duration { return d.Round(time.Microsecond) }),
		resp.Timings.Voxelization.Round(time.Microsecond),
		resp.Timings.Painting.Round(time.Microsecond),
		resp.Timings.Total.Round(time.Microsecond))
	return nil
}
