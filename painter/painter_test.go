package painter

import (
	"bytes"
	"context"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/painter/logging"
	"go.viam.com/painter/pointcloud"
	"go.viam.com/painter/referenceframe"
	"go.viam.com/painter/rimage"
	spatial "go.viam.com/painter/spatialmath"
	"go.viam.com/painter/utils"
)

func encodePNG(t *testing.T, img *rimage.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	test.That(t, png.Encode(&buf, img.ToNRGBA()), test.ShouldBeNil)
	return buf.Bytes()
}

// tenPointsInView are range points within 30 degrees of -z in the camera frame.
func tenPointsInView() []r3.Vector {
	pts := make([]r3.Vector, 10)
	for i := range pts {
		fi := float64(i)
		pts[i] = r3.Vector{X: 0.3*fi - 1.3, Y: 0.75 - 0.15*fi, Z: -4 - 0.25*fi}
	}
	return pts
}

func greyRequest(t *testing.T) *Request {
	t.Helper()
	return &Request{
		Depth:       DepthInput{Cloud: rangeCloud(t, tenPointsInView()...), Frame: "camera"},
		TargetFrame: "camera",
		Images: []ImageInput{{
			Name:         "front",
			Data:         encodePNG(t, uniformImage(64, 64, rimage.NewColor(128, 128, 128))),
			MimeType:     utils.MimeTypePNG,
			Frame:        "camera",
			Projection:   FlatPerspective,
			MaxViewAngle: 90,
		}},
		Config: DefaultConfig(),
	}
}

func TestPaintUniformImage(t *testing.T) {
	p := New(referenceframe.NewFrameBuffer(nil), logging.NewTestLogger(t), nil)
	resp, err := p.Paint(context.Background(), greyRequest(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.RequestID, test.ShouldNotBeEmpty)
	test.That(t, resp.Cloud.Size(), test.ShouldEqual, 10)
	test.That(t, resp.Summary.Dropped, test.ShouldEqual, 0)
	test.That(t, resp.Summary.Covered, test.ShouldEqual, 10)
	test.That(t, resp.Summary.MaxNearest, test.ShouldBeLessThan, 0.05)
	test.That(t, resp.SkippedImages, test.ShouldBeEmpty)

	want := tenPointsInView()
	for i := range want {
		p, d := resp.Cloud.At(i)
		test.That(t, p, test.ShouldResemble, want[i])
		test.That(t, d.Color(), test.ShouldResemble, &color.NRGBA{128, 128, 128, 255})
		test.That(t, d.Intensity(), test.ShouldEqual, uint16(100+i))
	}
	test.That(t, resp.Flat.Size(), test.ShouldEqual, 64*64)
	test.That(t, resp.Spherical.Size(), test.ShouldEqual, 64*64)
	test.That(t, resp.Projected.Size(), test.ShouldEqual, 10)
	test.That(t, resp.Timings.Images, test.ShouldHaveLength, 1)
}

func TestPaintCompressedImage(t *testing.T) {
	req := greyRequest(t)
	req.Images[0].Compress = true
	req.Images[0].CompressionRatio = 4
	p := New(referenceframe.NewFrameBuffer(nil), logging.NewTestLogger(t), nil)
	resp, err := p.Paint(context.Background(), req)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.Spherical.Size(), test.ShouldEqual, 16*16)
	test.That(t, resp.Cloud.Size(), test.ShouldEqual, 10)
	_, d := resp.Cloud.At(3)
	test.That(t, d.Color(), test.ShouldResemble, &color.NRGBA{128, 128, 128, 255})

	req.Images[0].CompressionRatio = 0
	_, err = p.Paint(context.Background(), req)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "front")
}

func TestPaintTransformedFrames(t *testing.T) {
	fb := referenceframe.NewFrameBuffer(nil)
	// the lidar sits at the camera, flipped upside down about x
	test.That(t, fb.SetTransform("camera", "lidar",
		spatial.NewPoseFromOrientation(&spatial.R4AA{Theta: 3.141592653589793, RX: 1})), test.ShouldBeNil)

	flipped := tenPointsInView()
	for i := range flipped {
		flipped[i] = r3.Vector{X: flipped[i].X, Y: -flipped[i].Y, Z: -flipped[i].Z}
	}
	req := greyRequest(t)
	req.Depth = DepthInput{Cloud: rangeCloud(t, flipped...), Frame: "lidar"}

	resp, err := New(fb, logging.NewTestLogger(t), nil).Paint(context.Background(), req)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.Summary.Covered, test.ShouldEqual, 10)
	want := tenPointsInView()
	for i := range want {
		p, _ := resp.Cloud.At(i)
		test.That(t, spatial.R3VectorAlmostEqual(p, want[i], 1e-9), test.ShouldBeTrue)
	}
}

func TestPaintWithoutImageTransform(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	req := greyRequest(t)
	req.Images[0].Frame = "elsewhere"
	req.Config.TransformTimeoutMs = 0

	resp, err := New(referenceframe.NewFrameBuffer(nil), logger, nil).Paint(context.Background(), req)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.SkippedImages, test.ShouldResemble, []string{"front"})
	test.That(t, resp.Summary.Dropped, test.ShouldEqual, 10)
	test.That(t, resp.Cloud.Size(), test.ShouldEqual, 0)
	test.That(t, logs.FilterMessage("no transform for image, leaving it out of the reference cloud").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessageSnippet("every range point will be dropped").Len(), test.ShouldEqual, 1)
}

func TestPaintEmptyRangeCloudWithoutTransform(t *testing.T) {
	req := greyRequest(t)
	req.Depth = DepthInput{Cloud: pointcloud.New(), Frame: "lidar"}
	req.Config.TransformTimeoutMs = 0

	resp, err := New(referenceframe.NewFrameBuffer(nil), logging.NewTestLogger(t), nil).Paint(context.Background(), req)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.Cloud.Size(), test.ShouldEqual, 0)
	test.That(t, resp.Summary.Dropped, test.ShouldEqual, 0)
	test.That(t, resp.SkippedImages, test.ShouldBeEmpty)
}

func TestPaintFailures(t *testing.T) {
	p := New(referenceframe.NewFrameBuffer(nil), logging.NewTestLogger(t), nil)

	req := greyRequest(t)
	req.Images = append(req.Images, ImageInput{
		Name: "broken", Data: []byte("not an image"), MimeType: utils.MimeTypePNG,
		Frame: "camera", Projection: FlatPerspective, MaxViewAngle: 90,
	})
	_, err := p.Paint(context.Background(), req)
	test.That(t, errors.Is(err, rimage.ErrImageDecode), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "broken")

	req = greyRequest(t)
	req.Images[0].MaxViewAngle = 400
	_, err = p.Paint(context.Background(), req)
	test.That(t, errors.Is(err, ErrInvalidProjection), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "front")

	req = greyRequest(t)
	req.Config.NeighborCount = 0
	_, err = p.Paint(context.Background(), req)
	test.That(t, err, test.ShouldNotBeNil)

	req = greyRequest(t)
	req.Depth.Cloud = nil
	_, err = p.Paint(context.Background(), req)
	test.That(t, err, test.ShouldNotBeNil)
}

// slowTransformer spends delay on the mock clock whenever it moves a cloud out of slowFrame.
type slowTransformer struct {
	Transformer
	mock      *clock.Mock
	slowFrame string
	delay     time.Duration
}

func (st *slowTransformer) TryTransform(
	ctx context.Context,
	pc pointcloud.PointCloud,
	source, target string,
	timeout time.Duration,
) (pointcloud.PointCloud, error) {
	if source == st.slowFrame {
		st.mock.Add(st.delay)
	}
	return st.Transformer.TryTransform(ctx, pc, source, target, timeout)
}

func TestPaintTimings(t *testing.T) {
	mock := clock.NewMock()
	tf := &slowTransformer{
		Transformer: referenceframe.NewFrameBuffer(nil),
		mock:        mock,
		slowFrame:   "lidar",
		delay:       2 * time.Second,
	}
	req := greyRequest(t)
	req.Depth.Frame = "lidar"
	req.TargetFrame = "lidar"
	req.Images[0].Frame = "lidar"

	resp, err := New(tf, logging.NewTestLogger(t), mock).Paint(context.Background(), req)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.Timings.DepthPreprocessing, test.ShouldEqual, 2*time.Second)
	test.That(t, resp.Timings.Images, test.ShouldResemble, []time.Duration{2 * time.Second})
	test.That(t, resp.Timings.Voxelization, test.ShouldEqual, time.Duration(0))
	test.That(t, resp.Timings.Painting, test.ShouldEqual, time.Duration(0))
	test.That(t, resp.Timings.Total, test.ShouldEqual, 4*time.Second)
}
