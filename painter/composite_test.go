package painter

import (
	"context"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/painter/logging"
	"go.viam.com/painter/pointcloud"
	"go.viam.com/painter/referenceframe"
	"go.viam.com/painter/rimage"
)

func mapTestImages(t *testing.T) []*MappedImage {
	t.Helper()
	fb := referenceframe.NewFrameBuffer(nil)
	logger := logging.NewTestLogger(t)
	var mapped []*MappedImage
	for i, c := range []rimage.Color{rimage.Red, rimage.Blue} {
		in := &ImageInput{Frame: "camera", Projection: EqualArea, MaxViewAngle: 180}
		m, err := MapImage(context.Background(), i, in, uniformImage(32, 32, c), "camera", fb, 0, logger)
		test.That(t, err, test.ShouldBeNil)
		mapped = append(mapped, m)
	}
	// a third image that could not be placed
	skipped, err := MapImage(context.Background(), 2,
		&ImageInput{Frame: "nowhere", Projection: FlatPerspective, MaxViewAngle: 90},
		uniformImage(4, 4, rimage.White), "camera", fb, 0, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, skipped.Skipped, test.ShouldBeTrue)
	return append(mapped, skipped, nil)
}

func TestAssembleUnion(t *testing.T) {
	mapped := mapTestImages(t)
	comp, err := Assemble(mapped, DefaultConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, comp.Images, test.ShouldEqual, 2)
	test.That(t, comp.Flat.Size(), test.ShouldEqual, 32*32*2+16)
	test.That(t, comp.Spherical.Size(), test.ShouldEqual, mapped[0].Spherical.Size()*2)
	test.That(t, comp.Lobed.Size(), test.ShouldEqual, comp.Spherical.Size())

	// images keep their order
	_, first := comp.Spherical.At(0)
	_, last := comp.Spherical.At(comp.Spherical.Size() - 1)
	test.That(t, first.Value(), test.ShouldEqual, 0)
	test.That(t, last.Value(), test.ShouldEqual, 1)
}

func TestAssembleVoxelized(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VoxelizeFlat = true
	cfg.FlatLeafSize = 0.25
	cfg.VoxelizeSpherical = true
	cfg.SphericalLeafSize = 0.2

	norms := func(pc pointcloud.PointCloud) (minNorm, maxNorm float64) {
		minNorm, maxNorm = 2, 0
		pc.Iterate(0, 0, func(p r3.Vector, d pointcloud.Data) bool {
			n := p.Norm()
			if n < minNorm {
				minNorm = n
			}
			if n > maxNorm {
				maxNorm = n
			}
			return true
		})
		return minNorm, maxNorm
	}

	mapped := mapTestImages(t)
	comp, err := Assemble(mapped, cfg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, comp.Spherical.Size(), test.ShouldBeLessThan, mapped[0].Spherical.Size())
	test.That(t, comp.Flat.Size(), test.ShouldBeLessThan, 32*32*2)
	test.That(t, comp.Lobed.Size(), test.ShouldEqual, comp.Spherical.Size())
	// centroids of points on an arc fall inside the sphere
	minNorm, maxNorm := norms(comp.Spherical)
	test.That(t, minNorm, test.ShouldBeLessThan, 1-1e-4)
	test.That(t, maxNorm, test.ShouldBeLessThanOrEqualTo, 1+1e-9)

	cfg.RenormalizeAfterVoxelize = true
	renormalized, err := Assemble(mapped, cfg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, renormalized.Spherical.Size(), test.ShouldEqual, comp.Spherical.Size())
	minNorm, maxNorm = norms(renormalized.Spherical)
	test.That(t, minNorm, test.ShouldAlmostEqual, 1, 1e-9)
	test.That(t, maxNorm, test.ShouldAlmostEqual, 1, 1e-9)
	// the lobed debug cloud is left alone
	minNorm, _ = norms(renormalized.Lobed)
	test.That(t, minNorm, test.ShouldBeLessThan, 1-1e-4)

	cfg.SphericalLeafSize = 0
	_, err = Assemble(mapped, cfg)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestAssembleEmpty(t *testing.T) {
	comp, err := Assemble(nil, DefaultConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, comp.Images, test.ShouldEqual, 0)
	test.That(t, comp.Spherical.Size(), test.ShouldEqual, 0)
}
