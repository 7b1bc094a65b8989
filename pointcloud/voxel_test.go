package pointcloud

import (
	"image/color"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestVoxelDownsample(t *testing.T) {
	pc := New()
	// two points in the first voxel, one in a far voxel
	test.That(t, pc.Append(NewVector(0, 0, 0), NewColoredData(color.NRGBA{100, 0, 0, 255}).SetIntensity(10)), test.ShouldBeNil)
	test.That(t, pc.Append(NewVector(0.2, 0.2, 0.2), NewColoredData(color.NRGBA{201, 50, 0, 255}).SetIntensity(21)), test.ShouldBeNil)
	test.That(t, pc.Append(NewVector(5, 5, 5), NewColoredData(color.NRGBA{0, 0, 255, 255}).SetValue(3)), test.ShouldBeNil)

	out, err := VoxelDownsample(pc, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Size(), test.ShouldEqual, 2)

	p, d := out.At(0)
	test.That(t, p.X, test.ShouldAlmostEqual, 0.1)
	test.That(t, p.Y, test.ShouldAlmostEqual, 0.1)
	test.That(t, p.Z, test.ShouldAlmostEqual, 0.1)
	r, g, b := d.RGB255()
	test.That(t, r, test.ShouldEqual, uint8(151))
	test.That(t, g, test.ShouldEqual, uint8(25))
	test.That(t, b, test.ShouldEqual, uint8(0))
	test.That(t, d.Intensity(), test.ShouldEqual, uint16(16))
	test.That(t, d.HasValue(), test.ShouldBeFalse)

	p, d = out.At(1)
	test.That(t, p, test.ShouldResemble, r3.Vector{X: 5, Y: 5, Z: 5})
	test.That(t, d.HasValue(), test.ShouldBeTrue)
	test.That(t, d.Value(), test.ShouldEqual, 3)
}

func TestVoxelDownsampleDeterministic(t *testing.T) {
	forward := New()
	backward := New()
	var pts []r3.Vector
	for i := 0; i < 50; i++ {
		pts = append(pts, NewVector(float64(i%7)*0.3, float64(i%5)*0.7, float64(i%3)*1.1))
	}
	for i := range pts {
		test.That(t, forward.Append(pts[i], nil), test.ShouldBeNil)
		test.That(t, backward.Append(pts[len(pts)-1-i], nil), test.ShouldBeNil)
	}
	a, err := VoxelDownsample(forward, 0.5)
	test.That(t, err, test.ShouldBeNil)
	b, err := VoxelDownsample(backward, 0.5)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a.Size(), test.ShouldEqual, b.Size())
	for i := 0; i < a.Size(); i++ {
		pa, da := a.At(i)
		pb, _ := b.At(i)
		test.That(t, pa.Distance(pb), test.ShouldBeLessThan, 1e-12)
		test.That(t, da, test.ShouldBeNil)
	}
}

func TestVoxelDownsampleEdgeCases(t *testing.T) {
	_, err := VoxelDownsample(New(), 0)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = VoxelDownsample(New(), -1)
	test.That(t, err, test.ShouldNotBeNil)

	out, err := VoxelDownsample(New(), 0.1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Size(), test.ShouldEqual, 0)
}
