package pointcloud

import (
	"image/color"
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/painter/utils"
)

/* In this file are functions to reduce a point cloud on a regular voxel grid.
A voxel represents a value on a regular grid in three-dimensional space. Every
point falls into the voxel whose cube contains it and each occupied voxel is
replaced by the centroid of its points.
More information here:
- https://en.wikipedia.org/wiki/Voxel
- https://pointclouds.org/documentation/classpcl_1_1_voxel_grid.html
*/

// VoxelCoords stores Voxel coordinates in VoxelGrid axes.
type VoxelCoords struct {
	I, J, K int64
}

// IsEqual tests if two VoxelCoords are the same.
func (c VoxelCoords) IsEqual(c2 VoxelCoords) bool {
	return c.I == c2.I && c.J == c2.J && c.K == c2.K
}

// less orders voxels with K varying slowest and I fastest.
func (c VoxelCoords) less(c2 VoxelCoords) bool {
	if c.K != c2.K {
		return c.K < c2.K
	}
	if c.J != c2.J {
		return c.J < c2.J
	}
	return c.I < c2.I
}

// voxelAccumulator sums everything that fell into one voxel.
type voxelAccumulator struct {
	count int
	sum   r3.Vector

	colored      int
	r, g, b      float64
	intensities  int
	intensitySum float64
	hasValue     bool
	value        int
}

func (acc *voxelAccumulator) add(p r3.Vector, d Data) {
	acc.count++
	acc.sum = acc.sum.Add(p)
	if d == nil {
		return
	}
	if d.HasColor() {
		r, g, b := d.RGB255()
		acc.colored++
		acc.r += float64(r)
		acc.g += float64(g)
		acc.b += float64(b)
	}
	if d.HasIntensity() {
		acc.intensities++
		acc.intensitySum += float64(d.Intensity())
	}
	// the first tagged point wins so the result does not depend on float summation
	if d.HasValue() && !acc.hasValue {
		acc.hasValue = true
		acc.value = d.Value()
	}
}

func (acc *voxelAccumulator) centroid() (r3.Vector, Data) {
	p := acc.sum.Mul(1 / float64(acc.count))
	if acc.colored == 0 && acc.intensities == 0 && !acc.hasValue {
		return p, nil
	}
	d := NewBasicData()
	if acc.colored > 0 {
		n := float64(acc.colored)
		d.SetColor(color.NRGBA{
			R: utils.ClampUint8(acc.r / n),
			G: utils.ClampUint8(acc.g / n),
			B: utils.ClampUint8(acc.b / n),
			A: 255,
		})
	}
	if acc.intensities > 0 {
		d.SetIntensity(uint16(math.Round(acc.intensitySum / float64(acc.intensities))))
	}
	if acc.hasValue {
		d.SetValue(acc.value)
	}
	return p, d
}

// VoxelDownsample reduces the cloud to one point per occupied voxel of edge length leafSize.
// Each output point is the centroid of the points in its voxel, with their mean color and
// intensity. The output is ordered by voxel coordinate and therefore deterministic for a
// given input and leaf size. Points are not renormalized in any way.
func VoxelDownsample(pc PointCloud, leafSize float64) (PointCloud, error) {
	if !(leafSize > 0) || math.IsInf(leafSize, 0) {
		return nil, errors.Errorf("voxel leaf size must be positive and finite, got %v", leafSize)
	}
	if pc.Size() == 0 {
		return New(), nil
	}
	meta := pc.MetaData()
	origin := r3.Vector{X: meta.MinX, Y: meta.MinY, Z: meta.MinZ}

	voxels := make(map[VoxelCoords]*voxelAccumulator)
	pc.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		key := VoxelCoords{
			I: int64(math.Floor((p.X - origin.X) / leafSize)),
			J: int64(math.Floor((p.Y - origin.Y) / leafSize)),
			K: int64(math.Floor((p.Z - origin.Z) / leafSize)),
		}
		acc, ok := voxels[key]
		if !ok {
			acc = &voxelAccumulator{}
			voxels[key] = acc
		}
		acc.add(p, d)
		return true
	})

	keys := make([]VoxelCoords, 0, len(voxels))
	for k := range voxels {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })

	out := NewWithPrealloc(len(keys))
	for _, k := range keys {
		p, d := voxels[k].centroid()
		if err := out.Append(p, d); err != nil {
			return nil, err
		}
	}
	return out, nil
}
