// Package pointcloud defines an ordered point cloud and provides an implementation for one,
// along with voxel downsampling, a nearest neighbor index and PCD/LAS file support.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
)

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	HasColor     bool
	HasValue     bool
	HasIntensity bool

	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64

	totalX, totalY, totalZ float64
}

// PointCloud is a general purpose container of points. Points keep the order in
// which they were appended and may repeat positions.
type PointCloud interface {
	// Size returns the number of points in the cloud.
	Size() int

	// MetaData returns meta data
	MetaData() MetaData

	// Append adds the given point to the end of the cloud.
	Append(p r3.Vector, d Data) error

	// At returns the point and its data stored at index i.
	At(i int) (r3.Vector, Data)

	// Iterate iterates over all points in the cloud and calls the given
	// function for each point. If the supplied function returns false,
	// iteration will stop after the function returns.
	// numBatches lets you divide up he work. 0 means don't divide
	// myBatch is used iff numBatches > 0 and is which batch you want
	Iterate(numBatches, myBatch int, fn func(p r3.Vector, d Data) bool)
}

// NewMetaData creates a new MetaData.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge updates the meta data with the new data.
func (meta *MetaData) Merge(v r3.Vector, data Data) {
	if data != nil {
		if data.HasColor() {
			meta.HasColor = true
		}
		if data.HasValue() {
			meta.HasValue = true
		}
		if data.HasIntensity() {
			meta.HasIntensity = true
		}
	}

	if v.X > meta.MaxX {
		meta.MaxX = v.X
	}
	if v.Y > meta.MaxY {
		meta.MaxY = v.Y
	}
	if v.Z > meta.MaxZ {
		meta.MaxZ = v.Z
	}

	if v.X < meta.MinX {
		meta.MinX = v.X
	}
	if v.Y < meta.MinY {
		meta.MinY = v.Y
	}
	if v.Z < meta.MinZ {
		meta.MinZ = v.Z
	}

	meta.totalX += v.X
	meta.totalY += v.Y
	meta.totalZ += v.Z
}

// Center returns the mean of all points merged so far.
func (meta *MetaData) Center(size int) r3.Vector {
	if size == 0 {
		return r3.Vector{}
	}
	n := float64(size)
	return r3.Vector{X: meta.totalX / n, Y: meta.totalY / n, Z: meta.totalZ / n}
}

// Points returns the positions of the cloud in order.
func Points(pc PointCloud) []r3.Vector {
	out := make([]r3.Vector, 0, pc.Size())
	pc.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		out = append(out, p)
		return true
	})
	return out
}

// Clone returns a deep copy of the cloud.
func Clone(pc PointCloud) PointCloud {
	out := NewWithPrealloc(pc.Size())
	pc.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		var dd Data
		if d != nil {
			dd = d.Clone()
		}
		// points were validated when first appended
		//nolint:errcheck
		out.Append(p, dd)
		return true
	})
	return out
}

// Concat appends every point of the given clouds, in order, into one new cloud.
func Concat(clouds ...PointCloud) PointCloud {
	size := 0
	for _, c := range clouds {
		if c != nil {
			size += c.Size()
		}
	}
	out := NewWithPrealloc(size)
	for _, c := range clouds {
		if c == nil {
			continue
		}
		c.Iterate(0, 0, func(p r3.Vector, d Data) bool {
			//nolint:errcheck
			out.Append(p, d)
			return true
		})
	}
	return out
}

// Map returns a new cloud where every position has been passed through fn. Data is shared.
func Map(pc PointCloud, fn func(p r3.Vector) r3.Vector) (PointCloud, error) {
	out := NewWithPrealloc(pc.Size())
	var err error
	pc.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		err = out.Append(fn(p), d)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
