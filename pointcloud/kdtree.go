package pointcloud

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// kdPoint is a cloud point that remembers its index in the source cloud.
type kdPoint struct {
	r3.Vector
	index int
}

// Compare returns the signed distance of p from the plane passing through c and
// perpendicular to the dimension d.
func (p kdPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(kdPoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions described by the receiver.
func (p kdPoint) Dims() int { return 3 }

// Distance returns the squared euclidean distance between c and the receiver.
func (p kdPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(kdPoint)
	return p.Sub(q.Vector).Norm2()
}

// kdPoints is a collection of kdPoint that satisfies kdtree.Interface.
type kdPoints []kdPoint

func (p kdPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p kdPoints) Len() int                              { return len(p) }
func (p kdPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }
func (p kdPoints) Pivot(d kdtree.Dim) int {
	return kdPlane{Dim: d, kdPoints: p}.pivot()
}

// kdPlane is a wrapping type that allows a kdPoints to satisfy
// kdtree.SortSlicer along a single dimension.
type kdPlane struct {
	kdtree.Dim
	kdPoints
}

func (p kdPlane) Less(i, j int) bool {
	return p.kdPoints[i].Compare(p.kdPoints[j], p.Dim) < 0
}

func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.kdPoints = p.kdPoints[start:end]
	return p
}

func (p kdPlane) Swap(i, j int) {
	p.kdPoints[i], p.kdPoints[j] = p.kdPoints[j], p.kdPoints[i]
}

func (p kdPlane) pivot() int {
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

// Neighbor is one result of a nearest neighbor query.
type Neighbor struct {
	// Index is the position of the neighbor in the cloud the tree was built from.
	Index int
	P     r3.Vector
	D     Data
	// DistSquared is the squared euclidean distance to the query point.
	DistSquared float64
}

// KDTree is an immutable nearest neighbor index over the points of a cloud.
// It is safe for concurrent queries.
type KDTree struct {
	tree *kdtree.Tree
	data []Data
	size int
}

// NewKDTree builds a KDTree from the given cloud. The cloud is not retained.
func NewKDTree(pc PointCloud) *KDTree {
	pts := make(kdPoints, 0, pc.Size())
	data := make([]Data, 0, pc.Size())
	pc.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		pts = append(pts, kdPoint{Vector: p, index: len(pts)})
		data = append(data, d)
		return true
	})
	kd := &KDTree{data: data, size: len(pts)}
	if len(pts) > 0 {
		kd.tree = kdtree.New(pts, false)
	}
	return kd
}

// Size returns the number of points in the tree.
func (kd *KDTree) Size() int {
	return kd.size
}

// KNearestNeighbors returns up to k points closest to q sorted by ascending distance.
// Equal distances are ordered by index. An empty tree or k < 1 yields no neighbors.
func (kd *KDTree) KNearestNeighbors(q r3.Vector, k int) []Neighbor {
	if kd.tree == nil || k < 1 {
		return nil
	}
	keep := kdtree.NewNKeeper(k)
	kd.tree.NearestSet(keep, kdPoint{Vector: q, index: -1})

	out := make([]Neighbor, 0, k)
	for _, cd := range keep.Heap {
		if cd.Comparable == nil || math.IsInf(cd.Dist, 1) {
			continue
		}
		p := cd.Comparable.(kdPoint)
		out = append(out, Neighbor{Index: p.index, P: p.Vector, D: kd.data[p.index], DistSquared: cd.Dist})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DistSquared != out[j].DistSquared {
			return out[i].DistSquared < out[j].DistSquared
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// NearestNeighbor returns the closest point to q, or false when the tree is empty.
func (kd *KDTree) NearestNeighbor(q r3.Vector) (Neighbor, bool) {
	nn := kd.KNearestNeighbors(q, 1)
	if len(nn) == 0 {
		return Neighbor{}, false
	}
	return nn[0], true
}
