package painter

import (
	"context"
	"math"
	"time"

	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"go.viam.com/painter/logging"
	"go.viam.com/painter/pointcloud"
	"go.viam.com/painter/rimage"
	"go.viam.com/painter/utils"
)

const dropLogInterval = time.Second

// Resolver colors range points from the nearest points of a reference cloud.
// It is safe for concurrent use.
type Resolver struct {
	k         int
	threshold float64
	logger    logging.Logger
	throttle  *logging.Throttle
}

// NewResolver returns a Resolver blending cfg.NeighborCount neighbors and treating a nearest
// squared distance of cfg.CoverageThreshold or more as uncovered.
func NewResolver(cfg Config, logger logging.Logger) (*Resolver, error) {
	if cfg.NeighborCount < 1 {
		return nil, errors.Errorf("neighbor count must be at least 1, got %d", cfg.NeighborCount)
	}
	if !(cfg.CoverageThreshold > 0) {
		return nil, errors.Errorf("coverage threshold must be positive, got %v", cfg.CoverageThreshold)
	}
	return &Resolver{
		k:         cfg.NeighborCount,
		threshold: cfg.CoverageThreshold,
		logger:    logger,
		throttle:  logging.NewThrottle(dropLogInterval),
	}, nil
}

// Summary describes the outcome of one resolution.
type Summary struct {
	Covered   int
	Uncovered int
	Dropped   int
	// MedianNearest and MaxNearest are the distances to the nearest reference point over
	// covered points. Both are zero when nothing was covered.
	MedianNearest float64
	MaxNearest    float64
}

// Resolution is a colorized range cloud in input order, without the dropped points.
type Resolution struct {
	Cloud   pointcloud.PointCloud
	Summary Summary
}

type resolveStatus uint8

const (
	statusDropped resolveStatus = iota
	statusUncovered
	statusCovered
)

type resolveSlot struct {
	status  resolveStatus
	color   rimage.Color
	nearest float64
}

// BlendNeighbors averages the neighbor colors weighted by the inverse of their distance.
// Neighbors at distance zero are the sole contributors, equally weighted. Points without
// a color count as black.
func BlendNeighbors(neighbors []pointcloud.Neighbor) rimage.Color {
	coincident := false
	for _, n := range neighbors {
		if n.DistSquared == 0 {
			coincident = true
			break
		}
	}
	var r, g, b, total float64
	for _, n := range neighbors {
		w := 1.0
		switch {
		case coincident && n.DistSquared != 0:
			continue
		case !coincident:
			w = 1 / math.Sqrt(n.DistSquared)
		}
		if n.D != nil && n.D.HasColor() {
			nr, ng, nb := n.D.RGB255()
			r += w * float64(nr)
			g += w * float64(ng)
			b += w * float64(nb)
		}
		total += w
	}
	if total == 0 {
		return rimage.Black
	}
	return rimage.NewColor(utils.ClampUint8(r/total), utils.ClampUint8(g/total), utils.ClampUint8(b/total))
}

func (r *Resolver) resolveOne(tree *pointcloud.KDTree, dir r3.Vector) resolveSlot {
	neighbors := tree.KNearestNeighbors(dir, r.k)
	if len(neighbors) == 0 {
		return resolveSlot{status: statusDropped}
	}
	nearest := neighbors[0].DistSquared
	if nearest >= r.threshold {
		return resolveSlot{status: statusUncovered, color: rimage.Black}
	}
	return resolveSlot{status: statusCovered, color: BlendNeighbors(neighbors), nearest: math.Sqrt(nearest)}
}

// Resolve colors every prepared range point from the reference cloud. Output points keep the
// original positions and intensities. Points for which the search yields nothing are dropped.
func (r *Resolver) Resolve(ctx context.Context, reference pointcloud.PointCloud, depth *PreparedDepth) (*Resolution, error) {
	if len(depth.Points) != len(depth.Directions) {
		return nil, errors.Errorf("have %d range points but %d directions", len(depth.Points), len(depth.Directions))
	}
	tree := pointcloud.NewKDTree(reference)
	slots := make([]resolveSlot, len(depth.Directions))
	if err := utils.GroupWorkParallel(
		ctx,
		len(depth.Directions),
		func(groupSize int) {},
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			return func(memberNum, workNum int) {
				slots[workNum] = r.resolveOne(tree, depth.Directions[workNum])
				if slots[workNum].status == statusDropped {
					r.throttle.Do(func(suppressed int64) {
						r.logger.Warnw("no neighbors found for range point, dropping it",
							"index", workNum, "reference_size", tree.Size(), "suppressed", suppressed)
					})
				}
			}, nil
		},
	); err != nil {
		return nil, err
	}

	var summary Summary
	nearest := make([]float64, 0, len(slots))
	out := pointcloud.NewWithPrealloc(len(slots))
	for i, slot := range slots {
		switch slot.status {
		case statusDropped:
			summary.Dropped++
			continue
		case statusUncovered:
			summary.Uncovered++
		case statusCovered:
			summary.Covered++
			nearest = append(nearest, slot.nearest)
		}
		d := pointcloud.NewColoredData(slot.color.NRGBA())
		if i < len(depth.Data) && depth.Data[i] != nil && depth.Data[i].HasIntensity() {
			d = d.SetIntensity(depth.Data[i].Intensity())
		}
		if err := out.Append(depth.Points[i], d); err != nil {
			return nil, err
		}
	}
	if len(nearest) > 0 {
		// neither can fail on non-empty input
		summary.MedianNearest, _ = stats.Median(nearest)
		summary.MaxNearest, _ = stats.Max(nearest)
	}
	r.logger.Debugw("resolved range points",
		"covered", summary.Covered, "uncovered", summary.Uncovered, "dropped", summary.Dropped)
	return &Resolution{Cloud: out, Summary: summary}, nil
}
