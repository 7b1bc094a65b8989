// Package referenceframe keeps track of the transforms between named coordinate frames
// and moves points between them.
package referenceframe

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/painter/pointcloud"
	spatial "go.viam.com/painter/spatialmath"
)

// World is the string "world", but made into an exported constant.
const World = "world"

type link struct {
	parent string
	// pose of the child frame expressed in the parent frame
	pose spatial.Pose
}

// FrameBuffer stores the most recent transform from every child frame to its parent,
// in the manner of a tf listener. Frames form a forest; two frames are connected when
// they share a root. It is safe for concurrent use.
type FrameBuffer struct {
	clock clock.Clock

	mu      sync.Mutex
	links   map[string]link
	updated chan struct{}
}

// NewFrameBuffer returns an empty FrameBuffer that measures timeouts on the given clock.
// A nil clock means the wall clock.
func NewFrameBuffer(clk clock.Clock) *FrameBuffer {
	if clk == nil {
		clk = clock.New()
	}
	return &FrameBuffer{
		clock:   clk,
		links:   map[string]link{},
		updated: make(chan struct{}),
	}
}

// SetTransform records pose as the pose of child within parent, replacing any previous parent
// of child. Waiting lookups are woken up.
func (fb *FrameBuffer) SetTransform(parent, child string, pose spatial.Pose) error {
	if parent == "" || child == "" {
		return errors.New("frame names must not be empty")
	}
	if parent == child {
		return NewFrameCycleError(parent, child)
	}
	if pose == nil {
		pose = spatial.NewZeroPose()
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	for cur := parent; ; {
		l, ok := fb.links[cur]
		if !ok {
			break
		}
		if l.parent == child {
			return NewFrameCycleError(parent, child)
		}
		cur = l.parent
	}
	fb.links[child] = link{parent: parent, pose: pose}
	close(fb.updated)
	fb.updated = make(chan struct{})
	return nil
}

// FrameNames returns every frame the buffer knows about, parents included.
func (fb *FrameBuffer) FrameNames() []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	seen := map[string]bool{}
	var names []string
	for child, l := range fb.links {
		for _, n := range []string{child, l.parent} {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}

// tracebackFrame returns the pose of frame within its root along with the root name.
// Must be called with mu held.
func (fb *FrameBuffer) tracebackFrame(frame string) (spatial.Pose, string) {
	pose := spatial.NewZeroPose()
	cur := frame
	for {
		l, ok := fb.links[cur]
		if !ok {
			return pose, cur
		}
		pose = spatial.Compose(l.pose, pose)
		cur = l.parent
	}
}

func (fb *FrameBuffer) transformNow(target, source string) (spatial.Pose, <-chan struct{}, error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if target == source {
		return spatial.NewZeroPose(), nil, nil
	}
	srcToRoot, srcRoot := fb.tracebackFrame(source)
	dstToRoot, dstRoot := fb.tracebackFrame(target)
	if srcRoot != dstRoot {
		return nil, fb.updated, errors.Wrapf(ErrTransformUnavailable, "no chain from %q to %q", source, target)
	}
	return spatial.Compose(spatial.PoseInverse(dstToRoot), srcToRoot), nil, nil
}

// LookupTransform returns the pose of the source frame within the target frame, so that
// applying it to a point in source coordinates yields target coordinates. If the frames are
// not yet connected it waits for new transforms until timeout elapses or ctx is done.
// A non-positive timeout performs a single check.
func (fb *FrameBuffer) LookupTransform(ctx context.Context, target, source string, timeout time.Duration) (spatial.Pose, error) {
	pose, updated, err := fb.transformNow(target, source)
	if err == nil || timeout <= 0 {
		return pose, err
	}

	timer := fb.clock.Timer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, multierr.Combine(ctx.Err(), err)
		case <-timer.C:
			return nil, err
		case <-updated:
		}
		pose, updated, err = fb.transformNow(target, source)
		if err == nil {
			return pose, nil
		}
	}
}

// TryTransform returns a copy of pc moved from the source frame into the target frame. It
// waits at most timeout for the transform to become available and otherwise returns an error
// wrapping ErrTransformUnavailable. The input cloud is never modified. A cloud already in the
// target frame is copied as is.
func (fb *FrameBuffer) TryTransform(
	ctx context.Context,
	pc pointcloud.PointCloud,
	source, target string,
	timeout time.Duration,
) (pointcloud.PointCloud, error) {
	if source == target {
		return pointcloud.Clone(pc), nil
	}
	pose, err := fb.LookupTransform(ctx, target, source, timeout)
	if err != nil {
		return nil, err
	}
	return pointcloud.Map(pc, pose.Transform)
}
