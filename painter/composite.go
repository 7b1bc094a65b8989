package painter

import (
	"github.com/pkg/errors"

	"go.viam.com/painter/pointcloud"
)

// Composite is the merged reference cloud of a request along with its debug clouds.
// It is not modified after assembly.
type Composite struct {
	Flat      pointcloud.PointCloud
	Lobed     pointcloud.PointCloud
	Spherical pointcloud.PointCloud
	// Images is the number of images contributing to Spherical.
	Images int
}

// Assemble unions the clouds of every mapped image in order and applies the configured voxel
// downsampling to the merged clouds. Nil entries are ignored.
func Assemble(mapped []*MappedImage, cfg Config) (*Composite, error) {
	var flats, lobes, spheres []pointcloud.PointCloud
	comp := &Composite{}
	for _, m := range mapped {
		if m == nil {
			continue
		}
		flats = append(flats, m.Flat)
		lobes = append(lobes, m.Lobed)
		spheres = append(spheres, m.Spherical)
		if !m.Skipped {
			comp.Images++
		}
	}
	comp.Flat = pointcloud.Concat(flats...)
	comp.Lobed = pointcloud.Concat(lobes...)
	comp.Spherical = pointcloud.Concat(spheres...)

	var err error
	if cfg.VoxelizeFlat {
		if comp.Flat, err = pointcloud.VoxelDownsample(comp.Flat, cfg.FlatLeafSize); err != nil {
			return nil, errors.Wrap(err, "voxelizing flat cloud")
		}
	}
	if cfg.VoxelizeSpherical {
		if comp.Lobed, err = pointcloud.VoxelDownsample(comp.Lobed, cfg.SphericalLeafSize); err != nil {
			return nil, errors.Wrap(err, "voxelizing lobed cloud")
		}
		if comp.Spherical, err = pointcloud.VoxelDownsample(comp.Spherical, cfg.SphericalLeafSize); err != nil {
			return nil, errors.Wrap(err, "voxelizing spherical cloud")
		}
		if cfg.RenormalizeAfterVoxelize {
			if comp.Spherical, err = Renormalize(comp.Spherical); err != nil {
				return nil, err
			}
		}
	}
	return comp, nil
}
