package cli

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/painter/painter"
	"go.viam.com/painter/referenceframe"
	"go.viam.com/painter/rimage"
	"go.viam.com/painter/utils"
)

const projectFrame = "camera"

// ProjectAction is the corresponding Action for 'project'.
func ProjectAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("expected exactly one image file")
	}
	kind, err := painter.ParseProjectionKind(c.String(projectFlagProjection))
	if err != nil {
		return err
	}
	path := c.Args().First()
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	img, err := rimage.DecodeImage(data, utils.MimeTypeFromExtension(filepath.Ext(path)))
	if err != nil {
		return err
	}
	if img, err = rimage.Downsample(img, c.Int(projectFlagCompress)); err != nil {
		return err
	}

	in := &painter.ImageInput{
		Name:         filepath.Base(path),
		Frame:        projectFrame,
		Projection:   kind,
		MaxViewAngle: c.Float64(projectFlagAngle),
	}
	m, err := painter.MapImage(c.Context, 0, in, img, projectFrame,
		referenceframe.NewFrameBuffer(nil), 0, loggerFromContext(c, "project"))
	if err != nil {
		return err
	}
	if err := writeCloud(m.Spherical, c.String(projectFlagOut)); err != nil {
		return err
	}
	if flat := c.String(projectFlagFlat); flat != "" {
		if err := writeCloud(m.Flat, flat); err != nil {
			return err
		}
	}
	printf(c.App.Writer, "projected %d of %d pixels of %s onto the sphere",
		m.Spherical.Size(), img.Width()*img.Height(), in.Name)
	return nil
}
