// Package cli contains the painter command line application.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	debugFlag = "debug"

	projectFlagProjection = "projection"
	projectFlagAngle      = "max-view-angle"
	projectFlagCompress   = "compression-ratio"
	projectFlagOut        = "out"
	projectFlagFlat       = "flat"
)

var app = &cli.App{
	Name:            "painter",
	Usage:           "color range scans with camera images",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    debugFlag,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "paint",
			Usage:     "run a paint job",
			UsageText: "painter paint <job.json>",
			Action:    PaintAction,
		},
		{
			Name:      "project",
			Usage:     "map a single image onto the unit sphere for inspection",
			UsageText: "painter project [options] <image>",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  projectFlagProjection,
					Usage: "lens projection: equirectangular_stereographic, polar_stereographic, equal_area or flat",
					Value: "equirectangular_stereographic",
				},
				&cli.Float64Flag{
					Name:     projectFlagAngle,
					Usage:    "full field of view of the lens in degrees",
					Required: true,
				},
				&cli.IntFlag{
					Name:  projectFlagCompress,
					Usage: "block reduce the image by this ratio first",
					Value: 1,
				},
				&cli.StringFlag{
					Name:     projectFlagOut,
					Usage:    "spherical cloud output `FILE` (.pcd or .las)",
					Required: true,
				},
				&cli.StringFlag{
					Name:  projectFlagFlat,
					Usage: "optional flat cloud output `FILE`",
				},
			},
			Action: ProjectAction,
		},
		{
			Name:   "version",
			Usage:  "print version info for this program",
			Action: VersionAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
