package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/painter/logging"
	"go.viam.com/painter/pointcloud"
)

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// warningf prints a message prefixed with a bold "Warning: ".
func warningf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, "\033[1mWarning:\033[0m "+format+"\n", a...)
}

func loggerFromContext(c *cli.Context, name string) logging.Logger {
	if c.Bool(debugFlag) {
		return logging.NewDebugLogger(name)
	}
	return logging.NewLogger(name)
}

// writeCloud writes pc to path, creating the parent directory if needed.
func writeCloud(pc pointcloud.PointCloud, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.Wrapf(err, "could not create directory: %s", dir)
		}
	}
	if err := pointcloud.WriteToFile(pc, path); err != nil {
		return errors.Wrapf(err, "could not write %s", path)
	}
	return nil
}
