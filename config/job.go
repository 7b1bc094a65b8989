// Package config defines the job files driving the painter command line.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/painter/painter"
	"go.viam.com/painter/referenceframe"
)

// ROS message types an image topic may carry.
const (
	MessageTypeImage           = "sensor_msgs/Image"
	MessageTypeCompressedImage = "sensor_msgs/CompressedImage"
)

// Job is a complete paint job: where the range cloud and images come from, how the
// frames relate, how to paint and where to write the results.
type Job struct {
	ConfigFilePath string `json:"-"`

	// Bag is the rosbag that topic sources are read from.
	Bag         string                       `json:"bag,omitempty"`
	TargetFrame string                       `json:"target_frame"`
	Depth       DepthSource                  `json:"depth"`
	Images      []ImageSource                `json:"images"`
	Frames      []referenceframe.FrameConfig `json:"frames,omitempty"`
	Painter     painter.Config               `json:"painter"`
	Output      Output                       `json:"output"`
}

// DepthSource names the range cloud. Exactly one of File and Topic is set.
type DepthSource struct {
	// File is a .pcd or .las file.
	File  string `json:"file,omitempty"`
	Topic string `json:"topic,omitempty"`
	// Frame overrides the frame of a topic message and is required for files.
	Frame string `json:"frame,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (src *DepthSource) Validate(path string, haveBag bool) error {
	if err := validateSource(path, src.File, src.Topic, src.Frame, haveBag); err != nil {
		return err
	}
	if src.File != "" && !lo.Contains([]string{".pcd", ".las"}, strings.ToLower(filepath.Ext(src.File))) {
		return utils.NewConfigValidationError(path, errors.Errorf("unsupported range cloud file %q", src.File))
	}
	return nil
}

// ImageSource names one camera image and its lens.
type ImageSource struct {
	Name string `json:"name,omitempty"`
	// File is an encoded image, its format taken from the extension.
	File  string `json:"file,omitempty"`
	Topic string `json:"topic,omitempty"`
	// MessageType is the type of the topic messages, sensor_msgs/Image by default.
	MessageType      string                 `json:"message_type,omitempty"`
	Frame            string                 `json:"frame,omitempty"`
	Projection       painter.ProjectionKind `json:"projection"`
	MaxViewAngle     float64                `json:"max_view_angle"`
	Compress         bool                   `json:"compress,omitempty"`
	CompressionRatio int                    `json:"compression_ratio,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (src *ImageSource) Validate(path string, haveBag bool) error {
	if err := validateSource(path, src.File, src.Topic, src.Frame, haveBag); err != nil {
		return err
	}
	if src.MessageType != "" && src.MessageType != MessageTypeImage && src.MessageType != MessageTypeCompressedImage {
		return utils.NewConfigValidationError(path, errors.Errorf("unsupported message type %q", src.MessageType))
	}
	if _, err := painter.NewProjection(src.Projection, src.MaxViewAngle); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if src.Compress && src.CompressionRatio < 1 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("compression_ratio must be at least 1 when compressing, got %d", src.CompressionRatio))
	}
	return nil
}

func validateSource(path, file, topic, frame string, haveBag bool) error {
	switch {
	case file == "" && topic == "":
		return utils.NewConfigValidationFieldRequiredError(path, "file")
	case file != "" && topic != "":
		return utils.NewConfigValidationError(path, errors.New("only one of file and topic may be set"))
	case file != "" && frame == "":
		return utils.NewConfigValidationFieldRequiredError(path, "frame")
	case topic != "" && !haveBag:
		return utils.NewConfigValidationError(path, errors.Errorf("topic %q needs a bag", topic))
	}
	return nil
}

// Output lists where results are written. Only Cloud is required, the debug clouds are
// written when named.
type Output struct {
	Cloud     string `json:"cloud"`
	Flat      string `json:"flat,omitempty"`
	Lobed     string `json:"lobed,omitempty"`
	Spherical string `json:"spherical,omitempty"`
	Projected string `json:"projected,omitempty"`
}

// Paths returns every named output path.
func (out *Output) Paths() []string {
	return lo.Compact([]string{out.Cloud, out.Flat, out.Lobed, out.Spherical, out.Projected})
}

// Validate ensures all parts of the config are valid.
func (out *Output) Validate(path string) error {
	if out.Cloud == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "cloud")
	}
	for _, p := range out.Paths() {
		if !lo.Contains([]string{".pcd", ".las"}, strings.ToLower(filepath.Ext(p))) {
			return utils.NewConfigValidationError(path, errors.Errorf("unsupported output file %q", p))
		}
	}
	if dups := lo.FindDuplicates(out.Paths()); len(dups) > 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("output files written twice: %v", dups))
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (job *Job) Validate() error {
	var errs error
	if job.TargetFrame == "" {
		errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError("job", "target_frame"))
	}
	haveBag := job.Bag != ""
	errs = multierr.Append(errs, job.Depth.Validate("depth", haveBag))
	if len(job.Images) == 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError("job", "images"))
	}
	for i := range job.Images {
		errs = multierr.Append(errs, job.Images[i].Validate(fmt.Sprintf("images.%d", i), haveBag))
	}
	names := lo.Compact(lo.Map(job.Images, func(src ImageSource, _ int) string { return src.Name }))
	if dups := lo.FindDuplicates(names); len(dups) > 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError("images", errors.Errorf("duplicate image names %v", dups)))
	}
	for i := range job.Frames {
		errs = multierr.Append(errs, job.Frames[i].Validate(fmt.Sprintf("frames.%d", i)))
	}
	errs = multierr.Append(errs, job.Painter.Validate("painter"))
	errs = multierr.Append(errs, job.Output.Validate("output"))
	return errs
}

// ResolvePath returns p relative to the directory of the job file unless it is absolute.
func (job *Job) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || job.ConfigFilePath == "" {
		return p
	}
	return filepath.Join(filepath.Dir(job.ConfigFilePath), p)
}

// Read reads a job from the given file.
func Read(filePath string) (*Job, error) {
	buf, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(filePath, bytes.NewReader(buf))
}

// FromReader reads a job from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(originalPath string, r io.Reader) (*Job, error) {
	job := Job{
		ConfigFilePath: originalPath,
		Painter:        painter.DefaultConfig(),
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&job); err != nil {
		return nil, errors.Wrapf(err, "failed to decode job from json")
	}
	if err := job.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid job %q", originalPath)
	}
	return &job, nil
}
