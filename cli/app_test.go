package cli

import (
	"bytes"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/painter/logging"
	"go.viam.com/painter/pointcloud"
	"go.viam.com/painter/rimage"
)

func writeTestInputs(t *testing.T, dir string) {
	t.Helper()
	img := rimage.NewImage(32, 32)
	img.Fill(rimage.NewColor(40, 80, 120))
	f, err := os.Create(filepath.Join(dir, "front.png"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, png.Encode(f, img.ToNRGBA()), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)

	pc := pointcloud.New()
	for i := 0; i < 10; i++ {
		// the lidar frame is the camera frame shifted back along z
		p := r3.Vector{X: 0.1 * float64(i-5), Y: 0.2, Z: -3 + 1}
		test.That(t, pc.Append(p, pointcloud.NewIntensityData(uint16(i))), test.ShouldBeNil)
	}
	test.That(t, pointcloud.WriteToFile(pc, filepath.Join(dir, "scan.pcd")), test.ShouldBeNil)
}

const testJob = `{
	"target_frame": "camera",
	"depth": {"file": "scan.pcd", "frame": "lidar"},
	"images": [{"file": "front.png", "frame": "camera", "projection": "flat", "max_view_angle": 90}],
	"frames": [{"parent": "camera", "child": "lidar", "translation": {"x": 0, "y": 0, "z": -1}}],
	"painter": {"transform_timeout_ms": 0},
	"output": {"cloud": "out/painted.pcd", "spherical": "out/spherical.pcd"}
}`

func TestPaintAction(t *testing.T) {
	dir := t.TempDir()
	writeTestInputs(t, dir)
	jobPath := filepath.Join(dir, "job.json")
	test.That(t, os.WriteFile(jobPath, []byte(testJob), 0o600), test.ShouldBeNil)

	var out, errOut bytes.Buffer
	err := NewApp(&out, &errOut).Run([]string{"painter", "paint", jobPath})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldContainSubstring, "painted 10 points (0 without coverage, 0 dropped)")
	test.That(t, errOut.String(), test.ShouldBeEmpty)

	painted, err := pointcloud.NewFromFile(filepath.Join(dir, "out", "painted.pcd"), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, painted.Size(), test.ShouldEqual, 10)
	for i := 0; i < painted.Size(); i++ {
		p, d := painted.At(i)
		test.That(t, p.Z, test.ShouldAlmostEqual, -3, 1e-6)
		r, g, b := d.RGB255()
		test.That(t, []uint8{r, g, b}, test.ShouldResemble, []uint8{40, 80, 120})
		test.That(t, d.Intensity(), test.ShouldEqual, uint16(i))
	}
	_, err = os.Stat(filepath.Join(dir, "out", "spherical.pcd"))
	test.That(t, err, test.ShouldBeNil)
}

func TestPaintActionSkippedImage(t *testing.T) {
	dir := t.TempDir()
	writeTestInputs(t, dir)
	jobPath := filepath.Join(dir, "job.json")
	job := bytes.Replace([]byte(testJob), []byte(`"frame": "camera", "projection"`), []byte(`"frame": "other", "projection"`), 1)
	test.That(t, os.WriteFile(jobPath, job, 0o600), test.ShouldBeNil)

	var out, errOut bytes.Buffer
	err := NewApp(&out, &errOut).Run([]string{"painter", "paint", jobPath})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldContainSubstring, "painted 0 points (0 without coverage, 10 dropped)")
	test.That(t, errOut.String(), test.ShouldContainSubstring, `image "front.png" was left out`)
}

func TestPaintActionErrors(t *testing.T) {
	var out, errOut bytes.Buffer
	err := NewApp(&out, &errOut).Run([]string{"painter", "paint"})
	test.That(t, err, test.ShouldNotBeNil)

	dir := t.TempDir()
	jobPath := filepath.Join(dir, "job.json")
	test.That(t, os.WriteFile(jobPath, []byte(testJob), 0o600), test.ShouldBeNil)
	// inputs are missing
	err = NewApp(&out, &errOut).Run([]string{"painter", "paint", jobPath})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestProjectAction(t *testing.T) {
	dir := t.TempDir()
	writeTestInputs(t, dir)
	outPath := filepath.Join(dir, "sphere.pcd")
	flatPath := filepath.Join(dir, "flat.las")

	var out, errOut bytes.Buffer
	err := NewApp(&out, &errOut).Run([]string{
		"painter", "project",
		"--" + projectFlagProjection, "equal_area",
		"--" + projectFlagAngle, "180",
		"--" + projectFlagCompress, "2",
		"--" + projectFlagOut, outPath,
		"--" + projectFlagFlat, flatPath,
		filepath.Join(dir, "front.png"),
	})
	test.That(t, err, test.ShouldBeNil)

	sphere, err := pointcloud.NewFromFile(outPath, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sphere.Size(), test.ShouldBeGreaterThan, 0)
	test.That(t, sphere.Size(), test.ShouldBeLessThan, 16*16)
	test.That(t, out.String(), test.ShouldContainSubstring, fmt.Sprintf("projected %d of 256 pixels", sphere.Size()))

	flat, err := pointcloud.NewFromFile(flatPath, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, flat.Size(), test.ShouldEqual, 256)

	err = NewApp(&out, &errOut).Run([]string{
		"painter", "project", "--" + projectFlagProjection, "fisheye", "--" + projectFlagAngle, "180",
		"--" + projectFlagOut, outPath, filepath.Join(dir, "front.png"),
	})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestVersionAction(t *testing.T) {
	var out, errOut bytes.Buffer
	test.That(t, NewApp(&out, &errOut).Run([]string{"painter", "version"}), test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldContainSubstring, "go=")
}
