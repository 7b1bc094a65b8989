package pointcloud

import (
	"bytes"
	"encoding/binary"
	"image/color"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/painter/logging"
)

func makeFileTestCloud(t *testing.T) PointCloud {
	t.Helper()
	pc := New()
	test.That(t, pc.Append(NewVector(-1, -2, 5), NewColoredData(color.NRGBA{255, 1, 2, 255}).SetIntensity(3)), test.ShouldBeNil)
	test.That(t, pc.Append(NewVector(582, 12, 0), NewColoredData(color.NRGBA{232, 5, 123, 255}).SetIntensity(400)), test.ShouldBeNil)
	test.That(t, pc.Append(NewVector(7, 6, 1), NewColoredData(color.NRGBA{123, 2, 5, 255}).SetIntensity(0)), test.ShouldBeNil)
	return pc
}

func TestPCDRoundTrip(t *testing.T) {
	logger := logging.NewTestLogger(t)
	for _, outputType := range []PCDType{PCDAscii, PCDBinary} {
		pc := makeFileTestCloud(t)
		var buf bytes.Buffer
		test.That(t, ToPCD(pc, &buf, outputType), test.ShouldBeNil)
		if outputType == PCDAscii {
			test.That(t, buf.String(), test.ShouldContainSubstring, "FIELDS x y z intensity rgb\n")
			test.That(t, buf.String(), test.ShouldContainSubstring, "DATA ascii\n")
		}

		read, err := ReadPCD(&buf, logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, read.Size(), test.ShouldEqual, pc.Size())
		for i := 0; i < pc.Size(); i++ {
			p, d := pc.At(i)
			rp, rd := read.At(i)
			test.That(t, rp, test.ShouldResemble, p)
			test.That(t, rd.Color(), test.ShouldResemble, d.Color())
			test.That(t, rd.Intensity(), test.ShouldEqual, d.Intensity())
		}
	}
}

func TestPCDPositionsOnly(t *testing.T) {
	pc := New()
	test.That(t, pc.Append(NewVector(0.5, 0.25, -0.125), nil), test.ShouldBeNil)
	var buf bytes.Buffer
	test.That(t, ToPCD(pc, &buf, PCDAscii), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldContainSubstring, "FIELDS x y z\n")
	read, err := ReadPCD(&buf, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, read.MetaData().HasColor, test.ShouldBeFalse)
	p, _ := read.At(0)
	test.That(t, p, test.ShouldResemble, r3.Vector{X: 0.5, Y: 0.25, Z: -0.125})
}

func TestPCDExtraFieldsAndFloatColor(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	header := "# made by hand\n" +
		"VERSION 0.7\n" +
		"FIELDS x y z rgb ring\n" +
		"SIZE 8 4 4 4 2\n" +
		"TYPE F F F F U\n" +
		"COUNT 1 1 1 1 1\n" +
		"WIDTH 2\n" +
		"HEIGHT 1\n" +
		"VIEWPOINT 0 0 0 1 0 0 0\n" +
		"POINTS 2\n" +
		"DATA binary\n"
	var buf bytes.Buffer
	buf.WriteString(header)
	write := func(x float64, y, z float32, rgb uint32, ring uint16) {
		test.That(t, binary.Write(&buf, binary.LittleEndian, x), test.ShouldBeNil)
		test.That(t, binary.Write(&buf, binary.LittleEndian, y), test.ShouldBeNil)
		test.That(t, binary.Write(&buf, binary.LittleEndian, z), test.ShouldBeNil)
		test.That(t, binary.Write(&buf, binary.LittleEndian, math.Float32frombits(rgb)), test.ShouldBeNil)
		test.That(t, binary.Write(&buf, binary.LittleEndian, ring), test.ShouldBeNil)
	}
	write(1.5, 2, 3, 0x0a0b0c, 4)
	write(math.NaN(), 0, 0, 0, 1)

	pc, err := ReadPCD(&buf, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pc.Size(), test.ShouldEqual, 1)
	p, d := pc.At(0)
	test.That(t, p, test.ShouldResemble, r3.Vector{X: 1.5, Y: 2, Z: 3})
	r, g, b := d.RGB255()
	test.That(t, []uint8{r, g, b}, test.ShouldResemble, []uint8{0x0a, 0x0b, 0x0c})
	test.That(t, logs.FilterMessage("skipped non-finite PCD points").Len(), test.ShouldEqual, 1)
}

func TestPCDBadHeaders(t *testing.T) {
	logger := logging.NewTestLogger(t)
	for _, tc := range []struct {
		name, header string
	}{
		{"version", "VERSION .6\n"},
		{"fields", "VERSION .7\nFIELDS a b c\n"},
		{"size", "VERSION .7\nFIELDS x y z\nSIZE 4 4\n"},
		{"type", "VERSION .7\nFIELDS x y z\nSIZE 4 4 3\nTYPE F F F\n"},
		{"points", "VERSION .7\nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nCOUNT 1 1 1\nWIDTH 2\nHEIGHT 1\n" +
			"VIEWPOINT 0 0 0 1 0 0 0\nPOINTS 3\n"},
		{"truncated", "VERSION .7\nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nCOUNT 1 1 1\nWIDTH 2\nHEIGHT 1\n" +
			"VIEWPOINT 0 0 0 1 0 0 0\nPOINTS 2\nDATA ascii\n1 2 3\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadPCD(strings.NewReader(tc.header), logger)
			test.That(t, err, test.ShouldNotBeNil)
		})
	}
}

func TestLASValuesStayOnTheirPoints(t *testing.T) {
	logger := logging.NewTestLogger(t)
	fn := filepath.Join(t.TempDir(), "values.las")

	pc := New()
	test.That(t, pc.Append(NewVector(1, 0, 0), NewBasicData()), test.ShouldBeNil)
	test.That(t, pc.Append(NewVector(2, 0, 0), NewBasicData().SetValue(7)), test.ShouldBeNil)
	test.That(t, pc.Append(NewVector(3, 0, 0), nil), test.ShouldBeNil)
	test.That(t, pc.Append(NewVector(4, 0, 0), NewBasicData().SetValue(9)), test.ShouldBeNil)
	test.That(t, WriteToFile(pc, fn), test.ShouldBeNil)

	read, err := NewFromFile(fn, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, read.Size(), test.ShouldEqual, 4)
	for i, want := range []int{0, 7, 0, 9} {
		p, d := read.At(i)
		test.That(t, p.X, test.ShouldAlmostEqual, float64(i+1), 1e-2)
		test.That(t, d.Value(), test.ShouldEqual, want)
	}
}

func TestFileRoundTrip(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()

	pc := makeFileTestCloud(t)
	_, d := pc.At(1)
	d.SetValue(2)

	for _, name := range []string{"cloud.pcd", "cloud.las"} {
		fn := filepath.Join(dir, name)
		test.That(t, WriteToFile(pc, fn), test.ShouldBeNil)
		read, err := NewFromFile(fn, logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, read.Size(), test.ShouldEqual, pc.Size())
		for i := 0; i < pc.Size(); i++ {
			p, d := pc.At(i)
			rp, rd := read.At(i)
			test.That(t, rp.Distance(p), test.ShouldBeLessThan, 1e-2)
			r, g, b := d.RGB255()
			rr, rg, rb := rd.RGB255()
			test.That(t, []uint8{rr, rg, rb}, test.ShouldResemble, []uint8{r, g, b})
			test.That(t, rd.Intensity(), test.ShouldEqual, d.Intensity())
		}
	}

	fn := filepath.Join(dir, "cloud.las")
	read, err := NewFromFile(fn, logger)
	test.That(t, err, test.ShouldBeNil)
	for i, want := range []int{0, 2, 0} {
		_, rd := read.At(i)
		test.That(t, rd.HasValue(), test.ShouldBeTrue)
		test.That(t, rd.Value(), test.ShouldEqual, want)
	}

	_, err = NewFromFile(filepath.Join(dir, "cloud.xyz"), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, WriteToFile(pc, filepath.Join(dir, "cloud.xyz")), test.ShouldNotBeNil)
}
