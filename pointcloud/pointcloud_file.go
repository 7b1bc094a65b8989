package pointcloud

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/edaniels/lidario"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/painter/logging"
	"go.viam.com/painter/utils"
)

// PCDType is the format of a pcd file.
type PCDType int

const (
	// PCDAscii ascii format for pcd.
	PCDAscii PCDType = 0
	// PCDBinary binary format for pcd.
	PCDBinary PCDType = 1
	// PCDCompressed binary format for pcd.
	PCDCompressed PCDType = 2
)

// NewFromFile returns a pointcloud read in from the given file.
func NewFromFile(fn string, logger logging.Logger) (PointCloud, error) {
	switch filepath.Ext(fn) {
	case ".las":
		return NewFromLASFile(fn, logger)
	case ".pcd":
		//nolint:gosec
		f, err := os.Open(fn)
		if err != nil {
			return nil, err
		}
		defer goutils.UncheckedErrorFunc(f.Close)
		return ReadPCD(f, logger)
	default:
		return nil, errors.Errorf("do not know how to read file %q", fn)
	}
}

// WriteToFile writes the cloud to fn choosing the format from its extension.
func WriteToFile(cloud PointCloud, fn string) (err error) {
	switch filepath.Ext(fn) {
	case ".las":
		return WriteToLASFile(cloud, fn)
	case ".pcd":
		//nolint:gosec
		f, ferr := os.Create(fn)
		if ferr != nil {
			return ferr
		}
		defer func() {
			err = multierr.Combine(err, f.Close())
		}()
		w := bufio.NewWriter(f)
		if err := ToPCD(cloud, w, PCDBinary); err != nil {
			return err
		}
		return w.Flush()
	default:
		return errors.Errorf("do not know how to write file %q", fn)
	}
}

// pointValueDataTag encodes if the point has value data.
const pointValueDataTag = "rc|pv"

// NewFromLASFile returns a point cloud from reading a LAS file. Points that
// are not finite are skipped with a warning.
func NewFromLASFile(fn string, logger logging.Logger) (PointCloud, error) {
	lf, err := lidario.NewLasFile(fn, "r")
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(lf.Close)

	var hasValue bool
	var valueData []byte
	for _, d := range lf.VlrData {
		if d.Description == pointValueDataTag {
			hasValue = true
			valueData = d.BinaryData
			break
		}
	}

	pc := NewWithPrealloc(lf.Header.NumberPoints)
	skipped := 0
	for i := 0; i < lf.Header.NumberPoints; i++ {
		p, err := lf.LasPoint(i)
		if err != nil {
			return nil, err
		}
		data := p.PointData()

		v := r3.Vector{X: data.X, Y: data.Y, Z: data.Z}
		if !utils.IsFinite(v.X, v.Y, v.Z) {
			skipped++
			continue
		}
		dd := NewIntensityData(data.Intensity)
		if lf.Header.PointFormatID == 2 && p.RgbData() != nil {
			r := uint8(p.RgbData().Red / 256)
			g := uint8(p.RgbData().Green / 256)
			b := uint8(p.RgbData().Blue / 256)
			dd.SetColor(color.NRGBA{r, g, b, 255})
		}

		if hasValue && len(valueData) >= (i*8)+8 {
			dd.SetValue(int(binary.LittleEndian.Uint64(valueData[i*8 : (i*8)+8])))
		}

		if err := pc.Append(v, dd); err != nil {
			return nil, err
		}
	}
	if skipped > 0 {
		logger.Warnw("skipped non-finite LAS points", "file", fn, "count", skipped)
	}
	return pc, nil
}

// WriteToLASFile writes the point cloud out to a LAS file.
func WriteToLASFile(cloud PointCloud, fn string) (err error) {
	lf, err := lidario.NewLasFile(fn, "w")
	if err != nil {
		return
	}
	defer func() {
		cerr := lf.Close()
		err = multierr.Combine(err, cerr)
	}()

	meta := cloud.MetaData()

	pointFormatID := 0
	if meta.HasColor {
		pointFormatID = 2
	}
	if err = lf.AddHeader(lidario.LasHeader{
		PointFormatID: byte(pointFormatID),
	}); err != nil {
		return
	}

	// values can be set on a point's data after it was appended
	hasValue := meta.HasValue
	if !hasValue {
		cloud.Iterate(0, 0, func(_ r3.Vector, d Data) bool {
			hasValue = d != nil && d.HasValue()
			return !hasValue
		})
	}
	var pVals []int
	if hasValue {
		pVals = make([]int, 0, cloud.Size())
	}
	var lastErr error
	cloud.Iterate(0, 0, func(pos r3.Vector, d Data) bool {
		var lp lidario.LasPointer
		pr0 := &lidario.PointRecord0{
			X: pos.X,
			Y: pos.Y,
			Z: pos.Z,
			BitField: lidario.PointBitField{
				Value: (1) | (1 << 3) | (0 << 6) | (0 << 7),
			},
			ClassBitField: lidario.ClassificationBitField{
				Value: 0,
			},
			ScanAngle:     0,
			UserData:      0,
			PointSourceID: 1,
		}
		lp = pr0

		if d != nil {
			pr0.Intensity = d.Intensity()
		}

		if meta.HasColor {
			var red, green, blue int
			if d != nil && d.HasColor() {
				r, g, b := d.RGB255()
				red, green, blue = int(r), int(g), int(b)
			}
			lp = &lidario.PointRecord2{
				PointRecord0: pr0,
				RGB: &lidario.RgbData{
					Red:   uint16(red * 256),
					Green: uint16(green * 256),
					Blue:  uint16(blue * 256),
				},
			}
		}
		if hasValue {
			if d != nil && d.HasValue() {
				pVals = append(pVals, d.Value())
			} else {
				pVals = append(pVals, 0)
			}
		}
		if lerr := lf.AddLasPoint(lp); lerr != nil {
			lastErr = lerr
			return false
		}
		return true
	})
	if lastErr != nil {
		err = lastErr
		return
	}
	if hasValue {
		var buf bytes.Buffer
		for _, v := range pVals {
			b := make([]byte, 8)
			binary.LittleEndian.PutUint64(b, uint64(v))
			buf.Write(b)
		}
		if err = lf.AddVLR(lidario.VLR{
			UserID:                  "",
			Description:             pointValueDataTag,
			BinaryData:              buf.Bytes(),
			RecordLengthAfterHeader: buf.Len(),
		}); err != nil {
			return
		}
	}

	//nolint:nakedret
	return
}

func colorToPCDInt(pt Data) int {
	if pt == nil || !pt.HasColor() {
		return 0
	}

	r, g, b := pt.RGB255()
	x := 0

	x |= (int(r) << 16)
	x |= (int(g) << 8)
	x |= (int(b) << 0)
	return x
}

func pcdIntToColor(c int) color.NRGBA {
	r := uint8(0xFF & (c >> 16))
	g := uint8(0xFF & (c >> 8))
	b := uint8(0xFF & (c >> 0))
	return color.NRGBA{r, g, b, 255}
}

// ToPCD writes the cloud out in PCD format. Positions are written as 32 bit floats,
// intensity as a 32 bit float and color as a packed integer.
func ToPCD(cloud PointCloud, out io.Writer, outputType PCDType) error {
	meta := cloud.MetaData()
	fields := []pcdField{{"x", 4, pcdValFloat}, {"y", 4, pcdValFloat}, {"z", 4, pcdValFloat}}
	if meta.HasIntensity {
		fields = append(fields, pcdField{"intensity", 4, pcdValFloat})
	}
	if meta.HasColor {
		fields = append(fields, pcdField{"rgb", 4, pcdValInt})
	}
	names := make([]string, len(fields))
	sizes := make([]string, len(fields))
	types := make([]string, len(fields))
	counts := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.name
		sizes[i] = strconv.Itoa(f.size)
		types[i] = string(f.typ)
		counts[i] = "1"
	}

	var dataLine string
	switch outputType {
	case PCDBinary:
		dataLine = "binary"
	case PCDAscii:
		dataLine = "ascii"
	case PCDCompressed:
		return errors.New("compressed PCD not yet implemented")
	default:
		return errors.Errorf("unknown PCD output type %d", outputType)
	}

	if _, err := fmt.Fprintf(out, "VERSION .7\n"+
		"FIELDS %s\n"+
		"SIZE %s\n"+
		"TYPE %s\n"+
		"COUNT %s\n"+
		"WIDTH %d\n"+
		"HEIGHT 1\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n"+
		"DATA %s\n",
		strings.Join(names, " "),
		strings.Join(sizes, " "),
		strings.Join(types, " "),
		strings.Join(counts, " "),
		cloud.Size(),
		cloud.Size(),
		dataLine,
	); err != nil {
		return err
	}
	return writePCDData(cloud, out, outputType, meta)
}

func writePCDData(cloud PointCloud, out io.Writer, pcdtype PCDType, meta MetaData) error {
	var err error
	buf := make([]byte, 0, 20)
	cloud.Iterate(0, 0, func(pos r3.Vector, d Data) bool {
		var intensity float64
		if d != nil {
			intensity = float64(d.Intensity())
		}
		c := colorToPCDInt(d)
		switch pcdtype {
		case PCDBinary:
			buf = buf[:0]
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(pos.X)))
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(pos.Y)))
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(pos.Z)))
			if meta.HasIntensity {
				buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(intensity)))
			}
			if meta.HasColor {
				buf = binary.LittleEndian.AppendUint32(buf, uint32(c))
			}
			_, err = out.Write(buf)
		case PCDAscii:
			line := fmt.Sprintf("%f %f %f", pos.X, pos.Y, pos.Z)
			if meta.HasIntensity {
				line += fmt.Sprintf(" %f", intensity)
			}
			if meta.HasColor {
				line += fmt.Sprintf(" %d", c)
			}
			_, err = fmt.Fprintln(out, line)
		case PCDCompressed:
			err = errors.New("compressed PCD not yet implemented")
		}
		return err == nil
	})
	return err
}

type pcdValType string

const (
	pcdValFloat pcdValType = "F"
	pcdValInt   pcdValType = "I"
	pcdValUInt  pcdValType = "U"
)

type pcdField struct {
	name string
	size int
	typ  pcdValType
}

type pcdHeader struct {
	fields []pcdField
	count  []int
	width  uint64
	height uint64
	points uint64
	data   PCDType

	x, y, z, intensity, rgb int
}

const pcdCommentChar = "#"

var pcdHeaderFields = []string{"VERSION", "FIELDS", "SIZE", "TYPE", "COUNT", "WIDTH", "HEIGHT", "VIEWPOINT", "POINTS", "DATA"}

func parsePCDHeaderLine(line string, index int, header *pcdHeader) error {
	var err error
	name := pcdHeaderFields[index]
	field, value, _ := strings.Cut(line, " ")
	value = strings.TrimSpace(value)
	tokens := strings.Fields(value)
	if field != name {
		return errors.Errorf("line is supposed to start with %s but is %s", name, line)
	}

	switch name {
	case "VERSION":
		if value != ".7" && value != "0.7" {
			return errors.Errorf("unsupported pcd version %s", value)
		}
	case "FIELDS":
		header.fields = make([]pcdField, len(tokens))
		header.x, header.y, header.z, header.intensity, header.rgb = -1, -1, -1, -1, -1
		for i, token := range tokens {
			header.fields[i].name = token
			switch token {
			case "x":
				header.x = i
			case "y":
				header.y = i
			case "z":
				header.z = i
			case "intensity":
				header.intensity = i
			case "rgb", "rgba":
				header.rgb = i
			}
		}
		if header.x < 0 || header.y < 0 || header.z < 0 {
			return errors.Errorf("unsupported pcd fields %s", value)
		}
	case "SIZE":
		if len(tokens) != len(header.fields) {
			return errors.New("unexpected number of fields in SIZE line")
		}
		for i, token := range tokens {
			header.fields[i].size, err = strconv.Atoi(token)
			if err != nil {
				return errors.Errorf("invalid SIZE field %s", token)
			}
		}
	case "TYPE":
		if len(tokens) != len(header.fields) {
			return errors.New("unexpected number of fields in TYPE line")
		}
		for i, token := range tokens {
			header.fields[i].typ = pcdValType(token)
			if err := header.fields[i].check(); err != nil {
				return err
			}
		}
	case "COUNT":
		if len(tokens) != len(header.fields) {
			return errors.New("unexpected number of fields in COUNT line")
		}
		header.count = make([]int, len(tokens))
		for i, token := range tokens {
			header.count[i], err = strconv.Atoi(token)
			if err != nil || header.count[i] < 1 {
				return errors.Errorf("invalid COUNT field %s", token)
			}
		}
	case "WIDTH":
		header.width, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid WIDTH field %s", value)
		}
	case "HEIGHT":
		header.height, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid HEIGHT field %s", value)
		}
	case "VIEWPOINT":
		if len(tokens) != 7 {
			return errors.Errorf("unexpected number of fields in VIEWPOINT line. Expected 7, got %d", len(tokens))
		}
	case "POINTS":
		var points uint64
		points, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid POINTS field %s", value)
		}
		if points != header.width*header.height {
			return errors.Errorf("POINTS field %d does not match WIDTH*HEIGHT %d", points, header.width*header.height)
		}
		header.points = points
	case "DATA":
		switch value {
		case "ascii":
			header.data = PCDAscii
		case "binary":
			header.data = PCDBinary
		case "binary_compressed":
			header.data = PCDCompressed
		default:
			return errors.Errorf("unsupported pcd data type %s", value)
		}
	}

	return nil
}

func (f pcdField) check() error {
	switch {
	case f.typ == pcdValFloat && (f.size == 4 || f.size == 8):
	case (f.typ == pcdValInt || f.typ == pcdValUInt) && (f.size == 1 || f.size == 2 || f.size == 4 || f.size == 8):
	default:
		return errors.Errorf("unsupported pcd field %s of type %s and size %d", f.name, f.typ, f.size)
	}
	return nil
}

// ReadPCD reads a PCD file. x, y and z are required; intensity and rgb are read when present
// and any other field is skipped. Points that are not finite are skipped with a warning.
func ReadPCD(inRaw io.Reader, logger logging.Logger) (PointCloud, error) {
	header := pcdHeader{}
	in := bufio.NewReader(inRaw)
	headerLineCount := 0
	for headerLineCount < len(pcdHeaderFields) {
		line, err := in.ReadString('\n')
		if err != nil {
			return nil, errors.Wrapf(err, "error reading header line %d", headerLineCount)
		}
		line, _, _ = strings.Cut(line, pcdCommentChar)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := parsePCDHeaderLine(line, headerLineCount, &header); err != nil {
			return nil, err
		}
		headerLineCount++
	}

	var read func(i int) ([]float64, error)
	switch header.data {
	case PCDAscii:
		read = func(i int) ([]float64, error) { return readPCDAsciiPoint(in, header, i) }
	case PCDBinary:
		read = func(i int) ([]float64, error) { return readPCDBinaryPoint(in, header) }
	case PCDCompressed:
		return nil, errors.New("compressed pcd not yet supported")
	default:
		return nil, errors.Errorf("unsupported pcd data type %v", header.data)
	}

	pc := NewWithPrealloc(int(header.points))
	skipped := 0
	for i := 0; i < int(header.points); i++ {
		values, err := read(i)
		if err != nil {
			return nil, errors.Wrapf(err, "reading point %d", i)
		}
		pos, data := header.toPoint(values)
		if !utils.IsFinite(pos.X, pos.Y, pos.Z) {
			skipped++
			continue
		}
		if err := pc.Append(pos, data); err != nil {
			return nil, err
		}
	}
	if skipped > 0 {
		logger.Warnw("skipped non-finite PCD points", "count", skipped)
	}
	return pc, nil
}

// toPoint picks the first element of each field out of a decoded row.
func (h pcdHeader) toPoint(values []float64) (r3.Vector, Data) {
	offsets := make([]int, len(h.fields))
	off := 0
	for i := range h.fields {
		offsets[i] = off
		off += h.count[i]
	}
	pos := r3.Vector{X: values[offsets[h.x]], Y: values[offsets[h.y]], Z: values[offsets[h.z]]}
	d := NewBasicData()
	if h.intensity >= 0 {
		v := math.Round(values[offsets[h.intensity]])
		if v < 0 || math.IsNaN(v) {
			v = 0
		}
		d.SetIntensity(uint16(math.Min(v, math.MaxUint16)))
	}
	if h.rgb >= 0 {
		packed := values[offsets[h.rgb]]
		if h.fields[h.rgb].typ == pcdValFloat {
			// PCL packs rgb into the bits of a float
			d.SetColor(pcdIntToColor(int(math.Float32bits(float32(packed)))))
		} else {
			d.SetColor(pcdIntToColor(int(packed)))
		}
	}
	return pos, d
}

func (h pcdHeader) valuesPerPoint() int {
	n := 0
	for _, c := range h.count {
		n += c
	}
	return n
}

func readPCDAsciiPoint(in *bufio.Reader, header pcdHeader, i int) ([]float64, error) {
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return nil, err
	}
	tokens := strings.Fields(line)
	if len(tokens) != header.valuesPerPoint() {
		return nil, errors.Errorf("unexpected number of fields in point %d", i)
	}
	point := make([]float64, len(tokens))
	for j, token := range tokens {
		point[j], err = strconv.ParseFloat(token, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid point %d field %s", i, token)
		}
	}
	return point, nil
}

func readPCDBinaryPoint(in *bufio.Reader, header pcdHeader) ([]float64, error) {
	point := make([]float64, 0, header.valuesPerPoint())
	buf := make([]byte, 8)
	for j, f := range header.fields {
		for c := 0; c < header.count[j]; c++ {
			if _, err := io.ReadFull(in, buf[:f.size]); err != nil {
				return nil, err
			}
			point = append(point, decodePCDValue(buf[:f.size], f))
		}
	}
	return point, nil
}

func decodePCDValue(b []byte, f pcdField) float64 {
	switch f.typ {
	case pcdValFloat:
		if f.size == 8 {
			return math.Float64frombits(binary.LittleEndian.Uint64(b))
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case pcdValInt:
		switch f.size {
		case 1:
			return float64(int8(b[0]))
		case 2:
			return float64(int16(binary.LittleEndian.Uint16(b)))
		case 4:
			return float64(int32(binary.LittleEndian.Uint32(b)))
		default:
			return float64(int64(binary.LittleEndian.Uint64(b)))
		}
	default:
		switch f.size {
		case 1:
			return float64(b[0])
		case 2:
			return float64(binary.LittleEndian.Uint16(b))
		case 4:
			return float64(binary.LittleEndian.Uint32(b))
		default:
			return float64(binary.LittleEndian.Uint64(b))
		}
	}
}
