package ros

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/painter/pointcloud"
	"go.viam.com/painter/rimage"
	"go.viam.com/painter/utils"
)

// Bytes is a uint8[] field. gobag writes these as JSON arrays of numbers but base64
// strings are accepted too.
type Bytes []byte

// UnmarshalJSON implements json.Unmarshaler.
func (b *Bytes) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return err
		}
		*b = decoded
		return nil
	}
	var nums []uint8
	if err := json.Unmarshal(data, &nums); err != nil {
		return err
	}
	*b = nums
	return nil
}

// Meta is the record time gobag attaches to every message.
type Meta struct {
	Secs  int
	Nsecs int
}

// Header is std_msgs/Header.
type Header struct {
	Seq   int
	Stamp struct {
		Secs  int
		Nsecs int
	}
	FrameID string `json:"frame_id"`
}

// PointField datatypes from sensor_msgs/PointField.
const (
	PointFieldInt8    = 1
	PointFieldUint8   = 2
	PointFieldInt16   = 3
	PointFieldUint16  = 4
	PointFieldInt32   = 5
	PointFieldUint32  = 6
	PointFieldFloat32 = 7
	PointFieldFloat64 = 8
)

// PointField is sensor_msgs/PointField.
type PointField struct {
	Name     string
	Offset   int
	Datatype int
	Count    int
}

func (f PointField) size() int {
	switch f.Datatype {
	case PointFieldInt8, PointFieldUint8:
		return 1
	case PointFieldInt16, PointFieldUint16:
		return 2
	case PointFieldInt32, PointFieldUint32, PointFieldFloat32:
		return 4
	case PointFieldFloat64:
		return 8
	default:
		return 0
	}
}

func (f PointField) read(b []byte, order binary.ByteOrder) float64 {
	switch f.Datatype {
	case PointFieldInt8:
		return float64(int8(b[0]))
	case PointFieldUint8:
		return float64(b[0])
	case PointFieldInt16:
		return float64(int16(order.Uint16(b)))
	case PointFieldUint16:
		return float64(order.Uint16(b))
	case PointFieldInt32:
		return float64(int32(order.Uint32(b)))
	case PointFieldUint32:
		return float64(order.Uint32(b))
	case PointFieldFloat32:
		return float64(math.Float32frombits(order.Uint32(b)))
	default:
		return math.Float64frombits(order.Uint64(b))
	}
}

// PointCloud2Message is a sensor_msgs/PointCloud2 as written by gobag.
type PointCloud2Message struct {
	Meta Meta
	Data struct {
		Header      Header
		Height      int
		Width       int
		Fields      []PointField
		IsBigendian bool `json:"is_bigendian"`
		PointStep   int  `json:"point_step"`
		RowStep     int  `json:"row_step"`
		Data        Bytes
		IsDense     bool `json:"is_dense"`
	}
}

// FrameID returns the frame the points are expressed in.
func (m *PointCloud2Message) FrameID() string {
	return m.Data.Header.FrameID
}

// ToPointCloud decodes x, y, z and, when present, intensity. Points with a non-finite
// coordinate are skipped and counted.
func (m *PointCloud2Message) ToPointCloud() (pointcloud.PointCloud, int, error) {
	msg := m.Data
	var order binary.ByteOrder = binary.LittleEndian
	if msg.IsBigendian {
		order = binary.BigEndian
	}

	byName := map[string]PointField{}
	for _, f := range msg.Fields {
		if f.size() == 0 {
			return nil, 0, errors.Errorf("field %q has unknown datatype %d", f.Name, f.Datatype)
		}
		if f.Offset < 0 || f.Offset+f.size() > msg.PointStep {
			return nil, 0, errors.Errorf("field %q does not fit in a %d byte point", f.Name, msg.PointStep)
		}
		byName[f.Name] = f
	}
	var xyz [3]PointField
	for i, name := range []string{"x", "y", "z"} {
		f, ok := byName[name]
		if !ok {
			return nil, 0, errors.Errorf("point cloud has no %q field", name)
		}
		if f.Datatype != PointFieldFloat32 && f.Datatype != PointFieldFloat64 {
			return nil, 0, errors.Errorf("field %q must be a float, got datatype %d", name, f.Datatype)
		}
		xyz[i] = f
	}
	intensity, hasIntensity := byName["intensity"]

	rowStep := msg.RowStep
	if rowStep == 0 {
		rowStep = msg.Width * msg.PointStep
	}
	if msg.Height > 0 && len(msg.Data) < (msg.Height-1)*rowStep+msg.Width*msg.PointStep {
		return nil, 0, errors.Errorf("point cloud data has %d bytes, too few for %dx%d points", len(msg.Data), msg.Width, msg.Height)
	}

	pc := pointcloud.NewWithPrealloc(msg.Width * msg.Height)
	skipped := 0
	for row := 0; row < msg.Height; row++ {
		for col := 0; col < msg.Width; col++ {
			pt := msg.Data[row*rowStep+col*msg.PointStep:]
			p := r3.Vector{
				X: xyz[0].read(pt[xyz[0].Offset:], order),
				Y: xyz[1].read(pt[xyz[1].Offset:], order),
				Z: xyz[2].read(pt[xyz[2].Offset:], order),
			}
			if !utils.IsFinite(p.X, p.Y, p.Z) {
				skipped++
				continue
			}
			var d pointcloud.Data
			if hasIntensity {
				v := intensity.read(pt[intensity.Offset:], order)
				d = pointcloud.NewIntensityData(uint16(math.Max(0, math.Min(math.Round(v), math.MaxUint16))))
			}
			if err := pc.Append(p, d); err != nil {
				return nil, 0, err
			}
		}
	}
	return pc, skipped, nil
}

// ImageMessage is a sensor_msgs/Image as written by gobag.
type ImageMessage struct {
	Meta Meta
	Data struct {
		Header      Header
		Height      int
		Width       int
		Encoding    string
		IsBigendian int `json:"is_bigendian"`
		Step        int
		Data        Bytes
	}
}

// FrameID returns the frame of the camera that took the image.
func (m *ImageMessage) FrameID() string {
	return m.Data.Header.FrameID
}

// ToImage decodes the raw pixels.
func (m *ImageMessage) ToImage() (*rimage.Image, error) {
	return rimage.DecodeRaw(m.Data.Data, m.Data.Encoding, m.Data.Width, m.Data.Height, m.Data.Step)
}

// CompressedImageMessage is a sensor_msgs/CompressedImage as written by gobag.
type CompressedImageMessage struct {
	Meta Meta
	Data struct {
		Header Header
		Format string
		Data   Bytes
	}
}

// FrameID returns the frame of the camera that took the image.
func (m *CompressedImageMessage) FrameID() string {
	return m.Data.Header.FrameID
}

// ToImage decodes the compressed image. The format string is free form, such as
// "jpeg" or "bgr8; png compressed bgr8", so unrecognized formats are sniffed.
func (m *CompressedImageMessage) ToImage() (*rimage.Image, error) {
	format := strings.ToLower(m.Data.Format)
	mimeType := ""
	switch {
	case strings.Contains(format, "png"):
		mimeType = utils.MimeTypePNG
	case strings.Contains(format, "jpeg"), strings.Contains(format, "jpg"):
		mimeType = utils.MimeTypeJPEG
	}
	return rimage.DecodeImage(m.Data.Data, mimeType)
}
