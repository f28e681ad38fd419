// Package nifti reads and writes single-file NIfTI-1 volumes (.nii and
// .nii.gz), the format exchanged with the conversion, masking and defacing
// tools.
package nifti

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

const (
	headerSize = 348
	// dataOffset is the header plus the empty extension block.
	dataOffset = 352
)

// Datatype is the NIfTI voxel type code.
type Datatype int16

const (
	Uint8   Datatype = 2
	Int16   Datatype = 4
	Int32   Datatype = 8
	Float32 Datatype = 16
	Float64 Datatype = 64
	Int8    Datatype = 256
	Uint16  Datatype = 512
	Uint32  Datatype = 768
)

func (d Datatype) size() int {
	switch d {
	case Uint8, Int8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Float64:
		return 8
	}
	return 0
}

func (d Datatype) String() string {
	switch d {
	case Uint8:
		return "uint8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int8:
		return "int8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	}
	return fmt.Sprintf("datatype(%d)", int16(d))
}

// header is the on-disk NIfTI-1 header; binary.Read packs it without padding.
type header struct {
	SizeofHdr     int32
	DataType      [10]byte
	DBName        [18]byte
	Extents       int32
	SessionError  int16
	Regular       byte
	DimInfo       byte
	Dim           [8]int16
	IntentP1      float32
	IntentP2      float32
	IntentP3      float32
	IntentCode    int16
	Datatype      int16
	Bitpix        int16
	SliceStart    int16
	Pixdim        [8]float32
	VoxOffset     float32
	SclSlope      float32
	SclInter      float32
	SliceEnd      int16
	SliceCode     byte
	XYZTUnits     byte
	CalMax        float32
	CalMin        float32
	SliceDuration float32
	Toffset       float32
	Glmax         int32
	Glmin         int32
	Descrip       [80]byte
	AuxFile       [24]byte
	QformCode     int16
	SformCode     int16
	QuaternB      float32
	QuaternC      float32
	QuaternD      float32
	QoffsetX      float32
	QoffsetY      float32
	QoffsetZ      float32
	SrowX         [4]float32
	SrowY         [4]float32
	SrowZ         [4]float32
	IntentName    [16]byte
	Magic         [4]byte
}

// Volume is a 3-D scalar volume with scaling applied. Data is stored with x
// varying fastest, then y, then z.
type Volume struct {
	Dims   [3]int
	Pixdim [3]float64
	Data   []float64
}

// New allocates a zeroed volume with unit voxel size.
func New(x, y, z int) *Volume {
	return &Volume{
		Dims:   [3]int{x, y, z},
		Pixdim: [3]float64{1, 1, 1},
		Data:   make([]float64, x*y*z),
	}
}

func (v *Volume) index(x, y, z int) int {
	return x + v.Dims[0]*(y+v.Dims[1]*z)
}

// At returns the voxel value at (x, y, z).
func (v *Volume) At(x, y, z int) float64 { return v.Data[v.index(x, y, z)] }

// Set stores the voxel value at (x, y, z).
func (v *Volume) Set(x, y, z int, val float64) { v.Data[v.index(x, y, z)] = val }

// Read loads the volume at path. Gzip compression is detected from the
// content, not the name. Only the first 3-D volume of a 4-D file is read.
func Read(path string) (*Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open volume: %w", err)
	}
	defer func() { _ = f.Close() }()

	br := bufio.NewReader(f)
	var r io.Reader = br
	if magic, _ := br.Peek(2); len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("volume %s: %w", path, err)
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}

	v, err := decode(r)
	if err != nil {
		return nil, fmt.Errorf("volume %s: %w", path, err)
	}
	return v, nil
}

func decode(r io.Reader) (*Volume, error) {
	raw := make([]byte, headerSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var order binary.ByteOrder
	switch {
	case binary.LittleEndian.Uint32(raw) == headerSize:
		order = binary.LittleEndian
	case binary.BigEndian.Uint32(raw) == headerSize:
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("not a NIfTI-1 file")
	}

	var h header
	if err := binary.Read(bytes.NewReader(raw), order, &h); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	if string(h.Magic[:3]) != "n+1" {
		return nil, fmt.Errorf("unsupported NIfTI magic %q, only single-file volumes are read", h.Magic[:3])
	}
	if h.Dim[0] < 3 || h.Dim[0] > 7 {
		return nil, fmt.Errorf("unsupported dimensionality %d", h.Dim[0])
	}

	dt := Datatype(h.Datatype)
	size := dt.size()
	if size == 0 {
		return nil, fmt.Errorf("unsupported datatype %s", dt)
	}

	v := &Volume{}
	for i := 0; i < 3; i++ {
		if h.Dim[i+1] < 1 {
			return nil, fmt.Errorf("invalid dimension %d: %d", i+1, h.Dim[i+1])
		}
		v.Dims[i] = int(h.Dim[i+1])
		v.Pixdim[i] = float64(h.Pixdim[i+1])
	}

	offset := int64(h.VoxOffset)
	if offset < headerSize {
		offset = dataOffset
	}
	if _, err := io.CopyN(io.Discard, r, offset-headerSize); err != nil {
		return nil, fmt.Errorf("skip to voxel data: %w", err)
	}

	n := v.Dims[0] * v.Dims[1] * v.Dims[2]
	buf := make([]byte, n*size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("read voxel data: %w", err)
	}

	slope, inter := float64(h.SclSlope), float64(h.SclInter)
	scale := slope != 0 && !math.IsNaN(slope)
	v.Data = make([]float64, n)
	for i := range v.Data {
		val := sample(buf[i*size:], dt, order)
		if scale {
			val = val*slope + inter
		}
		v.Data[i] = val
	}
	return v, nil
}

func sample(b []byte, dt Datatype, order binary.ByteOrder) float64 {
	switch dt {
	case Uint8:
		return float64(b[0])
	case Int8:
		return float64(int8(b[0]))
	case Int16:
		return float64(int16(order.Uint16(b)))
	case Uint16:
		return float64(order.Uint16(b))
	case Int32:
		return float64(int32(order.Uint32(b)))
	case Uint32:
		return float64(order.Uint32(b))
	case Float32:
		return float64(math.Float32frombits(order.Uint32(b)))
	case Float64:
		return math.Float64frombits(order.Uint64(b))
	}
	return math.NaN()
}

// Write stores v at path as little-endian float32, gzip compressed when path
// ends in ".gz".
func Write(path string, v *Volume) error {
	return WriteAs(path, v, Float32)
}

// WriteAs stores v at path with the given voxel type. Values are converted
// with Go's numeric conversion rules; no scaling is written.
func WriteAs(path string, v *Volume, dt Datatype) error {
	if dt.size() == 0 {
		return fmt.Errorf("unsupported datatype %s", dt)
	}
	if len(v.Data) != v.Dims[0]*v.Dims[1]*v.Dims[2] {
		return fmt.Errorf("volume has %d voxels, dimensions need %d", len(v.Data), v.Dims[0]*v.Dims[1]*v.Dims[2])
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create volume: %w", err)
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if err := encodeTo(f, path, v, dt); err != nil {
		_ = f.Close()
		return fmt.Errorf("write volume %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close volume %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

func encodeTo(f io.Writer, path string, v *Volume, dt Datatype) error {
	bw := bufio.NewWriter(f)
	var w io.Writer = bw
	var zw *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		zw = gzip.NewWriter(bw)
		w = zw
	}

	if err := encode(w, v, dt); err != nil {
		return err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func encode(w io.Writer, v *Volume, dt Datatype) error {
	h := header{
		SizeofHdr: headerSize,
		Regular:   'r',
		Datatype:  int16(dt),
		Bitpix:    int16(dt.size() * 8),
		VoxOffset: dataOffset,
		XYZTUnits: 2 | 8, // mm, s
		QformCode: 0,
		SformCode: 1,
		Magic:     [4]byte{'n', '+', '1', 0},
	}
	h.Dim[0] = 3
	h.Pixdim[0] = 1
	for i := 0; i < 3; i++ {
		h.Dim[i+1] = int16(v.Dims[i])
		h.Pixdim[i+1] = float32(v.Pixdim[i])
	}
	for i := 4; i < 8; i++ {
		h.Dim[i] = 1
	}
	h.SrowX = [4]float32{float32(v.Pixdim[0]), 0, 0, 0}
	h.SrowY = [4]float32{0, float32(v.Pixdim[1]), 0, 0}
	h.SrowZ = [4]float32{0, 0, float32(v.Pixdim[2]), 0}

	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return err
	}
	// Empty extension block.
	if _, err := w.Write(make([]byte, dataOffset-headerSize)); err != nil {
		return err
	}

	size := dt.size()
	buf := make([]byte, size)
	for _, val := range v.Data {
		putSample(buf, dt, val)
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func putSample(b []byte, dt Datatype, val float64) {
	le := binary.LittleEndian
	switch dt {
	case Uint8:
		b[0] = uint8(val)
	case Int8:
		b[0] = byte(int8(val))
	case Int16:
		le.PutUint16(b, uint16(int16(val)))
	case Uint16:
		le.PutUint16(b, uint16(val))
	case Int32:
		le.PutUint32(b, uint32(int32(val)))
	case Uint32:
		le.PutUint32(b, uint32(val))
	case Float32:
		le.PutUint32(b, math.Float32bits(float32(val)))
	case Float64:
		le.PutUint64(b, math.Float64bits(val))
	}
}

// Slice returns plane z as a row-major [y][x] copy.
func (v *Volume) Slice(z int) [][]float64 {
	out := make([][]float64, v.Dims[1])
	for y := range out {
		row := make([]float64, v.Dims[0])
		for x := range row {
			row[x] = v.At(x, y, z)
		}
		out[y] = row
	}
	return out
}
