package dicom

import (
	"fmt"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// PixelInfo returns the parsed pixel data of the record.
func (r *Record) PixelInfo() (dicom.PixelDataInfo, error) {
	e, ok := r.Find(tag.PixelData)
	if !ok {
		return dicom.PixelDataInfo{}, fmt.Errorf("no pixel data")
	}
	if e.Value == nil || e.Value.ValueType() != dicom.PixelData {
		return dicom.PixelDataInfo{}, fmt.Errorf("pixel data element has unexpected value type")
	}
	return dicom.MustGetPixelDataInfo(e.Value), nil
}

// IsEncapsulated reports whether the pixel data is stored compressed.
func (r *Record) IsEncapsulated() (bool, error) {
	info, err := r.PixelInfo()
	if err != nil {
		return false, err
	}
	for _, f := range info.Frames {
		if f.Encapsulated {
			return true, nil
		}
	}
	return false, nil
}

// Pixels returns the first sample of every pixel of the first frame, row by row.
func (r *Record) Pixels() ([]int, error) {
	info, err := r.PixelInfo()
	if err != nil {
		return nil, err
	}
	if len(info.Frames) == 0 {
		return nil, fmt.Errorf("pixel data has no frames")
	}
	f := info.Frames[0]
	if f.Encapsulated || f.NativeData == nil {
		return nil, fmt.Errorf("pixel data is not native")
	}
	nf := f.NativeData
	rows, cols := nf.Rows(), nf.Cols()
	out := make([]int, 0, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			px, err := nf.GetPixel(x, y)
			if err != nil {
				return nil, fmt.Errorf("pixel (%d,%d): %w", x, y, err)
			}
			out = append(out, px[0])
		}
	}
	return out, nil
}

// SetPixels replaces the pixel data with a single native frame laid out
// row by row. values must already fit in g.BitsAllocated bits.
func (r *Record) SetPixels(g Geometry, values []uint32) error {
	spp := g.SamplesPerPixel
	if spp == 0 {
		spp = 1
	}
	pixels := g.Rows * g.Columns
	if len(values) != pixels*spp {
		return fmt.Errorf("got %d samples for %dx%d pixels with %d samples each", len(values), g.Rows, g.Columns, spp)
	}

	var native frame.INativeFrame
	switch g.BitsAllocated {
	case 8:
		nf := frame.NewNativeFrame[uint8](8, g.Rows, g.Columns, pixels, spp)
		for i, v := range values {
			nf.RawData[i] = uint8(v)
		}
		native = nf
	case 16:
		nf := frame.NewNativeFrame[uint16](16, g.Rows, g.Columns, pixels, spp)
		for i, v := range values {
			nf.RawData[i] = uint16(v)
		}
		native = nf
	case 32:
		nf := frame.NewNativeFrame[uint32](32, g.Rows, g.Columns, pixels, spp)
		copy(nf.RawData, values)
		native = nf
	default:
		return fmt.Errorf("unsupported BitsAllocated %d", g.BitsAllocated)
	}

	info := dicom.PixelDataInfo{
		Frames: []*frame.Frame{
			{
				Encapsulated: false,
				NativeData:   native,
			},
		},
	}

	if e, ok := r.Find(tag.PixelData); ok {
		v, err := dicom.NewValue(info)
		if err != nil {
			return fmt.Errorf("pixel value: %w", err)
		}
		e.Value = v
		return nil
	}

	e, err := dicom.NewElement(tag.PixelData, info)
	if err != nil {
		return fmt.Errorf("pixel element: %w", err)
	}
	r.Dataset.Elements = append(r.Dataset.Elements, e)
	return nil
}
