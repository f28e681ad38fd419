package synth

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Vendor selects a family of private elements to embed in generated records.
type Vendor string

const (
	Siemens Vendor = "siemens"
	GE      Vendor = "ge"
	Philips Vendor = "philips"
)

// AllVendors returns every supported vendor.
func AllVendors() []Vendor {
	return []Vendor{Siemens, GE, Philips}
}

// ParseVendors parses a comma-separated vendor list. "all" selects every vendor.
func ParseVendors(input string) ([]Vendor, error) {
	if input == "" {
		return nil, nil
	}
	var out []Vendor
	seen := make(map[Vendor]bool)
	for _, p := range strings.Split(input, ",") {
		p = strings.TrimSpace(p)
		if p == "all" {
			return AllVendors(), nil
		}
		v := Vendor(p)
		switch v {
		case Siemens, GE, Philips:
		default:
			return nil, fmt.Errorf("unknown vendor %q, valid vendors: %v (or 'all')", p, AllVendors())
		}
		if !seen[v] {
			out = append(out, v)
			seen[v] = true
		}
	}
	return out, nil
}

// mustNewPrivateElement creates an element with a private tag and explicit VR.
// dicom.NewElement rejects tags missing from the dictionary.
func mustNewPrivateElement(t tag.Tag, rawVR string, data any) *dicom.Element {
	value, err := dicom.NewValue(data)
	if err != nil {
		panic(fmt.Sprintf("failed to create value for private element %v: %v", t, err))
	}
	return &dicom.Element{
		Tag:                    t,
		ValueRepresentation:    tag.GetVRKind(t, rawVR),
		RawValueRepresentation: rawVR,
		Value:                  value,
	}
}

// privateElements returns the private elements a scanner of vendor v writes.
// date is embedded where real scanners leak acquisition dates.
func privateElements(v Vendor, date string, rng *rand.Rand) []*dicom.Element {
	switch v {
	case Siemens:
		return siemensElements(date, rng)
	case GE:
		return geElements(rng)
	case Philips:
		return philipsElements(rng)
	}
	return nil
}

// buildCSAHeader encodes name/value pairs in the Siemens "SV10" layout.
func buildCSAHeader(fields [][2]string) []byte {
	var buf bytes.Buffer
	buf.WriteString("SV10")
	buf.Write([]byte{0x04, 0x03, 0x02, 0x01})
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(fields)))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(0x4D))

	for _, f := range fields {
		name := make([]byte, 64)
		copy(name, f[0])
		buf.Write(name)
		_ = binary.Write(&buf, binary.LittleEndian, int32(1)) // VM
		buf.Write([]byte{'L', 'O', 0, 0})
		_ = binary.Write(&buf, binary.LittleEndian, int32(19)) // SyngoDT
		_ = binary.Write(&buf, binary.LittleEndian, int32(1))  // items
		_ = binary.Write(&buf, binary.LittleEndian, uint32(0x4D))

		val := []byte(f[1])
		for j := 0; j < 4; j++ {
			_ = binary.Write(&buf, binary.LittleEndian, uint32(len(val)))
		}
		buf.Write(val)
		if padding := (4 - len(val)%4) % 4; padding > 0 {
			buf.Write(make([]byte, padding))
		}
	}
	return buf.Bytes()
}

func siemensElements(date string, rng *rand.Rand) []*dicom.Element {
	header := buildCSAHeader([][2]string{
		{"ImaCoilString", "HEA;HEP"},
		{"SliceMeasurementDuration", fmt.Sprintf("%.1f", 200000+rng.Float64()*100000)},
		{"AcquisitionDate", date},
	})

	nested := []*dicom.Element{
		mustNewPrivateElement(tag.Tag{Group: 0x0029, Element: 0x0011}, "LO", []string{"SIEMENS CSA NON-IMAGE"}),
		mustNewPrivateElement(tag.Tag{Group: 0x0029, Element: 0x1100}, "OB", []byte(date+"\x00")),
	}

	return []*dicom.Element{
		mustNewPrivateElement(tag.Tag{Group: 0x0029, Element: 0x0010}, "LO", []string{"SIEMENS CSA HEADER"}),
		mustNewPrivateElement(tag.Tag{Group: 0x0029, Element: 0x1010}, "OB", header),
		mustNewPrivateElement(tag.Tag{Group: 0x0029, Element: 0x1102}, "SQ", [][]*dicom.Element{nested}),
	}
}

func geElements(rng *rand.Rand) []*dicom.Element {
	version := fmt.Sprintf("DV%d.%d_%d_M5", rng.IntN(10)+20, rng.IntN(10), rng.IntN(100))
	return []*dicom.Element{
		mustNewPrivateElement(tag.Tag{Group: 0x0009, Element: 0x0010}, "LO", []string{"GEMS_IDEN_01"}),
		mustNewPrivateElement(tag.Tag{Group: 0x0009, Element: 0x10E3}, "LO", []string{version}),
	}
}

func philipsElements(rng *rand.Rand) []*dicom.Element {
	item := []*dicom.Element{
		mustNewPrivateElement(tag.Tag{Group: 0x2005, Element: 0x0011}, "LO", []string{"Philips MR Imaging DD 005"}),
		mustNewPrivateElement(tag.Tag{Group: 0x2005, Element: 0x1100}, "DS", []string{fmt.Sprintf("%.6f", rng.Float64()*100+1)}),
	}
	return []*dicom.Element{
		mustNewPrivateElement(tag.Tag{Group: 0x2005, Element: 0x0010}, "LO", []string{"Philips MR Imaging DD 001"}),
		mustNewPrivateElement(tag.Tag{Group: 0x2005, Element: 0x100E}, "SQ", [][]*dicom.Element{item}),
	}
}
