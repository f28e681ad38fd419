// Package synth writes small synthetic MR series with realistic identifying
// content: patient identity, dates embedded in UIDs and file names, nested
// sequences and vendor private elements.
package synth

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
)

const (
	mrImageStorage  = "1.2.840.10008.5.1.4.1.1.4"
	explicitVRLE    = "1.2.840.10008.1.2.1"
	uidRoot         = "1.2.826.0.1.3680043.8.498"
	DefaultDate     = "20230101"
	DefaultName     = "DOE^JANE"
	DefaultID       = "PAT001"
	DefaultBirth    = "19800512"
	DefaultProtocol = "T1_MPRAGE"
)

// PixelFunc returns the stored value at (row, col) of the slice with the
// given 1-based instance number.
type PixelFunc func(row, col, instance int) int

// Options configures WriteSeries.
type Options struct {
	Dir           string
	Slices        int
	Rows          int
	Columns       int
	BitsAllocated int
	Date          string
	PatientName   string
	PatientID     string
	Protocol      string
	Extension     string
	Vendors       []Vendor
	Pixel         PixelFunc
	Seed          uint64
	Workers       int
}

func (o *Options) setDefaults() {
	if o.Slices == 0 {
		o.Slices = 4
	}
	if o.Rows == 0 {
		o.Rows = 8
	}
	if o.Columns == 0 {
		o.Columns = 6
	}
	if o.BitsAllocated == 0 {
		o.BitsAllocated = 16
	}
	if o.Date == "" {
		o.Date = DefaultDate
	}
	if o.PatientName == "" {
		o.PatientName = DefaultName
	}
	if o.PatientID == "" {
		o.PatientID = DefaultID
	}
	if o.Protocol == "" {
		o.Protocol = DefaultProtocol
	}
	if o.Extension == "" {
		o.Extension = ".dcm"
	}
	if o.Pixel == nil {
		o.Pixel = Gradient(o.Columns)
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
}

// Gradient is the default PixelFunc: distinct values per pixel and slice.
func Gradient(columns int) PixelFunc {
	return func(row, col, instance int) int {
		return (row*columns + col + instance*37) % 4096
	}
}

// FileName returns the name WriteSeries gives to the record with the given
// instance number. The acquisition date is part of the name, as many
// exporters do.
func FileName(date string, instance int, ext string) string {
	return fmt.Sprintf("IMG_%s_%04d%s", date, instance, ext)
}

// StudyUID returns the study instance UID used for date.
func StudyUID(date string) string {
	return fmt.Sprintf("%s.%s.1", uidRoot, date)
}

// SOPInstanceUID returns the SOP instance UID of a record.
func SOPInstanceUID(date string, instance int) string {
	return fmt.Sprintf("%s.%s.1.%d", uidRoot, date, instance)
}

// WriteSeries writes opts.Slices records into opts.Dir and returns their
// paths ordered by instance number.
func WriteSeries(opts Options) ([]string, error) {
	opts.setDefaults()
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create series dir: %w", err)
	}

	paths := make([]string, opts.Slices)
	tasks := make(chan int, opts.Slices)
	errs := make(chan error, opts.Slices)
	for i := 1; i <= opts.Slices; i++ {
		paths[i-1] = filepath.Join(opts.Dir, FileName(opts.Date, i, opts.Extension))
		tasks <- i
	}
	close(tasks)

	workers := min(opts.Workers, opts.Slices)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for instance := range tasks {
				if err := writeRecord(opts, instance, paths[instance-1]); err != nil {
					errs <- fmt.Errorf("instance %d: %w", instance, err)
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	if err := <-errs; err != nil {
		return nil, err
	}
	return paths, nil
}

func writeRecord(opts Options, instance int, path string) error {
	rng := rand.New(rand.NewPCG(opts.Seed, uint64(instance)))
	date := opts.Date
	sop := SOPInstanceUID(date, instance)
	study := StudyUID(date)

	referenced := []*dicom.Element{
		mustNewElement(tag.ReferencedSOPClassUID, []string{"1.2.840.10008.3.1.2.3.1"}),
		mustNewElement(tag.ReferencedSOPInstanceUID, []string{study + ".9"}),
		mustNewElement(tag.InstanceCreationDate, []string{date}),
		mustNewPrivateElement(tag.Tag{Group: 0x0011, Element: 0x1001}, "LO", []string{"nested private " + date}),
	}

	elements := []*dicom.Element{
		mustNewElement(tag.MediaStorageSOPClassUID, []string{mrImageStorage}),
		mustNewElement(tag.MediaStorageSOPInstanceUID, []string{sop}),
		mustNewElement(tag.TransferSyntaxUID, []string{explicitVRLE}),
		mustNewElement(tag.SOPClassUID, []string{mrImageStorage}),
		mustNewElement(tag.SOPInstanceUID, []string{sop}),
		mustNewElement(tag.StudyDate, []string{date}),
		mustNewElement(tag.SeriesDate, []string{date}),
		mustNewElement(tag.AcquisitionDate, []string{date}),
		mustNewElement(tag.ContentDate, []string{date}),
		mustNewElement(tag.StudyTime, []string{"101500"}),
		mustNewElement(tag.AccessionNumber, []string{fmt.Sprintf("ACC%06d", rng.IntN(1000000))}),
		mustNewElement(tag.Modality, []string{"MR"}),
		mustNewElement(tag.Manufacturer, []string{"SIEMENS"}),
		mustNewElement(tag.InstitutionName, []string{"St. Elsewhere Hospital"}),
		mustNewElement(tag.ReferringPhysicianName, []string{"HOUSE^GREGORY"}),
		mustNewElement(tag.StudyDescription, []string{"Brain MRI"}),
		mustNewElement(tag.SeriesDescription, []string{opts.Protocol}),
		mustNewElement(tag.ReferencedStudySequence, [][]*dicom.Element{referenced}),
		mustNewElement(tag.PatientName, []string{opts.PatientName}),
		mustNewElement(tag.PatientID, []string{opts.PatientID}),
		mustNewElement(tag.PatientBirthDate, []string{DefaultBirth}),
		mustNewElement(tag.PatientSex, []string{"F"}),
		mustNewElement(tag.ProtocolName, []string{opts.Protocol + "_" + date}),
		mustNewElement(tag.StudyInstanceUID, []string{study}),
		mustNewElement(tag.SeriesInstanceUID, []string{study + ".2"}),
		mustNewElement(tag.StudyID, []string{"1"}),
		mustNewElement(tag.SeriesNumber, []string{"1"}),
		mustNewElement(tag.InstanceNumber, []string{intToIS(instance)}),
		mustNewElement(tag.SamplesPerPixel, []int{1}),
		mustNewElement(tag.PhotometricInterpretation, []string{"MONOCHROME2"}),
		mustNewElement(tag.Rows, []int{opts.Rows}),
		mustNewElement(tag.Columns, []int{opts.Columns}),
		mustNewElement(tag.PixelSpacing, []string{floatToDS(1.0), floatToDS(1.0)}),
		mustNewElement(tag.BitsAllocated, []int{opts.BitsAllocated}),
		mustNewElement(tag.BitsStored, []int{opts.BitsAllocated}),
		mustNewElement(tag.HighBit, []int{opts.BitsAllocated - 1}),
		mustNewElement(tag.PixelRepresentation, []int{0}),
	}

	for _, v := range opts.Vendors {
		elements = append(elements, privateElements(v, date, rng)...)
	}

	sort.Slice(elements, func(i, j int) bool {
		if elements[i].Tag.Group != elements[j].Tag.Group {
			return elements[i].Tag.Group < elements[j].Tag.Group
		}
		return elements[i].Tag.Element < elements[j].Tag.Element
	})

	pixelData, err := buildPixelData(opts, instance)
	if err != nil {
		return err
	}
	elements = append(elements, mustNewElement(tag.PixelData, pixelData))

	return writeDatasetToFile(path, dicom.Dataset{Elements: elements},
		dicom.SkipVRVerification(), dicom.SkipValueTypeVerification())
}

func buildPixelData(opts Options, instance int) (dicom.PixelDataInfo, error) {
	rows, cols := opts.Rows, opts.Columns
	pixels := rows * cols

	var native frame.INativeFrame
	switch opts.BitsAllocated {
	case 8:
		nf := frame.NewNativeFrame[uint8](8, rows, cols, pixels, 1)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				nf.RawData[r*cols+c] = uint8(opts.Pixel(r, c, instance))
			}
		}
		native = nf
	case 16:
		nf := frame.NewNativeFrame[uint16](16, rows, cols, pixels, 1)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				nf.RawData[r*cols+c] = uint16(opts.Pixel(r, c, instance))
			}
		}
		native = nf
	default:
		return dicom.PixelDataInfo{}, fmt.Errorf("unsupported BitsAllocated %d", opts.BitsAllocated)
	}

	return dicom.PixelDataInfo{
		Frames: []*frame.Frame{
			{
				Encapsulated: false,
				NativeData:   native,
			},
		},
	}, nil
}

// writeDatasetToFile writes a dataset to a file.
func writeDatasetToFile(filename string, ds dicom.Dataset, opts ...dicom.WriteOption) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return dicom.Write(f, ds, opts...)
}

// mustNewElement creates a new element, panicking on error.
func mustNewElement(t tag.Tag, value any) *dicom.Element {
	elem, err := dicom.NewElement(t, value)
	if err != nil {
		panic(fmt.Sprintf("failed to create element %v: %v", t, err))
	}
	return elem
}

// floatToDS converts a float64 to a Decimal String.
func floatToDS(f float64) string {
	return fmt.Sprintf("%.6g", f)
}

// intToIS converts an int to an Integer String.
func intToIS(i int) string {
	return fmt.Sprintf("%d", i)
}
