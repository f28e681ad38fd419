// Package dicom wraps parsed image records with the operations the
// de-identification and reinsertion steps need: typed accessors, element
// walking, private tag removal, file meta repair and atomic saving.
package dicom

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Record is one parsed image file.
type Record struct {
	Path    string
	Dataset dicom.Dataset
}

// Geometry describes the native pixel layout of a record.
type Geometry struct {
	Rows            int
	Columns         int
	BitsAllocated   int
	SamplesPerPixel int
}

// Load parses the record at path, pixel data included.
func Load(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open record: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat record: %w", err)
	}

	ds, err := dicom.Parse(f, info.Size(), nil)
	if err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	return &Record{Path: path, Dataset: ds}, nil
}

// Find returns the top-level element with tag t.
func (r *Record) Find(t tag.Tag) (*dicom.Element, bool) {
	e, err := r.Dataset.FindElementByTag(t)
	if err != nil || e == nil {
		return nil, false
	}
	return e, true
}

// String returns the first string value of t, or "" when absent.
func (r *Record) String(t tag.Tag) string {
	e, ok := r.Find(t)
	if !ok {
		return ""
	}
	vals := Strings(e)
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}

// Int returns the first value of t as an integer. Binary integer elements
// and integer strings (IS) are both accepted.
func (r *Record) Int(t tag.Tag) (int, error) {
	e, ok := r.Find(t)
	if !ok {
		return 0, fmt.Errorf("element %s not present", tagName(t))
	}
	if e.Value == nil {
		return 0, fmt.Errorf("element %s has no value", tagName(t))
	}
	switch e.Value.ValueType() {
	case dicom.Ints:
		ints := e.Value.GetValue().([]int)
		if len(ints) == 0 {
			return 0, fmt.Errorf("element %s is empty", tagName(t))
		}
		return ints[0], nil
	case dicom.Strings:
		strs := e.Value.GetValue().([]string)
		if len(strs) == 0 {
			return 0, fmt.Errorf("element %s is empty", tagName(t))
		}
		n, err := strconv.Atoi(strings.TrimSpace(strs[0]))
		if err != nil {
			return 0, fmt.Errorf("element %s: %w", tagName(t), err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("element %s is not an integer", tagName(t))
	}
}

// InstanceNumber returns the 1-based slice index of the record.
func (r *Record) InstanceNumber() (int, error) {
	return r.Int(tag.InstanceNumber)
}

// Geometry reads Rows, Columns, BitsAllocated and SamplesPerPixel.
func (r *Record) Geometry() (Geometry, error) {
	var g Geometry
	var err error
	if g.Rows, err = r.Int(tag.Rows); err != nil {
		return g, err
	}
	if g.Columns, err = r.Int(tag.Columns); err != nil {
		return g, err
	}
	if g.BitsAllocated, err = r.Int(tag.BitsAllocated); err != nil {
		return g, err
	}
	if g.SamplesPerPixel, err = r.Int(tag.SamplesPerPixel); err != nil {
		g.SamplesPerPixel = 1
	}
	return g, nil
}

// SetStrings replaces the value of t, adding the element when absent.
func (r *Record) SetStrings(t tag.Tag, values ...string) error {
	if e, ok := r.Find(t); ok {
		v, err := dicom.NewValue(values)
		if err != nil {
			return fmt.Errorf("value for %s: %w", tagName(t), err)
		}
		e.Value = v
		return nil
	}
	e, err := dicom.NewElement(t, values)
	if err != nil {
		return fmt.Errorf("element %s: %w", tagName(t), err)
	}
	r.Dataset.Elements = append(r.Dataset.Elements, e)
	return nil
}

// FixMeta makes the file meta information agree with the dataset: the media
// storage SOP instance and class UIDs follow SOPInstanceUID and SOPClassUID.
// The meta group length is recomputed on write.
func (r *Record) FixMeta() error {
	pairs := []struct{ meta, source tag.Tag }{
		{tag.MediaStorageSOPInstanceUID, tag.SOPInstanceUID},
		{tag.MediaStorageSOPClassUID, tag.SOPClassUID},
	}
	for _, p := range pairs {
		e, ok := r.Find(p.source)
		if !ok {
			continue
		}
		if err := r.SetStrings(p.meta, Strings(e)...); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the record to target through a temporary file in the same
// directory, so target is either left untouched or fully replaced.
func (r *Record) Save(target string) error {
	tmp, err := r.WriteTemp(filepath.Dir(target))
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", target, err)
	}
	r.Path = target
	return nil
}

// WriteTemp writes the record to a new hidden temporary file in dir and
// returns its path. The caller renames or removes it.
func (r *Record) WriteTemp(dir string) (string, error) {
	f, err := os.CreateTemp(dir, "."+filepath.Base(r.Path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp record: %w", err)
	}
	tmp := f.Name()

	if err := write(f, r.Dataset); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("close temp record: %w", err)
	}
	return tmp, nil
}

// write encodes ds with relaxed verification; scanner output rarely follows
// the VR tables exactly.
func write(w io.Writer, ds dicom.Dataset) error {
	if err := dicom.Write(w, ds,
		dicom.SkipVRVerification(),
		dicom.SkipValueTypeVerification(),
		dicom.DefaultMissingTransferSyntax(),
	); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

func tagName(t tag.Tag) string {
	if info, err := tag.Find(t); err == nil {
		return info.Name
	}
	return fmt.Sprintf("(%04x,%04x)", t.Group, t.Element)
}
