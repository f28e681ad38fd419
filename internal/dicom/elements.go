package dicom

import (
	"errors"
	"fmt"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// VR returns the value representation of e, falling back to the data
// dictionary and then to the value type when the raw VR was not recorded.
func VR(e *dicom.Element) string {
	if e.RawValueRepresentation != "" {
		return e.RawValueRepresentation
	}
	if info, err := tag.Find(e.Tag); err == nil && len(info.VRs) > 0 {
		return info.VRs[0]
	}
	if e.Value != nil && e.Value.ValueType() == dicom.Sequences {
		return "SQ"
	}
	return ""
}

// IsPrivate reports whether t belongs to an odd (vendor private) group.
func IsPrivate(t tag.Tag) bool {
	return t.Group%2 == 1
}

// Strings returns the string values of e, or nil for non-textual elements.
func Strings(e *dicom.Element) []string {
	if e == nil || e.Value == nil || e.Value.ValueType() != dicom.Strings {
		return nil
	}
	vals, _ := e.Value.GetValue().([]string)
	return vals
}

// Items returns the element lists of a sequence element, or nil.
func Items(e *dicom.Element) [][]*dicom.Element {
	if e == nil || e.Value == nil || e.Value.ValueType() != dicom.Sequences {
		return nil
	}
	seq, _ := e.Value.GetValue().([]*dicom.SequenceItemValue)
	items := make([][]*dicom.Element, 0, len(seq))
	for _, item := range seq {
		elems, _ := item.GetValue().([]*dicom.Element)
		items = append(items, elems)
	}
	return items
}

// SetItems replaces the items of a sequence element.
func SetItems(e *dicom.Element, items [][]*dicom.Element) error {
	v, err := dicom.NewValue(items)
	if err != nil {
		return fmt.Errorf("sequence %s: %w", tagName(e.Tag), err)
	}
	e.Value = v
	return nil
}

// SetStrings replaces the textual value of e in place.
func SetStrings(e *dicom.Element, values []string) error {
	v, err := dicom.NewValue(values)
	if err != nil {
		return fmt.Errorf("value for %s: %w", tagName(e.Tag), err)
	}
	e.Value = v
	return nil
}

// Clear empties e while keeping its tag and VR: strings become a single
// empty string, numbers and bytes become empty, sequences lose their items.
func Clear(e *dicom.Element) error {
	var data any = []string{""}
	if e.Value != nil {
		switch e.Value.ValueType() {
		case dicom.Ints:
			data = []int{}
		case dicom.Floats:
			data = []float64{}
		case dicom.Bytes:
			data = []byte{}
		case dicom.Sequences:
			data = [][]*dicom.Element{}
		}
	}
	v, err := dicom.NewValue(data)
	if err != nil {
		return fmt.Errorf("clear %s: %w", tagName(e.Tag), err)
	}
	e.Value = v
	return nil
}

// WalkFunc is called for every element reached by Walk. depth is 0 for
// top-level elements and grows by one per enclosing sequence.
type WalkFunc func(e *dicom.Element, depth int) error

// Walk visits elems in order, descending into sequence items after visiting
// the sequence element itself. Returning SkipChildren from fn on a sequence
// element skips its items.
func Walk(elems []*dicom.Element, fn WalkFunc) error {
	return walk(elems, 0, fn)
}

// SkipChildren tells Walk not to descend into the current sequence.
var SkipChildren = errors.New("skip children")

func walk(elems []*dicom.Element, depth int, fn WalkFunc) error {
	for _, e := range elems {
		err := fn(e, depth)
		if err == SkipChildren {
			continue
		}
		if err != nil {
			return err
		}
		for _, item := range Items(e) {
			if err := walk(item, depth+1, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// StripPrivate removes every private element, including those nested in
// sequence items, and returns how many were removed.
func (r *Record) StripPrivate() (int, error) {
	kept, removed, err := stripPrivate(r.Dataset.Elements)
	if err != nil {
		return 0, err
	}
	r.Dataset.Elements = kept
	return removed, nil
}

func stripPrivate(elems []*dicom.Element) ([]*dicom.Element, int, error) {
	kept := elems[:0:0]
	removed := 0
	for _, e := range elems {
		if IsPrivate(e.Tag) {
			removed++
			continue
		}
		if items := Items(e); len(items) > 0 {
			changed := false
			for i, item := range items {
				k, n, err := stripPrivate(item)
				if err != nil {
					return nil, 0, err
				}
				if n > 0 {
					items[i] = k
					removed += n
					changed = true
				}
			}
			if changed {
				if err := SetItems(e, items); err != nil {
					return nil, 0, err
				}
			}
		}
		kept = append(kept, e)
	}
	return kept, removed, nil
}
