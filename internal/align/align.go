// Package align pairs the selected series with the volumes the converter
// produced for them.
package align

import "github.com/mrsinham/pseudicom/internal/errors"

// Series is a selected run folder and its record files in name order.
type Series struct {
	Name string
	Dir  string
	// Keyword is the anatomy keyword that selected the folder.
	Keyword string
	Files   []string
}

// Converted is the converter's output for one series. OK is false when no
// volume was produced.
type Converted struct {
	Path string
	OK   bool
}

// Volume returns a present converted output.
func Volume(path string) Converted { return Converted{Path: path, OK: true} }

// Absent returns a missing converted output.
func Absent() Converted { return Converted{} }

// Pair is a series with the volume converted from it.
type Pair struct {
	Series Series
	Volume string
}

// OffsetPolicy decides how many leading inputs to drop when the converter
// returned fewer outputs than it received inputs.
type OffsetPolicy interface {
	Trim(inputs, outputs int) (int, error)
}

// LeadingTrim drops the surplus leading inputs, up to Max of them.
type LeadingTrim struct {
	Max int
}

func (p LeadingTrim) Trim(inputs, outputs int) (int, error) {
	diff := inputs - outputs
	if diff > p.Max {
		return 0, errors.Alignment("%d inputs but only %d outputs, at most %d leading inputs may be dropped",
			inputs, outputs, p.Max)
	}
	return diff, nil
}

// Strict rejects any length mismatch.
type Strict struct{}

func (Strict) Trim(inputs, outputs int) (int, error) {
	if inputs != outputs {
		return 0, errors.Alignment("%d inputs but %d outputs", inputs, outputs)
	}
	return 0, nil
}

// DefaultPolicy tolerates one missing leading output.
var DefaultPolicy OffsetPolicy = LeadingTrim{Max: 1}

// Filter aligns inputs with outputs by position and drops the positions
// whose output is absent. More outputs than inputs is always an error.
func Filter(inputs []Series, outputs []Converted, policy OffsetPolicy) ([]Pair, error) {
	if len(outputs) > len(inputs) {
		return nil, errors.Alignment("%d outputs for only %d inputs", len(outputs), len(inputs))
	}
	if policy == nil {
		policy = DefaultPolicy
	}

	trim := 0
	if len(outputs) < len(inputs) {
		var err error
		if trim, err = policy.Trim(len(inputs), len(outputs)); err != nil {
			return nil, err
		}
		if trim != len(inputs)-len(outputs) {
			return nil, errors.Alignment("offset policy trimmed %d inputs, need %d", trim, len(inputs)-len(outputs))
		}
	}

	inputs = inputs[trim:]
	pairs := make([]Pair, 0, len(inputs))
	for i, out := range outputs {
		if !out.OK {
			continue
		}
		pairs = append(pairs, Pair{Series: inputs[i], Volume: out.Path})
	}
	return pairs, nil
}
