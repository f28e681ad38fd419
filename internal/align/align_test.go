package align

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsinham/pseudicom/internal/errors"
)

func series(n int) []Series {
	out := make([]Series, n)
	for i := range out {
		out[i] = Series{Name: fmt.Sprintf("s%d", i)}
	}
	return out
}

func names(pairs []Pair) []string {
	var out []string
	for _, p := range pairs {
		out = append(out, p.Series.Name+"="+p.Volume)
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name    string
		inputs  int
		outputs []Converted
		policy  OffsetPolicy
		want    []string
	}{
		{
			name:    "all present",
			inputs:  3,
			outputs: []Converted{Volume("a"), Volume("b"), Volume("c")},
			want:    []string{"s0=a", "s1=b", "s2=c"},
		},
		{
			name:    "absent first",
			inputs:  3,
			outputs: []Converted{Absent(), Volume("b"), Volume("c")},
			want:    []string{"s1=b", "s2=c"},
		},
		{
			name:    "absent middle",
			inputs:  3,
			outputs: []Converted{Volume("a"), Absent(), Volume("c")},
			want:    []string{"s0=a", "s2=c"},
		},
		{
			name:    "absent last",
			inputs:  3,
			outputs: []Converted{Volume("a"), Volume("b"), Absent()},
			want:    []string{"s0=a", "s1=b"},
		},
		{
			name:    "all absent",
			inputs:  2,
			outputs: []Converted{Absent(), Absent()},
			want:    nil,
		},
		{
			name:    "one leading input dropped",
			inputs:  3,
			outputs: []Converted{Volume("b"), Volume("c")},
			want:    []string{"s1=b", "s2=c"},
		},
		{
			name:    "leading drop and absent marker",
			inputs:  4,
			outputs: []Converted{Volume("b"), Absent(), Volume("d")},
			want:    []string{"s1=b", "s3=d"},
		},
		{
			name:    "wider trim allowed",
			inputs:  4,
			outputs: []Converted{Volume("d")},
			policy:  LeadingTrim{Max: 3},
			want:    []string{"s3=d"},
		},
		{
			name:    "empty",
			inputs:  0,
			outputs: nil,
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pairs, err := Filter(series(tt.inputs), tt.outputs, tt.policy)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(pairs))
		})
	}
}

// fixedTrim always trims the same number of inputs.
type fixedTrim int

func (f fixedTrim) Trim(_, _ int) (int, error) { return int(f), nil }

func TestFilterErrors(t *testing.T) {
	tests := []struct {
		name    string
		inputs  int
		outputs []Converted
		policy  OffsetPolicy
	}{
		{"more outputs than inputs", 1, []Converted{Volume("a"), Volume("b")}, nil},
		{"offset beyond default", 3, []Converted{Volume("c")}, nil},
		{"strict mismatch", 2, []Converted{Volume("b")}, Strict{}},
		{"no trim allowed", 2, []Converted{Volume("b")}, LeadingTrim{}},
		{"policy trims the wrong count", 3, []Converted{Volume("c")}, fixedTrim(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Filter(series(tt.inputs), tt.outputs, tt.policy)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrAlignment))
			assert.Equal(t, errors.KindAlignment, errors.KindOf(err))
		})
	}
}

func TestFilterErrorNamesLengths(t *testing.T) {
	_, err := Filter(series(4), []Converted{Volume("d")}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "4 inputs")
	assert.Contains(t, err.Error(), "1 outputs")
}

func TestStrictAcceptsEqualLengths(t *testing.T) {
	pairs, err := Filter(series(2), []Converted{Volume("a"), Volume("b")}, Strict{})
	require.NoError(t, err)
	assert.Len(t, pairs, 2)
}
