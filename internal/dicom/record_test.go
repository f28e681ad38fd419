package dicom

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/pseudicom/internal/dicom/synth"
)

func writeSeries(t *testing.T, opts synth.Options) []string {
	t.Helper()
	if opts.Dir == "" {
		opts.Dir = t.TempDir()
	}
	paths, err := synth.WriteSeries(opts)
	require.NoError(t, err)
	return paths
}

func TestLoadAccessors(t *testing.T) {
	paths := writeSeries(t, synth.Options{Slices: 3, Rows: 5, Columns: 4})

	rec, err := Load(paths[1])
	require.NoError(t, err)

	assert.Equal(t, synth.DefaultName, rec.String(tag.PatientName))
	assert.Equal(t, "", rec.String(tag.PatientComments))

	n, err := rec.InstanceNumber()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	g, err := rec.Geometry()
	require.NoError(t, err)
	assert.Equal(t, Geometry{Rows: 5, Columns: 4, BitsAllocated: 16, SamplesPerPixel: 1}, g)

	_, err = rec.Int(tag.NumberOfFrames)
	assert.Error(t, err)
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.dcm")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a record"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestStripPrivate(t *testing.T) {
	paths := writeSeries(t, synth.Options{Slices: 1, Vendors: synth.AllVendors()})
	rec, err := Load(paths[0])
	require.NoError(t, err)

	removed, err := rec.StripPrivate()
	require.NoError(t, err)
	assert.Greater(t, removed, 0)

	err = Walk(rec.Dataset.Elements, func(e *dicom.Element, depth int) error {
		assert.False(t, IsPrivate(e.Tag), "private element %v left at depth %d", e.Tag, depth)
		return nil
	})
	require.NoError(t, err)

	// The standard sequence survives with its public elements.
	seq, ok := rec.Find(tag.ReferencedStudySequence)
	require.True(t, ok)
	items := Items(seq)
	require.Len(t, items, 1)
	assert.Len(t, items[0], 3)
}

func TestWalkDepthAndSkip(t *testing.T) {
	paths := writeSeries(t, synth.Options{Slices: 1})
	rec, err := Load(paths[0])
	require.NoError(t, err)

	nested := 0
	require.NoError(t, Walk(rec.Dataset.Elements, func(e *dicom.Element, depth int) error {
		if depth > 0 {
			nested++
		}
		return nil
	}))
	assert.Equal(t, 4, nested)

	nested = 0
	require.NoError(t, Walk(rec.Dataset.Elements, func(e *dicom.Element, depth int) error {
		if depth > 0 {
			nested++
		}
		if VR(e) == "SQ" {
			return SkipChildren
		}
		return nil
	}))
	assert.Equal(t, 0, nested)
}

func TestClear(t *testing.T) {
	paths := writeSeries(t, synth.Options{Slices: 1})
	rec, err := Load(paths[0])
	require.NoError(t, err)

	for _, tg := range []tag.Tag{tag.PatientName, tag.Rows, tag.ReferencedStudySequence} {
		e, ok := rec.Find(tg)
		require.True(t, ok)
		require.NoError(t, Clear(e))
	}

	assert.Equal(t, "", rec.String(tag.PatientName))
	rows, _ := rec.Find(tag.Rows)
	assert.Empty(t, rows.Value.GetValue())
	seq, _ := rec.Find(tag.ReferencedStudySequence)
	assert.Empty(t, Items(seq))
}

func TestFixMetaAndSave(t *testing.T) {
	paths := writeSeries(t, synth.Options{Slices: 1})
	rec, err := Load(paths[0])
	require.NoError(t, err)

	require.NoError(t, rec.SetStrings(tag.SOPInstanceUID, "1.2.3.4"))
	require.NoError(t, rec.FixMeta())
	require.NoError(t, rec.Save(paths[0]))

	reloaded, err := Load(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "1.2.3.4", reloaded.String(tag.MediaStorageSOPInstanceUID))
	assert.Equal(t, "1.2.3.4", reloaded.String(tag.SOPInstanceUID))

	// No temporary files are left behind.
	entries, err := os.ReadDir(filepath.Dir(paths[0]))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSetPixelsRoundTrip(t *testing.T) {
	paths := writeSeries(t, synth.Options{Slices: 1, Rows: 3, Columns: 2})
	rec, err := Load(paths[0])
	require.NoError(t, err)

	g, err := rec.Geometry()
	require.NoError(t, err)

	values := []uint32{0, 1, 2, 300, 4000, 65535}
	require.NoError(t, rec.SetPixels(g, values))
	require.NoError(t, rec.Save(paths[0]))

	reloaded, err := Load(paths[0])
	require.NoError(t, err)
	px, err := reloaded.Pixels()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 300, 4000, 65535}, px)

	encapsulated, err := reloaded.IsEncapsulated()
	require.NoError(t, err)
	assert.False(t, encapsulated)

	assert.Error(t, rec.SetPixels(g, values[:5]))
	assert.Error(t, rec.SetPixels(Geometry{Rows: 3, Columns: 2, BitsAllocated: 12}, values))
}

func TestBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "IMG_0001.dcm")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	first, err := CopyToBackup(path, DefaceBackupSuffix)
	require.NoError(t, err)
	assert.Equal(t, path+DefaceBackupSuffix, first)

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	second, err := CopyToBackup(path, DefaceBackupSuffix)
	require.NoError(t, err)
	assert.Equal(t, path+DefaceBackupSuffix+".1", second)

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data), "existing backup must not be overwritten")

	moved, err := MoveToBackup(path, AnonymizeBackupSuffix)
	require.NoError(t, err)
	assert.Equal(t, path+AnonymizeBackupSuffix, moved)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
