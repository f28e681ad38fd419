package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrsinham/pseudicom/internal/align"
	pdicom "github.com/mrsinham/pseudicom/internal/dicom"
	"github.com/mrsinham/pseudicom/internal/nifti"
	"github.com/mrsinham/pseudicom/internal/reinsert"
	"github.com/mrsinham/pseudicom/internal/tools"
)

// fakeConverter builds volumes straight from the records, laid out as
// dcm2niix would.
type fakeConverter struct {
	workDir string
	// extra appends a volume with no matching series.
	extra bool
}

func (f *fakeConverter) Convert(ctx context.Context, series []align.Series) ([]align.Converted, error) {
	out := make([]align.Converted, 0, len(series)+1)
	for i, s := range series {
		dir := filepath.Join(f.workDir, fmt.Sprintf("%03d_%s", i+1, s.Name))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		vol, err := volumeFromRecords(s.Files)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, s.Name+".nii")
		if err := nifti.Write(path, vol); err != nil {
			return nil, err
		}
		out = append(out, align.Volume(path))
	}
	if f.extra {
		out = append(out, align.Volume(filepath.Join(f.workDir, "localizer.nii")))
	}
	return out, nil
}

func volumeFromRecords(files []string) (*nifti.Volume, error) {
	var recs []*pdicom.Record
	for _, f := range files {
		rec, err := pdicom.Load(f)
		if err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("no readable records")
	}
	g, err := recs[0].Geometry()
	if err != nil {
		return nil, err
	}

	o := reinsert.DefaultOrientation
	dims := [3]int{g.Columns, g.Rows, len(recs)}
	vol := nifti.New(dims[0], dims[1], dims[2])
	for _, rec := range recs {
		index, err := rec.InstanceNumber()
		if err != nil {
			return nil, err
		}
		px, err := rec.Pixels()
		if err != nil {
			return nil, err
		}
		for r := 0; r < g.Rows; r++ {
			for c := 0; c < g.Columns; c++ {
				x, y, z := o.Voxel(dims, index, r, c)
				vol.Set(x, y, z, float64(px[r*g.Columns+c]))
			}
		}
	}
	return vol, nil
}

// fakeMasker marks every voxel as brain.
type fakeMasker struct{}

func (fakeMasker) Mask(_ context.Context, volume string) (string, error) {
	vol, err := nifti.Read(volume)
	if err != nil {
		return "", err
	}
	for i := range vol.Data {
		vol.Data[i] = 1
	}
	mask := tools.Stem(volume) + "_brain_mask.nii.gz"
	return mask, nifti.Write(mask, vol)
}

// fakeDefacer blanks the top faceRows rows of every slice, which end up in
// the highest y planes of the volume.
type fakeDefacer struct{}

func (fakeDefacer) Deface(_ context.Context, volume, _ string) (string, error) {
	vol, err := nifti.Read(volume)
	if err != nil {
		return "", err
	}
	for z := 0; z < vol.Dims[2]; z++ {
		for y := vol.Dims[1] - faceRows; y < vol.Dims[1]; y++ {
			for x := 0; x < vol.Dims[0]; x++ {
				vol.Set(x, y, z, 0)
			}
		}
	}
	out := tools.Stem(volume) + "_defaced.nii.gz"
	return out, nifti.Write(out, vol)
}
