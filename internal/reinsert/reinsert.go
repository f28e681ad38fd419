// Package reinsert writes the slices of a processed volume back into the
// records it was converted from.
package reinsert

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	pdicom "github.com/mrsinham/pseudicom/internal/dicom"
	"github.com/mrsinham/pseudicom/internal/errors"
	"github.com/mrsinham/pseudicom/internal/nifti"
)

// Orientation describes how record pixels map onto volume voxels.
type Orientation struct {
	// FlipSlices maps slice index i to plane Z-i instead of i-1.
	FlipSlices bool
	// Rotate maps pixel (row, col) to voxel (x=col, y=Y-1-row) instead of
	// (x=row, y=col).
	Rotate bool
}

// DefaultOrientation matches volumes produced by dcm2niix.
var DefaultOrientation = Orientation{FlipSlices: true, Rotate: true}

// PlaneSize returns the rows and columns of a slice of a volume with dims.
func (o Orientation) PlaneSize(dims [3]int) (rows, cols int) {
	if o.Rotate {
		return dims[1], dims[0]
	}
	return dims[0], dims[1]
}

// Voxel returns the volume coordinates of pixel (row, col) of the slice with
// 1-based index.
func (o Orientation) Voxel(dims [3]int, index, row, col int) (x, y, z int) {
	z = index - 1
	if o.FlipSlices {
		z = dims[2] - index
	}
	if o.Rotate {
		return col, dims[1] - 1 - row, z
	}
	return row, col, z
}

// Options configures a Reinserter.
type Options struct {
	Orientation Orientation
	Backup      bool
}

// Reinserter replaces record pixel data with volume slices.
type Reinserter struct {
	orient Orientation
	backup bool
	logger logrus.FieldLogger
}

// New creates a reinserter.
func New(opts Options, logger logrus.FieldLogger) *Reinserter {
	return &Reinserter{
		orient: opts.Orientation,
		backup: opts.Backup,
		logger: logger.WithField("component", "reinsert"),
	}
}

// RecordResult describes one rewritten record.
type RecordResult struct {
	Path   string `json:"path"`
	Slice  int    `json:"slice"`
	Backup string `json:"backup,omitempty"`
}

// Result describes a reinsertion into one series.
type Result struct {
	Volume  string         `json:"volume"`
	Records []RecordResult `json:"records"`
	Failed  []error        `json:"-"`
}

type loaded struct {
	rec   *pdicom.Record
	geom  pdicom.Geometry
	index int
}

// Reinsert writes the slices of the volume at volumePath into files. Every
// record is validated before any is written: a slice index outside the
// volume, a pixel layout that does not match the volume, or compressed pixel
// data fails the whole series. A record whose values do not fit its pixel
// type is skipped and reported in Result.Failed.
func (r *Reinserter) Reinsert(ctx context.Context, volumePath string, files []string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vol, err := nifti.Read(volumePath)
	if err != nil {
		return nil, errors.Tool(volumePath, err, "cannot read processed volume")
	}

	result := &Result{Volume: volumePath}
	log := r.logger.WithField("volume", volumePath)

	var records []loaded
	for _, f := range files {
		rec, err := pdicom.Load(f)
		if err != nil {
			perr := errors.RecordParse(f, err)
			log.WithError(perr).Warn("record skipped")
			result.Failed = append(result.Failed, perr)
			continue
		}
		l, err := r.validate(rec, vol.Dims)
		if err != nil {
			return nil, err
		}
		records = append(records, l)
	}

	for _, l := range records {
		rr, err := r.write(l, vol)
		if err != nil {
			log.WithError(err).WithField("path", l.rec.Path).Warn("record skipped")
			result.Failed = append(result.Failed, err)
			continue
		}
		result.Records = append(result.Records, rr)
	}

	log.WithFields(logrus.Fields{
		"records": len(result.Records),
		"failed":  len(result.Failed),
	}).Info("slices reinserted")
	return result, nil
}

func (r *Reinserter) validate(rec *pdicom.Record, dims [3]int) (loaded, error) {
	index, err := rec.InstanceNumber()
	if err != nil {
		return loaded{}, errors.Integrity(rec.Path, "no usable instance number: %v", err)
	}
	if index < 1 || index > dims[2] {
		return loaded{}, errors.SliceIndex(rec.Path, index, dims[2])
	}

	geom, err := rec.Geometry()
	if err != nil {
		return loaded{}, errors.Integrity(rec.Path, "no usable pixel geometry: %v", err)
	}
	if geom.SamplesPerPixel != 1 {
		return loaded{}, errors.Integrity(rec.Path, "%d samples per pixel, only single-sample images can be reinserted", geom.SamplesPerPixel)
	}
	rows, cols := r.orient.PlaneSize(dims)
	if geom.Rows != rows || geom.Columns != cols {
		return loaded{}, errors.Integrity(rec.Path, "record is %dx%d but volume slices are %dx%d",
			geom.Rows, geom.Columns, rows, cols)
	}

	encapsulated, err := rec.IsEncapsulated()
	if err != nil {
		return loaded{}, errors.Integrity(rec.Path, "unreadable pixel data: %v", err)
	}
	if encapsulated {
		return loaded{}, errors.Integrity(rec.Path, "compressed pixel data cannot be replaced")
	}
	return loaded{rec: rec, geom: geom, index: index}, nil
}

func (r *Reinserter) write(l loaded, vol *nifti.Volume) (RecordResult, error) {
	values, err := r.sliceValues(l, vol)
	if err != nil {
		return RecordResult{}, err
	}

	rr := RecordResult{Path: l.rec.Path, Slice: l.index}
	if r.backup {
		backup, err := pdicom.CopyToBackup(l.rec.Path, pdicom.DefaceBackupSuffix)
		if err != nil {
			return RecordResult{}, err
		}
		rr.Backup = backup
	}

	if err := l.rec.SetPixels(l.geom, values); err != nil {
		return RecordResult{}, errors.Integrity(l.rec.Path, "%v", err)
	}
	if err := l.rec.Save(l.rec.Path); err != nil {
		return RecordResult{}, fmt.Errorf("save %s: %w", l.rec.Path, err)
	}
	return rr, nil
}

// sliceValues extracts the oriented slice for l, truncating each voxel
// toward zero into the record's unsigned pixel type.
func (r *Reinserter) sliceValues(l loaded, vol *nifti.Volume) ([]uint32, error) {
	limit := float64(uint64(1)<<uint(l.geom.BitsAllocated) - 1)
	values := make([]uint32, 0, l.geom.Rows*l.geom.Columns)
	for row := 0; row < l.geom.Rows; row++ {
		for col := 0; col < l.geom.Columns; col++ {
			x, y, z := r.orient.Voxel(vol.Dims, l.index, row, col)
			v := vol.At(x, y, z)
			if math.IsNaN(v) || v < 0 || math.Trunc(v) > limit {
				return nil, errors.Integrity(l.rec.Path, "voxel (%d,%d,%d) value %v does not fit %d-bit pixels",
					x, y, z, v, l.geom.BitsAllocated)
			}
			values = append(values, uint32(math.Trunc(v)))
		}
	}
	return values, nil
}
