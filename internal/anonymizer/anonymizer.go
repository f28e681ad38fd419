// Package anonymizer removes identifying content from image records: private
// elements, a configurable clear-list of tags, and every occurrence of the
// record's own dates.
package anonymizer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	pdicom "github.com/mrsinham/pseudicom/internal/dicom"
	"github.com/mrsinham/pseudicom/internal/errors"
	"github.com/mrsinham/pseudicom/internal/locator"
)

// DateFormat is the layout of DICOM DA values.
const DateFormat = "20060102"

// DatePolicy decides what original dates are replaced with.
type DatePolicy struct {
	Enabled bool
	// Literal is used verbatim when set; otherwise the current date is used.
	Literal string
}

// Replacement returns the replacement date for an invocation starting at now,
// or "" when replacement is disabled.
func (p DatePolicy) Replacement(now time.Time) string {
	if !p.Enabled {
		return ""
	}
	if p.Literal != "" {
		return p.Literal
	}
	return now.Format(DateFormat)
}

// Options configures an Anonymizer.
type Options struct {
	ClearTags []tag.Tag
	Backup    bool
	Dates     DatePolicy
	// Now defaults to time.Now.
	Now func() time.Time
}

// Anonymizer rewrites records in place.
type Anonymizer struct {
	clear  map[tag.Tag]bool
	backup bool
	dates  DatePolicy
	now    func() time.Time
	rename func(oldpath, newpath string) error
	logger logrus.FieldLogger
}

// New creates an anonymizer.
func New(opts Options, logger logrus.FieldLogger) *Anonymizer {
	clear := make(map[tag.Tag]bool, len(opts.ClearTags))
	for _, t := range opts.ClearTags {
		clear[t] = true
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Anonymizer{
		clear:  clear,
		backup: opts.Backup,
		dates:  opts.Dates,
		now:    now,
		rename: os.Rename,
		logger: logger.WithField("component", "anonymizer"),
	}
}

// Stats counts what was changed in one record.
type Stats struct {
	PrivateRemoved int `json:"private_removed"`
	Cleared        int `json:"cleared"`
	DatesReplaced  int `json:"dates_replaced"`
}

// FileResult describes one rewritten record.
type FileResult struct {
	Source string `json:"source"`
	Output string `json:"output"`
	Backup string `json:"backup,omitempty"`
	Stats
}

// FolderResult describes one anonymized run folder.
type FolderResult struct {
	Dir             string       `json:"dir"`
	ReplacementDate string       `json:"replacement_date,omitempty"`
	Files           []FileResult `json:"files"`
	Failed          []error      `json:"-"`
}

// AnonymizeFolder rewrites every record directly inside dir. A record that
// cannot be read is left untouched and reported in Failed; the others are
// still processed. The returned error is set only when dir cannot be listed.
func (a *Anonymizer) AnonymizeFolder(dir string) (*FolderResult, error) {
	files, err := locator.ListRecords(dir)
	if err != nil {
		return nil, fmt.Errorf("list records in %s: %w", dir, err)
	}

	replacement := a.dates.Replacement(a.now())
	result := &FolderResult{Dir: dir, ReplacementDate: replacement}
	log := a.logger.WithField("dir", dir)

	for _, f := range files {
		fr, err := a.AnonymizeFile(f, replacement)
		if err != nil {
			log.WithError(err).WithField("path", f).Warn("record skipped")
			result.Failed = append(result.Failed, err)
			continue
		}
		result.Files = append(result.Files, fr)
	}

	log.WithFields(logrus.Fields{
		"records": len(result.Files),
		"failed":  len(result.Failed),
	}).Info("folder anonymized")
	return result, nil
}

// AnonymizeFile rewrites one record. replacement is the date substituted for
// original dates ("" disables substitution). The rewritten record may get a
// new name when its file name contains one of its dates.
func (a *Anonymizer) AnonymizeFile(path, replacement string) (FileResult, error) {
	rec, err := pdicom.Load(path)
	if err != nil {
		return FileResult{}, errors.RecordParse(path, err)
	}

	stats, dates, err := a.AnonymizeRecord(rec, replacement)
	if err != nil {
		return FileResult{}, fmt.Errorf("anonymize %s: %w", path, err)
	}

	target := path
	if replacement != "" {
		target = filepath.Join(filepath.Dir(path), replaceFirstDate(filepath.Base(path), dates, replacement))
		if target != path {
			if _, err := os.Lstat(target); err == nil {
				a.logger.WithField("path", path).WithField("target", target).
					Warn("renamed record would overwrite an existing file, keeping original name")
				target = path
			}
		}
	}

	tmp, err := rec.WriteTemp(filepath.Dir(path))
	if err != nil {
		return FileResult{}, fmt.Errorf("anonymize %s: %w", path, err)
	}

	result := FileResult{Source: path, Output: target, Stats: stats}
	if target == path {
		err = a.replaceInPlace(tmp, path, &result)
	} else {
		err = a.replaceRenamed(tmp, path, target, &result)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return FileResult{}, err
	}
	return result, nil
}

// replaceInPlace renames tmp over path. The backup is a copy taken before
// the rename, so path holds either the original or the anonymized record.
func (a *Anonymizer) replaceInPlace(tmp, path string, result *FileResult) error {
	if a.backup {
		backup, err := pdicom.CopyToBackup(path, pdicom.AnonymizeBackupSuffix)
		if err != nil {
			return err
		}
		result.Backup = backup
	}
	if err := a.rename(tmp, path); err != nil {
		if result.Backup != "" {
			_ = os.Remove(result.Backup)
		}
		return fmt.Errorf("place anonymized record %s: %w", path, err)
	}
	return nil
}

// replaceRenamed places tmp at target and only then retires path.
func (a *Anonymizer) replaceRenamed(tmp, path, target string, result *FileResult) error {
	if err := a.rename(tmp, target); err != nil {
		return fmt.Errorf("place anonymized record %s: %w", target, err)
	}

	if a.backup {
		backup, err := pdicom.MoveToBackup(path, pdicom.AnonymizeBackupSuffix)
		if err != nil {
			_ = os.Remove(target)
			return err
		}
		result.Backup = backup
		return nil
	}
	if err := os.Remove(path); err != nil {
		_ = os.Remove(target)
		return fmt.Errorf("remove original %s: %w", path, err)
	}
	return nil
}

// AnonymizeRecord applies the rules to rec in memory and returns the date
// set it collected:
//
//  1. private elements are removed at every depth;
//  2. the date set is every non-empty DA value and the date part of every
//     DT value, top level or nested, collected before anything is changed;
//  3. elements on the clear-list are emptied at every depth;
//  4. when replacement is set, top-level DA, DT and UI elements and every
//     textual element nested in a sequence have the first date of the set
//     they contain replaced, all occurrences, by replacement;
//  5. the file meta information is made consistent with the dataset.
func (a *Anonymizer) AnonymizeRecord(rec *pdicom.Record, replacement string) (Stats, []string, error) {
	var stats Stats

	removed, err := rec.StripPrivate()
	if err != nil {
		return stats, nil, err
	}
	stats.PrivateRemoved = removed

	dates := CollectDates(rec.Dataset.Elements)

	err = pdicom.Walk(rec.Dataset.Elements, func(e *dicom.Element, depth int) error {
		if a.clear[e.Tag] {
			stats.Cleared++
			if err := pdicom.Clear(e); err != nil {
				return err
			}
			return pdicom.SkipChildren
		}
		if replacement == "" || !dateCarrier(e, depth) {
			return nil
		}
		changed, err := replaceInElement(e, dates, replacement)
		if err != nil {
			return err
		}
		if changed {
			stats.DatesReplaced++
		}
		return nil
	})
	if err != nil {
		return stats, dates, err
	}

	if err := rec.FixMeta(); err != nil {
		return stats, dates, err
	}
	return stats, dates, nil
}

// CollectDates returns the distinct dates found at any depth, in dataset
// order: non-empty DA values and the YYYYMMDD prefix of DT values.
func CollectDates(elems []*dicom.Element) []string {
	var dates []string
	seen := make(map[string]bool)
	_ = pdicom.Walk(elems, func(e *dicom.Element, _ int) error {
		vr := pdicom.VR(e)
		if vr != "DA" && vr != "DT" {
			return nil
		}
		for _, v := range pdicom.Strings(e) {
			v = strings.TrimSpace(v)
			if vr == "DT" {
				v = datePart(v)
			}
			if v != "" && !seen[v] {
				seen[v] = true
				dates = append(dates, v)
			}
		}
		return nil
	})
	return dates
}

// datePart returns the YYYYMMDD prefix of a DT value, or "" when it has
// none.
func datePart(dt string) string {
	if len(dt) < len(DateFormat) {
		return ""
	}
	d := dt[:len(DateFormat)]
	for _, c := range d {
		if c < '0' || c > '9' {
			return ""
		}
	}
	return d
}

// dateCarrier reports whether e is subject to date replacement: DA, DT and
// UI at the top level, any textual element inside a sequence.
func dateCarrier(e *dicom.Element, depth int) bool {
	if depth > 0 {
		return e.Value != nil && e.Value.ValueType() == dicom.Strings
	}
	switch pdicom.VR(e) {
	case "DA", "DT", "UI":
		return true
	}
	return false
}

// replaceInElement replaces every occurrence of the first date of dates
// found in e's values. It reports whether e changed.
func replaceInElement(e *dicom.Element, dates []string, replacement string) (bool, error) {
	values := pdicom.Strings(e)
	if len(values) == 0 {
		return false, nil
	}
	for _, date := range dates {
		if !containsAny(values, date) {
			continue
		}
		if date == replacement {
			return false, nil
		}
		out := make([]string, len(values))
		for i, v := range values {
			out[i] = strings.ReplaceAll(v, date, replacement)
		}
		return true, pdicom.SetStrings(e, out)
	}
	return false, nil
}

func containsAny(values []string, s string) bool {
	for _, v := range values {
		if strings.Contains(v, s) {
			return true
		}
	}
	return false
}

// replaceFirstDate replaces all occurrences of the first date of dates
// contained in name.
func replaceFirstDate(name string, dates []string, replacement string) string {
	for _, date := range dates {
		if strings.Contains(name, date) {
			return strings.ReplaceAll(name, date, replacement)
		}
	}
	return name
}
