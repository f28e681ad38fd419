// Package locator discovers run folders below a root directory and lists the
// record files they contain.
package locator

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mrsinham/pseudicom/internal/errors"
)

// RecordExtensions are the file name endings recognised as image records.
var RecordExtensions = []string{"dcm", "IMA"}

// RunFolder is a directory holding one acquisition run.
type RunFolder struct {
	Path string
	Name string
}

// Locator walks a root directory looking for run folders.
type Locator struct {
	logger logrus.FieldLogger
}

// New creates a locator.
func New(logger logrus.FieldLogger) *Locator {
	return &Locator{logger: logger.WithField("component", "locator")}
}

// FindRuns returns every directory at any depth below root whose name
// matches pattern anywhere in it, sorted by full path. Hidden directories are
// not descended into. Unreadable subdirectories are logged and skipped; a
// missing or unreadable root is a discovery error.
func (l *Locator) FindRuns(ctx context.Context, root string, pattern *regexp.Regexp) ([]RunFolder, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Discovery(root, err, "cannot access root")
	}
	if !info.IsDir() {
		return nil, errors.Discovery(root, nil, "root is not a directory")
	}
	if _, err := os.ReadDir(root); err != nil {
		return nil, errors.Discovery(root, err, "cannot read root")
	}

	var runs []RunFolder
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			l.logger.WithError(err).WithField("path", path).Warn("skipping unreadable directory")
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() || path == root {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if pattern.MatchString(d.Name()) {
			runs = append(runs, RunFolder{Path: path, Name: d.Name()})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Path < runs[j].Path })
	l.logger.WithField("root", root).WithField("runs", len(runs)).Debug("run discovery finished")
	return runs, nil
}

// IsRecord reports whether name carries a record extension.
func IsRecord(name string) bool {
	for _, ext := range RecordExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// ListRecords returns the record files directly inside dir, sorted by name.
// Backups and temporary files never match.
func ListRecords(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") || !IsRecord(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
