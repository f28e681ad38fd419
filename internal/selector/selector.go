// Package selector picks the anatomical runs among the discovered folders.
package selector

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mrsinham/pseudicom/internal/align"
	"github.com/mrsinham/pseudicom/internal/locator"
)

// Select keeps the folders whose base name contains one of keywords
// (case-sensitive) and lists their records. Folder order is preserved; the
// first keyword that matches is reported on the series.
func Select(folders []locator.RunFolder, keywords []string) ([]align.Series, error) {
	var out []align.Series
	for _, f := range folders {
		kw, ok := Match(filepath.Base(f.Path), keywords)
		if !ok {
			continue
		}
		files, err := locator.ListRecords(f.Path)
		if err != nil {
			return nil, fmt.Errorf("list records of %s: %w", f.Path, err)
		}
		out = append(out, align.Series{
			Name:    f.Name,
			Dir:     f.Path,
			Keyword: kw,
			Files:   files,
		})
	}
	return out, nil
}

// Match returns the first keyword contained in name.
func Match(name string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(name, kw) {
			return kw, true
		}
	}
	return "", false
}
