package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mrsinham/pseudicom/internal/anonymizer"
	"github.com/mrsinham/pseudicom/internal/errors"
)

// ReportFile is the name of the report written to the work directory.
const ReportFile = "report.json"

// Skip is a unit of work left out of the run.
type Skip struct {
	Path   string      `json:"path"`
	Kind   errors.Kind `json:"kind,omitempty"`
	Scope  string      `json:"scope"`
	Reason string      `json:"reason"`
}

// SeriesResult describes one defaced series.
type SeriesResult struct {
	Series  string `json:"series"`
	Volume  string `json:"volume"`
	Mask    string `json:"mask"`
	Defaced string `json:"defaced"`
	Preview string `json:"preview,omitempty"`
	Records int    `json:"records"`
}

// Report summarises a run.
type Report struct {
	RunID    uuid.UUID                  `json:"run_id"`
	Root     string                     `json:"root"`
	Started  time.Time                  `json:"started"`
	Finished time.Time                  `json:"finished"`
	Folders  []*anonymizer.FolderResult `json:"folders"`
	Selected []string                   `json:"selected"`
	Defaced  []SeriesResult             `json:"defaced"`
	Skipped  []Skip                     `json:"skipped"`

	mu sync.Mutex
}

func newReport(root string, now time.Time) *Report {
	return &Report{
		RunID:   uuid.New(),
		Root:    root,
		Started: now,
	}
}

// skip records err against path. The kind, scope and path of a classified
// error take precedence.
func (r *Report) skip(path string, err error) {
	s := Skip{Path: path, Scope: "series", Reason: err.Error()}
	var perr *errors.Error
	if errors.As(err, &perr) {
		s.Kind = perr.Kind
		s.Scope = perr.Kind.Scope()
		if perr.Path != "" {
			s.Path = perr.Path
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.Skipped = append(r.Skipped, s)
}

func (r *Report) addDefaced(s SeriesResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Defaced = append(r.Defaced, s)
}

// Records returns how many records were anonymized.
func (r *Report) Records() int {
	n := 0
	for _, f := range r.Folders {
		if f != nil {
			n += len(f.Files)
		}
	}
	return n
}

// Write stores the report as indented JSON in dir.
func (r *Report) Write(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	path := filepath.Join(dir, ReportFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

func (r *Report) log(logger logrus.FieldLogger) {
	entry := logger.WithFields(logrus.Fields{
		"run_id":   r.RunID.String(),
		"folders":  len(r.Folders),
		"records":  r.Records(),
		"selected": len(r.Selected),
		"defaced":  len(r.Defaced),
		"skipped":  len(r.Skipped),
		"duration": r.Finished.Sub(r.Started).Round(time.Millisecond).String(),
	})
	if len(r.Skipped) > 0 {
		entry.Warn("run finished with skipped units")
		for _, s := range r.Skipped {
			logger.WithFields(logrus.Fields{"path": s.Path, "kind": s.Kind, "scope": s.Scope}).Warn(s.Reason)
		}
		return
	}
	entry.Info("run finished")
}
