package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/mrsinham/pseudicom/internal/anonymizer"
	"github.com/mrsinham/pseudicom/internal/config"
	pdicom "github.com/mrsinham/pseudicom/internal/dicom"
	"github.com/mrsinham/pseudicom/internal/dicom/synth"
	"github.com/mrsinham/pseudicom/internal/errors"
	"github.com/mrsinham/pseudicom/internal/locator"
	"github.com/mrsinham/pseudicom/internal/logging"
	"github.com/mrsinham/pseudicom/internal/reinsert"
	"github.com/mrsinham/pseudicom/internal/tools"
	"github.com/mrsinham/pseudicom/internal/util"
)

const (
	featureRows = 6
	featureCols = 5
	faceRows    = 2
)

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

// scenario holds state for a single scenario.
type scenario struct {
	tmpDir    string
	root      string
	workDir   string
	clear     []string
	dates     string
	deface    bool
	preview   bool
	extraVol  bool
	originals map[string]map[int][]int

	report *Report
	err    error
}

func InitializeScenario(sc *godog.ScenarioContext) {
	s := &scenario{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		tmpDir, err := os.MkdirTemp("", "pseudicom-e2e-*")
		if err != nil {
			return ctx, err
		}
		*s = scenario{
			tmpDir:    tmpDir,
			workDir:   filepath.Join(tmpDir, "work"),
			deface:    true,
			originals: make(map[string]map[int][]int),
		}
		return ctx, nil
	})

	sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		if s.tmpDir != "" {
			_ = os.RemoveAll(s.tmpDir)
		}
		return ctx, nil
	})

	sc.Step(`^a subject directory "([^"]*)" acquired on "(\d{8})" with runs:$`, s.aSubjectDirectoryWithRuns)
	sc.Step(`^the tags "([^"]*)" are cleared$`, s.theTagsAreCleared)
	sc.Step(`^dates are replaced with "([^"]*)"$`, s.datesAreReplacedWith)
	sc.Step(`^defacing is disabled$`, s.defacingIsDisabled)
	sc.Step(`^previews are enabled$`, s.previewsAreEnabled)
	sc.Step(`^the converter returns an extra volume$`, s.theConverterReturnsAnExtraVolume)
	sc.Step(`^"([^"]*)" contains an unreadable record "([^"]*)"$`, s.containsAnUnreadableRecord)
	sc.Step(`^the subject directory has been removed$`, s.theSubjectDirectoryHasBeenRemoved)
	sc.Step(`^the pipeline runs$`, s.thePipelineRuns)
	sc.Step(`^the run succeeds$`, s.theRunSucceeds)
	sc.Step(`^the run fails with a "([^"]*)" error$`, s.theRunFailsWith)
	sc.Step(`^every record in "([^"]*)" has an empty "([^"]*)"$`, s.everyRecordHasAnEmpty)
	sc.Step(`^every record in "([^"]*)" has "([^"]*)" equal to "([^"]*)"$`, s.everyRecordHasEqualTo)
	sc.Step(`^every record in "([^"]*)" is named with "([^"]*)"$`, s.everyRecordIsNamedWith)
	sc.Step(`^every record in "([^"]*)" has an anonymization backup$`, s.everyRecordHasABackup)
	sc.Step(`^only "([^"]*)" was defaced$`, s.onlyWasDefaced)
	sc.Step(`^nothing was defaced$`, s.nothingWasDefaced)
	sc.Step(`^the face of every record in "([^"]*)" is blank$`, s.theFaceIsBlank)
	sc.Step(`^the pixels of "([^"]*)" are unchanged$`, s.thePixelsAreUnchanged)
	sc.Step(`^the report lists (\d+) folders and (\d+) skipped units$`, s.theReportLists)
	sc.Step(`^the report lists a skipped "([^"]*)" unit for "([^"]*)"$`, s.theReportListsASkippedUnit)
	sc.Step(`^a preview was written for "([^"]*)"$`, s.aPreviewWasWrittenFor)
}

func (s *scenario) runDir(run string) string {
	return filepath.Join(s.root, run)
}

func (s *scenario) aSubjectDirectoryWithRuns(subject, date string, table *godog.Table) error {
	s.root = filepath.Join(s.tmpDir, subject)
	for _, row := range table.Rows[1:] {
		run := row.Cells[0].Value
		slices, err := strconv.Atoi(row.Cells[1].Value)
		if err != nil {
			return fmt.Errorf("slices for %s: %w", run, err)
		}
		if _, err := synth.WriteSeries(synth.Options{
			Dir:     s.runDir(run),
			Slices:  slices,
			Rows:    featureRows,
			Columns: featureCols,
			Date:    date,
			Vendors: synth.AllVendors(),
		}); err != nil {
			return err
		}
		px, err := seriesPixels(s.runDir(run))
		if err != nil {
			return err
		}
		s.originals[run] = px
	}
	return nil
}

func (s *scenario) theTagsAreCleared(list string) error {
	s.clear = strings.Split(list, ",")
	return nil
}

func (s *scenario) datesAreReplacedWith(date string) error {
	s.dates = date
	return nil
}

func (s *scenario) defacingIsDisabled() error {
	s.deface = false
	return nil
}

func (s *scenario) previewsAreEnabled() error {
	s.preview = true
	return nil
}

func (s *scenario) theConverterReturnsAnExtraVolume() error {
	s.extraVol = true
	return nil
}

func (s *scenario) containsAnUnreadableRecord(run, name string) error {
	return os.WriteFile(filepath.Join(s.runDir(run), name), []byte("not an image"), 0o644)
}

func (s *scenario) theSubjectDirectoryHasBeenRemoved() error {
	return os.RemoveAll(s.root)
}

func (s *scenario) thePipelineRuns() error {
	clearTags, err := util.ParseTags(s.clear)
	if err != nil {
		return err
	}
	logger := logging.Discard()
	backup := true

	deps := Deps{
		Locator: locator.New(logger),
		Anonymizer: anonymizer.New(anonymizer.Options{
			ClearTags: clearTags,
			Backup:    backup,
			Dates:     anonymizer.DatePolicy{Enabled: s.dates != "", Literal: s.dates},
		}, logger),
		Reinserter: reinsert.New(reinsert.Options{
			Orientation: reinsert.DefaultOrientation,
			Backup:      backup,
		}, logger),
		Tools: &tools.Toolchain{
			Converter: &fakeConverter{workDir: s.workDir, extra: s.extraVol},
			Masker:    fakeMasker{},
			Defacer:   fakeDefacer{},
		},
	}

	p := New(Options{
		Root:       s.root,
		RunPattern: config.Default().RunRegexp(),
		Keywords:   config.DefaultAnatomyKeywords,
		WorkDir:    s.workDir,
		Workers:    2,
		Deface:     s.deface,
		Preview:    s.preview,
	}, deps, logger)

	s.report, s.err = p.Run(context.Background())
	return nil
}

func (s *scenario) theRunSucceeds() error {
	if s.err != nil {
		return fmt.Errorf("run failed: %w", s.err)
	}
	if _, err := os.Stat(filepath.Join(s.workDir, ReportFile)); err != nil {
		return fmt.Errorf("report not written: %w", err)
	}
	return nil
}

func (s *scenario) theRunFailsWith(kind string) error {
	if s.err == nil {
		return fmt.Errorf("run succeeded, expected a %s error", kind)
	}
	if got := errors.KindOf(s.err); string(got) != kind {
		return fmt.Errorf("error kind = %q, want %q (%v)", got, kind, s.err)
	}
	return nil
}

func (s *scenario) records(run string) ([]*pdicom.Record, error) {
	files, err := locator.ListRecords(s.runDir(run))
	if err != nil {
		return nil, err
	}
	var out []*pdicom.Record
	for _, f := range files {
		rec, err := pdicom.Load(f)
		if err != nil {
			if filepath.Base(f) == "broken.dcm" {
				continue
			}
			return nil, err
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no records in %s", run)
	}
	return out, nil
}

func (s *scenario) everyRecordHasEqualTo(run, keyword, want string) error {
	t, err := util.ParseTag(keyword)
	if err != nil {
		return err
	}
	recs, err := s.records(run)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if got := rec.String(t); got != want {
			return fmt.Errorf("%s: %s = %q, want %q", rec.Path, keyword, got, want)
		}
	}
	return nil
}

func (s *scenario) everyRecordHasAnEmpty(run, keyword string) error {
	return s.everyRecordHasEqualTo(run, keyword, "")
}

func (s *scenario) everyRecordIsNamedWith(run, date string) error {
	recs, err := s.records(run)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if !strings.Contains(filepath.Base(rec.Path), date) {
			return fmt.Errorf("%s is not named with %s", rec.Path, date)
		}
	}
	return nil
}

func (s *scenario) everyRecordHasABackup(run string) error {
	backups, err := filepath.Glob(filepath.Join(s.runDir(run), "*"+pdicom.AnonymizeBackupSuffix))
	if err != nil {
		return err
	}
	if want := len(s.originals[run]); len(backups) != want {
		return fmt.Errorf("%d anonymization backups in %s, want %d", len(backups), run, want)
	}
	return nil
}

func (s *scenario) onlyWasDefaced(run string) error {
	if len(s.report.Defaced) != 1 {
		return fmt.Errorf("%d series defaced, want 1", len(s.report.Defaced))
	}
	if got := s.report.Defaced[0].Series; got != s.runDir(run) {
		return fmt.Errorf("defaced %s, want %s", got, s.runDir(run))
	}
	deface, err := filepath.Glob(filepath.Join(s.runDir(run), "*"+pdicom.DefaceBackupSuffix))
	if err != nil {
		return err
	}
	if len(deface) != len(s.originals[run]) {
		return fmt.Errorf("%d deface backups in %s, want %d", len(deface), run, len(s.originals[run]))
	}
	return nil
}

func (s *scenario) nothingWasDefaced() error {
	if len(s.report.Defaced) != 0 {
		return fmt.Errorf("%d series defaced, want none", len(s.report.Defaced))
	}
	return nil
}

func (s *scenario) theFaceIsBlank(run string) error {
	got, err := seriesPixels(s.runDir(run))
	if err != nil {
		return err
	}
	for instance, px := range got {
		orig := s.originals[run][instance]
		for i := range px {
			row := i / featureCols
			want := orig[i]
			if row < faceRows {
				want = 0
			}
			if px[i] != want {
				return fmt.Errorf("slice %d pixel %d = %d, want %d", instance, i, px[i], want)
			}
		}
	}
	return nil
}

func (s *scenario) thePixelsAreUnchanged(run string) error {
	got, err := seriesPixels(s.runDir(run))
	if err != nil {
		return err
	}
	if !reflect.DeepEqual(got, s.originals[run]) {
		return fmt.Errorf("pixels of %s changed", run)
	}
	return nil
}

func (s *scenario) theReportLists(folders, skipped int) error {
	if len(s.report.Folders) != folders {
		return fmt.Errorf("report lists %d folders, want %d", len(s.report.Folders), folders)
	}
	if len(s.report.Skipped) != skipped {
		return fmt.Errorf("report lists %d skipped units, want %d: %+v", len(s.report.Skipped), skipped, s.report.Skipped)
	}
	return nil
}

func (s *scenario) theReportListsASkippedUnit(kind, name string) error {
	for _, sk := range s.report.Skipped {
		if string(sk.Kind) == kind && filepath.Base(sk.Path) == name {
			return nil
		}
	}
	return fmt.Errorf("no skipped %s unit for %s in %+v", kind, name, s.report.Skipped)
}

func (s *scenario) aPreviewWasWrittenFor(run string) error {
	for _, d := range s.report.Defaced {
		if d.Series != s.runDir(run) {
			continue
		}
		if d.Preview == "" {
			return fmt.Errorf("no preview recorded for %s", run)
		}
		_, err := os.Stat(d.Preview)
		return err
	}
	return fmt.Errorf("%s was not defaced", run)
}

// seriesPixels returns the pixels of every record in dir keyed by instance
// number.
func seriesPixels(dir string) (map[int][]int, error) {
	files, err := locator.ListRecords(dir)
	if err != nil {
		return nil, err
	}
	out := make(map[int][]int)
	for _, f := range files {
		rec, err := pdicom.Load(f)
		if err != nil {
			continue
		}
		n, err := rec.InstanceNumber()
		if err != nil {
			return nil, err
		}
		px, err := rec.Pixels()
		if err != nil {
			return nil, err
		}
		out[n] = px
	}
	return out, nil
}
