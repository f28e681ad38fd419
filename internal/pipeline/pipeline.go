// Package pipeline runs a whole de-identification pass over a root
// directory: locate runs, anonymize them, then deface the anatomical ones.
package pipeline

import (
	"context"
	"path/filepath"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mrsinham/pseudicom/internal/align"
	"github.com/mrsinham/pseudicom/internal/anonymizer"
	"github.com/mrsinham/pseudicom/internal/errors"
	"github.com/mrsinham/pseudicom/internal/locator"
	"github.com/mrsinham/pseudicom/internal/preview"
	"github.com/mrsinham/pseudicom/internal/reinsert"
	"github.com/mrsinham/pseudicom/internal/selector"
	"github.com/mrsinham/pseudicom/internal/tools"
)

// PreviewFile is the name of the QC thumbnail written next to each volume.
const PreviewFile = "qc.png"

// Options configures a Pipeline.
type Options struct {
	Root       string
	RunPattern *regexp.Regexp
	Keywords   []string
	WorkDir    string
	Workers    int
	Deface     bool
	Preview    bool
	Policy     align.OffsetPolicy
}

// Deps are the components a Pipeline drives. Tools may be nil when
// defacing is disabled.
type Deps struct {
	Locator    *locator.Locator
	Anonymizer *anonymizer.Anonymizer
	Reinserter *reinsert.Reinserter
	Tools      *tools.Toolchain
}

// Pipeline runs the de-identification steps in order.
type Pipeline struct {
	opts   Options
	deps   Deps
	logger logrus.FieldLogger
	now    func() time.Time
}

// New creates a pipeline.
func New(opts Options, deps Deps, logger logrus.FieldLogger) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Policy == nil {
		opts.Policy = align.DefaultPolicy
	}
	return &Pipeline{
		opts:   opts,
		deps:   deps,
		logger: logger.WithField("component", "pipeline"),
		now:    time.Now,
	}
}

// Run executes the pipeline and writes the report to the work directory.
// The returned error is set when the run as a whole failed: the root could
// not be read or ctx was cancelled. Failures of single records or series are
// listed in Report.Skipped instead.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := newReport(p.opts.Root, p.now())
	p.logger.WithField("run_id", report.RunID.String()).WithField("root", p.opts.Root).Info("run started")

	err := p.run(ctx, report)

	report.Finished = p.now()
	if p.opts.WorkDir != "" {
		if path, werr := report.Write(p.opts.WorkDir); werr != nil {
			p.logger.WithError(werr).Error("report not written")
		} else {
			p.logger.WithField("path", path).Debug("report written")
		}
	}
	report.log(p.logger)
	return report, err
}

func (p *Pipeline) run(ctx context.Context, report *Report) error {
	runs, err := p.deps.Locator.FindRuns(ctx, p.opts.Root, p.opts.RunPattern)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		p.logger.WithField("pattern", p.opts.RunPattern.String()).Warn("no run folders found")
		return nil
	}

	if err := p.anonymize(ctx, runs, report); err != nil {
		return err
	}
	if !p.opts.Deface {
		return nil
	}
	return p.deface(ctx, runs, report)
}

// anonymize processes folders in parallel. Cancellation stops new folders
// from starting; a folder in progress is finished.
func (p *Pipeline) anonymize(ctx context.Context, runs []locator.RunFolder, report *Report) error {
	results := make([]*anonymizer.FolderResult, len(runs))

	var g errgroup.Group
	g.SetLimit(p.opts.Workers)
	for i, run := range runs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res, err := p.deps.Anonymizer.AnonymizeFolder(run.Path)
			if err != nil {
				report.skip(run.Path, err)
				return nil
			}
			for _, ferr := range res.Failed {
				report.skip(run.Path, ferr)
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		if res != nil {
			report.Folders = append(report.Folders, res)
		}
	}
	return ctx.Err()
}

func (p *Pipeline) deface(ctx context.Context, runs []locator.RunFolder, report *Report) error {
	selected, err := selector.Select(runs, p.opts.Keywords)
	if err != nil {
		report.skip(p.opts.Root, err)
		return nil
	}
	for _, s := range selected {
		report.Selected = append(report.Selected, s.Dir)
	}
	if len(selected) == 0 {
		p.logger.Info("no anatomical runs selected, nothing to deface")
		return nil
	}
	if p.deps.Tools == nil {
		report.skip(p.opts.Root, errors.Tool("", nil, "defacing requested without a toolchain"))
		return nil
	}

	converted, err := p.deps.Tools.Converter.Convert(ctx, selected)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		report.skip(p.opts.Root, err)
		return nil
	}

	pairs, err := align.Filter(selected, converted, p.opts.Policy)
	if err != nil {
		p.logger.WithError(err).Error("converted volumes do not line up with the selected runs, defacing skipped")
		report.skip(p.opts.Root, err)
		return nil
	}
	if dropped := len(selected) - len(pairs); dropped > 0 {
		p.logger.WithField("dropped", dropped).Warn("some selected runs have no volume and are not defaced")
	}

	var g errgroup.Group
	g.SetLimit(p.opts.Workers)
	for _, pair := range pairs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res, err := p.defaceSeries(ctx, pair, report)
			if err != nil {
				report.skip(pair.Series.Dir, err)
				return nil
			}
			report.addDefaced(res)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

func (p *Pipeline) defaceSeries(ctx context.Context, pair align.Pair, report *Report) (SeriesResult, error) {
	log := p.logger.WithField("series", pair.Series.Dir)
	res := SeriesResult{Series: pair.Series.Dir, Volume: pair.Volume}

	mask, err := p.deps.Tools.Masker.Mask(ctx, pair.Volume)
	if err != nil {
		return res, err
	}
	res.Mask = mask

	defaced, err := p.deps.Tools.Defacer.Deface(ctx, pair.Volume, mask)
	if err != nil {
		return res, err
	}
	res.Defaced = defaced

	out, err := p.deps.Reinserter.Reinsert(ctx, defaced, pair.Series.Files)
	if err != nil {
		return res, err
	}
	for _, ferr := range out.Failed {
		report.skip(pair.Series.Dir, ferr)
	}
	res.Records = len(out.Records)

	if p.opts.Preview {
		path := filepath.Join(filepath.Dir(pair.Volume), PreviewFile)
		if err := preview.FromFile(path, defaced, pair.Series.Name, preview.DefaultWidth); err != nil {
			log.WithError(err).Warn("preview not written")
		} else {
			res.Preview = path
		}
	}

	log.WithField("records", res.Records).Info("series defaced")
	return res, nil
}
