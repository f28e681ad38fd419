package providers

import (
	"github.com/samber/do/v2"
	"github.com/sirupsen/logrus"

	"github.com/mrsinham/pseudicom/internal/align"
	"github.com/mrsinham/pseudicom/internal/anonymizer"
	"github.com/mrsinham/pseudicom/internal/config"
	"github.com/mrsinham/pseudicom/internal/locator"
	"github.com/mrsinham/pseudicom/internal/pipeline"
	"github.com/mrsinham/pseudicom/internal/reinsert"
	"github.com/mrsinham/pseudicom/internal/tools"
)

// ProvideToolchain provides the external tools. Every executable must be
// resolvable.
func ProvideToolchain(i do.Injector) (*tools.Toolchain, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logrus.Logger](i)

	return tools.NewToolchain(tools.Paths{
		Dcm2niix:   cfg.Tools.Dcm2niix,
		Bet:        cfg.Tools.Bet,
		Quickshear: cfg.Tools.Quickshear,
	}, cfg.WorkDir, log)
}

// ProvidePipeline provides the pipeline. The toolchain is only resolved
// when defacing is enabled.
func ProvidePipeline(i do.Injector) (*pipeline.Pipeline, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logrus.Logger](i)

	deps := pipeline.Deps{
		Locator:    do.MustInvoke[*locator.Locator](i),
		Anonymizer: do.MustInvoke[*anonymizer.Anonymizer](i),
		Reinserter: do.MustInvoke[*reinsert.Reinserter](i),
	}
	if cfg.Deface {
		tc, err := do.Invoke[*tools.Toolchain](i)
		if err != nil {
			return nil, err
		}
		deps.Tools = tc
	}

	return pipeline.New(pipeline.Options{
		Root:       cfg.Root,
		RunPattern: cfg.RunRegexp(),
		Keywords:   cfg.AnatomyKeywords,
		WorkDir:    cfg.WorkDir,
		Workers:    cfg.Workers,
		Deface:     cfg.Deface,
		Preview:    cfg.Preview,
		Policy:     align.LeadingTrim{Max: cfg.Alignment.MaxLeadingTrim},
	}, deps, log), nil
}
