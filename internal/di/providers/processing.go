package providers

import (
	"github.com/samber/do/v2"
	"github.com/sirupsen/logrus"

	"github.com/mrsinham/pseudicom/internal/anonymizer"
	"github.com/mrsinham/pseudicom/internal/config"
	"github.com/mrsinham/pseudicom/internal/locator"
	"github.com/mrsinham/pseudicom/internal/reinsert"
)

// ProvideLocator provides the run folder locator.
func ProvideLocator(i do.Injector) (*locator.Locator, error) {
	log := do.MustInvoke[*logrus.Logger](i)
	return locator.New(log), nil
}

// ProvideAnonymizer provides the record anonymizer.
func ProvideAnonymizer(i do.Injector) (*anonymizer.Anonymizer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logrus.Logger](i)

	for _, w := range cfg.ClearListWarnings() {
		log.WithField("component", "config").Warn(w)
	}

	return anonymizer.New(anonymizer.Options{
		ClearTags: cfg.ClearTags(),
		Backup:    cfg.Backup,
		Dates: anonymizer.DatePolicy{
			Enabled: cfg.ChangeDates.Enabled,
			Literal: cfg.ChangeDates.Literal,
		},
	}, log), nil
}

// ProvideReinserter provides the slice reinserter.
func ProvideReinserter(i do.Injector) (*reinsert.Reinserter, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logrus.Logger](i)

	return reinsert.New(reinsert.Options{
		Orientation: reinsert.Orientation{
			FlipSlices: cfg.Orientation.FlipSlices,
			Rotate:     cfg.Orientation.Rotate,
		},
		Backup: cfg.Backup,
	}, log), nil
}
