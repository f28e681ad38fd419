// Package providers contains dependency injection providers for pseudicom.
package providers

import (
	"github.com/samber/do/v2"
	"github.com/sirupsen/logrus"

	"github.com/mrsinham/pseudicom/internal/config"
	"github.com/mrsinham/pseudicom/internal/logging"
)

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logrus.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	log.WithFields(logrus.Fields{
		"root":         cfg.Root,
		"work_dir":     cfg.WorkDir,
		"workers":      cfg.Workers,
		"backup":       cfg.Backup,
		"change_dates": cfg.ChangeDates.String(),
		"deface":       cfg.Deface,
	}).Debug("configuration loaded")

	return log, nil
}
