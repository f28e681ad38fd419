// Package di wires the pseudicom components together.
package di

import (
	"github.com/samber/do/v2"

	"github.com/mrsinham/pseudicom/internal/config"
	"github.com/mrsinham/pseudicom/internal/di/providers"
)

// NewContainer creates the DI container for a validated configuration.
func NewContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.ProvideLogger)

	// Record processing
	do.Provide(injector, providers.ProvideLocator)
	do.Provide(injector, providers.ProvideAnonymizer)
	do.Provide(injector, providers.ProvideReinserter)

	// External tools
	do.Provide(injector, providers.ProvideToolchain)

	// Pipeline
	do.Provide(injector, providers.ProvidePipeline)

	return injector
}
