//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/trebuchet-org/ens-test-env/internal/adapters"
	"github.com/trebuchet-org/ens-test-env/internal/domain"
	"github.com/trebuchet-org/ens-test-env/internal/logging"
	"github.com/trebuchet-org/ens-test-env/internal/usecase"
)

// InitApp creates a fully wired App instance
func InitApp(cfg *domain.Config, streams usecase.Streams) (*App, error) {
	wire.Build(
		logging.LoggingSet,

		// Adapters
		adapters.AllAdapters,

		// Use cases
		usecase.NewOrchestrator,

		// App
		NewApp,
	)
	return nil, nil
}
