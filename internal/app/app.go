package app

import (
	"log/slog"

	"github.com/trebuchet-org/ens-test-env/internal/adapters/archive"
	"github.com/trebuchet-org/ens-test-env/internal/domain"
	"github.com/trebuchet-org/ens-test-env/internal/usecase"
)

// App is the main application container
type App struct {
	// Configuration
	Config *domain.Config

	// Use cases
	Orchestrator *usecase.Orchestrator

	// Adapters used directly by commands
	Archive  *archive.Archive
	Progress usecase.ProgressSink
	Log      *slog.Logger
}

// NewApp creates a new application instance
func NewApp(
	cfg *domain.Config,
	orchestrator *usecase.Orchestrator,
	dataArchive *archive.Archive,
	progress usecase.ProgressSink,
	log *slog.Logger,
) (*App, error) {
	return &App{
		Config:       cfg,
		Orchestrator: orchestrator,
		Archive:      dataArchive,
		Progress:     progress,
		Log:          log,
	}, nil
}
