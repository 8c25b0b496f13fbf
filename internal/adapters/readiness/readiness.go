package readiness

import (
	"context"

	"github.com/trebuchet-org/ens-test-env/internal/usecase"
)

// Poller bundles the readiness waits used by the orchestrator
type Poller struct {
	resources *Waiter
	dirs      *DirWaiter
	indexer   *IndexerWaiter
}

// NewPoller creates a Poller from its waiters
func NewPoller(resources *Waiter, dirs *DirWaiter, indexer *IndexerWaiter) *Poller {
	return &Poller{resources: resources, dirs: dirs, indexer: indexer}
}

func (p *Poller) WaitForResources(ctx context.Context, resources ...string) error {
	return p.resources.WaitForResources(ctx, resources...)
}

func (p *Poller) WaitForDir(ctx context.Context, container, path string) error {
	return p.dirs.Wait(ctx, container, path)
}

func (p *Poller) WaitForIndexer(ctx context.Context, targetHeight uint64) error {
	return p.indexer.WaitForHeight(ctx, targetHeight)
}

// Ensure the poller implements the interface
var _ usecase.Readiness = (*Poller)(nil)
