package usecase

import (
	"sync"

	"github.com/trebuchet-org/ens-test-env/internal/domain"
)

// lifecycleState is the only mutable state shared between the forward sequence
// and the asynchronous teardown triggers. Every read-check-write happens under mu.
type lifecycleState struct {
	mu              sync.Mutex
	stage           domain.Stage
	initialFinished bool
	cleanupRunning  bool
}

// advance moves to next unless teardown has begun
func (s *lifecycleState) advance(next domain.Stage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cleanupRunning {
		return false
	}
	s.stage = next
	return true
}

// finishInitial records that the node is up, deployed and built.
// It returns false when teardown has already begun.
func (s *lifecycleState) finishInitial() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialFinished = true
	return !s.cleanupRunning
}

// beginCleanup claims the teardown. proceed is false for a duplicate request;
// escalate is true when an escalating request arrives during a running teardown.
func (s *lifecycleState) beginCleanup(req domain.CleanupRequest) (proceed, escalate bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cleanupRunning {
		if req.Escalates() {
			return true, true
		}
		return false, false
	}
	s.cleanupRunning = true
	s.stage = domain.StageCleaningUp
	return true, false
}

func (s *lifecycleState) terminate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage = domain.StageTerminated
}

func (s *lifecycleState) cleaning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanupRunning
}

func (s *lifecycleState) initialDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialFinished
}

func (s *lifecycleState) current() domain.Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}
