package logs

import (
	"bytes"
	"sync"

	"github.com/samber/lo"
	"github.com/trebuchet-org/ens-test-env/internal/domain"
)

// Filter matches log chunks against the noise list and the container exit markers
type Filter struct {
	mu          sync.RWMutex
	ignore      [][]byte
	exitMarkers [][]byte
}

// NewFilter copies the given patterns into a new filter
func NewFilter(ignore, exitMarkers []string) *Filter {
	return &Filter{
		ignore:      toPatterns(ignore),
		exitMarkers: toPatterns(exitMarkers),
	}
}

// NewFilterFromConfig creates the filter for the configured log patterns
func NewFilterFromConfig(cfg *domain.Config) *Filter {
	return NewFilter(cfg.Env.Logs.Ignore, cfg.Env.Logs.ExitMarkers)
}

// IsExit reports whether chunk announces that a container died
func (f *Filter) IsExit(chunk []byte) bool {
	return matchAny(f.exitMarkers, chunk)
}

// IsNoise reports whether chunk contains any ignored pattern
func (f *Filter) IsNoise(chunk []byte) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return matchAny(f.ignore, chunk)
}

// Clear empties the noise list so every chunk is forwarded
func (f *Filter) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ignore = nil
}

func toPatterns(values []string) [][]byte {
	values = lo.Filter(values, func(v string, _ int) bool { return v != "" })
	return lo.Map(values, func(v string, _ int) []byte { return []byte(v) })
}

func matchAny(patterns [][]byte, chunk []byte) bool {
	return lo.ContainsBy(patterns, func(p []byte) bool {
		return bytes.Contains(chunk, p)
	})
}
