package logs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/trebuchet-org/ens-test-env/internal/domain"
	"github.com/trebuchet-org/ens-test-env/internal/usecase"
)

// Streamer follows container logs
type Streamer interface {
	Logs(ctx context.Context, containers []string, opts domain.ComposeOptions, onChunk func(domain.LogChunk)) error
}

// Route is what the multiplexer does with a chunk
type Route int

const (
	RouteDrop Route = iota
	RouteStdout
	RouteStderr
	RouteExit
)

// Multiplexer forwards container log chunks to the process streams
type Multiplexer struct {
	streamer  Streamer
	filter    *Filter
	verbosity int

	mu     sync.Mutex
	stdout io.Writer
	stderr io.Writer

	log *slog.Logger
}

// NewMultiplexer creates a multiplexer. At verbosity 2 and above the noise
// list is cleared so every chunk is forwarded.
func NewMultiplexer(streamer Streamer, filter *Filter, cfg *domain.Config, streams usecase.Streams, log *slog.Logger) *Multiplexer {
	if cfg.Options.Verbosity >= 2 {
		filter.Clear()
	}
	return &Multiplexer{
		streamer:  streamer,
		filter:    filter,
		verbosity: cfg.Options.Verbosity,
		stdout:    streams.Out,
		stderr:    streams.Err,
		log:       log.With("component", "LogMultiplexer"),
	}
}

// Classify decides the route of a chunk. Rules apply in order: exit marker,
// stderr, verbosity 0, noise, stdout.
func (m *Multiplexer) Classify(chunk domain.LogChunk) Route {
	switch {
	case m.filter.IsExit(chunk.Data):
		return RouteExit
	case chunk.Source == domain.LogStderr:
		return RouteStderr
	case m.verbosity == 0:
		return RouteDrop
	case m.filter.IsNoise(chunk.Data):
		return RouteDrop
	default:
		return RouteStdout
	}
}

// Subscribe follows the logs of containers in the background. onExit is
// called at most once, with 1, when a container exit is detected or the
// stream fails. Chunks after an exit marker are still forwarded.
func (m *Multiplexer) Subscribe(ctx context.Context, containers []string, opts domain.ComposeOptions, onExit func(code int)) {
	go m.follow(ctx, containers, opts, onExit)
}

func (m *Multiplexer) follow(ctx context.Context, containers []string, opts domain.ComposeOptions, onExit func(code int)) {
	var once sync.Once
	exit := func() {
		once.Do(func() {
			go onExit(1)
		})
	}

	err := m.streamer.Logs(ctx, containers, opts, func(chunk domain.LogChunk) {
		if m.forward(chunk) == RouteExit {
			m.log.Debug("container exit detected", "containers", containers)
			exit()
		}
	})

	if ctx.Err() != nil {
		return
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		m.log.Error("log stream failed", "containers", containers, "error", err)
		exit()
	}
}

func (m *Multiplexer) forward(chunk domain.LogChunk) Route {
	route := m.Classify(chunk)

	m.mu.Lock()
	defer m.mu.Unlock()
	switch route {
	case RouteStderr:
		_, _ = m.stderr.Write(chunk.Data)
	case RouteStdout:
		_, _ = m.stdout.Write(chunk.Data)
	}
	return route
}

// Ensure the multiplexer implements the interface
var _ usecase.LogMultiplexer = (*Multiplexer)(nil)
