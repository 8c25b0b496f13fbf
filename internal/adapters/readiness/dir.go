package readiness

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/trebuchet-org/ens-test-env/internal/domain"
)

const (
	DefaultDirInterval = 500 * time.Millisecond
	DefaultDirTimeout  = 10 * time.Second
)

// Execer runs a command inside a container
type Execer interface {
	Exec(ctx context.Context, container string, argv []string, opts domain.ComposeOptions) (*domain.ExecResult, error)
}

var errDirMissing = errors.New("directory missing")

// DirWaiter polls a container until a directory exists
type DirWaiter struct {
	Interval time.Duration
	Timeout  time.Duration

	exec Execer
	opts domain.ComposeOptions
	log  *slog.Logger
}

// NewDirWaiter creates a directory waiter for containers of the configured project
func NewDirWaiter(exec Execer, cfg *domain.Config, log *slog.Logger) *DirWaiter {
	return &DirWaiter{
		Interval: DefaultDirInterval,
		Timeout:  DefaultDirTimeout,
		exec:     exec,
		opts:     cfg.ComposeOptions(nil),
		log:      log.With("component", "DirWaiter"),
	}
}

// Wait returns nil once path is a directory in container, or a
// *domain.NotReadyError when Timeout elapses first. Exec failures count
// as "not there yet".
func (w *DirWaiter) Wait(ctx context.Context, container, path string) error {
	waitCtx, cancel := context.WithTimeout(ctx, w.Timeout)
	defer cancel()
	argv := []string{"test", "-d", path}

	err := retry.Do(
		func() error {
			result, err := w.exec.Exec(waitCtx, container, argv, w.opts)
			if err != nil {
				w.log.Debug("directory check failed", "container", container, "path", path, "error", err)
				return err
			}
			if result.ExitCode != 0 {
				return errDirMissing
			}
			return nil
		},
		retry.Context(waitCtx),
		retry.Attempts(0),
		retry.Delay(w.Interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case waitCtx.Err() != nil:
		return &domain.NotReadyError{Container: container, Path: path}
	default:
		return err
	}
}
