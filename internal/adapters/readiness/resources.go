package readiness

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	// DefaultResourceInterval is the delay between resource checks
	DefaultResourceInterval = 250 * time.Millisecond

	checkTimeout = 2 * time.Second
)

// Waiter blocks until tcp or http resources accept connections
type Waiter struct {
	Interval time.Duration
	http     *http.Client
	log      *slog.Logger
}

// NewWaiter creates a resource waiter with the default polling interval
func NewWaiter(log *slog.Logger) *Waiter {
	return &Waiter{
		Interval: DefaultResourceInterval,
		http:     &http.Client{Timeout: checkTimeout},
		log:      log.With("component", "ResourceWaiter"),
	}
}

// WaitForResources waits for every resource in order. Resources are
// "tcp:host:port" or an http(s) URL. There is no retry limit; only ctx ends
// the wait early.
func (w *Waiter) WaitForResources(ctx context.Context, resources ...string) error {
	for _, resource := range resources {
		check, err := w.checkFor(resource)
		if err != nil {
			return err
		}

		err = retry.Do(
			func() error { return check(ctx) },
			retry.Context(ctx),
			retry.Attempts(0),
			retry.Delay(w.Interval),
			retry.DelayType(retry.FixedDelay),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(attempt uint, err error) {
				w.log.Debug("resource not ready", "resource", resource, "attempt", attempt+1, "error", err)
			}),
		)
		if err != nil {
			return fmt.Errorf("waiting for %s: %w", resource, err)
		}
		w.log.Debug("resource ready", "resource", resource)
	}
	return nil
}

func (w *Waiter) checkFor(resource string) (func(context.Context) error, error) {
	switch {
	case strings.HasPrefix(resource, "tcp:"):
		address := strings.TrimPrefix(resource, "tcp:")
		return func(ctx context.Context) error {
			return dial(ctx, address)
		}, nil
	case strings.HasPrefix(resource, "http://"), strings.HasPrefix(resource, "https://"):
		return func(ctx context.Context) error {
			return w.get(ctx, resource)
		}, nil
	default:
		return nil, fmt.Errorf("unsupported resource %q", resource)
	}
}

func dial(ctx context.Context, address string) error {
	dialer := net.Dialer{Timeout: checkTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return err
	}
	return conn.Close()
}

// get treats any response below 500 as a live server
func (w *Waiter) get(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return retry.Unrecoverable(err)
	}
	resp, err := w.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
