package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/trebuchet-org/ens-test-env/internal/domain"
	"github.com/trebuchet-org/ens-test-env/internal/usecase"
)

const doneMessage = "↳ done."

// Console prints lifecycle progress, with a spinner while a step runs at verbosity 0
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	err     io.Writer
	spinner *spinner.Spinner
}

// NewConsole creates a console progress sink. The spinner is only used at
// verbosity 0 where step output is otherwise silent.
func NewConsole(cfg *domain.Config, streams usecase.Streams) *Console {
	c := &Console{out: streams.Out, err: streams.Err}
	if cfg.Options.Verbosity == 0 {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(streams.Out))
		s.HideCursor = false
		c.spinner = s
	}
	return c
}

// Step announces a step that is starting
func (c *Console) Step(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopSpinner()
	fmt.Fprintln(c.out, message)
	if c.spinner != nil {
		c.spinner.Start()
	}
}

// Done marks the current step as finished
func (c *Console) Done() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopSpinner()
	fmt.Fprintln(c.out, doneMessage)
}

// Info prints an informational message
func (c *Console) Info(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.withSpinnerPaused(func() {
		fmt.Fprintln(c.out, message)
	})
}

// Error prints an error message to stderr and ends any running step
func (c *Console) Error(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopSpinner()
	color.New(color.FgRed).Fprintln(c.err, message)
}

func (c *Console) stopSpinner() {
	if c.spinner != nil && c.spinner.Active() {
		c.spinner.Stop()
	}
}

func (c *Console) withSpinnerPaused(fn func()) {
	wasActive := c.spinner != nil && c.spinner.Active()
	if wasActive {
		c.spinner.Stop()
	}
	fn()
	if wasActive {
		c.spinner.Start()
	}
}

// Ensure Console implements ProgressSink
var _ usecase.ProgressSink = (*Console)(nil)
