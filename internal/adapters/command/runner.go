package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/fatih/color"
	"github.com/kballard/go-shellquote"
	"github.com/trebuchet-org/ens-test-env/internal/adapters/prefixer"
	"github.com/trebuchet-org/ens-test-env/internal/domain"
	"github.com/trebuchet-org/ens-test-env/internal/usecase"
)

// execCommandContext is a variable to allow mocking in tests
var execCommandContext = exec.CommandContext

var labelStyle = color.New(color.FgBlue, color.Bold)

// Label returns the colored "[name] " tag used for a command's output
func Label(name string) string {
	return labelStyle.Sprintf("[%s]", name) + " "
}

// Runner runs a single command line to completion with labelled output
type Runner struct {
	stdout    io.Writer
	stderr    io.Writer
	verbosity int
	log       *slog.Logger
}

// NewRunner creates a command runner writing to the given streams
func NewRunner(cfg *domain.Config, streams usecase.Streams, log *slog.Logger) *Runner {
	return &Runner{
		stdout:    streams.Out,
		stderr:    streams.Err,
		verbosity: cfg.Options.Verbosity,
		log:       log.With("component", "CommandRunner"),
	}
}

// Run executes commandLine and waits for it to exit. The exit code is not
// reported; an error means the command could not be parsed or started.
func (r *Runner) Run(ctx context.Context, name, commandLine string) error {
	argv, err := shellquote.Split(commandLine)
	if err != nil {
		return fmt.Errorf("failed to parse %s command: %w", name, err)
	}
	if len(argv) == 0 {
		return fmt.Errorf("empty %s command", name)
	}

	cmd := execCommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = os.Environ()

	label := Label(name)
	stderr := prefixer.New(r.stderr, label)
	cmd.Stderr = stderr
	var stdout *prefixer.Writer
	if r.verbosity > 0 {
		stdout = prefixer.New(r.stdout, label)
		cmd.Stdout = stdout
	}

	start := time.Now()
	r.log.Debug("running command", "name", name, "argv", argv)
	runErr := cmd.Run()

	if stdout != nil {
		_ = stdout.Close()
	}
	_ = stderr.Close()

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		r.log.Debug("command exited", "name", name, "code", exitErr.ExitCode(), "duration", time.Since(start))
		return nil
	}
	if runErr != nil {
		return fmt.Errorf("failed to run %s: %w", name, runErr)
	}

	r.log.Debug("command exited", "name", name, "code", 0, "duration", time.Since(start))
	return nil
}

// Ensure the runner implements the interface
var _ usecase.CommandRunner = (*Runner)(nil)
