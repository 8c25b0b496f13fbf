package scripts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"sync"

	"github.com/trebuchet-org/ens-test-env/internal/adapters/prefixer"
	"github.com/trebuchet-org/ens-test-env/internal/domain"
	"github.com/trebuchet-org/ens-test-env/internal/usecase"
	"golang.org/x/sync/errgroup"
)

// Runner launches auxiliary scripts concurrently through the shell
type Runner struct {
	shell  string
	stdout io.Writer
	stderr io.Writer
	log    *slog.Logger
}

// NewRunner creates a script runner writing prefixed output to streams
func NewRunner(streams usecase.Streams, log *slog.Logger) *Runner {
	return &Runner{
		shell:  "sh",
		stdout: streams.Out,
		stderr: streams.Err,
		log:    log.With("component", "ScriptRunner"),
	}
}

// Run starts every script and returns immediately. onExit is called once per
// script when its process exits; a script that cannot be started makes
// Wait return an error.
func (r *Runner) Run(ctx context.Context, scripts []domain.Script, onExit func(domain.ScriptExit)) (usecase.ScriptHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h := &handle{failed: make(chan error, 1)}
	for i, script := range scripts {
		h.group.Go(func() error {
			return r.runScript(h, i, script, onExit)
		})
	}
	return h, nil
}

func (r *Runner) runScript(h *handle, index int, script domain.Script, onExit func(domain.ScriptExit)) error {
	name := script.Name
	if name == "" {
		name = strconv.Itoa(index)
	}

	cmd := exec.Command(r.shell, "-c", script.Command)
	cmd.Dir = script.Cwd
	cmd.Env = append(os.Environ(), environ(script.Env)...)
	configureProcess(cmd)

	label := prefixColor(script.PrefixColor).Sprintf("[%s]", name) + " "
	stdout := prefixer.New(r.stdout, label)
	stderr := prefixer.New(r.stderr, label)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	started, err := h.start(cmd)
	if err != nil {
		err = fmt.Errorf("failed to start script %s: %w", name, err)
		h.fail(err)
		return err
	}
	if !started {
		r.log.Debug("script not started, runner already killed", "name", name)
		return nil
	}
	r.log.Debug("script started", "name", name, "pid", cmd.Process.Pid)

	waitErr := cmd.Wait()
	_ = stdout.Close()
	_ = stderr.Close()

	code := exitCode(cmd, waitErr)
	r.log.Debug("script exited", "name", name, "code", code)
	if onExit != nil {
		onExit(domain.ScriptExit{Index: index, Name: name, ExitCode: code})
	}
	return nil
}

// exitCode maps a finished process to an exit code. Signal deaths report 1.
func exitCode(cmd *exec.Cmd, err error) int {
	if cmd.ProcessState != nil {
		if code := cmd.ProcessState.ExitCode(); code >= 0 {
			return code
		}
		return 1
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		return exitErr.ExitCode()
	}
	return 1
}

func environ(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// handle tracks the processes of one Run call
type handle struct {
	group errgroup.Group

	// failed receives the first start failure so Wait does not block on
	// the scripts that did start
	failed chan error

	mu     sync.Mutex
	cmds   []*exec.Cmd
	killed bool
}

func (h *handle) fail(err error) {
	select {
	case h.failed <- err:
	default:
	}
}

// start starts cmd unless the handle was killed first
func (h *handle) start(cmd *exec.Cmd) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.killed {
		return false, nil
	}
	if err := cmd.Start(); err != nil {
		return false, err
	}
	h.cmds = append(h.cmds, cmd)
	return true, nil
}

// Wait blocks until every script has exited or one failed to start
func (h *handle) Wait() error {
	done := make(chan error, 1)
	go func() { done <- h.group.Wait() }()

	select {
	case err := <-done:
		return err
	case err := <-h.failed:
		return err
	}
}

// Kill SIGKILLs every started script. Scripts not yet started never start.
func (h *handle) Kill() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.killed = true
	for _, cmd := range h.cmds {
		killProcess(cmd)
	}
}

// Ensure the runner implements the interface
var _ usecase.ScriptRunner = (*Runner)(nil)
