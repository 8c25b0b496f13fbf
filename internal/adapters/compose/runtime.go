package compose

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"sync"

	"github.com/trebuchet-org/ens-test-env/internal/domain"
	"github.com/trebuchet-org/ens-test-env/internal/usecase"
)

const logChunkSize = 32 * 1024

// execCommandContext is a variable to allow mocking in tests
var execCommandContext = exec.CommandContext

// Runtime implements the container runtime using the docker compose CLI
type Runtime struct {
	binary string
	log    *slog.Logger
}

// NewRuntime creates a compose runtime that shells out to docker
func NewRuntime(log *slog.Logger) *Runtime {
	return &Runtime{
		binary: "docker",
		log:    log.With("component", "ComposeRuntime"),
	}
}

// Up starts a single service detached
func (r *Runtime) Up(ctx context.Context, service string, opts domain.ComposeOptions) error {
	_, err := r.run(ctx, opts, "up", "-d", service)
	return err
}

// Down stops and removes the project containers and networks
func (r *Runtime) Down(ctx context.Context, opts domain.ComposeOptions) error {
	_, err := r.run(ctx, opts, "down")
	return err
}

// Kill sends SIGKILL to every project container
func (r *Runtime) Kill(ctx context.Context, opts domain.ComposeOptions) error {
	_, err := r.run(ctx, opts, "kill")
	return err
}

// Rm removes stopped project containers
func (r *Runtime) Rm(ctx context.Context, opts domain.ComposeOptions) error {
	_, err := r.run(ctx, opts, "rm", "-f")
	return err
}

// Exec runs argv inside a running service container. A non-zero exit code is
// reported through the result, not as an error.
func (r *Runtime) Exec(ctx context.Context, container string, argv []string, opts domain.ComposeOptions) (*domain.ExecResult, error) {
	args := append([]string{"exec", "-T", container}, argv...)
	cmd := r.command(ctx, opts, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &domain.ExecResult{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to exec in %s: %w", container, err)
	}
	return result, nil
}

// Logs follows the output of containers and calls onChunk for every read.
// It returns when the log stream ends or ctx is cancelled.
func (r *Runtime) Logs(ctx context.Context, containers []string, opts domain.ComposeOptions, onChunk func(domain.LogChunk)) error {
	args := append([]string{"logs", "--follow"}, containers...)
	cmd := r.command(ctx, opts, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to follow logs: %w", err)
	}

	var mu sync.Mutex
	emit := func(chunk domain.LogChunk) {
		mu.Lock()
		defer mu.Unlock()
		onChunk(chunk)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		pump(stdout, domain.LogStdout, emit)
	}()
	go func() {
		defer wg.Done()
		pump(stderr, domain.LogStderr, emit)
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("log stream for %s ended: %w", strings.Join(containers, ", "), err)
	}
	return nil
}

// Version returns the compose CLI version
func (r *Runtime) Version(ctx context.Context) (string, error) {
	cmd := execCommandContext(ctx, r.binary, "compose", "version", "--short")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", commandError("compose version", err, stderr.String())
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (r *Runtime) run(ctx context.Context, opts domain.ComposeOptions, args ...string) (string, error) {
	cmd := r.command(ctx, opts, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Debug("running compose", "args", args)
	if err := cmd.Run(); err != nil {
		return "", commandError("compose "+args[0], err, stderr.String())
	}
	return stdout.String(), nil
}

func (r *Runtime) command(ctx context.Context, opts domain.ComposeOptions, args ...string) *exec.Cmd {
	cmd := execCommandContext(ctx, r.binary, append(baseArgs(opts), args...)...)
	cmd.Dir = opts.Cwd
	cmd.Env = append(cmd.Environ(), environ(opts.Env)...)
	return cmd
}

func baseArgs(opts domain.ComposeOptions) []string {
	args := []string{"compose"}
	if opts.ProjectName != "" {
		args = append(args, "-p", opts.ProjectName)
	}
	if opts.ComposeFile != "" {
		args = append(args, "-f", opts.ComposeFile)
	}
	return args
}

// environ renders env as KEY=value pairs in a stable order
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

func pump(r io.Reader, source domain.LogSource, emit func(domain.LogChunk)) {
	buf := make([]byte, logChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			emit(domain.LogChunk{Data: data, Source: source})
		}
		if err != nil {
			return
		}
	}
}

func commandError(what string, err error, stderr string) error {
	if msg := strings.TrimSpace(stderr); msg != "" {
		return fmt.Errorf("%s failed: %w: %s", what, err, msg)
	}
	return fmt.Errorf("%s failed: %w", what, err)
}

// Ensure the runtime implements the interface
var _ usecase.ContainerRuntime = (*Runtime)(nil)
