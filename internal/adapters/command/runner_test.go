package command

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/fatih/color"
	"github.com/kballard/go-shellquote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/ens-test-env/internal/domain"
	"github.com/trebuchet-org/ens-test-env/internal/usecase"
)

func init() {
	color.NoColor = true
}

// TestHelperProcess is the child process started by the runner in these tests
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}

	switch args[0] {
	case "emit":
		fmt.Fprint(os.Stdout, "compiling\ndeployed")
		fmt.Fprint(os.Stderr, "warning: slow\n")
		os.Exit(3)
	case "args":
		for _, arg := range args[1:] {
			fmt.Fprintln(os.Stdout, arg)
		}
		os.Exit(0)
	case "env":
		fmt.Fprintln(os.Stdout, os.Getenv("DEPLOYMENT_ADDRESSES"))
		os.Exit(0)
	}
	os.Exit(2)
}

func helperCommand(args ...string) string {
	return shellquote.Join(append([]string{os.Args[0], "-test.run=TestHelperProcess", "--"}, args...)...)
}

func newTestRunner(verbosity int) (*Runner, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	cfg := &domain.Config{Options: domain.Options{Verbosity: verbosity}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRunner(cfg, usecase.Streams{Out: &stdout, Err: &stderr}, logger), &stdout, &stderr
}

func TestRunner_NonZeroExitStillCompletes(t *testing.T) {
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	runner, stdout, stderr := newTestRunner(1)

	err := runner.Run(context.Background(), "deploy", helperCommand("emit"))
	require.NoError(t, err)

	assert.Equal(t, "[deploy] compiling\n[deploy] deployed", stdout.String())
	assert.Equal(t, "[deploy] warning: slow\n", stderr.String())
}

func TestRunner_StdoutSuppressedAtVerbosityZero(t *testing.T) {
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	runner, stdout, stderr := newTestRunner(0)

	require.NoError(t, runner.Run(context.Background(), "deploy", helperCommand("emit")))

	assert.Empty(t, stdout.String())
	assert.Equal(t, "[deploy] warning: slow\n", stderr.String())
}

func TestRunner_QuotedArguments(t *testing.T) {
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	runner, stdout, _ := newTestRunner(1)

	require.NoError(t, runner.Run(context.Background(), "build", helperCommand("args", "hello world", "x")))

	assert.Equal(t, "[build] hello world\n[build] x\n", stdout.String())
}

func TestRunner_InheritsEnvironment(t *testing.T) {
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	t.Setenv("DEPLOYMENT_ADDRESSES", `{"token":"0x1"}`)
	runner, stdout, _ := newTestRunner(2)

	require.NoError(t, runner.Run(context.Background(), "deploy", helperCommand("env")))

	assert.Equal(t, "[deploy] {\"token\":\"0x1\"}\n", stdout.String())
}

func TestRunner_MissingProgram(t *testing.T) {
	runner, _, _ := newTestRunner(0)
	err := runner.Run(context.Background(), "deploy", "definitely-not-a-real-binary-ens-test-env")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to run deploy")
}

func TestRunner_UnparseableCommand(t *testing.T) {
	runner, _, _ := newTestRunner(0)
	err := runner.Run(context.Background(), "deploy", `pnpm "unterminated`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse deploy command")
}

func TestRunner_EmptyCommand(t *testing.T) {
	runner, _, _ := newTestRunner(0)
	err := runner.Run(context.Background(), "build", "   ")
	require.Error(t, err)
}
