package usecase

import (
	"context"
	"io"

	"github.com/trebuchet-org/ens-test-env/internal/domain"
)

// ContainerRuntime manages the compose project that hosts the node and indexer
type ContainerRuntime interface {
	Up(ctx context.Context, service string, opts domain.ComposeOptions) error
	Down(ctx context.Context, opts domain.ComposeOptions) error
	Kill(ctx context.Context, opts domain.ComposeOptions) error
	Rm(ctx context.Context, opts domain.ComposeOptions) error
	Exec(ctx context.Context, container string, argv []string, opts domain.ComposeOptions) (*domain.ExecResult, error)
	// Logs follows the combined output of the named containers until the stream ends
	Logs(ctx context.Context, containers []string, opts domain.ComposeOptions, onChunk func(domain.LogChunk)) error
	Version(ctx context.Context) (string, error)
}

// ChainNode exposes the node RPC calls the lifecycle needs
type ChainNode interface {
	SetNextBlockTimestamp(ctx context.Context, timestamp int64) error
	SetBlockTimestampInterval(ctx context.Context, seconds int64) error
	RemoveBlockTimestampInterval(ctx context.Context) error
	Snapshot(ctx context.Context) (string, error)
	Mine(ctx context.Context) error
	BlockNumber(ctx context.Context) (uint64, error)
}

// CommandRunner runs one shell command to completion.
// A nil error does not imply the command succeeded.
type CommandRunner interface {
	Run(ctx context.Context, name, commandLine string) error
}

// Readiness blocks until external processes are observably ready
type Readiness interface {
	WaitForResources(ctx context.Context, resources ...string) error
	WaitForDir(ctx context.Context, container, path string) error
	WaitForIndexer(ctx context.Context, targetHeight uint64) error
}

// LogMultiplexer forwards container logs and reports container exits
type LogMultiplexer interface {
	Subscribe(ctx context.Context, containers []string, opts domain.ComposeOptions, onExit func(code int))
}

// ScriptHandle tracks a running set of auxiliary scripts
type ScriptHandle interface {
	// Wait returns a non-nil error when the runner itself failed
	Wait() error
	// Kill forcefully terminates every started script
	Kill()
}

// ScriptRunner launches auxiliary scripts concurrently
type ScriptRunner interface {
	Run(ctx context.Context, scripts []domain.Script, onExit func(domain.ScriptExit)) (ScriptHandle, error)
}

// DeploymentLoader reads the deployed contract addresses
type DeploymentLoader interface {
	Load(ctx context.Context) (domain.DeploymentAddresses, error)
}

// Environment is the process environment shared with child processes and containers
type Environment interface {
	Load(files ...string) error
	Get(key string) (string, bool)
	Set(key, value string) error
	Snapshot() map[string]string
}

// DataArchive compresses the node data directory
type DataArchive interface {
	Compress(ctx context.Context) error
}

// ProgressSink receives user-facing progress messages
type ProgressSink interface {
	Step(message string)
	Done()
	Info(message string)
	Error(message string)
}

// Streams are the orchestrator's standard output and error streams
type Streams struct {
	Out io.Writer
	Err io.Writer
}
