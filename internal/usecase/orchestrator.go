package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/trebuchet-org/ens-test-env/internal/domain"
)

const (
	configLabel = "[config]"

	// anvilExtraArgsEnv is interpolated by the compose file into the node command
	anvilExtraArgsEnv = "ANVIL_EXTRA_ARGS"
)

// Orchestrator sequences the environment startup and owns its single teardown
type Orchestrator struct {
	cfg         *domain.Config
	runtime     ContainerRuntime
	node        ChainNode
	commands    CommandRunner
	ready       Readiness
	logs        LogMultiplexer
	scripts     ScriptRunner
	deployments DeploymentLoader
	env         Environment
	archive     DataArchive
	progress    ProgressSink
	log         *slog.Logger
	now         func() time.Time

	state lifecycleState

	mu     sync.Mutex
	handle ScriptHandle

	finishOnce sync.Once
	done       chan struct{}
	exitCode   int
}

// NewOrchestrator creates the lifecycle orchestrator.
// deployments may be nil when addresses are only ever provided through the env file.
func NewOrchestrator(
	cfg *domain.Config,
	runtime ContainerRuntime,
	node ChainNode,
	commands CommandRunner,
	ready Readiness,
	logs LogMultiplexer,
	scripts ScriptRunner,
	deployments DeploymentLoader,
	env Environment,
	archive DataArchive,
	progress ProgressSink,
	log *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		runtime:     runtime,
		node:        node,
		commands:    commands,
		ready:       ready,
		logs:        logs,
		scripts:     scripts,
		deployments: deployments,
		env:         env,
		archive:     archive,
		progress:    progress,
		log:         log.With("component", "Orchestrator"),
		now:         time.Now,
		done:        make(chan struct{}),
	}
}

// Run starts the environment and blocks until teardown has finished.
// It returns the exit code for the process.
func (o *Orchestrator) Run(ctx context.Context) int {
	go func() {
		if err := o.Start(ctx); err != nil {
			o.progress.Error(err.Error())
			o.Cleanup(ctx, domain.CleanupRequest{Code: 1})
		}
	}()
	<-o.done
	return o.ExitCode()
}

// Start runs the forward sequence. It returns nil without doing further work
// as soon as a teardown has begun.
func (o *Orchestrator) Start(ctx context.Context) error {
	if !o.state.advance(domain.StageNodeStarting) {
		return nil
	}

	version, err := o.runtime.Version(ctx)
	if err != nil {
		return o.abort(fmt.Errorf("%w: %v", domain.ErrRuntimeUnavailable, err))
	}
	o.log.Debug("container runtime available", "version", version)

	node := o.cfg.Env.Node
	opts := o.composeOptions()
	o.progress.Step(fmt.Sprintf("Starting %s...", node.Service))
	if err := o.runtime.Up(ctx, node.Service, opts); err != nil {
		return o.abort(fmt.Errorf("failed to start %s: %w", node.Service, err))
	}
	o.logs.Subscribe(ctx, []string{node.Service}, opts, o.onContainerExit(ctx))
	if err := o.ready.WaitForResources(ctx, node.WaitResource); err != nil {
		return o.abort(fmt.Errorf("waiting for %s: %w", node.WaitResource, err))
	}
	o.progress.Done()

	if !o.state.advance(domain.StageNodeReady) {
		return nil
	}
	if err := o.prepareChain(ctx); err != nil {
		return o.abort(err)
	}

	if !o.state.advance(domain.StageDeploying) {
		return nil
	}
	o.progress.Step("Running deploy script...")
	if err := o.commands.Run(ctx, "deploy", o.cfg.Env.DeployCommand); err != nil {
		return o.abort(fmt.Errorf("deploy command: %w", err))
	}
	o.progress.Done()

	if !o.state.advance(domain.StageDeployed) {
		return nil
	}
	if err := o.publishDeployments(ctx); err != nil {
		return o.abort(err)
	}
	if o.state.cleaning() {
		return nil
	}
	if err := o.node.RemoveBlockTimestampInterval(ctx); err != nil {
		return o.abort(fmt.Errorf("failed to remove block timestamp interval: %w", err))
	}

	if o.cfg.Options.ExitAfterDeploy {
		o.progress.Info(configLabel + " Exiting after contract deployment...")
		o.Cleanup(ctx, domain.CleanupRequest{Code: 0})
		return nil
	}

	if err := o.takeSnapshots(ctx); err != nil {
		return o.abort(err)
	}

	if o.cfg.Env.BuildCommand != "" && o.cfg.Options.Build {
		if !o.state.advance(domain.StageBuilding) {
			return nil
		}
		o.progress.Step("Running build command...")
		if err := o.commands.Run(ctx, "build", o.cfg.Env.BuildCommand); err != nil {
			return o.abort(fmt.Errorf("build command: %w", err))
		}
		o.progress.Done()
	}

	if !o.state.finishInitial() {
		return nil
	}

	if o.cfg.Options.Indexer {
		if err := o.startIndexer(ctx); err != nil {
			return o.abort(err)
		}
	}

	if o.cfg.Options.Scripts && len(o.cfg.Env.Scripts) > 0 {
		if !o.state.advance(domain.StageScriptsRunning) {
			return nil
		}
		if err := o.runScripts(ctx); err != nil {
			return o.abort(err)
		}
	}

	o.state.advance(domain.StageRunning)
	return nil
}

// prepareChain pins the next block timestamp and a one second block interval
func (o *Orchestrator) prepareChain(ctx context.Context) error {
	timestamp := o.cfg.Env.Node.FixedTimestamp
	if extra := o.cfg.Options.ExtraTime; extra > 0 {
		timestamp = o.now().Unix() - extra
		o.progress.Info(fmt.Sprintf("%s setting timestamp to %d", configLabel, timestamp))
	}
	if err := o.node.SetNextBlockTimestamp(ctx, timestamp); err != nil {
		return fmt.Errorf("failed to set next block timestamp: %w", err)
	}
	if o.state.cleaning() {
		return nil
	}
	if err := o.node.SetBlockTimestampInterval(ctx, 1); err != nil {
		return fmt.Errorf("failed to set block timestamp interval: %w", err)
	}
	return nil
}

// takeSnapshots records the reset points tests revert to
func (o *Orchestrator) takeSnapshots(ctx context.Context) error {
	if o.cfg.Options.ExtraTime > 0 {
		id, err := o.node.Snapshot(ctx)
		if err != nil {
			return fmt.Errorf("failed to take snapshot: %w", err)
		}
		o.log.Debug("snapshot taken before fast-forward", "id", id)
		if o.state.cleaning() {
			return nil
		}
		if err := o.node.SetNextBlockTimestamp(ctx, o.now().Unix()); err != nil {
			return fmt.Errorf("failed to set next block timestamp: %w", err)
		}
		if err := o.node.Mine(ctx); err != nil {
			return fmt.Errorf("failed to mine block: %w", err)
		}
	}
	if o.state.cleaning() {
		return nil
	}

	id, err := o.node.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to take snapshot: %w", err)
	}
	o.log.Debug("snapshot taken", "id", id)
	return nil
}

// publishDeployments makes the deployment address map available under every key
func (o *Orchestrator) publishDeployments(ctx context.Context) error {
	if path := o.cfg.Env.Paths.EnvFile; path != "" {
		if err := o.env.Load(path); err != nil {
			o.log.Warn("failed to load env file", "path", path, "error", err)
		}
	}

	for _, key := range domain.DeploymentAddressKeys {
		if value, ok := o.env.Get(key); ok && value != "" {
			return o.setDeploymentAddresses(value)
		}
	}

	if o.deployments == nil {
		return fmt.Errorf("%w: [NEXT_PUBLIC_]%s is not set, the indexer is unable to index",
			domain.ErrMissingDeploymentAddresses, domain.EnvDeploymentAddresses)
	}

	if container := o.cfg.Env.Deployments.Container; container != "" {
		if err := o.ready.WaitForDir(ctx, container, o.cfg.Env.Deployments.Dir); err != nil {
			return err
		}
		if o.state.cleaning() {
			return nil
		}
	}

	addresses, err := o.deployments.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load deployment addresses: %w", err)
	}
	if len(addresses) == 0 {
		return fmt.Errorf("%w: no artifacts in %s", domain.ErrMissingDeploymentAddresses, o.cfg.Env.Deployments.Dir)
	}

	encoded, err := addresses.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode deployment addresses: %w", err)
	}
	return o.setDeploymentAddresses(encoded)
}

func (o *Orchestrator) setDeploymentAddresses(value string) error {
	for _, key := range domain.DeploymentAddressKeys {
		if err := o.env.Set(key, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return nil
}

func (o *Orchestrator) startIndexer(ctx context.Context) error {
	indexer := o.cfg.Env.Indexer
	if !o.state.advance(domain.StageIndexerStarting) {
		return nil
	}

	opts := o.composeOptions()
	o.progress.Step(fmt.Sprintf("Starting %s...", indexer.Service))
	if err := o.runtime.Up(ctx, indexer.Service, opts); err != nil {
		return fmt.Errorf("failed to start %s: %w", indexer.Service, err)
	}
	containers := append([]string{indexer.Service}, indexer.Dependencies...)
	o.logs.Subscribe(ctx, containers, opts, o.onContainerExit(ctx))
	o.progress.Done()

	if o.state.cleaning() {
		return nil
	}
	height, err := o.node.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to read block number: %w", err)
	}

	o.progress.Step(fmt.Sprintf("Waiting for %s to index to block %d...", indexer.Service, height))
	if err := o.ready.WaitForIndexer(ctx, height); err != nil {
		return fmt.Errorf("waiting for %s: %w", indexer.Service, err)
	}
	o.progress.Done()

	o.state.advance(domain.StageIndexerReady)
	return nil
}

func (o *Orchestrator) runScripts(ctx context.Context) error {
	finishOnExit := o.cfg.FinishOnExitIndexes()

	o.progress.Info("Running scripts...")
	handle, err := o.scripts.Run(ctx, o.cfg.Env.Scripts, func(exit domain.ScriptExit) {
		o.handleScriptExit(ctx, finishOnExit, exit)
	})
	if err != nil {
		return fmt.Errorf("failed to run scripts: %w", err)
	}

	o.mu.Lock()
	o.handle = handle
	o.mu.Unlock()

	// a teardown that began before the handle was stored could not kill it
	if o.state.cleaning() {
		handle.Kill()
		return nil
	}

	go func() {
		if err := handle.Wait(); err != nil {
			o.log.Error("script runner failed", "error", err)
			o.Cleanup(ctx, domain.CleanupRequest{Code: 1})
		}
	}()
	return nil
}

func (o *Orchestrator) handleScriptExit(ctx context.Context, finishOnExit map[int]bool, exit domain.ScriptExit) {
	o.log.Debug("script exited", "index", exit.Index, "name", exit.Name, "code", exit.ExitCode)
	if finishOnExit[exit.Index] || exit.ExitCode != 0 {
		o.Cleanup(ctx, domain.CleanupRequest{Code: exit.ExitCode})
	}
}

func (o *Orchestrator) onContainerExit(ctx context.Context) func(code int) {
	return func(code int) {
		o.Cleanup(ctx, domain.CleanupRequest{Code: code})
	}
}

// Cleanup tears the environment down once. Duplicate requests are ignored unless
// they escalate, in which case containers are killed and the run finishes without
// waiting for the teardown in flight.
func (o *Orchestrator) Cleanup(ctx context.Context, req domain.CleanupRequest) {
	proceed, escalate := o.state.beginCleanup(req)
	if !proceed {
		return
	}

	ctx = context.WithoutCancel(ctx)
	opts := o.composeOptions()

	if escalate {
		o.progress.Info("Forcing cleanup...")
		if err := o.runtime.Kill(ctx, opts); err != nil {
			o.log.Debug("kill failed", "error", err)
			o.progress.Error("kill failed")
		}
		o.killScripts()
		o.finish(req.ExitStatus())
		return
	}

	if req.Forced {
		o.progress.Info("Forcing cleanup...")
	} else {
		o.progress.Info("Cleaning up...")
	}

	status := req.ExitStatus()
	if !o.cfg.Options.KillGracefully || req.Forced || !o.state.initialDone() {
		if err := o.runtime.Kill(ctx, opts); err != nil {
			o.log.Debug("kill failed", "error", err)
			o.progress.Error("kill failed")
		}
		if err := o.runtime.Rm(ctx, opts); err != nil {
			o.log.Debug("rm failed", "error", err)
			o.progress.Error("rm failed")
		}
	} else {
		if err := o.runtime.Down(ctx, opts); err != nil {
			o.log.Debug("down failed", "error", err)
		} else if err := o.runtime.Rm(ctx, opts); err != nil {
			o.log.Debug("rm failed", "error", err)
		}
		if o.cfg.Options.SaveArchive {
			if err := o.archive.Compress(ctx); err != nil {
				o.progress.Error(fmt.Sprintf("failed to save archive: %v", err))
				status = 1
			}
		}
	}

	o.killScripts()
	o.state.terminate()
	o.finish(status)
}

// Interrupt handles a process signal. It only schedules the teardown.
func (o *Orchestrator) Interrupt(ctx context.Context) {
	go o.Cleanup(ctx, domain.CleanupRequest{Code: 1, Interrupt: true})
}

// Kill forcefully removes a running environment and returns the exit code
func (o *Orchestrator) Kill(ctx context.Context) int {
	o.Cleanup(ctx, domain.CleanupRequest{Forced: true})
	<-o.done
	return o.ExitCode()
}

// Abandon is the synchronous last resort when the process exits without a
// teardown. It only signals tracked scripts.
func (o *Orchestrator) Abandon() {
	if !o.state.cleaning() {
		o.killScripts()
	}
}

func (o *Orchestrator) killScripts() {
	o.mu.Lock()
	handle := o.handle
	o.mu.Unlock()
	if handle != nil {
		handle.Kill()
	}
}

func (o *Orchestrator) finish(code int) {
	o.finishOnce.Do(func() {
		o.mu.Lock()
		o.exitCode = code
		o.mu.Unlock()
		close(o.done)
	})
}

// abort drops errors caused by a teardown that raced the forward sequence
func (o *Orchestrator) abort(err error) error {
	if o.state.cleaning() {
		o.log.Debug("forward sequence stopped by teardown", "error", err)
		return nil
	}
	return err
}

func (o *Orchestrator) composeOptions() domain.ComposeOptions {
	env := o.env.Snapshot()
	if o.cfg.Options.Verbosity >= 2 {
		env[anvilExtraArgsEnv] = "--tracing"
	} else {
		env[anvilExtraArgsEnv] = ""
	}
	return o.cfg.ComposeOptions(env)
}

// Done is closed once the run has finished
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// ExitCode is the process exit code, valid after Done is closed
func (o *Orchestrator) ExitCode() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.exitCode
}

// Stage returns the current lifecycle stage
func (o *Orchestrator) Stage() domain.Stage {
	return o.state.current()
}
