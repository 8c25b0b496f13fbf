package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/trebuchet-org/ens-test-env/internal/domain"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) count(event string) int {
	n := 0
	for _, e := range r.list() {
		if e == event {
			n++
		}
	}
	return n
}

type fakeRuntime struct {
	rec         *recorder
	versionErr  error
	downStarted chan struct{}
	downRelease chan struct{}

	mu       sync.Mutex
	lastOpts domain.ComposeOptions
}

func (f *fakeRuntime) remember(opts domain.ComposeOptions) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastOpts = opts
}

func (f *fakeRuntime) opts() domain.ComposeOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastOpts
}

func (f *fakeRuntime) Up(ctx context.Context, service string, opts domain.ComposeOptions) error {
	f.remember(opts)
	f.rec.add("up %s", service)
	return nil
}

func (f *fakeRuntime) Down(ctx context.Context, opts domain.ComposeOptions) error {
	f.rec.add("down")
	if f.downStarted != nil {
		close(f.downStarted)
		<-f.downRelease
	}
	return nil
}

func (f *fakeRuntime) Kill(ctx context.Context, opts domain.ComposeOptions) error {
	f.rec.add("kill")
	return nil
}

func (f *fakeRuntime) Rm(ctx context.Context, opts domain.ComposeOptions) error {
	f.rec.add("rm")
	return nil
}

func (f *fakeRuntime) Exec(ctx context.Context, container string, argv []string, opts domain.ComposeOptions) (*domain.ExecResult, error) {
	f.rec.add("exec %s %s", container, strings.Join(argv, " "))
	return &domain.ExecResult{}, nil
}

func (f *fakeRuntime) Logs(ctx context.Context, containers []string, opts domain.ComposeOptions, onChunk func(domain.LogChunk)) error {
	return nil
}

func (f *fakeRuntime) Version(ctx context.Context) (string, error) {
	f.rec.add("version")
	if f.versionErr != nil {
		return "", f.versionErr
	}
	return "2.29.1", nil
}

type fakeNode struct {
	rec    *recorder
	height uint64
	err    error
}

func (f *fakeNode) SetNextBlockTimestamp(ctx context.Context, timestamp int64) error {
	f.rec.add("setNextBlockTimestamp %d", timestamp)
	return f.err
}

func (f *fakeNode) SetBlockTimestampInterval(ctx context.Context, seconds int64) error {
	f.rec.add("setBlockTimestampInterval %d", seconds)
	return nil
}

func (f *fakeNode) RemoveBlockTimestampInterval(ctx context.Context) error {
	f.rec.add("removeBlockTimestampInterval")
	return nil
}

func (f *fakeNode) Snapshot(ctx context.Context) (string, error) {
	f.rec.add("snapshot")
	return "0x1", nil
}

func (f *fakeNode) Mine(ctx context.Context) error {
	f.rec.add("mine")
	return nil
}

func (f *fakeNode) BlockNumber(ctx context.Context) (uint64, error) {
	f.rec.add("blockNumber")
	return f.height, nil
}

type fakeCommands struct {
	rec  *recorder
	errs map[string]error
}

func (f *fakeCommands) Run(ctx context.Context, name, commandLine string) error {
	f.rec.add("run %s", name)
	return f.errs[name]
}

type fakeReadiness struct {
	rec *recorder
}

func (f *fakeReadiness) WaitForResources(ctx context.Context, resources ...string) error {
	f.rec.add("waitForResources %s", strings.Join(resources, ","))
	return nil
}

func (f *fakeReadiness) WaitForDir(ctx context.Context, container, path string) error {
	f.rec.add("waitForDir %s %s", container, path)
	return nil
}

func (f *fakeReadiness) WaitForIndexer(ctx context.Context, targetHeight uint64) error {
	f.rec.add("waitForIndexer %d", targetHeight)
	return nil
}

type fakeLogs struct {
	rec *recorder

	mu     sync.Mutex
	onExit []func(code int)
}

func (f *fakeLogs) Subscribe(ctx context.Context, containers []string, opts domain.ComposeOptions, onExit func(code int)) {
	f.rec.add("subscribe %s", strings.Join(containers, ","))
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onExit = append(f.onExit, onExit)
}

func (f *fakeLogs) exit(i, code int) {
	f.mu.Lock()
	onExit := f.onExit[i]
	f.mu.Unlock()
	onExit(code)
}

type fakeHandle struct {
	kills   atomic.Int32
	once    sync.Once
	killed  chan struct{}
	waitErr error
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{killed: make(chan struct{})}
}

func (h *fakeHandle) Wait() error {
	<-h.killed
	return h.waitErr
}

func (h *fakeHandle) Kill() {
	h.kills.Add(1)
	h.once.Do(func() { close(h.killed) })
}

type fakeScripts struct {
	rec    *recorder
	handle *fakeHandle

	mu     sync.Mutex
	onExit func(domain.ScriptExit)
}

func (f *fakeScripts) Run(ctx context.Context, scripts []domain.Script, onExit func(domain.ScriptExit)) (ScriptHandle, error) {
	f.rec.add("scripts %d", len(scripts))
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onExit = onExit
	return f.handle, nil
}

func (f *fakeScripts) exit(exit domain.ScriptExit) {
	f.mu.Lock()
	onExit := f.onExit
	f.mu.Unlock()
	onExit(exit)
}

type fakeDeployments struct {
	addresses domain.DeploymentAddresses
	err       error
}

func (f *fakeDeployments) Load(ctx context.Context) (domain.DeploymentAddresses, error) {
	return f.addresses, f.err
}

type fakeEnv struct {
	rec *recorder

	mu   sync.Mutex
	vars map[string]string
}

func (f *fakeEnv) Load(files ...string) error {
	f.rec.add("loadEnv %s", strings.Join(files, ","))
	return nil
}

func (f *fakeEnv) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vars[key]
	return v, ok
}

func (f *fakeEnv) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vars[key] = value
	return nil
}

func (f *fakeEnv) Snapshot() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.vars))
	for k, v := range f.vars {
		out[k] = v
	}
	return out
}

type fakeArchive struct {
	rec *recorder
	err error
}

func (f *fakeArchive) Compress(ctx context.Context) error {
	f.rec.add("compress")
	return f.err
}

// NopProgress discards progress output
type NopProgress struct{}

func (NopProgress) Step(string)  {}
func (NopProgress) Done()        {}
func (NopProgress) Info(string)  {}
func (NopProgress) Error(string) {}
