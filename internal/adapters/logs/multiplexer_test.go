package logs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/ens-test-env/internal/domain"
	"github.com/trebuchet-org/ens-test-env/internal/usecase"
)

var (
	defaultIgnore = []string{"eth_getBlockByNumber", "eth_blockNumber", "eth_call"}
	defaultExit   = []string{"exited with code 1", "Error response from daemon:"}
)

// fakeStreamer replays a fixed list of chunks and then returns err
type fakeStreamer struct {
	chunks []domain.LogChunk
	err    error

	mu        sync.Mutex
	delivered int
}

func (f *fakeStreamer) Logs(ctx context.Context, containers []string, opts domain.ComposeOptions, onChunk func(domain.LogChunk)) error {
	for _, c := range f.chunks {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.mu.Lock()
		f.delivered++
		f.mu.Unlock()
		onChunk(c)
	}
	return f.err
}

// syncBuffer is a goroutine-safe bytes.Buffer
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestMultiplexer(streamer Streamer, verbosity int) (*Multiplexer, *syncBuffer, *syncBuffer) {
	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	cfg := &domain.Config{Options: domain.Options{Verbosity: verbosity}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewMultiplexer(streamer, NewFilter(defaultIgnore, defaultExit), cfg, usecase.Streams{Out: stdout, Err: stderr}, logger)
	return m, stdout, stderr
}

func stdoutChunk(s string) domain.LogChunk {
	return domain.LogChunk{Data: []byte(s), Source: domain.LogStdout}
}

func stderrChunk(s string) domain.LogChunk {
	return domain.LogChunk{Data: []byte(s), Source: domain.LogStderr}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		verbosity int
		chunk     domain.LogChunk
		want      Route
	}{
		{"exit marker on stdout", 0, stdoutChunk("anvil-1 exited with code 1\n"), RouteExit},
		{"exit marker on stderr", 2, stderrChunk("Error response from daemon: gone\n"), RouteExit},
		{"stderr always forwarded", 0, stderrChunk("warning\n"), RouteStderr},
		{"stderr noise still forwarded", 1, stderrChunk("eth_call\n"), RouteStderr},
		{"stdout dropped at verbosity 0", 0, stdoutChunk("Listening\n"), RouteDrop},
		{"noise dropped at verbosity 1", 1, stdoutChunk("eth_blockNumber\n"), RouteDrop},
		{"noise forwarded at verbosity 2", 2, stdoutChunk("eth_blockNumber\n"), RouteStdout},
		{"stdout forwarded at verbosity 1", 1, stdoutChunk("Listening\n"), RouteStdout},
		{"exited with code 0 is not an exit", 1, stdoutChunk("exited with code 0\n"), RouteStdout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _ := newTestMultiplexer(&fakeStreamer{}, tt.verbosity)
			assert.Equal(t, tt.want, m.Classify(tt.chunk))
		})
	}
}

func TestSubscribe_ForwardsByRoute(t *testing.T) {
	streamer := &fakeStreamer{chunks: []domain.LogChunk{
		stdoutChunk("Listening on 8545\n"),
		stdoutChunk("eth_getBlockByNumber\n"),
		stderrChunk("warn: slow\n"),
	}}
	m, stdout, stderr := newTestMultiplexer(streamer, 1)

	exits := make(chan int, 1)
	m.follow(context.Background(), []string{"anvil"}, domain.ComposeOptions{}, func(code int) { exits <- code })

	assert.Equal(t, "Listening on 8545\n", stdout.String())
	assert.Equal(t, "warn: slow\n", stderr.String())
	select {
	case code := <-exits:
		t.Fatalf("unexpected exit %d", code)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestSubscribe_ExitMarkerKeepsForwarding(t *testing.T) {
	streamer := &fakeStreamer{
		chunks: []domain.LogChunk{
			stdoutChunk("before\n"),
			stdoutChunk("anvil-1 exited with code 1\n"),
			stdoutChunk("after\n"),
			stderrChunk("ensrainbow-1 | shutting down\n"),
			stdoutChunk("Error response from daemon: container stopped\n"),
		},
		err: errors.New("log stream for anvil ended: exit status 1"),
	}
	m, stdout, stderr := newTestMultiplexer(streamer, 1)

	var mu sync.Mutex
	var codes []int
	done := make(chan struct{})
	m.follow(context.Background(), []string{"anvil", "ensrainbow"}, domain.ComposeOptions{}, func(code int) {
		mu.Lock()
		defer mu.Unlock()
		codes = append(codes, code)
		if len(codes) == 1 {
			close(done)
		}
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("onExit was not called")
	}
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, []int{1}, codes)
	mu.Unlock()
	assert.Equal(t, "before\nafter\n", stdout.String())
	assert.Equal(t, "ensrainbow-1 | shutting down\n", stderr.String())
	assert.Equal(t, 5, streamer.delivered)
}

func TestSubscribe_StreamErrorExits(t *testing.T) {
	m, _, _ := newTestMultiplexer(&fakeStreamer{err: errors.New("log stream for anvil ended: exit status 1")}, 0)

	exits := make(chan int, 1)
	m.Subscribe(context.Background(), []string{"anvil"}, domain.ComposeOptions{}, func(code int) { exits <- code })

	select {
	case code := <-exits:
		assert.Equal(t, 1, code)
	case <-time.After(time.Second):
		t.Fatal("onExit was not called")
	}
}

func TestSubscribe_CancelledContextIsQuiet(t *testing.T) {
	m, _, _ := newTestMultiplexer(&fakeStreamer{err: context.Canceled}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	m.follow(ctx, []string{"anvil"}, domain.ComposeOptions{}, func(int) { called = true })
	time.Sleep(10 * time.Millisecond)
	assert.False(t, called)
}

func TestSubscribe_CleanEndIsQuiet(t *testing.T) {
	m, _, _ := newTestMultiplexer(&fakeStreamer{}, 0)

	exits := make(chan int, 1)
	m.follow(context.Background(), []string{"anvil"}, domain.ComposeOptions{}, func(code int) { exits <- code })

	select {
	case <-exits:
		t.Fatal("unexpected exit")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestNewMultiplexer_ClearsNoiseAtVerbosityTwo(t *testing.T) {
	filter := NewFilter(defaultIgnore, defaultExit)
	require.True(t, filter.IsNoise([]byte("eth_call")))

	NewMultiplexer(&fakeStreamer{}, filter, &domain.Config{Options: domain.Options{Verbosity: 2}},
		usecase.Streams{Out: io.Discard, Err: io.Discard}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.False(t, filter.IsNoise([]byte("eth_call")))
	assert.True(t, filter.IsExit([]byte("exited with code 1")))
}

func TestNewFilter_CopiesPatterns(t *testing.T) {
	ignore := []string{"eth_call", ""}
	filter := NewFilter(ignore, nil)
	ignore[0] = "changed"

	assert.True(t, filter.IsNoise([]byte("x eth_call y")))
	assert.False(t, filter.IsNoise([]byte("anything")))
	assert.False(t, filter.IsExit([]byte("exited with code 1")))
}
