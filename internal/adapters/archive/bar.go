package archive

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
)

const stopTimeout = 2 * time.Second

// bar renders byte progress for a single archive operation
type bar struct {
	writer  progress.Writer
	tracker *progress.Tracker
	enabled bool
	done    chan struct{}
}

func newBar(out io.Writer, name string, total int64, enabled bool) *bar {
	b := &bar{
		tracker: &progress.Tracker{Message: name, Total: total, Units: progress.UnitsBytes},
		enabled: enabled,
		done:    make(chan struct{}),
	}
	if !enabled {
		close(b.done)
		return b
	}

	pw := progress.NewWriter()
	pw.SetOutputWriter(out)
	pw.SetAutoStop(true)
	pw.SetTrackerLength(40)
	pw.SetUpdateFrequency(200 * time.Millisecond)
	pw.SetStyle(progress.StyleBlocks)
	pw.Style().Visibility.ETA = false
	pw.Style().Visibility.Speed = true
	pw.AppendTracker(b.tracker)
	b.writer = pw

	go func() {
		defer close(b.done)
		pw.Render()
	}()
	return b
}

// Reader counts bytes read from r towards the bar
func (b *bar) Reader(r io.Reader) io.Reader {
	return &countingReader{r: r, tracker: b.tracker}
}

// Stop completes the bar and waits for the renderer to notice
func (b *bar) Stop() {
	if !b.enabled {
		return
	}
	b.tracker.MarkAsDone()
	select {
	case <-b.done:
	case <-time.After(stopTimeout):
		b.writer.Stop()
	}
}

type countingReader struct {
	r       io.Reader
	tracker *progress.Tracker
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.tracker.Increment(int64(n))
	}
	return n, err
}
