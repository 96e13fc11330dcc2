// Package logs streams growing agent log files to subscribers.
package logs

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// DefaultPollInterval is how often the tailer checks the file for growth.
const DefaultPollInterval = 500 * time.Millisecond

// subscriberBuffer bounds how far a slow subscriber may lag before lines
// are dropped for it.
const subscriberBuffer = 256

// Tailer follows a growing log file via periodic size-delta reads and
// pushes new lines to any number of concurrent subscribers. A subscriber
// can join mid-stream with a tail of recent lines and then continue
// following.
type Tailer struct {
	path     string
	interval time.Duration

	mu      sync.Mutex
	subs    map[int]chan string
	nextID  int
	offset  int64
	partial string
	running bool
}

// NewTailer creates a tailer for the given path. interval <= 0 selects
// the default.
func NewTailer(path string, interval time.Duration) *Tailer {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Tailer{
		path:     path,
		interval: interval,
		subs:     make(map[int]chan string),
	}
}

// Follow runs the poll loop until the context is cancelled. Call it in
// its own goroutine; subscribers receive every complete line appended
// after their subscription.
func (t *Tailer) Follow(ctx context.Context) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	// Start at the current end; history is served by Subscribe's tail.
	if info, err := os.Stat(t.path); err == nil {
		t.offset = info.Size()
	}
	t.mu.Unlock()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.mu.Lock()
			t.running = false
			for id, ch := range t.subs {
				close(ch)
				delete(t.subs, id)
			}
			t.mu.Unlock()
			return
		case <-ticker.C:
			t.poll()
		}
	}
}

// poll reads any bytes appended since the last check and broadcasts the
// complete lines among them.
func (t *Tailer) poll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	info, err := os.Stat(t.path)
	if err != nil {
		return
	}
	size := info.Size()
	if size < t.offset {
		// File was truncated or rotated; start over from the top.
		t.offset = 0
		t.partial = ""
	}
	if size == t.offset {
		return
	}

	f, err := os.Open(t.path)
	if err != nil {
		return
	}
	defer f.Close()

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return
	}
	delta := make([]byte, size-t.offset)
	n, err := io.ReadFull(f, delta)
	if err != nil && err != io.ErrUnexpectedEOF {
		return
	}
	t.offset += int64(n)

	chunk := t.partial + string(delta[:n])
	lines := strings.Split(chunk, "\n")
	// The last element is either empty (chunk ended on a newline) or an
	// incomplete line carried into the next poll.
	t.partial = lines[len(lines)-1]

	for _, line := range lines[:len(lines)-1] {
		for _, ch := range t.subs {
			select {
			case ch <- line:
			default:
				// Subscriber is not keeping up; drop rather than stall
				// every other consumer.
			}
		}
	}
}

// Subscribe registers a consumer. The returned channel first carries up
// to tailN existing lines from the end of the file, then every new line.
// The unsubscribe func must be called exactly once; it closes the channel.
func (t *Tailer) Subscribe(tailN int) (<-chan string, func(), error) {
	history, err := TailLines(t.path, tailN)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan string, subscriberBuffer+len(history))
	for _, line := range history {
		ch <- line
	}

	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = ch
	t.mu.Unlock()

	unsubscribe := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if _, ok := t.subs[id]; ok {
			delete(t.subs, id)
			close(ch)
		}
	}
	return ch, unsubscribe, nil
}

// SubscriberCount returns the number of active subscribers.
func (t *Tailer) SubscriberCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// TailLines returns the last n complete lines of the file. A missing
// file yields no lines; n <= 0 yields no lines.
func TailLines(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read log %s: %w", path, err)
	}

	content := strings.TrimSuffix(string(raw), "\n")
	if content == "" {
		return nil, nil
	}
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
