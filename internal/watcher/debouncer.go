package watcher

import (
	"sync"
	"time"

	"github.com/BarrensZeppelin/cspta/internal/maps"
)

// debouncer collects file names and flushes them once no new name has
// arrived for delay. Flushes never overlap.
type debouncer struct {
	delay   time.Duration
	pending map[string]bool
	timer   *time.Timer
	mu      sync.Mutex
	stopped bool

	// held for the duration of a flush callback
	running sync.Mutex
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		pending: make(map[string]bool),
	}
}

func (d *debouncer) add(name string, flush func([]string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.pending[name] = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.flush(flush) })
}

func (d *debouncer) flush(flush func([]string)) {
	d.running.Lock()
	defer d.running.Unlock()

	d.mu.Lock()
	if d.stopped || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	names := maps.SortedKeys(d.pending)
	d.pending = make(map[string]bool)
	d.mu.Unlock()

	flush(names)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
