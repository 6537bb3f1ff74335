package watcher

import (
	"sort"
	"sync"
	"time"
)

// debouncer coalesces bursts of file events into a single handler
// invocation per quiet period. Handler failures are routed through
// onError rather than swallowed.
type debouncer struct {
	delay   time.Duration
	pending map[string]FileChangeEvent
	timer   *time.Timer
	mutex   sync.Mutex
	onError func(error)
}

func newDebouncer(delay time.Duration, onError func(error)) *debouncer {
	return &debouncer{
		delay:   delay,
		pending: make(map[string]FileChangeEvent),
		onError: onError,
	}
}

func (d *debouncer) add(event FileChangeEvent, handler FileChangeHandler) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.pending[event.Path] = event
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.flush(handler)
	})
}

// flush drains the pending set and runs the handler outside the lock,
// so a slow re-analysis never blocks incoming events.
func (d *debouncer) flush(handler FileChangeHandler) {
	d.mutex.Lock()
	if len(d.pending) == 0 {
		d.mutex.Unlock()
		return
	}
	changed := make([]string, 0, len(d.pending))
	for path := range d.pending {
		changed = append(changed, path)
	}
	d.pending = make(map[string]FileChangeEvent)
	d.mutex.Unlock()

	sort.Strings(changed)
	if err := handler(changed); err != nil && d.onError != nil {
		d.onError(err)
	}
}

func (d *debouncer) stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
