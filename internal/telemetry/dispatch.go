package telemetry

import "sync"

// Dispatcher serializes work per key while letting different keys run
// concurrently. All functions enqueued under one key execute in FIFO order on
// a single goroutine; the goroutine exits once its queue drains.
type Dispatcher struct {
	mu     sync.Mutex
	queues map[string][]func()
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{queues: make(map[string][]func())}
}

// Enqueue schedules fn under key. It reports false when the dispatcher is
// already closed and the function was dropped.
func (d *Dispatcher) Enqueue(key string, fn func()) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	// A key present in the map means a drain goroutine owns it, even when its
	// queue is momentarily empty. Only start a worker for an absent key, so a
	// single goroutine ever runs functions for a given key.
	_, active := d.queues[key]
	d.queues[key] = append(d.queues[key], fn)
	if !active {
		d.wg.Add(1)
		go d.drain(key)
	}
	d.mu.Unlock()
	return true
}

// Close stops accepting new work and blocks until all queued work finishes.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) drain(key string) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		queue := d.queues[key]
		if len(queue) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		fn := queue[0]
		d.queues[key] = queue[1:]
		d.mu.Unlock()

		fn()
	}
}
