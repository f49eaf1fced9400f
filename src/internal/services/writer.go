package services

import "sync"

// orderedWriter runs store writes one at a time in submission order on a
// single background goroutine. push never blocks on the write itself; the
// goroutine exits when the queue drains and is restarted by the next push.
type orderedWriter struct {
	mu      sync.Mutex
	settled *sync.Cond
	pending []func()
	running bool
}

func newOrderedWriter() *orderedWriter {
	w := &orderedWriter{}
	w.settled = sync.NewCond(&w.mu)
	return w
}

func (w *orderedWriter) push(job func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, job)
	if !w.running {
		w.running = true
		go w.drain()
	}
}

func (w *orderedWriter) drain() {
	w.mu.Lock()
	for len(w.pending) > 0 {
		job := w.pending[0]
		w.pending[0] = nil
		w.pending = w.pending[1:]
		w.mu.Unlock()

		job()

		w.mu.Lock()
	}
	w.running = false
	w.settled.Broadcast()
	w.mu.Unlock()
}

// wait blocks until every job pushed so far has run.
func (w *orderedWriter) wait() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.running {
		w.settled.Wait()
	}
}
