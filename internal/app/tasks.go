package app

import "sync"

// TaskGroup schedules detached background tasks. It exists so callers that
// need determinism (shutdown, tests) can wait for in-flight tasks to drain
// instead of relying on bare goroutines.
type TaskGroup struct {
	wg sync.WaitGroup
}

// Go runs fn on its own goroutine. There is no return channel and no
// retry; the task communicates through its own side effects.
func (g *TaskGroup) Go(fn func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		fn()
	}()
}

// Wait blocks until all scheduled tasks have finished.
func (g *TaskGroup) Wait() {
	g.wg.Wait()
}
