package utils

import (
	"context"
	"sync"

	"go.uber.org/atomic"
	goutils "go.viam.com/utils"
)

// StoppableWorkers runs goroutines that share one context and are stopped together. Once
// stopped, AddWorkers starts nothing.
type StoppableWorkers interface {
	AddWorkers(...func(context.Context))
	Stop()
	Context() context.Context
	// Running is the number of workers that have not returned yet.
	Running() int64
}

// workerGroup is only handed out behind the interface so the WaitGroup is never copied.
type workerGroup struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	wg      sync.WaitGroup
	running *atomic.Int64
}

// NewStoppableWorkers starts funcs, each in its own goroutine.
func NewStoppableWorkers(funcs ...func(context.Context)) StoppableWorkers {
	return NewStoppableWorkersWithContext(context.Background(), funcs...)
}

// NewStoppableWorkersWithContext is NewStoppableWorkers with the shared context derived from
// parent, so the workers are also told to stop when parent ends.
func NewStoppableWorkersWithContext(parent context.Context, funcs ...func(context.Context)) StoppableWorkers {
	ctx, cancel := context.WithCancel(parent)
	group := &workerGroup{ctx: ctx, cancel: cancel, running: atomic.NewInt64(0)}
	group.AddWorkers(funcs...)
	return group
}

// AddWorkers starts funcs unless the group has been stopped. A panicking worker is logged and
// counted as returned.
func (group *workerGroup) AddWorkers(funcs ...func(context.Context)) {
	group.mu.Lock()
	defer group.mu.Unlock()
	if group.ctx.Err() != nil {
		return
	}

	group.wg.Add(len(funcs))
	group.running.Add(int64(len(funcs)))
	for _, f := range funcs {
		goutils.PanicCapturingGo(func() {
			defer group.wg.Done()
			defer group.running.Dec()
			f(group.ctx)
		})
	}
}

// Stop cancels the shared context and waits for every worker to return.
func (group *workerGroup) Stop() {
	group.mu.Lock()
	group.cancel()
	group.mu.Unlock()

	group.wg.Wait()
}

// Context is the context handed to every worker.
func (group *workerGroup) Context() context.Context {
	return group.ctx
}

func (group *workerGroup) Running() int64 {
	return group.running.Load()
}
