package worker

import (
	"sync"

	"social-scheduler/infrastructure/logger"
)

// Pool runs submitted tasks with bounded concurrency. Used by the dispatcher
// so one sweep's posts publish in parallel without an unbounded goroutine
// fan-out.
type Pool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Submit schedules fn; blocks only while all workers are busy. Panics inside
// fn are recovered and logged so a bad task cannot take the pool down.
func (p *Pool) Submit(fn func()) {
	p.wg.Add(1)
	p.sem <- struct{}{}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.GetLogger().WithField("panic", r).Error("worker task panicked")
			}
			<-p.sem
			p.wg.Done()
		}()
		fn()
	}()
}

// Wait blocks until every submitted task has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}
