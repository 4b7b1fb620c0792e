// Package rworker runs jobs with a bounded number of goroutines.
package rworker

import (
	"errors"
	"sync"
)

type Pool struct {
	wg   sync.WaitGroup
	rate chan struct{}
	mtx  sync.Mutex
	errs []error
}

// New returns a pool running at most n jobs at a time. n < 1 is treated as 1.
func New(n int) *Pool {
	if n < 1 {
		n = 1
	}
	return &Pool{rate: make(chan struct{}, n)}
}

// Job schedules fn. It does not wait for a free slot.
func (p *Pool) Job(fn func() error) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.rate <- struct{}{}
		defer func() { <-p.rate }()
		if err := fn(); err != nil {
			p.mtx.Lock()
			p.errs = append(p.errs, err)
			p.mtx.Unlock()
		}
	}()
}

// Wait blocks until every scheduled job returned and joins their errors.
func (p *Pool) Wait() error {
	p.wg.Wait()
	p.mtx.Lock()
	defer p.mtx.Unlock()
	err := errors.Join(p.errs...)
	p.errs = nil
	return err
}
