// Package iqueue is an unbounded FIFO between a producer and a consumer
// goroutine. Send never blocks for long: values are parked in a list until
// the consumer is ready.
package iqueue

import (
	"container/list"
)

func New[T any]() *Queue[T] {
	return &Queue[T]{
		queue: list.New(),
		send:  make(chan T, 1),
		recv:  make(chan T, 1),
	}
}

type Queue[T any] struct {
	queue *list.List
	send  chan T
	recv  chan T
}

// Send must not be called after Close.
func (iq *Queue[T]) Send(v T) {
	iq.send <- v
}

// Receive is closed once the queue is closed and every pending value has been
// delivered.
func (iq *Queue[T]) Receive() <-chan T {
	return iq.recv
}

func (iq *Queue[T]) Close() {
	close(iq.send)
}

// Loop moves values from Send to Receive. It returns after Close, once the
// backlog is drained.
func (iq *Queue[T]) Loop() {
	send := iq.send
	for {
		front := iq.queue.Front()
		if front != nil {
			select {
			case iq.recv <- front.Value.(T):
				iq.queue.Remove(front)
			case value, ok := <-send:
				if ok {
					iq.queue.PushBack(value)
				} else {
					send = nil
				}
			}
			continue
		}

		if send == nil {
			close(iq.recv)
			return
		}
		value, ok := <-send
		if !ok {
			close(iq.recv)
			return
		}
		iq.queue.PushBack(value)
	}
}
