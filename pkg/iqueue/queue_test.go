package iqueue

import (
	"testing"
	"time"
)

func TestQueue_Order(t *testing.T) {
	tests := []struct {
		name  string
		items []int
	}{
		{name: "empty", items: nil},
		{name: "single", items: []int{1}},
		{name: "backlog", items: []int{5, 4, 3, 2, 1, 0, 10, 20, 30}},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			q := New[int]()
			go q.Loop()
			for _, v := range test.items {
				q.Send(v)
			}
			q.Close()

			var got []int
			for v := range q.Receive() {
				got = append(got, v)
			}
			if len(got) != len(test.items) {
				t.Fatalf("received len got: %v, expected: %v", len(got), len(test.items))
			}
			for i := range got {
				if got[i] != test.items[i] {
					t.Errorf("item %d got: %v, expected: %v", i, got[i], test.items[i])
				}
			}
		})
	}
}

func TestQueue_SendDoesNotWaitForConsumer(t *testing.T) {
	q := New[string]()
	go q.Loop()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			q.Send("x")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("producer blocked without a consumer")
	}

	q.Close()
	n := 0
	for range q.Receive() {
		n++
	}
	if n != 1000 {
		t.Errorf("received got: %v, expected: %v", n, 1000)
	}
}
