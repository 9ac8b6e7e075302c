package transcription

import (
	"sync"
	"testing"
)

func TestQueuePushAndDrain(t *testing.T) {
	q := NewQueue()

	q.Push(Result{Text: "first", CapturedAt: 1.0})
	q.Push(Result{Text: "second", CapturedAt: 2.0})
	q.Push(Result{Text: "third", CapturedAt: 3.0})

	if q.Len() != 3 {
		t.Errorf("Expected 3 queued results, got %d", q.Len())
	}

	results := q.Drain()
	if len(results) != 3 {
		t.Fatalf("Expected 3 drained results, got %d", len(results))
	}

	// FIFO order
	for i, want := range []string{"first", "second", "third"} {
		if results[i].Text != want {
			t.Errorf("Result %d: expected %q, got %q", i, want, results[i].Text)
		}
	}

	if q.Len() != 0 {
		t.Errorf("Queue should be empty after drain, got %d", q.Len())
	}
}

func TestQueueDrainEmpty(t *testing.T) {
	q := NewQueue()

	results := q.Drain()
	if results == nil {
		t.Fatal("Drain on empty queue must return an empty slice, not nil")
	}
	if len(results) != 0 {
		t.Errorf("Expected 0 results, got %d", len(results))
	}
}

func TestQueueDoubleDrain(t *testing.T) {
	q := NewQueue()

	q.Push(Result{Text: "only"})

	first := q.Drain()
	if len(first) != 1 {
		t.Fatalf("Expected 1 result from first drain, got %d", len(first))
	}

	second := q.Drain()
	if len(second) != 0 {
		t.Errorf("Second drain must return nothing, got %d results", len(second))
	}
}

func TestQueuePushAfterDrain(t *testing.T) {
	q := NewQueue()

	q.Push(Result{Text: "a"})
	q.Drain()
	q.Push(Result{Text: "b"})

	results := q.Drain()
	if len(results) != 1 || results[0].Text != "b" {
		t.Errorf("Expected single result 'b', got %v", results)
	}
}

func TestQueueConcurrentAccess(t *testing.T) {
	q := NewQueue()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Push(Result{Text: "x"})
			}
		}()
	}
	wg.Wait()

	results := q.Drain()
	if len(results) != 1000 {
		t.Errorf("Expected 1000 results, got %d", len(results))
	}

	stats := q.GetStats()
	if stats.TotalPushed != 1000 {
		t.Errorf("Expected 1000 pushed, got %d", stats.TotalPushed)
	}
	if stats.TotalDrained != 1000 {
		t.Errorf("Expected 1000 drained, got %d", stats.TotalDrained)
	}
	if stats.Pending != 0 {
		t.Errorf("Expected 0 pending, got %d", stats.Pending)
	}
}
