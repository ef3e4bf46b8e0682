package relaylog

import (
	"context"
	"testing"
	"time"
)

func TestQueueTryPushRespectsCapacity(t *testing.T) {
	q := NewQueue(2)
	if !q.TryPush("a") {
		t.Fatal("expected push 1 to succeed")
	}
	if !q.TryPush("b") {
		t.Fatal("expected push 2 to succeed")
	}
	if q.TryPush("c") {
		t.Fatal("expected push 3 to report NeedsCapacity (false)")
	}
	if !q.IsFull() {
		t.Fatal("expected queue to report full")
	}
}

func TestQueueTryPopOrder(t *testing.T) {
	q := NewQueue(4)
	q.TryPush(1)
	q.TryPush(2)
	q.TryPush(3)

	v, ok := q.TryPop()
	if !ok || v != 1 {
		t.Fatalf("got %v,%v want 1,true", v, ok)
	}
	if q.Len() != 2 {
		t.Fatalf("got len %d, want 2", q.Len())
	}
}

func TestQueuePopBlocksUntilPush(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan struct{})
	var got interface{}
	go func() {
		got, _ = q.Pop(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	q.TryPush("hello")

	<-done
	if got != "hello" {
		t.Fatalf("got %v, want hello", got)
	}
}

func TestQueuePushBlocksThenContextCancel(t *testing.T) {
	q := NewQueue(1)
	q.TryPush("fill")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := q.Push(ctx, "overflow")
	if err == nil {
		t.Fatal("expected context deadline error when queue stays full")
	}
}

func TestManagerGetOrCreateIsStableAndIsolated(t *testing.T) {
	m := NewManager(4)
	q1 := m.GetOrCreate(1)
	q1b := m.GetOrCreate(1)
	if q1 != q1b {
		t.Fatal("expected GetOrCreate to return the same queue for the same shard")
	}

	q2 := m.GetOrCreate(2)
	q1.TryPush("for-shard-1")
	if q2.Len() != 0 {
		t.Fatal("expected shards to be isolated from each other")
	}

	shards := m.Shards()
	if len(shards) != 2 {
		t.Fatalf("got %d shards, want 2", len(shards))
	}

	m.Remove(1)
	if len(m.Shards()) != 1 {
		t.Fatal("expected shard 1 to be removed")
	}
}
