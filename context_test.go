package binlog

import (
	"testing"

	"github.com/google/uuid"
)

func TestLogContextTableMapLRUEviction(t *testing.T) {
	c := NewLogContext(2)
	c.PutTableMap(1, &TableMapEvent{})
	c.PutTableMap(2, &TableMapEvent{})
	c.PutTableMap(3, &TableMapEvent{})

	if _, ok := c.GetTableMap(1); ok {
		t.Fatal("table 1 should have been evicted")
	}
	if _, ok := c.GetTableMap(2); !ok {
		t.Fatal("table 2 should still be cached")
	}
	if _, ok := c.GetTableMap(3); !ok {
		t.Fatal("table 3 should still be cached")
	}
}

func TestLogContextGetRefreshesRecency(t *testing.T) {
	c := NewLogContext(2)
	c.PutTableMap(1, &TableMapEvent{})
	c.PutTableMap(2, &TableMapEvent{})
	c.GetTableMap(1) // touch 1, making 2 the LRU entry
	c.PutTableMap(3, &TableMapEvent{})

	if _, ok := c.GetTableMap(2); ok {
		t.Fatal("table 2 should have been evicted after being passed over")
	}
	if _, ok := c.GetTableMap(1); !ok {
		t.Fatal("table 1 should still be cached")
	}
}

func TestLogContextClearTableMaps(t *testing.T) {
	c := NewLogContext(10)
	c.PutTableMap(1, &TableMapEvent{})
	c.ClearTableMaps()
	if _, ok := c.GetTableMap(1); ok {
		t.Fatal("expected table map cache to be empty after ClearTableMaps")
	}
}

func TestLogContextGtidTracking(t *testing.T) {
	c := NewLogContext(10)
	sid := uuid.MustParse("726757ad-4455-11e8-ae04-0242ac110002")
	c.UpdateGtid(sid, 1)
	c.UpdateGtid(sid, 2)
	if !c.GtidSet().Sets[sid].Contains(2) {
		t.Fatal("expected gtid set to contain transaction 2")
	}
}

func TestLogContextStats(t *testing.T) {
	c := NewLogContext(10)
	c.RecordEvent(100)
	c.RecordEvent(50)
	stats := c.Stats()
	if stats.EventsProcessed != 2 {
		t.Fatalf("got %d events, want 2", stats.EventsProcessed)
	}
	if stats.BytesConsumed != 150 {
		t.Fatalf("got %d bytes, want 150", stats.BytesConsumed)
	}
}

func TestLogContextPositionTracking(t *testing.T) {
	c := NewLogContext(10)
	c.SetPosition("binlog.000001", 4)
	c.AdvancePosition(120)
	if c.LogFileName() != "binlog.000001" {
		t.Fatalf("got file %q", c.LogFileName())
	}
	if c.Position() != 124 {
		t.Fatalf("got position %d, want 124", c.Position())
	}
}
