package binlog

import "testing"

func decoderReturning(v interface{}) EventDecoderFunc {
	return func(h EventHeader, r *reader) (interface{}, error) { return v, nil }
}

func TestRegistryHighestPriorityWins(t *testing.T) {
	reg := NewDecoderRegistry(ConflictHighestPriorityWins)
	if err := reg.Register(XID_EVENT, "low", PriorityLow, decoderReturning("low")); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(XID_EVENT, "high", PriorityHigh, decoderReturning("high")); err != nil {
		t.Fatal(err)
	}
	v, err := reg.Decode(EventHeader{EventType: XID_EVENT}, &reader{})
	if err != nil {
		t.Fatal(err)
	}
	if v != "high" {
		t.Fatalf("got %v, want %q", v, "high")
	}
}

func TestRegistryMostRecentWins(t *testing.T) {
	reg := NewDecoderRegistry(ConflictMostRecentWins)
	_ = reg.Register(XID_EVENT, "first", PriorityHigh, decoderReturning("first"))
	_ = reg.Register(XID_EVENT, "second", PriorityLow, decoderReturning("second"))
	v, err := reg.Decode(EventHeader{EventType: XID_EVENT}, &reader{})
	if err != nil {
		t.Fatal(err)
	}
	if v != "second" {
		t.Fatalf("got %v, want %q", v, "second")
	}
}

func TestRegistryFirstWins(t *testing.T) {
	reg := NewDecoderRegistry(ConflictFirstWins)
	_ = reg.Register(XID_EVENT, "first", PriorityLow, decoderReturning("first"))
	_ = reg.Register(XID_EVENT, "second", PriorityHigh, decoderReturning("second"))
	v, err := reg.Decode(EventHeader{EventType: XID_EVENT}, &reader{})
	if err != nil {
		t.Fatal(err)
	}
	if v != "first" {
		t.Fatalf("got %v, want %q", v, "first")
	}
}

func TestRegistryConflictFail(t *testing.T) {
	reg := NewDecoderRegistry(ConflictFail)
	if err := reg.Register(XID_EVENT, "first", PriorityDefault, decoderReturning("first")); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(XID_EVENT, "second", PriorityDefault, decoderReturning("second")); err == nil {
		t.Fatal("expected error registering a second decoder under ConflictFail")
	}
}

func TestRegistryUnsupportedEventType(t *testing.T) {
	reg := NewDecoderRegistry(ConflictHighestPriorityWins)
	_, err := reg.Decode(EventHeader{EventType: XID_EVENT}, &reader{})
	if err == nil {
		t.Fatal("expected error for unregistered event type")
	}
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("got %T, want *ParseError", err)
	}
	if pe.Kind != KindUnsupportedEventType {
		t.Fatalf("got kind %v, want KindUnsupportedEventType", pe.Kind)
	}
}

func TestGlobalRegistryCanDecodeKnownTypes(t *testing.T) {
	for _, typ := range []EventType{
		FORMAT_DESCRIPTION_EVENT, ROTATE_EVENT, TABLE_MAP_EVENT, QUERY_EVENT,
		XID_EVENT, GTID_EVENT, ANONYMOUS_GTID_EVENT, PREVIOUS_GTIDS_EVENT,
		WRITE_ROWS_EVENTv2, UPDATE_ROWS_EVENTv2, DELETE_ROWS_EVENTv2,
	} {
		if !globalRegistry.CanDecode(typ) {
			t.Errorf("globalRegistry.CanDecode(%s) == false", typ)
		}
	}
}
