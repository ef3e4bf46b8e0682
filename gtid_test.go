package binlog

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/google/uuid"
)

func TestGtidSetParseDisplay(t *testing.T) {
	const in = "726757ad-4455-11e8-ae04-0242ac110002:1-3:7-9"
	gs, err := ParseGtidSet(in)
	if err != nil {
		t.Fatal(err)
	}
	if got := gs.String(); got != in {
		t.Fatalf("got %q want %q", got, in)
	}
}

func TestGtidSetParseMultipleUuids(t *testing.T) {
	const in = "726757ad-4455-11e8-ae04-0242ac110002:1-3:7-9,8a94f357-aab4-11df-86ab-c80aa9429562:5"
	gs, err := ParseGtidSet(in)
	if err != nil {
		t.Fatal(err)
	}
	if len(gs.Sets) != 2 {
		t.Fatalf("got %d uuid sets, want 2", len(gs.Sets))
	}
	if got := gs.String(); got != in {
		t.Fatalf("got %q want %q", got, in)
	}
}

func TestUuidSetAddTransactionCoalesces(t *testing.T) {
	us := &UuidSet{}
	for _, n := range []uint64{1, 2, 3, 7, 8, 9} {
		us.AddTransaction(n)
	}
	want := "1-3:7-9"
	var got string
	for i, iv := range us.Intervals {
		if i > 0 {
			got += ":"
		}
		got += iv.String()
	}
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestGtidSetAddContains(t *testing.T) {
	gs := NewGtidSet()
	sid := uuid.MustParse("726757ad-4455-11e8-ae04-0242ac110002")
	for n := uint64(1); n <= 100; n++ {
		gs.AddGtid(sid, n)
		if !gs.Sets[sid].Contains(n) {
			t.Fatalf("Contains(%d) == false right after AddGtid", n)
		}
	}
	if len(gs.Sets[sid].Intervals) != 1 {
		t.Fatalf("got %d intervals, want 1 after contiguous inserts", len(gs.Sets[sid].Intervals))
	}
}

func TestIntervalsNeverAdjacentAfterCoalesce(t *testing.T) {
	us := &UuidSet{}
	for _, n := range []uint64{5, 1, 9, 2, 8, 3} {
		us.AddTransaction(n)
	}
	for i := 1; i < len(us.Intervals); i++ {
		prev, cur := us.Intervals[i-1], us.Intervals[i]
		if prev.Stop+1 >= cur.Start {
			t.Fatalf("intervals %v and %v should have coalesced", prev, cur)
		}
		if prev.Start > prev.Stop || cur.Start > cur.Stop {
			t.Fatalf("malformed interval order in %v", us.Intervals)
		}
	}
}

// TestDecodeGtidSetHalfOpenToClosedConversion builds a raw
// PREVIOUS_GTIDS_EVENT payload declaring one uuid with wire intervals
// [1,4) and [7,10), and checks it decodes to the closed intervals 1-3:7-9.
func TestDecodeGtidSetHalfOpenToClosedConversion(t *testing.T) {
	sid := uuid.MustParse("726757ad-4455-11e8-ae04-0242ac110002")

	var buf bytes.Buffer
	writeU64 := func(v uint64) {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v)
		buf.Write(b[:])
	}
	writeU64(1) // n_sids
	sidBytes, _ := sid.MarshalBinary()
	buf.Write(sidBytes)
	writeU64(2) // n_intervals
	writeU64(1)
	writeU64(4)
	writeU64(7)
	writeU64(10)

	var seq uint8
	packet := newPacketData(buf.Bytes())
	r := newReader(bytes.NewReader(packet), &seq)

	gs, err := decodeGtidSet(r)
	if err != nil {
		t.Fatal(err)
	}
	us, ok := gs.Sets[sid]
	if !ok {
		t.Fatal("missing decoded uuid set")
	}
	want := "1-3:7-9"
	var got string
	for i, iv := range us.Intervals {
		if i > 0 {
			got += ":"
		}
		got += iv.String()
	}
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
