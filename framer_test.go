package binlog

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
)

func fakeEvent(eventType byte, payload []byte) []byte {
	const headerLen = 19
	b := make([]byte, headerLen+len(payload))
	// timestamp
	binary.LittleEndian.PutUint32(b[0:4], 0)
	b[4] = eventType
	// server id
	binary.LittleEndian.PutUint32(b[5:9], 1)
	binary.LittleEndian.PutUint32(b[9:13], uint32(len(b)))
	// next pos
	binary.LittleEndian.PutUint32(b[13:17], uint32(len(b)))
	// flags
	binary.LittleEndian.PutUint16(b[17:19], 0)
	copy(b[headerLen:], payload)
	return b
}

func TestFramerFeedWholeStream(t *testing.T) {
	stream := append([]byte{}, fileMagic...)
	ev1 := fakeEvent(byte(QUERY_EVENT), []byte("hello"))
	ev2 := fakeEvent(byte(XID_EVENT), []byte("world"))
	stream = append(stream, ev1...)
	stream = append(stream, ev2...)

	f := NewFramer()
	frames, err := f.Feed(stream)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if !bytes.Equal(frames[0].Payload, []byte("hello")) {
		t.Fatalf("frame 0 payload mismatch: %q", frames[0].Payload)
	}
	if !bytes.Equal(frames[1].Payload, []byte("world")) {
		t.Fatalf("frame 1 payload mismatch: %q", frames[1].Payload)
	}
}

// TestFramerFeedSplitAcrossCalls checks the resume property: any split of
// a valid stream across two Feed calls yields the same frames as one Feed
// call over the whole thing.
func TestFramerFeedSplitAcrossCalls(t *testing.T) {
	stream := append([]byte{}, fileMagic...)
	ev1 := fakeEvent(byte(QUERY_EVENT), []byte("hello"))
	ev2 := fakeEvent(byte(XID_EVENT), []byte("world"))
	stream = append(stream, ev1...)
	stream = append(stream, ev2...)

	for split := 0; split <= len(stream); split++ {
		f := NewFramer()
		frames, err := f.Feed(stream[:split])
		if err != nil {
			t.Fatalf("split %d: %v", split, err)
		}
		more, err := f.Feed(stream[split:])
		if err != nil {
			t.Fatalf("split %d (tail): %v", split, err)
		}
		frames = append(frames, more...)
		if len(frames) != 2 {
			t.Fatalf("split %d: got %d frames, want 2", split, len(frames))
		}
		if !bytes.Equal(frames[0].Payload, []byte("hello")) || !bytes.Equal(frames[1].Payload, []byte("world")) {
			t.Fatalf("split %d: payload mismatch: %v", split, frames)
		}
	}
}

func TestFramerInvalidMagic(t *testing.T) {
	f := NewFramer()
	_, err := f.Feed([]byte{0x00, 0x00, 0x00, 0x00})
	if err == nil {
		t.Fatal("expected error for invalid magic")
	}
}

func TestFramerReadOne(t *testing.T) {
	ev := fakeEvent(byte(XID_EVENT), []byte("payload-bytes"))
	f := NewFramer()
	frame, err := f.ReadOne(bytes.NewReader(ev))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(frame.Payload, []byte("payload-bytes")) {
		t.Fatalf("got %q", frame.Payload)
	}
	if _, err := f.ReadOne(bytes.NewReader(nil)); err != io.EOF {
		t.Fatalf("got %v, want io.EOF", err)
	}
}
