package binlog

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// fileMagic is the 4-byte preamble every on-disk binlog file begins with.
var fileMagic = []byte{0xfe, 'b', 'i', 'n'}

// Frame is one length-delimited event frame: the raw common-header bytes
// and the payload window that follows (header_len..event_length),
// including the trailing CRC32 when checksums are enabled. Frame does not
// interpret the payload; that is the event decoder's job.
type Frame struct {
	Header  []byte
	Payload []byte
}

// Framer splits an append-only byte stream into event frames by reading
// event_length out of the common header, mirroring the reader's
// ensure/skip buffering discipline but operating over plain byte slices
// instead of a connection.
//
// Framer does not itself track binlog version or format description
// state; callers operating against a v1 source set HeaderLen to 13
// before the first Feed/ReadOne call.
type Framer struct {
	HeaderLen int // common header length; 19 for v4, 13 for v1

	buf      []byte
	sawMagic bool
}

// NewFramer returns a Framer expecting a v4 (19-byte) common header and
// the standard file magic as its first four bytes.
func NewFramer() *Framer {
	return &Framer{HeaderLen: 19}
}

// SkipMagic tells the framer the source is already positioned past the
// file preamble (e.g. resuming mid-file), so the next Feed should not
// expect it.
func (f *Framer) SkipMagic() { f.sawMagic = true }

// Feed appends data to the framer's retained tail and returns every
// complete frame that can now be extracted. Incomplete trailing bytes are
// kept for the next call.
func (f *Framer) Feed(data []byte) ([]Frame, error) {
	f.buf = append(f.buf, data...)

	if !f.sawMagic {
		if len(f.buf) < len(fileMagic) {
			return nil, nil
		}
		if !bytes.Equal(f.buf[:len(fileMagic)], fileMagic) {
			return nil, fmt.Errorf("binlog: invalid file magic")
		}
		f.buf = f.buf[len(fileMagic):]
		f.sawMagic = true
	}

	var frames []Frame
	for {
		if len(f.buf) < f.HeaderLen {
			break
		}
		eventLength := binary.LittleEndian.Uint32(f.buf[9:13])
		if eventLength < uint32(f.HeaderLen) {
			return frames, fmt.Errorf("binlog: malformed header: event_length %d < header_len %d", eventLength, f.HeaderLen)
		}
		if len(f.buf) < int(eventLength) {
			break
		}
		header := append([]byte(nil), f.buf[:f.HeaderLen]...)
		payload := append([]byte(nil), f.buf[f.HeaderLen:eventLength]...)
		frames = append(frames, Frame{Header: header, Payload: payload})
		f.buf = f.buf[eventLength:]
	}
	return frames, nil
}

// ReadOne reads exactly one frame from r: the common header, then
// event_length-header_len payload bytes. Used by file-mode sources that
// seek directly to an event boundary instead of streaming through Feed.
func (f *Framer) ReadOne(r io.Reader) (Frame, error) {
	header := make([]byte, f.HeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return Frame{}, err
	}
	eventLength := binary.LittleEndian.Uint32(header[9:13])
	if eventLength < uint32(f.HeaderLen) {
		return Frame{}, fmt.Errorf("binlog: malformed header: event_length %d < header_len %d", eventLength, f.HeaderLen)
	}
	payload := make([]byte, eventLength-uint32(f.HeaderLen))
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, err
	}
	return Frame{Header: header, Payload: payload}, nil
}
