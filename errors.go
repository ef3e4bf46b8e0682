package binlog

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is a closed set of error categories a consumer can switch on without
// parsing error strings.
type Kind int

const (
	// KindUnknown is the zero value; never returned by this package.
	KindUnknown Kind = iota
	// KindNeedMoreData means the framer was given an incomplete frame and
	// should be fed more bytes before retrying.
	KindNeedMoreData
	// KindMalformedHeader means an event header failed basic structural
	// checks (bad magic, truncated fixed fields).
	KindMalformedHeader
	// KindMissingFormatDescription means an event requiring
	// binlog-version-specific layout was seen before a
	// FormatDescriptionEvent established that layout.
	KindMissingFormatDescription
	// KindUnsupportedEventType means no decoder is registered for the
	// event's type code.
	KindUnsupportedEventType
	// KindUnknownTable means a RowsEvent referenced a table id with no
	// preceding (or evicted) TableMapEvent.
	KindUnknownTable
	// KindInvalidColumnMetadata means a TableMapEvent's column metadata
	// could not be parsed for its declared column type.
	KindInvalidColumnMetadata
	// KindColumnDecodeError means a column value within a RowsEvent could
	// not be decoded according to its TableMap-declared type.
	KindColumnDecodeError
	// KindChecksumMismatch means the trailing CRC32 did not match the
	// event body.
	KindChecksumMismatch
	// KindCharsetError means a string column's declared collation id has
	// no registered decoder.
	KindCharsetError
	// KindIoError wraps a lower-level I/O failure (closed socket,
	// truncated file).
	KindIoError
)

func (k Kind) String() string {
	switch k {
	case KindNeedMoreData:
		return "NeedMoreData"
	case KindMalformedHeader:
		return "MalformedHeader"
	case KindMissingFormatDescription:
		return "MissingFormatDescription"
	case KindUnsupportedEventType:
		return "UnsupportedEventType"
	case KindUnknownTable:
		return "UnknownTable"
	case KindInvalidColumnMetadata:
		return "InvalidColumnMetadata"
	case KindColumnDecodeError:
		return "ColumnDecodeError"
	case KindChecksumMismatch:
		return "ChecksumMismatch"
	case KindCharsetError:
		return "CharsetError"
	case KindIoError:
		return "IoError"
	default:
		return "Unknown"
	}
}

// ParseError carries the closed Kind enum plus the context a consumer needs
// to decide whether to skip, retry, or abort: the stream position, the
// event type being decoded, the table involved (if any), and which decoder
// was active.
type ParseError struct {
	Kind      Kind
	Position  uint32
	EventType EventType
	TableID   uint64
	Decoder   string
	cause     error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("binlog: %s at position %d (event %s)", e.Kind, e.Position, e.EventType)
	if e.TableID != 0 {
		msg += fmt.Sprintf(" table=%d", e.TableID)
	}
	if e.Decoder != "" {
		msg += fmt.Sprintf(" decoder=%s", e.Decoder)
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *ParseError) Unwrap() error {
	return e.cause
}

// wrapParseError wraps cause into a *ParseError of the given kind, adding
// position/decoder context. Returns nil if cause is nil.
func wrapParseError(kind Kind, position uint32, eventType EventType, decoder string, cause error) error {
	if cause == nil {
		return nil
	}
	return errors.WithStack(&ParseError{
		Kind:      kind,
		Position:  position,
		EventType: eventType,
		Decoder:   decoder,
		cause:     cause,
	})
}
