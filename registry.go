package binlog

import (
	"errors"
	"fmt"

	"github.com/replikit/binlog/internal/config"
)

// DecoderPriority orders decoders registered for the same EventType; the
// highest priority wins under the default conflict strategy.
type DecoderPriority int

// Priority levels a decoder can register at.
const (
	PriorityLow DecoderPriority = iota
	PriorityDefault
	PriorityHigh
)

// ConflictStrategy decides what happens when a second decoder is
// registered for an EventType that already has one.
type ConflictStrategy int

const (
	// ConflictHighestPriorityWins keeps, among all decoders registered for
	// a type, the one with the highest DecoderPriority (ties broken by
	// registration order). This is the default.
	ConflictHighestPriorityWins ConflictStrategy = iota
	// ConflictMostRecentWins always dispatches to the last decoder
	// registered for the type, regardless of priority.
	ConflictMostRecentWins
	// ConflictFirstWins keeps the first decoder registered for a type;
	// later registrations for the same type are silently ignored.
	ConflictFirstWins
	// ConflictFail returns an error from Register if a decoder is already
	// registered for the type.
	ConflictFail
)

// EventDecoder decodes the body of one binlog event type into its Go
// representation. h is the already-parsed EventHeader; r is positioned at
// the start of the event body with its limit set to the body's length
// (header and trailing checksum excluded).
type EventDecoder interface {
	Decode(h EventHeader, r *reader) (interface{}, error)
}

// EventDecoderFunc adapts a plain function to EventDecoder.
type EventDecoderFunc func(h EventHeader, r *reader) (interface{}, error)

// Decode calls f(h, r).
func (f EventDecoderFunc) Decode(h EventHeader, r *reader) (interface{}, error) {
	return f(h, r)
}

type registeredDecoder struct {
	decoder  EventDecoder
	priority DecoderPriority
	name     string
}

// DecoderRegistry is a typed lookup from event-type code to decoder, with
// priority-based conflict resolution among decoders registered for the
// same type. The zero value is not usable; construct with
// NewDecoderRegistry.
type DecoderRegistry struct {
	strategy ConflictStrategy
	decoders map[EventType][]registeredDecoder
}

// NewDecoderRegistry returns an empty registry using strategy to resolve
// conflicting registrations for the same EventType.
func NewDecoderRegistry(strategy ConflictStrategy) *DecoderRegistry {
	return &DecoderRegistry{
		strategy: strategy,
		decoders: make(map[EventType][]registeredDecoder),
	}
}

// Register adds d as a decoder for eventType at the given priority. Returns
// an error only under ConflictFail, when a decoder is already registered
// for eventType.
func (reg *DecoderRegistry) Register(eventType EventType, name string, priority DecoderPriority, d EventDecoder) error {
	existing := reg.decoders[eventType]
	if len(existing) > 0 {
		switch reg.strategy {
		case ConflictFail:
			return fmt.Errorf("binlog: decoder %q conflicts with %q for event type %s", name, existing[0].name, eventType)
		case ConflictFirstWins:
			return nil
		}
	}
	reg.decoders[eventType] = append(existing, registeredDecoder{decoder: d, priority: priority, name: name})
	return nil
}

// resolve returns the decoder that should handle eventType under the
// registry's conflict strategy, and whether one is registered at all.
func (reg *DecoderRegistry) resolve(eventType EventType) (registeredDecoder, bool) {
	rds := reg.decoders[eventType]
	if len(rds) == 0 {
		return registeredDecoder{}, false
	}
	if reg.strategy == ConflictMostRecentWins {
		return rds[len(rds)-1], true
	}
	best := rds[0]
	for _, rd := range rds[1:] {
		if rd.priority > best.priority {
			best = rd
		}
	}
	return best, true
}

// CanDecode reports whether a decoder is registered for eventType.
func (reg *DecoderRegistry) CanDecode(eventType EventType) bool {
	_, ok := reg.resolve(eventType)
	return ok
}

// Decode dispatches h.EventType to its registered decoder. If no decoder is
// registered, it returns a *ParseError of KindUnsupportedEventType carrying
// the event's position and type code; the caller decides whether that is
// fatal.
func (reg *DecoderRegistry) Decode(h EventHeader, r *reader) (interface{}, error) {
	rd, ok := reg.resolve(h.EventType)
	if !ok {
		return nil, &ParseError{
			Kind:      KindUnsupportedEventType,
			Position:  r.ctx.Position(),
			EventType: h.EventType,
		}
	}
	v, err := rd.decoder.Decode(h, r)
	if err != nil {
		// A decoder that already classified its own failure (e.g.
		// KindUnknownTable from the rows decoder) keeps that Kind: only an
		// error with no ParseError of its own gets folded into
		// KindColumnDecodeError. Otherwise every recoverable error would be
		// reported as the generic fatal kind, inverting the decoder's
		// recoverable/fatal classification.
		var pe *ParseError
		if errors.As(err, &pe) {
			return nil, pe
		}
		return nil, wrapParseError(KindColumnDecodeError, r.ctx.Position(), h.EventType, rd.name, err)
	}
	return v, nil
}

// defaultRegistry builds the registry this package dispatches through by
// default: one decoder per known EventType, registered at PriorityDefault.
// Event types with no decoder registered (anything not listed here) yield
// KindUnsupportedEventType, letting the pipeline policy decide to skip or
// abort.
func defaultRegistry() *DecoderRegistry {
	reg := NewDecoderRegistry(ConflictHighestPriorityWins)

	register := func(t EventType, name string, fn func(h EventHeader, r *reader) (interface{}, error)) {
		_ = reg.Register(t, name, PriorityDefault, EventDecoderFunc(fn))
	}

	register(FORMAT_DESCRIPTION_EVENT, "formatDescription", func(h EventHeader, r *reader) (interface{}, error) {
		fde := FormatDescriptionEvent{}
		err := fde.decode(r, h.EventSize)
		if err == nil {
			r.ctx.InstallFormatDescription(fde)
		}
		return fde, err
	})
	register(STOP_EVENT, "stop", func(h EventHeader, r *reader) (interface{}, error) {
		return StopEvent{}, nil
	})
	register(ROTATE_EVENT, "rotate", func(h EventHeader, r *reader) (interface{}, error) {
		re := RotateEvent{}
		err := re.decode(r)
		if err == nil {
			r.ctx.SetPosition(re.NextBinlog, uint32(re.Position))
		}
		// A rotate always starts a fresh file: table ids from the old file
		// carry no meaning in the new one.
		r.ctx.ClearTableMaps()
		return re, err
	})
	register(TABLE_MAP_EVENT, "tableMap", func(h EventHeader, r *reader) (interface{}, error) {
		tme := TableMapEvent{}
		err := tme.decode(r)
		if err == nil {
			r.ctx.PutTableMap(tme.tableID, &tme)
		}
		r.tme = &tme
		return tme, err
	})
	rowsDecoder := func(h EventHeader, r *reader) (interface{}, error) {
		r.re = RowsEvent{}
		err := r.re.decode(r, h.EventType)
		if err == nil && r.re.flags&STMT_END_F != 0 {
			// The statement that opened this sequence of table-map/rows
			// events is closing: every table id it introduced must be
			// re-announced by a new TableMapEvent before it can be used
			// again.
			r.ctx.ClearTableMaps()
		}
		return r.re, err
	}
	register(WRITE_ROWS_EVENTv0, "rows", rowsDecoder)
	register(WRITE_ROWS_EVENTv1, "rows", rowsDecoder)
	register(WRITE_ROWS_EVENTv2, "rows", rowsDecoder)
	register(UPDATE_ROWS_EVENTv0, "rows", rowsDecoder)
	register(UPDATE_ROWS_EVENTv1, "rows", rowsDecoder)
	register(UPDATE_ROWS_EVENTv2, "rows", rowsDecoder)
	register(DELETE_ROWS_EVENTv0, "rows", rowsDecoder)
	register(DELETE_ROWS_EVENTv1, "rows", rowsDecoder)
	register(DELETE_ROWS_EVENTv2, "rows", rowsDecoder)
	register(QUERY_EVENT, "query", func(h EventHeader, r *reader) (interface{}, error) {
		e := QueryEvent{}
		err := e.decode(r)
		if err == nil {
			e.DDL = ExtractDDLSummary(e.Query)
		}
		return e, err
	})
	register(XID_EVENT, "xid", func(h EventHeader, r *reader) (interface{}, error) {
		e := XidEvent{}
		err := e.decode(r)
		return e, err
	})
	register(GTID_EVENT, "gtid", func(h EventHeader, r *reader) (interface{}, error) {
		e := GtidEvent{}
		err := e.decode(r)
		if err == nil {
			r.ctx.UpdateGtid(e.SourceID, e.TransactionID)
		}
		return e, err
	})
	register(ANONYMOUS_GTID_EVENT, "anonymousGtid", func(h EventHeader, r *reader) (interface{}, error) {
		// AnonymousGtidEvent's SourceID/TransactionID are placeholders, not
		// recorded in gtid_executed, so the context's GTID baseline is left
		// untouched.
		e := AnonymousGtidEvent{}
		err := e.decode(r)
		return e, err
	})
	register(PREVIOUS_GTIDS_EVENT, "previousGtids", func(h EventHeader, r *reader) (interface{}, error) {
		e := PreviousGtidsEvent{}
		err := e.decode(r)
		if err == nil {
			r.ctx.ReplaceGtidSet(e.Set)
		}
		return e, err
	})
	register(INTVAR_EVENT, "intVar", func(h EventHeader, r *reader) (interface{}, error) {
		e := IntVarEvent{}
		err := e.decode(r)
		return e, err
	})
	register(RAND_EVENT, "rand", func(h EventHeader, r *reader) (interface{}, error) {
		e := RandEvent{}
		err := e.decode(r)
		return e, err
	})
	register(USER_VAR_EVENT, "userVar", func(h EventHeader, r *reader) (interface{}, error) {
		e := UserVarEvent{}
		err := e.decode(r)
		return e, err
	})
	register(INCIDENT_EVENT, "incident", func(h EventHeader, r *reader) (interface{}, error) {
		e := IncidentEvent{}
		err := e.decode(r)
		return e, err
	})
	register(ROWS_QUERY_EVENT, "rowsQuery", func(h EventHeader, r *reader) (interface{}, error) {
		e := RowsQueryEvent{}
		err := e.decode(r)
		return e, err
	})
	register(HEARTBEAT_EVENT, "heartbeat", func(h EventHeader, r *reader) (interface{}, error) {
		return HeartbeatEvent{}, nil
	})
	register(IGNORABLE_EVENT, "ignorable", func(h EventHeader, r *reader) (interface{}, error) {
		return IgnorableEvent{}, nil
	})
	register(UNKNOWN_EVENT, "unknown", func(h EventHeader, r *reader) (interface{}, error) {
		return UnknownEvent{}, nil
	})

	rawDecoder := func(h EventHeader, r *reader) (interface{}, error) {
		e := RawEvent{}
		err := e.decode(r, h.EventType)
		return e, err
	}
	for _, t := range []EventType{
		LOAD_EVENT, SLAVE_EVENT, CREATE_FILE_EVENT, DELETE_FILE_EVENT,
		BEGIN_LOAD_QUERY_EVENT, EXECUTE_LOAD_QUERY_EVENT, NEW_LOAD_EVENT,
		EXEC_LOAD_EVENT, APPEND_BLOCK_EVENT,
	} {
		register(t, "raw", rawDecoder)
	}

	return reg
}

// globalRegistry is the registry nextEvent dispatches through. Extension is
// by registration (Register), not by editing this switch-like table.
var globalRegistry = defaultRegistry()

// NewRegistryFromConfig builds a registry identical to the package default
// except for its conflict strategy, taken from cfg. Callers embedding this
// package with a non-default DecoderConflictStrategy construct one of these
// and register additional/overriding decoders on it rather than mutating
// globalRegistry.
func NewRegistryFromConfig(cfg config.Config) *DecoderRegistry {
	reg := defaultRegistry()
	reg.strategy = ConflictStrategy(cfg.DecoderConflictStrategy)
	return reg
}
