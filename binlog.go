package binlog

// nextEvent parses one EventHeader from r and dispatches its body to the
// registered decoder for h.EventType, driving r's LogContext (position,
// GTID snapshot) the same way the old hardcoded switch drove r's own
// fields; the switch itself now lives in defaultRegistry, keyed by
// EventType so new decoders can be added by registration.
func nextEvent(r *reader) (Event, error) {
	h := EventHeader{}
	if err := h.decode(r); err != nil {
		return Event{}, err
	}
	headerSize := uint32(13)
	if r.formatDescription().BinlogVersion > 1 {
		headerSize = 19
	}
	r.limit = int(h.EventSize-headerSize) - r.checksum

	if h.NextPos != 0 {
		r.ctx.SetPosition(r.ctx.LogFileName(), h.NextPos)
	} else if r.ctx.LogFileName() != "" {
		r.ctx.AdvancePosition(h.EventSize)
	}
	r.ctx.RecordEvent(h.EventSize)
	h.GTID = r.ctx.GtidSet().String()

	data, err := globalRegistry.Decode(h, r)
	h.LogFile = r.ctx.LogFileName()
	if err != nil {
		return Event{h, nil}, err
	}
	return Event{h, data}, nil
}
