package binlog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Interval is a closed, inclusive range of transaction numbers [Start, Stop]
// belonging to one source server. MySQL's own GTID set model calls this a
// Gno_interval.
type Interval struct {
	Start uint64
	Stop  uint64 // inclusive
}

func (iv Interval) String() string {
	if iv.Start == iv.Stop {
		return strconv.FormatUint(iv.Start, 10)
	}
	return fmt.Sprintf("%d-%d", iv.Start, iv.Stop)
}

// adjacentOrOverlapping reports whether a and b touch or overlap and can be
// coalesced into a single interval.
func adjacentOrOverlapping(a, b Interval) bool {
	return a.Stop+1 >= b.Start && b.Stop+1 >= a.Start
}

func coalesce(a, b Interval) Interval {
	iv := Interval{Start: a.Start, Stop: a.Stop}
	if b.Start < iv.Start {
		iv.Start = b.Start
	}
	if b.Stop > iv.Stop {
		iv.Stop = b.Stop
	}
	return iv
}

// UuidSet is the set of transaction numbers executed for one source server,
// represented as a sorted list of coalesced closed intervals.
type UuidSet struct {
	SourceID  uuid.UUID
	Intervals []Interval
}

// NewUuidSet builds a UuidSet, eagerly coalescing the given intervals.
func NewUuidSet(sourceID uuid.UUID, intervals []Interval) *UuidSet {
	us := &UuidSet{SourceID: sourceID}
	for _, iv := range intervals {
		us.insert(iv)
	}
	return us
}

// insert performs a binary-search insertion of iv, coalescing with any
// touching or overlapping neighbors.
func (us *UuidSet) insert(iv Interval) {
	ivs := us.Intervals
	i := sort.Search(len(ivs), func(i int) bool { return ivs[i].Stop+1 >= iv.Start })
	if i == len(ivs) {
		us.Intervals = append(ivs, iv)
		return
	}
	if !adjacentOrOverlapping(ivs[i], iv) {
		us.Intervals = append(ivs[:i], append([]Interval{iv}, ivs[i:]...)...)
		return
	}
	merged := coalesce(ivs[i], iv)
	j := i + 1
	for j < len(ivs) && adjacentOrOverlapping(merged, ivs[j]) {
		merged = coalesce(merged, ivs[j])
		j++
	}
	us.Intervals = append(ivs[:i], append([]Interval{merged}, ivs[j:]...)...)
}

// Contains reports whether transactionID is already recorded in this set.
func (us *UuidSet) Contains(transactionID uint64) bool {
	ivs := us.Intervals
	i := sort.Search(len(ivs), func(i int) bool { return ivs[i].Stop >= transactionID })
	return i < len(ivs) && ivs[i].Start <= transactionID
}

// AddTransaction records transactionID as executed, coalescing with
// neighboring intervals. Returns false if it was already present.
func (us *UuidSet) AddTransaction(transactionID uint64) bool {
	if us.Contains(transactionID) {
		return false
	}
	us.insert(Interval{Start: transactionID, Stop: transactionID})
	return true
}

func (us *UuidSet) String() string {
	parts := make([]string, len(us.Intervals))
	for i, iv := range us.Intervals {
		parts[i] = iv.String()
	}
	return us.SourceID.String() + ":" + strings.Join(parts, ":")
}

// GtidSet models the full set of transactions a server has seen, grouped by
// source server uuid. It is the type a PreviousGtidsEvent decodes to, and
// the baseline LogContext tracks as the stream is consumed.
type GtidSet struct {
	Sets map[uuid.UUID]*UuidSet
}

// NewGtidSet returns an empty GtidSet.
func NewGtidSet() *GtidSet {
	return &GtidSet{Sets: make(map[uuid.UUID]*UuidSet)}
}

// AddGtid records one (sourceID, transactionID) pair. Returns false if it
// was already present.
func (gs *GtidSet) AddGtid(sourceID uuid.UUID, transactionID uint64) bool {
	us, ok := gs.Sets[sourceID]
	if !ok {
		us = &UuidSet{SourceID: sourceID}
		gs.Sets[sourceID] = us
	}
	return us.AddTransaction(transactionID)
}

// String renders the GtidSet in MySQL's canonical comma-separated,
// uuid-sorted textual form, e.g. "uuid1:1-5,uuid2:1-3".
func (gs *GtidSet) String() string {
	parts := make([]string, 0, len(gs.Sets))
	for _, us := range gs.Sets {
		parts = append(parts, us.String())
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// ParseGtidSet parses MySQL's textual GTID set representation, e.g.
// "726757ad-4455-11e8-ae04-0242ac110002:1-3:7-9,...".
func ParseGtidSet(s string) (*GtidSet, error) {
	gs := NewGtidSet()
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return gs, nil
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ":")
		if len(fields) < 2 {
			return nil, fmt.Errorf("binlog: invalid gtid-set component %q", part)
		}
		sid, err := uuid.Parse(fields[0])
		if err != nil {
			return nil, fmt.Errorf("binlog: invalid gtid-set uuid %q: %v", fields[0], err)
		}
		us, ok := gs.Sets[sid]
		if !ok {
			us = &UuidSet{SourceID: sid}
			gs.Sets[sid] = us
		}
		for _, token := range fields[1:] {
			bounds := strings.SplitN(token, "-", 2)
			start, err := strconv.ParseUint(bounds[0], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("binlog: invalid gtid-set interval %q: %v", token, err)
			}
			stop := start
			if len(bounds) == 2 {
				stop, err = strconv.ParseUint(bounds[1], 10, 64)
				if err != nil {
					return nil, fmt.Errorf("binlog: invalid gtid-set interval %q: %v", token, err)
				}
			}
			us.insert(Interval{Start: start, Stop: stop})
		}
	}
	return gs, nil
}

// decodeGtidSet decodes the binary GTID-set encoding used by
// PREVIOUS_GTIDS_EVENT: n_sids (8 bytes LE) followed by, per sid, a 16-byte
// uuid, n_intervals (8 bytes LE), and per interval a [start, end) pair of
// 8-byte LE integers. The wire format's half-open intervals are converted
// to this package's closed intervals by decrementing end.
//
// https://dev.mysql.com/doc/internals/en/previous-gtids-event.html
func decodeGtidSet(r *reader) (*GtidSet, error) {
	gs := NewGtidSet()
	nSids := r.int8()
	if r.err != nil {
		return nil, r.err
	}
	for i := uint64(0); i < nSids; i++ {
		raw := r.bytes(16)
		if r.err != nil {
			return nil, r.err
		}
		sid, err := uuid.FromBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("binlog: decodeGtidSet: %v", err)
		}
		nIntervals := r.int8()
		if r.err != nil {
			return nil, r.err
		}
		us := &UuidSet{SourceID: sid}
		for j := uint64(0); j < nIntervals; j++ {
			start := r.int8()
			end := r.int8()
			if r.err != nil {
				return nil, r.err
			}
			if end == 0 {
				continue
			}
			us.insert(Interval{Start: start, Stop: end - 1})
		}
		gs.Sets[sid] = us
	}
	return gs, r.err
}
