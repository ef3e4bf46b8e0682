package binlog

import (
	"container/list"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/replikit/binlog/internal/config"
)

// DefaultTableCacheCapacity is the default number of TableMapEvents the
// LogContext retains before evicting the least-recently-used entry.
const DefaultTableCacheCapacity = 1000

// Stats carries the running counters a LogContext exposes to callers that
// want visibility into pipeline progress without instrumenting every call
// site themselves.
type Stats struct {
	EventsProcessed uint64
	BytesConsumed   uint64
}

// LogContext owns the cross-event state a stream's decoders read and
// mutate: the active FormatDescription, an LRU-bounded table-id cache,
// the current file/position, the running GTID baseline, and counters.
// A LogContext belongs to exactly one stream; sharing one across
// concurrently-decoding streams is a correctness hazard (table-ids are
// not globally meaningful). Each method takes the context's mutex, so
// single calls are safe from several goroutines. The zero value has no
// cache map or list; construct one with NewLogContext.
type LogContext struct {
	mu sync.Mutex

	fde        FormatDescriptionEvent
	fdeSet     bool
	binlogFile string
	binlogPos  uint32

	gtidSet *GtidSet

	cache    map[uint64]*list.Element
	order    *list.List // front = most recently used
	capacity int

	stats Stats

	log *logrus.Entry
}

type tableCacheEntry struct {
	tableID uint64
	tme     *TableMapEvent
}

// NewLogContextFromConfig builds a LogContext sized and logged according to
// cfg, for an embedding caller that holds a config.Config.
func NewLogContextFromConfig(cfg config.Config) *LogContext {
	c := NewLogContext(cfg.TableCacheCapacity)
	c.log = cfg.Logger().WithField("component", "log_context")
	return c
}

// NewLogContext returns a LogContext whose table-map cache holds at most
// capacity entries (DefaultTableCacheCapacity if capacity <= 0).
func NewLogContext(capacity int) *LogContext {
	if capacity <= 0 {
		capacity = DefaultTableCacheCapacity
	}
	return &LogContext{
		gtidSet:  NewGtidSet(),
		cache:    make(map[uint64]*list.Element),
		order:    list.New(),
		capacity: capacity,
		log:      logrus.WithField("component", "log_context"),
	}
}

// InstallFormatDescription replaces the active format description. Must be
// called exactly once per file/stream, before any non-FDE event is decoded.
// A nil *LogContext is a no-op, so a *reader built without one (as the zero
// value reader{} used in unit tests is) behaves as it did before LogContext
// existed.
func (c *LogContext) InstallFormatDescription(fde FormatDescriptionEvent) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fde = fde
	c.fdeSet = true
}

// FormatDescription returns the active format description and whether one
// has been installed yet.
func (c *LogContext) FormatDescription() (FormatDescriptionEvent, bool) {
	if c == nil {
		return FormatDescriptionEvent{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fde, c.fdeSet
}

// PostHeaderLen looks up the post-header length for eventType in the
// active format description's table, returning def if none is installed
// or the type has no entry.
func (c *LogContext) PostHeaderLen(eventType EventType, def int) int {
	if c == nil {
		return def
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.fdeSet {
		return def
	}
	return c.fde.postHeaderLength(eventType, def)
}

// PutTableMap registers tme under id, evicting the least-recently-used
// entry first if the cache is at capacity.
func (c *LogContext) PutTableMap(id uint64, tme *TableMapEvent) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.cache[id]; ok {
		el.Value.(*tableCacheEntry).tme = tme
		c.order.MoveToFront(el)
		return
	}
	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.cache, oldest.Value.(*tableCacheEntry).tableID)
		}
	}
	el := c.order.PushFront(&tableCacheEntry{tableID: id, tme: tme})
	c.cache[id] = el
}

// GetTableMap returns the cached TableMapEvent for id, refreshing its
// recency, and whether it was found.
func (c *LogContext) GetTableMap(id uint64) (*TableMapEvent, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.cache[id]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*tableCacheEntry).tme, true
}

// ClearTableMaps empties the table-map cache, per the STMT_END_F contract:
// a row event's closing flag invalidates all table ids seen in the
// statement, not just its own.
func (c *LogContext) ClearTableMaps() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[uint64]*list.Element)
	c.order.Init()
}

// AdvancePosition moves the current position forward by delta bytes.
func (c *LogContext) AdvancePosition(delta uint32) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.binlogPos += delta
}

// SetPosition sets the current position to an absolute offset, used on
// Rotate and on resuming a stream mid-file.
func (c *LogContext) SetPosition(file string, absolute uint32) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.binlogFile = file
	c.binlogPos = absolute
}

// LogFileName returns the current binlog file name.
func (c *LogContext) LogFileName() string {
	if c == nil {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.binlogFile
}

// Position returns the current absolute position within LogFileName.
func (c *LogContext) Position() uint32 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.binlogPos
}

// GtidSet returns the context's current GTID baseline.
func (c *LogContext) GtidSet() *GtidSet {
	if c == nil {
		return NewGtidSet()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gtidSet
}

// UpdateGtid records a new transaction against the context's GTID set,
// as seen in a Gtid_log_event.
func (c *LogContext) UpdateGtid(sourceID uuid.UUID, transactionID uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gtidSet.AddGtid(sourceID, transactionID)
}

// ReplaceGtidSet installs set as the context's GTID baseline wholesale,
// as done by a PreviousGtidsEvent.
func (c *LogContext) ReplaceGtidSet(set *GtidSet) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gtidSet = set
}

// RecordEvent increments the processed-event and consumed-byte counters.
func (c *LogContext) RecordEvent(size uint32) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.EventsProcessed++
	c.stats.BytesConsumed += uint64(size)
}

// Stats returns a snapshot of the context's counters.
func (c *LogContext) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Logger returns the structured logger scoped to this context, for
// decoders that need to warn about recoverable conditions (unknown
// table, unrecognized charset) without aborting the stream.
func (c *LogContext) Logger() *logrus.Entry {
	if c == nil {
		return logrus.WithField("component", "log_context")
	}
	return c.log
}
