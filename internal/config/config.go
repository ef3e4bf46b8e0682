// Package config holds the small set of knobs the core pipeline takes as
// input rather than discovering itself: per spec, the core has no ambient
// config source of its own (no env vars, no config file reads) — an
// embedding caller builds a Config and hands it to the pipeline. cmd/binlog
// does not build one.
package config

import "github.com/sirupsen/logrus"

// ConflictStrategy mirrors binlog.ConflictStrategy without importing the
// root package, keeping config free of a dependency on the package it
// configures.
type ConflictStrategy int

// Conflict resolution strategies for decoders registered against the same
// event type. Numeric values intentionally match binlog.ConflictStrategy's
// iota ordering so a Config can be passed straight through as an int.
const (
	ConflictHighestPriorityWins ConflictStrategy = iota
	ConflictMostRecentWins
	ConflictFirstWins
	ConflictFail
)

// Config is the set of inputs an embedding caller constructs and passes to
// the core pipeline (NewLogContextFromConfig, NewRegistryFromConfig).
// cmd/binlog does not construct one.
type Config struct {
	// VerifyChecksum records whether the trailing CRC32 on each event is
	// to be validated. Nothing in this module reads the field: a Remote's
	// verification is switched with Remote.SetVerifyChecksum, and Local
	// does not compare checksums.
	VerifyChecksum bool

	// TableCacheCapacity bounds the number of TableMapEvents a
	// LogContext keeps before evicting the least-recently-used entry.
	TableCacheCapacity int

	// DecoderConflictStrategy resolves multiple decoders registered for
	// the same event type (see binlog.DecoderRegistry).
	DecoderConflictStrategy ConflictStrategy

	// LogLevel is the logrus level of the logger Logger builds, which
	// NewLogContextFromConfig stores on the LogContext (see
	// LogContext.Logger).
	LogLevel logrus.Level
}

// Default returns a Config with checksum verification on, a table cache capacity
// matching LogContext's own default, highest-priority-wins conflict
// resolution, and Info-level logging.
func Default() Config {
	return Config{
		VerifyChecksum:          true,
		TableCacheCapacity:      1000,
		DecoderConflictStrategy: ConflictHighestPriorityWins,
		LogLevel:                logrus.InfoLevel,
	}
}

// Logger builds the logrus.Entry the core threads through a LogContext,
// configured at c.LogLevel.
func (c Config) Logger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(c.LogLevel)
	return logrus.NewEntry(l)
}
