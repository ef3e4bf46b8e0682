package binlog

import (
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// collationCharsets maps a MySQL collation id (as stored in TableMap
// extended metadata, see https://dev.mysql.com/doc/refman/8.0/en/charset-charsets.html)
// to the charset name it belongs to. Only the collations MySQL ships by
// default for each non-UTF8 charset family are listed; unlisted ids (and
// any UTF8/UTF8MB4 collation) decode as UTF-8, which is already
// byte-compatible with Go strings.
var collationCharsets = map[uint64]string{
	8:   "latin1", // latin1_swedish_ci, MySQL's historical default
	47:  "latin1", // latin1_bin
	28:  "gbk",
	87:  "gbk", // gbk_bin
	1:   "big5",
	84:  "big5", // big5_bin
	13:  "sjis",
	88:  "sjis", // sjis_bin
	97:  "utf16",
	54:  "utf16", // utf16_bin
}

// charsetDecoders maps a charset name to its golang.org/x/text decoder.
var charsetDecoders = map[string]encoding.Encoding{
	"latin1": charmap.Windows1252,
	"gbk":    simplifiedchinese.GBK,
	"big5":   traditionalchinese.Big5,
	"sjis":   japanese.ShiftJIS,
}

var (
	warnOnceMu sync.Mutex
	warnedCols = make(map[[2]uint64]bool)
)

// currentTableID returns the table id of the TableMapEvent currently being
// decoded against, or 0 if r carries none (e.g. decoding outside row context).
func currentTableID(r *reader) uint64 {
	if r.tme == nil {
		return 0
	}
	return r.tme.tableID
}

// warnCharsetOnce logs (once per table+column) that an unrecognized
// collation fell back to UTF-8, per spec's "emit a warning once per
// (table, column)" requirement.
func warnCharsetOnce(tableID uint64, ordinal int, collation uint64) {
	warnOnceMu.Lock()
	key := [2]uint64{tableID, uint64(ordinal)}
	already := warnedCols[key]
	warnedCols[key] = true
	warnOnceMu.Unlock()
	if !already {
		logrus.WithFields(logrus.Fields{"table_id": tableID, "ordinal": ordinal, "collation": collation}).
			Warn("binlog: unknown collation, falling back to UTF-8")
	}
}

// decodeCharsetString converts b to a UTF-8 Go string per collation, the
// MySQL collation id declared for the originating column. Collations in
// collationCharsets are decoded with their charsetDecoders entry; a listed
// collation with no decoder entry (the utf16 ids) passes the bytes through
// unchanged without a warning. Any other non-zero collation, UTF-8/UTF8MB4
// ones included, passes the bytes through as-is and warns once per
// (tableID, ordinal). Collation 0 passes through without a warning.
func decodeCharsetString(tableID uint64, ordinal int, collation uint64, b []byte) string {
	name, ok := collationCharsets[collation]
	if !ok {
		if collation != 0 {
			warnCharsetOnce(tableID, ordinal, collation)
		}
		return string(b)
	}
	dec, ok := charsetDecoders[name]
	if !ok {
		return string(b)
	}
	out, err := dec.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}
