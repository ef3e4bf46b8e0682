package binlog

import "strings"

// DDLKind classifies the statement a DDLSummary was extracted from.
type DDLKind int

const (
	DDLUnknown DDLKind = iota
	DDLCreateTable
	DDLAlterTable
)

// ColumnDef is a column name paired with its declared type text, exactly
// as written in the statement (no normalization).
type ColumnDef struct {
	Name string
	Type string
}

// DDLSummary is the lightweight extraction a QueryEvent's SQL text yields:
// enough to keep a column-name cache current without a full SQL parser.
type DDLSummary struct {
	Kind          DDLKind
	Table         string
	AddedColumns  []ColumnDef
	DroppedColumn []string
}

// ExtractDDLSummary inspects sql for a CREATE TABLE or ALTER TABLE
// statement and returns a best-effort summary, or nil if sql isn't one (or
// its shape wasn't recognized). It never returns an error: an
// unrecognized or malformed statement degrades to nil, per the lightweight
// "attach None and don't fail the pipeline" contract.
func ExtractDDLSummary(sql string) *DDLSummary {
	toks := tokenizeDDL(sql)
	i := 0
	for i < len(toks) && toks[i] == "if" {
		i++ // tolerate leading "IF NOT EXISTS" fragments already consumed by caller
	}
	switch {
	case matchKeywords(toks, i, "create", "table"):
		return extractCreateTable(toks, skipKeywords(toks, i, 2))
	case matchKeywords(toks, i, "alter", "table"):
		return extractAlterTable(toks, skipKeywords(toks, i, 2))
	default:
		return nil
	}
}

func extractCreateTable(toks []string, i int) *DDLSummary {
	i = skipIfNotExists(toks, i)
	table, i, ok := readIdent(toks, i)
	if !ok {
		return nil
	}
	if i >= len(toks) || toks[i] != "(" {
		return nil
	}
	i++
	summary := &DDLSummary{Kind: DDLCreateTable, Table: table}
	for i < len(toks) && toks[i] != ")" {
		name, next, ok := readIdent(toks, i)
		if !ok {
			i++
			continue
		}
		if isConstraintKeyword(name) {
			i = skipBalancedOrToComma(toks, next)
			continue
		}
		typ, next2 := readTypeName(toks, next)
		summary.AddedColumns = append(summary.AddedColumns, ColumnDef{Name: name, Type: typ})
		i = skipBalancedOrToComma(toks, next2)
	}
	return summary
}

func extractAlterTable(toks []string, i int) *DDLSummary {
	table, i, ok := readIdent(toks, i)
	if !ok {
		return nil
	}
	summary := &DDLSummary{Kind: DDLAlterTable, Table: table}
	for i < len(toks) {
		switch {
		case matchKeywords(toks, i, "add", "column"):
			i = skipKeywords(toks, i, 2)
			name, next, ok := readIdent(toks, i)
			if !ok {
				return summary
			}
			typ, next2 := readTypeName(toks, next)
			summary.AddedColumns = append(summary.AddedColumns, ColumnDef{Name: name, Type: typ})
			i = skipToComma(toks, next2)
		case matchKeywords(toks, i, "add", ""):
			i = skipKeywords(toks, i, 1)
			name, next, ok := readIdent(toks, i)
			if !ok {
				return summary
			}
			typ, next2 := readTypeName(toks, next)
			summary.AddedColumns = append(summary.AddedColumns, ColumnDef{Name: name, Type: typ})
			i = skipToComma(toks, next2)
		case matchKeywords(toks, i, "drop", "column"):
			i = skipKeywords(toks, i, 2)
			name, next, ok := readIdent(toks, i)
			if !ok {
				return summary
			}
			summary.DroppedColumn = append(summary.DroppedColumn, name)
			i = skipToComma(toks, next)
		case matchKeywords(toks, i, "drop", ""):
			i = skipKeywords(toks, i, 1)
			name, next, ok := readIdent(toks, i)
			if !ok {
				return summary
			}
			summary.DroppedColumn = append(summary.DroppedColumn, name)
			i = skipToComma(toks, next)
		default:
			i++
		}
	}
	return summary
}

// Tokenizer ---

// tokenizeDDL splits sql into a lowercase-normalized token stream:
// identifiers/keywords as words, and `(`, `)`, `,` as single-char tokens.
// Quoted identifiers (backtick or double-quote) keep their inner text
// as one token, case preserved.
func tokenizeDDL(sql string) []string {
	var toks []string
	i := 0
	for i < len(sql) {
		c := sql[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(' || c == ')' || c == ',':
			toks = append(toks, string(c))
			i++
		case c == '`' || c == '"':
			j := i + 1
			for j < len(sql) && sql[j] != c {
				j++
			}
			if j < len(sql) {
				toks = append(toks, sql[i+1:j])
				i = j + 1
			} else {
				i = len(sql)
			}
		case isIdentByte(c):
			j := i
			for j < len(sql) && isIdentByte(sql[j]) {
				j++
			}
			toks = append(toks, strings.ToLower(sql[i:j]))
			i = j
		default:
			i++
		}
	}
	return toks
}

func isIdentByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '.'
}

var constraintKeywords = map[string]bool{
	"primary": true, "foreign": true, "unique": true, "key": true,
	"constraint": true, "check": true, "index": true, "fulltext": true,
	"spatial": true,
}

func isConstraintKeyword(tok string) bool { return constraintKeywords[tok] }

func matchKeywords(toks []string, i int, a, b string) bool {
	if i >= len(toks) || toks[i] != a {
		return false
	}
	if b == "" {
		return true
	}
	return i+1 < len(toks) && toks[i+1] == b
}

func skipKeywords(toks []string, i, n int) int {
	i += n
	if i > len(toks) {
		i = len(toks)
	}
	return i
}

func skipIfNotExists(toks []string, i int) int {
	if matchKeywords(toks, i, "if", "") && i+2 < len(toks) && toks[i+1] == "not" && toks[i+2] == "exists" {
		return i + 3
	}
	return i
}

// readIdent reads a (possibly dotted) identifier token at i.
func readIdent(toks []string, i int) (string, int, bool) {
	if i >= len(toks) {
		return "", i, false
	}
	tok := toks[i]
	if tok == "(" || tok == ")" || tok == "," {
		return "", i, false
	}
	return tok, i + 1, true
}

// readTypeName reads a type name and its optional parenthesized width/
// precision, e.g. "varchar" "(" "255" ")" -> "varchar(255)".
func readTypeName(toks []string, i int) (string, int) {
	if i >= len(toks) {
		return "", i
	}
	typ := toks[i]
	i++
	if i < len(toks) && toks[i] == "(" {
		depth := 0
		start := i
		for i < len(toks) {
			if toks[i] == "(" {
				depth++
			} else if toks[i] == ")" {
				depth--
				i++
				if depth == 0 {
					break
				}
				continue
			}
			i++
		}
		typ += strings.Join(toks[start:i], "")
	}
	return typ, i
}

// skipBalancedOrToComma advances past any parenthesized group and up to
// (but not past) the next top-level comma or closing paren.
func skipBalancedOrToComma(toks []string, i int) int {
	depth := 0
	for i < len(toks) {
		switch toks[i] {
		case "(":
			depth++
		case ")":
			if depth == 0 {
				return i
			}
			depth--
		case ",":
			if depth == 0 {
				return i + 1
			}
		}
		i++
	}
	return i
}

func skipToComma(toks []string, i int) int {
	for i < len(toks) && toks[i] != "," {
		i++
	}
	if i < len(toks) {
		i++
	}
	return i
}
