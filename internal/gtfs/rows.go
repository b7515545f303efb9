package gtfs

import (
	"strconv"
	"strings"

	"github.com/joeshaw/bods-gtfs/internal/schema"
)

const utf8BOM = "\ufeff"

// RowSplitter splits one line of a staged file into fields.
type RowSplitter interface {
	Split(line string) []string
}

// DelimitedSplitter splits on a single delimiter with no quote or escape
// handling. A delimiter inside a quoted field splits the field; inject a
// quote-aware RowSplitter for feeds that need one.
type DelimitedSplitter struct {
	Delimiter string
}

// Split implements RowSplitter
func (s DelimitedSplitter) Split(line string) []string {
	d := s.Delimiter
	if d == "" {
		d = ","
	}
	return strings.Split(line, d)
}

// trimLine drops the line terminator, including a CR from CRLF files
func trimLine(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// parseHeader splits the header line into trimmed column names
func parseHeader(line string, splitter RowSplitter) []string {
	line = strings.TrimPrefix(trimLine(line), utf8BOM)
	names := splitter.Split(line)
	for i, n := range names {
		names[i] = strings.TrimSpace(n)
	}
	return names
}

// decodeRow maps split fields onto the header's columns. Missing trailing
// fields become NULL. Extra fields are dropped; ragged reports whether any
// of them held a value.
func decodeRow(fields []string, cols []schema.Column) (row []any, ragged bool) {
	row = make([]any, len(cols))
	for i, c := range cols {
		if i >= len(fields) {
			row[i] = nil
			continue
		}
		row[i] = decodeValue(c.Type, fields[i])
	}
	for i := len(cols); i < len(fields); i++ {
		if strings.TrimSpace(fields[i]) != "" {
			ragged = true
			break
		}
	}
	return row, ragged
}

// decodeValue converts a raw field according to the column type hint.
// Empty numerics are NULL. A numeric field that does not parse is kept as
// text and left to the store's type affinity.
func decodeValue(t schema.Type, raw string) any {
	switch t {
	case schema.Integer:
		v := strings.TrimSpace(raw)
		if v == "" {
			return nil
		}
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
		return raw
	case schema.Real:
		v := strings.TrimSpace(raw)
		if v == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		return raw
	default:
		return raw
	}
}
