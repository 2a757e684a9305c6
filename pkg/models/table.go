package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// PayloadKind distinguishes the two payload families handled by the pipeline.
type PayloadKind string

const (
	KindNews   PayloadKind = "news"
	KindMarket PayloadKind = "market"
)

// RawPayload is a provider response exactly as received.
// Data holds the decoded value (any JSON value for news, *MarketSeries for
// market data); Raw holds the response bytes for persistence.
type RawPayload struct {
	Kind      PayloadKind
	Data      any
	Raw       []byte
	FetchedAt time.Time
}

// Row maps column name to a scalar cell value. A nil value is null.
type Row map[string]any

// Table is an ordered, row-oriented table with a fixed column set.
// Every row holds a key for every column.
type Table struct {
	Kind    PayloadKind
	Columns []string
	Rows    []Row
}

// NewTable returns an empty table with the given columns.
func NewTable(kind PayloadKind, columns ...string) *Table {
	return &Table{Kind: kind, Columns: columns, Rows: []Row{}}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// HasColumn reports whether the table declares the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Append adds a row, filling absent columns with null.
func (t *Table) Append(r Row) {
	for _, c := range t.Columns {
		if _, ok := r[c]; !ok {
			r[c] = nil
		}
	}
	t.Rows = append(t.Rows, r)
}

// AddColumn declares a new trailing column (no-op if present) and sets it to
// null on every existing row that lacks it.
func (t *Table) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
	for _, r := range t.Rows {
		if _, ok := r[name]; !ok {
			r[name] = nil
		}
	}
}

// Clone returns a copy whose rows can be modified without touching t.
func (t *Table) Clone() *Table {
	out := &Table{
		Kind:    t.Kind,
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		cp := make(Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	return out
}

// Column returns the values of one column in row order.
func (t *Table) Column(name string) []any {
	vals := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		vals[i] = r[name]
	}
	return vals
}

// Records renders the table as a header row followed by string rows.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, append([]string(nil), t.Columns...))
	for _, r := range t.Rows {
		rec := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			rec[i] = FormatCell(r[c])
		}
		out = append(out, rec)
	}
	return out
}

// TimestampLayout is the offset-free layout used when rendering timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// FormatCell renders a cell value as text. Null renders as the empty string
// and timestamps render without a zone offset.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(TimestampLayout)
	case json.Number:
		return x.String()
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}
