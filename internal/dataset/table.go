package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Column holds the values of one table column. Exactly one of Floats,
// Strings or Times is populated depending on Kind. Missing numeric values
// are NaN; missing strings are empty.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Strings []string
	Times   []time.Time
}

// Len returns the number of values in the column.
func (c *Column) Len() int {
	switch c.Kind {
	case KindString:
		return len(c.Strings)
	case KindTime:
		return len(c.Times)
	default:
		return len(c.Floats)
	}
}

// Numeric reports whether the column stores float64 values.
func (c *Column) Numeric() bool { return c.Kind == KindFloat || c.Kind == KindInt }

// IsMissing reports whether row i holds no value.
func (c *Column) IsMissing(i int) bool {
	switch c.Kind {
	case KindString:
		return c.Strings[i] == ""
	case KindTime:
		return c.Times[i].IsZero()
	default:
		return math.IsNaN(c.Floats[i])
	}
}

// Missing counts the missing values of the column.
func (c *Column) Missing() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			n++
		}
	}
	return n
}

// DType returns the pandas-style dtype label. Integer columns holding
// missing values report float64 the way pandas upcasts them.
func (c *Column) DType() string {
	if c.Kind == KindInt && c.Missing() > 0 {
		return KindFloat.DType()
	}
	return c.Kind.DType()
}

// Format renders row i for tabular previews.
func (c *Column) Format(i int) string {
	switch c.Kind {
	case KindString:
		if c.Strings[i] == "" {
			return "NaN"
		}
		return c.Strings[i]
	case KindTime:
		if c.Times[i].IsZero() {
			return "NaT"
		}
		return c.Times[i].Format("2006-01-02 15:04:05")
	case KindInt:
		v := c.Floats[i]
		if math.IsNaN(v) {
			return "NaN"
		}
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return strconv.FormatFloat(c.Floats[i], 'g', -1, 64)
	}
}

func (c *Column) subset(idx []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	switch c.Kind {
	case KindString:
		out.Strings = make([]string, len(idx))
		for j, i := range idx {
			out.Strings[j] = c.Strings[i]
		}
	case KindTime:
		out.Times = make([]time.Time, len(idx))
		for j, i := range idx {
			out.Times[j] = c.Times[i]
		}
	default:
		out.Floats = make([]float64, len(idx))
		for j, i := range idx {
			out.Floats[j] = c.Floats[i]
		}
	}
	return out
}

func (c *Column) clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	out.Floats = append([]float64(nil), c.Floats...)
	out.Strings = append([]string(nil), c.Strings...)
	out.Times = append([]time.Time(nil), c.Times...)
	return out
}

// Table is an in-memory columnar table of observations.
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// NewTable builds a table from columns of equal length.
func NewTable(cols ...*Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Len(), t.rows)
		}
		t.index[c.Name] = i
		t.cols = append(t.cols, c)
	}
	return t, nil
}

// EmptyTable returns a table carrying the required schema and no rows.
func EmptyTable() *Table {
	var cols []*Column
	for _, s := range schema {
		if s.required {
			cols = append(cols, &Column{Name: s.name, Kind: s.kind})
		}
	}
	t, _ := NewTable(cols...)
	return t
}

// Rows returns the row count.
func (t *Table) Rows() int { return t.rows }

// Cols returns the column count.
func (t *Table) Cols() int { return len(t.cols) }

// Names returns the column names in table order.
func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// Columns returns the columns in table order.
func (t *Table) Columns() []*Column { return t.cols }

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// Floats returns the values of a numeric column or nil.
func (t *Table) Floats(name string) []float64 {
	c, ok := t.Column(name)
	if !ok || !c.Numeric() {
		return nil
	}
	return c.Floats
}

// Strings returns the values of a string column or nil.
func (t *Table) Strings(name string) []string {
	c, ok := t.Column(name)
	if !ok || c.Kind != KindString {
		return nil
	}
	return c.Strings
}

// Times returns the derived timestamps, or nil before cleaning.
func (t *Table) Times() []time.Time {
	c, ok := t.Column(ColDatetime)
	if !ok {
		return nil
	}
	return c.Times
}

// NumericNames lists numeric columns in table order.
func (t *Table) NumericNames() []string {
	var out []string
	for _, c := range t.cols {
		if c.Numeric() {
			out = append(out, c.Name)
		}
	}
	return out
}

// Select returns a new table holding rows idx in the given order.
func (t *Table) Select(idx []int) *Table {
	out := &Table{index: make(map[string]int, len(t.cols)), rows: len(idx)}
	for i, c := range t.cols {
		out.cols = append(out.cols, c.subset(idx))
		out.index[c.Name] = i
	}
	return out
}

// Clone deep-copies the table.
func (t *Table) Clone() *Table {
	out := &Table{index: make(map[string]int, len(t.cols)), rows: t.rows}
	for i, c := range t.cols {
		out.cols = append(out.cols, c.clone())
		out.index[c.Name] = i
	}
	return out
}

// setColumn replaces a column of the same name or appends a new one.
func (t *Table) setColumn(c *Column) {
	if i, ok := t.index[c.Name]; ok {
		t.cols[i] = c
		return
	}
	t.index[c.Name] = len(t.cols)
	t.cols = append(t.cols, c)
}

// Row formats row i for previews.
func (t *Table) Row(i int) []string {
	out := make([]string, len(t.cols))
	for j, c := range t.cols {
		out[j] = c.Format(i)
	}
	return out
}

// rowKey identifies a row by its stored values. Derived time columns are
// excluded because they are a function of the calendar fields.
func (t *Table) rowKey(i int) string {
	var b strings.Builder
	for _, c := range t.cols {
		switch c.Kind {
		case KindTime:
			continue
		case KindString:
			b.WriteString(c.Strings[i])
		default:
			b.WriteString(strconv.FormatFloat(c.Floats[i], 'g', -1, 64))
		}
		b.WriteByte(0x1f)
	}
	return b.String()
}
