// Package table holds the raw, untyped tables of an Olist snapshot.
//
// Every cell is kept as a string; typing happens when a pipeline stage
// decodes the columns it needs.
package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

const (
	// NamespacePrefix and DatasetSuffix wrap the logical table name in the
	// file names of the public Olist export, e.g. olist_orders_dataset.csv.
	NamespacePrefix = "olist_"
	DatasetSuffix   = "_dataset"
	Extension       = ".csv"
)

// Logical table names used by the feature pipeline.
const (
	Orders      = "orders"
	Reviews     = "order_reviews"
	Items       = "order_items"
	Sellers     = "sellers"
	Customers   = "customers"
	Geolocation = "geolocation"
)

// Required lists the tables the feature pipeline reads.
var Required = []string{Orders, Reviews, Items, Sellers, Customers, Geolocation}

var (
	ErrMissingTable  = errors.New("missing table")
	ErrMissingColumn = errors.New("missing column")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Key maps a data file name to its table key. It reports false when the
// name does not carry the CSV extension.
func Key(fileName string) (string, bool) {
	if !strings.HasSuffix(fileName, Extension) {
		return "", false
	}
	key := strings.TrimSuffix(fileName, Extension)
	key = strings.TrimSuffix(key, DatasetSuffix)
	key = strings.TrimPrefix(key, NamespacePrefix)
	if key == "" {
		return "", false
	}
	return key, true
}

// Table is one parsed raw table.
type Table struct {
	Name string
	Path string
	df   dataframe.DataFrame
}

// ReadCSV parses a CSV document with a header row. Rows must have as many
// fields as the header.
func ReadCSV(name, path string, r io.Reader) (*Table, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimPrefix(b, utf8BOM)
	cr := csv.NewReader(bytes.NewReader(b))
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: no header row", path)
	}
	return FromRecords(name, path, records)
}

// FromRecords builds a table from a header row followed by data rows. An
// empty records slice yields a table with no columns.
func FromRecords(name, path string, records [][]string) (*Table, error) {
	t := &Table{Name: name, Path: path}
	switch len(records) {
	case 0:
		t.df = dataframe.New()
		return t, nil
	case 1:
		cols := make([]series.Series, 0, len(records[0]))
		for _, h := range records[0] {
			cols = append(cols, series.New([]string{}, series.String, h))
		}
		t.df = dataframe.New(cols...)
	default:
		t.df = dataframe.LoadRecords(records,
			dataframe.HasHeader(true),
			dataframe.DetectTypes(false),
			dataframe.DefaultType(series.String),
		)
	}
	if t.df.Err != nil {
		return nil, t.df.Err
	}
	return t, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int { return t.df.Nrow() }

// Headers returns the column names in file order.
func (t *Table) Headers() []string { return t.df.Names() }

// Frame exposes the underlying dataframe.
func (t *Table) Frame() dataframe.DataFrame { return t.df }

// Column returns the cells of one column in row order.
func (t *Table) Column(col string) ([]string, error) {
	s := t.df.Col(col)
	if s.Err != nil {
		return nil, fmt.Errorf("%w %q in table %q", ErrMissingColumn, col, t.Name)
	}
	return s.Records(), nil
}

// Columns returns several columns at once, failing on the first missing one.
func (t *Table) Columns(cols ...string) ([][]string, error) {
	out := make([][]string, 0, len(cols))
	for _, c := range cols {
		vals, err := t.Column(c)
		if err != nil {
			return nil, err
		}
		out = append(out, vals)
	}
	return out, nil
}

// Records returns the header row followed by every data row.
func (t *Table) Records() [][]string {
	if t.df.Ncol() == 0 {
		return nil
	}
	return t.df.Records()
}

// Tables maps a table key to its parsed contents.
type Tables map[string]*Table

// Get returns the named table or ErrMissingTable.
func (ts Tables) Get(name string) (*Table, error) {
	t, ok := ts[name]
	if !ok || t == nil {
		return nil, fmt.Errorf("%w %q", ErrMissingTable, name)
	}
	return t, nil
}

// Require checks that every named table is present.
func (ts Tables) Require(names ...string) error {
	for _, n := range names {
		if _, err := ts.Get(n); err != nil {
			return err
		}
	}
	return nil
}

// Names returns the table keys in lexical order.
func (ts Tables) Names() []string {
	out := make([]string, 0, len(ts))
	for k := range ts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// IsMissing reports whether a cell holds no value. Gota rewrites NA-like
// tokens to "NaN" while loading.
func IsMissing(v string) bool {
	s := strings.TrimSpace(v)
	return s == "" || s == "NaN"
}
