// Package dataset reads tabular parquet files into column-ordered records.
package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"
)

// Table is a fully loaded parquet file. Values are nil, bool, int64, float64,
// string, time.Time, or []any for repeated columns.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Index returns the position of column name, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns all values of column name.
func (t *Table) Column(name string) ([]any, error) {
	idx := t.Index(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found", name)
	}
	out := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

type column struct {
	name     string
	repeated bool
	conv     func(parquet.Value) any
}

// ReadParquet loads every row of the file at path.
func ReadParquet(path string) (*Table, error) {
	h, err := openParquet(path)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	leaves := h.pf.Schema().Columns()
	cols := make([]column, len(leaves))
	names := make([]string, 0, len(leaves))
	pos := make([]int, len(leaves)) // leaf index -> output column
	seen := make(map[string]int, len(leaves))

	for i, path := range leaves {
		if len(path) == 0 {
			pos[i] = -1
			continue
		}
		name := path[0]
		cols[i] = column{name: name, conv: converter(h.pf.Schema(), path)}
		if leaf, ok := h.pf.Schema().Lookup(path...); ok {
			cols[i].repeated = leaf.MaxRepetitionLevel > 0
		}
		if j, ok := seen[name]; ok {
			pos[i] = j
			continue
		}
		seen[name] = len(names)
		pos[i] = len(names)
		names = append(names, name)
	}

	t := &Table{Columns: names}
	for _, rg := range h.pf.RowGroups() {
		if err := readRowGroup(rg, cols, pos, len(names), t); err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
	}
	return t, nil
}

func readRowGroup(rg parquet.RowGroup, cols []column, pos []int, width int, t *Table) error {
	rows := parquet.NewRowGroupReader(rg)
	buf := make([]parquet.Row, 512)

	for {
		n, readErr := rows.ReadRows(buf)
		for i := 0; i < n; i++ {
			t.Rows = append(t.Rows, toRecord(buf[i], cols, pos, width))
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return fmt.Errorf("read rows: %w", readErr)
		}
	}
}

func toRecord(row parquet.Row, cols []column, pos []int, width int) []any {
	rec := make([]any, width)
	for _, v := range row {
		leaf := v.Column()
		if leaf < 0 || leaf >= len(pos) || pos[leaf] < 0 || v.IsNull() {
			continue
		}
		c := cols[leaf]
		if !c.repeated {
			rec[pos[leaf]] = c.conv(v)
			continue
		}
		list, _ := rec[pos[leaf]].([]any)
		rec[pos[leaf]] = append(list, c.conv(v))
	}
	return rec
}

// converter picks the Go representation for a leaf column from its physical
// and logical type.
func converter(schema *parquet.Schema, path []string) func(parquet.Value) any {
	var lt *format.LogicalType
	if leaf, ok := schema.Lookup(path...); ok {
		lt = leaf.Node.Type().LogicalType()
	}

	switch {
	case lt != nil && lt.Timestamp != nil:
		unit := lt.Timestamp.Unit
		return func(v parquet.Value) any {
			n := v.Int64()
			switch {
			case unit.Millis != nil:
				return time.UnixMilli(n).UTC()
			case unit.Micros != nil:
				return time.UnixMicro(n).UTC()
			default:
				return time.Unix(0, n).UTC()
			}
		}
	case lt != nil && lt.Date != nil:
		return func(v parquet.Value) any {
			return time.Unix(int64(v.Int32())*86400, 0).UTC()
		}
	}

	return func(v parquet.Value) any {
		switch v.Kind() {
		case parquet.Boolean:
			return v.Boolean()
		case parquet.Int32:
			return int64(v.Int32())
		case parquet.Int64:
			return v.Int64()
		case parquet.Float:
			return float64(v.Float())
		case parquet.Double:
			return v.Double()
		default:
			return v.String()
		}
	}
}

// parquetHandle wraps parquet.File + underlying os.File for proper cleanup.
type parquetHandle struct {
	pf   *parquet.File
	file *os.File
}

func (h *parquetHandle) Close() {
	_ = h.file.Close()
}

func openParquet(path string) (*parquetHandle, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	return &parquetHandle{pf: pf, file: f}, nil
}
