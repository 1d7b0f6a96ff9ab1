package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
)

// nanValues are the cell spellings treated as missing.
var nanValues = []string{"NA", "NaN", "nan", "N/A", ""}

var utf8BOM = []byte("\xef\xbb\xbf")

// DiscoverCSV lists the *.csv files directly inside dir in lexical order.
func DiscoverCSV(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data dir %s is not a directory", dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Load reads every CSV file in dir and concatenates them into one table.
// Each file's header is validated against the schema, and against the
// first file's column set, before anything is concatenated. A directory
// without CSV files yields an empty table.
func Load(dir string) (*Table, error) {
	files, err := DiscoverCSV(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return EmptyTable(), nil
	}

	type parsed struct {
		path   string
		header []string
		data   []byte
		empty  bool
	}
	batch := make([]parsed, 0, len(files))
	var first []string
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		data = bytes.TrimPrefix(data, utf8BOM)
		header, rows, err := scanFile(filepath.Base(path), data)
		if err != nil {
			return nil, err
		}
		if first == nil {
			first = header
		} else if !sameColumnSet(first, header) {
			return nil, &SchemaError{
				File:     filepath.Base(path),
				Mismatch: fmt.Sprintf("columns %s differ from %s in %s", describeHeader(header), describeHeader(first), filepath.Base(batch[0].path)),
			}
		}
		batch = append(batch, parsed{path: path, header: header, data: data, empty: rows == 0})
	}

	var merged dataframe.DataFrame
	have := false
	for _, p := range batch {
		if p.empty {
			continue
		}
		df := dataframe.ReadCSV(bytes.NewReader(p.data),
			dataframe.HasHeader(true),
			dataframe.DetectTypes(false),
			dataframe.WithTypes(gotaTypes(p.header)),
			dataframe.NaNValues(nanValues),
			dataframe.Names(p.header...),
		)
		if df.Err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(p.path), df.Err)
		}
		if !have {
			merged = df
			have = true
			continue
		}
		merged = merged.RBind(df)
		if merged.Err != nil {
			return nil, fmt.Errorf("concat %s: %w", filepath.Base(p.path), merged.Err)
		}
	}
	if !have {
		return headerOnlyTable(first), nil
	}
	return fromFrame(merged, first)
}

// scanFile validates the header of one file and checks that every numeric
// cell is either a missing marker or a number; gota would otherwise read a
// bad cell as NaN. It returns the trimmed header and the data row count.
func scanFile(name string, data []byte) ([]string, int, error) {
	r := csv.NewReader(bytes.NewReader(data))
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, fmt.Errorf("read header of %s: file is empty", name)
		}
		return nil, 0, fmt.Errorf("read header of %s: %w", name, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if err := ValidateHeader(name, header); err != nil {
		return nil, 0, err
	}
	numeric := make([]bool, len(header))
	for i, h := range header {
		spec, _ := lookupSpec(h)
		numeric[i] = spec.kind != KindString
	}
	rows := 0
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("parse %s: %w", name, err)
		}
		rows++
		for i, cell := range rec {
			if !numeric[i] || isMissingCell(cell) {
				continue
			}
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				return nil, 0, &CellError{File: name, Row: rows, Column: header[i], Value: cell}
			}
		}
	}
	return header, rows, nil
}

func isMissingCell(cell string) bool {
	for _, v := range nanValues {
		if cell == v {
			return true
		}
	}
	return false
}

func headerOnlyTable(header []string) *Table {
	cols := make([]*Column, 0, len(header))
	for _, h := range header {
		spec, _ := lookupSpec(h)
		cols = append(cols, &Column{Name: h, Kind: spec.kind})
	}
	t, _ := NewTable(cols...)
	return t
}

// fromFrame converts a gota frame into a Table, keeping the header order.
func fromFrame(df dataframe.DataFrame, header []string) (*Table, error) {
	cols := make([]*Column, 0, len(header))
	for _, name := range header {
		s := df.Col(name)
		if s.Err != nil {
			return nil, fmt.Errorf("column %s: %w", name, s.Err)
		}
		spec, _ := lookupSpec(name)
		c := &Column{Name: name, Kind: spec.kind}
		if spec.kind == KindString {
			recs := s.Records()
			nan := s.IsNaN()
			c.Strings = make([]string, len(recs))
			for i, v := range recs {
				if nan[i] {
					continue
				}
				c.Strings[i] = strings.TrimSpace(v)
			}
		} else {
			c.Floats = s.Float()
		}
		cols = append(cols, c)
	}
	return NewTable(cols...)
}
