package summary

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// SampleColumn is the index column of summary tables.
const SampleColumn = "sample"

// SPMColumn returns the spm count column name for a stage.
func SPMColumn(stage string) string { return stage + "_spm" }

// SIMColumn returns the sim count column name for a stage.
func SIMColumn(stage string) string { return stage + "_sim" }

// Table is a summary table: ordered column names and rows of cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Columns returns the summary columns for s: the sample column followed by
// the spm and sim column of every stage, interleaved in stage order.
func (s *SampleSummary) Columns() []string {
	cols := make([]string, 0, 1+2*len(s.Stages))
	cols = append(cols, SampleColumn)
	for _, sc := range s.Stages {
		cols = append(cols, SPMColumn(sc.Stage), SIMColumn(sc.Stage))
	}
	return cols
}

// Table returns s as a single-row table.
func (s *SampleSummary) Table() *Table {
	row := make([]string, 0, 1+2*len(s.Stages))
	row = append(row, s.Sample)
	for _, sc := range s.Stages {
		row = append(row, strconv.Itoa(sc.SPM), strconv.Itoa(sc.SIM))
	}
	return &Table{Columns: s.Columns(), Rows: [][]string{row}}
}

// Concat stacks the rows of tables in input order. The result has the union
// of all columns, in first-seen order; cells a table does not have are empty.
func Concat(tables ...*Table) *Table {
	out := &Table{}
	index := make(map[string]int)
	for _, t := range tables {
		for _, col := range t.Columns {
			if _, ok := index[col]; !ok {
				index[col] = len(out.Columns)
				out.Columns = append(out.Columns, col)
			}
		}
	}

	for _, t := range tables {
		for _, row := range t.Rows {
			r := make([]string, len(out.Columns))
			for j, col := range t.Columns {
				if j < len(row) {
					r[index[col]] = row[j]
				}
			}
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// TabWriter writes a table in tab-delimited format.
type TabWriter struct {
	w *bufio.Writer
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{w: bufio.NewWriter(w)}
}

// Write writes the header line and all rows of t.
func (tw *TabWriter) Write(t *Table) error {
	if _, err := tw.w.WriteString(strings.Join(t.Columns, "\t") + "\n"); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row has %d cells, table has %d columns", len(row), len(t.Columns))
		}
		if _, err := tw.w.WriteString(strings.Join(row, "\t") + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// WriteFile writes t as a tab-separated file at path.
func WriteFile(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary file: %w", err)
	}
	defer f.Close()

	tw := NewTabWriter(f)
	if err := tw.Write(t); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush summary: %w", err)
	}
	return f.Close()
}

// ReadFile reads a tab-separated summary table with a header row, as
// written by WriteFile. Cells are kept as text and are not unquoted.
// A file with only a header row is a table without rows.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open summary file: %w", err)
	}
	defer f.Close()

	var records [][]string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		records = append(records, strings.Split(line, "\t"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read summary %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read summary %s: no header row", path)
	}

	header := records[0]
	for i, row := range records[1:] {
		if len(row) != len(header) {
			return nil, fmt.Errorf("read summary %s: row %d has %d cells, header has %d",
				path, i+1, len(row), len(header))
		}
	}
	if len(records) == 1 {
		return &Table{Columns: header}, nil
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("read summary %s: %w", path, df.Err)
	}

	t := &Table{Columns: header}
	nrow, ncol := df.Dims()
	for i := 0; i < nrow; i++ {
		row := make([]string, ncol)
		for j := 0; j < ncol; j++ {
			row[j] = df.Elem(i, j).String()
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
