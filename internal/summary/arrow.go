package summary

import (
	"fmt"
	"os"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ArrowWriter writes summary rows to an Arrow IPC file: the sample column as
// utf8 and every count column as int64. Empty cells become nulls.
type ArrowWriter struct {
	file           *os.File
	schema         *arrow.Schema
	writer         *ipc.FileWriter
	sample         *array.StringBuilder
	counts         []*array.Int64Builder
	chunkSize      int
	numRowsInChunk int
}

// NewArrowWriter creates path and prepares a writer for the given columns.
// The first column holds sample names. Rows are flushed every chunkSize rows.
func NewArrowWriter(path string, columns []string, chunkSize int) (*ArrowWriter, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("arrow writer needs at least one column")
	}
	if chunkSize <= 0 {
		chunkSize = 1024
	}

	pool := memory.NewGoAllocator()
	fields := make([]arrow.Field, len(columns))
	fields[0] = arrow.Field{Name: columns[0], Type: arrow.BinaryTypes.String}
	for i, name := range columns[1:] {
		fields[i+1] = arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Int64, Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create arrow file: %w", err)
	}

	writer, err := ipc.NewFileWriter(file, ipc.WithSchema(schema), ipc.WithAllocator(pool))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("create arrow writer: %w", err)
	}

	counts := make([]*array.Int64Builder, len(columns)-1)
	for i := range counts {
		counts[i] = array.NewInt64Builder(pool)
	}

	return &ArrowWriter{
		file:      file,
		schema:    schema,
		writer:    writer,
		sample:    array.NewStringBuilder(pool),
		counts:    counts,
		chunkSize: chunkSize,
	}, nil
}

// Write appends one table row.
func (aw *ArrowWriter) Write(row []string) error {
	if len(row) != len(aw.counts)+1 {
		return fmt.Errorf("mismatch in number of fields: expected %d, got %d", len(aw.counts)+1, len(row))
	}

	aw.sample.Append(row[0])
	for i, cell := range row[1:] {
		if cell == "" {
			aw.counts[i].AppendNull()
			continue
		}
		n, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return fmt.Errorf("column %s: invalid count %q", aw.schema.Field(i+1).Name, cell)
		}
		aw.counts[i].Append(n)
	}

	aw.numRowsInChunk++

	if aw.numRowsInChunk == aw.chunkSize {
		return aw.writeChunk()
	}
	return nil
}

func (aw *ArrowWriter) writeChunk() error {
	cols := make([]arrow.Array, 0, len(aw.counts)+1)
	// NewArray resets the builder for the next chunk.
	cols = append(cols, aw.sample.NewArray())
	for _, b := range aw.counts {
		cols = append(cols, b.NewArray())
	}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	record := array.NewRecord(aw.schema, cols, int64(aw.numRowsInChunk))
	defer record.Release()

	if err := aw.writer.Write(record); err != nil {
		return fmt.Errorf("write arrow record: %w", err)
	}

	aw.numRowsInChunk = 0
	return nil
}

// Close writes any remaining rows and closes the file.
func (aw *ArrowWriter) Close() error {
	if aw.numRowsInChunk > 0 {
		if err := aw.writeChunk(); err != nil {
			aw.writer.Close()
			aw.file.Close()
			return err
		}
	}
	if err := aw.writer.Close(); err != nil {
		aw.file.Close()
		return fmt.Errorf("close arrow writer: %w", err)
	}
	return aw.file.Close()
}

// WriteArrow writes t to path as an Arrow IPC file.
func WriteArrow(path string, t *Table) error {
	aw, err := NewArrowWriter(path, t.Columns, 0)
	if err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := aw.Write(row); err != nil {
			aw.Close()
			return err
		}
	}
	return aw.Close()
}
