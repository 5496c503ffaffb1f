package vcf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/biogo/hts/bgzf"
)

// Writer writes a collection as a tab-separated table.
type Writer struct {
	w      *bufio.Writer
	header Header
}

// NewWriter creates a new table writer for rows with the given header.
func NewWriter(w io.Writer, h Header) *Writer {
	return &Writer{
		w:      bufio.NewWriter(w),
		header: h,
	}
}

// WriteHeader writes the column names line.
func (vw *Writer) WriteHeader() error {
	_, err := vw.w.WriteString(vw.header.String() + "\n")
	return err
}

// Write writes a single variant row using its verbatim fields.
func (vw *Writer) Write(v *Variant) error {
	if len(v.Fields) != vw.header.Len() {
		return fmt.Errorf("variant %s:%d has %d fields, header has %d",
			v.Chrom, v.Pos, len(v.Fields), vw.header.Len())
	}
	_, err := vw.w.WriteString(strings.Join(v.Fields, "\t") + "\n")
	return err
}

// WriteAll writes the header line followed by every variant of c.
func (vw *Writer) WriteAll(c *Collection) error {
	if err := vw.WriteHeader(); err != nil {
		return err
	}
	for _, v := range c.Variants {
		if err := vw.Write(v); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (vw *Writer) Flush() error {
	return vw.w.Flush()
}

// AppendTable appends c as a new compressed member at the end of dst,
// creating dst if needed. Readers see the members as one gzip stream.
func AppendTable(dst string, c *Collection) error {
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer out.Close()

	bw := bgzf.NewWriter(out, 1)
	vw := NewWriter(bw, c.Header)
	if err := vw.WriteAll(c); err != nil {
		bw.Close()
		return fmt.Errorf("write variants: %w", err)
	}
	if err := vw.Flush(); err != nil {
		bw.Close()
		return fmt.Errorf("flush variants: %w", err)
	}
	if err := bw.Close(); err != nil {
		return fmt.Errorf("close compressed stream: %w", err)
	}
	return out.Close()
}

// WriteFiltered writes the comment block of src followed by c to dst.
func WriteFiltered(src, dst string, c *Collection) error {
	if err := SaveComments(src, dst); err != nil {
		return err
	}
	return AppendTable(dst, c)
}
