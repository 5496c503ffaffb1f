package vcf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"
)

// source is an open, possibly gzip-compressed, input file.
type source struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *pgzip.Reader
}

// openSource opens path and transparently decompresses gzip and BGZF input.
func openSource(path string) (*source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}

	s := &source{file: file}

	// Check for gzip magic bytes
	buf := make([]byte, 2)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		file.Close()
		return nil, fmt.Errorf("read vcf header: %w", err)
	}

	// Seek back to beginning
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek vcf file: %w", err)
	}

	// Check for gzip magic number (0x1f, 0x8b)
	if n == 2 && buf[0] == 0x1f && buf[1] == 0x8b {
		s.gzipReader, err = pgzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		s.reader = bufio.NewReader(s.gzipReader)
	} else {
		s.reader = bufio.NewReader(file)
	}

	return s, nil
}

// Close closes the decompressor and the underlying file.
func (s *source) Close() error {
	if s.gzipReader != nil {
		s.gzipReader.Close()
	}
	return s.file.Close()
}

// columns holds the indices of the columns the parser interprets.
// Optional columns are -1 when absent.
type columns struct {
	chrom, pos, id, ref, alt, qual, filter int
}

func indexColumns(h Header) (columns, error) {
	cols := columns{
		chrom:  h.Index(ColChrom),
		pos:    h.Index(ColPos),
		id:     h.Index(ColID),
		ref:    h.Index(ColRef),
		alt:    h.Index(ColAlt),
		qual:   h.Index(ColQual),
		filter: h.Index(ColFilter),
	}
	required := []struct {
		name string
		idx  int
	}{
		{ColChrom, cols.chrom},
		{ColPos, cols.pos},
		{ColRef, cols.ref},
		{ColAlt, cols.alt},
		{ColFilter, cols.filter},
	}
	for _, r := range required {
		if r.idx < 0 {
			return cols, fmt.Errorf("missing required column %s", r.name)
		}
	}
	return cols, nil
}

// Parser reads variants from a VCF file.
type Parser struct {
	src        *source
	path       string
	reader     *bufio.Reader
	lineNumber int
	header     Header
	cols       columns
}

// NewParser creates a new VCF parser for the given file.
// Supports both plain VCF and gzipped or bgzipped VCF (.vcf.gz) files.
func NewParser(path string) (*Parser, error) {
	src, err := openSource(path)
	if err != nil {
		return nil, err
	}

	p := &Parser{src: src, path: path, reader: src.reader}

	if err := p.parseHeader(); err != nil {
		p.Close()
		return nil, err
	}

	return p, nil
}

// NewParserFromReader creates a parser from an uncompressed io.Reader.
func NewParserFromReader(r io.Reader) (*Parser, error) {
	p := &Parser{reader: bufio.NewReader(r)}

	if err := p.parseHeader(); err != nil {
		return nil, err
	}

	return p, nil
}

// parseHeader skips metadata lines up to and including the #CHROM line.
func (p *Parser) parseHeader() error {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("read header: %w", err)
		}
		p.lineNumber++

		if strings.HasPrefix(line, ColChrom) {
			p.header = ParseHeader(strings.TrimRight(line, "\r\n"))
			cols, err := indexColumns(p.header)
			if err != nil {
				return p.errorf("%v", err)
			}
			p.cols = cols
			return nil
		}

		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}

		// Non-header line encountered without #CHROM
		return p.errorf("expected #CHROM header line")
	}

	return p.errorf("no #CHROM header line found")
}

// Next reads the next variant from the VCF file.
// Returns nil, nil when there are no more variants.
func (p *Parser) Next() (*Variant, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("read variant line: %w", err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" || line[0] == '#' {
			continue
		}

		return p.parseLine(line)
	}
}

// parseLine parses a single VCF data line into a Variant.
func (p *Parser) parseLine(line string) (*Variant, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != p.header.Len() {
		return nil, p.errorf("expected %d columns, found %d", p.header.Len(), len(fields))
	}

	pos, err := strconv.ParseInt(fields[p.cols.pos], 10, 64)
	if err != nil {
		return nil, p.errorf("invalid position: %s", fields[p.cols.pos])
	}

	v := &Variant{
		Chrom:  fields[p.cols.chrom],
		Pos:    pos,
		Ref:    fields[p.cols.ref],
		Alt:    fields[p.cols.alt],
		Filter: fields[p.cols.filter],
		Fields: fields,
	}
	if p.cols.id >= 0 {
		v.ID = fields[p.cols.id]
	}
	if p.cols.qual >= 0 {
		v.Qual = fields[p.cols.qual]
	}

	return v, nil
}

// ReadAll reads the remaining variants into a collection.
func (p *Parser) ReadAll() (*Collection, error) {
	c := NewCollection(p.header)
	for {
		v, err := p.Next()
		if err != nil {
			return nil, err
		}
		if v == nil {
			return c, nil
		}
		c.Add(v)
	}
}

func (p *Parser) errorf(format string, args ...any) error {
	return &ParseError{
		Path:    p.path,
		Line:    p.lineNumber,
		Message: fmt.Sprintf(format, args...),
	}
}

// Header returns the column header.
func (p *Parser) Header() Header {
	return p.header
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.src != nil {
		return p.src.Close()
	}
	return nil
}
