// Package vcf provides VCF file parsing functionality.
package vcf

import "strings"

// Standard VCF column names.
const (
	ColChrom  = "#CHROM"
	ColPos    = "POS"
	ColID     = "ID"
	ColRef    = "REF"
	ColAlt    = "ALT"
	ColQual   = "QUAL"
	ColFilter = "FILTER"
)

// Variant represents a single data row of a VCF file.
type Variant struct {
	Chrom  string // Chromosome name (e.g., "12", "chr12")
	Pos    int64  // 1-based genomic position
	ID     string // Variant identifier (e.g., rs ID)
	Ref    string // Reference allele
	Alt    string // Alternate allele(s), comma separated when multi-allelic
	Qual   string // Raw QUAL text ("." when missing)
	Filter string // Filter status (PASS, "." or filter names)

	// Fields holds every column of the row verbatim, in header order.
	// INFO, FORMAT and sample columns are only carried here.
	Fields []string
}

// Key identifies a variant for deduplication.
type Key struct {
	Chrom string
	Pos   int64
	Ref   string
	Alt   string
}

// Key returns the (chrom, pos, ref, alt) identity of the variant.
func (v *Variant) Key() Key {
	return Key{Chrom: v.Chrom, Pos: v.Pos, Ref: v.Ref, Alt: v.Alt}
}

// IsSNV returns true if the variant is a single nucleotide variant.
func (v *Variant) IsSNV() bool {
	return len(v.Ref) == 1 && len(v.Alt) == 1
}

// Header holds the ordered column names of the #CHROM line.
type Header struct {
	Columns []string
}

// ParseHeader splits a #CHROM line into trimmed column names.
func ParseHeader(line string) Header {
	fields := strings.Split(line, "\t")
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = strings.TrimSpace(f)
	}
	return Header{Columns: cols}
}

// Len returns the number of columns.
func (h Header) Len() int {
	return len(h.Columns)
}

// Index returns the position of the named column, or -1.
func (h Header) Index(name string) int {
	for i, c := range h.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Equal reports whether both headers have the same columns in the same order.
func (h Header) Equal(o Header) bool {
	if len(h.Columns) != len(o.Columns) {
		return false
	}
	for i := range h.Columns {
		if h.Columns[i] != o.Columns[i] {
			return false
		}
	}
	return true
}

// String returns the header as a tab-joined line without terminator.
func (h Header) String() string {
	return strings.Join(h.Columns, "\t")
}

// Collection is an ordered sequence of variants sharing one header.
type Collection struct {
	Header   Header
	Variants []*Variant
}

// NewCollection creates an empty collection with the given header.
func NewCollection(h Header) *Collection {
	return &Collection{Header: h}
}

// Len returns the number of variants.
func (c *Collection) Len() int {
	return len(c.Variants)
}

// Add appends a single variant.
func (c *Collection) Add(v *Variant) {
	c.Variants = append(c.Variants, v)
}

// Append adds all variants of o after those of c.
// Both collections must have identical headers.
func (c *Collection) Append(o *Collection) error {
	if !c.Header.Equal(o.Header) {
		return &HeaderMismatchError{Want: c.Header.Columns, Got: o.Header.Columns}
	}
	c.Variants = append(c.Variants, o.Variants...)
	return nil
}

// Select returns a new collection with the variants for which keep returns true,
// in their original order. The receiver is not modified.
func (c *Collection) Select(keep func(*Variant) bool) *Collection {
	out := NewCollection(c.Header)
	for _, v := range c.Variants {
		if keep(v) {
			out.Add(v)
		}
	}
	return out
}
