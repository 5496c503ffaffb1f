package vcf

import (
	"fmt"
	"io/fs"
	"strings"
)

// ParseError represents an error during VCF parsing with line context.
type ParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("vcf parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
}

// MissingInputError is returned when an input path does not exist.
type MissingInputError struct {
	Path string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("%s cannot be found, did you provide a correct path?", e.Path)
}

// Unwrap lets errors.Is(err, fs.ErrNotExist) match.
func (e *MissingInputError) Unwrap() error {
	return fs.ErrNotExist
}

// HeaderMismatchError is returned when concatenating files whose column
// headers differ.
type HeaderMismatchError struct {
	Path string // file whose header did not match, if known
	Want []string
	Got  []string
}

func (e *HeaderMismatchError) Error() string {
	msg := fmt.Sprintf("column header mismatch: want [%s], got [%s]",
		strings.Join(e.Want, " "), strings.Join(e.Got, " "))
	if e.Path != "" {
		return e.Path + ": " + msg
	}
	return msg
}
