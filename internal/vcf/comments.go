package vcf

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/biogo/hts/bgzf"
)

// CommentBlock holds the ## metadata lines that precede the column header,
// each including its line terminator. The lines are never interpreted.
type CommentBlock []string

// WriteTo writes the lines verbatim.
func (b CommentBlock) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, line := range b {
		n, err := io.WriteString(w, line)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ReadComments returns the ## lines of path that appear before the column
// header. The header is matched case-insensitively.
func ReadComments(path string) (CommentBlock, error) {
	if err := CheckExists(path); err != nil {
		return nil, err
	}

	src, err := openSource(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var comments CommentBlock
	for {
		line, err := src.reader.ReadString('\n')
		if strings.HasPrefix(strings.ToLower(line), "#chrom") {
			break
		}
		if strings.HasPrefix(line, "##") {
			comments = append(comments, line)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read comments: %w", err)
		}
	}

	return comments, nil
}

// SaveComments copies the comment block of src into a freshly truncated,
// compressed dst. dst is closed before returning so rows can be appended.
func SaveComments(src, dst string) error {
	comments, err := ReadComments(src)
	if err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}

	bw := bgzf.NewWriter(out, 1)
	if _, err := comments.WriteTo(bw); err != nil {
		bw.Close()
		out.Close()
		return fmt.Errorf("write comments: %w", err)
	}
	if err := bw.Close(); err != nil {
		out.Close()
		return fmt.Errorf("close compressed stream: %w", err)
	}
	return out.Close()
}
