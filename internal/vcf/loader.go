package vcf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// SplitPaths splits a comma-joined list of paths, dropping empty entries.
func SplitPaths(s string) []string {
	var paths []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// CheckExists returns a *MissingInputError if path does not exist.
func CheckExists(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &MissingInputError{Path: path}
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return nil
}

// Load reads one or more VCF files into a single collection, concatenated in
// input order. Every path is checked for existence before any file is parsed,
// so the first missing path is always the one reported. All files must share
// the header of the first.
func Load(paths ...string) (*Collection, error) {
	if len(paths) == 0 {
		return nil, errors.New("no input paths")
	}

	for _, path := range paths {
		if err := CheckExists(path); err != nil {
			return nil, err
		}
	}

	var out *Collection
	for _, path := range paths {
		c, err := loadFile(path)
		if err != nil {
			return nil, err
		}

		if out == nil {
			out = c
			continue
		}

		if err := out.Append(c); err != nil {
			var mismatch *HeaderMismatchError
			if errors.As(err, &mismatch) {
				mismatch.Path = path
			}
			return nil, err
		}
	}

	return out, nil
}

func loadFile(path string) (*Collection, error) {
	p, err := NewParser(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	return p.ReadAll()
}
