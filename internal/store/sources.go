package store

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/inodb/somvar/internal/summary"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Source is an input file a stage count was computed from.
type Source struct {
	Stage string
	FileFingerprint
}

// WriteSources records the input files of every stage of sample, replacing
// any sources previously recorded for it.
func (s *Store) WriteSources(sample string, stages []summary.Stage) error {
	var sources []Source
	for _, st := range stages {
		for _, path := range st.Paths {
			fp, err := StatFile(path)
			if err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}
			sources = append(sources, Source{Stage: st.Name, FileFingerprint: fp})
		}
	}

	if _, err := s.db.Exec("DELETE FROM stage_sources WHERE sample=?", sample); err != nil {
		return fmt.Errorf("delete sample sources: %w", err)
	}
	if len(sources) == 0 {
		return nil
	}

	appender, done, err := s.newAppender("stage_sources")
	if err != nil {
		return err
	}
	defer done()

	for _, src := range sources {
		if err := appender.AppendRow(
			sample, src.Stage, src.Path, src.Size, src.ModTime.UTC().Truncate(time.Microsecond),
		); err != nil {
			return fmt.Errorf("append stage source: %w", err)
		}
	}

	return appender.Flush()
}

// Sources returns the recorded input files of sample, ordered by stage and path.
func (s *Store) Sources(sample string) ([]Source, error) {
	rows, err := s.db.Query(`SELECT stage, path, size, mod_time
		FROM stage_sources
		WHERE sample=?
		ORDER BY stage, path`, sample)
	if err != nil {
		return nil, fmt.Errorf("query stage sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var src Source
		if err := rows.Scan(&src.Stage, &src.Path, &src.Size, &src.ModTime); err != nil {
			return nil, fmt.Errorf("scan stage source: %w", err)
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stage sources: %w", err)
	}
	return sources, nil
}

// Stale reports whether any recorded source of sample changed on disk
// (different size or modification time) or no longer exists.
func (s *Store) Stale(sample string) (bool, error) {
	sources, err := s.Sources(sample)
	if err != nil {
		return false, err
	}
	return stale(sources), nil
}

func stale(sources []Source) bool {
	for _, src := range sources {
		fp, err := StatFile(src.Path)
		if err != nil {
			return true
		}
		// TIMESTAMP columns keep microseconds.
		if fp.Size != src.Size || !fp.ModTime.Truncate(time.Microsecond).Equal(src.ModTime) {
			return true
		}
	}
	return false
}

// Current returns the stored summary of sample if it was computed from
// exactly the given stages and none of their files changed since.
func (s *Store) Current(sample string, stages []summary.Stage) (*summary.SampleSummary, bool, error) {
	sum, ok, err := s.SampleSummary(sample)
	if err != nil || !ok {
		return nil, false, err
	}
	if len(sum.Stages) != len(stages) {
		return nil, false, nil
	}
	for i, st := range stages {
		if sum.Stages[i].Stage != st.Name {
			return nil, false, nil
		}
	}

	sources, err := s.Sources(sample)
	if err != nil {
		return nil, false, err
	}
	if !sameSources(sources, stages) || stale(sources) {
		return nil, false, nil
	}
	return sum, true, nil
}

// sameSources reports whether sources holds exactly the paths of stages.
func sameSources(sources []Source, stages []summary.Stage) bool {
	recorded := make(map[string][]string)
	for _, src := range sources {
		recorded[src.Stage] = append(recorded[src.Stage], src.Path)
	}
	if len(recorded) != len(stages) {
		return false
	}
	for _, st := range stages {
		want := slices.Clone(st.Paths)
		slices.Sort(want)
		if !slices.Equal(recorded[st.Name], want) {
			return false
		}
	}
	return true
}
