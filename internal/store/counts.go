package store

import (
	"context"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/somvar/internal/spim"
	"github.com/inodb/somvar/internal/summary"
)

// newAppender creates a DuckDB appender for table on a dedicated connection.
// The returned cleanup closes both.
func (s *Store) newAppender(table string) (*goduckdb.Appender, func(), error) {
	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return nil, nil, fmt.Errorf("get connection: %w", err)
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("create appender: %w", err)
	}

	return appender, func() {
		appender.Close()
		conn.Close()
	}, nil
}

// WriteSampleSummary stores the stage counts of a sample, replacing any
// counts previously stored for it.
func (s *Store) WriteSampleSummary(sum *summary.SampleSummary) error {
	if _, err := s.db.Exec("DELETE FROM stage_counts WHERE sample=?", sum.Sample); err != nil {
		return fmt.Errorf("delete sample counts: %w", err)
	}
	if len(sum.Stages) == 0 {
		return nil
	}

	appender, done, err := s.newAppender("stage_counts")
	if err != nil {
		return err
	}
	defer done()

	for i, sc := range sum.Stages {
		if err := appender.AppendRow(
			sum.Sample, sc.Stage, int32(i), int64(sc.SPM), int64(sc.SIM),
		); err != nil {
			return fmt.Errorf("append stage counts: %w", err)
		}
	}

	return appender.Flush()
}

// SampleSummary returns the stored counts of one sample in stage order.
// ok is false if the sample has no stored counts.
func (s *Store) SampleSummary(sample string) (sum *summary.SampleSummary, ok bool, err error) {
	rows, err := s.db.Query(`SELECT sample, stage, spm, sim
		FROM stage_counts
		WHERE sample=?
		ORDER BY stage_order`, sample)
	if err != nil {
		return nil, false, fmt.Errorf("query sample counts: %w", err)
	}
	defer rows.Close()

	sums, err := scanSummaries(rows)
	if err != nil {
		return nil, false, err
	}
	if len(sums) == 0 {
		return nil, false, nil
	}
	return sums[0], true, nil
}

// Summaries returns the stored counts of all samples, ordered by sample
// name, each with its stages in the order they were written.
func (s *Store) Summaries() ([]*summary.SampleSummary, error) {
	rows, err := s.db.Query(`SELECT sample, stage, spm, sim
		FROM stage_counts
		ORDER BY sample, stage_order`)
	if err != nil {
		return nil, fmt.Errorf("query stage counts: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

// scanSummaries groups consecutive rows of the same sample.
func scanSummaries(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*summary.SampleSummary, error) {
	var sums []*summary.SampleSummary
	for rows.Next() {
		var sample, stage string
		var spm, sim int64
		if err := rows.Scan(&sample, &stage, &spm, &sim); err != nil {
			return nil, fmt.Errorf("scan stage counts: %w", err)
		}

		if len(sums) == 0 || sums[len(sums)-1].Sample != sample {
			sums = append(sums, &summary.SampleSummary{Sample: sample})
		}
		cur := sums[len(sums)-1]
		cur.Stages = append(cur.Stages, summary.StageCounts{
			Stage:  stage,
			Counts: spim.Counts{SPM: int(spm), SIM: int(sim)},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stage counts: %w", err)
	}
	return sums, nil
}
