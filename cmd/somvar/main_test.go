package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/somvar/internal/summary"
	"github.com/inodb/somvar/internal/vcf"
)

const testComments = "##fileformat=VCFv4.2\n##source=Mutect2\n"

const testVCF = testComments +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" +
	"1\t100\t.\tC\tA\t.\tPASS\t.\n" +
	"1\t200\t.\tG\tGT\t.\tPASS\t.\n" +
	"1\t300\t.\tT\tC\t.\tweak_evidence\t.\n" +
	"1\t400\t.\tCAT\tC\t.\t.\t.\n" +
	"1\t100\t.\tC\tA\t.\tpass\t.\n"

// execute runs the CLI with an isolated home directory.
func execute(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFilter(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "calls.vcf", testVCF)
	out := filepath.Join(dir, "calls.filtered.vcf.gz")

	code, _, stderr := execute(t, "filter", "-f", in, "-o", out)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stderr, "filtered variants")
	assert.Contains(t, stderr, "exceeds 0.2")

	comments, err := vcf.ReadComments(out)
	require.NoError(t, err)
	assert.Equal(t, vcf.CommentBlock{"##fileformat=VCFv4.2\n", "##source=Mutect2\n"}, comments)

	c, err := vcf.Load(out)
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())
	assert.Equal(t, int64(100), c.Variants[0].Pos)
	assert.Equal(t, int64(200), c.Variants[1].Pos)
	assert.Equal(t, int64(400), c.Variants[2].Pos)
	assert.Equal(t, []string{"1", "400", ".", "CAT", "C", ".", ".", "."}, c.Variants[2].Fields)
}

func TestFilter_Separate(t *testing.T) {
	dir := t.TempDir()
	snvs := writeFile(t, dir, "snvs.vcf", testVCF)
	indels := writeFile(t, dir, "indels.vcf", strings.Replace(testVCF, "Mutect2", "Strelka", 1))
	spmOut := filepath.Join(dir, "out.spm.vcf.gz")
	simOut := filepath.Join(dir, "out.sim.vcf.gz")

	code, _, stderr := execute(t, "filter", "-f", snvs+","+indels, "-o", spmOut+","+simOut,
		"--spim-separate", "--max-sim", "0.9")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.NotContains(t, stderr, "exceeds")

	spm, err := vcf.Load(spmOut)
	require.NoError(t, err)
	assert.Equal(t, 1, spm.Len())

	sim, err := vcf.Load(simOut)
	require.NoError(t, err)
	assert.Equal(t, 2, sim.Len())

	comments, err := vcf.ReadComments(simOut)
	require.NoError(t, err)
	assert.Equal(t, "##source=Strelka\n", comments[1])
}

func TestFilter_ConfigurationErrors(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "calls.vcf", testVCF)
	out := filepath.Join(dir, "out.vcf.gz")

	tests := []struct {
		name string
		args []string
	}{
		{"separate with one output", []string{"filter", "-f", in, "-o", out, "--spim-separate"}},
		{"separate with three outputs", []string{"filter", "-f", in, "-o", "a,b,c", "--spim-separate"}},
		{"two outputs without separate", []string{"filter", "-f", in, "-o", "a,b"}},
		{"no input", []string{"filter", "-o", out}},
		{"bad flag value", []string{"filter", "-f", in, "-o", out, "--max-sim", "lots"}},
		{"unknown flag", []string{"filter", "--nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := execute(t, tt.args...)
			assert.Equal(t, ExitUsage, code)
			assert.NoFileExists(t, out)
		})
	}
}

func TestFilter_MissingInput(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "calls.vcf", testVCF)
	missing := filepath.Join(dir, "missing.vcf.gz")
	out := filepath.Join(dir, "out.vcf.gz")

	code, _, stderr := execute(t, "filter", "-f", in+","+missing, "-o", out)
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, missing+" cannot be found")
	assert.NoFileExists(t, out)
}

func TestFilter_HeaderMismatch(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.vcf", testVCF)
	b := writeFile(t, dir, "b.vcf", strings.Replace(testVCF, "\tINFO\n", "\tDETAILS\n", 1))

	code, _, stderr := execute(t, "filter", "-f", a+","+b, "-o", filepath.Join(dir, "out.vcf.gz"))
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "column header mismatch")
}

func TestSampleAndTotalSummary(t *testing.T) {
	dir := t.TempDir()
	raw := writeFile(t, dir, "raw.vcf", testVCF)
	db := filepath.Join(dir, "somvar.duckdb")

	s1 := filepath.Join(dir, "S1.tsv")
	code, _, stderr := execute(t, "sample-summary", "--sample", "S1",
		"--stage", "raw="+raw, "--stage", "twice="+raw+","+raw, "-o", s1, "--db", db)
	require.Equal(t, ExitSuccess, code, stderr)

	tbl, err := summary.ReadFile(s1)
	require.NoError(t, err)
	assert.Equal(t, []string{"sample", "raw_spm", "raw_sim", "twice_spm", "twice_sim"}, tbl.Columns)
	assert.Equal(t, [][]string{{"S1", "3", "2", "6", "4"}}, tbl.Rows)

	s2 := filepath.Join(dir, "S2.tsv")
	code, _, stderr = execute(t, "sample-summary", "--sample", "S2", "--stage", "raw="+raw, "--stage", "twice="+raw, "-o", s2)
	require.Equal(t, ExitSuccess, code, stderr)

	total := filepath.Join(dir, "total.tsv")
	arrowPath := filepath.Join(dir, "total.arrow")
	code, _, stderr = execute(t, "total-summary", "-o", total, "--arrow", arrowPath, s2, "--db", db)
	require.Equal(t, ExitSuccess, code, stderr)

	tbl, err = summary.ReadFile(total)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"S2", "3", "2", "3", "2"},
		{"S1", "3", "2", "6", "4"},
	}, tbl.Rows)
	assert.FileExists(t, arrowPath)
}

func TestSampleSummary_Pipeline(t *testing.T) {
	dir := t.TempDir()
	raw := writeFile(t, dir, "raw.vcf", testVCF)
	out := filepath.Join(dir, "S1.tsv")

	code, _, stderr := execute(t, "sample-summary", "--sample", "S1",
		"--m2-raw", raw, "--m2-filt", raw, "--st-raw", raw, "--st-filt", raw, "--intersect", raw,
		"--germl", raw, "-o", out)
	require.Equal(t, ExitSuccess, code, stderr)

	tbl, err := summary.ReadFile(out)
	require.NoError(t, err)
	assert.Len(t, tbl.Columns, 13)
	assert.Equal(t, "germline_filtered_sim", tbl.Columns[12])
}

func TestSampleSummary_ConfigurationErrors(t *testing.T) {
	dir := t.TempDir()
	raw := writeFile(t, dir, "raw.vcf", testVCF)
	out := filepath.Join(dir, "S1.tsv")

	tests := []struct {
		name string
		args []string
	}{
		{"no stages", []string{"sample-summary", "--sample", "S1", "-o", out}},
		{"incomplete pipeline", []string{"sample-summary", "--sample", "S1", "--m2-raw", raw, "-o", out}},
		{"bad stage", []string{"sample-summary", "--sample", "S1", "--stage", "raw", "-o", out}},
		{"duplicate stage", []string{"sample-summary", "--sample", "S1", "--stage", "a=" + raw, "--stage", "a=" + raw, "-o", out}},
		{"no sample", []string{"sample-summary", "--stage", "a=" + raw, "-o", out}},
		{"no output", []string{"sample-summary", "--sample", "S1", "--stage", "a=" + raw}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := execute(t, tt.args...)
			assert.Equal(t, ExitUsage, code)
			assert.NoFileExists(t, out)
		})
	}
}

func TestSampleSummary_MissingInput(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.vcf.gz")

	code, _, stderr := execute(t, "sample-summary", "--sample", "S1", "--stage", "a="+missing, "-o", filepath.Join(dir, "S1.tsv"))
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, missing)
}

func TestTotalSummary_NoInputs(t *testing.T) {
	code, _, _ := execute(t, "total-summary", "-o", filepath.Join(t.TempDir(), "total.tsv"))
	assert.Equal(t, ExitUsage, code)
}

func TestConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	var out, errOut bytes.Buffer
	require.Equal(t, ExitSuccess, run([]string{"config", "set", "max-sim", "0.3"}, &out, &errOut), errOut.String())
	assert.FileExists(t, filepath.Join(home, ".somvar.yaml"))

	out.Reset()
	require.Equal(t, ExitSuccess, run([]string{"config", "get", "max-sim"}, &out, &errOut), errOut.String())
	assert.Equal(t, "0.3\n", out.String())

	out.Reset()
	require.Equal(t, ExitSuccess, run([]string{"config"}, &out, &errOut), errOut.String())
	assert.Contains(t, out.String(), "max-sim: 0.3")
	assert.Contains(t, out.String(), "log-level: info")
}

func TestConfig_EnvOverride(t *testing.T) {
	t.Setenv("SOMVAR_MAX_SIM", "0.5")
	code, stdout, _ := execute(t, "config", "get", "max-sim")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "0.5\n", stdout)
}

func TestInvalidLogLevel(t *testing.T) {
	code, _, stderr := execute(t, "--log-level", "chatty", "config")
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr, "invalid log level")
}

func TestVersion(t *testing.T) {
	code, stdout, _ := execute(t, "--version")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "dev")
}

func TestFilter_AcceptedFromEnv(t *testing.T) {
	t.Setenv("SOMVAR_FILTER_ACCEPT", "PASS,weak_evidence")
	dir := t.TempDir()
	in := writeFile(t, dir, "calls.vcf", testVCF)
	out := filepath.Join(dir, "out.vcf.gz")

	code, _, stderr := execute(t, "filter", "-f", in, "-o", out)
	require.Equal(t, ExitSuccess, code, stderr)

	c, err := vcf.Load(out)
	require.NoError(t, err)
	var positions []int64
	for _, v := range c.Variants {
		positions = append(positions, v.Pos)
	}
	assert.Equal(t, []int64{100, 200, 300}, positions)
}

func TestSampleSummary_ReusesStoredCounts(t *testing.T) {
	dir := t.TempDir()
	raw := writeFile(t, dir, "raw.vcf", testVCF)
	db := filepath.Join(dir, "somvar.duckdb")
	out := filepath.Join(dir, "S1.tsv")
	args := []string{"sample-summary", "--sample", "S1", "--stage", "raw=" + raw, "-o", out, "--db", db}

	code, _, stderr := execute(t, args...)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stderr, "stage counts")

	require.NoError(t, os.Remove(out))
	code, _, stderr = execute(t, args...)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stderr, "not recounting")
	tbl, err := summary.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"S1", "3", "2"}}, tbl.Rows)

	code, _, stderr = execute(t, append(args, "--recount")...)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.NotContains(t, stderr, "not recounting")

	writeFile(t, dir, "raw.vcf", testVCF+"2\t500\t.\tG\tA\t.\tPASS\t.\n")
	code, _, stderr = execute(t, "total-summary", "-o", filepath.Join(dir, "total.tsv"), "--db", db)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stderr, "out of date")

	code, _, stderr = execute(t, args...)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.NotContains(t, stderr, "not recounting")
	tbl, err = summary.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"S1", "4", "2"}}, tbl.Rows)
}

func TestTotalSummary_HeaderOnlyInput(t *testing.T) {
	dir := t.TempDir()
	empty := writeFile(t, dir, "empty.tsv", "sample\traw_spm\traw_sim\n")
	s1 := writeFile(t, dir, "S1.tsv", "sample\traw_spm\traw_sim\nS1\t3\t2\n")
	total := filepath.Join(dir, "total.tsv")

	code, _, stderr := execute(t, "total-summary", "-o", total, empty, s1)
	require.Equal(t, ExitSuccess, code, stderr)

	tbl, err := summary.ReadFile(total)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"S1", "3", "2"}}, tbl.Rows)
}

func TestConfig_ShowDescribesKeys(t *testing.T) {
	code, stdout, _ := execute(t, "config")
	require.Equal(t, ExitSuccess, code)
	for _, k := range configKeys {
		assert.Contains(t, stdout, "# "+k.Usage)
	}
	assert.Contains(t, stdout, "max-sim: 0.2")
}

func TestConfig_SetValidates(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown key", []string{"config", "set", "max_sim", "0.3"}},
		{"not a number", []string{"config", "set", "max-sim", "high"}},
		{"not an integer", []string{"config", "set", "workers", "2.5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := execute(t, tt.args...)
			assert.Equal(t, ExitUsage, code)
		})
	}
}

func TestConfig_SetAcceptedList(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	var out, errOut bytes.Buffer
	require.Equal(t, ExitSuccess, run([]string{"config", "set", "filter.accept", "PASS,.,weak_evidence"}, &out, &errOut), errOut.String())

	viper.Reset()
	t.Cleanup(viper.Reset)
	require.NoError(t, initConfig(""))
	assert.Equal(t, []string{"PASS", ".", "weak_evidence"}, acceptedFilters())
}
