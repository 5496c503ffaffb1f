// Package main provides the somvar command-line tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ConfigurationError reports invalid command-line arguments or settings.
// It is detected before any file is read or written.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

func configErrorf(format string, args ...any) error {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// app carries the output streams and logger shared by all commands.
type app struct {
	stdout io.Writer
	stderr io.Writer
	logger *zap.Logger
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	viper.Reset()

	a := &app{stdout: stdout, stderr: stderr, logger: zap.NewNop()}
	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	a.logger.Sync()
	if err == nil {
		return ExitSuccess
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return ExitUsage
	}
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(stderr, "Hint: Check that the file path is correct\n")
	}
	return ExitError
}

func (a *app) newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "somvar",
		Short: "Filter somatic variant calls and summarize spm/sim counts",
		Long: `somvar filters somatic VCF output of Mutect2 and Strelka, separates
single point mutations (spm) from small indel mutations (sim), and counts
them per pipeline stage and sample.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(cfgFile); err != nil {
				return err
			}
			logger, err := newLogger(a.stderr, viper.GetString("log-level"))
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.somvar.yaml)")
	root.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	viper.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &ConfigurationError{Message: err.Error()}
	})

	root.AddCommand(a.newFilterCmd())
	root.AddCommand(a.newSampleSummaryCmd())
	root.AddCommand(a.newTotalSummaryCmd())
	root.AddCommand(a.newConfigCmd())

	return root
}

// initConfig sets defaults and reads the config file and SOMVAR_ environment.
func initConfig(cfgFile string) error {
	for _, k := range configKeys {
		viper.SetDefault(k.Name, k.Default)
	}

	viper.SetEnvPrefix("somvar")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		viper.SetConfigFile(filepath.Join(home, ".somvar.yaml"))
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || (cfgFile == "" && errors.Is(err, fs.ErrNotExist)) {
			return nil
		}
		return configErrorf("reading config: %v", err)
	}
	return nil
}

// newLogger creates a console logger on w at the named level.
func newLogger(w io.Writer, level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, configErrorf("invalid log level %q", level)
	}

	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}
