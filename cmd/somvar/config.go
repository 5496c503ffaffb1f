package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/inodb/somvar/internal/filter"
	"github.com/inodb/somvar/internal/spim"
)

// configKey is a setting read from ~/.somvar.yaml or SOMVAR_* variables.
type configKey struct {
	Name    string
	Default any
	Usage   string
}

var configKeys = []configKey{
	{"max-sim", spim.DefaultMaxSimRatio, "filter warns when the sim ratio of kept variants exceeds this"},
	{"filter.accept", filter.DefaultAccepted, "FILTER values kept by filter, case-insensitive; a list or a comma-separated string"},
	{"workers", 0, "stages sample-summary counts at once (0 = all CPUs)"},
	{"db", "", "DuckDB file sample-summary records counts in and total-summary reads from"},
	{"log-level", "info", "debug, info, warn or error"},
}

func lookupConfigKey(name string) (configKey, bool) {
	for _, k := range configKeys {
		if k.Name == name {
			return k, true
		}
	}
	return configKey{}, false
}

func configKeyNames() []string {
	names := make([]string, len(configKeys))
	for i, k := range configKeys {
		names[i] = k.Name
	}
	return names
}

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show, get, or set somvar settings",
		Long: `Show, get, or set somvar settings. Settings are stored in ~/.somvar.yaml
and can be overridden per run with SOMVAR_<KEY> environment variables
(dots and dashes become underscores, e.g. SOMVAR_FILTER_ACCEPT=PASS,.).

Keys: ` + strings.Join(configKeyNames(), ", "),
		Example: `  somvar config                             # show settings with descriptions
  somvar config set max-sim 0.25            # raise the sim ratio threshold
  somvar config set filter.accept PASS,.,lowqual
  somvar config set db ~/somvar.duckdb      # record sample summaries by default
  somvar config get log-level`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigShow()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigSet(args[0], args[1])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigGet(args[0])
		},
	})

	return cmd
}

func (a *app) runConfigShow() error {
	if used := viper.ConfigFileUsed(); used != "" && fileExists(used) {
		fmt.Fprintf(a.stdout, "# Config file: %s\n", used)
	} else {
		fmt.Fprintln(a.stdout, "# No config file, showing defaults. Config file: ~/.somvar.yaml")
	}

	for _, k := range configKeys {
		out, err := yaml.Marshal(map[string]any{k.Name: viper.Get(k.Name)})
		if err != nil {
			return fmt.Errorf("marshaling %s: %w", k.Name, err)
		}
		fmt.Fprintf(a.stdout, "\n# %s\n%s", k.Usage, out)
	}
	return nil
}

// parseConfigValue converts value to the type of the key's default.
func parseConfigValue(k configKey, value string) (any, error) {
	switch k.Default.(type) {
	case float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, configErrorf("%s expects a number, got %q", k.Name, value)
		}
		return f, nil
	case int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, configErrorf("%s expects an integer, got %q", k.Name, value)
		}
		return n, nil
	case []string:
		return splitList(value), nil
	default:
		return value, nil
	}
}

func (a *app) runConfigSet(name, value string) error {
	k, ok := lookupConfigKey(name)
	if !ok {
		return configErrorf("unknown key %q, expected one of: %s", name, strings.Join(configKeyNames(), ", "))
	}
	v, err := parseConfigValue(k, value)
	if err != nil {
		return err
	}
	viper.Set(name, v)

	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, ".somvar.yaml")
	}

	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(a.stdout, "Set %s = %s in %s\n", name, value, cfgFile)
	return nil
}

func (a *app) runConfigGet(name string) error {
	val := viper.Get(name)
	if val == nil {
		return fmt.Errorf("key %q is not set", name)
	}
	fmt.Fprintln(a.stdout, val)
	return nil
}

// splitList splits a comma- or whitespace-separated list, dropping empty items.
func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
