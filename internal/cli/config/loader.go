package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/sheetview/pkg/sheet"
)

// Context keys shared by the root command and the commands package.
type (
	loggerKey struct{}
	configKey struct{}
)

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

var configNames = []string{"sheetview.yaml", "sheetview.yml"}

// flagKeys maps flag names to config keys where they differ from the
// snake_case form of the flag.
var flagKeys = map[string]string{
	"source":        "source.type",
	"path":          "source.path",
	"query":         "source.query",
	"dsn":           "source.dsn",
	"table":         "source.table",
	"column-select": "view.column_select",
	"disabled":      "view.disabled",
	"host":          "server.host",
	"port":          "server.port",
	"watch":         "server.watch",
	"debounce":      "server.debounce",
}

// skipFlags are handled outside koanf.
var skipFlags = map[string]bool{
	"config": true,
	"sort":   true,
	"help":   true,
}

// configExistsIn returns the sheetview config file in dir, if any.
func configExistsIn(dir string) string {
	for _, name := range configNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findConfigFile finds the config file to use.
// Priority: explicit path > sheetview.yaml/yml in the working directory or
// one of its parents.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if found := configExistsIn(dir); found != "" {
			return found
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty, in-memory, or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// defaults are the lowest-priority configuration layer.
func defaults() map[string]any {
	return map[string]any{
		"output":          DefaultOutput,
		"verbose":         false,
		"no_color":        false,
		"view.read_only":  true,
		"server.host":     DefaultHost,
		"server.port":     DefaultPort,
		"server.watch":    false,
		"server.debounce": DefaultDebounce.String(),
	}
}

// LoadConfig loads configuration from defaults, the config file, environment
// variables and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFile := findConfigFile(cfgFile)
	var filePath string
	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		filePath = k.String("source.path")
	}

	// 3. Environment variables (SHEETVIEW_ prefix, "__" separates levels)
	// Transform: SHEETVIEW_SOURCE__PATH -> source.path
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey(flags)), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal
	var cfg Config
	if err := unmarshal(k, &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ConfigFile = configFile

	if flags != nil && flags.Changed("sort") {
		specs, _ := flags.GetStringSlice("sort")
		sorts, err := ParseSort(specs)
		if err != nil {
			return nil, err
		}
		cfg.Sort = sorts
	}

	// 6. Paths from the config file are relative to the file.
	if configFile != "" && cfg.Source.Path == filePath {
		if abs, err := filepath.Abs(configFile); err == nil {
			cfg.Source.Path = resolvePathRelativeTo(cfg.Source.Path, filepath.Dir(abs))
		}
	}
	cfg.Source.DSN = expandEnvVars(cfg.Source.DSN)
	cfg.Source.Path = expandEnvVars(cfg.Source.Path)

	if os.Getenv("NO_COLOR") != "" {
		cfg.NoColor = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// flagKey maps explicitly set flags to config keys.
func flagKey(flags *pflag.FlagSet) func(*pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		if !f.Changed || skipFlags[f.Name] {
			return "", nil
		}
		// --editable is the inverse of view.read_only.
		if f.Name == "editable" {
			on, _ := flags.GetBool(f.Name)
			return "view.read_only", !on
		}
		if key, ok := flagKeys[f.Name]; ok {
			return key, posflag.FlagVal(flags, f)
		}
		return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
	}
}

func unmarshal(k *koanf.Koanf, cfg *Config) error {
	return k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				numberToWidthHook(),
				mapstructure.TextUnmarshallerHookFunc(),
				mapstructure.StringToTimeDurationHookFunc(),
			),
			Result:           cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	})
}

var widthType = reflect.TypeOf(sheet.WidthPolicy{})

// numberToWidthHook lets `width: 8` mean a fixed width of 8.
func numberToWidthHook() mapstructure.DecodeHookFuncType {
	return func(f, t reflect.Type, data any) (any, error) {
		if t != widthType {
			return data, nil
		}
		switch f.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			return fmt.Sprint(data), nil
		}
		return data, nil
	}
}

// ParseSort parses sort specs of the form "key" or "key:asc|desc".
func ParseSort(specs []string) ([]SortConfig, error) {
	sorts := make([]SortConfig, 0, len(specs))
	for _, spec := range specs {
		column, dir, _ := strings.Cut(strings.TrimSpace(spec), ":")
		if column == "" {
			return nil, fmt.Errorf("invalid sort %q: column is required", spec)
		}
		order, err := sheet.ParseOrder(dir)
		if err != nil {
			return nil, fmt.Errorf("invalid sort %q: %w", spec, err)
		}
		sorts = append(sorts, SortConfig{Column: column, Order: order})
	}
	return sorts, nil
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// GetConfig retrieves the config from the command context, or the defaults.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return Default()
}

// Default returns the configuration used when nothing is loaded.
func Default() *Config {
	var cfg Config
	k := koanf.New(".")
	_ = k.Load(confmap.Provider(defaults(), "."), nil)
	_ = unmarshal(k, &cfg)
	return &cfg
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}
