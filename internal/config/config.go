// Package config loads svnlogstats settings from file, environment and defaults.
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/penwyp/svnlogstats/internal/errors"
)

// EnvPrefix 环境变量前缀，例如 SVNLOGSTATS_LOGGING_LEVEL=debug
const EnvPrefix = "SVNLOGSTATS"

// DefaultFileName is looked up in the working directory when no path is given.
const DefaultFileName = "svnlogstats"

// Sentinel validation errors.
var (
	ErrInvalidFormat    = stderrors.New("unknown output format")
	ErrInvalidDelimiter = stderrors.New("csv delimiter must be a single character")
	ErrInvalidPattern   = stderrors.New("invalid pattern")
	ErrInvalidLevel     = stderrors.New("invalid logging level")
	ErrMissingPath      = stderrors.New("missing output path")
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		SVN: SVNConfig{
			Binary:     "svn",
			MinVersion: "1.7.0",
			ExtraArgs:  []string{},
		},
		Patterns: PatternsConfig{
			Issue:         `([A-Za-z]+-[0-9]+)`,
			IgnoredIssues: []string{"UTF-8", "UTF-16", "UTF-32", "ISO-8859"},
		},
		BranchPaths: []string{"branches/*", "tags/*"},
		FileGroups:  []FileGroupConfig{},
		Output: OutputConfig{
			Path:    "output.csv",
			Formats: []string{FormatCSV},
		},
		CSV: CSVConfig{
			Delimiter:  ",",
			WithHeader: true,
		},
		SQLite:  SQLiteConfig{Path: "svnlogstats.db"},
		Logging: LoggingConfig{Level: "info"},
	}
}

// LoadConfig loads configuration from file and environment variables.
// An empty configPath searches svnlogstats.yaml in the working directory and
// $HOME/.svnlogstats; a missing file is not an error in that case.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(DefaultFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.svnlogstats")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case configPath == "" && stderrors.As(err, &notFound):
			// 没有配置文件时使用默认值
		case stderrors.As(err, &notFound) || stderrors.Is(err, fs.ErrNotExist):
			return nil, errors.Wrap(errors.ErrTypeConfig, "failed to read config file", err).
				WithSuggestion("Run 'svnlogstats init-config' to create a valid configuration file")
		default:
			return nil, fmt.Errorf("%s: %w: %w", v.ConfigFileUsed(), errors.ErrConfigParse, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrTypeConfig, "failed to unmarshal config", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err)
	}
	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("svn.binary", d.SVN.Binary)
	v.SetDefault("svn.min_version", d.SVN.MinVersion)
	v.SetDefault("svn.extra_args", d.SVN.ExtraArgs)
	v.SetDefault("svn.timeout", "0s")

	v.SetDefault("patterns.issue", d.Patterns.Issue)
	v.SetDefault("patterns.project", d.Patterns.Project)
	v.SetDefault("patterns.ignored_issues", d.Patterns.IgnoredIssues)

	v.SetDefault("branch_paths", d.BranchPaths)
	v.SetDefault("file_groups", d.FileGroups)

	v.SetDefault("output.path", d.Output.Path)
	v.SetDefault("output.formats", d.Output.Formats)

	v.SetDefault("csv.delimiter", d.CSV.Delimiter)
	v.SetDefault("csv.with_header", d.CSV.WithHeader)
	v.SetDefault("csv.normalize_issues", d.CSV.NormalizeIssues)

	v.SetDefault("sqlite.path", d.SQLite.Path)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
}

// Validate checks cfg for values that would fail later at run time.
func Validate(cfg *Config) error {
	for _, format := range cfg.Output.Formats {
		switch format {
		case FormatCSV, FormatSummary:
		case FormatSQLite:
			if cfg.SQLite.Path == "" {
				return fmt.Errorf("%w: sqlite.path", ErrMissingPath)
			}
		default:
			return fmt.Errorf("%w: %q", ErrInvalidFormat, format)
		}
	}

	if utf8.RuneCountInString(cfg.CSV.Delimiter) != 1 {
		return fmt.Errorf("%w: %q", ErrInvalidDelimiter, cfg.CSV.Delimiter)
	}

	for key, pattern := range map[string]string{
		"patterns.issue":   cfg.Patterns.Issue,
		"patterns.project": cfg.Patterns.Project,
	} {
		if pattern == "" {
			continue
		}
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("%w %s: %v", ErrInvalidPattern, key, err)
		}
	}

	if _, err := zapcore.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLevel, cfg.Logging.Level)
	}
	return nil
}

// DelimiterRune returns the CSV delimiter as a rune.
func (c CSVConfig) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}
