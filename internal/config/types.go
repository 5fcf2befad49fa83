package config

import "time"

// Config 配置文件结构
type Config struct {
	SVN         SVNConfig         `mapstructure:"svn" yaml:"svn" json:"svn"`
	Patterns    PatternsConfig    `mapstructure:"patterns" yaml:"patterns" json:"patterns"`
	BranchPaths []string          `mapstructure:"branch_paths" yaml:"branch_paths" json:"branch_paths"`
	FileGroups  []FileGroupConfig `mapstructure:"file_groups" yaml:"file_groups" json:"file_groups"`
	Output      OutputConfig      `mapstructure:"output" yaml:"output" json:"output"`
	CSV         CSVConfig         `mapstructure:"csv" yaml:"csv" json:"csv"`
	SQLite      SQLiteConfig      `mapstructure:"sqlite" yaml:"sqlite" json:"sqlite"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging" json:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

// SVNConfig svn 客户端配置
type SVNConfig struct {
	Binary     string        `mapstructure:"binary" yaml:"binary" json:"binary"`             // svn 可执行文件
	MinVersion string        `mapstructure:"min_version" yaml:"min_version" json:"min_version"` // 最低版本要求
	ExtraArgs  []string      `mapstructure:"extra_args" yaml:"extra_args" json:"extra_args"`     // 追加到 svn log 的参数
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`             // 0 表示不限制
}

// PatternsConfig issue/project 提取规则
type PatternsConfig struct {
	Issue         string   `mapstructure:"issue" yaml:"issue" json:"issue"`
	Project       string   `mapstructure:"project" yaml:"project" json:"project"`
	IgnoredIssues []string `mapstructure:"ignored_issues" yaml:"ignored_issues" json:"ignored_issues"`
}

// FileGroupConfig 按后缀分组统计
type FileGroupConfig struct {
	Name     string   `mapstructure:"name" yaml:"name" json:"name"`
	Suffixes []string `mapstructure:"suffixes" yaml:"suffixes" json:"suffixes"`
}

// OutputConfig 输出配置，Formats 取值 csv、summary、sqlite
type OutputConfig struct {
	Path    string   `mapstructure:"path" yaml:"path" json:"path"`
	Formats []string `mapstructure:"formats" yaml:"formats" json:"formats"`
}

// CSVConfig CSV 输出配置
type CSVConfig struct {
	Delimiter       string `mapstructure:"delimiter" yaml:"delimiter" json:"delimiter"`
	WithHeader      bool   `mapstructure:"with_header" yaml:"with_header" json:"with_header"`
	NormalizeIssues bool   `mapstructure:"normalize_issues" yaml:"normalize_issues" json:"normalize_issues"`
}

// SQLiteConfig SQLite 输出配置
type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level" json:"level"`
}

// MetricsConfig 指标输出，Textfile 为空时不写
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" yaml:"textfile" json:"textfile"`
}

// Output formats.
const (
	FormatCSV     = "csv"
	FormatSummary = "summary"
	FormatSQLite  = "sqlite"
)

// Manager 配置管理器接口
type Manager interface {
	// Load 加载配置文件，叠加默认值与环境变量
	Load() (*Config, error)

	// Save 保存配置文件（原子操作）
	Save(config *Config) error

	// CreateDefaultConfig 创建默认配置
	CreateDefaultConfig() error
}
