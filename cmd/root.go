package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/penwyp/svnlogstats/collector"
	"github.com/penwyp/svnlogstats/internal/cli"
	"github.com/penwyp/svnlogstats/internal/config"
	"github.com/penwyp/svnlogstats/internal/errors"
	"github.com/penwyp/svnlogstats/internal/logger"
	"github.com/penwyp/svnlogstats/model"
	"github.com/penwyp/svnlogstats/ui"
)

// version holds the current version of svnlogstats
// This will be set at build time via ldflags
var version = "dev"

// GetVersionString returns a formatted version string
func GetVersionString() string {
	return fmt.Sprintf("svnlogstats version %s", version)
}

// svnDetector 抽象 svn 客户端检测，便于测试时注入 Mock
type svnDetector interface {
	Check(ctx context.Context, minimum string) (cli.SVNStatus, error)
	SuggestInstallCommand() []string
}

// 若在运行时未被替换，则使用默认实现。
var (
	detectorProvider = func(binary string) svnDetector { return cli.NewDetector(nil, binary) }
	runnerProvider   = func(logger *zap.Logger) collector.Runner { return collector.NewExecRunner(logger) }
)

// renderStatusBar 渲染带样式的状态条
func renderStatusBar(message string, isSuccess bool) string {
	var style lipgloss.Style
	if isSuccess {
		style = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")). // Green
			Bold(true)
	} else {
		style = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")). // Orange
			Bold(true)
	}

	indicator := "!"
	if isSuccess {
		indicator = "✓"
	}
	return style.Render(indicator + " " + message)
}

func summaryLine(revisions, anomalies int, elapsed time.Duration) string {
	msg := fmt.Sprintf("%s revisions in %s", humanize.Comma(int64(revisions)), elapsed.Round(time.Millisecond))
	if anomalies > 0 {
		msg += fmt.Sprintf(", %s anomalies", humanize.Comma(int64(anomalies)))
	}
	return msg
}

// -------------------------------------------------

type rootOptions struct {
	configPath  string
	output      string
	formats     []string
	input       string
	debug       bool
	progress    bool
	metricsFile string
	timeout     time.Duration
	version     bool
}

// NewRootCommand builds the svnlogstats command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "svnlogstats [flags] [-- SVN_LOG_ARGS...]",
		Short: "Per-revision change statistics from svn log --diff",
		Long: `svnlogstats runs 'svn log -v --diff --extensions -w' (or reads saved output) and
converts every revision into a statistics record: changed files by type, lines added,
removed and modified, merge status, referenced issues and projects, and the touched
branch.

Arguments after -- are passed to svn log unchanged, for example:

  svnlogstats -o stats.csv -- -r 1000:HEAD https://svn.example.com/repo/trunk`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default ./svnlogstats.yaml or ~/.svnlogstats/svnlogstats.yaml)")

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "CSV output path, - for stdout (overrides output.path)")
	f.StringSliceVarP(&opts.formats, "format", "f", nil, "output formats: csv, summary, sqlite (overrides output.formats)")
	f.StringVarP(&opts.input, "input", "i", "", "read saved svn log output from a file, - for stdin, instead of running svn")
	f.BoolVar(&opts.debug, "debug", false, "enable debug output for troubleshooting")
	f.BoolVar(&opts.progress, "progress", false, "show a progress spinner on stderr")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")
	f.DurationVarP(&opts.timeout, "timeout", "t", 0, "abort svn after this long, 0 for no limit")
	f.BoolVar(&opts.version, "version", false, "show version information")

	cmd.AddCommand(NewCheckCommand(opts), NewInitConfigCommand())
	return cmd
}

// Execute runs the root command.
func Execute() error { return NewRootCommand().Execute() }

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error { return NewRootCommand().ExecuteContext(ctx) }

// loadConfig 加载配置并叠加命令行参数
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output.Path = opts.output
	}
	if flags.Changed("format") {
		cfg.Output.Formats = opts.formats
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.Textfile = opts.metricsFile
	}
	if flags.Changed("timeout") {
		if opts.timeout < 0 {
			return nil, fmt.Errorf("--timeout %s: %w", opts.timeout, errors.ErrInvalidInput)
		}
		cfg.SVN.Timeout = opts.timeout
	}
	if opts.debug {
		cfg.Logging.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return nil, errors.Wrap(errors.ErrTypeConfig, "invalid command line options", fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err)).
			WithSuggestion("Run 'svnlogstats --help' for the accepted values")
	}
	return cfg, nil
}

func run(cmd *cobra.Command, opts *rootOptions, args []string) error {
	if opts.version {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), GetVersionString())
		return nil
	}

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	appLogger, err := logger.New(cfg.Logging.Level)
	if err != nil {
		return errors.Wrap(errors.ErrTypeConfig, "failed to initialize logger", err)
	}
	defer func() { _ = appLogger.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.SVN.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.SVN.Timeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 只有真正执行 svn 时才检查客户端
	if opts.input == "" {
		status, err := detectorProvider(cfg.SVN.Binary).Check(ctx, cfg.SVN.MinVersion)
		if err != nil {
			return err
		}
		appLogger.Debug("svn client detected", zap.String("version", status.Version), zap.String("revision", status.Revision))
	}

	var progress *progressObserver
	var progressModel *ui.ProgressModel
	if opts.progress {
		progressModel = ui.NewProgressModel(cancel)
		progress = &progressObserver{}
	}

	var pl *pipeline
	if progress != nil {
		pl, err = buildPipeline(ctx, cfg, cmd.OutOrStdout(), appLogger, progress)
	} else {
		pl, err = buildPipeline(ctx, cfg, cmd.OutOrStdout(), appLogger)
	}
	if err != nil {
		return err
	}

	read := source(ctx, cfg, opts.input, args, cmd.InOrStdin(), appLogger)
	started := time.Now()

	var runErr error
	if progressModel != nil {
		keys := keyboardInput(cmd.InOrStdin(), opts.input)
		runErr = runWithProgress(ctx, cmd.ErrOrStderr(), keys, progressModel, progress, pl, read)
	} else {
		runErr = runPipeline(pl, read)
	}

	closeErr := pl.Close()
	metricsErr := pl.WriteMetrics(cfg.Metrics.Textfile)
	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		return closeErr
	}
	if metricsErr != nil {
		return metricsErr
	}

	stats := pl.Stats()
	_, _ = fmt.Fprintln(cmd.ErrOrStderr(), renderStatusBar(summaryLine(stats.Emitted, stats.Anomalies, time.Since(started)), stats.Anomalies == 0))
	return nil
}

// runPipeline 读取全部输入后 flush；读取失败优先于报告失败返回
func runPipeline(pl *pipeline, read func(collector.LineFunc) error) error {
	readErr := read(pl.Line)
	finishErr := pl.Finish()
	if readErr != nil {
		return readErr
	}
	return finishErr
}

// keyboardInput 返回给 bubbletea 读取按键的终端；stdin 承载 svn log 或不是终端时返回 nil，
// 此时 ctrl+c 由信号处理并通过 ctx 取消
func keyboardInput(in io.Reader, input string) io.Reader {
	if input == "-" {
		return nil
	}
	f, ok := in.(*os.File)
	if !ok {
		return nil
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return nil
	}
	return f
}

// runWithProgress 在后台 goroutine 中解析，主 goroutine 运行 bubbletea 程序。
// keys 为 nil 时不读取键盘
func runWithProgress(ctx context.Context, out io.Writer, keys io.Reader, m *ui.ProgressModel, progress *progressObserver, pl *pipeline, read func(collector.LineFunc) error) error {
	program := tea.NewProgram(m, tea.WithContext(ctx), tea.WithOutput(out), tea.WithInput(keys))
	progress.program = program

	done := make(chan error, 1)
	go func() {
		err := runPipeline(pl, read)
		done <- err
		program.Send(ui.DoneMsg{Err: err})
	}()

	_, teaErr := program.Run()
	err := <-done
	if err != nil {
		return err
	}
	if teaErr != nil && !errors.Is(teaErr, tea.ErrProgramKilled) {
		return teaErr
	}
	return nil
}

// progressObserver 每隔若干 revision 向 UI 发送一次进度
type progressObserver struct {
	program   *tea.Program
	revisions int
	lines     int
}

const progressEvery = 25

func (o *progressObserver) Revision(rev *model.Revision) {
	o.revisions++
	o.lines += rev.LinesModified()
	if o.program != nil && o.revisions%progressEvery == 1 {
		o.program.Send(ui.ProgressMsg{Revisions: o.revisions, Lines: o.lines, LastRevision: rev.ID})
	}
}

func (o *progressObserver) Anomaly(string) {}
