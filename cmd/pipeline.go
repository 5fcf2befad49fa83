package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/penwyp/svnlogstats/classifier"
	"github.com/penwyp/svnlogstats/collector"
	"github.com/penwyp/svnlogstats/internal/config"
	"github.com/penwyp/svnlogstats/internal/errors"
	"github.com/penwyp/svnlogstats/internal/metrics"
	"github.com/penwyp/svnlogstats/model"
	"github.com/penwyp/svnlogstats/parser"
	"github.com/penwyp/svnlogstats/reporter"
)

// pipeline 把 classifier、parser 和各个 reporter 串起来
type pipeline struct {
	parser   *parser.Parser
	sink     reporter.Reporter
	recorder *metrics.Recorder
	closers  []io.Closer
	logger   *zap.Logger

	// 报告失败不会中断解析，最后统一返回
	failures []error
}

// buildPipeline stdout 用于 summary 以及 output.path 为 "-" 的 CSV
func buildPipeline(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *zap.Logger, extra ...parser.Observer) (*pipeline, error) {
	cls, err := classifier.New(classifier.Config{
		IssuePattern:   cfg.Patterns.Issue,
		ProjectPattern: cfg.Patterns.Project,
		IgnoredIssues:  cfg.Patterns.IgnoredIssues,
		BranchPaths:    cfg.BranchPaths,
	}, classifier.WithLogger(logger.Named("classifier")))
	if err != nil {
		return nil, err
	}

	pl := &pipeline{recorder: metrics.NewRecorder(), logger: logger}

	var sinks []reporter.Reporter
	for _, format := range cfg.Output.Formats {
		switch format {
		case config.FormatCSV:
			w, err := pl.openOutput(cfg.Output.Path, stdout)
			if err != nil {
				_ = pl.Close()
				return nil, err
			}
			sinks = append(sinks, reporter.NewCSV(w, reporter.CSVConfig{
				Delimiter:       cfg.CSV.DelimiterRune(),
				WithHeader:      cfg.CSV.WithHeader,
				NormalizeIssues: cfg.CSV.NormalizeIssues,
				Projects:        cls,
			}, fileGroups(cfg.FileGroups)))
		case config.FormatSummary:
			sinks = append(sinks, reporter.NewSummary(stdout))
		case config.FormatSQLite:
			db, err := reporter.NewSQLite(ctx, cfg.SQLite.Path)
			if err != nil {
				_ = pl.Close()
				return nil, err
			}
			sinks = append(sinks, db)
		default:
			_ = pl.Close()
			return nil, errors.New(errors.ErrTypeConfig, "unknown output format "+format).
				WithSuggestion("Use csv, summary or sqlite")
		}
	}
	pl.sink = reporter.Multi(sinks...)

	observers := append([]parser.Observer{pl.recorder}, extra...)
	pl.parser = parser.New(pl.sink,
		parser.WithLogger(logger.Named("parser")),
		parser.WithFinalizer(cls),
		parser.WithObserver(fanOut(observers)),
	)
	return pl, nil
}

func (pl *pipeline) openOutput(path string, stdout io.Writer) (io.Writer, error) {
	if path == "" || path == "-" {
		return stdout, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(errors.ErrTypeIO, "failed to create output directory", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrTypeIO, "failed to create output file", err).
			WithSuggestion("Check output.path or pass --output -")
	}
	pl.closers = append(pl.closers, f)
	return f, nil
}

func fileGroups(cfgs []config.FileGroupConfig) []reporter.FileGroup {
	groups := make([]reporter.FileGroup, 0, len(cfgs))
	for _, g := range cfgs {
		groups = append(groups, reporter.NewFileGroup(g.Name, g.Suffixes...))
	}
	return groups
}

// Line 是 collector.LineFunc。可重试的报告错误只记录不中断，其余错误停止收集
func (pl *pipeline) Line(line string) error {
	if err := pl.parser.Parse(line); err != nil {
		if !errors.IsRetryable(err) {
			return err
		}
		pl.failures = append(pl.failures, err)
	}
	return nil
}

// Finish flushes the parser and returns every reporting failure seen during the run.
func (pl *pipeline) Finish() error {
	if err := pl.parser.Flush(); err != nil {
		pl.failures = append(pl.failures, err)
	}
	if len(pl.failures) == 0 {
		return nil
	}
	return errors.Wrapf(errors.ErrTypeReport, errors.Join(pl.failures...),
		"%d revision(s) could not be reported", len(pl.failures))
}

// Close releases reporters and output files.
func (pl *pipeline) Close() error {
	var errs []error
	if c, ok := pl.sink.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range pl.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, errors.Wrap(errors.ErrTypeIO, "failed to close output", err))
		}
	}
	return errors.Join(errs...)
}

// WriteMetrics 在配置了 textfile 时写出指标
func (pl *pipeline) WriteMetrics(path string) error {
	if path == "" {
		return nil
	}
	if err := pl.recorder.WriteTextfile(path); err != nil {
		return errors.Wrap(errors.ErrTypeIO, "failed to write metrics", err)
	}
	pl.logger.Debug("metrics written", zap.String("path", path))
	return nil
}

// Stats returns the parser counters.
func (pl *pipeline) Stats() parser.Stats {
	return pl.parser.Stats()
}

type multiObserver []parser.Observer

func fanOut(observers []parser.Observer) parser.Observer {
	return multiObserver(observers)
}

func (m multiObserver) Revision(rev *model.Revision) {
	for _, o := range m {
		o.Revision(rev)
	}
}

func (m multiObserver) Anomaly(kind string) {
	for _, o := range m {
		o.Anomaly(kind)
	}
}

// source 按 --input 或 svn log 提供输入行
func source(ctx context.Context, cfg *config.Config, input string, args []string, stdin io.Reader, logger *zap.Logger) func(collector.LineFunc) error {
	switch input {
	case "":
		col := collector.New(runnerProvider(logger),
			collector.WithBinary(cfg.SVN.Binary),
			collector.WithExtraArgs(cfg.SVN.ExtraArgs...),
			collector.WithLogger(logger.Named("collector")),
		)
		return func(fn collector.LineFunc) error { return col.Log(ctx, args, fn) }
	case "-":
		return func(fn collector.LineFunc) error { return collector.Scan(stdin, fn) }
	}
	return func(fn collector.LineFunc) error {
		f, err := os.Open(input)
		if err != nil {
			return errors.Wrap(errors.ErrTypeIO, "failed to open input", err)
		}
		defer f.Close()
		return collector.Scan(f, fn)
	}
}
