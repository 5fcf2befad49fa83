package collector

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/penwyp/svnlogstats/internal/errors"
)

// MaxLineSize 单行最大长度，超长行（例如压缩过的 js）会导致扫描失败
const MaxLineSize = 16 * 1024 * 1024

// logArgs 固定的 svn log 参数：详细路径、diff、忽略空白变化
var logArgs = []string{"log", "-v", "--diff", "--extensions", "-w"}

// Collector 负责运行 svn log 并逐行交给调用方。
// 通过依赖注入的 Runner 以实现可测试性。
type Collector struct {
	runner Runner
	binary string
	extra  []string
	logger *zap.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithBinary sets the svn executable, "svn" by default.
func WithBinary(binary string) Option {
	return func(c *Collector) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithExtraArgs adds arguments placed before the caller's arguments on every run,
// e.g. --non-interactive.
func WithExtraArgs(args ...string) Option {
	return func(c *Collector) { c.extra = append(c.extra, args...) }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Collector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New 创建 Collector 实例。
func New(r Runner, opts ...Option) *Collector {
	c := &Collector{runner: r, binary: "svn", logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Command returns the full argument list passed to svn for args.
func (c *Collector) Command(args []string) []string {
	full := make([]string, 0, len(logArgs)+len(c.extra)+len(args))
	full = append(full, logArgs...)
	full = append(full, c.extra...)
	return append(full, args...)
}

// Log implements LogReader.
func (c *Collector) Log(ctx context.Context, args []string, fn LineFunc) error {
	full := c.Command(args)
	c.logger.Debug("Running svn", zap.String("binary", c.binary), zap.Strings("args", full))

	rc, err := c.runner.Start(ctx, c.binary, full...)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("svn log: %w", ctx.Err())
		}
		return errors.Wrap(errors.ErrTypeSVN, "failed to start svn log", err)
	}

	scanErr := Scan(rc, fn)
	closeErr := rc.Close()

	if ctx.Err() != nil {
		return fmt.Errorf("svn log: %w", ctx.Err())
	}
	if scanErr != nil {
		// fn 主动停止时 svn 可能因管道关闭退出，忽略 closeErr
		return scanErr
	}
	if closeErr != nil {
		return errors.Wrap(errors.ErrTypeSVN, "svn log failed", fmt.Errorf("%w: %w", errors.ErrSVNCommand, closeErr)).
			WithSuggestion("Check the repository URL, revision range and credentials")
	}
	return nil
}

// Scan splits r into lines and calls fn for each one. A trailing carriage return is
// removed. Read failures are returned as errors.ErrTypeIO; errors from fn are returned
// unchanged.
func Scan(r io.Reader, fn LineFunc) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	for scanner.Scan() {
		if err := fn(strings.TrimSuffix(scanner.Text(), "\r")); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		if stderrors.Is(err, bufio.ErrTooLong) {
			return errors.Wrapf(errors.ErrTypeParse, err, "svn log line longer than %d bytes", MaxLineSize).
				WithSuggestion("Exclude the path with the oversized file from the revision range")
		}
		return errors.Wrap(errors.ErrTypeIO, "failed to read svn log output", err)
	}
	return nil
}
