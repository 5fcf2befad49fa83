package collector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// ExecRunner 实际执行系统命令；仅在生产模式使用。
type ExecRunner struct {
	logger *zap.Logger
}

// NewExecRunner creates a Runner backed by os/exec.
func NewExecRunner(logger *zap.Logger) *ExecRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecRunner{logger: logger}
}

// Start implements Runner. svn messages are forced to English so error output can be
// matched.
func (r *ExecRunner) Start(ctx context.Context, name string, args ...string) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), "LC_MESSAGES=C")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	p := &process{cmd: cmd, stdout: stdout, logger: r.logger}
	cmd.Stderr = &p.stderr

	r.logger.Debug("Running command", zap.String("command", name), zap.Strings("args", args))
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return p, nil
}

type process struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	logger *zap.Logger
	closed bool
}

func (p *process) Read(b []byte) (int, error) {
	return p.stdout.Read(b)
}

// Close releases the pipe and waits for the process.
func (p *process) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	_ = p.stdout.Close()

	err := p.cmd.Wait()
	stderr := strings.TrimSpace(p.stderr.String())
	p.logger.Debug("Command finished",
		zap.String("command", p.cmd.Path),
		zap.Error(err),
		zap.String("stderr", func() string {
			if len(stderr) < 1000 {
				return stderr
			}
			return fmt.Sprintf("<%d bytes>", len(stderr))
		}()))

	if err != nil && stderr != "" {
		return fmt.Errorf("%w: %s", err, stderr)
	}
	return err
}
