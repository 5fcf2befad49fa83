package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/penwyp/svnlogstats/internal/errors"
)

// MinSVNVersion is the first release supporting `svn log --diff`.
const MinSVNVersion = "1.7.0"

// `svn --version --quiet` 输出形如 "1.14.2" 或 "1.14.2 (r1899510)"
var svnVersionPattern = regexp.MustCompile(`(\d+\.\d+(?:\.\d+)?(?:-[^\s(]+)?)(?:\s+\((r\d+)\))?`)

// Detector svn 客户端检测器
type Detector struct {
	runner CommandRunner
	binary string
}

// NewDetector 创建新的检测器; binary 为空时使用 svn
func NewDetector(runner CommandRunner, binary string) *Detector {
	if runner == nil {
		runner = &DefaultCommandRunner{}
	}
	if binary == "" {
		binary = "svn"
	}
	return &Detector{runner: runner, binary: binary}
}

// DefaultCommandRunner 默认命令执行器
type DefaultCommandRunner struct{}

func (r *DefaultCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(cmd.Environ(), "LC_MESSAGES=C")
	return cmd.CombinedOutput()
}

// CheckInstalled 检查 svn 是否已安装
func (d *Detector) CheckInstalled(ctx context.Context) (bool, error) {
	_, err := d.runner.Run(ctx, d.binary, "--version", "--quiet")
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	// 命令存在但执行失败
	return true, nil
}

func isNotFound(err error) bool {
	if stderrors.Is(err, exec.ErrNotFound) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "not found") || strings.Contains(msg, "no such file or directory")
}

// GetVersion 获取 svn 版本与构建 revision
func (d *Detector) GetVersion(ctx context.Context) (string, string, error) {
	output, err := d.runner.Run(ctx, d.binary, "--version", "--quiet")
	if err != nil {
		return "", "", fmt.Errorf("failed to get version: %w", err)
	}

	matches := svnVersionPattern.FindStringSubmatch(strings.TrimSpace(string(output)))
	if matches == nil {
		return "", "", fmt.Errorf("version not found in output: %q", strings.TrimSpace(string(output)))
	}
	return matches[1], matches[2], nil
}

// Detect 综合检测 svn 状态
func (d *Detector) Detect(ctx context.Context, minimum string) (SVNStatus, error) {
	if minimum == "" {
		minimum = MinSVNVersion
	}
	status := SVNStatus{Binary: d.binary, MinVersion: minimum}

	installed, err := d.CheckInstalled(ctx)
	if err != nil {
		return status, err
	}
	status.Installed = installed
	if !installed {
		return status, nil
	}

	version, revision, err := d.GetVersion(ctx)
	if err != nil {
		return status, err
	}
	status.Version = version
	status.Revision = revision

	ok, err := CheckMinVersion(version, minimum)
	if err != nil {
		return status, err
	}
	status.Supported = ok
	return status, nil
}

// Check returns errors.ErrSVNNotInstalled or errors.ErrSVNTooOld when the client cannot
// be used.
func (d *Detector) Check(ctx context.Context, minimum string) (SVNStatus, error) {
	status, err := d.Detect(ctx, minimum)
	if err != nil {
		return status, errors.Wrap(errors.ErrTypeSVN, "failed to detect svn client", err)
	}
	if !status.Installed {
		return status, fmt.Errorf("%s: %w", d.binary, errors.ErrSVNNotInstalled)
	}
	if !status.Supported {
		return status, fmt.Errorf("svn %s, need %s: %w", status.Version, status.MinVersion, errors.ErrSVNTooOld)
	}
	return status, nil
}

// SuggestInstallCommand 建议安装命令
func (d *Detector) SuggestInstallCommand() []string {
	return []string{
		"apt-get install subversion",
		"brew install subversion",
		"https://subversion.apache.org/packages.html",
	}
}
