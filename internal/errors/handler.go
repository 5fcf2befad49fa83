package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Handler 将错误转换为退出码与用户可读的输出
type Handler struct{}

// NewHandler 创建新的错误处理器
func NewHandler() *Handler {
	return &Handler{}
}

// Describe maps err to a user facing report and exit code.
func (h *Handler) Describe(err error) Report {
	if err == nil {
		return Report{ExitCode: ExitCodeSuccess}
	}

	if errors.Is(err, context.DeadlineExceeded) || IsType(err, ErrTypeTimeout) {
		return Report{
			Message:    "Timeout exceeded",
			Details:    err.Error(),
			Suggestion: "Narrow the revision range with -r or raise --timeout",
			ExitCode:   ExitCodeTimeout,
		}
	}

	switch {
	case errors.Is(err, ErrSVNNotInstalled):
		return Report{
			Message:    "Subversion client (svn) is not installed",
			Suggestion: suggestionOr(err, "Install with:\n  apt-get install subversion\n  brew install subversion"),
			ExitCode:   ExitCodeSVNNotInstalled,
		}
	case errors.Is(err, ErrSVNTooOld):
		return Report{
			Message:    "Subversion client is too old",
			Details:    err.Error(),
			Suggestion: suggestionOr(err, ""),
			ExitCode:   ExitCodeSVNTooOld,
		}
	}

	report := Report{
		Message:    err.Error(),
		Suggestion: GetSuggestion(err),
		ExitCode:   ExitCodeGenericError,
	}

	switch GetType(err) {
	case ErrTypeConfig:
		report.ExitCode = ExitCodeConfigError
	case ErrTypeReport:
		report.ExitCode = ExitCodeReportError
		if report.Suggestion == "" {
			report.Suggestion = "Check that the output location is writable"
		}
	case ErrTypeIO:
		report.ExitCode = ExitCodeIOError
	case ErrTypeSVN:
		report.ExitCode = ExitCodeSVNError
		if strings.Contains(report.Message, "E170013") || strings.Contains(report.Message, "Unable to connect") {
			report.Suggestion = "Check the repository URL and your network connection"
		}
	}

	return report
}

// Format 格式化错误信息为用户友好的输出
func (h *Handler) Format(report Report) string {
	var sb strings.Builder

	// 错误消息（红色）
	sb.WriteString(color.RedString("Error: %s\n", report.Message))

	if report.Details != "" && report.Details != report.Message {
		sb.WriteString(color.YellowString("Details: %s\n", report.Details))
	}

	if report.Suggestion != "" {
		sb.WriteString("\n")
		sb.WriteString(report.Suggestion)
		sb.WriteString("\n")
	}

	return sb.String()
}

// Handle describes and formats err in one step.
func (h *Handler) Handle(err error) (string, int) {
	report := h.Describe(err)
	if report.ExitCode == ExitCodeSuccess {
		return "", ExitCodeSuccess
	}
	return h.Format(report), report.ExitCode
}

func suggestionOr(err error, fallback string) string {
	if s := GetSuggestion(err); s != "" {
		return s
	}
	return fallback
}

// WrapError 包装错误，添加上下文信息
func (h *Handler) WrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}
