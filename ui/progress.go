package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// ProgressMsg 报告已解析的 revision 数量
type ProgressMsg struct {
	Revisions    int
	Lines        int
	LastRevision int
}

// DoneMsg 表示转换结束
type DoneMsg struct {
	Err error
}

var (
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// ProgressModel 在解析较长历史时展示 Spinner
// 收到 DoneMsg 或 ctrl+c 后通过 tea.Quit 退出
type ProgressModel struct {
	spinner spinner.Model
	cancel  context.CancelFunc

	progress ProgressMsg
	done     bool
	err      error
}

// NewProgressModel cancel 在用户按下 ctrl+c 时调用，可以为 nil
func NewProgressModel(cancel context.CancelFunc) *ProgressModel {
	sp := spinner.New()
	sp.Spinner = spinner.Line
	return &ProgressModel{spinner: sp, cancel: cancel}
}

// Init 启动 spinner
func (m *ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update 处理消息
func (m *ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if m.cancel != nil {
				m.cancel()
			}
			m.done = true
			m.err = context.Canceled
			return m, tea.Quit
		}
	case ProgressMsg:
		m.progress = msg
		return m, nil
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

// View 显示当前进度
func (m *ProgressModel) View() string {
	counts := fmt.Sprintf("%s revisions, %s lines",
		humanize.Comma(int64(m.progress.Revisions)), humanize.Comma(int64(m.progress.Lines)))

	switch {
	case m.done && m.err != nil:
		return failStyle.Render("✗ "+m.err.Error()) + "\n"
	case m.done:
		return doneStyle.Render("✓ "+counts) + "\n"
	}

	status := "Parsing svn log… " + counts
	if m.progress.LastRevision > 0 {
		status += fmt.Sprintf(" (r%d)", m.progress.LastRevision)
	}
	return m.spinner.View() + " " + progressStyle.Render(status)
}

// Result 返回最终进度与错误
func (m *ProgressModel) Result() (ProgressMsg, error) {
	return m.progress, m.err
}
