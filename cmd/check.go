package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/penwyp/svnlogstats/internal/cli"
	"github.com/penwyp/svnlogstats/internal/config"
	"github.com/penwyp/svnlogstats/internal/errors"
)

// NewCheckCommand 创建 check 命令：检查 svn 客户端与配置
func NewCheckCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the svn client and configuration",
		Long:  `Verify that the configured svn client is installed and supports 'svn log --diff', and that the configuration file is valid.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}

			detector := detectorProvider(cfg.SVN.Binary)
			status, checkErr := detector.Check(cmd.Context(), cfg.SVN.MinVersion)
			status.Binary = cfg.SVN.Binary
			if status.MinVersion == "" {
				status.MinVersion = cfg.SVN.MinVersion
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, formatStatusTable(status))

			if !status.Installed || errors.Is(checkErr, errors.ErrSVNNotInstalled) {
				printInstallSuggestions(out, detector.SuggestInstallCommand())
			}
			if checkErr == nil {
				_, _ = fmt.Fprintf(out, "\nOutput formats: %v\n", cfg.Output.Formats)
			}
			return checkErr
		},
	}
}

// formatStatusTable 格式化 svn 客户端状态表格
func formatStatusTable(status cli.SVNStatus) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Binary", "Status", "Version", "Required"})

	version := "-"
	if status.Version != "" {
		version = status.Version
		if status.Revision != "" {
			version += " (" + status.Revision + ")"
		}
	}
	tbl.AppendRow(table.Row{status.Binary, formatStatusWithColor(status), version, ">= " + status.MinVersion})
	return tbl.Render()
}

// formatStatusWithColor 格式化带颜色的状态
func formatStatusWithColor(status cli.SVNStatus) string {
	switch {
	case !status.Installed:
		return color.RedString("✗ Not installed")
	case !status.Supported:
		return color.RedString("✗ Too old")
	}
	return color.GreenString("✓ OK")
}

func printInstallSuggestions(out io.Writer, suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out, "\nInstall with:")
	for _, suggestion := range suggestions {
		_, _ = fmt.Fprintf(out, "  %s\n", suggestion)
	}
}
