package reporter

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/penwyp/svnlogstats/model"
)

// Record types written in normalized mode.
const (
	RecordCombined = "Combined"
	RecordProject  = "Project"
	RecordIssue    = "Issue"
)

// 非 normalized 模式下 issues/projects 所在列
const (
	colIssues   = 7
	colProjects = 8
)

// ProjectResolver maps an issue to the projects it belongs to. classifier.Classifier
// implements it.
type ProjectResolver interface {
	ProjectsOf(issue string) []string
}

// CSVConfig CSV 输出配置
type CSVConfig struct {
	// Delimiter 字段分隔符，默认逗号
	Delimiter rune
	// WithHeader 是否输出表头
	WithHeader bool
	// NormalizeIssues 每个项目和 issue 额外输出一行
	NormalizeIssues bool
	// Projects 用于 normalized 模式下按项目过滤 issue，为空时取第一个连字符之前的部分
	Projects ProjectResolver
}

// DefaultCSVConfig returns RFC 4180 output with a header row.
func DefaultCSVConfig() CSVConfig {
	return CSVConfig{Delimiter: ',', WithHeader: true}
}

// CSV writes one record per revision.
type CSV struct {
	w      *csv.Writer
	cfg    CSVConfig
	groups []FileGroup

	headerDone bool
}

// NewCSV creates a CSV reporter writing to w.
func NewCSV(w io.Writer, cfg CSVConfig, groups []FileGroup) *CSV {
	cw := csv.NewWriter(w)
	if cfg.Delimiter != 0 {
		cw.Comma = cfg.Delimiter
	}
	return &CSV{w: cw, cfg: cfg, groups: groups}
}

// Header returns the column names.
func (c *CSV) Header() []string {
	var header []string
	if c.cfg.NormalizeIssues {
		header = append(header, "RecordType")
	}
	header = append(header,
		"Revision", "Author", "Timestamp", "Date", "Time",
		"Merge Status", "Branch Action",
		"Issues", "Projects",
		"Branch Name",
		"Files Added", "Files Removed", "Files Modified", "Files Replaced", "Files Affected",
		"Lines Added", "Lines Removed", "Lines Modified",
	)
	for _, g := range c.groups {
		header = append(header,
			g.Name+" Files Affected",
			g.Name+" Lines Added",
			g.Name+" Lines Removed",
			g.Name+" Lines Modified",
		)
	}
	return header
}

func (c *CSV) writeHeader() error {
	if c.headerDone {
		return nil
	}
	c.headerDone = true
	if !c.cfg.WithHeader {
		return nil
	}
	return c.w.Write(c.Header())
}

// Report implements Reporter.
func (c *CSV) Report(rev *model.Revision) error {
	if err := c.writeHeader(); err != nil {
		return failure("failed to write CSV header", err)
	}

	entry := c.entry(rev)
	if !c.cfg.NormalizeIssues {
		return failure("failed to write CSV record", c.w.Write(entry))
	}
	return failure("failed to write CSV record", c.writeNormalized(rev, entry))
}

// Flush implements Reporter.
func (c *CSV) Flush() error {
	if err := c.writeHeader(); err != nil {
		return failure("failed to write CSV header", err)
	}
	c.w.Flush()
	return failure("failed to flush CSV output", c.w.Error())
}

func (c *CSV) entry(rev *model.Revision) []string {
	entry := []string{
		strconv.Itoa(rev.ID),
		rev.Author,
		rev.Timestamp.Format(time.RFC3339),
		rev.Timestamp.Format(time.DateOnly),
		rev.Timestamp.Format(time.TimeOnly),
		rev.MergeStatus.String(),
		boolCell(rev.BranchAction),
		strings.Join(rev.Issues.Values(), ","),
		strings.Join(rev.Projects.Values(), ","),
		rev.BranchName,
		strconv.Itoa(rev.FilesOfType(model.ChangeAdded)),
		strconv.Itoa(rev.FilesOfType(model.ChangeDeleted)),
		strconv.Itoa(rev.FilesOfType(model.ChangeModified)),
		strconv.Itoa(rev.FilesOfType(model.ChangeReplaced)),
		strconv.Itoa(len(rev.FileChanges)),
		strconv.Itoa(rev.LinesAdded()),
		strconv.Itoa(rev.LinesRemoved()),
		strconv.Itoa(rev.LinesModified()),
	}
	for _, g := range c.groups {
		pred := g.predicate()
		entry = append(entry,
			strconv.Itoa(rev.CountWhere(pred)),
			strconv.Itoa(rev.LinesAddedWhere(pred)),
			strconv.Itoa(rev.LinesRemovedWhere(pred)),
			strconv.Itoa(rev.LinesModifiedWhere(pred)),
		)
	}
	return entry
}

func (c *CSV) writeNormalized(rev *model.Revision, entry []string) error {
	if err := c.w.Write(withType(RecordCombined, entry)); err != nil {
		return err
	}

	issues := rev.Issues.Values()
	for _, project := range rev.Projects.Values() {
		var own []string
		for _, issue := range issues {
			if containsFold(c.projectsOf(issue), project) {
				own = append(own, issue)
			}
		}
		entry[colIssues] = strings.Join(own, ",")
		entry[colProjects] = project
		if err := c.w.Write(withType(RecordProject, entry)); err != nil {
			return err
		}
	}

	for _, issue := range issues {
		entry[colIssues] = issue
		entry[colProjects] = strings.Join(c.projectsOf(issue), ",")
		if err := c.w.Write(withType(RecordIssue, entry)); err != nil {
			return err
		}
	}
	return nil
}

func (c *CSV) projectsOf(issue string) []string {
	if c.cfg.Projects != nil {
		return c.cfg.Projects.ProjectsOf(issue)
	}
	if prefix, _, ok := strings.Cut(issue, "-"); ok && prefix != "" {
		return []string{prefix}
	}
	return nil
}

func withType(recordType string, entry []string) []string {
	row := make([]string, 0, len(entry)+1)
	row = append(row, recordType)
	return append(row, entry...)
}

func containsFold(values []string, v string) bool {
	for _, s := range values {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

func boolCell(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}
