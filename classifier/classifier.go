// Package classifier derives the heuristic attributes of a parsed revision: merge status
// refinement, referenced issues and projects, branch actions and the branch name.
package classifier

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/penwyp/svnlogstats/internal/errors"
	"github.com/penwyp/svnlogstats/model"
)

// DefaultIssuePattern matches tokens such as ABC-123.
const DefaultIssuePattern = `([A-Za-z]+-[0-9]+)`

// mergeMarker is what svn merge writes into generated commit messages.
const mergeMarker = "merged revision(s)"

// DefaultIgnoredIssues are encoding names that look like issue keys.
func DefaultIgnoredIssues() []string {
	return []string{"UTF-8", "UTF-16", "UTF-32", "ISO-8859"}
}

// Config 分类器配置
type Config struct {
	// IssuePattern 提取 issue 的正则，有捕获组时取第 1 组
	IssuePattern string
	// ProjectPattern 可选，整体匹配 issue 后取第 1 组作为项目
	ProjectPattern string
	// IgnoredIssues 不作为 issue 的匹配结果（大小写不敏感）
	IgnoredIssues []string
	// BranchPaths 分支根目录模板，* 匹配一个路径段，如 branches/*
	BranchPaths []string
}

// DefaultConfig returns the configuration used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		IssuePattern:  DefaultIssuePattern,
		IgnoredIssues: DefaultIgnoredIssues(),
	}
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Classifier post-processes revisions. It is safe for concurrent use once built.
type Classifier struct {
	issuePattern   *regexp.Regexp
	projectPattern *regexp.Regexp
	ignored        model.StringSet
	branches       []branchRoot
	logger         *zap.Logger
}

// New compiles cfg. An empty IssuePattern disables issue extraction.
func New(cfg Config, opts ...Option) (*Classifier, error) {
	c := &Classifier{
		ignored: model.NewStringSet(cfg.IgnoredIssues...),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	var err error
	if cfg.IssuePattern != "" {
		if c.issuePattern, err = regexp.Compile(cfg.IssuePattern); err != nil {
			return nil, errors.Wrap(errors.ErrTypeConfig, "invalid issue pattern", err).
				WithSuggestion("Check patterns.issue in the configuration file")
		}
	}
	if cfg.ProjectPattern != "" {
		if c.projectPattern, err = regexp.Compile(cfg.ProjectPattern); err != nil {
			return nil, errors.Wrap(errors.ErrTypeConfig, "invalid project pattern", err).
				WithSuggestion("Check patterns.project in the configuration file")
		}
	}
	for _, tpl := range cfg.BranchPaths {
		root, err := compileBranchRoot(tpl)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrTypeConfig, err, "invalid branch path %q", tpl)
		}
		c.branches = append(c.branches, root)
	}
	return c, nil
}

// Finalize implements parser.Finalizer.
func (c *Classifier) Finalize(rev *model.Revision) {
	if rev == nil {
		return
	}
	c.refineMergeStatus(rev)
	c.extractIssues(rev)
	rev.BranchAction = c.IsBranchAction(rev)
	rev.BranchName = c.BranchName(rev)
}

func (c *Classifier) refineMergeStatus(rev *model.Revision) {
	if rev.MergeStatus != model.MergeNormal {
		return
	}
	if strings.Contains(strings.ToLower(rev.Comment), mergeMarker) {
		rev.MergeStatus = model.MergeUnsure
	}
}

func (c *Classifier) extractIssues(rev *model.Revision) {
	rev.Issues.Clear()
	rev.Projects.Clear()
	if c.issuePattern == nil {
		return
	}

	for _, m := range c.issuePattern.FindAllStringSubmatch(rev.Comment, -1) {
		issue := m[0]
		if len(m) > 1 && m[1] != "" {
			issue = m[1]
		}
		issue = strings.ToUpper(issue)
		if c.ignored.Contains(issue) {
			continue
		}
		rev.Issues.Add(issue)
		for _, project := range c.ProjectsOf(issue) {
			rev.Projects.Add(project)
		}
	}
}

// ProjectsOf returns the project codes an issue belongs to: the text before the first
// hyphen and, when a project pattern is configured and matches, its first group.
func (c *Classifier) ProjectsOf(issue string) []string {
	issue = strings.ToUpper(issue)
	var projects []string
	prefix, _, found := strings.Cut(issue, "-")
	if found && prefix != "" {
		projects = append(projects, prefix)
	}

	if c.projectPattern == nil {
		return projects
	}
	m := c.projectPattern.FindStringSubmatch(issue)
	if m == nil || m[0] != issue || len(m) < 2 || m[1] == "" {
		return projects
	}
	project := strings.ToUpper(m[1])
	if project != prefix {
		c.logger.Debug("project pattern disagrees with issue prefix",
			zap.String("issue", issue), zap.String("prefix", prefix), zap.String("project", project))
		projects = append(projects, project)
	}
	return projects
}
