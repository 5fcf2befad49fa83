package reporter

import (
	"strings"

	"github.com/penwyp/svnlogstats/model"
)

// FileGroup 按文件后缀划分的统计分组，例如 java: [.java, .jsp]
type FileGroup struct {
	Name     string
	Suffixes []string
}

// NewFileGroup creates a group; a blank name becomes "unnamed".
func NewFileGroup(name string, suffixes ...string) FileGroup {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "unnamed"
	}
	return FileGroup{Name: name, Suffixes: suffixes}
}

// Matches reports whether filename ends with one of the suffixes, ignoring case.
func (g FileGroup) Matches(filename string) bool {
	lower := strings.ToLower(filename)
	for _, suffix := range g.Suffixes {
		if suffix != "" && strings.HasSuffix(lower, strings.ToLower(suffix)) {
			return true
		}
	}
	return false
}

func (g FileGroup) predicate() func(*model.FileChange) bool {
	return func(fc *model.FileChange) bool { return g.Matches(fc.Filename) }
}
