package classifier

import (
	"regexp"
	"strings"

	"github.com/penwyp/svnlogstats/model"
)

// branchRoot is a compiled branch-root template such as "branches/*".
type branchRoot struct {
	template string
	exact    *regexp.Regexp // whole path is the root
	prefix   *regexp.Regexp // path inside the root, group 1 is the root
}

func compileBranchRoot(tpl string) (branchRoot, error) {
	tpl = strings.Trim(strings.TrimSpace(tpl), "/")
	expr := strings.ReplaceAll(regexp.QuoteMeta(tpl), `\*`, `[^/]*`)

	exact, err := regexp.Compile("^" + expr + "$")
	if err != nil {
		return branchRoot{}, err
	}
	prefix, err := regexp.Compile("^(" + expr + ")(/.*)?$")
	if err != nil {
		return branchRoot{}, err
	}
	return branchRoot{template: tpl, exact: exact, prefix: prefix}, nil
}

func (c *Classifier) isBranchRoot(path string) bool {
	for _, b := range c.branches {
		if b.exact.MatchString(path) {
			return true
		}
	}
	return false
}

// IsBranchAction guesses whether rev created, moved or deleted a branch.
//
// The guess holds when the manifest lists only branch roots without content changes and
// every file seen only in the diff lives below a manifest entry of the same change type.
// Plain deletions of a branch root match too.
func (c *Classifier) IsBranchAction(rev *model.Revision) bool {
	var manifest, diffOnly []*model.FileChange
	for _, fc := range rev.Files() {
		if fc.InManifest {
			manifest = append(manifest, fc)
		} else {
			diffOnly = append(diffOnly, fc)
		}
	}

	if len(diffOnly) == 0 {
		// everything was known, can't be a branch action
		return false
	}

	for _, fc := range manifest {
		if fc.LinesModified != 0 || fc.Binary {
			return false
		}
		if fc.ChangeType == model.ChangeAdded && fc.FromRevision <= 0 {
			// added but not copied
			return false
		}
		if !c.isBranchRoot(fc.Filename) {
			return false
		}
	}

	for _, fc := range diffOnly {
		if !hasParentEntry(manifest, fc) {
			return false
		}
	}
	return true
}

func hasParentEntry(manifest []*model.FileChange, fc *model.FileChange) bool {
	for _, m := range manifest {
		if m.ChangeType == fc.ChangeType && strings.HasPrefix(fc.Filename, m.Filename) {
			return true
		}
	}
	return false
}

// BranchName derives the branch a revision touched from the common prefix of its paths.
func (c *Classifier) BranchName(rev *model.Revision) string {
	prefix := commonPrefix(rev.Paths())
	if strings.TrimSpace(prefix) == "" {
		return model.UnknownBranch
	}
	if strings.HasPrefix(prefix, "trunk") {
		return "trunk"
	}
	for _, b := range c.branches {
		if m := b.prefix.FindStringSubmatch(prefix); m != nil {
			return m[1]
		}
	}
	return model.UnknownBranch
}

func commonPrefix(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	prefix := paths[0]
	for _, p := range paths[1:] {
		n := min(len(prefix), len(p))
		i := 0
		for i < n && prefix[i] == p[i] {
			i++
		}
		prefix = prefix[:i]
		if prefix == "" {
			break
		}
	}
	return prefix
}
