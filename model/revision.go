// Package model holds the records produced by the svn log parser.
package model

import (
	"fmt"
	"sort"
	"time"
)

// UnknownBranch is used when no branch could be derived from the changed paths.
const UnknownBranch = "?unknown?"

// Revision is one historical commit.
type Revision struct {
	ID          int
	Author      string
	Timestamp   time.Time
	Comment     string
	MergeStatus MergeStatus

	FileChanges map[string]*FileChange
	Issues      StringSet
	Projects    StringSet

	// BranchAction is a low-confidence guess that the revision created, moved or
	// deleted a branch. It has known false positives for deletions.
	BranchAction bool
	BranchName   string
}

// NewRevision creates an empty revision with merge status NORMAL.
func NewRevision(id int, author string, timestamp time.Time) *Revision {
	return &Revision{
		ID:          id,
		Author:      author,
		Timestamp:   timestamp,
		MergeStatus: MergeNormal,
		FileChanges: make(map[string]*FileChange),
		Issues:      NewStringSet(),
		Projects:    NewStringSet(),
		BranchName:  UnknownBranch,
	}
}

// AddFileChange stores fc under its filename. It reports whether an entry for the same
// path was overwritten.
func (r *Revision) AddFileChange(fc *FileChange) bool {
	_, replaced := r.FileChanges[fc.Filename]
	r.FileChanges[fc.Filename] = fc
	return replaced
}

// FileChange returns the entry for path, or nil.
func (r *Revision) FileChange(path string) *FileChange {
	return r.FileChanges[path]
}

// Files returns the file changes sorted by path.
func (r *Revision) Files() []*FileChange {
	files := make([]*FileChange, 0, len(r.FileChanges))
	for _, fc := range r.FileChanges {
		files = append(files, fc)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Filename < files[j].Filename })
	return files
}

// Paths returns the changed paths sorted.
func (r *Revision) Paths() []string {
	paths := make([]string, 0, len(r.FileChanges))
	for p := range r.FileChanges {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// FilesOfType counts the changes with the given change type.
func (r *Revision) FilesOfType(ct ChangeType) int {
	return r.CountWhere(func(fc *FileChange) bool { return fc.ChangeType == ct })
}

// CountWhere counts the changes matching pred. A nil pred matches all.
func (r *Revision) CountWhere(pred func(*FileChange) bool) int {
	n := 0
	for _, fc := range r.FileChanges {
		if pred == nil || pred(fc) {
			n++
		}
	}
	return n
}

func (r *Revision) LinesAdded() int    { return r.LinesAddedWhere(nil) }
func (r *Revision) LinesRemoved() int  { return r.LinesRemovedWhere(nil) }
func (r *Revision) LinesModified() int { return r.LinesModifiedWhere(nil) }

// LinesAddedWhere sums added lines over the changes matching pred. A nil pred matches all.
func (r *Revision) LinesAddedWhere(pred func(*FileChange) bool) int {
	return r.sum(pred, func(fc *FileChange) int { return fc.LinesAdded })
}

func (r *Revision) LinesRemovedWhere(pred func(*FileChange) bool) int {
	return r.sum(pred, func(fc *FileChange) int { return fc.LinesRemoved })
}

func (r *Revision) LinesModifiedWhere(pred func(*FileChange) bool) int {
	return r.sum(pred, func(fc *FileChange) int { return fc.LinesModified })
}

func (r *Revision) sum(pred func(*FileChange) bool, value func(*FileChange) int) int {
	total := 0
	for _, fc := range r.FileChanges {
		if pred == nil || pred(fc) {
			total += value(fc)
		}
	}
	return total
}

func (r *Revision) String() string {
	return fmt.Sprintf("r%d author=%s timestamp=%s merge=%s projects=%v issues=%v files=%d",
		r.ID, r.Author, r.Timestamp.Format(time.RFC3339), r.MergeStatus,
		r.Projects.Values(), r.Issues.Values(), len(r.FileChanges))
}
