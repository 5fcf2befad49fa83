package model

import "fmt"

// FileChange describes one path touched by a revision together with its diff statistics.
type FileChange struct {
	Filename   string
	ChangeType ChangeType

	// InManifest is true when the path was listed under "Changed paths:".
	// False means it was only discovered in the diff section, which happens when svn
	// summarizes a large recursive add or delete.
	InManifest bool
	Binary     bool

	FromPath     string
	FromRevision int

	LinesAdded    int
	LinesRemoved  int
	LinesModified int
}

// NewFileChange creates a manifest entry.
func NewFileChange(filename string, changeType ChangeType) *FileChange {
	return &FileChange{
		Filename:   filename,
		ChangeType: changeType,
		InManifest: true,
	}
}

// Copied reports whether the entry carries a copy source.
func (f *FileChange) Copied() bool {
	return f.FromRevision > 0
}

func (f *FileChange) String() string {
	return fmt.Sprintf("%s %s (+%d -%d ~%d)", f.ChangeType.Code(), f.Filename,
		f.LinesAdded, f.LinesRemoved, f.LinesModified)
}
