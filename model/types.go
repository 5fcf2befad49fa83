package model

import (
	"sort"
	"strings"
)

// ChangeType 表示 svn changed-paths 中的单字母状态码。
type ChangeType int

const (
	ChangeAdded ChangeType = iota
	ChangeDeleted
	ChangeModified
	ChangeReplaced
)

// Code returns the svn status letter.
func (c ChangeType) Code() string {
	switch c {
	case ChangeAdded:
		return "A"
	case ChangeDeleted:
		return "D"
	case ChangeModified:
		return "M"
	case ChangeReplaced:
		return "R"
	}
	return "?"
}

func (c ChangeType) String() string {
	switch c {
	case ChangeAdded:
		return "ADDED"
	case ChangeDeleted:
		return "DELETED"
	case ChangeModified:
		return "MODIFIED"
	case ChangeReplaced:
		return "REPLACED"
	}
	return "UNKNOWN"
}

// ParseChangeType 将单字母状态码转换为 ChangeType。
func ParseChangeType(code string) (ChangeType, bool) {
	switch code {
	case "A":
		return ChangeAdded, true
	case "D":
		return ChangeDeleted, true
	case "M":
		return ChangeModified, true
	case "R":
		return ChangeReplaced, true
	}
	return 0, false
}

// MergeStatus classifies whether a revision represents a merge.
type MergeStatus int

const (
	MergeNormal MergeStatus = iota
	MergeMerged
	// MergeUnsure is a guess based on the commit comment only.
	MergeUnsure
)

func (s MergeStatus) String() string {
	switch s {
	case MergeMerged:
		return "MERGED"
	case MergeUnsure:
		return "UNSURE"
	}
	return "NORMAL"
}

// StringSet is a case-insensitive set of strings. Values are stored upper-cased.
type StringSet struct {
	items map[string]struct{}
}

// NewStringSet creates a set holding the given values.
func NewStringSet(values ...string) StringSet {
	s := StringSet{items: make(map[string]struct{}, len(values))}
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Add inserts v and reports whether it was not already present.
func (s *StringSet) Add(v string) bool {
	if s.items == nil {
		s.items = make(map[string]struct{})
	}
	key := strings.ToUpper(v)
	if _, ok := s.items[key]; ok {
		return false
	}
	s.items[key] = struct{}{}
	return true
}

// Contains reports whether v is in the set, ignoring case.
func (s StringSet) Contains(v string) bool {
	_, ok := s.items[strings.ToUpper(v)]
	return ok
}

func (s StringSet) Len() int { return len(s.items) }

// Values returns the members in sorted order.
func (s StringSet) Values() []string {
	out := make([]string, 0, len(s.items))
	for v := range s.items {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s *StringSet) Clear() {
	s.items = make(map[string]struct{})
}
