package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/penwyp/svnlogstats/model"
)

// Fixed markers of `svn log -v --diff` output.
const (
	EntryDivider   = "------------------------------------------------------------------------"
	PathsHeader    = "Changed paths:"
	DiffSeparator  = "==================================================================="
	PropsSeparator = "___________________________________________________________________"
	BinaryMarker   = "Cannot display: file marked as a binary type."

	diffIndexPrefix  = "Index: "
	propsIndexPrefix = "Property changes on: "
	deletedSuffix    = " (deleted)"

	timestampLayout = "2006-01-02 15:04:05 -0700"
)

var (
	headerPattern = regexp.MustCompile(`^r([0-9]+) \| (.*) \| ([0-9]{4}-[0-9]{2}-[0-9]{2} [0-9]{2}:[0-9]{2}:[0-9]{2} [-+][0-9]{4}) .*\| ([0-9]+) lines?$`)
	pathPattern   = regexp.MustCompile(`^   ([ADMR]) /(.*)$`)
	copyPattern   = regexp.MustCompile(`^(.*) \(from (.*):([0-9]+)\)$`)
	indexPattern  = regexp.MustCompile(`^Index: (.*)$`)
	propsPattern  = regexp.MustCompile(`^Property changes on: (.*)$`)
)

// header is a parsed revision header line.
type header struct {
	id           int
	author       string
	timestamp    time.Time
	commentLines int
}

// matchHeader recognizes `r<id> | <author> | <timestamp> ... | <n> line(s)`.
// ok is false when the line is not a header; err is set when it looks like one but the
// timestamp or counters cannot be parsed.
func matchHeader(line string) (h header, ok bool, err error) {
	m := headerPattern.FindStringSubmatch(line)
	if m == nil {
		return header{}, false, nil
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return header{}, true, err
	}
	ts, err := time.Parse(timestampLayout, m[3])
	if err != nil {
		return header{}, true, err
	}
	n, err := strconv.Atoi(m[4])
	if err != nil {
		return header{}, true, err
	}
	return header{id: id, author: m[2], timestamp: ts, commentLines: n}, true, nil
}

// pathEntry is one line of the "Changed paths:" section.
type pathEntry struct {
	changeType   model.ChangeType
	path         string
	fromPath     string
	fromRevision int
}

func matchPathEntry(line string) (pathEntry, bool) {
	m := pathPattern.FindStringSubmatch(line)
	if m == nil {
		return pathEntry{}, false
	}
	ct, ok := model.ParseChangeType(m[1])
	if !ok {
		return pathEntry{}, false
	}
	entry := pathEntry{changeType: ct, path: m[2]}
	if c := copyPattern.FindStringSubmatch(entry.path); c != nil {
		entry.path = c[1]
		entry.fromPath = c[2]
		entry.fromRevision, _ = strconv.Atoi(c[3])
	}
	return entry, true
}

// matchDiffIndex recognizes `Index: <path>[ (deleted)]`.
func matchDiffIndex(line string) (path string, deleted bool, ok bool) {
	if !strings.HasPrefix(line, diffIndexPrefix) {
		return "", false, false
	}
	m := indexPattern.FindStringSubmatch(line)
	if m == nil {
		return "", false, false
	}
	path = m[1]
	if strings.HasSuffix(path, deletedSuffix) {
		path = strings.TrimSuffix(path, deletedSuffix)
		deleted = true
	}
	return path, deleted, true
}

func matchPropsIndex(line string) (string, bool) {
	if !strings.HasPrefix(line, propsIndexPrefix) {
		return "", false
	}
	m := propsPattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func isMergeInfoChange(line string) bool {
	return line == "Added: svn:mergeinfo" || line == "Modified: svn:mergeinfo"
}
