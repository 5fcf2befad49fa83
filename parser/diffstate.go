package parser

import (
	"strings"

	"github.com/penwyp/svnlogstats/model"
)

// diffState accumulates line statistics for the diff of a single file.
//
// A contiguous run of +/- lines is counted once as "modified" lines using the larger of
// the two sides; the run is closed by a context line or by the end of the file's diff.
type diffState struct {
	add int
	del int

	totalAdd int
	totalDel int
	totalMod int
}

// consume feeds one diff content line. It reports whether the line was recognized as
// unified diff content. The binary marker sets fc.Binary but is not reported as content.
func (d *diffState) consume(line string, fc *model.FileChange) bool {
	if strings.HasPrefix(line, "---") || strings.HasPrefix(line, "+++") ||
		strings.HasPrefix(line, "@@") || line == DiffSeparator {
		return true
	}

	switch {
	case strings.HasPrefix(line, "-"):
		d.del++
		d.totalDel++
		return true
	case strings.HasPrefix(line, "+"):
		d.add++
		d.totalAdd++
		return true
	case strings.HasPrefix(line, " "):
		d.closeRun()
		return true
	case line == BinaryMarker:
		fc.Binary = true
	}
	return false
}

func (d *diffState) closeRun() {
	if d.add > 0 || d.del > 0 {
		d.totalMod += max(d.add, d.del)
		d.add = 0
		d.del = 0
	}
}

// apply closes any open run and overwrites the counters of fc with the totals.
func (d *diffState) apply(fc *model.FileChange) {
	d.closeRun()
	fc.LinesAdded = d.totalAdd
	fc.LinesRemoved = d.totalDel
	fc.LinesModified = d.totalMod
}
