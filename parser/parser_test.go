package parser

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	apperrors "github.com/penwyp/svnlogstats/internal/errors"
	"github.com/penwyp/svnlogstats/model"
)

// recordingSink 记录收到的 revision，可按需返回错误。
type recordingSink struct {
	revs     []*model.Revision
	flushed  int
	err      error
	flushErr error
}

func (s *recordingSink) Report(rev *model.Revision) error {
	if s.err != nil {
		return s.err
	}
	s.revs = append(s.revs, rev)
	return nil
}

func (s *recordingSink) Flush() error {
	s.flushed++
	return s.flushErr
}

type countingObserver struct {
	revisions int
	anomalies map[string]int
}

func (o *countingObserver) Revision(*model.Revision) { o.revisions++ }
func (o *countingObserver) Anomaly(kind string) {
	if o.anomalies == nil {
		o.anomalies = map[string]int{}
	}
	o.anomalies[kind]++
}

type issueFinalizer struct{ calls int }

func (f *issueFinalizer) Finalize(rev *model.Revision) {
	f.calls++
	rev.Issues.Add("FINAL-1")
}

func lines(s string) []string {
	return strings.Split(strings.TrimPrefix(s, "\n"), "\n")
}

const scenarioLog = `
------------------------------------------------------------------------
r42 | alice | 2020-01-01 12:00:00 +0000 (Wed, 01 Jan 2020) | 2 lines
Changed paths:
   M /trunk/foo.txt

Fixes BUG-17
done

Index: trunk/foo.txt
===================================================================
--- trunk/foo.txt	(revision 41)
+++ trunk/foo.txt	(revision 42)
@@ -1,3 +1,3 @@
-old
+new
 context

------------------------------------------------------------------------`

const twoRevisionLog = `
------------------------------------------------------------------------
r10 | bob | 2019-05-06 07:08:09 +0200 (Mon, 06 May 2019) | 1 line
Changed paths:
   A /branches/feature (from /trunk:9)

Create feature branch

Index: branches/feature/readme.md
===================================================================
--- branches/feature/readme.md	(nonexistent)
+++ branches/feature/readme.md	(revision 10)
@@ -0,0 +1,2 @@
+hello
+world

Index: branches/feature/logo.png
===================================================================
Cannot display: file marked as a binary type.
svn:mime-type = application/octet-stream

------------------------------------------------------------------------
r11 | carol | 2019-05-07 10:00:00 -0500 (Tue, 07 May 2019) | 3 lines
Changed paths:
   M /trunk
   M /trunk/src/main.c
   D /trunk/old.c

Merged revision(s) 5-7 from branches/feature
PROJ-12 and proj-3
UTF-8 cleanup

Index: trunk/src/main.c
===================================================================
--- trunk/src/main.c	(revision 10)
+++ trunk/src/main.c	(revision 11)
@@ -1,6 +1,7 @@
 #include <stdio.h>
-int a;
-int b;
+int a = 1;
 int main() {
+  return 0;
 }
Index: trunk/old.c (deleted)
===================================================================
--- trunk/old.c	(revision 10)
+++ trunk/old.c	(nonexistent)
@@ -1,2 +0,0 @@
-int x;
-int y;
Index: trunk
===================================================================
--- trunk	(revision 10)
+++ trunk	(revision 11)

Property changes on: trunk
___________________________________________________________________
Modified: svn:mergeinfo
   Merged /branches/feature:r5-7

------------------------------------------------------------------------`

func parseAll(t *testing.T, input string, opts ...Option) (*recordingSink, *Parser) {
	t.Helper()
	sink := &recordingSink{}
	p := New(sink, opts...)
	require.NoError(t, ParseLines(p, lines(input)))
	return sink, p
}

func TestParser_Scenario(t *testing.T) {
	sink, p := parseAll(t, scenarioLog)

	require.Len(t, sink.revs, 1)
	assert.Equal(t, 1, sink.flushed)

	rev := sink.revs[0]
	assert.Equal(t, 42, rev.ID)
	assert.Equal(t, "alice", rev.Author)
	assert.Equal(t, time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC).Unix(), rev.Timestamp.Unix())
	assert.Equal(t, "Fixes BUG-17\ndone", rev.Comment)
	assert.Equal(t, model.MergeNormal, rev.MergeStatus)

	require.Len(t, rev.FileChanges, 1)
	fc := rev.FileChange("trunk/foo.txt")
	require.NotNil(t, fc)
	assert.True(t, fc.InManifest)
	assert.Equal(t, model.ChangeModified, fc.ChangeType)
	assert.Equal(t, 1, fc.LinesAdded)
	assert.Equal(t, 1, fc.LinesRemoved)
	assert.Equal(t, 1, fc.LinesModified)

	assert.Equal(t, StateNew, p.State())
	assert.Equal(t, 1, p.Stats().Emitted)
	assert.Equal(t, 0, p.Stats().Anomalies)
}

func TestParser_TwoRevisions(t *testing.T) {
	sink, _ := parseAll(t, twoRevisionLog)
	require.Len(t, sink.revs, 2)

	r10 := sink.revs[0]
	assert.Equal(t, 10, r10.ID)
	_, offset := r10.Timestamp.Zone()
	assert.Equal(t, 2*60*60, offset)

	branch := r10.FileChange("branches/feature")
	require.NotNil(t, branch)
	assert.Equal(t, "/trunk", branch.FromPath)
	assert.Equal(t, 9, branch.FromRevision)
	assert.True(t, branch.InManifest)

	readme := r10.FileChange("branches/feature/readme.md")
	require.NotNil(t, readme)
	assert.False(t, readme.InManifest)
	assert.Equal(t, model.ChangeAdded, readme.ChangeType)
	assert.Equal(t, 2, readme.LinesAdded)
	assert.Equal(t, 2, readme.LinesModified)

	logo := r10.FileChange("branches/feature/logo.png")
	require.NotNil(t, logo)
	assert.True(t, logo.Binary)
	assert.Equal(t, 0, logo.LinesAdded)

	r11 := sink.revs[1]
	assert.Equal(t, "carol", r11.Author)
	assert.Equal(t, "Merged revision(s) 5-7 from branches/feature\nPROJ-12 and proj-3\nUTF-8 cleanup", r11.Comment)
	assert.Equal(t, model.MergeMerged, r11.MergeStatus)

	main := r11.FileChange("trunk/src/main.c")
	require.NotNil(t, main)
	assert.Equal(t, 2, main.LinesAdded)
	assert.Equal(t, 2, main.LinesRemoved)
	// -a -b +a folded as 2, then +return folded as 1
	assert.Equal(t, 3, main.LinesModified)

	old := r11.FileChange("trunk/old.c")
	require.NotNil(t, old)
	assert.True(t, old.InManifest)
	assert.Equal(t, model.ChangeDeleted, old.ChangeType)
	assert.Equal(t, 2, old.LinesRemoved)
	assert.Equal(t, 2, old.LinesModified)
}

func TestParser_IndependentInstancesAgree(t *testing.T) {
	first, _ := parseAll(t, twoRevisionLog)
	second, _ := parseAll(t, twoRevisionLog)

	require.Len(t, second.revs, len(first.revs))
	for i := range first.revs {
		a, b := first.revs[i], second.revs[i]
		assert.Equal(t, a.ID, b.ID)
		assert.Equal(t, a.MergeStatus, b.MergeStatus)
		assert.Equal(t, a.Issues.Values(), b.Issues.Values())
		assert.Equal(t, a.Projects.Values(), b.Projects.Values())
		assert.Equal(t, a.Paths(), b.Paths())
		for path, fc := range a.FileChanges {
			assert.Equal(t, *fc, *b.FileChanges[path], path)
		}
	}
}

func TestParser_CommentLineCount(t *testing.T) {
	tests := []struct {
		name     string
		declared string
		body     []string
		expected string
		blank    bool
	}{
		{"single line", "1 line", []string{"one", ""}, "one", true},
		{"three lines with blanks", "3 lines", []string{"a", "", "c", ""}, "a\n\nc", true},
		{"separator not blank", "1 line", []string{"only", "garbage"}, "only", false},
		{"zero lines", "0 lines", []string{""}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := []string{
				EntryDivider,
				"r5 | dave | 2018-01-01 00:00:00 +0000 (Mon, 01 Jan 2018) | " + tt.declared,
				PathsHeader,
				"   M /trunk/x",
				"",
			}
			input = append(input, tt.body...)
			input = append(input, EntryDivider)

			sink := &recordingSink{}
			p := New(sink)
			require.NoError(t, ParseLines(p, input))

			require.Len(t, sink.revs, 1)
			assert.Equal(t, tt.expected, sink.revs[0].Comment)
			if tt.blank {
				assert.Equal(t, 0, p.Stats().Anomalies)
			} else {
				assert.Equal(t, 1, p.Stats().Anomalies)
			}
		})
	}
}

func TestParser_CommentLinesAreNotInterpreted(t *testing.T) {
	input := []string{
		EntryDivider,
		"r5 | dave | 2018-01-01 00:00:00 +0000 (Mon, 01 Jan 2018) | 2 lines",
		PathsHeader,
		"   M /trunk/x",
		"",
		"Index: trunk/fake",
		"r6 | eve | 2018-01-01 00:00:00 +0000 (Mon, 01 Jan 2018) | 1 line",
		"",
		EntryDivider,
	}

	sink := &recordingSink{}
	require.NoError(t, ParseLines(New(sink), input))

	require.Len(t, sink.revs, 1)
	assert.Equal(t, 5, sink.revs[0].ID)
	assert.Len(t, sink.revs[0].FileChanges, 1)
	assert.Contains(t, sink.revs[0].Comment, "Index: trunk/fake")
}

func TestParser_DeletedWithoutManifest(t *testing.T) {
	input := []string{
		EntryDivider,
		"r8 | frank | 2018-02-02 10:00:00 +0100 (Fri, 02 Feb 2018) | 1 line",
		PathsHeader,
		"   D /branches/old",
		"",
		"Remove old branch",
		"",
		"Index: branches/old/a.txt (deleted)",
		DiffSeparator,
		"--- branches/old/a.txt\t(revision 7)",
		"+++ branches/old/a.txt\t(nonexistent)",
		"@@ -1 +0,0 @@",
		"-gone",
		"",
		EntryDivider,
	}

	core, logs := observer.New(zap.InfoLevel)
	sink := &recordingSink{}
	require.NoError(t, ParseLines(New(sink, WithLogger(zap.New(core))), input))
	require.Len(t, sink.revs, 1)
	assert.Equal(t, 1, logs.FilterMessage("unreported file in diff").Len())

	fc := sink.revs[0].FileChange("branches/old/a.txt")
	require.NotNil(t, fc)
	assert.Equal(t, model.ChangeDeleted, fc.ChangeType)
	assert.False(t, fc.InManifest)
	assert.Equal(t, 1, fc.LinesRemoved)
	assert.Nil(t, sink.revs[0].FileChange("branches/old/a.txt (deleted)"))
}

func TestParser_BlankIndexPath(t *testing.T) {
	input := []string{
		EntryDivider,
		"r12 | hana | 2018-04-04 10:00:00 +0000 (Wed, 04 Apr 2018) | 1 line",
		PathsHeader,
		"   M /trunk/a.txt",
		"",
		"Touch a",
		"",
		"Index: ",
		"Index: trunk/a.txt",
		DiffSeparator,
		"--- trunk/a.txt\t(revision 11)",
		"+++ trunk/a.txt\t(revision 12)",
		"@@ -1,2 +1,2 @@",
		"-old",
		"+new",
		" context",
		"",
		EntryDivider,
	}

	sink := &recordingSink{}
	require.NoError(t, ParseLines(New(sink), input))
	require.Len(t, sink.revs, 1)

	rev := sink.revs[0]
	require.Len(t, rev.FileChanges, 1)
	assert.Nil(t, rev.FileChange(""))
	fc := rev.FileChange("trunk/a.txt")
	require.NotNil(t, fc)
	assert.True(t, fc.InManifest)
	assert.Equal(t, 1, fc.LinesAdded)
	assert.Equal(t, 1, fc.LinesRemoved)
}

func TestParser_MergeInfoRequiresManifest(t *testing.T) {
	input := []string{
		EntryDivider,
		"r9 | gina | 2018-03-03 10:00:00 +0000 (Sat, 03 Mar 2018) | 1 line",
		PathsHeader,
		"   M /trunk/a",
		"",
		"no merge here",
		"",
		"Index: trunk/b",
		DiffSeparator,
		"--- trunk/b",
		"+++ trunk/b",
		"",
		"Property changes on: trunk/b",
		PropsSeparator,
		"Added: svn:mergeinfo",
		"",
		EntryDivider,
	}

	sink := &recordingSink{}
	require.NoError(t, ParseLines(New(sink), input))
	require.Len(t, sink.revs, 1)
	assert.Equal(t, model.MergeNormal, sink.revs[0].MergeStatus)
	assert.False(t, sink.revs[0].FileChange("trunk/b").InManifest)
}

func TestParser_PropertyChangesKeepStatistics(t *testing.T) {
	input := []string{
		EntryDivider,
		"r3 | hal | 2018-03-03 10:00:00 +0000 (Sat, 03 Mar 2018) | 1 line",
		PathsHeader,
		"   M /trunk/a",
		"",
		"props",
		"",
		"Index: trunk/a",
		DiffSeparator,
		"--- trunk/a",
		"+++ trunk/a",
		"@@ -1 +1 @@",
		"+x",
		"",
		"Property changes on: trunk/a",
		PropsSeparator,
		"Added: svn:eol-style",
		"## -0,0 +1 ##",
		"+native",
		EntryDivider,
	}

	sink := &recordingSink{}
	require.NoError(t, ParseLines(New(sink), input))
	require.Len(t, sink.revs, 1)

	fc := sink.revs[0].FileChange("trunk/a")
	assert.Equal(t, 1, fc.LinesAdded)
	assert.Equal(t, 1, fc.LinesModified)
	assert.Equal(t, model.MergeNormal, sink.revs[0].MergeStatus)
}

func TestParser_StaleRevisionDiscarded(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	obs := &countingObserver{}
	input := []string{
		EntryDivider,
		"r1 | ann | 2018-01-01 00:00:00 +0000 (Mon, 01 Jan 2018) | 1 line",
		PathsHeader,
		"   A /trunk/first",
		"r2 | ann | 2018-01-02 00:00:00 +0000 (Tue, 02 Jan 2018) | 1 line",
		PathsHeader,
		"   A /trunk/second",
		"",
		"second",
		"",
		EntryDivider,
	}

	sink := &recordingSink{}
	p := New(sink, WithLogger(zap.New(core)), WithObserver(obs))
	require.NoError(t, ParseLines(p, input))

	require.Len(t, sink.revs, 1)
	assert.Equal(t, 2, sink.revs[0].ID)
	assert.Nil(t, sink.revs[0].FileChange("trunk/first"))
	assert.Equal(t, 1, p.Stats().Discarded)
	assert.Equal(t, 1, obs.anomalies[AnomalyStaleRevision])
	assert.Equal(t, 1, obs.revisions)
	assert.Equal(t, 1, logs.FilterMessage("found new revision while still processing a revision").Len())
}

func TestParser_GarbageAndDuplicatePaths(t *testing.T) {
	obs := &countingObserver{}
	input := []string{
		EntryDivider,
		"r4 | ivan | 2018-01-01 00:00:00 +0000 (Mon, 01 Jan 2018) | 1 line",
		PathsHeader,
		"   A /trunk/a",
		"garbage here",
		"   X /trunk/unknown-status",
		"   M /trunk/a",
		"",
		"dup",
		"",
		EntryDivider,
	}

	sink := &recordingSink{}
	p := New(sink, WithObserver(obs))
	require.NoError(t, ParseLines(p, input))

	require.Len(t, sink.revs, 1)
	require.Len(t, sink.revs[0].FileChanges, 1)
	assert.Equal(t, model.ChangeModified, sink.revs[0].FileChange("trunk/a").ChangeType)
	assert.Equal(t, 2, obs.anomalies[AnomalyGarbagePath])
	assert.Equal(t, 1, obs.anomalies[AnomalyDuplicatePath])
}

func TestParser_IgnoresLinesBeforeFirstHeader(t *testing.T) {
	obs := &countingObserver{}
	sink := &recordingSink{}
	p := New(sink, WithObserver(obs))

	require.NoError(t, p.Parse("svn: warning: something"))
	require.NoError(t, p.Parse(EntryDivider))
	require.NoError(t, p.Parse("not a header"))
	assert.Equal(t, StateEntry, p.State())
	require.NoError(t, p.Flush())

	assert.Empty(t, sink.revs)
	assert.Equal(t, 1, obs.anomalies[AnomalyUnexpectedLine])
	assert.Equal(t, 1, sink.flushed)
}

func TestParser_BadHeaderTimestamp(t *testing.T) {
	obs := &countingObserver{}
	sink := &recordingSink{}
	p := New(sink, WithObserver(obs))

	require.NoError(t, p.Parse(EntryDivider))
	require.NoError(t, p.Parse("r7 | x | 2018-13-45 99:00:00 +0000 (bogus) | 1 line"))
	require.NoError(t, p.Flush())

	assert.Empty(t, sink.revs)
	assert.Equal(t, 1, obs.anomalies[AnomalyBadHeader])
}

func TestParser_FlushEmitsRevisionInFlight(t *testing.T) {
	input := lines(scenarioLog)
	input = input[:len(input)-1] // drop the trailing divider

	sink := &recordingSink{}
	p := New(sink)
	for _, line := range input {
		require.NoError(t, p.Parse(line))
	}
	assert.Empty(t, sink.revs, "parser must not self-terminate")

	require.NoError(t, p.Flush())
	require.Len(t, sink.revs, 1)
	assert.Equal(t, 1, sink.revs[0].LinesModified())
}

func TestParser_FlushInsideDiffFoldsOpenRun(t *testing.T) {
	input := []string{
		EntryDivider,
		"r12 | jo | 2018-01-01 00:00:00 +0000 (Mon, 01 Jan 2018) | 1 line",
		PathsHeader,
		"   M /trunk/a",
		"",
		"x",
		"",
		"Index: trunk/a",
		"+a",
		"+b",
		"-c",
	}

	sink := &recordingSink{}
	require.NoError(t, ParseLines(New(sink), input))
	require.Len(t, sink.revs, 1)

	fc := sink.revs[0].FileChange("trunk/a")
	assert.Equal(t, 2, fc.LinesAdded)
	assert.Equal(t, 1, fc.LinesRemoved)
	assert.Equal(t, 2, fc.LinesModified)
}

func TestParser_Finalizer(t *testing.T) {
	f := &issueFinalizer{}
	sink, _ := parseAll(t, twoRevisionLog, WithFinalizer(f))

	assert.Equal(t, 2, f.calls)
	for _, rev := range sink.revs {
		assert.True(t, rev.Issues.Contains("final-1"))
	}
}

func TestParser_SinkFailureIsSurfaced(t *testing.T) {
	sink := &recordingSink{err: errors.New("disk full")}
	p := New(sink)

	var reportErrs []error
	for _, line := range lines(twoRevisionLog) {
		if err := p.Parse(line); err != nil {
			reportErrs = append(reportErrs, err)
		}
	}
	require.Len(t, reportErrs, 2)
	for _, err := range reportErrs {
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeReport))
		assert.True(t, apperrors.IsRetryable(err))
		assert.ErrorContains(t, err, "disk full")
	}
	assert.Equal(t, StateEntry, p.State())
	assert.Equal(t, 2, p.Stats().Emitted)

	require.NoError(t, p.Flush())
}

func TestParser_FlushFailure(t *testing.T) {
	sink := &recordingSink{flushErr: errors.New("closed pipe")}
	p := New(sink)

	err := ParseLines(p, lines(scenarioLog))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeReport))
	assert.True(t, apperrors.IsRetryable(err))
	assert.Len(t, sink.revs, 1)
}

func TestParser_NilSink(t *testing.T) {
	p := New(nil)
	require.NoError(t, ParseLines(p, lines(scenarioLog)))
	assert.Equal(t, 1, p.Stats().Emitted)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "NEW", StateNew.String())
	assert.Equal(t, "DIFF_PROPS", StateDiffProps.String())
	assert.Equal(t, "UNKNOWN", State(99).String())
}
