package reporter

import (
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/penwyp/svnlogstats/model"
)

// AuthorStats 单个作者的累计统计
type AuthorStats struct {
	Author        string
	Revisions     int
	Merges        int
	Files         int
	LinesAdded    int
	LinesRemoved  int
	LinesModified int
}

// Summary aggregates revisions per author and renders a table on Flush.
type Summary struct {
	w       io.Writer
	authors map[string]*AuthorStats
	first   int
	last    int
}

// NewSummary creates a summary reporter writing to w.
func NewSummary(w io.Writer) *Summary {
	return &Summary{w: w, authors: make(map[string]*AuthorStats)}
}

// Report implements Reporter.
func (s *Summary) Report(rev *model.Revision) error {
	st, ok := s.authors[rev.Author]
	if !ok {
		st = &AuthorStats{Author: rev.Author}
		s.authors[rev.Author] = st
	}
	st.Revisions++
	if rev.MergeStatus != model.MergeNormal {
		st.Merges++
	}
	st.Files += len(rev.FileChanges)
	st.LinesAdded += rev.LinesAdded()
	st.LinesRemoved += rev.LinesRemoved()
	st.LinesModified += rev.LinesModified()

	if s.first == 0 || rev.ID < s.first {
		s.first = rev.ID
	}
	if rev.ID > s.last {
		s.last = rev.ID
	}
	return nil
}

// Authors returns the per-author statistics, most active first.
func (s *Summary) Authors() []AuthorStats {
	list := make([]AuthorStats, 0, len(s.authors))
	for _, st := range s.authors {
		list = append(list, *st)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Revisions != list[j].Revisions {
			return list[i].Revisions > list[j].Revisions
		}
		return list[i].Author < list[j].Author
	})
	return list
}

// Flush implements Reporter.
func (s *Summary) Flush() error {
	_, err := io.WriteString(s.w, s.Render())
	return failure("failed to write summary", err)
}

// Render formats the summary table.
func (s *Summary) Render() string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Format.Footer = text.FormatDefault
	tbl.SetTitle(s.title())
	tbl.AppendHeader(table.Row{"Author", "Revisions", "Merges", "Files", "Added", "Removed", "Modified"})

	var total AuthorStats
	for _, st := range s.Authors() {
		tbl.AppendRow(table.Row{
			st.Author,
			humanize.Comma(int64(st.Revisions)),
			humanize.Comma(int64(st.Merges)),
			humanize.Comma(int64(st.Files)),
			humanize.Comma(int64(st.LinesAdded)),
			humanize.Comma(int64(st.LinesRemoved)),
			humanize.Comma(int64(st.LinesModified)),
		})
		total.Revisions += st.Revisions
		total.Merges += st.Merges
		total.Files += st.Files
		total.LinesAdded += st.LinesAdded
		total.LinesRemoved += st.LinesRemoved
		total.LinesModified += st.LinesModified
	}

	tbl.AppendFooter(table.Row{
		fmt.Sprintf("%d authors", len(s.authors)),
		humanize.Comma(int64(total.Revisions)),
		humanize.Comma(int64(total.Merges)),
		humanize.Comma(int64(total.Files)),
		humanize.Comma(int64(total.LinesAdded)),
		humanize.Comma(int64(total.LinesRemoved)),
		humanize.Comma(int64(total.LinesModified)),
	})
	return tbl.Render() + "\n"
}

func (s *Summary) title() string {
	if len(s.authors) == 0 {
		return "No revisions"
	}
	return fmt.Sprintf("Revisions r%d..r%d", s.first, s.last)
}
