// Package parser turns the line stream of `svn log -v --diff` into model.Revision records.
//
// The parser is a line driven state machine. It holds at most one revision in flight and
// hands every completed revision to a Sink. Malformed input is logged and skipped, never
// fatal.
package parser

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/penwyp/svnlogstats/internal/errors"
	"github.com/penwyp/svnlogstats/model"
)

// State 表示解析器当前所处的区段
type State int

const (
	StateNew State = iota
	StateEntry
	StatePaths
	StateComment
	StateDiff
	StateDiffProps
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateEntry:
		return "ENTRY"
	case StatePaths:
		return "PATHS"
	case StateComment:
		return "COMMENT"
	case StateDiff:
		return "DIFF"
	case StateDiffProps:
		return "DIFF_PROPS"
	}
	return "UNKNOWN"
}

// Anomaly kinds passed to Observer.Anomaly.
const (
	AnomalyNoRevision     = "no_revision"
	AnomalyUnexpectedLine = "unexpected_line"
	AnomalyBadHeader      = "bad_header"
	AnomalyGarbagePath    = "garbage_path"
	AnomalyDuplicatePath  = "duplicate_path"
	AnomalyMissingBlank   = "missing_blank"
	AnomalyStaleRevision  = "stale_revision"
)

// Sink receives completed revisions. reporter.Reporter satisfies it.
type Sink interface {
	Report(rev *model.Revision) error
	Flush() error
}

// Finalizer post-processes a revision before it is handed to the Sink.
type Finalizer interface {
	Finalize(rev *model.Revision)
}

// Observer is notified of parser events. Implementations must not retain rev.
type Observer interface {
	Revision(rev *model.Revision)
	Anomaly(kind string)
}

// Stats counts what the parser has seen so far.
type Stats struct {
	Lines     int
	Emitted   int
	Discarded int
	Anomalies int
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for anomalies and progress.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithFinalizer runs f on every revision before it is reported.
func WithFinalizer(f Finalizer) Option {
	return func(p *Parser) { p.finalizer = f }
}

// WithObserver registers an event observer.
func WithObserver(o Observer) Option {
	return func(p *Parser) { p.observer = o }
}

// Parser consumes svn log output one line at a time.
type Parser struct {
	sink      Sink
	finalizer Finalizer
	observer  Observer
	logger    *zap.Logger

	state State
	stats Stats

	rev          *model.Revision
	commentLines int
	comment      []string

	file *model.FileChange
	diff *diffState
}

// New creates a parser reporting to sink.
func New(sink Sink, opts ...Option) *Parser {
	p := &Parser{
		sink:   sink,
		logger: zap.NewNop(),
		state:  StateNew,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current parser state.
func (p *Parser) State() State { return p.state }

// Stats returns a snapshot of the counters.
func (p *Parser) Stats() Stats { return p.stats }

// Parse consumes one line. The returned error is non-nil only when the sink rejected a
// completed revision; the parser has already moved on and can keep parsing.
func (p *Parser) Parse(line string) error {
	p.stats.Lines++

	if line == EntryDivider {
		// always process this
		err := p.emit()
		p.state = StateEntry
		return err
	}

	if p.rev == nil && p.state != StateNew && p.state != StateEntry {
		p.anomaly(AnomalyNoRevision, "line outside of a revision", zap.Stringer("state", p.state))
		return nil
	}

	switch p.state {
	case StateNew, StateEntry:
		p.parseEntry(line)
	case StatePaths:
		p.parsePaths(line)
	case StateComment:
		p.parseComment(line)
	case StateDiff:
		p.parseDiff(line)
	case StateDiffProps:
		p.parseDiffProps(line)
	}
	return nil
}

// Flush finalizes and reports the revision in flight, then flushes the sink.
// It must be called once the input stream ends.
func (p *Parser) Flush() error {
	reportErr := p.emit()
	p.state = StateNew

	if p.sink == nil {
		return reportErr
	}
	if err := p.sink.Flush(); err != nil {
		return errors.Join(reportErr, errors.WrapRetryable(errors.ErrTypeReport, "failed to flush reporter", err))
	}
	return reportErr
}

func (p *Parser) parseEntry(line string) {
	if !p.startRevision(line) {
		if p.state == StateEntry {
			p.anomaly(AnomalyUnexpectedLine, "expected revision header", zap.String("line", line))
		}
	}
}

// startRevision begins a new revision when line is a header. A revision still in flight
// is discarded.
func (p *Parser) startRevision(line string) bool {
	h, ok, err := matchHeader(line)
	if !ok {
		return false
	}
	if err != nil {
		p.anomaly(AnomalyBadHeader, "unparsable revision header", zap.String("line", line), zap.Error(err))
		return true
	}

	if p.rev != nil {
		p.stats.Discarded++
		p.anomaly(AnomalyStaleRevision, "found new revision while still processing a revision",
			zap.Int("next_revision", h.id))
	}

	p.rev = model.NewRevision(h.id, h.author, h.timestamp)
	p.commentLines = h.commentLines
	p.comment = p.comment[:0]
	p.file = nil
	p.diff = nil
	p.state = StatePaths
	return true
}

func (p *Parser) parsePaths(line string) {
	if line == PathsHeader {
		return
	}
	if line == "" {
		p.state = StateComment
		return
	}

	entry, ok := matchPathEntry(line)
	if !ok {
		if p.startRevision(line) {
			return
		}
		p.anomaly(AnomalyGarbagePath, "garbage path entry", zap.String("line", line))
		return
	}

	fc := model.NewFileChange(entry.path, entry.changeType)
	fc.FromPath = entry.fromPath
	fc.FromRevision = entry.fromRevision
	if p.rev.AddFileChange(fc) {
		p.anomaly(AnomalyDuplicatePath, "duplicate path entry", zap.String("path", entry.path))
	}
}

func (p *Parser) parseComment(line string) {
	if p.commentLines <= 0 {
		// 注释之后应有一个空行，无论内容都吃掉
		if line != "" {
			p.anomaly(AnomalyMissingBlank, "comment was not followed by a blank line", zap.String("line", line))
		}
		p.rev.Comment = strings.Join(p.comment, "\n")
		p.comment = p.comment[:0]
		p.state = StateDiff
		return
	}
	p.commentLines--
	p.comment = append(p.comment, line)
}

func (p *Parser) parseDiff(line string) {
	if line == "" {
		// end of diff processing
		p.applyDiff()
		p.state = StateDiffProps
		return
	}

	if p.file != nil && p.diff.consume(line, p.file) {
		return
	}

	path, deleted, ok := matchDiffIndex(line)
	if !ok {
		p.startRevision(line)
		return
	}

	p.applyDiff()
	if strings.TrimSpace(path) == "" {
		return
	}

	fc := p.rev.FileChange(path)
	if fc == nil {
		changeType := model.ChangeAdded
		if deleted {
			changeType = model.ChangeDeleted
		}
		// 未在 manifest 中列出，属于大规模 add/delete 的一部分
		p.logger.Info("unreported file in diff",
			zap.Int("revision", p.rev.ID), zap.String("path", path), zap.Stringer("type", changeType))
		fc = model.NewFileChange(path, changeType)
		fc.InManifest = false
		p.rev.AddFileChange(fc)
	}
	p.file = fc
	p.diff = &diffState{}
}

func (p *Parser) parseDiffProps(line string) {
	if _, _, ok := matchDiffIndex(line); ok {
		p.file = nil
		p.state = StateDiff
		p.parseDiff(line)
		return
	}

	if path, ok := matchPropsIndex(line); ok {
		p.file = p.rev.FileChange(path)
		return
	}

	if strings.HasPrefix(line, "r") && p.startRevision(line) {
		return
	}

	if p.file == nil || line == PropsSeparator {
		return
	}

	if p.file.InManifest && isMergeInfoChange(line) {
		p.rev.MergeStatus = model.MergeMerged
	}
}

// applyDiff folds the active diff state into its file change.
func (p *Parser) applyDiff() {
	if p.file != nil && p.diff != nil {
		p.diff.apply(p.file)
	}
	p.file = nil
	p.diff = nil
}

// emit finalizes the revision in flight and hands it to the sink.
func (p *Parser) emit() error {
	rev := p.rev
	if rev == nil {
		p.state = StateNew
		return nil
	}

	if p.state == StateComment {
		// stream ended inside the comment
		rev.Comment = strings.Join(p.comment, "\n")
	}
	p.applyDiff()

	p.rev = nil
	p.comment = p.comment[:0]
	p.commentLines = 0
	p.state = StateNew

	if p.finalizer != nil {
		p.finalizer.Finalize(rev)
	}
	p.stats.Emitted++
	if p.observer != nil {
		p.observer.Revision(rev)
	}
	p.logger.Debug("revision parsed", zap.Int("revision", rev.ID), zap.Int("files", len(rev.FileChanges)))

	if p.sink == nil {
		return nil
	}
	if err := p.sink.Report(rev); err != nil {
		p.logger.Error("error reporting revision", zap.Int("revision", rev.ID), zap.Error(err))
		if errors.IsType(err, errors.ErrTypeReport) {
			return err
		}
		return errors.WrapRetryable(errors.ErrTypeReport, fmt.Sprintf("failed to report revision r%d", rev.ID), err)
	}
	return nil
}

func (p *Parser) anomaly(kind, msg string, fields ...zap.Field) {
	p.stats.Anomalies++
	if p.observer != nil {
		p.observer.Anomaly(kind)
	}
	fields = append(fields, zap.String("kind", kind))
	if p.rev != nil {
		fields = append(fields, zap.Int("revision", p.rev.ID))
	}
	switch kind {
	case AnomalyUnexpectedLine, AnomalyNoRevision:
		p.logger.Debug(msg, fields...)
	default:
		p.logger.Error(msg, fields...)
	}
}

// ParseLines feeds every line to p and flushes at the end. Sink failures are collected
// and returned together; parsing does not stop on them.
func ParseLines(p *Parser, lines []string) error {
	var errs []error
	for _, line := range lines {
		if err := p.Parse(line); err != nil {
			errs = append(errs, err)
		}
	}
	if err := p.Flush(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%d reporting failure(s): %w", len(errs), errors.Join(errs...))
}
