// Package reporter contains the sinks that receive parsed revisions.
package reporter

import (
	"io"

	"github.com/penwyp/svnlogstats/internal/errors"
	"github.com/penwyp/svnlogstats/model"
)

// Reporter receives completed revisions. Report may be called any number of times and
// Flush once the input is exhausted. Errors are of type errors.ErrTypeReport.
type Reporter interface {
	Report(rev *model.Revision) error
	Flush() error
}

// IsFailure reports whether err came from a reporter. Failures built here are retryable:
// the revision is lost but the reporter accepts the next one.
func IsFailure(err error) bool {
	return errors.IsType(err, errors.ErrTypeReport)
}

func failure(message string, cause error) error {
	if cause == nil {
		return nil
	}
	if IsFailure(cause) {
		return cause
	}
	return errors.WrapRetryable(errors.ErrTypeReport, message, cause).
		WithSuggestion("Check that the output destination is writable")
}

type multi struct {
	reporters []Reporter
}

// Multi reports every revision to all reporters. All of them are attempted even when one
// fails; the errors are joined.
func Multi(reporters ...Reporter) Reporter {
	list := make([]Reporter, 0, len(reporters))
	for _, r := range reporters {
		if r != nil {
			list = append(list, r)
		}
	}
	return &multi{reporters: list}
}

func (m *multi) Report(rev *model.Revision) error {
	var errs []error
	for _, r := range m.reporters {
		if err := r.Report(rev); err != nil {
			errs = append(errs, err)
		}
	}
	return m.join("failed to report revision", errs)
}

func (m *multi) Flush() error {
	var errs []error
	for _, r := range m.reporters {
		if err := r.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return m.join("failed to flush reporters", errs)
}

// Close closes every reporter that implements io.Closer.
func (m *multi) Close() error {
	var errs []error
	for _, r := range m.reporters {
		if c, ok := r.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return m.join("failed to close reporters", errs)
}

func (m *multi) join(message string, errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return failure(message, errs[0])
	}
	return errors.WrapRetryable(errors.ErrTypeReport, message, errors.Join(errs...))
}
