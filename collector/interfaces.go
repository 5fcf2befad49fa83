package collector

import (
	"context"
	"io"
)

// Runner starts an external command and streams its standard output.
//
// Closing the returned reader waits for the process to exit and reports its exit
// status. Implementations must honour ctx cancellation by killing the process.
//
// Example usage:
//
//	rc, err := runner.Start(ctx, "svn", "log", "-v", "--diff")
//	if err != nil {
//		return err
//	}
//	defer rc.Close()
type Runner interface {
	Start(ctx context.Context, name string, args ...string) (io.ReadCloser, error)
}

// LineFunc receives one line of output without its line terminator.
// A non-nil error stops the scan and is returned to the caller unchanged.
type LineFunc func(line string) error

// LogReader streams the lines of an svn history.
//
// Example usage:
//
//	c := collector.New(collector.NewExecRunner(logger))
//	err := c.Log(ctx, []string{"-r", "1:HEAD", url}, func(line string) error {
//		return p.Parse(line)
//	})
type LogReader interface {
	// Log runs `svn log -v --diff --extensions -w <args>` and feeds every output line
	// to fn.
	Log(ctx context.Context, args []string, fn LineFunc) error
}
