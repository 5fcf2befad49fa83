package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/penwyp/svnlogstats/cmd"
	"github.com/penwyp/svnlogstats/internal/errors"
)

// main 为 CLI 入口，调用 cmd.ExecuteContext。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		msg, code := errors.NewHandler().Handle(err)
		_, _ = fmt.Fprint(os.Stderr, msg)
		os.Exit(code)
	}
}
