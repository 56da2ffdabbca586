package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tphakala/bwpull/cmd"
	"github.com/tphakala/bwpull/internal/buildinfo"
)

// buildDate and version are injected at build time with -ldflags.
var (
	buildDate string
	version   string
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	info := buildinfo.NewContext(version, buildDate)
	rootCmd := cmd.RootCommand(info, cmd.Deps{})

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
