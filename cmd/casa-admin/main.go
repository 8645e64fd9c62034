// Command casa-admin runs maintenance tasks against the configured backend
// without starting the HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"casa/internal/cli"
	"casa/internal/log"
)

func main() {
	cli.LoadEnvFile()

	logger := adminLogger("info", "text")
	cfg := cli.LoadAndValidateConfig(logger)
	logger = adminLogger(cfg.LogLevel, cfg.LogFormat)

	open := func(ctx context.Context) (*cli.App, error) {
		return cli.NewApp(ctx, cfg, logger)
	}

	if err := run(context.Background(), os.Args[1:], open, os.Stdout); err != nil {
		logger.Error("Command failed", log.FieldError, err)
		os.Exit(1)
	}
}

// adminLogger logs to stderr; stdout carries command output such as exports.
func adminLogger(level, format string) *log.Logger {
	return cli.SetupLoggerTo(level, format, os.Stderr)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: casa-admin <command> [flags]")
	fmt.Fprintln(os.Stderr)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-16s %s\n", name, commands[name].Description())
	}
}
