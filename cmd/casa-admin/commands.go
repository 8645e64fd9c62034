package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"casa/internal/cli"
	"casa/internal/core"
)

// command is one casa-admin subcommand.
type command interface {
	Description() string
	SetFlags(fs *flag.FlagSet)
	Run(ctx context.Context, app *cli.App, out io.Writer) error
}

var commands = map[string]command{
	"analytics":       &analyticsCommand{},
	"year-transition": &yearTransitionCommand{},
	"export":          &exportCommand{},
	"import":          &importCommand{},
	"clear":           &clearCommand{},
	"sheets-export":   &sheetsExportCommand{},
}

var errUsage = errors.New("usage")

// run parses args, opens the application and executes the chosen command.
func run(ctx context.Context, args []string, open func(context.Context) (*cli.App, error), out io.Writer) error {
	if len(args) == 0 || strings.Contains(args[0], "help") {
		printUsage()
		if len(args) == 0 {
			return fmt.Errorf("%w: command is required", errUsage)
		}
		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		printUsage()
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	cmd.SetFlags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	app, err := open(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	return cmd.Run(ctx, app, out)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type analyticsCommand struct {
	year int
}

func (c *analyticsCommand) Description() string {
	return "Prints the dashboard analytics of a year"
}

func (c *analyticsCommand) SetFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.year, "year", 0, "report year (default: current year)")
}

func (c *analyticsCommand) Run(ctx context.Context, app *cli.App, out io.Writer) error {
	year := c.year
	if year == 0 {
		year = time.Now().Year()
	}
	a, err := app.Engine.Compute(ctx, year)
	if err != nil {
		return err
	}
	return writeJSON(out, a)
}

type yearTransitionCommand struct {
	year int
}

func (c *yearTransitionCommand) Description() string {
	return "Snapshots the current fixed expenses for a year"
}

func (c *yearTransitionCommand) SetFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.year, "year", 0, "year to snapshot (default: previous year)")
}

func (c *yearTransitionCommand) Run(ctx context.Context, app *cli.App, out io.Writer) error {
	year := c.year
	if year == 0 {
		year = app.Snapshots.DefaultTransitionYear()
	}
	res, err := app.Snapshots.SnapshotYear(ctx, year)
	if err != nil {
		return err
	}
	return writeJSON(out, res)
}

type exportCommand struct {
	output string
}

func (c *exportCommand) Description() string {
	return "Writes a JSON backup of the whole database"
}

func (c *exportCommand) SetFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.output, "o", "", "output file (default: stdout)")
}

func (c *exportCommand) Run(ctx context.Context, app *cli.App, out io.Writer) error {
	b, err := app.Backup.Export(ctx)
	if err != nil {
		return err
	}
	if c.output == "" {
		return writeJSON(out, b)
	}

	f, err := os.Create(c.output)
	if err != nil {
		return fmt.Errorf("create %s: %w", c.output, err)
	}
	if err := writeJSON(f, b); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type importCommand struct {
	input string
}

func (c *importCommand) Description() string {
	return "Replaces the database with a JSON backup"
}

func (c *importCommand) SetFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.input, "f", "", "backup file to import (required)")
}

func (c *importCommand) Run(ctx context.Context, app *cli.App, out io.Writer) error {
	if c.input == "" {
		return fmt.Errorf("%w: -f is required", errUsage)
	}
	data, err := os.ReadFile(c.input)
	if err != nil {
		return fmt.Errorf("read %s: %w", c.input, err)
	}
	var b core.Backup
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("parse %s: %w", c.input, err)
	}
	res, err := app.Backup.Import(ctx, b)
	if err != nil {
		return err
	}
	return writeJSON(out, res)
}

type clearCommand struct {
	yes bool
}

func (c *clearCommand) Description() string {
	return "Deletes expenses and categories and resets the split (keeps snapshots)"
}

func (c *clearCommand) SetFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.yes, "yes", false, "confirm the deletion")
}

func (c *clearCommand) Run(ctx context.Context, app *cli.App, out io.Writer) error {
	if !c.yes {
		return fmt.Errorf("%w: refusing to clear without -yes", errUsage)
	}
	if err := app.Backup.Clear(ctx); err != nil {
		return err
	}
	_, err := fmt.Fprintln(out, "database cleared")
	return err
}

type sheetsExportCommand struct {
	year int
}

func (c *sheetsExportCommand) Description() string {
	return "Writes a year's records and analytics to Google Sheets"
}

func (c *sheetsExportCommand) SetFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.year, "year", 0, "year to export (default: current year)")
}

func (c *sheetsExportCommand) Run(ctx context.Context, app *cli.App, out io.Writer) error {
	year := c.year
	if year == 0 {
		year = time.Now().Year()
	}
	res, err := app.Backup.ExportToSheets(ctx, year)
	if err != nil {
		return err
	}
	return writeJSON(out, res)
}
