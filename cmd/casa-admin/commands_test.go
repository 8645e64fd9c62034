package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"casa/internal/cli"
	"casa/internal/config"
	"casa/internal/core"
	"casa/internal/log"
	"casa/internal/services"
)

// memoryApp returns an opener that always hands out the same in-memory app,
// so state survives between run calls within a test.
func memoryApp(t *testing.T) func(context.Context) (*cli.App, error) {
	t.Helper()
	app, err := cli.NewApp(context.Background(), &config.Config{
		DataBackend:      config.BackendMemory,
		MonthLabelLocale: "en",
	}, log.Discard())
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	return func(context.Context) (*cli.App, error) { return app, nil }
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	err := run(context.Background(), []string{"frobnicate"}, memoryApp(t), &bytes.Buffer{})
	if !errors.Is(err, errUsage) {
		t.Fatalf("err = %v, want usage error", err)
	}
}

func TestRunRequiresCommand(t *testing.T) {
	err := run(context.Background(), nil, memoryApp(t), &bytes.Buffer{})
	if !errors.Is(err, errUsage) {
		t.Fatalf("err = %v, want usage error", err)
	}
}

func TestClearRequiresConfirmation(t *testing.T) {
	err := run(context.Background(), []string{"clear"}, memoryApp(t), &bytes.Buffer{})
	if !errors.Is(err, errUsage) {
		t.Fatalf("err = %v, want usage error", err)
	}

	var out bytes.Buffer
	if err := run(context.Background(), []string{"clear", "-yes"}, memoryApp(t), &out); err != nil {
		t.Fatalf("clear -yes: %v", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	open := memoryApp(t)
	app, _ := open(ctx)

	if _, err := app.Expenses.Create(ctx, core.Expense{
		Name:      "Rent",
		Amount:    900,
		Category:  "Housing",
		Frequency: core.FrequencyMonthly,
	}); err != nil {
		t.Fatalf("seed expense: %v", err)
	}

	path := filepath.Join(t.TempDir(), "backup.json")
	if err := run(ctx, []string{"export", "-o", path}, open, &bytes.Buffer{}); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var b core.Backup
	if err := json.Unmarshal(data, &b); err != nil {
		t.Fatalf("backup is not JSON: %v", err)
	}
	if len(b.Expenses) != 1 || b.Version != core.BackupVersion {
		t.Fatalf("unexpected backup: %+v", b)
	}

	var out bytes.Buffer
	if err := run(ctx, []string{"import", "-f", path}, open, &out); err != nil {
		t.Fatalf("import: %v", err)
	}
	var res services.ImportResult
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("import output: %v", err)
	}
	if res.Expenses != 1 {
		t.Errorf("imported expenses = %d, want 1", res.Expenses)
	}
}

func TestImportRequiresFile(t *testing.T) {
	err := run(context.Background(), []string{"import"}, memoryApp(t), &bytes.Buffer{})
	if !errors.Is(err, errUsage) {
		t.Fatalf("err = %v, want usage error", err)
	}
}

func TestYearTransition(t *testing.T) {
	ctx := context.Background()
	open := memoryApp(t)
	app, _ := open(ctx)

	if _, err := app.Expenses.Create(ctx, core.Expense{
		Name:      "Internet",
		Amount:    40,
		Category:  "Utilities",
		Frequency: core.FrequencyMonthly,
	}); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := run(ctx, []string{"year-transition", "-year", "2023"}, open, &out); err != nil {
		t.Fatalf("year-transition: %v", err)
	}
	var res core.SnapshotResult
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Snapshotted) != 1 || res.Snapshotted[0] != "Internet" {
		t.Errorf("Snapshotted = %v, want [Internet]", res.Snapshotted)
	}

	// A second run finds the snapshot already present.
	out.Reset()
	if err := run(ctx, []string{"year-transition", "-year", "2023"}, open, &out); err != nil {
		t.Fatal(err)
	}
	res = core.SnapshotResult{}
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Snapshotted) != 0 {
		t.Errorf("second run snapshotted %v", res.Snapshotted)
	}
}

func TestSheetsExportDisabled(t *testing.T) {
	err := run(context.Background(), []string{"sheets-export", "-year", "2024"}, memoryApp(t), &bytes.Buffer{})
	if !errors.Is(err, services.ErrSheetsDisabled) {
		t.Fatalf("err = %v, want ErrSheetsDisabled", err)
	}
}

func TestExportToStdoutCarriesOnlyJSON(t *testing.T) {
	prevDefault := slog.Default()
	prevStdout, prevStderr := os.Stdout, os.Stderr
	t.Cleanup(func() {
		slog.SetDefault(prevDefault)
		os.Stdout, os.Stderr = prevStdout, prevStderr
	})

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	stderrFile, err := os.Create(filepath.Join(t.TempDir(), "stderr.log"))
	if err != nil {
		t.Fatalf("create stderr file: %v", err)
	}
	defer stderrFile.Close()
	os.Stdout, os.Stderr = stdoutW, stderrFile

	captured := make(chan []byte, 1)
	go func() {
		b, _ := io.ReadAll(stdoutR)
		captured <- b
	}()

	logger := adminLogger("debug", "text")
	cfg := &config.Config{
		DataBackend:      config.BackendSQLite,
		SQLiteDBPath:     filepath.Join(t.TempDir(), "casa.db"),
		MonthLabelLocale: "en",
	}
	open := func(ctx context.Context) (*cli.App, error) {
		return cli.NewApp(ctx, cfg, logger)
	}
	runErr := run(context.Background(), []string{"export"}, open, os.Stdout)

	stdoutW.Close()
	os.Stdout, os.Stderr = prevStdout, prevStderr
	out := <-captured
	if runErr != nil {
		t.Fatalf("export: %v", runErr)
	}

	dec := json.NewDecoder(bytes.NewReader(out))
	var backup core.Backup
	if err := dec.Decode(&backup); err != nil {
		t.Fatalf("stdout is not a JSON document: %v\n%s", err, out)
	}
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		t.Errorf("stdout has content after the backup document: %v\n%s", err, out)
	}

	logs, err := os.ReadFile(stderrFile.Name())
	if err != nil {
		t.Fatalf("read stderr: %v", err)
	}
	if !bytes.Contains(logs, []byte("Initialized SQLite store")) {
		t.Errorf("logs should go to stderr, got:\n%s", logs)
	}
}
