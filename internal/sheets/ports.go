package sheets

import (
	"context"

	"casa/internal/core"
)

// Ports for outbound adapters.
type (
	// BackupWriter exports one year of household data (working set and
	// analytics) to an external spreadsheet, replacing what was there.
	BackupWriter interface {
		WriteYear(ctx context.Context, report core.YearReport) (ref string, err error)
	}
)
