package http

import (
	"net/http"

	"casa/internal/core"
)

const exportFilename = "casa-backup.json"

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Backup.Export(r.Context())
	if err != nil {
		writeError(w, r, "Failed to export database", err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var b core.Backup
	if err := decodeJSON(w, r, &b); err != nil {
		badRequest(w, r, "Invalid backup file", err)
		return
	}
	res, err := s.deps.Backup.Import(r.Context(), b)
	if err != nil {
		writeError(w, r, "Failed to import database", err)
		return
	}
	s.invalidateAnalytics()
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Database imported successfully",
		"imported": res,
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Backup.Clear(r.Context()); err != nil {
		writeError(w, r, "Failed to clear database", err)
		return
	}
	s.invalidateAnalytics()
	writeMessage(w, http.StatusOK, "Database cleared")
}

// handleSheetsExport writes ?year= (the current real year by default) to the
// configured spreadsheet.
func (s *Server) handleSheetsExport(w http.ResponseWriter, r *http.Request) {
	year, err := parseYear(r.URL.Query().Get("year"), s.now().Year())
	if err != nil {
		writeError(w, r, "Invalid year", err)
		return
	}
	out, err := s.deps.Backup.ExportToSheets(r.Context(), year)
	if err != nil {
		writeError(w, r, "Failed to export to sheets", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
