package http

import (
	"fmt"
	"net/http"
	"time"

	"gastos/internal/backup"
)

func (s *Server) handleExportBackup(w http.ResponseWriter, r *http.Request) {
	payload, err := backup.Export(r.Context(), s.repo)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	filename := fmt.Sprintf("gastos-backup-%s.json", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleValidateBackup(w http.ResponseWriter, r *http.Request) {
	payload, err := backup.Decode(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	preview, err := backup.Validate(payload)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, preview)
}

type importResult struct {
	Imported int `json:"imported"`
}

// handleImportBackup replaces the whole dataset. Because that drops
// the existing records, a non-empty store requires ?confirm=true.
func (s *Server) handleImportBackup(w http.ResponseWriter, r *http.Request) {
	payload, err := backup.Decode(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if r.URL.Query().Get("confirm") != "true" {
		existing, err := s.repo.GetAll(r.Context())
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		if len(existing) > 0 {
			writeError(w, http.StatusConflict,
				"import would overwrite existing data, retry with confirm=true")
			return
		}
	}

	n, err := backup.Apply(r.Context(), s.repo, payload)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, importResult{Imported: n})
}
