package http

import (
	"encoding/json"
	"net/http"
	"regexp"

	"gastos/internal/core"
)

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var rec core.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	rec.ID = 0 // ids are assigned by the store

	if _, err := s.service.CreateExpense(r.Context(), &rec); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var rec core.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	rec.ID = id

	if err := s.service.UpdateExpense(r.Context(), &rec); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := s.service.DeleteExpense(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleListExpenses filters by ?date= or ?month=; without a filter it
// returns everything.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	var (
		records []core.Record
		err     error
	)

	switch {
	case r.URL.Query().Get("date") != "":
		var date core.Date
		if date, err = queryDate(r, "date"); err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
			return
		}
		records, err = s.repo.GetByDate(r.Context(), date)
	case r.URL.Query().Get("month") != "":
		month := r.URL.Query().Get("month")
		if !monthPattern.MatchString(month) {
			writeError(w, http.StatusBadRequest, "invalid month, want YYYY-MM")
			return
		}
		records, err = s.repo.GetByMonth(r.Context(), month)
	default:
		records, err = s.repo.GetAll(r.Context())
	}

	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if records == nil {
		records = []core.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}
