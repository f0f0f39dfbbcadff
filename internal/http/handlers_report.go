package http

import (
	"net/http"

	"gastos/internal/core"
)

type dailyReport struct {
	Totals  core.DayTotals `json:"totals"`
	Records []core.Record  `json:"records"`
}

func (s *Server) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	date, err := queryDate(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}

	records, err := s.repo.GetByDate(r.Context(), date)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if records == nil {
		records = []core.Record{}
	}

	writeJSON(w, http.StatusOK, dailyReport{
		Totals:  core.DailyTotals(date, records),
		Records: records,
	})
}

type monthlyReport struct {
	Totals     core.MonthTotals     `json:"totals"`
	Categories []core.CategoryTotal `json:"categories"`
	Cheapest   []core.CheapestEntry `json:"cheapest"`
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if !monthPattern.MatchString(month) {
		writeError(w, http.StatusBadRequest, "invalid month, want YYYY-MM")
		return
	}

	records, err := s.repo.GetByMonth(r.Context(), month)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, monthlyReport{
		Totals:     core.MonthlyTotals(month, records),
		Categories: core.CategoryTotals(records),
		Cheapest:   core.CheapestByItem(records),
	})
}

func (s *Server) handleCategoryReport(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if !monthPattern.MatchString(month) {
		writeError(w, http.StatusBadRequest, "invalid month, want YYYY-MM")
		return
	}

	records, err := s.repo.GetByMonth(r.Context(), month)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	totals := core.CategoryTotals(records)
	if totals == nil {
		totals = []core.CategoryTotal{}
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleCategoryDrilldown(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("name")
	month := r.URL.Query().Get("month")
	if !monthPattern.MatchString(month) {
		writeError(w, http.StatusBadRequest, "invalid month, want YYYY-MM")
		return
	}

	records, err := s.repo.GetByMonth(r.Context(), month)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, core.DrilldownCategory(category, records))
}
