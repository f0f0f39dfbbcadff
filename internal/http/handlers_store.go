package http

import (
	"encoding/json"
	"net/http"
)

type storeNameRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleListStores(w http.ResponseWriter, r *http.Request) {
	names, err := s.repo.ListStoreNames(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleAddStore(w http.ResponseWriter, r *http.Request) {
	var req storeNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := s.repo.AddStoreName(r.Context(), req.Name); err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}
