package http

import (
	"bytes"
	"net/http"

	"loantracker/internal/core"
	"loantracker/internal/export"
)

type summaryResponse struct {
	Portfolio core.Portfolio    `json:"portfolio"`
	Links     core.LinksSummary `json:"links"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	pf, err := s.deps.Ledger.Portfolio(r.Context())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	links, err := s.deps.Shares.Summary(r.Context())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(summaryResponse{Portfolio: pf, Links: links}).Write(w)
}

// handleExport streams the people index as a downloadable JSON document.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	people, err := s.deps.Ledger.ListPeople(r.Context())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	now := s.now()
	var buf bytes.Buffer
	if err := export.Write(&buf, people, now); err != nil {
		FromError(r, err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(now)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
