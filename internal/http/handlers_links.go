package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"loantracker/internal/core"
	"loantracker/internal/services"
)

type linksResponse struct {
	Links   []core.SharedLink `json:"links"`
	Summary core.LinksSummary `json:"summary"`
}

func (s *Server) handleListLinks(w http.ResponseWriter, r *http.Request) {
	links, err := s.deps.Shares.List(r.Context())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	summary, err := s.deps.Shares.Summary(r.Context())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if links == nil {
		links = []core.SharedLink{}
	}
	NewJSONResponse().Body(linksResponse{Links: links, Summary: summary}).Write(w)
}

func (s *Server) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	expiresIn, err := parseExpiry(p)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	created, err := s.deps.Shares.Create(r.Context(), services.CreateLinkInput{
		PersonID:            p.Get("personId"),
		IncludeTransactions: p.GetBool("includeTransactions"),
		IncludePersonalInfo: p.GetBool("includePersonalInfo"),
		Protect:             p.GetBool("passwordProtected"),
		ExpiresIn:           expiresIn,
	})
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	// The password is shown once; nothing downstream may cache this response.
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Cache-Control", "no-store").
		Body(created).
		Write(w)
}

func (s *Server) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Shares.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleResolve serves the recipient view of a shared link. The password may
// arrive in the X-Share-Password header or a "password" body field.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	password := r.Header.Get("X-Share-Password")
	if password == "" && r.Method == http.MethodPost {
		p := NewRequestBodyParser(r)
		if err := p.Parse(); err != nil {
			BadRequestError("invalid request body").Write(w)
			return
		}
		password = p.Get("password")
	}

	res, err := s.deps.Shares.ResolveToken(r.Context(), chi.URLParam(r, "token"), password)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(statusForOutcome(res.Outcome)).Body(res).Write(w)
}
