package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"loantracker/internal/core"
	"loantracker/internal/services"
)

type transactionResponse struct {
	Person      core.Person      `json:"person"`
	Transaction core.Transaction `json:"transaction"`
}

func (s *Server) handleListPeople(w http.ResponseWriter, r *http.Request) {
	people, err := s.deps.Ledger.ListPeople(r.Context())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if people == nil {
		people = []core.Person{}
	}
	NewJSONResponse().Body(people).Write(w)
}

func (s *Server) handleAddPerson(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	person, err := s.deps.Ledger.AddPerson(r.Context(), services.PersonInput{
		Name:    p.Get("name"),
		Email:   p.Get("email"),
		Phone:   p.Get("phone"),
		Address: p.Get("address"),
		Notes:   p.Get("notes"),
	})
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(person).Write(w)
}

func (s *Server) handlePersonDetail(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Ledger.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(d).Write(w)
}

func (s *Server) handleDeletePerson(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Ledger.DeletePerson(r.Context(), chi.URLParam(r, "id")); err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.deps.Ledger.Transactions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	NewJSONResponse().Body(txs).Write(w)
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	kind, err := core.ParseKind(p.Get("type"))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	amount, err := core.NewMoney(p.Get("amount"))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	date, err := parseDate(p.Get("date"), s.now())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}

	person, tx, err := s.deps.Ledger.RecordTransaction(r.Context(), chi.URLParam(r, "id"), services.TransactionInput{
		Kind:        kind,
		Amount:      amount,
		Date:        date,
		Description: p.Get("description"),
	})
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Body(transactionResponse{Person: person, Transaction: tx}).
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	person, err := s.deps.Ledger.DeleteTransaction(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "txID"))
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(person).Write(w)
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	txs, err := s.deps.Ledger.Upcoming(r.Context(), chi.URLParam(r, "id"), s.now())
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	NewJSONResponse().Body(txs).Write(w)
}
