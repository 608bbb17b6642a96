package http

import (
	"net/http"

	"finanzas/internal/log"
	"finanzas/internal/services"
)

func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := ParseLimit(query)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	txs, err := s.svc.Transactions.Recent(r.Context(), sanitizeInput(query.Get("wallet")), limit)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"transactions": toTransactionsJSON(txs)}).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in services.TransactionInput
	if err := DecodeJSON(w, r, &in); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	in.Description = sanitizeInput(in.Description)

	tx, err := s.svc.Transactions.Create(r.Context(), in)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Body(toTransactionJSON(tx)).
		Write(w)
}

func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	var in services.WalletInput
	if err := DecodeJSON(w, r, &in); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	in.Name = sanitizeInput(in.Name)

	wallet, err := s.svc.Transactions.CreateWallet(r.Context(), in)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Body(walletJSON{ID: wallet.ID, Name: wallet.Name}).
		Write(w)
}

func (s *Server) handleDeleteWallet(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Transactions.DeleteWallet(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var in services.CategoryInput
	if err := DecodeJSON(w, r, &in); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	in.Name = sanitizeInput(in.Name)

	c, err := s.svc.Transactions.CreateCategory(r.Context(), in)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Body(categoryJSON{ID: c.ID, Name: c.Name, Kind: c.Kind}).
		Write(w)
}
