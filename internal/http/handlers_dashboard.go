package http

import (
	"net/http"

	"finanzas/internal/log"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q, err := ParsePeriodQuery(r.URL.Query(), s.loc)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	d, err := s.svc.Dashboard.Get(r.Context(), q)
	if err != nil {
		s.fail(w, r, log.OpAggregate, err)
		return
	}
	NewJSONResponse().Body(d).Write(w)
}

func (s *Server) handleWallets(w http.ResponseWriter, r *http.Request) {
	q, err := ParsePeriodQuery(r.URL.Query(), s.loc)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	view, err := s.svc.Wallets.List(r.Context(), q)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(view).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	q, err := ParsePeriodQuery(r.URL.Query(), s.loc)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	view, err := s.svc.Categories.List(r.Context(), q)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(view).Write(w)
}

// handleRate returns the current exchange rate, or null when unavailable.
func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"rate": nil}
	if s.rates != nil {
		if rate := s.rates.Current(r.Context()); rate != nil {
			body["rate"] = rate
		}
	}
	NewJSONResponse().Body(body).Write(w)
}
