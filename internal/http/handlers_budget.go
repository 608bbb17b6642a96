package http

import (
	"net/http"

	"finanzas/internal/log"
	"finanzas/internal/services"
)

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonth(r.URL.Query(), s.svc.Budgets.CurrentMonth())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	view, err := s.svc.Budgets.ForMonth(r.Context(), month)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(view).Write(w)
}

// handleAlerts lists only the budgets in warning or exceeded state.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonth(r.URL.Query(), s.svc.Budgets.CurrentMonth())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	alerts, err := s.svc.Budgets.Alerts(r.Context(), month)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"month": month.String(), "alerts": alerts}).Write(w)
}

func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	var in services.BudgetInput
	if err := DecodeJSON(w, r, &in); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	saved, err := s.svc.Budgets.Upsert(r.Context(), in)
	if err != nil {
		s.fail(w, r, log.OpUpsert, err)
		return
	}
	NewJSONResponse().Body(toBudgetJSON(saved)).Write(w)
}
