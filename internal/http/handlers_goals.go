package http

import (
	"errors"
	"net/http"

	"savings/internal/core"
	"savings/internal/dashboard"
	"savings/internal/goals"
	applog "savings/internal/log"
)

type goalRequest struct {
	Name         string      `json:"name"`
	TargetAmount amountField `json:"targetAmount"`
	Currency     string      `json:"currency"`
}

func (g goalRequest) input() goals.GoalInput {
	return goals.GoalInput{
		Name:         sanitizeInput(g.Name),
		TargetAmount: string(g.TargetAmount),
		Currency:     g.Currency,
	}
}

type contributionRequest struct {
	Amount amountField `json:"amount"`
	Date   string      `json:"date"`
}

type goalListResponse struct {
	Goals    []dashboard.GoalCard `json:"goals"`
	Revision int64                `json:"revision"`
}

type contributionResponse struct {
	Contribution core.Contribution  `json:"contribution"`
	Goal         dashboard.GoalCard `json:"goal"`
}

// writeMutationError maps validation failures to 422 and anything else to 500.
func writeMutationError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		ValidationFailed(ve.Fields).Write(w)
		return
	}
	applog.FromContext(r.Context()).ErrorContext(r.Context(), "Goal mutation failed",
		applog.NewFields().WithOperation(op).WithError(err).ToSlice()...)
	InternalServerError("internal error").Write(w)
}

func (s *Server) card(w http.ResponseWriter, r *http.Request, g core.Goal) (dashboard.GoalCard, bool) {
	c, err := dashboard.Card(g, s.rates.Current())
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to build goal card", "error", err, applog.FieldGoalID, g.ID)
		InternalServerError("internal error").Write(w)
		return dashboard.GoalCard{}, false
	}
	return c, true
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	s.goals.Sync(r.Context())
	cards, err := dashboard.Cards(s.goals.Goals(), s.rates.Current())
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to build goal cards", "error", err)
		InternalServerError("internal error").Write(w)
		return
	}
	NewJSONResponse().Body(goalListResponse{Goals: cards, Revision: s.goals.Revision()}).Write(w)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	s.goals.Sync(r.Context())
	g, ok := s.goals.Goal(r.PathValue("id"))
	if !ok {
		NotFoundError("goal not found").Write(w)
		return
	}
	if c, ok := s.card(w, r, g); ok {
		NewJSONResponse().Body(c).Write(w)
	}
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	g, err := s.goals.CreateGoal(r.Context(), req.input())
	if err != nil {
		writeMutationError(w, r, applog.OpCreate, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Goal created",
		applog.NewFields().WithOperation(applog.OpCreate).WithGoal(g.ID, g.Currency.String()).ToSlice()...)
	if c, ok := s.card(w, r, g); ok {
		NewJSONResponse().Status(http.StatusCreated).Header("Location", "/goals/"+g.ID).Body(c).Write(w)
	}
}

func (s *Server) handleEditGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	g, ok, err := s.goals.EditGoal(r.Context(), r.PathValue("id"), req.input())
	if err != nil {
		writeMutationError(w, r, applog.OpUpdate, err)
		return
	}
	if !ok {
		NotFoundError("goal not found").Write(w)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Goal updated",
		applog.NewFields().WithOperation(applog.OpUpdate).WithGoal(g.ID, g.Currency.String()).ToSlice()...)
	if c, ok := s.card(w, r, g); ok {
		NewJSONResponse().Body(c).Write(w)
	}
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.goals.DeleteGoal(r.Context(), id) {
		NotFoundError("goal not found").Write(w)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Goal deleted",
		applog.FieldOperation, applog.OpDelete, applog.FieldGoalID, id)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListContributions(w http.ResponseWriter, r *http.Request) {
	s.goals.Sync(r.Context())
	g, ok := s.goals.Goal(r.PathValue("id"))
	if !ok {
		NotFoundError("goal not found").Write(w)
		return
	}
	NewJSONResponse().Body(dashboard.Contributions(g)).Write(w)
}

func (s *Server) handleAddContribution(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	id := r.PathValue("id")
	c, ok, err := s.goals.AddContribution(r.Context(), id, goals.ContributionInput{
		Amount: string(req.Amount),
		Date:   req.Date,
	})
	if err != nil {
		writeMutationError(w, r, applog.OpContribute, err)
		return
	}
	if !ok {
		NotFoundError("goal not found").Write(w)
		return
	}

	g, found := s.goals.Goal(id)
	if !found {
		// Deleted between the two calls.
		NotFoundError("goal not found").Write(w)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Contribution added",
		applog.FieldOperation, applog.OpContribute,
		applog.FieldGoalID, id,
		applog.FieldContributionID, c.ID,
		applog.FieldAmount, c.Amount.String())
	if card, ok := s.card(w, r, g); ok {
		NewJSONResponse().Status(http.StatusCreated).Body(contributionResponse{Contribution: c, Goal: card}).Write(w)
	}
}
