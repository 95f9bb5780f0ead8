package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Richmiz/Coinlytics/internal/core"
	applog "github.com/Richmiz/Coinlytics/internal/log"
	"github.com/Richmiz/Coinlytics/internal/stream"
	"github.com/Richmiz/Coinlytics/internal/subscription"
	"github.com/Richmiz/Coinlytics/internal/viewstate"
)

type transactionDTO struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	AmountCents int64  `json:"amountCents"`
	Category    string `json:"category"`
	CreatedAt   string `json:"createdAt"`
}

type aggregateDTO struct {
	IncomeCents  int64 `json:"incomeCents"`
	ExpenseCents int64 `json:"expenseCents"`
	BalanceCents int64 `json:"balanceCents"`
}

type windowDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type viewDTO struct {
	View         string           `json:"view"`
	Subscription string           `json:"subscription"`
	Loading      bool             `json:"loading"`
	LastError    string           `json:"lastError,omitempty"`
	Aggregate    aggregateDTO     `json:"aggregate"`
	Records      []transactionDTO `json:"records"`
	Day          *windowDTO       `json:"day,omitempty"`
	Week         []string         `json:"week,omitempty"`
}

func toTransactionDTO(rec core.TransactionRecord) transactionDTO {
	return transactionDTO{
		ID:          rec.ID,
		UserID:      rec.UserID,
		Kind:        string(rec.Kind),
		Title:       rec.Title,
		AmountCents: rec.Amount.Cents,
		Category:    string(rec.Category),
		CreatedAt:   rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toViewDTO(kind viewstate.ViewKind, state viewstate.ViewState, slot subscription.SlotState) viewDTO {
	out := viewDTO{
		View:         string(kind),
		Subscription: slot.String(),
		Loading:      state.Loading,
		LastError:    string(state.LastError),
		Aggregate: aggregateDTO{
			IncomeCents:  state.Aggregate.IncomeCents,
			ExpenseCents: state.Aggregate.ExpenseCents,
			BalanceCents: state.Aggregate.BalanceCents,
		},
		Records: make([]transactionDTO, 0, len(state.Records)),
	}
	for _, rec := range state.Records {
		out.Records = append(out.Records, toTransactionDTO(rec))
	}
	if state.Day != nil {
		out.Day = &windowDTO{
			Start: state.Day.Start.UTC().Format(time.RFC3339),
			End:   state.Day.End.UTC().Format(time.RFC3339),
		}
	}
	for _, d := range state.Week {
		out.Week = append(out.Week, d.UTC().Format("2006-01-02"))
	}
	return out
}

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseViewKind(r.PathValue("kind"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown view")
		return
	}
	if s.manager.CurrentUser() == "" {
		writeError(w, http.StatusUnauthorized, "no active session")
		return
	}

	state := s.views.Get(kind)
	writeJSON(w, http.StatusOK, toViewDTO(kind, state, s.manager.State(kind)))
}

func (s *Server) handleSetHistoryDate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date, expected YYYY-MM-DD")
		return
	}

	if err := s.manager.SetWindowReference(viewstate.ViewHistory, date); err != nil {
		writeStreamError(w, r, err)
		return
	}

	state := s.views.Get(viewstate.ViewHistory)
	writeJSON(w, http.StatusOK, toViewDTO(viewstate.ViewHistory, state, s.manager.State(viewstate.ViewHistory)))
}

func (s *Server) handleRefreshView(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseViewKind(r.PathValue("kind"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown view")
		return
	}

	if err := s.manager.Refresh(r.Context(), kind); err != nil {
		writeStreamError(w, r, err)
		return
	}

	state := s.views.Get(kind)
	writeJSON(w, http.StatusOK, toViewDTO(kind, state, s.manager.State(kind)))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats := core.Categories()
	out := make([]string, 0, len(cats))
	for _, c := range cats {
		out = append(out, string(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID := s.manager.CurrentUser()
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "no active session")
		return
	}

	var req struct {
		Kind        string `json:"kind"`
		Title       string `json:"title"`
		AmountCents int64  `json:"amountCents"`
		Amount      string `json:"amount"`
		Category    string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	category, err := core.ParseCategory(req.Category)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "unknown category")
		return
	}

	// Amount may arrive as integer cents or as a decimal string ("12.34").
	cents := req.AmountCents
	if cents == 0 && req.Amount != "" {
		cents, err = core.ParseDecimalToCents(req.Amount)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid amount")
			return
		}
	}

	rec := core.TransactionRecord{
		UserID:   userID,
		Kind:     core.TransactionKind(req.Kind),
		Title:    sanitizeInput(req.Title),
		Amount:   core.Money{Cents: cents},
		Category: category,
	}
	if err := rec.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := s.txService.Create(r.Context(), rec)
	if err != nil {
		s.logs.LogError(r.Context(), "Create transaction failed", err,
			applog.ComponentTransaction, applog.OpCreate, applog.NewFields())
		writeError(w, http.StatusInternalServerError, "could not save transaction")
		return
	}

	s.logs.LogTransactionCreated(r.Context(), created.ID, created.Title,
		created.Amount.Cents, string(created.Kind), string(created.Category))
	writeJSON(w, http.StatusCreated, toTransactionDTO(created))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	userID := s.hub.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"userId":   userID,
		"signedIn": userID != "",
	})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userID := sanitizeInput(req.UserID)
	if userID == "" {
		writeError(w, http.StatusUnprocessableEntity, "userId is required")
		return
	}

	s.hub.SignIn(userID)
	writeJSON(w, http.StatusOK, map[string]any{"userId": userID, "signedIn": true})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.hub.SignOut()
	writeJSON(w, http.StatusOK, map[string]any{"signedIn": false})
}

// writeStreamError maps typed stream errors onto HTTP statuses.
func writeStreamError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, subscription.ErrNoWindow) {
		writeError(w, http.StatusBadRequest, "view has no window reference")
		return
	}

	kind := stream.KindOf(err)
	switch kind {
	case stream.KindAuthRequired:
		writeError(w, http.StatusUnauthorized, "no active session")
	case stream.KindPermissionDenied:
		writeError(w, http.StatusForbidden, "permission denied")
	case stream.KindStreamUnavailable:
		writeError(w, http.StatusServiceUnavailable, "stream unavailable")
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "View operation failed",
			applog.FieldErrorKind, string(kind), applog.FieldError, err.Error())
		writeError(w, http.StatusBadGateway, "upstream failure")
	}
}
