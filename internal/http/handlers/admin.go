package handlers

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/scramblenaija/scramble-be/internal/auth"
	"github.com/scramblenaija/scramble-be/internal/contest"
	"github.com/scramblenaija/scramble-be/internal/http/respond"
	"github.com/scramblenaija/scramble-be/internal/middleware"
	"github.com/scramblenaija/scramble-be/internal/models"
	"github.com/scramblenaija/scramble-be/internal/models/dto"
	"github.com/scramblenaija/scramble-be/internal/storage"
)

// AdminHandler owns the admin management surface: contests, questions,
// users, results, and withdrawal approval.
type AdminHandler struct {
	store     storage.Store
	lifecycle *contest.Lifecycle
	tokens    *auth.TokenManager
	log       *logrus.Entry
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(store storage.Store, lifecycle *contest.Lifecycle, tokens *auth.TokenManager, log *logrus.Entry) *AdminHandler {
	return &AdminHandler{store: store, lifecycle: lifecycle, tokens: tokens, log: log}
}

// Register attaches admin routes to the mux, all behind the admin gate.
func (h *AdminHandler) Register(mux *http.ServeMux) {
	guard := func(fn http.HandlerFunc) http.Handler {
		return middleware.Authenticate(h.tokens, middleware.RequireAdmin(fn))
	}
	mux.Handle("POST /admin/contests", guard(h.handleCreateContest))
	mux.Handle("DELETE /admin/contests/{id}", guard(h.handleDeleteContest))
	mux.Handle("POST /admin/contests/{id}/expire", guard(h.handleExpireContest))
	mux.Handle("POST /admin/questions", guard(h.handleCreateQuestion))
	mux.Handle("DELETE /admin/questions/{id}", guard(h.handleDeleteQuestion))
	mux.Handle("GET /admin/users", guard(h.handleListUsers))
	mux.Handle("GET /admin/results", guard(h.handleListResults))
	mux.Handle("DELETE /admin/results/{id}", guard(h.handleDeleteResult))
	mux.Handle("GET /admin/withdrawals", guard(h.handleListWithdrawals))
	mux.Handle("POST /admin/withdrawals/{id}/approve", guard(h.handleApproveWithdrawal))
}

func (h *AdminHandler) handleCreateContest(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateContestRequest
	if err := decodeValid(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.store.CreateContest(r.Context(), models.Contest{
		RoundNumber:   req.RoundNumber,
		Reward:        req.Reward,
		StartTime:     time.UnixMilli(req.StartTime),
		TimerDuration: time.Duration(req.TimerDuration) * time.Second,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "contest created", created)
}

func (h *AdminHandler) handleDeleteContest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid contest id")
		return
	}
	if err := h.store.DeleteContest(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "contest deleted", nil)
}

func (h *AdminHandler) handleExpireContest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid contest id")
		return
	}
	if err := h.lifecycle.Expire(r.Context(), id, time.Now()); err != nil {
		writeDomainError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "contest expired without winner", nil)
}

func (h *AdminHandler) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateQuestionRequest
	if err := decodeValid(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.store.CreateQuestion(r.Context(), models.Question{
		ContestID:     req.ContestID,
		Text:          req.Text,
		CorrectAnswer: req.CorrectAnswer,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "question added", created)
}

func (h *AdminHandler) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid question id")
		return
	}
	if err := h.store.DeleteQuestion(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "question deleted", nil)
}

func (h *AdminHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to fetch users")
		return
	}
	respond.JSON(w, http.StatusOK, "users", users)
}

func (h *AdminHandler) handleListResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.store.ListResults(r.Context())
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to fetch results")
		return
	}
	respond.JSON(w, http.StatusOK, "results", results)
}

func (h *AdminHandler) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid result id")
		return
	}
	if err := h.store.DeleteResult(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "result deleted", nil)
}

func (h *AdminHandler) handleListWithdrawals(w http.ResponseWriter, r *http.Request) {
	withdrawals, err := h.store.ListWithdrawals(r.Context())
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to fetch withdrawals")
		return
	}
	respond.JSON(w, http.StatusOK, "withdrawals", withdrawals)
}

func (h *AdminHandler) handleApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	approved, err := h.store.ApproveWithdrawal(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.log.WithFields(logrus.Fields{
		"withdrawal_id": id,
		"user_id":       approved.UserID,
		"amount":        approved.Amount,
	}).Info("withdrawal approved")
	respond.JSON(w, http.StatusOK, "withdrawal approved", approved)
}
