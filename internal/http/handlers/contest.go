package handlers

import (
	"errors"
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

// ContestHandler owns the player-facing contest and quiz endpoints.
type ContestHandler struct {
	store       storage.ContestStore
	lifecycle   *contest.Lifecycle
	adjudicator *contest.Adjudicator
	tokens      *auth.TokenManager
	log         *logrus.Entry
}

// NewContestHandler constructs the handler.
func NewContestHandler(store storage.ContestStore, lifecycle *contest.Lifecycle, adjudicator *contest.Adjudicator, tokens *auth.TokenManager, log *logrus.Entry) *ContestHandler {
	return &ContestHandler{store: store, lifecycle: lifecycle, adjudicator: adjudicator, tokens: tokens, log: log}
}

// Register attaches contest routes to the mux.
func (h *ContestHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /contests", h.handleList)
	mux.HandleFunc("GET /contests/current", h.handleCurrent)
	mux.HandleFunc("GET /contests/{id}/questions", h.handleQuestions)
	mux.HandleFunc("GET /winners", h.handleWinners)
	mux.Handle("POST /quiz/answer", middleware.Authenticate(h.tokens, http.HandlerFunc(h.handleAnswer)))
	mux.Handle("GET /quiz/progress", middleware.Authenticate(h.tokens, http.HandlerFunc(h.handleProgress)))
	mux.Handle("GET /history", middleware.Authenticate(h.tokens, http.HandlerFunc(h.handleHistory)))
}

func (h *ContestHandler) handleList(w http.ResponseWriter, r *http.Request) {
	contests, err := h.store.ListContests(r.Context())
	if err != nil {
		h.log.WithError(err).Error("list contests failed")
		respond.Error(w, http.StatusInternalServerError, "failed to fetch contests")
		return
	}
	respond.JSON(w, http.StatusOK, "contests", contests)
}

func (h *ContestHandler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	c, err := h.lifecycle.Current(r.Context(), now)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "no contest is open or scheduled")
			return
		}
		h.log.WithError(err).Error("current contest lookup failed")
		respond.Error(w, http.StatusInternalServerError, "failed to fetch contest")
		return
	}
	questions, err := h.store.Questions(r.Context(), c.ID)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to fetch questions")
		return
	}
	respond.JSON(w, http.StatusOK, "current contest", dto.CurrentContestResponse{
		ContestID:     c.ID,
		RoundNumber:   c.RoundNumber,
		Reward:        c.Reward,
		State:         string(c.State(now)),
		TimeRemaining: contest.TimeRemaining(c, now) / time.Millisecond,
		Questions:     len(questions),
	})
}

// handleQuestions returns a contest's questions with the correct answers
// stripped. The answer never leaves the server.
func (h *ContestHandler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid contest id")
		return
	}
	questions, err := h.store.Questions(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	public := make([]models.Question, 0, len(questions))
	for _, q := range questions {
		q.CorrectAnswer = ""
		public = append(public, q)
	}
	respond.JSON(w, http.StatusOK, "questions", public)
}

func (h *ContestHandler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	var req dto.SubmitAnswerRequest
	if err := decodeValid(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := h.adjudicator.SubmitAnswer(r.Context(), identity.UserID, req.ContestID, req.QuestionIndex, req.Answer)
	if err != nil {
		if errors.Is(err, storage.ErrStaleProgress) {
			// Tell the client where the server actually is so it can resync.
			respond.JSON(w, http.StatusConflict, "question index out of sync", dto.SubmitAnswerResponse{
				Outcome:       "stale",
				QuestionIndex: sub.NextIndex,
			})
			return
		}
		writeDomainError(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, "answer adjudicated", dto.SubmitAnswerResponse{
		Outcome:       string(sub.Outcome),
		QuestionIndex: sub.NextIndex,
		Reward:        sub.Reward,
		NewBalance:    sub.NewBalance,
	})
}

func (h *ContestHandler) handleProgress(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	c, err := h.lifecycle.Current(r.Context(), time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	index, err := h.store.Progress(r.Context(), identity.UserID, c.ID)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to fetch progress")
		return
	}
	questions, err := h.store.Questions(r.Context(), c.ID)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to fetch questions")
		return
	}
	respond.JSON(w, http.StatusOK, "progress", dto.ProgressResponse{
		ContestID:     c.ID,
		QuestionIndex: index,
		Questions:     len(questions),
	})
}

func (h *ContestHandler) handleWinners(w http.ResponseWriter, r *http.Request) {
	winners, err := h.store.Winners(r.Context())
	if err != nil {
		h.log.WithError(err).Error("winners listing failed")
		respond.Error(w, http.StatusInternalServerError, "failed to fetch winners")
		return
	}
	respond.JSON(w, http.StatusOK, "winners", winners)
}

func (h *ContestHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	results, err := h.store.ResultsByUser(r.Context(), identity.UserID)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to fetch history")
		return
	}
	respond.JSON(w, http.StatusOK, "history", results)
}
