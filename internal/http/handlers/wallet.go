package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/scramblenaija/scramble-be/internal/auth"
	"github.com/scramblenaija/scramble-be/internal/http/respond"
	"github.com/scramblenaija/scramble-be/internal/middleware"
	"github.com/scramblenaija/scramble-be/internal/models"
	"github.com/scramblenaija/scramble-be/internal/models/dto"
	"github.com/scramblenaija/scramble-be/internal/storage"
	"github.com/scramblenaija/scramble-be/internal/wallet"
)

// WalletHandler owns the user-facing wallet endpoints: withdrawal requests,
// withdrawal history, the ledger, and the leaderboard.
type WalletHandler struct {
	users  storage.UserStore
	store  storage.WalletStore
	ledger *wallet.Ledger
	tokens *auth.TokenManager
	log    *logrus.Entry
}

// NewWalletHandler constructs the handler.
func NewWalletHandler(users storage.UserStore, store storage.WalletStore, ledger *wallet.Ledger, tokens *auth.TokenManager, log *logrus.Entry) *WalletHandler {
	return &WalletHandler{users: users, store: store, ledger: ledger, tokens: tokens, log: log}
}

// Register attaches wallet routes to the mux.
func (h *WalletHandler) Register(mux *http.ServeMux) {
	mux.Handle("POST /withdrawals", middleware.Authenticate(h.tokens, http.HandlerFunc(h.handleWithdraw)))
	mux.Handle("GET /withdrawals", middleware.Authenticate(h.tokens, http.HandlerFunc(h.handleWithdrawals)))
	mux.Handle("GET /wallet/ledger", middleware.Authenticate(h.tokens, http.HandlerFunc(h.handleLedger)))
	mux.HandleFunc("GET /leaderboard", h.handleLeaderboard)
}

func (h *WalletHandler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	var req dto.WithdrawRequest
	if err := decodeValid(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.FindByID(r.Context(), identity.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if req.Amount > user.Balance {
		respond.Error(w, http.StatusPaymentRequired, "withdrawal exceeds wallet balance")
		return
	}

	created, err := h.store.CreateWithdrawal(r.Context(), models.Withdrawal{
		ID:     uuid.NewString(),
		UserID: identity.UserID,
		Amount: req.Amount,
	})
	if err != nil {
		h.log.WithError(err).Error("create withdrawal failed")
		writeDomainError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "withdrawal request submitted", created)
}

func (h *WalletHandler) handleWithdrawals(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	withdrawals, err := h.store.WithdrawalsByUser(r.Context(), identity.UserID)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to fetch withdrawals")
		return
	}
	respond.JSON(w, http.StatusOK, "withdrawals", withdrawals)
}

func (h *WalletHandler) handleLedger(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	entries, err := h.ledger.Entries(r.Context(), identity.UserID)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to fetch ledger")
		return
	}
	respond.JSON(w, http.StatusOK, "ledger", entries)
}

func (h *WalletHandler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.Leaderboard(r.Context())
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to fetch leaderboard")
		return
	}
	respond.JSON(w, http.StatusOK, "leaderboard", users)
}
