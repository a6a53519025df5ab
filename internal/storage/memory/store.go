// Package memory provides a mutex-guarded in-memory implementation of the
// storage interfaces. It backs unit tests and local runs without a database,
// and enforces the same atomicity rules as the Postgres store: every
// money-moving operation happens under one lock acquisition.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/scramblenaija/scramble-be/internal/models"
	"github.com/scramblenaija/scramble-be/internal/storage"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

type progressKey struct {
	userID    int64
	contestID int64
}

// Store holds all records in process memory.
type Store struct {
	mu sync.Mutex

	nextUserID     int64
	nextContestID  int64
	nextQuestionID int64
	nextResultID   int64
	nextLedgerID   int64

	users       map[int64]*models.User
	contests    map[int64]*models.Contest
	questions   map[int64]*models.Question
	progress    map[progressKey]int
	results     map[int64]*models.Result
	withdrawals map[string]*models.Withdrawal
	ledger      []models.LedgerEntry
	ledgerKeys  map[string]struct{}
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		nextUserID:     1,
		nextContestID:  1,
		nextQuestionID: 1,
		nextResultID:   1,
		nextLedgerID:   1,
		users:          make(map[int64]*models.User),
		contests:       make(map[int64]*models.Contest),
		questions:      make(map[int64]*models.Question),
		progress:       make(map[progressKey]int),
		results:        make(map[int64]*models.Result),
		withdrawals:    make(map[string]*models.Withdrawal),
		ledgerKeys:     make(map[string]struct{}),
	}
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() {}

// CreateUser inserts a new user, rejecting duplicate emails.
func (s *Store) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return models.User{}, storage.ErrAlreadyExists
		}
	}
	user.ID = s.nextUserID
	s.nextUserID++
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	stored := user
	s.users[user.ID] = &stored
	return user, nil
}

// FindByEmail fetches a user by email address.
func (s *Store) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return *u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

// FindByID fetches a user by id.
func (s *Store) FindByID(_ context.Context, id int64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return *u, nil
}

// ListUsers returns all users ordered by id.
func (s *Store) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Leaderboard returns users ordered by balance, richest first.
func (s *Store) Leaderboard(ctx context.Context) ([]models.User, error) {
	out, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Balance != out[j].Balance {
			return out[i].Balance > out[j].Balance
		}
		return out[i].Username < out[j].Username
	})
	return out, nil
}

// applyDeltaLocked mirrors the Postgres ledger transaction. Caller holds mu.
func (s *Store) applyDeltaLocked(userID, amount int64, reason, idempotencyKey string) (int64, error) {
	u, ok := s.users[userID]
	if !ok {
		return 0, storage.ErrNotFound
	}
	if _, seen := s.ledgerKeys[idempotencyKey]; seen {
		return u.Balance, nil
	}
	if u.Balance+amount < 0 {
		return 0, storage.ErrInsufficientFunds
	}
	u.Balance += amount
	s.ledgerKeys[idempotencyKey] = struct{}{}
	s.ledger = append(s.ledger, models.LedgerEntry{
		ID:             s.nextLedgerID,
		UserID:         userID,
		Amount:         amount,
		Reason:         reason,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      time.Now(),
	})
	s.nextLedgerID++
	return u.Balance, nil
}

// ApplyDelta moves the balance and appends a ledger entry atomically.
func (s *Store) ApplyDelta(_ context.Context, userID, amount int64, reason, idempotencyKey string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyDeltaLocked(userID, amount, reason, idempotencyKey)
}

// LedgerEntries returns the user's ledger, newest first.
func (s *Store) LedgerEntries(_ context.Context, userID int64) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.LedgerEntry
	for i := len(s.ledger) - 1; i >= 0; i-- {
		if s.ledger[i].UserID == userID {
			out = append(out, s.ledger[i])
		}
	}
	return out, nil
}

// ActivateSubscription debits the fee and extends the expiry under one lock.
func (s *Store) ActivateSubscription(_ context.Context, userID, fee int64, d time.Duration, now time.Time, idempotencyKey string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return time.Time{}, storage.ErrNotFound
	}
	if _, seen := s.ledgerKeys[idempotencyKey]; seen {
		// Replayed activation: the expiry was already extended, leave it.
		if u.SubscriptionExpiry != nil {
			return *u.SubscriptionExpiry, nil
		}
		return now, nil
	}
	if _, err := s.applyDeltaLocked(userID, -fee, "subscription-fee", idempotencyKey); err != nil {
		return time.Time{}, err
	}
	base := now
	if u.SubscriptionExpiry != nil && u.SubscriptionExpiry.After(now) {
		base = *u.SubscriptionExpiry
	}
	expiry := base.Add(d)
	u.SubscriptionExpiry = &expiry
	return expiry, nil
}

// CreateWithdrawal files a pending withdrawal request.
func (s *Store) CreateWithdrawal(_ context.Context, w models.Withdrawal) (models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[w.UserID]; !ok {
		return models.Withdrawal{}, storage.ErrNotFound
	}
	w.Status = models.WithdrawalPending
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}
	stored := w
	s.withdrawals[w.ID] = &stored
	return w, nil
}

// WithdrawalsByUser returns the user's withdrawal requests, newest first.
func (s *Store) WithdrawalsByUser(_ context.Context, userID int64) ([]models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Withdrawal
	for _, w := range s.withdrawals {
		if w.UserID == userID {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ListWithdrawals returns every withdrawal request, newest first.
func (s *Store) ListWithdrawals(_ context.Context) ([]models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Withdrawal, 0, len(s.withdrawals))
	for _, w := range s.withdrawals {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ApproveWithdrawal flips pending to approved and debits exactly once.
func (s *Store) ApproveWithdrawal(_ context.Context, id string) (models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.withdrawals[id]
	if !ok {
		return models.Withdrawal{}, storage.ErrNotFound
	}
	if w.Status == models.WithdrawalApproved {
		return *w, nil
	}
	if _, err := s.applyDeltaLocked(w.UserID, -w.Amount, "withdrawal", "withdrawal:"+w.ID); err != nil {
		return models.Withdrawal{}, err
	}
	w.Status = models.WithdrawalApproved
	return *w, nil
}

// CreateContest inserts a contest, rejecting duplicate round numbers.
func (s *Store) CreateContest(_ context.Context, c models.Contest) (models.Contest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.contests {
		if existing.RoundNumber == c.RoundNumber {
			return models.Contest{}, storage.ErrAlreadyExists
		}
	}
	c.ID = s.nextContestID
	s.nextContestID++
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	stored := c
	s.contests[c.ID] = &stored
	return c, nil
}

// GetContest fetches a contest by id.
func (s *Store) GetContest(_ context.Context, id int64) (models.Contest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contests[id]
	if !ok {
		return models.Contest{}, storage.ErrNotFound
	}
	return *c, nil
}

// ListContests returns every contest ordered by round number.
func (s *Store) ListContests(_ context.Context) ([]models.Contest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Contest, 0, len(s.contests))
	for _, c := range s.contests {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoundNumber < out[j].RoundNumber })
	return out, nil
}

// DeleteContest removes a contest with its questions and progress rows.
func (s *Store) DeleteContest(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contests[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.contests, id)
	for qid, q := range s.questions {
		if q.ContestID == id {
			delete(s.questions, qid)
		}
	}
	for key := range s.progress {
		if key.contestID == id {
			delete(s.progress, key)
		}
	}
	return nil
}

// CurrentContest selects the earliest-starting live contest.
func (s *Store) CurrentContest(_ context.Context, now time.Time) (models.Contest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *models.Contest
	for _, c := range s.contests {
		if c.WinnerID != nil || c.ExpiredAt != nil || !c.Deadline().After(now) {
			continue
		}
		if best == nil || c.StartTime.Before(best.StartTime) ||
			(c.StartTime.Equal(best.StartTime) && c.ID < best.ID) {
			best = c
		}
	}
	if best == nil {
		return models.Contest{}, storage.ErrNotFound
	}
	return *best, nil
}

// ExpireContest marks a winnerless contest expired.
func (s *Store) ExpireContest(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contests[id]
	if !ok {
		return storage.ErrNotFound
	}
	if c.WinnerID != nil {
		return storage.ErrAlreadyWon
	}
	if c.ExpiredAt == nil {
		expired := at
		c.ExpiredAt = &expired
	}
	return nil
}

// ExpireStaleContests expires every winnerless contest past its deadline.
func (s *Store) ExpireStaleContests(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, c := range s.contests {
		if c.WinnerID == nil && c.ExpiredAt == nil && !c.Deadline().After(now) {
			expired := now
			c.ExpiredAt = &expired
			n++
		}
	}
	return n, nil
}

// CreateQuestion appends a question to a contest.
func (s *Store) CreateQuestion(_ context.Context, q models.Question) (models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contests[q.ContestID]; !ok {
		return models.Question{}, storage.ErrNotFound
	}
	q.ID = s.nextQuestionID
	s.nextQuestionID++
	stored := q
	s.questions[q.ID] = &stored
	return q, nil
}

// Questions returns a contest's questions in creation order.
func (s *Store) Questions(_ context.Context, contestID int64) ([]models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Question
	for _, q := range s.questions {
		if q.ContestID == contestID {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteQuestion removes a single question.
func (s *Store) DeleteQuestion(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.questions[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.questions, id)
	return nil
}

// Progress returns the server-tracked next question index.
func (s *Store) Progress(_ context.Context, userID, contestID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress[progressKey{userID, contestID}], nil
}

// AdvanceProgress moves progress forward one step, conditionally.
func (s *Store) AdvanceProgress(_ context.Context, userID, contestID int64, fromIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := progressKey{userID, contestID}
	if s.progress[key] != fromIndex {
		return storage.ErrStaleProgress
	}
	s.progress[key] = fromIndex + 1
	return nil
}

// SettleContest performs winner compare-and-set, reward credit, and result
// recording under one lock acquisition, mirroring the Postgres transaction.
func (s *Store) SettleContest(_ context.Context, contestID, userID, reward int64, score int, idempotencyKey string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contests[contestID]
	if !ok {
		return 0, storage.ErrNotFound
	}
	if c.ExpiredAt != nil {
		return 0, storage.ErrContestClosed
	}
	if c.WinnerID != nil {
		return 0, storage.ErrAlreadyWon
	}

	newBalance, err := s.applyDeltaLocked(userID, reward, "contest-win", idempotencyKey)
	if err != nil {
		return 0, err
	}

	winner := userID
	c.WinnerID = &winner
	s.results[s.nextResultID] = &models.Result{
		ID:         s.nextResultID,
		UserID:     userID,
		ContestID:  contestID,
		Score:      score,
		Reward:     reward,
		IsWinner:   true,
		FinishTime: at,
	}
	s.nextResultID++
	return newBalance, nil
}

// ResultsByUser returns the user's contest history, newest first.
func (s *Store) ResultsByUser(_ context.Context, userID int64) ([]models.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Result
	for _, r := range s.results {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FinishTime.After(out[j].FinishTime) })
	return out, nil
}

// ListResults returns every result row, newest first.
func (s *Store) ListResults(_ context.Context) ([]models.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Result, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FinishTime.After(out[j].FinishTime) })
	return out, nil
}

// DeleteResult removes a single history row.
func (s *Store) DeleteResult(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.results[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.results, id)
	return nil
}

// Winners returns the public winners listing, earliest finish first.
func (s *Store) Winners(_ context.Context) ([]models.WinnerRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.WinnerRow
	for _, r := range s.results {
		if !r.IsWinner {
			continue
		}
		u, ok := s.users[r.UserID]
		if !ok {
			continue
		}
		c, ok := s.contests[r.ContestID]
		if !ok {
			continue
		}
		out = append(out, models.WinnerRow{
			ResultID:    r.ID,
			ContestID:   r.ContestID,
			UserID:      r.UserID,
			Username:    u.Username,
			RoundNumber: c.RoundNumber,
			Reward:      r.Reward,
			FinishTime:  r.FinishTime,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FinishTime.Before(out[j].FinishTime) })
	return out, nil
}
