package contest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/scramblenaija/scramble-be/internal/models"
	"github.com/scramblenaija/scramble-be/internal/storage"
)

// Outcome classifies an answer submission.
type Outcome string

const (
	// OutcomeIncorrect means the answer was wrong; progress is unchanged
	// and the caller may retry.
	OutcomeIncorrect Outcome = "incorrect"
	// OutcomeAdvance means the answer was right and there are questions left.
	OutcomeAdvance Outcome = "advance"
	// OutcomeWon means the final answer was right and the caller won the
	// settlement race.
	OutcomeWon Outcome = "won"
)

// ErrNotEligible rejects submissions from users without an active subscription.
var ErrNotEligible = errors.New("active subscription required")

// Submission is the adjudicator's verdict on one answer.
type Submission struct {
	Outcome Outcome
	// NextIndex is the server-tracked question index after this submission.
	NextIndex int
	// Reward and NewBalance are set only when Outcome is OutcomeWon.
	Reward     int64
	NewBalance int64
}

// EligibilityGate is the subscription check the adjudicator consults.
type EligibilityGate interface {
	IsEligible(ctx context.Context, userID int64, at time.Time) (bool, error)
}

// Adjudicator validates answers against server-held state and triggers
// settlement on the final correct answer. Progress lives server-side; the
// submitted index is only ever compared against it, never trusted.
type Adjudicator struct {
	store   storage.ContestStore
	gate    EligibilityGate
	settler *Settler
	log     *logrus.Entry
}

// NewAdjudicator constructs an adjudicator.
func NewAdjudicator(store storage.ContestStore, gate EligibilityGate, settler *Settler, log *logrus.Entry) *Adjudicator {
	return &Adjudicator{store: store, gate: gate, settler: settler, log: log}
}

// SubmitAnswer adjudicates one answer for the given contest and question
// index. Non-final correct answers advance progress by one; the final
// correct answer enters winner settlement. Everything before the final
// answer needs no cross-user coordination.
func (a *Adjudicator) SubmitAnswer(ctx context.Context, userID, contestID int64, questionIndex int, answer string) (Submission, error) {
	now := time.Now()

	c, err := a.store.GetContest(ctx, contestID)
	if err != nil {
		return Submission{}, err
	}
	if c.State(now) != models.ContestOpen {
		return Submission{}, storage.ErrContestClosed
	}

	eligible, err := a.gate.IsEligible(ctx, userID, now)
	if err != nil {
		return Submission{}, fmt.Errorf("eligibility check: %w", err)
	}
	if !eligible {
		return Submission{}, ErrNotEligible
	}

	progress, err := a.store.Progress(ctx, userID, contestID)
	if err != nil {
		return Submission{}, fmt.Errorf("load progress: %w", err)
	}
	if questionIndex != progress {
		return Submission{NextIndex: progress}, storage.ErrStaleProgress
	}

	questions, err := a.store.Questions(ctx, contestID)
	if err != nil {
		return Submission{}, fmt.Errorf("load questions: %w", err)
	}
	if progress >= len(questions) {
		return Submission{NextIndex: progress}, storage.ErrNotFound
	}

	if !answerMatches(answer, questions[progress].CorrectAnswer) {
		return Submission{Outcome: OutcomeIncorrect, NextIndex: progress}, nil
	}

	if progress < len(questions)-1 {
		if err := a.store.AdvanceProgress(ctx, userID, contestID, progress); err != nil {
			if errors.Is(err, storage.ErrStaleProgress) {
				// A concurrent duplicate of this submission advanced first.
				current, perr := a.store.Progress(ctx, userID, contestID)
				if perr != nil {
					return Submission{}, perr
				}
				return Submission{NextIndex: current}, storage.ErrStaleProgress
			}
			return Submission{}, fmt.Errorf("advance progress: %w", err)
		}
		return Submission{Outcome: OutcomeAdvance, NextIndex: progress + 1}, nil
	}

	settled, err := a.settler.DeclareWinner(ctx, userID, contestID, len(questions))
	if err != nil {
		return Submission{}, err
	}
	a.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"contest_id": contestID,
		"reward":     settled.Reward,
	}).Info("contest won")
	return Submission{
		Outcome:    OutcomeWon,
		NextIndex:  len(questions),
		Reward:     settled.Reward,
		NewBalance: settled.NewBalance,
	}, nil
}

// answerMatches compares answers after trimming surrounding whitespace,
// ignoring case.
func answerMatches(submitted, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(correct))
}
