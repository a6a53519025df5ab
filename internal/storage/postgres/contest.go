package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/scramblenaija/scramble-be/internal/models"
	"github.com/scramblenaija/scramble-be/internal/storage"
)

const contestColumns = `id, round_number, reward, start_time, timer_duration_seconds, winner_id, expired_at, created_at`

// CreateContest inserts a new contest row.
func (s *Store) CreateContest(ctx context.Context, c models.Contest) (models.Contest, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO contests (round_number, reward, start_time, timer_duration_seconds)
		VALUES ($1, $2, $3, $4)
		RETURNING `+contestColumns+`;`,
		c.RoundNumber, c.Reward, c.StartTime, int64(c.TimerDuration.Seconds()))
	created, err := scanContest(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Contest{}, storage.ErrAlreadyExists
		}
		return models.Contest{}, err
	}
	return created, nil
}

// GetContest fetches a contest by primary key.
func (s *Store) GetContest(ctx context.Context, id int64) (models.Contest, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+contestColumns+` FROM contests WHERE id = $1;`, id)
	return scanContest(row)
}

// ListContests returns every contest ordered by round number.
func (s *Store) ListContests(ctx context.Context) ([]models.Contest, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+contestColumns+` FROM contests ORDER BY round_number ASC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Contest
	for rows.Next() {
		c, err := scanContest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteContest removes a contest and, via cascade, its questions and progress.
func (s *Store) DeleteContest(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM contests WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// CurrentContest selects the earliest-starting contest that has no winner,
// is not marked expired, and whose deadline has not passed. Evaluated per
// call, never cached.
func (s *Store) CurrentContest(ctx context.Context, now time.Time) (models.Contest, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+contestColumns+` FROM contests
		WHERE winner_id IS NULL
		  AND expired_at IS NULL
		  AND start_time + make_interval(secs => timer_duration_seconds) > $1
		ORDER BY start_time ASC, id ASC
		LIMIT 1;`, now)
	return scanContest(row)
}

// ExpireContest marks a winnerless contest expired. Already-expired
// contests are left as they are; a settled winner wins the race.
func (s *Store) ExpireContest(ctx context.Context, id int64, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE contests SET expired_at = $2
		WHERE id = $1 AND winner_id IS NULL AND expired_at IS NULL;`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	c, err := s.GetContest(ctx, id)
	if err != nil {
		return err
	}
	if c.WinnerID != nil {
		return storage.ErrAlreadyWon
	}
	return nil
}

// ExpireStaleContests expires every winnerless contest whose deadline has passed.
func (s *Store) ExpireStaleContests(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE contests SET expired_at = $1
		WHERE winner_id IS NULL
		  AND expired_at IS NULL
		  AND start_time + make_interval(secs => timer_duration_seconds) <= $1;`, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// CreateQuestion appends a question to a contest.
func (s *Store) CreateQuestion(ctx context.Context, q models.Question) (models.Question, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO questions (contest_id, text, correct_answer)
		VALUES ($1, $2, $3)
		RETURNING id, contest_id, text, correct_answer;`,
		q.ContestID, q.Text, q.CorrectAnswer)
	var created models.Question
	if err := row.Scan(&created.ID, &created.ContestID, &created.Text, &created.CorrectAnswer); err != nil {
		return models.Question{}, err
	}
	return created, nil
}

// Questions returns a contest's questions in creation order.
func (s *Store) Questions(ctx context.Context, contestID int64) ([]models.Question, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, contest_id, text, correct_answer
		FROM questions WHERE contest_id = $1 ORDER BY id ASC;`, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.ContestID, &q.Text, &q.CorrectAnswer); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// DeleteQuestion removes a single question.
func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Progress returns the server-tracked next question index, zero when the
// user has not answered anything yet.
func (s *Store) Progress(ctx context.Context, userID, contestID int64) (int, error) {
	var index int
	err := s.pool.QueryRow(ctx, `
		SELECT question_index FROM progress
		WHERE user_id = $1 AND contest_id = $2;`, userID, contestID).Scan(&index)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return index, nil
}

// AdvanceProgress moves progress from fromIndex to fromIndex+1 with a
// conditional write, so a stale or replayed submission cannot skip ahead.
func (s *Store) AdvanceProgress(ctx context.Context, userID, contestID int64, fromIndex int) error {
	var tag pgconn.CommandTag
	var err error
	if fromIndex == 0 {
		// First answer may race row creation; the conditional upsert covers
		// both the missing-row and index-zero cases.
		tag, err = s.pool.Exec(ctx, `
			INSERT INTO progress (user_id, contest_id, question_index)
			VALUES ($1, $2, 1)
			ON CONFLICT (user_id, contest_id) DO UPDATE
			SET question_index = progress.question_index + 1, updated_at = NOW()
			WHERE progress.question_index = 0;`, userID, contestID)
	} else {
		tag, err = s.pool.Exec(ctx, `
			UPDATE progress SET question_index = question_index + 1, updated_at = NOW()
			WHERE user_id = $1 AND contest_id = $2 AND question_index = $3;`,
			userID, contestID, fromIndex)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrStaleProgress
	}
	return nil
}

// SettleContest runs the winner transaction: compare-and-set the winner,
// credit the reward through the ledger, and record the winning result. The
// three writes commit together or not at all, so a crash mid-settlement
// leaves no half-settled contest behind.
func (s *Store) SettleContest(ctx context.Context, contestID, userID, reward int64, score int, idempotencyKey string, at time.Time) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE contests SET winner_id = $2
		WHERE id = $1 AND winner_id IS NULL AND expired_at IS NULL;`, contestID, userID)
	if err != nil {
		return 0, fmt.Errorf("set winner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		c, err := s.GetContest(ctx, contestID)
		if err != nil {
			return 0, err
		}
		if c.ExpiredAt != nil {
			return 0, storage.ErrContestClosed
		}
		return 0, storage.ErrAlreadyWon
	}

	newBalance, _, err := applyDeltaTx(ctx, tx, userID, reward, "contest-win", idempotencyKey)
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO results (user_id, contest_id, score, reward, is_winner, finish_time)
		VALUES ($1, $2, $3, $4, TRUE, $5);`,
		userID, contestID, score, reward, at); err != nil {
		return 0, fmt.Errorf("record result: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return newBalance, nil
}

// ResultsByUser returns the user's contest history, newest first.
func (s *Store) ResultsByUser(ctx context.Context, userID int64) ([]models.Result, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, contest_id, score, reward, is_winner, finish_time
		FROM results WHERE user_id = $1 ORDER BY finish_time DESC;`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectResults(rows)
}

// ListResults returns every result row, newest first.
func (s *Store) ListResults(ctx context.Context) ([]models.Result, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, contest_id, score, reward, is_winner, finish_time
		FROM results ORDER BY finish_time DESC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectResults(rows)
}

// DeleteResult removes a single history row.
func (s *Store) DeleteResult(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM results WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Winners returns the public winners listing, earliest finish first.
func (s *Store) Winners(ctx context.Context) ([]models.WinnerRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.contest_id, r.user_id, u.username, c.round_number, r.reward, r.finish_time
		FROM results r
		JOIN users u ON r.user_id = u.id
		JOIN contests c ON r.contest_id = c.id
		WHERE r.is_winner
		ORDER BY r.finish_time ASC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.WinnerRow
	for rows.Next() {
		var w models.WinnerRow
		if err := rows.Scan(&w.ResultID, &w.ContestID, &w.UserID, &w.Username, &w.RoundNumber, &w.Reward, &w.FinishTime); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func collectResults(rows pgx.Rows) ([]models.Result, error) {
	var out []models.Result
	for rows.Next() {
		var r models.Result
		if err := rows.Scan(&r.ID, &r.UserID, &r.ContestID, &r.Score, &r.Reward, &r.IsWinner, &r.FinishTime); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanContest(row pgx.Row) (models.Contest, error) {
	var c models.Contest
	var seconds int64
	err := row.Scan(&c.ID, &c.RoundNumber, &c.Reward, &c.StartTime, &seconds, &c.WinnerID, &c.ExpiredAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Contest{}, storage.ErrNotFound
		}
		return models.Contest{}, err
	}
	c.TimerDuration = time.Duration(seconds) * time.Second
	return c, nil
}
