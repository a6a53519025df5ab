package dto

import "time"

type CreateContestRequest struct {
	RoundNumber   int   `json:"round_number" validate:"required,min=1"`
	Reward        int64 `json:"reward" validate:"required,min=1"`
	StartTime     int64 `json:"start_time" validate:"required"`           // unix millis
	TimerDuration int   `json:"timer_duration" validate:"required,min=1"` // seconds
}

type CreateQuestionRequest struct {
	ContestID     int64  `json:"contest_id" validate:"required"`
	Text          string `json:"text" validate:"required"`
	CorrectAnswer string `json:"correct_answer" validate:"required"`
}

type SubmitAnswerRequest struct {
	ContestID     int64  `json:"contest_id" validate:"required"`
	QuestionIndex int    `json:"question_index" validate:"min=0"`
	Answer        string `json:"answer" validate:"required"`
}

type SubmitAnswerResponse struct {
	Outcome       string `json:"outcome"`
	QuestionIndex int    `json:"question_index"`
	Reward        int64  `json:"reward,omitempty"`
	NewBalance    int64  `json:"new_balance,omitempty"`
}

type CurrentContestResponse struct {
	ContestID     int64         `json:"contest_id"`
	RoundNumber   int           `json:"round_number"`
	Reward        int64         `json:"reward"`
	State         string        `json:"state"`
	TimeRemaining time.Duration `json:"time_remaining_ms"`
	Questions     int           `json:"questions"`
}

type ProgressResponse struct {
	ContestID     int64 `json:"contest_id"`
	QuestionIndex int   `json:"question_index"`
	Questions     int   `json:"questions"`
}
