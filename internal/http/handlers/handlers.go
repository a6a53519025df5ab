// Package handlers wires the contest platform's HTTP surface. Each handler
// owns one slice of the API and registers its own routes on the mux.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/scramblenaija/scramble-be/internal/contest"
	"github.com/scramblenaija/scramble-be/internal/http/respond"
	"github.com/scramblenaija/scramble-be/internal/storage"
)

var validate = validator.New()

// decodeValid decodes a JSON body into dst and runs struct validation.
func decodeValid(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("invalid JSON payload")
	}
	if err := validate.Struct(dst); err != nil {
		return err
	}
	return nil
}

// pathID parses a {id} path value as int64.
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

// writeDomainError maps domain and storage errors onto HTTP statuses. The
// taxonomy is fixed: not-found, lost the winner race, shortfall of funds,
// desynced progress, closed round, no subscription.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrAlreadyExists):
		respond.Error(w, http.StatusConflict, "already exists")
	case errors.Is(err, storage.ErrAlreadyWon):
		respond.Error(w, http.StatusConflict, "round already won by someone else")
	case errors.Is(err, storage.ErrInsufficientFunds):
		respond.Error(w, http.StatusPaymentRequired, "insufficient funds")
	case errors.Is(err, storage.ErrContestClosed):
		respond.Error(w, http.StatusConflict, "contest is not open")
	case errors.Is(err, contest.ErrNotEligible):
		respond.Error(w, http.StatusForbidden, "active subscription required")
	default:
		respond.Error(w, http.StatusInternalServerError, "internal error")
	}
}
