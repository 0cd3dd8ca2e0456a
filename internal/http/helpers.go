package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// sanitizeInput trims and strips control characters other than tab and
// newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// pathID reads the {id} route variable.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid transaction id")
	}
	return id, nil
}

// parseEditingID reads the hidden form id; empty means create.
func parseEditingID(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid transaction id")
	}
	return id, nil
}

// failure maps an error from the ledger to a status and a message for the
// user.
func failure(err error) (int, string) {
	var apiErr *ledger.APIError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.StatusCode == http.StatusNotFound {
			return http.StatusNotFound, "Transaction not found"
		}
		return apiErr.StatusCode, apiErr.UserMessage()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "The ledger did not answer in time"
	default:
		return http.StatusBadGateway, "The ledger is unavailable"
	}
}

// validationMessage is the user-facing text for a client-side check.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidType):
		return "Choose income or expense"
	case errors.Is(err, core.ErrInvalidCategory):
		return "Choose a category"
	case errors.Is(err, core.ErrInvalidAmount):
		return "Enter a positive amount with at most two decimals"
	case errors.Is(err, core.ErrInvalidDate):
		return "Enter a valid date"
	case errors.Is(err, core.ErrDescriptionTooLong):
		return "Description is too long"
	}
	return err.Error()
}
