package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound            = errors.New("requested resource not found")
	ErrUnauthorized        = errors.New("unauthorized access")
	ErrForbidden           = errors.New("forbidden access")
	ErrBadRequest          = errors.New("bad request")
	ErrConflict            = errors.New("resource conflict") // e.g., team name already taken
	ErrInternalServer      = errors.New("internal server error")
	ErrValidation          = errors.New("validation failed")
	ErrServiceUnavailable  = errors.New("service unavailable") // e.g. judge down
	ErrInsufficientCatalog = errors.New("catalog needs at least one problem per difficulty")
	ErrEventExpired        = errors.New("event time has expired")
)

// Specific errors wrap one of the kinds above so errors.Is works on both.
var (
	ErrTeamNotFound            = fmt.Errorf("team not found: %w", ErrNotFound)
	ErrMemberNotFound          = fmt.Errorf("member not found: %w", ErrNotFound)
	ErrProblemNotFound         = fmt.Errorf("problem not found: %w", ErrNotFound)
	ErrSubmissionNotFound      = fmt.Errorf("submission not found: %w", ErrNotFound)
	ErrMissingProblemReference = fmt.Errorf("problem reference is required: %w", ErrValidation)
	ErrNoTestCases             = fmt.Errorf("problem has no test cases: %w", ErrBadRequest)
	ErrTeamInactive            = fmt.Errorf("team session has not started: %w", ErrConflict)
)

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) || errors.Is(err, ErrEventExpired) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrValidation) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrInsufficientCatalog) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrServiceUnavailable) {
		return http.StatusServiceUnavailable
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" { // Unique violation
			return http.StatusConflict
		}
	}

	return http.StatusInternalServerError
}

// ErrorCode returns a stable machine-readable kind for err.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTeamNotFound):
		return "team_not_found"
	case errors.Is(err, ErrMemberNotFound):
		return "member_not_found"
	case errors.Is(err, ErrProblemNotFound):
		return "problem_not_found"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrEventExpired):
		return "event_expired"
	case errors.Is(err, ErrInsufficientCatalog):
		return "insufficient_catalog"
	case errors.Is(err, ErrMissingProblemReference):
		return "missing_problem_reference"
	case errors.Is(err, ErrNoTestCases):
		return "no_test_cases"
	case errors.Is(err, ErrValidation):
		return "validation_failed"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	case errors.Is(err, ErrTeamInactive):
		return "team_inactive"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrServiceUnavailable):
		return "service_unavailable"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return "conflict"
	}
	return "internal"
}

// Errorf creates a new error with formatting, useful for wrapping.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
