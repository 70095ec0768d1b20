package httpx

import (
	"errors"
	"net/http"

	"github.com/movevote/movevote/internal/shared"
)

// RespondError maps ledger errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrUnauthenticated):
		Problem(w, http.StatusUnauthorized, "Authentication Required", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrPhaseMismatch):
		Problem(w, http.StatusBadRequest, "Phase Mismatch", err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrBudgetExceeded):
		Problem(w, http.StatusBadRequest, "Vote Budget Exceeded", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrExternalValidation):
		Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrStore):
		Problem(w, http.StatusServiceUnavailable, "Storage Unavailable", "temporary storage failure")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
