package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/apperrors"
	"gitlab.com/timkado/api/buyer-lead-crm/pkg/logger"
	"gitlab.com/timkado/api/buyer-lead-crm/pkg/utils"
)

const (
	msgUnauthorized  = "Unauthorized"
	msgForbidden     = "Forbidden"
	msgNotFound      = "Buyer not found"
	msgConflict      = "Record has been modified by another user. Please refresh and try again."
	msgDuplicate     = "A lead with this email or phone already exists."
	msgRateLimited   = "Too many requests. Please try again later."
	msgValidation    = "Validation failed"
	msgInvalidRows   = "Validation errors found"
	msgImportAborted = "Import failed during database operation"
	msgInternal      = "Internal server error"
	msgInvalidJSON   = "Invalid JSON body"
)

// statusClientClosedRequest is the non-standard status nginx logs for aborted requests.
const statusClientClosedRequest = 499

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details apperrors.FieldErrors  `json:"details,omitempty"`
	Errors  []apperrors.RowError   `json:"errors,omitempty"`
	Valid   *int                   `json:"validCount,omitempty"`
	Extra   map[string]interface{} `json:"meta,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	utils.WriteJSONResponse(w, status, body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps an error from the service layer onto a status and body.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logger.FromContext(ctx)

	var (
		verr     *apperrors.ValidationError
		rejected *apperrors.ImportRejectedError
		aborted  *apperrors.ImportAbortedError
	)
	switch {
	case errors.As(err, &rejected):
		if len(rejected.Invalid) == 0 {
			writeError(w, http.StatusBadRequest, rejected.Reason)
			return
		}
		valid := rejected.ValidCount
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msgInvalidRows, Errors: rejected.Invalid, Valid: &valid})
	case errors.As(err, &aborted):
		log.Error("Import aborted", zap.Int("row", aborted.Row), zap.Int("imported", aborted.Imported), zap.Error(aborted.Err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: msgImportAborted,
			Extra: map[string]interface{}{"row": aborted.Row, "imported": aborted.Imported},
		})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msgValidation, Details: verr.Fields})
	case apperrors.IsBadRequestError(err):
		writeError(w, http.StatusBadRequest, badRequestMessage(err))
	case apperrors.IsUnauthorizedError(err):
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
	case apperrors.IsForbiddenError(err):
		writeError(w, http.StatusForbidden, msgForbidden)
	case apperrors.IsNotFoundError(err):
		writeError(w, http.StatusNotFound, msgNotFound)
	case apperrors.IsConflictError(err):
		writeError(w, http.StatusConflict, msgConflict)
	case apperrors.IsDuplicateError(err):
		writeError(w, http.StatusConflict, msgDuplicate)
	case apperrors.IsRateLimitedError(err):
		writeError(w, http.StatusTooManyRequests, msgRateLimited)
	case errors.Is(err, context.Canceled):
		log.Info("Request canceled by client", zap.Error(err))
		writeError(w, statusClientClosedRequest, "Client closed request")
	default:
		log.Error("Unhandled service error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

// badRequestMessage strips the sentinel prefix so clients see only the specific reason.
func badRequestMessage(err error) string {
	return strings.TrimPrefix(err.Error(), apperrors.ErrBadRequest.Error()+": ")
}
