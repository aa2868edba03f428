package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"silver-jubilee-backend/apperrors"
	"silver-jubilee-backend/constants"
	"silver-jubilee-backend/models"
)

// RespondJSON envoie une réponse JSON
func RespondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	if w.Header().Get(constants.HeaderContentType) == "" {
		w.Header().Set(constants.HeaderContentType, constants.HeaderApplicationJSON)
	}

	if statusCode <= 0 {
		statusCode = http.StatusOK
	}
	w.WriteHeader(statusCode)

	if data != nil {
		// L'en-tête est déjà parti, on ne peut plus changer le statut
		_ = json.NewEncoder(w).Encode(data)
	}
}

// RespondError envoie une réponse d'erreur JSON
func RespondError(w http.ResponseWriter, statusCode int, message string) {
	RespondJSON(w, statusCode, models.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

// RespondAppError traduit une erreur métier en réponse HTTP.
// Les erreurs inconnues sont rendues en 500 sans détail interne.
func RespondAppError(w http.ResponseWriter, err error) {
	appErr := apperrors.FromError(err)
	if appErr.Code == apperrors.CodeTooManyAttempts {
		if retry := RetryAfter(err); retry > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(retry))
		}
	}
	RespondJSON(w, appErr.Status, models.ErrorResponse{
		Error:   http.StatusText(appErr.Status),
		Code:    appErr.Code,
		Message: appErr.Message,
		Errors:  appErr.Fields,
	})
}

// RespondSuccess envoie une réponse de succès JSON
func RespondSuccess(w http.ResponseWriter, message string, data interface{}) {
	RespondJSON(w, http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// retryAfterError est implémentée par les erreurs qui connaissent leur délai
type retryAfterError interface {
	RetryAfterSeconds() int
}

// RetryAfter extrait le délai d'attente suggéré d'une erreur, 0 si inconnu
func RetryAfter(err error) int {
	var r retryAfterError
	if errors.As(err, &r) {
		return r.RetryAfterSeconds()
	}
	return 0
}
