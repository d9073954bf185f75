package handlers

import (
	"errors"

	"net/http"

	"shiftline-backend/pkg/onboarding"
	"shiftline-backend/pkg/utils"
)

// writeDomainError maps onboarding errors onto the response envelope. One
// place owns the status mapping so every handler reports failures the same way.
func writeDomainError(w http.ResponseWriter, err error) {
	var ve *onboarding.ValidationError
	if errors.As(err, &ve) {
		utils.WriteValidationErrorResponse(w, ve.Message, ve.Field)
		return
	}
	var ce *onboarding.ConflictError
	if errors.As(err, &ce) {
		utils.WriteConflictResponse(w, ce.Error())
		return
	}
	var te *onboarding.TimeoutError
	if errors.As(err, &te) {
		utils.WriteTimeoutResponse(w, te.Error())
		return
	}
	if errors.Is(err, onboarding.ErrSessionNotFound) || errors.Is(err, onboarding.ErrIntentNotFound) {
		utils.WriteNotFoundResponse(w, err.Error())
		return
	}
	var be *onboarding.BackendError
	if errors.As(err, &be) {
		utils.WriteBadGatewayResponse(w, be.Error())
		return
	}
	utils.WriteInternalServerErrorResponse(w, err.Error())
}
