package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tradefin/escrow-wallet/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps engine errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrLocked),
		errors.Is(err, model.ErrMainWalletLocked),
		errors.Is(err, model.ErrDecryptionFailed),
		errors.Is(err, model.ErrNoUsableKey):
		status = http.StatusUnauthorized
	case errors.Is(err, model.ErrSubWalletNotFound),
		errors.Is(err, model.ErrInvitationNotFound),
		errors.Is(err, model.ErrNoStoredWallet):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrInvalidMnemonic),
		errors.Is(err, model.ErrInvalidPrivateKey),
		errors.Is(err, model.ErrUnsupportedCurrency):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrInsufficientBalance):
		status = http.StatusPaymentRequired
	case errors.Is(err, model.ErrInvitationAlreadyProcessed),
		errors.Is(err, model.ErrWalletExists):
		status = http.StatusConflict
	}
	writeJSON(w, status, model.ErrorResponse{Error: err.Error()})
}
