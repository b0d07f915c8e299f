package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/openvault/ledger-node/log"
	"github.com/openvault/ledger-node/storage"
	"github.com/openvault/ledger-node/types"
)

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
		return
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
		return
	}
	if !DisabledLogging && log.Level() == log.LogLevelDebug {
		log.Debugw("api response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
	}
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// writeDomainError maps storage and types errors onto the API error
// catalog and writes the result.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrForbidden):
		ErrAccountNotOwned.Write(w)
	case errors.Is(err, storage.ErrInsufficientFunds):
		ErrInsufficientFunds.WithErr(err).Write(w)
	case errors.Is(err, storage.ErrCurrencyMismatch):
		ErrCurrencyMismatch.WithErr(err).Write(w)
	case errors.Is(err, storage.ErrKeyAlreadyExists):
		ErrDuplicateAccount.WithErr(err).Write(w)
	case errors.Is(err, storage.ErrNotFound):
		ErrResourceNotFound.WithErr(err).Write(w)
	case errors.Is(err, types.ErrAmountMalformed),
		errors.Is(err, types.ErrAmountPrecision),
		errors.Is(err, types.ErrAmountRange):
		ErrMalformedAmount.WithErr(err).Write(w)
	case errors.Is(err, storage.ErrInvariant):
		ErrMalformedParam.WithErr(err).Write(w)
	default:
		ErrGenericInternalServerError.WithErr(err).Write(w)
	}
}
