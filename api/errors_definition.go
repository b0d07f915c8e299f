//nolint:lll
package api

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400 or 404 (or even 204), whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX.
// If you notice there's a gap (say, error code 40010, 40011 and 40013 exist, 40012 is missing) DON'T fill in the gap,
// that code was used in the past for some error (not anymore) and shouldn't be reused.
// There's no correlation between Code and HTTP Status.
var (
	ErrResourceNotFound      = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody         = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMalformedAmount       = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed amount")}
	ErrMalformedParam        = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed parameter")}
	ErrAccountNotFound       = Error{Code: 40007, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("account not found")}
	ErrWalletNotFound        = Error{Code: 40008, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("wallet not found")}
	ErrTransactionNotFound   = Error{Code: 40009, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("transaction not found")}
	ErrBlockNotFound         = Error{Code: 40010, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("block not found")}
	ErrUnauthorized          = Error{Code: 40011, HTTPstatus: http.StatusUnauthorized, Err: fmt.Errorf("unauthorized")}
	ErrAccountNotOwned       = Error{Code: 40012, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("account not owned by user")}
	ErrInsufficientFunds     = Error{Code: 40013, HTTPstatus: http.StatusUnprocessableEntity, Err: fmt.Errorf("insufficient available balance")}
	ErrCurrencyMismatch      = Error{Code: 40014, HTTPstatus: http.StatusUnprocessableEntity, Err: fmt.Errorf("currency mismatch")}
	ErrSelfTransfer          = Error{Code: 40015, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("sender and recipient are the same account")}
	ErrDuplicateAccount      = Error{Code: 40016, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("wallet already holds an account for this currency")}
	ErrChainEmpty            = Error{Code: 40017, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("no blocks sealed yet")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrChainVerificationFailed    = Error{Code: 50003, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("chain verification failed")}
)
