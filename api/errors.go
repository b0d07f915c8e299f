package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/openvault/ledger-node/log"
)

// Error satisfies the error interface. Errors are meant to be sent to
// the client verbatim, with a stable numeric Code and the HTTP status
// to use.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
}

// Error returns the Message contained inside the APIerror
func (e Error) Error() string {
	return e.Err.Error()
}

// MarshalJSON returns a JSON containing Err.Error() and Code. Field
// HTTPstatus is ignored.
//
// Example output: {"error":"account not found","code":40007}
func (e Error) MarshalJSON() ([]byte, error) {
	// This anon struct is needed to actually include the error string,
	// since it wouldn't be marshaled otherwise. (json.Marshal doesn't
	// call Err.Error())
	return json.Marshal(
		struct {
			Err  string `json:"error"`
			Code int    `json:"code"`
		}{
			Err:  e.Err.Error(),
			Code: e.Code,
		})
}

// Write serializes a JSON msg using APIerror.Message and APIerror.Code
// and passes that to the client, with the proper HTTP status.
func (e Error) Write(w http.ResponseWriter) {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Warnw("marshal error failed", "error", err.Error())
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPstatus)
	if _, err := w.Write(msg); err != nil {
		log.Warnw("failed to write error response", "error", err.Error())
	}
}

// Withf returns a copy of APIerror with the Sprintf formatted string
// appended at the end of e.Err
func (e Error) Withf(format string, args ...any) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, fmt.Sprintf(format, args...)),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// WithErr returns a copy of APIerror with err.Error() appended at the
// end of e.Err
func (e Error) WithErr(err error) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, err.Error()),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}
