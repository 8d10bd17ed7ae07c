package api

import (
	"encoding/json"
	"net/http"

	"github.com/avadhworkzone/qna/errors"
)

// httpWriteJSON encodes the data as JSON and writes it to the response with
// the proper content type.
func httpWriteJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	body, err := json.Marshal(data)
	if err != nil {
		errors.ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		return
	}
	_, _ = w.Write([]byte("\n"))
}

// httpWriteError writes the error to the response. Errors produced by the
// service layer already carry their HTTP status and stable code, anything
// else is reported as a generic internal error.
func httpWriteError(w http.ResponseWriter, err error) {
	if apiErr, ok := err.(errors.Error); ok {
		apiErr.Write(w)
		return
	}
	errors.ErrGenericInternalServerError.WithErr(err).Write(w)
}
