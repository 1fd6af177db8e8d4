// Package httputil holds the JSON envelope helpers shared by every handler.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	dErrors "spendwise/pkg/domain-errors"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	Field            string `json:"field,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// WriteError translates a domain error into the JSON envelope. Internal errors never
// expose their description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	resp := ErrorResponse{Error: string(code)}

	var de *dErrors.Error
	if errors.As(err, &de) {
		code = de.Code
		resp.Error = string(code)
		if code != dErrors.CodeInternal {
			resp.ErrorDescription = de.Message
			resp.Field = de.Field
		}
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), resp)
}

// DecodeJSON decodes the request body into dst, rejecting unknown fields and trailing data.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return dErrors.New(dErrors.CodeBadRequest, "request body is required")
		}
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &syntaxErr):
			return dErrors.New(dErrors.CodeBadRequest, "malformed JSON")
		case errors.As(err, &typeErr):
			return dErrors.NewField(typeErr.Field, "wrong type for field "+typeErr.Field)
		case strings.HasPrefix(err.Error(), "json: unknown field"):
			return dErrors.New(dErrors.CodeBadRequest, strings.TrimPrefix(err.Error(), "json: "))
		}
		return dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	if dec.More() {
		return dErrors.New(dErrors.CodeBadRequest, "request body must contain a single JSON object")
	}
	return nil
}
