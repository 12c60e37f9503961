// Package handler contains the HTTP handlers of the breed ledger: uploads,
// listing and deleting the caller's records, classification previews and
// the read-only endpoints around them.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/dogify/internal/models"
)

// maxJSONBody caps JSON request bodies. Images go through multipart uploads.
const maxJSONBody = 64 << 10

// requestError is a client mistake with the status it should be answered with.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string {
	return e.msg
}

func badRequest(format string, args ...any) *requestError {
	return &requestError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

// decodeJSONBody reads exactly one JSON object into dst. Client mistakes are
// returned as *requestError.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
			return &requestError{status: http.StatusUnsupportedMediaType, msg: "Content-Type header is not application/json"}
		}
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var (
			syntaxErr *json.SyntaxError
			typeErr   *json.UnmarshalTypeError
			sizeErr   *http.MaxBytesError
		)

		switch {
		case errors.As(err, &syntaxErr):
			return badRequest("Request body contains badly-formed JSON (at position %d)", syntaxErr.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return badRequest("Request body contains badly-formed JSON")
		case errors.As(err, &typeErr):
			return badRequest("Request body contains an invalid value for the %q field", typeErr.Field)
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return badRequest("Request body contains unknown field %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
		case errors.Is(err, io.EOF):
			return badRequest("Request body must not be empty")
		case errors.As(err, &sizeErr):
			return &requestError{
				status: http.StatusRequestEntityTooLarge,
				msg:    fmt.Sprintf("Request body must not be larger than %d bytes", sizeErr.Limit),
			}
		default:
			return err
		}
	}

	if dec.More() {
		return badRequest("Request body must only contain a single JSON object")
	}

	return nil
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}

// writeError sends a JSON error body.
func writeError(w http.ResponseWriter, logger *zap.Logger, status int, msg string) {
	writeJSON(w, logger, status, models.ErrorResponse{Error: msg})
}
