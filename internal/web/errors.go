package web

// errors.go maps import pipeline errors onto HTTP responses. Every expected
// failure carries an importer.ErrKind, which picks both the status code and
// the machine-readable code in the JSON envelope. The technical error is
// logged server-side with the request ID for correlation.

import (
	"encoding/json"
	"net/http"

	"github.com/pcrowther/gridfill/internal/importer"
	"github.com/pcrowther/gridfill/internal/logging"
)

// ErrorResponse is the JSON envelope for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`

	// RowErrors carries per-row cell errors when a commit is blocked by
	// validation; absent otherwise.
	RowErrors importer.PerRowErrors `json:"rowErrors,omitempty"`
}

// statusFor picks the HTTP status for a pipeline error kind.
func statusFor(err error) int {
	switch importer.KindOf(err) {
	case importer.KindFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case importer.KindUnsupportedFileType:
		return http.StatusUnsupportedMediaType
	case importer.KindParse:
		return http.StatusBadRequest
	case importer.KindMapping, importer.KindRowValidation, importer.KindDuplicateKey:
		return http.StatusUnprocessableEntity
	case importer.KindSession:
		return http.StatusNotFound
	case importer.KindBusy:
		return http.StatusConflict
	case importer.KindCommit:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the JSON error envelope and logs the failure.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	s.respondErrorWithRows(w, r, err, nil)
}

// respondErrorWithRows is respondError plus the per-row error map, used by
// the commit handler so a blocked commit shows which cells are wrong.
func (s *Server) respondErrorWithRows(w http.ResponseWriter, r *http.Request, err error, rowErrs importer.PerRowErrors) {
	status := statusFor(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"kind", importer.KindOf(err).String(),
		"error", err.Error(),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:     err.Error(),
		Code:      importer.KindOf(err).String(),
		RowErrors: rowErrs,
	})
}

// respondJSON writes v as a JSON response.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
