package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pcrowther/gridfill/internal/importer"
	"github.com/pcrowther/gridfill/internal/logging"
)

// defaultSchema is used when a request does not name a database schema.
const defaultSchema = "public"

// multipartOverhead is the request-body allowance for multipart boundaries
// and part headers beyond the file itself.
const multipartOverhead = 64 << 10

func schemaParam(r *http.Request) string {
	if s := r.URL.Query().Get("schema"); s != "" {
		return s
	}
	return defaultSchema
}

// respondBadRequest reports a malformed request body or path parameter.
func respondBadRequest(w http.ResponseWriter, msg string) {
	respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg, Code: "bad_request"})
}

// GET /api/tables
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.schemas.ListTables(r.Context(), schemaParam(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

// GET /api/tables/{table}/schema
func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	table, err := s.schemas.GetTable(r.Context(), schemaParam(r), chi.URLParam(r, "table"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, table)
}

// POST /api/sessions
func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Schema string `json:"schema"`
		Table  string `json:"table"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Table == "" {
		respondBadRequest(w, "request body must name a table")
		return
	}
	if req.Schema == "" {
		req.Schema = defaultSchema
	}

	table, err := s.schemas.GetTable(r.Context(), req.Schema, req.Table)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	sess := s.sessions.Open(table)
	logging.FromContext(r.Context()).Info("session opened",
		"session_id", sess.ID,
		"table", table.QualifiedName(),
	)
	respondJSON(w, http.StatusCreated, map[string]any{
		"sessionId": sess.ID,
		"table":     table,
	})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*importer.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err)
		return nil, false
	}
	return sess, true
}

// GET /api/sessions/{sessionID}
func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"sessionId": sess.ID,
		"table":     sess.Table,
		"rows":      sess.Rows(),
		"rowErrors": sess.Errors(),
	})
}

// POST /api/sessions/{sessionID}/upload
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	// A bounded reader on top of the size gate keeps an oversized body from
	// buffering before the gate can reject it. The cap covers the whole
	// multipart body, so boundary and part-header framing gets headroom on
	// top of the file budget; ValidateFileSize stays the authoritative gate.
	r.Body = http.MaxBytesReader(w, r.Body, importer.MaxFileSize+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.respondError(w, r, &importer.Error{
				Kind:    importer.KindFileTooLarge,
				Message: fmt.Sprintf("file exceeds the maximum of %d bytes (5MB)", importer.MaxFileSize),
			})
			return
		}
		respondBadRequest(w, `multipart field "file" is required`)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondBadRequest(w, "could not read uploaded file")
		return
	}

	ds, suggested, err := sess.LoadFile(header.Filename, header.Size, data)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("file parsed",
		"session_id", sess.ID,
		"file", header.Filename,
		"rows", ds.ParsedRows,
		"truncated", ds.Truncated,
	)
	respondJSON(w, http.StatusOK, map[string]any{
		"dataset":          ds,
		"suggestedMapping": suggested,
	})
}

// POST /api/sessions/{sessionID}/mapping
func (s *Server) handleApplyMapping(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Mapping importer.Mapping `json:"mapping"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Mapping == nil {
		respondBadRequest(w, `request body must carry a "mapping" object`)
		return
	}

	report, err := sess.ApplyMapping(req.Mapping)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if !report.Valid() {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{"report": report})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"report":   report,
		"rowCount": len(sess.Rows()),
	})
}

// POST /api/sessions/{sessionID}/rows
func (s *Server) handleAddRow(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.AddRow(); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"rowCount": len(sess.Rows())})
}

// PUT /api/sessions/{sessionID}/rows/{row}/{column}
func (s *Server) handleEditCell(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	row, err := strconv.Atoi(chi.URLParam(r, "row"))
	if err != nil {
		respondBadRequest(w, "row index must be an integer")
		return
	}

	var req struct {
		Value *string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, `request body must carry a "value"`)
		return
	}
	value := ""
	if req.Value != nil {
		value = *req.Value
	}

	if err := sess.EditCell(row, chi.URLParam(r, "column"), value); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"rowErrors": sess.Errors()})
}

// DELETE /api/sessions/{sessionID}/rows/{row}
func (s *Server) handleRemoveRow(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	row, err := strconv.Atoi(chi.URLParam(r, "row"))
	if err != nil {
		respondBadRequest(w, "row index must be an integer")
		return
	}
	if err := sess.RemoveRow(row); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"rowCount":  len(sess.Rows()),
		"rowErrors": sess.Errors(),
	})
}

// POST /api/sessions/{sessionID}/validate
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	valid, rowErrs := sess.Validate()
	respondJSON(w, http.StatusOK, map[string]any{
		"valid":     valid,
		"rowErrors": rowErrs,
	})
}

// POST /api/sessions/{sessionID}/commit
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	result, err := sess.Commit(r.Context(), s.inserter)
	if err != nil {
		if importer.KindOf(err) == importer.KindRowValidation {
			s.respondErrorWithRows(w, r, err, sess.Errors())
			return
		}
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("batch committed",
		"session_id", sess.ID,
		"inserted", result.Inserted,
		"failed", len(result.Failures),
		"partial", result.Partial(),
	)
	respondJSON(w, http.StatusOK, map[string]any{
		"result":  result,
		"summary": result.Summary(),
	})
}

// DELETE /api/sessions/{sessionID}
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(chi.URLParam(r, "sessionID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
