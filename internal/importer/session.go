package importer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pcrowther/gridfill/internal/schema"
)

// RowFailure is an insert failure the store reported for one row, numbered
// 1-based within the submitted batch.
type RowFailure struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// InsertResult is the insert collaborator's response. Success with a
// non-empty Failures list means a partial failure: the batch went through
// but the store rejected individual rows (e.g. a server-side unique
// constraint this engine cannot see).
type InsertResult struct {
	Success  bool         `json:"success"`
	Message  string       `json:"message"`
	Inserted int          `json:"inserted"`
	Failures []RowFailure `json:"failures,omitempty"`
}

// Partial reports whether the result mixes overall success with itemized
// per-row failures.
func (r *InsertResult) Partial() bool {
	return r.Success && len(r.Failures) > 0
}

// Summary renders the combined result for display: the overall message plus
// any itemized per-row failures. Store-reported failures are kept distinct
// from client-side validation, which never reaches this point.
func (r *InsertResult) Summary() string {
	if len(r.Failures) == 0 {
		return r.Message
	}
	parts := make([]string, 0, len(r.Failures)+1)
	parts = append(parts, r.Message)
	for _, f := range r.Failures {
		parts = append(parts, fmt.Sprintf("row %d: %s", f.Row, f.Message))
	}
	return strings.Join(parts, "; ")
}

// Inserter is the external collaborator that persists a validated batch.
type Inserter interface {
	Insert(ctx context.Context, table schema.Table, rows []Row) (*InsertResult, error)
}

// Session is one table-import editing session: the uploaded dataset, the
// column mapping, and the editable row buffer, gated by a commit flag so a
// double-commit is impossible. All methods are safe for the one-request-at-
// a-time access pattern of the web layer.
type Session struct {
	ID        string
	Table     schema.Table
	CreatedAt time.Time

	mu         sync.Mutex
	lastActive time.Time
	dataset    *Dataset
	suggested  Mapping
	buffer     *RowBuffer
	committing bool
	closed     bool
}

// NewSession opens a session for the given table. The session starts in
// manual-entry state with one blank row; LoadFile replaces that with an
// uploaded dataset. Panics if the schema has no columns, which is an
// invariant violation of the schema provider, not an expected failure.
func NewSession(id string, t schema.Table) *Session {
	if len(t.Columns) == 0 {
		panic(fmt.Sprintf("importer: schema for table %q has no columns", t.QualifiedName()))
	}
	now := time.Now()
	return &Session{
		ID:         id,
		Table:      t,
		CreatedAt:  now,
		lastActive: now,
		buffer:     NewRowBuffer(t, nil),
	}
}

// LoadFile gates, parses and auto-matches an uploaded file. On success the
// session holds the dataset and a suggested mapping, awaiting ApplyMapping.
// File-level and parse-level failures abort wholesale; no partial dataset
// is ever retained.
func (s *Session) LoadFile(name string, size int64, data []byte) (*Dataset, Mapping, error) {
	kind, err := ValidateFileType(name)
	if err != nil {
		return nil, nil, err
	}
	if err := ValidateFileSize(size); err != nil {
		return nil, nil, err
	}

	var ds *Dataset
	switch kind {
	case FileCSV:
		ds, err = ParseCSV(string(SanitizeUTF8(data)))
	case FileJSON:
		ds, err = ParseJSON(SanitizeUTF8(data))
	}
	if err != nil {
		return nil, nil, err
	}

	suggested := AutoMatchColumns(ds.Headers, s.Table)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usableLocked(); err != nil {
		return nil, nil, err
	}
	s.dataset = ds
	s.suggested = suggested
	s.touchLocked()
	return ds, suggested, nil
}

// SuggestedMapping returns the auto-matched mapping from the last LoadFile.
func (s *Session) SuggestedMapping() Mapping {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suggested
}

// ApplyMapping validates the mapping and, when it is usable, materializes
// the dataset into the row buffer and discards the dataset. The returned
// report carries errors and warnings either way.
func (s *Session) ApplyMapping(m Mapping) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usableLocked(); err != nil {
		return Report{}, err
	}
	if s.dataset == nil {
		return Report{}, newError(KindSession, "no uploaded file to map; upload one first")
	}

	report := ValidateMapping(m, s.Table)
	if !report.Valid() {
		return report, nil
	}

	rows, err := ApplyMapping(s.dataset, m, s.Table)
	if err != nil {
		return report, err
	}
	s.buffer = NewRowBuffer(s.Table, rows)
	s.dataset = nil
	s.suggested = nil
	s.touchLocked()
	return report, nil
}

// AddRow appends a blank row for manual entry.
func (s *Session) AddRow() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usableLocked(); err != nil {
		return err
	}
	s.buffer.AddBlankRow()
	s.touchLocked()
	return nil
}

// RemoveRow deletes one row, re-indexing recorded errors.
func (s *Session) RemoveRow(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usableLocked(); err != nil {
		return err
	}
	s.touchLocked()
	return s.buffer.RemoveRow(i)
}

// EditCell sets one cell and re-validates it immediately.
func (s *Session) EditCell(i int, column, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usableLocked(); err != nil {
		return err
	}
	s.touchLocked()
	return s.buffer.EditCell(i, column, value)
}

// Rows returns a snapshot of the current rows.
func (s *Session) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]Row, len(s.buffer.Rows()))
	copy(rows, s.buffer.Rows())
	return rows
}

// Errors returns the current per-row error map without re-validating.
func (s *Session) Errors() PerRowErrors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Errors()
}

// Validate runs the full per-cell and duplicate-key pass and returns the
// resulting error map.
func (s *Session) Validate() (bool, PerRowErrors) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.buffer.ValidateAllRows()
	return ok, s.buffer.Errors()
}

// Commit runs the full validation pass and, only when it is clean, submits
// the batch to the inserter. Rows whose every cell is blank are dropped
// silently. While an insert is in flight the session refuses a second
// commit, and a response arriving after Close does not touch the buffer.
func (s *Session) Commit(ctx context.Context, ins Inserter) (*InsertResult, error) {
	s.mu.Lock()
	if err := s.usableLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.committing {
		s.mu.Unlock()
		return nil, newError(KindBusy, "a commit is already in progress")
	}

	if !s.buffer.ValidateAllRows() {
		s.mu.Unlock()
		return nil, newError(KindRowValidation, "batch has validation errors; fix them before committing")
	}

	// The batch is copied out of the buffer while the lock is held, so edits
	// arriving during the insert cannot reach rows the inserter is reading.
	var batch []Row
	for _, row := range s.buffer.Rows() {
		if !row.IsBlank() {
			batch = append(batch, row.clone())
		}
	}
	if len(batch) == 0 {
		s.mu.Unlock()
		return nil, newError(KindCommit, "no rows to insert")
	}

	s.committing = true
	s.touchLocked()
	s.mu.Unlock()

	// Suspension point: the only I/O this session performs besides the
	// original file read. The lock is not held across it.
	result, err := ins.Insert(ctx, s.Table, batch)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.committing = false
	if s.closed {
		// Session was closed while the insert was outstanding. The result
		// no longer corresponds to any live buffer; report it but leave
		// nothing behind.
		if err != nil {
			return nil, wrapError(KindCommit, err, "insert failed after session close")
		}
		return result, nil
	}
	if err != nil {
		return nil, wrapError(KindCommit, err, "insert failed")
	}

	if result.Success && len(result.Failures) == 0 {
		// Full success ends the session's editing state.
		s.buffer = NewRowBuffer(s.Table, nil)
	}
	return result, nil
}

// Close marks the session unusable. An in-flight commit keeps its own
// reference to the batch, so closing mid-commit is safe.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.dataset = nil
	s.suggested = nil
}

// IdleSince reports the last time a request touched the session.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) usableLocked() error {
	if s.closed {
		return newError(KindSession, "session %s is closed", s.ID)
	}
	return nil
}

func (s *Session) touchLocked() {
	s.lastActive = time.Now()
}

