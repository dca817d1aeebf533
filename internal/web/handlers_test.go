package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pcrowther/gridfill/internal/importer"
	"github.com/pcrowther/gridfill/internal/schema"
)

type fakeSchemaProvider struct {
	tables map[string]schema.Table
}

func (f *fakeSchemaProvider) ListTables(_ context.Context, _ string) ([]string, error) {
	names := make([]string, 0, len(f.tables))
	for name := range f.tables {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeSchemaProvider) GetTable(_ context.Context, schemaName, tableName string) (schema.Table, error) {
	t, ok := f.tables[tableName]
	if !ok {
		return schema.Table{}, fmt.Errorf("table %s.%s does not exist", schemaName, tableName)
	}
	return t, nil
}

type fakeInserter struct {
	calls  int
	result *importer.InsertResult
}

func (f *fakeInserter) Insert(_ context.Context, _ schema.Table, rows []importer.Row) (*importer.InsertResult, error) {
	f.calls++
	if f.result != nil {
		return f.result, nil
	}
	return &importer.InsertResult{Success: true, Inserted: len(rows), Message: "ok"}, nil
}

func testServer(t *testing.T) (*Server, *fakeInserter) {
	t.Helper()
	provider := &fakeSchemaProvider{tables: map[string]schema.Table{
		"products": {
			Schema: "public",
			Name:   "products",
			Columns: []schema.Column{
				{Name: "sku", Type: "integer", IsPrimaryKey: true},
				{Name: "label", Type: "text", Nullable: true},
				{Name: "qty", Type: "integer", Nullable: true},
			},
		},
	}}
	ins := &fakeInserter{}
	return NewServer(importer.NewRegistry(), provider, ins), ins
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func openSession(t *testing.T, srv *Server) string {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/sessions", map[string]string{"table": "products"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("open session: status %d body %s", rec.Code, rec.Body.String())
	}
	id, _ := decodeBody(t, rec)["sessionId"].(string)
	if id == "" {
		t.Fatal("response missing sessionId")
	}
	return id
}

func uploadCSV(t *testing.T, srv *Server, sessionID, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mpw := multipart.NewWriter(&buf)
	fw, err := mpw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mpw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sessionID+"/upload", &buf)
	req.Header.Set("Content-Type", mpw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleListTables(t *testing.T) {
	srv, _ := testServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/tables", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if tables, ok := body["tables"].([]any); !ok || len(tables) != 1 {
		t.Errorf("tables = %v", body["tables"])
	}
}

func TestHandleGetSchema(t *testing.T) {
	srv, _ := testServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/tables/products/schema", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var tbl schema.Table
	if err := json.Unmarshal(rec.Body.Bytes(), &tbl); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tbl.Name != "products" || len(tbl.Columns) != 3 {
		t.Errorf("table = %+v", tbl)
	}
}

func TestHandleOpenSession_BadRequests(t *testing.T) {
	srv, _ := testServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/sessions", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing table: status = %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/sessions", map[string]string{"table": "nope"})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("unknown table: status = %d", rec.Code)
	}
}

func TestUnknownSessionIs404(t *testing.T) {
	srv, _ := testServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/sessions/deadbeef/", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestUploadMappingCommitFlow(t *testing.T) {
	srv, ins := testServer(t)
	id := openSession(t, srv)

	rec := uploadCSV(t, srv, id, "products.csv", "sku,label,qty\n1,widget,10\n2,gadget,5\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: status %d body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	suggested, ok := body["suggestedMapping"].(map[string]any)
	if !ok || suggested["sku"] != "sku" {
		t.Fatalf("suggestedMapping = %v", body["suggestedMapping"])
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/sessions/"+id+"/mapping",
		map[string]any{"mapping": suggested})
	if rec.Code != http.StatusOK {
		t.Fatalf("mapping: status %d body %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["rowCount"].(float64); got != 2 {
		t.Errorf("rowCount = %v, want 2", got)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/sessions/"+id+"/validate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("validate: status %d", rec.Code)
	}
	if valid := decodeBody(t, rec)["valid"].(bool); !valid {
		t.Fatal("batch should be valid")
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/sessions/"+id+"/commit", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("commit: status %d body %s", rec.Code, rec.Body.String())
	}
	if ins.calls != 1 {
		t.Errorf("inserter calls = %d, want 1", ins.calls)
	}
	if summary := decodeBody(t, rec)["summary"].(string); summary != "ok" {
		t.Errorf("summary = %q", summary)
	}
}

func TestUploadRejectsBadExtension(t *testing.T) {
	srv, _ := testServer(t)
	id := openSession(t, srv)

	rec := uploadCSV(t, srv, id, "products.xlsx", "sku\n1\n")
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", rec.Code)
	}
}

// csvOfSize builds a parseable CSV whose byte length is exactly n: a header
// line and one huge single-cell row.
func csvOfSize(n int) string {
	const header = "label\n"
	return header + strings.Repeat("x", n-len(header)-1) + "\n"
}

func TestUploadSizeBoundaries(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		wantStatus int
	}{
		{"exactly the limit is accepted", importer.MaxFileSize, http.StatusOK},
		{"one byte over is too large", importer.MaxFileSize + 1, http.StatusRequestEntityTooLarge},
		{"far over the body cap is too large", importer.MaxFileSize + 128<<10, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := testServer(t)
			id := openSession(t, srv)

			rec := uploadCSV(t, srv, id, "big.csv", csvOfSize(tt.size))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus == http.StatusRequestEntityTooLarge {
				var resp ErrorResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if resp.Code != "file_too_large" {
					t.Errorf("code = %q, want file_too_large", resp.Code)
				}
			}
		})
	}
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	srv, _ := testServer(t)
	id := openSession(t, srv)

	rec := uploadCSV(t, srv, id, "products.csv", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	body := decodeBody(t, rec)
	if msg, _ := body["error"].(string); !strings.Contains(msg, "empty") {
		t.Errorf("error = %q", msg)
	}
}

func TestMappingReportedInvalid(t *testing.T) {
	srv, _ := testServer(t)
	id := openSession(t, srv)

	rec := uploadCSV(t, srv, id, "products.csv", "sku,label\n1,widget\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: status %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/sessions/"+id+"/mapping",
		map[string]any{"mapping": map[string]string{"sku": "nowhere", "label": "label"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	report, ok := decodeBody(t, rec)["report"].(map[string]any)
	if !ok {
		t.Fatal("response should carry the report")
	}
	if errs, _ := report["errors"].([]any); len(errs) == 0 {
		t.Error("report should have errors")
	}
}

func TestRowEditingEndpoints(t *testing.T) {
	srv, _ := testServer(t)
	id := openSession(t, srv)
	base := "/api/sessions/" + id

	rec := doJSON(t, srv, http.MethodPost, base+"/rows", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add row: status %d", rec.Code)
	}
	if got := decodeBody(t, rec)["rowCount"].(float64); got != 2 {
		t.Errorf("rowCount = %v, want 2", got)
	}

	bad := "lots"
	rec = doJSON(t, srv, http.MethodPut, base+"/rows/0/qty", map[string]*string{"value": &bad})
	if rec.Code != http.StatusOK {
		t.Fatalf("edit cell: status %d body %s", rec.Code, rec.Body.String())
	}
	rowErrs, _ := decodeBody(t, rec)["rowErrors"].(map[string]any)
	if _, ok := rowErrs["0"]; !ok {
		t.Errorf("rowErrors = %v, want error at row 0", rowErrs)
	}

	rec = doJSON(t, srv, http.MethodDelete, base+"/rows/0", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove row: status %d", rec.Code)
	}
	if got := decodeBody(t, rec)["rowCount"].(float64); got != 1 {
		t.Errorf("rowCount = %v, want 1", got)
	}

	rec = doJSON(t, srv, http.MethodPut, base+"/rows/notanumber/qty", map[string]string{"value": "1"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad row index: status = %d", rec.Code)
	}
}

func TestCommitWithValidationErrors(t *testing.T) {
	srv, ins := testServer(t)
	id := openSession(t, srv)
	base := "/api/sessions/" + id

	bad := "lots"
	rec := doJSON(t, srv, http.MethodPut, base+"/rows/0/qty", map[string]*string{"value": &bad})
	if rec.Code != http.StatusOK {
		t.Fatalf("edit cell: status %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, base+"/commit", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.RowErrors) == 0 {
		t.Error("response should carry row errors")
	}
	if ins.calls != 0 {
		t.Error("inserter must not be called")
	}
}

func TestCloseSession(t *testing.T) {
	srv, _ := testServer(t)
	id := openSession(t, srv)

	rec := doJSON(t, srv, http.MethodDelete, "/api/sessions/"+id+"/", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/sessions/"+id+"/", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status after close = %d, want 404", rec.Code)
	}
}
