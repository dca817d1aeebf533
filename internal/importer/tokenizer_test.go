package importer

import (
	"fmt"
	"strings"
	"testing"
)

// ============================================================================
// DetectDelimiter Tests
// ============================================================================

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  rune
	}{
		{
			name:  "commas win over semicolons",
			input: "a,b;c\n1,2;3\n",
			want:  ',',
		},
		{
			name:  "semicolons only",
			input: "a;b;c\n1;2;3\n",
			want:  ';',
		},
		{
			name:  "tabs",
			input: "a\tb\tc\n1\t2\t3\n",
			want:  '\t',
		},
		{
			name:  "pipes",
			input: "a|b|c\n1|2|3\n",
			want:  '|',
		},
		{
			name:  "no delimiter defaults to comma",
			input: "header\nvalue\n",
			want:  ',',
		},
		{
			name:  "tie broken by priority order",
			input: "a,b;c\n1,2;3\n", // equal counts would favor comma
			want:  ',',
		},
		{
			name:  "sample ignores blank lines",
			input: "\n\n\na;b\n1;2\n",
			want:  ';',
		},
		{
			name:  "only first five lines sampled",
			input: "a;b\n1;2\n3;4\n5;6\n7;8\n" + strings.Repeat("x,y,z,w\n", 50),
			want:  ';',
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectDelimiter(tt.input); got != tt.want {
				t.Errorf("DetectDelimiter(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ============================================================================
// parseLine Tests
// ============================================================================

func TestParseLine(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		delim rune
		want  []string
	}{
		{
			name:  "plain fields",
			line:  "a,b,c",
			delim: ',',
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "quoted field with delimiter inside",
			line:  `"a,b",c`,
			delim: ',',
			want:  []string{"a,b", "c"},
		},
		{
			name:  "escaped quote inside quoted field",
			line:  `"say ""hi""",x`,
			delim: ',',
			want:  []string{`say "hi"`, "x"},
		},
		{
			name:  "fields are trimmed",
			line:  " a , b ",
			delim: ',',
			want:  []string{"a", "b"},
		},
		{
			name:  "quoted fields are trimmed too",
			line:  `" a ",b`,
			delim: ',',
			want:  []string{"a", "b"},
		},
		{
			name:  "empty fields preserved",
			line:  "a,,c",
			delim: ',',
			want:  []string{"a", "", "c"},
		},
		{
			name:  "trailing delimiter yields trailing empty field",
			line:  "a,b,",
			delim: ',',
			want:  []string{"a", "b", ""},
		},
		{
			name:  "semicolon delimiter ignores commas",
			line:  "a,b;c",
			delim: ';',
			want:  []string{"a,b", "c"},
		},
		{
			name:  "unterminated quote consumes rest of line",
			line:  `"a,b`,
			delim: ',',
			want:  []string{"a,b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseLine(tt.line, tt.delim)
			if len(got) != len(tt.want) {
				t.Fatalf("parseLine(%q) = %v, want %v", tt.line, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("parseLine(%q)[%d] = %q, want %q", tt.line, i, got[i], tt.want[i])
				}
			}
		})
	}
}

// ============================================================================
// ParseCSV Tests
// ============================================================================

func TestParseCSV_Basic(t *testing.T) {
	ds, err := ParseCSV("id,name\n1,Alice\n2,Bob\n")
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}

	if len(ds.Headers) != 2 || ds.Headers[0] != "id" || ds.Headers[1] != "name" {
		t.Errorf("Headers = %v, want [id name]", ds.Headers)
	}
	if ds.TotalRows != 2 || ds.ParsedRows != 2 || ds.Truncated {
		t.Errorf("counts = total %d parsed %d truncated %v, want 2 2 false",
			ds.TotalRows, ds.ParsedRows, ds.Truncated)
	}
	if v := ds.Rows[0]["name"]; v == nil || *v != "Alice" {
		t.Errorf("row 0 name = %v, want Alice", v)
	}
}

func TestParseCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{
			name:    "empty file",
			input:   "",
			wantMsg: "CSV file is empty",
		},
		{
			name:    "only blank lines",
			input:   "\n  \n\t\n",
			wantMsg: "CSV file is empty",
		},
		{
			name:    "no columns in header",
			input:   ",,\nx,y,z\n",
			wantMsg: "No columns detected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(tt.input)
			if err == nil {
				t.Fatalf("ParseCSV(%q) expected error", tt.input)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("error = %q, want %q", err.Error(), tt.wantMsg)
			}
			if KindOf(err) != KindParse {
				t.Errorf("kind = %v, want KindParse", KindOf(err))
			}
		})
	}
}

func TestParseCSV_Truncation(t *testing.T) {
	var b strings.Builder
	b.WriteString("id,name\n")
	for i := 0; i < 1500; i++ {
		fmt.Fprintf(&b, "%d,row%d\n", i, i)
	}

	ds, err := ParseCSV(b.String())
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}

	if ds.ParsedRows != MaxRows {
		t.Errorf("ParsedRows = %d, want %d", ds.ParsedRows, MaxRows)
	}
	if ds.TotalRows != 1500 {
		t.Errorf("TotalRows = %d, want 1500", ds.TotalRows)
	}
	if !ds.Truncated {
		t.Error("Truncated = false, want true")
	}
	if ds.Notice == "" {
		t.Error("Notice is empty, want truncation message")
	}
}

func TestParseCSV_ShortRowsPadWithNull(t *testing.T) {
	ds, err := ParseCSV("a,b,c\n1,2\n")
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}

	row := ds.Rows[0]
	if v := row["a"]; v == nil || *v != "1" {
		t.Errorf("a = %v, want 1", v)
	}
	if row["c"] != nil {
		t.Errorf("c = %q, want null", *row["c"])
	}
}

func TestParseCSV_DuplicateHeaderLastWins(t *testing.T) {
	ds, err := ParseCSV("x,x\nfirst,second\n")
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}

	if v := ds.Rows[0]["x"]; v == nil || *v != "second" {
		t.Errorf("x = %v, want second (later column overwrites)", v)
	}
}

func TestParseCSV_CRLFAndBlankLines(t *testing.T) {
	ds, err := ParseCSV("id,name\r\n1,Alice\r\n\r\n2,Bob\r\n")
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if ds.TotalRows != 2 {
		t.Errorf("TotalRows = %d, want 2 (blank line skipped)", ds.TotalRows)
	}
}
