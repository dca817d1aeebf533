package importer

import (
	"fmt"
	"strings"
)

// tokenizer.go parses delimited text. The delimiter is detected by sampling
// rather than declared by the user, and quoting follows the common
// spreadsheet convention: double quotes wrap a field, a doubled quote inside
// a quoted field is a literal quote.
//
// Every field is trimmed of surrounding whitespace, including inside quoted
// fields. That is deliberate and long-standing behaviour of this importer:
// " a " and a both arrive as "a".

// delimiterPriority lists candidate delimiters. Order breaks ties: when two
// candidates appear equally often in the sample, the earlier one wins.
var delimiterPriority = []rune{',', ';', '\t', '|'}

// delimiterSampleLines is how many non-empty lines DetectDelimiter examines.
const delimiterSampleLines = 5

// DetectDelimiter picks the most frequent candidate delimiter across the
// first few non-empty lines. Falls back to comma when nothing matches.
func DetectDelimiter(text string) rune {
	var sample []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		sample = append(sample, line)
		if len(sample) == delimiterSampleLines {
			break
		}
	}

	best := ','
	bestCount := 0
	for _, cand := range delimiterPriority {
		count := 0
		for _, line := range sample {
			count += strings.Count(line, string(cand))
		}
		if count > bestCount {
			best = cand
			bestCount = count
		}
	}
	return best
}

// parseLine splits one line on the delimiter with a single left-to-right
// scan. A quote toggles quoted state; a doubled quote inside a quoted field
// emits one literal quote. The delimiter only terminates a field outside
// quotes. Each field is trimmed.
func parseLine(line string, delimiter rune) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				cur.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == delimiter && !inQuotes:
			fields = append(fields, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(ch)
		}
	}
	fields = append(fields, strings.TrimSpace(cur.String()))
	return fields
}

// ParseCSV turns delimited text into a Dataset. The first non-blank line is
// the header; at most MaxRows data lines are parsed, with the true total
// still reported. Values missing at the end of a short line are null, and a
// duplicate header makes the later column win within each row.
func ParseCSV(content string) (*Dataset, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, newError(KindParse, "CSV file is empty")
	}

	delimiter := DetectDelimiter(content)
	headers := parseLine(lines[0], delimiter)

	hasHeader := false
	for _, h := range headers {
		if h != "" {
			hasHeader = true
			break
		}
	}
	if !hasHeader {
		return nil, newError(KindParse, "No columns detected")
	}

	totalRows := len(lines) - 1
	parseCount := totalRows
	if parseCount > MaxRows {
		parseCount = MaxRows
	}

	rows := make([]RawRow, 0, parseCount)
	for _, line := range lines[1 : parseCount+1] {
		values := parseLine(line, delimiter)
		row := make(RawRow, len(headers))
		for i, h := range headers {
			if i < len(values) {
				v := values[i]
				row[h] = &v
			} else {
				row[h] = nil
			}
		}
		rows = append(rows, row)
	}

	ds := &Dataset{
		Headers:    headers,
		Rows:       rows,
		TotalRows:  totalRows,
		ParsedRows: len(rows),
		Truncated:  totalRows > MaxRows,
	}
	if ds.Truncated {
		ds.Notice = fmt.Sprintf("File has %d rows; only the first %d were loaded", totalRows, MaxRows)
	}
	return ds, nil
}
