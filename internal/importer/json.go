package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// json.go normalizes a JSON array of objects into the same Dataset shape
// the CSV tokenizer produces. Normalization is all-or-nothing: one non-object
// element rejects the whole file.
//
// Headers are the union of keys across every element, in first-seen order,
// so sparse objects are supported. Decoding walks tokens instead of
// unmarshalling into maps, which would lose key order.

// ParseJSON turns a JSON array of objects into a Dataset. Missing keys,
// nulls and empty strings all become null cells; any other value keeps its
// JSON text form.
func ParseJSON(content []byte) (*Dataset, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, newError(KindParse, "JSON must be an array of objects")
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, newError(KindParse, "JSON must be an array of objects")
	}

	var headers []string
	seen := make(map[string]bool)
	var objects []map[string]*string

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, newError(KindParse, "JSON must be an array of objects")
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return nil, newError(KindParse, "All items in the JSON array must be objects")
		}

		obj := make(map[string]*string)
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, newError(KindParse, "JSON must be an array of objects")
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, newError(KindParse, "JSON must be an array of objects")
			}

			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, newError(KindParse, "JSON must be an array of objects")
			}

			if !seen[key] {
				seen[key] = true
				headers = append(headers, key)
			}
			obj[key] = jsonCellText(raw)
		}
		if _, err := dec.Token(); err != nil { // closing brace
			return nil, newError(KindParse, "JSON must be an array of objects")
		}
		objects = append(objects, obj)
	}
	if _, err := dec.Token(); err != nil { // closing bracket
		return nil, newError(KindParse, "JSON must be an array of objects")
	}
	// The array must be the whole input; anything after it is rejected.
	if _, err := dec.Token(); err != io.EOF {
		return nil, newError(KindParse, "JSON must be an array of objects")
	}

	if len(objects) == 0 {
		return nil, newError(KindParse, "JSON array is empty")
	}
	if len(headers) == 0 {
		return nil, newError(KindParse, "No keys found in JSON objects")
	}

	totalRows := len(objects)
	parseCount := totalRows
	if parseCount > MaxRows {
		parseCount = MaxRows
	}

	rows := make([]RawRow, 0, parseCount)
	for _, obj := range objects[:parseCount] {
		row := make(RawRow, len(headers))
		for _, h := range headers {
			row[h] = obj[h] // nil when the key is absent
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

// jsonCellText converts one JSON value to its cell representation.
// null and "" are null cells; strings are unquoted; everything else
// (numbers, booleans, nested objects and arrays) keeps its JSON text.
func jsonCellText(raw json.RawMessage) *string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil
		}
		if s == "" {
			return nil
		}
		return &s
	}
	s := string(trimmed)
	return &s
}
