package importer

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pcrowther/gridfill/internal/schema"
)

// typecheck.go validates one cell's text against its column's declared type.
// Dispatch is by substring of the declared type name, tested in a fixed
// order, so "bigint" and "serial8" both land in the integer family and any
// type this importer has never heard of is accepted unchecked.

var (
	integerPattern   = regexp.MustCompile(`^-?\d+$`)
	numericPattern   = regexp.MustCompile(`^-?\d+\.?\d*$`)
	datePattern      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	uuidPattern      = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// boolWords are the accepted spellings of a boolean cell, matched
// case-insensitively.
var boolWords = map[string]bool{
	"true": true, "false": true,
	"t": true, "f": true,
	"1": true, "0": true,
	"yes": true, "no": true,
	"y": true, "n": true,
}

// ValidateValue checks one cell against its column's declared type family.
// A nil or blank value is valid iff the column is nullable or is a primary
// key; primary keys left blank are presumed server-generated.
func ValidateValue(value *string, col schema.Column) error {
	text := ""
	if value != nil {
		text = strings.TrimSpace(*value)
	}
	if text == "" {
		if col.Nullable || col.IsPrimaryKey {
			return nil
		}
		return newError(KindRowValidation, "value is required")
	}

	declared := strings.ToLower(col.Type)
	switch {
	case strings.Contains(declared, "int") || strings.Contains(declared, "serial"):
		if !integerPattern.MatchString(text) {
			return newError(KindRowValidation, "must be a whole number")
		}
	case strings.Contains(declared, "numeric") || strings.Contains(declared, "decimal") ||
		strings.Contains(declared, "float") || strings.Contains(declared, "double"):
		if !numericPattern.MatchString(text) {
			return newError(KindRowValidation, "must be a number")
		}
	case strings.Contains(declared, "bool"):
		if !boolWords[strings.ToLower(text)] {
			return newError(KindRowValidation, "must be yes/no, true/false, or 1/0")
		}
	case strings.Contains(declared, "timestamp") || strings.Contains(declared, "datetime"):
		if !timestampPattern.MatchString(text) {
			return newError(KindRowValidation, "must start with a YYYY-MM-DD date")
		}
	case strings.Contains(declared, "date"):
		if !datePattern.MatchString(text) {
			return newError(KindRowValidation, "must be a date in YYYY-MM-DD format")
		}
	case strings.Contains(declared, "uuid"):
		if !uuidPattern.MatchString(text) {
			return newError(KindRowValidation, "must be a UUID like 123e4567-e89b-12d3-a456-426614174000")
		}
	case strings.Contains(declared, "json"):
		if !json.Valid([]byte(text)) {
			return newError(KindRowValidation, "must be valid JSON")
		}
	}
	return nil
}
