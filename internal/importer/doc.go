// Package importer turns an uploaded delimited-text or JSON file, or
// manually entered rows, into a batch of type-checked records ready to be
// written into an existing relational table.
//
// The pipeline is strictly forward:
//
//	file bytes -> ParseCSV | ParseJSON -> Dataset
//	Dataset headers -> AutoMatchColumns -> Mapping
//	Mapping -> ValidateMapping -> ApplyMapping -> RowBuffer
//	RowBuffer -> ValidateAllRows (cell types + duplicate-key sweep)
//	Session.Commit -> Inserter collaborator
//
// The package never talks to the database itself: schema metadata comes in
// as a schema.Table, and validated batches go out through the Inserter
// interface. All parsing and validation is synchronous, bounded by MaxRows
// and MaxFileSize.
package importer
