package export

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"

	"github.com/jonathan/env-validator/internal/types"
)

// MessageSeparator joins the messages of a single issue into one field.
const MessageSeparator = "& "

// Column pairs a record field with its CSV header title.
type Column struct {
	ID    string
	Title string
}

// Columns lists the CSV columns in output order.
var Columns = []Column{
	{ID: "issue_type", Title: "Issue type"},
	{ID: "item", Title: "Item"},
	{ID: "language", Title: "language"},
	{ID: "element", Title: "Element"},
	{ID: "message", Title: "Message"},
}

// Result describes what an export wrote.
type Result struct {
	Records  []types.ExportRecord
	CSVPath  string
	JSONPath string
}

// Written reports whether any file was produced.
func (r *Result) Written() bool {
	return r != nil && r.CSVPath != ""
}

// CSVFilename returns the CSV path for an export base name.
func CSVFilename(baseName string) string {
	return baseName + ".csv"
}

// JSONFilename returns the JSON path for an export base name.
func JSONFilename(baseName string) string {
	return baseName + ".json"
}

// Flatten produces one record per issue, preserving item order and then issue order.
func Flatten(items []types.ValidationItem) []types.ExportRecord {
	records := make([]types.ExportRecord, 0, types.CountIssues(items))
	for _, item := range items {
		for _, issue := range item.Issues {
			records = append(records, types.ExportRecord{
				IssueType: item.IssueType,
				Item:      item.Item.Codename,
				Language:  item.Language.Codename,
				Element:   issue.Element.Codename,
				Message:   strings.Join(issue.Messages, MessageSeparator),
			})
		}
	}
	return records
}

// Export writes <baseName>.csv and then <baseName>.json. An empty item list
// writes nothing. If the CSV write fails the JSON file is not attempted.
func Export(baseName string, items []types.ValidationItem) (*Result, error) {
	result := &Result{}
	if len(items) == 0 {
		return result, nil
	}

	result.Records = Flatten(items)

	csvPath := CSVFilename(baseName)
	if err := WriteCSV(csvPath, result.Records); err != nil {
		return result, err
	}
	result.CSVPath = csvPath

	jsonPath := JSONFilename(baseName)
	if err := WriteJSON(jsonPath, result.Records); err != nil {
		return result, err
	}
	result.JSONPath = jsonPath

	return result, nil
}

// WriteCSV writes records with a header row, quoting every field.
func WriteCSV(path string, records []types.ExportRecord) error {
	var buf bytes.Buffer
	w := newQuotedWriter(&buf)

	header := make([]string, len(Columns))
	for i, col := range Columns {
		header[i] = col.Title
	}
	w.Write(header)

	for _, rec := range records {
		w.Write(recordRow(rec))
	}

	if err := w.Err(); err != nil {
		return &FileWriteError{Path: path, Cause: err}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return &FileWriteError{Path: path, Cause: err}
	}
	return nil
}

// WriteJSON writes records as a single unformatted JSON array.
func WriteJSON(path string, records []types.ExportRecord) error {
	data, err := MarshalRecords(records)
	if err != nil {
		return &FileWriteError{Path: path, Cause: err}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &FileWriteError{Path: path, Cause: err}
	}
	return nil
}

// MarshalRecords encodes records as compact JSON without HTML escaping, so
// the message separator is written as a literal "&".
func MarshalRecords(records []types.ExportRecord) ([]byte, error) {
	if records == nil {
		records = []types.ExportRecord{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// recordRow returns the record's values in column order.
func recordRow(rec types.ExportRecord) []string {
	return []string{rec.IssueType, rec.Item, rec.Language, rec.Element, rec.Message}
}
