package types

// ExportRecord is one flattened issue occurrence, as written to the export files.
type ExportRecord struct {
	IssueType string `json:"issue_type"`
	Item      string `json:"item"`
	Language  string `json:"language"`
	Element   string `json:"element"`
	Message   string `json:"message"`
}
