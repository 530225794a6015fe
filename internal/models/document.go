// Package models contains the domain types exchanged with the structured data chat API.
package models

// Allowed upload extensions, lower case and without the leading dot.
var AllowedExtensions = []string{"xlsx", "xls", "csv"}

// MaxUploadBytes is the largest file the API accepts (10 MiB).
const MaxUploadBytes int64 = 10 * 1024 * 1024

// StructuredDocument is a tabular dataset stored by the API.
type StructuredDocument struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	UploadDate string `json:"upload_date"`
	RowCount   int    `json:"row_count"`
}

// UploadResult is the response of a successful upload.
type UploadResult struct {
	StructuredDocument
	DataPreview []map[string]any `json:"data_preview,omitempty"`
}

// FindDocument returns the document with the given id from docs.
func FindDocument(docs []StructuredDocument, id string) (StructuredDocument, bool) {
	for _, d := range docs {
		if d.ID == id {
			return d, true
		}
	}
	return StructuredDocument{}, false
}
