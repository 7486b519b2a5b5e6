package export

import (
	"encoding/json"
	"io"
)

// JSONExporter exports conversations in JSON format (pretty-printed).
type JSONExporter struct{}

// Export writes doc as indented JSON.
func (e *JSONExporter) Export(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Extension returns the file extension for this format.
func (e *JSONExporter) Extension() string {
	return "json"
}
