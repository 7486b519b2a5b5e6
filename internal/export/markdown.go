package export

import (
	"fmt"
	"io"
	"strings"
)

// MarkdownExporter writes each turn as "**ROLE**: content", separated by a
// blank line.
type MarkdownExporter struct{}

// Export writes doc as Markdown.
func (e *MarkdownExporter) Export(w io.Writer, doc Document) error {
	parts := make([]string, len(doc.Messages))
	for i, m := range doc.Messages {
		parts[i] = fmt.Sprintf("**%s**: %s", strings.ToUpper(string(m.Role)), m.Content)
	}
	_, err := io.WriteString(w, strings.Join(parts, "\n\n"))
	return err
}

// Extension returns the file extension for this format.
func (e *MarkdownExporter) Extension() string {
	return "md"
}
