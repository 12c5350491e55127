package view

import "strings"

// Card is one titled panel on a page: a table with its commentary, or an
// informational message when the backing data is missing.
type Card struct {
	ID       string
	Title    string
	Subtitle string
	Table    *Table
	// Text is commentary rendered under the table, one paragraph per line.
	Text  string
	Notes []string
	// Empty replaces the table when set.
	Empty string
	// Frame is a standalone HTML document shown in a sandboxed frame.
	Frame string
}

// Missing returns a card that only carries an informational message.
func Missing(title, message string) Card {
	return Card{Title: title, Empty: message}
}

// IsEmpty reports whether the card shows a message instead of data.
func (c Card) IsEmpty() bool {
	return c.Empty != ""
}

// Lines splits Text into its non-empty lines.
func (c Card) Lines() []string {
	var out []string
	for _, ln := range strings.Split(c.Text, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			out = append(out, ln)
		}
	}
	return out
}
