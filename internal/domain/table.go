package domain

import (
	"fmt"
	"strings"
)

// Table is an untyped tabular upload for the explorer.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Index finds a column by exact name, then case-insensitively.
func (t Table) Index(name string) (int, error) {
	for i, c := range t.Columns {
		if c == name {
			return i, nil
		}
	}
	for i, c := range t.Columns {
		if strings.EqualFold(strings.TrimSpace(c), strings.TrimSpace(name)) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
}

// Cell returns "" for short rows.
func (t Table) Cell(row, col int) string {
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}
