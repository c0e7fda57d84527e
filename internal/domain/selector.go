package domain

import (
	"fmt"
	"strings"
)

// StatusSelector is the three-way status criterion applied alongside text search.
type StatusSelector string

const (
	SelectAll       StatusSelector = "all"
	SelectActive    StatusSelector = "active"
	SelectRecovered StatusSelector = "recovered"
)

// DefaultSelector is the selector in effect before the user picks one and
// after filters are cleared.
const DefaultSelector = SelectActive

// ParseStatusSelector maps a query-string value to a StatusSelector.
// An empty value yields DefaultSelector. The Portuguese values used by the
// Portuguese web client (todos, ativos, recuperados) are accepted as aliases.
func ParseStatusSelector(s string) (StatusSelector, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultSelector, nil
	case "all", "todos":
		return SelectAll, nil
	case "active", "ativos":
		return SelectActive, nil
	case "recovered", "recuperados":
		return SelectRecovered, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
}

// Includes reports whether an item with status st passes the selector.
// An unrecognised selector matches nothing.
func (sel StatusSelector) Includes(st Status) bool {
	switch sel {
	case SelectAll:
		return true
	case SelectActive:
		return st == StatusActive
	case SelectRecovered:
		return st == StatusRecovered
	}
	return false
}
