package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// MajorBudgetLine is the root of the budget hierarchy, scoped to a service
type MajorBudgetLine struct {
	ID        uuid.UUID
	NumRef    string
	Code      string // globally unique
	Name      string // globally unique, always stored lowercased
	ServiceID string
	Audit

	BudgetLineNames []BudgetLineName // populated by detail reads only
}

// Validate ensures the major budget line adheres to domain rules
func (m *MajorBudgetLine) Validate() error {
	if strings.TrimSpace(m.Code) == "" {
		return errors.New("major budget line code cannot be empty")
	}
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("major budget line name cannot be empty")
	}
	if m.Name != strings.ToLower(m.Name) {
		return errors.New("major budget line name must be lowercased")
	}
	return nil
}

// BudgetLineName is a named sub-category under a major budget line.
// (Name, MajorBudgetLineID) is unique, Code is globally unique.
type BudgetLineName struct {
	ID                uuid.UUID
	NumRef            string
	Code              string
	Name              string
	MajorBudgetLineID uuid.UUID
	Audit

	MajorBudgetLine *MajorBudgetLine // populated by detail reads only
	BudgetLineOfs   []BudgetLineOf
}

// Validate ensures the budget line name adheres to domain rules
func (n *BudgetLineName) Validate() error {
	if strings.TrimSpace(n.Code) == "" {
		return errors.New("budget line name code cannot be empty")
	}
	if strings.TrimSpace(n.Name) == "" {
		return errors.New("budget line name cannot be empty")
	}
	if n.MajorBudgetLineID == uuid.Nil {
		return errors.New("budget line name must have a major budget line ID")
	}
	return nil
}

// BudgetLineOf is the yearly instance of a budget line name.
// At most one active record exists per (BudgetLineNameID, calendar year of CreatedAt).
type BudgetLineOf struct {
	ID               uuid.UUID
	NumRef           string
	BudgetLineNameID uuid.UUID
	Audit

	BudgetLineName *BudgetLineName // populated by detail reads only
	Breakdowns     []Breakdown
}

// Year is the calendar year the record belongs to
func (l *BudgetLineOf) Year() int {
	return l.CreatedAt.UTC().Year()
}
