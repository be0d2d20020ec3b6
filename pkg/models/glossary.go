package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// GlossaryTerm represents a named business concept mapped to schema elements.
// Stored externally; read into snapshots for term extraction and context
// assembly.
type GlossaryTerm struct {
	ID         uuid.UUID  `json:"id"`
	Term       string     `json:"term"`
	Definition string     `json:"definition"`
	Synonyms   StringList `json:"synonyms,omitempty"`
	Category   string     `json:"category,omitempty"`
	Domain     string     `json:"domain,omitempty"`

	// MappedTables holds qualified table names; MappedColumns holds
	// table.column identities.
	MappedTables  StringList `json:"mapped_tables,omitempty"`
	MappedColumns StringList `json:"mapped_columns,omitempty"`

	ConfidenceScore float64 `json:"confidence_score"` // [0,1]

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Matches reports whether the term or one of its synonyms equals s,
// case-insensitively.
func (g *GlossaryTerm) Matches(s string) bool {
	if s == "" {
		return false
	}
	if strings.EqualFold(g.Term, s) {
		return true
	}
	return g.Synonyms.ContainsFold(s)
}
