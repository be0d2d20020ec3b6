package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Domain classification constants for schema elements.
const (
	DomainFinancial   = "financial"
	DomainGeographic  = "geographic"
	DomainTemporal    = "temporal"
	DomainIdentity    = "identity"
	DomainOperational = "operational"
)

// TableMetadata represents curated business metadata for one table.
// Produced by an external ingestion process and read into snapshots;
// the engine never writes these records.
type TableMetadata struct {
	ID         uuid.UUID `json:"id"`
	SchemaName string    `json:"schema_name"`
	TableName  string    `json:"table_name"`

	// Business annotations
	BusinessPurpose      string `json:"business_purpose,omitempty"`
	SemanticDescription  string `json:"semantic_description,omitempty"`
	DomainClassification string `json:"domain_classification,omitempty"`

	// NaturalLanguageAliases are alternative names users say for this table
	// ("deposits", "money in"). Order is preserved from the source record.
	NaturalLanguageAliases StringList `json:"natural_language_aliases,omitempty"`

	// SearchKeywords is a precomputed, opaque keyword blob maintained by the
	// ingestion pipeline for cheap lexical matching.
	SearchKeywords string `json:"search_keywords,omitempty"`

	// GlossaryTermNames are the glossary terms tagged onto this table.
	GlossaryTermNames StringList `json:"glossary_terms,omitempty"`

	ImportanceScore float64 `json:"importance_score"` // [0,1]
	UsageFrequency  float64 `json:"usage_frequency"`  // [0,1]
	IsActive        bool    `json:"is_active"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// QualifiedName returns the schema-qualified table name, or the bare table
// name when no schema is recorded.
func (t *TableMetadata) QualifiedName() string {
	if t.SchemaName == "" {
		return t.TableName
	}
	return t.SchemaName + "." + t.TableName
}

// ColumnMetadata represents curated business metadata for one column.
type ColumnMetadata struct {
	ID         uuid.UUID `json:"id"`
	SchemaName string    `json:"schema_name"`
	TableName  string    `json:"table_name"`
	ColumnName string    `json:"column_name"`

	BusinessMeaning      string `json:"business_meaning,omitempty"`
	BusinessContext      string `json:"business_context,omitempty"`
	DomainClassification string `json:"domain_classification,omitempty"`

	NaturalLanguageAliases StringList `json:"natural_language_aliases,omitempty"`

	// BusinessMetrics names the metrics this column feeds ("net deposits",
	// "active players"); matched against the detected query intent.
	BusinessMetrics StringList `json:"business_metrics,omitempty"`

	UsageFrequency         float64 `json:"usage_frequency"`           // [0,1]
	SemanticRelevanceScore float64 `json:"semantic_relevance_score"` // [0,1]

	IsKeyColumn     bool `json:"is_key_column"`
	IsSensitiveData bool `json:"is_sensitive_data"`
	IsActive        bool `json:"is_active"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// QualifiedName returns table.column for logging and result identities.
func (c *ColumnMetadata) QualifiedName() string {
	return c.TableName + "." + c.ColumnName
}

// StringList is a JSONB-backed list of strings. The external store keeps
// aliases/terms as JSON arrays; in memory they are plain slices.
type StringList []string

// Scan implements sql.Scanner for reading JSONB from the metadata store.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*l = nil
		return nil
	}

	return json.Unmarshal(bytes, l)
}

// Value implements driver.Valuer for writing JSONB.
func (l StringList) Value() (interface{}, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(l)
}

// ContainsFold reports whether the list contains s, case-insensitively.
func (l StringList) ContainsFold(s string) bool {
	for _, item := range l {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
