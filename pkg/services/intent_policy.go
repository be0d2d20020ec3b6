package services

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/schemalens/schemalens-engine/pkg/models"
)

// CategoryPolicy holds the scoring adjustments for one query category.
// Boost keywords matched against a table's name or purpose add Boost;
// penalty keywords subtract Penalty. These lists are deployment tuning,
// not engine logic, which is why they are data.
type CategoryPolicy struct {
	BoostKeywords   []string `yaml:"boost_keywords"`
	PenaltyKeywords []string `yaml:"penalty_keywords"`
	Boost           float64  `yaml:"boost"`
	Penalty         float64  `yaml:"penalty"`

	// MaxColumnsPerTable tightens the per-table column cap for this
	// category. Zero means use the caller's default.
	MaxColumnsPerTable int `yaml:"max_columns_per_table"`
}

// IntentPolicy maps query categories to scoring adjustments. Immutable
// after load; shared across requests.
type IntentPolicy struct {
	Categories map[string]CategoryPolicy `yaml:"categories"`
}

// DefaultIntentPolicy returns the compiled-in policy. Deployments with
// vertical-specific vocabularies override it with a YAML file.
func DefaultIntentPolicy() *IntentPolicy {
	return &IntentPolicy{
		Categories: map[string]CategoryPolicy{
			models.CategoryFinancial: {
				BoostKeywords:      []string{"deposit", "transaction", "payment", "revenue", "daily action", "player", "customer", "country"},
				PenaltyKeywords:    []string{"audit", "log", "archive", "staging"},
				Boost:              0.15,
				Penalty:            0.10,
				MaxColumnsPerTable: 8,
			},
			models.CategoryGeographic: {
				BoostKeywords:      []string{"country", "region", "city", "state", "location", "territory"},
				PenaltyKeywords:    []string{"audit", "log", "archive"},
				Boost:              0.12,
				Penalty:            0.08,
				MaxColumnsPerTable: 8,
			},
			models.CategoryAnalytical: {
				BoostKeywords: []string{"fact", "summary", "daily", "aggregate", "metric"},
				Boost:         0.10,
				Penalty:       0.05,
			},
		},
	}
}

// LoadIntentPolicy reads a YAML policy file. An empty path returns the
// compiled-in defaults. Categories absent from the file simply have no
// adjustments.
func LoadIntentPolicy(path string) (*IntentPolicy, error) {
	if path == "" {
		return DefaultIntentPolicy(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read intent policy file: %w", err)
	}

	var policy IntentPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("parse intent policy file: %w", err)
	}
	if policy.Categories == nil {
		policy.Categories = make(map[string]CategoryPolicy)
	}

	return &policy, nil
}

// TableAdjustment returns the additive score adjustment for a table under
// the given category, with reason codes. Keywords are matched against the
// table name, its aliases, and its business purpose.
func (p *IntentPolicy) TableAdjustment(category string, table *models.TableMetadata) (float64, []string) {
	cp, ok := p.Categories[category]
	if !ok {
		return 0, nil
	}

	haystack := strings.ToLower(table.QualifiedName() + " " +
		strings.Join(table.NaturalLanguageAliases, " ") + " " +
		table.BusinessPurpose)

	var adjustment float64
	var reasons []string

	for _, kw := range cp.BoostKeywords {
		if strings.Contains(haystack, strings.ToLower(kw)) {
			adjustment += cp.Boost
			reasons = append(reasons, models.ReasonIntentBoost)
			break
		}
	}
	for _, kw := range cp.PenaltyKeywords {
		if strings.Contains(haystack, strings.ToLower(kw)) {
			adjustment -= cp.Penalty
			reasons = append(reasons, models.ReasonIntentPenalty)
			break
		}
	}

	return adjustment, reasons
}

// ColumnCap returns the per-table column cap for a category. Narrowly
// classified categories can tighten the caller's default; the cap never
// grows beyond it.
func (p *IntentPolicy) ColumnCap(category string, defaultCap int) int {
	cp, ok := p.Categories[category]
	if !ok || cp.MaxColumnsPerTable <= 0 {
		return defaultCap
	}
	if cp.MaxColumnsPerTable < defaultCap {
		return cp.MaxColumnsPerTable
	}
	return defaultCap
}
