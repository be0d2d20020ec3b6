package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGlossaryTerm_Matches(t *testing.T) {
	term := &GlossaryTerm{
		Term:     "GGR",
		Synonyms: StringList{"gross gaming revenue", "gross revenue"},
	}

	assert.True(t, term.Matches("ggr"))
	assert.True(t, term.Matches("GGR"))
	assert.True(t, term.Matches("Gross Gaming Revenue"))
	assert.False(t, term.Matches("net revenue"))
	assert.False(t, term.Matches(""))
}
