package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableMetadata_QualifiedName(t *testing.T) {
	qualified := &TableMetadata{SchemaName: "finance", TableName: "deposits"}
	assert.Equal(t, "finance.deposits", qualified.QualifiedName())

	bare := &TableMetadata{TableName: "deposits"}
	assert.Equal(t, "deposits", bare.QualifiedName())
}

func TestColumnMetadata_QualifiedName(t *testing.T) {
	col := &ColumnMetadata{TableName: "deposits", ColumnName: "amount"}
	assert.Equal(t, "deposits.amount", col.QualifiedName())
}

func TestStringList_ScanJSONB(t *testing.T) {
	var l StringList
	require.NoError(t, l.Scan([]byte(`["deposits","money in"]`)))
	assert.Equal(t, StringList{"deposits", "money in"}, l)

	var fromString StringList
	require.NoError(t, fromString.Scan(`["a"]`))
	assert.Equal(t, StringList{"a"}, fromString)

	var fromNil StringList
	require.NoError(t, fromNil.Scan(nil))
	assert.Nil(t, fromNil)
}

func TestStringList_ScanInvalidJSON(t *testing.T) {
	var l StringList
	assert.Error(t, l.Scan([]byte(`{not json`)))
}

func TestStringList_Value(t *testing.T) {
	v, err := StringList{"a", "b"}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(v.([]byte)))

	// nil serializes as an empty array, not SQL NULL.
	v, err = StringList(nil).Value()
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(v.([]byte)))
}

func TestStringList_ContainsFold(t *testing.T) {
	l := StringList{"Deposits", "Money In"}

	assert.True(t, l.ContainsFold("deposits"))
	assert.True(t, l.ContainsFold("MONEY IN"))
	assert.False(t, l.ContainsFold("withdrawals"))
	assert.False(t, StringList(nil).ContainsFold("anything"))
}
