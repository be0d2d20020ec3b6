package datasource

import "context"

// MockSchemaDiscoverer is a configurable mock for testing refresh
// reconciliation. Set the function fields to control behavior in tests.
type MockSchemaDiscoverer struct {
	DiscoverTablesFunc      func(ctx context.Context) ([]TableInfo, error)
	DiscoverColumnsFunc     func(ctx context.Context, schemaName, tableName string) ([]ColumnInfo, error)
	DiscoverForeignKeysFunc func(ctx context.Context) ([]ForeignKeyInfo, error)
	SupportsForeignKeysFunc func() bool
	CloseFunc               func() error

	// Call tracking for verification
	DiscoverTablesCalls      int
	DiscoverColumnsCalls     int
	DiscoverForeignKeysCalls int
	CloseCalls               int
}

func (m *MockSchemaDiscoverer) DiscoverTables(ctx context.Context) ([]TableInfo, error) {
	m.DiscoverTablesCalls++
	if m.DiscoverTablesFunc != nil {
		return m.DiscoverTablesFunc(ctx)
	}
	return nil, nil
}

func (m *MockSchemaDiscoverer) DiscoverColumns(ctx context.Context, schemaName, tableName string) ([]ColumnInfo, error) {
	m.DiscoverColumnsCalls++
	if m.DiscoverColumnsFunc != nil {
		return m.DiscoverColumnsFunc(ctx, schemaName, tableName)
	}
	return nil, nil
}

func (m *MockSchemaDiscoverer) DiscoverForeignKeys(ctx context.Context) ([]ForeignKeyInfo, error) {
	m.DiscoverForeignKeysCalls++
	if m.DiscoverForeignKeysFunc != nil {
		return m.DiscoverForeignKeysFunc(ctx)
	}
	return nil, nil
}

func (m *MockSchemaDiscoverer) SupportsForeignKeys() bool {
	if m.SupportsForeignKeysFunc != nil {
		return m.SupportsForeignKeysFunc()
	}
	return true
}

func (m *MockSchemaDiscoverer) Close() error {
	m.CloseCalls++
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

var _ SchemaDiscoverer = (*MockSchemaDiscoverer)(nil)
