// Package datasource defines catalog discovery adapters for relational
// databases. Discovery runs on the snapshot-refresh path, never per query.
package datasource

import "context"

// SchemaDiscoverer discovers physical schema from a relational catalog.
// Each implementation owns its connection and must be closed when done.
type SchemaDiscoverer interface {
	// DiscoverTables returns all user tables (excludes system schemas).
	DiscoverTables(ctx context.Context) ([]TableInfo, error)

	// DiscoverColumns returns columns for a specific table.
	DiscoverColumns(ctx context.Context, schemaName, tableName string) ([]ColumnInfo, error)

	// DiscoverForeignKeys returns all foreign key constraints.
	DiscoverForeignKeys(ctx context.Context) ([]ForeignKeyInfo, error)

	// SupportsForeignKeys returns true if the database exposes FK
	// constraints in its catalog.
	SupportsForeignKeys() bool

	// Close releases the connection.
	Close() error
}
