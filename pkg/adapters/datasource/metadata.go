package datasource

// TableInfo represents a discovered database table.
type TableInfo struct {
	SchemaName string
	TableName  string
	RowCount   int64
}

// ColumnInfo represents a discovered database column.
type ColumnInfo struct {
	ColumnName      string
	DataType        string
	IsNullable      bool
	IsPrimaryKey    bool
	OrdinalPosition int
}

// ForeignKeyInfo represents a discovered foreign key constraint.
type ForeignKeyInfo struct {
	ConstraintName string
	SourceSchema   string
	SourceTable    string
	SourceColumn   string
	TargetSchema   string
	TargetTable    string
	TargetColumn   string
	IsEnabled      bool
}
