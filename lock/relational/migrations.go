package relational

import (
	"strings"
)

// CreateTableSQL returns the DDL for creating the lock table in dialect d.
func CreateTableSQL(d Dialect, table string) string {
	return strings.Join(d.CreateTable(table), ";\n") + ";"
}

// indexName derives the created_at index name. Indexes live in the schema
// of their table, so a schema qualifier is folded into the name.
func indexName(table string) string {
	return "idx_" + strings.ReplaceAll(table, ".", "_") + "_created_at"
}
