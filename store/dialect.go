package store

import (
	"fmt"
	"strings"
)

// dialect defines an interface for generating database-specific SQL.
type dialect interface {
	// createTableSQL returns the SQL for creating the 'quads' table.
	createTableSQL() string
	// createIndexSQL returns the index statements, executed in order.
	createIndexSQL() []string
	// addSQL returns the SQL for inserting a quad with conflict handling.
	addSQL() string
	// removeSQL returns the SQL for deleting a quad by its hash.
	removeSQL() string
	// containsSQL returns the SQL for checking if a quad exists by its hash.
	containsSQL() string
	// findBaseSQL returns the initial SELECT statement for Find.
	findBaseSQL() string
	// batchInsertSQL builds a multi-row INSERT statement for a given number of rows.
	batchInsertSQL(numRows int) string
	// placeholder returns the bind marker for the next parameter.
	placeholder(params []any) string
}

// quadColumns lists the columns every INSERT writes, in order.
const quadColumns = "quad_hash, graph, subject, predicate, object"

// --- SQLite Dialect ---

type sqliteDialect struct{}

func (d sqliteDialect) createTableSQL() string {
	return `
		CREATE TABLE IF NOT EXISTS quads (
			quad_hash BIGINT NOT NULL,
			graph TEXT NOT NULL,
			subject TEXT NOT NULL,
			predicate TEXT NOT NULL,
			object TEXT NOT NULL,
			PRIMARY KEY(quad_hash)
		) WITHOUT ROWID;
	`
}

func (d sqliteDialect) createIndexSQL() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_quads_graph_predicate ON quads(graph, predicate);`,
		`CREATE INDEX IF NOT EXISTS idx_quads_graph_subject ON quads(graph, subject);`,
	}
}

func (d sqliteDialect) addSQL() string {
	return `
		INSERT INTO quads (` + quadColumns + `)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`
}

func (d sqliteDialect) removeSQL() string {
	return `DELETE FROM quads WHERE quad_hash = ?`
}

func (d sqliteDialect) containsSQL() string {
	return `SELECT COUNT(*) FROM quads WHERE quad_hash = ?`
}

func (d sqliteDialect) findBaseSQL() string {
	return `SELECT graph, subject, predicate, object FROM quads WHERE 1 = 1`
}

func (d sqliteDialect) batchInsertSQL(numRows int) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO quads (" + quadColumns + ") VALUES ")
	for i := 0; i < numRows; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?,?,?,?,?)")
	}
	sb.WriteString(" ON CONFLICT DO NOTHING")
	return sb.String()
}

func (d sqliteDialect) placeholder([]any) string { return "?" }

// --- PostgreSQL Dialect ---

type postgresDialect struct{}

func (d postgresDialect) createTableSQL() string {
	return `
		CREATE TABLE IF NOT EXISTS quads (
			quad_hash BIGINT NOT NULL,
			graph TEXT NOT NULL,
			subject TEXT NOT NULL,
			predicate TEXT NOT NULL,
			object TEXT NOT NULL,
			PRIMARY KEY(quad_hash)
		);
	`
}

func (d postgresDialect) createIndexSQL() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_quads_graph_predicate ON quads(graph, predicate);`,
		`CREATE INDEX IF NOT EXISTS idx_quads_graph_subject ON quads(graph, subject);`,
	}
}

func (d postgresDialect) addSQL() string {
	return `
		INSERT INTO quads (` + quadColumns + `)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (quad_hash) DO NOTHING
	`
}

func (d postgresDialect) removeSQL() string {
	return `DELETE FROM quads WHERE quad_hash = $1`
}

func (d postgresDialect) containsSQL() string {
	return `SELECT COUNT(*) FROM quads WHERE quad_hash = $1`
}

func (d postgresDialect) findBaseSQL() string {
	return `SELECT graph, subject, predicate, object FROM quads WHERE 1 = 1`
}

func (d postgresDialect) batchInsertSQL(numRows int) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO quads (" + quadColumns + ") VALUES ")
	paramIndex := 1
	for i := 0; i < numRows; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d)",
			paramIndex, paramIndex+1, paramIndex+2, paramIndex+3, paramIndex+4)
		paramIndex += 5
	}
	// PostgreSQL requires specifying the conflict target column(s).
	sb.WriteString(" ON CONFLICT (quad_hash) DO NOTHING")
	return sb.String()
}

func (d postgresDialect) placeholder(params []any) string {
	return fmt.Sprintf("$%d", len(params)+1)
}
