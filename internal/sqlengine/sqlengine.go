// Package sqlengine registers a projected columnar batch as a SQL table and
// executes a caller-supplied SELECT against it.
package sqlengine

import (
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/shailendrapspundhir/aidb/internal/aidberr"
	"github.com/shailendrapspundhir/aidb/internal/columnar"
)

const createTableSQL = `CREATE TABLE docs (id TEXT, text TEXT, category TEXT, vector TEXT)`

// Execute opens a fresh in-memory SQLite connection, registers batch under
// the table name "docs", and runs query against it, returning the result
// set's column names and its rows as strings (columns taken from the result
// set, not the fixed docs schema, since SELECT may project/alias arbitrarily).
//
// Only SELECT is permitted — anything else is rejected as
// aidberr.KindBadInput before it reaches SQLite, so mutating statements
// propagate as a bad-request error rather than a SQL-level failure.
func Execute(batch columnar.RowBatch, query string) (columns []string, rows [][]string, err error) {
	if !isSelect(query) {
		return nil, nil, aidberr.BadInput("sqlengine.Execute", nil)
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, nil, aidberr.IoFailure("sqlengine.Execute", err)
	}
	defer db.Close()

	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, nil, aidberr.Internal("sqlengine.Execute", err)
	}

	if err := bulkInsert(db, batch); err != nil {
		return nil, nil, err
	}

	return runQuery(db, query)
}

func isSelect(query string) bool {
	trimmed := strings.TrimSpace(query)
	return len(trimmed) >= 6 && strings.EqualFold(trimmed[:6], "select")
}

func bulkInsert(db *sql.DB, batch columnar.RowBatch) error {
	tx, err := db.Begin()
	if err != nil {
		return aidberr.Internal("sqlengine.bulkInsert", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO docs (id, text, category, vector) VALUES (?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return aidberr.Internal("sqlengine.bulkInsert", err)
	}
	defer stmt.Close()

	for _, row := range batch.Rows {
		if _, err := stmt.Exec(row.ID, row.Text, row.Category, row.Vector); err != nil {
			_ = tx.Rollback()
			return aidberr.Internal("sqlengine.bulkInsert", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return aidberr.Internal("sqlengine.bulkInsert", err)
	}
	return nil
}

func runQuery(db *sql.DB, query string) ([]string, [][]string, error) {
	rows, err := db.Query(query)
	if err != nil {
		return nil, nil, aidberr.BadInput("sqlengine.runQuery", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, aidberr.Internal("sqlengine.runQuery", err)
	}

	var out [][]string
	scanTargets := make([]interface{}, len(columns))
	rawValues := make([]sql.NullString, len(columns))
	for i := range rawValues {
		scanTargets[i] = &rawValues[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, nil, aidberr.Internal("sqlengine.runQuery", err)
		}
		record := make([]string, len(columns))
		for i, v := range rawValues {
			record[i] = v.String
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, aidberr.Internal("sqlengine.runQuery", err)
	}

	return columns, out, nil
}
