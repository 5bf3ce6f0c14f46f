// Package columnar projects a collection's documents into a trivially-typed
// row batch the SQL engine can register as a table.
package columnar

import (
	"encoding/json"

	"github.com/shailendrapspundhir/aidb/internal/docstore"
)

// Row is one projected document: {id, text, category, vector}, with vector
// rendered as a JSON-stringified array to keep the projected schema
// trivially typed for the SQL engine — the true vector remains accessible
// through the document store and vector index.
type Row struct {
	ID       string
	Text     string
	Category string
	Vector   string
}

// RowBatch is the fixed-schema projection of a collection; column names are
// implicit in Row's fields.
type RowBatch struct {
	Rows []Row
}

// ProjectCollectionToRowBatch builds the {id, text, category, vector} batch
// from docs. A zero-document collection emits a single-row sentinel with
// all empty strings and "[]" for the vector column, so the registered table
// is never empty. A query that does not filter out the empty id returns
// that sentinel row.
func ProjectCollectionToRowBatch(docs []docstore.Document) RowBatch {
	if len(docs) == 0 {
		return RowBatch{Rows: []Row{{Vector: "[]"}}}
	}

	rows := make([]Row, len(docs))
	for i, doc := range docs {
		rows[i] = Row{
			ID:       doc.ID,
			Text:     doc.Text,
			Category: doc.Category,
			Vector:   vectorJSON(doc.Vector),
		}
	}
	return RowBatch{Rows: rows}
}

func vectorJSON(vector []float32) string {
	if vector == nil {
		vector = []float32{}
	}
	data, err := json.Marshal(vector)
	if err != nil {
		return "[]"
	}
	return string(data)
}
