// Package planner implements the hybrid query planner that composes ANN
// candidates, a SQL predicate, and document-store hydration into a single
// filtered, hydrated result set with per-result cache-hit flags.
package planner

import (
	"sync"

	"github.com/shailendrapspundhir/aidb/internal/aidberr"
	"github.com/shailendrapspundhir/aidb/internal/columnar"
	"github.com/shailendrapspundhir/aidb/internal/docstore"
	"github.com/shailendrapspundhir/aidb/internal/sqlengine"
	"github.com/shailendrapspundhir/aidb/internal/vectorindex"
)

// oversampleFactor is the "2 * top_k" ANN oversampling constant, a guard
// against the SQL predicate culling the ANN candidate set.
const oversampleFactor = 2

// Result pairs a hydrated Document with whether it came from the doc cache.
type Result struct {
	Document  docstore.Document
	FromCache bool
}

// Planner composes a DocStore with an ephemeral per-collection vector index
// cache keyed by write generation.
type Planner struct {
	docs *docstore.DocStore

	mu      sync.Mutex
	built   map[string]*vectorindex.Index
	builtAt map[string]uint64
}

// New wraps docs as a Planner.
func New(docs *docstore.DocStore) *Planner {
	return &Planner{
		docs:    docs,
		built:   make(map[string]*vectorindex.Index),
		builtAt: make(map[string]uint64),
	}
}

// indexFor returns a vector index for collectionID, reusing a cached build
// if the docstore's write generation for that collection hasn't advanced.
func (p *Planner) indexFor(collectionID string) (*vectorindex.Index, error) {
	gen := p.docs.Generation(collectionID)

	p.mu.Lock()
	if idx, ok := p.built[collectionID]; ok && p.builtAt[collectionID] == gen {
		p.mu.Unlock()
		return idx, nil
	}
	p.mu.Unlock()

	entries, err := p.docs.GetVectorsInCollection(collectionID)
	if err != nil {
		return nil, err
	}
	idx := vectorindex.Build(entries)

	p.mu.Lock()
	p.built[collectionID] = idx
	p.builtAt[collectionID] = gen
	p.mu.Unlock()

	return idx, nil
}

// ExecuteSQL projects collectionID to a row batch and runs query against it,
// returning (columns, rows).
func (p *Planner) ExecuteSQL(collectionID, query string) ([]string, [][]string, error) {
	docs, err := p.docs.GetDocsInCollection(collectionID)
	if err != nil {
		return nil, nil, err
	}
	batch := columnar.ProjectCollectionToRowBatch(docs)
	return sqlengine.Execute(batch, query)
}

// HybridQuery runs a five-step algorithm: build/reuse a vector index,
// compute (but do not splice into SQL) 2*topK ANN candidates, compose and
// execute a SELECT against the collection's row-batch projection, hydrate
// each resulting id through the document store preserving its cache-hit
// flag, and truncate to topK. Result order follows SQL-yield order, not the
// ANN distance order of the discarded candidate set (see DESIGN.md).
func (p *Planner) HybridQuery(collectionID, sqlFilter string, queryVector []float32, topK int) ([]Result, error) {
	if topK <= 0 {
		return nil, nil
	}

	idx, err := p.indexFor(collectionID)
	if err != nil {
		return nil, err
	}
	_ = idx.Search(queryVector, oversampleFactor*topK) // computed, deliberately unused downstream

	query := "SELECT * FROM docs"
	if sqlFilter != "" {
		query += " WHERE " + sqlFilter
	}

	docs, err := p.docs.GetDocsInCollection(collectionID)
	if err != nil {
		return nil, err
	}
	batch := columnar.ProjectCollectionToRowBatch(docs)

	columns, rows, err := sqlengine.Execute(batch, query)
	if err != nil {
		return nil, err
	}

	idCol := columnIndex(columns, "id")
	if idCol < 0 {
		return nil, aidberr.Internal("planner.HybridQuery", nil)
	}

	var results []Result
	for _, row := range rows {
		id := row[idCol]
		doc, fromCache, err := p.docs.GetDocWithCacheStatus(collectionID, id)
		if err != nil {
			if aidberr.Is(err, aidberr.KindNotFound) {
				continue
			}
			return nil, err
		}
		results = append(results, Result{Document: doc, FromCache: fromCache})
		if len(results) >= topK {
			break
		}
	}

	return results, nil
}

func columnIndex(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}
