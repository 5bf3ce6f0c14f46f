// Package docstore implements CRUD over JSON documents, keeping the
// docs/metadata/vectors sub-stores in sync and fronting reads with a
// doccache.Cache.
package docstore

import (
	"encoding/json"
	"sync"

	"github.com/shailendrapspundhir/aidb/internal/aidberr"
	"github.com/shailendrapspundhir/aidb/internal/doccache"
	"github.com/shailendrapspundhir/aidb/internal/kvstore"
)

// DocStore wraps a *kvstore.Store and a *doccache.Cache, implementing the
// document CRUD surface.
type DocStore struct {
	store *kvstore.Store
	cache *doccache.Cache

	genMu       sync.Mutex
	generations map[string]uint64
}

// New wraps store and cache as a DocStore.
func New(store *kvstore.Store, cache *doccache.Cache) *DocStore {
	return &DocStore{
		store:       store,
		cache:       cache,
		generations: make(map[string]uint64),
	}
}

// Generation returns the current write generation for collectionID, used by
// internal/planner to decide whether a cached vector index build is stale.
func (d *DocStore) Generation(collectionID string) uint64 {
	d.genMu.Lock()
	defer d.genMu.Unlock()
	return d.generations[collectionID]
}

func (d *DocStore) bumpGeneration(collectionID string) {
	d.genMu.Lock()
	defer d.genMu.Unlock()
	d.generations[collectionID]++
}

// InsertDoc writes doc's JSON, columnar metadata batch, and vector bytes
// under the same compound key, and inserts it into the cache.
func (d *DocStore) InsertDoc(collectionID string, doc Document) error {
	return d.writeDoc(collectionID, doc)
}

// UpdateDoc has identical upsert semantics to InsertDoc; the cache entry is
// replaced.
func (d *DocStore) UpdateDoc(collectionID string, doc Document) error {
	return d.writeDoc(collectionID, doc)
}

func (d *DocStore) writeDoc(collectionID string, doc Document) error {
	key := CompoundKey(collectionID, doc.ID)

	docBytes, err := json.Marshal(doc)
	if err != nil {
		return aidberr.BadInput("docstore.writeDoc", err)
	}
	if err := d.store.Tree(kvstore.TreeDocs).Insert([]byte(key), docBytes); err != nil {
		return err
	}

	metaBytes, err := encodeMetadataBatch(doc.ID, doc.Text)
	if err != nil {
		return aidberr.BadInput("docstore.writeDoc", err)
	}
	if err := d.store.Tree(kvstore.TreeMetadata).Insert([]byte(key), metaBytes); err != nil {
		return err
	}

	if err := d.store.Tree(kvstore.TreeVectors).Insert([]byte(key), encodeVector(doc.Vector)); err != nil {
		return err
	}

	d.cache.Insert(key, toCached(doc))
	d.bumpGeneration(collectionID)
	return nil
}

// GetDoc returns the document at (collectionID, id), dropping the
// from-cache flag.
func (d *DocStore) GetDoc(collectionID, id string) (Document, error) {
	doc, _, err := d.GetDocWithCacheStatus(collectionID, id)
	return doc, err
}

// GetDocWithCacheStatus checks the cache first; on a miss it reads from
// docs, hydrates, inserts into the cache, and reports from_cache=false.
// Fails aidberr.KindNotFound if absent from both.
func (d *DocStore) GetDocWithCacheStatus(collectionID, id string) (Document, bool, error) {
	key := CompoundKey(collectionID, id)

	if cached, ok := d.cache.Get(key); ok {
		return fromCached(cached), true, nil
	}

	data, ok, err := d.store.Tree(kvstore.TreeDocs).Get([]byte(key))
	if err != nil {
		return Document{}, false, err
	}
	if !ok {
		return Document{}, false, aidberr.NotFound("docstore.GetDocWithCacheStatus", nil)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, false, aidberr.BadInput("docstore.GetDocWithCacheStatus", err)
	}

	d.cache.Insert(key, toCached(doc))
	return doc, false, nil
}

// DeleteDoc removes the document from docs, metadata, vectors, and the
// cache. Idempotent.
func (d *DocStore) DeleteDoc(collectionID, id string) error {
	key := CompoundKey(collectionID, id)

	if err := d.store.Tree(kvstore.TreeDocs).Remove([]byte(key)); err != nil {
		return err
	}
	if err := d.store.Tree(kvstore.TreeMetadata).Remove([]byte(key)); err != nil {
		return err
	}
	if err := d.store.Tree(kvstore.TreeVectors).Remove([]byte(key)); err != nil {
		return err
	}
	d.cache.Remove(key)
	d.bumpGeneration(collectionID)
	return nil
}

// GetDocsInCollection returns every document in collectionID, in the KV
// substrate's ascending key order.
func (d *DocStore) GetDocsInCollection(collectionID string) ([]Document, error) {
	prefix := collectionID + "/"
	kvs, err := d.store.Tree(kvstore.TreeDocs).ScanPrefix([]byte(prefix))
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(kvs))
	for _, kv := range kvs {
		var doc Document
		if err := json.Unmarshal(kv.Value, &doc); err != nil {
			return nil, aidberr.BadInput("docstore.GetDocsInCollection", err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// GetVectorsInCollection returns every (doc_id, vector) pair in
// collectionID, decoded from the vectors sub-store.
func (d *DocStore) GetVectorsInCollection(collectionID string) ([]VectorEntry, error) {
	prefix := collectionID + "/"
	kvs, err := d.store.Tree(kvstore.TreeVectors).ScanPrefix([]byte(prefix))
	if err != nil {
		return nil, err
	}

	entries := make([]VectorEntry, 0, len(kvs))
	for _, kv := range kvs {
		id := string(kv.Key[len(prefix):])
		entries = append(entries, VectorEntry{ID: id, Vector: decodeVector(kv.Value)})
	}
	return entries, nil
}

// DeleteCollection prefix-scan-deletes every docs/metadata/vectors entry for
// collectionID and purges matching cache entries. It does not touch the
// Collection entity or its parent Environment's child list — that half of
// the delete_collection cascade is the catalog's concern, orchestrated by
// the storage façade (see DESIGN.md).
func (d *DocStore) DeleteCollection(collectionID string) error {
	prefix := []byte(collectionID + "/")

	if _, err := d.store.Tree(kvstore.TreeDocs).RemovePrefix(prefix); err != nil {
		return err
	}
	if _, err := d.store.Tree(kvstore.TreeMetadata).RemovePrefix(prefix); err != nil {
		return err
	}
	if _, err := d.store.Tree(kvstore.TreeVectors).RemovePrefix(prefix); err != nil {
		return err
	}
	d.cache.RemovePrefix(string(prefix))
	d.bumpGeneration(collectionID)
	return nil
}

func toCached(doc Document) doccache.CachedDoc {
	return doccache.CachedDoc{
		ID:       doc.ID,
		Text:     doc.Text,
		Category: doc.Category,
		Vector:   doc.Vector,
		Metadata: []byte(doc.Metadata),
	}
}

func fromCached(c doccache.CachedDoc) Document {
	var meta json.RawMessage
	if c.Metadata != nil {
		meta = json.RawMessage(append([]byte(nil), c.Metadata...))
	}
	return Document{
		ID:       c.ID,
		Text:     c.Text,
		Category: c.Category,
		Vector:   c.Vector,
		Metadata: meta,
	}
}
