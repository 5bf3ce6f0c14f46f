// Package storage is the external interface: the sole public surface the
// RPC/HTTP façades call into. It composes the KV substrate, catalog,
// document store, and hybrid planner behind one handle.
package storage

import (
	"go.uber.org/zap"

	"github.com/shailendrapspundhir/aidb/internal/catalog"
	"github.com/shailendrapspundhir/aidb/internal/columnar"
	"github.com/shailendrapspundhir/aidb/internal/config"
	"github.com/shailendrapspundhir/aidb/internal/doccache"
	"github.com/shailendrapspundhir/aidb/internal/docstore"
	"github.com/shailendrapspundhir/aidb/internal/kvstore"
	"github.com/shailendrapspundhir/aidb/internal/planner"
)

// Storage is the opened storage engine: one bbolt database file on disk (at
// the path given to Open, which is a file, not a directory), fronted by
// the catalog, document store, and hybrid planner. Cheap to copy/share — it
// holds only pointers to the shared *bbolt.DB and doc cache — and safe for
// concurrent use from multiple goroutines.
type Storage struct {
	kv      *kvstore.Store
	catalog *catalog.Catalog
	docs    *docstore.DocStore
	planner *planner.Planner
	logger  *zap.Logger
}

// Option configures a Storage at Open time.
type Option func(*Storage)

// WithLogger injects a *zap.Logger, kept on the Storage. Defaults to
// zap.NewNop(). No operation of the core writes to it: a recovered cache
// panic degrading to a miss, for example, is not logged.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Storage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open opens (creating if absent) the storage engine at path. Cache
// capacity is resolved from AIDB_CACHE_MB via internal/config (default 64
// MiB on absence or parse failure).
func Open(path string, opts ...Option) (*Storage, error) {
	kv, err := kvstore.Open(path)
	if err != nil {
		return nil, err
	}

	cfg := config.Load()
	cache := doccache.New(cfg.CacheMB)
	docs := docstore.New(kv, cache)

	s := &Storage{
		kv:      kv,
		catalog: catalog.New(kv),
		docs:    docs,
		planner: planner.New(docs),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the underlying database file.
func (s *Storage) Close() error {
	return s.kv.Close()
}

// --- Catalog CRUD ---

func (s *Storage) CreateUser(u catalog.User) error { return s.catalog.CreateUser(u) }
func (s *Storage) GetUser(username string) (*catalog.User, error) { return s.catalog.GetUser(username) }
func (s *Storage) UpdateUser(u catalog.User) error { return s.catalog.UpdateUser(u) }

func (s *Storage) CreateTenant(t catalog.Tenant) error { return s.catalog.CreateTenant(t) }
func (s *Storage) GetTenant(id string) (*catalog.Tenant, error) { return s.catalog.GetTenant(id) }
func (s *Storage) UpdateTenant(t catalog.Tenant) error { return s.catalog.UpdateTenant(t) }

func (s *Storage) CreateEnvironment(e catalog.Environment) error {
	return s.catalog.CreateEnvironment(e)
}
func (s *Storage) GetEnvironment(id string) (*catalog.Environment, error) {
	return s.catalog.GetEnvironment(id)
}
func (s *Storage) UpdateEnvironment(e catalog.Environment) error {
	return s.catalog.UpdateEnvironment(e)
}

func (s *Storage) CreateCollection(c catalog.Collection) error {
	return s.catalog.CreateCollection(c)
}
func (s *Storage) GetCollection(id string) (*catalog.Collection, error) {
	return s.catalog.GetCollection(id)
}
func (s *Storage) UpdateCollection(c catalog.Collection) error {
	return s.catalog.UpdateCollection(c)
}

// AppendEnvironmentToTenant links a newly created Environment into its
// parent Tenant's child list. This is not atomic with the Environment's own
// creation — callers (the façade, here the test suite) invoke both halves
// explicitly.
func (s *Storage) AppendEnvironmentToTenant(tenantID, envID string) error {
	return s.catalog.AppendEnvironmentToTenant(tenantID, envID)
}

// AppendCollectionToEnvironment links a newly created Collection into its
// parent Environment's child list.
func (s *Storage) AppendCollectionToEnvironment(envID, collectionID string) error {
	return s.catalog.AppendCollectionToEnvironment(envID, collectionID)
}

// AppendTenantToUser links a newly created Tenant into its owning User's
// child list.
func (s *Storage) AppendTenantToUser(username, tenantID string) error {
	return s.catalog.AppendTenantToUser(username, tenantID)
}

// --- Document store ---

func (s *Storage) InsertDoc(collectionID string, doc docstore.Document) error {
	return s.docs.InsertDoc(collectionID, doc)
}

func (s *Storage) UpdateDoc(collectionID string, doc docstore.Document) error {
	return s.docs.UpdateDoc(collectionID, doc)
}

func (s *Storage) GetDoc(collectionID, id string) (docstore.Document, error) {
	return s.docs.GetDoc(collectionID, id)
}

func (s *Storage) GetDocWithCacheStatus(collectionID, id string) (docstore.Document, bool, error) {
	return s.docs.GetDocWithCacheStatus(collectionID, id)
}

func (s *Storage) DeleteDoc(collectionID, id string) error {
	return s.docs.DeleteDoc(collectionID, id)
}

func (s *Storage) GetDocsInCollection(collectionID string) ([]docstore.Document, error) {
	return s.docs.GetDocsInCollection(collectionID)
}

func (s *Storage) GetVectorsInCollection(collectionID string) ([]docstore.VectorEntry, error) {
	return s.docs.GetVectorsInCollection(collectionID)
}

// DeleteCollection performs the full delete_collection cascade: purge
// docs/metadata/vectors and matching cache entries, remove the Collection
// entity, then drop its id from the parent Environment's child list. The two
// halves are not atomic with each other — collection deletion acquires no
// global lock.
func (s *Storage) DeleteCollection(envID, collectionID string) error {
	if err := s.docs.DeleteCollection(collectionID); err != nil {
		return err
	}
	if err := s.catalog.DeleteCollectionEntity(collectionID); err != nil {
		return err
	}
	return s.catalog.RemoveCollectionFromEnvironment(envID, collectionID)
}

// --- Columnar projection + SQL ---

func (s *Storage) ProjectCollectionToRowBatch(collectionID string) (columnar.RowBatch, error) {
	docs, err := s.docs.GetDocsInCollection(collectionID)
	if err != nil {
		return columnar.RowBatch{}, err
	}
	return columnar.ProjectCollectionToRowBatch(docs), nil
}

// ExecuteSQL runs a SELECT against collectionID's projected row batch via
// the hybrid planner's pass-through.
func (s *Storage) ExecuteSQL(collectionID, query string) (columns []string, rows [][]string, err error) {
	return s.planner.ExecuteSQL(collectionID, query)
}

// --- Hybrid planner ---

// HybridQuery composes ANN candidates, a SQL predicate, and document
// hydration into a filtered result set, in SQL-yield order, with per-result
// cache-hit flags.
func (s *Storage) HybridQuery(collectionID, sqlFilter string, queryVector []float32, topK int) ([]planner.Result, error) {
	return s.planner.HybridQuery(collectionID, sqlFilter, queryVector, topK)
}
