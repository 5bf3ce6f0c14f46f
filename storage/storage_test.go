package storage_test

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shailendrapspundhir/aidb/internal/aidberr"
	"github.com/shailendrapspundhir/aidb/internal/catalog"
	"github.com/shailendrapspundhir/aidb/internal/docstore"
	"github.com/shailendrapspundhir/aidb/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStorage(t *testing.T) *storage.Storage {
	t.Helper()
	s, err := storage.Open(filepath.Join(t.TempDir(), "aidb.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// seedHierarchy builds the default hierarchy: user admin, tenant
// default_tenant, env default_env, collection default_collection.
func seedHierarchy(t *testing.T, s *storage.Storage) {
	t.Helper()
	require.NoError(t, s.CreateUser(catalog.User{Username: "admin", PasswordHash: "h"}))
	require.NoError(t, s.CreateTenant(catalog.Tenant{ID: "default_tenant", OwnerID: "admin"}))
	require.NoError(t, s.AppendTenantToUser("admin", "default_tenant"))
	require.NoError(t, s.CreateEnvironment(catalog.Environment{ID: "default_env", TenantID: "default_tenant"}))
	require.NoError(t, s.AppendEnvironmentToTenant("default_tenant", "default_env"))
	require.NoError(t, s.CreateCollection(catalog.Collection{ID: "default_collection", EnvironmentID: "default_env"}))
	require.NoError(t, s.AppendCollectionToEnvironment("default_env", "default_collection"))
}

// seedTenDocs inserts doc i with category "AI" iff i is even and
// vector[i mod 4] = 1.0, others 0.1.
func seedTenDocs(t *testing.T, s *storage.Storage, collectionID string) {
	t.Helper()
	for i := 0; i < 10; i++ {
		vector := []float32{0.1, 0.1, 0.1, 0.1}
		vector[i%4] = 1.0
		category := "other"
		if i%2 == 0 {
			category = "AI"
		}
		doc := docstore.Document{
			ID:       fmt.Sprintf("%d", i),
			Text:     fmt.Sprintf("document %d", i),
			Category: category,
			Vector:   vector,
		}
		require.NoError(t, s.InsertDoc(collectionID, doc))
	}
}

func TestGetDocsInCollection_ReturnsAllTenSeededDocs(t *testing.T) {
	s := openStorage(t)
	seedHierarchy(t, s)
	seedTenDocs(t, s, "default_collection")

	docs, err := s.GetDocsInCollection("default_collection")
	require.NoError(t, err)
	assert.Len(t, docs, 10)
}

func TestExecuteSQL_CategoryFilterReturnsFiveRows(t *testing.T) {
	s := openStorage(t)
	seedHierarchy(t, s)
	seedTenDocs(t, s, "default_collection")

	cols, rows, err := s.ExecuteSQL("default_collection", "SELECT id, category FROM docs WHERE category = 'AI'")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "category"}, cols)
	assert.Len(t, rows, 5)
}

// Hybrid query returns at most 3 AI docs; cache-hit flag transitions
// false -> true on a repeat identical query.
func TestHybridQuery_ReturnsAIDocsWithCacheTransition(t *testing.T) {
	// InsertDoc warms the doc cache, so seed through one Storage and query
	// through a reopened one whose cache starts cold.
	path := filepath.Join(t.TempDir(), "aidb.db")
	seeded, err := storage.Open(path)
	require.NoError(t, err)
	seedHierarchy(t, seeded)
	seedTenDocs(t, seeded, "default_collection")
	require.NoError(t, seeded.Close())

	s, err := storage.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	first, err := s.HybridQuery("default_collection", "category = 'AI'", []float32{1.0, 0.1, 0.1, 0.1}, 3)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(first), 3)
	for _, r := range first {
		assert.Equal(t, "AI", r.Document.Category)
		assert.False(t, r.FromCache)
	}

	second, err := s.HybridQuery("default_collection", "category = 'AI'", []float32{1.0, 0.1, 0.1, 0.1}, 3)
	require.NoError(t, err)
	require.Len(t, second, len(first))
	for _, r := range second {
		assert.True(t, r.FromCache)
	}
}

// A 10 MiB document persists and is retrievable under AIDB_CACHE_MB=1, but
// the cache never holds it (every get_doc is a miss).
func TestGetDoc_OversizedDocumentNeverCachedButRetrievable(t *testing.T) {
	t.Setenv("AIDB_CACHE_MB", "1")
	s := openStorage(t)
	seedHierarchy(t, s)

	hugeText := strings.Repeat("x", 10*1024*1024)
	doc := docstore.Document{ID: "huge", Text: hugeText}
	require.NoError(t, s.InsertDoc("default_collection", doc))

	_, fromCache1, err := s.GetDocWithCacheStatus("default_collection", "huge")
	require.NoError(t, err)
	assert.False(t, fromCache1)

	got, fromCache2, err := s.GetDocWithCacheStatus("default_collection", "huge")
	require.NoError(t, err)
	assert.False(t, fromCache2)
	assert.Equal(t, hugeText, got.Text)
}

// insert {id:"x"}, delete_doc, get_doc returns NotFound;
// get_vectors_in_collection no longer contains x.
func TestDeleteDoc_ThenNotFoundAndVectorPurge(t *testing.T) {
	s := openStorage(t)
	seedHierarchy(t, s)

	require.NoError(t, s.InsertDoc("default_collection", docstore.Document{ID: "x", Vector: []float32{1, 2}}))
	require.NoError(t, s.DeleteDoc("default_collection", "x"))

	_, err := s.GetDoc("default_collection", "x")
	require.Error(t, err)
	assert.True(t, aidberr.Is(err, aidberr.KindNotFound))

	vectors, err := s.GetVectorsInCollection("default_collection")
	require.NoError(t, err)
	for _, v := range vectors {
		assert.NotEqual(t, "x", v.ID)
	}
}

// create collection k, insert three docs, delete_collection;
// get_docs_in_collection(k) is empty and the environment no longer lists k.
func TestDeleteCollection_Cascade(t *testing.T) {
	s := openStorage(t)
	seedHierarchy(t, s)

	require.NoError(t, s.CreateCollection(catalog.Collection{ID: "k", EnvironmentID: "default_env"}))
	require.NoError(t, s.AppendCollectionToEnvironment("default_env", "k"))

	for i := 0; i < 3; i++ {
		require.NoError(t, s.InsertDoc("k", docstore.Document{ID: fmt.Sprintf("%d", i)}))
	}

	require.NoError(t, s.DeleteCollection("default_env", "k"))

	docs, err := s.GetDocsInCollection("k")
	require.NoError(t, err)
	assert.Empty(t, docs)

	env, err := s.GetEnvironment("default_env")
	require.NoError(t, err)
	assert.NotContains(t, env.Collections, "k")
}

func TestInsertDoc_RoundTripsMetadataBitForBit(t *testing.T) {
	s := openStorage(t)
	seedHierarchy(t, s)

	meta := []byte(`{"k":"v","n":3}`)
	require.NoError(t, s.InsertDoc("default_collection", docstore.Document{ID: "m1", Metadata: meta}))

	got, err := s.GetDoc("default_collection", "m1")
	require.NoError(t, err)
	assert.JSONEq(t, string(meta), string(got.Metadata))
}
